package cmd

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"foreman/internal/app"
)

// agentsConfigPath specifies a custom configuration directory path.
var agentsConfigPath string

// agentsDebug surfaces the bootstrap logs, including why an agent was
// not registered in this environment.
var agentsDebug bool

// agentsCmd lists the agents plan steps can name.
var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List the agents available to plan steps",
	Long: `Lists the agents registered in this environment. Agents whose
tooling is unavailable (no cluster credentials, no container build tool)
are skipped at startup; run with --debug to see why.`,
	Args: cobra.NoArgs,
	RunE: runAgents,
}

// runAgents is the entry point for the agents command.
func runAgents(cmd *cobra.Command, args []string) error {
	cfg := app.NewConfig(agentsDebug, !agentsDebug, agentsConfigPath)
	application, err := app.NewApplication(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer application.Close()

	w := table.NewWriter()
	w.SetStyle(table.StyleRounded)
	w.SetTitle("Agents")
	w.AppendHeader(table.Row{"Name", "Description"})
	for _, info := range application.Catalog().List() {
		w.AppendRow(table.Row{info.Name, info.Description})
	}
	fmt.Fprintln(cmd.OutOrStdout(), w.Render())
	return nil
}

// init registers the agents command and its flags with the root command.
func init() {
	rootCmd.AddCommand(agentsCmd)

	agentsCmd.Flags().StringVar(&agentsConfigPath, "config-path", "", "Custom configuration directory path")
	agentsCmd.Flags().BoolVar(&agentsDebug, "debug", false, "Show bootstrap logging while assembling the agent list")
}
