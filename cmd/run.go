package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"foreman/internal/app"
)

// runPlanPath is the plan file the run command executes.
var runPlanPath string

// runConfigPath specifies a custom configuration directory path.
// When set, the per-user default directory is not consulted.
var runConfigPath string

// runWorkspace overrides the workspace directory backing the run context.
// An empty value lets the engine allocate a temporary directory.
var runWorkspace string

// runKeep preserves the workspace directory after the run, which is
// useful for inspecting generated manifests, logs and build files.
var runKeep bool

// runQuiet suppresses log output and progress indication.
// The summary table and the final result still print.
var runQuiet bool

// runDebug enables verbose logging across the application.
var runDebug bool

// runVars collects repeated --var key=value flags.
var runVars []string

// runCmd defines the run command structure. This is the main command of
// foreman: it drives a plan to completion.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute a plan to completion",
	Long: `Executes every step of a plan through its agent, consulting the
decision service for manifests, verdicts and corrective steps. The run
aborts when an agent's attempt budget is spent or a failure cannot be
recovered; otherwise it ends with a summary table of the executed steps
and the final step's result.

The run context is seeded from workspace.vars in the configuration file
and from --var flags; the same variables render {{ .name }} expressions
in the plan file. Variables given on the command line win.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

// runRun is the main entry point for the run command.
func runRun(cmd *cobra.Command, args []string) error {
	vars, err := parseVars(runVars)
	if err != nil {
		return err
	}

	cfg := app.NewConfig(runDebug, runQuiet, runConfigPath)
	cfg.PlanPath = runPlanPath
	cfg.WorkspaceDir = runWorkspace
	cfg.Keep = runKeep
	cfg.Vars = vars

	application, err := app.NewApplication(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer application.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	// Interrupts cancel the run; the engine stops at the next step
	// boundary or poll tick.
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return application.Run(ctx)
}

// parseVars turns repeated key=value flags into a variable map.
func parseVars(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	vars := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid variable %q, expected key=value", pair)
		}
		vars[key] = value
	}
	return vars, nil
}

// init registers the run command and its flags with the root command.
func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runPlanPath, "plan", "", "Plan file to execute (YAML or JSON)")
	_ = runCmd.MarkFlagRequired("plan")
	runCmd.Flags().StringVar(&runConfigPath, "config-path", "", "Custom configuration directory path")
	runCmd.Flags().StringVar(&runWorkspace, "workspace", "", "Workspace directory backing the run context")
	runCmd.Flags().BoolVar(&runKeep, "keep", false, "Keep the workspace directory after the run")
	runCmd.Flags().BoolVar(&runQuiet, "quiet", false, "Suppress log output and progress indication")
	runCmd.Flags().BoolVar(&runDebug, "debug", false, "Enable general debug logging")
	runCmd.Flags().StringArrayVar(&runVars, "var", nil, "Plan variable as key=value (repeatable)")
}
