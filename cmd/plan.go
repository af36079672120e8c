package cmd

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"foreman/internal/plan"
	"foreman/internal/template"
	foremanstrings "foreman/pkg/strings"
)

// planPath is the plan file the plan subcommands inspect.
var planPath string

// planVars collects repeated --var key=value flags for rendering.
var planVars []string

// planCmd groups the plan inspection subcommands.
var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Inspect and validate plan files",
	Long: `Static checks and listings for plan files, without executing
anything and without contacting the decision service or the cluster.`,
}

// planValidateCmd checks a plan file's shape and template variables.
var planValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a plan file without executing it",
	Long: `Validates the structure of a plan file: name, steps, agent names
and attempt budgets. When the plan references template variables, they
must be supplied with --var flags; validation renders the plan to prove
the expressions execute. Whether the agents resolve is checked at run
time, against the agents available in that environment.`,
	Args: cobra.NoArgs,
	RunE: runPlanValidate,
}

// planShowCmd prints the steps of a plan file.
var planShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the steps of a plan file",
	Long: `Prints the steps of a plan file as a table. Without --var flags
the plan is shown as authored, with its template expressions in place
and the referenced variables listed below.`,
	Args: cobra.NoArgs,
	RunE: runPlanShow,
}

// runPlanValidate is the entry point for the plan validate command.
func runPlanValidate(cmd *cobra.Command, args []string) error {
	p, err := plan.Load(planPath)
	if err != nil {
		return err
	}
	vars, err := parseVars(planVars)
	if err != nil {
		return err
	}

	engine := template.New()
	context := asVariableContext(vars)
	if err := engine.ValidateContext(planTexts(p), context); err != nil {
		return fmt.Errorf("plan %s: %w (supply them with --var)", planPath, err)
	}
	if err := p.Render(engine, context); err != nil {
		return fmt.Errorf("plan %s: %w", planPath, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "plan %q is valid: %d steps\n", p.Name, p.Len())
	return nil
}

// runPlanShow is the entry point for the plan show command.
func runPlanShow(cmd *cobra.Command, args []string) error {
	p, err := plan.Load(planPath)
	if err != nil {
		return err
	}
	vars, err := parseVars(planVars)
	if err != nil {
		return err
	}

	engine := template.New()
	if len(vars) > 0 {
		if err := p.Render(engine, asVariableContext(vars)); err != nil {
			return fmt.Errorf("plan %s: %w", planPath, err)
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), planTable(p))
	if len(vars) == 0 {
		if variables := engine.ExtractVariables(planTexts(p)); len(variables) > 0 {
			sort.Strings(variables)
			fmt.Fprintf(cmd.OutOrStdout(), "Variables: %s\n", strings.Join(variables, ", "))
		}
	}
	return nil
}

// planTable renders the steps of a plan as a table.
func planTable(p *plan.Plan) string {
	w := table.NewWriter()
	w.SetStyle(table.StyleRounded)
	w.SetTitle("Plan %s", p.Name)
	w.AppendHeader(table.Row{"#", "Agent", "Attempts", "Description"})
	for i, step := range p.Steps {
		attempts := "-"
		if step.Attempts > 0 {
			attempts = strconv.Itoa(step.Attempts)
		}
		w.AppendRow(table.Row{i + 1, step.Agent, attempts,
			foremanstrings.TruncateDescription(step.Description, 80)})
	}
	return w.Render()
}

// planTexts collects the templatable texts of a plan for variable
// extraction and validation.
func planTexts(p *plan.Plan) []interface{} {
	texts := []interface{}{p.Description}
	for _, step := range p.Steps {
		texts = append(texts, step.Description)
	}
	return texts
}

// asVariableContext widens a string map for the template engine.
func asVariableContext(vars map[string]string) map[string]interface{} {
	context := make(map[string]interface{}, len(vars))
	for key, value := range vars {
		context[key] = value
	}
	return context
}

// init registers the plan commands and their flags with the root command.
func init() {
	rootCmd.AddCommand(planCmd)
	planCmd.AddCommand(planValidateCmd)
	planCmd.AddCommand(planShowCmd)

	planCmd.PersistentFlags().StringVar(&planPath, "plan", "", "Plan file to inspect (YAML or JSON)")
	_ = planCmd.MarkPersistentFlagRequired("plan")
	planCmd.PersistentFlags().StringArrayVar(&planVars, "var", nil, "Plan variable as key=value (repeatable)")
}
