package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/text"

	"foreman/internal/plan"
	"foreman/internal/template"
	"foreman/internal/workspace"
	"foreman/pkg/logging"
)

// runPlan loads, renders and resolves the plan, connects the decision
// service, seeds the run context and hands the plan to the orchestrator.
// The executed history is printed as a summary table, also when the run
// fails.
func runPlan(ctx context.Context, cfg *Config, services *Services) error {
	if cfg.PlanPath == "" {
		return fmt.Errorf("no plan file given")
	}
	p, err := plan.Load(cfg.PlanPath)
	if err != nil {
		return err
	}

	vars := template.MergeContexts(
		asTemplateVars(cfg.ForemanConfig.Workspace.Vars),
		asTemplateVars(cfg.Vars),
	)
	if err := p.Render(template.New(), vars); err != nil {
		return fmt.Errorf("failed to render plan %s: %w", cfg.PlanPath, err)
	}
	if err := p.Resolve(services.Registry); err != nil {
		return err
	}

	if err := connectOracle(ctx, cfg, services); err != nil {
		return err
	}

	rc := services.Workspace
	for key, value := range vars {
		rc.Set(key, value)
	}
	logging.Info("CLI", "Workspace at %s", rc.Dir())

	tracker, runErr := services.Engine.Run(ctx, rc, p)

	fmt.Println(tracker.Table())
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "%s\n", text.FgRed.Sprintf("Run failed: %s", runErr))
		return runErr
	}
	if result := rc.GetString(workspace.KeyResult); result != "" {
		fmt.Println(result)
	}
	fmt.Println(text.FgGreen.Sprint("Run succeeded"))
	return nil
}

// connectOracle establishes the decision service connection. It shows a
// progress spinner unless quiet mode is enabled.
func connectOracle(ctx context.Context, cfg *Config, services *Services) error {
	if cfg.Quiet {
		return services.Oracle.Connect(ctx)
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " Connecting to decision service..."
	s.Start()
	defer s.Stop()

	if err := services.Oracle.Connect(ctx); err != nil {
		s.FinalMSG = text.FgRed.Sprint("Failed to connect to decision service") + "\n"
		return err
	}
	return nil
}

// asTemplateVars widens a string map for the template engine.
func asTemplateVars(in map[string]string) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}
