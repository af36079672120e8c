package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"foreman/internal/config"
	"foreman/internal/orchestrator"
	"foreman/pkg/logging"
)

// Application bootstraps and runs one foreman invocation.
//
// The Application follows a two-phase initialization pattern:
//  1. Bootstrap phase: configure logging, load configuration, wire services
//  2. Execution phase: drive the plan through the orchestrator
//
// Example usage:
//
//	cfg := app.NewConfig(false, false, "")
//	cfg.PlanPath = "plan.yaml"
//	application, err := app.NewApplication(cfg)
//	if err != nil {
//	    return fmt.Errorf("failed to create application: %w", err)
//	}
//	defer application.Close()
//	return application.Run(ctx)
type Application struct {
	config   *Config
	services *Services
}

// NewApplication creates and initializes a new application instance.
// It configures logging from the debug and quiet flags, loads the
// configuration directory, applies flag overrides and wires the
// services a run needs. The plan itself is loaded later, by Run.
func NewApplication(cfg *Config) (*Application, error) {
	appLogLevel := logging.LevelInfo
	if cfg.Debug {
		appLogLevel = logging.LevelDebug
	}

	var logOutput io.Writer = os.Stdout
	if cfg.Quiet {
		logOutput = io.Discard
	}
	logging.Init(appLogLevel, logOutput)

	configPath := cfg.ConfigPath
	if configPath == "" {
		configPath = config.GetDefaultConfigPathOrPanic()
	}
	foremanCfg, err := config.LoadConfig(configPath)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to load configuration from %s", configPath)
		return nil, fmt.Errorf("failed to load configuration from %s: %w", configPath, err)
	}

	// Command line flags override the configuration file.
	if cfg.WorkspaceDir != "" {
		foremanCfg.Workspace.Dir = cfg.WorkspaceDir
	}
	if cfg.Keep {
		foremanCfg.Workspace.Keep = true
	}
	cfg.ForemanConfig = &foremanCfg

	services, err := InitializeServices(cfg)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to initialize services")
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return &Application{
		config:   cfg,
		services: services,
	}, nil
}

// Run executes the configured plan to completion. It blocks until the
// plan finishes, the context is cancelled, or the run aborts.
func (a *Application) Run(ctx context.Context) error {
	return runPlan(ctx, a.config, a.services)
}

// Catalog returns the agent registry assembled for this invocation.
func (a *Application) Catalog() *orchestrator.Registry {
	return a.services.Registry
}

// Close disconnects the decision service and removes the workspace
// unless it is kept. Safe to call after a failed Run.
func (a *Application) Close() error {
	return a.services.Close()
}
