package app

import (
	"foreman/internal/config"
)

// Config holds one foreman invocation as assembled by the CLI.
type Config struct {
	// Debug enables verbose logging.
	Debug bool

	// Quiet suppresses log output and progress indication.
	Quiet bool

	// Custom configuration directory path (optional).
	// When empty, the per-user default directory is used.
	ConfigPath string

	// PlanPath is the plan file to execute.
	PlanPath string

	// WorkspaceDir overrides the configured workspace directory.
	WorkspaceDir string

	// Keep preserves the workspace directory after the run.
	Keep bool

	// Vars are plan template variables. They also seed the run context
	// and override variables from the configuration file.
	Vars map[string]string

	// Engine configuration, populated during bootstrap.
	ForemanConfig *config.ForemanConfig
}

// NewConfig creates a new application configuration.
func NewConfig(debug, quiet bool, configPath string) *Config {
	return &Config{
		Debug:      debug,
		Quiet:      quiet,
		ConfigPath: configPath,
	}
}
