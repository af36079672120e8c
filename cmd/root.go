package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"foreman/internal/api"
)

// Exit codes for CLI commands.
// These give scripts a way to distinguish run outcomes.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeExhausted indicates a run that aborted with its recovery options spent.
	ExitCodeExhausted = 2
	// ExitCodeTimeout indicates a run that aborted because a workload exceeded its runtime budget.
	ExitCodeTimeout = 3
)

// rootCmd represents the base command for the foreman application.
// It is the entry point when the application is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "foreman",
	Short: "Plan-driven workload orchestration against Kubernetes",
	Long: `foreman executes plans: ordered lists of agent steps that build
container images, run workloads as Kubernetes Jobs, optimize them and
study their scaling behavior. Every open decision along the way --
manifests, retry verdicts, corrective steps -- is delegated to an
external decision service speaking MCP.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// It initializes and executes the root command, which in turn handles subcommands and flags.
// This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "foreman version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
// This provides semantic exit codes for scripting and automation.
func getExitCode(err error) int {
	var workloadErr *api.WorkloadError
	if errors.As(err, &workloadErr) {
		switch workloadErr.Kind {
		case api.FailureRecoveryExhausted:
			return ExitCodeExhausted
		case api.FailureTimeout:
			return ExitCodeTimeout
		}
	}

	// Default to general error
	return ExitCodeError
}

// init registers the version subcommand; the other subcommands register
// themselves in their own files.
func init() {
	rootCmd.AddCommand(newVersionCmd())
}
