// Package logging provides a structured logging system for foreman with
// unified log handling and level filtering.
//
// This package implements a logging system built on Go's standard slog
// package, providing consistent logging behavior with structured output and
// level filtering.
//
// # Architecture
//
// The logging system is built around these core concepts:
//
// ## Log Levels
//   - **Debug**: Detailed information for debugging and development
//   - **Info**: General informational messages about application operation
//   - **Warn**: Warning messages that indicate potential issues
//   - **Error**: Error messages for failures and exceptional conditions
//
// ## Structured Logging
// All log entries include:
//   - Timestamp with nanosecond precision
//   - Log level (Debug, Info, Warn, Error)
//   - Subsystem identifier for categorization
//   - Message content with optional formatting
//   - Optional error information
//
// # Usage Examples
//
//	import "foreman/pkg/logging"
//
//	// Initialize with Info level logging to stdout
//	logging.Init(logging.LevelInfo, os.Stdout)
//
//	// Log messages
//	logging.Info("Orchestrator", "Plan started")
//	logging.Debug("Config", "Loaded configuration from %s", configPath)
//	logging.Warn("Deploy", "Pod not yet scheduled")
//	logging.Error("Cluster", err, "Failed to apply manifest")
//
// # Subsystem Organization
//
// Logs are organized by subsystem to enable filtering and categorization:
//
//   - **Bootstrap**: Application initialization and startup
//   - **Config**: Configuration loading and validation
//   - **Orchestrator**: Plan execution and step lifecycle
//   - **Deploy**: Workload submission and observation
//   - **Optimize**: Resource tuning iterations
//   - **Scaling**: Scaling study sweeps
//   - **Oracle**: Decision service requests and parsing
//   - **Cluster**: Kubernetes API operations
//   - **Workspace**: Artifact storage and context state
//
// # Integration with slog
//
// The logging system integrates with Go's standard slog package:
//   - Uses slog.Handler implementations for output formatting
//   - Converts custom LogLevel to slog.Level for compatibility
//   - Sets the global slog default so stray slog calls share the output
//
// # Thread Safety
//
// The logging system is fully thread-safe:
//   - Safe concurrent logging from multiple goroutines
//   - Level filtering happens at the handler, so filtered messages cost
//     no allocation
package logging
