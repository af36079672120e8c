package workspace

// Well-known context keys. Agents communicate exclusively through these keys
// so the literal strings double as the on-disk artifact directory names.
const (
	// KeyResult holds the primary output of the last step (manifest text,
	// build file text, captured logs, ...).
	KeyResult = "result"

	// KeyReturnCode holds the outcome of the last step. Absent means success.
	KeyReturnCode = "return_code"

	// KeyErrorMessage carries failure output between steps so a follow-up
	// attempt can regenerate with the error in view.
	KeyErrorMessage = "error_message"

	// KeyTask is the current plan step's task instruction.
	KeyTask = "task"

	// KeyApplication names the application the run is about.
	KeyApplication = "application"

	// KeyEnvironment describes the target environment.
	KeyEnvironment = "environment"

	// KeyContainer is the image reference the workload must run.
	KeyContainer = "container"

	// KeyBuildFile is the container build recipe produced by the build agent.
	KeyBuildFile = "dockerfile"

	// KeyManifest is the workload manifest most recently submitted.
	KeyManifest = "manifest"

	// KeyLogs is the captured workload log text.
	KeyLogs = "logs"

	// KeyLogTruncated marks that log capture hit the runtime bound.
	KeyLogTruncated = "log_truncated"

	// KeyUnsatisfiable marks that the workload reported an unsatisfiable
	// resource request in its logs.
	KeyUnsatisfiable = "unsatisfiable"

	// KeyOptimize is the optimization directive. Its presence puts the
	// deploy agent into optimization mode.
	KeyOptimize = "optimize"

	// KeyOptimizing is the sticky marker that an optimization loop has
	// started for the current workload.
	KeyOptimizing = "optimizing"

	// KeyScale is the scaling study directive.
	KeyScale = "scale"

	// KeySizes is the remaining scaling study size queue.
	KeySizes = "sizes"

	// KeySize is the size currently being measured.
	KeySize = "size"

	// KeyExpression is the figure of merit extraction expression.
	KeyExpression = "expression"

	// KeyFigureOfMerit holds the figures of merit recorded so far.
	KeyFigureOfMerit = "fom"

	// KeyResources describes the cluster resources available for tuning.
	KeyResources = "resources"

	// KeyCostEstimate holds the instance cost table from the cost agent.
	KeyCostEstimate = "cost_estimate"

	// KeyCleanup controls whether workloads are deleted after terminal
	// states. Unset means cleanup.
	KeyCleanup = "cleanup"

	// KeyReturnToManager is set when an internal retry loop must yield
	// control back to the orchestrator instead of retrying.
	KeyReturnToManager = "return_to_manager"
)
