package api

import (
	"errors"
	"fmt"
)

// FailureKind classifies engine and workload failures. The kind decides how
// far a failure propagates: Lost downgrades to a retry inside the polling
// loop, everything else surfaces as a step failure for the recovery router,
// and RecoveryExhausted aborts the run.
type FailureKind string

const (
	// FailureApplyRejected means the cluster API refused the manifest.
	FailureApplyRejected FailureKind = "apply-rejected"

	// FailureManifestInvalid means local validation found the manifest
	// structurally unusable before submission.
	FailureManifestInvalid FailureKind = "manifest-invalid"

	// FailurePodFatal means a container entered a state it cannot recover
	// from; Reason carries the container reason.
	FailurePodFatal FailureKind = "pod-fatal"

	// FailureTimeout means the workload did not reach a stable running or
	// completed state within the polling budget.
	FailureTimeout FailureKind = "timeout"

	// FailureLost means a watched resource disappeared. Lost is retryable:
	// the poll loop forgets the pod and keeps waiting for a replacement.
	FailureLost FailureKind = "lost"

	// FailureRunFailed means the workload ran and finished unsuccessfully.
	FailureRunFailed FailureKind = "run-failed"

	// FailureOracleMalformed means the decision service kept returning
	// unparseable output after the bounded reformulation attempts.
	FailureOracleMalformed FailureKind = "oracle-malformed"

	// FailureRecoveryExhausted means an agent's attempt budget ran out or
	// no corrective step could be determined.
	FailureRecoveryExhausted FailureKind = "recovery-exhausted"
)

// WorkloadError is the classified error type shared across the engine. It
// wraps an optional cause and carries the diagnostics bundle collected at
// failure time so recovery prompts can see what the cluster saw.
type WorkloadError struct {
	// Kind classifies the failure.
	Kind FailureKind

	// Reason is the container-level reason for pod-fatal failures.
	Reason string

	// Message is the human-readable failure description.
	Message string

	// Diagnostics is the rendered diagnostics bundle, when collected.
	Diagnostics string

	// Err is the wrapped cause, when any.
	Err error
}

// Error implements the error interface.
func (e *WorkloadError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Reason != "" {
		msg = fmt.Sprintf("%s (reason: %s)", msg, e.Reason)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the wrapped cause for errors.Is and errors.As.
func (e *WorkloadError) Unwrap() error {
	return e.Err
}

// Report returns the error message followed by the diagnostics bundle, the
// form handed to the decision service after a failure.
func (e *WorkloadError) Report() string {
	if e.Diagnostics == "" {
		return e.Error()
	}
	return e.Error() + "\n\n" + e.Diagnostics
}

// NewWorkloadError creates a WorkloadError of the given kind.
func NewWorkloadError(kind FailureKind, format string, args ...interface{}) *WorkloadError {
	return &WorkloadError{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

// WithReason attaches the container-level reason.
func (e *WorkloadError) WithReason(reason string) *WorkloadError {
	e.Reason = reason
	return e
}

// WithDiagnostics attaches the rendered diagnostics bundle.
func (e *WorkloadError) WithDiagnostics(diagnostics string) *WorkloadError {
	e.Diagnostics = diagnostics
	return e
}

// WithCause wraps an underlying error.
func (e *WorkloadError) WithCause(err error) *WorkloadError {
	e.Err = err
	return e
}

// KindOf returns the failure kind of err, or "" when err does not wrap a
// WorkloadError.
func KindOf(err error) FailureKind {
	var we *WorkloadError
	if errors.As(err, &we) {
		return we.Kind
	}
	return ""
}

// IsRetryable reports whether err may resolve on its own if the operation
// is repeated. Only Lost qualifies.
func IsRetryable(err error) bool {
	return KindOf(err) == FailureLost
}

// IsLost reports whether err wraps a Lost failure.
func IsLost(err error) bool {
	return KindOf(err) == FailureLost
}

// IsTimeout reports whether err wraps a Timeout failure.
func IsTimeout(err error) bool {
	return KindOf(err) == FailureTimeout
}

// IsOracleMalformed reports whether err wraps an OracleMalformed failure.
func IsOracleMalformed(err error) bool {
	return KindOf(err) == FailureOracleMalformed
}

// Common sentinel errors for engine wiring problems.
var (
	// ErrAgentNotRegistered indicates a plan or recovery step names an
	// agent the catalog does not know.
	ErrAgentNotRegistered = errors.New("agent is not registered")

	// ErrNoOracle indicates a component that needs the decision service
	// was constructed without one.
	ErrNoOracle = errors.New("no decision oracle configured")
)
