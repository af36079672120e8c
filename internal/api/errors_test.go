package api

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkloadError_Message(t *testing.T) {
	err := NewWorkloadError(FailurePodFatal, "pod %q is stuck in a fatal state", "job-abc-x7k").
		WithReason("ImagePullBackOff")

	assert.Contains(t, err.Error(), "pod-fatal")
	assert.Contains(t, err.Error(), `pod "job-abc-x7k" is stuck in a fatal state`)
	assert.Contains(t, err.Error(), "ImagePullBackOff")
}

func TestWorkloadError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewWorkloadError(FailureApplyRejected, "apply failed").WithCause(cause)

	assert.ErrorIs(t, err, cause)

	var we *WorkloadError
	require.ErrorAs(t, err, &we)
	assert.Equal(t, FailureApplyRejected, we.Kind)
}

func TestWorkloadError_Report(t *testing.T) {
	err := NewWorkloadError(FailureRunFailed, "job failed during execution").
		WithDiagnostics("--- JOB DESCRIPTION ---\n{}")

	report := err.Report()
	assert.Contains(t, report, "job failed during execution")
	assert.Contains(t, report, "--- JOB DESCRIPTION ---")

	bare := NewWorkloadError(FailureTimeout, "no stable state")
	assert.Equal(t, bare.Error(), bare.Report())
}

func TestKindOf_WrappedError(t *testing.T) {
	inner := NewWorkloadError(FailureLost, "pod vanished")
	wrapped := fmt.Errorf("polling workload: %w", inner)

	assert.Equal(t, FailureLost, KindOf(wrapped))
	assert.True(t, IsLost(wrapped))
	assert.True(t, IsRetryable(wrapped))
}

func TestKindOf_PlainError(t *testing.T) {
	assert.Equal(t, FailureKind(""), KindOf(errors.New("plain")))
	assert.False(t, IsRetryable(errors.New("plain")))
	assert.False(t, IsRetryable(nil))
}

func TestPredicates(t *testing.T) {
	assert.True(t, IsTimeout(NewWorkloadError(FailureTimeout, "budget exhausted")))
	assert.False(t, IsTimeout(NewWorkloadError(FailureRunFailed, "exit 1")))
	assert.True(t, IsOracleMalformed(NewWorkloadError(FailureOracleMalformed, "no code block")))
}
