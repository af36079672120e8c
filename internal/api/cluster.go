package api

import (
	"context"
	"time"
)

// ClusterExecutor is the cluster the engine submits workloads to. The
// interface covers exactly what the workload state machine observes; the
// production implementation sits on the Kubernetes typed clientset and
// tests use a scripted fake.
type ClusterExecutor interface {
	// Apply submits a manifest. On rejection it returns the combined
	// server output alongside the error so failures can be replayed to
	// the decision service verbatim.
	Apply(ctx context.Context, manifest []byte) (string, error)

	// JobStatus returns the workload's job-level counters.
	JobStatus(ctx context.Context, h WorkloadHandle) (JobStatus, error)

	// FindPod returns the name of a pod belonging to the workload, or ""
	// when none exists yet. Absence is not an error.
	FindPod(ctx context.Context, h WorkloadHandle) (string, error)

	// PodStatus inspects one pod. A vanished pod returns a Lost error.
	PodStatus(ctx context.Context, h WorkloadHandle, podName string) (PodStatus, error)

	// Logs collects the workload's log output, following until completion
	// or until maxRuntime elapses when maxRuntime is positive. The bool
	// result reports whether collection was cut off at the bound.
	Logs(ctx context.Context, h WorkloadHandle, maxRuntime time.Duration) (string, bool, error)

	// Events returns cluster events for the workload and its pods,
	// ordered by last timestamp.
	Events(ctx context.Context, h WorkloadHandle) ([]Event, error)

	// Delete removes the workload. Deleting an absent workload is not an
	// error.
	Delete(ctx context.Context, h WorkloadHandle) error
}
