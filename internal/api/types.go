package api

import "time"

// Result is the outcome of one agent step. A zero Code is success; the
// orchestrator treats anything else as a failure and consults the recovery
// router. Message carries the step's primary output on success and the
// failure description otherwise.
type Result struct {
	Code    int
	Message string
}

// OK reports whether the step succeeded.
func (r Result) OK() bool {
	return r.Code == 0
}

// ResultOK builds a successful Result.
func ResultOK(message string) Result {
	return Result{Code: 0, Message: message}
}

// ResultFailed builds a failed Result.
func ResultFailed(message string) Result {
	return Result{Code: 1, Message: message}
}

// WorkloadHandle identifies a submitted workload on the cluster.
type WorkloadHandle struct {
	Name      string
	Namespace string
}

// WorkloadState is a station in the workload observation state machine:
//
//	Submitted -> AwaitingPod -> PodPending -> PodRunning -> Ready
//
// ending in one of the terminal states Succeeded, Failed, Lost or Timeout.
// Lost is special: during polling a vanished pod is retried, so Lost only
// becomes terminal when the workload itself disappears for good.
type WorkloadState string

const (
	StateSubmitted   WorkloadState = "Submitted"
	StateAwaitingPod WorkloadState = "AwaitingPod"
	StatePodPending  WorkloadState = "PodPending"
	StatePodRunning  WorkloadState = "PodRunning"
	StateReady       WorkloadState = "Ready"
	StateSucceeded   WorkloadState = "Succeeded"
	StateFailed      WorkloadState = "Failed"
	StateLost        WorkloadState = "Lost"
	StateTimeout     WorkloadState = "Timeout"
)

// Terminal reports whether the state ends observation.
func (s WorkloadState) Terminal() bool {
	switch s {
	case StateSucceeded, StateFailed, StateLost, StateTimeout:
		return true
	}
	return false
}

// WorkloadOutcome is the result of driving one workload submission to a
// terminal state.
type WorkloadOutcome struct {
	// State is the terminal state reached.
	State WorkloadState

	// Handle identifies the submitted workload, also after failures, so
	// callers can delete or inspect what is left on the cluster.
	Handle WorkloadHandle

	// Reason is the fatal container reason when State is Failed because of
	// a container-level condition (OOMKilled, ImagePullBackOff, ...).
	Reason string

	// Message describes the outcome for logs, recovery prompts and step
	// results.
	Message string

	// Logs is the captured workload output, when any was collected.
	Logs string

	// LogTruncated marks that log capture stopped at the runtime bound
	// before the workload finished on its own.
	LogTruncated bool

	// Diagnostics is the rendered diagnostics bundle collected on failure
	// paths.
	Diagnostics string

	// OOMRedirect is set when a fatal OOM kill occurred while an
	// optimization pass was active. The deploy agent reroutes such
	// failures into the optimization loop instead of failing the step.
	OOMRedirect bool
}

// Succeeded reports whether the workload reached StateSucceeded.
func (o WorkloadOutcome) Succeeded() bool {
	return o.State == StateSucceeded
}

// JobStatus mirrors the counters of a batch job's status. The json tags
// keep the diagnostics rendering aligned with the cluster's own field
// names.
type JobStatus struct {
	Active    int32 `json:"active"`
	Succeeded int32 `json:"succeeded"`
	Failed    int32 `json:"failed"`
}

// ContainerState is the observed condition of one container in a pod.
type ContainerState struct {
	Name             string `json:"name"`
	Ready            bool   `json:"ready"`
	WaitingReason    string `json:"waitingReason,omitempty"`
	TerminatedReason string `json:"terminatedReason,omitempty"`
	ExitCode         int32  `json:"exitCode,omitempty"`
}

// PodStatus is the observed condition of the workload's pod.
type PodStatus struct {
	Phase      string           `json:"phase"`
	Containers []ContainerState `json:"containerStatuses,omitempty"`
}

// AllReady reports whether every container in the pod is ready. A pod with
// no reported containers is not ready.
func (p PodStatus) AllReady() bool {
	if len(p.Containers) == 0 {
		return false
	}
	for _, c := range p.Containers {
		if !c.Ready {
			return false
		}
	}
	return true
}

// FatalReason returns the first container reason that will not self-heal,
// or "" when none is present.
func (p PodStatus) FatalReason() string {
	for _, c := range p.Containers {
		if FatalContainerReason(c.WaitingReason) {
			return c.WaitingReason
		}
		if FatalContainerReason(c.TerminatedReason) {
			return c.TerminatedReason
		}
	}
	return ""
}

// Pod phases as reported by the cluster.
const (
	PodPending   = "Pending"
	PodRunning   = "Running"
	PodSucceeded = "Succeeded"
	PodFailed    = "Failed"
)

// ReasonOOMKilled is the container termination reason for memory kills. It
// gets special treatment: during optimization an OOM is a tuning signal,
// not a failure.
const ReasonOOMKilled = "OOMKilled"

// FatalContainerReason reports whether a container waiting or termination
// reason indicates a state the workload cannot recover from on its own.
func FatalContainerReason(reason string) bool {
	switch reason {
	case ReasonOOMKilled, "CrashLoopBackOff", "ErrImagePull", "ImagePullBackOff",
		"CreateContainerConfigError", "CreateContainerError", "RunContainerError",
		"StartError", "InvalidImageName":
		return true
	}
	return false
}

// Event is one cluster event attributed to the workload or its pods.
type Event struct {
	LastTimestamp time.Time `json:"lastTimestamp"`
	Type          string    `json:"type"`
	Reason        string    `json:"reason"`
	Object        string    `json:"object"`
	Message       string    `json:"message"`
}

// FigureOfMerit is one extracted performance measurement.
type FigureOfMerit struct {
	// Attempt is the optimization attempt that produced the measurement.
	Attempt int
	// Size is the scaling study size the measurement belongs to, 0 when
	// recorded outside a study.
	Size int
	// Value is the raw extracted text.
	Value string
}

// ScalingRecord is the converged result for one scaling study size.
type ScalingRecord struct {
	Size          int
	FigureOfMerit string
}

// CostEstimate is one row of the cost agent's instance suggestion table.
// The JSON field names are the wire contract with the decision service.
type CostEstimate struct {
	Application string `json:"application"`
	Environment string `json:"environment"`
	Instance    string `json:"instance"`
	Type        string `json:"type"`
	Reason      string `json:"reason"`
	Estimate    string `json:"estimate"`
}
