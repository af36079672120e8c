package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResult(t *testing.T) {
	assert.True(t, ResultOK("done").OK())
	assert.False(t, ResultFailed("boom").OK())
	assert.Equal(t, "boom", ResultFailed("boom").Message)
}

func TestWorkloadState_Terminal(t *testing.T) {
	terminal := []WorkloadState{StateSucceeded, StateFailed, StateLost, StateTimeout}
	for _, s := range terminal {
		assert.True(t, s.Terminal(), "state %s should be terminal", s)
	}

	active := []WorkloadState{StateSubmitted, StateAwaitingPod, StatePodPending, StatePodRunning, StateReady}
	for _, s := range active {
		assert.False(t, s.Terminal(), "state %s should not be terminal", s)
	}
}

func TestPodStatus_AllReady(t *testing.T) {
	assert.False(t, PodStatus{Phase: PodRunning}.AllReady(), "no containers means not ready")

	ready := PodStatus{
		Phase: PodRunning,
		Containers: []ContainerState{
			{Name: "main", Ready: true},
			{Name: "sidecar", Ready: true},
		},
	}
	assert.True(t, ready.AllReady())

	mixed := PodStatus{
		Phase: PodRunning,
		Containers: []ContainerState{
			{Name: "main", Ready: true},
			{Name: "sidecar", Ready: false},
		},
	}
	assert.False(t, mixed.AllReady())
}

func TestPodStatus_FatalReason(t *testing.T) {
	waiting := PodStatus{
		Phase: PodPending,
		Containers: []ContainerState{
			{Name: "main", WaitingReason: "ContainerCreating"},
		},
	}
	assert.Equal(t, "", waiting.FatalReason())

	stuck := PodStatus{
		Phase: PodPending,
		Containers: []ContainerState{
			{Name: "main", WaitingReason: "ImagePullBackOff"},
		},
	}
	assert.Equal(t, "ImagePullBackOff", stuck.FatalReason())

	oom := PodStatus{
		Phase: PodRunning,
		Containers: []ContainerState{
			{Name: "main", TerminatedReason: ReasonOOMKilled, ExitCode: 137},
		},
	}
	assert.Equal(t, ReasonOOMKilled, oom.FatalReason())
}

func TestFatalContainerReason(t *testing.T) {
	assert.True(t, FatalContainerReason("CrashLoopBackOff"))
	assert.True(t, FatalContainerReason("ErrImagePull"))
	assert.False(t, FatalContainerReason("ContainerCreating"))
	assert.False(t, FatalContainerReason("Completed"))
	assert.False(t, FatalContainerReason(""))
}
