package cluster

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"

	"foreman/internal/api"
)

const testNamespace = "simulations"

func testJob(name string) *batchv1.Job {
	return &batchv1.Job{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: testNamespace,
		},
	}
}

func testPod(name, jobName string) *corev1.Pod {
	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: testNamespace,
			Labels:    map[string]string{"job-name": jobName},
		},
	}
}

func TestApplyCreatesJob(t *testing.T) {
	clientset := fake.NewSimpleClientset()
	executor := NewExecutorWithClient(clientset, testNamespace)

	manifest := []byte(`
apiVersion: batch/v1
kind: Job
metadata:
  name: lammps-run
spec:
  template:
    spec:
      containers:
        - name: app
          image: example/lammps:latest
      restartPolicy: Never
`)

	output, err := executor.Apply(context.Background(), manifest)
	require.NoError(t, err)
	assert.Equal(t, "job.batch/lammps-run created", output)

	created, err := clientset.BatchV1().Jobs(testNamespace).Get(context.Background(), "lammps-run", metav1.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, "example/lammps:latest", created.Spec.Template.Spec.Containers[0].Image)
}

func TestApplyHonorsManifestNamespace(t *testing.T) {
	clientset := fake.NewSimpleClientset()
	executor := NewExecutorWithClient(clientset, testNamespace)

	manifest := []byte(`
apiVersion: batch/v1
kind: Job
metadata:
  name: lammps-run
  namespace: elsewhere
`)

	_, err := executor.Apply(context.Background(), manifest)
	require.NoError(t, err)

	_, err = clientset.BatchV1().Jobs("elsewhere").Get(context.Background(), "lammps-run", metav1.GetOptions{})
	assert.NoError(t, err)
}

func TestApplyRejectsUndecodableManifest(t *testing.T) {
	executor := NewExecutorWithClient(fake.NewSimpleClientset(), testNamespace)

	_, err := executor.Apply(context.Background(), []byte(":\n  - not a job"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not decode as a Job")
}

func TestApplyRejectsDuplicateJob(t *testing.T) {
	clientset := fake.NewSimpleClientset(testJob("lammps-run"))
	executor := NewExecutorWithClient(clientset, testNamespace)

	manifest := []byte(`
apiVersion: batch/v1
kind: Job
metadata:
  name: lammps-run
  namespace: simulations
`)

	_, err := executor.Apply(context.Background(), manifest)
	require.Error(t, err)
	assert.True(t, apierrors.IsAlreadyExists(err))
}

func TestJobStatusMapsCounters(t *testing.T) {
	job := testJob("lammps-run")
	job.Status = batchv1.JobStatus{Active: 1, Succeeded: 2, Failed: 3}
	executor := NewExecutorWithClient(fake.NewSimpleClientset(job), testNamespace)

	status, err := executor.JobStatus(context.Background(), api.WorkloadHandle{Name: "lammps-run", Namespace: testNamespace})
	require.NoError(t, err)
	assert.Equal(t, api.JobStatus{Active: 1, Succeeded: 2, Failed: 3}, status)
}

func TestJobStatusMissingJobIsLost(t *testing.T) {
	executor := NewExecutorWithClient(fake.NewSimpleClientset(), testNamespace)

	_, err := executor.JobStatus(context.Background(), api.WorkloadHandle{Name: "gone", Namespace: testNamespace})
	require.Error(t, err)
	assert.True(t, api.IsLost(err))
}

func TestFindPodUsesJobNameLabel(t *testing.T) {
	clientset := fake.NewSimpleClientset(
		testPod("lammps-run-abc12", "lammps-run"),
		testPod("other-pod", "other-job"),
	)
	executor := NewExecutorWithClient(clientset, testNamespace)

	name, err := executor.FindPod(context.Background(), api.WorkloadHandle{Name: "lammps-run", Namespace: testNamespace})
	require.NoError(t, err)
	assert.Equal(t, "lammps-run-abc12", name)
}

func TestFindPodNoPodYet(t *testing.T) {
	executor := NewExecutorWithClient(fake.NewSimpleClientset(), testNamespace)

	name, err := executor.FindPod(context.Background(), api.WorkloadHandle{Name: "lammps-run", Namespace: testNamespace})
	require.NoError(t, err)
	assert.Empty(t, name)
}

func TestPodStatusMapsContainerStates(t *testing.T) {
	pod := testPod("lammps-run-abc12", "lammps-run")
	pod.Status = corev1.PodStatus{
		Phase: corev1.PodRunning,
		ContainerStatuses: []corev1.ContainerStatus{
			{
				Name:  "app",
				Ready: false,
				State: corev1.ContainerState{
					Waiting: &corev1.ContainerStateWaiting{Reason: "CrashLoopBackOff"},
				},
			},
			{
				Name:  "sidecar",
				Ready: false,
				State: corev1.ContainerState{
					Terminated: &corev1.ContainerStateTerminated{Reason: "OOMKilled", ExitCode: 137},
				},
			},
		},
	}
	executor := NewExecutorWithClient(fake.NewSimpleClientset(pod), testNamespace)

	status, err := executor.PodStatus(context.Background(), api.WorkloadHandle{Name: "lammps-run", Namespace: testNamespace}, "lammps-run-abc12")
	require.NoError(t, err)

	assert.Equal(t, api.PodRunning, status.Phase)
	require.Len(t, status.Containers, 2)
	assert.Equal(t, "CrashLoopBackOff", status.Containers[0].WaitingReason)
	assert.Equal(t, "OOMKilled", status.Containers[1].TerminatedReason)
	assert.Equal(t, int32(137), status.Containers[1].ExitCode)
	assert.Equal(t, "CrashLoopBackOff", status.FatalReason())
}

func TestPodStatusMissingPodIsLost(t *testing.T) {
	executor := NewExecutorWithClient(fake.NewSimpleClientset(), testNamespace)

	_, err := executor.PodStatus(context.Background(), api.WorkloadHandle{Name: "lammps-run", Namespace: testNamespace}, "gone")
	require.Error(t, err)
	assert.True(t, api.IsLost(err))
}

func TestLogsStreamsPodLogs(t *testing.T) {
	clientset := fake.NewSimpleClientset(testPod("lammps-run-abc12", "lammps-run"))
	executor := NewExecutorWithClient(clientset, testNamespace)

	logs, truncated, err := executor.Logs(context.Background(), api.WorkloadHandle{Name: "lammps-run", Namespace: testNamespace}, 0)
	require.NoError(t, err)
	assert.False(t, truncated)
	assert.Equal(t, "fake logs", logs)
}

func TestLogsWithoutPod(t *testing.T) {
	executor := NewExecutorWithClient(fake.NewSimpleClientset(), testNamespace)

	logs, truncated, err := executor.Logs(context.Background(), api.WorkloadHandle{Name: "lammps-run", Namespace: testNamespace}, time.Minute)
	require.NoError(t, err)
	assert.False(t, truncated)
	assert.Empty(t, logs)
}

func TestEventsFilteredAndSorted(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	jobEvent := &corev1.Event{
		ObjectMeta:     metav1.ObjectMeta{Name: "ev-job", Namespace: testNamespace},
		InvolvedObject: corev1.ObjectReference{Kind: "Job", Name: "lammps-run"},
		Type:           "Normal",
		Reason:         "SuccessfulCreate",
		Message:        "Created pod: lammps-run-abc12",
		LastTimestamp:  metav1.Time{Time: base.Add(2 * time.Second)},
	}
	podEvent := &corev1.Event{
		ObjectMeta:     metav1.ObjectMeta{Name: "ev-pod", Namespace: testNamespace},
		InvolvedObject: corev1.ObjectReference{Kind: "Pod", Name: "lammps-run-abc12"},
		Type:           "Warning",
		Reason:         "FailedScheduling",
		Message:        "0/3 nodes are available",
		LastTimestamp:  metav1.Time{Time: base},
	}
	unrelated := &corev1.Event{
		ObjectMeta:     metav1.ObjectMeta{Name: "ev-other", Namespace: testNamespace},
		InvolvedObject: corev1.ObjectReference{Kind: "Pod", Name: "somebody-else"},
		LastTimestamp:  metav1.Time{Time: base.Add(time.Second)},
	}

	clientset := fake.NewSimpleClientset(
		testPod("lammps-run-abc12", "lammps-run"),
		jobEvent, podEvent, unrelated,
	)
	executor := NewExecutorWithClient(clientset, testNamespace)

	events, err := executor.Events(context.Background(), api.WorkloadHandle{Name: "lammps-run", Namespace: testNamespace})
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, "Pod/lammps-run-abc12", events[0].Object)
	assert.Equal(t, "FailedScheduling", events[0].Reason)
	assert.Equal(t, "Job/lammps-run", events[1].Object)
	assert.True(t, events[0].LastTimestamp.Before(events[1].LastTimestamp))
}

func TestDeleteRemovesJob(t *testing.T) {
	clientset := fake.NewSimpleClientset(testJob("lammps-run"))
	executor := NewExecutorWithClient(clientset, testNamespace)
	handle := api.WorkloadHandle{Name: "lammps-run", Namespace: testNamespace}

	require.NoError(t, executor.Delete(context.Background(), handle))

	_, err := clientset.BatchV1().Jobs(testNamespace).Get(context.Background(), "lammps-run", metav1.GetOptions{})
	assert.True(t, apierrors.IsNotFound(err))

	// Deleting again is a no-op.
	assert.NoError(t, executor.Delete(context.Background(), handle))
}
