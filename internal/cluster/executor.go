package cluster

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"foreman/internal/api"
	"foreman/internal/config"
	"foreman/pkg/logging"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	sigsyaml "sigs.k8s.io/yaml"
)

// Executor submits and tracks batch workloads through the Kubernetes API.
// It is the one place that touches client-go; everything above it works
// against the api.ClusterExecutor interface.
type Executor struct {
	clientset kubernetes.Interface
	namespace string
}

var _ api.ClusterExecutor = (*Executor)(nil)

// NewExecutor connects to the cluster named by the configuration. An
// explicit kubeconfig path wins, then in-cluster credentials, then the
// default loading rules (~/.kube/config and KUBECONFIG).
func NewExecutor(cfg config.ClusterConfig) (*Executor, error) {
	restConfig, err := buildRESTConfig(cfg.Kubeconfig)
	if err != nil {
		return nil, fmt.Errorf("failed to load cluster credentials: %w", err)
	}
	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create cluster client: %w", err)
	}

	namespace := cfg.Namespace
	if namespace == "" {
		namespace = config.DefaultNamespace
	}
	return &Executor{clientset: clientset, namespace: namespace}, nil
}

// NewExecutorWithClient wraps an existing clientset. Tests use this with
// the fake clientset.
func NewExecutorWithClient(clientset kubernetes.Interface, namespace string) *Executor {
	if namespace == "" {
		namespace = config.DefaultNamespace
	}
	return &Executor{clientset: clientset, namespace: namespace}
}

func buildRESTConfig(kubeconfig string) (*rest.Config, error) {
	if kubeconfig != "" {
		return clientcmd.BuildConfigFromFlags("", kubeconfig)
	}
	if restConfig, err := rest.InClusterConfig(); err == nil {
		return restConfig, nil
	}
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	return clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, &clientcmd.ConfigOverrides{}).ClientConfig()
}

// Apply decodes the manifest as a batch Job and creates it. The returned
// string mirrors kubectl's "created" line; errors carry the raw API
// server response so callers can surface it unmodified.
func (e *Executor) Apply(ctx context.Context, manifest []byte) (string, error) {
	var job batchv1.Job
	if err := sigsyaml.Unmarshal(manifest, &job); err != nil {
		return "", fmt.Errorf("manifest does not decode as a Job: %w", err)
	}

	namespace := job.Namespace
	if namespace == "" {
		namespace = e.namespace
	}

	created, err := e.clientset.BatchV1().Jobs(namespace).Create(ctx, &job, metav1.CreateOptions{})
	if err != nil {
		return "", err
	}

	logging.Info("Cluster", "Created job %s/%s", namespace, created.Name)
	return fmt.Sprintf("job.batch/%s created", created.Name), nil
}

// JobStatus reads the job-level counters. A job that no longer exists
// comes back as a Lost failure so the poll loop can decide whether to
// keep waiting.
func (e *Executor) JobStatus(ctx context.Context, h api.WorkloadHandle) (api.JobStatus, error) {
	job, err := e.clientset.BatchV1().Jobs(h.Namespace).Get(ctx, h.Name, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return api.JobStatus{}, api.NewWorkloadError(api.FailureLost,
				"job %s/%s no longer exists", h.Namespace, h.Name).WithCause(err)
		}
		return api.JobStatus{}, fmt.Errorf("failed to read job status: %w", err)
	}

	return api.JobStatus{
		Active:    job.Status.Active,
		Succeeded: job.Status.Succeeded,
		Failed:    job.Status.Failed,
	}, nil
}

// FindPod returns the name of a pod belonging to the job, or "" while no
// pod exists yet. The batch controller labels pods with job-name.
func (e *Executor) FindPod(ctx context.Context, h api.WorkloadHandle) (string, error) {
	pods, err := e.clientset.CoreV1().Pods(h.Namespace).List(ctx, metav1.ListOptions{
		LabelSelector: "job-name=" + h.Name,
	})
	if err != nil {
		return "", fmt.Errorf("failed to list pods for job %s: %w", h.Name, err)
	}
	if len(pods.Items) == 0 {
		return "", nil
	}
	return pods.Items[0].Name, nil
}

// PodStatus reads the pod phase and per-container states. A pod that
// vanished comes back as a Lost failure; the poll loop forgets it and
// waits for a replacement.
func (e *Executor) PodStatus(ctx context.Context, h api.WorkloadHandle, podName string) (api.PodStatus, error) {
	pod, err := e.clientset.CoreV1().Pods(h.Namespace).Get(ctx, podName, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return api.PodStatus{}, api.NewWorkloadError(api.FailureLost,
				"pod %s disappeared", podName).WithCause(err)
		}
		return api.PodStatus{}, fmt.Errorf("failed to read pod %s: %w", podName, err)
	}

	status := api.PodStatus{Phase: string(pod.Status.Phase)}
	for _, cs := range pod.Status.ContainerStatuses {
		container := api.ContainerState{Name: cs.Name, Ready: cs.Ready}
		if cs.State.Waiting != nil {
			container.WaitingReason = cs.State.Waiting.Reason
		}
		if cs.State.Terminated != nil {
			container.TerminatedReason = cs.State.Terminated.Reason
			container.ExitCode = cs.State.Terminated.ExitCode
		}
		status.Containers = append(status.Containers, container)
	}
	return status, nil
}

// Logs follows the log stream of the job's pod. When maxRuntime is
// positive and the stream outlives it, the text collected so far is
// returned with the truncated flag set; that is a policy signal for the
// caller, not an error.
func (e *Executor) Logs(ctx context.Context, h api.WorkloadHandle, maxRuntime time.Duration) (string, bool, error) {
	podName, err := e.FindPod(ctx, h)
	if err != nil {
		return "", false, err
	}
	if podName == "" {
		return "", false, nil
	}

	logCtx := ctx
	if maxRuntime > 0 {
		var cancel context.CancelFunc
		logCtx, cancel = context.WithTimeout(ctx, maxRuntime)
		defer cancel()
	}

	req := e.clientset.CoreV1().Pods(h.Namespace).GetLogs(podName, &corev1.PodLogOptions{Follow: true})
	stream, err := req.Stream(logCtx)
	if err != nil {
		if apierrors.IsNotFound(err) {
			return "", false, api.NewWorkloadError(api.FailureLost,
				"pod %s disappeared before logs could be read", podName).WithCause(err)
		}
		return "", false, fmt.Errorf("failed to stream logs for pod %s: %w", podName, err)
	}
	defer stream.Close()

	var buf strings.Builder
	_, copyErr := io.Copy(&buf, stream)
	if copyErr != nil {
		if errors.Is(copyErr, context.DeadlineExceeded) || logCtx.Err() != nil {
			logging.Warn("Cluster", "Log stream for pod %s cut off after %s", podName, maxRuntime)
			return buf.String(), true, nil
		}
		return buf.String(), false, fmt.Errorf("log stream for pod %s failed: %w", podName, copyErr)
	}
	return buf.String(), false, nil
}

// Events returns the recent events involving the job or its pod, oldest
// first. Filtering happens client side; the event volume for a single
// job is small.
func (e *Executor) Events(ctx context.Context, h api.WorkloadHandle) ([]api.Event, error) {
	names := map[string]bool{h.Name: true}
	if podName, err := e.FindPod(ctx, h); err == nil && podName != "" {
		names[podName] = true
	}

	list, err := e.clientset.CoreV1().Events(h.Namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	var events []api.Event
	for _, item := range list.Items {
		if !names[item.InvolvedObject.Name] {
			continue
		}
		events = append(events, api.Event{
			LastTimestamp: item.LastTimestamp.Time,
			Type:          item.Type,
			Reason:        item.Reason,
			Object:        fmt.Sprintf("%s/%s", item.InvolvedObject.Kind, item.InvolvedObject.Name),
			Message:       item.Message,
		})
	}

	sort.Slice(events, func(i, j int) bool {
		return events[i].LastTimestamp.Before(events[j].LastTimestamp)
	})
	return events, nil
}

// Delete removes the job and its pods. Deleting a job that is already
// gone is not an error.
func (e *Executor) Delete(ctx context.Context, h api.WorkloadHandle) error {
	policy := metav1.DeletePropagationBackground
	err := e.clientset.BatchV1().Jobs(h.Namespace).Delete(ctx, h.Name, metav1.DeleteOptions{
		PropagationPolicy: &policy,
	})
	if err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("failed to delete job %s/%s: %w", h.Namespace, h.Name, err)
	}
	logging.Debug("Cluster", "Deleted job %s/%s", h.Namespace, h.Name)
	return nil
}
