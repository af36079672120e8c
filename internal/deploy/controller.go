package deploy

import (
	"context"
	"fmt"
	"strings"
	"time"

	"foreman/internal/api"
	"foreman/internal/config"
	"foreman/internal/workspace"
	"foreman/pkg/logging"
)

// Failure messages handed back to the decision service. The wording is
// part of the regeneration prompt contract.
const (
	failedStateMessage = "Job entered failed state. This usually happens after repeated pod failures.\n\n%s"
	fatalPodMessage    = "Pod '%s' is stuck in a fatal state: %s\n\n%s"
	timeoutMessage     = "Timeout: Job did not reach a stable running or completed state within the time limit.\n\n%s"
	failureMessage     = "Job failed during execution.\n%s"
	overtimeMessage    = "Job was executing, but went over acceptable time of %d seconds.\n%s"
)

// unsatisfiableMarker is the scheduler's literal complaint when a job asks
// for more than the cluster can ever grant. Seeing it in the log text
// flips the unsatisfiable context flag so the optimization and scaling
// loops know the current shape cannot work.
const unsatisfiableMarker = "unsatisfiable"

// oomRedirectLog is the synthetic log recorded when an OOM kill is
// rerouted into the optimization loop instead of failing the run.
const oomRedirectLog = "last attempt was OOM"

// Controller owns the submit -> poll -> classify lifecycle of a single
// workload. One instance is reused across resubmissions; it holds no
// per-workload state.
type Controller struct {
	executor        api.ClusterExecutor
	pollInterval    time.Duration
	maxPollAttempts int
	maxRuntime      time.Duration
	cleanup         bool
}

// NewController builds a Controller from the deploy configuration,
// applying defaults for unset bounds.
func NewController(executor api.ClusterExecutor, cfg config.DeployConfig) *Controller {
	interval := time.Duration(cfg.PollIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = time.Duration(config.DefaultPollIntervalSeconds) * time.Second
	}
	attempts := cfg.MaxPollAttempts
	if attempts <= 0 {
		attempts = config.DefaultMaxPollAttempts
	}
	return &Controller{
		executor:        executor,
		pollInterval:    interval,
		maxPollAttempts: attempts,
		maxRuntime:      time.Duration(cfg.MaxRuntimeSeconds) * time.Second,
		cleanup:         cfg.Cleanup,
	}
}

// Run validates and submits the manifest, polls the workload to a
// terminal state and collects its output. Each run refreshes the
// context's captured logs, truncation flag and unsatisfiable flag.
// Failures come back as *api.WorkloadError with diagnostics attached;
// the outcome always carries the workload handle so callers can clean up
// or resubmit.
func (c *Controller) Run(ctx context.Context, rc *workspace.Context, manifestText string) (api.WorkloadOutcome, error) {
	if strings.TrimSpace(manifestText) == "" {
		return api.WorkloadOutcome{State: api.StateFailed},
			api.NewWorkloadError(api.FailureManifestInvalid, "no job manifest content provided")
	}

	manifest, handle, err := PrepareManifest(manifestText, rc.GetString(workspace.KeyContainer))
	if err != nil {
		return api.WorkloadOutcome{State: api.StateFailed}, err
	}

	// Resubmissions reuse the job name; make sure a previous incarnation
	// is fully gone before creating the next one.
	if err := c.ensureAbsent(ctx, handle); err != nil {
		return api.WorkloadOutcome{State: api.StateFailed, Handle: handle}, err
	}

	output, err := c.executor.Apply(ctx, manifest)
	if err != nil {
		return api.WorkloadOutcome{State: api.StateFailed, Handle: handle},
			api.NewWorkloadError(api.FailureApplyRejected, "%v", err).WithCause(err)
	}
	logging.Info("Deploy", "%s", output)

	// The applied text is the manifest of record from here on; the image
	// correction may have changed it from what the caller generated.
	rc.Set(workspace.KeyManifest, string(manifest))

	state, oom, err := c.poll(ctx, rc, handle)
	if oom {
		c.record(rc, oomRedirectLog, false)
		return api.WorkloadOutcome{
			State:       state,
			Handle:      handle,
			Reason:      api.ReasonOOMKilled,
			Message:     oomRedirectLog,
			Logs:        oomRedirectLog,
			OOMRedirect: true,
		}, nil
	}
	if err != nil {
		return api.WorkloadOutcome{State: state, Handle: handle}, err
	}

	return c.finish(ctx, rc, handle, state)
}

// ensureAbsent deletes any leftover job with the workload's name and
// waits for the cluster to forget it. A fresh name passes through on the
// first status probe.
func (c *Controller) ensureAbsent(ctx context.Context, handle api.WorkloadHandle) error {
	if err := c.executor.Delete(ctx, handle); err != nil {
		return err
	}
	for i := 0; i < c.maxPollAttempts; i++ {
		if _, err := c.executor.JobStatus(ctx, handle); api.IsLost(err) {
			return nil
		}
		logging.Debug("Deploy", "Waiting for previous job %s to terminate (%d/%d)", handle.Name, i+1, c.maxPollAttempts)
		if err := c.wait(ctx); err != nil {
			return err
		}
	}
	return api.NewWorkloadError(api.FailureTimeout,
		"job %s is still terminating after a delete request", handle.Name)
}

// poll watches the job until it reaches a stable state: job-level success
// or failure, a ready or finished pod, a fatal container condition, or
// the iteration bound. The bool return marks an OOM kill observed while
// an optimization pass is active.
func (c *Controller) poll(ctx context.Context, rc *workspace.Context, handle api.WorkloadHandle) (api.WorkloadState, bool, error) {
	state := api.StateSubmitted
	optimizing := rc.GetBool(workspace.KeyOptimizing)
	podName := ""

	for i := 0; i < c.maxPollAttempts; i++ {
		status, err := c.executor.JobStatus(ctx, handle)
		if err != nil {
			// The job itself vanished without a terminal status. That is
			// retryable one level up, not something to diagnose here.
			return api.StateLost, false, err
		}

		if status.Succeeded > 0 {
			logging.Info("Deploy", "Job %s has succeeded", handle.Name)
			return api.StateSucceeded, false, nil
		}
		if status.Failed > 0 {
			logging.Error("Deploy", nil, "Job %s reports failed", handle.Name)
			diagnostics := CollectDiagnostics(ctx, c.executor, handle)
			_ = c.executor.Delete(ctx, handle)
			return api.StateFailed, false,
				api.NewWorkloadError(api.FailureRunFailed, failedStateMessage, diagnostics).
					WithDiagnostics(diagnostics)
		}

		if state == api.StateSubmitted {
			state = api.StateAwaitingPod
		}
		if podName == "" {
			if podName, err = c.executor.FindPod(ctx, handle); err != nil {
				return state, false, err
			}
		}

		if podName == "" {
			logging.Debug("Deploy", "Job is active, but no pod found yet, waiting (%d/%d)", i+1, c.maxPollAttempts)
		} else {
			podStatus, err := c.executor.PodStatus(ctx, handle, podName)
			switch {
			case api.IsLost(err):
				// The pod went away under the job; forget it and wait for
				// the replacement.
				logging.Debug("Deploy", "Pod %s disappeared, waiting for a new pod (%d/%d)", podName, i+1, c.maxPollAttempts)
				podName = ""
			case err != nil:
				return state, false, err
			case podStatus.Phase == api.PodRunning && podStatus.AllReady():
				logging.Info("Deploy", "Pod %s is ready", podName)
				return api.StateReady, false, nil
			case podStatus.Phase == api.PodSucceeded:
				logging.Info("Deploy", "Pod %s has succeeded", podName)
				return api.StateSucceeded, false, nil
			default:
				if reason := podStatus.FatalReason(); reason != "" {
					if optimizing && reason == api.ReasonOOMKilled {
						logging.Warn("Deploy", "Pod %s was OOM killed during optimization, rerouting", podName)
						return state, true, nil
					}
					diagnostics := CollectDiagnostics(ctx, c.executor, handle)
					_ = c.executor.Delete(ctx, handle)
					return api.StateFailed, false,
						api.NewWorkloadError(api.FailurePodFatal, fatalPodMessage, podName, reason, diagnostics).
							WithReason(reason).
							WithDiagnostics(diagnostics)
				}
				switch podStatus.Phase {
				case api.PodPending:
					state = api.StatePodPending
				case api.PodRunning:
					state = api.StatePodRunning
				}
				logging.Debug("Deploy", "Job is active, pod %s has status %q, waiting (%d/%d)", podName, podStatus.Phase, i+1, c.maxPollAttempts)
			}
		}

		if err := c.wait(ctx); err != nil {
			return state, false, err
		}
	}

	diagnostics := CollectDiagnostics(ctx, c.executor, handle)
	return api.StateTimeout, false,
		api.NewWorkloadError(api.FailureTimeout, timeoutMessage, diagnostics).
			WithDiagnostics(diagnostics)
}

// finish streams the workload's logs, waits for the job to settle, and
// classifies the final status.
func (c *Controller) finish(ctx context.Context, rc *workspace.Context, handle api.WorkloadHandle, state api.WorkloadState) (api.WorkloadOutcome, error) {
	logging.Info("Deploy", "Proceeding to stream logs for job %s", handle.Name)

	logs, truncated, err := c.executor.Logs(ctx, handle, c.maxRuntime)
	if err != nil {
		if !api.IsLost(err) {
			return api.WorkloadOutcome{State: state, Handle: handle}, err
		}
		// The pod finished and was reaped before we attached; the final
		// status check below still decides the outcome.
		logs, truncated = "", false
	}
	c.record(rc, logs, truncated)

	if truncated {
		// The workload outlived its acceptable runtime. Stop it and
		// report the overtime so the next decision can reshape the job.
		_ = c.executor.Delete(ctx, handle)
		message := fmt.Sprintf(overtimeMessage, int(c.maxRuntime/time.Second), logs)
		return api.WorkloadOutcome{
				State:        api.StateTimeout,
				Handle:       handle,
				Message:      message,
				Logs:         logs,
				LogTruncated: true,
			},
			api.NewWorkloadError(api.FailureTimeout, "%s", message)
	}

	var final api.JobStatus
	for {
		if final, err = c.executor.JobStatus(ctx, handle); err != nil {
			return api.WorkloadOutcome{State: api.StateLost, Handle: handle, Logs: logs}, err
		}
		if final.Active == 0 {
			break
		}
		if err := c.wait(ctx); err != nil {
			return api.WorkloadOutcome{State: state, Handle: handle, Logs: logs}, err
		}
	}

	if final.Succeeded == 0 {
		diagnostics := CollectDiagnostics(ctx, c.executor, handle)
		_ = c.executor.Delete(ctx, handle)
		message := fmt.Sprintf(failureMessage, diagnostics)
		return api.WorkloadOutcome{
				State:       api.StateFailed,
				Handle:      handle,
				Message:     message,
				Logs:        logs,
				Diagnostics: diagnostics,
			},
			api.NewWorkloadError(api.FailureRunFailed, "%s", message).WithDiagnostics(diagnostics)
	}

	logging.Info("Deploy", "Job %s final status is Succeeded", handle.Name)
	if c.cleanup {
		_ = c.executor.Delete(ctx, handle)
	}
	return api.WorkloadOutcome{State: api.StateSucceeded, Handle: handle, Message: "Success", Logs: logs}, nil
}

// record refreshes the context's view of the last run's output. The
// unsatisfiable flag always reflects the latest logs only.
func (c *Controller) record(rc *workspace.Context, logs string, truncated bool) {
	rc.Set(workspace.KeyLogs, logs)
	rc.Set(workspace.KeyLogTruncated, truncated)
	if strings.Contains(logs, unsatisfiableMarker) {
		logging.Warn("Deploy", "Run log contains the scheduler's unsatisfiable marker")
		rc.Set(workspace.KeyUnsatisfiable, true)
	} else {
		rc.Delete(workspace.KeyUnsatisfiable)
	}
}

func (c *Controller) wait(ctx context.Context) error {
	timer := time.NewTimer(c.pollInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
