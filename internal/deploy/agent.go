package deploy

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"foreman/internal/api"
	"foreman/internal/config"
	"foreman/internal/optimize"
	"foreman/internal/oracle"
	"foreman/internal/scaling"
	"foreman/internal/workspace"
	"foreman/pkg/logging"
	foremanstrings "foreman/pkg/strings"
)

// AgentName is the registry key plans use for the workload step.
const AgentName = "kubernetes-job"

// Optimizer runs the tune-and-rerun loop after a successful run.
// Implemented by optimize.Loop.
type Optimizer interface {
	Optimize(ctx context.Context, rc *workspace.Context, outcome api.WorkloadOutcome) (api.WorkloadOutcome, []api.FigureOfMerit, error)
}

// Study runs a multi-size scaling study seeded with a successful run.
// Implemented by scaling.Sweep.
type Study interface {
	Run(ctx context.Context, rc *workspace.Context, seed api.WorkloadOutcome) ([]api.ScalingRecord, error)
}

// Agent is the workload step executor. One step means: obtain a manifest
// from the decision service, drive it to a terminal outcome, and on
// success hand off to the optimization loop or the scaling study when
// the run context asks for one. A failed run is refined into an
// instruction and retried with a regenerated manifest inside the step's
// own attempt budget; only when that budget is spent, or the refiner
// rules the failure out of scope, does the step report failure to the
// orchestrator.
type Agent struct {
	runner    optimize.Runner
	manifests api.ManifestOracle
	refiner   api.RefineOracle
	optimizer Optimizer
	study     Study
	attempts  int
	noPull    bool
}

// NewAgent wires the workload step executor. optimizer and study may be
// nil when the corresponding mode is not available.
func NewAgent(runner optimize.Runner, manifests api.ManifestOracle, refiner api.RefineOracle, optimizer Optimizer, study Study, cfg config.DeployConfig, noPull bool) *Agent {
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = config.DefaultAgentAttempts
	}
	return &Agent{
		runner:    runner,
		manifests: manifests,
		refiner:   refiner,
		optimizer: optimizer,
		study:     study,
		attempts:  attempts,
		noPull:    noPull,
	}
}

// Name implements api.Agent.
func (a *Agent) Name() string { return AgentName }

// Description implements api.Agent.
func (a *Agent) Description() string {
	return "Deploys the container as a Kubernetes Job, drives it to completion, and runs optimization or scaling studies on the result"
}

// Run executes one workload step against the run context.
func (a *Agent) Run(ctx context.Context, rc *workspace.Context) api.Result {
	task := rc.GetString(workspace.KeyTask)

	var manifestText string
	for attempt := 1; attempt <= a.attempts; attempt++ {
		// A manifest survives a lost-workload retry; everything else
		// regenerates with the refined instruction in view.
		if manifestText == "" {
			generated, err := a.manifests.GenerateManifest(ctx, api.ManifestRequest{
				Application:  rc.GetString(workspace.KeyApplication),
				Environment:  rc.GetString(workspace.KeyEnvironment),
				Container:    rc.GetString(workspace.KeyContainer),
				NoPull:       a.noPull,
				Task:         task,
				ErrorMessage: rc.GetString(workspace.KeyErrorMessage),
			})
			if err != nil {
				return a.fail(rc, "manifest generation failed: "+err.Error())
			}
			manifestText = generated
			rc.Set(workspace.KeyResult, manifestText)
		}

		logging.Info("Deploy", "Attempt %d of %d: deploying workload", attempt, a.attempts)
		outcome, err := a.runner.Run(ctx, rc, manifestText)
		if err == nil {
			logging.Info("Deploy", "Deploy complete in %d attempts", attempt)
			return a.succeed(ctx, rc, outcome)
		}

		message := failureText(err)
		rc.Set(workspace.KeyErrorMessage, message)
		logging.Warn("Deploy", "Attempt %d failed: %s", attempt,
			foremanstrings.TruncateDescription(message, 200))

		if api.IsRetryable(err) {
			// A lost workload says nothing about the manifest; resubmit
			// it as is.
			continue
		}

		instruction, returnToManager, rerr := a.refiner.RefineError(ctx, api.RefineRequest{
			Scope:        oracle.ManifestRequirements,
			Artifact:     manifestText,
			ErrorMessage: message,
			Facts:        facts(rc),
		})
		if rerr != nil {
			return a.fail(rc, "error refinement failed: "+rerr.Error())
		}
		rc.Set(workspace.KeyErrorMessage, instruction)
		if returnToManager {
			rc.Set(workspace.KeyReturnToManager, true)
		}

		if attempt >= a.attempts || rc.GetBool(workspace.KeyReturnToManager) {
			rc.Delete(workspace.KeyReturnToManager)
			return api.ResultFailed(instruction)
		}
		manifestText = ""
	}

	logging.Error("Deploy", nil, "Max attempts %d reached", a.attempts)
	return api.ResultFailed(rc.GetString(workspace.KeyErrorMessage))
}

// succeed dispatches a finished run to the requested follow-up mode and
// records the step result.
func (a *Agent) succeed(ctx context.Context, rc *workspace.Context, outcome api.WorkloadOutcome) api.Result {
	// The failure that drove any regeneration is resolved.
	rc.Delete(workspace.KeyErrorMessage)

	switch {
	case scaleRequested(rc):
		if a.study == nil {
			return a.fail(rc, "a scaling study was requested but no study loop is wired")
		}
		records, err := a.study.Run(ctx, rc, outcome)
		if err != nil {
			return a.fail(rc, failureText(err))
		}
		summary := scaling.Table(records)
		rc.Set(workspace.KeyResult, summary)
		logging.Info("Deploy", "Scaling study complete over %d sizes", len(records))
		return api.ResultOK(summary)

	case rc.GetString(workspace.KeyOptimize) != "" && a.optimizer != nil:
		best, history, err := a.optimizer.Optimize(ctx, rc, outcome)
		if err != nil {
			return a.fail(rc, failureText(err))
		}
		rc.Set(workspace.KeyFigureOfMerit, history)
		rc.Set(workspace.KeyResult, rc.GetString(workspace.KeyManifest))
		logging.Info("Deploy", "Optimization complete with %d measurements", len(history))
		return api.ResultOK(best.Message)

	default:
		rc.Set(workspace.KeyResult, rc.GetString(workspace.KeyManifest))
		return api.ResultOK(outcome.Message)
	}
}

func (a *Agent) fail(rc *workspace.Context, message string) api.Result {
	rc.Set(workspace.KeyErrorMessage, message)
	return api.ResultFailed(message)
}

// scaleRequested reports whether the run context asks for a scaling
// study. The key may carry a boolean or the study directive itself.
func scaleRequested(rc *workspace.Context) bool {
	value, ok := rc.Get(workspace.KeyScale)
	if !ok || value == nil {
		return false
	}
	switch v := value.(type) {
	case bool:
		return v
	case string:
		if parsed, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return parsed
		}
		return v != ""
	default:
		return true
	}
}

// facts collects the context values a refined instruction must treat as
// fixed.
func facts(rc *workspace.Context) map[string]string {
	out := make(map[string]string)
	for _, key := range []string{
		workspace.KeyApplication,
		workspace.KeyEnvironment,
		workspace.KeyContainer,
		workspace.KeyTask,
	} {
		if v := rc.GetString(key); v != "" {
			out[key] = v
		}
	}
	return out
}

// failureText prefers the bare failure message, diagnostics included,
// over the classified rendering.
func failureText(err error) string {
	var we *api.WorkloadError
	if errors.As(err, &we) && we.Message != "" {
		return we.Message
	}
	return err.Error()
}
