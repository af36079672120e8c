package optimize

import (
	"context"
	"errors"

	"foreman/internal/api"
	"foreman/internal/config"
	"foreman/internal/results"
	"foreman/internal/workspace"
	"foreman/pkg/logging"
	foremanstrings "foreman/pkg/strings"
)

// Runner resubmits a manifest and drives the workload to a terminal
// outcome. Implemented by the deploy controller.
type Runner interface {
	Run(ctx context.Context, rc *workspace.Context, manifest string) (api.WorkloadOutcome, error)
}

// Loop drives tune-and-rerun cycles after a successful workload run. Each
// cycle the decision service sees the current manifest, the last run's
// output and the figures of merit so far, and answers RETRY with a patch
// or STOP. The loop applies the patch, resubmits, measures, and goes
// again, bounded by a hard iteration ceiling.
type Loop struct {
	oracle        api.OptimizeOracle
	parser        *results.Parser
	runner        Runner
	maxIterations int
}

// NewLoop builds an optimization loop with the configured iteration
// ceiling.
func NewLoop(oracle api.OptimizeOracle, parser *results.Parser, runner Runner, cfg config.OptimizeConfig) *Loop {
	iterations := cfg.MaxIterations
	if iterations <= 0 {
		iterations = config.DefaultOptimizeIterations
	}
	return &Loop{oracle: oracle, parser: parser, runner: runner, maxIterations: iterations}
}

// Optimize runs the loop starting from the outcome of a finished run. It
// returns the outcome of the last successful run together with the
// figures of merit recorded along the way.
//
// The optimizing context flag is set on entry and stays set for the
// remainder of the engine run; while it is set, OOM kills come back as
// redirects instead of failures, and a failed attempt feeds its error
// into the next verdict request instead of ending the step.
func (l *Loop) Optimize(ctx context.Context, rc *workspace.Context, outcome api.WorkloadOutcome) (api.WorkloadOutcome, []api.FigureOfMerit, error) {
	rc.Set(workspace.KeyOptimizing, true)

	directive := rc.GetString(workspace.KeyOptimize)
	size := rc.GetInt(workspace.KeySize, 0)
	expression := rc.GetString(workspace.KeyExpression)

	best := outcome
	logText := outcome.Logs
	var history []api.FigureOfMerit

	// The starting run produced measurable output too.
	if fom := l.measure(ctx, directive, logText, expression, 0, size); fom != nil {
		history = append(history, *fom)
	}

	for attempt := 1; attempt <= l.maxIterations; attempt++ {
		decision, err := l.oracle.OptimizeVerdict(ctx, api.OptimizeRequest{
			Directive:   directive,
			Environment: rc.GetString(workspace.KeyEnvironment),
			Resources:   rc.GetString(workspace.KeyResources),
			Manifest:    rc.GetString(workspace.KeyManifest),
			BuildFile:   rc.GetString(workspace.KeyBuildFile),
			Log:         logText,
			Attempt:     attempt,
			History:     history,
		})
		if err != nil {
			return best, history, err
		}

		if decision.Action == api.OptimizeStop {
			logging.Info("Optimize", "Optimization stopped: %s", decision.Reason)
			// STOP may carry the final configuration; keep the manifest
			// of record in sync without another run.
			if len(decision.Patch) > 0 {
				if patched, err := ApplyPatch(rc.GetString(workspace.KeyManifest), decision.Patch); err == nil {
					rc.Set(workspace.KeyManifest, patched)
				}
			}
			return best, history, nil
		}

		logging.Info("Optimize", "Attempt %d: retrying with a new shape: %s", attempt, decision.Reason)
		patched, err := ApplyPatch(rc.GetString(workspace.KeyManifest), decision.Patch)
		if err != nil {
			return best, history, api.NewWorkloadError(api.FailureOracleMalformed,
				"optimization patch could not be applied: %v", err).WithCause(err)
		}

		next, err := l.runner.Run(ctx, rc, patched)
		if err != nil {
			logText = failureText(err)
			logging.Warn("Optimize", "Attempt %d failed: %s", attempt,
				foremanstrings.TruncateDescription(logText, 200))
			continue
		}
		if next.OOMRedirect {
			logText = next.Logs
			continue
		}

		best = next
		logText = next.Logs
		if fom := l.measure(ctx, directive, logText, expression, attempt, size); fom != nil {
			history = append(history, *fom)
		}
	}

	logging.Warn("Optimize", "Iteration ceiling of %d reached, keeping the best result so far", l.maxIterations)
	return best, history, nil
}

// measure extracts one figure of merit. Extraction failure thins the
// history but never ends the loop.
func (l *Loop) measure(ctx context.Context, directive, logText, expression string, attempt, size int) *api.FigureOfMerit {
	if l.parser == nil || logText == "" {
		return nil
	}
	value, err := l.parser.Extract(ctx, directive, logText, expression)
	if err != nil {
		logging.Warn("Optimize", "No figure of merit extracted for attempt %d: %v", attempt, err)
		return nil
	}
	return &api.FigureOfMerit{Attempt: attempt, Size: size, Value: value}
}

// failureText prefers the bare failure message, diagnostics included,
// over the classified rendering; that text is what the decision service
// is prompted with.
func failureText(err error) string {
	var we *api.WorkloadError
	if errors.As(err, &we) {
		if we.Message != "" {
			return we.Message
		}
	}
	return err.Error()
}
