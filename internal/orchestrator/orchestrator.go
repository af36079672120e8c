package orchestrator

import (
	"context"
	"fmt"
	"time"

	"foreman/internal/api"
	"foreman/internal/plan"
	"foreman/internal/workspace"
	"foreman/pkg/logging"
	foremanstrings "foreman/pkg/strings"
)

const subsystem = "Orchestrator"

// Recovery proposes a corrective step for a failed one. Implemented by
// recovery.Router.
type Recovery interface {
	Recover(ctx context.Context, failed plan.Step, errorMessage string) (*plan.Step, error)
}

// Orchestrator executes a plan step by step. It advances on success,
// consults the recovery router on failure, and aborts when an agent's
// attempt budget is spent or no corrective step can be resolved.
type Orchestrator struct {
	catalog  api.AgentCatalog
	recovery Recovery
}

// Config holds the wiring for the orchestrator.
type Config struct {
	// Catalog resolves plan step agent names.
	Catalog api.AgentCatalog

	// Recovery proposes corrective steps. Optional: without it every
	// step failure aborts the run.
	Recovery Recovery
}

// New creates a new orchestrator.
func New(cfg Config) *Orchestrator {
	return &Orchestrator{
		catalog:  cfg.Catalog,
		recovery: cfg.Recovery,
	}
}

// Run drives the plan to completion against the run context. Attempt
// counters are shared per agent name, so retries of a step and runs of
// corrective steps using the same agent consume the same budget. The
// returned tracker holds the executed history, also when the run fails.
func (o *Orchestrator) Run(ctx context.Context, rc *workspace.Context, p *plan.Plan) (*Tracker, error) {
	tracker := NewTracker()
	attempts := make(map[string]int)

	logging.Info(subsystem, "Run %s: plan %q with %d steps", tracker.RunID(), p.Name, p.Len())

	for index := 0; index < p.Len(); {
		if err := ctx.Err(); err != nil {
			return tracker, err
		}

		step := p.Step(index)
		agent, ok := o.catalog.Lookup(step.Agent)
		if !ok {
			return tracker, fmt.Errorf("plan step %d: %w: %s", index, api.ErrAgentNotRegistered, step.Agent)
		}

		if step.Exhausted(attempts[step.Agent]) {
			logging.Error(subsystem, nil, "Agent %q has reached maximum attempts %d", step.Agent, step.Attempts)
			message := fmt.Sprintf("agent %q has reached maximum attempts %d", step.Agent, step.Attempts)
			if last := rc.GetString(workspace.KeyErrorMessage); last != "" {
				message += ": " + last
			}
			return tracker, api.NewWorkloadError(api.FailureRecoveryExhausted, "%s", message)
		}
		attempts[step.Agent]++

		logging.Info(subsystem, "Step %d/%d: agent %q, attempt %d", index+1, p.Len(), step.Agent, attempts[step.Agent])

		// Transient outputs of the previous step are cleared; the error
		// message and accumulated artifacts survive.
		rc.Reset()
		rc.Set(workspace.KeyTask, step.Task())

		started := time.Now()
		result := agent.Run(ctx, rc)
		tracker.Record(step.Agent, attempts[step.Agent], time.Since(started), result.Code)

		if result.OK() {
			logging.Info(subsystem, "Step %d/%d succeeded", index+1, p.Len())
			index++
			continue
		}

		rc.Set(workspace.KeyReturnCode, result.Code)
		logging.Warn(subsystem, "Step %d/%d failed: %s", index+1, p.Len(),
			foremanstrings.TruncateDescription(result.Message, 200))

		if o.recovery == nil {
			return tracker, api.NewWorkloadError(api.FailureRecoveryExhausted,
				"step with agent %q failed and no recovery is configured: %s", step.Agent, result.Message)
		}
		corrective, err := o.recovery.Recover(ctx, step, result.Message)
		if err != nil {
			return tracker, err
		}

		// The corrective step runs next, at the current index; the
		// failed step moves right and is retried after it.
		p.Insert(index, *corrective)
	}

	logging.Info(subsystem, "Run %s complete: %d agent runs in %s",
		tracker.RunID(), len(tracker.Records()), tracker.Elapsed().Round(time.Millisecond))
	return tracker, nil
}
