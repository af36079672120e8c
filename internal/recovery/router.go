// Package recovery converts failed plan steps into corrective steps.
package recovery

import (
	"context"

	"foreman/internal/api"
	"foreman/internal/plan"
	"foreman/pkg/logging"
	foremanstrings "foreman/pkg/strings"
)

const subsystem = "Recovery"

// Router asks the decision service which agent should fix a failed step
// and validates the proposal against the agent catalog. The orchestrator
// splices the returned step into the plan at the current index.
type Router struct {
	oracle  api.RecoveryOracle
	catalog api.AgentCatalog
}

// NewRouter wires the corrective step router.
func NewRouter(oracle api.RecoveryOracle, catalog api.AgentCatalog) *Router {
	return &Router{oracle: oracle, catalog: catalog}
}

// Recover proposes a single corrective step for the failed step. The
// proposed agent must resolve in the catalog; a proposal naming an
// unknown agent, or no usable proposal at all, is a recovery-exhausted
// failure and the caller aborts the run.
func (r *Router) Recover(ctx context.Context, failed plan.Step, errorMessage string) (*plan.Step, error) {
	decision, err := r.oracle.RecoveryStep(ctx, api.RecoveryRequest{
		Agents:       r.catalog.List(),
		FailedAgent:  failed.Agent,
		Task:         failed.Task(),
		ErrorMessage: errorMessage,
	})
	if err != nil {
		return nil, api.NewWorkloadError(api.FailureRecoveryExhausted,
			"no corrective step could be determined for agent %q", failed.Agent).WithCause(err)
	}

	if _, ok := r.catalog.Lookup(decision.AgentName); !ok {
		return nil, api.NewWorkloadError(api.FailureRecoveryExhausted,
			"corrective step names unregistered agent %q", decision.AgentName)
	}

	logging.Info(subsystem, "Corrective step: agent %q, task: %s", decision.AgentName,
		foremanstrings.TruncateDescription(decision.Task, 120))

	// The corrective step inherits the failed step's budget so the
	// shared per-agent counter still bounds a run that keeps failing
	// inside corrective steps.
	return &plan.Step{
		Agent:       decision.AgentName,
		Description: decision.Task,
		Attempts:    failed.Attempts,
	}, nil
}
