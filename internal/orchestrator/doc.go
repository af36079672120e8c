// Package orchestrator executes plans.
//
// A plan is an ordered list of steps, each naming a registered agent and
// a task. The orchestrator walks the plan with one shared run context:
// on success it advances, on failure it asks the recovery router for a
// corrective step and splices it in at the current index, so the
// corrective step runs next and the failed step is retried right after.
//
// Attempt counters are keyed by agent name, not by step. A step's
// attempts field bounds how often its agent may run in total, including
// runs through corrective steps; when the budget is spent the run aborts
// with the last error message.
//
// Between steps the transient context keys (result, return code) are
// reset while accumulated state such as the error message, manifests,
// logs and figures of merit survives, so a corrective step sees what the
// failed one produced.
//
// The Tracker records every agent run with its attempt number, duration
// and exit code under a unique run id, and renders the history as the
// run summary table.
package orchestrator
