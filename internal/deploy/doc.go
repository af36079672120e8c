// Package deploy submits workloads to the cluster and observes them to a
// terminal outcome.
//
// The Controller owns the lifecycle of one submission: validate and
// correct the manifest, clear leftovers, apply, poll the job and its pod
// through the observation state machine, collect logs, and classify
// every failure into the workload error taxonomy with a diagnostics
// bundle attached.
//
// The Agent wraps the controller as the plan step: it asks the decision
// service for a manifest, retries failed runs with refined instructions
// inside its own attempt budget, and on success hands the outcome to the
// optimization loop or the scaling study when the run context asks for
// one.
package deploy
