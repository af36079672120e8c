// Package api defines the contracts between foreman's subsystems.
//
// Every feature package (deploy, optimize, scaling, recovery, build, cost,
// orchestrator) communicates through the interfaces and types defined here
// and never imports another feature package's internals. This keeps the
// dependency graph acyclic even though the domain is circular at runtime:
// the deploy agent drives the optimization loop, and the optimization loop
// resubmits workloads back through the deploy controller.
//
// The package contains:
//
//   - Agent: the uniform execution contract every plan step resolves to,
//     plus AgentCatalog for discovery by the recovery router
//   - ClusterExecutor: the cluster the engine deploys into, expressed as
//     the small set of operations the workload state machine needs
//   - Oracle: the external decision service, as a raw prompt transport plus
//     typed per-concern interfaces (manifest generation, optimization and
//     scaling verdicts, recovery routing, expression proposal, error
//     refinement, build recipes, cost estimation)
//   - WorkloadOutcome and WorkloadState: the observable result of driving a
//     workload to a terminal state
//   - WorkloadError: the failure taxonomy shared by all subsystems
//
// Implementations live in internal/agent, internal/cluster, and
// internal/oracle; tests substitute small hand-rolled fakes.
package api
