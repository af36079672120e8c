// Package app provides application bootstrap and lifecycle management
// for foreman.
//
// It handles initialization, configuration loading, service wiring and
// plan execution for one CLI invocation, with three core components:
//
//  1. Bootstrap (bootstrap.go): logging setup, configuration loading,
//     flag-over-file overrides, service initialization
//  2. Services (services.go): the wired run components — workspace,
//     decision service client, agent registry, recovery router and the
//     orchestrator — initialized in dependency order
//  3. Run (run.go): plan loading, template rendering, agent resolution
//     and orchestrated execution with a final summary table
//
// Agents whose environment dependencies are unavailable (no cluster
// credentials, no container build tool) are skipped at registration
// with a warning; a plan that names them fails at resolve time, before
// any step executes.
package app
