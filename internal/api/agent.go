package api

import (
	"context"

	"foreman/internal/workspace"
)

// Agent is the uniform execution contract for plan steps. An agent reads
// its inputs from the run context, does its work (including any internal
// bounded retries), writes its outputs back, and reports the step outcome.
//
// Agents must set workspace.KeyResult with their primary output and, on
// failure, workspace.KeyErrorMessage with the failure description before
// returning a non-OK Result.
type Agent interface {
	// Name is the registry key plans refer to.
	Name() string

	// Description tells the recovery router what the agent can do.
	Description() string

	// Run executes one step against the shared run context.
	Run(ctx context.Context, rc *workspace.Context) Result
}

// AgentInfo describes one registered agent for catalogs and prompts.
type AgentInfo struct {
	Name        string
	Description string
}

// AgentCatalog resolves agent names to implementations. The orchestrator
// uses it to execute plan steps; the recovery router uses it to build the
// corrective-step prompt and to validate proposed steps before insertion.
type AgentCatalog interface {
	// Lookup returns the agent registered under name.
	Lookup(name string) (Agent, bool)

	// List returns all registered agents in registration order.
	List() []AgentInfo
}
