package orchestrator

import (
	"fmt"

	"foreman/internal/api"
)

// Registry is the agent catalog plan steps resolve against. Registration
// order is preserved so listings and recovery prompts show agents in the
// order the run wires them, which is also their workflow order.
type Registry struct {
	agents map[string]api.Agent
	order  []string
}

// NewRegistry returns an empty agent registry.
func NewRegistry() *Registry {
	return &Registry{agents: make(map[string]api.Agent)}
}

// Register adds an agent under its own name.
func (r *Registry) Register(agent api.Agent) error {
	name := agent.Name()
	if name == "" {
		return fmt.Errorf("agent has no name")
	}
	if _, exists := r.agents[name]; exists {
		return fmt.Errorf("agent %q is already registered", name)
	}
	r.agents[name] = agent
	r.order = append(r.order, name)
	return nil
}

// Lookup implements api.AgentCatalog.
func (r *Registry) Lookup(name string) (api.Agent, bool) {
	agent, ok := r.agents[name]
	return agent, ok
}

// List implements api.AgentCatalog.
func (r *Registry) List() []api.AgentInfo {
	infos := make([]api.AgentInfo, 0, len(r.order))
	for _, name := range r.order {
		infos = append(infos, api.AgentInfo{
			Name:        name,
			Description: r.agents[name].Description(),
		})
	}
	return infos
}
