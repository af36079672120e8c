package plan

import (
	"fmt"
	"os"

	"foreman/internal/api"
	"foreman/internal/config"
	"foreman/internal/template"

	"gopkg.in/yaml.v3"
)

// Step is one entry in a plan: the agent to run, an optional attempt
// budget, and a human-readable description of the task. Steps are
// immutable once created; attempt counters live with the orchestrator,
// keyed by agent name, not with the step.
type Step struct {
	Agent       string `yaml:"agent" json:"agent"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Attempts    int    `yaml:"attempts,omitempty" json:"attempts,omitempty"`
}

// Task returns the step description, or a generic one naming the agent.
func (s Step) Task() string {
	if s.Description != "" {
		return s.Description
	}
	return fmt.Sprintf("This is a %s agent.", s.Agent)
}

// Exhausted reports whether used attempts have consumed the step's
// budget. A step without a budget (attempts <= 0) is never exhausted.
func (s Step) Exhausted(used int) bool {
	return s.Attempts > 0 && used >= s.Attempts
}

// Plan is an ordered, mutable sequence of steps. The recovery router
// splices corrective steps in while the orchestrator walks it.
type Plan struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Steps       []Step `yaml:"plan" json:"plan"`
}

// Load reads a plan definition from a YAML or JSON file. JSON is a
// subset of YAML, so one decoder covers both.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan %s: %w", path, err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("invalid plan %s: %w", path, err)
	}
	return p, nil
}

// Parse decodes and structurally validates a plan definition.
func Parse(data []byte) (*Plan, error) {
	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// validate checks the shape of the plan, not agent resolvability.
func (p *Plan) validate() error {
	var errs config.ValidationErrors

	if err := config.ValidateRequired("name", p.Name, "plan"); err != nil {
		errs = append(errs, err.(config.ValidationError))
	}
	if len(p.Steps) == 0 {
		errs.Add("plan", "must have at least one step")
	}
	for i, step := range p.Steps {
		if step.Agent == "" {
			errs.Add(fmt.Sprintf("plan[%d].agent", i), "agent name cannot be empty")
		}
		if step.Attempts < 0 {
			errs.Add(fmt.Sprintf("plan[%d].attempts", i), "attempts cannot be negative", step.Attempts)
		}
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// Resolve checks that every step's agent is registered in the catalog.
func (p *Plan) Resolve(catalog api.AgentCatalog) error {
	for i, step := range p.Steps {
		if _, ok := catalog.Lookup(step.Agent); !ok {
			return fmt.Errorf("plan step %d: %w: %s", i, api.ErrAgentNotRegistered, step.Agent)
		}
	}
	return nil
}

// Len returns the number of steps.
func (p *Plan) Len() int {
	return len(p.Steps)
}

// Step returns the step at index i.
func (p *Plan) Step(i int) Step {
	return p.Steps[i]
}

// Insert splices a step in at index i. The step at i and everything
// after it shifts right, so an insert at the current index executes
// before the step that was there.
func (p *Plan) Insert(i int, step Step) {
	if i < 0 {
		i = 0
	}
	if i > len(p.Steps) {
		i = len(p.Steps)
	}
	p.Steps = append(p.Steps, Step{})
	copy(p.Steps[i+1:], p.Steps[i:])
	p.Steps[i] = step
}

// AgentNames returns the distinct agent names in plan order.
func (p *Plan) AgentNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, step := range p.Steps {
		if !seen[step.Agent] {
			seen[step.Agent] = true
			names = append(names, step.Agent)
		}
	}
	return names
}

// Render expands template expressions in the plan and step descriptions
// using the provided variables. Plans can carry expressions like
// {{ .application }} so one plan file serves several applications.
func (p *Plan) Render(engine *template.Engine, vars map[string]interface{}) error {
	rendered, err := engine.Replace(p.Description, vars)
	if err != nil {
		return fmt.Errorf("plan description: %w", err)
	}
	p.Description = rendered.(string)

	for i := range p.Steps {
		rendered, err := engine.Replace(p.Steps[i].Description, vars)
		if err != nil {
			return fmt.Errorf("plan step %d (%s): %w", i, p.Steps[i].Agent, err)
		}
		p.Steps[i].Description = rendered.(string)
	}
	return nil
}
