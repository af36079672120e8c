// Package cost implements the instance cost estimation helper step.
package cost

import (
	"context"

	"github.com/jedib0t/go-pretty/v6/table"

	"foreman/internal/api"
	"foreman/internal/workspace"
	"foreman/pkg/logging"
)

// AgentName is the registry key plans use for the cost estimation step.
const AgentName = "cost"

// Agent asks the decision service for an instance cost table and records
// it in the run context. It is a helper step: a decodable answer always
// succeeds, and nothing on the cluster is touched.
type Agent struct {
	oracle api.CostOracle
}

// NewAgent wires the cost estimation step executor.
func NewAgent(oracle api.CostOracle) *Agent {
	return &Agent{oracle: oracle}
}

// Name implements api.Agent.
func (a *Agent) Name() string { return AgentName }

// Description implements api.Agent.
func (a *Agent) Description() string {
	return "Estimates instance cost for the workload and records the suggested instance types"
}

// Run executes one cost estimation step against the run context.
func (a *Agent) Run(ctx context.Context, rc *workspace.Context) api.Result {
	task := rc.GetString(workspace.KeyTask)
	if task == "" {
		return a.fail(rc, "no task instruction for the cost estimate")
	}

	estimates, err := a.oracle.EstimateCost(ctx, api.CostRequest{
		Environment: rc.GetString(workspace.KeyEnvironment),
		Manifest:    rc.GetString(workspace.KeyManifest),
		Instruction: task,
	})
	if err != nil {
		return a.fail(rc, "cost estimation failed: "+err.Error())
	}

	rc.Set(workspace.KeyCostEstimate, estimates)
	summary := Table(estimates)
	rc.Set(workspace.KeyResult, summary)
	logging.Info("Cost", "Recorded %d instance suggestions", len(estimates))
	return api.ResultOK(summary)
}

func (a *Agent) fail(rc *workspace.Context, message string) api.Result {
	rc.Set(workspace.KeyErrorMessage, message)
	return api.ResultFailed(message)
}

// Table renders the suggestion rows as the human-facing summary stored
// in the step result.
func Table(estimates []api.CostEstimate) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetTitle("Cost estimates")
	t.AppendHeader(table.Row{"Instance", "Type", "Estimate", "Reason"})
	for _, e := range estimates {
		t.AppendRow(table.Row{e.Instance, e.Type, e.Estimate, e.Reason})
	}
	return t.Render()
}
