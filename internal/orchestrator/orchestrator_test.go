package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foreman/internal/api"
	"foreman/internal/plan"
	"foreman/internal/workspace"
)

// scriptedAgent replays results in order, repeating the last one, and
// records what the run context looked like on entry.
type scriptedAgent struct {
	name        string
	description string
	results     []api.Result

	calls     int
	tasks     []string
	sawResult []bool
}

func (a *scriptedAgent) Name() string        { return a.name }
func (a *scriptedAgent) Description() string { return a.description }

func (a *scriptedAgent) Run(_ context.Context, rc *workspace.Context) api.Result {
	a.tasks = append(a.tasks, rc.GetString(workspace.KeyTask))
	_, ok := rc.Get(workspace.KeyResult)
	a.sawResult = append(a.sawResult, ok)

	a.calls++
	idx := a.calls - 1
	if idx >= len(a.results) {
		idx = len(a.results) - 1
	}
	result := a.results[idx]
	if result.OK() {
		rc.Set(workspace.KeyResult, a.name+" output")
		rc.Delete(workspace.KeyErrorMessage)
	} else {
		rc.Set(workspace.KeyErrorMessage, result.Message)
	}
	return result
}

type recoverCall struct {
	failed  plan.Step
	message string
}

type scriptedRecovery struct {
	steps []*plan.Step
	err   error
	calls []recoverCall
}

func (s *scriptedRecovery) Recover(_ context.Context, failed plan.Step, message string) (*plan.Step, error) {
	s.calls = append(s.calls, recoverCall{failed: failed, message: message})
	if s.err != nil {
		return nil, s.err
	}
	idx := len(s.calls) - 1
	if idx >= len(s.steps) {
		idx = len(s.steps) - 1
	}
	return s.steps[idx], nil
}

func runContext(t *testing.T) *workspace.Context {
	t.Helper()
	rc, err := workspace.New(t.TempDir(), true)
	require.NoError(t, err)
	return rc
}

func catalogWith(t *testing.T, agents ...*scriptedAgent) *Registry {
	t.Helper()
	registry := NewRegistry()
	for _, agent := range agents {
		require.NoError(t, registry.Register(agent))
	}
	return registry
}

func testPlan(steps ...plan.Step) *plan.Plan {
	return &plan.Plan{Name: "test", Steps: steps}
}

func TestRunHappyPath(t *testing.T) {
	build := &scriptedAgent{name: "build", description: "builds", results: []api.Result{api.ResultOK("built")}}
	deploy := &scriptedAgent{name: "kubernetes-job", description: "deploys", results: []api.Result{api.ResultOK("deployed")}}
	engine := New(Config{Catalog: catalogWith(t, build, deploy)})
	rc := runContext(t)

	tracker, err := engine.Run(context.Background(), rc, testPlan(
		plan.Step{Agent: "build", Description: "Build the image"},
		plan.Step{Agent: "kubernetes-job", Description: "Run the workload"},
	))
	require.NoError(t, err)

	records := tracker.Records()
	require.Len(t, records, 2)
	assert.Equal(t, "build", records[0].Agent)
	assert.Equal(t, 1, records[0].Attempt)
	assert.Equal(t, 0, records[0].Code)
	assert.Equal(t, "kubernetes-job", records[1].Agent)

	// Each agent saw its own task instruction.
	assert.Equal(t, []string{"Build the image"}, build.tasks)
	assert.Equal(t, []string{"Run the workload"}, deploy.tasks)

	// The last step's result survives the run.
	assert.Equal(t, "kubernetes-job output", rc.GetString(workspace.KeyResult))
	assert.NotEmpty(t, tracker.RunID())
}

func TestRunResetsTransientStateBetweenSteps(t *testing.T) {
	build := &scriptedAgent{name: "build", results: []api.Result{api.ResultOK("built")}}
	deploy := &scriptedAgent{name: "kubernetes-job", results: []api.Result{api.ResultOK("deployed")}}
	engine := New(Config{Catalog: catalogWith(t, build, deploy)})

	_, err := engine.Run(context.Background(), runContext(t), testPlan(
		plan.Step{Agent: "build"},
		plan.Step{Agent: "kubernetes-job"},
	))
	require.NoError(t, err)

	// The first agent's result was cleared before the second ran.
	require.Len(t, deploy.sawResult, 1)
	assert.False(t, deploy.sawResult[0])

	// A step without a description still gets a task naming its agent.
	assert.Contains(t, build.tasks[0], "build")
}

func TestRunInsertsCorrectiveStep(t *testing.T) {
	deploy := &scriptedAgent{name: "kubernetes-job", results: []api.Result{
		api.ResultFailed("image pull failed"),
		api.ResultOK("deployed"),
	}}
	build := &scriptedAgent{name: "build", results: []api.Result{api.ResultOK("rebuilt")}}
	recovery := &scriptedRecovery{steps: []*plan.Step{
		{Agent: "build", Description: "Rebuild the image with the right tag"},
	}}
	engine := New(Config{Catalog: catalogWith(t, build, deploy), Recovery: recovery})
	p := testPlan(plan.Step{Agent: "kubernetes-job", Description: "Run the workload", Attempts: 3})

	tracker, err := engine.Run(context.Background(), runContext(t), p)
	require.NoError(t, err)

	// Failed deploy, corrective build, successful deploy retry.
	records := tracker.Records()
	require.Len(t, records, 3)
	assert.Equal(t, []string{"kubernetes-job", "build", "kubernetes-job"}, []string{
		records[0].Agent, records[1].Agent, records[2].Agent,
	})
	assert.Equal(t, 1, records[0].Code)
	assert.Equal(t, 0, records[1].Code)
	assert.Equal(t, 2, records[2].Attempt)

	// The router saw the failed step and its message.
	require.Len(t, recovery.calls, 1)
	assert.Equal(t, "kubernetes-job", recovery.calls[0].failed.Agent)
	assert.Equal(t, "image pull failed", recovery.calls[0].message)

	// The corrective step was spliced in before the failed one.
	require.Equal(t, 2, p.Len())
	assert.Equal(t, "build", p.Step(0).Agent)
	assert.Equal(t, "kubernetes-job", p.Step(1).Agent)

	// The corrective agent saw its corrective task.
	assert.Equal(t, []string{"Rebuild the image with the right tag"}, build.tasks)
}

func TestRunAbortsWhenBudgetExhausted(t *testing.T) {
	build := &scriptedAgent{name: "build", results: []api.Result{api.ResultFailed("compile error")}}
	recovery := &scriptedRecovery{steps: []*plan.Step{
		{Agent: "build", Description: "Fix the compile error", Attempts: 2},
	}}
	engine := New(Config{Catalog: catalogWith(t, build), Recovery: recovery})
	rc := runContext(t)

	tracker, err := engine.Run(context.Background(), rc, testPlan(
		plan.Step{Agent: "build", Attempts: 2},
	))
	require.Error(t, err)
	assert.Equal(t, api.FailureRecoveryExhausted, api.KindOf(err))
	assert.Contains(t, err.Error(), "maximum attempts 2")
	assert.Contains(t, err.Error(), "compile error")

	// Two runs happened before the loop refused the third.
	assert.Len(t, tracker.Records(), 2)
	assert.Equal(t, 1, rc.GetInt(workspace.KeyReturnCode, 0))
}

func TestRunAbortsWhenRecoveryFails(t *testing.T) {
	build := &scriptedAgent{name: "build", results: []api.Result{api.ResultFailed("boom")}}
	recovery := &scriptedRecovery{err: api.NewWorkloadError(api.FailureRecoveryExhausted, "no corrective step")}
	engine := New(Config{Catalog: catalogWith(t, build), Recovery: recovery})

	tracker, err := engine.Run(context.Background(), runContext(t), testPlan(plan.Step{Agent: "build"}))
	require.Error(t, err)
	assert.Equal(t, api.FailureRecoveryExhausted, api.KindOf(err))
	assert.Len(t, tracker.Records(), 1)
}

func TestRunWithoutRecoveryAborts(t *testing.T) {
	build := &scriptedAgent{name: "build", results: []api.Result{api.ResultFailed("boom")}}
	engine := New(Config{Catalog: catalogWith(t, build)})

	_, err := engine.Run(context.Background(), runContext(t), testPlan(plan.Step{Agent: "build"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no recovery is configured")
	assert.Contains(t, err.Error(), "boom")
}

func TestRunUnknownAgent(t *testing.T) {
	engine := New(Config{Catalog: NewRegistry()})

	tracker, err := engine.Run(context.Background(), runContext(t), testPlan(plan.Step{Agent: "ghost"}))
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrAgentNotRegistered)
	assert.Empty(t, tracker.Records())
}

func TestRunHonorsCancellation(t *testing.T) {
	build := &scriptedAgent{name: "build", results: []api.Result{api.ResultOK("built")}}
	engine := New(Config{Catalog: catalogWith(t, build)})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.Run(ctx, runContext(t), testPlan(plan.Step{Agent: "build"}))
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, build.calls)
}

func TestTrackerTable(t *testing.T) {
	tracker := NewTracker()
	tracker.Record("build", 1, 1500*time.Millisecond, 0)
	tracker.Record("kubernetes-job", 1, 2500*time.Millisecond, 1)

	rendered := tracker.Table()
	assert.Contains(t, rendered, "build")
	assert.Contains(t, rendered, "kubernetes-job")
	assert.Contains(t, rendered, "ok")
	assert.Contains(t, rendered, "failed")
	assert.Contains(t, rendered, tracker.RunID())
}
