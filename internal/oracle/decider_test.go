package oracle

import (
	"context"
	"errors"
	"testing"

	"foreman/internal/api"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedOracle replays canned replies and records every prompt it saw.
// When the script runs out, the last reply repeats.
type scriptedOracle struct {
	replies []string
	err     error
	prompts []string
}

func (o *scriptedOracle) Ask(ctx context.Context, prompt string) (string, error) {
	o.prompts = append(o.prompts, prompt)
	if o.err != nil {
		return "", o.err
	}
	if len(o.replies) == 0 {
		return "", nil
	}
	reply := o.replies[0]
	if len(o.replies) > 1 {
		o.replies = o.replies[1:]
	}
	return reply, nil
}

func TestOptimizeVerdict_ParsesFencedJSON(t *testing.T) {
	fake := &scriptedOracle{replies: []string{
		"```json\n{\"decision\": \"retry\", \"reason\": \"memory bound\", \"manifest\": {\"spec\": {}}}\n```",
	}}
	d := NewDecider(fake, 3)

	decision, err := d.OptimizeVerdict(context.Background(), api.OptimizeRequest{
		Directive:   "minimize wall time",
		Environment: "gke",
		Manifest:    "kind: Job",
		Attempt:     1,
	})
	require.NoError(t, err)

	assert.Equal(t, api.OptimizeRetry, decision.Action)
	assert.Equal(t, "memory bound", decision.Reason)
	assert.Contains(t, decision.Patch, "spec")
}

func TestOptimizeVerdict_PromptCarriesGuardrails(t *testing.T) {
	fake := &scriptedOracle{replies: []string{`{"decision": "STOP", "reason": "done"}`}}
	d := NewDecider(fake, 3)

	_, err := d.OptimizeVerdict(context.Background(), api.OptimizeRequest{
		Directive: "minimize wall time",
		Attempt:   2,
		History: []api.FigureOfMerit{
			{Attempt: 1, Value: "12.5 ns/day"},
		},
	})
	require.NoError(t, err)

	require.Len(t, fake.prompts, 1)
	prompt := fake.prompts[0]
	assert.Contains(t, prompt, "DO NOT CHANGE PROBLEM SIZE PARAMETERS OR COMMAND. You can change args.")
	assert.Contains(t, prompt, "attempt 1: 12.5 ns/day")
	assert.Contains(t, prompt, `"decision" field that is RETRY or STOP`)
}

func TestOptimizeVerdict_RepromptsOnMalformed(t *testing.T) {
	fake := &scriptedOracle{replies: []string{
		"I think you should definitely retry!",
		`{"decision": "RETRY", "reason": "second try parses"}`,
	}}
	d := NewDecider(fake, 3)

	decision, err := d.OptimizeVerdict(context.Background(), api.OptimizeRequest{})
	require.NoError(t, err)
	assert.Equal(t, api.OptimizeRetry, decision.Action)

	require.Len(t, fake.prompts, 2)
	assert.Contains(t, fake.prompts[1], "Your first attempt was not successful:")
	assert.Contains(t, fake.prompts[1], "I think you should definitely retry!")
}

func TestOptimizeVerdict_RejectsUnknownVerdict(t *testing.T) {
	fake := &scriptedOracle{replies: []string{`{"decision": "MAYBE", "reason": "hmm"}`}}
	d := NewDecider(fake, 2)

	_, err := d.OptimizeVerdict(context.Background(), api.OptimizeRequest{})
	require.Error(t, err)
	assert.True(t, api.IsOracleMalformed(err))
	assert.Len(t, fake.prompts, 2)
}

func TestOptimizeVerdict_UnreachableIsNotRetried(t *testing.T) {
	fake := &scriptedOracle{err: errors.New("connection refused")}
	d := NewDecider(fake, 3)

	_, err := d.OptimizeVerdict(context.Background(), api.OptimizeRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decision service unreachable")
	assert.False(t, api.IsOracleMalformed(err))
	assert.Len(t, fake.prompts, 1)
}

func TestScalingVerdict(t *testing.T) {
	fake := &scriptedOracle{replies: []string{`{"decision": "proceed", "reason": "still scaling"}`}}
	d := NewDecider(fake, 3)

	decision, err := d.ScalingVerdict(context.Background(), api.ScalingRequest{
		Directive:      "weak scaling efficiency above 80 percent",
		CurrentSize:    2,
		RemainingSizes: []int{4, 8},
		History:        []api.ScalingRecord{{Size: 1, FigureOfMerit: "10.1 ns/day"}},
	})
	require.NoError(t, err)
	assert.Equal(t, api.ScalingProceed, decision.Action)

	prompt := fake.prompts[0]
	assert.Contains(t, prompt, "currently working on size 2")
	assert.Contains(t, prompt, "Remaining sizes in the study: 4, 8")
	assert.Contains(t, prompt, "size 1: 10.1 ns/day")
}

func TestRecoveryStep(t *testing.T) {
	fake := &scriptedOracle{replies: []string{
		"```json\n{\"agent_name\": \"build\", \"task_description\": \"Fix the base image tag.\"}\n```",
	}}
	d := NewDecider(fake, 3)

	decision, err := d.RecoveryStep(context.Background(), api.RecoveryRequest{
		Agents: []api.AgentInfo{
			{Name: "build", Description: "Builds container images."},
			{Name: "deploy", Description: "Runs cluster workloads."},
		},
		FailedAgent:  "deploy",
		ErrorMessage: "ErrImagePull: tag not found",
	})
	require.NoError(t, err)
	assert.Equal(t, "build", decision.AgentName)
	assert.Equal(t, "Fix the base image tag.", decision.Task)

	prompt := fake.prompts[0]
	assert.Contains(t, prompt, "- build: Builds container images.")
	assert.Contains(t, prompt, "- deploy: Runs cluster workloads.")
	assert.Contains(t, prompt, "the failure (deploy)")
	assert.Contains(t, prompt, `"agent_name" and "task_description"`)
}

func TestRecoveryStep_MissingAgentNameReprompts(t *testing.T) {
	fake := &scriptedOracle{replies: []string{
		`{"task_description": "do something"}`,
		`{"agent_name": "build", "task_description": "do something"}`,
	}}
	d := NewDecider(fake, 3)

	decision, err := d.RecoveryStep(context.Background(), api.RecoveryRequest{})
	require.NoError(t, err)
	assert.Equal(t, "build", decision.AgentName)
	assert.Len(t, fake.prompts, 2)
}

func TestGenerateManifest(t *testing.T) {
	fake := &scriptedOracle{replies: []string{"```yaml\nkind: Job\nmetadata:\n  name: demo\n```"}}
	d := NewDecider(fake, 3)

	manifest, err := d.GenerateManifest(context.Background(), api.ManifestRequest{
		Environment: "gke",
		Container:   "lammps:latest",
		NoPull:      true,
	})
	require.NoError(t, err)
	assert.Equal(t, "kind: Job\nmetadata:\n  name: demo", manifest)

	prompt := fake.prompts[0]
	assert.Contains(t, prompt, "the exact container named 'lammps:latest'")
	assert.Contains(t, prompt, "imagePullPolicy of the main container to Never")
}

func TestGenerateManifest_RegenerateOnError(t *testing.T) {
	fake := &scriptedOracle{replies: []string{"kind: Job"}}
	d := NewDecider(fake, 3)

	_, err := d.GenerateManifest(context.Background(), api.ManifestRequest{
		ErrorMessage: "missing .metadata.name",
	})
	require.NoError(t, err)

	prompt := fake.prompts[0]
	assert.Contains(t, prompt, "Your previous attempt to generate the manifest failed")
	assert.Contains(t, prompt, "missing .metadata.name")
}

func TestGenerateManifest_EmptyReply(t *testing.T) {
	fake := &scriptedOracle{replies: []string{"   "}}
	d := NewDecider(fake, 3)

	_, err := d.GenerateManifest(context.Background(), api.ManifestRequest{})
	require.Error(t, err)
	assert.True(t, api.IsOracleMalformed(err))
}

func TestProposeExpression_CarriesRejectedAttempts(t *testing.T) {
	fake := &scriptedOracle{replies: []string{`Performance: ([\d.]+) ns/day`}}
	d := NewDecider(fake, 3)

	expr, err := d.ProposeExpression(context.Background(), api.ExpressionRequest{
		Requirement: "Extract the ns/day figure.",
		Log:         "Performance: 12.5 ns/day",
		Rejected:    []string{`nope-(\d+)`},
	})
	require.NoError(t, err)
	assert.Equal(t, `Performance: ([\d.]+) ns/day`, expr)
	assert.Contains(t, fake.prompts[0], `Here is a previous unsuccessful attempt: nope-(\d+)`)
}

func TestRefineError(t *testing.T) {
	fake := &scriptedOracle{replies: []string{"Change the compiler flag to -O2 and rebuild."}}
	d := NewDecider(fake, 3)

	instruction, escalate, err := d.RefineError(context.Background(), api.RefineRequest{
		Scope:        "You may only edit the Dockerfile.",
		Artifact:     "FROM ubuntu",
		ErrorMessage: "gcc: error: unrecognized option",
		Facts:        map[string]string{"details": "use spack", "application": "lammps"},
	})
	require.NoError(t, err)
	assert.False(t, escalate)
	assert.Equal(t, "Change the compiler flag to -O2 and rebuild.", instruction)

	prompt := fake.prompts[0]
	assert.Contains(t, prompt, "details from user is defined as: use spack")
	assert.Contains(t, prompt, "application is defined as: lammps")
	assert.Contains(t, prompt, "YOU CANNOT CHANGE THESE VARIABLES OR FILES")
}

func TestRefineError_ReturnToManager(t *testing.T) {
	fake := &scriptedOracle{replies: []string{"This is a cluster quota problem. RETURN TO MANAGER"}}
	d := NewDecider(fake, 3)

	_, escalate, err := d.RefineError(context.Background(), api.RefineRequest{})
	require.NoError(t, err)
	assert.True(t, escalate)
}

func TestGenerateRecipe_RebuildPath(t *testing.T) {
	fake := &scriptedOracle{replies: []string{"```\nFROM spack/ubuntu-jammy\n```"}}
	d := NewDecider(fake, 3)

	recipe, err := d.GenerateRecipe(context.Background(), api.RecipeRequest{
		Application:  "lammps",
		BuildFile:    "FROM ubuntu",
		ErrorMessage: "make: not found",
	})
	require.NoError(t, err)
	assert.Equal(t, "FROM spack/ubuntu-jammy", recipe)

	prompt := fake.prompts[0]
	assert.Contains(t, prompt, "Your previous Dockerfile build has failed")
	assert.Contains(t, prompt, "make: not found")
	assert.Contains(t, prompt, "FROM ubuntu")
}

func TestEstimateCost(t *testing.T) {
	fake := &scriptedOracle{replies: []string{
		`[{"application": "lammps", "environment": "gke", "instance": "c2-standard-60", "type": "cpu", "reason": "compute bound", "estimate": "3.14"}]`,
	}}
	d := NewDecider(fake, 3)

	estimates, err := d.EstimateCost(context.Background(), api.CostRequest{
		Environment: "gke",
		Instruction: "Pick the cheapest viable instance.",
	})
	require.NoError(t, err)
	require.Len(t, estimates, 1)
	assert.Equal(t, "c2-standard-60", estimates[0].Instance)
	assert.Equal(t, "cpu", estimates[0].Type)
}

func TestEstimateCost_EmptyListReprompts(t *testing.T) {
	fake := &scriptedOracle{replies: []string{`[]`}}
	d := NewDecider(fake, 2)

	_, err := d.EstimateCost(context.Background(), api.CostRequest{})
	require.Error(t, err)
	assert.True(t, api.IsOracleMalformed(err))
	assert.Len(t, fake.prompts, 2)
}
