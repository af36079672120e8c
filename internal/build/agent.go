package build

import (
	"context"
	"fmt"
	"strings"

	"foreman/internal/api"
	"foreman/internal/config"
	"foreman/internal/oracle"
	"foreman/internal/workspace"
	"foreman/pkg/logging"
	foremanstrings "foreman/pkg/strings"
)

// AgentName is the registry key plans use for the image build step.
const AgentName = "build"

// Agent is the image build step executor. One step means: obtain a
// build recipe from the decision service, build and tag the image, and
// record both the recipe and the image reference for the deploy step.
// A failed build is refined into an instruction and retried with a
// regenerated recipe inside the step's attempt budget.
type Agent struct {
	builder  Builder
	recipes  api.RecipeOracle
	refiner  api.RefineOracle
	attempts int
}

// NewAgent wires the image build step executor.
func NewAgent(builder Builder, recipes api.RecipeOracle, refiner api.RefineOracle, cfg config.BuildConfig) *Agent {
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = config.DefaultAgentAttempts
	}
	return &Agent{
		builder:  builder,
		recipes:  recipes,
		refiner:  refiner,
		attempts: attempts,
	}
}

// Name implements api.Agent.
func (a *Agent) Name() string { return AgentName }

// Description implements api.Agent.
func (a *Agent) Description() string {
	return "Builds the application container image from a generated recipe and records it for the deploy step"
}

// Run executes one build step against the run context.
func (a *Agent) Run(ctx context.Context, rc *workspace.Context) api.Result {
	tag := rc.GetString(workspace.KeyContainer)
	if tag == "" {
		application := rc.GetString(workspace.KeyApplication)
		if application == "" {
			return a.fail(rc, "no application or container image configured")
		}
		tag = foremanstrings.SanitizeName(application, "workload")
		// The deploy step reads the image reference from here.
		rc.Set(workspace.KeyContainer, tag)
	}

	for attempt := 1; attempt <= a.attempts; attempt++ {
		// A previous recipe plus an error message switches generation
		// into rebuild mode, both inside this loop and across steps.
		recipe, err := a.recipes.GenerateRecipe(ctx, api.RecipeRequest{
			Application:  rc.GetString(workspace.KeyApplication),
			Environment:  rc.GetString(workspace.KeyEnvironment),
			Task:         rc.GetString(workspace.KeyTask),
			BuildFile:    rc.GetString(workspace.KeyBuildFile),
			ErrorMessage: rc.GetString(workspace.KeyErrorMessage),
		})
		if err != nil {
			return a.fail(rc, "recipe generation failed: "+err.Error())
		}
		rc.Set(workspace.KeyBuildFile, recipe)
		rc.Set(workspace.KeyResult, recipe)

		logging.Info(buildSubsystem, "Attempt %d of %d: building image %q", attempt, a.attempts, tag)
		output, berr := a.builder.BuildImage(ctx, recipe, tag)
		if berr == nil {
			rc.Delete(workspace.KeyErrorMessage)
			logging.Info(buildSubsystem, "Build complete in %d attempts", attempt)
			return api.ResultOK(fmt.Sprintf("Image %q built from the recorded recipe", tag))
		}

		message := strings.TrimSpace(output)
		if message == "" {
			message = berr.Error()
		}
		rc.Set(workspace.KeyErrorMessage, message)
		logging.Warn(buildSubsystem, "Attempt %d failed: %s", attempt,
			foremanstrings.TruncateDescription(message, 200))

		instruction, returnToManager, rerr := a.refiner.RefineError(ctx, api.RefineRequest{
			Scope:        oracle.RecipeRequirements,
			Artifact:     recipe,
			ErrorMessage: message,
			Facts:        facts(rc),
		})
		if rerr != nil {
			return a.fail(rc, "error refinement failed: "+rerr.Error())
		}
		rc.Set(workspace.KeyErrorMessage, instruction)
		if returnToManager {
			rc.Set(workspace.KeyReturnToManager, true)
		}

		if attempt >= a.attempts || rc.GetBool(workspace.KeyReturnToManager) {
			rc.Delete(workspace.KeyReturnToManager)
			return api.ResultFailed(instruction)
		}
	}

	logging.Error(buildSubsystem, nil, "Max attempts %d reached", a.attempts)
	return api.ResultFailed(rc.GetString(workspace.KeyErrorMessage))
}

func (a *Agent) fail(rc *workspace.Context, message string) api.Result {
	rc.Set(workspace.KeyErrorMessage, message)
	return api.ResultFailed(message)
}

// facts collects the context values a refined instruction must treat as
// fixed.
func facts(rc *workspace.Context) map[string]string {
	out := make(map[string]string)
	for _, key := range []string{
		workspace.KeyApplication,
		workspace.KeyEnvironment,
		workspace.KeyContainer,
		workspace.KeyTask,
	} {
		if v := rc.GetString(key); v != "" {
			out[key] = v
		}
	}
	return out
}
