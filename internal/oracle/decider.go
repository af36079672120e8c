package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"foreman/internal/api"
	"foreman/pkg/logging"
)

// Decider turns free-text oracle replies into typed decisions. A reply
// that cannot be parsed or fails validation is re-asked a bounded number
// of times, with the unusable response included in the follow-up prompt,
// before the interaction fails as OracleMalformed.
type Decider struct {
	oracle         api.Oracle
	reformulations int
}

// Compile-time checks that Decider covers every typed decision surface.
var (
	_ api.ManifestOracle   = (*Decider)(nil)
	_ api.OptimizeOracle   = (*Decider)(nil)
	_ api.ScalingOracle    = (*Decider)(nil)
	_ api.RecoveryOracle   = (*Decider)(nil)
	_ api.ExpressionOracle = (*Decider)(nil)
	_ api.RefineOracle     = (*Decider)(nil)
	_ api.RecipeOracle     = (*Decider)(nil)
	_ api.CostOracle       = (*Decider)(nil)
)

// NewDecider wraps an oracle transport. reformulations bounds how often a
// malformed reply is re-asked; values below one are raised to one.
func NewDecider(oracle api.Oracle, reformulations int) *Decider {
	if reformulations < 1 {
		reformulations = 1
	}
	return &Decider{oracle: oracle, reformulations: reformulations}
}

// askDecision asks, extracts the reply payload, and hands it to decode.
// decode must fully validate the payload; any error triggers a re-prompt.
// An unreachable oracle is returned as-is: there is no point re-asking a
// service that is down.
func (d *Decider) askDecision(ctx context.Context, prompt string, decode func(payload string) error) error {
	base := prompt
	var lastErr error

	for attempt := 1; attempt <= d.reformulations; attempt++ {
		text, err := d.oracle.Ask(ctx, prompt)
		if err != nil {
			return fmt.Errorf("decision service unreachable: %w", err)
		}

		if err := decode(ExtractPayload(text)); err != nil {
			lastErr = err
			logging.Warn("Oracle", "Malformed decision (attempt %d/%d): %v", attempt, d.reformulations, err)
			prompt = repromptMalformed(base, text)
			continue
		}
		return nil
	}

	return api.NewWorkloadError(api.FailureOracleMalformed,
		"decision unparsable after %d attempts", d.reformulations).WithCause(lastErr)
}

// askText asks and returns the extracted payload without parsing. The
// only failure mode is an unreachable service or an empty reply.
func (d *Decider) askText(ctx context.Context, prompt string) (string, error) {
	text, err := d.oracle.Ask(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("decision service unreachable: %w", err)
	}
	payload := ExtractPayload(text)
	if payload == "" {
		return "", api.NewWorkloadError(api.FailureOracleMalformed, "decision service returned an empty response")
	}
	return payload, nil
}

// GenerateManifest asks for a workload manifest and returns the YAML text.
func (d *Decider) GenerateManifest(ctx context.Context, req api.ManifestRequest) (string, error) {
	return d.askText(ctx, manifestPrompt(req))
}

// OptimizeVerdict asks whether the last run should be retried with a
// patched configuration or accepted as optimized.
func (d *Decider) OptimizeVerdict(ctx context.Context, req api.OptimizeRequest) (api.OptimizeDecision, error) {
	var decision api.OptimizeDecision
	err := d.askDecision(ctx, optimizePrompt(req), func(payload string) error {
		var out api.OptimizeDecision
		if err := json.Unmarshal([]byte(payload), &out); err != nil {
			return err
		}
		out.Action = api.OptimizeAction(strings.ToUpper(strings.TrimSpace(string(out.Action))))
		if out.Action != api.OptimizeRetry && out.Action != api.OptimizeStop {
			return fmt.Errorf("decision must be RETRY or STOP, got %q", out.Action)
		}
		decision = out
		return nil
	})
	return decision, err
}

// ScalingVerdict asks whether a scaling study proceeds to the next size.
func (d *Decider) ScalingVerdict(ctx context.Context, req api.ScalingRequest) (api.ScalingDecision, error) {
	var decision api.ScalingDecision
	err := d.askDecision(ctx, scalingPrompt(req), func(payload string) error {
		var out api.ScalingDecision
		if err := json.Unmarshal([]byte(payload), &out); err != nil {
			return err
		}
		out.Action = api.ScalingAction(strings.ToUpper(strings.TrimSpace(string(out.Action))))
		if out.Action != api.ScalingProceed && out.Action != api.ScalingStop {
			return fmt.Errorf("decision must be PROCEED or STOP, got %q", out.Action)
		}
		decision = out
		return nil
	})
	return decision, err
}

// RecoveryStep asks for a single corrective step after an exhausted
// failure. The agent name is only checked for presence here; the caller
// resolves it against the catalog.
func (d *Decider) RecoveryStep(ctx context.Context, req api.RecoveryRequest) (api.RecoveryDecision, error) {
	var decision api.RecoveryDecision
	err := d.askDecision(ctx, recoveryPrompt(req), func(payload string) error {
		var out api.RecoveryDecision
		if err := json.Unmarshal([]byte(payload), &out); err != nil {
			return err
		}
		if out.AgentName == "" {
			return fmt.Errorf("corrective step is missing the agent_name field")
		}
		decision = out
		return nil
	})
	return decision, err
}

// ProposeExpression asks for a figure of merit extraction expression.
// Whether the expression actually matches is for the caller to judge
// against the real log; rejected attempts come back via req.Rejected.
func (d *Decider) ProposeExpression(ctx context.Context, req api.ExpressionRequest) (string, error) {
	return d.askText(ctx, expressionPrompt(req))
}

// RefineError turns raw failure output into a directive instruction for
// the retrying agent. The bool result reports that the refined
// instruction demands control return to the orchestrator.
func (d *Decider) RefineError(ctx context.Context, req api.RefineRequest) (string, bool, error) {
	text, err := d.oracle.Ask(ctx, refinePrompt(req))
	if err != nil {
		return "", false, fmt.Errorf("decision service unreachable: %w", err)
	}
	return text, strings.Contains(text, ReturnToManagerMarker), nil
}

// GenerateRecipe asks for a container build recipe and returns its text.
func (d *Decider) GenerateRecipe(ctx context.Context, req api.RecipeRequest) (string, error) {
	return d.askText(ctx, recipePrompt(req))
}

// EstimateCost asks for an instance cost table.
func (d *Decider) EstimateCost(ctx context.Context, req api.CostRequest) ([]api.CostEstimate, error) {
	var estimates []api.CostEstimate
	err := d.askDecision(ctx, costPrompt(req), func(payload string) error {
		var out []api.CostEstimate
		if err := json.Unmarshal([]byte(payload), &out); err != nil {
			return err
		}
		if len(out) == 0 {
			return fmt.Errorf("cost response contained no entries")
		}
		estimates = out
		return nil
	})
	return estimates, err
}
