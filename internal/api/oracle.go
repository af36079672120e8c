package api

import "context"

// Oracle is the raw transport to the external decision service. It takes a
// rendered prompt and returns free text that is expected, but never
// trusted, to contain a structured answer. The typed layers on top parse
// and re-prompt within bounds.
type Oracle interface {
	Ask(ctx context.Context, prompt string) (string, error)
}

// OptimizeAction is the decision service's verdict on an optimization pass.
type OptimizeAction string

const (
	// OptimizeRetry asks for another run with the attached patch applied.
	OptimizeRetry OptimizeAction = "RETRY"

	// OptimizeStop declares the workload optimized.
	OptimizeStop OptimizeAction = "STOP"
)

// OptimizeDecision is the parsed optimization verdict. The JSON field names
// are the wire contract with the decision service.
type OptimizeDecision struct {
	Action OptimizeAction `json:"decision"`
	Reason string         `json:"reason"`
	Patch  map[string]any `json:"manifest"`
}

// ScalingAction is the decision service's verdict on a scaling study step.
type ScalingAction string

const (
	// ScalingProceed moves the study to the next size.
	ScalingProceed ScalingAction = "PROCEED"

	// ScalingStop ends the study.
	ScalingStop ScalingAction = "STOP"
)

// ScalingDecision is the parsed scaling verdict.
type ScalingDecision struct {
	Action ScalingAction `json:"decision"`
	Reason string        `json:"reason"`
}

// RecoveryDecision is the parsed corrective step proposal.
type RecoveryDecision struct {
	AgentName string `json:"agent_name"`
	Task      string `json:"task_description"`
}

// ManifestRequest asks for a workload manifest. A non-empty ErrorMessage
// switches the prompt from generate to regenerate.
type ManifestRequest struct {
	Application  string
	Environment  string
	Container    string
	NoPull       bool
	Task         string
	ErrorMessage string
}

// OptimizeRequest asks for an optimization verdict on the last run.
type OptimizeRequest struct {
	Directive   string
	Environment string
	Resources   string
	Manifest    string
	BuildFile   string
	Log         string
	Attempt     int
	History     []FigureOfMerit
}

// ScalingRequest asks whether a scaling study should continue.
type ScalingRequest struct {
	Directive      string
	CurrentSize    int
	RemainingSizes []int
	History        []ScalingRecord
}

// RecoveryRequest asks for a single corrective step after a failure.
type RecoveryRequest struct {
	Agents       []AgentInfo
	FailedAgent  string
	Task         string
	ErrorMessage string
}

// ExpressionRequest asks for a figure of merit extraction expression.
type ExpressionRequest struct {
	Requirement string
	Log         string
	// Rejected holds expressions that failed to match, so the next
	// proposal can avoid them.
	Rejected []string
}

// RefineRequest asks the decision service to turn raw failure output into a
// directive instruction for the retrying agent.
type RefineRequest struct {
	// Scope states what the retrying agent is allowed to change.
	Scope string
	// Artifact is the code or manifest under repair.
	Artifact string
	// ErrorMessage is the raw failure output.
	ErrorMessage string
	// Facts are context values the instruction must treat as fixed.
	Facts map[string]string
}

// RecipeRequest asks for a container build recipe. A non-empty BuildFile
// plus ErrorMessage switches the prompt from build to rebuild.
type RecipeRequest struct {
	Application  string
	Environment  string
	Task         string
	BuildFile    string
	ErrorMessage string
}

// CostRequest asks for an instance cost table.
type CostRequest struct {
	Environment string
	Manifest    string
	Instruction string
}

// Typed decision interfaces. Feature packages accept exactly the concern
// they consume so tests can fake one method instead of the whole service.
type (
	// ManifestOracle produces workload manifests.
	ManifestOracle interface {
		GenerateManifest(ctx context.Context, req ManifestRequest) (string, error)
	}

	// OptimizeOracle produces optimization verdicts.
	OptimizeOracle interface {
		OptimizeVerdict(ctx context.Context, req OptimizeRequest) (OptimizeDecision, error)
	}

	// ScalingOracle produces scaling study verdicts.
	ScalingOracle interface {
		ScalingVerdict(ctx context.Context, req ScalingRequest) (ScalingDecision, error)
	}

	// RecoveryOracle produces corrective steps.
	RecoveryOracle interface {
		RecoveryStep(ctx context.Context, req RecoveryRequest) (RecoveryDecision, error)
	}

	// ExpressionOracle proposes figure of merit extraction expressions.
	ExpressionOracle interface {
		ProposeExpression(ctx context.Context, req ExpressionRequest) (string, error)
	}

	// RefineOracle refines raw failure output into an instruction. The
	// bool result reports whether the refined instruction demands control
	// be returned to the orchestrator instead of retrying locally.
	RefineOracle interface {
		RefineError(ctx context.Context, req RefineRequest) (string, bool, error)
	}

	// RecipeOracle produces container build recipes.
	RecipeOracle interface {
		GenerateRecipe(ctx context.Context, req RecipeRequest) (string, error)
	}

	// CostOracle produces instance cost estimates.
	CostOracle interface {
		EstimateCost(ctx context.Context, req CostRequest) ([]CostEstimate, error)
	}
)
