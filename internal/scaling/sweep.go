package scaling

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"foreman/internal/api"
	"foreman/internal/optimize"
	"foreman/internal/workspace"
	"foreman/pkg/logging"
)

// Optimizer runs tune-and-rerun cycles at the current size until the
// decision service declares convergence. Implemented by optimize.Loop.
type Optimizer interface {
	Optimize(ctx context.Context, rc *workspace.Context, outcome api.WorkloadOutcome) (api.WorkloadOutcome, []api.FigureOfMerit, error)
}

// Sweep walks a scaling study across a queue of sizes. Each size is
// optimized to convergence, its converged figure of merit is recorded,
// and the decision service rules on whether the study continues. The
// queue lives in the run context, so a failed size survives a step retry
// at the head of the queue.
type Sweep struct {
	oracle    api.ScalingOracle
	optimizer Optimizer
	runner    optimize.Runner
}

// NewSweep builds a scaling sweep around the given verdict service,
// per-size optimizer and workload runner.
func NewSweep(oracle api.ScalingOracle, optimizer Optimizer, runner optimize.Runner) *Sweep {
	return &Sweep{oracle: oracle, optimizer: optimizer, runner: runner}
}

// Run consumes the size queue. The seed outcome is the run that brought
// us here; it counts as the first size's baseline, so only later sizes
// launch a fresh run before optimizing. Returns the per-size records
// accumulated so far, also on failure.
func (s *Sweep) Run(ctx context.Context, rc *workspace.Context, seed api.WorkloadOutcome) ([]api.ScalingRecord, error) {
	sizes := parseSizes(rc)
	if len(sizes) == 0 {
		return nil, fmt.Errorf("scaling study needs at least one size under %q", workspace.KeySizes)
	}
	directive := rc.GetString(workspace.KeyOptimize)

	outcome := seed
	var records []api.ScalingRecord
	for first := true; len(sizes) > 0; first = false {
		size := sizes[0]
		sizes = sizes[1:]
		rc.Set(workspace.KeySize, size)
		rc.Set(workspace.KeySizes, sizes)
		logging.Info("Scaling", "Evaluating size %d, %d more queued", size, len(sizes))

		if !first {
			next, err := s.launch(ctx, rc, size)
			if err != nil {
				return records, restore(rc, sizes, size, err)
			}
			outcome = next
		}

		converged, history, err := s.optimizer.Optimize(ctx, rc, outcome)
		if err != nil {
			return records, restore(rc, sizes, size, err)
		}
		outcome = converged

		records = append(records, api.ScalingRecord{Size: size, FigureOfMerit: lastValue(history)})
		rc.Set(workspace.KeyFigureOfMerit, records)

		decision, err := s.oracle.ScalingVerdict(ctx, api.ScalingRequest{
			Directive:      directive,
			CurrentSize:    size,
			RemainingSizes: append([]int(nil), sizes...),
			History:        append([]api.ScalingRecord(nil), records...),
		})
		if err != nil {
			// The size was already evaluated, so it stays consumed.
			return records, err
		}

		switch decision.Action {
		case api.ScalingStop:
			logging.Info("Scaling", "Study stopped after size %d: %s", size, decision.Reason)
			return records, nil
		case api.ScalingProceed:
			if len(sizes) == 0 {
				logging.Info("Scaling", "Proceed ruled with an empty size queue, stopping")
				return records, nil
			}
		default:
			return records, api.NewWorkloadError(api.FailureOracleMalformed,
				"scaling verdict %q is neither PROCEED nor STOP", decision.Action)
		}
	}
	return records, nil
}

// launch reshapes the manifest of record to the node count under
// evaluation and runs it once to give the optimizer a baseline. The
// reshape goes through the same whitelisted patch path the optimizer
// uses, so command and problem size cannot drift between sizes.
func (s *Sweep) launch(ctx context.Context, rc *workspace.Context, size int) (api.WorkloadOutcome, error) {
	patched, err := optimize.ApplyPatch(rc.GetString(workspace.KeyManifest), map[string]any{
		"spec": map[string]any{"parallelism": size, "completions": size},
	})
	if err != nil {
		return api.WorkloadOutcome{}, err
	}
	return s.runner.Run(ctx, rc, patched)
}

// restore puts a failed size back at the head of the queue before the
// failure travels upward.
func restore(rc *workspace.Context, remaining []int, size int, err error) error {
	rc.Set(workspace.KeySizes, append([]int{size}, remaining...))
	logging.Warn("Scaling", "Size %d returns to the head of the queue: %v", size, err)
	return err
}

// lastValue takes the converged measurement: the optimizer stops when the
// decision service accepts the latest run, so the last entry is the one
// the study keeps.
func lastValue(history []api.FigureOfMerit) string {
	if len(history) == 0 {
		return ""
	}
	return history[len(history)-1].Value
}

// parseSizes reads the size queue, tolerating plan files handing us raw
// YAML values and command lines handing us a comma separated string.
func parseSizes(rc *workspace.Context) []int {
	value, ok := rc.Get(workspace.KeySizes)
	if !ok {
		return nil
	}
	switch sizes := value.(type) {
	case []int:
		return sizes
	case []any:
		out := make([]int, 0, len(sizes))
		for _, entry := range sizes {
			if n, ok := toInt(entry); ok {
				out = append(out, n)
			}
		}
		return out
	case string:
		fields := strings.FieldsFunc(sizes, func(r rune) bool { return r == ',' || r == ' ' })
		out := make([]int, 0, len(fields))
		for _, field := range fields {
			if n, err := strconv.Atoi(field); err == nil {
				out = append(out, n)
			}
		}
		return out
	}
	return nil
}

func toInt(value any) (int, bool) {
	switch n := value.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(n))
		return parsed, err == nil
	}
	return 0, false
}
