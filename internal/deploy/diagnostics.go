package deploy

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"foreman/internal/api"
	"foreman/pkg/logging"
)

// metaBundle frames the evidence handed to the decision service after a
// failure. Statuses and events are rendered as compact JSON to keep the
// bundle small.
const metaBundle = `
--- JOB DESCRIPTION ---
%s

--- POD(S) DESCRIPTION ---
%s

--- NAMESPACE EVENTS (Recent) ---
%s
`

// diagnosticsLogBudget bounds how long diagnostics collection will wait on
// the log stream. A failed workload answers immediately; a stuck one must
// not stall the failure report.
const diagnosticsLogBudget = 10 * time.Second

// CollectDiagnostics assembles status, events and captured output for a
// workload that failed or timed out. Collection is best effort: whatever
// the cluster still answers for is included, the rest is left empty.
func CollectDiagnostics(ctx context.Context, executor api.ClusterExecutor, handle api.WorkloadHandle) string {
	logging.Info("Deploy", "Gathering diagnostics for failed job %s", handle.Name)

	jobDescription := "{}"
	if status, err := executor.JobStatus(ctx, handle); err == nil {
		if encoded, err := json.Marshal(status); err == nil {
			jobDescription = string(encoded)
		}
	}

	podsDescription := "{}"
	if podName, err := executor.FindPod(ctx, handle); err == nil && podName != "" {
		if status, err := executor.PodStatus(ctx, handle, podName); err == nil {
			if encoded, err := json.Marshal(status); err == nil {
				podsDescription = string(encoded)
			}
		}
	}

	eventsDescription := "[]"
	if events, err := executor.Events(ctx, handle); err == nil && len(events) > 0 {
		if encoded, err := json.Marshal(events); err == nil {
			eventsDescription = string(encoded)
		}
	}

	bundle := fmt.Sprintf(metaBundle, jobDescription, podsDescription, eventsDescription)

	if logs, _, err := executor.Logs(ctx, handle, diagnosticsLogBudget); err == nil && logs != "" {
		return bundle + logs
	}
	return bundle
}
