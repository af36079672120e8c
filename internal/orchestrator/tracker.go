package orchestrator

import (
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
)

// StepRecord is one executed agent run in a run's history.
type StepRecord struct {
	Agent   string
	Attempt int
	Elapsed time.Duration
	Code    int
}

// Tracker accumulates the execution history of one run under a unique
// run id.
type Tracker struct {
	runID   string
	started time.Time
	records []StepRecord
}

// NewTracker starts the history for a new run.
func NewTracker() *Tracker {
	return &Tracker{
		runID:   uuid.NewString(),
		started: time.Now(),
	}
}

// RunID returns the unique id of this run.
func (t *Tracker) RunID() string { return t.runID }

// Record appends one executed agent run.
func (t *Tracker) Record(agent string, attempt int, elapsed time.Duration, code int) {
	t.records = append(t.records, StepRecord{
		Agent:   agent,
		Attempt: attempt,
		Elapsed: elapsed,
		Code:    code,
	})
}

// Records returns the history so far.
func (t *Tracker) Records() []StepRecord { return t.records }

// Elapsed returns the wall time since the run started.
func (t *Tracker) Elapsed() time.Duration { return time.Since(t.started) }

// Table renders the history as the human-facing run summary.
func (t *Tracker) Table() string {
	w := table.NewWriter()
	w.SetStyle(table.StyleRounded)
	w.SetTitle("Run %s", t.runID)
	w.AppendHeader(table.Row{"#", "Agent", "Attempt", "Elapsed", "Status"})
	for i, rec := range t.records {
		status := "ok"
		if rec.Code != 0 {
			status = "failed"
		}
		w.AppendRow(table.Row{i + 1, rec.Agent, rec.Attempt, rec.Elapsed.Round(time.Millisecond), status})
	}
	return w.Render()
}
