package results

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foreman/internal/api"
)

const sampleLog = `
LAMMPS (29 Aug 2024)
Performance: 12.419 ns/day, 1.932 hours/ns
Total wall time: 0:02:14
`

// scriptedExpressions replays canned expression proposals and records the
// requests it saw.
type scriptedExpressions struct {
	proposals []string
	calls     int
	requests  []api.ExpressionRequest
}

func (s *scriptedExpressions) ProposeExpression(ctx context.Context, req api.ExpressionRequest) (string, error) {
	s.requests = append(s.requests, req)
	proposal := s.proposals[len(s.proposals)-1]
	if s.calls < len(s.proposals) {
		proposal = s.proposals[s.calls]
	}
	s.calls++
	return proposal, nil
}

func TestExtractWithPinnedExpression(t *testing.T) {
	parser := NewParser(nil, 3)

	value, err := parser.Extract(context.Background(), "extract ns/day", sampleLog, `([\d.]+) ns/day`)
	require.NoError(t, err)
	assert.Equal(t, "12.419", value)
}

func TestExtractPinnedExpressionNoMatch(t *testing.T) {
	parser := NewParser(nil, 3)

	_, err := parser.Extract(context.Background(), "extract GFLOPS", sampleLog, `([\d.]+) GFLOPS`)
	require.Error(t, err)
	assert.True(t, api.IsOracleMalformed(err))
}

func TestExtractAsksOracleForExpression(t *testing.T) {
	oracle := &scriptedExpressions{proposals: []string{`([\d.]+) ns/day`}}
	parser := NewParser(oracle, 3)

	value, err := parser.Extract(context.Background(), "extract ns/day", sampleLog, "")
	require.NoError(t, err)
	assert.Equal(t, "12.419", value)
	assert.Equal(t, 1, oracle.calls)
	assert.Equal(t, "extract ns/day", oracle.requests[0].Requirement)
}

func TestExtractRejectsNonMatchingProposals(t *testing.T) {
	oracle := &scriptedExpressions{proposals: []string{
		`([\d.]+) GFLOPS`,
		`wall time: ([\d:]+)`,
	}}
	parser := NewParser(oracle, 3)

	value, err := parser.Extract(context.Background(), "extract the wall time", sampleLog, "")
	require.NoError(t, err)
	assert.Equal(t, "0:02:14", value)

	// The second request carries the rejected first proposal.
	require.Len(t, oracle.requests, 2)
	assert.Equal(t, []string{`([\d.]+) GFLOPS`}, oracle.requests[1].Rejected)
}

func TestExtractRejectsUncompilableProposals(t *testing.T) {
	oracle := &scriptedExpressions{proposals: []string{
		`([\d.]+ ns/day`, // unbalanced paren
		`([\d.]+) ns/day`,
	}}
	parser := NewParser(oracle, 3)

	value, err := parser.Extract(context.Background(), "extract ns/day", sampleLog, "")
	require.NoError(t, err)
	assert.Equal(t, "12.419", value)
}

func TestExtractGivesUpAfterBudget(t *testing.T) {
	oracle := &scriptedExpressions{proposals: []string{`([\d.]+) GFLOPS`}}
	parser := NewParser(oracle, 2)

	_, err := parser.Extract(context.Background(), "extract GFLOPS", sampleLog, "")
	require.Error(t, err)
	assert.True(t, api.IsOracleMalformed(err))
	assert.Equal(t, 2, oracle.calls)
}

func TestExtractJoinsMultipleMatches(t *testing.T) {
	parser := NewParser(nil, 3)
	log := "iter 1: 10.5 ns/day\niter 2: 11.2 ns/day\n"

	value, err := parser.Extract(context.Background(), "extract ns/day", log, `([\d.]+) ns/day`)
	require.NoError(t, err)
	assert.Equal(t, "10.5 11.2", value)
}

func TestExtractReusesWorkingExpression(t *testing.T) {
	oracle := &scriptedExpressions{proposals: []string{`([\d.]+) ns/day`}}
	parser := NewParser(oracle, 3)

	_, err := parser.Extract(context.Background(), "extract ns/day", sampleLog, "")
	require.NoError(t, err)

	// A second log parses with the cached expression, no new proposal.
	value, err := parser.Extract(context.Background(), "extract ns/day", "now at 15.1 ns/day", "")
	require.NoError(t, err)
	assert.Equal(t, "15.1", value)
	assert.Equal(t, 1, oracle.calls)
}

func TestExtractWithoutOracleOrExpression(t *testing.T) {
	parser := NewParser(nil, 3)

	_, err := parser.Extract(context.Background(), "extract ns/day", sampleLog, "")
	require.ErrorIs(t, err, api.ErrNoOracle)
}
