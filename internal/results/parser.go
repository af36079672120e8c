package results

import (
	"context"
	"regexp"
	"strings"

	"foreman/internal/api"
	"foreman/pkg/logging"
)

// Parser extracts figures of merit from run logs. A caller-supplied
// expression is used as-is; without one the decision service proposes an
// expression, and proposals that match nothing are rejected and re-asked
// within a bounded number of attempts.
type Parser struct {
	oracle   api.ExpressionOracle
	attempts int

	// expression caches the last expression that produced a match, so a
	// study parses every size's log the same way.
	expression string
}

// NewParser builds a Parser. attempts bounds how many expression
// proposals are tried before giving up; values below one are raised to
// one.
func NewParser(oracle api.ExpressionOracle, attempts int) *Parser {
	if attempts < 1 {
		attempts = 1
	}
	return &Parser{oracle: oracle, attempts: attempts}
}

// Extract returns the metric of interest from logText. The requirement
// describes what to look for, in the words of the optimization directive.
// A non-empty expression pins the extraction and bypasses the decision
// service entirely. Multiple matches are joined with single spaces.
func (p *Parser) Extract(ctx context.Context, requirement, logText, expression string) (string, error) {
	if expression != "" {
		p.expression = expression
	}

	if p.expression != "" {
		value, err := match(p.expression, logText)
		if err != nil {
			return "", err
		}
		if value != "" {
			return value, nil
		}
		// A pinned expression that stops matching is a hard error; a
		// cached one is just stale.
		if expression != "" {
			return "", api.NewWorkloadError(api.FailureOracleMalformed,
				"expression %q matched nothing in the run log", expression)
		}
		p.expression = ""
	}

	if p.oracle == nil {
		return "", api.ErrNoOracle
	}

	var rejected []string
	for attempt := 1; attempt <= p.attempts; attempt++ {
		proposed, err := p.oracle.ProposeExpression(ctx, api.ExpressionRequest{
			Requirement: requirement,
			Log:         logText,
			Rejected:    rejected,
		})
		if err != nil {
			return "", err
		}

		value, err := match(proposed, logText)
		if err != nil {
			logging.Warn("Results", "Proposed expression %q does not compile: %v", proposed, err)
			rejected = append(rejected, proposed)
			continue
		}
		if value == "" {
			logging.Debug("Results", "Proposed expression %q matched nothing", proposed)
			rejected = append(rejected, proposed)
			continue
		}

		logging.Info("Results", "Expression %q extracted %q", proposed, value)
		p.expression = proposed
		return value, nil
	}

	return "", api.NewWorkloadError(api.FailureOracleMalformed,
		"no proposed expression matched the run log after %d attempts", p.attempts)
}

// match runs the expression over the log. With a capture group the group
// text is taken, otherwise the whole match; multiple hits are joined with
// spaces.
func match(expression, logText string) (string, error) {
	re, err := regexp.Compile(expression)
	if err != nil {
		return "", err
	}

	var values []string
	for _, m := range re.FindAllStringSubmatch(logText, -1) {
		value := m[0]
		if len(m) > 1 && m[1] != "" {
			value = m[1]
		}
		values = append(values, value)
	}
	return strings.Join(values, " "), nil
}
