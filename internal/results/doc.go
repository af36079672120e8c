// Package results turns raw run logs into figures of merit. The metric of
// interest is named by the optimization directive ("minimize the wall
// time", "maximize ns/day"), and extraction is a regular expression that
// either the caller pins or the decision service proposes against a
// sample log.
package results
