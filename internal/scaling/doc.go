// Package scaling runs multi-size scaling studies. A study pops node
// counts off a queue, brings the workload to its converged shape at each
// size through the optimization loop, records one figure of merit per
// size, and lets the decision service rule after every size whether the
// study proceeds or stops.
//
// The queue is context state, not loop state: the remaining sizes are
// written back after every pop, and a size that fails mid-evaluation is
// pushed back to the head. A retried step therefore resumes the study
// exactly where it broke instead of starting over.
package scaling
