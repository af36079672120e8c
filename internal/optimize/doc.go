// Package optimize reruns a succeeded workload under decision-service
// guidance until its resource shape converges. The service only ever gets
// to move a whitelisted set of fields: container resources, environment
// variables, arguments and the job-level node count. The command itself
// and the problem size are off limits no matter what a patch claims.
package optimize
