// Package cluster adapts the Kubernetes API to the narrow surface the
// workload controller needs: create a Job from a manifest, watch its
// status and the status of its pod, stream logs, collect events, and
// tear the job down again.
//
// The package deliberately stays free of policy. Timeouts, failure
// classification and retry decisions live with the callers; cluster only
// translates "the object is gone" into a Lost failure because that fact
// is invisible through the typed status structs.
package cluster
