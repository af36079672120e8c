// Package plan defines the ordered step sequence the orchestrator walks.
//
// A plan file names a workflow and lists its steps:
//
//	name: lammps-gke
//	description: Build and run LAMMPS on GKE
//	plan:
//	  - agent: build
//	    attempts: 3
//	  - agent: deploy
//	    description: Deploy {{ .application }} as a cluster job.
//
// Each step names a registered agent and may bound how often the
// orchestrator will re-run that agent before escalating to recovery.
// The shape is all the engine requires; files may be YAML or JSON.
package plan
