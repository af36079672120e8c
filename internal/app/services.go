package app

import (
	"errors"
	"fmt"

	"foreman/internal/build"
	"foreman/internal/cluster"
	"foreman/internal/cost"
	"foreman/internal/deploy"
	"foreman/internal/optimize"
	"foreman/internal/oracle"
	"foreman/internal/orchestrator"
	"foreman/internal/recovery"
	"foreman/internal/results"
	"foreman/internal/scaling"
	"foreman/internal/workspace"
	"foreman/pkg/logging"
)

// Services holds the wired components of one foreman invocation.
//
// The components are initialized in dependency order:
//  1. Workspace (the run context every step reads and writes)
//  2. Decision service client and the typed decider around it
//  3. Agents, assembled from cluster executor, build tool and decider
//  4. Recovery router and the orchestrator on top of the registry
type Services struct {
	// Oracle is the connection to the external decision service.
	Oracle *oracle.Client

	// Registry is the agent catalog plans resolve against.
	Registry *orchestrator.Registry

	// Engine walks plans and routes step failures through recovery.
	Engine *orchestrator.Orchestrator

	// Workspace is the run context shared by all plan steps.
	Workspace *workspace.Context
}

// InitializeServices wires the components for one run.
//
// The decision service client is always constructed; connecting is
// deferred to Run so listings work offline. The cluster executor and
// the container build tool are probed here, and their agents are
// registered only when the environment provides them, so plans that do
// not use those steps still run. A plan naming an unregistered agent
// fails at resolve time, before any step executes.
func InitializeServices(cfg *Config) (*Services, error) {
	fc := *cfg.ForemanConfig

	rc, err := workspace.New(fc.Workspace.Dir, fc.Workspace.Keep)
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}
	if fc.Workspace.Watch {
		if err := rc.EnableWatcher(); err != nil {
			logging.Warn("Bootstrap", "Workspace watcher unavailable: %s", err)
		}
	}

	client := oracle.NewClient(fc.Oracle)
	decider := oracle.NewDecider(client, fc.Oracle.Reformulations)
	parser := results.NewParser(decider, fc.Oracle.Reformulations)

	registry := orchestrator.NewRegistry()

	// Agents register in workflow order: build the image, run the
	// workload, estimate cost. Recovery prompts list them this way.
	if builder, err := build.NewCLIBuilder(fc.Build); err != nil {
		logging.Warn("Bootstrap", "Container build tool unavailable, %q steps will not resolve: %s", build.AgentName, err)
	} else if err := registry.Register(build.NewAgent(builder, decider, decider, fc.Build)); err != nil {
		return nil, err
	}

	if executor, err := cluster.NewExecutor(fc.Cluster); err != nil {
		logging.Warn("Bootstrap", "Cluster unavailable, %q steps will not resolve: %s", deploy.AgentName, err)
	} else {
		controller := deploy.NewController(executor, fc.Deploy)
		loop := optimize.NewLoop(decider, parser, controller, fc.Optimize)
		sweep := scaling.NewSweep(decider, loop, controller)
		agent := deploy.NewAgent(controller, decider, decider, loop, sweep, fc.Deploy, fc.Build.NoPull)
		if err := registry.Register(agent); err != nil {
			return nil, err
		}
	}

	if err := registry.Register(cost.NewAgent(decider)); err != nil {
		return nil, err
	}

	router := recovery.NewRouter(decider, registry)
	engine := orchestrator.New(orchestrator.Config{
		Catalog:  registry,
		Recovery: router,
	})

	return &Services{
		Oracle:    client,
		Registry:  registry,
		Engine:    engine,
		Workspace: rc,
	}, nil
}

// Close disconnects the decision service and cleans up the workspace.
func (s *Services) Close() error {
	var errs []error
	if err := s.Oracle.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close decision service connection: %w", err))
	}
	if err := s.Workspace.Cleanup(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
