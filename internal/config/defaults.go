package config

const (
	// DefaultOracleEndpoint is where the decision service is expected to listen.
	DefaultOracleEndpoint = "http://localhost:8090/mcp"

	// DefaultNamespace is used when a manifest does not declare one.
	DefaultNamespace = "default"

	// DefaultPollIntervalSeconds is the pause between workload status polls.
	DefaultPollIntervalSeconds = 5

	// DefaultMaxPollAttempts bounds the poll loop (30 * 5s = 150s ceiling).
	DefaultMaxPollAttempts = 30

	// DefaultOptimizeIterations caps how often an optimization loop may
	// accept a RETRY verdict before stopping with the best result so far.
	DefaultOptimizeIterations = 20

	// DefaultOracleTool is the MCP tool the oracle client calls with a
	// rendered prompt.
	DefaultOracleTool = "ask"

	// DefaultOracleReformulations is how often a malformed oracle decision
	// is re-prompted before it becomes a step failure.
	DefaultOracleReformulations = 3

	// DefaultOracleTimeoutSeconds bounds one oracle request.
	DefaultOracleTimeoutSeconds = 300

	// DefaultBuildBinary builds container images.
	DefaultBuildBinary = "docker"

	// DefaultAgentAttempts bounds an agent's internal retry loop, e.g. how
	// often the deploy step regenerates a manifest before reporting the
	// failure to the orchestrator.
	DefaultAgentAttempts = 5
)

// GetDefaultConfig returns the default configuration for foreman.
func GetDefaultConfig() ForemanConfig {
	return ForemanConfig{
		Cluster: ClusterConfig{
			Namespace: DefaultNamespace,
		},
		Oracle: OracleConfig{
			Endpoint:       DefaultOracleEndpoint,
			Transport:      MCPTransportStreamableHTTP,
			Tool:           DefaultOracleTool,
			Reformulations: DefaultOracleReformulations,
			TimeoutSeconds: DefaultOracleTimeoutSeconds,
		},
		Deploy: DeployConfig{
			PollIntervalSeconds: DefaultPollIntervalSeconds,
			MaxPollAttempts:     DefaultMaxPollAttempts,
			MaxAttempts:         DefaultAgentAttempts,
			Cleanup:             true,
		},
		Optimize: OptimizeConfig{
			MaxIterations: DefaultOptimizeIterations,
		},
		Build: BuildConfig{
			Binary:      DefaultBuildBinary,
			NetworkHost: true,
			MaxAttempts: DefaultAgentAttempts,
		},
	}
}
