package config

// ForemanConfig is the top-level configuration structure for foreman.
type ForemanConfig struct {
	Workspace WorkspaceConfig `yaml:"workspace"`
	Cluster   ClusterConfig   `yaml:"cluster"`
	Oracle    OracleConfig    `yaml:"oracle"`
	Deploy    DeployConfig    `yaml:"deploy"`
	Optimize  OptimizeConfig  `yaml:"optimize"`
	Build     BuildConfig     `yaml:"build"`
}

const (
	// MCPTransportStreamableHTTP is the streamable HTTP transport.
	MCPTransportStreamableHTTP = "streamable-http"
	// MCPTransportSSE is the Server-Sent Events transport.
	MCPTransportSSE = "sse"
	// MCPTransportStdio is the standard I/O transport.
	MCPTransportStdio = "stdio"
)

// WorkspaceConfig controls the on-disk workspace backing the run context.
type WorkspaceConfig struct {
	Dir   string            `yaml:"dir,omitempty"`   // Workspace directory (default: a temporary directory)
	Keep  bool              `yaml:"keep,omitempty"`  // Keep the workspace after the run instead of removing it
	Watch bool              `yaml:"watch,omitempty"` // Watch the workspace for out-of-band artifact edits
	Vars  map[string]string `yaml:"vars,omitempty"`  // Initial run context values, also plan template variables
}

// ClusterConfig defines how the cluster executor connects.
type ClusterConfig struct {
	Kubeconfig string `yaml:"kubeconfig,omitempty"` // Path to kubeconfig (default: in-cluster, then ~/.kube/config)
	Namespace  string `yaml:"namespace,omitempty"`  // Namespace for workloads (default: "default")
}

// OracleConfig defines the connection to the external decision service.
type OracleConfig struct {
	Endpoint       string `yaml:"endpoint,omitempty"`       // MCP endpoint URL (default: http://localhost:8090/mcp)
	Transport      string `yaml:"transport,omitempty"`      // Transport to use (default: streamable-http)
	Command        string `yaml:"command,omitempty"`        // Command to launch for the stdio transport
	Tool           string `yaml:"tool,omitempty"`           // Decision tool to call (default: "ask")
	Reformulations int    `yaml:"reformulations,omitempty"` // Re-prompt attempts on malformed decisions (default: 3)
	TimeoutSeconds int    `yaml:"timeoutSeconds,omitempty"` // Per-request timeout in seconds (default: 300)
}

// DeployConfig bounds the workload poll loop and the deploy step's
// internal generate-and-retry cycle.
type DeployConfig struct {
	PollIntervalSeconds int  `yaml:"pollIntervalSeconds,omitempty"` // Seconds between status polls (default: 5)
	MaxPollAttempts     int  `yaml:"maxPollAttempts,omitempty"`     // Poll iterations before timeout (default: 30)
	MaxRuntimeSeconds   int  `yaml:"maxRuntimeSeconds,omitempty"`   // Acceptable workload runtime; 0 means unbounded
	MaxAttempts         int  `yaml:"maxAttempts,omitempty"`         // Generate-deploy cycles before the step fails (default: 5)
	Cleanup             bool `yaml:"cleanup"`                       // Delete workloads after terminal states (default: true)
}

// OptimizeConfig bounds the optimization sub-loop.
type OptimizeConfig struct {
	MaxIterations int `yaml:"maxIterations,omitempty"` // Hard ceiling on RETRY verdicts (default: 20)
}

// BuildConfig controls container image builds.
type BuildConfig struct {
	Binary      string `yaml:"binary,omitempty"`      // Build tool binary (default: "docker")
	NoPull      bool   `yaml:"noPull,omitempty"`      // Build and run without pulling from a registry
	NetworkHost bool   `yaml:"networkHost"`           // Build with host networking (default: true)
	MaxAttempts int    `yaml:"maxAttempts,omitempty"` // Recipe-build cycles before the step fails (default: 5)
}
