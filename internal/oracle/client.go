package oracle

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"foreman/internal/config"
	"foreman/pkg/logging"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// Client talks to the decision service over MCP. It exposes the raw
// prompt-in, text-out surface; parsing and re-prompting live in Decider.
type Client struct {
	endpoint  string
	transport string
	command   string
	tool      string
	timeout   time.Duration

	mu        sync.Mutex
	mcpClient client.MCPClient
}

// NewClient creates an oracle client from configuration. Connect must be
// called before the first Ask.
func NewClient(cfg config.OracleConfig) *Client {
	return &Client{
		endpoint:  cfg.Endpoint,
		transport: cfg.Transport,
		command:   cfg.Command,
		tool:      cfg.Tool,
		timeout:   time.Duration(cfg.TimeoutSeconds) * time.Second,
	}
}

// Connect establishes the MCP session and performs the protocol handshake.
// Connecting twice is a no-op.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mcpClient != nil {
		return nil
	}

	logging.Info("Oracle", "Connecting to decision service at %s using %s transport", c.endpoint, c.transport)

	mcpClient, err := c.createClient(ctx)
	if err != nil {
		return err
	}

	if err := c.initialize(ctx, mcpClient); err != nil {
		if closeErr := mcpClient.Close(); closeErr != nil {
			logging.Debug("Oracle", "Error closing failed client: %v", closeErr)
		}
		return fmt.Errorf("initialization failed: %w", err)
	}

	c.mcpClient = mcpClient
	return nil
}

// createClient creates the transport-specific MCP client.
func (c *Client) createClient(ctx context.Context) (client.MCPClient, error) {
	switch c.transport {
	case config.MCPTransportSSE:
		sseClient, err := client.NewSSEMCPClient(c.endpoint)
		if err != nil {
			return nil, fmt.Errorf("failed to create SSE client: %w", err)
		}
		if err := sseClient.Start(ctx); err != nil {
			return nil, fmt.Errorf("failed to start SSE client: %w", err)
		}
		return sseClient, nil

	case config.MCPTransportStreamableHTTP:
		httpClient, err := client.NewStreamableHttpClient(c.endpoint)
		if err != nil {
			return nil, fmt.Errorf("failed to create streamable-http client: %w", err)
		}
		if err := httpClient.Start(ctx); err != nil {
			return nil, fmt.Errorf("failed to start streamable-http client: %w", err)
		}
		return httpClient, nil

	case config.MCPTransportStdio:
		parts := strings.Fields(c.command)
		if len(parts) == 0 {
			return nil, fmt.Errorf("stdio transport requires a command")
		}
		// The stdio client starts the subprocess itself.
		stdioClient, err := client.NewStdioMCPClient(parts[0], nil, parts[1:]...)
		if err != nil {
			return nil, fmt.Errorf("failed to create stdio client: %w", err)
		}
		return stdioClient, nil

	default:
		return nil, fmt.Errorf("unsupported transport type: %s", c.transport)
	}
}

// initialize performs the MCP protocol handshake.
func (c *Client) initialize(ctx context.Context, mcpClient client.MCPClient) error {
	req := mcp.InitializeRequest{
		Params: struct {
			ProtocolVersion string                 `json:"protocolVersion"`
			Capabilities    mcp.ClientCapabilities `json:"capabilities"`
			ClientInfo      mcp.Implementation     `json:"clientInfo"`
		}{
			ProtocolVersion: "2024-11-05",
			ClientInfo: mcp.Implementation{
				Name:    "foreman",
				Version: "1.0.0",
			},
			Capabilities: mcp.ClientCapabilities{},
		},
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	_, err := mcpClient.Initialize(timeoutCtx, req)
	return err
}

// Ask sends one rendered prompt to the decision tool and returns the text
// content of the reply.
func (c *Client) Ask(ctx context.Context, prompt string) (string, error) {
	c.mu.Lock()
	mcpClient := c.mcpClient
	c.mu.Unlock()

	if mcpClient == nil {
		return "", fmt.Errorf("oracle client not connected")
	}

	req := mcp.CallToolRequest{
		Params: struct {
			Name      string    `json:"name"`
			Arguments any       `json:"arguments,omitempty"`
			Meta      *mcp.Meta `json:"_meta,omitempty"`
		}{
			Name:      c.tool,
			Arguments: map[string]interface{}{"prompt": prompt},
		},
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	logging.Debug("Oracle", "Asking decision service (%d prompt bytes)", len(prompt))
	result, err := mcpClient.CallTool(timeoutCtx, req)
	if err != nil {
		return "", fmt.Errorf("tool call failed: %w", err)
	}

	var output []string
	for _, content := range result.Content {
		if textContent, ok := mcp.AsTextContent(content); ok {
			output = append(output, textContent.Text)
		}
	}
	text := strings.Join(output, "\n")

	if result.IsError {
		return "", fmt.Errorf("tool error: %s", text)
	}
	return text, nil
}

// Close tears down the MCP session.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mcpClient == nil {
		return nil
	}
	err := c.mcpClient.Close()
	c.mcpClient = nil
	return err
}
