package catalog

import (
	"context"
	"encoding/json"
	"os/exec"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/agentgraph/pkg/llmutils"
	"github.com/effective-security/agentgraph/pkg/tools"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Discovery is the result of one discovery round trip: the retrieved tools
// and a closer for the underlying session.
type Discovery struct {
	Tools []tools.ITool

	close func() error
}

// Close releases the discovery session, if any.
func (d *Discovery) Close() error {
	if d == nil || d.close == nil {
		return nil
	}
	return d.close()
}

// Discoverer retrieves the available tool set from the capability server.
// Tests substitute their own implementation.
type Discoverer interface {
	Discover(ctx context.Context) (*Discovery, error)
}

// NewMCPDiscoverer returns a discoverer over the MCP protocol.
func NewMCPDiscoverer(cfg *Config) Discoverer {
	return &mcpDiscoverer{cfg: cfg}
}

type mcpDiscoverer struct {
	cfg *Config
}

func (d *mcpDiscoverer) Discover(ctx context.Context) (*Discovery, error) {
	if d.cfg == nil || strings.TrimSpace(d.cfg.Endpoint) == "" {
		return nil, errors.New("capability server endpoint is not configured")
	}
	transport, err := buildTransport(ctx, d.cfg)
	if err != nil {
		return nil, err
	}

	client := mcp.NewClient(&mcp.Implementation{Name: "agentgraph", Version: "1.0"}, nil)
	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to capability server")
	}

	var list []tools.ITool
	for tool, err := range session.Tools(ctx, nil) {
		if err != nil {
			_ = session.Close()
			return nil, errors.Wrap(err, "failed to list tools")
		}
		list = append(list, &remoteTool{
			session:     session,
			name:        tool.Name,
			description: tool.Description,
			parameters:  NormalizeSchema(tool.InputSchema),
			timeout:     d.cfg.callTimeout(),
		})
	}
	return &Discovery{Tools: list, close: session.Close}, nil
}

func buildTransport(ctx context.Context, cfg *Config) (mcp.Transport, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	isHTTP := strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://")

	switch strings.ToLower(cfg.Transport) {
	case "stdio":
		return commandTransport(ctx, endpoint)
	case "sse":
		if !isHTTP {
			return nil, errors.Newf("invalid endpoint for sse transport: %q", endpoint)
		}
		return &mcp.SSEClientTransport{Endpoint: endpoint}, nil
	case "streamable", "http":
		if !isHTTP {
			return nil, errors.Newf("invalid endpoint for streamable transport: %q", endpoint)
		}
		return &mcp.StreamableClientTransport{Endpoint: endpoint}, nil
	case "":
		if isHTTP {
			return &mcp.StreamableClientTransport{Endpoint: endpoint}, nil
		}
		return commandTransport(ctx, endpoint)
	default:
		return nil, errors.Newf("unsupported transport: %q", cfg.Transport)
	}
}

func commandTransport(ctx context.Context, cmdSpec string) (mcp.Transport, error) {
	parts := strings.Fields(cmdSpec)
	if len(parts) == 0 {
		return nil, errors.New("stdio command is empty")
	}
	// The subprocess must outlive the discovery deadline: tool calls are made
	// on the same session long after discovery returns.
	command := exec.CommandContext(context.WithoutCancel(ctx), parts[0], parts[1:]...)
	return &mcp.CommandTransport{Command: command}, nil
}

// remoteTool proxies Call to the capability server over an MCP session.
type remoteTool struct {
	session     *mcp.ClientSession
	name        string
	description string
	parameters  any
	timeout     time.Duration
}

var _ tools.ITool = (*remoteTool)(nil)

func (t *remoteTool) Name() string {
	return t.name
}

func (t *remoteTool) Description() string {
	return t.description
}

func (t *remoteTool) Parameters() any {
	return t.parameters
}

func (t *remoteTool) Call(ctx context.Context, input string) (string, error) {
	var args map[string]any
	if strings.TrimSpace(input) != "" {
		if err := json.Unmarshal(llmutils.CleanJSON([]byte(input)), &args); err != nil {
			return "", errors.Wrapf(err, "failed to unmarshal input for tool %q", t.name)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	res, err := t.session.CallTool(ctx, &mcp.CallToolParams{
		Name:      t.name,
		Arguments: args,
	})
	if err != nil {
		return "", errors.Wrapf(err, "tool %q call failed", t.name)
	}

	out := contentText(res.Content)
	if res.IsError {
		return "", errors.Newf("tool %q returned an error: %s", t.name, out)
	}
	return out, nil
}

// contentText folds result content blocks into a single string. Text blocks
// are concatenated; other block types are rendered as JSON.
func contentText(content []mcp.Content) string {
	var sb strings.Builder
	for _, block := range content {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		if text, ok := block.(*mcp.TextContent); ok {
			sb.WriteString(text.Text)
		} else {
			sb.WriteString(llmutils.ToJSON(block))
		}
	}
	return sb.String()
}
