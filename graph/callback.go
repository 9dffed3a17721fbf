package graph

import (
	"context"
	"fmt"
	"io"

	"github.com/effective-security/agentgraph/pkg/llms"
)

// Callback observes graph execution. All methods may be called from the
// goroutine running the graph; implementations must be safe for that.
type Callback interface {
	// OnNodeStart is called before a node runs.
	OnNodeStart(ctx context.Context, node string, state State)
	// OnModelResponse is called after a successful model generation.
	OnModelResponse(ctx context.Context, model string, resp *llms.ContentResponse)
	// OnModelError is called when a model generation fails.
	OnModelError(ctx context.Context, model string, err error)
}

// NoopCallback ignores all events.
type NoopCallback struct{}

var _ Callback = NoopCallback{}

func (NoopCallback) OnNodeStart(context.Context, string, State)                     {}
func (NoopCallback) OnModelResponse(context.Context, string, *llms.ContentResponse) {}
func (NoopCallback) OnModelError(context.Context, string, error)                    {}

// PrinterCallback writes a trace of graph activity to a writer,
// useful in CLI tools and examples.
type PrinterCallback struct {
	Out io.Writer
}

var _ Callback = PrinterCallback{}

func (p PrinterCallback) OnNodeStart(_ context.Context, node string, state State) {
	fmt.Fprintf(p.Out, ">> node %s (%d messages)\n", node, len(state.Messages))
}

func (p PrinterCallback) OnModelResponse(_ context.Context, model string, resp *llms.ContentResponse) {
	for _, choice := range resp.Choices {
		if choice.Content != "" {
			fmt.Fprintf(p.Out, "<< %s: %s\n", model, choice.Content)
		}
		for _, tc := range choice.ToolCalls {
			fmt.Fprintf(p.Out, "<< %s requests tool %s(%s)\n", model, tc.FunctionCall.Name, tc.FunctionCall.Arguments)
		}
	}
}

func (p PrinterCallback) OnModelError(_ context.Context, model string, err error) {
	fmt.Fprintf(p.Out, "!! %s: %s\n", model, err.Error())
}
