// Package invoker executes requested tool calls against the catalog and
// renders the outcomes as tool messages. Failures never propagate as errors:
// an unknown tool name or a failed call produces a message whose content
// describes the problem, so the model can observe it and adjust.
package invoker

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/effective-security/agentgraph/pkg/catalog"
	"github.com/effective-security/agentgraph/pkg/llms"
	"github.com/effective-security/agentgraph/pkg/metricskey"
	"github.com/effective-security/agentgraph/pkg/tools"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/agentgraph", "invoker")

// DefaultCallTimeout bounds a single tool call.
const DefaultCallTimeout = 60 * time.Second

// Invoker executes tool calls requested by the model.
type Invoker struct {
	timeout  time.Duration
	callback tools.Callback
}

// Option configures an Invoker.
type Option func(*Invoker)

// WithTimeout overrides the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(v *Invoker) {
		if d > 0 {
			v.timeout = d
		}
	}
}

// WithCallback installs a tool lifecycle callback.
func WithCallback(cb tools.Callback) Option {
	return func(v *Invoker) {
		v.callback = cb
	}
}

// New creates an Invoker.
func New(opts ...Option) *Invoker {
	v := &Invoker{
		timeout: DefaultCallTimeout,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

type callResult struct {
	response string
	index    int
}

// Invoke executes a single tool call and returns its tool message.
func (v *Invoker) Invoke(ctx context.Context, cat *catalog.Catalog, toolCall llms.ToolCall) llms.Message {
	normalized := llms.NormalizeToolCalls([]llms.ToolCall{toolCall})
	if len(normalized) == 0 {
		return llms.MessageFromToolResponse(llms.RoleTool, llms.ToolCallResponse{
			ToolCallID: toolCall.ID,
			Content:    "Malformed tool call: missing function name.",
		})
	}
	tc := normalized[0]
	return llms.MessageFromToolResponse(llms.RoleTool, llms.ToolCallResponse{
		ToolCallID: tc.ID,
		Name:       tc.FunctionCall.Name,
		Content:    v.executeOne(ctx, cat, tc),
	})
}

// InvokeAll runs all requested tool calls against the catalog and returns one
// tool message per call, ordered exactly as the calls were requested. Calls
// run concurrently; each is bounded by the per-call timeout. InvokeAll never
// fails: unknown tools and call errors are rendered into message content.
func (v *Invoker) InvokeAll(ctx context.Context, cat *catalog.Catalog, toolCalls []llms.ToolCall) []llms.Message {
	toolCalls = llms.NormalizeToolCalls(toolCalls)
	if len(toolCalls) == 0 {
		return nil
	}

	resultChan := make(chan callResult, len(toolCalls))

	var wg sync.WaitGroup
	wg.Add(len(toolCalls))
	for i, toolCall := range toolCalls {
		go func(index int, tc llms.ToolCall) {
			defer wg.Done()
			resultChan <- callResult{
				response: v.executeOne(ctx, cat, tc),
				index:    index,
			}
		}(i, toolCall)
	}
	wg.Wait()
	close(resultChan)

	// Reassemble in request order using the index.
	responses := make([]string, len(toolCalls))
	for result := range resultChan {
		if result.index >= 0 && result.index < len(responses) {
			responses[result.index] = result.response
		}
	}

	messages := make([]llms.Message, 0, len(toolCalls))
	for i, toolCall := range toolCalls {
		messages = append(messages, llms.MessageFromToolResponse(llms.RoleTool, llms.ToolCallResponse{
			ToolCallID: toolCall.ID,
			Name:       toolCall.FunctionCall.Name,
			Content:    responses[i],
		}))
	}
	return messages
}

func (v *Invoker) executeOne(ctx context.Context, cat *catalog.Catalog, tc llms.ToolCall) string {
	toolName := tc.FunctionCall.Name
	toolArgs := tc.FunctionCall.Arguments

	tool, ok := cat.Tool(toolName)
	if !ok {
		metricskey.StatsToolCallsNotFound.IncrCounter(1, toolName)
		availableTools := strings.Join(cat.Names(), ", ")
		logger.ContextKV(ctx, xlog.WARNING,
			"status", "tool_not_found",
			"tool_name", toolName,
			"available_tools", availableTools,
		)
		return fmt.Sprintf("Tool `%s` not found. Please check the tool name and try again with exact match. Available tools: %s", toolName, availableTools)
	}

	if v.callback != nil {
		v.callback.OnToolStart(ctx, tool, toolArgs)
	}

	cctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	started := time.Now()
	res, err := tool.Call(cctx, toolArgs)
	metricskey.PerfToolCall.MeasureSince(started, toolName)

	if err != nil {
		metricskey.StatsToolCallsFailed.IncrCounter(1, toolName)
		if v.callback != nil {
			v.callback.OnToolError(ctx, tool, toolArgs, err)
		}
		logger.ContextKV(ctx, xlog.WARNING,
			"status", "tool_call_failed",
			"tool_name", toolName,
			"err", err.Error(),
		)
		return fmt.Sprintf("Tool `%s` failed: %s", toolName, err.Error())
	}

	metricskey.StatsToolCallsSucceeded.IncrCounter(1, toolName)
	if v.callback != nil {
		v.callback.OnToolEnd(ctx, tool, toolArgs, res)
	}
	return res
}
