package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/agentgraph/pkg/bindings"
	"github.com/effective-security/agentgraph/pkg/catalog"
	"github.com/effective-security/agentgraph/pkg/invoker"
	"github.com/effective-security/agentgraph/pkg/llmfactory"
	"github.com/effective-security/agentgraph/pkg/llms"
	"github.com/effective-security/agentgraph/pkg/llmutils"
	"github.com/effective-security/agentgraph/pkg/metricskey"
	"github.com/effective-security/agentgraph/store"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/agentgraph", "graph")

// Node names.
const (
	NodeReasoning = "reasoning"
	NodeAction    = "action"
	NodeEnd       = "end"
)

// DefaultStepBudget bounds reasoning steps in one Invoke. A turn that keeps
// requesting tools past this point is looping, not converging.
const DefaultStepBudget = 25

// DefaultSystemPrompt frames the agent for the model.
const DefaultSystemPrompt = "You are a helpful assistant. " +
	"Use the available tools when they help you answer, and call them with exact names and valid JSON arguments. " +
	"When you have enough information, answer directly."

// Config configures a graph.
type Config struct {
	// ModelName selects a model from the factory allow-list.
	// Empty selects the configured default model.
	ModelName string
	// SystemPrompt overrides DefaultSystemPrompt.
	SystemPrompt string
	// StepBudget bounds reasoning steps per Invoke; non-positive means
	// DefaultStepBudget.
	StepBudget int
	// Callback observes graph execution; nil means no observation.
	Callback Callback
	// Store, when set, receives every message the turn appends.
	Store store.MessageStore

	// Factory, Catalog, Bindings and Invoker override the runtime
	// dependencies; nil fields get process-wide defaults at Compile.
	Factory  llmfactory.Factory
	Catalog  *catalog.Service
	Bindings *bindings.Cache
	Invoker  *invoker.Invoker
}

// Edge is a directed transition between nodes. Conditional edges are routed
// by ShouldContinue at run time.
type Edge struct {
	From        string
	To          string
	Conditional bool
}

// Graph is the uncompiled graph definition: nodes and edges are inspectable,
// the runtime dependencies are not resolved yet.
type Graph struct {
	cfg   Config
	entry string
	nodes []string
	edges []Edge
}

// BuildGraph defines the agent graph for the config.
func BuildGraph(cfg Config) *Graph {
	return &Graph{
		cfg:   cfg,
		entry: NodeReasoning,
		nodes: []string{NodeReasoning, NodeAction},
		edges: []Edge{
			{From: NodeReasoning, To: NodeAction, Conditional: true},
			{From: NodeReasoning, To: NodeEnd, Conditional: true},
			{From: NodeAction, To: NodeReasoning},
		},
	}
}

// Nodes returns the node names.
func (g *Graph) Nodes() []string {
	return g.nodes
}

// Edges returns the graph transitions.
func (g *Graph) Edges() []Edge {
	return g.edges
}

// Compile resolves runtime dependencies and returns an executable graph.
// A compiled graph is safe for concurrent Invoke on disjoint states.
func (g *Graph) Compile() (*CompiledGraph, error) {
	cfg := g.cfg

	factory := cfg.Factory
	if factory == nil {
		factory = llmfactory.New(llmfactory.DefaultConfig())
	}
	catalogSvc := cfg.Catalog
	if catalogSvc == nil {
		catalogSvc = catalog.Default()
	}
	bindingCache := cfg.Bindings
	if bindingCache == nil {
		bindingCache = bindings.NewCache(factory, bindings.DefaultCapacity)
	}
	toolInvoker := cfg.Invoker
	if toolInvoker == nil {
		toolInvoker = invoker.New()
	}

	if cfg.StepBudget <= 0 {
		cfg.StepBudget = DefaultStepBudget
	}

	return &CompiledGraph{
		cfg:      cfg,
		entry:    g.entry,
		factory:  factory,
		catalog:  catalogSvc,
		bindings: bindingCache,
		invoker:  toolInvoker,
	}, nil
}

// BuildCompiledGraph builds and compiles in one step.
func BuildCompiledGraph(cfg Config) (*CompiledGraph, error) {
	return BuildGraph(cfg).Compile()
}

// CompiledGraph is an executable agent graph.
type CompiledGraph struct {
	cfg      Config
	entry    string
	factory  llmfactory.Factory
	catalog  *catalog.Service
	bindings *bindings.Cache
	invoker  *invoker.Invoker
}

// Update is one node transition emitted by Stream.
type Update struct {
	// Node is the node that just completed.
	Node string
	// State is the state after the node ran.
	State State
	// Err is set on the final update when the turn failed to start.
	Err error
}

// ShouldContinue routes from the reasoning node: the turn continues into the
// action node only when the last message is an AI message carrying at least
// one well-formed tool call. Anything else ends the turn.
func ShouldContinue(state State) string {
	last, ok := state.LastMessage()
	if !ok || last.Role != llms.RoleAI {
		return NodeEnd
	}
	if len(llms.NormalizeToolCalls(llms.ToolCallsOf(last))) > 0 {
		return NodeAction
	}
	return NodeEnd
}

// Invoke runs one agent turn to completion and returns the final state.
// Model failures and tool failures do not fail the turn: they are folded
// into the transcript as messages. The only error conditions are
// configuration problems, such as a model name outside the allow-list.
func (g *CompiledGraph) Invoke(ctx context.Context, state State) (State, error) {
	return g.run(ctx, state, nil)
}

// Stream runs one agent turn and emits the state after every node. The
// channel is closed after the final update, whose Node is NodeEnd.
func (g *CompiledGraph) Stream(ctx context.Context, state State) <-chan Update {
	ch := make(chan Update, 8)
	go func() {
		defer close(ch)
		final, err := g.run(ctx, state, func(node string, st State) {
			select {
			case ch <- Update{Node: node, State: st}:
			case <-ctx.Done():
			}
		})
		select {
		case ch <- Update{Node: NodeEnd, State: final, Err: err}:
		case <-ctx.Done():
		}
	}()
	return ch
}

type run struct {
	bound  *bindings.BoundModel
	cat    *catalog.Catalog
	steps  int
	notify func(node string, st State)
}

func (g *CompiledGraph) run(ctx context.Context, state State, notify func(string, State)) (State, error) {
	started := time.Now()

	cat := g.catalog.GetTools(ctx)
	bound, err := g.bindings.Bind(g.cfg.ModelName, cat)
	if err != nil {
		metricskey.StatsGraphTurnsFailed.IncrCounter(1, g.cfg.ModelName)
		return state, errors.WithMessage(err, "failed to bind model")
	}
	modelName := bound.Model.GetName()
	defer metricskey.PerfGraphTurn.MeasureSince(started, modelName)

	st := State{Messages: append([]llms.Message{}, state.Messages...)}
	r := &run{
		bound:  bound,
		cat:    cat,
		notify: notify,
	}

	node := g.entry
	for node != NodeEnd {
		if g.cfg.Callback != nil {
			g.cfg.Callback.OnNodeStart(ctx, node, st)
		}
		switch node {
		case NodeReasoning:
			node = g.reasoningNode(ctx, r, &st)
		case NodeAction:
			node = g.actionNode(ctx, r, &st)
		default:
			metricskey.StatsGraphTurnsFailed.IncrCounter(1, modelName)
			return st, errors.Newf("unknown node: %s", node)
		}
	}

	g.persist(ctx, state, st)
	metricskey.StatsGraphTurnsSucceeded.IncrCounter(1, modelName)
	return st, nil
}

// reasoningNode sends the transcript to the model and appends exactly one AI
// message: the model's answer, its tool call request, or a terminal message
// describing a model failure.
func (g *CompiledGraph) reasoningNode(ctx context.Context, r *run, st *State) string {
	if r.steps >= g.cfg.StepBudget {
		logger.ContextKV(ctx, xlog.WARNING,
			"status", "step_budget_exhausted",
			"steps", r.steps)
		st.append(llms.MessageFromTextParts(llms.RoleAI,
			fmt.Sprintf("I was unable to finish within %d reasoning steps. Here is what I have so far; please narrow the request and try again.", g.cfg.StepBudget)))
		r.emit(NodeReasoning, *st)
		return NodeEnd
	}
	r.steps++

	modelName := r.bound.Model.GetName()
	outbound := make([]llms.Message, 0, len(st.Messages)+1)
	outbound = append(outbound, llms.MessageFromTextParts(llms.RoleSystem, g.systemPrompt(r.cat)))
	outbound = append(outbound, st.Messages...)

	metricskey.StatsLLMMessagesSent.IncrCounter(float64(len(outbound)), modelName)
	metricskey.StatsLLMBytesSent.IncrCounter(float64(llmutils.CountMessagesContentSize(outbound)), modelName)

	// Temperature 0 keeps tool selection reproducible across turns.
	resp, err := r.bound.Model.GenerateContent(ctx, outbound,
		llms.WithTools(r.bound.Tools),
		llms.WithTemperature(0))
	if err == nil && len(resp.Choices) == 0 {
		err = errors.New("model returned no choices")
	}
	if err != nil {
		// A model failure ends the turn with a well-formed transcript
		// instead of propagating.
		logger.ContextKV(ctx, xlog.ERROR,
			"status", "model_call_failed",
			"model", modelName,
			"err", err.Error())
		if g.cfg.Callback != nil {
			g.cfg.Callback.OnModelError(ctx, modelName, err)
		}
		st.append(llms.MessageFromTextParts(llms.RoleAI,
			"I was unable to get a response from the model: "+err.Error()))
		r.emit(NodeReasoning, *st)
		return NodeEnd
	}

	metricskey.StatsLLMBytesReceived.IncrCounter(float64(llmutils.CountResponseContentSize(resp)), modelName)
	tokensIn, tokensOut, _ := llmutils.CountTokens(resp)
	metricskey.StatsLLMInputTokens.IncrCounter(float64(tokensIn), modelName)
	metricskey.StatsLLMOutputTokens.IncrCounter(float64(tokensOut), modelName)

	if g.cfg.Callback != nil {
		g.cfg.Callback.OnModelResponse(ctx, modelName, resp)
	}

	choice := resp.Choices[0]
	var parts []llms.ContentPart
	if choice.Content != "" {
		parts = append(parts, llms.TextContent{Text: choice.Content})
	}
	for _, tc := range llms.NormalizeToolCalls(choice.ToolCalls) {
		parts = append(parts, tc)
	}
	if len(parts) == 0 {
		parts = append(parts, llms.TextContent{Text: ""})
	}
	st.append(llms.MessageFromParts(llms.RoleAI, parts...))

	r.emit(NodeReasoning, *st)
	return ShouldContinue(*st)
}

// actionNode executes every tool call on the latest AI message and appends
// one tool message per call, in emission order.
func (g *CompiledGraph) actionNode(ctx context.Context, r *run, st *State) string {
	last, ok := st.LastMessage()
	if !ok {
		return NodeEnd
	}
	st.append(g.invoker.InvokeAll(ctx, r.cat, llms.ToolCallsOf(last))...)
	r.emit(NodeAction, *st)
	return NodeReasoning
}

func (g *CompiledGraph) systemPrompt(cat *catalog.Catalog) string {
	prompt := values.StringsCoalesce(g.cfg.SystemPrompt, DefaultSystemPrompt)
	if specs := cat.Specs(); len(specs) > 0 {
		prompt += "\n\nAvailable tools:\n" + catalog.PromptSummary(specs)
	}
	return prompt
}

// persist appends the messages this turn produced to the configured store.
func (g *CompiledGraph) persist(ctx context.Context, before, after State) {
	if g.cfg.Store == nil {
		return
	}
	for _, msg := range after.Messages[len(before.Messages):] {
		if err := g.cfg.Store.Add(ctx, msg); err != nil {
			logger.ContextKV(ctx, xlog.ERROR,
				"status", "store_add_failed",
				"err", err.Error())
			return
		}
	}
}

func (r *run) emit(node string, st State) {
	if r.notify != nil {
		r.notify(node, st)
	}
}
