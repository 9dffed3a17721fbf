package graph_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/agentgraph/graph"
	"github.com/effective-security/agentgraph/mocks/mockllms"
	"github.com/effective-security/agentgraph/pkg/catalog"
	"github.com/effective-security/agentgraph/pkg/llmfactory"
	"github.com/effective-security/agentgraph/pkg/llms"
	"github.com/effective-security/agentgraph/pkg/tools"
	"github.com/effective-security/agentgraph/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type fakeFactory struct {
	name  string
	model llms.Model
}

func (f *fakeFactory) DefaultModel() (llms.Model, error) {
	return f.model, nil
}

func (f *fakeFactory) DefaultModelName() string {
	return f.name
}

func (f *fakeFactory) ModelByName(name string) (llms.Model, error) {
	if name == "" || name == f.name {
		return f.model, nil
	}
	return nil, errors.WithMessagef(llmfactory.ErrUnsupportedModel, "model %q is not in the allow-list", name)
}

func (f *fakeFactory) SupportedModels() []string {
	return []string{f.name}
}

type fakeTool struct {
	name string
	call func(ctx context.Context, input string) (string, error)
}

func (t *fakeTool) Name() string        { return t.name }
func (t *fakeTool) Description() string { return t.name + " tool" }
func (t *fakeTool) Parameters() any     { return map[string]any{"type": "object"} }
func (t *fakeTool) Call(ctx context.Context, input string) (string, error) {
	return t.call(ctx, input)
}

type fakeDiscoverer struct {
	tools []tools.ITool
}

func (d *fakeDiscoverer) Discover(ctx context.Context) (*catalog.Discovery, error) {
	return &catalog.Discovery{Tools: d.tools}, nil
}

func newConfig(t *testing.T) (*mockllms.MockModel, graph.Config) {
	t.Helper()
	ctrl := gomock.NewController(t)
	model := mockllms.NewMockModel(ctrl)
	model.EXPECT().GetName().Return("gpt-5-mini").AnyTimes()

	echo := &fakeTool{
		name: "search",
		call: func(_ context.Context, input string) (string, error) {
			return "found:" + input, nil
		},
	}
	svc := catalog.NewService(&catalog.Config{},
		catalog.WithDiscoverer(&fakeDiscoverer{tools: []tools.ITool{echo}}))

	return model, graph.Config{
		ModelName: "gpt-5-mini",
		Factory:   &fakeFactory{name: "gpt-5-mini", model: model},
		Catalog:   svc,
	}
}

func textResponse(text string) *llms.ContentResponse {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: text, StopReason: "stop"}},
	}
}

func toolCallResponse(calls ...llms.ToolCall) *llms.ContentResponse {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{StopReason: "tool_calls", ToolCalls: calls}},
	}
}

func TestShouldContinue(t *testing.T) {
	searchCall := llms.ToolCall{
		ID:   "call_1",
		Type: "function",
		FunctionCall: &llms.FunctionCall{
			Name:      "search",
			Arguments: "{}",
		},
	}
	tcases := []struct {
		name  string
		state graph.State
		exp   string
	}{
		{
			name:  "empty state ends",
			state: graph.NewState(),
			exp:   graph.NodeEnd,
		},
		{
			name:  "human last ends",
			state: graph.NewState(llms.MessageFromTextParts(llms.RoleHuman, "hi")),
			exp:   graph.NodeEnd,
		},
		{
			name:  "ai text ends",
			state: graph.NewState(llms.MessageFromTextParts(llms.RoleAI, "answer")),
			exp:   graph.NodeEnd,
		},
		{
			name:  "ai tool call continues",
			state: graph.NewState(llms.MessageFromToolCalls(llms.RoleAI, searchCall)),
			exp:   graph.NodeAction,
		},
		{
			name:  "ai malformed tool call ends",
			state: graph.NewState(llms.MessageFromToolCalls(llms.RoleAI, llms.ToolCall{ID: "call_1"})),
			exp:   graph.NodeEnd,
		},
		{
			name: "tool message last ends",
			state: graph.NewState(llms.MessageFromToolResponse(llms.RoleTool, llms.ToolCallResponse{
				ToolCallID: "call_1",
				Content:    "result",
			})),
			exp: graph.NodeEnd,
		},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.exp, graph.ShouldContinue(tc.state))
		})
	}
}

func TestBuildGraph(t *testing.T) {
	g := graph.BuildGraph(graph.Config{})
	assert.Equal(t, []string{graph.NodeReasoning, graph.NodeAction}, g.Nodes())
	assert.Len(t, g.Edges(), 3)

	_, cfg := newConfig(t)
	compiled, err := graph.BuildCompiledGraph(cfg)
	require.NoError(t, err)
	require.NotNil(t, compiled)
}

func TestInvokeDirectAnswer(t *testing.T) {
	model, cfg := newConfig(t)
	memory := store.NewMemoryStore()
	cfg.Store = memory

	model.EXPECT().
		GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
			// the outbound request starts with the system prompt, which is
			// never part of the caller state
			require.NotEmpty(t, messages)
			assert.Equal(t, llms.RoleSystem, messages[0].Role)
			assert.Contains(t, llms.TextContentOf(messages[0]), "search")

			// the reasoning node requests deterministic sampling
			var opts llms.CallOptions
			for _, opt := range options {
				opt(&opts)
			}
			require.NotNil(t, opts.Temperature)
			assert.Zero(t, *opts.Temperature)
			return textResponse("the answer"), nil
		})

	g, err := graph.BuildCompiledGraph(cfg)
	require.NoError(t, err)

	ctx := store.WithChatID(context.Background(), "chat1")
	in := graph.NewState(llms.MessageFromTextParts(llms.RoleHuman, "question"))
	out, err := g.Invoke(ctx, in)
	require.NoError(t, err)

	require.Len(t, out.Messages, 2)
	assert.Equal(t, llms.RoleAI, out.Messages[1].Role)
	assert.Equal(t, "the answer", llms.TextContentOf(out.Messages[1]))

	// input state untouched
	assert.Len(t, in.Messages, 1)

	// only the appended message is persisted
	stored := memory.Messages(ctx)
	require.Len(t, stored, 1)
	assert.Equal(t, llms.RoleAI, stored[0].Role)
}

func TestInvokeToolLoop(t *testing.T) {
	model, cfg := newConfig(t)

	known := llms.ToolCall{
		ID:   "call_1",
		Type: "function",
		FunctionCall: &llms.FunctionCall{
			Name:      "search",
			Arguments: `{"q":"go"}`,
		},
	}
	unknown := llms.ToolCall{
		ID:   "call_2",
		Type: "function",
		FunctionCall: &llms.FunctionCall{
			Name:      "get_weather",
			Arguments: "{}",
		},
	}

	gomock.InOrder(
		model.EXPECT().
			GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(toolCallResponse(known, unknown), nil),
		model.EXPECT().
			GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, messages []llms.Message, _ ...llms.CallOption) (*llms.ContentResponse, error) {
				// the second round trip carries both tool results
				last := messages[len(messages)-1]
				assert.Equal(t, llms.RoleTool, last.Role)
				return textResponse("done"), nil
			}),
	)

	g, err := graph.BuildCompiledGraph(cfg)
	require.NoError(t, err)

	out, err := g.Invoke(context.Background(), graph.NewState(llms.MessageFromTextParts(llms.RoleHuman, "question")))
	require.NoError(t, err)

	// human, AI tool request, two tool results in emission order, final AI
	require.Len(t, out.Messages, 5)
	assert.Equal(t, llms.RoleAI, out.Messages[1].Role)
	require.Len(t, llms.ToolCallsOf(out.Messages[1]), 2)

	first := out.Messages[2].Parts[0].(llms.ToolCallResponse)
	assert.Equal(t, "call_1", first.ToolCallID)
	assert.Equal(t, `found:{"q":"go"}`, first.Content)

	second := out.Messages[3].Parts[0].(llms.ToolCallResponse)
	assert.Equal(t, "call_2", second.ToolCallID)
	assert.Contains(t, second.Content, "not found")

	assert.Equal(t, "done", llms.TextContentOf(out.Messages[4]))
}

func TestInvokeModelError(t *testing.T) {
	model, cfg := newConfig(t)

	model.EXPECT().
		GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("rate limited"))

	g, err := graph.BuildCompiledGraph(cfg)
	require.NoError(t, err)

	out, err := g.Invoke(context.Background(), graph.NewState(llms.MessageFromTextParts(llms.RoleHuman, "question")))
	require.NoError(t, err)

	// the failure ends the turn with a terminal AI message
	require.Len(t, out.Messages, 2)
	assert.Equal(t, llms.RoleAI, out.Messages[1].Role)
	assert.Contains(t, llms.TextContentOf(out.Messages[1]), "rate limited")
}

func TestInvokeStepBudget(t *testing.T) {
	model, cfg := newConfig(t)
	cfg.StepBudget = 3

	loop := llms.ToolCall{
		ID:   "call_1",
		Type: "function",
		FunctionCall: &llms.FunctionCall{
			Name:      "search",
			Arguments: "{}",
		},
	}
	model.EXPECT().
		GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(toolCallResponse(loop), nil).
		Times(3)

	g, err := graph.BuildCompiledGraph(cfg)
	require.NoError(t, err)

	out, err := g.Invoke(context.Background(), graph.NewState(llms.MessageFromTextParts(llms.RoleHuman, "question")))
	require.NoError(t, err)

	last, ok := out.LastMessage()
	require.True(t, ok)
	assert.Equal(t, llms.RoleAI, last.Role)
	assert.Contains(t, llms.TextContentOf(last), "3 reasoning steps")
}

func TestInvokeUnsupportedModel(t *testing.T) {
	_, cfg := newConfig(t)
	cfg.ModelName = "gpt-9-turbo"

	g, err := graph.BuildCompiledGraph(cfg)
	require.NoError(t, err)

	_, err = g.Invoke(context.Background(), graph.NewState(llms.MessageFromTextParts(llms.RoleHuman, "question")))
	require.Error(t, err)
	assert.True(t, errors.Is(err, llmfactory.ErrUnsupportedModel))
}

func TestInvokeConcurrentIsolation(t *testing.T) {
	model, cfg := newConfig(t)

	// the model echoes the question it was asked, so any state
	// cross-contamination between concurrent turns is observable
	model.EXPECT().
		GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, messages []llms.Message, _ ...llms.CallOption) (*llms.ContentResponse, error) {
			var question string
			for _, msg := range messages {
				if msg.Role == llms.RoleHuman {
					question = llms.TextContentOf(msg)
				}
			}
			return textResponse("answer to " + question), nil
		}).
		Times(16)

	g, err := graph.BuildCompiledGraph(cfg)
	require.NoError(t, err)

	results := make([]graph.State, 16)
	errs := make([]error, 16)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			question := fmt.Sprintf("question %d", i)
			results[i], errs[i] = g.Invoke(context.Background(),
				graph.NewState(llms.MessageFromTextParts(llms.RoleHuman, question)))
		}(i)
	}
	wg.Wait()

	for i := 0; i < 16; i++ {
		require.NoError(t, errs[i])
		require.Len(t, results[i].Messages, 2, "turn %d", i)
		assert.Equal(t, fmt.Sprintf("question %d", i), llms.TextContentOf(results[i].Messages[0]))
		assert.Equal(t, fmt.Sprintf("answer to question %d", i), llms.TextContentOf(results[i].Messages[1]))
	}
}

func TestStream(t *testing.T) {
	model, cfg := newConfig(t)

	model.EXPECT().
		GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(textResponse("streamed answer"), nil)

	g, err := graph.BuildCompiledGraph(cfg)
	require.NoError(t, err)

	var updates []graph.Update
	for update := range g.Stream(context.Background(), graph.NewState(llms.MessageFromTextParts(llms.RoleHuman, "question"))) {
		updates = append(updates, update)
	}
	require.NotEmpty(t, updates)

	assert.Equal(t, graph.NodeReasoning, updates[0].Node)
	final := updates[len(updates)-1]
	assert.Equal(t, graph.NodeEnd, final.Node)
	require.NoError(t, final.Err)
	assert.Equal(t, "streamed answer", llms.TextContentOf(final.State.Messages[len(final.State.Messages)-1]))
}
