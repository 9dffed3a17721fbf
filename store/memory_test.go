package store_test

import (
	"context"
	"testing"

	"github.com/effective-security/agentgraph/pkg/llms"
	"github.com/effective-security/agentgraph/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := store.WithChatID(context.Background(), "chat1")

	assert.Empty(t, s.Messages(ctx))

	require.NoError(t, s.Add(ctx, llms.MessageFromTextParts(llms.RoleHuman, "hello")))
	require.NoError(t, s.Add(ctx, llms.MessageFromTextParts(llms.RoleAI, "hi")))

	msgs := s.Messages(ctx)
	require.Len(t, msgs, 2)
	assert.Equal(t, llms.RoleHuman, msgs[0].Role)
	assert.Equal(t, "hi", llms.TextContentOf(msgs[1]))

	require.NoError(t, s.Reset(ctx))
	assert.Empty(t, s.Messages(ctx))
}

func TestMemoryStoreChatIsolation(t *testing.T) {
	s := store.NewMemoryStore()
	ctx1 := store.WithChatID(context.Background(), "chat1")
	ctx2 := store.WithChatID(context.Background(), "chat2")

	require.NoError(t, s.Add(ctx1, llms.MessageFromTextParts(llms.RoleHuman, "one")))
	require.NoError(t, s.Add(ctx2, llms.MessageFromTextParts(llms.RoleHuman, "two")))

	assert.Len(t, s.Messages(ctx1), 1)
	assert.Len(t, s.Messages(ctx2), 1)
	assert.Equal(t, "one", llms.TextContentOf(s.Messages(ctx1)[0]))

	require.NoError(t, s.Reset(ctx1))
	assert.Empty(t, s.Messages(ctx1))
	assert.Len(t, s.Messages(ctx2), 1)
}

func TestMemoryStoreDefaultChat(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, llms.MessageFromTextParts(llms.RoleHuman, "no chat id")))
	assert.Len(t, s.Messages(ctx), 1)
}

func TestChatID(t *testing.T) {
	assert.Empty(t, store.GetChatID(context.Background()))

	ctx := store.WithChatID(context.Background(), "chat1")
	assert.Equal(t, "chat1", store.GetChatID(ctx))

	// empty chat ID gets a generated one
	ctx = store.WithChatID(context.Background(), "")
	assert.NotEmpty(t, store.GetChatID(ctx))

	assert.NotEqual(t, store.NewChatID(), store.NewChatID())
}

func TestMessageRoundTrip(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := store.WithChatID(context.Background(), "chat1")

	call := llms.ToolCall{
		ID:   "call_1",
		Type: "function",
		FunctionCall: &llms.FunctionCall{
			Name:      "search",
			Arguments: `{"q":"go"}`,
		},
	}
	require.NoError(t, s.Add(ctx, llms.MessageFromToolCalls(llms.RoleAI, call)))
	require.NoError(t, s.Add(ctx, llms.MessageFromToolResponse(llms.RoleTool, llms.ToolCallResponse{
		ToolCallID: "call_1",
		Name:       "search",
		Content:    "result",
	})))

	msgs := s.Messages(ctx)
	require.Len(t, msgs, 2)
	require.Len(t, llms.ToolCallsOf(msgs[0]), 1)
	assert.Equal(t, "call_1", llms.ToolCallsOf(msgs[0])[0].ID)
}
