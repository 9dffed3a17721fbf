package store

import (
	"context"
	"strconv"

	"github.com/effective-security/x/values"
	"github.com/effective-security/xdb/pkg/flake"
)

type contextKey int

const (
	keyChatID contextKey = iota
)

// WithChatID returns a new context carrying the chat ID. An empty ID is
// replaced with a freshly generated one.
func WithChatID(ctx context.Context, chatID string) context.Context {
	return context.WithValue(ctx, keyChatID, values.StringsCoalesce(chatID, NewChatID()))
}

// GetChatID retrieves the chat ID from the context, or an empty string when
// none is set.
func GetChatID(ctx context.Context) string {
	if v, ok := ctx.Value(keyChatID).(string); ok {
		return v
	}
	return ""
}

// NewChatID generates a new chat ID using the flake ID generator.
func NewChatID() string {
	return strconv.FormatUint(flake.DefaultIDGenerator.NextID(), 10)
}
