package store

import (
	"context"
	"sync"

	"github.com/effective-security/agentgraph/pkg/llms"
)

type inMemory struct {
	mu      sync.RWMutex
	storage map[string][]llms.Message
}

// NewMemoryStore returns an in-process message store.
func NewMemoryStore() MessageStore {
	return &inMemory{}
}

// Messages without a chat ID in the context fall into the shared default
// transcript, so single-chat callers can skip WithChatID entirely.
func chatKey(ctx context.Context) string {
	if id := GetChatID(ctx); id != "" {
		return id
	}
	return "default"
}

func (m *inMemory) Messages(ctx context.Context) []llms.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.storage == nil {
		return nil
	}
	return m.storage[chatKey(ctx)]
}

func (m *inMemory) Add(ctx context.Context, msg llms.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.storage == nil {
		// create on first use
		m.storage = make(map[string][]llms.Message)
	}
	key := chatKey(ctx)
	m.storage[key] = append(m.storage[key], msg)
	return nil
}

func (m *inMemory) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.storage != nil {
		delete(m.storage, chatKey(ctx))
	}
	return nil
}
