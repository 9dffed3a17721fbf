package store

import (
	"context"
	"encoding/json"
	"path"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/agentgraph/pkg/llms"
	"github.com/effective-security/xlog"
	"github.com/redis/go-redis/v9"
)

// The redis store keeps the transcript in a Redis list per chat ID, trimmed
// to the most recent messages. Keys are namespaced as
// `<prefix>/chatstore/messages/<chatID>`.

// MaxStoredMessages bounds the persisted transcript length.
const MaxStoredMessages = 50

type redisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore returns a Redis-backed message store.
func NewRedisStore(client *redis.Client, prefix string) MessageStore {
	return &redisStore{
		client: client,
		prefix: prefix,
	}
}

func (m *redisStore) messagesKey(chatID string) string {
	return path.Join(m.prefix, "chatstore", "messages", chatID)
}

func (m *redisStore) Messages(ctx context.Context) []llms.Message {
	chatID := GetChatID(ctx)
	if chatID == "" {
		logger.ContextKV(ctx, xlog.ERROR, "reason", "no_chat_id")
		return nil
	}

	data, err := m.client.LRange(ctx, m.messagesKey(chatID), 0, -1).Result()
	if err != nil {
		logger.ContextKV(ctx, xlog.ERROR, "reason", "redis_lrange", "err", err.Error())
		return nil
	}

	var messages []llms.Message
	for _, item := range data {
		var model messageModel
		if err := json.Unmarshal([]byte(item), &model); err != nil {
			logger.ContextKV(ctx, xlog.ERROR, "reason", "unmarshal_message", "err", err.Error())
			continue
		}
		messages = append(messages, fromModel(model))
	}
	return messages
}

func (m *redisStore) Add(ctx context.Context, msg llms.Message) error {
	chatID := GetChatID(ctx)
	if chatID == "" {
		return errors.New("chat ID not found in context")
	}

	data, err := json.Marshal(toModel(msg))
	if err != nil {
		return errors.Wrap(err, "failed to marshal message")
	}

	key := m.messagesKey(chatID)
	pipe := m.client.Pipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, -MaxStoredMessages, -1)
	_, err = pipe.Exec(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to store message in Redis")
	}
	return nil
}

func (m *redisStore) Reset(ctx context.Context) error {
	chatID := GetChatID(ctx)
	if chatID == "" {
		return errors.New("chat ID not found in context")
	}

	err := m.client.Del(ctx, m.messagesKey(chatID)).Err()
	if err != nil {
		return errors.Wrap(err, "failed to reset chat in Redis")
	}
	return nil
}
