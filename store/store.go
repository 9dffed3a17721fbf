// Package store persists conversation transcripts keyed by the chat ID
// carried in the request context.
package store

import (
	"context"

	"github.com/effective-security/agentgraph/pkg/llms"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/agentgraph", "store")

// MessageStore persists the message transcript of a chat. The chat is
// identified by the chat ID from the context, see WithChatID.
type MessageStore interface {
	// Messages returns the stored transcript, oldest first.
	Messages(ctx context.Context) []llms.Message
	// Add appends a message to the transcript.
	Add(ctx context.Context, msg llms.Message) error
	// Reset removes the transcript.
	Reset(ctx context.Context) error
}

// messageModel is the serializable form of llms.Message.
type messageModel struct {
	Role          llms.Role               `json:"role"`
	Text          string                  `json:"text,omitempty"`
	ToolCalls     []llms.ToolCall         `json:"tool_calls,omitempty"`
	ToolResponses []llms.ToolCallResponse `json:"tool_responses,omitempty"`
}

func toModel(msg llms.Message) messageModel {
	m := messageModel{
		Role: msg.Role,
	}
	for _, part := range msg.Parts {
		switch p := part.(type) {
		case llms.TextContent:
			if m.Text != "" {
				m.Text += "\n"
			}
			m.Text += p.Text
		case llms.ToolCall:
			m.ToolCalls = append(m.ToolCalls, p)
		case llms.ToolCallResponse:
			m.ToolResponses = append(m.ToolResponses, p)
		}
	}
	return m
}

func fromModel(m messageModel) llms.Message {
	msg := llms.Message{
		Role: m.Role,
	}
	if m.Text != "" {
		msg.Parts = append(msg.Parts, llms.TextContent{Text: m.Text})
	}
	for _, tc := range m.ToolCalls {
		msg.Parts = append(msg.Parts, tc)
	}
	for _, tr := range m.ToolResponses {
		msg.Parts = append(msg.Parts, tr)
	}
	return msg
}
