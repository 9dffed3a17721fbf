// Package llmutils provides small helpers shared by the agent runtime:
// JSON formatting for prompts and transcript accounting for metrics.
package llmutils

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/effective-security/agentgraph/pkg/llms"
	"github.com/effective-security/x/values"
)

// ToJSON returns the compact JSON representation of the value.
func ToJSON(val any) string {
	bs, _ := json.Marshal(val)
	return string(bs)
}

// ToJSONIndent returns the indented JSON representation of the value.
func ToJSONIndent(val any) string {
	bs, _ := json.MarshalIndent(val, "", "  ")
	return string(bs)
}

// BackticksJSON wraps the JSON string in a fenced code block.
func BackticksJSON(js string) string {
	return fmt.Sprintf("```json\n%s\n```", js)
}

// CleanJSON strips a fenced code block wrapper, if present, and returns the
// inner JSON bytes. Models occasionally wrap tool arguments in markdown fences.
func CleanJSON(bs []byte) []byte {
	s := strings.TrimSpace(string(bs))
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return []byte(strings.TrimSpace(s))
}

// AddComment formats a role comment for generic transcripts.
func AddComment(role, name, typ, content string) string {
	return fmt.Sprintf("<!-- %s: %s, %s -->\n%s", role, name, typ, content)
}

// CountMessagesContentSize counts the size of the content in the messages.
func CountMessagesContentSize(msgs []llms.Message) uint64 {
	var size uint64
	for _, mc := range msgs {
		size += uint64(len(mc.Role))
		for _, p := range mc.Parts {
			switch pp := p.(type) {
			case llms.TextContent:
				size += uint64(len(pp.Text))
			case llms.ToolCall:
				size += uint64(len(pp.ID))
				size += uint64(len(pp.Type))
				if pp.FunctionCall != nil {
					size += uint64(len(pp.FunctionCall.Name))
					size += uint64(len(pp.FunctionCall.Arguments))
				}
			case llms.ToolCallResponse:
				size += uint64(len(pp.ToolCallID))
				size += uint64(len(pp.Name))
				size += uint64(len(pp.Content))
			}
		}
	}
	return size
}

// CountResponseContentSize counts the size of the content in the content response.
func CountResponseContentSize(resp *llms.ContentResponse) uint64 {
	var size uint64
	for _, choice := range resp.Choices {
		size += uint64(len(choice.Content))
		for _, toolCall := range choice.ToolCalls {
			size += uint64(len(toolCall.ID))
			size += uint64(len(toolCall.Type))
			if toolCall.FunctionCall != nil {
				size += uint64(len(toolCall.FunctionCall.Name))
				size += uint64(len(toolCall.FunctionCall.Arguments))
			}
		}
	}
	return size
}

// CountTokens extracts token usage from the response generation info.
func CountTokens(resp *llms.ContentResponse) (in, out, total int64) {
	for _, choice := range resp.Choices {
		ma := values.MapAny(choice.GenerationInfo)
		in += ma.Int64("InputTokens")
		out += ma.Int64("OutputTokens")
		total += ma.Int64("TotalTokens")
	}
	return
}
