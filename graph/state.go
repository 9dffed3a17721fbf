// Package graph runs the agent turn loop as a small state graph: a reasoning
// node that calls the model, an action node that executes requested tools,
// and a conditional edge between them.
package graph

import (
	"github.com/effective-security/agentgraph/pkg/llms"
)

// State is the conversational state threaded through the graph. The caller
// owns it; Invoke returns a new state and never mutates the input slice.
type State struct {
	Messages []llms.Message
}

// NewState creates a state from the given messages.
func NewState(msgs ...llms.Message) State {
	return State{Messages: msgs}
}

// LastMessage returns the most recent message.
func (s State) LastMessage() (llms.Message, bool) {
	if len(s.Messages) == 0 {
		return llms.Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

func (s *State) append(msgs ...llms.Message) {
	s.Messages = append(s.Messages, msgs...)
}
