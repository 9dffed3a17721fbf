package anthropic_test

import (
	"testing"

	"github.com/effective-security/agentgraph/pkg/llms"
	"github.com/effective-security/agentgraph/pkg/llms/anthropic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Setenv(anthropic.TokenEnvVarName, "")

	_, err := anthropic.New(anthropic.WithModel("claude-sonnet-4-5"))
	assert.ErrorIs(t, err, anthropic.ErrMissingToken)

	_, err = anthropic.New(anthropic.WithToken("test-key"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model is required")

	llm, err := anthropic.New(
		anthropic.WithToken("test-key"),
		anthropic.WithModel("claude-sonnet-4-5"),
	)
	require.NoError(t, err)
	assert.Equal(t, "claude-sonnet-4-5", llm.GetName())
	assert.Equal(t, llms.ProviderAnthropic, llm.GetProviderType())
}
