package llmfactory

import (
	"os"
	"slices"

	"github.com/effective-security/x/configloader"
	"github.com/effective-security/x/values"
)

// DefaultModelEnvVarName overrides the default model name.
const DefaultModelEnvVarName = "AGENTGRAPH_DEFAULT_MODEL"

type Config struct {
	// Providers specifies the list of providers to use
	Providers []*ProviderConfig `json:"providers" yaml:"providers"`
	// DefaultProvider specifies the default provider to use
	DefaultProvider string `json:"default_provider,omitempty" yaml:"default_provider,omitempty"`
	// DefaultModel specifies the model used when the caller does not name one.
	DefaultModel string `json:"default_model,omitempty" yaml:"default_model,omitempty"`
}

// ProviderConfig describes one model provider.
type ProviderConfig struct {
	Name            string   `json:"name" yaml:"name"`
	Token           string   `json:"token,omitempty" yaml:"token,omitempty"`
	DefaultModel    string   `json:"default_model,omitempty" yaml:"default_model,omitempty"`
	AvailableModels []string `json:"available_models,omitempty" yaml:"available_models,omitempty"`
	// APIType specifies the type of API to use:
	// OPENAI|AZURE|AZURE_AD|ANTHROPIC|PERPLEXITY
	APIType string `json:"api_type,omitempty" yaml:"api_type,omitempty"`
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	// OrgID specifies which organization's quota and billing should be used
	// when making API requests.
	OrgID string `json:"org_id,omitempty" yaml:"org_id,omitempty"`
}

// HasModel reports whether the model is in the provider allow-list.
func (c *ProviderConfig) HasModel(model string) bool {
	return model == c.DefaultModel || slices.Contains(c.AvailableModels, model)
}

// LoadConfig from file
func LoadConfig(file string) (*Config, error) {
	cfg := new(Config)
	if file == "" {
		return cfg, nil
	}

	err := configloader.UnmarshalAndExpand(file, cfg)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultConfig returns the built-in provider allow-list, with tokens
// resolved from the environment by the provider clients themselves.
func DefaultConfig() *Config {
	return &Config{
		DefaultModel: values.StringsCoalesce(os.Getenv(DefaultModelEnvVarName), "gpt-5-mini"),
		Providers: []*ProviderConfig{
			{
				Name:            "openai",
				APIType:         "OPENAI",
				DefaultModel:    "gpt-5-mini",
				AvailableModels: []string{"gpt-5", "gpt-5-mini", "gpt-4.1"},
			},
			{
				Name:            "anthropic",
				APIType:         "ANTHROPIC",
				DefaultModel:    "claude-sonnet-4-5",
				AvailableModels: []string{"claude-sonnet-4-5", "claude-haiku-4-5"},
			},
		},
	}
}
