package openai

import (
	"net/http"
	"os"
)

const (
	// TokenEnvVarName is the environment variable for the OpenAI API key.
	TokenEnvVarName = "OPENAI_API_KEY"

	// DefaultModel is used when no model is configured.
	DefaultModel = "gpt-5-mini"
)

// Options holds configuration for the OpenAI client.
type Options struct {
	Token      string
	BaseURL    string
	Model      string
	OrgID      string
	HttpClient *http.Client

	// ProviderType allows OpenAI-compatible providers (Azure, Perplexity)
	// to reuse the same client.
	ProviderType string
}

// Option is a function that configures Options.
type Option func(*Options)

// WithToken sets the API token.
func WithToken(token string) Option {
	return func(o *Options) {
		o.Token = token
	}
}

// WithBaseURL sets the API base URL.
func WithBaseURL(baseURL string) Option {
	return func(o *Options) {
		o.BaseURL = baseURL
	}
}

// WithModel sets the model name.
func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// WithOrganization sets the organization ID.
func WithOrganization(orgID string) Option {
	return func(o *Options) {
		o.OrgID = orgID
	}
}

// WithHTTPClient sets the HTTP client to use.
func WithHTTPClient(client *http.Client) Option {
	return func(o *Options) {
		o.HttpClient = client
	}
}

// WithProviderType sets the provider type for OpenAI-compatible endpoints.
func WithProviderType(providerType string) Option {
	return func(o *Options) {
		o.ProviderType = providerType
	}
}

func defaultOptions() *Options {
	return &Options{
		Token: os.Getenv(TokenEnvVarName),
		Model: DefaultModel,
	}
}
