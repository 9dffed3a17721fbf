package anthropic

import "net/http"

const (
	// TokenEnvVarName is the environment variable for the Anthropic API key.
	TokenEnvVarName = "ANTHROPIC_API_KEY"
)

// Options holds configuration for the Anthropic client.
type Options struct {
	Token      string
	BaseURL    string
	Model      string
	HttpClient *http.Client
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

// WithHTTPClient sets the HTTP client to use.
func WithHTTPClient(client *http.Client) Option {
	return func(o *Options) {
		o.HttpClient = client
	}
}
