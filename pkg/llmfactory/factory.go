// Package llmfactory creates and caches LLM model clients from a configured
// provider allow-list. A model name outside the allow-list is a configuration
// error: fatal, surfaced immediately and never retried.
package llmfactory

import (
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/agentgraph/pkg/llms"
	"github.com/effective-security/agentgraph/pkg/llms/anthropic"
	"github.com/effective-security/agentgraph/pkg/llms/openai"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/agentgraph", "llmfactory")

// ErrUnsupportedModel is returned when the requested model name is not in the
// configured allow-list.
var ErrUnsupportedModel = errors.New("unsupported model")

// NewLLM is a wrapper for CreateLLM to allow for overriding the default
// implementation in tests.
var NewLLM = CreateLLM

// Factory is the interface for creating and managing LLM models.
type Factory interface {
	// DefaultModel returns the default LLM model.
	DefaultModel() (llms.Model, error)
	// DefaultModelName returns the configured default model name.
	DefaultModelName() string
	// ModelByName returns an LLM model by its name. An empty name resolves to
	// the default model; an unknown name returns ErrUnsupportedModel.
	ModelByName(name string) (llms.Model, error)
	// SupportedModels returns the names in the allow-list.
	SupportedModels() []string
}

// Load returns a factory from a config file location.
func Load(location string) (Factory, error) {
	cfg, err := LoadConfig(location)
	if err != nil {
		return nil, err
	}
	return New(cfg), nil
}

type factory struct {
	cfg *Config

	byName map[string]llms.Model
	lock   sync.Mutex
}

// New creates a new LLM factory
func New(cfg *Config) Factory {
	return &factory{
		cfg:    cfg,
		byName: make(map[string]llms.Model),
	}
}

// CreateLLM constructs a model client for the provider.
func CreateLLM(cfg *ProviderConfig, model string) (llms.Model, error) {
	switch provType := strings.ToUpper(cfg.APIType); provType {
	case "OPENAI", "OPEN_AI", "AZURE", "AZURE_AD", "PERPLEXITY":
		var opts []openai.Option
		opts = append(opts, openai.WithModel(model), openai.WithProviderType(provType))
		if cfg.Token != "" {
			opts = append(opts, openai.WithToken(cfg.Token))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		if cfg.OrgID != "" {
			opts = append(opts, openai.WithOrganization(cfg.OrgID))
		}
		return openai.New(opts...)
	case "ANTHROPIC":
		var opts []anthropic.Option
		opts = append(opts, anthropic.WithModel(model))
		if cfg.Token != "" {
			opts = append(opts, anthropic.WithToken(cfg.Token))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
		}
		return anthropic.New(opts...)
	default:
		return nil, errors.Newf("unsupported provider type: %s", provType)
	}
}

// DefaultModel returns the default model client.
func (f *factory) DefaultModel() (llms.Model, error) {
	if len(f.cfg.Providers) == 0 {
		return nil, errors.New("no providers configured")
	}
	return f.ModelByName(f.cfg.DefaultModel)
}

// DefaultModelName returns the configured default model name.
func (f *factory) DefaultModelName() string {
	return f.cfg.DefaultModel
}

// SupportedModels returns the names in the allow-list.
func (f *factory) SupportedModels() []string {
	var names []string
	for _, cfg := range f.cfg.Providers {
		if cfg.DefaultModel != "" {
			names = append(names, cfg.DefaultModel)
		}
		for _, m := range cfg.AvailableModels {
			if m != cfg.DefaultModel {
				names = append(names, m)
			}
		}
	}
	return names
}

func (f *factory) ModelByName(name string) (llms.Model, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	// Absent model name is normalized to the default before binding.
	if name == "" {
		name = f.cfg.DefaultModel
	}

	if client, ok := f.byName[name]; ok {
		return client, nil
	}

	for _, cfg := range f.cfg.Providers {
		if !cfg.HasModel(name) {
			continue
		}
		model, err := NewLLM(cfg, name)
		if err != nil {
			return nil, err
		}

		logger.KV(xlog.DEBUG,
			"status", "created_llm",
			"type", cfg.APIType,
			"provider", cfg.Name,
			"model", name)

		f.byName[name] = model
		return model, nil
	}
	return nil, errors.WithMessagef(ErrUnsupportedModel, "model %q is not in the allow-list", name)
}
