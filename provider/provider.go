// Package provider maps provider identifiers (openai, claude, gemini,
// deepseek) to ready-to-use model clients. Construction is pure: an API key
// is resolved from an explicit argument or the provider's environment
// variable, a base endpoint is selected, and a model adapter is returned
// without any network I/O.
package provider

import (
	"os"
	"sort"
	"strings"

	"github.com/hupe1980/llmfanout/model"
	"github.com/hupe1980/llmfanout/model/anthropic"
	"github.com/hupe1980/llmfanout/model/openai"
)

// ID identifies a hosted LLM provider.
type ID string

// The known provider set.
const (
	OpenAI   ID = "openai"
	Claude   ID = "claude"
	Gemini   ID = "gemini"
	Deepseek ID = "deepseek"
)

// Config carries everything needed to build a model client for one provider.
// APIKey takes precedence over the provider's environment variable. A nil
// Temperature keeps the adapter default; an explicit zero is passed through.
type Config struct {
	Provider    ID
	ModelName   string
	APIKey      string
	Temperature *float64
}

// entry describes how one provider is wired: where its key comes from and
// which adapter fronts it.
type entry struct {
	envVar   string
	newModel func(cfg Config, apiKey string) model.Model
}

const (
	openAIBaseURL   = "https://api.openai.com/v1/"
	geminiBaseURL   = "https://generativelanguage.googleapis.com/v1beta/openai/"
	deepseekBaseURL = "https://api.deepseek.com/v1/"
)

// Gemini and Deepseek expose OpenAI-compatible endpoints, so they share the
// openai adapter with a base URL override. Claude uses the native Anthropic
// adapter and the SDK's default endpoint.
var registry = map[ID]entry{
	OpenAI: {
		envVar:   "OPENAI_API_KEY",
		newModel: newOpenAICompatible(OpenAI, openAIBaseURL),
	},
	Claude: {
		envVar: "ANTHROPIC_API_KEY",
		newModel: func(cfg Config, apiKey string) model.Model {
			return anthropic.NewModel(func(o *anthropic.Options) {
				o.Model = cfg.ModelName
				o.APIKey = apiKey
				if cfg.Temperature != nil {
					o.Temperature = *cfg.Temperature
				}
			})
		},
	},
	Gemini: {
		envVar:   "GEMINI_API_KEY",
		newModel: newOpenAICompatible(Gemini, geminiBaseURL),
	},
	Deepseek: {
		envVar:   "DEEPSEEK_API_KEY",
		newModel: newOpenAICompatible(Deepseek, deepseekBaseURL),
	},
}

// newOpenAICompatible builds an entry factory. The base URL is an argument;
// the closure must not reference registry or its initialization would cycle.
func newOpenAICompatible(id ID, baseURL string) func(cfg Config, apiKey string) model.Model {
	return func(cfg Config, apiKey string) model.Model {
		return openai.NewModel(func(o *openai.Options) {
			o.Model = cfg.ModelName
			o.APIKey = apiKey
			o.BaseURL = baseURL
			o.Provider = string(id)
			if cfg.Temperature != nil {
				o.Temperature = *cfg.Temperature
			}
		})
	}
}

// All returns the known provider identifiers in stable order.
func All() []ID {
	ids := make([]ID, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func names() []string {
	ids := All()
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

// Parse resolves a case-insensitive provider name to its ID.
func Parse(s string) (ID, error) {
	id := ID(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := registry[id]; !ok {
		return "", &UnsupportedProviderError{Provider: s}
	}
	return id, nil
}

// EnvVar returns the environment variable holding the provider's API key.
func EnvVar(id ID) string { return registry[id].envVar }

// NewModel resolves the provider's API key (explicit config first, then the
// environment variable) and returns a configured model client. No network
// requests are made.
func NewModel(cfg Config) (model.Model, error) {
	ent, ok := registry[cfg.Provider]
	if !ok {
		return nil, &UnsupportedProviderError{Provider: string(cfg.Provider)}
	}

	if cfg.ModelName == "" {
		return nil, &ConfigurationError{Provider: cfg.Provider, Reason: "no model name configured"}
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv(ent.envVar)
	}
	if apiKey == "" {
		return nil, &ConfigurationError{
			Provider: cfg.Provider,
			Reason:   "API key not provided and " + ent.envVar + " environment variable not set",
		}
	}

	return ent.newModel(cfg, apiKey), nil
}
