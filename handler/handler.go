// Package handler turns Lambda invocation events into multi-provider runs.
//
// Request values come from two layers: the invocation event and the function's
// environment. Event fields win; the environment supplies defaults so the
// function can be invoked with an empty payload.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v10"

	"github.com/hupe1980/llmfanout/logging"
	"github.com/hupe1980/llmfanout/model"
	"github.com/hupe1980/llmfanout/provider"
	"github.com/hupe1980/llmfanout/runner"
	"github.com/hupe1980/llmfanout/tool"
)

// defaultModels is used when no MODEL_NAME_<PROVIDER> variable is set.
var defaultModels = map[provider.ID]string{
	provider.OpenAI:   "gpt-4o-2024-08-06",
	provider.Claude:   "claude-3-haiku-20240307",
	provider.Gemini:   "gemini-pro",
	provider.Deepseek: "deepseek-chat",
}

// envConfig is the environment-supplied request baseline.
type envConfig struct {
	SystemPrompt string   `env:"SYSTEM_PROMPT"`
	UserMessage  string   `env:"USER_MESSAGE"`
	Providers    []string `env:"PROVIDERS" envSeparator:","`
	Temperature  *float64 `env:"TEMPERATURE"`
	JSONTools    string   `env:"JSON_TOOLS"`
}

// Event is the Lambda invocation payload. Every field is optional; unset
// fields fall back to the function environment.
type Event struct {
	Message     string          `json:"message,omitempty"`
	Providers   []string        `json:"providers,omitempty"`
	Temperature *float64        `json:"temperature,omitempty"`
	JSONTools   json.RawMessage `json:"json_tools,omitempty"`
}

// InputEcho repeats the resolved request so callers can see what actually ran.
type InputEcho struct {
	Message   string   `json:"message"`
	Providers []string `json:"providers"`
}

// Output is the invocation response body.
type Output struct {
	StatusCode int            `json:"statusCode"`
	Input      InputEcho      `json:"input"`
	Results    runner.Results `json:"results"`
}

// Runner dispatches a prepared request. Satisfied by *runner.Runner.
type Runner interface {
	Run(ctx context.Context, input runner.Input) (runner.Results, error)
}

// Options configure the handler.
type Options struct {
	Logger logging.Logger
	// Runner overrides the dispatcher, mainly for tests.
	Runner Runner
}

// Handler resolves events against the environment and fans them out.
type Handler struct {
	logger logging.Logger
	runner Runner
}

// New creates a Handler backed by a default runner.
func New(optFns ...func(o *Options)) *Handler {
	opts := Options{
		Logger: logging.NewDefaultSlogLogger(),
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Runner == nil {
		opts.Runner = runner.New(func(o *runner.Options) {
			o.Logger = opts.Logger
		})
	}

	return &Handler{
		logger: opts.Logger,
		runner: opts.Runner,
	}
}

// Handle resolves the event, dispatches it to every requested provider and
// returns the collected results. It returns an error only when no request can
// be formed at all; per-provider failures are reported inside Output.Results.
func (h *Handler) Handle(ctx context.Context, event Event) (Output, error) {
	cfg := envConfig{}
	if err := env.Parse(&cfg); err != nil {
		return Output{}, fmt.Errorf("parsing environment: %w", err)
	}

	message := event.Message
	if message == "" {
		message = cfg.UserMessage
	}

	names := event.Providers
	if len(names) == 0 {
		names = cfg.Providers
	}

	providers, echoed := resolveProviders(names)

	temperature := event.Temperature
	if temperature == nil {
		temperature = cfg.Temperature
	}

	tools, err := resolveTools(event.JSONTools, cfg.JSONTools)
	if err != nil {
		return Output{}, err
	}

	input := runner.Input{
		SystemPrompt: cfg.SystemPrompt,
		Messages:     []model.Message{{Role: "user", Content: message}},
		Providers:    providers,
		ModelNames:   modelNames(providers),
		APIKeys:      apiKeys(providers),
		Tools:        tools,
		Temperature:  temperature,
	}

	h.logger.Info("handler.run.start", "providers", echoed, "tools", len(tools))

	results, err := h.runner.Run(ctx, input)
	if err != nil {
		return Output{}, err
	}

	return Output{
		StatusCode: 200,
		Input: InputEcho{
			Message:   message,
			Providers: echoed,
		},
		Results: results,
	}, nil
}

// resolveProviders normalizes the requested names. Unknown names are kept so
// the run reports an unsupported-provider error for them instead of silently
// dropping the request.
func resolveProviders(names []string) ([]provider.ID, []string) {
	providers := make([]provider.ID, 0, len(names))
	echoed := make([]string, 0, len(names))

	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}

		id, err := provider.Parse(name)
		if err != nil {
			id = provider.ID(strings.ToLower(strings.TrimSpace(name)))
		}

		providers = append(providers, id)
		echoed = append(echoed, string(id))
	}

	return providers, echoed
}

func resolveTools(eventTools json.RawMessage, envTools string) ([]tool.Tool, error) {
	raw := string(eventTools)
	if raw == "" {
		raw = envTools
	}
	if raw == "" {
		return nil, nil
	}

	tools, err := tool.FromJSON([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("parsing tool definitions: %w", err)
	}

	return tools, nil
}

// modelNames resolves MODEL_NAME_<PROVIDER> with a built-in fallback per
// provider. Unknown providers get no entry; their branch fails on its own.
func modelNames(providers []provider.ID) map[provider.ID]string {
	names := make(map[provider.ID]string, len(providers))

	for _, id := range providers {
		if name := os.Getenv("MODEL_NAME_" + envSuffix(id)); name != "" {
			names[id] = name
			continue
		}
		if name, ok := defaultModels[id]; ok {
			names[id] = name
		}
	}

	return names
}

// apiKeys collects API_KEY_<PROVIDER> overrides. Providers without an
// override resolve their key from the provider registry's own variable.
func apiKeys(providers []provider.ID) map[provider.ID]string {
	keys := make(map[provider.ID]string, len(providers))

	for _, id := range providers {
		if key := os.Getenv("API_KEY_" + envSuffix(id)); key != "" {
			keys[id] = key
		}
	}

	return keys
}

func envSuffix(id provider.ID) string {
	return strings.ToUpper(string(id))
}
