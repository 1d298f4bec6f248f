// Package agent binds instructions, a provider-backed model and a tool set
// into a single invocable agent capable of conducting one conversation turn,
// including the intermediate tool-call round trips the model may request.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/llmfanout/logging"
	"github.com/hupe1980/llmfanout/model"
	"github.com/hupe1980/llmfanout/provider"
	"github.com/hupe1980/llmfanout/tool"
)

// DefaultMaxTurns bounds the model-call/tool-execution loop per Run.
const DefaultMaxTurns = 8

// Config configures an Agent. Provider, ModelName and Instructions are the
// load-bearing fields; the rest default sensibly.
type Config struct {
	// Provider selects the hosted LLM backend.
	Provider provider.ID
	// ModelName is the provider-specific model identifier.
	ModelName string
	// Instructions is the system prompt bound to every request.
	Instructions string
	// APIKey overrides the provider's environment variable when set.
	APIKey string
	// Temperature is passed through when set, including an explicit zero.
	// Nil keeps the adapter's default (0.7).
	Temperature *float64
	// Tools the model may invoke mid-conversation. Names must be unique.
	Tools []tool.Tool
	// MaxTurns bounds the generation/tool loop (default DefaultMaxTurns).
	MaxTurns int
	// Logger defaults to a no-op logger.
	Logger logging.Logger
}

// Agent is a bound combination of instructions, model and tools.
type Agent struct {
	model        model.Model
	instructions string
	tools        map[string]tool.Tool
	toolDefs     []model.ToolDefinition
	maxTurns     int
	logger       logging.Logger
}

// Result is the outcome of one completed conversation.
type Result struct {
	// FinalOutput is the assistant's last text response.
	FinalOutput string
	// Messages is the full transcript including tool round trips.
	Messages []model.Message
	// Usage aggregates token usage across all model calls.
	Usage model.TokenUsage
	// Turns counts the model calls made.
	Turns int
}

// New creates an agent for the configured provider. Client construction
// failures (unknown provider, missing key, missing model name) propagate
// unchanged from the provider factory.
func New(cfg Config) (*Agent, error) {
	m, err := provider.NewModel(provider.Config{
		Provider:    cfg.Provider,
		ModelName:   cfg.ModelName,
		APIKey:      cfg.APIKey,
		Temperature: cfg.Temperature,
	})
	if err != nil {
		return nil, err
	}
	return NewFromModel(m, cfg)
}

// NewFromModel creates an agent around an existing model implementation.
// Useful for tests and custom adapters.
func NewFromModel(m model.Model, cfg Config) (*Agent, error) {
	tools := make(map[string]tool.Tool, len(cfg.Tools))
	for _, t := range cfg.Tools {
		if _, dup := tools[t.Name()]; dup {
			return nil, fmt.Errorf("duplicate tool name: %s", t.Name())
		}
		tools[t.Name()] = t
	}

	maxTurns := cfg.MaxTurns
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.NoOpLogger{}
	}

	return &Agent{
		model:        m,
		instructions: cfg.Instructions,
		tools:        tools,
		toolDefs:     tool.ModelDefinitions(cfg.Tools),
		maxTurns:     maxTurns,
		logger:       logger,
	}, nil
}

// Model exposes the bound model, mainly for Info() at call sites.
func (a *Agent) Model() model.Model { return a.model }

// Run drives the conversation until the model stops requesting tools or
// MaxTurns is reached. Tool failures become tool-result messages so the model
// can react; they never abort the run.
func (a *Agent) Run(ctx context.Context, messages []model.Message) (*Result, error) {
	msgs := make([]model.Message, len(messages))
	copy(msgs, messages)

	result := &Result{}
	info := a.model.Info()

	for turn := 0; turn < a.maxTurns; turn++ {
		start := time.Now()
		resp, err := a.model.Generate(ctx, model.Request{
			Instructions: a.instructions,
			Messages:     msgs,
			Tools:        a.toolDefs,
		})
		if err != nil {
			return nil, err
		}
		result.Turns++

		a.logger.Debug("agent.generate",
			"provider", info.Provider,
			"model", info.Name,
			"turn", turn,
			"tool_calls", len(resp.ToolCalls),
			"duration_ms", time.Since(start).Milliseconds(),
		)

		if resp.Usage != nil {
			result.Usage.PromptTokens += resp.Usage.PromptTokens
			result.Usage.CompletionTokens += resp.Usage.CompletionTokens
			result.Usage.TotalTokens += resp.Usage.TotalTokens
		}

		msgs = append(msgs, model.Message{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		if len(resp.ToolCalls) == 0 {
			result.FinalOutput = resp.Content
			result.Messages = msgs
			return result, nil
		}

		msgs = append(msgs, a.executeToolCalls(ctx, resp.ToolCalls)...)
	}

	return nil, fmt.Errorf("conversation did not complete within %d turns", a.maxTurns)
}

// executeToolCalls runs all requested tool calls, concurrently when there is
// more than one, and returns their tool-result messages in call order.
func (a *Agent) executeToolCalls(ctx context.Context, calls []model.ToolCall) []model.Message {
	results := make([]model.Message, len(calls))

	if len(calls) == 1 {
		results[0] = a.executeOne(ctx, calls[0])
		return results
	}

	var wg sync.WaitGroup
	for i := range calls {
		wg.Add(1)
		go func(idx int, tc model.ToolCall) {
			defer wg.Done()
			results[idx] = a.executeOne(ctx, tc)
		}(i, calls[i])
	}
	wg.Wait()

	return results
}

func (a *Agent) executeOne(ctx context.Context, tc model.ToolCall) model.Message {
	start := time.Now()
	result, err := a.callTool(ctx, tc)

	a.logger.Info("agent.tool.executed",
		"tool", tc.Name,
		"tool_call_id", tc.ID,
		"duration_ms", time.Since(start).Milliseconds(),
		"error", err != nil,
	)

	content := ""
	if err != nil {
		// Surfaced to the conversation as a tool-level error message so the
		// model can decide how to respond.
		content = fmt.Sprintf("Error calling %s: %v", tc.Name, err)
	} else {
		content = stringifyToolResult(result)
	}

	return model.Message{Role: "tool", Content: content, ToolCallID: tc.ID}
}

func (a *Agent) callTool(ctx context.Context, tc model.ToolCall) (result any, err error) {
	impl, ok := a.tools[tc.Name]
	if !ok {
		return nil, fmt.Errorf("tool %s not found", tc.Name)
	}

	var args map[string]any
	if tc.Arguments == "" {
		args = map[string]any{}
	} else if err := json.Unmarshal([]byte(tc.Arguments), &args); err != nil {
		return nil, fmt.Errorf("failed to unmarshal args: %w", err)
	}

	defer func() { // panic safety
		if r := recover(); r != nil {
			a.logger.Error("agent.tool.panic", "tool", tc.Name, "recover", r)
			err = fmt.Errorf("tool %s panicked", tc.Name)
		}
	}()

	return impl.Call(ctx, args)
}

// stringifyToolResult renders a tool result for the tool-result message.
// Strings pass through; everything else is JSON encoded.
func stringifyToolResult(result any) string {
	switch v := result.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}
