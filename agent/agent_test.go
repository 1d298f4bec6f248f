package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/llmfanout/model"
	"github.com/hupe1980/llmfanout/provider"
	"github.com/hupe1980/llmfanout/tool"
)

var emptyParams = map[string]any{"type": "object", "properties": map[string]any{}}

func weatherTool(t *testing.T) tool.Tool {
	t.Helper()
	return tool.NewFunctionTool("get_weather", "Get current weather",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"city": map[string]any{"type": "string"},
			},
			"required": []string{"city"},
		},
		func(_ context.Context, args map[string]any) (any, error) {
			return map[string]any{"city": args["city"], "temperature_c": 21.5}, nil
		})
}

func TestNew_PropagatesProviderErrors(t *testing.T) {
	_, err := New(Config{Provider: "unknown", ModelName: "m"})
	var unsupported *provider.UnsupportedProviderError
	assert.ErrorAs(t, err, &unsupported)

	t.Setenv("OPENAI_API_KEY", "")
	_, err = New(Config{Provider: provider.OpenAI, ModelName: "gpt-4o-2024-08-06"})
	var confErr *provider.ConfigurationError
	assert.ErrorAs(t, err, &confErr)
}

func TestNewFromModel_DuplicateToolName(t *testing.T) {
	m := model.NewMockModel("mock", "openai")
	tl := tool.NewFunctionTool("dup", "Dup", emptyParams, nil)

	_, err := NewFromModel(m, Config{Tools: []tool.Tool{tl, tl}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate tool name")
}

func TestRun_SimpleExchange(t *testing.T) {
	m := model.NewMockModel("mock", "openai")
	m.AddResponse("What's the weather like?", "It is sunny.")

	a, err := NewFromModel(m, Config{Instructions: "You are a weather bot."})
	require.NoError(t, err)

	res, err := a.Run(context.Background(), []model.Message{
		{Role: "user", Content: "What's the weather like?"},
	})
	require.NoError(t, err)
	assert.Equal(t, "It is sunny.", res.FinalOutput)
	assert.Equal(t, 1, res.Turns)

	reqs := m.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "You are a weather bot.", reqs[0].Instructions)
}

func TestRun_ToolLoop(t *testing.T) {
	m := model.NewMockModel("mock", "openai")
	m.QueueResponse(model.Response{
		ToolCalls:    []model.ToolCall{{ID: "call-1", Name: "get_weather", Arguments: `{"city":"Berlin"}`}},
		FinishReason: "tool_calls",
	})
	m.QueueResponse(model.Response{Content: "21.5C in Berlin", FinishReason: "stop"})

	a, err := NewFromModel(m, Config{Tools: []tool.Tool{weatherTool(t)}})
	require.NoError(t, err)

	res, err := a.Run(context.Background(), []model.Message{
		{Role: "user", Content: "Weather in Berlin?"},
	})
	require.NoError(t, err)
	assert.Equal(t, "21.5C in Berlin", res.FinalOutput)
	assert.Equal(t, 2, res.Turns)

	// Second request must carry the assistant tool call and the tool result.
	reqs := m.Requests()
	require.Len(t, reqs, 2)
	second := reqs[1].Messages
	require.Len(t, second, 3)
	assert.Equal(t, "assistant", second[1].Role)
	require.Len(t, second[1].ToolCalls, 1)
	assert.Equal(t, "tool", second[2].Role)
	assert.Equal(t, "call-1", second[2].ToolCallID)
	assert.JSONEq(t, `{"city":"Berlin","temperature_c":21.5}`, second[2].Content)
}

func TestRun_ToolErrorSurfacedToConversation(t *testing.T) {
	m := model.NewMockModel("mock", "openai")
	m.QueueResponse(model.Response{
		ToolCalls:    []model.ToolCall{{ID: "call-1", Name: "broken", Arguments: `{}`}},
		FinishReason: "tool_calls",
	})
	m.QueueResponse(model.Response{Content: "Sorry, the tool failed.", FinishReason: "stop"})

	broken := tool.NewFunctionTool("broken", "Always fails", emptyParams,
		func(_ context.Context, _ map[string]any) (any, error) {
			return nil, errors.New("backend unavailable")
		})

	a, err := NewFromModel(m, Config{Tools: []tool.Tool{broken}})
	require.NoError(t, err)

	res, err := a.Run(context.Background(), []model.Message{{Role: "user", Content: "go"}})
	require.NoError(t, err, "tool failure must not abort the run")
	assert.Equal(t, "Sorry, the tool failed.", res.FinalOutput)

	second := m.Requests()[1].Messages
	toolMsg := second[len(second)-1]
	assert.Equal(t, "tool", toolMsg.Role)
	assert.Contains(t, toolMsg.Content, "Error calling broken")
	assert.Contains(t, toolMsg.Content, "backend unavailable")
}

func TestRun_UnknownToolSurfacedToConversation(t *testing.T) {
	m := model.NewMockModel("mock", "openai")
	m.QueueResponse(model.Response{
		ToolCalls:    []model.ToolCall{{ID: "call-1", Name: "ghost", Arguments: `{}`}},
		FinishReason: "tool_calls",
	})
	m.QueueResponse(model.Response{Content: "done", FinishReason: "stop"})

	a, err := NewFromModel(m, Config{})
	require.NoError(t, err)

	_, err = a.Run(context.Background(), []model.Message{{Role: "user", Content: "go"}})
	require.NoError(t, err)

	second := m.Requests()[1].Messages
	assert.Contains(t, second[len(second)-1].Content, "tool ghost not found")
}

func TestRun_ParallelToolCalls(t *testing.T) {
	m := model.NewMockModel("mock", "openai")
	m.QueueResponse(model.Response{
		ToolCalls: []model.ToolCall{
			{ID: "call-1", Name: "get_weather", Arguments: `{"city":"Berlin"}`},
			{ID: "call-2", Name: "get_weather", Arguments: `{"city":"Paris"}`},
		},
		FinishReason: "tool_calls",
	})
	m.QueueResponse(model.Response{Content: "both sunny", FinishReason: "stop"})

	a, err := NewFromModel(m, Config{Tools: []tool.Tool{weatherTool(t)}})
	require.NoError(t, err)

	_, err = a.Run(context.Background(), []model.Message{{Role: "user", Content: "go"}})
	require.NoError(t, err)

	// Tool results must come back in call order regardless of scheduling.
	second := m.Requests()[1].Messages
	require.Len(t, second, 4)
	assert.Equal(t, "call-1", second[2].ToolCallID)
	assert.Equal(t, "call-2", second[3].ToolCallID)
	assert.Contains(t, second[2].Content, "Berlin")
	assert.Contains(t, second[3].Content, "Paris")
}

func TestRun_MaxTurnsExceeded(t *testing.T) {
	m := model.NewMockModel("mock", "openai")
	for i := 0; i < 3; i++ {
		m.QueueResponse(model.Response{
			ToolCalls:    []model.ToolCall{{ID: "loop", Name: "get_weather", Arguments: `{"city":"Berlin"}`}},
			FinishReason: "tool_calls",
		})
	}

	a, err := NewFromModel(m, Config{Tools: []tool.Tool{weatherTool(t)}, MaxTurns: 2})
	require.NoError(t, err)

	_, err = a.Run(context.Background(), []model.Message{{Role: "user", Content: "go"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "did not complete within 2 turns")
}

func TestRun_ModelErrorPropagates(t *testing.T) {
	m := model.NewMockModel("mock", "claude")
	boom := errors.New("rate limited")
	m.FailWith(boom)

	a, err := NewFromModel(m, Config{})
	require.NoError(t, err)

	_, err = a.Run(context.Background(), []model.Message{{Role: "user", Content: "hi"}})
	assert.ErrorIs(t, err, boom)
}

func TestRun_PanickingToolRecovered(t *testing.T) {
	m := model.NewMockModel("mock", "openai")
	m.QueueResponse(model.Response{
		ToolCalls:    []model.ToolCall{{ID: "call-1", Name: "panicky", Arguments: `{}`}},
		FinishReason: "tool_calls",
	})
	m.QueueResponse(model.Response{Content: "recovered", FinishReason: "stop"})

	panicky := tool.NewFunctionTool("panicky", "Panics", emptyParams,
		func(_ context.Context, _ map[string]any) (any, error) {
			panic("unexpected")
		})

	a, err := NewFromModel(m, Config{Tools: []tool.Tool{panicky}})
	require.NoError(t, err)

	res, err := a.Run(context.Background(), []model.Message{{Role: "user", Content: "go"}})
	require.NoError(t, err)
	assert.Equal(t, "recovered", res.FinalOutput)

	second := m.Requests()[1].Messages
	assert.Contains(t, second[len(second)-1].Content, "panicked")
}
