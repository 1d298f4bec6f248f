package model

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockModel_PromptMap(t *testing.T) {
	m := NewMockModel("mock-1", "openai")
	m.AddResponse("hello", "world")

	resp, err := m.Generate(context.Background(), Request{
		Messages: []Message{{Role: "user", Content: "hello"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "world", resp.Content)
	assert.Equal(t, "stop", resp.FinishReason)
}

func TestMockModel_QueueBeforePromptMap(t *testing.T) {
	m := NewMockModel("mock-1", "openai")
	m.AddResponse("hello", "ignored")
	m.QueueResponse(Response{
		ToolCalls:    []ToolCall{{ID: "call-1", Name: "get_weather", Arguments: `{"city":"Berlin"}`}},
		FinishReason: "tool_calls",
	})
	m.QueueResponse(Response{Content: "done", FinishReason: "stop"})

	resp, err := m.Generate(context.Background(), Request{
		Messages: []Message{{Role: "user", Content: "hello"}},
	})
	require.NoError(t, err)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "get_weather", resp.ToolCalls[0].Name)

	resp, err = m.Generate(context.Background(), Request{
		Messages: []Message{{Role: "user", Content: "hello"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "done", resp.Content)

	assert.Len(t, m.Requests(), 2)
}

func TestMockModel_FailWith(t *testing.T) {
	m := NewMockModel("mock-1", "claude")
	boom := errors.New("boom")
	m.FailWith(boom)

	_, err := m.Generate(context.Background(), Request{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	assert.ErrorIs(t, err, boom)
}

func TestMockModel_ContextCancelled(t *testing.T) {
	m := NewMockModel("mock-1", "gemini")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Generate(ctx, Request{Messages: []Message{{Role: "user", Content: "hi"}}})
	assert.ErrorIs(t, err, context.Canceled)
}
