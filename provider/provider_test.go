package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input   string
		want    ID
		wantErr bool
	}{
		{input: "openai", want: OpenAI},
		{input: "Claude", want: Claude},
		{input: " GEMINI ", want: Gemini},
		{input: "deepseek", want: Deepseek},
		{input: "mistral", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				var unsupported *UnsupportedProviderError
				assert.ErrorAs(t, err, &unsupported)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewModel_UnsupportedProvider(t *testing.T) {
	_, err := NewModel(Config{Provider: "unknown", ModelName: "some-model"})
	require.Error(t, err)
	var unsupported *UnsupportedProviderError
	assert.ErrorAs(t, err, &unsupported)
	assert.Contains(t, err.Error(), "unknown")
	assert.Contains(t, err.Error(), "openai")
}

func TestNewModel_MissingModelName(t *testing.T) {
	_, err := NewModel(Config{Provider: OpenAI, APIKey: "sk-test"})
	require.Error(t, err)
	var confErr *ConfigurationError
	require.ErrorAs(t, err, &confErr)
	assert.Equal(t, OpenAI, confErr.Provider)
}

func TestNewModel_MissingAPIKey(t *testing.T) {
	t.Setenv("DEEPSEEK_API_KEY", "")

	_, err := NewModel(Config{Provider: Deepseek, ModelName: "deepseek-chat"})
	require.Error(t, err)
	var confErr *ConfigurationError
	require.ErrorAs(t, err, &confErr)
	assert.Contains(t, confErr.Error(), "DEEPSEEK_API_KEY")
}

func TestNewModel_ExplicitKeyBeatsEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-key")

	m, err := NewModel(Config{Provider: OpenAI, ModelName: "gpt-4o-2024-08-06", APIKey: "explicit-key"})
	require.NoError(t, err)
	assert.Equal(t, "openai", m.Info().Provider)
	assert.Equal(t, "gpt-4o-2024-08-06", m.Info().Name)
}

func TestNewModel_EnvKeyFallback(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-key")

	m, err := NewModel(Config{Provider: Gemini, ModelName: "gemini-pro"})
	require.NoError(t, err)
	assert.Equal(t, "gemini", m.Info().Provider)
}

func TestNewModel_ClaudeUsesAnthropicAdapter(t *testing.T) {
	m, err := NewModel(Config{Provider: Claude, ModelName: "claude-3-haiku-20240307", APIKey: "key"})
	require.NoError(t, err)
	assert.Equal(t, "claude", m.Info().Provider)
	assert.Equal(t, "claude-3-haiku-20240307", m.Info().Name)
}

func TestNewModel_AllProvidersConstruct(t *testing.T) {
	for _, id := range All() {
		t.Run(string(id), func(t *testing.T) {
			m, err := NewModel(Config{Provider: id, ModelName: "some-model", APIKey: "key"})
			require.NoError(t, err)
			assert.Equal(t, string(id), m.Info().Provider)
			assert.Equal(t, "some-model", m.Info().Name)
		})
	}
}

func TestNewModel_ExplicitZeroTemperature(t *testing.T) {
	zero := 0.0
	m, err := NewModel(Config{Provider: OpenAI, ModelName: "gpt-4o-2024-08-06", APIKey: "key", Temperature: &zero})
	require.NoError(t, err)
	assert.Equal(t, "openai", m.Info().Provider)
}

func TestAll_StableOrder(t *testing.T) {
	assert.Equal(t, []ID{Claude, Deepseek, Gemini, OpenAI}, All())
}

func TestEnvVar(t *testing.T) {
	assert.Equal(t, "ANTHROPIC_API_KEY", EnvVar(Claude))
	assert.Equal(t, "OPENAI_API_KEY", EnvVar(OpenAI))
}
