// Package model contains the provider-neutral generation contract plus a mock
// implementation for tests. Concrete adapters live in the subpackages
// model/openai (OpenAI-compatible Chat Completions: OpenAI, Gemini, Deepseek)
// and model/anthropic (Claude Messages API).
package model
