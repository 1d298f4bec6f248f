// Package tool implements the function / tool calling subsystem that lets
// agents invoke structured capabilities with schema validated arguments and
// consistent error handling. Tools are either backed by local Go functions
// (FunctionTool) or by a remote HTTP callback (CallbackTool); both can be
// produced from declarative JSON definitions via FromJSON.
package tool

import (
	"context"
	"fmt"

	"github.com/hupe1980/llmfanout/model"
)

// Error codes attached to ToolError for uniform downstream handling.
const (
	// CodeValidation indicates a schema / argument mismatch or a malformed
	// tool definition.
	CodeValidation = "VALIDATION_ERROR"
	// CodeExecution indicates the underlying implementation returned an error.
	CodeExecution = "EXECUTION_ERROR"
	// CodeCallback indicates the remote callback failed (transport error or
	// non-success HTTP status).
	CodeCallback = "CALLBACK_ERROR"
)

// Tool defines the interface for extending agent capabilities with external functions.
//
// Tool implementations should:
//   - Provide clear, descriptive names and descriptions
//   - Define proper JSON schema for parameters
//   - Handle errors gracefully
//   - Be safe for concurrent use
type Tool interface {
	// Name returns the unique identifier for this tool.
	// Names should be descriptive and follow function naming conventions (snake_case recommended).
	Name() string

	// Description returns a human-readable description of what this tool does.
	// This description is provided to the LLM to help it understand when and how to use the tool.
	Description() string

	// Parameters returns a JSON schema describing the expected input format.
	// This schema is used for parameter validation and LLM function calling.
	Parameters() map[string]any

	// Call executes the tool with structured arguments.
	// Arguments are parsed from JSON and validated against the tool's schema.
	Call(ctx context.Context, args map[string]any) (any, error)
}

// ToolError represents errors that occur during tool definition or execution.
type ToolError struct {
	Tool    string `json:"tool"`              // Name of the tool that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Details any    `json:"details,omitempty"` // Additional error details
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}

// ModelDefinitions converts a tool set into the declarative form sent to model
// providers.
func ModelDefinitions(tools []Tool) []model.ToolDefinition {
	if len(tools) == 0 {
		return nil
	}
	defs := make([]model.ToolDefinition, len(tools))
	for i, t := range tools {
		defs[i] = model.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		}
	}
	return defs
}
