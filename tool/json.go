package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Definition is the declarative JSON form of a tool:
//
//	{
//	  "name": "tool_name",
//	  "description": "Tool description",
//	  "parameters": {
//	    "type": "object",
//	    "properties": {...},
//	    "required": [...]
//	  },
//	  "callback_url": "https://api.example.com/tools/tool_name"
//	}
//
// CallbackURL is optional; a definition without one produces a local echo tool
// that reports the arguments it was called with.
type Definition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
	CallbackURL string         `json:"callback_url,omitempty"`
}

// validate fails fast on malformed definitions before any tool is built.
func (d Definition) validate() error {
	if d.Name == "" {
		return NewToolError("", "tool definition must include a 'name' field", CodeValidation)
	}
	if d.Description == "" {
		return NewToolError(d.Name, "tool definition must include a 'description' field", CodeValidation)
	}
	if d.Parameters == nil {
		return NewToolError(d.Name, "tool definition must include a 'parameters' schema", CodeValidation)
	}
	return nil
}

// FromJSON builds tools from raw JSON holding a single definition object, an
// array of definitions, or a JSON string that itself encodes either form.
func FromJSON(raw []byte, optFns ...func(o *CallbackOptions)) ([]Tool, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, nil
	}

	if trimmed[0] == '"' {
		var inner string
		if err := json.Unmarshal(trimmed, &inner); err != nil {
			return nil, NewToolError("", fmt.Sprintf("invalid tool definition JSON: %v", err), CodeValidation)
		}
		return FromJSON([]byte(inner), optFns...)
	}

	var defs []Definition
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &defs); err != nil {
			return nil, NewToolError("", fmt.Sprintf("invalid tool definition JSON: %v", err), CodeValidation)
		}
	} else {
		var def Definition
		if err := json.Unmarshal(trimmed, &def); err != nil {
			return nil, NewToolError("", fmt.Sprintf("invalid tool definition JSON: %v", err), CodeValidation)
		}
		defs = []Definition{def}
	}

	return FromDefinitions(defs, optFns...)
}

// FromDefinitions builds one tool per definition, enforcing unique names
// within the set.
func FromDefinitions(defs []Definition, optFns ...func(o *CallbackOptions)) ([]Tool, error) {
	tools := make([]Tool, 0, len(defs))
	seen := make(map[string]struct{}, len(defs))

	for _, def := range defs {
		if err := def.validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[def.Name]; dup {
			return nil, NewToolError(def.Name, "duplicate tool name in tool set", CodeValidation)
		}
		seen[def.Name] = struct{}{}

		if def.CallbackURL != "" {
			tools = append(tools, NewCallbackTool(def.Name, def.Description, def.Parameters, def.CallbackURL, optFns...))
			continue
		}
		tools = append(tools, newEchoTool(def))
	}

	return tools, nil
}

// echoTool is the local fallback for definitions without a callback URL. It
// reports the arguments it was invoked with, which is enough for wiring and
// prompt experiments before a backend exists.
type echoTool struct {
	def Definition
}

func newEchoTool(def Definition) *echoTool { return &echoTool{def: def} }

func (t *echoTool) Name() string               { return t.def.Name }
func (t *echoTool) Description() string        { return t.def.Description }
func (t *echoTool) Parameters() map[string]any { return t.def.Parameters }

func (t *echoTool) Call(_ context.Context, args map[string]any) (any, error) {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%v", k, args[k]))
	}

	return fmt.Sprintf("Tool %s called with parameters: %s", t.def.Name, strings.Join(pairs, ", ")), nil
}
