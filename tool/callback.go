package tool

import (
	"context"
	"fmt"
	"time"

	"resty.dev/v3"

	"github.com/hupe1980/llmfanout/internal/util"
)

// CallbackOptions configure a CallbackTool.
type CallbackOptions struct {
	// Client overrides the default HTTP client, mainly for tests.
	Client *resty.Client
	// Timeout bounds a single callback invocation. Only applied to the
	// default client.
	Timeout time.Duration
}

// CallbackTool executes by POSTing the resolved arguments as a JSON body to a
// remote endpoint and returning the response body as the tool result. One
// outbound HTTP request is issued per invocation.
//
// Transport failures and non-2xx statuses are reported as
// *ToolError{Code: CodeCallback} so the owning conversation can surface them
// to the model instead of aborting the run.
type CallbackTool struct {
	name        string
	description string
	parameters  map[string]any
	callbackURL string
	client      *resty.Client
}

// NewCallbackTool constructs a CallbackTool for the given definition fields.
func NewCallbackTool(
	name, description string,
	parameters map[string]any,
	callbackURL string,
	optFns ...func(o *CallbackOptions),
) *CallbackTool {
	opts := CallbackOptions{
		Timeout: 30 * time.Second,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	client := opts.Client
	if client == nil {
		client = resty.New().SetTimeout(opts.Timeout)
	}

	return &CallbackTool{
		name:        name,
		description: description,
		parameters:  parameters,
		callbackURL: callbackURL,
		client:      client,
	}
}

// Name returns the unique tool name used in function call declarations and routing.
func (t *CallbackTool) Name() string { return t.name }

// Description returns the short natural language description exposed to models.
func (t *CallbackTool) Description() string { return t.description }

// Parameters returns the JSON schema describing expected arguments.
func (t *CallbackTool) Parameters() map[string]any { return t.parameters }

// CallbackURL returns the endpoint invoked on Call.
func (t *CallbackTool) CallbackURL() string { return t.callbackURL }

// Call validates args against the schema, POSTs them as the JSON body to the
// callback URL and returns the response body string.
func (t *CallbackTool) Call(ctx context.Context, args map[string]any) (any, error) {
	if err := util.ValidateParameters(args, t.parameters); err != nil {
		return nil, &ToolError{
			Tool:    t.name,
			Message: "parameter validation failed: " + err.Error(),
			Code:    CodeValidation,
			Details: err,
		}
	}

	if args == nil {
		args = map[string]any{}
	}

	resp, err := t.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(args).
		Post(t.callbackURL)
	if err != nil {
		return nil, &ToolError{
			Tool:    t.name,
			Message: fmt.Sprintf("callback request to %s failed: %v", t.callbackURL, err),
			Code:    CodeCallback,
		}
	}

	if !resp.IsSuccess() {
		return nil, &ToolError{
			Tool:    t.name,
			Message: fmt.Sprintf("callback returned status %d: %s", resp.StatusCode(), resp.String()),
			Code:    CodeCallback,
		}
	}

	return resp.String(), nil
}
