// Package llmfanout provides a high-level façade over the provider, agent and
// runner packages for dispatching one prompt to several hosted LLM providers
// at once. Most applications interact with this package by:
//  1. Creating a Fanout via New() (optionally overriding timeout, retries or logger)
//  2. Calling Run with a context, or RunSync without one
//  3. Inspecting the per-provider Results map, which always carries one entry
//     per requested provider whether its branch succeeded or failed
//
// The façade delegates dispatch to runner.Runner while keeping setup concise.
// Defaults are safe for local use; serverless deployments typically supply a
// structured logger and run through the handler package instead.
package llmfanout

import (
	"context"
	"time"

	"github.com/hupe1980/llmfanout/logging"
	"github.com/hupe1980/llmfanout/model"
	"github.com/hupe1980/llmfanout/provider"
	"github.com/hupe1980/llmfanout/runner"
	"github.com/hupe1980/llmfanout/tool"
)

// Options configures the Fanout instance.
type Options struct {
	// Timeout bounds each provider branch. Zero keeps the runner default.
	Timeout time.Duration

	// MaxRetries is the number of additional attempts per branch after a
	// transport-level failure.
	MaxRetries uint64

	// MaxTurns bounds each agent's generation and tool loop.
	MaxTurns int

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Request describes one fan-out dispatch.
type Request struct {
	// SystemPrompt is applied to every provider as agent instructions.
	SystemPrompt string

	// Message is the user message dispatched to every provider.
	Message string

	// Providers lists the branches to run. Must be non-empty.
	Providers []provider.ID

	// ModelNames maps providers to models. Providers without an entry fail
	// individually with a configuration error.
	ModelNames map[provider.ID]string

	// APIKeys optionally overrides the per-provider environment variables.
	APIKeys map[provider.ID]string

	// Tools shared across all branches.
	Tools []tool.Tool

	// Temperature applies to every provider; nil means adapter default and an
	// explicit zero is passed through.
	Temperature *float64
}

// Fanout is the high-level façade over the concurrent dispatcher.
type Fanout struct {
	runner *runner.Runner
}

// New creates a Fanout with optional overrides.
func New(optFns ...func(o *Options)) *Fanout {
	opts := Options{
		MaxRetries: 1,
		Logger:     logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	r := runner.New(func(o *runner.Options) {
		if opts.Timeout > 0 {
			o.Timeout = opts.Timeout
		}
		if opts.MaxTurns > 0 {
			o.MaxTurns = opts.MaxTurns
		}
		o.MaxRetries = opts.MaxRetries
		o.Logger = opts.Logger
	})

	return &Fanout{runner: r}
}

// Run dispatches the request to every listed provider concurrently and blocks
// until all branches settle. Per-provider failures land in the Results map;
// the returned error is non-nil only when no dispatch can start at all.
func (f *Fanout) Run(ctx context.Context, req Request) (runner.Results, error) {
	return f.runner.Run(ctx, runner.Input{
		SystemPrompt: req.SystemPrompt,
		Messages:     []model.Message{{Role: "user", Content: req.Message}},
		Providers:    req.Providers,
		ModelNames:   req.ModelNames,
		APIKeys:      req.APIKeys,
		Tools:        req.Tools,
		Temperature:  req.Temperature,
	})
}

// RunSync is Run with a background context.
func (f *Fanout) RunSync(req Request) (runner.Results, error) {
	return f.Run(context.Background(), req)
}
