// Package runner implements the multi-provider fan-out: the same prompt is
// dispatched to several providers concurrently and all outcomes are collected
// keyed by provider. A failure in one provider's branch never aborts the
// others; the failing branch's entry carries the error description instead.
package runner

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/hupe1980/llmfanout/agent"
	"github.com/hupe1980/llmfanout/logging"
	"github.com/hupe1980/llmfanout/model"
	"github.com/hupe1980/llmfanout/provider"
	"github.com/hupe1980/llmfanout/tool"
)

// Agent is the per-provider execution surface the runner drives. Satisfied by
// *agent.Agent; overridable in tests via Options.AgentFactory.
type Agent interface {
	Run(ctx context.Context, messages []model.Message) (*agent.Result, error)
}

// AgentFactory builds the agent for one provider branch.
type AgentFactory func(cfg agent.Config) (Agent, error)

// Options configure a Runner.
type Options struct {
	// Logger defaults to a no-op logger.
	Logger logging.Logger
	// Timeout bounds each provider branch. Zero disables the per-branch
	// timeout, leaving only the caller's context (e.g. the Lambda deadline).
	Timeout time.Duration
	// MaxRetries is the number of additional attempts after a failed upstream
	// call. Transient transport errors are retried with exponential backoff;
	// configuration errors and context cancellation are not.
	MaxRetries uint64
	// MaxTurns bounds each agent's generation/tool loop.
	MaxTurns int
	// AgentFactory overrides agent construction, mainly for tests.
	AgentFactory AgentFactory
}

// Input carries the shared prompt and the per-provider dispatch plan.
type Input struct {
	// SystemPrompt is bound as instructions on every agent.
	SystemPrompt string
	// Messages is the shared conversation dispatched to every provider.
	Messages []model.Message
	// Providers lists the branches to run. Must be non-empty.
	Providers []provider.ID
	// ModelNames maps each provider to its model. A missing entry fails that
	// provider with a configuration error; siblings are unaffected.
	ModelNames map[provider.ID]string
	// APIKeys optionally overrides per-provider environment variables.
	APIKeys map[provider.ID]string
	// Tools shared across all branches. Tool implementations must be safe for
	// concurrent use; each branch owns its own client and agent.
	Tools []tool.Tool
	// Temperature applies to every provider; nil means adapter default and an
	// explicit zero is passed through.
	Temperature *float64
}

// Result is one provider's outcome.
type Result struct {
	Provider provider.ID       `json:"provider"`
	Output   string            `json:"output,omitempty"`
	Err      string            `json:"error,omitempty"`
	Usage    *model.TokenUsage `json:"usage,omitempty"`
	Duration time.Duration     `json:"duration_ns"`
}

// OK reports whether the branch produced a response.
func (r Result) OK() bool { return r.Err == "" }

// Results maps each requested provider to its outcome. The key set always
// equals the requested provider set, one entry per provider regardless of
// success or failure.
type Results map[provider.ID]Result

// Runner executes fan-out runs. Safe for concurrent use.
type Runner struct {
	logger       logging.Logger
	timeout      time.Duration
	maxRetries   uint64
	maxTurns     int
	agentFactory AgentFactory
}

// New creates a Runner. Defaults: no-op logger, 60s per-branch timeout, one
// retry with exponential backoff.
func New(optFns ...func(o *Options)) *Runner {
	opts := Options{
		Logger:     logging.NoOpLogger{},
		Timeout:    60 * time.Second,
		MaxRetries: 1,
		MaxTurns:   agent.DefaultMaxTurns,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.AgentFactory == nil {
		opts.AgentFactory = func(cfg agent.Config) (Agent, error) {
			return agent.New(cfg)
		}
	}
	return &Runner{
		logger:       opts.Logger,
		timeout:      opts.Timeout,
		maxRetries:   opts.MaxRetries,
		maxTurns:     opts.MaxTurns,
		agentFactory: opts.AgentFactory,
	}
}

// Run fans the input out to all requested providers concurrently and waits
// for every branch to finish, success or captured failure. The returned error
// is non-nil only for global misuse (empty provider list); per-provider
// failures land in their result entries.
func (r *Runner) Run(ctx context.Context, input Input) (Results, error) {
	if len(input.Providers) == 0 {
		return nil, &provider.ConfigurationError{Reason: "no providers specified"}
	}

	runID := uuid.NewString()
	r.logger.Info("runner.run.start", "run_id", runID, "providers", len(input.Providers))

	branchResults := make([]Result, len(input.Providers))

	var wg sync.WaitGroup
	for i, id := range input.Providers {
		wg.Add(1)
		go func(idx int, id provider.ID) {
			defer wg.Done()
			branchResults[idx] = r.runBranch(ctx, runID, id, input)
		}(i, id)
	}
	wg.Wait()

	results := make(Results, len(input.Providers))
	for _, res := range branchResults {
		results[res.Provider] = res
	}

	r.logger.Info("runner.run.complete", "run_id", runID, "providers", len(results))

	return results, nil
}

// RunSync is Run with a background context.
func (r *Runner) RunSync(input Input) (Results, error) {
	return r.Run(context.Background(), input)
}

// runBranch executes one provider in isolation. Every failure mode (missing
// key, missing model mapping, upstream error, timeout) is captured into the
// branch's Result; nothing escapes past this boundary.
func (r *Runner) runBranch(ctx context.Context, runID string, id provider.ID, input Input) Result {
	start := time.Now()

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	res := Result{Provider: id}

	a, err := r.agentFactory(agent.Config{
		Provider:     id,
		ModelName:    input.ModelNames[id],
		Instructions: input.SystemPrompt,
		APIKey:       input.APIKeys[id],
		Temperature:  input.Temperature,
		Tools:        input.Tools,
		MaxTurns:     r.maxTurns,
		Logger:       r.logger,
	})
	if err != nil {
		res.Err = err.Error()
		res.Duration = time.Since(start)
		r.logger.Warn("runner.branch.failed", "run_id", runID, "provider", id, "error", err.Error())
		return res
	}

	agentRes, err := r.runWithRetry(ctx, a, input.Messages)
	res.Duration = time.Since(start)
	if err != nil {
		res.Err = err.Error()
		r.logger.Warn("runner.branch.failed", "run_id", runID, "provider", id, "error", err.Error())
		return res
	}

	res.Output = agentRes.FinalOutput
	res.Usage = &agentRes.Usage
	r.logger.Info("runner.branch.complete",
		"run_id", runID,
		"provider", id,
		"turns", agentRes.Turns,
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res
}

// runWithRetry retries transient upstream failures with exponential backoff.
// Context cancellation and deadline expiry are permanent.
func (r *Runner) runWithRetry(ctx context.Context, a Agent, messages []model.Message) (*agent.Result, error) {
	var result *agent.Result

	op := func() error {
		res, err := a.Run(ctx, messages)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return backoff.Permanent(err)
			}
			return err
		}
		result = res
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), r.maxRetries), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return nil, err
	}
	return result, nil
}
