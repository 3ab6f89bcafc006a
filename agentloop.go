// Package agentloop provides a high-level façade over the runner and agent
// abstractions enabling rapid construction of tool-using LLM agents. Most
// applications interact with this package by:
//  1. Declaring an agent via agent.New() with instructions, tools and handoffs
//  2. Selecting a model provider (model/openai, model/anthropic or a custom one)
//  3. Calling Run for a synchronous result or RunStreamed for incremental events
//
// The façade delegates orchestration to runner.Runner while keeping setup and
// usage ergonomics concise. Applications that reuse a runner across many calls,
// cancel runs by ID or cap concurrency should construct runner.New directly.
package agentloop

import (
	"context"

	"github.com/hupe1980/agentloop/agent"
	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/runner"
)

// Run executes the agent synchronously until it produces a final answer or
// fails. A fresh runner is constructed per call; pass option functions to
// supply the model provider, session, hooks or a turn limit.
func Run(ctx context.Context, a *agent.Agent, input string, optFns ...func(o *runner.Options)) (*core.RunResult, error) {
	return runner.New(optFns...).Run(ctx, a, input)
}

// RunStreamed starts the agent in streaming mode and returns immediately with
// a handle exposing the event channel and the final result. A fresh runner is
// constructed per call, configured the same way as Run.
func RunStreamed(ctx context.Context, a *agent.Agent, input string, optFns ...func(o *runner.Options)) (*runner.StreamedRunResult, error) {
	return runner.New(optFns...).RunStreamed(ctx, a, input)
}
