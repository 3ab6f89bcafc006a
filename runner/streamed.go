package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/hupe1980/agentloop/agent"
	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/model"
	"github.com/hupe1980/agentloop/stream"
)

// StreamedRunResult is the consumer handle for a streaming run: a
// single-consumption event sequence plus the final result. The result slot
// is written by the producer before the event channel closes, so it is only
// valid after the sequence has been drained.
type StreamedRunResult struct {
	runID  string
	events chan stream.Event
	cancel context.CancelFunc

	mu          sync.Mutex
	finalResult *core.RunResult
}

// RunID identifies the run for log correlation and Runner.Cancel.
func (s *StreamedRunResult) RunID() string { return s.runID }

// Events returns the ordered event sequence. The channel closes once the
// producer finishes; consume it from a single goroutine.
func (s *StreamedRunResult) Events() <-chan stream.Event { return s.events }

// Cancel requests best-effort cancellation of the background run. Buffered
// events stay readable and the channel still closes.
func (s *StreamedRunResult) Cancel() { s.cancel() }

// FinalResult drains any remaining events, then returns the final result
// from the producer-owned slot.
func (s *StreamedRunResult) FinalResult() (*core.RunResult, error) {
	// Observing channel closure is what makes the slot safe to read.
	for range s.events {
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finalResult == nil {
		return nil, core.NewConfigError("no final result available")
	}

	return s.finalResult, nil
}

// send delivers an event unless the run context is already cancelled.
func (s *StreamedRunResult) send(ctx context.Context, ev stream.Event) {
	select {
	case <-ctx.Done():
	case s.events <- ev:
	}
}

// RunStreamed executes the agent in a background goroutine and returns a
// handle immediately. Per-step failures (tools, hooks, tool guardrails) are
// logged and skipped; failures to establish the backend stream and input or
// output guardrail verdicts end the run with a raw-response error event.
func (r *Runner) RunStreamed(ctx context.Context, a *agent.Agent, input string) (*StreamedRunResult, error) {
	if err := r.validate(a); err != nil {
		return nil, err
	}

	cat, err := buildCatalog(a)
	if err != nil {
		return nil, err
	}

	if err := r.acquire(ctx); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	ctx, cancel := context.WithCancel(ctx)
	r.trackRun(runID, cancel)

	sr := &StreamedRunResult{
		runID:  runID,
		events: make(chan stream.Event, r.eventBufferSize),
		cancel: cancel,
	}

	go r.produce(ctx, sr, a, cat, input)

	return sr, nil
}

// produce is the streaming turn loop. It is the sole writer of the event
// channel and the final-result slot; the slot is filled before the channel
// closes.
func (r *Runner) produce(ctx context.Context, sr *StreamedRunResult, start *agent.Agent, cat *catalog, input string) {
	current := start

	var finalOutput string

	// The channel close is last: consumers that observe closure may rely on
	// the result slot being set and the run being fully untracked.
	defer func() {
		sr.mu.Lock()
		sr.finalResult = r.streamResult(current, finalOutput)
		sr.mu.Unlock()
		sr.cancel()
		r.untrackRun(sr.runID)
		r.release()
		close(sr.events)
	}()

	r.logger.Debug("run started", "run_id", sr.runID, "agent", start.Name(), "mode", "streaming")

	input, err := applyInputGuardrails(ctx, start, input)
	if err != nil {
		r.logger.Warn("input guardrail ended the run", "run_id", sr.runID, "error", err)
		sr.send(ctx, stream.RawResponseEvent{Data: fmt.Sprintf("Error: %s", err)})
		return
	}

	conv := core.NewConversation(start.Instructions())

	if r.session != nil {
		history, err := r.session.GetItems(ctx, 0)
		if err != nil {
			r.logger.Warn("session read failed", "run_id", sr.runID, "error", err)
		} else {
			conv.Append(history...)
		}
	}

	conv.Append(core.NewUserMessage(input))

	for turn := 0; turn < r.maxTurns; turn++ {
		if ctx.Err() != nil {
			return
		}

		for _, h := range r.runHooks {
			if err := h.OnAgentStart(ctx, current); err != nil {
				r.logger.Warn("run hook failed", "hook", "on_agent_start", "run_id", sr.runID, "error", err)
			}
		}
		for _, h := range current.Hooks() {
			if err := h.OnStart(ctx, current); err != nil {
				r.logger.Warn("agent hook failed", "hook", "on_start", "run_id", sr.runID, "error", err)
			}
		}

		req := buildRequest(conv, current, cat)

		for _, h := range current.Hooks() {
			if err := h.OnLLMStart(ctx, current, conv.Messages()); err != nil {
				r.logger.Warn("agent hook failed", "hook", "on_llm_start", "run_id", sr.runID, "error", err)
			}
		}

		chunks, err := r.provider.Stream(ctx, req)
		if err != nil {
			sr.send(ctx, stream.RawResponseEvent{Data: fmt.Sprintf("Error: %s", err)})
			return
		}

		var acc accumulator

		for chunks.Next() {
			chunk := chunks.Current()

			if chunk.Delta != "" {
				acc.addText(chunk.Delta)
				sr.send(ctx, stream.RawResponseEvent{Data: chunk.Delta})
			}

			for _, d := range chunk.ToolCallDeltas {
				acc.addFragment(d)
			}

			if chunk.FinishReason != "" {
				break
			}
		}

		streamFailed := false
		if err := chunks.Err(); err != nil {
			// Streaming for this turn ends here; whatever accumulated
			// still gets processed.
			streamFailed = true
			r.logger.Warn("stream failed mid-turn", "run_id", sr.runID, "error", err)
			sr.send(ctx, stream.RawResponseEvent{Data: fmt.Sprintf("Error: %s", err)})
		}

		content := acc.text()
		calls := acc.finalize()
		terminal := len(calls) == 0 && (content != "" || streamFailed)

		if terminal && content != "" {
			checked, err := applyOutputGuardrails(ctx, current, content)
			if err != nil {
				r.logger.Warn("output guardrail ended the run", "run_id", sr.runID, "error", err)
				sr.send(ctx, stream.RawResponseEvent{Data: fmt.Sprintf("Error: %s", err)})
				return
			}
			content = checked
		}

		var preResponse core.Message

		if content != "" {
			preResponse, _ = conv.Last()
			finalOutput = content
			conv.Append(core.NewAssistantMessage(content))
			sr.send(ctx, stream.RunItemEvent{
				Name: stream.NameMessageOutputCreated,
				Item: stream.MessageOutputItem{Content: content},
			})
		}

		if terminal {
			for _, h := range r.runHooks {
				if err := h.OnAgentEnd(ctx, current, content); err != nil {
					r.logger.Warn("run hook failed", "hook", "on_agent_end", "run_id", sr.runID, "error", err)
				}
			}
			for _, h := range current.Hooks() {
				if err := h.OnEnd(ctx, current, content); err != nil {
					r.logger.Warn("agent hook failed", "hook", "on_end", "run_id", sr.runID, "error", err)
				}
			}

			if r.session != nil && content != "" {
				pair := []core.Message{preResponse, core.NewAssistantMessage(content)}
				if err := r.session.AddItems(ctx, pair); err != nil {
					r.logger.Warn("session write failed", "run_id", sr.runID, "error", err)
				}
			}

			return
		}

		if len(calls) == 0 {
			// Nothing usable this turn; the turn budget still applies.
			continue
		}

		for _, call := range calls {
			if ctx.Err() != nil {
				return
			}

			next := r.dispatchStreamed(ctx, sr, current, cat, conv, call)
			if next != nil {
				current = next

				rebuilt, err := buildCatalog(current)
				if err != nil {
					r.logger.Warn("catalog rebuild failed", "run_id", sr.runID, "agent", current.Name(), "error", err)
					sr.send(ctx, stream.RawResponseEvent{Data: fmt.Sprintf("Error: %s", err)})
					return
				}
				cat = rebuilt
			}
		}
	}
}

// dispatchStreamed mirrors dispatch for streaming mode: failures skip the
// step instead of aborting the run, and progress is emitted as events. It
// returns the handoff target when control transferred.
func (r *Runner) dispatchStreamed(ctx context.Context, sr *StreamedRunResult, current *agent.Agent, cat *catalog, conv *core.Conversation, call model.ToolCall) *agent.Agent {
	for _, h := range current.Hooks() {
		if err := h.OnToolStart(ctx, current, call.Name, call.Arguments); err != nil {
			r.logger.Warn("agent hook failed", "hook", "on_tool_start", "tool", call.Name, "error", err)
		}
	}

	sr.send(ctx, stream.RunItemEvent{
		Name: stream.NameToolCalled,
		Item: stream.ToolCallItem{Name: call.Name, Arguments: call.Arguments},
	})

	args, err := applyToolInputGuardrails(ctx, current, call.Name, call.Arguments)
	if err != nil {
		r.logger.Warn("tool input guardrail skipped call", "tool", call.Name, "error", err)
		return nil
	}

	t, isTool := cat.resolveTool(call.Name)
	h, isHandoff := cat.resolveHandoff(call.Name)

	var result any

	switch {
	case isTool:
		out, err := t.Call(ctx, args)
		if err != nil {
			r.logger.Warn("tool execution failed", "tool", call.Name, "error", err)
			return nil
		}
		result = out
	case isHandoff:
		sr.send(ctx, stream.RunItemEvent{
			Name: stream.NameHandoffRequested,
			Item: stream.HandoffRequestedItem{AgentName: h.Target().Name()},
		})

		out, err := h.Call(ctx, args)
		if err != nil {
			r.logger.Warn("handoff execution failed", "tool", call.Name, "error", err)
			return nil
		}
		result = out
	default:
		r.logger.Warn("tool not found", "tool", call.Name)
		return nil
	}

	result, err = applyToolOutputGuardrails(ctx, current, call.Name, result)
	if err != nil {
		r.logger.Warn("tool output guardrail skipped result", "tool", call.Name, "error", err)
		return nil
	}

	for _, ah := range current.Hooks() {
		if err := ah.OnToolEnd(ctx, current, call.Name, result); err != nil {
			r.logger.Warn("agent hook failed", "hook", "on_tool_end", "tool", call.Name, "error", err)
		}
	}

	payload, err := json.Marshal(result)
	if err != nil {
		r.logger.Warn("tool result not serializable", "tool", call.Name, "error", err)
		payload = nil
	}

	if isHandoff && hasHandoffMarker(result) {
		conv.Append(core.NewToolMessage(fmt.Sprintf("Tool '%s' returned: %s", call.Name, payload)))

		target := h.Target()

		for _, rh := range r.runHooks {
			if err := rh.OnHandoff(ctx, current, target); err != nil {
				r.logger.Warn("run hook failed", "hook", "on_handoff", "error", err)
			}
		}
		for _, ah := range current.Hooks() {
			if err := ah.OnHandoff(ctx, current, target); err != nil {
				r.logger.Warn("agent hook failed", "hook", "on_handoff", "error", err)
			}
		}

		sr.send(ctx, stream.RunItemEvent{
			Name: stream.NameHandoffOccurred,
			Item: stream.HandoffOccurredItem{AgentName: target.Name()},
		})
		sr.send(ctx, stream.AgentUpdatedEvent{NewAgent: target})

		conv.SyncSystem(target.Instructions())

		return target
	}

	sr.send(ctx, stream.RunItemEvent{
		Name: stream.NameToolOutput,
		Item: stream.ToolOutputItem{Name: call.Name, Output: string(payload)},
	})
	conv.Append(core.NewToolMessage(fmt.Sprintf("Tool '%s' returned: %s", call.Name, payload)))

	return nil
}

// streamResult builds the final result for a streaming run. A parse failure
// against a declared output schema is logged rather than fatal; the text
// output stands on its own.
func (r *Runner) streamResult(a *agent.Agent, content string) *core.RunResult {
	if a.OutputSchema() == nil || content == "" {
		return core.NewRunResult(content)
	}

	var structured map[string]any
	if err := json.Unmarshal([]byte(content), &structured); err != nil {
		r.logger.Warn("structured output parse failed", "agent", a.Name(), "error", err)
		return core.NewRunResult(content)
	}

	return core.NewStructuredRunResult(content, structured)
}
