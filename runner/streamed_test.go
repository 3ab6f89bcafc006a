package runner

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentloop/agent"
	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/guardrail"
	"github.com/hupe1980/agentloop/model"
	"github.com/hupe1980/agentloop/session"
	"github.com/hupe1980/agentloop/stream"
	"github.com/hupe1980/agentloop/tool"
)

func collectEvents(sr *StreamedRunResult) []stream.Event {
	var events []stream.Event
	for ev := range sr.Events() {
		events = append(events, ev)
	}
	return events
}

// filterItems returns the run items announced under the given event name.
func filterItems(events []stream.Event, name stream.ItemEventName) []stream.RunItem {
	var out []stream.RunItem
	for _, ev := range events {
		if item, ok := ev.(stream.RunItemEvent); ok && item.Name == name {
			out = append(out, item.Item)
		}
	}
	return out
}

func TestRunStreamedTextDeltas(t *testing.T) {
	provider := model.NewMockProvider()
	provider.QueueStream(
		model.Chunk{Delta: "Hel"},
		model.Chunk{Delta: "lo!"},
		model.Chunk{FinishReason: "stop"},
	)

	a := agent.New("Assistant", func(o *agent.Options) {
		o.Instructions = "Be brief."
	})
	r := New(func(o *Options) { o.Provider = provider })

	sr, err := r.RunStreamed(context.Background(), a, "Say hello")
	require.NoError(t, err)

	events := collectEvents(sr)
	require.Len(t, events, 3)

	raw, ok := events[0].(stream.RawResponseEvent)
	require.True(t, ok)
	assert.Equal(t, "Hel", raw.Data)

	raw, ok = events[1].(stream.RawResponseEvent)
	require.True(t, ok)
	assert.Equal(t, "lo!", raw.Data)

	item, ok := events[2].(stream.RunItemEvent)
	require.True(t, ok)
	assert.Equal(t, stream.NameMessageOutputCreated, item.Name)
	assert.Equal(t, stream.MessageOutputItem{Content: "Hello!"}, item.Item)

	result, err := sr.FinalResult()
	require.NoError(t, err)
	assert.Equal(t, "Hello!", result.FinalOutput())
	assert.Equal(t, 1, provider.CallCount())
}

func TestRunStreamedFinalResultDrains(t *testing.T) {
	provider := model.NewMockProvider()
	provider.QueueStream(
		model.Chunk{Delta: "Hello!"},
		model.Chunk{FinishReason: "stop"},
	)

	r := New(func(o *Options) { o.Provider = provider })

	sr, err := r.RunStreamed(context.Background(), agent.New("Assistant"), "hi")
	require.NoError(t, err)

	// No explicit event consumption; FinalResult drains internally.
	result, err := sr.FinalResult()
	require.NoError(t, err)
	assert.Equal(t, "Hello!", result.FinalOutput())
}

func TestRunStreamedFragmentReassembly(t *testing.T) {
	provider := model.NewMockProvider()
	provider.QueueStream(
		model.Chunk{ToolCallDeltas: []model.ToolCallDelta{{Index: 0, ID: "call_1", Name: "get_"}}},
		model.Chunk{ToolCallDeltas: []model.ToolCallDelta{{Index: 0, Name: "weather", Arguments: `{"ci`}}},
		model.Chunk{ToolCallDeltas: []model.ToolCallDelta{{Index: 0, Arguments: `ty":"Lima"}`}}, FinishReason: "tool_calls"},
	)
	provider.QueueStream(
		model.Chunk{Delta: "Sunny."},
		model.Chunk{FinishReason: "stop"},
	)

	var got map[string]any
	weather := newTestTool("get_weather", func(_ context.Context, args map[string]any) (any, error) {
		got = args
		return map[string]any{"temp": 20}, nil
	})
	a := agent.New("Assistant", func(o *agent.Options) {
		o.Instructions = "Answer weather questions."
		o.Tools = []tool.Tool{weather}
	})
	r := New(func(o *Options) { o.Provider = provider })

	sr, err := r.RunStreamed(context.Background(), a, "Weather in Lima?")
	require.NoError(t, err)

	events := collectEvents(sr)
	require.Len(t, events, 4)

	calls := filterItems(events, stream.NameToolCalled)
	require.Len(t, calls, 1, "fragments must reassemble into a single call")
	assert.Equal(t, stream.ToolCallItem{
		Name:      "get_weather",
		Arguments: map[string]any{"city": "Lima"},
	}, calls[0])

	outputs := filterItems(events, stream.NameToolOutput)
	require.Len(t, outputs, 1)
	assert.Equal(t, stream.ToolOutputItem{
		Name:   "get_weather",
		Output: `{"temp":20}`,
	}, outputs[0])

	assert.Equal(t, map[string]any{"city": "Lima"}, got)

	result, err := sr.FinalResult()
	require.NoError(t, err)
	assert.Equal(t, "Sunny.", result.FinalOutput())
	assert.Equal(t, 2, provider.CallCount())
}

func TestRunStreamedNameOnlyCallGetsEmptyArgs(t *testing.T) {
	provider := model.NewMockProvider()
	provider.QueueStream(
		model.Chunk{ToolCallDeltas: []model.ToolCallDelta{{Index: 0, ID: "call_1", Name: "noop"}}, FinishReason: "tool_calls"},
	)
	provider.QueueStream(model.Chunk{Delta: "ok", FinishReason: "stop"})

	var got map[string]any
	noop := newTestTool("noop", func(_ context.Context, args map[string]any) (any, error) {
		got = args
		return "done", nil
	})
	a := agent.New("Assistant", func(o *agent.Options) {
		o.Tools = []tool.Tool{noop}
	})
	r := New(func(o *Options) { o.Provider = provider })

	sr, err := r.RunStreamed(context.Background(), a, "go")
	require.NoError(t, err)

	events := collectEvents(sr)
	calls := filterItems(events, stream.NameToolCalled)
	require.Len(t, calls, 1)
	assert.Equal(t, map[string]any{}, calls[0].(stream.ToolCallItem).Arguments)
	assert.Equal(t, map[string]any{}, got)
}

func TestRunStreamedHandoffEventSequence(t *testing.T) {
	provider := model.NewMockProvider()
	provider.QueueStream(
		model.Chunk{ToolCallDeltas: []model.ToolCallDelta{{Index: 0, ID: "call_1", Name: "billing", Arguments: "{}"}}, FinishReason: "tool_calls"},
	)
	provider.QueueStream(
		model.Chunk{Delta: "Resolved."},
		model.Chunk{FinishReason: "stop"},
	)

	billing := agent.New("Billing", func(o *agent.Options) {
		o.Instructions = "You handle billing."
		o.Tools = []tool.Tool{newTestTool("check_invoice", nil)}
	})
	triage := agent.New("Triage", func(o *agent.Options) {
		o.Instructions = "Route the user."
		o.Handoffs = []*agent.Handoff{agent.NewHandoff(billing)}
	})
	r := New(func(o *Options) { o.Provider = provider })

	sr, err := r.RunStreamed(context.Background(), triage, "invoice?")
	require.NoError(t, err)

	events := collectEvents(sr)
	require.Len(t, events, 6)

	called, ok := events[0].(stream.RunItemEvent)
	require.True(t, ok)
	assert.Equal(t, stream.NameToolCalled, called.Name)

	requested, ok := events[1].(stream.RunItemEvent)
	require.True(t, ok)
	assert.Equal(t, stream.NameHandoffRequested, requested.Name)
	assert.Equal(t, stream.HandoffRequestedItem{AgentName: "Billing"}, requested.Item)

	occurred, ok := events[2].(stream.RunItemEvent)
	require.True(t, ok)
	assert.Equal(t, stream.NameHandoffOccurred, occurred.Name)
	assert.Equal(t, stream.HandoffOccurredItem{AgentName: "Billing"}, occurred.Item)

	updated, ok := events[3].(stream.AgentUpdatedEvent)
	require.True(t, ok)
	assert.Same(t, billing, updated.NewAgent)

	// A handoff produces no tool output item.
	assert.Empty(t, filterItems(events, stream.NameToolOutput))

	reqs := provider.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, core.NewSystemMessage("You handle billing."), reqs[1].Messages[0])
	require.Len(t, reqs[1].Tools, 1)
	assert.Equal(t, "check_invoice", reqs[1].Tools[0].Name)

	result, err := sr.FinalResult()
	require.NoError(t, err)
	assert.Equal(t, "Resolved.", result.FinalOutput())
}

func TestRunStreamedEstablishErrorEmitsErrorEvent(t *testing.T) {
	provider := model.NewMockProvider()
	provider.QueueStreamError(core.NewModelError(errors.New("down")))

	r := New(func(o *Options) { o.Provider = provider })

	sr, err := r.RunStreamed(context.Background(), agent.New("Assistant"), "hi")
	require.NoError(t, err)

	events := collectEvents(sr)
	require.Len(t, events, 1)

	raw, ok := events[0].(stream.RawResponseEvent)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(raw.Data, "Error: "))
	assert.Contains(t, raw.Data, "down")

	result, err := sr.FinalResult()
	require.NoError(t, err)
	assert.Empty(t, result.FinalOutput())
	assert.Equal(t, 1, provider.CallCount())
}

func TestRunStreamedMidStreamFailure(t *testing.T) {
	provider := model.NewMockProvider()
	provider.QueueFailingStream(errors.New("connection reset"),
		model.Chunk{Delta: "par"},
		model.Chunk{Delta: "tial"},
	)

	r := New(func(o *Options) { o.Provider = provider })

	sr, err := r.RunStreamed(context.Background(), agent.New("Assistant"), "hi")
	require.NoError(t, err)

	events := collectEvents(sr)
	require.Len(t, events, 4)

	raw, ok := events[2].(stream.RawResponseEvent)
	require.True(t, ok)
	assert.Equal(t, "Error: connection reset", raw.Data)

	// The partial text accumulated before the failure still becomes the
	// final output; the backend call is not retried.
	item, ok := events[3].(stream.RunItemEvent)
	require.True(t, ok)
	assert.Equal(t, stream.NameMessageOutputCreated, item.Name)

	result, err := sr.FinalResult()
	require.NoError(t, err)
	assert.Equal(t, "partial", result.FinalOutput())
	assert.Equal(t, 1, provider.CallCount())
}

func TestRunStreamedEmptyRoundContinues(t *testing.T) {
	provider := model.NewMockProvider()
	provider.QueueStream(model.Chunk{FinishReason: "stop"})
	provider.QueueStream(model.Chunk{Delta: "hi"}, model.Chunk{FinishReason: "stop"})

	r := New(func(o *Options) { o.Provider = provider })

	sr, err := r.RunStreamed(context.Background(), agent.New("Assistant"), "hello")
	require.NoError(t, err)

	result, err := sr.FinalResult()
	require.NoError(t, err)
	assert.Equal(t, "hi", result.FinalOutput())
	assert.Equal(t, 2, provider.CallCount(), "an empty round consumes a turn but does not end the run")
}

func TestRunStreamedToolFailureSkipsStep(t *testing.T) {
	provider := model.NewMockProvider()
	provider.QueueStream(
		model.Chunk{ToolCallDeltas: []model.ToolCallDelta{{Index: 0, ID: "call_1", Name: "broken_tool", Arguments: "{}"}}, FinishReason: "tool_calls"},
	)
	provider.QueueStream(model.Chunk{Delta: "recovered", FinishReason: "stop"})

	broken := newTestTool("broken_tool", func(context.Context, map[string]any) (any, error) {
		return nil, errors.New("boom")
	})
	a := agent.New("Assistant", func(o *agent.Options) {
		o.Instructions = "Keep going."
		o.Tools = []tool.Tool{broken}
	})
	r := New(func(o *Options) { o.Provider = provider })

	sr, err := r.RunStreamed(context.Background(), a, "try")
	require.NoError(t, err)

	events := collectEvents(sr)
	require.Len(t, events, 3)
	require.Len(t, filterItems(events, stream.NameToolCalled), 1)
	assert.Empty(t, filterItems(events, stream.NameToolOutput))

	// The skipped step leaves no trace in the conversation.
	reqs := provider.Requests()
	require.Len(t, reqs[1].Messages, 2)

	result, err := sr.FinalResult()
	require.NoError(t, err)
	assert.Equal(t, "recovered", result.FinalOutput())
}

func TestRunStreamedUnknownToolSkips(t *testing.T) {
	provider := model.NewMockProvider()
	provider.QueueStream(
		model.Chunk{ToolCallDeltas: []model.ToolCallDelta{{Index: 0, ID: "call_1", Name: "ghost", Arguments: "{}"}}, FinishReason: "tool_calls"},
	)
	provider.QueueStream(model.Chunk{Delta: "still here", FinishReason: "stop"})

	r := New(func(o *Options) { o.Provider = provider })

	sr, err := r.RunStreamed(context.Background(), agent.New("Assistant"), "call it")
	require.NoError(t, err)

	events := collectEvents(sr)
	require.Len(t, filterItems(events, stream.NameToolCalled), 1)
	assert.Empty(t, filterItems(events, stream.NameToolOutput))

	result, err := sr.FinalResult()
	require.NoError(t, err)
	assert.Equal(t, "still here", result.FinalOutput())
	assert.Equal(t, 2, provider.CallCount())
}

func TestRunStreamedInputGuardrailBlocks(t *testing.T) {
	provider := model.NewMockProvider()

	a := agent.New("Assistant", func(o *agent.Options) {
		o.InputGuardrails = []guardrail.Input{
			guardrail.InputFunc(func(context.Context, string) (guardrail.Result, error) {
				return guardrail.Block("contains pii"), nil
			}),
		}
	})
	r := New(func(o *Options) { o.Provider = provider })

	sr, err := r.RunStreamed(context.Background(), a, "my ssn is 123")
	require.NoError(t, err)

	events := collectEvents(sr)
	require.Len(t, events, 1)
	raw, ok := events[0].(stream.RawResponseEvent)
	require.True(t, ok)
	assert.Contains(t, raw.Data, "contains pii")
	assert.Zero(t, provider.CallCount())

	result, err := sr.FinalResult()
	require.NoError(t, err)
	assert.Empty(t, result.FinalOutput())
}

func TestRunStreamedOutputGuardrails(t *testing.T) {
	t.Run("block ends the run with an error event", func(t *testing.T) {
		provider := model.NewMockProvider()
		provider.QueueStream(model.Chunk{Delta: "leaked"}, model.Chunk{FinishReason: "stop"})

		a := agent.New("Assistant", func(o *agent.Options) {
			o.OutputGuardrails = []guardrail.Output{
				guardrail.OutputFunc(func(context.Context, string) (guardrail.Result, error) {
					return guardrail.Block("secret detected"), nil
				}),
			}
		})
		r := New(func(o *Options) { o.Provider = provider })

		sr, err := r.RunStreamed(context.Background(), a, "tell me")
		require.NoError(t, err)

		events := collectEvents(sr)
		require.Len(t, events, 2)
		raw, ok := events[1].(stream.RawResponseEvent)
		require.True(t, ok)
		assert.Contains(t, raw.Data, "secret detected")
		assert.Empty(t, filterItems(events, stream.NameMessageOutputCreated))

		result, err := sr.FinalResult()
		require.NoError(t, err)
		assert.Empty(t, result.FinalOutput())
	})

	t.Run("modify rewrites the final output", func(t *testing.T) {
		provider := model.NewMockProvider()
		provider.QueueStream(model.Chunk{Delta: "dirty"}, model.Chunk{FinishReason: "stop"})

		a := agent.New("Assistant", func(o *agent.Options) {
			o.OutputGuardrails = []guardrail.Output{
				guardrail.OutputFunc(func(context.Context, string) (guardrail.Result, error) {
					return guardrail.Modify("clean"), nil
				}),
			}
		})
		r := New(func(o *Options) { o.Provider = provider })

		sr, err := r.RunStreamed(context.Background(), a, "hello")
		require.NoError(t, err)

		events := collectEvents(sr)
		items := filterItems(events, stream.NameMessageOutputCreated)
		require.Len(t, items, 1)
		assert.Equal(t, stream.MessageOutputItem{Content: "clean"}, items[0])

		result, err := sr.FinalResult()
		require.NoError(t, err)
		assert.Equal(t, "clean", result.FinalOutput())
	})
}

func TestRunStreamedSessionWrites(t *testing.T) {
	t.Run("pair after a tool round", func(t *testing.T) {
		ctx := context.Background()
		sess := session.NewInMemory()

		provider := model.NewMockProvider()
		provider.QueueStream(
			model.Chunk{ToolCallDeltas: []model.ToolCallDelta{{Index: 0, ID: "call_1", Name: "get_weather", Arguments: "{}"}}, FinishReason: "tool_calls"},
		)
		provider.QueueStream(model.Chunk{Delta: "Sunny."}, model.Chunk{FinishReason: "stop"})

		weather := newTestTool("get_weather", func(context.Context, map[string]any) (any, error) {
			return map[string]any{"temp": 20}, nil
		})
		a := agent.New("Assistant", func(o *agent.Options) {
			o.Tools = []tool.Tool{weather}
		})
		r := New(func(o *Options) {
			o.Provider = provider
			o.Session = sess
		})

		sr, err := r.RunStreamed(ctx, a, "Weather?")
		require.NoError(t, err)
		_, err = sr.FinalResult()
		require.NoError(t, err)

		items, err := sess.GetItems(ctx, 0)
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, core.RoleTool, items[0].Role)
		assert.Equal(t, `Tool 'get_weather' returned: {"temp":20}`, items[0].Content)
		assert.Equal(t, core.NewAssistantMessage("Sunny."), items[1])
	})

	t.Run("history seeds the first request", func(t *testing.T) {
		ctx := context.Background()
		sess := session.NewInMemory()
		require.NoError(t, sess.AddItems(ctx, []core.Message{
			core.NewUserMessage("earlier question"),
			core.NewAssistantMessage("earlier answer"),
		}))

		provider := model.NewMockProvider()
		provider.QueueStream(model.Chunk{Delta: "hi", FinishReason: "stop"})

		a := agent.New("Assistant", func(o *agent.Options) {
			o.Instructions = "Be helpful."
		})
		r := New(func(o *Options) {
			o.Provider = provider
			o.Session = sess
		})

		sr, err := r.RunStreamed(ctx, a, "new question")
		require.NoError(t, err)
		_, err = sr.FinalResult()
		require.NoError(t, err)

		req := provider.Requests()[0]
		require.Len(t, req.Messages, 4)
		assert.Equal(t, "earlier question", req.Messages[1].Content)
		assert.Equal(t, "earlier answer", req.Messages[2].Content)
		assert.Equal(t, core.NewUserMessage("new question"), req.Messages[3])
	})

	t.Run("read failure is tolerated", func(t *testing.T) {
		ctx := context.Background()
		inner := session.NewInMemory()
		sess := &faultySession{Session: inner, getErr: errors.New("history corrupt")}

		provider := model.NewMockProvider()
		provider.QueueStream(model.Chunk{Delta: "hi", FinishReason: "stop"})

		r := New(func(o *Options) {
			o.Provider = provider
			o.Session = sess
		})

		sr, err := r.RunStreamed(ctx, agent.New("Assistant"), "hello")
		require.NoError(t, err)

		result, err := sr.FinalResult()
		require.NoError(t, err)
		assert.Equal(t, "hi", result.FinalOutput())

		// The terminal write still happened against the underlying store.
		items, err := inner.GetItems(ctx, 0)
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, core.NewUserMessage("hello"), items[0])
		assert.Equal(t, core.NewAssistantMessage("hi"), items[1])
	})
}

func TestRunStreamedHookOrder(t *testing.T) {
	provider := model.NewMockProvider()
	provider.QueueStream(model.Chunk{Delta: "hi", FinishReason: "stop"})

	log := &callLog{}
	a := agent.New("Assistant", func(o *agent.Options) {
		o.Hooks = []agent.Hooks{&recordingHooks{id: "agent", log: log}}
	})
	r := New(func(o *Options) {
		o.Provider = provider
		o.RunHooks = []agent.RunHooks{&recordingRunHooks{log: log}}
	})

	sr, err := r.RunStreamed(context.Background(), a, "hello")
	require.NoError(t, err)
	collectEvents(sr)

	want := []string{
		"run.on_agent_start:Assistant",
		"agent.on_start",
		"agent.on_llm_start",
		"run.on_agent_end",
		"agent.on_end",
	}
	assert.Equal(t, want, log.all())
}

func TestRunStreamedHookFailuresSuppressed(t *testing.T) {
	provider := model.NewMockProvider()
	provider.QueueStream(model.Chunk{Delta: "hi", FinishReason: "stop"})

	a := agent.New("Assistant", func(o *agent.Options) {
		o.Hooks = []agent.Hooks{&failingStartHooks{err: errors.New("hook exploded")}}
	})
	r := New(func(o *Options) { o.Provider = provider })

	sr, err := r.RunStreamed(context.Background(), a, "hello")
	require.NoError(t, err)

	result, err := sr.FinalResult()
	require.NoError(t, err)
	assert.Equal(t, "hi", result.FinalOutput())
	assert.Equal(t, 1, provider.CallCount())
}

func TestRunStreamedCancelDuringTool(t *testing.T) {
	provider := model.NewMockProvider()
	provider.QueueStream(
		model.Chunk{ToolCallDeltas: []model.ToolCallDelta{{Index: 0, ID: "call_1", Name: "wait_forever", Arguments: "{}"}}, FinishReason: "tool_calls"},
	)

	waitTool := newTestTool("wait_forever", func(ctx context.Context, _ map[string]any) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	a := agent.New("Assistant", func(o *agent.Options) {
		o.Tools = []tool.Tool{waitTool}
	})
	r := New(func(o *Options) { o.Provider = provider })

	sr, err := r.RunStreamed(context.Background(), a, "hang")
	require.NoError(t, err)

	var sawToolCall bool
	for ev := range sr.Events() {
		if item, ok := ev.(stream.RunItemEvent); ok && item.Name == stream.NameToolCalled {
			sawToolCall = true
			sr.Cancel()
		}
	}
	require.True(t, sawToolCall)

	result, err := sr.FinalResult()
	require.NoError(t, err)
	assert.Empty(t, result.FinalOutput())
	assert.Equal(t, 1, provider.CallCount())
}

func TestRunStreamedRunnerCancelByID(t *testing.T) {
	provider := model.NewMockProvider()
	provider.QueueStream(
		model.Chunk{ToolCallDeltas: []model.ToolCallDelta{{Index: 0, ID: "call_1", Name: "wait_forever", Arguments: "{}"}}, FinishReason: "tool_calls"},
	)

	waitTool := newTestTool("wait_forever", func(ctx context.Context, _ map[string]any) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	a := agent.New("Assistant", func(o *agent.Options) {
		o.Tools = []tool.Tool{waitTool}
	})
	r := New(func(o *Options) { o.Provider = provider })

	sr, err := r.RunStreamed(context.Background(), a, "hang")
	require.NoError(t, err)
	require.NotEmpty(t, sr.RunID())

	for ev := range sr.Events() {
		if item, ok := ev.(stream.RunItemEvent); ok && item.Name == stream.NameToolCalled {
			require.NoError(t, r.Cancel(sr.RunID()))
		}
	}

	_, err = sr.FinalResult()
	require.NoError(t, err)

	// Once the event channel is closed the run is fully untracked.
	err = r.Cancel(sr.RunID())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestRunStreamedStructuredOutput(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"temp": map[string]any{"type": "number"},
		},
	}

	t.Run("parses valid json", func(t *testing.T) {
		provider := model.NewMockProvider()
		provider.QueueStream(model.Chunk{Delta: `{"temp":20}`, FinishReason: "stop"})

		a := agent.New("Reporter", func(o *agent.Options) {
			o.OutputSchema = schema
		})
		r := New(func(o *Options) { o.Provider = provider })

		sr, err := r.RunStreamed(context.Background(), a, "report")
		require.NoError(t, err)

		result, err := sr.FinalResult()
		require.NoError(t, err)
		assert.Equal(t, float64(20), result.Structured()["temp"])
	})

	t.Run("parse failure keeps the text output", func(t *testing.T) {
		provider := model.NewMockProvider()
		provider.QueueStream(model.Chunk{Delta: "plain text", FinishReason: "stop"})

		a := agent.New("Reporter", func(o *agent.Options) {
			o.OutputSchema = schema
		})
		r := New(func(o *Options) { o.Provider = provider })

		sr, err := r.RunStreamed(context.Background(), a, "report")
		require.NoError(t, err)

		result, err := sr.FinalResult()
		require.NoError(t, err)
		assert.Equal(t, "plain text", result.FinalOutput())
		assert.Nil(t, result.Structured())
	})
}

func TestRunStreamedConfigErrors(t *testing.T) {
	t.Run("nil agent", func(t *testing.T) {
		r := New(func(o *Options) { o.Provider = model.NewMockProvider() })

		_, err := r.RunStreamed(context.Background(), nil, "hi")
		require.Error(t, err)
		assert.True(t, core.IsKind(err, core.ErrConfig))
	})

	t.Run("missing provider", func(t *testing.T) {
		r := New()

		_, err := r.RunStreamed(context.Background(), agent.New("Assistant"), "hi")
		require.Error(t, err)
		assert.True(t, core.IsKind(err, core.ErrConfig))
	})

	t.Run("duplicate tool names surface before any event", func(t *testing.T) {
		a := agent.New("Assistant", func(o *agent.Options) {
			o.Tools = []tool.Tool{newTestTool("dup", nil), newTestTool("dup", nil)}
		})
		r := New(func(o *Options) { o.Provider = model.NewMockProvider() })

		_, err := r.RunStreamed(context.Background(), a, "hi")
		require.Error(t, err)
		assert.True(t, core.IsKind(err, core.ErrConfig))
		assert.Contains(t, err.Error(), `duplicate tool name "dup"`)
	})
}

func TestRunStreamedCommentaryWithToolCalls(t *testing.T) {
	provider := model.NewMockProvider()
	provider.QueueStream(
		model.Chunk{Delta: "Let me check."},
		model.Chunk{ToolCallDeltas: []model.ToolCallDelta{{Index: 0, ID: "call_1", Name: "get_weather", Arguments: "{}"}}, FinishReason: "tool_calls"},
	)
	provider.QueueStream(model.Chunk{Delta: "Sunny."}, model.Chunk{FinishReason: "stop"})

	a := agent.New("Assistant", func(o *agent.Options) {
		o.Instructions = "Answer weather questions."
		o.Tools = []tool.Tool{newTestTool("get_weather", nil)}
	})
	r := New(func(o *Options) { o.Provider = provider })

	sr, err := r.RunStreamed(context.Background(), a, "Weather?")
	require.NoError(t, err)

	events := collectEvents(sr)
	require.Len(t, events, 6)

	messages := filterItems(events, stream.NameMessageOutputCreated)
	require.Len(t, messages, 2)
	assert.Equal(t, stream.MessageOutputItem{Content: "Let me check."}, messages[0])
	assert.Equal(t, stream.MessageOutputItem{Content: "Sunny."}, messages[1])

	// Commentary lands in the conversation before the tool message.
	req := provider.Requests()[1]
	require.Len(t, req.Messages, 4)
	assert.Equal(t, core.NewAssistantMessage("Let me check."), req.Messages[2])
	assert.Equal(t, core.RoleTool, req.Messages[3].Role)

	result, err := sr.FinalResult()
	require.NoError(t, err)
	assert.Equal(t, "Sunny.", result.FinalOutput())
}
