package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/hupe1980/agentloop/agent"
	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/guardrail"
	"github.com/hupe1980/agentloop/logging"
	"github.com/hupe1980/agentloop/model"
	"github.com/hupe1980/agentloop/session"
)

const (
	// DefaultMaxTurns bounds the number of backend calls per run.
	DefaultMaxTurns = 100
	// DefaultEventBufferSize sets channel buffering for stream events.
	DefaultEventBufferSize = 64
)

// Options holds dependency and configuration overrides passed to New().
type Options struct {
	// MaxTurns limits backend calls per run before MaxTurnsExceeded.
	MaxTurns int
	// Session supplies prior history and persists terminal turns.
	Session session.Session
	// Provider is the model backend. Required; there is no process-wide
	// default client.
	Provider model.Provider
	// RunHooks receive run-level lifecycle callbacks, in order.
	RunHooks []agent.RunHooks
	// Logger receives debug traces and the suppressed streaming errors.
	Logger logging.Logger
	// MaxConcurrentRuns caps simultaneous runs; zero means unlimited.
	MaxConcurrentRuns int
	// EventBufferSize sets channel buffering for stream events.
	EventBufferSize int
}

// Runner executes agents: it owns the turn loop, the tool catalog of the
// current agent, and the dispatch of tool and handoff calls. Public methods
// are safe for concurrent use; each run owns its conversation state
// exclusively.
type Runner struct {
	maxTurns        int
	session         session.Session
	provider        model.Provider
	runHooks        []agent.RunHooks
	logger          logging.Logger
	eventBufferSize int

	sem        chan struct{}
	activeRuns map[string]context.CancelFunc
	mu         sync.Mutex
}

// New constructs a Runner with optional overrides. The model provider must
// be supplied through Options; construction succeeds without one but runs
// fail with a ConfigError.
func New(optFns ...func(o *Options)) *Runner {
	opts := Options{
		MaxTurns:        DefaultMaxTurns,
		Logger:          logging.NoOpLogger{},
		EventBufferSize: DefaultEventBufferSize,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	r := &Runner{
		maxTurns:        opts.MaxTurns,
		session:         opts.Session,
		provider:        opts.Provider,
		runHooks:        opts.RunHooks,
		logger:          opts.Logger,
		eventBufferSize: opts.EventBufferSize,
		activeRuns:      make(map[string]context.CancelFunc),
	}

	if opts.MaxConcurrentRuns > 0 {
		r.sem = make(chan struct{}, opts.MaxConcurrentRuns)
	}

	return r
}

// Run executes the agent synchronously until a terminal response or
// failure. Every error surfaces to the caller; nothing is retried.
func (r *Runner) Run(ctx context.Context, a *agent.Agent, input string) (*core.RunResult, error) {
	if err := r.validate(a); err != nil {
		return nil, err
	}

	if err := r.acquire(ctx); err != nil {
		return nil, err
	}
	defer r.release()

	runID := uuid.NewString()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	r.trackRun(runID, cancel)
	defer r.untrackRun(runID)

	r.logger.Debug("run started", "run_id", runID, "agent", a.Name())

	result, err := r.runSync(ctx, a, input)
	if err != nil {
		r.logger.Debug("run failed", "run_id", runID, "error", err)
		return nil, err
	}

	r.logger.Debug("run finished", "run_id", runID)

	return result, nil
}

// Cancel requests cancellation of a running run by ID. Streaming run IDs
// are exposed through StreamedRunResult.RunID.
func (r *Runner) Cancel(runID string) error {
	r.mu.Lock()
	cancel, exists := r.activeRuns[runID]
	r.mu.Unlock()

	if !exists {
		return fmt.Errorf("run %s not found", runID)
	}

	cancel()

	return nil
}

func (r *Runner) validate(a *agent.Agent) error {
	if a == nil {
		return core.NewConfigError("agent is required")
	}
	if r.provider == nil {
		return core.NewConfigError("no model provider configured")
	}
	return nil
}

func (r *Runner) acquire(ctx context.Context) error {
	if r.sem == nil {
		return nil
	}
	select {
	case r.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) release() {
	if r.sem != nil {
		<-r.sem
	}
}

func (r *Runner) trackRun(runID string, cancel context.CancelFunc) {
	r.mu.Lock()
	r.activeRuns[runID] = cancel
	r.mu.Unlock()
}

func (r *Runner) untrackRun(runID string) {
	r.mu.Lock()
	delete(r.activeRuns, runID)
	r.mu.Unlock()
}

// runSync is the synchronous turn loop. Hook failures, guardrail blocks,
// unresolved names and backend errors all abort the run.
func (r *Runner) runSync(ctx context.Context, start *agent.Agent, input string) (*core.RunResult, error) {
	input, err := applyInputGuardrails(ctx, start, input)
	if err != nil {
		return nil, err
	}

	conv := core.NewConversation(start.Instructions())

	if r.session != nil {
		history, err := r.session.GetItems(ctx, 0)
		if err != nil {
			return nil, err
		}
		conv.Append(history...)
	}

	conv.Append(core.NewUserMessage(input))

	current := start

	cat, err := buildCatalog(current)
	if err != nil {
		return nil, err
	}

	for turn := 0; turn < r.maxTurns; turn++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		for _, h := range r.runHooks {
			if err := h.OnAgentStart(ctx, current); err != nil {
				return nil, err
			}
		}
		for _, h := range current.Hooks() {
			if err := h.OnStart(ctx, current); err != nil {
				return nil, err
			}
		}

		req := buildRequest(conv, current, cat)

		for _, h := range current.Hooks() {
			if err := h.OnLLMStart(ctx, current, conv.Messages()); err != nil {
				return nil, err
			}
		}

		resp, err := r.provider.Complete(ctx, req)
		if err != nil {
			return nil, err
		}

		for _, h := range current.Hooks() {
			if err := h.OnLLMEnd(ctx, current, resp); err != nil {
				return nil, err
			}
		}

		// A tool-call-free response with content is the only normal exit.
		if resp.Content != "" && len(resp.ToolCalls) == 0 {
			return r.finishTerminal(ctx, current, conv, resp.Content)
		}

		// Content alongside tool calls is intermediate commentary.
		if resp.Content != "" {
			conv.Append(core.NewAssistantMessage(resp.Content))
		}

		for _, call := range resp.ToolCalls {
			next, err := r.dispatch(ctx, current, cat, conv, call)
			if err != nil {
				return nil, err
			}
			if next != nil {
				current = next
				cat, err = buildCatalog(current)
				if err != nil {
					return nil, err
				}
			}
		}
	}

	return nil, core.NewMaxTurnsExceeded(r.maxTurns)
}

// finishTerminal runs the terminal sequence: output guardrails, end hooks
// (run-level before agent-level), the single session write of the pair
// (last pre-response message, new assistant message), then the result.
func (r *Runner) finishTerminal(ctx context.Context, current *agent.Agent, conv *core.Conversation, content string) (*core.RunResult, error) {
	content, err := applyOutputGuardrails(ctx, current, content)
	if err != nil {
		return nil, err
	}

	for _, h := range r.runHooks {
		if err := h.OnAgentEnd(ctx, current, content); err != nil {
			return nil, err
		}
	}
	for _, h := range current.Hooks() {
		if err := h.OnEnd(ctx, current, content); err != nil {
			return nil, err
		}
	}

	if r.session != nil {
		last, _ := conv.Last()
		pair := []core.Message{last, core.NewAssistantMessage(content)}
		if err := r.session.AddItems(ctx, pair); err != nil {
			return nil, err
		}
	}

	return buildResult(current, content)
}

// dispatch resolves and executes one tool call: ordinary tools first, then
// handoffs. It appends the tool message and, when the result carries the
// handoff marker, performs the transition and returns the new agent.
func (r *Runner) dispatch(ctx context.Context, current *agent.Agent, cat *catalog, conv *core.Conversation, call model.ToolCall) (*agent.Agent, error) {
	args := call.Arguments
	if args == nil {
		args = map[string]any{}
	}

	for _, h := range current.Hooks() {
		if err := h.OnToolStart(ctx, current, call.Name, args); err != nil {
			return nil, err
		}
	}

	args, err := applyToolInputGuardrails(ctx, current, call.Name, args)
	if err != nil {
		return nil, err
	}

	var (
		result  any
		handoff *agent.Handoff
	)

	if t, ok := cat.resolveTool(call.Name); ok {
		out, err := t.Call(ctx, args)
		if err != nil {
			return nil, core.NewToolExecutionFailed(call.Name, err.Error())
		}
		result = out
	} else if h, ok := cat.resolveHandoff(call.Name); ok {
		out, err := h.Call(ctx, args)
		if err != nil {
			return nil, core.NewToolExecutionFailed(call.Name, err.Error())
		}
		result = out
		handoff = h
	} else {
		return nil, core.NewToolExecutionFailed(call.Name, fmt.Sprintf("Tool '%s' not found", call.Name))
	}

	result, err = applyToolOutputGuardrails(ctx, current, call.Name, result)
	if err != nil {
		return nil, err
	}

	for _, h := range current.Hooks() {
		if err := h.OnToolEnd(ctx, current, call.Name, result); err != nil {
			return nil, err
		}
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return nil, core.NewSerializationError(err)
	}

	conv.Append(core.NewToolMessage(fmt.Sprintf("Tool '%s' returned: %s", call.Name, payload)))

	// The transition happens after the tool message so the conversation
	// order stays consistent with what the model saw.
	if handoff != nil && hasHandoffMarker(result) {
		target := handoff.Target()

		for _, h := range r.runHooks {
			if err := h.OnHandoff(ctx, current, target); err != nil {
				return nil, err
			}
		}
		for _, h := range current.Hooks() {
			if err := h.OnHandoff(ctx, current, target); err != nil {
				return nil, err
			}
		}

		conv.SyncSystem(target.Instructions())

		return target, nil
	}

	return nil, nil
}

// buildRequest assembles the provider request for the current agent: the
// full message log, the catalog when non-empty, and the structured output
// descriptor with strict always set when a schema is declared.
func buildRequest(conv *core.Conversation, a *agent.Agent, cat *catalog) model.Request {
	req := model.Request{
		Messages:          conv.Messages(),
		Model:             a.Model(),
		Tools:             cat.definitions(),
		ParallelToolCalls: a.ParallelToolCalls(),
	}

	if schema := a.OutputSchema(); schema != nil {
		name := a.OutputName()
		if name == "" {
			name = "output"
		}
		req.ResponseFormat = &model.ResponseFormat{
			Type: model.ResponseFormatJSONSchema,
			JSONSchema: &model.JSONSchemaFormat{
				Name:   name,
				Schema: schema,
				Strict: true,
			},
		}
	}

	return req
}

// buildResult wraps terminal content, parsing it against the agent's output
// schema when one is declared.
func buildResult(a *agent.Agent, content string) (*core.RunResult, error) {
	if a.OutputSchema() == nil {
		return core.NewRunResult(content), nil
	}

	var structured map[string]any
	if err := json.Unmarshal([]byte(content), &structured); err != nil {
		return nil, core.NewModelBehaviorError(fmt.Sprintf("structured output is not valid JSON: %s", err))
	}

	return core.NewStructuredRunResult(content, structured), nil
}

// hasHandoffMarker reports whether a dispatch result carries the control
// transfer marker a handoff pseudo-tool emits.
func hasHandoffMarker(result any) bool {
	m, ok := result.(map[string]any)
	if !ok {
		return false
	}
	_, ok = m["assistant"].(string)
	return ok
}

func applyInputGuardrails(ctx context.Context, a *agent.Agent, input string) (string, error) {
	for _, g := range a.InputGuardrails() {
		res, err := g.Check(ctx, input)
		if err != nil {
			return "", err
		}
		switch res.Decision {
		case guardrail.DecisionBlock:
			return "", core.NewInputGuardrailTriggered(res.Reason)
		case guardrail.DecisionModify:
			input = res.NewContent
		}
	}
	return input, nil
}

func applyOutputGuardrails(ctx context.Context, a *agent.Agent, output string) (string, error) {
	for _, g := range a.OutputGuardrails() {
		res, err := g.Check(ctx, output)
		if err != nil {
			return "", err
		}
		switch res.Decision {
		case guardrail.DecisionBlock:
			return "", core.NewOutputGuardrailTriggered(res.Reason)
		case guardrail.DecisionModify:
			output = res.NewContent
		}
	}
	return output, nil
}

func applyToolInputGuardrails(ctx context.Context, a *agent.Agent, toolName string, args map[string]any) (map[string]any, error) {
	for _, g := range a.ToolInputGuardrails() {
		res, err := g.Check(ctx, toolName, args)
		if err != nil {
			return nil, err
		}
		switch res.Decision {
		case guardrail.DecisionBlock:
			return nil, core.NewToolInputGuardrailTriggered(res.Reason)
		case guardrail.DecisionModify:
			var next map[string]any
			if err := json.Unmarshal([]byte(res.NewContent), &next); err != nil {
				return nil, core.NewSerializationError(err)
			}
			args = next
		}
	}
	return args, nil
}

func applyToolOutputGuardrails(ctx context.Context, a *agent.Agent, toolName string, output any) (any, error) {
	for _, g := range a.ToolOutputGuardrails() {
		res, err := g.Check(ctx, toolName, output)
		if err != nil {
			return nil, err
		}
		switch res.Decision {
		case guardrail.DecisionBlock:
			return nil, core.NewToolOutputGuardrailTriggered(res.Reason)
		case guardrail.DecisionModify:
			var next any
			if err := json.Unmarshal([]byte(res.NewContent), &next); err != nil {
				return nil, core.NewSerializationError(err)
			}
			output = next
		}
	}
	return output, nil
}
