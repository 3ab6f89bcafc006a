package runner

import (
	"encoding/json"
	"strings"

	"github.com/hupe1980/agentloop/model"
)

// accumulator reassembles one streamed completion turn. Text deltas append
// to a content buffer; tool-call fragments concatenate per positional index
// into three growing buffers (id, name, arguments) in arrival order.
// Arguments stay raw text until finalize so partial JSON never fails a turn
// mid-stream.
type accumulator struct {
	content strings.Builder
	calls   []callBuffer
}

type callBuffer struct {
	id   string
	name string
	args string
}

func (a *accumulator) addText(delta string) {
	a.content.WriteString(delta)
}

func (a *accumulator) addFragment(d model.ToolCallDelta) {
	if d.Index < 0 {
		return
	}
	for len(a.calls) <= d.Index {
		a.calls = append(a.calls, callBuffer{})
	}
	buf := &a.calls[d.Index]
	buf.id += d.ID
	buf.name += d.Name
	buf.args += d.Arguments
}

func (a *accumulator) text() string {
	return a.content.String()
}

// finalize parses the accumulated fragments into complete calls. Entries
// that never received a name are dropped; argument text that does not parse
// as a JSON object degrades to an empty object instead of failing the run.
func (a *accumulator) finalize() []model.ToolCall {
	var calls []model.ToolCall

	for _, buf := range a.calls {
		if buf.name == "" {
			continue
		}
		args := map[string]any{}
		if err := json.Unmarshal([]byte(buf.args), &args); err != nil || args == nil {
			args = map[string]any{}
		}
		calls = append(calls, model.ToolCall{ID: buf.id, Name: buf.name, Arguments: args})
	}

	return calls
}
