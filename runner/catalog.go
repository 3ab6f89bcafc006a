package runner

import (
	"fmt"

	"github.com/hupe1980/agentloop/agent"
	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/model"
	"github.com/hupe1980/agentloop/tool"
)

// catalog is the flat set of callable names exposed to the model for one
// agent: ordinary tools first, handoffs after them. It is rebuilt from
// scratch every time the active agent changes.
type catalog struct {
	defs     []model.ToolDefinition
	tools    map[string]tool.Tool
	handoffs map[string]*agent.Handoff
}

// buildCatalog derives the catalog for an agent. Colliding names are a
// configuration error; nothing is silently overwritten.
func buildCatalog(a *agent.Agent) (*catalog, error) {
	c := &catalog{
		tools:    make(map[string]tool.Tool),
		handoffs: make(map[string]*agent.Handoff),
	}

	for _, t := range a.Tools() {
		name := t.Name()
		if c.contains(name) {
			return nil, core.NewConfigError(fmt.Sprintf("duplicate tool name %q in catalog of agent %q", name, a.Name()))
		}
		c.tools[name] = t
		c.defs = append(c.defs, model.ToolDefinition{
			Name:        name,
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}

	for _, h := range a.Handoffs() {
		name := h.Name()
		if c.contains(name) {
			return nil, core.NewConfigError(fmt.Sprintf("duplicate tool name %q in catalog of agent %q", name, a.Name()))
		}
		c.handoffs[name] = h
		c.defs = append(c.defs, model.ToolDefinition{
			Name:        name,
			Description: h.Description(),
			Parameters:  h.Parameters(),
		})
	}

	return c, nil
}

func (c *catalog) contains(name string) bool {
	if _, ok := c.tools[name]; ok {
		return true
	}
	_, ok := c.handoffs[name]
	return ok
}

// definitions returns the catalog in declaration order, or nil when the
// agent exposes nothing callable so the request omits the tools field.
func (c *catalog) definitions() []model.ToolDefinition {
	if len(c.defs) == 0 {
		return nil
	}
	return c.defs
}

// resolveTool looks up an ordinary tool. Tools shadow nothing: names are
// unique across the whole catalog.
func (c *catalog) resolveTool(name string) (tool.Tool, bool) {
	t, ok := c.tools[name]
	return t, ok
}

// resolveHandoff looks up a handoff entry.
func (c *catalog) resolveHandoff(name string) (*agent.Handoff, bool) {
	h, ok := c.handoffs[name]
	return h, ok
}
