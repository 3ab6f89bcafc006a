package core

// Conversation is the ordered message log for one run. It is created once per
// run, seeded from session history if any, and mutated only by the owning run
// loop; it is never shared across concurrent runs.
//
// Invariant: at most one message has the system role, and if present it is
// always at index 0.
type Conversation struct {
	messages []Message
}

// NewConversation creates a conversation log. A system message is inserted
// only when instructions are non-empty.
func NewConversation(instructions string) *Conversation {
	c := &Conversation{}
	if instructions != "" {
		c.messages = append(c.messages, NewSystemMessage(instructions))
	}
	return c
}

// Append adds messages to the end of the log.
func (c *Conversation) Append(msgs ...Message) {
	c.messages = append(c.messages, msgs...)
}

// Messages returns a copy of the log in order. The copy keeps the internal
// slice exclusively owned by the run loop.
func (c *Conversation) Messages() []Message {
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Len returns the number of messages in the log.
func (c *Conversation) Len() int { return len(c.messages) }

// Last returns the most recent message, if any.
func (c *Conversation) Last() (Message, bool) {
	if len(c.messages) == 0 {
		return Message{}, false
	}
	return c.messages[len(c.messages)-1], true
}

// SystemMessage returns the system message, if one is present.
func (c *Conversation) SystemMessage() (Message, bool) {
	if len(c.messages) > 0 && c.messages[0].Role == RoleSystem {
		return c.messages[0], true
	}
	return Message{}, false
}

// SyncSystem resynchronizes the system message after a handoff: the existing
// system message at index 0 is replaced with the new instructions, otherwise
// a system message is inserted at index 0 only when instructions are
// non-empty.
func (c *Conversation) SyncSystem(instructions string) {
	if len(c.messages) > 0 && c.messages[0].Role == RoleSystem {
		c.messages[0].Content = instructions
		return
	}
	if instructions != "" {
		c.messages = append([]Message{NewSystemMessage(instructions)}, c.messages...)
	}
}
