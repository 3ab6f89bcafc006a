package session

import (
	"context"

	"github.com/hupe1980/agentloop/core"
)

// Session stores the ordered message history of a conversation.
type Session interface {
	// GetItems returns stored messages in chronological order. A positive
	// limit returns only the most recent limit messages, still oldest first;
	// limit <= 0 returns everything.
	GetItems(ctx context.Context, limit int) ([]core.Message, error)

	// AddItems appends messages to the end of the history.
	AddItems(ctx context.Context, items []core.Message) error

	// PopItem removes and returns the most recent message, or nil when the
	// session is empty.
	PopItem(ctx context.Context) (*core.Message, error)

	// Clear removes all messages from the session.
	Clear(ctx context.Context) error
}
