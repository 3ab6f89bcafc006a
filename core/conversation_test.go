package core

import "testing"

func TestConversation_SeedWithInstructions(t *testing.T) {
	c := NewConversation("You are helpful")
	if c.Len() != 1 {
		t.Fatalf("expected 1 message, got %d", c.Len())
	}
	sys, ok := c.SystemMessage()
	if !ok || sys.Content != "You are helpful" {
		t.Fatalf("unexpected system message: %+v", sys)
	}
}

func TestConversation_EmptyInstructionsNoSystemMessage(t *testing.T) {
	c := NewConversation("")
	if c.Len() != 0 {
		t.Fatalf("expected empty log, got %d messages", c.Len())
	}
	if _, ok := c.SystemMessage(); ok {
		t.Error("no system message should be inserted for empty instructions")
	}
}

func TestConversation_MessagesReturnsCopy(t *testing.T) {
	c := NewConversation("sys")
	c.Append(NewUserMessage("hi"))

	msgs := c.Messages()
	msgs[0].Content = "mutated"

	if got, _ := c.SystemMessage(); got.Content != "sys" {
		t.Error("internal log should not observe external mutation")
	}
}

func TestConversation_SyncSystemReplacesIndexZero(t *testing.T) {
	c := NewConversation("first agent")
	c.Append(NewUserMessage("hi"))

	c.SyncSystem("second agent")

	sys, ok := c.SystemMessage()
	if !ok || sys.Content != "second agent" {
		t.Fatalf("system message not replaced: %+v", sys)
	}
	if c.Len() != 2 {
		t.Fatalf("replace must not grow the log, got %d", c.Len())
	}
}

func TestConversation_SyncSystemInsertsWhenAbsent(t *testing.T) {
	c := NewConversation("")
	c.Append(NewUserMessage("hi"))

	c.SyncSystem("new instructions")

	msgs := c.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected insert at index 0, got %d messages", len(msgs))
	}
	if msgs[0].Role != RoleSystem || msgs[0].Content != "new instructions" {
		t.Fatalf("unexpected head message: %+v", msgs[0])
	}
	if msgs[1].Role != RoleUser {
		t.Fatalf("user message should shift to index 1, got %+v", msgs[1])
	}
}

func TestConversation_SyncSystemEmptyInstructionsNoInsert(t *testing.T) {
	c := NewConversation("")
	c.Append(NewUserMessage("hi"))

	c.SyncSystem("")

	if c.Len() != 1 {
		t.Fatalf("empty instructions must not insert, got %d messages", c.Len())
	}
}

func TestConversation_Last(t *testing.T) {
	c := NewConversation("")
	if _, ok := c.Last(); ok {
		t.Error("empty log should report no last message")
	}
	c.Append(NewUserMessage("a"), NewAssistantMessage("b"))
	last, ok := c.Last()
	if !ok || last.Content != "b" {
		t.Fatalf("unexpected last message: %+v", last)
	}
}
