package service

import (
	"errors"
	"testing"
)

func TestMessageService_Send(t *testing.T) {
	gdb := testDB(t)
	users := NewUserService(gdb)
	msgs := NewMessageService(gdb)

	alice, _ := users.Register("alice")
	bob, _ := users.Register("bob")

	msg, err := msgs.Send(alice.ID, bob.ID, "hello")
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if msg.ID == 0 {
		t.Error("Send() message id not assigned")
	}
	if msg.SenderID != alice.ID || msg.ReceiverID != bob.ID {
		t.Errorf("Send() sender/receiver = %d/%d, want %d/%d", msg.SenderID, msg.ReceiverID, alice.ID, bob.ID)
	}
	if msg.Content != "hello" {
		t.Errorf("Send() content = %q, want hello", msg.Content)
	}
	if msg.CreatedAt.IsZero() {
		t.Error("Send() timestamp not set")
	}
}

func TestMessageService_Send_EmptyContentAccepted(t *testing.T) {
	gdb := testDB(t)
	users := NewUserService(gdb)
	msgs := NewMessageService(gdb)

	alice, _ := users.Register("alice")
	bob, _ := users.Register("bob")

	if _, err := msgs.Send(alice.ID, bob.ID, ""); err != nil {
		t.Errorf("Send() with empty content should succeed, got %v", err)
	}
}

func TestMessageService_Send_UnknownRecipient(t *testing.T) {
	gdb := testDB(t)
	users := NewUserService(gdb)
	msgs := NewMessageService(gdb)

	alice, _ := users.Register("alice")

	_, err := msgs.Send(alice.ID, 999, "into the void")
	if !errors.Is(err, ErrRecipientNotFound) {
		t.Errorf("Send() error = %v, want ErrRecipientNotFound", err)
	}

	// nothing may be persisted on a failed send
	hist, err := msgs.History(alice.ID, 999)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(hist) != 0 {
		t.Errorf("History() returned %d messages after failed send, want 0", len(hist))
	}
}

func TestMessageService_History_BothDirectionsAscending(t *testing.T) {
	gdb := testDB(t)
	users := NewUserService(gdb)
	msgs := NewMessageService(gdb)

	alice, _ := users.Register("alice")
	bob, _ := users.Register("bob")
	carol, _ := users.Register("carol")

	if _, err := msgs.Send(alice.ID, bob.ID, "one"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if _, err := msgs.Send(bob.ID, alice.ID, "two"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if _, err := msgs.Send(alice.ID, bob.ID, "three"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	// noise from an unrelated pair must not leak into the history
	if _, err := msgs.Send(alice.ID, carol.ID, "noise"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	hist, err := msgs.History(alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(hist) != 3 {
		t.Fatalf("History() returned %d messages, want 3", len(hist))
	}
	want := []string{"one", "two", "three"}
	for i, m := range hist {
		if m.Content != want[i] {
			t.Errorf("History()[%d].Content = %q, want %q", i, m.Content, want[i])
		}
	}
	for i := 1; i < len(hist); i++ {
		if hist[i].Timestamp.Before(hist[i-1].Timestamp) {
			t.Error("History() not ordered by timestamp ascending")
		}
	}

	// same union seen from the other side
	histB, err := msgs.History(bob.ID, alice.ID)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(histB) != 3 {
		t.Errorf("History() from bob returned %d messages, want 3", len(histB))
	}
}
