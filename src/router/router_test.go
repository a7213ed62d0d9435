package router

import (
	"errors"
	"testing"
	"time"

	"screen-translate-overlay/src/messages"
)

func TestSendToUnknownWindow(t *testing.T) {
	r := NewRouter()
	defer r.Shutdown()

	err := r.Send(messages.WindowID(42), messages.TextChunk{Text: "hi"})
	if !errors.Is(err, ErrUnknownWindow) {
		t.Fatalf("Expected ErrUnknownWindow, got %v", err)
	}
}

func TestSendAndDrain(t *testing.T) {
	r := NewRouter()
	defer r.Shutdown()

	ch, err := r.Register(1, 4)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	for _, s := range []string{"a", "ab", "abc"} {
		if err := r.Send(1, messages.TextChunk{Window: 1, Text: s}); err != nil {
			t.Fatalf("Send failed: %v", err)
		}
	}

	got := Drain(ch)
	if len(got) != 3 {
		t.Fatalf("Expected 3 messages, got %d", len(got))
	}
	last, ok := got[2].(messages.TextChunk)
	if !ok || last.Text != "abc" {
		t.Fatalf("Expected last chunk 'abc', got %#v", got[2])
	}
	if len(Drain(ch)) != 0 {
		t.Fatal("Expected empty inbox after drain")
	}
}

func TestRegisterTwice(t *testing.T) {
	r := NewRouter()
	defer r.Shutdown()

	if _, err := r.Register(7, 1); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, err := r.Register(7, 1); err == nil {
		t.Fatal("Expected error on duplicate registration")
	}
}

func TestUnregisterReleasesBlockedSender(t *testing.T) {
	r := NewRouter()
	defer r.Shutdown()

	if _, err := r.Register(3, 1); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := r.Send(3, messages.Dismiss{Window: 3}); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- r.Send(3, messages.Dismiss{Window: 3})
	}()

	time.Sleep(20 * time.Millisecond)
	r.Unregister(3)

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrUnknownWindow) {
			t.Fatalf("Expected ErrUnknownWindow, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Expected blocked sender to be released")
	}
}

func TestBroadcastCountsDeliveries(t *testing.T) {
	r := NewRouter()
	defer r.Shutdown()

	for _, id := range []messages.WindowID{1, 2, 3} {
		if _, err := r.Register(id, 2); err != nil {
			t.Fatalf("Register failed: %v", err)
		}
	}
	n := r.Broadcast(func(id messages.WindowID) messages.Message {
		return messages.Dismiss{Window: id}
	})
	if n != 3 {
		t.Fatalf("Expected 3 deliveries, got %d", n)
	}
	if stats := r.Stats(); stats[2] != 1 {
		t.Fatalf("Expected 1 queued message for window 2, got %d", stats[2])
	}
}
