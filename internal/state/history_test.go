package state

import (
	"context"
	"fmt"
	"testing"
)

func TestMemoryHistoryAppendRecent(t *testing.T) {
	s := NewMemoryHistory()
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		msg := Message{Role: RoleUser, Content: fmt.Sprintf("msg %d", i)}
		if err := s.Append(ctx, "s1", msg); err != nil {
			t.Fatal(err)
		}
	}

	recent, err := s.Recent(ctx, "s1", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 5 {
		t.Fatalf("want 5 messages, got %d", len(recent))
	}
	if recent[0].Content != "msg 2" || recent[4].Content != "msg 6" {
		t.Errorf("window should keep the newest messages in order, got %v", recent)
	}

	all, err := s.Recent(ctx, "s1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 7 {
		t.Errorf("n <= 0 should return everything, got %d", len(all))
	}
}

func TestMemoryHistorySessionsIsolated(t *testing.T) {
	s := NewMemoryHistory()
	ctx := context.Background()

	s.Append(ctx, "a", Message{Role: RoleUser, Content: "hello"})

	other, err := s.Recent(ctx, "b", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(other) != 0 {
		t.Errorf("session b should be empty, got %v", other)
	}
}

func TestMemoryHistoryDelete(t *testing.T) {
	s := NewMemoryHistory()
	ctx := context.Background()

	s.Append(ctx, "s1", Message{Role: RoleUser, Content: "hello"})
	if err := s.Delete(ctx, "s1"); err != nil {
		t.Fatal(err)
	}

	msgs, err := s.Recent(ctx, "s1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 0 {
		t.Errorf("deleted session should be empty, got %v", msgs)
	}
}

func TestMemoryHistoryRecentReturnsCopy(t *testing.T) {
	s := NewMemoryHistory()
	ctx := context.Background()

	s.Append(ctx, "s1", Message{Role: RoleUser, Content: "original"})
	recent, _ := s.Recent(ctx, "s1", 0)
	recent[0].Content = "mutated"

	again, _ := s.Recent(ctx, "s1", 0)
	if again[0].Content != "original" {
		t.Error("Recent must return a copy, not the backing slice")
	}
}
