package app

import (
	"testing"
	"time"
)

func TestSessionRegistry_RegisterAndRemove(t *testing.T) {
	var counts []int
	r := NewSessionRegistry(func(n int) { counts = append(counts, n) })

	r.Register("b", "cursor")
	r.Register("a", "claude")
	if r.Count() != 2 {
		t.Fatalf("count = %d, want 2", r.Count())
	}
	if !r.Has("a") || r.Has("zzz") {
		t.Error("Has reported wrong membership")
	}
	if ids := r.IDs(); len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Errorf("IDs = %v, want [a b]", ids)
	}

	r.Remove("a")
	r.Remove("a") // unknown: no change callback
	if r.Count() != 1 {
		t.Errorf("count after remove = %d, want 1", r.Count())
	}
	want := []int{1, 2, 1}
	if len(counts) != len(want) {
		t.Fatalf("onChange calls = %v, want %v", counts, want)
	}
	for i := range want {
		if counts[i] != want[i] {
			t.Errorf("onChange[%d] = %d, want %d", i, counts[i], want[i])
		}
	}
}

func TestSessionRegistry_ReRegisterKeepsConnectedAt(t *testing.T) {
	r := NewSessionRegistry(nil)
	r.Register("s1", "")
	first := r.Sessions()[0].ConnectedAt

	time.Sleep(5 * time.Millisecond)
	r.Register("s1", "claude")
	s := r.Sessions()
	if len(s) != 1 {
		t.Fatalf("sessions = %d, want 1", len(s))
	}
	if s[0].Client != "claude" {
		t.Errorf("client = %q, want claude", s[0].Client)
	}
	if !s[0].ConnectedAt.Equal(first) {
		t.Error("re-register should keep ConnectedAt")
	}
}

func TestSessionRegistry_Touch(t *testing.T) {
	r := NewSessionRegistry(nil)
	r.Register("s1", "x")
	before := r.Sessions()[0].LastActivity

	time.Sleep(5 * time.Millisecond)
	r.Touch("s1")
	r.Touch("unknown")
	after := r.Sessions()[0].LastActivity
	if !after.After(before) {
		t.Errorf("LastActivity not advanced: %v -> %v", before, after)
	}
	if r.Count() != 1 {
		t.Errorf("touching unknown session should not add it")
	}
}
