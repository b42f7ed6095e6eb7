package app

import (
	"errors"
	"testing"

	"github.com/jaakkos/inboxflag/internal/domain"
	"github.com/jaakkos/inboxflag/internal/repository/memory"
)

type failingStore struct{ err error }

func (s failingStore) Get(string) (string, bool, error) { return "", false, s.err }
func (s failingStore) Set(string, string) error         { return s.err }

func TestFlag_ReadStoredValues(t *testing.T) {
	tests := []struct {
		name   string
		stored *string
		want   bool
	}{
		{"missing key", nil, false},
		{"true", strPtr("true"), true},
		{"false", strPtr("false"), false},
		{"empty", strPtr(""), false},
		{"other string", strPtr("yes"), false},
		{"wrong case", strPtr("True"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := memory.NewOrigin()
			if tt.stored != nil {
				o.Put(domain.FlagKey, *tt.stored)
			}
			view := o.View()
			fv := WatchFlag(NewFlag(view, nil), view)
			defer fv.Close()
			if got := fv.Value(); got != tt.want {
				t.Errorf("Value() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFlag_SetWritesLiteralStrings(t *testing.T) {
	o := memory.NewOrigin()
	f := NewFlag(o.View(), nil)

	if err := f.Set(true); err != nil {
		t.Fatalf("Set(true): %v", err)
	}
	if v, _ := o.Get(domain.FlagKey); v != "true" {
		t.Errorf("stored = %q, want \"true\"", v)
	}
	if err := f.Set(false); err != nil {
		t.Fatalf("Set(false): %v", err)
	}
	if v, _ := o.Get(domain.FlagKey); v != "false" {
		t.Errorf("stored = %q, want \"false\"", v)
	}
}

func TestFlag_ClearIsIdempotent(t *testing.T) {
	o := memory.NewOrigin()
	f := NewFlag(o.View(), nil)
	for i := 0; i < 2; i++ {
		if err := f.Clear(); err != nil {
			t.Fatalf("Clear #%d: %v", i+1, err)
		}
		if v, _ := o.Get(domain.FlagKey); v != "false" {
			t.Errorf("after Clear #%d stored = %q, want \"false\"", i+1, v)
		}
	}
}

func TestFlag_ReadErrorIsFalse(t *testing.T) {
	f := NewFlag(failingStore{err: errors.New("disk gone")}, nil)
	if f.Read() {
		t.Error("Read should be false on store error")
	}
	if err := f.Set(true); err == nil {
		t.Error("Set should surface store error")
	}
	// Fire-and-forget variant must not panic.
	f.ClearOnOpen()
}

func TestFlagView_OtherViewObservesWrite(t *testing.T) {
	o := memory.NewOrigin()
	viewA, viewB := o.View(), o.View()
	flagA := NewFlag(viewA, nil)
	fvA := WatchFlag(flagA, viewA)
	defer fvA.Close()
	fvB := WatchFlag(NewFlag(viewB, nil), viewB)
	defer fvB.Close()

	var seen []bool
	fvB.Subscribe(func(v bool) { seen = append(seen, v) })

	if err := flagA.Set(true); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if !fvB.Value() {
		t.Error("view B should observe true after notification")
	}
	if len(seen) != 1 || !seen[0] {
		t.Errorf("B subscribers saw %v, want [true]", seen)
	}
}

func TestFlagView_WriterIsNotSelfNotified(t *testing.T) {
	o := memory.NewOrigin()
	viewA := o.View()
	flagA := NewFlag(viewA, nil)
	fvA := WatchFlag(flagA, viewA)
	defer fvA.Close()

	if err := flagA.Set(true); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if fvA.Value() {
		t.Error("writer's local state must not change via notification")
	}
	if !fvA.Refresh() || !fvA.Value() {
		t.Error("explicit Refresh should pick up the write")
	}
}

func TestFlagView_CloseUnsubscribes(t *testing.T) {
	o := memory.NewOrigin()
	viewA, viewB := o.View(), o.View()
	fvB := WatchFlag(NewFlag(viewB, nil), viewB)
	if viewB.Subscribers() != 1 {
		t.Fatalf("Subscribers = %d, want 1", viewB.Subscribers())
	}

	called := false
	fvB.Subscribe(func(bool) { called = true })
	fvB.Close()
	fvB.Close()

	if viewB.Subscribers() != 0 {
		t.Errorf("Subscribers after Close = %d, want 0", viewB.Subscribers())
	}
	_ = NewFlag(viewA, nil).Set(true)
	if fvB.Value() || called {
		t.Error("closed view must not update")
	}
}

func TestFlagView_IgnoresUnchangedValue(t *testing.T) {
	o := memory.NewOrigin()
	viewA, viewB := o.View(), o.View()
	flagA := NewFlag(viewA, nil)
	fvB := WatchFlag(NewFlag(viewB, nil), viewB)
	defer fvB.Close()

	n := 0
	fvB.Subscribe(func(bool) { n++ })
	_ = flagA.Set(false)
	_ = flagA.Set(true)
	_ = flagA.Set(true)
	if n != 1 {
		t.Errorf("subscriber calls = %d, want 1", n)
	}
}

func TestFlagView_ClearOnOpen(t *testing.T) {
	o := memory.NewOrigin()
	o.Put(domain.FlagKey, "true")
	viewA, viewB := o.View(), o.View()
	fvB := WatchFlag(NewFlag(viewB, nil), viewB)
	defer fvB.Close()
	if !fvB.Value() {
		t.Fatal("B should start true")
	}

	fvA := WatchFlag(NewFlag(viewA, nil), viewA, WithClearOnOpen())
	defer fvA.Close()

	if fvA.Value() {
		t.Error("opening view should see the cleared flag")
	}
	if v, _ := o.Get(domain.FlagKey); v != "false" {
		t.Errorf("stored = %q, want \"false\"", v)
	}
	if fvB.Value() {
		t.Error("other view should observe the clear")
	}
}

func strPtr(s string) *string { return &s }
