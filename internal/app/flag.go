package app

import (
	"fmt"
	"log"
	"sync"

	"github.com/jaakkos/inboxflag/internal/domain"
)

// Flag is the durable cross-view notification flag stored under domain.FlagKey.
type Flag struct {
	store  KVStore
	logger *log.Logger
}

// NewFlag returns a Flag backed by store. logger may be nil.
func NewFlag(store KVStore, logger *log.Logger) *Flag {
	return &Flag{store: store, logger: logger}
}

// Set writes the string form of v. Last writer wins.
func (f *Flag) Set(v bool) error {
	if err := f.store.Set(domain.FlagKey, domain.EncodeFlag(v)); err != nil {
		return fmt.Errorf("set %s: %w", domain.FlagKey, err)
	}
	return nil
}

// Clear is Set(false).
func (f *Flag) Clear() error {
	return f.Set(false)
}

// ClearOnOpen clears the flag once when a view is first shown.
// Failures are logged, not returned.
func (f *Flag) ClearOnOpen() {
	if err := f.Clear(); err != nil {
		logf(f.logger, "Warning: clear on open: %v", err)
	}
}

// Read does one synchronous read. A missing key, any value other than "true",
// or a read error all yield false.
func (f *Flag) Read() bool {
	v, ok, err := f.store.Get(domain.FlagKey)
	if err != nil {
		logf(f.logger, "Warning: read %s: %v", domain.FlagKey, err)
		return false
	}
	if !ok {
		return false
	}
	return domain.DecodeFlag(v)
}

// FlagViewOption configures WatchFlag.
type FlagViewOption func(*flagViewOpts)

type flagViewOpts struct {
	clearOnOpen bool
}

// WithClearOnOpen clears the stored flag before the initial read.
func WithClearOnOpen() FlagViewOption {
	return func(o *flagViewOpts) { o.clearOnOpen = true }
}

// FlagView is one view's reactive copy of the flag. It is initialised by a
// single synchronous read and then updated only by feed notifications or
// explicit Refresh calls. Close must be called when the view goes away.
type FlagView struct {
	flag *Flag

	refreshMu sync.Mutex // serializes read+notify so subscribers see values in order

	mu          sync.Mutex
	value       bool
	closed      bool
	unsubscribe func()

	subs subscribers[bool]
}

// WatchFlag reads the flag once and subscribes to feed for later changes.
func WatchFlag(flag *Flag, feed ChangeFeed, opts ...FlagViewOption) *FlagView {
	var o flagViewOpts
	for _, opt := range opts {
		opt(&o)
	}
	if o.clearOnOpen {
		flag.ClearOnOpen()
	}
	v := &FlagView{flag: flag, value: flag.Read()}
	unsub := feed.Subscribe(v.onChange)
	v.mu.Lock()
	v.unsubscribe = unsub
	v.mu.Unlock()
	return v
}

// Value returns the view's local state without touching storage.
func (v *FlagView) Value() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.value
}

// Refresh re-reads storage, updates local state and returns it.
func (v *FlagView) Refresh() bool {
	v.refreshMu.Lock()
	defer v.refreshMu.Unlock()

	cur := v.flag.Read()
	v.mu.Lock()
	if v.closed {
		val := v.value
		v.mu.Unlock()
		return val
	}
	changed := cur != v.value
	v.value = cur
	v.mu.Unlock()

	if changed {
		v.subs.notify(cur)
	}
	return cur
}

// Subscribe registers fn to be called with the new value whenever local state changes.
func (v *FlagView) Subscribe(fn func(bool)) func() {
	return v.subs.add(fn)
}

// Close unsubscribes from the feed and drops subscribers. Safe to call twice.
func (v *FlagView) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	unsub := v.unsubscribe
	v.unsubscribe = nil
	v.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	v.subs.clear()
}

// onChange ignores the key and re-reads, matching storage-event handlers that
// treat the event as "something changed".
func (v *FlagView) onChange(string) {
	v.mu.Lock()
	closed := v.closed
	v.mu.Unlock()
	if closed {
		return
	}
	v.Refresh()
}

func logf(logger *log.Logger, format string, args ...any) {
	if logger != nil {
		logger.Printf(format, args...)
	}
}
