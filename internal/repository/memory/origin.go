// Package memory implements an in-process origin: a shared key-value map with
// any number of views. A write through one view is announced to every other
// view of the same origin, never to the writer.
package memory

import (
	"sync"
)

// Origin is one simulated origin. Separate Origins share nothing.
type Origin struct {
	mu    sync.Mutex
	data  map[string]string
	views map[*View]struct{}
}

// NewOrigin returns an empty origin.
func NewOrigin() *Origin {
	return &Origin{data: make(map[string]string), views: make(map[*View]struct{})}
}

// View opens a new view of the origin. It implements app.KVStore and app.ChangeFeed.
func (o *Origin) View() *View {
	v := &View{origin: o, subs: make(map[int]func(string))}
	o.mu.Lock()
	o.views[v] = struct{}{}
	o.mu.Unlock()
	return v
}

// Get returns the raw stored value.
func (o *Origin) Get(key string) (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	v, ok := o.data[key]
	return v, ok
}

// Put writes a value without notifying any view, as if set by a process
// that is not a view (or before any view was opened).
func (o *Origin) Put(key, value string) {
	o.mu.Lock()
	o.data[key] = value
	o.mu.Unlock()
}

func (o *Origin) set(from *View, key, value string) {
	o.mu.Lock()
	o.data[key] = value
	others := make([]*View, 0, len(o.views))
	for v := range o.views {
		if v != from {
			others = append(others, v)
		}
	}
	o.mu.Unlock()

	for _, v := range others {
		v.deliver(key)
	}
}

// View is one open view of an Origin.
type View struct {
	origin *Origin

	mu     sync.Mutex
	next   int
	subs   map[int]func(string)
	closed bool
}

// Get implements app.KVStore.
func (v *View) Get(key string) (string, bool, error) {
	s, ok := v.origin.Get(key)
	return s, ok, nil
}

// Set implements app.KVStore. Other views are notified synchronously before Set returns.
func (v *View) Set(key, value string) error {
	v.origin.set(v, key, value)
	return nil
}

// Subscribe implements app.ChangeFeed.
func (v *View) Subscribe(fn func(key string)) func() {
	v.mu.Lock()
	id := v.next
	v.next++
	v.subs[id] = fn
	v.mu.Unlock()
	return func() {
		v.mu.Lock()
		delete(v.subs, id)
		v.mu.Unlock()
	}
}

// Subscribers returns the number of live subscriptions.
func (v *View) Subscribers() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.subs)
}

// Close detaches the view from its origin. It stops receiving notifications.
func (v *View) Close() {
	v.origin.mu.Lock()
	delete(v.origin.views, v)
	v.origin.mu.Unlock()
	v.mu.Lock()
	v.closed = true
	v.subs = make(map[int]func(string))
	v.mu.Unlock()
}

func (v *View) deliver(key string) {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	fns := make([]func(string), 0, len(v.subs))
	for _, fn := range v.subs {
		fns = append(fns, fn)
	}
	v.mu.Unlock()
	for _, fn := range fns {
		fn(key)
	}
}
