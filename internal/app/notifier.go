package app

import (
	"context"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	defaultDebounce     = 50 * time.Millisecond
	defaultPollInterval = 2 * time.Second
)

// SignalFeed is the cross-process ChangeFeed. Writers stamp a signal file
// (see TouchNotifySignal); every other process watching the same file delivers
// a change notification to its subscribers. Stamps carrying this feed's own
// view ID are skipped, so a process never hears about its own writes.
type SignalFeed struct {
	signalPath   string
	viewID       string
	logger       *log.Logger
	debounce     time.Duration
	pollInterval time.Duration

	mu            sync.Mutex
	lastRev       string
	debounceTimer *time.Timer
	started       bool
	stopOnce      sync.Once
	stopCh        chan struct{}
	doneCh        chan struct{}
	deliverMu     sync.Mutex // serializes checkAndDeliver so one stamp is delivered once

	subs subscribers[string]
}

// SignalFeedOption configures the feed.
type SignalFeedOption func(*SignalFeed)

// WithDebounce sets how long the feed waits after a file event before reading the stamp.
func WithDebounce(d time.Duration) SignalFeedOption {
	return func(f *SignalFeed) {
		if d > 0 {
			f.debounce = d
		}
	}
}

// WithPollInterval sets the poll interval used only when fsnotify is unavailable.
func WithPollInterval(d time.Duration) SignalFeedOption {
	return func(f *SignalFeed) {
		if d > 0 {
			f.pollInterval = d
		}
	}
}

// NewSignalFeed creates a feed for signalPath. viewID identifies this process's writes.
// The stamp present at construction is treated as already seen.
func NewSignalFeed(signalPath, viewID string, logger *log.Logger, opts ...SignalFeedOption) *SignalFeed {
	f := &SignalFeed{
		signalPath:   signalPath,
		viewID:       viewID,
		logger:       logger,
		debounce:     defaultDebounce,
		pollInterval: defaultPollInterval,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
	for _, o := range opts {
		o(f)
	}
	if stamp, ok := readSignal(signalPath); ok {
		f.lastRev = stamp.ViewID + " " + stamp.Revision
	}
	return f
}

// Subscribe implements ChangeFeed.
func (f *SignalFeed) Subscribe(fn func(key string)) func() {
	return f.subs.add(fn)
}

// Announce stamps the signal file for a write of key made by this view.
func (f *SignalFeed) Announce(key string) error {
	rev, err := TouchNotifySignal(f.signalPath, f.viewID, key)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.lastRev = f.viewID + " " + rev
	f.mu.Unlock()
	return nil
}

// Start watches the signal file until ctx is cancelled or Stop is called.
// If fsnotify fails to initialize, falls back to poll-only mode. Once the
// watch is in place the stamp is checked, so a write made between
// NewSignalFeed and Start is still delivered.
func (f *SignalFeed) Start(ctx context.Context) {
	f.mu.Lock()
	f.started = true
	f.mu.Unlock()
	defer close(f.doneCh)

	watchDir := filepath.Dir(f.signalPath)
	signalName := filepath.Base(f.signalPath)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logf(f.logger, "SignalFeed: fsnotify init failed (%v), using poll-only", err)
		f.pollLoop(ctx)
		return
	}
	defer watcher.Close()
	if err := watcher.Add(watchDir); err != nil {
		logf(f.logger, "SignalFeed: fsnotify add %s failed (%v), using poll-only", watchDir, err)
		f.pollLoop(ctx)
		return
	}
	f.checkAndDeliver()
	f.watchLoop(ctx, watcher, signalName)
}

// Stop ends Start and waits for it to return. Safe to call without Start and more than once.
func (f *SignalFeed) Stop() {
	f.stopOnce.Do(func() { close(f.stopCh) })
	f.mu.Lock()
	started := f.started
	if f.debounceTimer != nil {
		f.debounceTimer.Stop()
	}
	f.mu.Unlock()
	if started {
		<-f.doneCh
	}
}

// CheckOnce reads the stamp and delivers it if it is new and foreign.
func (f *SignalFeed) CheckOnce() {
	f.checkAndDeliver()
}

func (f *SignalFeed) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, signalName string) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-f.stopCh:
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != signalName {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			f.triggerDebounced()
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logf(f.logger, "SignalFeed: watcher error: %v", err)
		}
	}
}

func (f *SignalFeed) triggerDebounced() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopped() {
		return
	}
	if f.debounceTimer != nil {
		f.debounceTimer.Stop()
	}
	f.debounceTimer = time.AfterFunc(f.debounce, func() {
		if f.stopped() {
			return
		}
		f.checkAndDeliver()
	})
}

func (f *SignalFeed) stopped() bool {
	select {
	case <-f.stopCh:
		return true
	default:
		return false
	}
}

func (f *SignalFeed) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(f.pollInterval)
	defer ticker.Stop()
	f.checkAndDeliver()
	for {
		select {
		case <-ctx.Done():
			return
		case <-f.stopCh:
			return
		case <-ticker.C:
			f.checkAndDeliver()
		}
	}
}

func (f *SignalFeed) checkAndDeliver() {
	f.deliverMu.Lock()
	defer f.deliverMu.Unlock()

	stamp, ok := readSignal(f.signalPath)
	if !ok {
		return
	}
	rev := stamp.ViewID + " " + stamp.Revision
	f.mu.Lock()
	if rev == f.lastRev {
		f.mu.Unlock()
		return
	}
	f.lastRev = rev
	f.mu.Unlock()

	if stamp.ViewID == f.viewID {
		return
	}
	f.subs.notify(stamp.Key)
}

// Announcer is implemented by SignalFeed.
type Announcer interface {
	Announce(key string) error
}

// AnnouncingStore is a KVStore that announces every successful Set to other processes.
type AnnouncingStore struct {
	KVStore
	announcer Announcer
	logger    *log.Logger
}

// NewAnnouncingStore wraps store.
func NewAnnouncingStore(store KVStore, a Announcer, logger *log.Logger) *AnnouncingStore {
	return &AnnouncingStore{KVStore: store, announcer: a, logger: logger}
}

// Set writes through and then announces. An announce failure is logged; the
// write itself has already succeeded.
func (s *AnnouncingStore) Set(key, value string) error {
	if err := s.KVStore.Set(key, value); err != nil {
		return err
	}
	if err := s.announcer.Announce(key); err != nil {
		logf(s.logger, "Warning: announce %s: %v", key, err)
	}
	return nil
}
