package app

import (
	"context"
	"log"
)

// View is one running view of an origin: the cross-process signal feed, the
// reactive flag and this process's message log.
type View struct {
	ID    string
	Feed  *SignalFeed
	Flag  *Flag
	Watch *FlagView
	Log   *MessageLog
	Inbox *InboxService
}

// OpenView wires a view over bucket, the origin's durable store.
// Call Run to start delivering notifications and Close on shutdown.
func OpenView(pol Policy, bucket KVStore, logger *log.Logger) *View {
	feed := NewSignalFeed(pol.SignalFilePath(), pol.ViewID(), logger,
		WithDebounce(pol.DebounceInterval()),
		WithPollInterval(pol.PollInterval()),
	)
	flag := NewFlag(NewAnnouncingStore(bucket, feed, logger), logger)

	var opts []FlagViewOption
	if pol.ClearOnOpen() {
		opts = append(opts, WithClearOnOpen())
	}
	watch := WatchFlag(flag, feed, opts...)
	l := NewMessageLog()

	return &View{
		ID:    pol.ViewID(),
		Feed:  feed,
		Flag:  flag,
		Watch: watch,
		Log:   l,
		Inbox: NewInboxService(l, flag, watch, pol.MirrorFlag(), logger),
	}
}

// Context returns ctx carrying this view's message log.
func (v *View) Context(ctx context.Context) context.Context {
	return WithMessageLog(ctx, v.Log)
}

// Run watches the signal file until ctx is cancelled.
func (v *View) Run(ctx context.Context) {
	v.Feed.Start(ctx)
}

// Close stops the feed and tears the view down.
func (v *View) Close() {
	v.Feed.Stop()
	v.Watch.Close()
	v.Log.Close()
}
