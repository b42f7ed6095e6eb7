package app

import (
	"context"
	"errors"
	"sync"

	"github.com/jaakkos/inboxflag/internal/domain"
)

// ErrNoMessageLog is returned when a message log is requested from a context
// that was never given one with WithMessageLog.
var ErrNoMessageLog = errors.New("message log used outside its provider")

// MessageLog is one view's in-memory, append-only list of chat messages plus
// the coarse "has unread" flag. It is safe for concurrent use so a live message
// source can call AddMessage from any goroutine.
type MessageLog struct {
	// pushMu serializes mutate+notify so subscribers observe states in mutation order.
	// Subscribers must not call AddMessage or MarkAsRead synchronously.
	pushMu sync.Mutex

	mu         sync.Mutex
	messages   []domain.Message
	newMessage bool
	unread     int
	closed     bool

	subs subscribers[domain.MessageLogState]
}

// NewMessageLog returns an empty log in the read state.
func NewMessageLog() *MessageLog {
	return &MessageLog{messages: []domain.Message{}}
}

// AddMessage appends m in arrival order and marks the log unread.
// Duplicate IDs are accepted. Calls after Close are ignored.
func (l *MessageLog) AddMessage(m domain.Message) {
	l.pushMu.Lock()
	defer l.pushMu.Unlock()

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.messages = append(l.messages, m)
	l.newMessage = true
	l.unread++
	state := l.stateLocked()
	l.mu.Unlock()

	l.subs.notify(state)
}

// MarkAsRead clears the unread flag and counter. Messages are left untouched.
func (l *MessageLog) MarkAsRead() {
	l.pushMu.Lock()
	defer l.pushMu.Unlock()

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.newMessage = false
	l.unread = 0
	state := l.stateLocked()
	l.mu.Unlock()

	l.subs.notify(state)
}

// Messages returns a copy of the messages in insertion order.
func (l *MessageLog) Messages() []domain.Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.Message, len(l.messages))
	copy(out, l.messages)
	return out
}

// NewMessage reports whether a message arrived since the last MarkAsRead.
func (l *MessageLog) NewMessage() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.newMessage
}

// Unread is the number of messages appended since the last MarkAsRead.
func (l *MessageLog) Unread() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.unread
}

// State returns a copy of the current state, taken under one lock.
func (l *MessageLog) State() domain.MessageLogState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stateLocked()
}

// Subscribe registers fn to receive the state after every mutation.
func (l *MessageLog) Subscribe(fn func(domain.MessageLogState)) func() {
	return l.subs.add(fn)
}

// Close discards the messages and subscribers. Later mutations are no-ops.
func (l *MessageLog) Close() {
	l.pushMu.Lock()
	defer l.pushMu.Unlock()

	l.mu.Lock()
	l.closed = true
	l.messages = nil
	l.newMessage = false
	l.unread = 0
	l.mu.Unlock()

	l.subs.clear()
}

func (l *MessageLog) stateLocked() domain.MessageLogState {
	msgs := make([]domain.Message, len(l.messages))
	copy(msgs, l.messages)
	return domain.MessageLogState{Messages: msgs, NewMessage: l.newMessage, Unread: l.unread}
}

type messageLogKey struct{}

// WithMessageLog returns a child context that carries l.
func WithMessageLog(ctx context.Context, l *MessageLog) context.Context {
	return context.WithValue(ctx, messageLogKey{}, l)
}

// MessageLogFromContext returns the log attached by WithMessageLog, or
// ErrNoMessageLog. It never hands back an empty default.
func MessageLogFromContext(ctx context.Context) (*MessageLog, error) {
	if ctx == nil {
		return nil, ErrNoMessageLog
	}
	l, ok := ctx.Value(messageLogKey{}).(*MessageLog)
	if !ok || l == nil {
		return nil, ErrNoMessageLog
	}
	return l, nil
}

// MustMessageLog is MessageLogFromContext that panics instead of returning an error.
func MustMessageLog(ctx context.Context) *MessageLog {
	l, err := MessageLogFromContext(ctx)
	if err != nil {
		panic(err)
	}
	return l
}
