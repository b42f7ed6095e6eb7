package main

import (
	"context"
	"log"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jaakkos/inboxflag/internal/app"
	"github.com/jaakkos/inboxflag/internal/domain"
)

// stateNotification is the method pushed to clients when the view changes.
const stateNotification = "notifications/inboxflag/state"

// sessionStore holds active ClientSession objects for push notifications.
type sessionStore struct {
	mu   sync.RWMutex
	data map[string]server.ClientSession
}

func newSessionStore() *sessionStore {
	return &sessionStore{data: make(map[string]server.ClientSession)}
}

func (ss *sessionStore) set(id string, s server.ClientSession) {
	ss.mu.Lock()
	ss.data[id] = s
	ss.mu.Unlock()
}

func (ss *sessionStore) get(id string) server.ClientSession {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return ss.data[id]
}

func (ss *sessionStore) remove(id string) {
	ss.mu.Lock()
	delete(ss.data, id)
	ss.mu.Unlock()
}

// trackSessions adds hooks that keep registry and sessions in sync with
// connected clients.
func trackSessions(hooks *server.Hooks, registry *app.SessionRegistry, sessions *sessionStore, logger *log.Logger) {
	hooks.AddBeforeInitialize(func(ctx context.Context, id any, message *mcp.InitializeRequest) {
		session := server.ClientSessionFromContext(ctx)
		if session == nil {
			return
		}
		client := ""
		if message != nil {
			ci := message.Params.ClientInfo
			client = ci.Name
			logger.Printf("Client: %s %s, Protocol: %s", ci.Name, ci.Version, message.Params.ProtocolVersion)
		}
		sessions.set(session.SessionID(), session)
		registry.Register(session.SessionID(), client)
		logger.Printf("Client session registered: %s", session.SessionID())
	})
	hooks.AddOnUnregisterSession(func(ctx context.Context, session server.ClientSession) {
		sid := session.SessionID()
		registry.Remove(sid)
		sessions.remove(sid)
		logger.Printf("Client session unregistered: %s", sid)
	})
	hooks.AddAfterCallTool(func(ctx context.Context, id any, message *mcp.CallToolRequest, result *mcp.CallToolResult) {
		if session := server.ClientSessionFromContext(ctx); session != nil {
			registry.Touch(session.SessionID())
		}
	})
}

// pushState sends params to every initialized session. A session whose
// notification channel is full misses this push.
func pushState(registry *app.SessionRegistry, sessions *sessionStore, params map[string]any, logger *log.Logger) {
	for _, sid := range registry.IDs() {
		session := sessions.get(sid)
		if session == nil || !session.Initialized() {
			continue
		}
		notification := mcp.JSONRPCNotification{
			JSONRPC: "2.0",
			Notification: mcp.Notification{
				Method: stateNotification,
				Params: mcp.NotificationParams{AdditionalFields: params},
			},
		}
		select {
		case session.NotificationChannel() <- notification:
		default:
			logger.Printf("Push: notification to %s dropped (channel full)", sid)
		}
	}
}

// watchAndPush pushes the view's state to all sessions whenever the flag or
// the message log changes. The returned function stops it.
func watchAndPush(view *app.View, registry *app.SessionRegistry, sessions *sessionStore, logger *log.Logger) func() {
	push := func() {
		s := view.Inbox.Snapshot()
		pushState(registry, sessions, map[string]any{
			"view_id":     view.ID,
			"new_message": s.NewMessage,
			"unread":      s.Unread,
			"badge":       s.Badge,
			"flag":        s.Flag,
		}, logger)
	}
	unsubFlag := view.Watch.Subscribe(func(bool) { push() })
	unsubLog := view.Log.Subscribe(func(domain.MessageLogState) { push() })
	return func() {
		unsubFlag()
		unsubLog()
	}
}
