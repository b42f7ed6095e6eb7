// Package dashboard provides a web dashboard, a JSON API and a WebSocket feed
// for one view's inbox and notification flag.
package dashboard

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/jaakkos/inboxflag/internal/app"
	"github.com/jaakkos/inboxflag/internal/domain"
)

// StateSnapshot is the JSON response from /api/state and the payload of "state" frames.
type StateSnapshot struct {
	Timestamp  string            `json:"timestamp"`
	Origin     string            `json:"origin"`
	ViewID     string            `json:"view_id"`
	Messages   []MessageSnapshot `json:"messages"`
	NewMessage bool              `json:"new_message"`
	Unread     int               `json:"unread"`
	Badge      string            `json:"badge"`
	Flag       bool              `json:"flag"`
}

// MessageSnapshot is a per-message summary.
type MessageSnapshot struct {
	ID           int    `json:"id"`
	IsFromDevice bool   `json:"is_from_device"`
	Text         string `json:"text"`
	Preview      string `json:"preview"`
}

// Handler holds dependencies for dashboard HTTP handlers.
type Handler struct {
	svc    *app.InboxService
	origin string
	viewID string
	logger *log.Logger
	hub    *hub
}

// HandlerOption configures optional dependencies for the dashboard handler.
type HandlerOption func(*Handler)

// WithIdentity sets the origin and view ID reported in snapshots.
func WithIdentity(origin, viewID string) HandlerOption {
	return func(h *Handler) {
		h.origin = origin
		h.viewID = viewID
	}
}

// WithLogger sets the logger. Without it, logging is discarded.
func WithLogger(l *log.Logger) HandlerOption {
	return func(h *Handler) { h.logger = l }
}

// NewHandler creates a dashboard handler.
func NewHandler(svc *app.InboxService, opts ...HandlerOption) *Handler {
	h := &Handler{svc: svc}
	for _, opt := range opts {
		opt(h)
	}
	h.hub = newHub(h)
	return h
}

// RegisterRoutes adds dashboard routes to the given mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/state", h.handleAPIState)
	mux.HandleFunc("/api/messages", h.handleAPIMessages)
	mux.HandleFunc("/api/mark-read", h.handleAPIMarkRead)
	mux.HandleFunc("/api/flag", h.handleAPIFlag)
	mux.HandleFunc("/ws", h.handleWS)
	mux.HandleFunc("/dashboard", h.handleDashboard)
	mux.HandleFunc("/dashboard/", h.handleDashboard)
}

// Close disconnects all WebSocket clients and stops observing state.
func (h *Handler) Close() {
	h.hub.close()
}

// Snapshot builds the current StateSnapshot.
func (h *Handler) Snapshot() StateSnapshot {
	s := h.svc.Snapshot()
	msgs := make([]MessageSnapshot, 0, len(s.Messages))
	for _, m := range s.Messages {
		msgs = append(msgs, MessageSnapshot{
			ID:           m.ID,
			IsFromDevice: m.IsFromDevice,
			Text:         m.Text,
			Preview:      truncate(m.Text, 80),
		})
	}
	return StateSnapshot{
		Timestamp:  time.Now().Format(time.RFC3339),
		Origin:     h.origin,
		ViewID:     h.viewID,
		Messages:   msgs,
		NewMessage: s.NewMessage,
		Unread:     s.Unread,
		Badge:      s.Badge,
		Flag:       s.Flag,
	}
}

func (h *Handler) handleAPIState(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET required")
		return
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(h.Snapshot())
}

func (h *Handler) handleAPIMessages(w http.ResponseWriter, r *http.Request) {
	if !preparePost(w, r) {
		return
	}
	var msg domain.Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid message: "+err.Error())
		return
	}
	if err := h.svc.Deliver(msg); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.logf("Dashboard: message #%d added", msg.ID)
	w.Write([]byte(`{"status":"ok"}`))
}

func (h *Handler) handleAPIMarkRead(w http.ResponseWriter, r *http.Request) {
	if !preparePost(w, r) {
		return
	}
	if err := h.svc.MarkAsRead(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Write([]byte(`{"status":"ok"}`))
}

func (h *Handler) handleAPIFlag(w http.ResponseWriter, r *http.Request) {
	if !preparePost(w, r) {
		return
	}
	var body struct {
		Value *bool `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Value == nil {
		writeError(w, http.StatusBadRequest, "value (bool) is required")
		return
	}
	if err := h.svc.SetFlag(*body.Value); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Write([]byte(`{"status":"ok","` + domain.FlagKey + `":` + domain.EncodeFlag(*body.Value) + `}`))
}

// preparePost sets JSON/CORS headers and handles OPTIONS and non-POST methods.
// It returns false when the request has been answered.
func preparePost(w http.ResponseWriter, r *http.Request) bool {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	if r.Method == http.MethodOptions {
		w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.WriteHeader(http.StatusNoContent)
		return false
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (h *Handler) logf(format string, args ...any) {
	if h.logger != nil {
		h.logger.Printf(format, args...)
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
