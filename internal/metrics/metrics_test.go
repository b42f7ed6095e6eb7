package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/jaakkos/inboxflag/internal/app"
	"github.com/jaakkos/inboxflag/internal/domain"
	"github.com/jaakkos/inboxflag/internal/repository/memory"
)

func TestObserve(t *testing.T) {
	origin := memory.NewOrigin()
	viewA, viewB := origin.View(), origin.View()
	fv := app.WatchFlag(app.NewFlag(viewB, nil), viewB)
	defer fv.Close()
	l := app.NewMessageLog()
	l.AddMessage(domain.Message{ID: 1})

	m := New(prometheus.NewRegistry())
	m.Observe(l, fv)
	defer m.Stop()

	if got := testutil.ToFloat64(m.Messages); got != 1 {
		t.Errorf("messages = %v, want 1 (seeded)", got)
	}

	l.AddMessage(domain.Message{ID: 2})
	if got := testutil.ToFloat64(m.Unread); got != 2 {
		t.Errorf("unread = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.NewMessage); got != 1 {
		t.Errorf("new_message = %v, want 1", got)
	}

	l.MarkAsRead()
	if got := testutil.ToFloat64(m.NewMessage); got != 0 {
		t.Errorf("new_message after read = %v, want 0", got)
	}
	if got := testutil.ToFloat64(m.LogUpdates); got != 2 {
		t.Errorf("log_updates_total = %v, want 2", got)
	}

	_ = app.NewFlag(viewA, nil).Set(true)
	if got := testutil.ToFloat64(m.Flag); got != 1 {
		t.Errorf("flag = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.FlagChanges); got != 1 {
		t.Errorf("flag_changes_total = %v, want 1", got)
	}
}

func TestStopDetaches(t *testing.T) {
	l := app.NewMessageLog()
	origin := memory.NewOrigin()
	view := origin.View()
	fv := app.WatchFlag(app.NewFlag(view, nil), view)
	defer fv.Close()

	m := New(prometheus.NewRegistry())
	m.Observe(l, fv)
	m.Stop()
	l.AddMessage(domain.Message{ID: 1})
	if got := testutil.ToFloat64(m.LogUpdates); got != 0 {
		t.Errorf("log_updates_total after Stop = %v", got)
	}
}

func TestSessionsGauge(t *testing.T) {
	m := New(prometheus.NewRegistry())
	r := app.NewSessionRegistry(m.SetSessions)
	r.Register("s1", "a")
	r.Register("s2", "b")
	if got := testutil.ToFloat64(m.Sessions); got != 2 {
		t.Errorf("mcp_sessions = %v, want 2", got)
	}
	r.Remove("s1")
	if got := testutil.ToFloat64(m.Sessions); got != 1 {
		t.Errorf("mcp_sessions after remove = %v, want 1", got)
	}
}
