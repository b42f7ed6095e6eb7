// Package metrics exports inbox and flag state as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jaakkos/inboxflag/internal/domain"
)

// Metrics holds the collectors for one view.
type Metrics struct {
	Messages     prometheus.Gauge
	Unread       prometheus.Gauge
	NewMessage   prometheus.Gauge
	Flag         prometheus.Gauge
	Sessions     prometheus.Gauge
	LogUpdates   prometheus.Counter
	FlagChanges  prometheus.Counter
	unsubscribes []func()
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Messages: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "inboxflag", Name: "messages",
			Help: "Messages held in this view's log.",
		}),
		Unread: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "inboxflag", Name: "unread_messages",
			Help: "Messages appended since the last mark-as-read.",
		}),
		NewMessage: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "inboxflag", Name: "new_message",
			Help: "1 when the log is in the unread state.",
		}),
		Flag: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "inboxflag", Name: "flag",
			Help: "This view's copy of the cross-view notification flag.",
		}),
		Sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "inboxflag", Name: "mcp_sessions",
			Help: "Connected MCP client sessions.",
		}),
		LogUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "inboxflag", Name: "log_updates_total",
			Help: "Message log mutations (appends and mark-as-read).",
		}),
		FlagChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "inboxflag", Name: "flag_changes_total",
			Help: "Changes of this view's flag value.",
		}),
	}
	reg.MustRegister(m.Messages, m.Unread, m.NewMessage, m.Flag, m.Sessions, m.LogUpdates, m.FlagChanges)
	return m
}

// LogSource is implemented by app.MessageLog.
type LogSource interface {
	State() domain.MessageLogState
	Subscribe(fn func(domain.MessageLogState)) func()
}

// FlagSource is implemented by app.FlagView.
type FlagSource interface {
	Value() bool
	Subscribe(fn func(bool)) func()
}

// Observe seeds the gauges from the current state and keeps them updated.
func (m *Metrics) Observe(l LogSource, f FlagSource) {
	m.setLog(l.State())
	m.Flag.Set(boolGauge(f.Value()))

	m.unsubscribes = append(m.unsubscribes,
		l.Subscribe(func(st domain.MessageLogState) {
			m.LogUpdates.Inc()
			m.setLog(st)
		}),
		f.Subscribe(func(v bool) {
			m.FlagChanges.Inc()
			m.Flag.Set(boolGauge(v))
		}),
	)
}

// SetSessions records the connected session count. It matches the
// app.NewSessionRegistry callback.
func (m *Metrics) SetSessions(n int) {
	m.Sessions.Set(float64(n))
}

// Stop removes the subscriptions made by Observe.
func (m *Metrics) Stop() {
	for _, u := range m.unsubscribes {
		u()
	}
	m.unsubscribes = nil
}

func (m *Metrics) setLog(st domain.MessageLogState) {
	m.Messages.Set(float64(len(st.Messages)))
	m.Unread.Set(float64(st.Unread))
	m.NewMessage.Set(boolGauge(st.NewMessage))
}

func boolGauge(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
