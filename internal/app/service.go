package app

import (
	"fmt"
	"log"

	"github.com/jaakkos/inboxflag/internal/domain"
)

// Snapshot is what a view shows: its message log plus its copy of the flag.
type Snapshot struct {
	Messages   []domain.Message `json:"messages"`
	NewMessage bool             `json:"new_message"`
	Unread     int              `json:"unread"`
	Badge      string           `json:"badge"`
	Flag       bool             `json:"flag"`
}

// InboxService ties one view's message log to the cross-view flag.
// With mirroring on, incoming messages raise the flag for other views and
// MarkAsRead lowers it.
type InboxService struct {
	log    *MessageLog
	flag   *Flag
	view   *FlagView
	mirror bool
	logger *log.Logger
}

// NewInboxService returns a service. view may be nil, in which case Snapshot
// reads the flag directly.
func NewInboxService(l *MessageLog, flag *Flag, view *FlagView, mirror bool, logger *log.Logger) *InboxService {
	return &InboxService{log: l, flag: flag, view: view, mirror: mirror, logger: logger}
}

// Log returns the underlying message log.
func (s *InboxService) Log() *MessageLog { return s.log }

// Flag returns the underlying flag.
func (s *InboxService) Flag() *Flag { return s.flag }

// View returns the flag view, or nil.
func (s *InboxService) View() *FlagView { return s.view }

// Deliver appends m. Messages not sent from this device also raise the flag
// when mirroring is enabled.
func (s *InboxService) Deliver(m domain.Message) error {
	s.log.AddMessage(m)
	if s.mirror && !m.IsFromDevice {
		if err := s.SetFlag(true); err != nil {
			return fmt.Errorf("mirror flag: %w", err)
		}
	}
	return nil
}

// MarkAsRead marks the log read and, when mirroring, clears the flag.
func (s *InboxService) MarkAsRead() error {
	s.log.MarkAsRead()
	if s.mirror {
		if err := s.SetFlag(false); err != nil {
			return fmt.Errorf("mirror flag: %w", err)
		}
	}
	return nil
}

// SetFlag writes the flag and refreshes this view's copy, since a view is not
// notified of its own writes.
func (s *InboxService) SetFlag(v bool) error {
	if err := s.flag.Set(v); err != nil {
		return err
	}
	if s.view != nil {
		s.view.Refresh()
	}
	return nil
}

// FlagValue returns the view's local flag, or a direct read without a view.
func (s *InboxService) FlagValue() bool {
	if s.view != nil {
		return s.view.Value()
	}
	return s.flag.Read()
}

// Snapshot returns the current view state.
func (s *InboxService) Snapshot() Snapshot {
	st := s.log.State()
	return Snapshot{
		Messages:   st.Messages,
		NewMessage: st.NewMessage,
		Unread:     st.Unread,
		Badge:      domain.BadgeLabel(st.Unread),
		Flag:       s.FlagValue(),
	}
}
