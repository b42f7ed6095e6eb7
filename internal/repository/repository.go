package repository

import (
	"github.com/jaakkos/inboxflag/internal/repository/sqlite"
)

// NewOriginStore returns the SQLite store at the given path.
// The path is typically from policy.StateFile() (default ~/.config/inboxflag/state.sqlite).
func NewOriginStore(path string) (*sqlite.Store, error) {
	return sqlite.New(path)
}
