package app

import "time"

// Policy is the configuration port used by the application.
// Implemented by internal/policy.Policy.
type Policy interface {
	Origin() string
	ViewID() string
	StateFile() string
	SignalFilePath() string
	DebounceInterval() time.Duration
	PollInterval() time.Duration
	ClearOnOpen() bool
	MirrorFlag() bool
}
