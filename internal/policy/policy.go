// Package policy loads configuration and resolves the paths and timings derived from it.
package policy

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// DefaultOrigin is the origin used when none is configured.
const DefaultOrigin = "default"

// GlobalStateDir returns the default global state directory (~/.config/inboxflag).
func GlobalStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	return filepath.Join(home, ".config", "inboxflag")
}

// GlobalStateFile returns the default global state file path.
func GlobalStateFile() string {
	return filepath.Join(GlobalStateDir(), "state.sqlite")
}

// Config holds configuration
type Config struct {
	Origin    string `yaml:"origin"`
	StateFile string `yaml:"state_file"`
	LogFile   string `yaml:"log_file"`
	HTTPPort  int    `yaml:"http_port"`
	ViewID    string `yaml:"view_id"` // must be unique per running process; leave unset in a shared config

	DebounceMs          int  `yaml:"debounce_ms"`
	PollIntervalSeconds int  `yaml:"poll_interval_seconds"` // only used when fsnotify is unavailable
	ClearOnOpen         bool `yaml:"clear_on_open"`         // clear the flag once at startup
	MirrorFlag          bool `yaml:"mirror_flag"`           // incoming messages raise the flag, mark-as-read clears it
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Origin:              DefaultOrigin,
		HTTPPort:            8765,
		DebounceMs:          50,
		PollIntervalSeconds: 2,
		ClearOnOpen:         true,
		MirrorFlag:          true,
	}
}

// LoadConfig loads configuration from a YAML file on top of DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Origin == "" {
		cfg.Origin = DefaultOrigin
	}
	return cfg, nil
}

// Policy exposes resolved configuration values.
type Policy struct {
	config *Config
	mu     sync.Mutex // protects lazily generated viewID
	viewID string
}

// New creates a new policy
func New(cfg *Config) *Policy {
	return &Policy{config: cfg}
}

// Origin returns the configured origin name.
func (p *Policy) Origin() string {
	if p.config.Origin == "" {
		return DefaultOrigin
	}
	return p.config.Origin
}

// ViewID returns the configured view ID, or a random one generated on first use
// and stable for the process lifetime. A process skips signal stamps carrying
// its own view ID, so two processes configured with the same view_id do not
// see each other's writes.
func (p *Policy) ViewID() string {
	if p.config.ViewID != "" {
		return p.config.ViewID
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.viewID == "" {
		p.viewID = uuid.NewString()
	}
	return p.viewID
}

// StateFile returns the configured state file path.
// If unset, defaults to the global state file (~/.config/inboxflag/state.sqlite)
// so that every view on the machine shares the same storage.
func (p *Policy) StateFile() string {
	sf := p.config.StateFile
	if sf == "" {
		return GlobalStateFile()
	}
	if filepath.IsAbs(sf) {
		return sf
	}
	abs, err := filepath.Abs(sf)
	if err != nil {
		return sf
	}
	return abs
}

// WriterID returns a fresh ID for a one-shot writer such as the CLI. It is
// never the configured view_id, so running views always see the write.
func WriterID() string {
	return "cli-" + uuid.NewString()
}

var unsafeOriginChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SignalFilePath returns the per-origin notify signal file (same directory as state file).
// Watchers use this to detect writes without relying on SQLite WAL file events.
func (p *Policy) SignalFilePath() string {
	name := unsafeOriginChars.ReplaceAllString(p.Origin(), "_")
	return filepath.Join(filepath.Dir(p.StateFile()), ".inboxflag-"+name+"-notify")
}

// LogFile returns the configured log file path.
// If unset, defaults to ~/.config/inboxflag/inboxflag.log.
// Set to "none" or "off" to disable file logging entirely.
func (p *Policy) LogFile() string {
	if p.config.LogFile == "" {
		return filepath.Join(GlobalStateDir(), "inboxflag.log")
	}
	return p.config.LogFile
}

// HTTPPort returns the dashboard port. 0 picks a free port.
func (p *Policy) HTTPPort() int {
	return p.config.HTTPPort
}

// DebounceInterval returns the signal-file debounce.
func (p *Policy) DebounceInterval() time.Duration {
	if p.config.DebounceMs <= 0 {
		return 50 * time.Millisecond
	}
	return time.Duration(p.config.DebounceMs) * time.Millisecond
}

// PollInterval returns the fallback poll interval.
func (p *Policy) PollInterval() time.Duration {
	if p.config.PollIntervalSeconds <= 0 {
		return 2 * time.Second
	}
	return time.Duration(p.config.PollIntervalSeconds) * time.Second
}

// ClearOnOpen reports whether the flag is cleared once at startup.
func (p *Policy) ClearOnOpen() bool {
	return p.config.ClearOnOpen
}

// MirrorFlag reports whether the inbox mirrors its unread state into the flag.
func (p *Policy) MirrorFlag() bool {
	return p.config.MirrorFlag
}
