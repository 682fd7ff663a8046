// Package domain contains core business entities and interfaces.
// This is the innermost layer in Clean Architecture - no external dependencies.
package domain

import "time"

// Mode is the authoritative timer mode owned by the session engine.
type Mode string

const (
	ModeIdle    Mode = "idle"
	ModeWorking Mode = "working"
	ModeGaming  Mode = "gaming"
)

// String returns the display name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeWorking:
		return "WORKING"
	case ModeGaming:
		return "GAMING"
	case ModeIdle:
		return "IDLE"
	default:
		return "UNKNOWN"
	}
}

// SessionKind distinguishes work sessions from game sessions.
type SessionKind string

const (
	KindWork SessionKind = "work"
	KindGame SessionKind = "game"
)

// Session is a finished, immutable history record.
type Session struct {
	ID              string      `json:"id" yaml:"id"`
	Kind            SessionKind `json:"type" yaml:"type"`
	Category        string      `json:"category,omitempty" yaml:"category,omitempty"` // Work only
	DurationSeconds int         `json:"duration" yaml:"duration"`
	StartedAt       time.Time   `json:"started_at" yaml:"started_at"`
	EarnedSeconds   *float64    `json:"earned,omitempty" yaml:"earned,omitempty"` // Work only: duration * ratio
}

// ThemeMode selects the color palette of the front-end.
type ThemeMode string

const (
	ThemeDark  ThemeMode = "dark"
	ThemeLight ThemeMode = "light"
)

// Valid reports whether the theme is a known value.
func (t ThemeMode) Valid() bool {
	return t == ThemeDark || t == ThemeLight
}

// Settings holds every user-editable option.
type Settings struct {
	Version            int
	Ratio              float64 // game-seconds earned per work-second
	DailyAllowance     int     // minutes credited once per calendar day
	Categories         []string
	BlacklistProcesses []string // lowercase process names, configured order
	StartTarget        string   // URI or path opened on manual game start
	Password           string
	SoundEnabled       bool
	ThemeMode          ThemeMode
}

// Clone returns a deep copy so callers cannot alias the engine's slices.
func (s Settings) Clone() Settings {
	out := s
	out.Categories = append([]string(nil), s.Categories...)
	out.BlacklistProcesses = append([]string(nil), s.BlacklistProcesses...)
	return out
}

// Snapshot is everything the engine persists between runs.
type Snapshot struct {
	Balance           float64
	History           []Session // newest first
	Settings          Settings
	LastAllowanceDate string // local calendar day, "2006-01-02"
}

// NotificationKind identifies a watchdog message.
type NotificationKind string

const (
	// NotifySessionActive is level-triggered: sent on every poll while a
	// blacklisted process runs.
	NotifySessionActive NotificationKind = "session-active"
	// NotifySessionEnded is edge-triggered: sent once per falling edge.
	NotifySessionEnded NotificationKind = "session-ended"
	// NotifyConnectivity reports a change in process-listing health.
	NotifyConnectivity NotificationKind = "connectivity"
)

// Notification is a message from the watchdog to the engine.
type Notification struct {
	Kind        NotificationKind
	ProcessName string // session-active only
	Connected   bool   // connectivity only
	Err         error  // connectivity only, set when Connected is false
	At          time.Time
}

// Cue is an audible signal triggered by the engine.
type Cue string

const (
	CueStart    Cue = "start"
	CueEnd      Cue = "end"
	CueWarning  Cue = "warning"
	CueCritical Cue = "critical"
)
