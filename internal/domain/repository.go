package domain

import "context"

// ProcessLister enumerates running OS processes.
// Implementations: gopsutil (portable) and tasklist (Windows tabular output).
type ProcessLister interface {
	// ListRunningProcessNames returns the image names of all running processes.
	// An empty result is valid.
	ListRunningProcessNames(ctx context.Context) ([]string, error)
}

// ProcessKiller terminates processes by image name.
type ProcessKiller interface {
	// KillProcessByName force-kills every process with the given name.
	// A name with no running process is not an error.
	KillProcessByName(ctx context.Context, name string) error
}

// ProcessManager combines listing and killing.
type ProcessManager interface {
	ProcessLister
	ProcessKiller
}

// Launcher opens a URI or executable path with the host OS.
type Launcher interface {
	OpenExternal(target string) error
}

// SnapshotStore persists the engine snapshot.
// Implementations must tolerate missing or partial data on first run.
type SnapshotStore interface {
	// Load returns the stored snapshot with defaults applied.
	Load() (Snapshot, error)

	// Save replaces the stored snapshot. History is append-only.
	Save(snapshot Snapshot) error

	// Path returns the backing file path (for status output).
	Path() string

	// Close releases resources (e.g., database connection).
	Close() error
}

// AutostartManager registers the app to start on login.
type AutostartManager interface {
	// Enable installs the login item for execPath. Idempotent.
	Enable(execPath string) error

	// Disable removes the login item. Idempotent.
	Disable() error

	// IsEnabled reports whether the login item is installed.
	IsEnabled() bool
}

// SoundPlayer plays audible cues. Fire-and-forget.
type SoundPlayer interface {
	Play(cue Cue)
}

// WatchdogControl is the engine's control channel into the watchdog.
type WatchdogControl interface {
	// UpdateBlacklist replaces the watched names before the next poll.
	UpdateBlacklist(names []string)

	// ManualEnd acknowledges that the user ended a game session, so the
	// next matching polls must not restart it.
	ManualEnd()
}

// KeyProvider abstracts the source of the store encryption key.
type KeyProvider interface {
	// GetKey returns the encryption key bytes.
	GetKey() ([]byte, error)

	// StoreKey persists a new encryption key.
	StoreKey(key []byte) error

	// KeyExists checks if a key has been generated.
	KeyExists() bool
}
