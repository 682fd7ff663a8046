// Package policy implements the Strategy pattern for per-game presets.
// Each game (Steam, Dota 2) knows its process names on every platform and
// the target that starts it, so a user can blacklist it in one step.
package policy

import (
	"runtime"

	"github.com/mosmello93/focus-timer/internal/config"
)

// AppPolicy defines the strategy interface for a known game.
type AppPolicy interface {
	// ID returns unique identifier (e.g., "steam", "dota2").
	ID() string

	// Name returns human-readable name for display.
	Name() string

	// ProcessNames returns the executable names to watch on goos.
	ProcessNames(goos string) []string

	// StartTarget returns the URI that launches the game.
	StartTarget() string
}

// Preset is an AppPolicy resolved for one platform.
type Preset struct {
	ID           string
	Name         string
	ProcessNames []string // normalized, lowercase
	StartTarget  string
}

// ToPreset resolves an AppPolicy for goos. An empty goos means the running OS.
func ToPreset(ap AppPolicy, goos string) Preset {
	if goos == "" {
		goos = runtime.GOOS
	}
	return Preset{
		ID:           ap.ID(),
		Name:         ap.Name(),
		ProcessNames: config.NormalizeProcessNames(ap.ProcessNames(goos)),
		StartTarget:  ap.StartTarget(),
	}
}

// MergeBlacklist appends the preset's names that are not yet present,
// keeping the existing order.
func MergeBlacklist(current []string, p Preset) []string {
	return config.NormalizeProcessNames(append(append([]string(nil), current...), p.ProcessNames...))
}
