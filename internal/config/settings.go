// Package config holds runtime configuration and the settings default rules.
package config

import (
	"strings"

	"github.com/mosmello93/focus-timer/internal/domain"
)

// SettingsVersion is the current settings schema version.
// Version 1 carried a single processName instead of a blacklist.
const SettingsVersion = 2

const (
	DefaultRatio          = 0.5
	DefaultDailyAllowance = 30 // minutes
	DefaultStartTarget    = "steam://"
	DefaultProcessName    = "steam.exe"
)

// DefaultCategories are offered on first run.
var DefaultCategories = []string{"Project", "Training", "Household", "Other"}

// DefaultSettings returns the settings used when nothing is stored.
func DefaultSettings() domain.Settings {
	return domain.Settings{
		Version:            SettingsVersion,
		Ratio:              DefaultRatio,
		DailyAllowance:     DefaultDailyAllowance,
		Categories:         append([]string(nil), DefaultCategories...),
		BlacklistProcesses: []string{DefaultProcessName},
		StartTarget:        DefaultStartTarget,
		SoundEnabled:       true,
		ThemeMode:          domain.ThemeDark,
	}
}

// RawSettings is the stored form of domain.Settings. Every field is optional
// so that partial or older snapshots can be told apart from explicit values.
type RawSettings struct {
	Version            *int     `json:"version,omitempty" yaml:"version,omitempty"`
	Ratio              *float64 `json:"ratio,omitempty" yaml:"ratio,omitempty"`
	DailyAllowance     *int     `json:"dailyAllowance,omitempty" yaml:"daily_allowance,omitempty"`
	Categories         []string `json:"categories,omitempty" yaml:"categories,omitempty"`
	BlacklistProcesses []string `json:"blacklistProcesses,omitempty" yaml:"blacklist_processes,omitempty"`
	ProcessName        *string  `json:"processName,omitempty" yaml:"process_name,omitempty"` // version 1
	StartTarget        *string  `json:"startPath,omitempty" yaml:"start_target,omitempty"`
	Password           *string  `json:"password,omitempty" yaml:"password,omitempty"`
	SoundEnabled       *bool    `json:"soundEnabled,omitempty" yaml:"sound_enabled,omitempty"`
	ThemeMode          *string  `json:"themeMode,omitempty" yaml:"theme_mode,omitempty"`
}

// ResolveSettings applies the per-field default rules to stored settings.
// It is the only place defaults are filled in; a nil raw yields DefaultSettings.
//
//   - ratio, dailyAllowance: stored value kept as is, default when missing
//   - categories: trimmed and de-duplicated, defaults when nothing remains
//   - blacklist: normalized; falls back to the legacy processName, then steam.exe
//   - startTarget: default when missing or blank
//   - soundEnabled: true when missing
//   - themeMode: dark when missing or unknown
func ResolveSettings(raw *RawSettings) domain.Settings {
	s := DefaultSettings()
	if raw == nil {
		return s
	}

	if raw.Ratio != nil {
		s.Ratio = *raw.Ratio
	}
	if raw.DailyAllowance != nil {
		s.DailyAllowance = *raw.DailyAllowance
	}

	if cats := NormalizeCategories(raw.Categories); len(cats) > 0 {
		s.Categories = cats
	}

	blacklist := NormalizeProcessNames(raw.BlacklistProcesses)
	if len(blacklist) == 0 && raw.ProcessName != nil {
		blacklist = NormalizeProcessNames([]string{*raw.ProcessName})
	}
	if len(blacklist) > 0 {
		s.BlacklistProcesses = blacklist
	}

	if raw.StartTarget != nil && strings.TrimSpace(*raw.StartTarget) != "" {
		s.StartTarget = strings.TrimSpace(*raw.StartTarget)
	}
	if raw.Password != nil {
		s.Password = *raw.Password
	}
	if raw.SoundEnabled != nil {
		s.SoundEnabled = *raw.SoundEnabled
	}
	if raw.ThemeMode != nil && domain.ThemeMode(*raw.ThemeMode).Valid() {
		s.ThemeMode = domain.ThemeMode(*raw.ThemeMode)
	}

	s.Version = SettingsVersion
	return s
}

// ToRaw converts settings into their stored form.
func ToRaw(s domain.Settings) *RawSettings {
	version := SettingsVersion
	ratio := s.Ratio
	allowance := s.DailyAllowance
	target := s.StartTarget
	password := s.Password
	sound := s.SoundEnabled
	theme := string(s.ThemeMode)

	raw := &RawSettings{
		Version:            &version,
		Ratio:              &ratio,
		DailyAllowance:     &allowance,
		Categories:         append([]string(nil), s.Categories...),
		BlacklistProcesses: append([]string(nil), s.BlacklistProcesses...),
		StartTarget:        &target,
		SoundEnabled:       &sound,
		ThemeMode:          &theme,
	}
	if password != "" {
		raw.Password = &password
	}
	return raw
}

// NormalizeProcessName lowercases and trims a process name.
func NormalizeProcessName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// NormalizeProcessNames lowercases, trims and de-duplicates names while
// keeping their first-seen order. Empty names are dropped.
func NormalizeProcessNames(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		n = NormalizeProcessName(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// NormalizeCategories trims and de-duplicates categories, keeping order.
func NormalizeCategories(categories []string) []string {
	out := make([]string, 0, len(categories))
	seen := make(map[string]bool, len(categories))
	for _, c := range categories {
		c = strings.TrimSpace(c)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
