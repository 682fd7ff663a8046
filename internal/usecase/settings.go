package usecase

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/mosmello93/focus-timer/internal/config"
	"github.com/mosmello93/focus-timer/internal/domain"
)

// SettingsLocked reports whether edits need the password first.
func (e *Engine) SettingsLocked() bool {
	return e.settings.Password != "" && !e.settingsUnlocked
}

// UnlockSettings unlocks settings edits for the lifetime of the engine.
func (e *Engine) UnlockSettings(password string) error {
	if !e.SettingsLocked() {
		return nil
	}
	if password != e.settings.Password {
		e.logger.Warn("settings unlock failed")
		return ErrWrongPassword
	}
	e.settingsUnlocked = true
	return nil
}

// LockSettings re-locks settings when a password is set.
func (e *Engine) LockSettings() {
	e.settingsUnlocked = e.settings.Password == ""
}

func (e *Engine) checkEditable() error {
	if e.exhausted {
		return ErrExhausted
	}
	if e.SettingsLocked() {
		return ErrSettingsLocked
	}
	return nil
}

// mutate applies fn to the settings, then mirrors the blacklist to the
// watchdog and persists.
func (e *Engine) mutate(what string, fn func(s *domain.Settings) error) error {
	if err := e.checkEditable(); err != nil {
		return err
	}
	next := e.settings.Clone()
	if err := fn(&next); err != nil {
		return err
	}
	e.settings = next
	if !slices.Contains(e.settings.Categories, e.category) && len(e.settings.Categories) > 0 {
		e.category = e.settings.Categories[0]
	}
	e.logger.Info("settings changed", zap.String("field", what))
	e.pushBlacklist()
	e.persist()
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidSetting, fmt.Sprintf(format, args...))
}

// SetRatio sets game seconds earned per work second.
func (e *Engine) SetRatio(ratio float64) error {
	return e.mutate("ratio", func(s *domain.Settings) error {
		if ratio <= 0 || math.IsNaN(ratio) || math.IsInf(ratio, 0) {
			return invalid("ratio must be a positive number, got %v", ratio)
		}
		s.Ratio = ratio
		return nil
	})
}

// SetDailyAllowance sets the daily credit in minutes.
func (e *Engine) SetDailyAllowance(minutes int) error {
	return e.mutate("daily_allowance", func(s *domain.Settings) error {
		if minutes < 0 {
			return invalid("daily allowance must not be negative, got %d", minutes)
		}
		s.DailyAllowance = minutes
		return nil
	})
}

// AddCategory appends a new work category.
func (e *Engine) AddCategory(name string) error {
	name = strings.TrimSpace(name)
	return e.mutate("categories", func(s *domain.Settings) error {
		if name == "" {
			return invalid("category must not be empty")
		}
		if slices.Contains(s.Categories, name) {
			return invalid("category %q already exists", name)
		}
		s.Categories = append(s.Categories, name)
		return nil
	})
}

// RemoveCategory deletes a category. The last category cannot be removed.
func (e *Engine) RemoveCategory(name string) error {
	return e.mutate("categories", func(s *domain.Settings) error {
		idx := slices.Index(s.Categories, name)
		if idx < 0 {
			return fmt.Errorf("%w: %s", ErrUnknownCategory, name)
		}
		if len(s.Categories) == 1 {
			return invalid("at least one category is required")
		}
		s.Categories = slices.Delete(s.Categories, idx, idx+1)
		return nil
	})
}

// SelectCategory picks the category for the next work session.
func (e *Engine) SelectCategory(name string) error {
	if !slices.Contains(e.settings.Categories, name) {
		return fmt.Errorf("%w: %s", ErrUnknownCategory, name)
	}
	e.category = name
	return nil
}

// CycleCategory selects the next category in configured order.
func (e *Engine) CycleCategory() string {
	cats := e.settings.Categories
	if len(cats) == 0 {
		return e.category
	}
	idx := slices.Index(cats, e.category)
	e.category = cats[(idx+1)%len(cats)]
	return e.category
}

// AddBlacklistProcess watches a new process name.
func (e *Engine) AddBlacklistProcess(name string) error {
	name = config.NormalizeProcessName(name)
	return e.mutate("blacklist", func(s *domain.Settings) error {
		if name == "" {
			return invalid("process name must not be empty")
		}
		if slices.Contains(s.BlacklistProcesses, name) {
			return nil
		}
		s.BlacklistProcesses = append(s.BlacklistProcesses, name)
		return nil
	})
}

// RemoveBlacklistProcess stops watching a process name.
func (e *Engine) RemoveBlacklistProcess(name string) error {
	name = config.NormalizeProcessName(name)
	return e.mutate("blacklist", func(s *domain.Settings) error {
		s.BlacklistProcesses = slices.DeleteFunc(s.BlacklistProcesses, func(p string) bool {
			return p == name
		})
		return nil
	})
}

// SetStartTarget sets the URI or path opened on a manual game start.
func (e *Engine) SetStartTarget(target string) error {
	target = strings.TrimSpace(target)
	return e.mutate("start_target", func(s *domain.Settings) error {
		if target == "" {
			return invalid("start target must not be empty")
		}
		s.StartTarget = target
		return nil
	})
}

// SetPassword sets or (with "") clears the settings password. The current
// engine stays unlocked.
func (e *Engine) SetPassword(password string) error {
	if err := e.mutate("password", func(s *domain.Settings) error {
		s.Password = password
		return nil
	}); err != nil {
		return err
	}
	e.settingsUnlocked = true
	return nil
}

// SetSoundEnabled toggles audible cues.
func (e *Engine) SetSoundEnabled(enabled bool) error {
	err := e.mutate("sound_enabled", func(s *domain.Settings) error {
		s.SoundEnabled = enabled
		return nil
	})
	if err == nil && enabled {
		e.play(domain.CueStart)
	}
	return err
}

// SetThemeMode selects the color palette.
func (e *Engine) SetThemeMode(mode domain.ThemeMode) error {
	return e.mutate("theme_mode", func(s *domain.Settings) error {
		if !mode.Valid() {
			return invalid("unknown theme %q", mode)
		}
		s.ThemeMode = mode
		return nil
	})
}

// ReplaceSettings validates and installs a complete settings value
// (settings import). An empty password keeps the current one.
func (e *Engine) ReplaceSettings(in domain.Settings) error {
	return e.mutate("all", func(s *domain.Settings) error {
		next := in.Clone()
		next.Version = config.SettingsVersion
		next.Categories = config.NormalizeCategories(next.Categories)
		next.BlacklistProcesses = config.NormalizeProcessNames(next.BlacklistProcesses)
		next.StartTarget = strings.TrimSpace(next.StartTarget)
		if next.Password == "" {
			next.Password = s.Password
		}

		switch {
		case next.Ratio <= 0 || math.IsNaN(next.Ratio) || math.IsInf(next.Ratio, 0):
			return invalid("ratio must be a positive number, got %v", next.Ratio)
		case next.DailyAllowance < 0:
			return invalid("daily allowance must not be negative, got %d", next.DailyAllowance)
		case len(next.Categories) == 0:
			return invalid("at least one category is required")
		case next.StartTarget == "":
			return invalid("start target must not be empty")
		case !next.ThemeMode.Valid():
			return invalid("unknown theme %q", next.ThemeMode)
		}
		*s = next
		return nil
	})
}

// ResetBalanceToAllowance sets the balance to one daily allowance.
func (e *Engine) ResetBalanceToAllowance() error {
	if err := e.checkEditable(); err != nil {
		return err
	}
	e.balance = float64(max(0, e.settings.DailyAllowance) * 60)
	e.setNotice(fmt.Sprintf("Balance reset to daily allowance (%d min)", max(0, e.settings.DailyAllowance)))
	e.logger.Info("balance reset to daily allowance", zap.Float64("balance", e.balance))
	e.persist()
	return nil
}
