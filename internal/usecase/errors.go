package usecase

import "errors"

var (
	// ErrInsufficientBalance rejects a manual game start with no balance left.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrSettingsLocked rejects settings edits until the password is entered.
	ErrSettingsLocked = errors.New("settings are locked")

	// ErrWrongPassword is returned by UnlockSettings.
	ErrWrongPassword = errors.New("wrong password")

	// ErrUnknownCategory is returned for a category not in the settings.
	ErrUnknownCategory = errors.New("unknown category")

	// ErrInvalidSetting wraps every validation failure.
	ErrInvalidSetting = errors.New("invalid setting")

	// ErrExhausted blocks edits while the time's-up condition is unacknowledged.
	ErrExhausted = errors.New("game time exhausted")
)
