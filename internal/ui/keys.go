package ui

import "github.com/mosmello93/focus-timer/internal/domain"

// action is a user intent decoded from a key press
type action int

const (
	actionNone action = iota
	actionQuit
	actionStartWork
	actionStartGame
	actionStop
	actionStopAndKill
	actionAcknowledge
	actionCycleCategory
	actionNextTab
	actionTabTimer
	actionTabStats
	actionTabHistory
	actionToggleSound
	actionToggleTheme
	actionAddBlacklist
	actionAddCategory
	actionResetBalance
	actionUnlock
	actionLock
	actionSetPassword
)

// keyAction maps a key to an action for the current state. While the
// time's-up screen is shown only acknowledging and quitting are possible.
func keyAction(key string, mode domain.Mode, exhausted, locked, hasPassword bool) action {
	switch key {
	case "ctrl+c", "q":
		return actionQuit
	}

	if exhausted {
		switch key {
		case "enter", "a", " ":
			return actionAcknowledge
		}
		return actionNone
	}

	switch key {
	case "tab":
		return actionNextTab
	case "1":
		return actionTabTimer
	case "2":
		return actionTabStats
	case "3":
		return actionTabHistory
	}

	switch mode {
	case domain.ModeIdle:
		switch key {
		case "w":
			return actionStartWork
		case "g":
			return actionStartGame
		case "c":
			return actionCycleCategory
		}
	case domain.ModeWorking:
		if key == "s" || key == "esc" {
			return actionStop
		}
	case domain.ModeGaming:
		switch key {
		case "s", "esc":
			return actionStop
		case "k":
			return actionStopAndKill
		}
	}

	switch key {
	case "m":
		return actionToggleSound
	case "t":
		return actionToggleTheme
	case "b":
		return actionAddBlacklist
	case "n":
		return actionAddCategory
	case "r":
		return actionResetBalance
	case "p":
		return actionSetPassword
	case "u":
		if locked {
			return actionUnlock
		}
		if hasPassword {
			return actionLock
		}
	}
	return actionNone
}
