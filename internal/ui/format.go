package ui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/mosmello93/focus-timer/internal/domain"
	"github.com/mosmello93/focus-timer/internal/usecase"
)

// FormatClock renders seconds as MM:SS, or H:MM:SS from one hour on.
// Fractions are dropped and negative values render as zero.
func FormatClock(seconds float64) string {
	s := int(math.Floor(seconds))
	if s < 0 {
		s = 0
	}
	h, m, sec := s/3600, (s%3600)/60, s%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, sec)
	}
	return fmt.Sprintf("%02d:%02d", m, sec)
}

// FormatDuration renders seconds for tables: "45s", "12m 05s", "2h 03m".
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	d := time.Duration(seconds) * time.Second
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", seconds)
	case d < time.Hour:
		return fmt.Sprintf("%dm %02ds", seconds/60, seconds%60)
	default:
		return fmt.Sprintf("%dh %02dm", seconds/3600, (seconds%3600)/60)
	}
}

// SessionLabel describes a history entry in one short phrase.
func SessionLabel(s domain.Session) string {
	if s.Kind == domain.KindGame {
		return "Game"
	}
	if s.Category == "" {
		return "Work"
	}
	return "Work · " + s.Category
}

// FormatEarned renders the earned game-time of a work session.
func FormatEarned(s domain.Session) string {
	if s.EarnedSeconds == nil {
		return ""
	}
	return "+" + FormatClock(*s.EarnedSeconds)
}

// StatusLine is a single-line summary of the timer for headless output.
func StatusLine(v usecase.View) string {
	var b strings.Builder
	fmt.Fprintf(&b, "mode=%s balance=%s", string(v.Mode), FormatClock(v.Balance))
	if v.Mode != domain.ModeIdle {
		fmt.Fprintf(&b, " session=%s", FormatClock(float64(v.SessionSeconds)))
	}
	if v.Mode == domain.ModeWorking && v.Category != "" {
		fmt.Fprintf(&b, " category=%q", v.Category)
	}
	if v.Exhausted {
		b.WriteString(" exhausted")
	}
	if v.ConnectivityKnown && !v.Connected {
		b.WriteString(" processes=unavailable")
	}
	return b.String()
}
