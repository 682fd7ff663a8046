package usecase

import (
	"sort"
	"time"

	"github.com/mosmello93/focus-timer/internal/domain"
)

// DayStats aggregates one local calendar day.
type DayStats struct {
	Date          string
	WorkSeconds   int
	GameSeconds   int
	EarnedSeconds float64
}

// Stats aggregates the whole history.
type Stats struct {
	WorkSeconds   int
	GameSeconds   int
	EarnedSeconds float64
	WorkSessions  int
	GameSessions  int
	ByCategory    map[string]int // work seconds per category
	Days          []DayStats     // newest first
}

// ComputeStats totals history. Days are bucketed in loc.
func ComputeStats(history []domain.Session, loc *time.Location) Stats {
	if loc == nil {
		loc = time.Local
	}
	st := Stats{ByCategory: make(map[string]int)}
	days := make(map[string]*DayStats)

	for _, sess := range history {
		date := sess.StartedAt.In(loc).Format(dateLayout)
		day, ok := days[date]
		if !ok {
			day = &DayStats{Date: date}
			days[date] = day
		}

		switch sess.Kind {
		case domain.KindWork:
			st.WorkSeconds += sess.DurationSeconds
			st.WorkSessions++
			st.ByCategory[sess.Category] += sess.DurationSeconds
			day.WorkSeconds += sess.DurationSeconds
			if sess.EarnedSeconds != nil {
				st.EarnedSeconds += *sess.EarnedSeconds
				day.EarnedSeconds += *sess.EarnedSeconds
			}
		case domain.KindGame:
			st.GameSeconds += sess.DurationSeconds
			st.GameSessions++
			day.GameSeconds += sess.DurationSeconds
		}
	}

	st.Days = make([]DayStats, 0, len(days))
	for _, d := range days {
		st.Days = append(st.Days, *d)
	}
	sort.Slice(st.Days, func(i, j int) bool { return st.Days[i].Date > st.Days[j].Date })
	return st
}

// Stats totals the engine's history.
func (e *Engine) Stats() Stats {
	return ComputeStats(e.history, time.Local)
}
