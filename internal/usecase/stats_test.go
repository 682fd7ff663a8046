package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mosmello93/focus-timer/internal/domain"
)

func earned(v float64) *float64 { return &v }

func TestComputeStats(t *testing.T) {
	day1 := time.Date(2025, 3, 9, 10, 0, 0, 0, time.UTC)
	day2 := time.Date(2025, 3, 10, 22, 30, 0, 0, time.UTC)

	history := []domain.Session{
		{ID: "4", Kind: domain.KindGame, DurationSeconds: 600, StartedAt: day2},
		{ID: "3", Kind: domain.KindWork, Category: "Training", DurationSeconds: 1200, StartedAt: day2, EarnedSeconds: earned(600)},
		{ID: "2", Kind: domain.KindGame, DurationSeconds: 300, StartedAt: day1},
		{ID: "1", Kind: domain.KindWork, Category: "Project", DurationSeconds: 3600, StartedAt: day1, EarnedSeconds: earned(1800)},
	}

	st := ComputeStats(history, time.UTC)

	assert.Equal(t, 4800, st.WorkSeconds)
	assert.Equal(t, 900, st.GameSeconds)
	assert.Equal(t, 2400.0, st.EarnedSeconds)
	assert.Equal(t, 2, st.WorkSessions)
	assert.Equal(t, 2, st.GameSessions)
	assert.Equal(t, map[string]int{"Project": 3600, "Training": 1200}, st.ByCategory)

	require.Len(t, st.Days, 2)
	assert.Equal(t, DayStats{Date: "2025-03-10", WorkSeconds: 1200, GameSeconds: 600, EarnedSeconds: 600}, st.Days[0])
	assert.Equal(t, DayStats{Date: "2025-03-09", WorkSeconds: 3600, GameSeconds: 300, EarnedSeconds: 1800}, st.Days[1])
}

func TestComputeStats_BucketsInLocation(t *testing.T) {
	berlin := time.FixedZone("CET", 3600)
	late := time.Date(2025, 3, 10, 23, 30, 0, 0, time.UTC) // 00:30 next day in CET

	st := ComputeStats([]domain.Session{{Kind: domain.KindGame, DurationSeconds: 60, StartedAt: late}}, berlin)

	require.Len(t, st.Days, 1)
	assert.Equal(t, "2025-03-11", st.Days[0].Date)
}

func TestComputeStats_Empty(t *testing.T) {
	st := ComputeStats(nil, nil)

	assert.Zero(t, st.WorkSeconds)
	assert.Zero(t, st.GameSeconds)
	assert.Empty(t, st.Days)
	assert.NotNil(t, st.ByCategory)
}
