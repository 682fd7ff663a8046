package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mosmello93/focus-timer/internal/config"
	"github.com/mosmello93/focus-timer/internal/domain"
)

func snapshotWith(balance float64, mutate func(s *domain.Settings)) domain.Snapshot {
	s := config.DefaultSettings()
	if mutate != nil {
		mutate(&s)
	}
	return domain.Snapshot{Balance: balance, Settings: s, LastAllowanceDate: "2025-03-10"}
}

func TestNewEngine_StartsIdleAndPushesBlacklist(t *testing.T) {
	te := newTestEngine(t, snapshotWith(-10, nil))

	assert.Equal(t, domain.ModeIdle, te.Mode())
	assert.Equal(t, 0.0, te.Balance(), "negative stored balance is clamped")
	require.Len(t, te.watchdog.blacklists, 1)
	assert.Equal(t, []string{"steam.exe"}, te.watchdog.blacklists[0])
	assert.Equal(t, "Project", te.View().Category)
}

func TestEngine_WorkingScenario(t *testing.T) {
	te := newTestEngine(t, snapshotWith(100, func(s *domain.Settings) { s.Ratio = 0.5 }))

	require.NoError(t, te.StartWork(""))
	assert.Equal(t, domain.ModeWorking, te.Mode())

	te.ticks(10)
	assert.Equal(t, 10, te.SessionSeconds())
	assert.InDelta(t, 105.0, te.Balance(), 1e-9)

	te.Stop(true)
	assert.Equal(t, domain.ModeIdle, te.Mode())
	assert.Equal(t, 0, te.watchdog.manualEnds, "stopping work is not a manual game end")
	assert.Empty(t, te.killer.Killed())

	history := te.History()
	require.Len(t, history, 1)
	assert.Equal(t, domain.KindWork, history[0].Kind)
	assert.Equal(t, "Project", history[0].Category)
	assert.Equal(t, 10, history[0].DurationSeconds)
	require.NotNil(t, history[0].EarnedSeconds)
	assert.InDelta(t, 5.0, *history[0].EarnedSeconds, 1e-9)
	assert.NotEmpty(t, history[0].ID)
}

func TestEngine_WorkingBalanceNonDecreasing(t *testing.T) {
	for _, ratio := range []float64{0.5, 1, 2.25, 0, -1} {
		te := newTestEngine(t, snapshotWith(42, func(s *domain.Settings) { s.Ratio = ratio }))
		require.NoError(t, te.StartWork(""))

		prev := te.Balance()
		for i := 0; i < 50; i++ {
			te.ticks(1)
			assert.GreaterOrEqual(t, te.Balance(), prev, "ratio %v", ratio)
			prev = te.Balance()
		}
		if ratio <= 0 {
			assert.Equal(t, 42.0, te.Balance(), "ratio %v accrues nothing", ratio)
		}
	}
}

func TestEngine_GamingBalanceNonIncreasingAndNonNegative(t *testing.T) {
	for _, start := range []float64{0.5, 1, 3, 20.5} {
		te := newTestEngine(t, snapshotWith(start, nil))
		require.NoError(t, te.StartGame())

		prev := te.Balance()
		for i := 0; i < 30; i++ {
			te.ticks(1)
			assert.LessOrEqual(t, te.Balance(), prev)
			assert.GreaterOrEqual(t, te.Balance(), 0.0)
			prev = te.Balance()
		}
		assert.Equal(t, 0.0, te.Balance())
		assert.Equal(t, domain.ModeGaming, te.Mode())
		assert.True(t, te.Exhausted())
	}
}

func TestEngine_SixtyFiveSecondScenario(t *testing.T) {
	te := newTestEngine(t, snapshotWith(65, func(s *domain.Settings) {
		s.BlacklistProcesses = []string{"steam.exe", "dota2.exe"}
	}))
	require.NoError(t, te.StartGame())
	assert.Equal(t, []string{"steam://"}, te.launcher.opened)

	te.ticks(5)
	assert.Equal(t, 60.0, te.Balance())
	assert.Empty(t, te.killer.Killed())

	te.ticks(60)
	assert.Equal(t, 0.0, te.Balance())
	assert.Equal(t, domain.ModeGaming, te.Mode())
	assert.True(t, te.Exhausted())
	assert.Equal(t, 1, te.sound.Count(domain.CueCritical))
	assert.Equal(t, 0, te.sound.Count(domain.CueWarning))
	assert.Equal(t, []string{"steam.exe", "dota2.exe"}, te.killer.Killed())
	assert.True(t, te.View().Exhausted)

	// Further ticks neither kill again nor go negative
	te.ticks(5)
	assert.Equal(t, 0.0, te.Balance())
	assert.Len(t, te.killer.Killed(), 2)
}

func TestEngine_WarningCueFiresOnceOnExactValue(t *testing.T) {
	te := newTestEngine(t, snapshotWith(302, nil))
	require.NoError(t, te.StartGame())

	te.ticks(10)
	assert.Equal(t, 1, te.sound.Count(domain.CueWarning))
	assert.Equal(t, 0, te.sound.Count(domain.CueCritical))
}

func TestEngine_FractionalBalanceSkipsCues(t *testing.T) {
	te := newTestEngine(t, snapshotWith(300.5, nil))
	require.NoError(t, te.StartGame())

	te.ticks(250)
	assert.Equal(t, 0, te.sound.Count(domain.CueWarning))
	assert.Equal(t, 0, te.sound.Count(domain.CueCritical))
}

func TestEngine_SoundDisabledPlaysNothing(t *testing.T) {
	te := newTestEngine(t, snapshotWith(61, func(s *domain.Settings) { s.SoundEnabled = false }))

	te.HandleNotification(active("steam.exe"))
	te.ticks(2)
	te.HandleNotification(ended())

	assert.Empty(t, te.sound.played)
}

func TestEngine_SessionActiveIsIdempotent(t *testing.T) {
	te := newTestEngine(t, snapshotWith(600, nil))

	te.HandleNotification(active("steam.exe"))
	assert.Equal(t, "Automatic game start: steam.exe detected", te.View().Notice)

	for i := 0; i < 5; i++ {
		te.ticks(1)
		te.HandleNotification(active("steam.exe"))
	}

	assert.Equal(t, domain.ModeGaming, te.Mode())
	assert.Equal(t, 1, te.sound.Count(domain.CueStart))
	assert.Empty(t, te.History())
	assert.Equal(t, 5, te.SessionSeconds())
}

func TestEngine_SessionActiveFromWorkingFlushesWork(t *testing.T) {
	te := newTestEngine(t, snapshotWith(600, nil))
	require.NoError(t, te.StartWork("Training"))
	te.ticks(3)

	te.HandleNotification(active("steam.exe"))

	assert.Equal(t, domain.ModeGaming, te.Mode())
	assert.Equal(t, 0, te.SessionSeconds())
	history := te.History()
	require.Len(t, history, 1)
	assert.Equal(t, domain.KindWork, history[0].Kind)
	assert.Equal(t, "Training", history[0].Category)
	assert.Equal(t, 3, history[0].DurationSeconds)
}

func TestEngine_SessionEndedFlushesWithoutKill(t *testing.T) {
	te := newTestEngine(t, snapshotWith(600, nil))
	te.HandleNotification(active("steam.exe"))
	te.ticks(4)

	te.HandleNotification(ended())

	assert.Equal(t, domain.ModeIdle, te.Mode())
	assert.Equal(t, 1, te.sound.Count(domain.CueEnd))
	assert.Empty(t, te.killer.Killed())
	assert.Equal(t, 0, te.watchdog.manualEnds)
	history := te.History()
	require.Len(t, history, 1)
	assert.Equal(t, domain.KindGame, history[0].Kind)
	assert.Equal(t, 4, history[0].DurationSeconds)
	assert.Nil(t, history[0].EarnedSeconds)
	assert.Empty(t, history[0].Category)
}

func TestEngine_SessionEndedIgnoredOutsideGaming(t *testing.T) {
	te := newTestEngine(t, snapshotWith(600, nil))

	te.HandleNotification(ended())
	assert.Equal(t, domain.ModeIdle, te.Mode())

	require.NoError(t, te.StartWork(""))
	te.ticks(2)
	te.HandleNotification(ended())
	assert.Equal(t, domain.ModeWorking, te.Mode())
	assert.Empty(t, te.sound.played)
}

func TestEngine_ManualEndSuppressesStaleSessionActive(t *testing.T) {
	te := newTestEngine(t, snapshotWith(600, func(s *domain.Settings) {
		s.BlacklistProcesses = []string{"a.exe"}
	}))
	te.HandleNotification(active("a.exe"))
	te.ticks(2)

	te.Stop(true)
	assert.Equal(t, domain.ModeIdle, te.Mode())
	assert.Equal(t, 1, te.watchdog.manualEnds)
	assert.Equal(t, []string{"a.exe"}, te.killer.Killed())

	// The process has not died yet; the watchdog still reports it
	te.clock.Advance(time.Second)
	te.HandleNotification(active("a.exe"))
	te.clock.Advance(time.Second)
	te.HandleNotification(active("a.exe"))
	assert.Equal(t, domain.ModeIdle, te.Mode())
	assert.Len(t, te.History(), 1)

	// Once the window has passed, a running process starts a new session
	te.clock.Advance(5 * time.Second)
	te.HandleNotification(active("a.exe"))
	assert.Equal(t, domain.ModeGaming, te.Mode())
}

func TestEngine_ManualStartGameRequiresBalance(t *testing.T) {
	te := newTestEngine(t, snapshotWith(0, nil))

	err := te.StartGame()
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, domain.ModeIdle, te.Mode())
	assert.Empty(t, te.launcher.opened)
	assert.False(t, te.View().CanStartGame())
}

func TestEngine_AutoStartWithZeroBalanceIsExhausted(t *testing.T) {
	te := newTestEngine(t, snapshotWith(0, nil))

	te.HandleNotification(active("steam.exe"))

	assert.Equal(t, domain.ModeGaming, te.Mode())
	assert.True(t, te.Exhausted())
	assert.Equal(t, []string{"steam.exe"}, te.killer.Killed())

	te.ticks(2)
	te.HandleNotification(ended())
	assert.Equal(t, domain.ModeGaming, te.Mode(), "ended is ignored until acknowledged")

	te.Acknowledge()
	assert.Equal(t, domain.ModeIdle, te.Mode())
	assert.False(t, te.Exhausted())
	assert.Len(t, te.killer.Killed(), 1, "acknowledging does not kill again")
	require.Len(t, te.History(), 1)
	assert.Equal(t, 2, te.History()[0].DurationSeconds)
}

func TestEngine_AcknowledgeWithoutExhaustionIsNoop(t *testing.T) {
	te := newTestEngine(t, snapshotWith(600, nil))
	te.HandleNotification(active("steam.exe"))

	te.Acknowledge()
	assert.Equal(t, domain.ModeGaming, te.Mode())
}

func TestEngine_MisuseIsNoop(t *testing.T) {
	te := newTestEngine(t, snapshotWith(600, nil))

	te.Stop(true)
	te.Tick()
	assert.Equal(t, domain.ModeIdle, te.Mode())
	assert.Equal(t, 600.0, te.Balance())
	assert.Empty(t, te.store.saved)

	require.NoError(t, te.StartWork(""))
	te.ticks(1)
	require.NoError(t, te.StartGame(), "start game while working is ignored")
	assert.Equal(t, domain.ModeWorking, te.Mode())
	assert.Empty(t, te.launcher.opened)
}

func TestEngine_ZeroDurationSessionNotRecorded(t *testing.T) {
	te := newTestEngine(t, snapshotWith(600, nil))

	require.NoError(t, te.StartWork(""))
	te.Stop(false)
	te.HandleNotification(active("steam.exe"))
	te.HandleNotification(ended())

	assert.Empty(t, te.History())
}

func TestEngine_SessionSeqAdvancesPerSession(t *testing.T) {
	te := newTestEngine(t, snapshotWith(600, nil))
	assert.Zero(t, te.SessionSeq())

	require.NoError(t, te.StartWork(""))
	te.Stop(false)
	require.NoError(t, te.StartWork(""))
	assert.Equal(t, uint64(2), te.SessionSeq())

	te.HandleNotification(active("steam.exe"))
	assert.Equal(t, uint64(3), te.SessionSeq(), "auto-start from working begins a new session")
}

func TestEngine_StartWorkUnknownCategory(t *testing.T) {
	te := newTestEngine(t, snapshotWith(0, nil))

	err := te.StartWork("Gardening")
	assert.ErrorIs(t, err, ErrUnknownCategory)
	assert.Equal(t, domain.ModeIdle, te.Mode())
}

func TestEngine_CollaboratorFailuresDoNotCorruptState(t *testing.T) {
	te := newTestEngine(t, snapshotWith(2, nil))
	te.killer.killErr = errCollaborator
	te.launcher.openErr = errCollaborator
	te.store.saveErr = errCollaborator

	require.NoError(t, te.StartGame())
	te.ticks(2)

	assert.Equal(t, domain.ModeGaming, te.Mode())
	assert.Equal(t, 0.0, te.Balance())
	assert.True(t, te.Exhausted())

	te.Acknowledge()
	assert.Equal(t, domain.ModeIdle, te.Mode())
	assert.Len(t, te.History(), 1)
}

func TestEngine_DailyAllowanceOncePerDay(t *testing.T) {
	snap := snapshotWith(100, nil)
	snap.LastAllowanceDate = "2025-03-09"
	te := newTestEngine(t, snap)

	assert.True(t, te.ApplyDailyAllowance())
	assert.Equal(t, 1900.0, te.Balance())
	assert.False(t, te.ApplyDailyAllowance())
	assert.Equal(t, 1900.0, te.Balance())

	// Restarting twice on the same day credits nothing more
	for i := 0; i < 2; i++ {
		restarted := newTestEngine(t, te.store.Last())
		restarted.clock.now = te.clock.now
		assert.False(t, restarted.ApplyDailyAllowance())
		assert.Equal(t, 1900.0, restarted.Balance())
	}

	te.clock.Advance(24 * time.Hour)
	assert.True(t, te.ApplyDailyAllowance())
	assert.Equal(t, 3700.0, te.Balance())
	assert.Equal(t, "2025-03-11", te.store.Last().LastAllowanceDate)
}

func TestEngine_NegativeAllowanceCreditsNothing(t *testing.T) {
	snap := snapshotWith(10, func(s *domain.Settings) { s.DailyAllowance = -5 })
	snap.LastAllowanceDate = ""
	te := newTestEngine(t, snap)

	assert.True(t, te.ApplyDailyAllowance())
	assert.Equal(t, 10.0, te.Balance())
}

func TestEngine_ConnectivityIndicator(t *testing.T) {
	te := newTestEngine(t, snapshotWith(0, nil))
	assert.False(t, te.View().ConnectivityKnown)

	te.HandleNotification(domain.Notification{Kind: domain.NotifyConnectivity, Connected: false, Err: errCollaborator})
	v := te.View()
	assert.True(t, v.ConnectivityKnown)
	assert.False(t, v.Connected)

	te.HandleNotification(domain.Notification{Kind: domain.NotifyConnectivity, Connected: true})
	assert.True(t, te.View().Connected)
}

func TestEngine_NoticeExpires(t *testing.T) {
	te := newTestEngine(t, snapshotWith(600, nil))
	te.HandleNotification(active("steam.exe"))
	assert.NotEmpty(t, te.View().Notice)

	te.clock.Advance(4 * time.Second)
	assert.Empty(t, te.View().Notice)
}

func TestEngine_PersistsEveryTick(t *testing.T) {
	te := newTestEngine(t, snapshotWith(10, nil))
	require.NoError(t, te.StartGame())

	te.ticks(3)
	require.Len(t, te.store.saved, 3)
	assert.Equal(t, 7.0, te.store.Last().Balance)

	te.Stop(false)
	assert.Len(t, te.store.Last().History, 1)
}

func TestEngine_NilCollaborators(t *testing.T) {
	e := NewEngine(snapshotWith(1, nil), EngineDeps{}, EngineConfig{
		Spawn: func(f func()) { f() },
	})

	require.NoError(t, e.StartGame())
	e.Tick()
	assert.True(t, e.Exhausted())
	e.HandleNotification(active("steam.exe"))
	e.Acknowledge()
	assert.Equal(t, domain.ModeIdle, e.Mode())
}

func TestEngine_ViewCapsHistory(t *testing.T) {
	snap := snapshotWith(0, nil)
	for i := 0; i < viewHistoryLimit+20; i++ {
		snap.History = append(snap.History, domain.Session{ID: "s", Kind: domain.KindGame, DurationSeconds: 1})
	}
	e := NewEngine(snap, EngineDeps{Logger: zap.NewNop()}, DefaultEngineConfig())

	v := e.View()
	assert.Len(t, v.History, viewHistoryLimit)
	assert.Equal(t, viewHistoryLimit+20, v.Stats.GameSessions)
}
