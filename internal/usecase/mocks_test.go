package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mosmello93/focus-timer/internal/config"
	"github.com/mosmello93/focus-timer/internal/domain"
)

// mockKiller implements domain.ProcessKiller for testing
type mockKiller struct {
	mu      sync.Mutex
	killed  []string
	killErr error
}

func (m *mockKiller) KillProcessByName(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.killed = append(m.killed, name)
	return m.killErr
}

func (m *mockKiller) Killed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.killed...)
}

// mockLauncher implements domain.Launcher for testing
type mockLauncher struct {
	opened  []string
	openErr error
}

func (m *mockLauncher) OpenExternal(target string) error {
	m.opened = append(m.opened, target)
	return m.openErr
}

// mockSound implements domain.SoundPlayer for testing
type mockSound struct {
	played []domain.Cue
}

func (m *mockSound) Play(cue domain.Cue) {
	m.played = append(m.played, cue)
}

func (m *mockSound) Count(cue domain.Cue) int {
	n := 0
	for _, c := range m.played {
		if c == cue {
			n++
		}
	}
	return n
}

// mockStore implements domain.SnapshotStore for testing
type mockStore struct {
	saved   []domain.Snapshot
	saveErr error
}

func (m *mockStore) Load() (domain.Snapshot, error) {
	if len(m.saved) == 0 {
		return domain.Snapshot{Settings: config.DefaultSettings()}, nil
	}
	return m.saved[len(m.saved)-1], nil
}

func (m *mockStore) Save(s domain.Snapshot) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, s)
	return nil
}

func (m *mockStore) Path() string { return "/tmp/mock-store" }
func (m *mockStore) Close() error { return nil }

func (m *mockStore) Last() domain.Snapshot {
	return m.saved[len(m.saved)-1]
}

// mockWatchdog implements domain.WatchdogControl for testing
type mockWatchdog struct {
	blacklists [][]string
	manualEnds int
}

func (m *mockWatchdog) UpdateBlacklist(names []string) {
	m.blacklists = append(m.blacklists, names)
}

func (m *mockWatchdog) ManualEnd() {
	m.manualEnds++
}

// fakeClock is a settable clock
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type testEngine struct {
	*Engine
	killer   *mockKiller
	launcher *mockLauncher
	sound    *mockSound
	store    *mockStore
	watchdog *mockWatchdog
	clock    *fakeClock
}

// newTestEngine builds an engine with synchronous spawning and mock collaborators.
func newTestEngine(t *testing.T, snap domain.Snapshot) *testEngine {
	t.Helper()
	if snap.Settings.Ratio == 0 && len(snap.Settings.Categories) == 0 {
		snap.Settings = config.DefaultSettings()
	}

	te := &testEngine{
		killer:   &mockKiller{},
		launcher: &mockLauncher{},
		sound:    &mockSound{},
		store:    &mockStore{},
		watchdog: &mockWatchdog{},
		clock:    &fakeClock{now: time.Date(2025, 3, 10, 9, 0, 0, 0, time.Local)},
	}
	cfg := DefaultEngineConfig()
	cfg.Clock = te.clock.Now
	cfg.Spawn = func(f func()) { f() }

	te.Engine = NewEngine(snap, EngineDeps{
		Killer:   te.killer,
		Launcher: te.launcher,
		Sound:    te.sound,
		Store:    te.store,
		Watchdog: te.watchdog,
		Logger:   zap.NewNop(),
	}, cfg)
	return te
}

// ticks advances the engine n seconds.
func (te *testEngine) ticks(n int) {
	for i := 0; i < n; i++ {
		te.clock.Advance(time.Second)
		te.Tick()
	}
}

func active(name string) domain.Notification {
	return domain.Notification{Kind: domain.NotifySessionActive, ProcessName: name}
}

func ended() domain.Notification {
	return domain.Notification{Kind: domain.NotifySessionEnded}
}

var errCollaborator = errors.New("collaborator failed")
