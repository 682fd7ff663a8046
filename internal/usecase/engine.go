package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mosmello93/focus-timer/internal/domain"
)

// Cue thresholds in seconds of remaining balance.
const (
	WarningThreshold  = 300
	CriticalThreshold = 60
)

const (
	viewHistoryLimit = 100
	dateLayout       = "2006-01-02"
)

// EngineConfig holds engine timing and scheduling hooks.
type EngineConfig struct {
	// NoticeDuration is how long a transient notice stays visible.
	NoticeDuration time.Duration

	// SuppressWindow is how long session-active is ignored after a manual
	// end of a game session.
	SuppressWindow time.Duration

	// CollaboratorTimeout bounds each spawned kill sweep.
	CollaboratorTimeout time.Duration

	// Clock returns the current time.
	Clock func() time.Time

	// Spawn runs fire-and-forget collaborator calls (kill, open).
	Spawn func(func())
}

// DefaultEngineConfig returns sensible defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		NoticeDuration:      3 * time.Second,
		SuppressWindow:      4 * time.Second,
		CollaboratorTimeout: 10 * time.Second,
		Clock:               time.Now,
		Spawn:               func(f func()) { go f() },
	}
}

// EngineDeps are the engine's collaborators. Any of them may be nil.
type EngineDeps struct {
	Killer   domain.ProcessKiller
	Launcher domain.Launcher
	Sound    domain.SoundPlayer
	Store    domain.SnapshotStore
	Watchdog domain.WatchdogControl
	Logger   *zap.Logger
}

// Notice is a transient message shown to the user.
type Notice struct {
	Message string
	Expires time.Time
}

// Engine is the session and balance state machine. It is not safe for
// concurrent use; the runner owns it from a single goroutine.
type Engine struct {
	cfg      EngineConfig
	enforcer *Enforcer
	launcher domain.Launcher
	sound    domain.SoundPlayer
	store    domain.SnapshotStore
	watchdog domain.WatchdogControl
	logger   *zap.Logger

	mode             domain.Mode
	balance          float64
	sessionTimer     int
	sessionSeq       uint64
	sessionStartedAt time.Time
	sessionCategory  string
	category         string
	history          []domain.Session
	settings         domain.Settings

	lastAllowanceDate string
	exhausted         bool
	suppressUntil     time.Time
	notice            Notice

	connected         bool
	connectivityKnown bool
	settingsUnlocked  bool
}

// NewEngine restores an engine from a snapshot. The engine always starts Idle.
func NewEngine(snap domain.Snapshot, deps EngineDeps, cfg EngineConfig) *Engine {
	def := DefaultEngineConfig()
	if cfg.Clock == nil {
		cfg.Clock = def.Clock
	}
	if cfg.Spawn == nil {
		cfg.Spawn = def.Spawn
	}
	if cfg.CollaboratorTimeout <= 0 {
		cfg.CollaboratorTimeout = def.CollaboratorTimeout
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	e := &Engine{
		cfg:               cfg,
		enforcer:          NewEnforcer(deps.Killer, logger),
		launcher:          deps.Launcher,
		sound:             deps.Sound,
		store:             deps.Store,
		watchdog:          deps.Watchdog,
		logger:            logger,
		mode:              domain.ModeIdle,
		balance:           snap.Balance,
		history:           append([]domain.Session(nil), snap.History...),
		settings:          snap.Settings.Clone(),
		lastAllowanceDate: snap.LastAllowanceDate,
	}
	if e.balance < 0 {
		e.balance = 0
	}
	if len(e.settings.Categories) > 0 {
		e.category = e.settings.Categories[0]
	}
	e.settingsUnlocked = e.settings.Password == ""
	e.pushBlacklist()
	return e
}

// Mode returns the current mode.
func (e *Engine) Mode() domain.Mode { return e.mode }

// Balance returns the spendable game time in seconds.
func (e *Engine) Balance() float64 { return e.balance }

// SessionSeconds returns the running session's length.
func (e *Engine) SessionSeconds() int { return e.sessionTimer }

// SessionSeq increases every time a session begins.
func (e *Engine) SessionSeq() uint64 { return e.sessionSeq }

// Exhausted reports whether the time's-up condition is pending.
func (e *Engine) Exhausted() bool { return e.exhausted }

// History returns a copy of the history, newest first.
func (e *Engine) History() []domain.Session {
	return append([]domain.Session(nil), e.history...)
}

// Settings returns a copy of the current settings.
func (e *Engine) Settings() domain.Settings { return e.settings.Clone() }

// Snapshot returns the persistable state.
func (e *Engine) Snapshot() domain.Snapshot {
	return domain.Snapshot{
		Balance:           e.balance,
		History:           e.History(),
		Settings:          e.Settings(),
		LastAllowanceDate: e.lastAllowanceDate,
	}
}

// ApplyDailyAllowance credits dailyAllowance minutes once per local calendar
// day. It reports whether a new day was recorded.
func (e *Engine) ApplyDailyAllowance() bool {
	today := e.cfg.Clock().Format(dateLayout)
	if today == e.lastAllowanceDate {
		return false
	}

	credit := 0.0
	if e.settings.DailyAllowance > 0 {
		credit = float64(e.settings.DailyAllowance * 60)
	}
	e.balance += credit
	e.lastAllowanceDate = today
	e.logger.Info("daily allowance applied",
		zap.String("date", today),
		zap.Float64("credit", credit),
		zap.Float64("balance", e.balance))
	e.persist()
	return true
}

// StartWork enters Working. An empty category keeps the selected one.
// Ignored unless Idle.
func (e *Engine) StartWork(category string) error {
	if category != "" {
		if err := e.SelectCategory(category); err != nil {
			return err
		}
	}
	if e.mode != domain.ModeIdle {
		return nil
	}
	e.beginSession(domain.ModeWorking)
	e.sessionCategory = e.category
	e.logger.Info("work session started", zap.String("category", e.category))
	return nil
}

// StartGame enters Gaming manually and opens the start target.
// Ignored unless Idle; rejected when there is no balance.
func (e *Engine) StartGame() error {
	if e.mode != domain.ModeIdle {
		return nil
	}
	if e.balance <= 0 {
		return ErrInsufficientBalance
	}
	e.beginSession(domain.ModeGaming)
	e.logger.Info("game session started", zap.Float64("balance", e.balance))

	target := e.settings.StartTarget
	if e.launcher != nil && target != "" {
		launcher := e.launcher
		e.cfg.Spawn(func() {
			if err := launcher.OpenExternal(target); err != nil {
				e.logger.Warn("failed to open start target",
					zap.String("target", target),
					zap.Error(err))
			}
		})
	}
	return nil
}

// Stop ends the running session. Leaving Gaming tells the watchdog about the
// manual end and, when kill is set, force-kills the blacklist.
func (e *Engine) Stop(kill bool) {
	switch e.mode {
	case domain.ModeIdle:
		return
	case domain.ModeGaming:
		if e.watchdog != nil {
			e.watchdog.ManualEnd()
		}
		e.suppressUntil = e.cfg.Clock().Add(e.cfg.SuppressWindow)
		if kill {
			e.killBlacklist()
		}
	}

	e.logger.Info("session stopped",
		zap.String("mode", e.mode.String()),
		zap.Int("seconds", e.sessionTimer),
		zap.Bool("kill", kill))
	e.flush()
	e.mode = domain.ModeIdle
	e.exhausted = false
}

// Acknowledge dismisses the time's-up condition. The process was already
// killed, so nothing is killed again.
func (e *Engine) Acknowledge() {
	if !e.exhausted {
		return
	}
	e.Stop(false)
}

// HandleNotification applies a watchdog notification.
func (e *Engine) HandleNotification(n domain.Notification) {
	switch n.Kind {
	case domain.NotifySessionActive:
		e.onSessionActive(n.ProcessName)
	case domain.NotifySessionEnded:
		e.onSessionEnded()
	case domain.NotifyConnectivity:
		e.onConnectivity(n.Connected, n.Err)
	}
}

func (e *Engine) onSessionActive(name string) {
	if e.mode == domain.ModeGaming {
		return
	}
	now := e.cfg.Clock()
	if now.Before(e.suppressUntil) {
		e.logger.Debug("session-active suppressed after manual end", zap.String("process", name))
		return
	}

	if e.mode == domain.ModeWorking {
		e.flush()
	}
	e.beginSession(domain.ModeGaming)
	e.play(domain.CueStart)
	e.setNotice(fmt.Sprintf("Automatic game start: %s detected", name))
	e.logger.Info("game session auto-started",
		zap.String("process", name),
		zap.Float64("balance", e.balance))

	if e.balance <= 0 {
		e.enterExhausted()
	}
}

func (e *Engine) onSessionEnded() {
	if e.mode != domain.ModeGaming || e.exhausted {
		return
	}
	e.play(domain.CueEnd)
	e.setNotice("Process closed, game session ended")
	e.logger.Info("game session auto-ended", zap.Int("seconds", e.sessionTimer))
	e.flush()
	e.mode = domain.ModeIdle
}

func (e *Engine) onConnectivity(connected bool, err error) {
	if e.connectivityKnown && e.connected == connected {
		return
	}
	e.connectivityKnown = true
	e.connected = connected
	if connected {
		e.logger.Info("process control available")
	} else {
		e.logger.Warn("process control unavailable, auto mode switching disabled", zap.Error(err))
	}
}

// Tick advances the running session by one second.
func (e *Engine) Tick() {
	switch e.mode {
	case domain.ModeWorking:
		e.sessionTimer++
		if e.settings.Ratio > 0 {
			e.balance += e.settings.Ratio
		}
	case domain.ModeGaming:
		e.sessionTimer++
		prev := e.balance
		if prev == WarningThreshold {
			e.play(domain.CueWarning)
		}
		if prev == CriticalThreshold {
			e.play(domain.CueCritical)
		}
		e.balance = max(0, prev-1)
		if prev > 0 && e.balance == 0 {
			e.enterExhausted()
		}
	default:
		return
	}
	e.persist()
}

// enterExhausted is the balance-reaches-zero transition: Gaming is kept,
// every blacklisted process is killed and the UI must be acknowledged.
func (e *Engine) enterExhausted() {
	e.exhausted = true
	e.setNotice("Time's up")
	e.logger.Warn("game time exhausted, killing blacklisted processes",
		zap.Strings("processes", e.settings.BlacklistProcesses))
	e.killBlacklist()
}

func (e *Engine) killBlacklist() {
	names := append([]string(nil), e.settings.BlacklistProcesses...)
	if len(names) == 0 {
		return
	}
	enforcer := e.enforcer
	timeout := e.cfg.CollaboratorTimeout
	e.cfg.Spawn(func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		enforcer.KillAll(ctx, names)
	})
}

func (e *Engine) beginSession(mode domain.Mode) {
	e.mode = mode
	e.sessionSeq++
	e.sessionTimer = 0
	e.sessionStartedAt = e.cfg.Clock()
}

// flush records the running session if it has a positive duration.
func (e *Engine) flush() {
	if e.sessionTimer <= 0 {
		e.sessionTimer = 0
		return
	}

	sess := domain.Session{
		ID:              newSessionID(),
		DurationSeconds: e.sessionTimer,
		StartedAt:       e.sessionStartedAt,
	}
	if e.mode == domain.ModeWorking {
		sess.Kind = domain.KindWork
		sess.Category = e.sessionCategory
		earned := 0.0
		if e.settings.Ratio > 0 {
			earned = float64(e.sessionTimer) * e.settings.Ratio
		}
		sess.EarnedSeconds = &earned
	} else {
		sess.Kind = domain.KindGame
	}

	e.history = append([]domain.Session{sess}, e.history...)
	e.sessionTimer = 0
	e.persist()
}

func newSessionID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func (e *Engine) play(cue domain.Cue) {
	if e.sound != nil && e.settings.SoundEnabled {
		e.sound.Play(cue)
	}
}

func (e *Engine) setNotice(msg string) {
	e.notice = Notice{Message: msg, Expires: e.cfg.Clock().Add(e.cfg.NoticeDuration)}
}

func (e *Engine) pushBlacklist() {
	if e.watchdog != nil {
		e.watchdog.UpdateBlacklist(append([]string(nil), e.settings.BlacklistProcesses...))
	}
}

// persist saves the snapshot. Failures are logged and never change state.
func (e *Engine) persist() {
	if e.store == nil {
		return
	}
	if err := e.store.Save(e.Snapshot()); err != nil {
		e.logger.Warn("failed to persist snapshot", zap.Error(err))
	}
}

// View is a read-only rendering of the engine state.
type View struct {
	Mode              domain.Mode
	Balance           float64
	SessionSeconds    int
	Category          string
	Categories        []string
	Exhausted         bool
	Notice            string
	NoticeExpires     time.Time
	Connected         bool
	ConnectivityKnown bool
	SettingsLocked    bool
	HasPassword       bool
	SoundEnabled      bool
	ThemeMode         domain.ThemeMode
	Ratio             float64
	DailyAllowance    int
	Blacklist         []string
	StartTarget       string
	History           []domain.Session // newest first, capped
	Stats             Stats
}

// CanStartGame mirrors the disabled state of the start-game action.
func (v View) CanStartGame() bool {
	return v.Mode == domain.ModeIdle && v.Balance > 0
}

// View renders the current state.
func (e *Engine) View() View {
	v := View{
		Mode:              e.mode,
		Balance:           e.balance,
		SessionSeconds:    e.sessionTimer,
		Category:          e.category,
		Categories:        append([]string(nil), e.settings.Categories...),
		Exhausted:         e.exhausted,
		Connected:         e.connected,
		ConnectivityKnown: e.connectivityKnown,
		SettingsLocked:    e.SettingsLocked(),
		HasPassword:       e.settings.Password != "",
		SoundEnabled:      e.settings.SoundEnabled,
		ThemeMode:         e.settings.ThemeMode,
		Ratio:             e.settings.Ratio,
		DailyAllowance:    e.settings.DailyAllowance,
		Blacklist:         append([]string(nil), e.settings.BlacklistProcesses...),
		StartTarget:       e.settings.StartTarget,
		Stats:             e.Stats(),
	}
	if e.cfg.Clock().Before(e.notice.Expires) {
		v.Notice = e.notice.Message
		v.NoticeExpires = e.notice.Expires
	}
	n := min(len(e.history), viewHistoryLimit)
	v.History = append([]domain.Session(nil), e.history[:n]...)
	return v
}
