// Package daemon implements the background loops: the process watchdog and
// the session runner that owns the engine.
package daemon

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/mosmello93/focus-timer/internal/config"
	"github.com/mosmello93/focus-timer/internal/domain"
)

// WatchdogConfig holds watchdog configuration.
type WatchdogConfig struct {
	PollInterval   time.Duration // How often to list processes (default 2s)
	SuppressWindow time.Duration // How long session-active is held back after ManualEnd
	NotifyBuffer   int           // Capacity of the notification channel
}

// DefaultWatchdogConfig returns default watchdog configuration.
func DefaultWatchdogConfig() WatchdogConfig {
	return WatchdogConfig{
		PollInterval:   2 * time.Second,
		SuppressWindow: 4 * time.Second, // two poll intervals
		NotifyBuffer:   16,
	}
}

// WatchdogState is the watchdog's edge-detection memory.
type WatchdogState struct {
	Active      bool
	LastMatched string
}

const (
	connUnknown = iota
	connDown
	connUp
)

// Watchdog polls the process table and reports blacklist matches.
// session-active is sent on every matching poll; session-ended once per
// falling edge. It implements domain.WatchdogControl.
type Watchdog struct {
	config WatchdogConfig
	lister domain.ProcessLister
	logger *zap.Logger
	clock  func() time.Time
	out    chan domain.Notification

	polling atomic.Bool
	wg      sync.WaitGroup

	mu            sync.Mutex
	blacklist     []string
	manualEnd     bool
	suppressUntil time.Time
	state         WatchdogState
	conn          int
}

// NewWatchdog creates a watchdog. The blacklist starts empty until
// UpdateBlacklist is called.
func NewWatchdog(config WatchdogConfig, lister domain.ProcessLister, logger *zap.Logger) *Watchdog {
	def := DefaultWatchdogConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = def.PollInterval
	}
	if config.NotifyBuffer <= 0 {
		config.NotifyBuffer = def.NotifyBuffer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watchdog{
		config: config,
		lister: lister,
		logger: logger,
		clock:  time.Now,
		out:    make(chan domain.Notification, config.NotifyBuffer),
	}
}

// Notifications is the channel consumed by the session runner.
func (w *Watchdog) Notifications() <-chan domain.Notification {
	return w.out
}

// UpdateBlacklist replaces the watched names. The next poll uses them.
func (w *Watchdog) UpdateBlacklist(names []string) {
	normalized := config.NormalizeProcessNames(names)
	w.mu.Lock()
	w.blacklist = normalized
	w.mu.Unlock()
	w.logger.Debug("blacklist updated", zap.Strings("processes", normalized))
}

// Blacklist returns the watched names in configured order.
func (w *Watchdog) Blacklist() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.blacklist...)
}

// ManualEnd records that the user ended a game session. Edge memory is
// reset and session-active is held back for SuppressWindow.
func (w *Watchdog) ManualEnd() {
	w.mu.Lock()
	w.manualEnd = true
	w.suppressUntil = w.clock().Add(w.config.SuppressWindow)
	w.mu.Unlock()
	w.logger.Info("manual end acknowledged", zap.Duration("suppress", w.config.SuppressWindow))
}

// State returns a copy of the edge-detection memory.
func (w *Watchdog) State() WatchdogState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Run polls immediately, then on every interval until ctx is canceled.
// A tick that fires while a poll is still running is skipped.
func (w *Watchdog) Run(ctx context.Context) error {
	w.logger.Info("watchdog started",
		zap.Duration("interval", w.config.PollInterval),
		zap.Strings("blacklist", w.Blacklist()))

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()
	defer w.wg.Wait()

	w.startPoll(ctx)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watchdog stopping")
			return ctx.Err()
		case <-ticker.C:
			w.startPoll(ctx)
		}
	}
}

// startPoll runs a poll in the background unless one is in flight.
func (w *Watchdog) startPoll(ctx context.Context) {
	if !w.polling.CompareAndSwap(false, true) {
		w.logger.Debug("previous poll still running, skipping tick")
		return
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer w.polling.Store(false)
		w.pollOnce(ctx)
	}()
}

// Poll runs one synchronous poll cycle. It returns false when another
// poll was already in flight.
func (w *Watchdog) Poll(ctx context.Context) bool {
	if !w.polling.CompareAndSwap(false, true) {
		return false
	}
	defer w.polling.Store(false)
	w.pollOnce(ctx)
	return true
}

func (w *Watchdog) pollOnce(ctx context.Context) {
	names, err := w.lister.ListRunningProcessNames(ctx)
	if err != nil {
		w.logger.Warn("failed to list processes", zap.Error(err))
		w.setConnectivity(ctx, false, err)
		return
	}
	w.setConnectivity(ctx, true, nil)

	running := make(map[string]struct{}, len(names))
	for _, n := range names {
		if n = config.NormalizeProcessName(n); n != "" {
			running[n] = struct{}{}
		}
	}

	w.mu.Lock()
	if w.manualEnd {
		w.state = WatchdogState{}
		w.manualEnd = false
	}
	primary := ""
	for _, name := range w.blacklist {
		if _, ok := running[name]; ok {
			primary = name
			break
		}
	}

	var n *domain.Notification
	switch {
	case primary != "" && w.clock().Before(w.suppressUntil):
		w.logger.Debug("match suppressed after manual end", zap.String("process", primary))
	case primary != "":
		if !w.state.Active {
			w.logger.Info("blacklisted process detected", zap.String("process", primary))
		}
		w.state = WatchdogState{Active: true, LastMatched: primary}
		n = &domain.Notification{Kind: domain.NotifySessionActive, ProcessName: primary, At: w.clock()}
	case w.state.Active:
		w.logger.Info("blacklisted process gone", zap.String("process", w.state.LastMatched))
		w.state.Active = false
		n = &domain.Notification{Kind: domain.NotifySessionEnded, At: w.clock()}
	}
	w.mu.Unlock()

	if n != nil {
		w.emit(ctx, *n)
	}
}

func (w *Watchdog) setConnectivity(ctx context.Context, connected bool, err error) {
	next := connDown
	if connected {
		next = connUp
	}

	w.mu.Lock()
	changed := w.conn != next
	w.conn = next
	w.mu.Unlock()

	if changed {
		w.emit(ctx, domain.Notification{
			Kind:      domain.NotifyConnectivity,
			Connected: connected,
			Err:       err,
			At:        w.clock(),
		})
	}
}

func (w *Watchdog) emit(ctx context.Context, n domain.Notification) {
	select {
	case w.out <- n:
	case <-ctx.Done():
	}
}

var _ domain.WatchdogControl = (*Watchdog)(nil)
