package daemon

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mosmello93/focus-timer/internal/domain"
	"github.com/mosmello93/focus-timer/internal/usecase"
)

// ErrRunnerStopped is returned by Do after Run has exited.
var ErrRunnerStopped = errors.New("session runner stopped")

// RunnerConfig holds session runner configuration.
type RunnerConfig struct {
	TickInterval     time.Duration // Session tick (default 1s)
	DayCheckInterval time.Duration // How often to check for a new calendar day
}

// DefaultRunnerConfig returns default runner configuration.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		TickInterval:     time.Second,
		DayCheckInterval: time.Minute,
	}
}

type command struct {
	fn   func(e *usecase.Engine) error
	done chan error
}

// Runner owns the engine from a single goroutine. Watchdog notifications,
// user commands and ticks are applied one at a time, and every change is
// published to subscribers as a usecase.View.
type Runner struct {
	config        RunnerConfig
	engine        *usecase.Engine
	notifications <-chan domain.Notification
	commands      chan command
	stopped       chan struct{}
	logger        *zap.Logger

	mu          sync.Mutex
	subscribers map[int]chan usecase.View
	nextSubID   int
	last        *usecase.View
}

// NewRunner creates a runner. notifications may be nil (no watchdog).
func NewRunner(config RunnerConfig, engine *usecase.Engine, notifications <-chan domain.Notification, logger *zap.Logger) *Runner {
	def := DefaultRunnerConfig()
	if config.TickInterval <= 0 {
		config.TickInterval = def.TickInterval
	}
	if config.DayCheckInterval <= 0 {
		config.DayCheckInterval = def.DayCheckInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		config:        config,
		engine:        engine,
		notifications: notifications,
		commands:      make(chan command),
		stopped:       make(chan struct{}),
		logger:        logger,
		subscribers:   make(map[int]chan usecase.View),
	}
}

// Do runs fn on the runner goroutine and returns its error.
func (r *Runner) Do(ctx context.Context, fn func(e *usecase.Engine) error) error {
	cmd := command{fn: fn, done: make(chan error, 1)}
	select {
	case r.commands <- cmd:
	case <-r.stopped:
		return ErrRunnerStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-cmd.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe returns a channel of views and a cancel function. The latest
// view, if any, is delivered immediately. Views are dropped for a
// subscriber whose buffer is full.
func (r *Runner) Subscribe(buffer int) (<-chan usecase.View, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan usecase.View, buffer)

	r.mu.Lock()
	id := r.nextSubID
	r.nextSubID++
	r.subscribers[id] = ch
	if r.last != nil {
		ch <- *r.last
	}
	r.mu.Unlock()

	cancel := func() {
		r.mu.Lock()
		delete(r.subscribers, id)
		r.mu.Unlock()
	}
	return ch, cancel
}

// Run applies the daily allowance and then serves events until ctx is
// canceled. A running session is recorded on shutdown.
func (r *Runner) Run(ctx context.Context) error {
	defer close(r.stopped)

	r.engine.ApplyDailyAllowance()

	dayTicker := time.NewTicker(r.config.DayCheckInterval)
	defer dayTicker.Stop()

	// The tick source exists only while a session runs and is recreated
	// whenever a session begins or ends.
	var ticker *time.Ticker
	var tickC <-chan time.Time
	mode := r.engine.Mode()
	seq := r.engine.SessionSeq()
	resetTicker := func() {
		if ticker != nil {
			ticker.Stop()
			ticker, tickC = nil, nil
		}
		if mode != domain.ModeIdle {
			ticker = time.NewTicker(r.config.TickInterval)
			tickC = ticker.C
		}
	}
	resetTicker()
	defer func() {
		if ticker != nil {
			ticker.Stop()
		}
	}()

	r.logger.Info("session runner started", zap.Float64("balance", r.engine.Balance()))
	r.publish()

	notifications := r.notifications
	for {
		select {
		case <-ctx.Done():
			if r.engine.Mode() != domain.ModeIdle {
				r.engine.Stop(false)
			}
			r.logger.Info("session runner stopping")
			return ctx.Err()

		case n, ok := <-notifications:
			if !ok {
				notifications = nil
				continue
			}
			r.engine.HandleNotification(n)

		case cmd := <-r.commands:
			cmd.done <- cmd.fn(r.engine)

		case <-tickC:
			r.engine.Tick()

		case <-dayTicker.C:
			r.engine.ApplyDailyAllowance()
		}

		if m, s := r.engine.Mode(), r.engine.SessionSeq(); m != mode || s != seq {
			r.logger.Debug("session changed", zap.String("from", mode.String()), zap.String("to", m.String()), zap.Uint64("seq", s))
			mode, seq = m, s
			resetTicker()
		}
		r.publish()
	}
}

func (r *Runner) publish() {
	v := r.engine.View()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = &v
	for _, ch := range r.subscribers {
		select {
		case ch <- v:
		default:
		}
	}
}
