// Package usecase contains application business logic.
package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mosmello93/focus-timer/internal/domain"
)

// EnforcementResult records one kill sweep over the blacklist.
type EnforcementResult struct {
	Names      []string
	Killed     []string // names whose kill call succeeded (including "not running")
	Errors     []error
	ExecutedAt time.Time
	DurationMs int64
}

// Enforcer force-kills blacklisted processes by name.
type Enforcer struct {
	killer domain.ProcessKiller
	logger *zap.Logger
}

// NewEnforcer creates a new enforcer. A nil killer makes every sweep a no-op.
func NewEnforcer(killer domain.ProcessKiller, logger *zap.Logger) *Enforcer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enforcer{killer: killer, logger: logger}
}

// KillAll kills every process matching names. Failures are logged and
// collected; they never stop the sweep.
func (e *Enforcer) KillAll(ctx context.Context, names []string) EnforcementResult {
	start := time.Now()
	result := EnforcementResult{
		Names:      append([]string(nil), names...),
		Killed:     make([]string, 0, len(names)),
		Errors:     make([]error, 0),
		ExecutedAt: start,
	}
	if e.killer == nil {
		return result
	}

	for _, name := range names {
		if err := e.killer.KillProcessByName(ctx, name); err != nil {
			e.logger.Warn("failed to kill process",
				zap.String("process", name),
				zap.Error(err))
			result.Errors = append(result.Errors, err)
			continue
		}
		e.logger.Info("killed process", zap.String("process", name))
		result.Killed = append(result.Killed, name)
	}

	result.DurationMs = time.Since(start).Milliseconds()
	return result
}
