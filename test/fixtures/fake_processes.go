// Package fixtures provides test helpers for integration tests.
package fixtures

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/mosmello93/focus-timer/internal/domain"
)

// ErrProcessTableDown is returned while the fake table is broken.
var ErrProcessTableDown = errors.New("fake process table unavailable")

// FakeProcessTable is an in-memory process table. Kill removes every
// process with the name, like taskkill /IM name /F.
type FakeProcessTable struct {
	mu      sync.Mutex
	running []string
	killed  []string
	broken  bool
}

// NewFakeProcessTable creates a table with the given processes running.
func NewFakeProcessTable(names ...string) *FakeProcessTable {
	return &FakeProcessTable{running: append([]string(nil), names...)}
}

// Start adds a running process.
func (t *FakeProcessTable) Start(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running = append(t.running, name)
}

// Exit removes every process with the name, as if it quit on its own.
func (t *FakeProcessTable) Exit(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.remove(name)
}

// Break makes listing fail until Repair is called.
func (t *FakeProcessTable) Break() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.broken = true
}

// Repair makes listing work again.
func (t *FakeProcessTable) Repair() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.broken = false
}

// IsRunning reports whether a process with the name runs.
func (t *FakeProcessTable) IsRunning(name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, n := range t.running {
		if strings.EqualFold(n, name) {
			return true
		}
	}
	return false
}

// Killed returns the names passed to KillProcessByName, in call order.
func (t *FakeProcessTable) Killed() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.killed...)
}

// ListRunningProcessNames implements domain.ProcessLister.
func (t *FakeProcessTable) ListRunningProcessNames(ctx context.Context) ([]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.broken {
		return nil, ErrProcessTableDown
	}
	return append([]string(nil), t.running...), nil
}

// KillProcessByName implements domain.ProcessKiller.
func (t *FakeProcessTable) KillProcessByName(ctx context.Context, name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.killed = append(t.killed, name)
	t.remove(name)
	return nil
}

func (t *FakeProcessTable) remove(name string) {
	kept := t.running[:0]
	for _, n := range t.running {
		if !strings.EqualFold(n, name) {
			kept = append(kept, n)
		}
	}
	t.running = kept
}

var _ domain.ProcessManager = (*FakeProcessTable)(nil)
