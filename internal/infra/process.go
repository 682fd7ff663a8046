package infra

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"runtime"
	"strings"
	"syscall"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/mosmello93/focus-timer/internal/config"
	"github.com/mosmello93/focus-timer/internal/domain"
)

// ErrUnsupportedPlatform is returned by collaborators that only work on one OS family.
var ErrUnsupportedPlatform = errors.New("unsupported platform")

// GopsutilManager implements domain.ProcessManager using gopsutil.
type GopsutilManager struct{}

// NewGopsutilManager creates a portable process manager.
func NewGopsutilManager() domain.ProcessManager {
	return &GopsutilManager{}
}

// ListRunningProcessNames returns the lowercase names of all running processes.
func (pm *GopsutilManager) ListRunningProcessNames(ctx context.Context) ([]string, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}

	names := make([]string, 0, len(procs))
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil || name == "" {
			continue // Process may have exited
		}
		names = append(names, strings.ToLower(name))
	}
	return names, nil
}

// KillProcessByName kills every process whose name equals name, ignoring case.
// Processes that exit before the signal lands are not errors.
func (pm *GopsutilManager) KillProcessByName(ctx context.Context, name string) error {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to list processes: %w", err)
	}

	self := int32(os.Getpid())
	var errs []error
	for _, p := range procs {
		if p.Pid == self {
			continue
		}
		pname, err := p.NameWithContext(ctx)
		if err != nil || !strings.EqualFold(pname, name) {
			continue
		}
		if err := p.KillWithContext(ctx); err != nil && !isProcessGone(err) {
			errs = append(errs, fmt.Errorf("failed to kill %s (pid %d): %w", pname, p.Pid, err))
		}
	}
	return errors.Join(errs...)
}

func isProcessGone(err error) bool {
	return errors.Is(err, os.ErrProcessDone) || errors.Is(err, syscall.ESRCH) || errors.Is(err, process.ErrorProcessNotRunning)
}

// TasklistManager implements domain.ProcessManager with the Windows
// tasklist and taskkill binaries.
type TasklistManager struct {
	runner CommandRunner
	goos   string
}

// NewTasklistManager creates a tasklist-backed process manager.
func NewTasklistManager(runner CommandRunner) *TasklistManager {
	if runner == nil {
		runner = &RealCommandRunner{}
	}
	return &TasklistManager{runner: runner, goos: runtime.GOOS}
}

// ListRunningProcessNames runs `tasklist /nh /fo csv` and parses its output.
func (tm *TasklistManager) ListRunningProcessNames(ctx context.Context) ([]string, error) {
	if tm.goos != "windows" {
		return nil, fmt.Errorf("tasklist on %s: %w", tm.goos, ErrUnsupportedPlatform)
	}
	out, err := tm.runner.Output(ctx, "tasklist", "/nh", "/fo", "csv")
	if err != nil {
		return nil, fmt.Errorf("failed to run tasklist: %w", err)
	}
	return ParseTasklist(string(out)), nil
}

// KillProcessByName runs `taskkill /IM name /F`. A "not found" reply is success.
func (tm *TasklistManager) KillProcessByName(ctx context.Context, name string) error {
	if tm.goos != "windows" {
		return fmt.Errorf("taskkill on %s: %w", tm.goos, ErrUnsupportedPlatform)
	}
	out, err := tm.runner.CombinedOutput(ctx, "taskkill", "/IM", name, "/F")
	if err != nil {
		if strings.Contains(strings.ToLower(string(out)), "not found") {
			return nil
		}
		return fmt.Errorf("failed to kill %s: %w", name, err)
	}
	return nil
}

var tasklistLine = regexp.MustCompile(`^\s*"([^"]+)"`)

// ParseTasklist extracts lowercase image names from CSV tasklist output.
// The image name is the first quoted field; lines without one are dropped.
func ParseTasklist(out string) []string {
	var names []string
	for _, line := range strings.Split(out, "\n") {
		m := tasklistLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(m[1]))
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}

// NewProcessManager selects a process manager by lister name.
// "auto" uses tasklist on Windows and gopsutil elsewhere.
func NewProcessManager(lister string) (domain.ProcessManager, error) {
	switch lister {
	case config.ListerGopsutil:
		return NewGopsutilManager(), nil
	case config.ListerTasklist:
		if runtime.GOOS != "windows" {
			return nil, fmt.Errorf("tasklist lister on %s: %w", runtime.GOOS, ErrUnsupportedPlatform)
		}
		return NewTasklistManager(nil), nil
	case config.ListerAuto, "":
		if runtime.GOOS == "windows" {
			return NewTasklistManager(nil), nil
		}
		return NewGopsutilManager(), nil
	default:
		return nil, fmt.Errorf("unknown process lister %q", lister)
	}
}

// Ensure both managers implement domain.ProcessManager.
var _ domain.ProcessManager = (*GopsutilManager)(nil)
var _ domain.ProcessManager = (*TasklistManager)(nil)
