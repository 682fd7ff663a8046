package infra

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/mosmello93/focus-timer/internal/domain"
)

// CommandLauncher implements domain.Launcher with the host's opener binary.
type CommandLauncher struct {
	runner  CommandRunner
	goos    string
	homeDir string
}

// NewLauncher creates a launcher for the current OS.
func NewLauncher() domain.Launcher {
	home, _ := os.UserHomeDir()
	return NewLauncherWithDeps(&RealCommandRunner{}, runtime.GOOS, home)
}

// NewLauncherWithDeps creates a launcher with injectable dependencies (for testing).
func NewLauncherWithDeps(runner CommandRunner, goos, homeDir string) *CommandLauncher {
	return &CommandLauncher{runner: runner, goos: goos, homeDir: homeDir}
}

// OpenExternal opens a URI (steam://, https://) or a file path without waiting.
func (l *CommandLauncher) OpenExternal(target string) error {
	target = strings.TrimSpace(target)
	if target == "" {
		return fmt.Errorf("empty start target")
	}
	if !strings.Contains(target, "://") {
		target = l.ExpandHome(target)
	}

	name, args := l.openCommand(target)
	if err := l.runner.Start(name, args...); err != nil {
		return fmt.Errorf("failed to open %s: %w", target, err)
	}
	return nil
}

func (l *CommandLauncher) openCommand(target string) (string, []string) {
	switch l.goos {
	case "darwin":
		return "open", []string{target}
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", target}
	default:
		return "xdg-open", []string{target}
	}
}

// ExpandHome expands ~ to the user's home directory.
func (l *CommandLauncher) ExpandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(l.homeDir, path[2:])
	}
	if path == "~" {
		return l.homeDir
	}
	return path
}

var _ domain.Launcher = (*CommandLauncher)(nil)
