package infra

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"text/template"

	"github.com/mosmello93/focus-timer/internal/domain"
)

// LaunchAgent plist template (runs as user, once per login)
const launchAgentTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>{{.Label}}</string>

    <key>ProgramArguments</key>
    <array>
        <string>{{.ExecutablePath}}</string>
        <string>run</string>
    </array>

    <key>RunAtLoad</key>
    <true/>

    <key>ProcessType</key>
    <string>Interactive</string>
</dict>
</plist>
`

const desktopEntryTemplate = `[Desktop Entry]
Type=Application
Name={{.Name}}
Exec={{.ExecLine}} run
X-GNOME-Autostart-enabled=true
Terminal=true
`

const registryRunKey = `HKCU\Software\Microsoft\Windows\CurrentVersion\Run`

type autostartTemplateData struct {
	Label          string
	Name           string
	ExecutablePath string
	ExecLine       string
}

// OSAutostartManager implements domain.AutostartManager with the host's
// login-item mechanism: a LaunchAgent on macOS, an XDG autostart entry on
// Linux and the HKCU Run key on Windows.
type OSAutostartManager struct {
	name      string
	goos      string
	homeDir   string
	configDir string
	runner    CommandRunner
}

// NewAutostartManager creates an autostart manager for the current OS.
func NewAutostartManager(name string) *OSAutostartManager {
	home, _ := os.UserHomeDir()
	configDir, err := os.UserConfigDir()
	if err != nil || configDir == "" {
		configDir = filepath.Join(home, ".config")
	}
	return NewAutostartManagerWithDeps(name, runtime.GOOS, home, configDir, &RealCommandRunner{})
}

// NewAutostartManagerWithDeps creates a manager with injectable dependencies (for testing).
func NewAutostartManagerWithDeps(name, goos, homeDir, configDir string, runner CommandRunner) *OSAutostartManager {
	name = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), " ", "-"))
	if name == "" {
		name = "focustimer"
	}
	return &OSAutostartManager{
		name:      name,
		goos:      goos,
		homeDir:   homeDir,
		configDir: configDir,
		runner:    runner,
	}
}

// EntryPath returns the login-item file, or the registry key on Windows.
func (m *OSAutostartManager) EntryPath() string {
	switch m.goos {
	case "darwin":
		return filepath.Join(m.homeDir, "Library", "LaunchAgents", m.label()+".plist")
	case "windows":
		return registryRunKey + `\` + m.name
	default:
		return filepath.Join(m.configDir, "autostart", m.name+".desktop")
	}
}

func (m *OSAutostartManager) label() string {
	return "com.focustimer." + m.name
}

// Enable installs the login item for execPath. Rewrites an existing entry.
func (m *OSAutostartManager) Enable(execPath string) error {
	if execPath == "" {
		return fmt.Errorf("enable autostart: exec path is empty")
	}

	if m.goos == "windows" {
		quoted := `"` + strings.Trim(execPath, `"`) + `" run`
		out, err := m.runner.CombinedOutput(context.Background(),
			"reg", "add", registryRunKey, "/v", m.name, "/t", "REG_SZ", "/d", quoted, "/f")
		if err != nil {
			return fmt.Errorf("enable autostart: reg add failed: %w: %s", err, strings.TrimSpace(string(out)))
		}
		return nil
	}

	content, err := m.render(execPath)
	if err != nil {
		return fmt.Errorf("enable autostart: %w", err)
	}
	path := m.EntryPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("enable autostart: create dir: %w", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("enable autostart: write entry: %w", err)
	}
	return nil
}

// Disable removes the login item. Missing entries are not errors.
func (m *OSAutostartManager) Disable() error {
	if m.goos == "windows" {
		if !m.IsEnabled() {
			return nil
		}
		out, err := m.runner.CombinedOutput(context.Background(),
			"reg", "delete", registryRunKey, "/v", m.name, "/f")
		if err != nil {
			return fmt.Errorf("disable autostart: reg delete failed: %w: %s", err, strings.TrimSpace(string(out)))
		}
		return nil
	}

	if err := os.Remove(m.EntryPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("disable autostart: remove entry: %w", err)
	}
	return nil
}

// IsEnabled reports whether the login item is installed.
func (m *OSAutostartManager) IsEnabled() bool {
	if m.goos == "windows" {
		err := m.runner.Run(context.Background(), "reg", "query", registryRunKey, "/v", m.name)
		return err == nil
	}
	_, err := os.Stat(m.EntryPath())
	return err == nil
}

func (m *OSAutostartManager) render(execPath string) ([]byte, error) {
	tmplStr := desktopEntryTemplate
	if m.goos == "darwin" {
		tmplStr = launchAgentTemplate
	}

	execLine := execPath
	if strings.Contains(execLine, " ") && !strings.HasPrefix(execLine, `"`) {
		execLine = `"` + execLine + `"`
	}
	data := autostartTemplateData{
		Label:          xmlEscape(m.label()),
		Name:           m.name,
		ExecutablePath: xmlEscape(execPath),
		ExecLine:       execLine,
	}

	tmpl, err := template.New("autostart").Parse(tmplStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse autostart template: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to execute autostart template: %w", err)
	}
	return buf.Bytes(), nil
}

func xmlEscape(value string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&apos;",
	)
	return replacer.Replace(value)
}

// RegisterAutostart enables or disables the login item and returns the
// resulting state. Calling it twice with the same argument is harmless.
func RegisterAutostart(m domain.AutostartManager, enable bool, execPath string) (bool, error) {
	var err error
	if enable {
		err = m.Enable(execPath)
	} else {
		err = m.Disable()
	}
	return m.IsEnabled(), err
}

var _ domain.AutostartManager = (*OSAutostartManager)(nil)
