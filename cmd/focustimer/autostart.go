package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mosmello93/focus-timer/internal/config"
	"github.com/mosmello93/focus-timer/internal/infra"
)

var autostartCmd = &cobra.Command{
	Use:   "autostart",
	Short: "Start the timer on login",
	Long: `Installs or removes a login item that runs 'focustimer run'.
macOS uses a LaunchAgent, Linux an XDG autostart entry and Windows the
Run registry key of the current user.`,
}

var autostartEnableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Install the login item",
	Args:  cobra.NoArgs,
	RunE:  func(cmd *cobra.Command, args []string) error { return runAutostart(true) },
}

var autostartDisableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Remove the login item",
	Args:  cobra.NoArgs,
	RunE:  func(cmd *cobra.Command, args []string) error { return runAutostart(false) },
}

var autostartStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the login item is installed",
	Args:  cobra.NoArgs,
	RunE:  runAutostartStatus,
}

func init() {
	autostartCmd.AddCommand(autostartEnableCmd, autostartDisableCmd, autostartStatusCmd)
}

func newAutostartManager() (*infra.OSAutostartManager, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	return infra.NewAutostartManager(cfg.Autostart.Name), nil
}

func runAutostart(enable bool) error {
	m, err := newAutostartManager()
	if err != nil {
		return err
	}

	var execPath string
	if enable {
		if execPath, err = os.Executable(); err != nil {
			return fmt.Errorf("failed to get executable path: %w", err)
		}
		if resolved, err := filepath.EvalSymlinks(execPath); err == nil {
			execPath = resolved
		}
	}

	enabled, err := infra.RegisterAutostart(m, enable, execPath)
	if err != nil {
		return fmt.Errorf("failed to update autostart: %w", err)
	}
	printAutostart(m.EntryPath(), enabled)
	return nil
}

func runAutostartStatus(cmd *cobra.Command, args []string) error {
	m, err := newAutostartManager()
	if err != nil {
		return err
	}
	printAutostart(m.EntryPath(), m.IsEnabled())
	return nil
}

func printAutostart(entry string, enabled bool) {
	if enabled {
		fmt.Printf("Auto-start: enabled (%s)\n", entry)
	} else {
		fmt.Printf("Auto-start: disabled (%s)\n", entry)
	}
}
