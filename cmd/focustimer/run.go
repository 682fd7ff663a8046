package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mosmello93/focus-timer/internal/daemon"
	"github.com/mosmello93/focus-timer/internal/infra"
	"github.com/mosmello93/focus-timer/internal/ui"
	"github.com/mosmello93/focus-timer/internal/usecase"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the timer",
	Long: `Starts the timer with the process watchdog.
In a terminal the interactive interface is shown. Without a terminal
(service, redirected output) one status line is printed per change.

Only one timer can run per data directory.`,
	RunE: runRun,
}

var headless bool

func init() {
	runCmd.Flags().BoolVar(&headless, "headless", false, "Print status lines instead of the interactive interface")
}

func runRun(cmd *cobra.Command, args []string) error {
	a, err := openApp(true)
	if err != nil {
		return err
	}
	defer a.Close()
	logger := a.logger

	pm, err := infra.NewProcessManager(a.cfg.Process.Lister)
	if err != nil {
		return err
	}

	watchdog := daemon.NewWatchdog(daemon.WatchdogConfig{
		PollInterval:   a.cfg.Watchdog.PollInterval,
		SuppressWindow: a.cfg.Watchdog.SuppressWindow,
	}, pm, logger)

	engine := a.newEngine(usecase.EngineDeps{
		Killer:   pm,
		Launcher: infra.NewLauncher(),
		Sound:    infra.NewBellPlayer(),
		Watchdog: watchdog,
	}, usecase.DefaultEngineConfig())

	runner := daemon.NewRunner(daemon.RunnerConfig{
		TickInterval: a.cfg.Engine.TickInterval,
	}, engine, watchdog.Notifications(), logger)

	// Set up graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			logger.Info("received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	go func() { _ = watchdog.Run(ctx) }()
	runnerDone := make(chan error, 1)
	go func() { runnerDone <- runner.Run(ctx) }()

	views, unsubscribe := runner.Subscribe(16)
	defer unsubscribe()

	logger.Info("focustimer started",
		zap.String("version", Version),
		zap.String("store", a.store.Path()),
		zap.String("lister", a.cfg.Process.Lister))

	var frontErr error
	if !headless && ui.IsInteractive(os.Stdout) {
		p := tea.NewProgram(ui.NewModel(runner, views), tea.WithAltScreen(), tea.WithContext(ctx))
		if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			frontErr = fmt.Errorf("interface failed: %w", err)
		}
	} else {
		if err := ui.RunHeadless(ctx, views, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			frontErr = err
		}
	}

	cancel()
	if err := <-runnerDone; err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("session runner stopped with error", zap.Error(err))
	}

	fmt.Printf("Balance: %s\n", ui.FormatClock(engine.Balance()))
	return frontErr
}
