// Package main is the CLI entry point for focustimer.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mosmello93/focus-timer/internal/config"
	"github.com/mosmello93/focus-timer/internal/domain"
	"github.com/mosmello93/focus-timer/internal/infra"
	"github.com/mosmello93/focus-timer/internal/usecase"
)

var (
	// Version info (set via ldflags)
	Version   = "0.1.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var v = config.NewViper()

var rootCmd = &cobra.Command{
	Use:   "focustimer",
	Short: "Focus timer - earn game time by working",
	Long: `focustimer tracks work sessions and converts them into game time.
Every second of work earns ratio seconds of play. A daily allowance is
credited once per day. While a blacklisted game process runs, the balance
counts down; when it reaches zero the game is closed.

Run 'focustimer run' to start the timer.`,
	Version:      Version,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Prints version, commit, and build time. Use --json for machine-readable output.`,
	Run:   runVersion,
}

var jsonOutput bool

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("data-dir", config.DefaultDataDir(), "Directory for the store, key, lock and log")
	flags.String("storage", config.BackendSQLCipher, "Storage backend (sqlcipher, sqlite, json)")
	flags.String("lister", config.ListerAuto, "Process lister (auto, gopsutil, tasklist)")
	flags.String("password", "", "Settings password, when settings are locked")
	_ = v.BindPFlag("data_dir", flags.Lookup("data-dir"))
	_ = v.BindPFlag("storage.backend", flags.Lookup("storage"))
	_ = v.BindPFlag("process.lister", flags.Lookup("lister"))

	versionCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(killCmd)
	rootCmd.AddCommand(resetBalanceCmd)
	rootCmd.AddCommand(blacklistCmd)
	rootCmd.AddCommand(categoryCmd)
	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(autostartCmd)
	rootCmd.AddCommand(versionCmd)
}

// app bundles what every command needs: configuration, logger, store and
// the stored snapshot.
type app struct {
	cfg      *config.AppConfig
	logger   *zap.Logger
	lock     *infra.InstanceLock
	store    domain.SnapshotStore
	snapshot domain.Snapshot
	writable bool
}

// openApp loads the configuration and the stored snapshot. A writable app
// holds the instance lock so a running timer cannot overwrite its changes.
func openApp(writable bool) (*app, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: createLogger(cfg.LogPath), writable: writable}

	lock, err := infra.AcquireInstanceLock(cfg.LockPath())
	switch {
	case err == nil:
		a.lock = lock
	case errors.Is(err, infra.ErrAlreadyRunning) && !writable:
		// read-only commands may look at the store of a running timer
	case errors.Is(err, infra.ErrAlreadyRunning):
		a.Close()
		return nil, fmt.Errorf("focustimer is already running; make this change in the app or quit it first")
	default:
		a.Close()
		return nil, err
	}

	store, err := infra.OpenStore(cfg.Storage.Backend, cfg.DataDir)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	a.store = store

	a.snapshot, err = store.Load()
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return a, nil
}

// newEngine restores an engine from the snapshot. Only a writable app
// persists changes.
func (a *app) newEngine(deps usecase.EngineDeps, engineCfg usecase.EngineConfig) *usecase.Engine {
	deps.Logger = a.logger
	if a.writable {
		deps.Store = a.store
	}
	engineCfg.SuppressWindow = a.cfg.Watchdog.SuppressWindow
	return usecase.NewEngine(a.snapshot, deps, engineCfg)
}

// openEditor opens the app for an offline edit and unlocks the settings
// when a password is set. Collaborator calls run synchronously so that
// they finish before the process exits.
func openEditor(cmd *cobra.Command) (*app, *usecase.Engine, error) {
	a, err := openApp(true)
	if err != nil {
		return nil, nil, err
	}
	engineCfg := usecase.DefaultEngineConfig()
	engineCfg.Spawn = func(f func()) { f() }
	engine := a.newEngine(usecase.EngineDeps{}, engineCfg)
	if err := unlockSettings(cmd, engine); err != nil {
		a.Close()
		return nil, nil, err
	}
	return a, engine, nil
}

// openViewer opens the app read-only.
func openViewer() (*app, *usecase.Engine, error) {
	a, err := openApp(false)
	if err != nil {
		return nil, nil, err
	}
	return a, a.newEngine(usecase.EngineDeps{}, usecase.DefaultEngineConfig()), nil
}

// Close releases the store, the lock and the logger.
func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("failed to close store", zap.Error(err))
		}
	}
	if a.lock != nil {
		if err := a.lock.Release(); err != nil {
			a.logger.Warn("failed to release instance lock", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

func createLogger(path string) *zap.Logger {
	logConfig := zap.NewProductionConfig()
	logConfig.OutputPaths = []string{path}
	logConfig.ErrorOutputPaths = []string{path}
	logConfig.EncoderConfig.TimeKey = "time"
	logConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return zap.NewNop()
	}
	logger, err := logConfig.Build()
	if err != nil {
		// Fallback to stderr if file logging fails
		logger, _ = zap.NewProduction()
	}
	return logger
}

func runVersion(cmd *cobra.Command, args []string) {
	if jsonOutput {
		fmt.Printf(`{"version":"%s","commit":"%s","build_time":"%s"}`+"\n",
			Version, Commit, BuildTime)
	} else {
		fmt.Printf("focustimer %s (commit: %s, built: %s)\n",
			Version, Commit, BuildTime)
	}
}
