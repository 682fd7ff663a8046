package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage backends.
const (
	BackendSQLCipher = "sqlcipher"
	BackendSQLite    = "sqlite"
	BackendJSON      = "json"
)

// Process listers.
const (
	ListerAuto     = "auto"
	ListerGopsutil = "gopsutil"
	ListerTasklist = "tasklist"
)

const (
	appName        = "focustimer"
	configFileName = "config"
	envPrefix      = "FOCUSTIMER"
)

// StorageConfig selects and locates the snapshot store.
type StorageConfig struct {
	Backend string `mapstructure:"backend"`
}

// ProcessConfig selects the process-control collaborator.
type ProcessConfig struct {
	Lister string `mapstructure:"lister"`
}

// WatchdogConfig holds watchdog timing.
type WatchdogConfig struct {
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	SuppressWindow time.Duration `mapstructure:"suppress_window"`
}

// EngineConfig holds engine timing.
type EngineConfig struct {
	TickInterval time.Duration `mapstructure:"tick_interval"`
}

// AutostartConfig names the login item.
type AutostartConfig struct {
	Name string `mapstructure:"name"`
}

// AppConfig is the runtime configuration of the focustimer binary.
// It is separate from domain.Settings, which the user edits in the app.
type AppConfig struct {
	DataDir   string          `mapstructure:"data_dir"`
	LogPath   string          `mapstructure:"log_path"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Process   ProcessConfig   `mapstructure:"process"`
	Watchdog  WatchdogConfig  `mapstructure:"watchdog"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Autostart AutostartConfig `mapstructure:"autostart"`
}

// DefaultDataDir returns ~/.focustimer, or a relative directory when the
// home directory cannot be determined.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "." + appName
	}
	return filepath.Join(home, "."+appName)
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", DefaultDataDir())
	v.SetDefault("log_path", "")
	v.SetDefault("storage.backend", BackendSQLCipher)
	v.SetDefault("process.lister", ListerAuto)
	v.SetDefault("watchdog.poll_interval", 2*time.Second)
	v.SetDefault("watchdog.suppress_window", 4*time.Second)
	v.SetDefault("engine.tick_interval", time.Second)
	v.SetDefault("autostart.name", appName)
}

// NewViper returns a viper instance with defaults and env binding
// (FOCUSTIMER_DATA_DIR, FOCUSTIMER_STORAGE_BACKEND, ...).
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the optional config.yaml from the data directory and returns
// the validated configuration.
func Load(v *viper.Viper) (*AppConfig, error) {
	dataDir := v.GetString("data_dir")
	v.SetConfigName(configFileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(dataDir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if cfg.LogPath == "" {
		cfg.LogPath = filepath.Join(cfg.DataDir, appName+".log")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks enumerations and intervals.
func (c *AppConfig) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	switch c.Storage.Backend {
	case BackendSQLCipher, BackendSQLite, BackendJSON:
	default:
		return fmt.Errorf("storage.backend must be one of %s, %s, %s (got %q)",
			BackendSQLCipher, BackendSQLite, BackendJSON, c.Storage.Backend)
	}
	switch c.Process.Lister {
	case ListerAuto, ListerGopsutil, ListerTasklist:
	default:
		return fmt.Errorf("process.lister must be one of %s, %s, %s (got %q)",
			ListerAuto, ListerGopsutil, ListerTasklist, c.Process.Lister)
	}
	if c.Watchdog.PollInterval <= 0 {
		return fmt.Errorf("watchdog.poll_interval must be positive")
	}
	if c.Watchdog.SuppressWindow < 0 {
		return fmt.Errorf("watchdog.suppress_window must not be negative")
	}
	if c.Engine.TickInterval <= 0 {
		return fmt.Errorf("engine.tick_interval must be positive")
	}
	return nil
}

// LockPath is the single-instance lock file.
func (c *AppConfig) LockPath() string {
	return filepath.Join(c.DataDir, appName+".lock")
}
