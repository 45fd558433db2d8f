package launcher

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/slimevr/slimevr-launcher/internal/instance"
	"github.com/slimevr/slimevr-launcher/internal/journal"
	"github.com/slimevr/slimevr-launcher/internal/supervisor"
)

// AppID names the per-user config and log directories.
const AppID = "dev.slimevr.SlimeVR"

// DevURLEnv points the window at a GUI dev server instead of the bundled
// assets.
const DevURLEnv = "SLIMEVR_GUI_URL"

// Config captures every knob the launcher needs. Paths left empty are filled
// by Normalize.
type Config struct {
	// LaunchFromPath is the --launch-from-path override.
	LaunchFromPath string
	ConfigDir      string
	LogDir         string
	AssetsDir      string
	DevURL         string
	InstanceAddr   string
	Debug          bool

	ShutdownTimeout time.Duration
	PollInterval    time.Duration
}

// DefaultConfig resolves the platform directories. Lookup errors leave the
// field empty so Normalize can fall back.
func DefaultConfig() Config {
	cfg := Config{
		DevURL:          os.Getenv(DevURLEnv),
		InstanceAddr:    instance.DefaultAddr,
		ShutdownTimeout: supervisor.DefaultShutdownTimeout,
		PollInterval:    supervisor.DefaultPollInterval,
	}
	if dir, err := os.UserConfigDir(); err == nil {
		cfg.ConfigDir = filepath.Join(dir, AppID)
	}
	home, _ := os.UserHomeDir()
	cfg.LogDir = defaultLogDir(runtime.GOOS, home, os.Getenv)
	if exe, err := os.Executable(); err == nil {
		cfg.AssetsDir = filepath.Join(filepath.Dir(exe), "gui")
	}
	return cfg
}

// defaultLogDir follows each platform's convention for application logs.
func defaultLogDir(goos, home string, getenv func(string) string) string {
	switch goos {
	case "windows":
		base := getenv("LOCALAPPDATA")
		if base == "" {
			return ""
		}
		return filepath.Join(base, AppID, "logs")
	case "darwin":
		if home == "" {
			return ""
		}
		return filepath.Join(home, "Library", "Logs", AppID)
	default:
		base := getenv("XDG_DATA_HOME")
		if base == "" {
			if home == "" {
				return ""
			}
			base = filepath.Join(home, ".local", "share")
		}
		return filepath.Join(base, AppID, "logs")
	}
}

// Normalize ensures every filesystem path is absolute and fills missing
// defaults so the launcher never has to re-check the same invariants.
func (c *Config) Normalize() error {
	if c.ConfigDir == "" {
		c.ConfigDir = filepath.Join(os.TempDir(), AppID)
	}
	var err error
	if c.ConfigDir, err = filepath.Abs(c.ConfigDir); err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	if c.LogDir == "" {
		c.LogDir = filepath.Join(c.ConfigDir, "logs")
	}
	if c.LogDir, err = filepath.Abs(c.LogDir); err != nil {
		return fmt.Errorf("resolve log dir: %w", err)
	}
	if c.AssetsDir != "" {
		if c.AssetsDir, err = filepath.Abs(c.AssetsDir); err != nil {
			return fmt.Errorf("resolve assets dir: %w", err)
		}
	}
	if c.InstanceAddr == "" {
		c.InstanceAddr = instance.DefaultAddr
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = supervisor.DefaultShutdownTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = supervisor.DefaultPollInterval
	}
	return nil
}

// WindowStateDir is where the geometry file lives.
func (c Config) WindowStateDir() string { return c.ConfigDir }

// JournalPath is the run journal database.
func (c Config) JournalPath() string { return filepath.Join(c.ConfigDir, journal.FileName) }

// ProfileDir holds the webview's browser profile.
func (c Config) ProfileDir() string { return filepath.Join(c.ConfigDir, "webview") }
