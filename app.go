package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"keyswitch/internal/action"
	"keyswitch/internal/config"
	"keyswitch/internal/diaglog"
	"keyswitch/internal/hook"
	"keyswitch/internal/syshotkey"
)

// AppOptions configures NewApp.
type AppOptions struct {
	// ConfigPath defaults to config.DefaultPath().
	ConfigPath string
	// LogLevel overrides the config file's log_level when non-empty.
	LogLevel string
	// Stdout receives the startup banner; Stderr receives log output.
	Stdout io.Writer
	Stderr io.Writer
}

// App owns the running hook, its configuration and the control surface.
type App struct {
	configPath    string
	levelOverride bool
	level         *slog.LevelVar
	stdout        io.Writer
	stderr        io.Writer
	diag          *diaglog.Ring
	lookup        action.ComboLookup

	// Lock ordering: reloadMu -> cfgMu.
	reloadMu sync.Mutex
	cfgMu    sync.RWMutex
	cfg      config.Config

	dispatcher atomic.Pointer[hook.Dispatcher]
	reloads    atomic.Uint64
	startedAt  time.Time

	stopMu sync.Mutex
	stop   context.CancelFunc

	bgWG sync.WaitGroup
}

// NewApp validates opts and creates an App. Nothing is installed until Run.
func NewApp(opts AppOptions) (*App, error) {
	a := &App{
		configPath: opts.ConfigPath,
		level:      new(slog.LevelVar),
		stdout:     opts.Stdout,
		stderr:     opts.Stderr,
		diag:       diaglog.NewRing(diaglog.DefaultRingSize),
		lookup:     syshotkey.New(),
		cfg:        config.DefaultConfig(),
	}
	if a.configPath == "" {
		a.configPath = config.DefaultPath()
	}
	if a.stdout == nil {
		a.stdout = os.Stdout
	}
	if a.stderr == nil {
		a.stderr = os.Stderr
	}
	if opts.LogLevel != "" {
		level, err := config.ParseLogLevel(opts.LogLevel)
		if err != nil {
			return nil, err
		}
		a.level.Set(level)
		a.levelOverride = true
	}
	return a, nil
}

// installLogger routes slog through the diagnostics tee and returns a
// function restoring the previous default logger.
func (a *App) installLogger() func() {
	previous := slog.Default()
	base := slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: a.level})
	slog.SetDefault(slog.New(diaglog.NewTeeHandler(base, slog.LevelWarn, a.diag.Add)))
	return func() { slog.SetDefault(previous) }
}

func (a *App) applyLogLevel(cfg config.Config) {
	if a.levelOverride {
		return
	}
	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		slog.Warn("[WARN-CONFIG] invalid log_level, keeping current level", "value", cfg.LogLevel, "error", err)
		return
	}
	a.level.Set(level)
}

func (a *App) configSnapshot() config.Config {
	a.cfgMu.RLock()
	defer a.cfgMu.RUnlock()
	return config.Clone(a.cfg)
}

func (a *App) setConfigSnapshot(cfg config.Config) {
	a.cfgMu.Lock()
	a.cfg = cfg
	a.cfgMu.Unlock()
}

// Reload re-reads the config file and publishes a new binding table. On
// failure the running table is kept.
func (a *App) Reload() (int, error) {
	a.reloadMu.Lock()
	defer a.reloadMu.Unlock()

	d := a.dispatcher.Load()
	if d == nil {
		return 0, fmt.Errorf("reload: %w", errNotRunning)
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return 0, fmt.Errorf("reload %s: %w", a.configPath, err)
	}
	table, err := config.BuildTable(cfg, a.lookup)
	if err != nil {
		return 0, fmt.Errorf("reload %s: %w", a.configPath, err)
	}

	a.applyLogLevel(cfg)
	a.setConfigSnapshot(cfg)
	d.SwapTable(table)
	a.reloads.Add(1)
	slog.Info("[config] bindings reloaded", "path", a.configPath, "bindings", table.Len())
	return table.Len(), nil
}

func (a *App) reloadFromWatcher() {
	if _, err := a.Reload(); err != nil {
		slog.Warn("[WARN-CONFIG] config change ignored", "error", err)
	}
}

// requestStop cancels the context Run is blocked on.
func (a *App) requestStop() bool {
	a.stopMu.Lock()
	defer a.stopMu.Unlock()
	if a.stop == nil {
		return false
	}
	a.stop()
	return true
}

func (a *App) setStop(cancel context.CancelFunc) {
	a.stopMu.Lock()
	a.stop = cancel
	a.stopMu.Unlock()
}
