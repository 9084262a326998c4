package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"keyswitch/internal/action"
	"keyswitch/internal/binding"
	"keyswitch/internal/config"
	"keyswitch/internal/hook"
	"keyswitch/internal/ipc"
	"keyswitch/internal/singleinstance"
	"keyswitch/internal/sysaction"
	"keyswitch/internal/workerutil"
)

type controlServer interface {
	Start() error
	Stop() error
	PipeName() string
}

var errNotRunning = errors.New("keyswitch is not running")

var (
	runHookFn          = hook.Run
	tryLockFn          = singleinstance.TryLock
	newExecutorFn      = func() action.Executor { return sysaction.New() }
	newControlServerFn = func(h ipc.Handler) controlServer { return ipc.NewServer("", h) }
)

// Run installs the keyboard hook and blocks until ctx is cancelled or a
// stop command arrives. Failing to install the hook is fatal.
func (a *App) Run(ctx context.Context) error {
	restoreLogger := a.installLogger()
	defer restoreLogger()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	a.setStop(cancel)
	defer a.setStop(nil)

	lock, err := tryLockFn(singleinstance.DefaultMutexName())
	if errors.Is(err, singleinstance.ErrAlreadyRunning) {
		return err
	}
	if err != nil {
		slog.Warn("[DEBUG-SINGLE] mutex creation failed, proceeding without single-instance guard", "error", err)
	}
	if lock != nil {
		defer func() {
			if releaseErr := lock.Release(); releaseErr != nil {
				slog.Warn("[DEBUG-SINGLE] mutex release failed", "error", releaseErr)
			}
		}()
	}

	cfg, table := a.loadInitial()
	d := hook.NewDispatcher(table, newExecutorFn())
	a.dispatcher.Store(d)
	defer a.dispatcher.Store(nil)
	a.startedAt = time.Now()
	a.printBanner(table)

	server := newControlServerFn(ipc.HandlerFunc(a.handleControl))
	if err := server.Start(); err != nil {
		slog.Warn("[ipc] control pipe unavailable, CLI commands will not reach this instance", "error", err)
	} else {
		slog.Info("[ipc] control pipe listening", "pipe", server.PipeName())
		defer func() {
			if stopErr := server.Stop(); stopErr != nil {
				slog.Debug("[ipc] control pipe stop failed", "error", stopErr)
			}
		}()
	}

	if cfg.WatchConfig {
		workerutil.RunWithRecovery(ctx, "config-watcher", &a.bgWG, func(ctx context.Context) error {
			return config.Watch(ctx, a.configPath, config.DefaultWatchDebounce, a.reloadFromWatcher)
		}, workerutil.RecoveryOptions{})
	}

	slog.Info("[hook] installing keyboard hook", "bindings", table.Len())
	err = runHookFn(ctx, d)
	cancel()
	a.bgWG.Wait()
	if err != nil {
		return fmt.Errorf("keyboard hook: %w", err)
	}
	slog.Info("[hook] keyboard hook removed", "events", d.Stats().Events)
	return nil
}

// loadInitial reads the config, writing the defaults on first start. Any
// failure falls back to the built-in defaults so the hook still starts.
func (a *App) loadInitial() (config.Config, *binding.Table) {
	for _, message := range config.ConsumeDefaultPathWarnings() {
		slog.Warn("[WARN-CONFIG] " + message)
	}

	cfg, err := config.EnsureFile(a.configPath)
	if err != nil {
		slog.Warn("[WARN-CONFIG] failed to load config, running with defaults", "path", a.configPath, "error", err)
		cfg = config.DefaultConfig()
	}
	table, err := config.BuildTable(cfg, a.lookup)
	if err != nil {
		slog.Warn("[WARN-CONFIG] invalid bindings, running with defaults", "path", a.configPath, "error", err)
		cfg = config.DefaultConfig()
		table, err = config.BuildTable(cfg, a.lookup)
		if err != nil {
			// Defaults are static; a failure here is a programming error.
			panic(fmt.Sprintf("default bindings are invalid: %v", err))
		}
	}
	a.applyLogLevel(cfg)
	a.setConfigSnapshot(cfg)
	return cfg, table
}

func (a *App) printBanner(table *binding.Table) {
	const rule = "─────────────────────────────────────"
	fmt.Fprintf(a.stdout, "keyswitch is running (config: %s)\n%s\n", a.configPath, rule)
	fmt.Fprint(a.stdout, formatBindings(table))
	fmt.Fprintf(a.stdout, "%s\nPress Ctrl+C or run `keyswitch stop` to exit.\n", rule)
}
