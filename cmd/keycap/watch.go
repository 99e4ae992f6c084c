package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"time"

	"tools.zach/dev/keycap/internal/config"
	"tools.zach/dev/keycap/internal/logger"
	"tools.zach/dev/keycap/internal/watch"
)

// ///////////////////////////////////////////////
// Watch
// ///////////////////////////////////////////////

// runWatch renders the selected icons, then renders them again each time
// the config file changes, until ctx is canceled. One watcher may run per
// config file.
func runWatch(ctx context.Context, args []string, stderr io.Writer) error {
	var (
		common commonFlags
		only   string
	)
	fs := flag.NewFlagSet("keycap watch", flag.ContinueOnError)
	fs.SetOutput(stderr)
	common.register(fs)
	fs.StringVar(&only, "only", "", "render only icons whose name matches this glob")
	if err := fs.Parse(args); err != nil {
		return err
	}

	dirs, cfgPath, err := common.resolve()
	if err != nil {
		return err
	}
	lock, err := acquireLock(cfgPath + ".lock")
	if err != nil {
		return fmt.Errorf("watch %s: %w", cfgPath, err)
	}
	defer lock.Release()

	a, closeLog, err := startDaemon(dirs, cfgPath, stderr, "watch")
	if err != nil {
		return err
	}
	defer closeLog()

	renderSelected := func(a *app) {
		names, err := a.cfg.Select(only)
		if err != nil {
			slog.Warn("nothing to render", "error", err)
			return
		}
		n, err := a.renderIcons(ctx, names)
		if err != nil {
			slog.Warn("render pass incomplete", "rendered", n, "total", len(names))
			return
		}
		slog.Info("render pass complete", "rendered", n)
	}
	w, err := openWatcher(a.cfg, cfgPath)
	if err != nil {
		return err
	}
	defer w.Close()

	renderSelected(a)
	reloadLoop(ctx, w, dirs, cfgPath, renderSelected)
	slog.Info("shutting down")
	return nil
}

// openWatcher starts watching the config file with the config's watch
// settings.
func openWatcher(cfg *config.Config, cfgPath string) (*watch.Watcher, error) {
	opts := watch.Options{
		PollInterval: time.Duration(cfg.Watch.PollIntervalSeconds) * time.Second,
		ForcePoll:    cfg.Watch.ForcePoll,
	}
	w, err := watch.New(opts, cfgPath)
	if err != nil {
		return nil, fmt.Errorf("watch config: %w", err)
	}
	if w.Polling() {
		slog.Info("using polling mode for file watching", "interval", opts.PollInterval)
	}
	return w, nil
}

// reloadLoop reloads the config on every watcher event and hands each
// successfully loaded app to onReload. A config that fails to load is
// logged and the previous app stays in effect. It returns when ctx is
// canceled.
func reloadLoop(ctx context.Context, w *watch.Watcher, dirs DataPaths, cfgPath string, onReload func(*app)) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.Events():
			next, err := loadApp(dirs, cfgPath)
			if err != nil {
				slog.Error("config reload failed, keeping previous config", "error", err)
				continue
			}
			slog.Info("config reloaded", "icons", len(next.cfg.Icons))
			onReload(next)
		}
	}
}

// startDaemon loads the config and switches logging to the rotating log
// file plus stderr for the long-running subcommands.
func startDaemon(dirs DataPaths, cfgPath string, stderr io.Writer, mode string) (*app, func(), error) {
	slog.SetDefault(logger.NewConsole(stderr, logger.LevelInfo))
	a, err := loadApp(dirs, cfgPath)
	if err != nil {
		return nil, nil, err
	}

	level := logger.ParseLevel(a.cfg.Log.Level)
	fileLog, closer, err := logger.NewLogger(dirs.Log(), level, a.cfg.Log.MaxSizeMB)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	handler := logger.NewFanout(fileLog.Handler(), logger.NewConsoleHandler(stderr, level))
	slog.SetDefault(slog.New(handler).With("mode", mode))
	slog.Info("keycap starting", "version", resolveVersion(), "config", cfgPath, "data_dir", dirs.Root)
	return a, func() { closer.Close() }, nil
}
