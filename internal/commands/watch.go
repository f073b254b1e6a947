package commands

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/cdd-platform/cdd/internal/config"
	"github.com/cdd-platform/cdd/internal/watch"
)

// Watch syncs once, then again every time the spec or the config file
// changes, until interrupted.
func (c *Controller) Watch(ctx context.Context, opts SyncOptions) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}

	if _, err := c.sync(ctx, cfg, opts); err != nil {
		c.Logger.Error().Err(err).Msg("initial sync failed")
	}

	files := []string{cfg.Path(cfg.OpenAPI), cfg.File}
	watcher, err := watch.NewFileWatcher(files, watch.DefaultDelay, func(ctx context.Context) {
		c.resync(ctx, cfg.File, opts)
	}, c.Logger)
	if err != nil {
		return err
	}
	defer watcher.Close()

	c.printf("👀 Watching %s and %s (Ctrl+C to stop)\n", files[0], files[1])

	err = watcher.Start(ctx)
	if errors.Is(err, context.Canceled) {
		c.printf("\n👋 Stopped watching\n")
		return nil
	}
	return err
}

// resync reloads the configuration so edits to it take effect. Failures are
// logged and the watch goes on.
func (c *Controller) resync(ctx context.Context, configPath string, opts SyncOptions) {
	cfg, err := config.LoadConfigFromPath(configPath)
	if err != nil {
		c.Logger.Error().Err(err).Msg("failed to reload config")
		return
	}

	c.printf("🔄 Change detected, syncing...\n")
	if _, err := c.sync(ctx, cfg, opts); err != nil {
		c.Logger.Error().Err(err).Msg("sync failed")
	}
}
