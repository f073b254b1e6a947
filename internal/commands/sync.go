package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cdd-platform/cdd/internal/codegen/sqlschema"
	"github.com/cdd-platform/cdd/internal/config"
	"github.com/cdd-platform/cdd/internal/history"
	"github.com/cdd-platform/cdd/internal/project"
	"github.com/cdd-platform/cdd/internal/syncer"
)

type SyncOptions struct {
	DryRun bool
	// Adaptors restricts the run to the named services. Empty means all.
	Adaptors []string
}

// Sync brings every configured adaptor's project in line with the spec and
// writes the SQL schema.
func (c *Controller) Sync(ctx context.Context, opts SyncOptions) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}

	_, err = c.sync(ctx, cfg, opts)
	return err
}

func (c *Controller) sync(ctx context.Context, cfg *config.Config, opts SyncOptions) (*syncer.Report, error) {
	// Extraction failures abort before any adaptor is invoked.
	spec, err := c.loadProject(cfg)
	if err != nil {
		return nil, err
	}

	services, err := cfg.Select(opts.Adaptors)
	if err != nil {
		return nil, err
	}
	if len(services) == 0 {
		c.Logger.Warn().Msg("no adaptors configured")
	}

	runner := syncer.NewRunner(
		syncer.NewEngine(c.Logger),
		c.clientFactory(cfg),
		syncer.WithConcurrency(cfg.Concurrency),
		syncer.WithDryRun(opts.DryRun),
		syncer.WithLogger(c.Logger),
	)
	report := runner.Run(ctx, spec, services)

	c.printReport(report)
	c.saveReport(cfg, report)

	var schemaErr error
	if !opts.DryRun {
		schemaErr = c.writeSchema(cfg, spec)
	}

	return report, errors.Join(report.Err(), schemaErr)
}

func (c *Controller) writeSchema(cfg *config.Config, spec *project.Project) error {
	path := cfg.Path(cfg.Schema)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create schema directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(sqlschema.Generate(spec.Records)), 0644); err != nil {
		return fmt.Errorf("failed to write schema: %w", err)
	}

	c.printf("📝 Schema written to %s\n", path)
	return nil
}

// saveReport records the run in the history store. A history failure never
// fails the sync itself.
func (c *Controller) saveReport(cfg *config.Config, report *syncer.Report) {
	store, err := history.Open(cfg.Path(cfg.History))
	if err != nil {
		c.Logger.Warn().Err(err).Msg("failed to open history")
		return
	}
	defer store.Close()

	if err := store.Save(report); err != nil {
		c.Logger.Warn().Err(err).Str("report", report.ID).Msg("failed to save report")
	}
}

func (c *Controller) printReport(report *syncer.Report) {
	for _, o := range report.Outcomes {
		if o.Err != nil {
			c.printf("❌ %s: %v\n", o.Adaptor, o.Err)
			continue
		}

		if report.DryRun {
			c.printf("🔍 %s: would delete %d, insert %d, update %d\n", o.Adaptor, o.Deleted, o.Inserted, o.Updated)
			if o.Plan != nil {
				for _, a := range o.Plan.Actions {
					c.printf("   %s %s %s\n", a.Type, a.Kind, a.Name)
				}
			}
			continue
		}

		c.printf("✅ %s: %d deleted, %d inserted, %d updated (%s)\n",
			o.Adaptor, o.Deleted, o.Inserted, o.Updated, o.Duration.Round(time.Millisecond))
	}

	if failed := report.Failed(); failed > 0 {
		c.printf("⚠️  %d of %d adaptors failed\n", failed, len(report.Outcomes))
	}
}
