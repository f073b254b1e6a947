package commands

import (
	"context"
	"time"

	"github.com/cdd-platform/cdd/internal/history"
)

// DefaultHistoryLimit is how many reports history shows without --limit.
const DefaultHistoryLimit = 10

type HistoryOptions struct {
	// Limit caps the number of reports; zero or less shows all.
	Limit int
}

// History prints past sync reports, newest first.
func (c *Controller) History(ctx context.Context, opts HistoryOptions) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}

	store, err := history.Open(cfg.Path(cfg.History))
	if err != nil {
		return err
	}
	defer store.Close()

	reports, err := store.List(opts.Limit)
	if err != nil {
		return err
	}

	if len(reports) == 0 {
		c.printf("No sync history yet\n")
		return nil
	}

	for _, r := range reports {
		status := "✅"
		if r.Failed() > 0 {
			status = "❌"
		}
		mode := ""
		if r.DryRun {
			mode = " (dry run)"
		}
		c.printf("%s %s %s%s, %s\n", status, r.StartedAt.Local().Format(time.DateTime), r.ID, mode, r.Duration.Round(time.Millisecond))

		for _, o := range r.Outcomes {
			if o.Error != "" {
				c.printf("   %s: %s\n", o.Adaptor, o.Error)
				continue
			}
			c.printf("   %s: %d deleted, %d inserted, %d updated\n", o.Adaptor, o.Deleted, o.Inserted, o.Updated)
		}
	}
	return nil
}
