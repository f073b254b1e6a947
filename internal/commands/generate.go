package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cdd-platform/cdd/internal/codegen"
	"github.com/cdd-platform/cdd/internal/codegen/sqlschema"
	"github.com/cdd-platform/cdd/internal/config"
)

// StdoutOutput writes generated output to the controller's output.
const StdoutOutput = "-"

type GenerateOptions struct {
	Format string
	// Output is the destination file. Empty means the configured schema file
	// for sql and stdout for every other format.
	Output string
	// Verify checks the generated SQL against an in-memory database.
	Verify bool
}

// Generate renders the canonical project in the requested format without
// touching any adaptor.
func (c *Controller) Generate(ctx context.Context, opts GenerateOptions) error {
	if opts.Format == "" {
		opts.Format = sqlschema.Format
	}
	if opts.Verify && opts.Format != sqlschema.Format {
		return fmt.Errorf("--verify is only supported for the %s format", sqlschema.Format)
	}

	gen, err := codegen.DefaultRegistry.Get(opts.Format)
	if err != nil {
		return err
	}

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	spec, err := c.loadProject(cfg)
	if err != nil {
		return err
	}

	if opts.Verify {
		if err := sqlschema.Verify(ctx, spec.Records); err != nil {
			return fmt.Errorf("schema verification failed: %w", err)
		}
		c.Logger.Info().Int("tables", len(spec.Records)).Msg("schema verified")
	}

	data, err := gen.Generate(spec)
	if err != nil {
		return fmt.Errorf("failed to generate %s: %w", opts.Format, err)
	}

	output := generateOutput(cfg, opts)
	if output == StdoutOutput {
		_, err := c.out().Write(data)
		return err
	}

	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(output, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", output, err)
	}

	c.printf("✅ Generated %s\n", output)
	return nil
}

func generateOutput(cfg *config.Config, opts GenerateOptions) string {
	switch {
	case opts.Output == StdoutOutput:
		return StdoutOutput
	case opts.Output != "":
		return config.ExpandHome(opts.Output)
	case opts.Format == sqlschema.Format:
		return cfg.Path(cfg.Schema)
	default:
		return StdoutOutput
	}
}
