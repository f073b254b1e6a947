package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/cdd-platform/cdd/internal/adaptor"
	"github.com/cdd-platform/cdd/internal/config"
)

type RegenerateOptions struct {
	Adaptors []string
}

// Regenerate resets each adaptor's project from its template. Existing files
// are overwritten.
func (c *Controller) Regenerate(ctx context.Context, opts RegenerateOptions) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}

	services, err := cfg.Select(opts.Adaptors)
	if err != nil {
		return err
	}

	filesystem := &osFileSystem{}
	factory := c.clientFactory(cfg)

	var errs []error
	for _, svc := range services {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.regenerate(ctx, filesystem, factory(svc), svc); err != nil {
			c.printf("❌ %s: %v\n", svc.Name, err)
			errs = append(errs, fmt.Errorf("adaptor %s: %w", svc.Name, err))
		}
	}
	return errors.Join(errs...)
}

// regenerate copies the service's template directory into its project, or
// asks the adaptor to create the template when there is none on disk.
func (c *Controller) regenerate(ctx context.Context, filesystem FileSystem, client adaptor.Client, svc config.Service) error {
	logger := c.Logger.With().Str("adaptor", svc.Name).Logger()

	if svc.TemplatePath != "" {
		info, err := filesystem.Stat(svc.TemplatePath)
		switch {
		case err == nil && info.IsDir():
			if err := copyTree(filesystem, os.DirFS(svc.TemplatePath), svc.ProjectPath); err != nil {
				return fmt.Errorf("failed to copy template: %w", err)
			}
			c.printf("✅ %s: copied %s to %s\n", svc.Name, svc.TemplatePath, svc.ProjectPath)
			return nil
		case err == nil:
			return fmt.Errorf("template path %s is not a directory", svc.TemplatePath)
		}
		logger.Debug().Str("template", svc.TemplatePath).Msg("template not found, asking adaptor")
	}

	creator, ok := client.(adaptor.TemplateCreator)
	if !ok {
		return fmt.Errorf("no template at %q and the adaptor cannot create one", svc.TemplatePath)
	}

	out, err := creator.CreateTemplate(ctx)
	if err != nil {
		return err
	}
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line != "" {
			logger.Info().Msg(line)
		}
	}

	c.printf("✅ %s: created template in %s\n", svc.Name, svc.ProjectPath)
	return nil
}
