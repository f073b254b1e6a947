// Package commands contains the CLI commands for the application
package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/cdd-platform/cdd/internal/adaptor"
	"github.com/cdd-platform/cdd/internal/config"
	"github.com/cdd-platform/cdd/internal/extract"
	"github.com/cdd-platform/cdd/internal/openapi"
	"github.com/cdd-platform/cdd/internal/project"
	"github.com/cdd-platform/cdd/internal/syncer"
)

type Flags struct {
	ConfigPath string
	LogLevel   string
	Verbosity  int
	LogFile    string
}

type Controller struct {
	Flags  *Flags
	Logger zerolog.Logger

	// Out receives command output. Defaults to stdout.
	Out io.Writer

	// ClientFactory builds adaptor clients. Defaults to local executables.
	ClientFactory syncer.ClientFactory
}

func (c *Controller) out() io.Writer {
	if c.Out == nil {
		return os.Stdout
	}
	return c.Out
}

func (c *Controller) printf(format string, args ...any) {
	fmt.Fprintf(c.out(), format, args...)
}

// loadConfig reads --config when given, otherwise searches upwards from the
// working directory.
func (c *Controller) loadConfig() (*config.Config, error) {
	if c.Flags != nil && c.Flags.ConfigPath != "" {
		cfg, err := config.LoadConfigFromPath(c.Flags.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load project config: %w", err)
		}
		return cfg, nil
	}

	cfg, _, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load project config: %w", err)
	}
	return cfg, nil
}

// loadProject extracts the canonical project from the configured spec.
func (c *Controller) loadProject(cfg *config.Config) (*project.Project, error) {
	path := cfg.Path(cfg.OpenAPI)
	doc, err := openapi.Load(path)
	if err != nil {
		return nil, err
	}

	p, err := extract.New(c.Logger).Extract(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to extract %s: %w", path, err)
	}

	c.Logger.Info().
		Str("spec", path).
		Int("records", len(p.Records)).
		Int("requests", len(p.Requests)).
		Msg("specification loaded")
	return p, nil
}

func (c *Controller) clientFactory(cfg *config.Config) syncer.ClientFactory {
	if c.ClientFactory != nil {
		return c.ClientFactory
	}
	return func(svc config.Service) adaptor.Client {
		return adaptor.NewExecClient(svc, cfg.Timeout, c.Logger)
	}
}
