// Package adaptor talks to the per-language adaptor executables. Every call is
// one subprocess invocation: argv carries the subcommand, the target file and
// an optional payload, stdout carries the result and the exit status decides
// success.
package adaptor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/cdd-platform/cdd/internal/config"
	"github.com/cdd-platform/cdd/internal/project"
)

// Adaptor subcommands.
const (
	CmdListModels     = "list-models"
	CmdListRequests   = "list-requests"
	CmdUpdateModel    = "update-model"
	CmdUpdateRequest  = "update-request"
	CmdDeleteModel    = "delete-model"
	CmdDeleteRequest  = "delete-request"
	CmdCreateTemplate = "create-template"
)

// waitDelay bounds how long a killed adaptor may keep its output pipes open.
const waitDelay = 2 * time.Second

// Client is the protocol spoken with one adaptor. Upserts and deletes return
// the adaptor's raw stdout.
type Client interface {
	Name() string
	ListRecords(ctx context.Context) ([]project.DataRecord, error)
	ListRequests(ctx context.Context) ([]project.Request, error)
	UpsertRecord(ctx context.Context, record project.DataRecord) (string, error)
	UpsertRequest(ctx context.Context, request project.Request) (string, error)
	DeleteRecord(ctx context.Context, name string) (string, error)
	DeleteRequest(ctx context.Context, name string) (string, error)
}

// TemplateCreator is implemented by clients that can bootstrap an empty
// project from the adaptor's own template.
type TemplateCreator interface {
	CreateTemplate(ctx context.Context) (string, error)
}

// ExecClient runs a local adaptor executable.
type ExecClient struct {
	service config.Service
	timeout time.Duration
	logger  zerolog.Logger
}

// NewExecClient creates a client for svc. Each call is bounded by timeout
// when it is positive.
func NewExecClient(svc config.Service, timeout time.Duration, logger zerolog.Logger) *ExecClient {
	return &ExecClient{
		service: svc,
		timeout: timeout,
		logger:  logger.With().Str("component", "adaptor").Str("adaptor", svc.Name).Logger(),
	}
}

func (c *ExecClient) Name() string {
	return c.service.Name
}

func (c *ExecClient) ListRecords(ctx context.Context) ([]project.DataRecord, error) {
	out, err := c.run(ctx, CmdListModels, c.service.RecordFile())
	if err != nil {
		return nil, err
	}
	return decodeList[project.DataRecord](c.Name(), CmdListModels, out)
}

func (c *ExecClient) ListRequests(ctx context.Context) ([]project.Request, error) {
	out, err := c.run(ctx, CmdListRequests, c.service.RequestFile())
	if err != nil {
		return nil, err
	}
	return decodeList[project.Request](c.Name(), CmdListRequests, out)
}

func (c *ExecClient) UpsertRecord(ctx context.Context, record project.DataRecord) (string, error) {
	payload, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("failed to encode record %s: %w", record.Name, err)
	}
	return c.run(ctx, CmdUpdateModel, c.service.RecordFile(), string(payload))
}

func (c *ExecClient) UpsertRequest(ctx context.Context, request project.Request) (string, error) {
	payload, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to encode request %s: %w", request.Name, err)
	}
	return c.run(ctx, CmdUpdateRequest, c.service.RequestFile(), string(payload))
}

func (c *ExecClient) DeleteRecord(ctx context.Context, name string) (string, error) {
	return c.run(ctx, CmdDeleteModel, c.service.RecordFile(), name)
}

func (c *ExecClient) DeleteRequest(ctx context.Context, name string) (string, error) {
	return c.run(ctx, CmdDeleteRequest, c.service.RequestFile(), name)
}

// CreateTemplate asks the adaptor to write its template into the project path.
func (c *ExecClient) CreateTemplate(ctx context.Context) (string, error) {
	return c.run(ctx, CmdCreateTemplate, c.service.ProjectPath)
}

// executable locates the adaptor binary. Bare names are looked up in PATH.
func (c *ExecClient) executable() (string, error) {
	path := config.ExpandHome(c.service.BinPath)
	if path == "" {
		return "", errors.New("no bin_path configured")
	}

	if !strings.ContainsRune(path, os.PathSeparator) && !strings.Contains(path, "/") {
		return exec.LookPath(path)
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", path)
	}
	return path, nil
}

func (c *ExecClient) run(ctx context.Context, subcommand string, args ...string) (string, error) {
	bin, err := c.executable()
	if err != nil {
		return "", &Error{
			Kind:       ErrNotFound,
			Adaptor:    c.Name(),
			Subcommand: subcommand,
			Path:       c.service.BinPath,
			Err:        err,
		}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, bin, append([]string{subcommand}, args...)...)
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	c.logger.Debug().Str("subcommand", subcommand).Str("target", args[0]).Msg("running adaptor")

	err = cmd.Run()
	c.logger.Debug().
		Str("subcommand", subcommand).
		Dur("duration", time.Since(start)).
		Err(err).
		Msg("adaptor finished")

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w: %w", ctxErr, err)
		}
		return "", &Error{
			Kind:       ErrProcessFailed,
			Adaptor:    c.Name(),
			Subcommand: subcommand,
			Stderr:     stderr.String(),
			Err:        err,
		}
	}

	return stdout.String(), nil
}

// decodeList checks that out is a JSON array of named entities before
// decoding it.
func decodeList[T any](adaptorName, subcommand, out string) ([]T, error) {
	malformed := func(cause error) error {
		return &Error{
			Kind:       ErrMalformedResponse,
			Adaptor:    adaptorName,
			Subcommand: subcommand,
			Raw:        out,
			Err:        cause,
		}
	}

	trimmed := strings.TrimSpace(out)
	if !gjson.Valid(trimmed) {
		return nil, malformed(errors.New("output is not valid JSON"))
	}

	result := gjson.Parse(trimmed)
	if !result.IsArray() {
		return nil, malformed(fmt.Errorf("expected a JSON array, got %s", result.Type))
	}

	var invalid error
	for i, entry := range result.Array() {
		if name := entry.Get("name"); name.Type != gjson.String || name.Str == "" {
			invalid = fmt.Errorf("entry %d has no name", i)
			break
		}
	}
	if invalid != nil {
		return nil, malformed(invalid)
	}

	items := make([]T, 0)
	if err := json.Unmarshal([]byte(trimmed), &items); err != nil {
		return nil, malformed(err)
	}
	return items, nil
}
