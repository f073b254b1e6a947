package commands

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/cdd-platform/cdd/internal/adaptor"
	"github.com/cdd-platform/cdd/internal/config"
	"github.com/cdd-platform/cdd/internal/ordered"
	"github.com/cdd-platform/cdd/internal/project"
)

const petsSpec = `openapi: 3.0.0
servers:
  - url: http://localhost:8080/api
paths:
  /pets:
    get:
      responses:
        "200":
          description: ok
          content:
            application/json:
              schema:
                $ref: "#/components/schemas/Pet"
components:
  schemas:
    Pet:
      type: object
      required: [id]
      properties:
        id:
          type: integer
        name:
          type: string
`

// memoryAdaptor is an adaptor.Client keeping its project in memory.
type memoryAdaptor struct {
	mu       sync.Mutex
	name     string
	records  []project.DataRecord
	requests []project.Request
	listErr  error
}

func (m *memoryAdaptor) Name() string { return m.name }

func (m *memoryAdaptor) ListRecords(ctx context.Context) ([]project.DataRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	return slices.Clone(m.records), nil
}

func (m *memoryAdaptor) ListRequests(ctx context.Context) ([]project.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.requests), nil
}

func (m *memoryAdaptor) UpsertRecord(ctx context.Context, record project.DataRecord) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = upsert(m.records, record, func(r project.DataRecord) string { return r.Name })
	return "upserted " + record.Name, nil
}

func (m *memoryAdaptor) UpsertRequest(ctx context.Context, request project.Request) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = upsert(m.requests, request, func(r project.Request) string { return r.Name })
	return "upserted " + request.Name, nil
}

func (m *memoryAdaptor) DeleteRecord(ctx context.Context, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = slices.DeleteFunc(m.records, func(r project.DataRecord) bool { return r.Name == name })
	return "", nil
}

func (m *memoryAdaptor) DeleteRequest(ctx context.Context, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = slices.DeleteFunc(m.requests, func(r project.Request) bool { return r.Name == name })
	return "", nil
}

func (m *memoryAdaptor) recordNames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.records))
	for _, r := range m.records {
		names = append(names, r.Name)
	}
	return names
}

func (m *memoryAdaptor) requestNames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.requests))
	for _, r := range m.requests {
		names = append(names, r.Name)
	}
	return names
}

func upsert[T any](items []T, item T, name func(T) string) []T {
	for i := range items {
		if name(items[i]) == name(item) {
			items[i] = item
			return items
		}
	}
	return append(items, item)
}

// syncBuffer is a bytes.Buffer safe for a command writing on another goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// newWorkspace writes a cdd.yml declaring services (in order) and the given
// spec, and returns the config path.
func newWorkspace(t *testing.T, spec string, services ...string) string {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default(filepath.Base(dir))
	cfg.Services = ordered.Map[config.Service]{}
	for _, name := range services {
		cfg.Services.Set(name, config.Service{
			BinPath:       "cdd-" + name,
			TemplatePath:  filepath.Join("templates", name),
			ProjectPath:   name,
			ComponentFile: "models",
			RequestsFile:  "requests",
		})
	}

	path := filepath.Join(dir, config.FileName)
	require.NoError(t, cfg.Write(path))
	require.NoError(t, os.WriteFile(filepath.Join(dir, cfg.OpenAPI), []byte(spec), 0644))
	return path
}

// adaptors builds one memoryAdaptor per name and a factory serving them.
func adaptors(names ...string) (map[string]*memoryAdaptor, func(config.Service) adaptor.Client) {
	byName := make(map[string]*memoryAdaptor, len(names))
	for _, name := range names {
		byName[name] = &memoryAdaptor{name: name}
	}
	return byName, func(svc config.Service) adaptor.Client {
		a, ok := byName[svc.Name]
		if !ok {
			panic(fmt.Sprintf("no adaptor %s", svc.Name))
		}
		return a
	}
}

func newController(configPath string, factory func(config.Service) adaptor.Client) (*Controller, *syncBuffer) {
	out := &syncBuffer{}
	return &Controller{
		Flags:         &Flags{ConfigPath: configPath},
		Logger:        zerolog.Nop(),
		Out:           out,
		ClientFactory: factory,
	}, out
}
