package adaptor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cdd-platform/cdd/internal/config"
	"github.com/cdd-platform/cdd/internal/project"
)

// fakeAdaptor answers every subcommand and appends its argv, one argument per
// line followed by "--", to the calls file.
const fakeAdaptor = `#!/bin/sh
for arg in "$@"; do echo "$arg" >> "%CALLS%"; done
echo "--" >> "%CALLS%"
case "$1" in
  list-models)
    echo '[{"name":"User","fields":[{"name":"id","type":"Int","optional":false,"value":null},{"name":"pets","type":{"Array":{"Complex":"Pet"}},"optional":true,"value":null}]}]'
    ;;
  list-requests)
    echo '[{"name":"usersgetrequest","path":"/users","fields":[],"method":"GET","response_type":"[User]","error_type":"ResponseEmpty"}]'
    ;;
  update-model|update-request)
    echo "updated $2"
    ;;
  delete-model|delete-request)
    echo "deleted $3"
    ;;
  create-template)
    echo "template in $2"
    ;;
  *)
    echo "unknown subcommand $1" >&2
    exit 2
    ;;
esac
`

func skipWithoutShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake adaptors are shell scripts")
	}
}

func writeScript(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "cdd-fake")
	require.NoError(t, os.WriteFile(path, []byte(body), 0755))
	return path
}

func newFake(t *testing.T) (*ExecClient, string) {
	t.Helper()
	skipWithoutShell(t)

	dir := t.TempDir()
	calls := filepath.Join(dir, "calls.log")
	bin := writeScript(t, dir, strings.ReplaceAll(fakeAdaptor, "%CALLS%", calls))

	svc := config.Service{
		Name:          "fake",
		BinPath:       bin,
		ProjectPath:   filepath.Join(dir, "project"),
		ComponentFile: "models.txt",
		RequestsFile:  "requests.txt",
	}
	return NewExecClient(svc, 5*time.Second, zerolog.Nop()), calls
}

// readCalls returns the recorded invocations as argv slices.
func readCalls(t *testing.T, path string) [][]string {
	t.Helper()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)

	var calls [][]string
	var current []string
	for _, line := range strings.Split(strings.TrimSuffix(string(data), "\n"), "\n") {
		if line == "--" {
			calls = append(calls, current)
			current = nil
			continue
		}
		current = append(current, line)
	}
	return calls
}

func TestExecClient_List(t *testing.T) {
	// Test plan:
	// - list-models decodes records including nested field types
	// - list-requests decodes requests
	// - argv is [subcommand, project_path/target_file]

	client, calls := newFake(t)
	ctx := context.Background()

	records, err := client.ListRecords(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "User", records[0].Name)
	assert.Equal(t, project.ArrayOf(project.ComplexType("Pet")), records[0].Fields[1].Type)
	assert.True(t, records[0].Fields[1].Optional)

	requests, err := client.ListRequests(ctx)
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, project.MethodGet, requests[0].Method)
	assert.Equal(t, "[User]", requests[0].ResponseType)

	got := readCalls(t, calls)
	require.Len(t, got, 2)
	assert.Equal(t, []string{CmdListModels, client.service.RecordFile()}, got[0])
	assert.Equal(t, []string{CmdListRequests, client.service.RequestFile()}, got[1])
}

func TestExecClient_Directives(t *testing.T) {
	// Test plan:
	// - Upserts pass the JSON encoding of the entity as the third argument
	// - Deletes pass the bare name
	// - stdout is returned verbatim

	client, calls := newFake(t)
	ctx := context.Background()

	record := project.DataRecord{Name: "Pet", Fields: []project.Field{{Name: "id", Type: project.IntType()}}}
	out, err := client.UpsertRecord(ctx, record)
	require.NoError(t, err)
	assert.Equal(t, "updated "+client.service.RecordFile()+"\n", out)

	request := project.Request{Name: "petsgetrequest", Path: "/pets", Method: project.MethodGet, ResponseType: "Pet", ErrorType: project.ResponseEmpty}
	_, err = client.UpsertRequest(ctx, request)
	require.NoError(t, err)

	out, err = client.DeleteRecord(ctx, "Old")
	require.NoError(t, err)
	assert.Equal(t, "deleted Old\n", out)

	_, err = client.DeleteRequest(ctx, "oldgetrequest")
	require.NoError(t, err)

	out, err = client.CreateTemplate(ctx)
	require.NoError(t, err)
	assert.Equal(t, "template in "+client.service.ProjectPath+"\n", out)

	got := readCalls(t, calls)
	require.Len(t, got, 5)
	assert.Equal(t, CmdUpdateModel, got[0][0])
	assert.JSONEq(t, `{"name":"Pet","fields":[{"name":"id","type":"Int","optional":false,"value":null}]}`, got[0][2])
	assert.Equal(t, CmdUpdateRequest, got[1][0])
	assert.Equal(t, client.service.RequestFile(), got[1][1])
	assert.Contains(t, got[1][2], `"method":"GET"`)
	assert.Equal(t, []string{CmdDeleteModel, client.service.RecordFile(), "Old"}, got[2])
	assert.Equal(t, []string{CmdDeleteRequest, client.service.RequestFile(), "oldgetrequest"}, got[3])
	assert.Equal(t, []string{CmdCreateTemplate, client.service.ProjectPath}, got[4])
}

func TestExecClient_NotFound(t *testing.T) {
	// Test: a missing executable fails before any process is started
	dir := t.TempDir()

	tests := []struct {
		name string
		bin  string
	}{
		{"missing file", filepath.Join(dir, "nope")},
		{"directory", dir},
		{"not in PATH", "cdd-adaptor-that-does-not-exist"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewExecClient(config.Service{Name: "ghost", BinPath: tt.bin}, time.Second, zerolog.Nop())

			_, err := client.ListRecords(context.Background())
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrNotFound))
			assert.False(t, errors.Is(err, ErrProcessFailed))

			var adaptorErr *Error
			require.True(t, errors.As(err, &adaptorErr))
			assert.Equal(t, "ghost", adaptorErr.Adaptor)
			assert.Contains(t, err.Error(), "ghost")
		})
	}
}

func TestExecClient_ProcessFailed(t *testing.T) {
	skipWithoutShell(t)
	bin := writeScript(t, t.TempDir(), "#!/bin/sh\necho partial\necho \"cannot parse $2\" >&2\nexit 3\n")
	client := NewExecClient(config.Service{Name: "broken", BinPath: bin, ProjectPath: "/p", ComponentFile: "m.rs"}, time.Second, zerolog.Nop())

	_, err := client.UpsertRecord(context.Background(), project.DataRecord{Name: "User"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrProcessFailed))

	var adaptorErr *Error
	require.True(t, errors.As(err, &adaptorErr))
	assert.Equal(t, "cannot parse /p/m.rs\n", adaptorErr.Stderr)
	assert.Equal(t, CmdUpdateModel, adaptorErr.Subcommand)
	assert.Contains(t, err.Error(), "cannot parse /p/m.rs")
}

func TestExecClient_Timeout(t *testing.T) {
	skipWithoutShell(t)
	bin := writeScript(t, t.TempDir(), "#!/bin/sh\nexec sleep 10\n")
	client := NewExecClient(config.Service{Name: "slow", BinPath: bin, ProjectPath: "/p"}, 100*time.Millisecond, zerolog.Nop())

	start := time.Now()
	_, err := client.DeleteRecord(context.Background(), "User")
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)

	assert.True(t, errors.Is(err, ErrProcessFailed))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestExecClient_MalformedResponse(t *testing.T) {
	skipWithoutShell(t)

	tests := []struct {
		name   string
		output string
	}{
		{"not json", "models: User"},
		{"empty", ""},
		{"object", `{"name":"User","fields":[]}`},
		{"entry without name", `[{"fields":[]}]`},
		{"scalar entry", `[1, 2]`},
		{"bad field type", `[{"name":"User","fields":[{"name":"id","type":{"Map":"Int"}}]}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bin := writeScript(t, t.TempDir(), "#!/bin/sh\ncat <<'EOF'\n"+tt.output+"\nEOF\n")
			client := NewExecClient(config.Service{Name: "odd", BinPath: bin, ProjectPath: "/p"}, time.Second, zerolog.Nop())

			_, err := client.ListRecords(context.Background())
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedResponse))

			var adaptorErr *Error
			require.True(t, errors.As(err, &adaptorErr))
			assert.Equal(t, tt.output+"\n", adaptorErr.Raw)
			assert.NotNil(t, adaptorErr.Err)
		})
	}
}

func TestExecClient_EmptyList(t *testing.T) {
	skipWithoutShell(t)
	bin := writeScript(t, t.TempDir(), "#!/bin/sh\necho '[]'\n")
	client := NewExecClient(config.Service{Name: "empty", BinPath: bin}, 0, zerolog.Nop())

	records, err := client.ListRecords(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}
