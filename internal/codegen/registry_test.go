package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cdd-platform/cdd/internal/project"
)

// mockGenerator is a test generator
type mockGenerator struct {
	format string
}

func (m *mockGenerator) Generate(p *project.Project) ([]byte, error) {
	return []byte("mock output"), nil
}

func (m *mockGenerator) Format() string {
	return m.format
}

func (m *mockGenerator) FileExtension() string {
	return ".mock"
}

func TestRegistry_NewRegistry(t *testing.T) {
	// Test: New registry is empty by default
	r := NewRegistry()
	assert.NotNil(t, r)
	assert.Empty(t, r.Formats())

	_, err := r.Get("unknown")
	assert.Error(t, err)
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	r.Register("mock", func() Generator {
		return &mockGenerator{format: "mock"}
	})

	gen, err := r.Get("mock")
	require.NoError(t, err)
	assert.Equal(t, "mock", gen.Format())

	out, err := gen.Generate(&project.Project{})
	require.NoError(t, err)
	assert.Equal(t, "mock output", string(out))
}

func TestRegistry_UnsupportedFormat(t *testing.T) {
	r := NewRegistry()

	gen, err := r.Get("protobuf")
	assert.ErrorContains(t, err, "unsupported format: protobuf")
	assert.Nil(t, gen)
}

func TestDefaultRegistry(t *testing.T) {
	// Test: Default registry has the built-in formats
	assert.Equal(t, []string{"go", "json", "sql", "typescript"}, DefaultRegistry.Formats())

	sqlGen, err := DefaultRegistry.Get("sql")
	require.NoError(t, err)
	assert.Equal(t, ".sql", sqlGen.FileExtension())

	jsonGen, err := DefaultRegistry.Get("json")
	require.NoError(t, err)
	assert.Equal(t, ".json", jsonGen.FileExtension())

	tsGen, err := DefaultRegistry.Get("typescript")
	require.NoError(t, err)
	assert.Equal(t, ".ts", tsGen.FileExtension())

	goGen, err := DefaultRegistry.Get("go")
	require.NoError(t, err)
	assert.Equal(t, ".go", goGen.FileExtension())

	p := &project.Project{Records: []project.DataRecord{{Name: "Tag"}}}
	out, err := sqlGen.Generate(p)
	require.NoError(t, err)
	assert.Equal(t, "CREATE TABLE tag;\n", string(out))
}
