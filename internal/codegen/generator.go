package codegen

import "github.com/cdd-platform/cdd/internal/project"

// Generator is the interface that all output generators must implement
type Generator interface {
	// Generate renders the project and returns the output as bytes
	Generate(p *project.Project) ([]byte, error)

	// Format returns the name of the output format (e.g., "sql", "json")
	Format() string

	// FileExtension returns the file extension for generated files (e.g., ".sql")
	FileExtension() string
}
