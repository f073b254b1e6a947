// Package jsonmodel exports the canonical project in the JSON form adaptors
// receive.
package jsonmodel

import (
	"encoding/json"
	"fmt"

	"github.com/cdd-platform/cdd/internal/project"
)

// Format is the registry name of this generator.
const Format = "json"

// Generator implements codegen.Generator for the JSON model
type Generator struct {
	indent string
}

// NewGenerator creates a generator that indents with two spaces
func NewGenerator() *Generator {
	return &Generator{indent: "  "}
}

func (g *Generator) Generate(p *project.Project) ([]byte, error) {
	data, err := json.MarshalIndent(p, "", g.indent)
	if err != nil {
		return nil, fmt.Errorf("failed to encode project: %w", err)
	}
	return append(data, '\n'), nil
}

func (g *Generator) Format() string {
	return Format
}

func (g *Generator) FileExtension() string {
	return ".json"
}
