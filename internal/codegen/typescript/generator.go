package typescript

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/cdd-platform/cdd/internal/codegen/writer"
	"github.com/cdd-platform/cdd/internal/project"
)

// Format is the registry name of this generator.
const Format = "typescript"

// Generator generates TypeScript declarations from the canonical project:
// an interface per record, a parameter interface per request and an abstract
// client with one method per request.
type Generator struct {
	clientName string
}

// NewGenerator creates a new TypeScript generator
func NewGenerator() *Generator {
	return &Generator{clientName: "ApiClient"}
}

// Format returns the registry name of the generator
func (g *Generator) Format() string {
	return Format
}

// FileExtension returns the file extension for generated files
func (g *Generator) FileExtension() string {
	return ".ts"
}

// Generate generates TypeScript declarations for p
func (g *Generator) Generate(p *project.Project) ([]byte, error) {
	w := writer.NewWriter("  ") // TypeScript typically uses 2 spaces

	wrote := false
	section := func() {
		if wrote {
			w.BlankLine()
		}
		wrote = true
	}

	if p.Info.Host != "" {
		section()
		w.WriteLinef("export const BASE_URL = %q;", p.Info.Host+p.Info.Endpoint)
	}

	for _, r := range p.Records {
		section()
		g.generateRecord(w, r)
	}

	for _, r := range p.Requests {
		section()
		g.generateRequest(w, r)
	}

	if len(p.Requests) > 0 {
		section()
		if err := g.generateClient(w, p.Requests); err != nil {
			return nil, err
		}
	}

	return w.Bytes(), nil
}

func (g *Generator) generateRecord(w *writer.Writer, r project.DataRecord) {
	w.WriteBlock(fmt.Sprintf("export interface %s {", writer.PascalCase(r.Name)), "}", func() {
		g.generateFields(w, r.Fields)
	})
}

func (g *Generator) generateRequest(w *writer.Writer, r project.Request) {
	w.WriteLinef("/** %s %s */", r.Method, r.Path)
	w.WriteBlock(fmt.Sprintf("export interface %s {", requestType(r)), "}", func() {
		g.generateFields(w, r.Fields)
	})
}

func (g *Generator) generateFields(w *writer.Writer, fields []project.Field) {
	for _, f := range fields {
		optional := ""
		if f.Optional {
			optional = "?"
		}
		if f.Value != nil {
			w.WriteLinef("/** @default %s */", *f.Value)
		}
		w.WriteLinef("%s%s: %s;", propertyName(f.Name), optional, tsType(f.Type))
	}
}

// generateClient writes the abstract client every request is a method of.
func (g *Generator) generateClient(w *writer.Writer, requests []project.Request) error {
	methods := make([]string, 0, len(requests))
	for _, r := range requests {
		response, err := bodyType(r.ResponseType)
		if err != nil {
			return fmt.Errorf("request %s: %w", r.Name, err)
		}
		methods = append(methods, fmt.Sprintf("abstract %s(request: %s): Promise<%s>;",
			writer.CamelCase(r.Operation()), requestType(r), response))
	}

	w.WriteBlock(fmt.Sprintf("export abstract class %s {", g.clientName), "}", func() {
		for _, m := range methods {
			w.WriteLine(m)
		}
	})
	return nil
}

var identifier = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// propertyName quotes names that are not valid identifiers.
func propertyName(name string) string {
	if identifier.MatchString(name) {
		return name
	}
	return strconv.Quote(name)
}

// requestType names the parameter interface of r, e.g. "PetsIdGetRequest".
func requestType(r project.Request) string {
	return writer.PascalCase(r.Operation()) + "Request"
}

// bodyType maps a response or error type name to a TypeScript type.
func bodyType(name string) (string, error) {
	if name == "" || name == project.ResponseEmpty {
		return "void", nil
	}
	t, err := project.ParseFieldType(name)
	if err != nil {
		return "", err
	}
	return tsType(t), nil
}

// tsType maps canonical field types to TypeScript types
func tsType(t project.FieldType) string {
	switch t.Kind {
	case project.KindString:
		return "string"
	case project.KindInt, project.KindFloat:
		return "number"
	case project.KindBool:
		return "boolean"
	case project.KindArray:
		if t.Elem == nil {
			return "unknown[]"
		}
		return tsType(*t.Elem) + "[]"
	case project.KindComplex:
		if t.Name == project.InlineObject {
			return "Record<string, unknown>"
		}
		return writer.PascalCase(t.Name)
	}
	return "unknown"
}
