package golang

import (
	"fmt"
	"go/format"
	"strconv"
	"unicode"

	"github.com/cdd-platform/cdd/internal/codegen/writer"
	"github.com/cdd-platform/cdd/internal/project"
)

// Format is the registry name of this generator.
const Format = "go"

// Generator generates Go types from the canonical project: a struct per
// record, a struct per request and a Client interface with one method per
// request.
type Generator struct {
	packageName string
}

// NewGenerator creates a new Go code generator
func NewGenerator(packageName string) *Generator {
	if packageName == "" {
		packageName = "api"
	}
	return &Generator{packageName: packageName}
}

// Format returns the registry name of the generator
func (g *Generator) Format() string {
	return Format
}

// FileExtension returns the file extension for generated files
func (g *Generator) FileExtension() string {
	return ".go"
}

// Generate generates gofmt-formatted Go source for p
func (g *Generator) Generate(p *project.Project) ([]byte, error) {
	w := writer.NewWriter("\t")
	s := newScope(p)

	w.WriteLine("// Code generated by cdd. DO NOT EDIT.")
	w.BlankLine()
	w.WriteLinef("package %s", g.packageName)
	w.BlankLine()

	if len(p.Requests) > 0 {
		w.WriteLine(`import "context"`)
		w.BlankLine()
	}

	if p.Info.Host != "" {
		w.WriteLine("// BaseURL is the server the API is served from.")
		w.WriteLinef("const BaseURL = %s", strconv.Quote(p.Info.Host+p.Info.Endpoint))
		w.BlankLine()
	}

	for _, r := range p.Records {
		g.generateStruct(w, s, s.records[r.Name], r.Fields)
		w.BlankLine()
	}

	for i, r := range p.Requests {
		w.WriteLinef("// %s holds the parameters of %s %s.", s.requests[i], r.Method, r.Path)
		g.generateStruct(w, s, s.requests[i], r.Fields)
		w.BlankLine()
	}

	if len(p.Requests) > 0 {
		if err := g.generateClient(w, s, p.Requests); err != nil {
			return nil, err
		}
	}

	src, err := format.Source(w.Bytes())
	if err != nil {
		return nil, fmt.Errorf("failed to format generated code: %w", err)
	}
	return src, nil
}

// scope holds the Go names of one generated file. Names that collide after
// conversion get a numeric suffix.
type scope struct {
	records  map[string]string // record name -> Go type
	requests []string          // request index -> Go type
}

func newScope(p *project.Project) *scope {
	used := make(map[string]bool)
	if len(p.Requests) > 0 {
		used[clientInterface] = true
	}
	if p.Info.Host != "" {
		used["BaseURL"] = true
	}

	s := &scope{
		records:  make(map[string]string, len(p.Records)),
		requests: make([]string, len(p.Requests)),
	}
	for _, r := range p.Records {
		s.records[r.Name] = unique(used, exportedName(r.Name))
	}
	for i, r := range p.Requests {
		s.requests[i] = unique(used, requestType(r))
	}
	return s
}

// unique returns name, or name with the lowest free suffix from 2 on, and
// marks the result used.
func unique(used map[string]bool, name string) string {
	candidate := name
	for n := 2; used[candidate]; n++ {
		candidate = name + strconv.Itoa(n)
	}
	used[candidate] = true
	return candidate
}

// generateStruct generates a Go struct for a record or request
func (g *Generator) generateStruct(w *writer.Writer, s *scope, name string, fields []project.Field) {
	w.WriteBlock(fmt.Sprintf("type %s struct {", name), "}", func() {
		used := make(map[string]bool, len(fields))
		for _, f := range fields {
			goName := unique(used, exportedName(f.Name))
			w.WriteLinef("%s %s `json:\"%s\"`", goName, s.fieldType(f), jsonTag(f))
		}
	})
}

const clientInterface = "Client"

// generateClient generates the Client interface every request is a method of
func (g *Generator) generateClient(w *writer.Writer, s *scope, requests []project.Request) error {
	used := make(map[string]bool, len(requests))
	methods := make([]string, 0, len(requests))
	for i, r := range requests {
		response, err := s.responseType(r.ResponseType)
		if err != nil {
			return fmt.Errorf("request %s: %w", r.Name, err)
		}
		results := "error"
		if response != "" {
			results = fmt.Sprintf("(%s, error)", response)
		}
		methods = append(methods, fmt.Sprintf("%s(ctx context.Context, req *%s) %s",
			unique(used, exportedName(r.Operation())), s.requests[i], results))
	}

	w.WriteLine("// Client performs the requests of the API.")
	w.WriteBlock(fmt.Sprintf("type %s interface {", clientInterface), "}", func() {
		for _, m := range methods {
			w.WriteLine(m)
		}
	})
	return nil
}

func requestType(r project.Request) string {
	return exportedName(r.Operation()) + "Request"
}

// typeName converts a record name to the Go type declared for it
func (s *scope) typeName(name string) string {
	if name == project.InlineObject {
		return "map[string]any"
	}
	if goName, ok := s.records[name]; ok {
		return goName
	}
	return exportedName(name)
}

// exportedName converts a field or record name to an exported Go name
func exportedName(name string) string {
	s := writer.PascalCase(name)
	if s == "" || !unicode.IsLetter([]rune(s)[0]) {
		s = "X" + s
	}
	return s
}

// goType maps canonical field types to Go types
func (s *scope) goType(t project.FieldType) string {
	switch t.Kind {
	case project.KindString:
		return "string"
	case project.KindInt:
		return "int64"
	case project.KindFloat:
		return "float64"
	case project.KindBool:
		return "bool"
	case project.KindArray:
		if t.Elem == nil {
			return "[]any"
		}
		return "[]" + s.goType(*t.Elem)
	case project.KindComplex:
		return s.typeName(t.Name)
	}
	return "any"
}

// fieldType is goType with records as pointers, so records may refer to
// themselves, and optional scalars as pointers. Slices and maps already have
// a nil state.
func (s *scope) fieldType(f project.Field) string {
	typ := s.goType(f.Type)
	switch {
	case f.Type.Kind == project.KindComplex && f.Type.Name != project.InlineObject:
		return "*" + typ
	case f.Optional && f.Type.IsScalar():
		return "*" + typ
	}
	return typ
}

// responseType maps a response type name to a method result, "" for none
func (s *scope) responseType(name string) (string, error) {
	if name == "" || name == project.ResponseEmpty {
		return "", nil
	}
	t, err := project.ParseFieldType(name)
	if err != nil {
		return "", err
	}
	if t.Kind == project.KindComplex && t.Name != project.InlineObject {
		return "*" + s.goType(t), nil
	}
	return s.goType(t), nil
}

// jsonTag generates the JSON struct tag value
func jsonTag(f project.Field) string {
	tag := f.Name
	if f.Optional {
		tag += ",omitempty"
	}
	return tag
}
