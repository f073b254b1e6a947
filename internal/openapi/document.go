// Package openapi decodes OpenAPI-shaped specification documents (YAML or
// JSON) into closed Go structs. Only the parts needed to extract records and
// requests are modeled; everything else is ignored.
package openapi

import (
	"fmt"
	"os"
	"strings"

	"github.com/cdd-platform/cdd/internal/ordered"
	"gopkg.in/yaml.v3"
)

// SchemaRefPrefix is the local reference prefix for component schemas.
const SchemaRefPrefix = "#/components/schemas/"

// Document is the root of a specification document.
type Document struct {
	OpenAPI    string                 `yaml:"openapi"`
	Info       Info                   `yaml:"info"`
	Servers    []Server               `yaml:"servers"`
	Paths      ordered.Map[*PathItem] `yaml:"paths"`
	Components Components             `yaml:"components"`
}

// Info is the document's info block.
type Info struct {
	Title       string `yaml:"title"`
	Version     string `yaml:"version"`
	Description string `yaml:"description"`
}

// Server is one entry of the servers list.
type Server struct {
	URL         string `yaml:"url"`
	Description string `yaml:"description"`
}

// Components holds the reusable objects that references point into.
type Components struct {
	Schemas    ordered.Map[*Schema]    `yaml:"schemas"`
	Responses  ordered.Map[*Response]  `yaml:"responses"`
	Parameters ordered.Map[*Parameter] `yaml:"parameters"`
}

// Schema is a schema object or a reference to one.
type Schema struct {
	Ref         string               `yaml:"$ref"`
	Type        Types                `yaml:"type"`
	Format      string               `yaml:"format"`
	Description string               `yaml:"description"`
	Items       *Schema              `yaml:"items"`
	Properties  ordered.Map[*Schema] `yaml:"properties"`
	Required    []string             `yaml:"required"`
	OneOf       []*Schema            `yaml:"oneOf"`
	AnyOf       []*Schema            `yaml:"anyOf"`
	AllOf       []*Schema            `yaml:"allOf"`
	Enum        []any                `yaml:"enum"`
	Default     any                  `yaml:"default"`
	Example     any                  `yaml:"example"`
	Nullable    bool                 `yaml:"nullable"`
}

// IsRef reports whether the schema is a reference.
func (s *Schema) IsRef() bool {
	return s != nil && s.Ref != ""
}

// IsComposite reports whether the schema is a oneOf/anyOf/allOf union.
func (s *Schema) IsComposite() bool {
	return len(s.OneOf) > 0 || len(s.AnyOf) > 0 || len(s.AllOf) > 0
}

// IsRequired reports whether property name is listed in required.
func (s *Schema) IsRequired(name string) bool {
	for _, r := range s.Required {
		if r == name {
			return true
		}
	}
	return false
}

// PathItem holds the operations available on one path.
type PathItem struct {
	Ref        string       `yaml:"$ref"`
	Parameters []*Parameter `yaml:"parameters"`
	Get        *Operation   `yaml:"get"`
	Post       *Operation   `yaml:"post"`
	Put        *Operation   `yaml:"put"`
	Delete     *Operation   `yaml:"delete"`
	Options    *Operation   `yaml:"options"`
	Head       *Operation   `yaml:"head"`
	Patch      *Operation   `yaml:"patch"`
	Trace      *Operation   `yaml:"trace"`
}

// MethodOperation pairs an upper-case HTTP verb with its operation.
type MethodOperation struct {
	Method    string
	Operation *Operation
}

// Operations returns the declared operations in the fixed order
// GET, POST, PUT, DELETE, OPTIONS, HEAD, PATCH, TRACE.
func (p *PathItem) Operations() []MethodOperation {
	all := []MethodOperation{
		{"GET", p.Get},
		{"POST", p.Post},
		{"PUT", p.Put},
		{"DELETE", p.Delete},
		{"OPTIONS", p.Options},
		{"HEAD", p.Head},
		{"PATCH", p.Patch},
		{"TRACE", p.Trace},
	}

	ops := make([]MethodOperation, 0, len(all))
	for _, mo := range all {
		if mo.Operation != nil {
			ops = append(ops, mo)
		}
	}
	return ops
}

// Operation is a single HTTP operation.
type Operation struct {
	OperationID string                 `yaml:"operationId"`
	Summary     string                 `yaml:"summary"`
	Parameters  []*Parameter           `yaml:"parameters"`
	Responses   ordered.Map[*Response] `yaml:"responses"`
}

// Parameter is an operation parameter or a reference to one.
type Parameter struct {
	Ref      string                  `yaml:"$ref"`
	Name     string                  `yaml:"name"`
	In       string                  `yaml:"in"`
	Required bool                    `yaml:"required"`
	Schema   *Schema                 `yaml:"schema"`
	Content  ordered.Map[*MediaType] `yaml:"content"`
}

// Response is a response object or a reference to one.
type Response struct {
	Ref         string                  `yaml:"$ref"`
	Description string                  `yaml:"description"`
	Content     ordered.Map[*MediaType] `yaml:"content"`
}

// MediaType is one entry of a content map.
type MediaType struct {
	Schema *Schema `yaml:"schema"`
}

// Types is the schema "type" keyword, which is a single name in OpenAPI 3.0
// and may be a list (e.g. [string, "null"]) in 3.1.
type Types []string

func (t *Types) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.ShortTag() == "!!null" {
			*t = nil
			return nil
		}
		*t = Types{node.Value}
		return nil
	case yaml.SequenceNode:
		var names []string
		if err := node.Decode(&names); err != nil {
			return err
		}
		*t = names
		return nil
	}
	return fmt.Errorf("line %d: type must be a string or a list of strings", node.Line)
}

// Single returns the one non-null type name. It reports false when no type
// is declared or when several non-null types are.
func (t Types) Single() (string, bool) {
	name := ""
	for _, n := range t {
		if n == "null" {
			continue
		}
		if name != "" {
			return "", false
		}
		name = n
	}
	return name, name != ""
}

// RefName returns the last path segment of a reference,
// e.g. "#/components/schemas/User" gives "User".
func RefName(ref string) string {
	if i := strings.LastIndex(ref, "/"); i >= 0 {
		return ref[i+1:]
	}
	return ref
}

// Parse decodes a YAML or JSON specification document.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse specification: %w", err)
	}
	return &doc, nil
}

// Load reads and parses the specification document at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read specification %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("specification file is empty: %s", path)
	}
	return Parse(data)
}
