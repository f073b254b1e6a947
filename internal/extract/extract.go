// Package extract reduces a parsed specification document to the canonical
// project model: one DataRecord per object schema and one Request per
// path/method pair.
package extract

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/cdd-platform/cdd/internal/openapi"
	"github.com/cdd-platform/cdd/internal/project"
)

const responseRefPrefix = "#/components/responses/"

// Extractor converts documents into projects. It holds no per-document state
// and can be reused.
type Extractor struct {
	logger zerolog.Logger
}

// New creates an extractor that reports limitations to logger.
func New(logger zerolog.Logger) *Extractor {
	return &Extractor{
		logger: logger.With().Str("component", "extract").Logger(),
	}
}

// Extract runs an extractor that discards its log output.
func Extract(doc *openapi.Document) (*project.Project, error) {
	return New(zerolog.Nop()).Extract(doc)
}

// Extract builds the canonical project for doc. Any error aborts the whole
// extraction and no partial project is returned.
func (e *Extractor) Extract(doc *openapi.Document) (*project.Project, error) {
	x := &extraction{
		doc:     doc,
		logger:  e.logger,
		aliases: make(map[string]string),
	}

	records, err := x.records()
	if err != nil {
		return nil, err
	}

	requests, err := x.requests()
	if err != nil {
		return nil, err
	}

	e.logger.Debug().
		Int("records", len(records)).
		Int("requests", len(requests)).
		Int("aliases", len(x.aliases)).
		Msg("specification extracted")

	return &project.Project{
		Info:     extractInfo(doc.Servers),
		Records:  records,
		Requests: requests,
	}, nil
}

func extractInfo(servers []openapi.Server) project.Info {
	if len(servers) == 0 {
		return project.Info{}
	}
	u, err := url.Parse(servers[0].URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return project.Info{}
	}
	return project.Info{
		Host:     u.Scheme + "://" + u.Host,
		Endpoint: u.Path,
	}
}

// extraction is the state of a single Extract call.
type extraction struct {
	doc    *openapi.Document
	logger zerolog.Logger

	// aliases maps array schemas to the record their items reference.
	aliases map[string]string
}

func (x *extraction) records() ([]project.DataRecord, error) {
	records := make([]project.DataRecord, 0, x.doc.Components.Schemas.Len())

	for name, schema := range x.doc.Components.Schemas.All() {
		if schema == nil {
			return nil, unsupported(name, "", "empty schema")
		}
		if schema.IsRef() {
			return nil, &Error{Kind: ErrUnsupportedSchemaShape, Record: name, Ref: schema.Ref, Detail: "top-level reference"}
		}
		if schema.IsComposite() {
			return nil, unsupported(name, "", "oneOf/anyOf/allOf schemas cannot be mapped to a record")
		}

		typ, _ := schema.Type.Single()
		switch {
		case typ == "array":
			if schema.Items == nil || !schema.Items.IsRef() {
				return nil, unsupported(name, "", "array schemas must reference their item type")
			}
			target, err := x.schemaRef(name, "", schema.Items.Ref)
			if err != nil {
				return nil, err
			}
			x.aliases[name] = target

		case typ == "object" || (len(schema.Type) == 0 && schema.Properties.Len() > 0):
			fields, err := x.recordFields(name, schema)
			if err != nil {
				return nil, err
			}
			records = append(records, project.DataRecord{Name: name, Fields: fields})

		case typ == "":
			return nil, unsupported(name, "", "schema has no type")

		default:
			return nil, unsupported(name, "", fmt.Sprintf("top-level %s schemas cannot be mapped to a record", typ))
		}
	}

	return records, nil
}

func (x *extraction) recordFields(record string, schema *openapi.Schema) ([]project.Field, error) {
	fields := make([]project.Field, 0, schema.Properties.Len())
	for name, prop := range schema.Properties.All() {
		if name == "" {
			return nil, unsupported(record, "", "property without a name")
		}
		typ, err := x.resolveType(record, name, prop)
		if err != nil {
			return nil, err
		}
		fields = append(fields, project.Field{
			Name:     name,
			Type:     typ,
			Optional: !schema.IsRequired(name),
			Value:    fieldValue(prop),
		})
	}
	return fields, nil
}

// resolveType maps a schema node onto the closed FieldType union. Shapes
// outside the union are errors, never dropped fields.
func (x *extraction) resolveType(record, field string, s *openapi.Schema) (project.FieldType, error) {
	if s == nil {
		return project.FieldType{}, unsupported(record, field, "missing schema")
	}
	if s.IsRef() {
		name, err := x.schemaRef(record, field, s.Ref)
		if err != nil {
			return project.FieldType{}, err
		}
		return project.ComplexType(name), nil
	}
	if s.IsComposite() {
		return project.FieldType{}, unsupported(record, field, "oneOf/anyOf/allOf")
	}

	typ, ok := s.Type.Single()
	if !ok {
		if len(s.Type) > 1 {
			return project.FieldType{}, unsupported(record, field, "multiple types: "+strings.Join(s.Type, ", "))
		}
		if s.Properties.Len() == 0 {
			return project.FieldType{}, unsupported(record, field, "schema has no type")
		}
		typ = "object"
	}

	switch typ {
	case "string":
		return project.StringType(), nil
	case "number":
		return project.FloatType(), nil
	case "integer":
		return project.IntType(), nil
	case "boolean":
		return project.BoolType(), nil
	case "array":
		if s.Items == nil {
			return project.FieldType{}, unsupported(record, field, "array without items")
		}
		elem, err := x.resolveType(record, field, s.Items)
		if err != nil {
			return project.FieldType{}, err
		}
		return project.ArrayOf(elem), nil
	case "object":
		x.logger.Warn().
			Str("record", record).
			Str("field", field).
			Msg("inline object schemas are not extracted as records")
		return project.ComplexType(project.InlineObject), nil
	}

	return project.FieldType{}, unsupported(record, field, fmt.Sprintf("unknown type %q", typ))
}

// schemaRef returns the record name a schema reference points to. Local
// references must name an existing component schema.
func (x *extraction) schemaRef(record, field, ref string) (string, error) {
	name := openapi.RefName(ref)
	if name == "" {
		return "", unresolved(record, field, ref)
	}
	if strings.HasPrefix(ref, openapi.SchemaRefPrefix) && !x.doc.Components.Schemas.Has(name) {
		return "", unresolved(record, field, ref)
	}
	return name, nil
}

func (x *extraction) requests() ([]project.Request, error) {
	requests := make([]project.Request, 0)

	for path, item := range x.doc.Paths.All() {
		if item == nil {
			continue
		}
		if item.Ref != "" {
			x.logger.Warn().Str("path", path).Str("ref", item.Ref).Msg("skipping referenced path item")
			continue
		}

		for _, mo := range item.Operations() {
			method, err := project.ParseMethod(mo.Method)
			if err != nil {
				return nil, err
			}
			name := project.RequestName(path, method)

			fields, err := x.parameterFields(name, item.Parameters, mo.Operation.Parameters)
			if err != nil {
				return nil, err
			}

			responseType, err := x.responseType(name, mo.Operation)
			if err != nil {
				return nil, err
			}

			errorType, err := x.errorType(name, mo.Operation)
			if err != nil {
				return nil, err
			}

			requests = append(requests, project.Request{
				Name:         name,
				Path:         path,
				Fields:       fields,
				Method:       method,
				ResponseType: responseType,
				ErrorType:    errorType,
			})
		}
	}

	return requests, nil
}

// parameterFields merges path-level and operation-level parameters (the
// operation wins on equal name and location) and turns the query and path
// parameters into fields.
func (x *extraction) parameterFields(request string, shared, own []*openapi.Parameter) ([]project.Field, error) {
	var params []*openapi.Parameter
	index := make(map[string]int)

	for _, list := range [][]*openapi.Parameter{shared, own} {
		for _, p := range list {
			resolved, err := x.parameter(request, p)
			if err != nil {
				return nil, err
			}
			if resolved == nil {
				continue
			}
			key := resolved.In + ":" + resolved.Name
			if i, ok := index[key]; ok {
				params[i] = resolved
				continue
			}
			index[key] = len(params)
			params = append(params, resolved)
		}
	}

	fields := make([]project.Field, 0, len(params))
	seen := make(map[string]bool)
	for _, p := range params {
		if p.In != "query" && p.In != "path" {
			continue
		}
		if p.Name == "" {
			return nil, unsupported(request, "", "parameter without a name")
		}
		if seen[p.Name] {
			return nil, &Error{Kind: ErrDuplicateField, Record: request, Field: p.Name, Detail: "declared as both a path and a query parameter"}
		}
		seen[p.Name] = true

		if p.Schema == nil {
			// content-encoded parameters carry no usable schema
			fields = append(fields, project.Field{Name: p.Name, Type: project.StringType()})
			continue
		}

		typ, err := x.resolveType(request, p.Name, p.Schema)
		if err != nil {
			return nil, err
		}
		fields = append(fields, project.Field{
			Name:     p.Name,
			Type:     typ,
			Optional: !p.Required,
			Value:    fieldValue(p.Schema),
		})
	}

	return fields, nil
}

func (x *extraction) parameter(request string, p *openapi.Parameter) (*openapi.Parameter, error) {
	visited := make(map[string]bool)
	for p != nil && p.Ref != "" {
		if visited[p.Ref] {
			return nil, &Error{Kind: ErrUnresolvedReference, Record: request, Ref: p.Ref, Detail: "reference cycle"}
		}
		visited[p.Ref] = true

		target, ok := x.doc.Components.Parameters.Get(openapi.RefName(p.Ref))
		if !ok || target == nil {
			return nil, unresolved(request, "", p.Ref)
		}
		p = target
	}
	return p, nil
}

// responseType is the body reference of the first declared non-default
// response, rewritten to "[Record]" when it names an array alias.
func (x *extraction) responseType(request string, op *openapi.Operation) (string, error) {
	for status, resp := range op.Responses.All() {
		if status == "default" {
			continue
		}
		name, err := x.bodyRef(request, status, resp)
		if err != nil {
			return "", err
		}
		if name == "" {
			return project.ResponseEmpty, nil
		}
		if target, ok := x.aliases[name]; ok {
			return "[" + target + "]", nil
		}
		return name, nil
	}
	return project.ResponseEmpty, nil
}

func (x *extraction) errorType(request string, op *openapi.Operation) (string, error) {
	resp, ok := op.Responses.Get("default")
	if !ok {
		return project.ResponseEmpty, nil
	}
	name, err := x.bodyRef(request, "default", resp)
	if err != nil {
		return "", err
	}
	if name == "" {
		return project.ResponseEmpty, nil
	}
	return name, nil
}

// bodyRef follows a response reference into components.responses and returns
// the schema reference name of its first media type, or "" when there is none.
func (x *extraction) bodyRef(request, status string, resp *openapi.Response) (string, error) {
	visited := make(map[string]bool)
	for resp != nil && resp.Ref != "" {
		if visited[resp.Ref] {
			return "", &Error{Kind: ErrUnresolvedReference, Record: request, Field: status, Ref: resp.Ref, Detail: "reference cycle"}
		}
		visited[resp.Ref] = true

		if !strings.HasPrefix(resp.Ref, responseRefPrefix) {
			return "", unresolved(request, status, resp.Ref)
		}
		target, ok := x.doc.Components.Responses.Get(openapi.RefName(resp.Ref))
		if !ok || target == nil {
			return "", unresolved(request, status, resp.Ref)
		}
		resp = target
	}
	if resp == nil {
		return "", nil
	}

	for _, media := range resp.Content.All() {
		if media == nil || !media.Schema.IsRef() {
			return "", nil
		}
		return x.schemaRef(request, status, media.Schema.Ref)
	}
	return "", nil
}

// fieldValue renders a scalar default, or failing that a scalar example.
func fieldValue(s *openapi.Schema) *string {
	if s == nil {
		return nil
	}
	if v, ok := scalarString(s.Default); ok {
		return &v
	}
	if v, ok := scalarString(s.Example); ok {
		return &v
	}
	return nil
}

func scalarString(v any) (string, bool) {
	switch v := v.(type) {
	case string:
		return v, true
	case bool:
		return strconv.FormatBool(v), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case uint64:
		return strconv.FormatUint(v, 10), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	}
	return "", false
}
