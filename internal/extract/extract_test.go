package extract

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cdd-platform/cdd/internal/openapi"
	"github.com/cdd-platform/cdd/internal/project"
)

const usersDocument = `
openapi: 3.0.3
servers:
  - url: https://api.example.com:8080/v2
  - url: https://ignored.example.com
paths:
  /users:
    parameters:
      - name: tenant
        in: query
        schema:
          type: string
    post:
      parameters:
        - name: X-Trace
          in: header
          schema:
            type: string
      responses:
        "201":
          description: created
          content:
            application/json:
              schema:
                $ref: "#/components/schemas/User"
    get:
      parameters:
        - $ref: "#/components/parameters/Limit"
        - name: tenant
          in: query
          required: true
          schema:
            type: string
      responses:
        "200":
          description: ok
          content:
            application/json:
              schema:
                $ref: "#/components/schemas/UserList"
        default:
          $ref: "#/components/responses/Problem"
  /users/{id}:
    get:
      parameters:
        - name: id
          in: path
          required: true
          schema:
            type: integer
        - name: filter
          in: query
          content:
            application/json:
              schema:
                type: object
      responses:
        "404":
          description: missing
    delete:
      parameters:
        - name: id
          in: path
          required: true
          schema:
            type: integer
      responses:
        "204":
          description: deleted
        default:
          description: failure
components:
  parameters:
    Limit:
      name: limit
      in: query
      schema:
        type: integer
        default: 20
  responses:
    Problem:
      description: problem
      content:
        application/problem+json:
          schema:
            $ref: "#/components/schemas/Error"
  schemas:
    User:
      type: object
      required: [id, name]
      properties:
        id:
          type: integer
        name:
          type: string
          example: ada
        score:
          type: number
          default: 1.5
        active:
          type: boolean
        tags:
          type: array
          items:
            type: string
        best_friend:
          $ref: "#/components/schemas/User"
        address:
          type: object
          properties:
            street:
              type: string
    UserList:
      type: array
      items:
        $ref: "#/components/schemas/User"
    Error:
      properties:
        message:
          type: string
`

func parse(t *testing.T, data string) *openapi.Document {
	t.Helper()
	doc, err := openapi.Parse([]byte(data))
	require.NoError(t, err)
	return doc
}

func strPtr(s string) *string { return &s }

func TestExtract_Records(t *testing.T) {
	// Test plan:
	// - Object schemas become records in document order
	// - Array aliases produce no record
	// - Field types, optional flags and values come from the schema
	// - Schemas without a type but with properties are objects

	p, err := Extract(parse(t, usersDocument))
	require.NoError(t, err)

	assert.Equal(t, project.Info{Host: "https://api.example.com:8080", Endpoint: "/v2"}, p.Info)
	assert.Equal(t, []string{"User", "Error"}, p.RecordNames())

	user := p.Records[0]
	assert.Equal(t, []project.Field{
		{Name: "id", Type: project.IntType()},
		{Name: "name", Type: project.StringType(), Value: strPtr("ada")},
		{Name: "score", Type: project.FloatType(), Optional: true, Value: strPtr("1.5")},
		{Name: "active", Type: project.BoolType(), Optional: true},
		{Name: "tags", Type: project.ArrayOf(project.StringType()), Optional: true},
		{Name: "best_friend", Type: project.ComplexType("User"), Optional: true},
		{Name: "address", Type: project.ComplexType(project.InlineObject), Optional: true},
	}, user.Fields)

	assert.Equal(t, []project.Field{
		{Name: "message", Type: project.StringType(), Optional: true},
	}, p.Records[1].Fields)
}

func TestExtract_Requests(t *testing.T) {
	// Test plan:
	// - Requests follow path order, then verb order within a path
	// - Array alias responses are rewritten to "[Record]"
	// - Default responses are followed through components.responses
	// - Path-level parameters merge with operation parameters
	// - Header parameters are ignored, content parameters degrade to String

	p, err := Extract(parse(t, usersDocument))
	require.NoError(t, err)

	require.Equal(t, []string{
		"usersgetrequest",
		"userspostrequest",
		"usersidgetrequest",
		"usersiddeleterequest",
	}, p.RequestNames())

	list := p.Requests[0]
	assert.Equal(t, "/users", list.Path)
	assert.Equal(t, project.MethodGet, list.Method)
	assert.Equal(t, "[User]", list.ResponseType)
	assert.Equal(t, "Error", list.ErrorType)
	assert.Equal(t, []project.Field{
		{Name: "tenant", Type: project.StringType()},
		{Name: "limit", Type: project.IntType(), Optional: true, Value: strPtr("20")},
	}, list.Fields)

	create := p.Requests[1]
	assert.Equal(t, "User", create.ResponseType)
	assert.Equal(t, project.ResponseEmpty, create.ErrorType)
	assert.Equal(t, []project.Field{
		{Name: "tenant", Type: project.StringType(), Optional: true},
	}, create.Fields)

	get := p.Requests[2]
	assert.Equal(t, "/users/{id}", get.Path)
	assert.Equal(t, project.ResponseEmpty, get.ResponseType)
	assert.Equal(t, []project.Field{
		{Name: "id", Type: project.IntType()},
		{Name: "filter", Type: project.StringType()},
	}, get.Fields)

	del := p.Requests[3]
	assert.Equal(t, project.ResponseEmpty, del.ResponseType)
	assert.Equal(t, project.ResponseEmpty, del.ErrorType)
}

func TestExtract_Deterministic(t *testing.T) {
	// Test: two extractions of the same document encode to identical bytes
	doc := parse(t, usersDocument)

	first, err := Extract(doc)
	require.NoError(t, err)
	second, err := Extract(parse(t, usersDocument))
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestExtract_NoServers(t *testing.T) {
	p, err := Extract(parse(t, "openapi: 3.0.0\npaths: {}\n"))
	require.NoError(t, err)
	assert.Equal(t, project.Info{}, p.Info)
	assert.Empty(t, p.Records)
	assert.Empty(t, p.Requests)

	p, err = Extract(parse(t, "servers:\n  - url: /relative\n"))
	require.NoError(t, err)
	assert.Equal(t, project.Info{}, p.Info)
}

func TestExtract_Errors(t *testing.T) {
	tests := []struct {
		name   string
		doc    string
		kind   error
		record string
		field  string
	}{
		{
			name: "union record",
			doc: `
components:
  schemas:
    Pet:
      oneOf:
        - $ref: "#/components/schemas/Cat"
`,
			kind:   ErrUnsupportedSchemaShape,
			record: "Pet",
		},
		{
			name: "scalar record",
			doc: `
components:
  schemas:
    Id:
      type: string
`,
			kind:   ErrUnsupportedSchemaShape,
			record: "Id",
		},
		{
			name: "array of inline items",
			doc: `
components:
  schemas:
    Names:
      type: array
      items:
        type: string
`,
			kind:   ErrUnsupportedSchemaShape,
			record: "Names",
		},
		{
			name: "top-level reference",
			doc: `
components:
  schemas:
    A:
      $ref: "#/components/schemas/B"
`,
			kind:   ErrUnsupportedSchemaShape,
			record: "A",
		},
		{
			name: "composite field",
			doc: `
components:
  schemas:
    User:
      type: object
      properties:
        contact:
          anyOf:
            - type: string
            - type: integer
`,
			kind:   ErrUnsupportedSchemaShape,
			record: "User",
			field:  "contact",
		},
		{
			name: "array field without items",
			doc: `
components:
  schemas:
    User:
      type: object
      properties:
        tags:
          type: array
`,
			kind:   ErrUnsupportedSchemaShape,
			record: "User",
			field:  "tags",
		},
		{
			name: "missing schema reference",
			doc: `
components:
  schemas:
    User:
      type: object
      properties:
        pet:
          $ref: "#/components/schemas/Pet"
`,
			kind:   ErrUnresolvedReference,
			record: "User",
			field:  "pet",
		},
		{
			name: "missing alias target",
			doc: `
components:
  schemas:
    Pets:
      type: array
      items:
        $ref: "#/components/schemas/Pet"
`,
			kind:   ErrUnresolvedReference,
			record: "Pets",
		},
		{
			name: "missing parameter reference",
			doc: `
paths:
  /pets:
    get:
      parameters:
        - $ref: "#/components/parameters/Limit"
      responses: {}
`,
			kind:   ErrUnresolvedReference,
			record: "petsgetrequest",
		},
		{
			name: "missing response reference",
			doc: `
paths:
  /pets:
    get:
      responses:
        default:
          $ref: "#/components/responses/Problem"
`,
			kind:   ErrUnresolvedReference,
			record: "petsgetrequest",
			field:  "default",
		},
		{
			name: "duplicate parameter names",
			doc: `
paths:
  /pets/{id}:
    get:
      parameters:
        - name: id
          in: path
          schema:
            type: integer
        - name: id
          in: query
          schema:
            type: string
      responses: {}
`,
			kind:   ErrDuplicateField,
			record: "petsidgetrequest",
			field:  "id",
		},
		{
			name: "unnamed property",
			doc: `
components:
  schemas:
    Pet:
      type: object
      properties:
        "":
          type: string
        id:
          type: integer
`,
			kind:   ErrUnsupportedSchemaShape,
			record: "Pet",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Extract(parse(t, tt.doc))
			require.Error(t, err)
			assert.Nil(t, p)
			assert.True(t, errors.Is(err, tt.kind), "got %v", err)

			var extractErr *Error
			require.True(t, errors.As(err, &extractErr))
			assert.Equal(t, tt.record, extractErr.Record)
			assert.Equal(t, tt.field, extractErr.Field)
			assert.Contains(t, err.Error(), tt.record)
		})
	}
}

func TestExtract_SkipsReferencedPathItems(t *testing.T) {
	p, err := Extract(parse(t, `
paths:
  /shared:
    $ref: "./shared.yml"
  /ping:
    head:
      responses:
        "200":
          description: ok
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"pingheadrequest"}, p.RequestNames())
}

func TestError_Message(t *testing.T) {
	err := &Error{Kind: ErrUnresolvedReference, Record: "User", Field: "pet", Ref: "#/components/schemas/Pet"}
	assert.Equal(t, "unresolved reference in User.pet (#/components/schemas/Pet)", err.Error())

	err = &Error{Kind: ErrUnsupportedSchemaShape, Record: "Id", Detail: "top-level string schemas cannot be mapped to a record"}
	assert.Equal(t, "unsupported schema shape in Id: top-level string schemas cannot be mapped to a record", err.Error())
}
