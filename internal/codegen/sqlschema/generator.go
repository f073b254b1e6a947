// Package sqlschema renders records as SQL table definitions.
package sqlschema

import (
	"fmt"
	"strings"

	"github.com/cdd-platform/cdd/internal/codegen/writer"
	"github.com/cdd-platform/cdd/internal/project"
)

// Format is the registry name of this generator.
const Format = "sql"

// Generator implements codegen.Generator for SQL schemas
type Generator struct{}

// NewGenerator creates a new SQL schema generator
func NewGenerator() *Generator {
	return &Generator{}
}

func (g *Generator) Generate(p *project.Project) ([]byte, error) {
	return []byte(Generate(p.Records)), nil
}

func (g *Generator) Format() string {
	return Format
}

func (g *Generator) FileExtension() string {
	return ".sql"
}

// ColumnType maps a field type to its SQL column type. Kinds without a
// dedicated mapping are stored as TEXT.
func ColumnType(t project.FieldType) string {
	switch t.Kind {
	case project.KindInt:
		return "INTEGER"
	case project.KindBool:
		return "TINYINT"
	case project.KindFloat:
		return "REAL"
	}
	return "TEXT"
}

// Column renders a column definition, e.g. "id INTEGER PRIMARY KEY NOT NULL".
func Column(f project.Field) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", f.Name, ColumnType(f.Type))
	if f.Name == "id" {
		b.WriteString(" PRIMARY KEY")
	}
	if !f.Optional {
		b.WriteString(" NOT NULL")
	}
	return b.String()
}

// Table renders one CREATE TABLE statement without a trailing newline.
func Table(r project.DataRecord) string {
	w := writer.NewWriter("\t")
	writeTable(w, r)
	return strings.TrimSuffix(w.String(), "\n")
}

// Generate renders every record, separated by blank lines.
func Generate(records []project.DataRecord) string {
	w := writer.NewWriter("\t")
	for i, r := range records {
		if i > 0 {
			w.BlankLine()
		}
		writeTable(w, r)
	}
	return w.String()
}

func writeTable(w *writer.Writer, r project.DataRecord) {
	name := strings.ToLower(r.Name)
	if len(r.Fields) == 0 {
		w.WriteLinef("CREATE TABLE %s;", name)
		return
	}

	columns := make([]string, 0, len(r.Fields))
	for _, f := range r.Fields {
		columns = append(columns, Column(f))
	}

	w.WriteBlock(fmt.Sprintf("CREATE TABLE %s (", name), ");", func() {
		w.WriteSeparated(columns, ",")
	})
}
