package extract

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every *Error unwraps to exactly one of them.
var (
	ErrUnsupportedSchemaShape = errors.New("unsupported schema shape")
	ErrUnresolvedReference    = errors.New("unresolved reference")
	ErrDuplicateField         = errors.New("duplicate field")
)

// Error is an extraction failure scoped to the record (or request) and field
// being built when it occurred.
type Error struct {
	Kind   error
	Record string // owning record or request name
	Field  string
	Ref    string
	Detail string
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())

	scope := e.Record
	if e.Field != "" {
		if scope != "" {
			scope += "."
		}
		scope += e.Field
	}
	if scope != "" {
		fmt.Fprintf(&b, " in %s", scope)
	}
	if e.Ref != "" {
		fmt.Fprintf(&b, " (%s)", e.Ref)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func unsupported(record, field, detail string) *Error {
	return &Error{Kind: ErrUnsupportedSchemaShape, Record: record, Field: field, Detail: detail}
}

func unresolved(record, field, ref string) *Error {
	return &Error{Kind: ErrUnresolvedReference, Record: record, Field: field, Ref: ref}
}
