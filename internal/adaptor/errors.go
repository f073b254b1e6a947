package adaptor

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every *Error unwraps to one of them.
var (
	ErrNotFound          = errors.New("adaptor not found")
	ErrProcessFailed     = errors.New("adaptor process failed")
	ErrMalformedResponse = errors.New("malformed adaptor response")
)

// Error describes a failed adaptor call.
type Error struct {
	Kind       error
	Adaptor    string
	Subcommand string
	Path       string // executable, set for ErrNotFound
	Stderr     string // set for ErrProcessFailed
	Raw        string // offending output, set for ErrMalformedResponse
	Err        error  // underlying cause
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Adaptor != "" {
		fmt.Fprintf(&b, " [%s]", e.Adaptor)
	}
	if e.Subcommand != "" {
		fmt.Fprintf(&b, " %s", e.Subcommand)
	}

	switch {
	case e.Kind == ErrNotFound:
		fmt.Fprintf(&b, ": %s", e.Path)
	case e.Stderr != "":
		fmt.Fprintf(&b, ": %s", strings.TrimSpace(e.Stderr))
	case e.Err != nil:
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap exposes both the kind and the underlying cause, so errors.Is matches
// ErrProcessFailed as well as context.DeadlineExceeded on a timeout.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
