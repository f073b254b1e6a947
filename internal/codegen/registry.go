package codegen

import (
	"fmt"
	"sort"
)

// Registry manages available generators
type Registry struct {
	generators map[string]func() Generator
}

// NewRegistry creates a new generator registry
func NewRegistry() *Registry {
	return &Registry{
		generators: make(map[string]func() Generator),
	}
}

// Register adds a new generator factory to the registry
func (r *Registry) Register(format string, factory func() Generator) {
	r.generators[format] = factory
}

// Get returns a generator for the specified format
func (r *Registry) Get(format string) (Generator, error) {
	factory, exists := r.generators[format]
	if !exists {
		return nil, fmt.Errorf("unsupported format: %s", format)
	}

	return factory(), nil
}

// Formats returns the supported formats, sorted
func (r *Registry) Formats() []string {
	formats := make([]string, 0, len(r.generators))
	for format := range r.generators {
		formats = append(formats, format)
	}
	sort.Strings(formats)
	return formats
}
