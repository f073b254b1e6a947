package codegen

import (
	"github.com/cdd-platform/cdd/internal/codegen/golang"
	"github.com/cdd-platform/cdd/internal/codegen/jsonmodel"
	"github.com/cdd-platform/cdd/internal/codegen/sqlschema"
	"github.com/cdd-platform/cdd/internal/codegen/typescript"
)

// DefaultRegistry is the global registry instance with pre-registered generators
var DefaultRegistry = NewRegistry()

func init() {
	DefaultRegistry.Register(sqlschema.Format, func() Generator {
		return sqlschema.NewGenerator()
	})

	DefaultRegistry.Register(jsonmodel.Format, func() Generator {
		return jsonmodel.NewGenerator()
	})

	DefaultRegistry.Register(typescript.Format, func() Generator {
		return typescript.NewGenerator()
	})

	DefaultRegistry.Register(golang.Format, func() Generator {
		return golang.NewGenerator("")
	})
}
