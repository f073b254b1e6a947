package sqlschema

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/cdd-platform/cdd/internal/project"
)

// Verify executes the generated statements against an empty in-memory SQLite
// database and reports the first table it rejects. Records without fields
// are skipped since their bare declaration is not valid SQLite.
func Verify(ctx context.Context, records []project.DataRecord) error {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	defer db.Close()
	// every statement must see the same in-memory database
	db.SetMaxOpenConns(1)

	for _, r := range records {
		if len(r.Fields) == 0 {
			continue
		}
		if _, err := db.ExecContext(ctx, Table(r)); err != nil {
			return fmt.Errorf("table %s: %w", r.Name, err)
		}
	}
	return nil
}
