package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"github.com/fundshare/fundshare/internal/platform/db"
)

// Files embeds the SQL schema files in apply order.
//
//go:embed *.sql
var Files embed.FS

// Apply runs every embedded migration. Statements are idempotent.
func Apply(ctx context.Context, q db.Querier) error {
	names, err := fs.Glob(Files, "*.sql")
	if err != nil {
		return err
	}
	sort.Strings(names)
	for _, name := range names {
		body, err := Files.ReadFile(name)
		if err != nil {
			return err
		}
		if _, err := q.Exec(ctx, string(body)); err != nil {
			return fmt.Errorf("migrations: apply %s: %w", name, err)
		}
	}
	return nil
}
