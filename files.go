package auth

import (
	"context"
	"embed"
	"io/fs"
	"sort"
	"strings"

	"github.com/uptrace/bun"
)

//go:embed data/sql/migrations
var migrationsFS embed.FS

// GetMigrationsFS returns the migration files for this package
func GetMigrationsFS() embed.FS {
	return migrationsFS
}

// RunMigrations executes the packaged schema files in lexical order
func RunMigrations(ctx context.Context, db *bun.DB) error {
	var files []string
	err := fs.WalkDir(migrationsFS, "data/sql/migrations", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".up.sql") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return err
	}

	sort.Strings(files)

	for _, file := range files {
		raw, err := migrationsFS.ReadFile(file)
		if err != nil {
			return err
		}

		for _, stmt := range strings.Split(string(raw), ";") {
			stmt = strings.TrimSpace(stmt)
			if stmt == "" {
				continue
			}
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}
	}

	return nil
}
