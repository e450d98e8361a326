package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pressly/goose/v3"
)

var unsafeNameChars = regexp.MustCompile(`[^a-z0-9]+`)

// CreateSQLMigration writes a timestamped goose SQL template into dir and
// returns its path. name is reduced to snake_case first.
func CreateSQLMigration(dir, name string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("migrations dir is required")
	}
	slug := strings.Trim(unsafeNameChars.ReplaceAllString(strings.ToLower(name), "_"), "_")
	if slug == "" {
		return "", fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	goose.SetLogger(goose.NopLogger())
	if err := goose.Create(nil, dir, slug, "sql"); err != nil {
		return "", fmt.Errorf("create migration: %w", err)
	}

	created, err := filepath.Glob(filepath.Join(dir, "*_"+slug+".sql"))
	if err != nil || len(created) == 0 {
		return "", fmt.Errorf("created migration %q not found in %s", slug, dir)
	}
	return created[len(created)-1], nil
}
