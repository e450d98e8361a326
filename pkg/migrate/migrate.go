// Package migrate runs the goose SQL migrations. Both dialects ship embedded
// in the binary; the Postgres directory can also be read from disk so the
// CLI picks up files created since the last build.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/pressly/goose/v3"
)

// DefaultDir is the Postgres migrations directory relative to the repo root.
const DefaultDir = "pkg/migrate/migrations/postgres"

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var embedded embed.FS

var embeddedDirs = map[string]string{
	"postgres": "migrations/postgres",
	"sqlite3":  "migrations/sqlite",
}

// Applied describes one migration a Runner executed.
type Applied struct {
	Version   int64
	File      string
	Direction string
	Duration  time.Duration
}

// Status is one row of the status report.
type Status struct {
	Version   int64
	File      string
	Applied   bool
	AppliedAt time.Time
}

type Runner struct {
	provider *goose.Provider
}

// NewEmbedded runs the migrations compiled into the binary for dialect
// ("postgres" or "sqlite3").
func NewEmbedded(db *sql.DB, dialect string) (*Runner, error) {
	dir, ok := embeddedDirs[dialect]
	if !ok {
		return nil, fmt.Errorf("unsupported dialect %q", dialect)
	}
	fsys, err := fs.Sub(embedded, dir)
	if err != nil {
		return nil, err
	}
	return newRunner(db, dialect, fsys)
}

// NewFromDir runs Postgres migrations read from dir on disk.
func NewFromDir(db *sql.DB, dir string) (*Runner, error) {
	if dir == "" {
		return nil, errors.New("migrations dir is required")
	}
	return newRunner(db, "postgres", os.DirFS(dir))
}

func newRunner(db *sql.DB, dialect string, fsys fs.FS) (*Runner, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	provider, err := goose.NewProvider(goose.Dialect(dialect), db, fsys)
	if err != nil {
		return nil, fmt.Errorf("goose provider (%s): %w", dialect, err)
	}
	return &Runner{provider: provider}, nil
}

// Up applies every pending migration. Nothing pending is not an error.
func (r *Runner) Up(ctx context.Context) ([]Applied, error) {
	results, err := r.provider.Up(ctx)
	if err != nil {
		return nil, fmt.Errorf("goose up: %w", err)
	}
	return toApplied(results...), nil
}

// Down rolls back the most recent migration.
func (r *Runner) Down(ctx context.Context) ([]Applied, error) {
	result, err := r.provider.Down(ctx)
	if err != nil {
		return nil, fmt.Errorf("goose down: %w", err)
	}
	return toApplied(result), nil
}

// To moves the schema up or down until target is the current version.
func (r *Runner) To(ctx context.Context, target int64) ([]Applied, error) {
	current, err := r.provider.GetDBVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("goose current version: %w", err)
	}
	var results []*goose.MigrationResult
	switch {
	case target > current:
		results, err = r.provider.UpTo(ctx, target)
	case target < current:
		results, err = r.provider.DownTo(ctx, target)
	}
	if err != nil {
		return nil, fmt.Errorf("goose migrate to %d: %w", target, err)
	}
	return toApplied(results...), nil
}

func (r *Runner) Status(ctx context.Context) ([]Status, error) {
	rows, err := r.provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("goose status: %w", err)
	}
	out := make([]Status, 0, len(rows))
	for _, row := range rows {
		out = append(out, Status{
			Version:   row.Source.Version,
			File:      row.Source.Path,
			Applied:   row.State == goose.StateApplied,
			AppliedAt: row.AppliedAt,
		})
	}
	return out, nil
}

// Up applies the embedded migrations for dialect in one call.
func Up(ctx context.Context, db *sql.DB, dialect string) error {
	runner, err := NewEmbedded(db, dialect)
	if err != nil {
		return err
	}
	_, err = runner.Up(ctx)
	return err
}

// EmbeddedFiles lists the embedded migration file names for dialect.
func EmbeddedFiles(dialect string) ([]string, error) {
	dir, ok := embeddedDirs[dialect]
	if !ok {
		return nil, fmt.Errorf("unsupported dialect %q", dialect)
	}
	entries, err := fs.ReadDir(embedded, dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	return names, nil
}

func toApplied(results ...*goose.MigrationResult) []Applied {
	out := make([]Applied, 0, len(results))
	for _, res := range results {
		if res == nil || res.Source == nil {
			continue
		}
		out = append(out, Applied{
			Version:   res.Source.Version,
			File:      res.Source.Path,
			Direction: res.Direction,
			Duration:  res.Duration,
		})
	}
	return out
}
