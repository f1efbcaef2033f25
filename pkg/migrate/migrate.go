package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strconv"

	"github.com/pressly/goose/v3"
)

const DefaultDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// Embedded returns the migrations compiled into the binary.
func Embedded() fs.FS {
	sub, err := fs.Sub(embedded, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// Runner applies goose migrations from fsys against one database.
type Runner struct {
	provider *goose.Provider
}

func NewRunner(dialect goose.Dialect, db *sql.DB, fsys fs.FS) (*Runner, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	if fsys == nil {
		return nil, errors.New("migrations source is required")
	}
	provider, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return &Runner{provider: provider}, nil
}

// NewPostgresRunner is the runner every binary uses.
func NewPostgresRunner(db *sql.DB, fsys fs.FS) (*Runner, error) {
	return NewRunner(goose.DialectPostgres, db, fsys)
}

// Applied is one migration step that ran.
type Applied struct {
	Version   int64
	Path      string
	Direction string
}

func (r *Runner) Up(ctx context.Context) ([]Applied, error) {
	results, err := r.provider.Up(ctx)
	if err != nil {
		return applied(results), fmt.Errorf("goose up: %w", err)
	}
	return applied(results), nil
}

// Down rolls back the most recent migration.
func (r *Runner) Down(ctx context.Context) ([]Applied, error) {
	result, err := r.provider.Down(ctx)
	if err != nil {
		return nil, fmt.Errorf("goose down: %w", err)
	}
	return applied([]*goose.MigrationResult{result}), nil
}

func (r *Runner) Version(ctx context.Context) (int64, error) {
	version, err := r.provider.GetDBVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("get db version: %w", err)
	}
	return version, nil
}

// Pending lists the migrations that have not been applied yet.
func (r *Runner) Pending(ctx context.Context) ([]int64, error) {
	statuses, err := r.provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("goose status: %w", err)
	}
	var pending []int64
	for _, status := range statuses {
		if status.State == goose.StatePending {
			pending = append(pending, status.Source.Version)
		}
	}
	return pending, nil
}

// MigrateTo moves the schema up or down until it sits at target.
func (r *Runner) MigrateTo(ctx context.Context, target string) ([]Applied, error) {
	version, err := strconv.ParseInt(target, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", target, err)
	}

	current, err := r.Version(ctx)
	if err != nil {
		return nil, err
	}

	var results []*goose.MigrationResult
	switch {
	case current == version:
		return nil, nil
	case current < version:
		results, err = r.provider.UpTo(ctx, version)
	default:
		results, err = r.provider.DownTo(ctx, version)
	}
	if err != nil {
		return applied(results), fmt.Errorf("goose migrate to %d: %w", version, err)
	}
	return applied(results), nil
}

func applied(results []*goose.MigrationResult) []Applied {
	out := make([]Applied, 0, len(results))
	for _, res := range results {
		if res == nil || res.Source == nil || res.Error != nil {
			continue
		}
		out = append(out, Applied{Version: res.Source.Version, Path: res.Source.Path, Direction: res.Direction})
	}
	return out
}
