package migrate

import (
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/multierr"
)

var migrationFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

const (
	markerUp             = "-- +goose Up"
	markerDown           = "-- +goose Down"
	markerStatementBegin = "-- +goose StatementBegin"
	markerStatementEnd   = "-- +goose StatementEnd"
)

// ValidateDir checks every .sql file in dir and reports all problems at once.
func ValidateDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return fmt.Errorf("migrations dir is required")
	}
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("read migrations dir %q: %w", dir, err)
	}
	return ValidateFS(os.DirFS(dir))
}

// ValidateFS applies the ValidateDir checks to the root of fsys.
func ValidateFS(fsys fs.FS) error {
	names, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(names)

	var errs error
	versions := map[string]string{}
	for _, name := range names {
		m := migrationFileRe.FindStringSubmatch(name)
		if m == nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: expected YYYYMMDDHHMMSS_name.sql", name))
			continue
		}
		if prev, ok := versions[m[1]]; ok {
			errs = multierr.Append(errs, fmt.Errorf("%s: version %s already used by %s", name, m[1], prev))
			continue
		}
		versions[m[1]] = name

		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		errs = multierr.Append(errs, checkMigrationBody(name, string(body)))
	}
	return errs
}

func checkMigrationBody(name, body string) error {
	up := strings.Index(body, markerUp)
	down := strings.Index(body, markerDown)
	switch {
	case up < 0:
		return fmt.Errorf("%s: missing %q", name, markerUp)
	case down < 0:
		return fmt.Errorf("%s: missing %q", name, markerDown)
	case down < up:
		return fmt.Errorf("%s: down section precedes up section", name)
	}
	begins := strings.Count(body, markerStatementBegin)
	ends := strings.Count(body, markerStatementEnd)
	if begins != ends {
		return fmt.Errorf("%s: %d StatementBegin markers but %d StatementEnd", name, begins, ends)
	}
	return nil
}
