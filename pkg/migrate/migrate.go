package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/pressly/goose/v3"

	"github.com/sumo1993/medconsult-liberia-sub003/pkg/logger"
)

// DefaultDir holds the goose SQL files. They target Postgres; sqlite
// databases are built from the models instead (see AutoMigrate).
const DefaultDir = "pkg/migrate/migrations"

// Runner applies the goose migrations found in a directory.
type Runner struct {
	provider *goose.Provider
	logg     *logger.Logger
}

// NewRunner binds the migrations in dir to db.
func NewRunner(db *sql.DB, dir string, logg *logger.Logger) (*Runner, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	if dir == "" {
		return nil, errors.New("migrations dir is required")
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, os.DirFS(dir))
	if err != nil {
		return nil, fmt.Errorf("load migrations from %s: %w", dir, err)
	}
	return &Runner{provider: provider, logg: logg}, nil
}

// Run dispatches one of the commands exposed by cmd/migrate.
func Run(ctx context.Context, db *sql.DB, dir, command string, logg *logger.Logger) error {
	runner, err := NewRunner(db, dir, logg)
	if err != nil {
		return err
	}
	switch command {
	case "up":
		return runner.Up(ctx)
	case "down":
		return runner.Down(ctx)
	case "status":
		return runner.Status(ctx)
	default:
		return fmt.Errorf("unknown migrate command %q", command)
	}
}

func (r *Runner) Up(ctx context.Context) error {
	results, err := r.provider.Up(ctx)
	r.report(ctx, results...)
	if err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// Down rolls back the most recent migration only.
func (r *Runner) Down(ctx context.Context) error {
	result, err := r.provider.Down(ctx)
	if result != nil {
		r.report(ctx, result)
	}
	if err != nil {
		return fmt.Errorf("goose down: %w", err)
	}
	return nil
}

// Status logs one line per known migration.
func (r *Runner) Status(ctx context.Context) error {
	statuses, err := r.provider.Status(ctx)
	if err != nil {
		return fmt.Errorf("goose status: %w", err)
	}
	for _, st := range statuses {
		fields := map[string]any{
			"version": st.Source.Version,
			"file":    st.Source.Path,
			"state":   string(st.State),
		}
		if !st.AppliedAt.IsZero() {
			fields["applied_at"] = st.AppliedAt.UTC()
		}
		r.info(ctx, fields, "migrate.status")
	}
	return nil
}

// To moves the schema up or down until target (YYYYMMDDHHMMSS) is current.
func (r *Runner) To(ctx context.Context, target string) error {
	version, err := strconv.ParseInt(target, 10, 64)
	if err != nil || version <= 0 {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS)", target)
	}
	current, err := r.provider.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("read db version: %w", err)
	}

	var results []*goose.MigrationResult
	switch {
	case current < version:
		results, err = r.provider.UpTo(ctx, version)
	case current > version:
		results, err = r.provider.DownTo(ctx, version)
	}
	r.report(ctx, results...)
	if err != nil {
		return fmt.Errorf("migrate %d -> %d: %w", current, version, err)
	}
	return nil
}

func (r *Runner) report(ctx context.Context, results ...*goose.MigrationResult) {
	for _, res := range results {
		if res == nil || res.Source == nil {
			continue
		}
		r.info(ctx, map[string]any{
			"version":     res.Source.Version,
			"file":        res.Source.Path,
			"direction":   res.Direction,
			"duration_ms": res.Duration.Milliseconds(),
		}, "migrate.applied")
	}
}

func (r *Runner) info(ctx context.Context, fields map[string]any, msg string) {
	if r.logg == nil {
		return
	}
	r.logg.Info(r.logg.WithFields(ctx, fields), msg)
}
