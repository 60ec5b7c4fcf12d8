package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"clipforge/internal/models"
	apperrors "clipforge/internal/pkg/errors"
)

// SQLiteJobRepository stores job records in a single-file database for
// single-host deployments.
type SQLiteJobRepository struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens or creates the database at path and applies migrations.
func OpenSQLite(ctx context.Context, path string) (*SQLiteJobRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	r := &SQLiteJobRepository{db: db, path: path}
	if err := r.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

// Close closes the underlying database.
func (r *SQLiteJobRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *SQLiteJobRepository) migrate(ctx context.Context) error {
	migrations, err := loadMigrations("sqlite")
	if err != nil {
		return err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY)"); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}
	for _, m := range migrations {
		var count int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM schema_migrations WHERE version = ?", m.version).Scan(&count); err != nil {
			return fmt.Errorf("scan migration version: %w", err)
		}
		if count > 0 {
			continue
		}
		if _, err := tx.ExecContext(ctx, m.sql); err != nil {
			return fmt.Errorf("apply migration %s: %w", m.version, err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", m.version); err != nil {
			return fmt.Errorf("record migration %s: %w", m.version, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migrations: %w", err)
	}
	return nil
}

func (r *SQLiteJobRepository) Create(ctx context.Context, j models.Job) error {
	row, err := toRow(j)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO clip_jobs (id, stage, progress, error_text, error_code, remote_ref, spec_json, paths_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, row.ID, row.Stage, row.Progress, row.ErrorText, row.ErrorCode, row.RemoteRef,
		row.SpecJSON, row.PathsJSON, formatTime(j.CreatedAt), formatTime(j.UpdatedAt))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return apperrors.Conflict("job already exists: " + j.ID)
		}
		return apperrors.Wrap(err, "repositories.sqlite.Create", "insert job")
	}
	return nil
}

func (r *SQLiteJobRepository) Save(ctx context.Context, j models.Job) error {
	row, err := toRow(j)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE clip_jobs
		SET stage = ?, progress = ?, error_text = ?, error_code = ?, remote_ref = ?, paths_json = ?, updated_at = ?
		WHERE id = ?
	`, row.Stage, row.Progress, row.ErrorText, row.ErrorCode, row.RemoteRef, row.PathsJSON, formatTime(j.UpdatedAt), row.ID)
	if err != nil {
		return apperrors.Wrap(err, "repositories.sqlite.Save", "update job")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFound("job", j.ID)
	}
	return nil
}

const sqliteJobColumns = `id, stage, progress, error_text, error_code, remote_ref, spec_json, paths_json, created_at, updated_at`

func (r *SQLiteJobRepository) Get(ctx context.Context, id string) (models.Job, error) {
	j, err := scanSQLiteJob(r.db.QueryRowContext(ctx, `SELECT `+sqliteJobColumns+` FROM clip_jobs WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Job{}, apperrors.NotFound("job", id)
		}
		return models.Job{}, apperrors.Wrap(err, "repositories.sqlite.Get", "select job")
	}
	return j, nil
}

func (r *SQLiteJobRepository) ListByStage(ctx context.Context, stage models.Stage, before time.Time) ([]models.Job, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sqliteJobColumns+` FROM clip_jobs WHERE stage = ? AND updated_at < ? ORDER BY updated_at`,
		string(stage), formatTime(before))
	if err != nil {
		return nil, apperrors.Wrap(err, "repositories.sqlite.ListByStage", "select jobs")
	}
	defer rows.Close()

	var out []models.Job
	for rows.Next() {
		j, err := scanSQLiteJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (r *SQLiteJobRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteJob(s rowScanner) (models.Job, error) {
	var (
		row                  jobRow
		createdAt, updatedAt string
	)
	if err := s.Scan(&row.ID, &row.Stage, &row.Progress, &row.ErrorText, &row.ErrorCode, &row.RemoteRef,
		&row.SpecJSON, &row.PathsJSON, &createdAt, &updatedAt); err != nil {
		return models.Job{}, err
	}
	j, err := row.job()
	if err != nil {
		return j, err
	}
	j.CreatedAt = parseTime(createdAt)
	j.UpdatedAt = parseTime(updatedAt)
	return j, nil
}

// Timestamps are stored as fixed-width UTC text so that string comparison
// orders them.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339Nano, s)
	}
	return t.UTC()
}
