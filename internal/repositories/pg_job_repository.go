package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"clipforge/internal/httpkit"
	"clipforge/internal/models"
	apperrors "clipforge/internal/pkg/errors"
)

// PGJobRepository stores job records in PostgreSQL.
type PGJobRepository struct {
	db *pgxpool.Pool
}

func NewPGJobRepository(db *pgxpool.Pool) *PGJobRepository {
	return &PGJobRepository{db: db}
}

// Migrate applies the embedded PostgreSQL migrations.
func (r *PGJobRepository) Migrate(ctx context.Context) error {
	migrations, err := loadMigrations("postgres")
	if err != nil {
		return err
	}
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin migration tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY)`); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}
	for _, m := range migrations {
		tag, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1) ON CONFLICT DO NOTHING`, m.version)
		if err != nil {
			return fmt.Errorf("record migration %s: %w", m.version, err)
		}
		if tag.RowsAffected() == 0 {
			continue
		}
		if _, err := tx.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("apply migration %s: %w", m.version, err)
		}
	}
	return tx.Commit(ctx)
}

func (r *PGJobRepository) Create(ctx context.Context, j models.Job) error {
	row, err := toRow(j)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO clip_jobs (id, stage, progress, error_text, error_code, remote_ref, spec_json, paths_json, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, row.ID, row.Stage, row.Progress, row.ErrorText, row.ErrorCode, row.RemoteRef,
		row.SpecJSON, row.PathsJSON, j.CreatedAt.UTC(), j.UpdatedAt.UTC())
	if err != nil {
		if httpkit.IsUniqueViolation(err) {
			return apperrors.Conflict("job already exists: " + j.ID)
		}
		return apperrors.Wrap(err, "repositories.pg.Create", "insert job")
	}
	return nil
}

func (r *PGJobRepository) Save(ctx context.Context, j models.Job) error {
	row, err := toRow(j)
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE clip_jobs
		SET stage=$2, progress=$3, error_text=$4, error_code=$5, remote_ref=$6, paths_json=$7, updated_at=$8
		WHERE id=$1
	`, row.ID, row.Stage, row.Progress, row.ErrorText, row.ErrorCode, row.RemoteRef, row.PathsJSON, j.UpdatedAt.UTC())
	if err != nil {
		return apperrors.Wrap(err, "repositories.pg.Save", "update job")
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("job", j.ID)
	}
	return nil
}

func (r *PGJobRepository) Get(ctx context.Context, id string) (models.Job, error) {
	var (
		row       jobRow
		createdAt time.Time
		updatedAt time.Time
	)
	err := r.db.QueryRow(ctx, `
		SELECT id, stage, progress, error_text, error_code, remote_ref, spec_json::text, paths_json::text, created_at, updated_at
		FROM clip_jobs
		WHERE id=$1
	`, id).Scan(
		&row.ID,
		&row.Stage,
		&row.Progress,
		&row.ErrorText,
		&row.ErrorCode,
		&row.RemoteRef,
		&row.SpecJSON,
		&row.PathsJSON,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Job{}, apperrors.NotFound("job", id)
		}
		return models.Job{}, apperrors.Wrap(err, "repositories.pg.Get", "select job")
	}
	j, err := row.job()
	j.CreatedAt, j.UpdatedAt = createdAt.UTC(), updatedAt.UTC()
	return j, err
}

func (r *PGJobRepository) ListByStage(ctx context.Context, stage models.Stage, before time.Time) ([]models.Job, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, stage, progress, error_text, error_code, remote_ref, spec_json::text, paths_json::text, created_at, updated_at
		FROM clip_jobs
		WHERE stage=$1 AND updated_at < $2
		ORDER BY updated_at
	`, string(stage), before.UTC())
	if err != nil {
		return nil, apperrors.Wrap(err, "repositories.pg.ListByStage", "select jobs")
	}
	defer rows.Close()

	var out []models.Job
	for rows.Next() {
		var (
			row                  jobRow
			createdAt, updatedAt time.Time
		)
		if err := rows.Scan(&row.ID, &row.Stage, &row.Progress, &row.ErrorText, &row.ErrorCode, &row.RemoteRef,
			&row.SpecJSON, &row.PathsJSON, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		j, err := row.job()
		if err != nil {
			return nil, err
		}
		j.CreatedAt, j.UpdatedAt = createdAt.UTC(), updatedAt.UTC()
		out = append(out, j)
	}
	return out, rows.Err()
}

func (r *PGJobRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}
