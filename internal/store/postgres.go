package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/langbridge/extractd/internal/job"
)

// PostgresStore persists job records in a single jobs table. Examples and
// results are stored as JSONB; per-key update atomicity comes from row-level
// locking on the UPDATE.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() { s.pool.Close() }

// EnsureSchema creates the jobs table when it does not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS extraction_jobs (
			id                 TEXT PRIMARY KEY,
			user_id            TEXT NOT NULL DEFAULT '',
			input_text         TEXT NOT NULL,
			prompt_description TEXT NOT NULL,
			examples           JSONB NOT NULL DEFAULT '[]',
			model_id           TEXT NOT NULL,
			extraction_passes  INT NOT NULL,
			max_workers        INT NOT NULL,
			status             TEXT NOT NULL,
			result             JSONB,
			created_at         TIMESTAMPTZ NOT NULL,
			seq                BIGSERIAL,
			completed_at       TIMESTAMPTZ
		)
	`)
	return err
}

func (s *PostgresStore) Create(ctx context.Context, j *job.Job) error {
	examples, err := json.Marshal(j.Examples)
	if err != nil {
		return fmt.Errorf("marshal examples: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO extraction_jobs
			(id, user_id, input_text, prompt_description, examples,
			 model_id, extraction_passes, max_workers, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, j.ID, j.UserID, j.InputText, j.PromptDescription, examples,
		j.ModelID, j.ExtractionPasses, j.MaxWorkers, j.Status, j.CreatedAt)
	return err
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*job.Job, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, user_id, input_text, prompt_description, examples,
		       model_id, extraction_passes, max_workers, status, result,
		       created_at, completed_at
		  FROM extraction_jobs
		 WHERE id = $1
	`, id)
	return scanJob(row)
}

func (s *PostgresStore) Update(ctx context.Context, id string, u Update) (*job.Job, error) {
	var result []byte
	if u.Result != nil {
		b, err := json.Marshal(u.Result)
		if err != nil {
			return nil, fmt.Errorf("marshal result: %w", err)
		}
		result = b
	}
	var status *string
	if u.Status != nil {
		st := string(*u.Status)
		status = &st
	}
	var completedAt *time.Time
	if u.CompletedAt != nil {
		completedAt = u.CompletedAt
	}

	row := s.pool.QueryRow(ctx, `
		UPDATE extraction_jobs
		   SET status       = COALESCE($2, status),
		       result       = COALESCE($3, result),
		       completed_at = COALESCE($4, completed_at)
		 WHERE id = $1
		RETURNING id, user_id, input_text, prompt_description, examples,
		          model_id, extraction_passes, max_workers, status, result,
		          created_at, completed_at
	`, id, status, result, completedAt)
	return scanJob(row)
}

func (s *PostgresStore) List(ctx context.Context, userID string) ([]*job.Job, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, input_text, prompt_description, examples,
		       model_id, extraction_passes, max_workers, status, result,
		       created_at, completed_at
		  FROM extraction_jobs
		 WHERE $1 = '' OR user_id = $1
		 ORDER BY created_at DESC, seq DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*job.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*job.Job, error) {
	var (
		j        job.Job
		status   string
		examples []byte
		result   []byte
	)
	err := row.Scan(&j.ID, &j.UserID, &j.InputText, &j.PromptDescription, &examples,
		&j.ModelID, &j.ExtractionPasses, &j.MaxWorkers, &status, &result,
		&j.CreatedAt, &j.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	j.Status = job.Status(status)
	if len(examples) > 0 {
		if err := json.Unmarshal(examples, &j.Examples); err != nil {
			return nil, fmt.Errorf("unmarshal examples: %w", err)
		}
	}
	if len(result) > 0 {
		var res job.Result
		if err := json.Unmarshal(result, &res); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
		j.Result = &res
	}
	return &j, nil
}
