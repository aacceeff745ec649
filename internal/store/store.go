// Package store provides keyed storage for extraction job records with
// atomic per-key updates. The memory implementation is the default; the
// Postgres implementation is a drop-in behind the same interface.
package store

import (
	"context"
	"time"

	"github.com/langbridge/extractd/internal/job"
)

// Common errors.
var (
	ErrJobNotFound = Err("job not found")
)

type Err string

func (e Err) Error() string { return string(e) }

// Update carries the fields a caller wants merged into an existing record.
// Nil fields are left untouched.
type Update struct {
	Status      *job.Status
	Result      *job.Result
	CompletedAt *time.Time
}

// Store is the job record storage contract. Updates to a single id are
// serialized; operations across distinct ids may run in parallel.
type Store interface {
	// Create persists a new record. The caller owns id assignment.
	Create(ctx context.Context, j *job.Job) error

	// Get returns the record or ErrJobNotFound.
	Get(ctx context.Context, id string) (*job.Job, error)

	// Update merges fields into the record atomically and returns the
	// updated record, or ErrJobNotFound for an unknown id.
	Update(ctx context.Context, id string, u Update) (*job.Job, error)

	// List returns records sorted by creation time descending, filtered
	// by owner when userID is non-empty.
	List(ctx context.Context, userID string) ([]*job.Job, error)
}
