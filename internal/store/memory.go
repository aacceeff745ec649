package store

import (
	"context"
	"sort"
	"sync"

	"github.com/langbridge/extractd/internal/job"
)

// MemoryStore keeps job records in a mutex-guarded map. Records handed out
// are copies so callers can never race the store's own state.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*record
	seq  uint64
}

type record struct {
	job *job.Job
	seq uint64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]*record)}
}

func (s *MemoryStore) Create(_ context.Context, j *job.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	cp := cloneJob(j)
	s.jobs[j.ID] = &record{job: cp, seq: s.seq}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*job.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return cloneJob(rec.job), nil
}

func (s *MemoryStore) Update(_ context.Context, id string, u Update) (*job.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	if u.Status != nil {
		rec.job.Status = *u.Status
	}
	if u.Result != nil {
		rec.job.Result = u.Result
	}
	if u.CompletedAt != nil {
		rec.job.CompletedAt = u.CompletedAt
	}
	return cloneJob(rec.job), nil
}

func (s *MemoryStore) List(_ context.Context, userID string) ([]*job.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := make([]*record, 0, len(s.jobs))
	for _, rec := range s.jobs {
		if userID != "" && rec.job.UserID != userID {
			continue
		}
		recs = append(recs, rec)
	}
	// Newest first; the insertion sequence breaks creation-time ties so the
	// order is stable across calls.
	sort.Slice(recs, func(i, k int) bool {
		if !recs[i].job.CreatedAt.Equal(recs[k].job.CreatedAt) {
			return recs[i].job.CreatedAt.After(recs[k].job.CreatedAt)
		}
		return recs[i].seq > recs[k].seq
	})

	out := make([]*job.Job, len(recs))
	for i, rec := range recs {
		out[i] = cloneJob(rec.job)
	}
	return out, nil
}

func cloneJob(j *job.Job) *job.Job {
	cp := *j
	if j.Examples != nil {
		cp.Examples = append([]job.Example(nil), j.Examples...)
	}
	if j.Result != nil {
		res := *j.Result
		if j.Result.Extractions != nil {
			res.Extractions = append([]job.Extraction(nil), j.Result.Extractions...)
		}
		cp.Result = &res
	}
	if j.CompletedAt != nil {
		ts := *j.CompletedAt
		cp.CompletedAt = &ts
	}
	return &cp
}
