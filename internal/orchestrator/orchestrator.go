// Package orchestrator owns the extraction job lifecycle: it accepts
// submissions, persists them as pending, and drives each job through
// processing to a terminal state on its own goroutine.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/langbridge/extractd/internal/engine"
	"github.com/langbridge/extractd/internal/job"
	"github.com/langbridge/extractd/internal/store"
	"github.com/langbridge/extractd/pkg/schema"
)

// Notifier observes every status transition, e.g. to broadcast websocket
// updates. It must not block.
type Notifier func(j *job.Job)

// Publisher receives lifecycle events, e.g. a NATS publisher. Publish
// failures are logged, never propagated to the job.
type Publisher interface {
	PublishJSON(subject string, v any) error
}

type Options struct {
	// EventSubject enables lifecycle event publication when non-empty and
	// a Publisher is set.
	EventSubject string
	Publisher    Publisher
	Notifier     Notifier
}

type Orchestrator struct {
	store  store.Store
	engine engine.Engine
	logger *slog.Logger
	opts   Options

	wg sync.WaitGroup
}

func New(st store.Store, eng engine.Engine, logger *slog.Logger, opts Options) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{store: st, engine: eng, logger: logger, opts: opts}
}

// Submit validates the spec, persists a pending job, and schedules exactly
// one background run for it. It returns without waiting on the engine.
func (o *Orchestrator) Submit(ctx context.Context, spec job.Spec) (*job.Job, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	passes := spec.ExtractionPasses
	if passes == 0 {
		passes = engine.DefaultExtractionPasses
	}
	workers := spec.MaxWorkers
	if workers == 0 {
		workers = engine.DefaultMaxWorkers
	}

	j := &job.Job{
		ID:                uuid.New().String(),
		UserID:            spec.UserID,
		InputText:         spec.InputText,
		PromptDescription: spec.PromptDescription,
		Examples:          spec.Examples,
		ModelID:           spec.ModelID,
		ExtractionPasses:  passes,
		MaxWorkers:        workers,
		Status:            job.StatusPending,
		CreatedAt:         time.Now().UTC(),
	}
	if err := o.store.Create(ctx, j); err != nil {
		return nil, err
	}

	o.logger.Info("job submitted", "job_id", j.ID, "model_id", j.ModelID, "input_len", len(j.InputText))
	o.notify(j)
	o.publish(j, schema.StageSubmitted)

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.run(j.ID, spec)
	}()

	return j, nil
}

// Get returns the job record for id, or store.ErrJobNotFound.
func (o *Orchestrator) Get(ctx context.Context, id string) (*job.Job, error) {
	return o.store.Get(ctx, id)
}

// List returns jobs newest-first, filtered by owner when userID is set.
func (o *Orchestrator) List(ctx context.Context, userID string) ([]*job.Job, error) {
	return o.store.List(ctx, userID)
}

// Wait blocks until every in-flight background run has reached its terminal
// write. Used on shutdown and in tests.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// run drives one job to a terminal state. Every failure mode ends in a
// failed status with an error payload; nothing escapes to the scheduler.
func (o *Orchestrator) run(id string, spec job.Spec) {
	ctx := context.Background()

	processing := job.StatusProcessing
	j, err := o.store.Update(ctx, id, store.Update{Status: &processing})
	if err != nil {
		// The record vanished between submit and run; nothing to drive.
		if errors.Is(err, store.ErrJobNotFound) {
			o.logger.Warn("job disappeared before processing", "job_id", id)
			return
		}
		o.logger.Error("mark processing failed", "job_id", id, "error", err)
		return
	}
	o.notify(j)
	o.publish(j, schema.StageProcessing)

	res, err := o.engine.Extract(ctx, spec)
	if err != nil {
		o.finish(id, job.StatusFailed, &job.Result{Error: err.Error()})
		return
	}

	o.finish(id, job.StatusCompleted, &job.Result{
		Extractions:       res.Extractions,
		TotalExtractions:  res.TotalExtractions,
		UniqueClasses:     res.UniqueClasses,
		AverageConfidence: res.AverageConfidence,
		ProcessingTimeMs:  res.ProcessingTime.Milliseconds(),
	})
}

func (o *Orchestrator) finish(id string, status job.Status, result *job.Result) {
	now := time.Now().UTC()
	j, err := o.store.Update(context.Background(), id, store.Update{
		Status:      &status,
		Result:      result,
		CompletedAt: &now,
	})
	if err != nil {
		if errors.Is(err, store.ErrJobNotFound) {
			o.logger.Warn("job disappeared during processing", "job_id", id)
			return
		}
		o.logger.Error("terminal update failed", "job_id", id, "status", status, "error", err)
		return
	}

	if status == job.StatusFailed {
		o.logger.Warn("job failed", "job_id", id, "error", result.Error)
		o.notify(j)
		o.publish(j, schema.StageFailed)
		return
	}
	o.logger.Info("job completed",
		"job_id", id,
		"extractions", result.TotalExtractions,
		"unique_classes", result.UniqueClasses,
		"processing_ms", result.ProcessingTimeMs,
	)
	o.notify(j)
	o.publish(j, schema.StageCompleted)
}

func (o *Orchestrator) notify(j *job.Job) {
	if o.opts.Notifier != nil {
		o.opts.Notifier(j)
	}
}

func (o *Orchestrator) publish(j *job.Job, stage schema.EventStage) {
	if o.opts.Publisher == nil || o.opts.EventSubject == "" {
		return
	}
	evt := schema.JobEvent{
		JobID:      j.ID,
		UserID:     j.UserID,
		Stage:      stage,
		ModelID:    j.ModelID,
		HappenedAt: time.Now().Unix(),
	}
	if j.Result != nil {
		evt.TotalExtractions = j.Result.TotalExtractions
		evt.ProcessingTimeMs = j.Result.ProcessingTimeMs
		evt.Error = j.Result.Error
	}
	if err := o.opts.Publisher.PublishJSON(o.opts.EventSubject, evt); err != nil {
		o.logger.Warn("publish job event failed", "job_id", j.ID, "stage", stage, "error", err)
	}
}
