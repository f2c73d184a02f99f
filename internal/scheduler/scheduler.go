// Package scheduler runs enqueued ingestion jobs on a worker pool. Jobs are
// described by an explicit descriptor (kind + serialized arguments) and
// dispatched through a registered handler table, so enqueue-time code never
// depends on the pipeline implementation type.
package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/timmy/mediahub/internal/logger"
)

// HandlerFunc processes one job. A returned error marks the run as failed;
// the scheduler logs it and leaves the job terminal in the ledger.
type HandlerFunc func(ctx context.Context, jobID string, args json.RawMessage) error

// Descriptor names a handler and carries its serialized arguments.
type Descriptor struct {
	Kind string          `json:"kind"`
	Args json.RawMessage `json:"args"`
}

type queuedJob struct {
	id   string
	desc Descriptor
}

// Scheduler owns the worker pool and the handler registry. Handlers must be
// registered before Start.
type Scheduler struct {
	handlers map[string]HandlerFunc
	queue    chan queuedJob
	workers  int
	logger   *logger.Logger

	wg      sync.WaitGroup
	started bool
	mu      sync.Mutex
}

// New creates a scheduler with the given pool size and queue capacity.
func New(workers, queueSize int, log *logger.Logger) *Scheduler {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 100
	}
	return &Scheduler{
		handlers: make(map[string]HandlerFunc),
		queue:    make(chan queuedJob, queueSize),
		workers:  workers,
		logger:   log,
	}
}

// Register binds a handler to a descriptor kind.
func (s *Scheduler) Register(kind string, h HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[kind] = h
}

// Enqueue serializes args into a descriptor and queues it, returning the
// assigned job id. Blocks when the queue is full.
func (s *Scheduler) Enqueue(kind string, args interface{}) (string, error) {
	s.mu.Lock()
	_, ok := s.handlers[kind]
	s.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("no handler registered for job kind %q", kind)
	}

	raw, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("failed to serialize job arguments: %w", err)
	}

	jobID := uuid.New().String()
	s.queue <- queuedJob{
		id:   jobID,
		desc: Descriptor{Kind: kind, Args: raw},
	}
	return jobID, nil
}

// Start launches the worker pool. Workers drain the queue until Stop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}
}

// Stop closes the queue and waits for in-flight jobs to finish.
func (s *Scheduler) Stop() {
	close(s.queue)
	s.wg.Wait()
}

func (s *Scheduler) worker(ctx context.Context, workerID int) {
	defer s.wg.Done()

	for job := range s.queue {
		s.mu.Lock()
		handler := s.handlers[job.desc.Kind]
		s.mu.Unlock()

		jobCtx := logger.SetJobID(ctx, job.id)
		log := logger.FromContext(jobCtx).WithField("kind", job.desc.Kind)

		start := time.Now()
		log.Info("Job started")

		if err := handler(jobCtx, job.id, job.desc.Args); err != nil {
			// The pipeline has already marked the job Failed with a
			// message; a re-submission creates a fresh job.
			log.WithField(logger.FieldDurationMs, time.Since(start).Milliseconds()).
				WithError(err).Error("Job failed")
			continue
		}

		log.WithField(logger.FieldDurationMs, time.Since(start).Milliseconds()).
			Info("Job completed")
	}
}
