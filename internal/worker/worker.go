// Package worker runs periodic background jobs alongside the HTTP server.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Config holds worker configuration
type Config struct {
	// WorkerID uniquely identifies this worker instance in logs
	WorkerID string

	// MaxConcurrency is the maximum number of jobs running at once
	MaxConcurrency int
}

// Job is a task run on a fixed interval.
type Job struct {
	Name     string
	Interval time.Duration

	// Timeout bounds a single run. Zero means the interval.
	Timeout time.Duration

	Run func(ctx context.Context) error
}

// Worker runs periodic jobs until its context is cancelled
type Worker struct {
	config Config
	jobs   []Job
	logger *slog.Logger
}

// NewWorker creates a new background job worker
func NewWorker(config Config, logger *slog.Logger, jobs ...Job) *Worker {
	if config.WorkerID == "" {
		config.WorkerID = fmt.Sprintf("worker-%s", uuid.New().String()[:8])
	}
	if config.MaxConcurrency == 0 {
		config.MaxConcurrency = 2
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Worker{
		config: config,
		jobs:   jobs,
		logger: logger.With("worker_id", config.WorkerID),
	}
}

// Start runs every job once immediately and then on its interval. It blocks
// until ctx is cancelled and in-flight runs have returned.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("worker starting",
		"jobs", len(w.jobs),
		"max_concurrency", w.config.MaxConcurrency,
	)

	sem := make(chan struct{}, w.config.MaxConcurrency)
	var wg sync.WaitGroup

	for _, job := range w.jobs {
		if job.Interval <= 0 || job.Run == nil {
			w.logger.Warn("skipping job without interval or run func", "job", job.Name)
			continue
		}
		wg.Add(1)
		go func(job Job) {
			defer wg.Done()
			w.schedule(ctx, job, sem)
		}(job)
	}

	<-ctx.Done()
	w.logger.Info("worker shutting down")
	wg.Wait()
	return ctx.Err()
}

func (w *Worker) schedule(ctx context.Context, job Job, sem chan struct{}) {
	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case sem <- struct{}{}:
			w.runOnce(ctx, job)
			<-sem
		default:
			// At max concurrency, skip this tick
			w.logger.Debug("job skipped, worker busy", "job", job.Name)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *Worker) runOnce(ctx context.Context, job Job) {
	timeout := job.Timeout
	if timeout <= 0 {
		timeout = job.Interval
	}
	jobCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	if err := job.Run(jobCtx); err != nil {
		if ctx.Err() != nil {
			return
		}
		w.logger.Error("job failed", "job", job.Name, "error", err)
		return
	}
	w.logger.Debug("job completed", "job", job.Name, "duration", time.Since(start))
}
