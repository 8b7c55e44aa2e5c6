package convert

import (
	"context"
	"log/slog"
	"sync"

	"github.com/star/ecef2eci/internal/transform"
)

// convertJob is a unit of work for the worker pool.
type convertJob struct {
	index int
	req   Request
}

// WorkerPool manages a fixed number of goroutines for parallel conversion.
type WorkerPool struct {
	workers int
	logger  *slog.Logger
}

// NewWorkerPool creates a worker pool with the given number of workers.
func NewWorkerPool(workers int, logger *slog.Logger) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	return &WorkerPool{
		workers: workers,
		logger:  logger,
	}
}

// ConvertBatch converts every request using the worker pool.
// Results are returned in input order. If ctx is cancelled before all
// results are in, the partial results are discarded and ctx.Err() is returned.
func (wp *WorkerPool) ConvertBatch(ctx context.Context, reqs []Request) ([]Result, error) {
	if len(reqs) == 0 {
		return nil, nil
	}

	jobs := make(chan convertJob, wp.workers*2)
	results := make(chan Result, wp.workers*2)

	// Start workers.
	var wg sync.WaitGroup
	for i := 0; i < wp.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				result := convertSingle(job)
				select {
				case results <- result:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	// Feed jobs in a goroutine.
	go func() {
		defer close(jobs)
		for i, req := range reqs {
			select {
			case jobs <- convertJob{index: i, req: req}:
			case <-ctx.Done():
				return
			}
		}
	}()

	// Close results when all workers are done.
	go func() {
		wg.Wait()
		close(results)
	}()

	// Collect results into their input slots.
	out := make([]Result, len(reqs))
	received := 0
	for result := range results {
		out[result.Index] = result
		received++
	}

	if received < len(reqs) {
		wp.logger.Debug("batch cancelled",
			"received", received,
			"total", len(reqs),
		)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// convertSingle runs the full ECEF→ECI pipeline for one request.
func convertSingle(job convertJob) Result {
	jd := transform.JulianDate(job.req.Timestamp)
	θ := transform.SiderealAngle(jd)

	return Result{
		Index:         job.index,
		JulianDate:    jd,
		SiderealAngle: θ,
		ECI:           transform.Rotate(θ, job.req.ECEF),
	}
}
