package convert

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/star/ecef2eci/internal/metrics"
	"github.com/star/ecef2eci/internal/transform"
)

// Converter runs ECEF→ECI conversions in bulk on a bounded worker pool.
type Converter struct {
	pool   *WorkerPool
	config Config
	logger *slog.Logger
}

// NewConverter creates a converter with the given configuration.
func NewConverter(config Config, logger *slog.Logger) *Converter {
	return &Converter{
		pool:   NewWorkerPool(config.Workers, logger),
		config: config,
		logger: logger,
	}
}

// Config returns the converter's configuration.
func (c *Converter) Config() Config {
	return c.config
}

// One converts a single request synchronously.
func (c *Converter) One(req Request) (Result, error) {
	if err := validate(req); err != nil {
		return Result{}, err
	}
	start := time.Now()
	res := convertSingle(convertJob{req: req})
	metrics.RecordConversions(metrics.KindSingle, 1, time.Since(start))
	return res, nil
}

// Batch converts all requests and returns results in input order.
func (c *Converter) Batch(ctx context.Context, reqs []Request) ([]Result, error) {
	if c.config.MaxBatch > 0 && len(reqs) > c.config.MaxBatch {
		return nil, fmt.Errorf("%w: %d > %d", ErrBatchTooLarge, len(reqs), c.config.MaxBatch)
	}
	for i, req := range reqs {
		if err := validate(req); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	results, err := c.pool.ConvertBatch(ctx, reqs)
	if err != nil {
		return nil, err
	}
	duration := time.Since(start)

	metrics.RecordConversions(metrics.KindBatch, len(results), duration)

	c.logger.Debug("batch conversion complete",
		"count", len(results),
		"workers", c.pool.workers,
		"duration_ms", duration.Milliseconds(),
	)

	return results, nil
}

// Track samples the position of a fixed point from req.Start every req.Step.
// Without Inverse the point is ECEF and samples are ECI; with Inverse the
// point is ECI and samples are ECEF.
func (c *Converter) Track(ctx context.Context, req TrackRequest) ([]Sample, error) {
	if req.Step <= 0 || req.Count < 1 {
		return nil, ErrInvalidTrack
	}
	// (Count-1)*Step must fit in a time.Duration.
	if int64(req.Count-1) > math.MaxInt64/int64(req.Step) {
		return nil, fmt.Errorf("%w: %d samples every %v", ErrInvalidTrack, req.Count, req.Step)
	}
	if c.config.MaxTrackSamples > 0 && req.Count > c.config.MaxTrackSamples {
		return nil, fmt.Errorf("%w: %d > %d", ErrTrackTooLong, req.Count, c.config.MaxTrackSamples)
	}
	if !req.ECEF.IsFinite() {
		return nil, ErrNonFinite
	}

	start := time.Now()
	samples := make([]Sample, 0, req.Count)
	for i := 0; i < req.Count; i++ {
		select {
		case <-ctx.Done():
			return samples, ctx.Err()
		default:
		}

		at := req.Start.Add(time.Duration(i) * req.Step)
		ts := transform.TimestampFromTime(at)
		jd := transform.JulianDate(ts)

		θ := transform.SiderealAngle(jd)
		if req.Inverse {
			θ = -θ
		}

		samples = append(samples, Sample{
			Time:       at.UTC(),
			JulianDate: jd,
			Position:   transform.Rotate(θ, req.ECEF),
		})
	}

	metrics.RecordConversions(metrics.KindTrack, len(samples), time.Since(start))
	return samples, nil
}

// validate rejects requests whose results could not be finite.
func validate(req Request) error {
	if !req.ECEF.IsFinite() {
		return ErrNonFinite
	}
	if math.IsNaN(req.Timestamp.Second) || math.IsInf(req.Timestamp.Second, 0) {
		return ErrNonFiniteTime
	}
	return nil
}
