package convert

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"os"
	"testing"
	"time"

	"gonum.org/v1/gonum/floats/scalar"

	"github.com/star/ecef2eci/internal/transform"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func testConfig() Config {
	return Config{Workers: 4, MaxBatch: 1000, MaxTrackSamples: 100}
}

func vectorsEqual(a, b transform.Vector3, tol float64) bool {
	return scalar.EqualWithinAbs(a.X, b.X, tol) &&
		scalar.EqualWithinAbs(a.Y, b.Y, tol) &&
		scalar.EqualWithinAbs(a.Z, b.Z, tol)
}

func makeRequests(n int) []Request {
	base := time.Date(2020, 3, 15, 12, 0, 0, 0, time.UTC)
	reqs := make([]Request, n)
	for i := range reqs {
		reqs[i] = Request{
			Timestamp: transform.TimestampFromTime(base.Add(time.Duration(i) * 97 * time.Second)),
			ECEF:      transform.Vector3{X: 6378.137 + float64(i), Y: float64(i) * 0.5, Z: -float64(i)},
		}
	}
	return reqs
}

// TestBatchOrder verifies results come back in input order and match the
// sequential pipeline.
func TestBatchOrder(t *testing.T) {
	c := NewConverter(testConfig(), testLogger())
	reqs := makeRequests(250)

	results, err := c.Batch(context.Background(), reqs)
	if err != nil {
		t.Fatalf("Batch failed: %v", err)
	}
	if len(results) != len(reqs) {
		t.Fatalf("got %d results, want %d", len(results), len(reqs))
	}

	for i, res := range results {
		if res.Index != i {
			t.Fatalf("result %d has index %d", i, res.Index)
		}
		want := transform.ECEFToECI(reqs[i].Timestamp, reqs[i].ECEF)
		if res.ECI != want {
			t.Errorf("result %d: ECI = %+v, want %+v", i, res.ECI, want)
		}
		if res.JulianDate != transform.JulianDate(reqs[i].Timestamp) {
			t.Errorf("result %d: JulianDate = %.9f", i, res.JulianDate)
		}
	}
}

func TestBatchEmpty(t *testing.T) {
	c := NewConverter(testConfig(), testLogger())
	results, err := c.Batch(context.Background(), nil)
	if err != nil || len(results) != 0 {
		t.Fatalf("Batch(nil) = %v, %v; want empty, nil", results, err)
	}
}

func TestBatchTooLarge(t *testing.T) {
	c := NewConverter(Config{Workers: 2, MaxBatch: 10}, testLogger())
	_, err := c.Batch(context.Background(), makeRequests(11))
	if !errors.Is(err, ErrBatchTooLarge) {
		t.Fatalf("err = %v, want ErrBatchTooLarge", err)
	}
}

func TestBatchNonFinite(t *testing.T) {
	c := NewConverter(testConfig(), testLogger())
	reqs := makeRequests(5)
	reqs[3].ECEF.Y = math.NaN()

	_, err := c.Batch(context.Background(), reqs)
	if !errors.Is(err, ErrNonFinite) {
		t.Fatalf("err = %v, want ErrNonFinite", err)
	}
}

func TestBatchNonFiniteSecond(t *testing.T) {
	c := NewConverter(testConfig(), testLogger())
	reqs := makeRequests(5)
	reqs[2].Timestamp.Second = math.Inf(-1)

	_, err := c.Batch(context.Background(), reqs)
	if !errors.Is(err, ErrNonFiniteTime) {
		t.Fatalf("err = %v, want ErrNonFiniteTime", err)
	}
}

// TestBatchCancellation verifies the batch respects context cancellation.
func TestBatchCancellation(t *testing.T) {
	c := NewConverter(Config{Workers: 2, MaxBatch: 1000}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately.

	results, err := c.Batch(ctx, makeRequests(100))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if results != nil {
		t.Errorf("expected no results with cancelled context, got %d", len(results))
	}
}

func TestOne(t *testing.T) {
	c := NewConverter(testConfig(), testLogger())
	req := Request{
		Timestamp: transform.CalendarTimestamp{Year: 2020, Month: 3, Day: 15, Hour: 12},
		ECEF:      transform.Vector3{X: 6378.137},
	}

	res, err := c.One(req)
	if err != nil {
		t.Fatalf("One failed: %v", err)
	}
	want := transform.Vector3{X: 6348.991675777427, Y: -609.0453937744991}
	if !vectorsEqual(res.ECI, want, 1e-6) {
		t.Errorf("ECI = %+v, want %+v", res.ECI, want)
	}

	req.ECEF.Z = math.Inf(1)
	if _, err := c.One(req); !errors.Is(err, ErrNonFinite) {
		t.Errorf("err = %v, want ErrNonFinite", err)
	}

	req.ECEF.Z = 0
	for _, sec := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		req.Timestamp.Second = sec
		if _, err := c.One(req); !errors.Is(err, ErrNonFiniteTime) {
			t.Errorf("second=%v: err = %v, want ErrNonFiniteTime", sec, err)
		}
	}
}

// TestTrack verifies sample spacing and values over a short horizon.
func TestTrack(t *testing.T) {
	c := NewConverter(testConfig(), testLogger())
	start := time.Date(2020, 3, 15, 12, 0, 0, 0, time.UTC)

	samples, err := c.Track(context.Background(), TrackRequest{
		Start: start,
		Step:  time.Hour,
		Count: 3,
		ECEF:  transform.Vector3{X: 6378.137},
	})
	if err != nil {
		t.Fatalf("Track failed: %v", err)
	}
	if len(samples) != 3 {
		t.Fatalf("got %d samples, want 3", len(samples))
	}

	want := []transform.Vector3{
		{X: 6348.991675777427, Y: -609.0453937744991},
		{X: 6306.137957215504, Y: 955.6441049548038},
		{X: 5840.248570992927, Y: 2563.6162387892746},
	}
	for i, s := range samples {
		expectedTime := start.Add(time.Duration(i) * time.Hour)
		if !s.Time.Equal(expectedTime) {
			t.Errorf("sample %d: time = %v, want %v", i, s.Time, expectedTime)
		}
		if !vectorsEqual(s.Position, want[i], 1e-6) {
			t.Errorf("sample %d: position = %+v, want %+v", i, s.Position, want[i])
		}
	}
}

func TestTrackInverse(t *testing.T) {
	c := NewConverter(testConfig(), testLogger())
	start := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)
	ecef := transform.Vector3{X: 1917.03, Y: -6071.21, Z: 1361.47}

	forward, err := c.Track(context.Background(), TrackRequest{Start: start, Step: time.Minute, Count: 5, ECEF: ecef})
	if err != nil {
		t.Fatalf("Track failed: %v", err)
	}
	for i, s := range forward {
		back, err := c.Track(context.Background(), TrackRequest{
			Start: s.Time, Step: time.Second, Count: 1, ECEF: s.Position, Inverse: true,
		})
		if err != nil {
			t.Fatalf("inverse Track failed: %v", err)
		}
		if !vectorsEqual(back[0].Position, ecef, 1e-9) {
			t.Errorf("sample %d: inverse = %+v, want %+v", i, back[0].Position, ecef)
		}
	}
}

func TestTrackInvalid(t *testing.T) {
	c := NewConverter(testConfig(), testLogger())
	start := time.Date(2020, 3, 15, 12, 0, 0, 0, time.UTC)
	v := transform.Vector3{X: 1}

	tests := []struct {
		name string
		req  TrackRequest
		want error
	}{
		{"zero step", TrackRequest{Start: start, Step: 0, Count: 3, ECEF: v}, ErrInvalidTrack},
		{"negative step", TrackRequest{Start: start, Step: -time.Second, Count: 3, ECEF: v}, ErrInvalidTrack},
		{"zero count", TrackRequest{Start: start, Step: time.Second, Count: 0, ECEF: v}, ErrInvalidTrack},
		{"too long", TrackRequest{Start: start, Step: time.Second, Count: 101, ECEF: v}, ErrTrackTooLong},
		{"NaN", TrackRequest{Start: start, Step: time.Second, Count: 1, ECEF: transform.Vector3{X: math.NaN()}}, ErrNonFinite},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := c.Track(context.Background(), tt.req); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

// TestTrackDurationLimit checks the largest span whose offsets still fit in a
// time.Duration. Beyond it sample times would wrap to the past.
func TestTrackDurationLimit(t *testing.T) {
	c := NewConverter(Config{Workers: 1}, testLogger()) // no sample cap
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	year := 365 * 24 * time.Hour // 292 steps fit, 293 do not

	samples, err := c.Track(context.Background(), TrackRequest{Start: start, Step: year, Count: 293, ECEF: transform.Vector3{X: 1}})
	if err != nil {
		t.Fatalf("Track(293 samples) failed: %v", err)
	}
	for i := 1; i < len(samples); i++ {
		if !samples[i].Time.After(samples[i-1].Time) {
			t.Fatalf("sample %d time %v not after %v", i, samples[i].Time, samples[i-1].Time)
		}
	}
	if want := start.Add(292 * year); !samples[292].Time.Equal(want) {
		t.Errorf("last sample = %v, want %v", samples[292].Time, want)
	}

	for _, count := range []int{294, 400} {
		_, err := c.Track(context.Background(), TrackRequest{Start: start, Step: year, Count: count, ECEF: transform.Vector3{X: 1}})
		if !errors.Is(err, ErrInvalidTrack) {
			t.Errorf("count=%d: err = %v, want ErrInvalidTrack", count, err)
		}
	}
}

// BenchmarkBatch1000 benchmarks converting 1000 positions.
func BenchmarkBatch1000(b *testing.B) {
	c := NewConverter(Config{Workers: 4, MaxBatch: 1000}, testLogger())
	reqs := makeRequests(1000)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := c.Batch(ctx, reqs); err != nil {
			b.Fatal(err)
		}
	}
}
