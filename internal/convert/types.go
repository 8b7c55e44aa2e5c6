package convert

import (
	"errors"
	"time"

	"github.com/star/ecef2eci/internal/transform"
)

var (
	// ErrBatchTooLarge is returned when a batch exceeds Config.MaxBatch.
	ErrBatchTooLarge = errors.New("batch exceeds maximum size")
	// ErrNonFinite is returned when an input vector contains NaN or Inf.
	ErrNonFinite = errors.New("ECEF vector must be finite")
	// ErrNonFiniteTime is returned when a timestamp's Second is NaN or Inf.
	ErrNonFiniteTime = errors.New("timestamp second must be finite")
	// ErrTrackTooLong is returned when a track asks for more than Config.MaxTrackSamples.
	ErrTrackTooLong = errors.New("track exceeds maximum sample count")
	// ErrInvalidTrack is returned for a non-positive step or sample count, or
	// when the last sample would lie beyond the time.Duration range.
	ErrInvalidTrack = errors.New("track step and count must be positive and span at most ~292 years")
)

// Config holds converter configuration loaded from environment variables.
type Config struct {
	Workers         int // Worker pool size (default: runtime.NumCPU())
	MaxBatch        int // Max requests per batch (default: 10000)
	MaxTrackSamples int // Max samples per track (default: 86400)
}

// Request is a single ECEF position to convert at a timestamp.
type Request struct {
	Timestamp transform.CalendarTimestamp
	ECEF      transform.Vector3 // km
}

// Result is the ECI position for the Request at Index in the batch,
// along with the intermediate pipeline values.
type Result struct {
	Index         int
	JulianDate    float64
	SiderealAngle float64           // radians
	ECI           transform.Vector3 // km
}

// TrackRequest samples a fixed ECEF point at evenly spaced instants.
type TrackRequest struct {
	Start   time.Time
	Step    time.Duration
	Count   int
	ECEF    transform.Vector3 // km
	Inverse bool              // treat ECEF as ECI and return ECEF samples
}

// Sample is one point of a track.
type Sample struct {
	Time       time.Time
	JulianDate float64
	Position   transform.Vector3 // km
}
