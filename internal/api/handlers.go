package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/star/ecef2eci/internal/convert"
	"github.com/star/ecef2eci/internal/ratelimit"
	"github.com/star/ecef2eci/internal/stream"
	"github.com/star/ecef2eci/internal/transform"
)

// maxBatchBody bounds the size of a batch request body.
const maxBatchBody = 8 << 20

// maxTrackStep is the largest track step in seconds (one year).
const maxTrackStep = 365 * 86400

type geodeticJSON struct {
	LatDeg float64 `json:"lat_deg"`
	LonDeg float64 `json:"lon_deg"`
	AltKm  float64 `json:"alt_km"`
}

type convertResponse struct {
	JulianDate       float64      `json:"julian_date"`
	SiderealAngleRad float64      `json:"sidereal_angle_rad"`
	ECEF             [3]float64   `json:"ecef_km"`
	ECI              [3]float64   `json:"eci_km"`
	Geodetic         geodeticJSON `json:"geodetic"`
}

type batchItem struct {
	Year   int        `json:"year"`
	Month  int        `json:"month"`
	Day    int        `json:"day"`
	Hour   int        `json:"hour"`
	Minute int        `json:"minute"`
	Second float64    `json:"second"`
	ECEF   [3]float64 `json:"ecef_km"`
}

type batchRequest struct {
	Items []batchItem `json:"items"`
}

type batchResult struct {
	JulianDate       float64    `json:"julian_date"`
	SiderealAngleRad float64    `json:"sidereal_angle_rad"`
	ECI              [3]float64 `json:"eci_km"`
}

type batchResponse struct {
	Count   int           `json:"count"`
	Results []batchResult `json:"results"`
}

type trackSample struct {
	Time       string     `json:"t"`
	JulianDate float64    `json:"julian_date"`
	Position   [3]float64 `json:"position_km"`
}

type trackResponse struct {
	Frame   string        `json:"frame"`
	Input   [3]float64    `json:"input_km"`
	Samples []trackSample `json:"samples"`
}

// convertHandler handles GET /api/v1/convert.
func convertHandler(logger *slog.Logger, conv *convert.Converter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		ts, err := parseTimestamp(q)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		ecef, err := parsePosition(q)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		res, err := conv.One(convert.Request{Timestamp: ts, ECEF: ecef})
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		geo := transform.ECEFToGeodetic(ecef)
		writeJSON(w, http.StatusOK, convertResponse{
			JulianDate:       res.JulianDate,
			SiderealAngleRad: res.SiderealAngle,
			ECEF:             ecef.Array(),
			ECI:              res.ECI.Array(),
			Geodetic:         geodeticJSON{LatDeg: geo.LatDeg, LonDeg: geo.LonDeg, AltKm: geo.AltKm},
		})
	}
}

// batchHandler handles POST /api/v1/convert/batch.
func batchHandler(logger *slog.Logger, conv *convert.Converter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body batchRequest
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBatchBody))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON body: %v", err))
			return
		}

		reqs := make([]convert.Request, len(body.Items))
		for i, it := range body.Items {
			reqs[i] = convert.Request{
				Timestamp: transform.CalendarTimestamp{
					Year: it.Year, Month: it.Month, Day: it.Day,
					Hour: it.Hour, Minute: it.Minute, Second: it.Second,
				},
				ECEF: transform.Vector3{X: it.ECEF[0], Y: it.ECEF[1], Z: it.ECEF[2]},
			}
		}

		results, err := conv.Batch(r.Context(), reqs)
		switch {
		case errors.Is(err, convert.ErrBatchTooLarge):
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":     err.Error(),
				"max_batch": conv.Config().MaxBatch,
			})
			return
		case err != nil && r.Context().Err() != nil:
			logger.Debug("batch aborted by client", "error", err)
			return
		case err != nil:
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		resp := batchResponse{Count: len(results), Results: make([]batchResult, len(results))}
		for i, res := range results {
			resp.Results[i] = batchResult{
				JulianDate:       res.JulianDate,
				SiderealAngleRad: res.SiderealAngle,
				ECI:              res.ECI.Array(),
			}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// trackHandler handles GET /api/v1/track?start=RFC3339&step=60&count=60&x=..&y=..&z=..
func trackHandler(logger *slog.Logger, conv *convert.Converter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		start, err := time.Parse(time.RFC3339Nano, q.Get("start"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "start must be an RFC3339 timestamp")
			return
		}

		stepSec := 60.0
		if v := q.Get("step"); v != "" {
			stepSec, err = strconv.ParseFloat(v, 64)
			if err != nil || !(stepSec > 0 && stepSec <= maxTrackStep) {
				writeError(w, http.StatusBadRequest, "invalid step parameter, must be 0 < step <= 31536000 seconds")
				return
			}
		}

		count := 60
		if v := q.Get("count"); v != "" {
			count, err = strconv.Atoi(v)
			if err != nil || count < 1 {
				writeError(w, http.StatusBadRequest, "invalid count parameter, must be a positive integer")
				return
			}
		}

		inverse := false
		if v := q.Get("inverse"); v != "" {
			inverse, err = strconv.ParseBool(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid inverse parameter, must be a boolean")
				return
			}
		}

		pos, err := parsePosition(q)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		samples, err := conv.Track(r.Context(), convert.TrackRequest{
			Start:   start,
			Step:    time.Duration(stepSec * float64(time.Second)),
			Count:   count,
			ECEF:    pos,
			Inverse: inverse,
		})
		switch {
		case errors.Is(err, convert.ErrTrackTooLong):
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":       err.Error(),
				"max_samples": conv.Config().MaxTrackSamples,
			})
			return
		case err != nil && r.Context().Err() != nil:
			logger.Debug("track aborted by client", "error", err)
			return
		case err != nil:
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		resp := trackResponse{Frame: "ECI", Input: pos.Array(), Samples: make([]trackSample, len(samples))}
		if inverse {
			resp.Frame = "ECEF"
		}
		for i, s := range samples {
			resp.Samples[i] = trackSample{
				Time:       s.Time.Format(time.RFC3339Nano),
				JulianDate: s.JulianDate,
				Position:   s.Position.Array(),
			}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// streamHandler handles GET /api/v1/stream?step=5&x=..&y=..&z=..
func streamHandler(streams *stream.Handler, limiter *ratelimit.Limiter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		step := 5
		if v := q.Get("step"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 || n > 60 {
				writeError(w, http.StatusBadRequest, "invalid step parameter, must be 1-60")
				return
			}
			step = n
		}

		pos, err := parsePosition(q)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if !pos.IsFinite() {
			writeError(w, http.StatusBadRequest, "position must be finite")
			return
		}

		streams.Serve(w, r, limiter.ClientIP(r), pos, time.Duration(step)*time.Second)
	}
}

// parseTimestamp reads year, month, day, hour, minute and second. All are required.
func parseTimestamp(q url.Values) (transform.CalendarTimestamp, error) {
	var ts transform.CalendarTimestamp
	ints := []struct {
		name string
		dst  *int
	}{
		{"year", &ts.Year},
		{"month", &ts.Month},
		{"day", &ts.Day},
		{"hour", &ts.Hour},
		{"minute", &ts.Minute},
	}
	for _, p := range ints {
		n, err := strconv.Atoi(q.Get(p.name))
		if err != nil {
			return ts, fmt.Errorf("missing or invalid %s parameter, must be an integer", p.name)
		}
		*p.dst = n
	}

	sec, err := strconv.ParseFloat(q.Get("second"), 64)
	if err != nil || math.IsNaN(sec) || math.IsInf(sec, 0) {
		return ts, errors.New("missing or invalid second parameter, must be a finite number")
	}
	ts.Second = sec
	return ts, nil
}

// parsePosition reads x, y, z (km), or lat, lon (degrees) and alt (km) when x is absent.
func parsePosition(q url.Values) (transform.Vector3, error) {
	if q.Has("x") {
		v, err := parseFloats(q, "x", "y", "z")
		if err != nil {
			return transform.Vector3{}, err
		}
		return transform.Vector3{X: v[0], Y: v[1], Z: v[2]}, nil
	}
	if q.Has("lat") {
		v, err := parseFloats(q, "lat", "lon", "alt")
		if err != nil {
			return transform.Vector3{}, err
		}
		return transform.GeodeticToECEF(v[0], v[1], v[2]), nil
	}
	return transform.Vector3{}, errors.New("position required: x, y, z in km or lat, lon, alt")
}

func parseFloats(q url.Values, names ...string) ([]float64, error) {
	out := make([]float64, len(names))
	for i, name := range names {
		f, err := strconv.ParseFloat(q.Get(name), 64)
		if err != nil {
			return nil, fmt.Errorf("missing or invalid %s parameter, must be a number", name)
		}
		out[i] = f
	}
	return out, nil
}
