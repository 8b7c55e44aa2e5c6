// Package stream implements Server-Sent Events (SSE) streaming of live ECI
// positions. Clients connect via GET /api/v1/stream with a fixed ECEF point and
// receive the point's ECI position every step until they disconnect.
//
// SSE message format:
//
//	data: {"type":"sample","t":"2026-02-06T04:00:00Z","frame":"ECI","julian_date":2461077.666,"position_km":[...]}\n\n
//
// First message is always metadata:
//
//	data: {"type":"metadata","frame":"ECI","input_km":[6378.137,0,0],"step_seconds":5}\n\n
//
// Keep-alive comments (:\n\n) are sent every KeepaliveInterval to prevent timeout.
package stream

import (
	"encoding/json"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"github.com/star/ecef2eci/internal/metrics"
	"github.com/star/ecef2eci/internal/transform"
)

// Config holds streaming configuration loaded from environment variables.
type Config struct {
	MaxConcurrentPerIP int           // Max concurrent streams per IP (default: 10).
	MaxConcurrent      int           // Max concurrent streams overall (default: 1000).
	KeepaliveInterval  time.Duration // Keep-alive ping interval (default: 30s).
}

// Handler manages SSE streaming connections.
type Handler struct {
	config  Config
	limiter *streamLimiter
	logger  *slog.Logger
	now     func() time.Time
}

// NewHandler creates a new streaming handler.
func NewHandler(config Config, logger *slog.Logger) *Handler {
	if config.MaxConcurrentPerIP < 1 {
		config.MaxConcurrentPerIP = 10
	}
	if config.MaxConcurrent < 1 {
		config.MaxConcurrent = 1000
	}
	if config.KeepaliveInterval <= 0 {
		config.KeepaliveInterval = 30 * time.Second
	}
	return &Handler{
		config:  config,
		limiter: newStreamLimiter(config.MaxConcurrentPerIP, config.MaxConcurrent),
		logger:  logger,
		now:     time.Now,
	}
}

// Serve streams the ECI position of ecef every step to the client at ip.
// It returns when the request context is cancelled or a write fails.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request, ip string, ecef transform.Vector3, step time.Duration) {
	// Rate limiting: enforce concurrent stream limit per IP.
	if !h.limiter.acquire(ip) {
		metrics.IncStreamErrors("rate_limit")
		h.logger.Warn("stream rate limit exceeded",
			"remote_ip", ip,
			"current_count", h.limiter.count(ip),
		)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]string{"error": "too many concurrent streams"})
		return
	}

	// The server's WriteTimeout would otherwise cut long-lived streams.
	rc := http.NewResponseController(w)
	c := &client{w: w, rc: rc, logger: h.logger}

	metrics.IncStreamsActive()
	startTime := time.Now()
	h.logger.Info("stream connected",
		"remote_ip", ip,
		"user_agent", r.Header.Get("User-Agent"),
		"step_seconds", step.Seconds(),
	)

	defer func() {
		h.limiter.release(ip)
		metrics.DecStreamsActive()
		h.logger.Info("stream disconnected",
			"remote_ip", ip,
			"duration_seconds", int(time.Since(startTime).Seconds()),
			"messages_sent", c.messagesSent,
		)
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering.
	w.WriteHeader(http.StatusOK)

	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Debug("could not clear write deadline", "error", err)
	}

	// Jittered retry interval (3-7s) spreads reconnects after a restart.
	if err := c.sendRetry(3000 + rand.Intn(4000)); err != nil {
		metrics.IncStreamErrors("send_error")
		h.logger.Warn("stream send error (retry)", "remote_ip", ip, "error", err)
		return
	}

	meta := metadataMessage{
		Type:        "metadata",
		Frame:       "ECI",
		Input:       ecef.Array(),
		StepSeconds: step.Seconds(),
	}
	if err := c.sendJSON(meta); err != nil {
		metrics.IncStreamErrors("send_error")
		h.logger.Warn("stream send error (metadata)", "remote_ip", ip, "error", err)
		return
	}

	// The first sample goes out immediately; later ones on each tick.
	if err := c.sendJSON(h.sample(h.now(), ecef)); err != nil {
		metrics.IncStreamErrors("send_error")
		h.logger.Warn("stream send error", "remote_ip", ip, "error", err)
		return
	}

	ticker := time.NewTicker(step)
	defer ticker.Stop()

	keepaliveTicker := time.NewTicker(h.config.KeepaliveInterval)
	defer keepaliveTicker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			if err := c.sendJSON(h.sample(h.now(), ecef)); err != nil {
				metrics.IncStreamErrors("send_error")
				h.logger.Warn("stream send error", "remote_ip", ip, "error", err)
				return
			}
			keepaliveTicker.Reset(h.config.KeepaliveInterval)

		case <-keepaliveTicker.C:
			if err := c.sendKeepalive(); err != nil {
				metrics.IncStreamErrors("send_error")
				h.logger.Warn("stream keepalive error", "remote_ip", ip, "error", err)
				return
			}
		}
	}
}

// sample converts ecef at t, truncated to whole milliseconds.
func (h *Handler) sample(t time.Time, ecef transform.Vector3) sampleMessage {
	start := time.Now()
	t = t.UTC().Truncate(time.Millisecond)
	ts := transform.TimestampFromTime(t)
	eci := transform.ECEFToECI(ts, ecef)
	metrics.RecordConversions(metrics.KindStream, 1, time.Since(start))

	return sampleMessage{
		Type:       "sample",
		T:          t.Format(time.RFC3339Nano),
		Frame:      "ECI",
		JulianDate: transform.JulianDate(ts),
		Position:   eci.Array(),
	}
}

// SSE message payload types.

type metadataMessage struct {
	Type        string     `json:"type"`
	Frame       string     `json:"frame"`
	Input       [3]float64 `json:"input_km"`
	StepSeconds float64    `json:"step_seconds"`
}

type sampleMessage struct {
	Type       string     `json:"type"`
	T          string     `json:"t"`
	Frame      string     `json:"frame"`
	JulianDate float64    `json:"julian_date"`
	Position   [3]float64 `json:"position_km"`
}
