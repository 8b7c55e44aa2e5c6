package health

import (
	"net/http"
	"sync/atomic"
)

// Healthz returns 200 "ok\n" unconditionally.
func Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok\n"))
}

// Readiness is flipped off during shutdown so load balancers drain the
// instance before the listener closes.
type Readiness struct {
	ready atomic.Bool
}

// NewReadiness returns a Readiness that starts ready.
func NewReadiness() *Readiness {
	r := &Readiness{}
	r.ready.Store(true)
	return r
}

// SetReady updates the readiness state.
func (rd *Readiness) SetReady(ready bool) {
	rd.ready.Store(ready)
}

// Readyz returns 200 "ready\n" while ready and 503 "shutting down\n" otherwise.
func (rd *Readiness) Readyz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	if !rd.ready.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("shutting down\n"))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready\n"))
}
