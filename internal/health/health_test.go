package health

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestReadyz(t *testing.T) {
	rd := NewReadiness()

	w := httptest.NewRecorder()
	rd.Readyz(w, httptest.NewRequest("GET", "/readyz", nil))
	if w.Code != http.StatusOK || w.Body.String() != "ready\n" {
		t.Fatalf("ready: got %d %q", w.Code, w.Body.String())
	}

	rd.SetReady(false)
	w = httptest.NewRecorder()
	rd.Readyz(w, httptest.NewRequest("GET", "/readyz", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("draining: got %d, want 503", w.Code)
	}
}

func TestHealthz(t *testing.T) {
	w := httptest.NewRecorder()
	Healthz(w, httptest.NewRequest("GET", "/healthz", nil))
	if w.Code != http.StatusOK || w.Body.String() != "ok\n" {
		t.Fatalf("got %d %q", w.Code, w.Body.String())
	}
}
