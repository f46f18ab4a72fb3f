package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStatusWriter_ImplicitOK(t *testing.T) {
	rr := httptest.NewRecorder()
	sw := &statusWriter{ResponseWriter: rr}

	if _, err := sw.Write([]byte("hello")); err != nil {
		t.Fatal(err)
	}
	if sw.Status() != http.StatusOK {
		t.Fatalf("implicit status = %d", sw.Status())
	}
}

func TestStatusWriter_FirstCodeWins(t *testing.T) {
	rr := httptest.NewRecorder()
	sw := &statusWriter{ResponseWriter: rr}

	sw.WriteHeader(http.StatusNotFound)
	sw.WriteHeader(http.StatusInternalServerError)

	if sw.Status() != http.StatusNotFound {
		t.Fatalf("recorded status = %d", sw.Status())
	}
	if rr.Code != http.StatusNotFound {
		t.Fatalf("written status = %d", rr.Code)
	}
}

func TestRoutePattern_FallsBackToPath(t *testing.T) {
	r := httptest.NewRequest("GET", "/v1/tours/abc", nil)
	if got := routePattern(r); got != "/v1/tours/abc" {
		t.Fatalf("routePattern = %q", got)
	}
}
