package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddlewareRecordsRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Post("/v1/query", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	tests := []struct {
		method string
		path   string
		status string
	}{
		{http.MethodPost, "/v1/query", "400"},
		{http.MethodGet, "/healthz", "200"},
	}

	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(tc.method, tc.path, tc.status))

			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest(tc.method, tc.path, http.NoBody))

			after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(tc.method, tc.path, tc.status))
			if after-before != 1 {
				t.Fatalf("expected one request recorded for %s %s, got %f", tc.method, tc.path, after-before)
			}
		})
	}

	if testutil.CollectAndCount(httpRequestDuration) == 0 {
		t.Fatal("expected duration observations")
	}
}

func TestRegisterIsIdempotent(t *testing.T) {
	Register()
	Register()
}
