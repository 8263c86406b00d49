package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func serve(h http.Handler, path string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, http.NoBody))
	return rr
}

func TestMiddleware_LabelsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/v1/providers/{id}", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/v1/providers/{id}", "200"))
	serve(r, "/v1/providers/a")
	serve(r, "/v1/providers/b")

	got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/v1/providers/{id}", "200"))
	if got-before != 2 {
		t.Errorf("requests_total delta = %v, want 2 under one route label", got-before)
	}
	if testutil.CollectAndCount(httpRequestDuration) == 0 {
		t.Error("expected request duration observations")
	}
	if v := testutil.ToFloat64(httpRequestsInFlight); v != 0 {
		t.Errorf("in flight = %v after requests completed, want 0", v)
	}
}

func TestMiddleware_StatusCodes(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	r.Get("/v1/providers/search", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})
	r.Get("/empty", func(http.ResponseWriter, *http.Request) {})

	tests := []struct {
		path   string
		status string
	}{
		{"/health", "503"},
		{"/v1/providers/search", "400"},
		{"/empty", "200"},
	}

	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			serve(r, tc.path)
			if v := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", tc.path, tc.status)); v < 1 {
				t.Errorf("requests_total{%s,%s} = %v, want >= 1", tc.path, tc.status, v)
			}
		})
	}
}

func TestMiddleware_UnmatchedRoute(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/health", func(http.ResponseWriter, *http.Request) {})

	serve(r, "/v1/providers/123")

	if v := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", unmatchedRoute, "404")); v < 1 {
		t.Errorf("unmatched routes should be labelled %s, got %v", unmatchedRoute, v)
	}
}

func TestMiddleware_OutsideChi(t *testing.T) {
	h := Middleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	serve(h, "/plain")

	if v := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", unmatchedRoute, "418")); v < 1 {
		t.Errorf("requests outside chi should be labelled %s, got %v", unmatchedRoute, v)
	}
}

func TestRegister_Idempotent(t *testing.T) {
	RegisterHTTPMetrics()
	RegisterHTTPMetrics()
	RegisterDiscoveryMetrics()
	RegisterDiscoveryMetrics()
}
