package obs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deflink/deflink/internal/store"
)

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                                  "/",
		"/metrics":                          "/metrics",
		"/health/ready":                     "/health/ready",
		"/api/providers":                    "/api/providers",
		"/api/admin/providers":              "/api/admin/providers",
		"/api/admin/providers/abc":          "/api/admin/providers/:id",
		"/api/admin/oem-requests/abc":       "/api/admin/oem-requests/:id",
		"/api/admin/oem-requests/abc/extra": "other",
		"/api/junk-7":                       "other",
		"/health/deep":                      "other",
		"/api/oem/requests?limit=10":        "/api/oem/requests",
		"/wp-login.php":                     "other",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestInstrument_RecordsRequests(t *testing.T) {
	m := NewMetrics("test")
	h := m.Instrument(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/api/admin/providers/123", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	out := scrape(t, m)
	assert.Contains(t, out, `deflink_http_requests_total{method="PATCH",path="/api/admin/providers/:id",status="404"} 1`)
	assert.Contains(t, out, `deflink_build_info{version="test"} 1`)
	assert.Contains(t, out, `deflink_http_in_flight_requests 0`)
}

func TestInstrument_BoundsLabelsForUnknownPaths(t *testing.T) {
	m := NewMetrics("test")
	h := m.Instrument(http.NotFoundHandler())

	for i := 0; i < 50; i++ {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/junk-%d", i), nil))
	}
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("BREW", "/api/junk", nil))

	out := scrape(t, m)
	assert.Contains(t, out, `deflink_http_requests_total{method="GET",path="other",status="404"} 50`)
	assert.Contains(t, out, `deflink_http_requests_total{method="OTHER",path="other",status="404"} 1`)
	assert.NotContains(t, out, "junk")
}

func TestInstrument_UsesMuxPattern(t *testing.T) {
	m := NewMetrics("test")
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/admin/providers/{id}", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/api/", http.NotFound)
	h := m.Instrument(mux)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/admin/providers/abc", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/whatever-1", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/whatever-2", nil))

	out := scrape(t, m)
	assert.Contains(t, out, `deflink_http_requests_total{method="GET",path="/api/admin/providers/:id",status="200"} 1`)
	assert.Contains(t, out, `deflink_http_requests_total{method="GET",path="/api/",status="404"} 2`)
	assert.NotContains(t, out, "whatever")
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	assert.NotNil(t, m.Instrument(next))
	m.ObserveLogin("success")

	s := store.NewMemoryStore()
	assert.Same(t, s, m.InstrumentStore(s))
}

func TestInstrumentStore(t *testing.T) {
	m := NewMetrics("test")
	mem := store.NewMemoryStore()
	s := m.InstrumentStore(mem)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "k", []byte(`1`)))
	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	mem.FailWith(errors.New("down"))
	_, err = s.ListKeys(ctx, "", store.ListOptions{})
	assert.True(t, store.IsStorageError(err))

	out := scrape(t, m)
	assert.Contains(t, out, `deflink_store_operations_total{op="put",result="ok"} 1`)
	assert.Contains(t, out, `deflink_store_operations_total{op="get",result="ok"} 1`)
	assert.Contains(t, out, `deflink_store_operations_total{op="list",result="error"} 1`)
}

func TestObserveLogin(t *testing.T) {
	m := NewMetrics("test")
	m.ObserveLogin("failure")
	m.ObserveLogin("failure")

	assert.Contains(t, scrape(t, m), `deflink_logins_total{result="failure"} 2`)
}
