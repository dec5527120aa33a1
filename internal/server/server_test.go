package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"

	"github.com/bayline/server/internal/observability/metrics"
	logx "github.com/bayline/server/pkg/logger"
)

func TestHealthz(t *testing.T) {
	h := New(Config{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestCallbackIsPostOnlyAndCarriesRequestLogger(t *testing.T) {
	var sawLogger bool
	webhook := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawLogger = logx.Ctx(r.Context()) != nil
		w.WriteHeader(http.StatusOK)
	})
	h := New(Config{Webhook: webhook})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/callback", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, sawLogger)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewBridgeMetrics(reg)
	m.ObserveInbound("text")
	h := New(Config{MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `bayline_bridge_inbound_events_total{kind="text"} 1`)
}

func TestUnmountedRoutes(t *testing.T) {
	h := New(Config{})
	for _, path := range []string{"/callback", "/metrics"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}
