package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func scrape(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	data, err := io.ReadAll(rec.Result().Body)
	if err != nil {
		t.Fatalf("read scrape: %v", err)
	}
	return string(data)
}

func prometheusGatherer() prometheus.Gatherer {
	return prometheus.DefaultGatherer
}
