package telemetry

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestHTTPMetrics_RecordsRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)

	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/patients/:patient_id/triage", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/patients/abc/triage", nil))
	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/patients/def/triage", nil))

	if n := testutil.CollectAndCount(m.duration); n != 1 {
		t.Errorf("expected a single series for both patients, got %d", n)
	}
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var found bool
	for _, f := range families {
		if f.GetName() != "http_server_request_duration_seconds" {
			continue
		}
		for _, metric := range f.GetMetric() {
			for _, l := range metric.GetLabel() {
				if l.GetName() == "route" && l.GetValue() == "/patients/:patient_id/triage" {
					found = true
					if metric.GetHistogram().GetSampleCount() != 2 {
						t.Errorf("expected 2 samples, got %d", metric.GetHistogram().GetSampleCount())
					}
				}
				if strings.Contains(l.GetValue(), "abc") {
					t.Error("raw path leaked into labels")
				}
			}
		}
	}
	if !found {
		t.Error("expected route label with the pattern")
	}
	if got := testutil.ToFloat64(m.active); got != 0 {
		t.Errorf("expected no in-flight requests, got %v", got)
	}
}

func TestHTTPMetrics_ErrorStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)

	e := echo.New()
	e.Use(m.Middleware())
	e.POST("/vitals", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusConflict, "triage required")
	})
	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/vitals", nil))

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var statuses []string
	for _, f := range families {
		if f.GetName() != "http_server_request_duration_seconds" {
			continue
		}
		for _, metric := range f.GetMetric() {
			for _, l := range metric.GetLabel() {
				if l.GetName() == "status_code" {
					statuses = append(statuses, l.GetValue())
				}
			}
		}
	}
	if len(statuses) != 1 || statuses[0] != "409" {
		t.Errorf("expected a single 409 series, got %v", statuses)
	}
}

func TestPoolCollector_NilPool(t *testing.T) {
	reg := prometheus.NewRegistry()
	RegisterPoolCollector(reg, nil)
	if _, err := reg.Gather(); err != nil {
		t.Errorf("gather with nil pool: %v", err)
	}
}
