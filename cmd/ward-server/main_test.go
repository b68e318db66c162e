package main

import (
	"bytes"
	"encoding/json"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ehr/ward/internal/config"
	"github.com/ehr/ward/internal/domain/triage"
)

func runClassify(t *testing.T, args ...string) (classifyOutput, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"classify"}, args...))
	if err := cmd.Execute(); err != nil {
		return classifyOutput{}, err
	}
	var res classifyOutput
	if err := json.Unmarshal(out.Bytes(), &res); err != nil {
		t.Fatalf("decode output: %v (%s)", err, out.String())
	}
	return res, nil
}

func TestClassifyCmd_Red(t *testing.T) {
	res, err := runClassify(t, "--systolic", "185", "--diastolic", "75", "--heart-rate", "80", "--temperature", "36.5", "--spo2", "98")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Priority != triage.PriorityRed {
		t.Errorf("expected red, got %s", res.Priority)
	}
	if len(res.Anomalies) != 1 || res.Anomalies[0] != triage.AnomalyHighBloodPressure {
		t.Errorf("expected [high_blood_pressure], got %v", res.Anomalies)
	}
}

func TestClassifyCmd_UnsetFlagsAreNotMeasured(t *testing.T) {
	res, err := runClassify(t, "--temperature", "38.6")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Priority != triage.PriorityOrange {
		t.Errorf("expected orange, got %s", res.Priority)
	}
	if len(res.Contributions) != 1 {
		t.Errorf("expected only temperature to contribute, got %v", res.Contributions)
	}
}

func TestClassifyCmd_RejectsEmptyAndImpossible(t *testing.T) {
	if _, err := runClassify(t); err == nil {
		t.Error("expected error without measurements")
	}
	if _, err := runClassify(t, "--pain", "11"); err == nil {
		t.Error("expected error for pain 11")
	}
}

func TestMigrationsFS(t *testing.T) {
	embedded, err := fs.Glob(migrationsFS(""), "*.sql")
	if err != nil || len(embedded) < 2 {
		t.Fatalf("expected embedded migrations, got %v (%v)", embedded, err)
	}

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "001_x.sql"), []byte("SELECT 1;"), 0o644); err != nil {
		t.Fatal(err)
	}
	files, err := fs.Glob(migrationsFS(dir), "*.sql")
	if err != nil || len(files) != 1 {
		t.Errorf("expected 1 file from dir, got %v (%v)", files, err)
	}
}

func testConfig() *config.Config {
	return &config.Config{
		Env:            "production",
		AuthSigningKey: strings.Repeat("s", 32),
		AuthIssuer:     "https://idp.example.org",
		DefaultTenant:  "default",
		CORSOrigins:    []string{"http://localhost:3000"},
		MetricsEnabled: true,
	}
}

func TestNewServer_HealthAndMetrics(t *testing.T) {
	e := newServer(testConfig(), nil, zerolog.Nop())

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 from /health, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 from /metrics, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Error("expected runtime collectors on /metrics")
	}
}

func TestNewServer_APIRequiresToken(t *testing.T) {
	e := newServer(testConfig(), nil, zerolog.Nop())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/triage/classify", strings.NewReader(`{"systolic":120}`))
	req.Header.Set("Content-Type", "application/json")
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without bearer token, got %d", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected request id header on every response")
	}
}

func TestNewServer_MetricsDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.MetricsEnabled = false
	e := newServer(cfg, nil, zerolog.Nop())

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 when metrics are disabled, got %d", rec.Code)
	}
}

func TestNewLogger_DefaultEnvIsConsole(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("ENV", "")
	os.Unsetenv("ENV")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	var buf bytes.Buffer
	logger := newLogger(&buf, cfg.IsDev())
	logger.Info().Msg("hello")

	out := buf.String()
	if strings.HasPrefix(out, "{") {
		t.Errorf("expected console output with ENV unset, got JSON: %s", out)
	}
	if !strings.Contains(out, "hello") {
		t.Errorf("expected message in output, got %q", out)
	}
}

func TestNewLogger_ProductionIsJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, false)
	logger.Info().Str("k", "v").Msg("hello")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected JSON line: %v (%s)", err, buf.String())
	}
	if line["message"] != "hello" || line["k"] != "v" {
		t.Errorf("unexpected line %v", line)
	}
}
