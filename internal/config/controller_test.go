package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/banshee-data/accel.report/internal/accel"
	"github.com/banshee-data/accel.report/internal/personality"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "controller.json")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return path
}

func TestEmptyConfigDefaults(t *testing.T) {
	cfg := EmptyControllerConfig()

	if got := cfg.GetParamsBackend(); got != "file" {
		t.Errorf("GetParamsBackend() = %q, want file", got)
	}
	if got := cfg.GetParamsPath(); got != "/data/params/d" {
		t.Errorf("GetParamsPath() = %q, want /data/params/d", got)
	}
	if got := cfg.GetModelPeriod(); got != 50*time.Millisecond {
		t.Errorf("GetModelPeriod() = %v, want 50ms", got)
	}
	if got := cfg.GetRefreshIntervalFrames(); got != 20 {
		t.Errorf("GetRefreshIntervalFrames() = %d, want 20", got)
	}
	if got := cfg.GetStockLimits(); got != (accel.Limits{Min: -1.2, Max: 1.2}) {
		t.Errorf("GetStockLimits() = %+v", got)
	}
	if got := cfg.GetListen(); got != ":8080" {
		t.Errorf("GetListen() = %q, want :8080", got)
	}
	ps, err := cfg.GetProfiles()
	if err != nil {
		t.Fatalf("GetProfiles() error: %v", err)
	}
	if ps != accel.DefaultProfiles() {
		t.Error("GetProfiles() should return the shipped profiles when no override is set")
	}
}

func TestDefaultControllerConfig(t *testing.T) {
	cfg := DefaultControllerConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if cfg.ModelPeriod == nil || *cfg.ModelPeriod != "50ms" {
		t.Errorf("Expected ModelPeriod '50ms', got %v", cfg.ModelPeriod)
	}
	if cfg.RefreshIntervalFrames != nil {
		t.Errorf("Expected RefreshIntervalFrames to be derived, got %d", *cfg.RefreshIntervalFrames)
	}
	if got := cfg.GetRefreshIntervalFrames(); got != 20 {
		t.Errorf("GetRefreshIntervalFrames() = %d, want 20", got)
	}
}

func TestRefreshIntervalDerivedFromPeriod(t *testing.T) {
	cfg := EmptyControllerConfig()
	cfg.ModelPeriod = ptrString("10ms")
	if got := cfg.GetRefreshIntervalFrames(); got != 100 {
		t.Errorf("GetRefreshIntervalFrames() = %d, want 100", got)
	}

	cfg.RefreshIntervalFrames = ptrInt(7)
	if got := cfg.GetRefreshIntervalFrames(); got != 7 {
		t.Errorf("explicit refresh interval ignored: got %d", got)
	}

	cfg = EmptyControllerConfig()
	cfg.ModelPeriod = ptrString("1s")
	if got := cfg.GetRefreshIntervalFrames(); got != 1 {
		t.Errorf("GetRefreshIntervalFrames() = %d, want 1", got)
	}
}

func TestSQLiteDefaultPath(t *testing.T) {
	cfg := EmptyControllerConfig()
	cfg.ParamsBackend = ptrString("sqlite")
	if got := cfg.GetParamsPath(); got != "params.db" {
		t.Errorf("GetParamsPath() = %q, want params.db", got)
	}
}

func TestLoadControllerConfig(t *testing.T) {
	path := writeConfig(t, `{
  "params_backend": "memory",
  "model_period": "25ms",
  "stock_min_accel": -3.5,
  "stock_max_accel": 2.0,
  "listen": "127.0.0.1:9090"
}`)

	cfg, err := LoadControllerConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if got := cfg.GetParamsBackend(); got != "memory" {
		t.Errorf("GetParamsBackend() = %q", got)
	}
	if got := cfg.GetModelPeriod(); got != 25*time.Millisecond {
		t.Errorf("GetModelPeriod() = %v", got)
	}
	if got := cfg.GetRefreshIntervalFrames(); got != 40 {
		t.Errorf("GetRefreshIntervalFrames() = %d, want 40", got)
	}
	if got := cfg.GetStockLimits(); got != (accel.Limits{Min: -3.5, Max: 2.0}) {
		t.Errorf("GetStockLimits() = %+v", got)
	}
	if got := cfg.GetListen(); got != "127.0.0.1:9090" {
		t.Errorf("GetListen() = %q", got)
	}
}

func TestLoadControllerConfig_ProfileOverride(t *testing.T) {
	path := writeConfig(t, `{
  "profiles": {
    "min_breakpoints": [0, 10],
    "max_breakpoints": [0, 10],
    "normal": {"min": [-0.5, -1.0], "max": [1.0, 0.5]},
    "eco":    {"min": [-0.4, -0.9], "max": [0.9, 0.4]},
    "sport":  {"min": [-0.6, -1.1], "max": [1.1, 0.6]}
  }
}`)

	cfg, err := LoadControllerConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	sc, err := cfg.SelectorConfig()
	if err != nil {
		t.Fatalf("SelectorConfig() error: %v", err)
	}
	got := sc.Profiles.Limits(personality.Sport, 5)
	if math.Abs(got.Min+0.85) > 1e-9 || math.Abs(got.Max-0.85) > 1e-9 {
		t.Errorf("override sport limits at 5 m/s = %+v, want {-0.85 0.85}", got)
	}
	if sc.Key != "AccelPersonality" {
		t.Errorf("Key = %q", sc.Key)
	}
	if sc.RefreshFrames != 20 {
		t.Errorf("RefreshFrames = %d, want 20", sc.RefreshFrames)
	}
}

func TestLoadControllerConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		invalid bool
	}{
		{"malformed json", `{"model_period": `, false},
		{"unknown backend", `{"params_backend": "redis"}`, true},
		{"bad period", `{"model_period": "soon"}`, true},
		{"zero period", `{"model_period": "0s"}`, true},
		{"negative refresh", `{"refresh_interval_frames": 0}`, true},
		{"inverted stock limits", `{"stock_min_accel": 1, "stock_max_accel": -1}`, true},
		{"descending profile breakpoints", `{"profiles": {
  "min_breakpoints": [10, 0], "max_breakpoints": [0, 10],
  "normal": {"min": [0, 0], "max": [0, 0]},
  "eco": {"min": [0, 0], "max": [0, 0]},
  "sport": {"min": [0, 0], "max": [0, 0]}}}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadControllerConfig(writeConfig(t, tt.body))
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.Is(err, ErrInvalid); got != tt.invalid {
				t.Errorf("errors.Is(err, ErrInvalid) = %v, want %v (err: %v)", got, tt.invalid, err)
			}
		})
	}
}

func TestLoadControllerConfig_PathChecks(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(yamlPath, []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadControllerConfig(yamlPath); err == nil || !strings.Contains(err.Error(), ".json") {
		t.Errorf("expected extension error, got %v", err)
	}

	if _, err := LoadControllerConfig(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}

	bigPath := filepath.Join(dir, "big.json")
	if err := os.WriteFile(bigPath, make([]byte, 1024*1024+1), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadControllerConfig(bigPath); err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("expected size error, got %v", err)
	}
}

func TestShippedDefaultsFile(t *testing.T) {
	cfg, err := LoadControllerConfig(filepath.Join("..", "..", DefaultConfigPath))
	if err != nil {
		t.Fatalf("Failed to load %s: %v", DefaultConfigPath, err)
	}
	want := DefaultControllerConfig()
	if cfg.GetModelPeriod() != want.GetModelPeriod() ||
		cfg.GetRefreshIntervalFrames() != want.GetRefreshIntervalFrames() ||
		cfg.GetStockLimits() != want.GetStockLimits() ||
		cfg.GetParamsBackend() != want.GetParamsBackend() ||
		cfg.GetParamsPath() != want.GetParamsPath() ||
		cfg.GetListen() != want.GetListen() {
		t.Errorf("shipped defaults drift from DefaultControllerConfig: %+v", cfg)
	}
	if cfg.RefreshIntervalFrames != nil {
		t.Errorf("shipped defaults should derive refresh_interval_frames, got %d", *cfg.RefreshIntervalFrames)
	}
}

func TestShippedDefaultsFollowModelPeriod(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("..", "..", DefaultConfigPath))
	if err != nil {
		t.Fatal(err)
	}
	edited := strings.Replace(string(data), `"50ms"`, `"10ms"`, 1)
	if edited == string(data) {
		t.Fatal("shipped defaults do not set model_period to 50ms")
	}
	path := filepath.Join(t.TempDir(), "accel.json")
	if err := os.WriteFile(path, []byte(edited), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadControllerConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := cfg.GetRefreshIntervalFrames(); got != 100 {
		t.Errorf("GetRefreshIntervalFrames() = %d, want 100", got)
	}
}
