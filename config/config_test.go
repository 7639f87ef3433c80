package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"

	"github.com/wyfcoding/kalmantrack/estimation"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kalmantrack.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	reset()
	var cfg Config
	if err := Load("", &cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Simulation.Config != estimation.DefaultConfig() {
		t.Errorf("simulation defaults = %+v", cfg.Simulation.Config)
	}
	if !cfg.Chart.Enabled || cfg.Chart.Width != 800 || cfg.Chart.Height != 600 || cfg.Chart.Output != "results.png" {
		t.Errorf("chart defaults = %+v", cfg.Chart)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("log level = %q", cfg.Log.Level)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	reset()
	path := writeConfig(t, `
[simulation]
dt = 0.1
duration = 5
measurement_variance = 50
measurement_noise = "gaussian"
seed = 99

[ensemble]
runs = 8
workers = 2
`)
	t.Setenv("KALMAN_SIMULATION_V0", "12.5")

	var cfg Config
	if err := Load(path, &cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	sim := cfg.Simulation
	if sim.Dt != 0.1 || sim.Duration != 5 || sim.MeasurementVariance != 50 || sim.Seed != 99 {
		t.Errorf("file values not applied: %+v", sim)
	}
	if sim.MeasurementNoise != estimation.NoiseGaussian {
		t.Errorf("measurement noise = %q", sim.MeasurementNoise)
	}
	if sim.V0 != 12.5 {
		t.Errorf("env override not applied, v0 = %g", sim.V0)
	}
	if sim.ModelVariance != 3 {
		t.Errorf("unset keys must keep defaults, model_variance = %g", sim.ModelVariance)
	}
	if cfg.Ensemble.Runs != 8 || cfg.Ensemble.Workers != 2 {
		t.Errorf("ensemble = %+v", cfg.Ensemble)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"negative dt":       "[simulation]\ndt = -0.1\n",
		"negative variance": "[simulation]\nmodel_variance = -1\n",
		"bad noise":         "[simulation]\nprocess_noise = \"triangle\"\n",
		"bad log level":     "[log]\nlevel = \"loud\"\n",
		"tracing endpoint":  "[tracing]\nenabled = true\n",
		"inverted y range":  "[chart]\ny_min = 10\ny_max = 5\n",
	}
	for name, body := range cases {
		reset()
		var cfg Config
		if err := Load(writeConfig(t, body), &cfg); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestBindFlagsOverride(t *testing.T) {
	reset()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Uint64("seed", 0, "")
	fs.String("output", "", "")
	if err := fs.Parse([]string{"--seed=123", "--output=out.png"}); err != nil {
		t.Fatal(err)
	}
	if err := BindFlags(fs, map[string]string{"simulation.seed": "seed", "chart.output": "output"}); err != nil {
		t.Fatalf("BindFlags: %v", err)
	}

	var cfg Config
	if err := Load(writeConfig(t, "[simulation]\nseed = 5\n"), &cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Simulation.Seed != 123 || cfg.Chart.Output != "out.png" {
		t.Errorf("flags did not override file: seed=%d output=%q", cfg.Simulation.Seed, cfg.Chart.Output)
	}

	if err := BindFlags(fs, map[string]string{"x": "missing"}); err == nil {
		t.Errorf("expected error for unknown flag")
	}
}

func TestMask(t *testing.T) {
	m := map[string]any{
		"tracing": map[string]any{
			"otlp_endpoint": "collector:4317",
			"headers":       map[string]any{"authorization": "Bearer abc"},
		},
		"api_token": "t",
	}
	mask(m)
	tr := m["tracing"].(map[string]any)
	if tr["otlp_endpoint"] != "collector:4317" {
		t.Errorf("endpoint should stay visible")
	}
	if h := tr["headers"].(map[string]any); h["authorization"] != "******" {
		t.Errorf("headers must be masked: %v", h)
	}
	if !strings.HasPrefix(m["api_token"].(string), "***") {
		t.Errorf("token must be masked")
	}
}
