package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wyfcoding/kalmantrack/config"
	"github.com/wyfcoding/kalmantrack/estimation"
	"github.com/wyfcoding/kalmantrack/logging"
	"github.com/wyfcoding/kalmantrack/metrics"
	"github.com/wyfcoding/kalmantrack/tracker"
	"github.com/wyfcoding/kalmantrack/xerrors"
)

func newTestJob() *job {
	logger := logging.NewLogger("test", "main", "error")
	m := metrics.NewMetrics("test")
	return newJob(tracker.NewRunner(logger, m), m, logger)
}

func testConfig(dir string) *config.Config {
	return &config.Config{
		Simulation: config.SimulationConfig{Config: estimation.DefaultConfig(), Seed: 5},
		Chart: config.ChartConfig{
			Enabled: true,
			Output:  filepath.Join(dir, "results.png"),
			Width:   400,
			Height:  300,
		},
		Metrics: config.MetricsConfig{Textfile: filepath.Join(dir, "kalmantrack.prom")},
	}
}

func TestExecuteSingleRun(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	if err := newTestJob().execute(context.Background(), cfg); err != nil {
		t.Fatalf("execute: %v", err)
	}

	if _, err := os.Stat(cfg.Chart.Output); err != nil {
		t.Errorf("chart not written: %v", err)
	}
	data, err := os.ReadFile(cfg.Metrics.Textfile)
	if err != nil {
		t.Fatalf("metrics textfile: %v", err)
	}
	if !strings.Contains(string(data), `kalmantrack_runs_total{mode="single",status="ok"} 1`) {
		t.Errorf("textfile lacks the single run counter")
	}
}

func TestExecuteEnsemble(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	cfg.Simulation.Seed = 0
	cfg.Ensemble = config.EnsembleConfig{Runs: 4, Workers: 2}
	if err := newTestJob().execute(context.Background(), cfg); err != nil {
		t.Fatalf("execute: %v", err)
	}

	if _, err := os.Stat(cfg.Chart.Output); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("ensemble mode must not render a chart")
	}
	data, err := os.ReadFile(cfg.Metrics.Textfile)
	if err != nil {
		t.Fatalf("metrics textfile: %v", err)
	}
	if !strings.Contains(string(data), `kalmantrack_runs_total{mode="ensemble",status="ok"} 4`) {
		t.Errorf("textfile lacks the ensemble run counter")
	}
}

func TestExecuteRenderFailure(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.Chart.Output = filepath.Join(t.TempDir(), "results.unknown")
	err := newTestJob().execute(context.Background(), cfg)
	if !errors.Is(err, xerrors.ErrRenderFailed) {
		t.Fatalf("err = %v, want ErrRenderFailed", err)
	}
	if xerrors.ExitCode(err) != 1 {
		t.Errorf("exit code = %d, want 1", xerrors.ExitCode(err))
	}
}

func TestRunFlagErrors(t *testing.T) {
	if code := run([]string{"--no-such-flag"}); code != 2 {
		t.Errorf("unknown flag: exit code = %d, want 2", code)
	}
	if code := run([]string{"--watch"}); code != 2 {
		t.Errorf("--watch without --config: exit code = %d, want 2", code)
	}
	if code := run([]string{"--help"}); code != 0 {
		t.Errorf("--help: exit code = %d, want 0", code)
	}
}

func TestRandomSeed(t *testing.T) {
	if randomSeed() == 0 {
		t.Error("seed must be non-zero")
	}
}

func TestExecuteRecordsHealth(t *testing.T) {
	j := newTestJob()
	check := j.status.Checker()
	if check() == nil {
		t.Fatal("healthy before any run")
	}

	cfg := testConfig(t.TempDir())
	cfg.Simulation.Dt = 0
	if err := j.execute(context.Background(), cfg); err == nil {
		t.Fatal("expected invalid config error")
	}
	if check() == nil {
		t.Error("healthy after a failed run")
	}

	if err := j.execute(context.Background(), testConfig(t.TempDir())); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if err := check(); err != nil {
		t.Errorf("unhealthy after a successful run: %v", err)
	}
}
