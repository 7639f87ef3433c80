package bootstrap

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"

	"github.com/wyfcoding/kalmantrack/xerrors"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kalmantrack.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestInitialize(t *testing.T) {
	path := writeConfig(t, `
[log]
level = "error"

[simulation]
v0 = 12.0
measurement_noise = "gaussian"

[chart]
enabled = false
`)

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Uint64("seed", 0, "")
	if err := fs.Parse([]string{"--seed=9"}); err != nil {
		t.Fatal(err)
	}

	b := New("kalmantrack", "v1.2.3")
	if err := b.Initialize(path, fs, map[string]string{"simulation.seed": "seed"}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if b.Logger == nil {
		t.Fatal("logger not initialized")
	}

	sim := b.Config.Simulation
	if sim.V0 != 12 || sim.MeasurementNoise != "gaussian" || sim.Seed != 9 {
		t.Errorf("simulation = %+v", sim)
	}
	if sim.Dt != 0.01 {
		t.Errorf("dt default = %g, want 0.01", sim.Dt)
	}
	if b.Config.Version != "v1.2.3" {
		t.Errorf("version = %q", b.Config.Version)
	}

	shutdown := b.SetupTracing(context.Background())
	shutdown()

	m := b.SetupMetrics()
	if _, err := m.Gatherer().Gather(); err != nil {
		t.Errorf("Gather: %v", err)
	}
}

func TestInitializeInvalidConfig(t *testing.T) {
	path := writeConfig(t, `
[simulation]
dt = 0.0
`)

	err := New("kalmantrack", "test").Initialize(path, nil, nil)
	if !errors.Is(err, xerrors.ErrInvalidConfig) {
		t.Fatalf("err = %v, want ErrInvalidConfig", err)
	}
	if code := xerrors.ExitCode(err); code != 2 {
		t.Errorf("exit code = %d, want 2", code)
	}
}

func TestInitializeMissingFile(t *testing.T) {
	err := New("kalmantrack", "test").Initialize(filepath.Join(t.TempDir(), "missing.toml"), nil, nil)
	if !errors.Is(err, xerrors.ErrInvalidConfig) {
		t.Fatalf("err = %v, want ErrInvalidConfig", err)
	}
}
