package metrics

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestWriteTextfile(t *testing.T) {
	m := NewMetrics("test")
	m.RegisterBuildInfo("test", "v1")
	m.RegisterBuildInfo("test", "v2") // 第二次调用应被忽略
	m.RunsTotal.WithLabelValues("single", "ok").Inc()
	m.NoiseRejection.Set(4.2)

	path := filepath.Join(t.TempDir(), "kalmantrack.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	for _, want := range []string{
		`kalmantrack_runs_total{mode="single",status="ok"} 1`,
		`kalmantrack_noise_rejection_ratio 4.2`,
		`kalmantrack_build_info{goversion="` + runtime.Version() + `",service="test",version="v1"} 1`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("textfile missing %q", want)
		}
	}
	if strings.Contains(text, `version="v2"`) {
		t.Errorf("build info registered twice")
	}
}

func TestCounters(t *testing.T) {
	m := NewMetrics("test")
	m.SamplesTotal.Add(1001)

	families, err := m.Gatherer().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != "kalmantrack_samples_total" {
			continue
		}
		if got := mf.GetMetric()[0].GetCounter().GetValue(); got != 1001 {
			t.Errorf("samples = %g, want 1001", got)
		}
		return
	}
	t.Fatal("kalmantrack_samples_total not gathered")
}
