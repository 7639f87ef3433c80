package main

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"sync"

	"github.com/wyfcoding/kalmantrack/config"
	"github.com/wyfcoding/kalmantrack/health"
	"github.com/wyfcoding/kalmantrack/logging"
	"github.com/wyfcoding/kalmantrack/metrics"
	"github.com/wyfcoding/kalmantrack/render"
	"github.com/wyfcoding/kalmantrack/tracker"
	"github.com/wyfcoding/kalmantrack/xerrors"
)

// job 按一份配置执行一次完整任务：单次运行并绘图，或批量运行；最后导出指标.
// watch 模式下配置回调与首次运行可能并发，mu 保证串行.
type job struct {
	runner  *tracker.Runner
	metrics *metrics.Metrics
	logger  *logging.Logger
	status  health.Status
	mu      sync.Mutex
}

func newJob(runner *tracker.Runner, m *metrics.Metrics, logger *logging.Logger) *job {
	return &job{runner: runner, metrics: m, logger: logger.WithModule("job")}
}

func (j *job) execute(ctx context.Context, cfg *config.Config) (err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	defer func() { j.status.Record(err) }()

	seed := cfg.Simulation.Seed
	if seed == 0 {
		seed = randomSeed()
		j.logger.InfoContext(ctx, "no seed configured, drew one", "seed", seed)
	}
	sim := cfg.Simulation.Config

	if cfg.Ensemble.Runs > 0 {
		if _, err := j.runner.RunEnsemble(ctx, sim, seed, cfg.Ensemble.Runs, cfg.Ensemble.Workers); err != nil {
			return err
		}
	} else {
		res, err := j.runner.Run(ctx, sim, seed)
		if err != nil {
			return err
		}
		if cfg.Chart.Enabled {
			if err := render.WriteChart(res, cfg.Chart.Output, render.OptionsFromConfig(cfg.Chart)); err != nil {
				return err
			}
			j.logger.InfoContext(ctx, "chart written", "path", cfg.Chart.Output)
		}
	}

	if path := cfg.Metrics.Textfile; path != "" {
		if err := j.metrics.WriteTextfile(path); err != nil {
			return xerrors.WrapInternal(err, "write metrics textfile").WithContext("path", path)
		}
	}
	return nil
}

func randomSeed() uint64 {
	var b [8]byte
	_, _ = rand.Read(b[:])
	if seed := binary.LittleEndian.Uint64(b[:]); seed != 0 {
		return seed
	}
	return 1
}
