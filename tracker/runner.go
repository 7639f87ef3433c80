// Package tracker 在估计核心之上提供带日志、链路追踪与指标的运行入口.
package tracker

import (
	"context"
	"time"

	"github.com/wyfcoding/kalmantrack/estimation"
	"github.com/wyfcoding/kalmantrack/logging"
	"github.com/wyfcoding/kalmantrack/metrics"
	"github.com/wyfcoding/kalmantrack/tracing"
)

const (
	modeSingle   = "single"
	modeEnsemble = "ensemble"
)

// Runner 执行仿真-观测-滤波流水线. 可被多个 goroutine 共享，每次运行的状态彼此隔离.
type Runner struct {
	logger  *logging.Logger
	metrics *metrics.Metrics // 可为 nil
}

// NewRunner 创建 Runner，m 为 nil 时不采集指标.
func NewRunner(logger *logging.Logger, m *metrics.Metrics) *Runner {
	if logger == nil {
		logger = logging.Default()
	}
	return &Runner{
		logger:  logger.WithModule("tracker"),
		metrics: m,
	}
}

// Run 以给定种子执行一次完整流水线.
func (r *Runner) Run(ctx context.Context, cfg estimation.Config, seed uint64) (res *estimation.Result, err error) {
	ctx, span := tracing.StartSpan(ctx, "tracker.Run")
	defer span.End()
	tracing.AddTags(ctx,
		"seed", seed,
		"dt", cfg.Dt,
		"duration", cfg.Duration,
		"measurement_variance", cfg.MeasurementVariance,
		"process_noise", string(cfg.ProcessNoise),
		"measurement_noise", string(cfg.MeasurementNoise),
	)

	defer func() {
		r.recordRun(modeSingle, err)
		if err != nil {
			tracing.SetError(ctx, err)
			r.logger.ErrorContext(ctx, "pipeline run failed", "seed", seed, "error", err)
		}
	}()

	res, err = r.run(ctx, cfg, seed)
	if err != nil {
		return nil, err
	}

	s := res.Stats
	if r.metrics != nil {
		r.metrics.ObservationMAD.Set(s.ObservationMAD)
		r.metrics.EstimateMAD.Set(s.EstimateMAD)
		r.metrics.NoiseRejection.Set(s.NoiseRejection)
		r.metrics.FinalVariance.Set(s.FinalVariance)
	}
	tracing.AddTag(ctx, "noise_rejection", s.NoiseRejection)
	r.logger.InfoContext(ctx, "pipeline run finished",
		"seed", seed,
		"samples", len(res.Estimates),
		"observation_mad", s.ObservationMAD,
		"estimate_mad", s.EstimateMAD,
		"estimate_rmse", s.EstimateRMSE,
		"noise_rejection", s.NoiseRejection,
		"final_variance", s.FinalVariance,
	)

	return res, nil
}

// run 逐阶段执行，每个阶段一个 Span 并记录耗时.
func (r *Runner) run(ctx context.Context, cfg estimation.Config, seed uint64) (*estimation.Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	streams := estimation.NewStreams(seed)
	processNoise, err := estimation.NewUnitNoise(cfg.ProcessNoise, streams.Process)
	if err != nil {
		return nil, err
	}
	measurementNoise, err := estimation.NewUnitNoise(cfg.MeasurementNoise, streams.Measurement)
	if err != nil {
		return nil, err
	}

	var (
		positions, velocities, observations estimation.Trajectory
		beliefs                             []estimation.Belief
		res                                 *estimation.Result
	)

	_ = r.stage(ctx, "simulate", func(context.Context) error {
		positions, velocities = estimation.Simulate(cfg, processNoise)
		return nil
	})
	_ = r.stage(ctx, "observe", func(context.Context) error {
		observations = estimation.Observe(positions, cfg.MeasurementVariance, measurementNoise)
		return nil
	})
	if err := r.stage(ctx, "estimate", func(ctx context.Context) error {
		var estErr error
		beliefs, estErr = estimation.EstimateBeliefs(ctx, observations, cfg)
		return estErr
	}); err != nil {
		return nil, err
	}
	if r.metrics != nil {
		r.metrics.SamplesTotal.Add(float64(len(beliefs)))
	}
	if err := r.stage(ctx, "assemble", func(context.Context) error {
		var asmErr error
		res, asmErr = estimation.Assemble(cfg, positions, velocities, observations, beliefs)
		return asmErr
	}); err != nil {
		return nil, err
	}

	return res, nil
}

func (r *Runner) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := tracing.StartSpan(ctx, "stage."+name)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	if r.metrics != nil {
		r.metrics.RunDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		tracing.SetError(ctx, err)
	}
	return err
}

func (r *Runner) recordRun(mode string, err error) {
	if r.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.metrics.RunsTotal.WithLabelValues(mode, status).Inc()
}
