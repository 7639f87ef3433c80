package tracker

import (
	"context"
	"encoding/json"
	"math"
	"runtime"
	"slices"

	"github.com/sourcegraph/conc/pool"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/wyfcoding/kalmantrack/estimation"
	"github.com/wyfcoding/kalmantrack/logging"
	"github.com/wyfcoding/kalmantrack/tracing"
	"github.com/wyfcoding/kalmantrack/xerrors"
)

// RunStats 批量运行中单次运行的结果摘要.
type RunStats struct {
	Index int              `json:"index"`
	Seed  uint64           `json:"seed"`
	Stats estimation.Stats `json:"stats"`
}

// EnsembleReport 批量运行的逐次结果与噪声抑制比的汇总统计.
type EnsembleReport struct {
	Runs               []RunStats `json:"runs"` // 按 Index 升序
	MeanRejection      float64    `json:"mean_rejection"`
	StdDevRejection    float64    `json:"stddev_rejection"`
	MinRejection       float64    `json:"min_rejection"`
	MedianRejection    float64    `json:"median_rejection"`
	MaxRejection       float64    `json:"max_rejection"`
	MeanObservationMAD float64    `json:"mean_observation_mad"`
	MeanEstimateMAD    float64    `json:"mean_estimate_mad"`
}

// MarshalJSON 任一运行的抑制比为 +Inf 时，各聚合值以字符串编码.
func (r EnsembleReport) MarshalJSON() ([]byte, error) {
	type plain EnsembleReport
	return json.Marshal(struct {
		plain
		MeanRejection   any `json:"mean_rejection"`
		StdDevRejection any `json:"stddev_rejection"`
		MinRejection    any `json:"min_rejection"`
		MedianRejection any `json:"median_rejection"`
		MaxRejection    any `json:"max_rejection"`
	}{
		plain:           plain(r),
		MeanRejection:   estimation.JSONNumber(r.MeanRejection),
		StdDevRejection: estimation.JSONNumber(r.StdDevRejection),
		MinRejection:    estimation.JSONNumber(r.MinRejection),
		MedianRejection: estimation.JSONNumber(r.MedianRejection),
		MaxRejection:    estimation.JSONNumber(r.MaxRejection),
	})
}

// RunEnsemble 以种子 baseSeed+i (i ∈ [0, runs)) 并行执行 runs 次相互独立的流水线.
// workers <= 0 时使用 GOMAXPROCS. 任一运行失败会取消尚未开始的运行并返回首个错误.
func (r *Runner) RunEnsemble(ctx context.Context, cfg estimation.Config, baseSeed uint64, runs, workers int) (*EnsembleReport, error) {
	if runs <= 0 {
		return nil, xerrors.InvalidConfig("ensemble runs must be positive", nil).WithContext("runs", runs)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = min(workers, runs)

	ctx, span := tracing.StartSpan(ctx, "tracker.RunEnsemble")
	defer span.End()
	tracing.AddTags(ctx, "runs", runs, "workers", workers, "base_seed", baseSeed)
	defer logging.LogDuration(ctx, "ensemble", "runs", runs, "workers", workers)()

	p := pool.NewWithResults[RunStats]().
		WithContext(ctx).
		WithCancelOnError().
		WithFirstError().
		WithMaxGoroutines(workers)

	for i := range runs {
		seed := baseSeed + uint64(i)
		p.Go(func(ctx context.Context) (RunStats, error) {
			if err := ctx.Err(); err != nil {
				return RunStats{}, err
			}
			res, err := r.run(ctx, cfg, seed)
			r.recordRun(modeEnsemble, err)
			if err != nil {
				return RunStats{}, err
			}
			if r.metrics != nil {
				r.metrics.EnsembleRejection.Observe(res.Stats.NoiseRejection)
			}
			return RunStats{Index: i, Seed: seed, Stats: res.Stats}, nil
		})
	}

	results, err := p.Wait()
	if err != nil {
		tracing.SetError(ctx, err)
		r.logger.ErrorContext(ctx, "ensemble failed", "runs", runs, "error", err)
		return nil, err
	}
	slices.SortFunc(results, func(a, b RunStats) int { return a.Index - b.Index })

	report := summarize(results)
	r.logger.InfoContext(ctx, "ensemble finished",
		"runs", runs,
		"mean_rejection", report.MeanRejection,
		"stddev_rejection", report.StdDevRejection,
		"min_rejection", report.MinRejection,
		"median_rejection", report.MedianRejection,
		"max_rejection", report.MaxRejection,
	)

	return report, nil
}

func summarize(runs []RunStats) *EnsembleReport {
	rejection := make([]float64, len(runs))
	obsMAD := make([]float64, len(runs))
	estMAD := make([]float64, len(runs))
	for i, run := range runs {
		rejection[i] = run.Stats.NoiseRejection
		obsMAD[i] = run.Stats.ObservationMAD
		estMAD[i] = run.Stats.EstimateMAD
	}

	sorted := slices.Clone(rejection)
	slices.Sort(sorted)

	report := &EnsembleReport{
		Runs:               runs,
		MeanRejection:      stat.Mean(rejection, nil),
		MinRejection:       floats.Min(rejection),
		MedianRejection:    stat.Quantile(0.5, stat.Empirical, sorted, nil),
		MaxRejection:       floats.Max(rejection),
		MeanObservationMAD: stat.Mean(obsMAD, nil),
		MeanEstimateMAD:    stat.Mean(estMAD, nil),
	}
	if len(rejection) > 1 {
		report.StdDevRejection = stat.StdDev(rejection, nil)
	}
	if math.IsNaN(report.StdDevRejection) {
		report.StdDevRejection = 0
	}

	return report
}
