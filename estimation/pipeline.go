package estimation

import (
	"context"

	"github.com/wyfcoding/kalmantrack/xerrors"
)

// Result 一次批量运行的全部输出，所有序列长度均为 N+1 且下标即时间步.
type Result struct {
	Config       Config     `json:"config"`
	Steps        int        `json:"steps"`
	Time         Trajectory `json:"time"`
	Positions    Trajectory `json:"positions"`
	Velocities   Trajectory `json:"velocities"`
	Observations Trajectory `json:"observations"`
	Estimates    Trajectory `json:"estimates"`
	Variances    Trajectory `json:"variances"`
	Stats        Stats      `json:"stats"`
}

// Run 依次执行真值仿真、观测与滤波，并汇总误差统计.
// 随机性全部来自 streams，相同的 streams 种子得到相同结果.
func Run(ctx context.Context, cfg Config, streams Streams) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	processNoise, err := NewUnitNoise(cfg.ProcessNoise, streams.Process)
	if err != nil {
		return nil, err
	}
	measurementNoise, err := NewUnitNoise(cfg.MeasurementNoise, streams.Measurement)
	if err != nil {
		return nil, err
	}

	positions, velocities := Simulate(cfg, processNoise)
	observations := Observe(positions, cfg.MeasurementVariance, measurementNoise)

	beliefs, err := EstimateBeliefs(ctx, observations, cfg)
	if err != nil {
		return nil, err
	}

	return Assemble(cfg, positions, velocities, observations, beliefs)
}

// Assemble 校验各序列长度一致并组装结果.
func Assemble(cfg Config, positions, velocities, observations Trajectory, beliefs []Belief) (*Result, error) {
	samples := cfg.Samples()
	for _, got := range []int{len(positions), len(velocities), len(observations), len(beliefs)} {
		if got != samples {
			return nil, xerrors.LengthMismatch(samples, got)
		}
	}

	estimates := Means(beliefs)
	variances := Variances(beliefs)

	stats, err := Evaluate(positions, observations, estimates, variances.Last())
	if err != nil {
		return nil, err
	}

	return &Result{
		Config:       cfg,
		Steps:        samples - 1,
		Time:         TimeAxis(samples, cfg.Dt),
		Positions:    positions,
		Velocities:   velocities,
		Observations: observations,
		Estimates:    estimates,
		Variances:    variances,
		Stats:        stats,
	}, nil
}
