package estimation

import (
	"encoding/json"
	"math"
	"strconv"

	"gonum.org/v1/gonum/floats"

	"github.com/wyfcoding/kalmantrack/xerrors"
)

// Stats 一次运行相对真值的误差统计.
type Stats struct {
	ObservationMAD float64 `json:"observation_mad"` // 原始观测与真值的平均绝对偏差
	EstimateMAD    float64 `json:"estimate_mad"`    // 滤波估计与真值的平均绝对偏差
	EstimateRMSE   float64 `json:"estimate_rmse"`   // 滤波估计的均方根误差
	NoiseRejection float64 `json:"noise_rejection"` // ObservationMAD / EstimateMAD
	FinalVariance  float64 `json:"final_variance"`  // 最后一步的后验方差
}

// MarshalJSON 观测无误差时 NoiseRejection 为 +Inf，编码为字符串 "+Inf".
func (s Stats) MarshalJSON() ([]byte, error) {
	type plain Stats
	return json.Marshal(struct {
		plain
		NoiseRejection any `json:"noise_rejection"`
	}{plain(s), JSONNumber(s.NoiseRejection)})
}

// JSONNumber 有限值原样返回，NaN 与 ±Inf 转为 "NaN"、"+Inf"、"-Inf" 字符串.
func JSONNumber(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return v
}

// Evaluate 计算观测与估计相对真值的误差.
func Evaluate(truth, observations, estimates Trajectory, finalVariance float64) (Stats, error) {
	n := len(truth)
	if n == 0 {
		return Stats{}, xerrors.EmptyData("no truth samples to evaluate against")
	}
	if len(observations) != n {
		return Stats{}, xerrors.LengthMismatch(n, len(observations))
	}
	if len(estimates) != n {
		return Stats{}, xerrors.LengthMismatch(n, len(estimates))
	}

	s := Stats{
		ObservationMAD: MeanAbsDeviation(truth, observations),
		EstimateMAD:    MeanAbsDeviation(truth, estimates),
		EstimateRMSE:   floats.Distance(truth, estimates, 2) / math.Sqrt(float64(n)),
		FinalVariance:  finalVariance,
	}
	switch {
	case s.EstimateMAD > 0:
		s.NoiseRejection = s.ObservationMAD / s.EstimateMAD
	case s.ObservationMAD > 0:
		s.NoiseRejection = math.Inf(1)
	default:
		s.NoiseRejection = 1
	}

	return s, nil
}

// MeanAbsDeviation 两条等长序列逐点差的 L1 范数除以长度.
func MeanAbsDeviation(a, b Trajectory) float64 {
	if len(a) == 0 {
		return 0
	}
	return floats.Distance(a, b, 1) / float64(len(a))
}
