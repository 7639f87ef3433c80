// Package estimation 一维位置估计的核心：真值仿真、带噪观测与高斯递推（卡尔曼）滤波.
package estimation

import (
	"math"

	"github.com/wyfcoding/kalmantrack/xerrors"
)

// Belief 滤波器对真实位置的高斯信念.
// 值类型，Predict 与 Update 总是返回新值而不修改入参.
type Belief struct {
	Mean     float64 `json:"mean"`     // 位置的最优估计
	Variance float64 `json:"variance"` // 估计的不确定度，始终非负
}

// Placeholder 返回首个观测到来之前的占位信念 {mean: x_prior, variance: 0}.
func Placeholder(mean float64) Belief {
	return Belief{Mean: mean}
}

// Predict 按匀速模型把信念向前推进一个步长.
// 过程不确定度只会累加，预测阶段方差不会缩小.
func Predict(prior Belief, velocity, dt, modelVariance float64) Belief {
	return Belief{
		Mean:     prior.Mean + velocity*dt,
		Variance: prior.Variance + modelVariance,
	}
}

// Update 首步更新：对占位信念融合第一个观测.
//
// 方差为 0 的先验是占位信念：后验精确落在观测值上，方差保持为 0.
// 方差为正的先验等价于 Fuse. 负方差直接 panic(*xerrors.Error).
func Update(prior Belief, measurement, measurementVariance float64) Belief {
	if prior.Variance < 0 || measurementVariance < 0 {
		panic(xerrors.DegenerateFusion(prior.Variance, measurementVariance))
	}
	if prior.Variance == 0 {
		return Belief{Mean: measurement, Variance: 0}
	}
	return Fuse(prior, measurement, measurementVariance)
}

// Fuse 将先验与一次已知方差的观测做精度加权融合，跟踪阶段的每一步都走这里.
//
// 先验方差为 0 时后验保持先验均值 (完全信任模型). 负方差或非正的融合分母
// 属于内部不变量被破坏，直接 panic(*xerrors.Error).
func Fuse(prior Belief, measurement, measurementVariance float64) Belief {
	if prior.Variance < 0 || measurementVariance < 0 {
		panic(xerrors.DegenerateFusion(prior.Variance, measurementVariance))
	}
	total := prior.Variance + measurementVariance
	if !(total > 0) {
		panic(xerrors.DegenerateFusion(prior.Variance, measurementVariance))
	}

	mean := (prior.Variance*measurement + measurementVariance*prior.Mean) / total
	// 舍入可能越出区间一个 ulp
	lo, hi := math.Min(prior.Mean, measurement), math.Max(prior.Mean, measurement)
	mean = math.Max(lo, math.Min(hi, mean))

	return Belief{
		Mean:     mean,
		Variance: prior.Variance * measurementVariance / total,
	}
}

// Confidence 将方差映射为 (0, 1] 区间的相对置信度，方差越小越接近 1.
func (b Belief) Confidence() float64 {
	if b.Variance <= 0 {
		return 1.0
	}
	return 1.0 / (1.0 + b.Variance)
}
