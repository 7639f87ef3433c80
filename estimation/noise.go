package estimation

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/wyfcoding/kalmantrack/xerrors"
)

// NoiseShape 噪声分布形状.
type NoiseShape string

const (
	// NoiseUniform [-1, 1] 上的均匀分布，有界.
	NoiseUniform NoiseShape = "uniform"
	// NoiseGaussian 标准正态分布.
	NoiseGaussian NoiseShape = "gaussian"
)

// 同一种子派生的两条 PCG 流，过程噪声与观测噪声互不相关.
const (
	processStream     uint64 = 0x9e3779b97f4a7c15
	measurementStream uint64 = 0xbf58476d1ce4e5b9
)

// Rander 产生零均值、单位尺度的随机数，调用方再乘以 sqrt(variance).
// distuv 中的分布类型均满足该接口.
type Rander interface {
	Rand() float64
}

// Constant 总是返回同一个值的 Rander，用于关闭噪声或构造确定性输入.
type Constant float64

// Rand 实现 Rander.
func (c Constant) Rand() float64 { return float64(c) }

// NewUnitNoise 按形状创建单位尺度噪声源，空形状视为 uniform.
func NewUnitNoise(shape NoiseShape, src rand.Source) (Rander, error) {
	switch shape {
	case "", NoiseUniform:
		return distuv.Uniform{Min: -1, Max: 1, Src: src}, nil
	case NoiseGaussian:
		return distuv.Normal{Mu: 0, Sigma: 1, Src: src}, nil
	default:
		return nil, xerrors.UnknownNoiseShape(string(shape))
	}
}

// Streams 一次运行所需的两条独立随机源.
type Streams struct {
	Process     rand.Source
	Measurement rand.Source
}

// NewStreams 由单个种子派生过程噪声与观测噪声的随机源，相同种子得到相同轨迹.
func NewStreams(seed uint64) Streams {
	return Streams{
		Process:     rand.NewPCG(seed, processStream),
		Measurement: rand.NewPCG(seed, measurementStream),
	}
}
