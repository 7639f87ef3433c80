package estimation

import (
	"context"

	"github.com/wyfcoding/kalmantrack/fsm"
	"github.com/wyfcoding/kalmantrack/xerrors"
)

// Phase 滤波器所处阶段.
type Phase int

const (
	// AwaitingFirstObservation 仅持有占位信念，尚未处理任何观测.
	AwaitingFirstObservation Phase = iota
	// Tracking 已完成首步更新，之后每步先预测再更新；终态.
	Tracking
)

func (p Phase) String() string {
	switch p {
	case AwaitingFirstObservation:
		return "awaiting_first_observation"
	case Tracking:
		return "tracking"
	default:
		return "unknown"
	}
}

type filterEvent string

const eventObserved filterEvent = "observed"

// Filter 一维卡尔曼滤波器.
// 与通用平滑器不同，它使用固定的匀速模型与固定步长，只消费观测、从不接触真值.
type Filter struct {
	machine             *fsm.Machine[Phase, filterEvent]
	belief              Belief
	velocity            float64 // 模型假设的匀速 v_model
	dt                  float64
	modelVariance       float64 // 每步预测累加的过程方差
	measurementVariance float64 // 观测噪声方差
}

// NewFilter 按配置创建滤波器，初始信念为 {x_prior, 0}.
func NewFilter(cfg Config) *Filter {
	m := fsm.NewMachine[Phase, filterEvent](AwaitingFirstObservation)
	m.AddTransition(AwaitingFirstObservation, eventObserved, Tracking)
	m.AddTransition(Tracking, eventObserved, Tracking)

	return &Filter{
		machine:             m,
		belief:              Placeholder(cfg.PriorMean),
		velocity:            cfg.ModelVelocity,
		dt:                  cfg.Dt,
		modelVariance:       cfg.ModelVariance,
		measurementVariance: cfg.MeasurementVariance,
	}
}

// Observe 处理一个观测并返回该步的后验.
// 首个观测直接对占位信念做更新；其后每个观测先按模型预测一步再融合.
// 融合退化以 DegenerateFusion 错误返回，滤波器状态不变.
func (f *Filter) Observe(ctx context.Context, measurement float64) (posterior Belief, err error) {
	defer func() {
		if r := recover(); r != nil {
			xe, ok := r.(*xerrors.Error)
			if !ok {
				panic(r)
			}
			err = xe
		}
	}()

	return f.step(ctx, measurement)
}

// step 推进一步；融合退化时 panic.
func (f *Filter) step(ctx context.Context, measurement float64) (Belief, error) {
	var posterior Belief
	switch f.machine.Current() {
	case AwaitingFirstObservation:
		posterior = Update(f.belief, measurement, f.measurementVariance)
	default:
		predicted := Predict(f.belief, f.velocity, f.dt, f.modelVariance)
		posterior = Fuse(predicted, measurement, f.measurementVariance)
	}

	if err := f.machine.Trigger(ctx, eventObserved); err != nil {
		return Belief{}, err
	}
	f.belief = posterior

	return posterior, nil
}

// Belief 当前信念.
func (f *Filter) Belief() Belief {
	return f.belief
}

// Phase 当前阶段.
func (f *Filter) Phase() Phase {
	return f.machine.Current()
}

// Confidence 当前估计的相对置信度.
func (f *Filter) Confidence() float64 {
	return f.belief.Confidence()
}

// EstimateBeliefs 逐步滤波整条观测序列，返回每一步的后验信念.
func EstimateBeliefs(ctx context.Context, observations Trajectory, cfg Config) ([]Belief, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(observations) == 0 {
		return nil, xerrors.EmptyData("no observations to filter")
	}

	// 配置已校验，融合退化不可能发生；一旦发生即为程序缺陷，panic 直接向上传播
	f := NewFilter(cfg)
	beliefs := make([]Belief, len(observations))
	for n, z := range observations {
		b, err := f.step(ctx, z)
		if err != nil {
			if xe, ok := xerrors.FromError(err); ok {
				xe.WithContext("step", n)
			}
			return nil, err
		}
		beliefs[n] = b
	}

	return beliefs, nil
}

// Estimate 返回每一步的滤波均值，长度与观测序列一致.
func Estimate(ctx context.Context, observations Trajectory, cfg Config) (Trajectory, error) {
	beliefs, err := EstimateBeliefs(ctx, observations, cfg)
	if err != nil {
		return nil, err
	}
	return Means(beliefs), nil
}
