package estimation

// Trajectory 按时间步排列的标量序列，下标 0 对应 t=0.
type Trajectory []float64

// Sample 步号与该步的取值.
type Sample struct {
	Step  int     `json:"step"`
	Value float64 `json:"value"`
}

// Samples 将序列展开为 (步号, 值) 对.
func (t Trajectory) Samples() []Sample {
	out := make([]Sample, len(t))
	for i, v := range t {
		out[i] = Sample{Step: i, Value: v}
	}
	return out
}

// Last 返回最后一个样本，空序列返回 0.
func (t Trajectory) Last() float64 {
	if len(t) == 0 {
		return 0
	}
	return t[len(t)-1]
}

// Means 提取一组信念的均值序列.
func Means(beliefs []Belief) Trajectory {
	out := make(Trajectory, len(beliefs))
	for i, b := range beliefs {
		out[i] = b.Mean
	}
	return out
}

// Variances 提取一组信念的方差序列.
func Variances(beliefs []Belief) Trajectory {
	out := make(Trajectory, len(beliefs))
	for i, b := range beliefs {
		out[i] = b.Variance
	}
	return out
}

// TimeAxis 生成长度为 samples、间隔为 dt 的时间轴.
func TimeAxis(samples int, dt float64) Trajectory {
	out := make(Trajectory, samples)
	for i := range out {
		out[i] = float64(i) * dt
	}
	return out
}
