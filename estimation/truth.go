package estimation

import "math"

// Simulate 生成不可观测的真值轨迹.
// 速度做离散随机游走，每步叠加 noise.Rand()*sqrt(process_variance)，位置按分段匀速积分.
// 两条序列长度均为 N+1，调用方需保证 cfg 已通过 Validate.
func Simulate(cfg Config, noise Rander) (positions, velocities Trajectory) {
	samples := cfg.Samples()
	positions = make(Trajectory, samples)
	velocities = make(Trajectory, samples)

	positions[0] = cfg.X0
	velocities[0] = cfg.V0

	scale := math.Sqrt(cfg.ProcessVariance)
	for n := 1; n < samples; n++ {
		velocities[n] = velocities[n-1] + noise.Rand()*scale
		positions[n] = positions[n-1] + velocities[n]*cfg.Dt
	}

	return positions, velocities
}
