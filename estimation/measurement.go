package estimation

import "math"

// Observe 对每个真值位置叠加独立噪声 noise.Rand()*sqrt(measurement_variance)，返回等长的观测序列.
func Observe(positions Trajectory, measurementVariance float64, noise Rander) Trajectory {
	scale := math.Sqrt(measurementVariance)
	out := make(Trajectory, len(positions))
	for n, x := range positions {
		out[n] = x + noise.Rand()*scale
	}
	return out
}
