package estimation

import (
	"math"

	"github.com/go-playground/validator/v10"

	"github.com/wyfcoding/kalmantrack/xerrors"
)

// MaxSteps 单次运行允许的最大步数，防止 duration/dt 过大时一次性分配巨量内存.
const MaxSteps = 50_000_000

// stepTolerance 吸收 duration/dt 的浮点误差，例如 10/0.01 需要得到 1000 而不是 999.
const stepTolerance = 1e-9

var validate = validator.New()

// Config 单次运行的全部参数，运行期间不可变.
type Config struct {
	Dt                  float64    `mapstructure:"dt"                   toml:"dt"                   json:"dt"                   validate:"gt=0"`
	Duration            float64    `mapstructure:"duration"             toml:"duration"             json:"duration"             validate:"gt=0"`
	X0                  float64    `mapstructure:"x0"                   toml:"x0"                   json:"x0"`
	V0                  float64    `mapstructure:"v0"                   toml:"v0"                   json:"v0"`
	ProcessVariance     float64    `mapstructure:"process_variance"     toml:"process_variance"     json:"process_variance"     validate:"gte=0"`
	MeasurementVariance float64    `mapstructure:"measurement_variance" toml:"measurement_variance" json:"measurement_variance" validate:"gte=0"`
	ModelVelocity       float64    `mapstructure:"v_model"              toml:"v_model"              json:"v_model"`
	ModelVariance       float64    `mapstructure:"model_variance"       toml:"model_variance"       json:"model_variance"       validate:"gte=0"`
	PriorMean           float64    `mapstructure:"x_prior"              toml:"x_prior"              json:"x_prior"`
	ProcessNoise        NoiseShape `mapstructure:"process_noise"        toml:"process_noise"        json:"process_noise"        validate:"omitempty,oneof=uniform gaussian"`
	MeasurementNoise    NoiseShape `mapstructure:"measurement_noise"    toml:"measurement_noise"    json:"measurement_noise"    validate:"omitempty,oneof=uniform gaussian"`
}

// DefaultConfig 返回演示场景的默认参数.
func DefaultConfig() Config {
	return Config{
		Dt:                  0.01,
		Duration:            10,
		X0:                  0,
		V0:                  10,
		ProcessVariance:     0.00001,
		MeasurementVariance: 200,
		ModelVelocity:       9.0,
		ModelVariance:       3,
		PriorMean:           1,
		ProcessNoise:        NoiseUniform,
		MeasurementNoise:    NoiseUniform,
	}
}

// Validate 在仿真开始前一次性检查参数.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return xerrors.InvalidConfig(err.Error(), err)
	}
	for name, v := range map[string]float64{
		"dt":                   c.Dt,
		"duration":             c.Duration,
		"x0":                   c.X0,
		"v0":                   c.V0,
		"process_variance":     c.ProcessVariance,
		"measurement_variance": c.MeasurementVariance,
		"v_model":              c.ModelVelocity,
		"model_variance":       c.ModelVariance,
		"x_prior":              c.PriorMean,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return xerrors.InvalidConfig(name+" must be finite", nil).WithContext("field", name)
		}
	}
	// 两者同时为 0 时跟踪阶段的融合分母为 0
	if c.ModelVariance == 0 && c.MeasurementVariance == 0 {
		return xerrors.InvalidConfig("model_variance and measurement_variance must not both be zero", nil).
			WithContext("field", "model_variance")
	}
	if steps := c.Duration / c.Dt; steps > MaxSteps {
		return xerrors.InvalidConfig("duration/dt exceeds the step limit", nil).
			WithContext("steps", steps).
			WithContext("limit", MaxSteps)
	}
	return nil
}

// Steps 返回步数 N = floor(duration / dt).
func (c Config) Steps() int {
	return int(math.Floor(c.Duration/c.Dt + stepTolerance))
}

// Samples 返回每条序列的长度 N+1.
func (c Config) Samples() int {
	return c.Steps() + 1
}
