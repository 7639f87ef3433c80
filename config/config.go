// Package config 提供统一的配置加载与管理能力.
// 配置来源优先级：命令行 flag > 环境变量 (KALMAN_*) > TOML 文件 > 内置默认值.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/wyfcoding/kalmantrack/estimation"
	"github.com/wyfcoding/kalmantrack/logging"
)

// EnvPrefix 环境变量前缀，例如 KALMAN_SIMULATION_DT.
const EnvPrefix = "KALMAN"

// Config 全局顶级配置结构.
type Config struct {
	Version    string           `mapstructure:"version"    toml:"version"    json:"version"`
	Log        LogConfig        `mapstructure:"log"        toml:"log"        json:"log"`
	Simulation SimulationConfig `mapstructure:"simulation" toml:"simulation" json:"simulation"`
	Chart      ChartConfig      `mapstructure:"chart"      toml:"chart"      json:"chart"`
	Ensemble   EnsembleConfig   `mapstructure:"ensemble"   toml:"ensemble"   json:"ensemble"`
	Metrics    MetricsConfig    `mapstructure:"metrics"    toml:"metrics"    json:"metrics"`
	Tracing    TracingConfig    `mapstructure:"tracing"    toml:"tracing"    json:"tracing"`
}

// SimulationConfig 单次运行的仿真与滤波参数，外加随机种子.
type SimulationConfig struct {
	estimation.Config `mapstructure:",squash"`
	// Seed 为 0 时由启动流程从 crypto/rand 抽取并写入日志.
	Seed uint64 `mapstructure:"seed" toml:"seed" json:"seed"`
}

// LogConfig 定义日志输出、级别与切割策略.
type LogConfig struct {
	Level      string `mapstructure:"level"       toml:"level"       json:"level"       validate:"omitempty,oneof=debug info warn error"` // 日志级别。
	File       string `mapstructure:"file"        toml:"file"        json:"file"`                                                     // 日志文件路径。
	Console    bool   `mapstructure:"console"     toml:"console"     json:"console"`                                                  // 写文件时是否同时输出到控制台。
	MaxSize    int    `mapstructure:"max_size"    toml:"max_size"    json:"max_size"    validate:"gte=0"`                             // 单个文件最大大小 (MB)。
	MaxBackups int    `mapstructure:"max_backups" toml:"max_backups" json:"max_backups" validate:"gte=0"`                             // 最大备份数。
	MaxAge     int    `mapstructure:"max_age"     toml:"max_age"     json:"max_age"     validate:"gte=0"`                             // 最大保留天数。
	Compress   bool   `mapstructure:"compress"    toml:"compress"    json:"compress"`                                                 // 是否启用压缩。
}

// ChartConfig 轨迹图输出参数.
type ChartConfig struct {
	Enabled bool   `mapstructure:"enabled" toml:"enabled" json:"enabled"`
	Output  string `mapstructure:"output"  toml:"output"  json:"output"  validate:"required_if=Enabled true"`
	Title   string `mapstructure:"title"   toml:"title"   json:"title"`
	Width   int    `mapstructure:"width"   toml:"width"   json:"width"   validate:"gte=100,lte=10000"` // 像素
	Height  int    `mapstructure:"height"  toml:"height"  json:"height"  validate:"gte=100,lte=10000"` // 像素
	// FixedY 为 true 时纵轴使用 [YMin, YMax]，否则由数据决定.
	FixedY bool    `mapstructure:"fixed_y" toml:"fixed_y" json:"fixed_y"`
	YMin   float64 `mapstructure:"y_min"   toml:"y_min"   json:"y_min"`
	YMax   float64 `mapstructure:"y_max"   toml:"y_max"   json:"y_max"   validate:"gtfield=YMin"`
}

// EnsembleConfig 蒙特卡洛批量运行参数，Runs 为 0 表示只做单次运行.
type EnsembleConfig struct {
	Runs    int `mapstructure:"runs"    toml:"runs"    json:"runs"    validate:"gte=0"`
	Workers int `mapstructure:"workers" toml:"workers" json:"workers" validate:"gte=0"`
}

// MetricsConfig Prometheus 指标导出参数.
type MetricsConfig struct {
	// Textfile 非空时在运行结束后写出 node-exporter textfile 格式的指标文件.
	Textfile string `mapstructure:"textfile" toml:"textfile" json:"textfile"`
	// Port 非空时在 watch 模式下通过 HTTP 暴露 /metrics.
	Port string `mapstructure:"port" toml:"port" json:"port"`
}

// TracingConfig OpenTelemetry 链路追踪配置.
type TracingConfig struct {
	Enabled      bool              `mapstructure:"enabled"       toml:"enabled"       json:"enabled"`
	ServiceName  string            `mapstructure:"service_name"  toml:"service_name"  json:"service_name"`
	OTLPEndpoint string            `mapstructure:"otlp_endpoint" toml:"otlp_endpoint" json:"otlp_endpoint" validate:"required_if=Enabled true"`
	SampleRatio  float64           `mapstructure:"sample_ratio"  toml:"sample_ratio"  json:"sample_ratio"  validate:"gte=0,lte=1"`
	Headers      map[string]string `mapstructure:"headers"       toml:"headers"       json:"headers"`
}

var (
	vInstance = viper.New()
	validate  = validator.New()

	mu       sync.Mutex
	onReload []func(*Config)
)

// SetDefaults 写入内置默认值，与演示场景保持一致.
func SetDefaults(v *viper.Viper) {
	sim := estimation.DefaultConfig()

	v.SetDefault("version", "dev")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.console", true)
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 7)

	v.SetDefault("simulation.dt", sim.Dt)
	v.SetDefault("simulation.duration", sim.Duration)
	v.SetDefault("simulation.x0", sim.X0)
	v.SetDefault("simulation.v0", sim.V0)
	v.SetDefault("simulation.process_variance", sim.ProcessVariance)
	v.SetDefault("simulation.measurement_variance", sim.MeasurementVariance)
	v.SetDefault("simulation.v_model", sim.ModelVelocity)
	v.SetDefault("simulation.model_variance", sim.ModelVariance)
	v.SetDefault("simulation.x_prior", sim.PriorMean)
	v.SetDefault("simulation.process_noise", string(sim.ProcessNoise))
	v.SetDefault("simulation.measurement_noise", string(sim.MeasurementNoise))
	v.SetDefault("simulation.seed", 0)

	v.SetDefault("chart.enabled", true)
	v.SetDefault("chart.output", "results.png")
	v.SetDefault("chart.title", "Position and Speed")
	v.SetDefault("chart.width", 800)
	v.SetDefault("chart.height", 600)
	v.SetDefault("chart.fixed_y", false)
	v.SetDefault("chart.y_min", 0)
	v.SetDefault("chart.y_max", 300)

	v.SetDefault("ensemble.runs", 0)
	v.SetDefault("ensemble.workers", 0)

	v.SetDefault("metrics.textfile", "")
	v.SetDefault("metrics.port", "")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "kalmantrack")
	v.SetDefault("tracing.otlp_endpoint", "")
	v.SetDefault("tracing.sample_ratio", 1.0)
}

// RegisterReloadHook 注册配置热更新回调。
func RegisterReloadHook(hook func(*Config)) {
	if hook == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	onReload = append(onReload, hook)
}

// BindFlags 将命令行 flag 绑定到配置键，bindings 为 配置键 -> flag 名.
// 只有被显式设置的 flag 才会覆盖文件与环境变量中的值.
func BindFlags(fs *pflag.FlagSet, bindings map[string]string) error {
	for key, name := range bindings {
		flag := fs.Lookup(name)
		if flag == nil {
			return fmt.Errorf("flag %q not defined", name)
		}
		if err := vInstance.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("bind flag %q: %w", name, err)
		}
	}
	return nil
}

// Load 加载配置：默认值、TOML 文件（path 为空时跳过）、环境变量，随后做结构校验.
func Load(path string, conf *Config) error {
	SetDefaults(vInstance)
	vInstance.SetConfigType("toml")

	vInstance.SetEnvPrefix(EnvPrefix)
	vInstance.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vInstance.AutomaticEnv()

	if path != "" {
		vInstance.SetConfigFile(path)
		if err := vInstance.ReadInConfig(); err != nil {
			return fmt.Errorf("read config error: %w", err)
		}
	}

	return decode(conf)
}

func decode(conf *Config) error {
	if err := vInstance.Unmarshal(conf); err != nil {
		return fmt.Errorf("unmarshal config error: %w", err)
	}
	if err := validate.Struct(conf); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if err := conf.Simulation.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// Watch 监听配置文件变更；变更后重新解析、校验，同步日志级别并依次调用热更新回调.
// 校验失败时保留旧配置，不触发回调.
func Watch() {
	vInstance.OnConfigChange(func(event fsnotify.Event) {
		if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
			return
		}
		slog.Info("detecting config change", "file", event.Name, "op", event.Op.String())
		const debounceTimeout = 500 * time.Millisecond
		time.Sleep(debounceTimeout)

		var next Config
		if err := decode(&next); err != nil {
			slog.Error("reload config failed, keeping previous config", "error", err)
			return
		}

		logging.SetLevel(next.Log.Level)
		slog.Info("config hot-reloaded and validated successfully")

		mu.Lock()
		hooks := append([]func(*Config){}, onReload...)
		mu.Unlock()
		for _, hook := range hooks {
			hook(&next)
		}
	})
	vInstance.WatchConfig()
}

// PrintWithMask 脱敏打印当前配置.
func PrintWithMask(conf *Config) {
	data, err := json.Marshal(conf)
	if err != nil {
		slog.Error("failed to marshal config for printing", "error", err)
		return
	}

	var configMap map[string]any
	if unmarshalErr := json.Unmarshal(data, &configMap); unmarshalErr != nil {
		slog.Error("failed to unmarshal config for masking", "error", unmarshalErr)
		return
	}

	mask(configMap)

	masked, marshalErr := json.Marshal(configMap)
	if marshalErr != nil {
		slog.Error("failed to marshal masked config", "error", marshalErr)
		return
	}

	slog.Info("current effective configuration", "config", string(masked))
}

func mask(configMap map[string]any) {
	sensitiveKeys := []string{"password", "secret", "token", "authorization", "api-key", "api_key"}

	for key, val := range configMap {
		if subMap, ok := val.(map[string]any); ok {
			// headers 下的所有值都视为敏感
			if strings.EqualFold(key, "headers") {
				for k := range subMap {
					subMap[k] = "******"
				}
				continue
			}
			mask(subMap)
			continue
		}

		for _, sensitiveKey := range sensitiveKeys {
			if strings.Contains(strings.ToLower(key), sensitiveKey) {
				configMap[key] = "******"
				break
			}
		}
	}
}

// GetViper 返回底层的 Viper 实例.
func GetViper() *viper.Viper {
	return vInstance
}

// reset 替换底层 Viper 实例，仅供测试使用.
func reset() {
	vInstance = viper.New()
	mu.Lock()
	onReload = nil
	mu.Unlock()
}
