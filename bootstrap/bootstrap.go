// Package bootstrap 负责进程启动阶段的通用基础设施初始化：配置、日志、追踪与指标.
package bootstrap

import (
	"context"
	"errors"

	"github.com/spf13/pflag"

	"github.com/wyfcoding/kalmantrack/config"
	"github.com/wyfcoding/kalmantrack/logging"
	"github.com/wyfcoding/kalmantrack/metrics"
	"github.com/wyfcoding/kalmantrack/tracing"
	"github.com/wyfcoding/kalmantrack/xerrors"
)

// Bootstrapper 处理通用基础设施的初始化
type Bootstrapper struct {
	ServiceName string
	Version     string
	Logger      *logging.Logger
	Config      *config.Config
}

// New 创建一个新的引导器实例
func New(serviceName, version string) *Bootstrapper {
	return &Bootstrapper{
		ServiceName: serviceName,
		Version:     version,
	}
}

// Initialize 绑定命令行 flag、加载配置文件，并按配置初始化全局日志.
// bindings 为 配置键 -> flag 名，fs 为 nil 时不绑定 flag.
func (b *Bootstrapper) Initialize(configPath string, fs *pflag.FlagSet, bindings map[string]string) error {
	if fs != nil {
		if err := config.BindFlags(fs, bindings); err != nil {
			return xerrors.InvalidConfig("bind flags", err)
		}
	}

	var cfg config.Config
	if err := config.Load(configPath, &cfg); err != nil {
		var xe *xerrors.Error
		if errors.As(err, &xe) {
			return err
		}
		return xerrors.InvalidConfig("load config", err).WithContext("path", configPath)
	}
	if cfg.Version == "" || cfg.Version == "dev" {
		cfg.Version = b.Version
	}

	b.Config = &cfg
	b.Logger = logging.InitLogger(logging.Config{
		Service:    b.ServiceName,
		Module:     "bootstrap",
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		Console:    cfg.Log.Console,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})
	// InitLogger 只生效一次，级别仍以本次配置为准
	logging.SetLevel(cfg.Log.Level)

	config.PrintWithMask(&cfg)
	return nil
}

// SetupTracing 初始化 OpenTelemetry 追踪器，返回的函数在退出时刷新并关闭导出器.
// 初始化失败不阻断启动.
func (b *Bootstrapper) SetupTracing(ctx context.Context) func() {
	shutdown, err := tracing.InitTracer(ctx, b.Config.Tracing)
	if err != nil {
		b.Logger.ErrorContext(ctx, "failed to init tracer", "error", err)
		return func() {}
	}
	return func() {
		if err := shutdown(context.Background()); err != nil {
			b.Logger.Error("failed to shutdown tracer", "error", err)
		}
	}
}

// SetupMetrics 创建指标注册表并登记构建信息.
func (b *Bootstrapper) SetupMetrics() *metrics.Metrics {
	m := metrics.NewMetrics(b.ServiceName)
	m.RegisterBuildInfo(b.ServiceName, b.Config.Version)
	return m
}
