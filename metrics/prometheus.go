// Package metrics 封装 Prometheus 注册表及批处理作业的指标导出。
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 封装了基于 Prometheus 的指标采集注册表及滤波运行的标准指标。
type Metrics struct {
	registry *prometheus.Registry // 内部独立的 Prometheus 注册中心

	BuildInfo *prometheus.GaugeVec

	RunsTotal         *prometheus.CounterVec   // 运行次数 (维度: mode, status)
	RunDuration       *prometheus.HistogramVec // 各阶段耗时 (维度: stage)
	SamplesTotal      prometheus.Counter       // 已处理的观测总数
	ObservationMAD    prometheus.Gauge         // 最近一次运行的观测平均绝对偏差
	EstimateMAD       prometheus.Gauge         // 最近一次运行的估计平均绝对偏差
	NoiseRejection    prometheus.Gauge         // 最近一次运行的噪声抑制比
	FinalVariance     prometheus.Gauge         // 最近一次运行的末步后验方差
	EnsembleRejection prometheus.Histogram     // 批量运行中每次运行的噪声抑制比分布
}

// NewMetrics 初始化并返回一个新的指标采集器，自动注册 Go 运行时指标和进程指标。
func NewMetrics(serviceName string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{registry: reg}

	m.RunsTotal = m.NewCounterVec(prometheus.CounterOpts{
		Name: "kalmantrack_runs_total",
		Help: "Total number of pipeline runs",
	}, []string{"mode", "status"})

	m.RunDuration = m.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "kalmantrack_stage_duration_seconds",
		Help:    "Pipeline stage latency in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
	}, []string{"stage"})

	m.SamplesTotal = m.NewCounter(prometheus.CounterOpts{
		Name: "kalmantrack_samples_total",
		Help: "Total number of observations processed by the filter",
	})

	m.ObservationMAD = m.NewGauge(prometheus.GaugeOpts{
		Name: "kalmantrack_observation_mad",
		Help: "Mean absolute deviation of raw observations from truth in the last run",
	})
	m.EstimateMAD = m.NewGauge(prometheus.GaugeOpts{
		Name: "kalmantrack_estimate_mad",
		Help: "Mean absolute deviation of filtered estimates from truth in the last run",
	})
	m.NoiseRejection = m.NewGauge(prometheus.GaugeOpts{
		Name: "kalmantrack_noise_rejection_ratio",
		Help: "Observation MAD divided by estimate MAD in the last run",
	})
	m.FinalVariance = m.NewGauge(prometheus.GaugeOpts{
		Name: "kalmantrack_final_variance",
		Help: "Posterior variance after the last update in the last run",
	})

	m.EnsembleRejection = m.NewHistogram(prometheus.HistogramOpts{
		Name:    "kalmantrack_ensemble_noise_rejection_ratio",
		Help:    "Distribution of noise rejection ratios across ensemble runs",
		Buckets: prometheus.LinearBuckets(1, 0.5, 16),
	})

	slog.Info("unified metrics registry initialized", "service", serviceName)
	return m
}

// NewCounter 创建并注册一个新的计数器指标。
func (m *Metrics) NewCounter(opts prometheus.CounterOpts) prometheus.Counter {
	c := prometheus.NewCounter(opts)
	m.registry.MustRegister(c)
	return c
}

// NewCounterVec 创建并注册一个新的计数器向量。
func (m *Metrics) NewCounterVec(opts prometheus.CounterOpts, labelNames []string) *prometheus.CounterVec {
	cv := prometheus.NewCounterVec(opts, labelNames)
	m.registry.MustRegister(cv)
	return cv
}

// NewGauge 创建并注册一个新的仪表盘指标。
func (m *Metrics) NewGauge(opts prometheus.GaugeOpts) prometheus.Gauge {
	g := prometheus.NewGauge(opts)
	m.registry.MustRegister(g)
	return g
}

// NewGaugeVec 创建并注册一个新的仪表盘向量。
func (m *Metrics) NewGaugeVec(opts prometheus.GaugeOpts, labelNames []string) *prometheus.GaugeVec {
	gv := prometheus.NewGaugeVec(opts, labelNames)
	m.registry.MustRegister(gv)
	return gv
}

// NewHistogram 创建并注册一个新的直方图指标。
func (m *Metrics) NewHistogram(opts prometheus.HistogramOpts) prometheus.Histogram {
	h := prometheus.NewHistogram(opts)
	m.registry.MustRegister(h)
	return h
}

// NewHistogramVec 创建并注册一个新的直方图向量。
func (m *Metrics) NewHistogramVec(opts prometheus.HistogramOpts, labelNames []string) *prometheus.HistogramVec {
	hv := prometheus.NewHistogramVec(opts, labelNames)
	m.registry.MustRegister(hv)
	return hv
}

// RegisterBuildInfo 以常量 1 的 gauge 登记服务名、版本与 Go 版本，重复调用只保留首次的值。
func (m *Metrics) RegisterBuildInfo(serviceName, version string) {
	if m == nil || m.BuildInfo != nil {
		return
	}
	labels := []string{serviceName, version, runtime.Version()}
	for i, v := range labels {
		if v == "" {
			labels[i] = "unknown"
		}
	}

	m.BuildInfo = m.NewGaugeVec(prometheus.GaugeOpts{
		Name: "kalmantrack_build_info",
		Help: "Build information for the binary",
	}, []string{"service", "version", "goversion"})
	m.BuildInfo.WithLabelValues(labels...).Set(1)
}

// Gatherer 返回底层注册表，便于测试或自定义导出。
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// WriteTextfile 以 node-exporter textfile collector 格式写出当前所有指标。
// 批处理作业在退出前调用，文件先写临时文件再原子重命名。
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

// Handler 返回用于暴露指标的 HTTP 处理器。
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ExposeHttp 在指定端口启动一个独立的 HTTP 服务器用于暴露指标数据，routes 为额外挂载的路径。
// 返回一个清理函数用于优雅关闭该服务器。
func (m *Metrics) ExposeHttp(port string, routes map[string]http.Handler) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	for path, h := range routes {
		mux.Handle(path, h)
	}
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server error", "error", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown metrics server", "error", err)
		}
	}
}
