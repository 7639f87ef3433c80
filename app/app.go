// Package app 管理进程生命周期：启动组件、执行任务、等待退出信号并有序清理。
package app

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wyfcoding/kalmantrack/logging"
)

const shutdownTimeout = 10 * time.Second

// App 是应用程序的核心容器，负责管理应用程序的生命周期。
type App struct {
	name      string
	logger    *logging.Logger
	opts      options
	lifecycle *Lifecycle
}

// New 创建一个新的应用程序实例。
func New(name string, logger *logging.Logger, opts ...Option) *App {
	if logger == nil {
		logger = logging.Default()
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	lc := NewLifecycle(logger)
	for _, hook := range o.hooks {
		lc.Append(hook)
	}

	return &App{
		name:      name,
		logger:    logger,
		opts:      o,
		lifecycle: lc,
	}
}

// Run 启动所有组件后执行 job。常驻模式下 job 结束后继续阻塞，
// 直到 ctx 被取消或收到 SIGINT/SIGTERM；随后逆序停止组件并执行清理函数。
// 返回 job 的错误与组件停止错误的合并结果。
func (a *App) Run(ctx context.Context, job func(context.Context) error) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.logger.InfoContext(ctx, "application starting", "name", a.name, "pid", os.Getpid(), "resident", a.opts.resident)

	if err := a.lifecycle.Start(ctx); err != nil {
		return errors.Join(err, a.shutdown())
	}

	jobErr := job(ctx)
	if jobErr != nil {
		a.logger.ErrorContext(ctx, "job failed", "name", a.name, "error", jobErr)
	}

	if a.opts.resident {
		a.logger.InfoContext(ctx, "waiting for shutdown signal", "name", a.name)
		<-ctx.Done()
		a.logger.Info("shutting down application", "name", a.name)
	}

	return errors.Join(jobErr, a.shutdown())
}

func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := a.lifecycle.Stop(ctx)
	for i := len(a.opts.cleanups) - 1; i >= 0; i-- {
		a.opts.cleanups[i]()
	}

	a.logger.Info("application shut down", "name", a.name)
	return err
}
