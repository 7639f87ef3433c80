package app

// Option 是一个函数类型，用于配置应用程序选项。
type Option func(*options)

// options 是应用程序的内部配置结构体。
type options struct {
	hooks    []Hook   // 按注册顺序启动、逆序停止的组件
	cleanups []func() // 关闭时执行的清理函数，例如刷新追踪数据、关闭日志文件
	resident bool     // 任务完成后是否常驻直到收到退出信号
}

// WithHook 注册一个带启动/停止逻辑的组件，例如指标 HTTP 服务。
func WithHook(hook Hook) Option {
	return func(o *options) {
		o.hooks = append(o.hooks, hook)
	}
}

// WithCleanup 注册一个在应用关闭时执行的清理函数。
func WithCleanup(cleanup func()) Option {
	return func(o *options) {
		if cleanup != nil {
			o.cleanups = append(o.cleanups, cleanup)
		}
	}
}

// WithResident 设置任务完成后是否继续运行，直到收到 SIGINT/SIGTERM。
func WithResident(resident bool) Option {
	return func(o *options) {
		o.resident = resident
	}
}
