// Command kalmantrack 仿真一维匀速运动目标，生成带噪观测，用标量卡尔曼滤波跟踪其位置并绘图.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/pflag"

	"github.com/wyfcoding/kalmantrack/app"
	"github.com/wyfcoding/kalmantrack/bootstrap"
	"github.com/wyfcoding/kalmantrack/config"
	"github.com/wyfcoding/kalmantrack/health"
	"github.com/wyfcoding/kalmantrack/tracker"
	"github.com/wyfcoding/kalmantrack/xerrors"
)

const serviceName = "kalmantrack"

// version 由构建时 -ldflags "-X main.version=..." 注入.
var version = "dev"

// flagBindings 配置键 -> flag 名.
var flagBindings = map[string]string{
	"simulation.seed":  "seed",
	"chart.output":     "output",
	"ensemble.runs":    "runs",
	"ensemble.workers": "workers",
	"metrics.textfile": "metrics-file",
	"log.level":        "log-level",
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := pflag.NewFlagSet(serviceName, pflag.ContinueOnError)
	configPath := fs.String("config", "", "path to a TOML config file")
	fs.Uint64("seed", 0, "random seed, 0 draws one from crypto/rand")
	fs.String("output", "results.png", "chart output path, the extension selects the format")
	fs.Int("runs", 0, "number of Monte Carlo runs, 0 runs once and renders a chart")
	fs.Int("workers", 0, "Monte Carlo parallelism, 0 uses GOMAXPROCS")
	fs.String("metrics-file", "", "write Prometheus textfile metrics to this path after each run")
	fs.String("log-level", "info", "debug, info, warn or error")
	watch := fs.Bool("watch", false, "re-run whenever the config file changes, until SIGINT/SIGTERM")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}
	if *watch && *configPath == "" {
		fmt.Fprintln(os.Stderr, "kalmantrack: --watch requires --config")
		return 2
	}

	b := bootstrap.New(serviceName, version)
	if err := b.Initialize(*configPath, fs, flagBindings); err != nil {
		fmt.Fprintf(os.Stderr, "kalmantrack: %v\n", err)
		return xerrors.ExitCode(err)
	}

	ctx := context.Background()
	m := b.SetupMetrics()
	j := newJob(tracker.NewRunner(b.Logger, m), m, b.Logger)

	opts := []app.Option{
		app.WithResident(*watch),
		app.WithCleanup(func() { _ = b.Logger.Close() }),
		app.WithCleanup(b.SetupTracing(ctx)),
	}
	if port := b.Config.Metrics.Port; *watch && port != "" {
		var stop func()
		opts = append(opts, app.WithHook(app.Hook{
			Name: "metrics-http",
			OnStart: func(context.Context) error {
				stop = m.ExposeHttp(port, map[string]http.Handler{
					"/healthz": health.Handler(map[string]health.Checker{"last_run": j.status.Checker()}),
				})
				return nil
			},
			OnStop: func(context.Context) error {
				stop()
				return nil
			},
		}))
	}

	err := app.New(serviceName, b.Logger, opts...).Run(ctx, func(ctx context.Context) error {
		if *watch {
			config.RegisterReloadHook(func(next *config.Config) {
				if err := j.execute(ctx, next); err != nil {
					b.Logger.ErrorContext(ctx, "re-run after config change failed", "error", err)
				}
			})
			config.Watch()
		}
		return j.execute(ctx, b.Config)
	})

	return xerrors.ExitCode(err)
}
