package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/malonaz/meme-api/go/avatar"
	"github.com/malonaz/meme-api/go/flags"
	"github.com/malonaz/meme-api/go/health"
	httpserver "github.com/malonaz/meme-api/go/http"
	"github.com/malonaz/meme-api/go/logging"
	"github.com/malonaz/meme-api/go/prometheus"
	"github.com/malonaz/meme-api/go/render"
	"github.com/malonaz/meme-api/go/routine"
	"github.com/malonaz/meme-api/go/runner"
)

var opts struct {
	Logging    *logging.Opts     `group:"Logging" namespace:"logging" env-namespace:"LOGGING"`
	HTTP       *httpserver.Opts  `group:"HTTP" namespace:"http" env-namespace:"HTTP"`
	Health     *health.Opts      `group:"Health" namespace:"health" env-namespace:"HEALTH"`
	Prometheus *prometheus.Opts  `group:"Prometheus" namespace:"prometheus" env-namespace:"PROMETHEUS"`
	Avatar     *avatar.Opts      `group:"Avatar" namespace:"avatar" env-namespace:"AVATAR"`
	Assets     *render.AssetOpts `group:"Assets" namespace:"assets" env-namespace:"ASSETS"`
	Render     *render.Opts      `group:"Render" namespace:"render" env-namespace:"RENDER"`
}

func main() {
	ctx := context.Background()
	if err := run(ctx); err != nil {
		slog.ErrorContext(ctx, "running", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	if err := flags.Parse(&opts); err != nil {
		return err
	}
	if err := logging.Init(opts.Logging); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	avatars, err := avatar.NewFetcher(opts.Avatar)
	if err != nil {
		return err
	}
	renderer, err := render.New(opts.Render, opts.Assets, avatars)
	if err != nil {
		return err
	}
	if snapshot := renderer.Health(); snapshot.OK {
		slog.InfoContext(ctx, "loaded template", "template", snapshot.Template, "emoji", snapshot.Emoji)
	} else {
		slog.WarnContext(ctx, "no template image found, renders will fail until one is provided", "asset_dir", opts.Assets.Dir)
	}
	if err := renderer.Faces().EmojiError(); err != nil {
		slog.WarnContext(ctx, "color emoji drawing disabled", "error", err)
	} else {
		capability := renderer.Faces().EmojiCapability()
		slog.InfoContext(ctx, "color emoji drawing enabled", "strikes", capability.Strikes)
	}

	httpServer := httpserver.NewServer(opts.HTTP, renderer.RegisterRoutes).
		WithMiddleware(httpserver.RequestID(), httpserver.Logging(slog.Default()), httpserver.Metrics())
	healthServer := health.NewServer(opts.Health)
	healthServer.RegisterChecks(renderer.HealthCheck())

	units := []runner.Unit{}
	if opts.Prometheus.Enabled() {
		prometheusServer := prometheus.NewServer(opts.Prometheus)
		units = append(units, runner.Unit{
			Name:  "prometheus",
			Serve: prometheusServer.Serve,
			Stop:  func() error { return prometheusServer.GracefulStop(context.Background()) },
		})
	}
	if opts.Health.Enabled() {
		units = append(units, runner.Unit{
			Name:  "health",
			Serve: healthServer.Serve,
			Stop:  func() error { return healthServer.GracefulStop(context.Background()) },
		})
	}
	if opts.Avatar.SweepInterval > 0 {
		sweeper := routine.New("avatar-cache-sweeper", avatars.Sweep, func(err error) {
			slog.ErrorContext(ctx, "avatar cache sweeper died", "error", err)
		}).WithTicker(opts.Avatar.SweepInterval)
		units = append(units, runner.Unit{
			Name: "avatar-cache-sweeper",
			Serve: func(ctx context.Context) error {
				sweeper.Start(ctx)
				<-sweeper.Done()
				return nil
			},
			Stop: func() error { sweeper.Close(); return nil },
		})
	}
	units = append(units, runner.Unit{
		Name:  "http",
		Serve: httpServer.Serve,
		Stop:  httpServer.GracefulStop,
	})

	healthServer.MarkReady()
	return runner.New("meme-api", units...).Run(ctx)
}
