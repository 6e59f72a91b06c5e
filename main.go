// entry point of the application
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"descargo/internal/catalog"
	"descargo/internal/config"
	"descargo/internal/depmanager"
	"descargo/internal/fetcher"
	"descargo/internal/ffmpeg"
	httprouter "descargo/internal/infrastructure/delivery/http"
	"descargo/internal/observability"
	"descargo/internal/origin"
	"descargo/internal/proxy"
	"descargo/internal/segmenter"
	"descargo/internal/service"
	"descargo/internal/storage"
	httpserver "descargo/pkg/http/server"
	"descargo/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := config.New()
	if err != nil {
		slog.Error("config new", slog.Any("error", err))
		stop()
		os.Exit(1)
	}

	log, err := logger.New(&logger.Options{
		AddSource: true,
		Level:     cfg.App.LogLevel,
	})
	if err != nil {
		slog.WarnContext(ctx, "logger level invalid; defaulting to info", slog.Any("error", err))
	}

	depMgr := depmanager.New(log, cfg)
	metrics := observability.New()

	log.InfoContext(ctx, "resolving yt-dlp and ffmpeg binaries, this may take some time...")

	if err := depMgr.Start(ctx); err != nil {
		log.ErrorContext(ctx, "dependency setup failed", slog.Any("error", err))
		stop()
		os.Exit(1)
	}

	if !depMgr.Probe(ctx) {
		log.WarnContext(ctx, "transcoding tool probe failed, fetches will be refused until it recovers")
	}

	proxies, err := proxy.New(cfg.Proxy.URLs, cfg.Proxy.HealthCheck, cfg.Proxy.HealthTimeout)
	if err != nil {
		log.ErrorContext(ctx, "proxy setup failed", slog.Any("error", err))
		stop()
		os.Exit(1)
	}

	if proxies.Count() > 0 {
		log.InfoContext(ctx, "proxies configured", slog.Int("count", proxies.Count()))
	}

	storer, err := storage.New(log, cfg)
	if err != nil {
		log.ErrorContext(ctx, "storage setup failed", slog.Any("error", err))
		stop()
		os.Exit(1)
	}

	storer.StartSweeper(ctx)

	src := origin.NewYTdlp(log, cfg, depMgr, proxies)
	runner := ffmpeg.New(log,
		depMgr.InstalledPath(depmanager.BinaryFFmpeg),
		depMgr.InstalledPath(depmanager.BinaryFFprobe),
		cfg.Timeouts.Tool)

	svc := service.New(log, cfg,
		catalog.New(log, cfg, src),
		fetcher.New(log, cfg, src, runner),
		segmenter.New(log, cfg, runner),
		depMgr,
		storer,
		metrics)

	router := httprouter.New(log, svc, metrics, cfg.Dir.Downloads)

	httpSrv := httpserver.New(router, httpserver.Options{
		Addr:            cfg.HTTP.Port,
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
	})

	log.InfoContext(ctx, "descargo started", slog.String("port", cfg.HTTP.Port))

	select {
	case <-ctx.Done():
	case err := <-httpSrv.Notify():
		log.ErrorContext(ctx, "http server stopped", slog.Any("error", err))
	}

	if err := httpSrv.Shutdown(); err != nil {
		log.Error(err.Error())
	}

	log.InfoContext(ctx, "descargo shut down gracefully")
}
