// Package app wires the components into the extractor backend and the HTTP API.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"vidgrab/internal/config"
	"vidgrab/internal/depmanager"
	"vidgrab/internal/downloader"
	httprouter "vidgrab/internal/infrastructure/delivery/http"
	"vidgrab/internal/metadata"
	"vidgrab/internal/observability"
	"vidgrab/internal/proxy"
	"vidgrab/internal/service"
	"vidgrab/internal/storage"
	httpserver "vidgrab/pkg/http/server"
)

// Backend resolves the extractor binaries and returns the yt-dlp downloader.
func Backend(ctx context.Context, cfg *config.Config, log *slog.Logger) (downloader.Downloader, error) {
	log.InfoContext(ctx, "checking if yt-dlp, ffmpeg, deno are installed. it may take some time...")

	depMgr := depmanager.New(log, cfg.DepManager)
	if err := depMgr.Start(ctx); err != nil {
		return nil, fmt.Errorf("prepare binaries: %w", err)
	}

	proxies, err := proxy.New(cfg.Proxy)
	if err != nil {
		return nil, fmt.Errorf("proxy: %w", err)
	}

	if proxies.Count() > 0 {
		log.InfoContext(ctx, "proxy manager initialized", slog.Int("proxy_count", proxies.Count()))
	}

	return downloader.NewYTdlp(log, cfg, depMgr, proxies), nil
}

// Serve runs the HTTP API on dl until ctx is done or the server fails.
// Running jobs are failed and their events stored before Serve returns.
func Serve(ctx context.Context, cfg *config.Config, log *slog.Logger, dl downloader.Downloader, metrics *observability.Metrics) error {
	svcCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	fetcher := metadata.New(log, cfg, dl, metrics)
	storer := storage.New(svcCtx, log, cfg, metrics)
	svc := service.New(cfg, log, dl, metrics)
	router := httprouter.New(log, cfg, fetcher, svc, storer, metrics)

	httpSrv, err := httpserver.New(router, httpserver.Options{
		Addr:            cfg.HTTP.Port,
		ReadTimeout:     cfg.HTTP.HandlerTimeout,
		WriteTimeout:    cfg.HTTP.HandlerTimeout + cfg.HTTP.ShutdownTimeout,
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
	})
	if err != nil {
		return fmt.Errorf("http server: %w", err)
	}

	svc.Start(svcCtx)

	log.InfoContext(ctx, "vidgrab started", slog.String("addr", httpSrv.Addr()))

	var serveErr error

	select {
	case <-ctx.Done():
	case err := <-httpSrv.Notify():
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = fmt.Errorf("http server: %w", err)
		}
	}

	if err := httpSrv.Shutdown(); err != nil {
		log.Error("http server shutdown", slog.Any("error", err))
	}

	cancel()
	<-svc.Done()

	log.Info("vidgrab shut down gracefully")

	return serveErr
}
