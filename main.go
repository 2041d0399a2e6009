// entry point of the application
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"vidgrab/internal/app"
	"vidgrab/internal/config"
	"vidgrab/internal/infrastructure/delivery/cli"
	"vidgrab/internal/observability"

	ucli "github.com/urfave/cli/v2"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.New()
	if err != nil {
		slog.Error("config new", slog.Any("error", err))
		stop()
		os.Exit(1)
	}

	cmd := cli.New(cli.Options{
		Config:  cfg,
		Backend: app.Backend,
		Serve:   app.Serve,
		Metrics: observability.New(),
	})

	err = cmd.RunContext(ctx, os.Args)
	if err == nil {
		return
	}

	code := 1

	var exitErr ucli.ExitCoder
	if errors.As(err, &exitErr) {
		code = exitErr.ExitCode()
	}

	if msg := err.Error(); msg != "" {
		fmt.Fprintln(os.Stderr, msg)
	}

	stop()
	os.Exit(code)
}
