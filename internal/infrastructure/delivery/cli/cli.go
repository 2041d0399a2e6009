// Package cli is the terminal front end: metadata, formats and downloads
// from the command line, and the HTTP API through "serve".
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"vidgrab/internal/config"
	"vidgrab/internal/consts"
	"vidgrab/internal/downloader"
	"vidgrab/internal/entity"
	"vidgrab/internal/errs"
	"vidgrab/internal/metadata"
	"vidgrab/internal/observability"
	"vidgrab/internal/service"
	"vidgrab/pkg/logger"
	"vidgrab/pkg/urls"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
)

const (
	exitFailure = 1
	exitUsage   = 2
	filePerm    = 0o644
)

// Backend builds the extractor the commands run on.
type Backend func(ctx context.Context, cfg *config.Config, log *slog.Logger) (downloader.Downloader, error)

// Server runs the HTTP API until ctx is done.
type Server func(ctx context.Context, cfg *config.Config, log *slog.Logger, dl downloader.Downloader, metrics *observability.Metrics) error

// Options configures the CLI. Stdout and Stderr default to the process streams.
type Options struct {
	Config  *config.Config
	Backend Backend
	Serve   Server
	Metrics *observability.Metrics
	Stdout  io.Writer
	Stderr  io.Writer
}

type runner struct {
	opt Options
	cfg *config.Config
	log *slog.Logger
}

// New builds the vidgrab command line application. Errors returned by Run
// carry an exit code through cli.ExitCoder; the app never exits by itself.
func New(opt Options) *cli.App {
	if opt.Stdout == nil {
		opt.Stdout = os.Stdout
	}

	if opt.Stderr == nil {
		opt.Stderr = os.Stderr
	}

	r := &runner{opt: opt, cfg: opt.Config}

	outputFlag := func() cli.Flag {
		return &cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Value:   outputText,
			Usage:   "output format: text, json or yaml",
		}
	}

	return &cli.App{
		Name:      "vidgrab",
		Usage:     "inspect and download online videos",
		Writer:    opt.Stdout,
		ErrWriter: opt.Stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-level",
				Value: opt.Config.App.LogLevel,
				Usage: "debug, info, warn or error",
			},
		},
		Before: r.before,
		// exit codes are turned into os.Exit by the caller
		ExitErrHandler: func(*cli.Context, error) {},
		Commands: []*cli.Command{
			{
				Name:      "info",
				Usage:     "show the metadata of a video",
				ArgsUsage: "URL",
				Flags: []cli.Flag{
					outputFlag(),
					&cli.StringFlag{Name: "thumbnail", Usage: "write the thumbnail to `FILE`"},
				},
				Action: r.info,
			},
			{
				Name:      "formats",
				Usage:     "list the selectable formats of a video",
				ArgsUsage: "URL",
				Flags:     []cli.Flag{outputFlag()},
				Action:    r.formats,
			},
			{
				Name:      "download",
				Usage:     "download a video",
				ArgsUsage: "URL",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Value:   consts.FallbackFormat,
						Usage:   "format label, format id or height tier such as 720p",
					},
					&cli.BoolFlag{Name: "audio", Aliases: []string{"a"}, Usage: "download the audio track only"},
					&cli.StringFlag{Name: "title", Usage: "name the file after `TITLE` instead of the video title"},
				},
				Action: r.download,
			},
			{
				Name:  "serve",
				Usage: "run the HTTP API",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "addr", Value: opt.Config.HTTP.Port, Usage: "listen address"},
				},
				Action: r.serve,
			},
		},
	}
}

func (r *runner) before(c *cli.Context) error {
	log, err := logger.New(&logger.Options{
		AddSource: true,
		Level:     c.String("log-level"),
		Format:    r.cfg.App.LogFormat,
		Writer:    r.opt.Stderr,
	})
	if err != nil {
		log.WarnContext(c.Context, "logger level invalid; defaulting to info", slog.Any("error", err))
	}

	r.log = log

	return nil
}

func (r *runner) backend(c *cli.Context) (downloader.Downloader, error) {
	dl, err := r.opt.Backend(c.Context, r.cfg, r.log)
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("setup: %v", err), exitFailure)
	}

	return dl, nil
}

// oneURL returns the single normalized URL argument.
func oneURL(c *cli.Context) (string, error) {
	if c.NArg() != 1 {
		return "", cli.Exit("expected exactly one URL argument", exitUsage)
	}

	u, ok := urls.Normalize(c.Args().First())
	if !ok {
		return "", cli.Exit(fmt.Sprintf("%v: %q", errs.ErrInvalidURL, c.Args().First()), exitUsage)
	}

	return u, nil
}

func (r *runner) fetch(c *cli.Context) (*metadata.Fetcher, *entity.VideoMetadata, error) {
	if err := checkOutput(c.String("output")); err != nil {
		return nil, nil, cli.Exit(err.Error(), exitUsage)
	}

	u, err := oneURL(c)
	if err != nil {
		return nil, nil, err
	}

	dl, err := r.backend(c)
	if err != nil {
		return nil, nil, err
	}

	fetcher := metadata.New(r.log, r.cfg, dl, r.opt.Metrics)

	meta, err := fetcher.Fetch(c.Context, u)
	if err != nil {
		return nil, nil, cli.Exit(err.Error(), exitFailure)
	}

	return fetcher, meta, nil
}

func (r *runner) info(c *cli.Context) error {
	_, meta, err := r.fetch(c)
	if err != nil {
		return err
	}

	if path := c.String("thumbnail"); path != "" {
		if len(meta.Thumbnail) == 0 {
			return cli.Exit("video has no thumbnail", exitFailure)
		}

		if err := os.WriteFile(path, meta.Thumbnail, filePerm); err != nil {
			return cli.Exit(fmt.Sprintf("%v: %v", errs.ErrIO, err), exitFailure)
		}
	}

	return writeInfo(r.opt.Stdout, c.String("output"), meta)
}

func (r *runner) formats(c *cli.Context) error {
	fetcher, meta, err := r.fetch(c)
	if err != nil {
		return err
	}

	return writeFormats(r.opt.Stdout, c.String("output"), fetcher.Formats(meta))
}

func (r *runner) download(c *cli.Context) error {
	u, err := oneURL(c)
	if err != nil {
		return err
	}

	dl, err := r.backend(c)
	if err != nil {
		return err
	}

	req, err := metadata.New(r.log, r.cfg, dl, r.opt.Metrics).Resolve(c.Context, entity.DownloadRequest{
		URL:       u,
		Format:    c.String("format"),
		AudioOnly: c.Bool("audio"),
		Title:     c.String("title"),
	})
	if err != nil {
		return cli.Exit(err.Error(), exitFailure)
	}

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	svc := service.New(r.cfg, r.log, dl, r.opt.Metrics)
	svc.Start(ctx)

	job, err := svc.StartDownload(ctx, req)
	if err != nil {
		return cli.Exit(err.Error(), exitFailure)
	}

	title := req.Title
	if title == "" {
		title = u
	}

	terminal := track(r.opt.Stderr, title, job.Events())

	cancel()
	<-svc.Done()

	if terminal.Kind != entity.EventSucceeded {
		color.New(color.FgRed).Fprintf(r.opt.Stderr, "Download failed: %s\n", orNA(terminal.Message))

		return cli.Exit("", exitFailure)
	}

	color.New(color.FgGreen).Fprintf(r.opt.Stdout, "Saved to %s\n", terminal.Filename)

	return nil
}

func (r *runner) serve(c *cli.Context) error {
	dl, err := r.backend(c)
	if err != nil {
		return err
	}

	cfg := *r.cfg
	cfg.HTTP.Port = c.String("addr")

	if err := r.opt.Serve(c.Context, &cfg, r.log, dl, r.opt.Metrics); err != nil {
		return cli.Exit(err.Error(), exitFailure)
	}

	return nil
}
