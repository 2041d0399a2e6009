package downloader

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"vidgrab/internal/config"
	"vidgrab/internal/consts"
	"vidgrab/internal/depmanager"
	"vidgrab/internal/entity"
	"vidgrab/internal/errs"
	"vidgrab/internal/proxy"
	"vidgrab/pkg/shellquote"

	"github.com/lrstanley/go-ytdlp"
)

const (
	// progressPrefix marks the lines printed by our progress template.
	progressPrefix   = "[vidgrab] "
	progressTemplate = "download:" + progressPrefix + "%(progress)j"
	// printFilepath makes yt-dlp print the final path after post-processing.
	printFilepath = "after_move:filepath"

	maxLineSize = 10 * 1024 * 1024 // 10 MiB scanner buffer
	bufSize     = 4096
)

// Binaries resolves executable paths.
type Binaries interface {
	Path(name depmanager.BinaryName) string
	Resolved(name depmanager.BinaryName) bool
}

// ProxyPicker hands out a proxy URL per call; "" means direct.
type ProxyPicker interface {
	Get(ctx context.Context) (string, error)
}

// YTdlp represents a yt-dlp downloader.
type YTdlp struct {
	log     *slog.Logger
	cfg     *config.Config
	bins    Binaries
	proxies ProxyPicker
}

var _ Downloader = (*YTdlp)(nil)

// NewYTdlp creates a new YTdlp downloader instance. proxies may be nil.
func NewYTdlp(log *slog.Logger, cfg *config.Config, bins Binaries, proxies ProxyPicker) *YTdlp {
	return &YTdlp{
		log:     log.With(slog.String("package", "downloader"), slog.String("downloader", consts.DownloaderYTdlp)),
		cfg:     cfg,
		bins:    bins,
		proxies: proxies,
	}
}

// pickProxy returns a proxy or "" when none is configured or healthy.
func (d *YTdlp) pickProxy(ctx context.Context) string {
	if d.proxies == nil {
		return ""
	}

	p, err := d.proxies.Get(ctx)
	if err != nil {
		d.log.WarnContext(ctx, "failed to get healthy proxy, going direct", slog.Any("error", err))

		return ""
	}

	if p != "" {
		d.log.DebugContext(ctx, "using proxy", slog.String("proxy", proxy.Redact(p)))
	}

	return p
}

// Extract runs yt-dlp once without downloading and parses its info JSON.
func (d *YTdlp) Extract(ctx context.Context, url string) (*entity.VideoMetadata, error) {
	log := d.log.With(slog.String("func", "Extract"), slog.String("url", url))

	command := ytdlp.New().
		SetExecutable(d.bins.Path(depmanager.BinaryYTdlp)).
		SkipDownload().
		DumpSingleJSON().
		NoPlaylist()

	if d.cfg.Dir.Cache != "" {
		command = command.CacheDir(d.cfg.Dir.Cache)
	}

	if d.cfg.Dir.CookieFile != "" {
		command = command.Cookies(d.cfg.Dir.CookieFile)
	}

	if p := d.pickProxy(ctx); p != "" {
		command = command.Proxy(p)
	}

	res, err := command.Run(ctx, url)
	if err != nil {
		log.ErrorContext(ctx, "ytdlp run", slog.Any("error", err), slog.Any("result", Result{res}))

		stderr := ""
		if res != nil {
			stderr = res.Stderr
		}

		return nil, classifyFailure(ctx, err, stderr)
	}

	meta, err := ParseInfo([]byte(res.Stdout), url)
	if err != nil {
		return nil, err
	}

	log.DebugContext(ctx, "extracted", slog.Any("metadata", meta))

	return meta, nil
}

// ParseInfo decodes yt-dlp's single JSON output into metadata.
func ParseInfo(data []byte, url string) (*entity.VideoMetadata, error) {
	var info infoJSON
	if err := json.Unmarshal(bytes.TrimSpace(data), &info); err != nil {
		return nil, fmt.Errorf("%w: decode info json: %w", errs.ErrExtraction, err)
	}

	if info.Type == "playlist" {
		return nil, fmt.Errorf("%w: url points to a playlist, not a single video", errs.ErrExtraction)
	}

	return info.toMetadata(url), nil
}

// Download runs yt-dlp with a JSON progress template and streams each report to hook.
func (d *YTdlp) Download(ctx context.Context, opts entity.DownloadOptions, hook ProgressHook) (string, error) {
	log := d.log.With(slog.String("func", "Download"), slog.Any("options", opts))

	bin := d.bins.Path(depmanager.BinaryYTdlp)
	args := d.buildArgs(opts, d.pickProxy(ctx))

	log.DebugContext(ctx, "executing yt-dlp",
		slog.String("command", shellquote.Join(bin, shellquote.Redact(args, "--proxy", "--cookies"))))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Env = d.env()

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("stdout pipe: %w", err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return "", fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("%w: start yt-dlp: %w", errs.ErrExtraction, err)
	}

	var (
		filename  string
		stderrBuf strings.Builder
		wg        sync.WaitGroup
		hookOnce  sync.Once
		hookErr   error
		hookDead  atomic.Bool
	)

	// hook runs on the scanner goroutines; a panic stops yt-dlp and fails the download
	report := func(r entity.ProgressReport) {
		if hookDead.Load() {
			return
		}

		defer func() {
			if v := recover(); v != nil {
				hookOnce.Do(func() {
					hookDead.Store(true)
					hookErr = fmt.Errorf("%w: progress hook panicked: %v", errs.ErrExtraction, v)
					cancel()
				})
			}
		}()

		hook(r)
	}

	wg.Go(func() {
		scanLines(stdout, func(line string) {
			if pr, ok := ParseProgressLine(line); ok {
				report(pr)

				return
			}

			if filepath.IsAbs(line) {
				filename = line

				return
			}

			log.DebugContext(ctx, "yt-dlp", slog.String("stdout", line))
		})
	})

	wg.Go(func() {
		scanLines(stderr, func(line string) {
			if pr, ok := ParseProgressLine(line); ok {
				report(pr)

				return
			}

			stderrBuf.WriteString(line)
			stderrBuf.WriteByte('\n')
		})
	})

	wg.Wait()

	waitErr := cmd.Wait()
	if hookErr != nil {
		log.ErrorContext(ctx, "progress hook panicked", slog.Any("error", hookErr))

		return "", hookErr
	}

	if err := waitErr; err != nil {
		log.ErrorContext(ctx, "yt-dlp command failed", slog.Any("error", err), slog.String("stderr", stderrBuf.String()))

		return "", classifyFailure(ctx, err, stderrBuf.String())
	}

	log.InfoContext(ctx, "done", slog.String("filename", filename))

	return filename, nil
}

// buildArgs translates download options into yt-dlp flags.
func (d *YTdlp) buildArgs(opts entity.DownloadOptions, proxyURL string) []string {
	args := []string{
		"--newline",
		"--no-colors",
		"--no-playlist",
		"--progress",
		"--no-simulate",
		"--progress-template", progressTemplate,
		"--print", printFilepath,
		"-f", opts.Format,
		"-o", opts.OutputTemplate,
	}

	if opts.RestrictFilenames {
		args = append(args, "--restrict-filenames")
	}

	pp := opts.PostProcess
	if pp.ExtractAudio {
		args = append(args, "-x", "--audio-format", pp.AudioCodec, "--audio-quality", pp.AudioQuality+"K")
	} else if pp.VideoContainer != "" {
		args = append(args, "--merge-output-format", pp.VideoContainer, "--recode-video", pp.VideoContainer)
	}

	if d.bins.Resolved(depmanager.BinaryFFmpeg) {
		args = append(args, "--ffmpeg-location", d.bins.Path(depmanager.BinaryFFmpeg))
	}

	if d.cfg.Dir.Cache != "" {
		args = append(args, "--cache-dir", d.cfg.Dir.Cache)
	}

	if d.cfg.Dir.CookieFile != "" {
		args = append(args, "--cookies", d.cfg.Dir.CookieFile)
	}

	if proxyURL != "" {
		args = append(args, "--proxy", proxyURL)
	}

	return append(args, "--", opts.URL)
}

// env puts the directory of a resolved deno first in PATH so yt-dlp finds its JS runtime.
func (d *YTdlp) env() []string {
	env := os.Environ()

	if !d.bins.Resolved(depmanager.BinaryDeno) {
		return env
	}

	dir := filepath.Dir(d.bins.Path(depmanager.BinaryDeno))

	return append(env, "PATH="+dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

// ParseProgressLine decodes a line printed by the progress template.
func ParseProgressLine(line string) (entity.ProgressReport, bool) {
	raw, ok := strings.CutPrefix(strings.TrimSpace(line), progressPrefix)
	if !ok {
		return entity.ProgressReport{}, false
	}

	var p progressJSON
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return entity.ProgressReport{}, false
	}

	return p.toReport(), true
}

func scanLines(r io.Reader, fn func(line string)) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, bufSize), maxLineSize)
	scanner.Split(splitLinesAny)

	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			fn(line)
		}
	}

	// drain so the process never blocks on a full pipe
	_, _ = io.Copy(io.Discard, r)
}

// splitLinesAny splits on \n, \r and \r\n.
func splitLinesAny(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\n' {
			return i + 1, data[:i], nil
		}

		switch {
		case i+1 < len(data) && data[i+1] == '\n':
			return i + 2, data[:i], nil
		case i+1 < len(data) || atEOF:
			return i + 1, data[:i], nil
		default:
			// a lone \r at the end of the buffer may be the first half of \r\n
			return 0, nil, nil
		}
	}

	if atEOF {
		return len(data), data, nil
	}

	return 0, nil, nil
}
