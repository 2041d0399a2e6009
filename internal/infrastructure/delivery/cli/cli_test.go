package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"vidgrab/internal/config"
	"vidgrab/internal/downloader"
	"vidgrab/internal/entity"
	vcli "vidgrab/internal/infrastructure/delivery/cli"
	"vidgrab/internal/observability"
	"vidgrab/pkg/ptr"

	"github.com/urfave/cli/v2"
)

const testURL = "https://www.youtube.com/watch?v=abc"

type harness struct {
	cfg    *config.Config
	mock   *downloader.Mock
	stdout bytes.Buffer
	stderr bytes.Buffer

	backendErr error
	servedAddr string
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		cfg: &config.Config{
			App:       config.App{LogLevel: "error", LogFormat: "text"},
			HTTP:      config.HTTP{Port: ":8080"},
			Job:       config.Job{Workers: 1, QueueSize: 1, EventBuffer: 64, ProgressInterval: time.Millisecond},
			Dir:       config.Dir{Downloads: filepath.Join(t.TempDir(), "downloads"), SanitizeFilenames: true},
			Media:     config.Media{Container: "mp4", AudioCodec: "mp3", AudioQuality: "192"},
			Thumbnail: config.Thumbnail{Timeout: 5 * time.Second, MaxBytes: 1024},
		},
	}

	h.mock = downloader.NewMock(slog.Default())
	h.mock.Duration = 20 * time.Millisecond
	h.mock.Metadata = &entity.VideoMetadata{
		Title:       "CLI Test Video",
		ChannelName: "Channel",
		ViewCount:   ptr.Of(int64(1234567)),
		Duration:    ptr.Of(212),
		LiveStatus:  entity.LiveStatusNotLive,
		Formats: []entity.RawFormat{
			{FormatID: "22", Ext: "mp4", VCodec: "avc1", ACodec: "mp4a", Height: ptr.Of(720), Filesize: ptr.Of(int64(1 << 20))},
			{FormatID: "137", Ext: "mp4", VCodec: "avc1", ACodec: "none", Height: ptr.Of(1080)},
		},
	}

	return h
}

func (h *harness) run(t *testing.T, args ...string) error {
	t.Helper()

	app := vcli.New(vcli.Options{
		Config: h.cfg,
		Backend: func(context.Context, *config.Config, *slog.Logger) (downloader.Downloader, error) {
			if h.backendErr != nil {
				return nil, h.backendErr
			}

			return h.mock, nil
		},
		Serve: func(_ context.Context, cfg *config.Config, _ *slog.Logger, _ downloader.Downloader, _ *observability.Metrics) error {
			h.servedAddr = cfg.HTTP.Port

			return nil
		},
		Stdout: &h.stdout,
		Stderr: &h.stderr,
	})

	return app.RunContext(t.Context(), append([]string{"vidgrab"}, args...))
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}

	var ec cli.ExitCoder
	if errors.As(err, &ec) {
		return ec.ExitCode()
	}

	return -1
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds *int
		want    string
	}{
		{seconds: nil, want: "N/A"},
		{seconds: ptr.Of(-1), want: "N/A"},
		{seconds: ptr.Of(0), want: "0:00 min"},
		{seconds: ptr.Of(212), want: "3:32 min"},
		{seconds: ptr.Of(3725), want: "62:05 min"},
	}

	for _, tc := range tests {
		if got := vcli.FormatDuration(tc.seconds); got != tc.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tc.seconds, got, tc.want)
		}
	}
}

func TestInfoText(t *testing.T) {
	h := newHarness(t)

	if err := h.run(t, "info", testURL); err != nil {
		t.Fatalf("info error = %v", err)
	}

	out := h.stdout.String()
	for _, want := range []string{"CLI Test Video", "1234567", "3:32 min", "Not Live"} {
		if !strings.Contains(out, want) {
			t.Errorf("output misses %q:\n%s", want, out)
		}
	}

	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "Comments:") && !strings.HasSuffix(line, "N/A") {
			t.Errorf("unknown comment count rendered as %q, want N/A", line)
		}
	}
}

func TestInfoStructured(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		h := newHarness(t)

		if err := h.run(t, "info", "--output", "json", testURL); err != nil {
			t.Fatalf("info error = %v", err)
		}

		var meta entity.VideoMetadata
		if err := json.Unmarshal(h.stdout.Bytes(), &meta); err != nil {
			t.Fatalf("output is not json: %v\n%s", err, h.stdout.String())
		}

		if meta.Title != "CLI Test Video" || meta.URL != testURL {
			t.Errorf("metadata = %+v", meta)
		}
	})

	t.Run("yaml", func(t *testing.T) {
		h := newHarness(t)

		if err := h.run(t, "info", "-o", "yaml", testURL); err != nil {
			t.Fatalf("info error = %v", err)
		}

		if !strings.Contains(h.stdout.String(), "title: CLI Test Video") {
			t.Errorf("yaml output = %s", h.stdout.String())
		}
	})
}

func TestInfoThumbnail(t *testing.T) {
	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xE0}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(jpeg)
	}))
	t.Cleanup(srv.Close)

	h := newHarness(t)
	h.mock.Metadata.ThumbnailURL = srv.URL + "/thumb.jpg"

	path := filepath.Join(t.TempDir(), "thumb.jpg")
	if err := h.run(t, "info", "--thumbnail", path, testURL); err != nil {
		t.Fatalf("info error = %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil || !bytes.Equal(got, jpeg) {
		t.Errorf("thumbnail file = %v (%v), want %v", got, err, jpeg)
	}

	h = newHarness(t)
	if err := h.run(t, "info", "--thumbnail", path, testURL); exitCode(err) != 1 {
		t.Errorf("missing thumbnail exit code = %d (%v), want 1", exitCode(err), err)
	}
}

func TestUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
	}{
		{name: "no url", args: []string{"info"}, want: 2},
		{name: "two urls", args: []string{"formats", testURL, testURL}, want: 2},
		{name: "bad url", args: []string{"download", "not a url"}, want: 2},
		{name: "bad output", args: []string{"info", "--output", "xml", testURL}, want: 2},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)

			if got := exitCode(h.run(t, tc.args...)); got != tc.want {
				t.Errorf("exit code = %d, want %d", got, tc.want)
			}

			if len(h.mock.Extracted()) != 0 {
				t.Error("usage error reached the extractor")
			}
		})
	}
}

func TestBackendFailure(t *testing.T) {
	h := newHarness(t)
	h.backendErr = errors.New("yt-dlp not found")

	err := h.run(t, "info", testURL)
	if exitCode(err) != 1 || !strings.Contains(err.Error(), "yt-dlp not found") {
		t.Errorf("info error = %v, want setup failure with exit code 1", err)
	}
}

func TestFormats(t *testing.T) {
	h := newHarness(t)

	if err := h.run(t, "formats", testURL); err != nil {
		t.Fatalf("formats error = %v", err)
	}

	out := h.stdout.String()
	for _, want := range []string{"1080p - ?? MB - mp4", "137+bestaudio/137", "720p - 1.0 MB - mp4", "MP3 (Audio Only)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output misses %q:\n%s", want, out)
		}
	}

	h = newHarness(t)
	if err := h.run(t, "formats", "-o", "json", testURL); err != nil {
		t.Fatalf("formats error = %v", err)
	}

	var descs []entity.FormatDescriptor
	if err := json.Unmarshal(h.stdout.Bytes(), &descs); err != nil || len(descs) != 3 {
		t.Errorf("json formats = %+v (%v)", descs, err)
	}
}

func TestDownload(t *testing.T) {
	tests := []struct {
		name         string
		args         []string
		wantSelector string
		wantFile     string
	}{
		{name: "tier", args: []string{"--format", "720p"}, wantSelector: "22", wantFile: "cli-test-video.mp4"},
		{name: "default best", args: nil, wantSelector: "best", wantFile: "cli-test-video.mp4"},
		{name: "audio", args: []string{"--audio", "--title", "My Song"}, wantSelector: "bestaudio", wantFile: "my-song.mp3"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)

			args := append(append([]string{"download"}, tc.args...), testURL)
			if err := h.run(t, args...); err != nil {
				t.Fatalf("download error = %v\nstderr: %s", err, h.stderr.String())
			}

			want := "Saved to " + filepath.Join(h.cfg.Dir.Downloads, tc.wantFile)
			if !strings.Contains(h.stdout.String(), want) {
				t.Errorf("stdout = %q, want %q", h.stdout.String(), want)
			}

			downloads := h.mock.Downloads()
			if len(downloads) != 1 || downloads[0].Format != tc.wantSelector {
				t.Errorf("downloads = %+v, want selector %q", downloads, tc.wantSelector)
			}
		})
	}
}

func TestDownloadFailure(t *testing.T) {
	h := newHarness(t)
	h.mock.DownloadErr = errors.New("transcode failed: ffmpeg exited with 1")
	h.mock.FailAt = 2

	err := h.run(t, "download", testURL)
	if exitCode(err) != 1 {
		t.Fatalf("exit code = %d (%v), want 1", exitCode(err), err)
	}

	if !strings.Contains(h.stderr.String(), "Download failed: transcode failed: ffmpeg exited with 1") {
		t.Errorf("stderr = %q", h.stderr.String())
	}

	if strings.Contains(h.stdout.String(), "Saved to") {
		t.Errorf("failed download reported success: %q", h.stdout.String())
	}
}

func TestServe(t *testing.T) {
	h := newHarness(t)

	if err := h.run(t, "serve"); err != nil {
		t.Fatalf("serve error = %v", err)
	}

	if h.servedAddr != ":8080" {
		t.Errorf("served on %q, want the configured port", h.servedAddr)
	}

	h = newHarness(t)
	if err := h.run(t, "serve", "--addr", "127.0.0.1:9999"); err != nil {
		t.Fatalf("serve error = %v", err)
	}

	if h.servedAddr != "127.0.0.1:9999" {
		t.Errorf("served on %q, want the --addr value", h.servedAddr)
	}
}
