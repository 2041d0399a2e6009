//go:build integration

package integration_test

import (
	_ "embed"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"vidgrab/internal/config"
	"vidgrab/internal/depmanager"
	"vidgrab/internal/downloader"
)

//go:embed testdata/fake-ytdlp.sh
var fakeYTdlpScript []byte

// fakeBins resolves yt-dlp to the fake script and everything else to PATH.
type fakeBins struct {
	ytdlp string
}

func (b fakeBins) Path(name depmanager.BinaryName) string {
	if name == depmanager.BinaryYTdlp {
		return b.ytdlp
	}

	return string(name)
}

func (b fakeBins) Resolved(name depmanager.BinaryName) bool {
	return name == depmanager.BinaryYTdlp
}

type fixture struct {
	cfg *config.Config
	log *slog.Logger
	dl  *downloader.YTdlp
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("fake yt-dlp is a shell script")
	}

	baseDir := t.TempDir()

	script := filepath.Join(baseDir, "yt-dlp")
	if err := os.WriteFile(script, fakeYTdlpScript, 0o755); err != nil {
		t.Fatalf("write fake yt-dlp: %v", err)
	}

	cfg := &config.Config{
		HTTP: config.HTTP{HandlerTimeout: 5 * time.Second, ShutdownTimeout: time.Second},
		Job: config.Job{
			Workers:          2,
			QueueSize:        8,
			EventBuffer:      64,
			ProgressInterval: time.Millisecond,
			Timeout:          10 * time.Second,
		},
		Dir: config.Dir{
			Downloads:         filepath.Join(baseDir, "downloads"),
			SanitizeFilenames: true,
		},
		Media:     config.Media{Container: "mp4", AudioCodec: "mp3", AudioQuality: "192"},
		Thumbnail: config.Thumbnail{Timeout: time.Second, MaxBytes: 1 << 20},
		Storage:   config.Storage{TTL: time.Hour, CleanupInterval: time.Hour},
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &fixture{
		cfg: cfg,
		log: log,
		dl:  downloader.NewYTdlp(log, cfg, fakeBins{ytdlp: script}, nil),
	}
}
