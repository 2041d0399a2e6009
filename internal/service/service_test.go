package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/synctest"
	"time"

	"vidgrab/internal/config"
	"vidgrab/internal/downloader"
	"vidgrab/internal/entity"
	"vidgrab/internal/errs"
)

const testURL = "https://www.youtube.com/watch?v=abc"

func newTestCfg(t *testing.T) *config.Config {
	t.Helper()

	return &config.Config{
		Job: config.Job{
			Workers:          1,
			QueueSize:        4,
			EventBuffer:      64,
			ProgressInterval: 200 * time.Millisecond,
		},
		Dir:   config.Dir{Downloads: filepath.Join(t.TempDir(), "downloads"), SanitizeFilenames: true},
		Media: config.Media{Container: "mp4", AudioCodec: "mp3", AudioQuality: "192"},
	}
}

func newTestService(cfg *config.Config) (*Service, *downloader.Mock) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	mock := downloader.NewMock(log)

	return New(cfg, log, mock, nil), mock
}

func collect(job *Job) []entity.Event {
	var events []entity.Event
	for ev := range job.Events() {
		events = append(events, ev)
	}

	return events
}

// checkStream asserts the event invariants shared by every job and returns
// the terminal event before finished.
func checkStream(t *testing.T, job *Job, events []entity.Event) entity.Event {
	t.Helper()

	if len(events) < 2 {
		t.Fatalf("got %d events, want at least a terminal and finished event: %+v", len(events), events)
	}

	last := events[len(events)-1]
	if last.Kind != entity.EventFinished {
		t.Errorf("last event = %q, want finished", last.Kind)
	}

	terminal := events[len(events)-2]
	if terminal.Kind != entity.EventSucceeded && terminal.Kind != entity.EventFailed {
		t.Errorf("event before finished = %q, want succeeded or failed", terminal.Kind)
	}

	prev := -1.0

	for i, ev := range events {
		if ev.JobID != job.ID {
			t.Errorf("events[%d].JobID = %q, want %q", i, ev.JobID, job.ID)
		}

		if i < len(events)-2 && ev.Kind != entity.EventProgress {
			t.Errorf("events[%d] = %q, only progress may precede the terminal events", i, ev.Kind)
		}

		if ev.Kind != entity.EventProgress {
			continue
		}

		if ev.Percent < prev || ev.Percent < 0 || ev.Percent > 100 {
			t.Errorf("events[%d].Percent = %v after %v", i, ev.Percent, prev)
		}

		prev = ev.Percent
	}

	return terminal
}

func TestDownloadSucceeds(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		cfg := newTestCfg(t)
		svc, _ := newTestService(cfg)

		ctx, cancel := context.WithCancel(t.Context())
		defer cancel()

		svc.Start(ctx)

		job, err := svc.StartDownload(ctx, entity.DownloadRequest{URL: testURL, Format: "137+bestaudio/137", Title: "Never Gonna Give You Up"})
		if err != nil {
			t.Fatalf("StartDownload() error = %v", err)
		}

		events := collect(job)
		terminal := checkStream(t, job, events)

		if terminal.Kind != entity.EventSucceeded {
			t.Fatalf("terminal event = %+v, want succeeded", terminal)
		}

		want := filepath.Join(cfg.Dir.Downloads, "never-gonna-give-you-up.mp4")
		if terminal.Filename != want {
			t.Errorf("Filename = %q, want %q", terminal.Filename, want)
		}

		progress := events[len(events)-3]
		if progress.Kind != entity.EventProgress || progress.Percent != 100 {
			t.Errorf("last progress = %+v, want 100", progress)
		}

		// ten reports over one second, at most one per 200ms plus the forced 100
		if n := len(events) - 2; n > 8 {
			t.Errorf("got %d progress events, rate limit not applied", n)
		}

		if _, err := os.Stat(cfg.Dir.Downloads); err != nil {
			t.Errorf("downloads dir not created: %v", err)
		}
	})
}

func TestDownloadFails(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(cfg *config.Config, mock *downloader.Mock)
		wantMsg string
	}{
		{
			name: "extractor error",
			setup: func(_ *config.Config, mock *downloader.Mock) {
				mock.DownloadErr = fmt.Errorf("%w: Video unavailable", errs.ErrExtraction)
				mock.FailAt = 3
			},
			wantMsg: "Video unavailable",
		},
		{
			name: "transcode error",
			setup: func(_ *config.Config, mock *downloader.Mock) {
				mock.DownloadErr = fmt.Errorf("%w: Conversion failed!", errs.ErrTranscode)
				mock.FailAt = 10
			},
			wantMsg: errs.ErrTranscode.Error(),
		},
		{
			name: "panic",
			setup: func(_ *config.Config, mock *downloader.Mock) {
				mock.Panic = "kaboom"
			},
			wantMsg: "kaboom",
		},
		{
			name: "timeout",
			setup: func(cfg *config.Config, _ *downloader.Mock) {
				cfg.Job.Timeout = 350 * time.Millisecond
			},
			wantMsg: context.DeadlineExceeded.Error(),
		},
		{
			name: "downloads dir not creatable",
			setup: func(cfg *config.Config, _ *downloader.Mock) {
				file := filepath.Join(filepath.Dir(cfg.Dir.Downloads), "file")
				_ = os.WriteFile(file, nil, 0o600)
				cfg.Dir.Downloads = filepath.Join(file, "sub")
			},
			wantMsg: errs.ErrIO.Error(),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			synctest.Test(t, func(t *testing.T) {
				cfg := newTestCfg(t)
				svc, mock := newTestService(cfg)
				tc.setup(cfg, mock)

				ctx, cancel := context.WithCancel(t.Context())
				defer cancel()

				svc.Start(ctx)

				job, err := svc.StartDownload(ctx, entity.DownloadRequest{URL: testURL, Format: "best"})
				if err != nil {
					t.Fatalf("StartDownload() error = %v", err)
				}

				terminal := checkStream(t, job, collect(job))
				if terminal.Kind != entity.EventFailed {
					t.Fatalf("terminal event = %+v, want failed", terminal)
				}

				if !strings.Contains(terminal.Message, tc.wantMsg) {
					t.Errorf("Message = %q, want it to contain %q", terminal.Message, tc.wantMsg)
				}
			})
		})
	}
}

func TestNewJobAfterFailure(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		cfg := newTestCfg(t)
		svc, mock := newTestService(cfg)
		mock.DownloadErr = errs.ErrExtraction

		ctx, cancel := context.WithCancel(t.Context())
		defer cancel()

		svc.Start(ctx)

		first, err := svc.StartDownload(ctx, entity.DownloadRequest{URL: testURL, Format: "best"})
		if err != nil {
			t.Fatalf("StartDownload() error = %v", err)
		}

		if ev := checkStream(t, first, collect(first)); ev.Kind != entity.EventFailed {
			t.Fatalf("first job = %+v, want failed", ev)
		}

		mock.DownloadErr = nil

		second, err := svc.StartDownload(ctx, entity.DownloadRequest{URL: testURL, Format: "best"})
		if err != nil {
			t.Fatalf("StartDownload() after failure error = %v", err)
		}

		if ev := checkStream(t, second, collect(second)); ev.Kind != entity.EventSucceeded {
			t.Errorf("second job = %+v, want succeeded", ev)
		}

		if first.ID == second.ID {
			t.Error("jobs share an id")
		}
	})
}

func TestStartDownloadValidation(t *testing.T) {
	svc, _ := newTestService(newTestCfg(t))

	tests := []struct {
		name    string
		req     entity.DownloadRequest
		wantErr error
	}{
		{name: "empty url", req: entity.DownloadRequest{Format: "best"}, wantErr: errs.ErrInvalidURL},
		{name: "bad url", req: entity.DownloadRequest{URL: "not a url", Format: "best"}, wantErr: errs.ErrInvalidURL},
		{name: "no format", req: entity.DownloadRequest{URL: testURL}, wantErr: errs.ErrInvalidFormat},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			job, err := svc.StartDownload(t.Context(), tc.req)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("StartDownload() error = %v, want %v", err, tc.wantErr)
			}

			if job != nil {
				t.Errorf("StartDownload() job = %v, want nil", job)
			}
		})
	}
}

func TestStartDownloadQueueFull(t *testing.T) {
	cfg := newTestCfg(t)
	cfg.Job.QueueSize = 1
	svc, _ := newTestService(cfg)

	req := entity.DownloadRequest{URL: testURL, AudioOnly: true}

	if _, err := svc.StartDownload(t.Context(), req); err != nil {
		t.Fatalf("first StartDownload() error = %v", err)
	}

	if _, err := svc.StartDownload(t.Context(), req); !errors.Is(err, errs.ErrJobQueueFull) {
		t.Errorf("second StartDownload() error = %v, want ErrJobQueueFull", err)
	}
}

func TestShutdown(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		cfg := newTestCfg(t)
		svc, mock := newTestService(cfg)
		mock.Duration = 10 * time.Second

		ctx, cancel := context.WithCancel(t.Context())
		defer cancel()

		svc.Start(ctx)

		running, err := svc.StartDownload(ctx, entity.DownloadRequest{URL: testURL, Format: "best"})
		if err != nil {
			t.Fatalf("StartDownload() error = %v", err)
		}

		synctest.Wait()

		queued, err := svc.StartDownload(ctx, entity.DownloadRequest{URL: testURL, Format: "best"})
		if err != nil {
			t.Fatalf("StartDownload() error = %v", err)
		}

		time.Sleep(time.Second)
		cancel()
		<-svc.Done()

		for name, job := range map[string]*Job{"running": running, "queued": queued} {
			if ev := checkStream(t, job, collect(job)); ev.Kind != entity.EventFailed {
				t.Errorf("%s job terminal event = %+v, want failed", name, ev)
			}
		}

		if _, err := svc.StartDownload(t.Context(), entity.DownloadRequest{URL: testURL, Format: "best"}); !errors.Is(err, errs.ErrServiceClosed) {
			t.Errorf("StartDownload() after shutdown error = %v, want ErrServiceClosed", err)
		}
	})
}

func TestOptions(t *testing.T) {
	cfg := newTestCfg(t)
	svc, _ := newTestService(cfg)
	dir := cfg.Dir.Downloads

	tests := []struct {
		name         string
		sanitize     bool
		req          entity.DownloadRequest
		wantTemplate string
		wantRestrict bool
		wantFormat   string
		wantPP       entity.PostProcess
	}{
		{
			name:         "sanitized title",
			sanitize:     true,
			req:          entity.DownloadRequest{URL: testURL, Format: "22", Title: "Héllo / Wörld: 100!"},
			wantTemplate: filepath.Join(dir, "hello-world-100.%(ext)s"),
			wantFormat:   "22",
			wantPP:       entity.PostProcess{VideoContainer: "mp4"},
		},
		{
			name:         "sanitized without title",
			sanitize:     true,
			req:          entity.DownloadRequest{URL: testURL, Format: "22"},
			wantTemplate: filepath.Join(dir, "%(title)s.%(ext)s"),
			wantRestrict: true,
			wantFormat:   "22",
			wantPP:       entity.PostProcess{VideoContainer: "mp4"},
		},
		{
			name:         "raw title",
			req:          entity.DownloadRequest{URL: testURL, Format: "22", Title: "Héllo"},
			wantTemplate: filepath.Join(dir, "%(title)s.%(ext)s"),
			wantFormat:   "22",
			wantPP:       entity.PostProcess{VideoContainer: "mp4"},
		},
		{
			name:         "audio only",
			req:          entity.DownloadRequest{URL: testURL, AudioOnly: true},
			wantTemplate: filepath.Join(dir, "%(title)s.%(ext)s"),
			wantFormat:   "bestaudio",
			wantPP:       entity.PostProcess{ExtractAudio: true, AudioCodec: "mp3", AudioQuality: "192"},
		},
		{
			name:         "audio token",
			req:          entity.DownloadRequest{URL: testURL, Format: "bestaudio"},
			wantTemplate: filepath.Join(dir, "%(title)s.%(ext)s"),
			wantFormat:   "bestaudio",
			wantPP:       entity.PostProcess{ExtractAudio: true, AudioCodec: "mp3", AudioQuality: "192"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg.Dir.SanitizeFilenames = tc.sanitize

			got := svc.options(tc.req)

			if got.OutputTemplate != tc.wantTemplate {
				t.Errorf("OutputTemplate = %q, want %q", got.OutputTemplate, tc.wantTemplate)
			}

			if got.RestrictFilenames != tc.wantRestrict {
				t.Errorf("RestrictFilenames = %v, want %v", got.RestrictFilenames, tc.wantRestrict)
			}

			if got.Format != tc.wantFormat {
				t.Errorf("Format = %q, want %q", got.Format, tc.wantFormat)
			}

			if got.PostProcess != tc.wantPP {
				t.Errorf("PostProcess = %+v, want %+v", got.PostProcess, tc.wantPP)
			}

			if got.URL != testURL {
				t.Errorf("URL = %q", got.URL)
			}
		})
	}
}
