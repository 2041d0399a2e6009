package downloader

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"vidgrab/internal/consts"
	"vidgrab/internal/entity"
	"vidgrab/internal/errs"
	"vidgrab/pkg/ptr"
)

const defaultMockSteps = 10

// Mock simulates yt-dlp. Extract returns Metadata, Download reports Steps
// progress updates spread over Duration and finishes with a "finished" report.
type Mock struct {
	log *slog.Logger

	Duration time.Duration
	Steps    int
	Metadata *entity.VideoMetadata

	ExtractErr  error
	DownloadErr error
	// FailAt makes Download fail with DownloadErr after this many steps; 0 fails
	// before any, Steps or more fails after the finished report.
	FailAt int
	// Panic makes Download panic with this value.
	Panic any

	mu        sync.Mutex
	extracted []string
	downloads []entity.DownloadOptions
}

var _ Downloader = (*Mock)(nil)

// NewMock creates a mock downloader with the default simulated duration.
func NewMock(log *slog.Logger) *Mock {
	return &Mock{
		log:      log.With(slog.String("package", "downloader"), slog.String("downloader", consts.DownloaderMock)),
		Duration: consts.DefaultSimulateTime,
		Steps:    defaultMockSteps,
	}
}

// Extract returns a copy of m.Metadata with the URL filled in.
func (m *Mock) Extract(ctx context.Context, url string) (*entity.VideoMetadata, error) {
	m.mu.Lock()
	m.extracted = append(m.extracted, url)
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrExtraction, err)
	}

	if m.ExtractErr != nil {
		return nil, m.ExtractErr
	}

	meta := entity.VideoMetadata{Title: "Mock Video", LiveStatus: entity.LiveStatusNotLive}
	if m.Metadata != nil {
		meta = *m.Metadata
	}

	if meta.URL == "" {
		meta.URL = url
	}

	m.log.DebugContext(ctx, "extracted", slog.Any("metadata", meta))

	return &meta, nil
}

// Download simulates a download and returns the output template with the
// title and extension expanded.
func (m *Mock) Download(ctx context.Context, opts entity.DownloadOptions, hook ProgressHook) (string, error) {
	m.mu.Lock()
	m.downloads = append(m.downloads, opts)
	m.mu.Unlock()

	log := m.log.With(slog.String("func", "Download"), slog.Any("options", opts))

	if m.Panic != nil {
		panic(m.Panic)
	}

	steps := max(m.Steps, 1)
	total := float64(steps)

	var tick <-chan time.Time

	if m.Duration > 0 {
		ticker := time.NewTicker(m.Duration / time.Duration(steps))
		defer ticker.Stop()

		tick = ticker.C
	}

	for step := 1; step <= steps; step++ {
		if m.DownloadErr != nil && step > m.FailAt {
			log.ErrorContext(ctx, "simulated failure", slog.Int("step", step))

			return "", m.DownloadErr
		}

		if tick != nil {
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %w", errs.ErrExtraction, ctx.Err())
			case <-tick:
			}
		} else if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("%w: %w", errs.ErrExtraction, err)
		}

		status := entity.ProgressStatusDownloading
		if step == steps {
			status = entity.ProgressStatusFinished
		}

		hook(entity.ProgressReport{
			Status:          status,
			DownloadedBytes: ptr.Of(float64(step)),
			TotalBytes:      ptr.Of(total),
			Filename:        opts.OutputTemplate,
		})
	}

	if m.DownloadErr != nil {
		log.ErrorContext(ctx, "simulated post-processing failure")

		return "", m.DownloadErr
	}

	return m.filename(opts), nil
}

func (m *Mock) filename(opts entity.DownloadOptions) string {
	ext := consts.DefaultContainer
	if opts.PostProcess.ExtractAudio {
		ext = opts.PostProcess.AudioCodec
	} else if opts.PostProcess.VideoContainer != "" {
		ext = opts.PostProcess.VideoContainer
	}

	title := "Mock Video"
	if m.Metadata != nil && m.Metadata.Title != "" {
		title = m.Metadata.Title
	}

	name := strings.NewReplacer("%(title)s", title, "%(ext)s", ext).Replace(opts.OutputTemplate)

	return filepath.Clean(name)
}

// Extracted returns the URLs passed to Extract.
func (m *Mock) Extracted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]string(nil), m.extracted...)
}

// Downloads returns the options passed to Download.
func (m *Mock) Downloads() []entity.DownloadOptions {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]entity.DownloadOptions(nil), m.downloads...)
}
