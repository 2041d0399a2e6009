// Package downloader wraps the external extraction capability: metadata
// extraction and downloading with post-processing.
package downloader

import (
	"context"
	"fmt"
	"strings"

	"vidgrab/internal/entity"
	"vidgrab/internal/errs"
)

// ProgressHook receives every raw progress report of a download. It may be
// called from several goroutines and must not block for long.
type ProgressHook func(entity.ProgressReport)

// Downloader is the extraction capability.
type Downloader interface {
	// Extract resolves a single video URL to its metadata and raw format listing.
	Extract(ctx context.Context, url string) (*entity.VideoMetadata, error)
	// Download fetches and post-processes one video and returns the final file path.
	Download(ctx context.Context, opts entity.DownloadOptions, hook ProgressHook) (string, error)
}

var transcodeMarkers = []string{"postprocessing", "ffmpeg", "ffprobe", "conversion failed"}

// classifyFailure wraps err with the sentinel matching the extractor's stderr.
func classifyFailure(ctx context.Context, err error, stderr string) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %w", errs.ErrExtraction, ctxErr)
	}

	msg := lastErrorLine(stderr)
	if msg == "" {
		msg = err.Error()
	}

	lower := strings.ToLower(msg)
	for _, marker := range transcodeMarkers {
		if strings.Contains(lower, marker) {
			return fmt.Errorf("%w: %s", errs.ErrTranscode, msg)
		}
	}

	return fmt.Errorf("%w: %s", errs.ErrExtraction, msg)
}

// lastErrorLine returns the last "ERROR:" line of yt-dlp output without its prefix.
func lastErrorLine(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")

	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if msg, ok := strings.CutPrefix(line, "ERROR:"); ok {
			return strings.TrimSpace(msg)
		}
	}

	return ""
}
