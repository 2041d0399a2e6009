// Package metadata resolves a video URL to its metadata, thumbnail and
// selectable formats.
package metadata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"vidgrab/internal/config"
	"vidgrab/internal/consts"
	"vidgrab/internal/downloader"
	"vidgrab/internal/entity"
	"vidgrab/internal/errs"
	"vidgrab/internal/formats"
	"vidgrab/internal/observability"
	"vidgrab/pkg/urls"
)

const opExtract = "extract"

// Fetcher fetches video metadata through the extraction capability.
type Fetcher struct {
	log     *slog.Logger
	dl      downloader.Downloader
	client  *http.Client
	limits  config.Thumbnail
	formats formats.Options
	metrics *observability.Metrics
}

// FetchResult is delivered once by FetchAsync: either Metadata with its
// Formats, or Err.
type FetchResult struct {
	Metadata *entity.VideoMetadata
	Formats  []entity.FormatDescriptor
	Err      error
}

// New creates a Fetcher. metrics may be nil.
func New(log *slog.Logger, cfg *config.Config, dl downloader.Downloader, metrics *observability.Metrics) *Fetcher {
	return &Fetcher{
		log:     log.With(slog.String("package", "metadata")),
		dl:      dl,
		client:  &http.Client{Timeout: cfg.Thumbnail.Timeout},
		limits:  cfg.Thumbnail,
		formats: formats.Options{Container: cfg.Media.Container, AudioCodec: cfg.Media.AudioCodec},
		metrics: metrics,
	}
}

// Fetch normalizes url, extracts its metadata and downloads the thumbnail.
// A thumbnail that cannot be retrieved leaves Thumbnail empty.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*entity.VideoMetadata, error) {
	log := f.log.With(slog.String("func", "Fetch"), slog.String("url", url))

	meta, err := f.extract(ctx, log, url)
	if err != nil {
		return nil, err
	}

	if meta.ThumbnailURL != "" {
		thumb, err := f.thumbnail(ctx, meta.ThumbnailURL)
		if err != nil {
			log.WarnContext(ctx, "thumbnail unavailable", slog.Any("error", err))
			f.metrics.RecordThumbnailFailure()
		}

		meta.Thumbnail = thumb
	}

	log.InfoContext(ctx, "metadata fetched", slog.Any("metadata", meta))

	return meta, nil
}

// extract normalizes url and asks the extractor for its metadata, without the thumbnail.
func (f *Fetcher) extract(ctx context.Context, log *slog.Logger, url string) (*entity.VideoMetadata, error) {
	normalized, ok := urls.Normalize(url)
	if !ok {
		f.metrics.RecordFetch("invalid_url")

		return nil, fmt.Errorf("%w: %w: %q", errs.ErrExtraction, errs.ErrInvalidURL, url)
	}

	meta, err := f.dl.Extract(ctx, normalized)
	if err != nil {
		log.ErrorContext(ctx, "extract", slog.Any("error", err))
		f.metrics.RecordFetch(errs.Classify(err))
		f.metrics.RecordDownloaderError(opExtract, errs.Classify(err))

		if !errors.Is(err, errs.ErrExtraction) {
			return nil, fmt.Errorf("%w: %w", errs.ErrExtraction, err)
		}

		return nil, fmt.Errorf("extract: %w", err)
	}

	f.metrics.RecordDownloaderRequest(opExtract, "ok")
	f.metrics.RecordFetch("ok")

	return meta, nil
}

// Formats lists the selectable formats of meta.
func (f *Fetcher) Formats(meta *entity.VideoMetadata) []entity.FormatDescriptor {
	if meta == nil {
		return formats.Select(nil, f.formats)
	}

	return formats.Select(meta.Formats, f.formats)
}

// FetchAsync runs Fetch on its own goroutine. The returned channel receives
// exactly one result and is then closed.
func (f *Fetcher) FetchAsync(ctx context.Context, url string) <-chan FetchResult {
	ch := make(chan FetchResult, 1)

	go func() {
		defer close(ch)

		meta, err := f.Fetch(ctx, url)
		if err != nil {
			ch <- FetchResult{Err: err}

			return
		}

		ch <- FetchResult{Metadata: meta, Formats: f.Formats(meta)}
	}()

	return ch
}

// Resolve turns the format choice of req into an extractor selector. Audio-only
// requests need no listing. A choice that matches no listed format falls back
// to "best", and a missing title is taken from the metadata.
func (f *Fetcher) Resolve(ctx context.Context, req entity.DownloadRequest) (entity.DownloadRequest, error) {
	if req.AudioOnly {
		req.Format = consts.AudioOnlyToken

		return req, nil
	}

	meta, err := f.extract(ctx, f.log.With(slog.String("func", "Resolve"), slog.String("url", req.URL)), req.URL)
	if err != nil {
		return req, err
	}

	desc := formats.Resolve(f.Formats(meta), req.Format)
	if desc.FormatID == consts.FallbackFormat {
		f.log.WarnContext(ctx, "format not listed, using fallback",
			slog.String("format", req.Format), slog.String("fallback", consts.FallbackFormat))
	}

	req.Format = desc.Selector()
	req.AudioOnly = desc.AudioOnly

	if req.Title == "" {
		req.Title = meta.Title
	}

	return req, nil
}
