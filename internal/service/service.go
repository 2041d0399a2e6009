// Package service runs download jobs on a worker pool and reports their
// progress as events.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"vidgrab/internal/config"
	"vidgrab/internal/consts"
	"vidgrab/internal/downloader"
	"vidgrab/internal/entity"
	"vidgrab/internal/errs"
	"vidgrab/internal/observability"
	"vidgrab/internal/progress"
	"vidgrab/pkg/gen"
	"vidgrab/pkg/urls"

	"github.com/gosimple/slug"
)

const (
	// minEventBuffer leaves room for the terminal events of a job nobody reads.
	minEventBuffer = 2
	dirPerm        = 0o755
	titleTemplate  = "%(title)s"
	extTemplate    = ".%(ext)s"
)

// Job is the handle of one download. Its events end with exactly one
// EventFinished, after which the channel is closed.
type Job struct {
	ID        string
	Request   entity.DownloadRequest
	CreatedAt time.Time

	events chan entity.Event
}

// Events returns the job's event stream.
func (j *Job) Events() <-chan entity.Event {
	return j.events
}

// LogValue implements the slog.LogValuer interface for structured logging.
func (j *Job) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("id", j.ID),
		slog.Any("request", j.Request),
	)
}

// Service is the download orchestrator.
type Service struct {
	log     *slog.Logger
	cfg     *config.Config
	dl      downloader.Downloader
	metrics *observability.Metrics

	queue chan *Job

	mu     sync.Mutex
	closed bool

	wg        sync.WaitGroup
	startOnce sync.Once
	done      chan struct{}
}

// New creates a Service. Workers are started by Start. metrics may be nil.
func New(cfg *config.Config, log *slog.Logger, dl downloader.Downloader, metrics *observability.Metrics) *Service {
	return &Service{
		log:     log.With(slog.String("package", "service")),
		cfg:     cfg,
		dl:      dl,
		metrics: metrics,
		queue:   make(chan *Job, max(cfg.Job.QueueSize, 1)),
		done:    make(chan struct{}),
	}
}

// Start launches the workers. When ctx ends, new downloads are refused and
// jobs still queued fail with ErrServiceClosed.
func (s *Service) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		for i := range max(s.cfg.Job.Workers, 1) {
			s.wg.Go(func() { s.worker(ctx, i) })
		}

		go func() {
			<-ctx.Done()

			s.mu.Lock()
			s.closed = true
			s.mu.Unlock()

			s.wg.Wait()
			s.drain(ctx)
			close(s.done)
		}()
	})
}

// Done is closed once the service has stopped and every job has finished.
func (s *Service) Done() <-chan struct{} {
	return s.done
}

// StartDownload validates req and queues it. The returned job delivers its events
// through Events.
func (s *Service) StartDownload(ctx context.Context, req entity.DownloadRequest) (*Job, error) {
	normalized, ok := urls.Normalize(req.URL)
	if !ok {
		return nil, fmt.Errorf("%w: %q", errs.ErrInvalidURL, req.URL)
	}

	req.URL = normalized

	if req.Format == "" && !req.AudioOnly {
		return nil, fmt.Errorf("%w: format is empty and audio only is not set", errs.ErrInvalidFormat)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("start download: %w", err)
	}

	job := &Job{
		ID:        gen.ID(),
		Request:   req,
		CreatedAt: time.Now(),
		events:    make(chan entity.Event, max(s.cfg.Job.EventBuffer, minEventBuffer)),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, errs.ErrServiceClosed
	}

	select {
	case s.queue <- job:
	default:
		return nil, fmt.Errorf("%w: %d/%d", errs.ErrJobQueueFull, len(s.queue), cap(s.queue))
	}

	s.metrics.RecordJobCreated()
	s.log.InfoContext(ctx, "job queued", slog.Any("job", job))

	return job, nil
}

func (s *Service) worker(ctx context.Context, workerID int) {
	log := s.log.With(slog.Int("worker_id", workerID))

	for {
		select {
		case job := <-s.queue:
			s.processJob(ctx, job)
		case <-ctx.Done():
			log.InfoContext(ctx, "got ctx done signal", slog.Any("error", ctx.Err()))

			return
		}
	}
}

// drain fails every job that never reached a worker.
func (s *Service) drain(ctx context.Context) {
	for {
		select {
		case job := <-s.queue:
			s.log.WarnContext(ctx, "dropping queued job", slog.Any("job", job))
			s.fail(ctx, job, errs.ErrServiceClosed)
			s.finish(ctx, job)
		default:
			return
		}
	}
}

func (s *Service) processJob(ctx context.Context, job *Job) {
	log := s.log.With(slog.String("func", "processJob"), slog.String("job_id", job.ID))

	defer s.metrics.JobTimer()()
	defer s.finish(ctx, job)

	s.metrics.RecordJobStarted()
	s.send(ctx, job, entity.Event{Kind: entity.EventProgress, Message: string(entity.JobStateRunning)})

	jobCtx := ctx

	if s.cfg.Job.Timeout > 0 {
		var cancel context.CancelFunc

		jobCtx, cancel = context.WithTimeout(ctx, s.cfg.Job.Timeout)
		defer cancel()
	}

	filename, err := s.run(ctx, jobCtx, job)
	if err != nil {
		log.ErrorContext(ctx, "download failed", slog.Any("error", err))
		s.metrics.RecordJobFailed()
		s.metrics.RecordDownloaderError("download", errs.Classify(err))
		s.fail(ctx, job, err)

		return
	}

	s.metrics.RecordJobCompleted()
	s.metrics.RecordDownloaderRequest("download", "ok")
	log.InfoContext(ctx, "download succeeded", slog.String("filename", filename))
	s.send(ctx, job, entity.Event{Kind: entity.EventSucceeded, Filename: filename})
}

// run downloads one job. Events are sent with ctx, the extractor runs with jobCtx.
func (s *Service) run(ctx, jobCtx context.Context, job *Job) (filename string, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.ErrorContext(ctx, "downloader panicked", slog.Any("panic", r), slog.String("job_id", job.ID))
			err = fmt.Errorf("%w: panic: %v", errs.ErrExtraction, r)
		}
	}()

	dir := s.cfg.Dir.Downloads
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return "", fmt.Errorf("%w: create %s: %w", errs.ErrIO, dir, err)
	}

	interval := s.cfg.Job.ProgressInterval
	if interval <= 0 {
		interval = consts.DefaultProgressInterval
	}

	tracker := progress.NewTracker(interval)

	// the extractor reports from several goroutines; emit in observation order
	var hookMu sync.Mutex

	emit := func(p float64) {
		s.send(ctx, job, entity.Event{Kind: entity.EventProgress, Percent: p})
	}

	hook := func(r entity.ProgressReport) {
		hookMu.Lock()
		defer hookMu.Unlock()

		if p, ok := tracker.Observe(r); ok {
			emit(p)
		}
	}

	filename, err = s.dl.Download(jobCtx, s.options(job.Request), hook)
	if err != nil {
		return "", err
	}

	hookMu.Lock()
	defer hookMu.Unlock()

	if p, ok := tracker.Finish(); ok {
		emit(p)
	}

	return filename, nil
}

// options maps a request onto extractor options.
func (s *Service) options(req entity.DownloadRequest) entity.DownloadOptions {
	name, restrict := titleTemplate, false

	if s.cfg.Dir.SanitizeFilenames {
		if slugged := slug.Make(req.Title); slugged != "" {
			name = slugged
		} else {
			restrict = true
		}
	}

	opts := entity.DownloadOptions{
		URL:               req.URL,
		Format:            req.Format,
		OutputTemplate:    filepath.Join(s.cfg.Dir.Downloads, name+extTemplate),
		RestrictFilenames: restrict,
	}

	if req.AudioOnly || req.Format == consts.AudioOnlyToken {
		if opts.Format == "" {
			opts.Format = consts.AudioOnlyToken
		}

		opts.PostProcess = entity.PostProcess{
			ExtractAudio: true,
			AudioCodec:   orDefault(s.cfg.Media.AudioCodec, consts.DefaultAudioCodec),
			AudioQuality: orDefault(s.cfg.Media.AudioQuality, consts.DefaultAudioQuality),
		}

		return opts
	}

	opts.PostProcess = entity.PostProcess{
		VideoContainer: orDefault(s.cfg.Media.Container, consts.DefaultContainer),
	}

	return opts
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}

	return v
}

func (s *Service) fail(ctx context.Context, job *Job, err error) {
	s.send(ctx, job, entity.Event{Kind: entity.EventFailed, Message: err.Error()})
}

func (s *Service) finish(ctx context.Context, job *Job) {
	s.send(ctx, job, entity.Event{Kind: entity.EventFinished})
	close(job.events)
}

// send delivers ev. Once ctx is done it only uses free buffer space.
func (s *Service) send(ctx context.Context, job *Job, ev entity.Event) {
	ev.JobID = job.ID
	ev.At = time.Now()

	select {
	case job.events <- ev:
		return
	case <-ctx.Done():
	}

	select {
	case job.events <- ev:
	default:
		s.log.WarnContext(ctx, "event dropped", slog.Any("event", ev))
	}
}
