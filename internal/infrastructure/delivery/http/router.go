// Package httprouter exposes metadata fetching and download jobs over HTTP.
package httprouter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"vidgrab/internal/config"
	"vidgrab/internal/consts"
	"vidgrab/internal/entity"
	"vidgrab/internal/errs"
	"vidgrab/internal/infrastructure/delivery/http/middleware"
	"vidgrab/internal/infrastructure/delivery/http/request"
	"vidgrab/internal/infrastructure/delivery/http/response"
	"vidgrab/internal/observability"
	"vidgrab/internal/service"
	"vidgrab/internal/storage"
)

// Fetcher resolves video metadata, its formats and format choices.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*entity.VideoMetadata, error)
	Formats(meta *entity.VideoMetadata) []entity.FormatDescriptor
	Resolve(ctx context.Context, req entity.DownloadRequest) (entity.DownloadRequest, error)
}

// Orchestrator starts download jobs.
type Orchestrator interface {
	StartDownload(ctx context.Context, req entity.DownloadRequest) (*service.Job, error)
}

// Router is the API's http.Handler.
type Router struct {
	*http.ServeMux
	log         *slog.Logger
	cfg         *config.Config
	globalChain []func(http.Handler) http.Handler
	routeChain  []func(http.Handler) http.Handler
	isSubRouter bool

	fetcher Fetcher
	svc     Orchestrator
	storer  storage.Storer
	metrics *observability.Metrics
}

// New builds the router with all routes and middlewares. metrics may be nil.
func New(log *slog.Logger,
	cfg *config.Config,
	fetcher Fetcher,
	svc Orchestrator,
	storer storage.Storer,
	metrics *observability.Metrics,
) *Router {
	r := &Router{
		ServeMux: http.NewServeMux(),
		log:      log.With(slog.String("package", "httprouter")),
		cfg:      cfg,
		fetcher:  fetcher,
		svc:      svc,
		storer:   storer,
		metrics:  metrics,
	}

	r.SetGlobalMiddlewares()
	r.SetRoutes()

	return r
}

// Use appends middlewares to the global chain, or to the route chain of a group.
func (r *Router) Use(middleware ...func(http.Handler) http.Handler) {
	if r.isSubRouter {
		r.routeChain = append(r.routeChain, middleware...)
	} else {
		r.globalChain = append(r.globalChain, middleware...)
	}
}

// Group registers routes that share the middlewares fn adds.
func (r *Router) Group(fn func(r *Router)) {
	subRouter := &Router{
		isSubRouter: true,
		routeChain:  slices.Clone(r.routeChain),
		ServeMux:    r.ServeMux,
	}

	fn(subRouter)
}

func (r *Router) HandleFunc(pattern string, h http.HandlerFunc) {
	r.Handle(pattern, h)
}

func (r *Router) Handle(pattern string, h http.Handler) {
	for _, middleware := range slices.Backward(r.routeChain) {
		h = middleware(h)
	}

	r.ServeMux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	var h http.Handler = r.ServeMux

	for _, middleware := range slices.Backward(r.globalChain) {
		h = middleware(h)
	}

	h.ServeHTTP(w, req)
}

func (r *Router) SetGlobalMiddlewares() {
	r.Use(
		middleware.Recoverer,
		middleware.RequestID,
		middleware.Logger,
		middleware.Metrics(r.metrics),
	)
}

func (r *Router) SetRoutes() {
	r.SetRoutesHealthcheck()
	r.SetRoutesVideos()
	r.SetRoutesDownloads()

	r.Handle("GET /metrics", observability.Handler())
}

func (r *Router) SetRoutesHealthcheck() {
	healthcheckRouter := &Router{
		ServeMux: http.NewServeMux(),
	}
	healthcheckRouter.HandleFunc("GET /readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Handle("/v1/", http.StripPrefix("/v1", healthcheckRouter))
}

func (r *Router) SetRoutesVideos() {
	r.HandleFunc("POST /v1/videos/info", r.Info)
	r.HandleFunc("POST /v1/videos/formats", r.Formats)
}

func (r *Router) SetRoutesDownloads() {
	r.HandleFunc("POST /v1/downloads", r.Download)
	r.HandleFunc("GET /v1/downloads/{$}", r.GetJobs)
	r.HandleFunc("GET /v1/downloads/{id}", r.GetJob)
}

// fetch decodes a video request and fetches its metadata. It writes the
// error response itself and returns nil then.
func (r *Router) fetch(w http.ResponseWriter, req *http.Request, log *slog.Logger) *entity.VideoMetadata {
	ctx, cancel := context.WithTimeout(req.Context(), r.handlerTimeout())
	defer cancel()

	var in request.Video
	if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
		log.ErrorContext(ctx, consts.RespInvalidRequestBody, slog.Any("error", err))
		response.BadRequest(w, consts.RespInvalidRequestBody, errs.ErrInvalidRequestBody)

		return nil
	}

	if err := in.Validate(); err != nil {
		log.ErrorContext(ctx, consts.RespUnprocessableEntity, slog.Any("error", err))
		response.UnprocessableEntity(w, consts.RespUnprocessableEntity, err)

		return nil
	}

	meta, err := r.fetcher.Fetch(ctx, in.URL)
	if err != nil {
		log.ErrorContext(ctx, consts.RespInfoFail, slog.Any("error", err))
		response.BadGateway(w, consts.RespInfoFail, err)

		return nil
	}

	return meta
}

// Info returns the metadata of a video.
func (r *Router) Info(w http.ResponseWriter, req *http.Request) {
	log := r.log.With(slog.String("handler", "Info"))

	meta := r.fetch(w, req, log)
	if meta == nil {
		return
	}

	response.OK(w, consts.RespInfoRetrieved, meta, nil)
}

// Formats returns the selectable formats of a video.
func (r *Router) Formats(w http.ResponseWriter, req *http.Request) {
	log := r.log.With(slog.String("handler", "Formats"))

	meta := r.fetch(w, req, log)
	if meta == nil {
		return
	}

	response.OK(w, consts.RespFormatsRetrieved, r.fetcher.Formats(meta), nil)
}

// Download queues a download job and answers with its id.
func (r *Router) Download(w http.ResponseWriter, req *http.Request) {
	log := r.log.With(slog.String("handler", "Download"))
	ctx := req.Context()

	var in request.Download
	if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
		log.ErrorContext(ctx, consts.RespInvalidRequestBody, slog.Any("error", err))
		response.BadRequest(w, consts.RespInvalidRequestBody, errs.ErrInvalidRequestBody)

		return
	}

	if err := in.Validate(); err != nil {
		log.ErrorContext(ctx, consts.RespUnprocessableEntity, slog.Any("error", err))
		response.UnprocessableEntity(w, consts.RespUnprocessableEntity, err)

		return
	}

	dreq, err := r.resolve(ctx, in.ToEntity())
	if err != nil {
		log.ErrorContext(ctx, consts.RespInfoFail, slog.Any("error", err))
		response.BadGateway(w, consts.RespInfoFail, err)

		return
	}

	job, err := r.svc.StartDownload(ctx, dreq)

	switch {
	case errors.Is(err, errs.ErrInvalidURL), errors.Is(err, errs.ErrInvalidFormat):
		log.ErrorContext(ctx, consts.RespUnprocessableEntity, slog.Any("error", err))
		response.UnprocessableEntity(w, consts.RespUnprocessableEntity, err)

		return
	case errors.Is(err, errs.ErrJobQueueFull), errors.Is(err, errs.ErrServiceClosed):
		log.WarnContext(ctx, consts.RespJobEnqueueFail, slog.Any("error", err))
		response.ServiceUnavailable(w, consts.RespJobEnqueueFail, err)

		return
	case err != nil:
		log.ErrorContext(ctx, consts.RespJobEnqueueFail, slog.Any("error", err))
		response.InternalServerError(w, consts.RespJobEnqueueFail, nil, err)

		return
	}

	err = r.storer.Create(ctx, entity.JobSnapshot{ID: job.ID, Request: job.Request, CreatedAt: job.CreatedAt})
	if err != nil {
		log.ErrorContext(ctx, "store job", slog.Any("error", err))
	}

	go r.consume(context.WithoutCancel(ctx), job)

	log.InfoContext(ctx, consts.RespJobEnqueued, slog.Any("job", job))

	response.Accepted(w, consts.RespJobEnqueued, job.ID, nil)
}

// resolve maps the format choice onto an extractor selector.
func (r *Router) resolve(ctx context.Context, dreq entity.DownloadRequest) (entity.DownloadRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, r.handlerTimeout())
	defer cancel()

	return r.fetcher.Resolve(ctx, dreq)
}

// consume folds the events of job into storage until the job is finished.
func (r *Router) consume(ctx context.Context, job *service.Job) {
	log := r.log.With(slog.String("func", "consume"), slog.String("job_id", job.ID))

	for ev := range job.Events() {
		if err := r.storer.ApplyEvent(ctx, ev); err != nil {
			log.ErrorContext(ctx, "apply event", slog.Any("error", err), slog.Any("event", ev))
		}
	}

	log.DebugContext(ctx, "job events consumed")
}

// GetJob returns the snapshot of one job.
func (r *Router) GetJob(w http.ResponseWriter, req *http.Request) {
	log := r.log.With(slog.String("handler", "GetJob"))

	ctx, cancel := context.WithTimeout(req.Context(), consts.DefaultHandlerTimeout)
	defer cancel()

	id := req.PathValue("id")
	if id == "" {
		log.ErrorContext(ctx, consts.RespQueryParamMissing)
		response.BadRequest(w, consts.RespQueryParamMissing, nil)

		return
	}

	job, err := r.storer.Get(ctx, id)
	if err != nil {
		log.DebugContext(ctx, consts.RespJobNotFound, slog.Any("error", err))
		response.NotFound(w, consts.RespJobNotFound, err)

		return
	}

	response.OK(w, consts.RespJobRetrieved, job, nil)
}

// GetJobs returns every stored snapshot.
func (r *Router) GetJobs(w http.ResponseWriter, req *http.Request) {
	log := r.log.With(slog.String("handler", "GetJobs"))

	ctx, cancel := context.WithTimeout(req.Context(), consts.DefaultHandlerTimeout)
	defer cancel()

	jobs, err := r.storer.List(ctx)
	if errors.Is(err, errs.ErrNoJobs) {
		log.DebugContext(ctx, consts.RespNoJobs)
		response.NoContent(w)

		return
	}

	if err != nil {
		log.ErrorContext(ctx, consts.RespGetJobsFail, slog.Any("error", err))
		response.InternalServerError(w, consts.RespGetJobsFail, nil, err)

		return
	}

	response.OK(w, consts.RespJobsRetrieved, jobs, nil)
}

func (r *Router) handlerTimeout() time.Duration {
	if r.cfg.HTTP.HandlerTimeout > 0 {
		return r.cfg.HTTP.HandlerTimeout
	}

	return consts.DefaultHandlerTimeout
}
