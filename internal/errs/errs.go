// Package errs defines common error variables used across the application.
package errs

import (
	"context"
	"errors"
)

var (
	// ErrServiceClosed indicates that the service is closed and cannot accept new jobs.
	ErrServiceClosed = errors.New("service is closed")
	// ErrInvalidRequestBody indicates that the request body is invalid or cannot be parsed.
	ErrInvalidRequestBody = errors.New("invalid request body")
)

// Valid request errors.
var (
	// ErrInvalidURL indicates that the URL is empty or cannot be used as a video URL.
	ErrInvalidURL = errors.New("invalid url")
	// ErrInvalidFormat indicates that neither a format nor the audio-only flag was given.
	ErrInvalidFormat = errors.New("invalid format")
	// ErrUnknownFormat indicates that a format choice matches no listed descriptor.
	ErrUnknownFormat = errors.New("unknown format")
)

// Job and storage errors.
var (
	// ErrNoJobs indicates that there are no jobs in storage.
	ErrNoJobs = errors.New("no jobs")
	// ErrJobNotFound indicates that the job is not found in storage.
	ErrJobNotFound = errors.New("job not found")
	// ErrJobIDEmpty indicates that the job ID is empty.
	ErrJobIDEmpty = errors.New("job_id is empty")
	// ErrJobQueueFull indicates that the job queue is full.
	ErrJobQueueFull = errors.New("job queue is full")
)

// Media errors. Every failure crossing the package boundary wraps one of these.
var (
	// ErrExtraction indicates that the extraction capability could not resolve the URL
	// (bad URL, network failure, removed or private video, internal extractor error).
	ErrExtraction = errors.New("extraction failed")
	// ErrIO indicates that the output directory or file could not be created or written.
	ErrIO = errors.New("io failed")
	// ErrTranscode indicates that post-processing of a downloaded file failed.
	ErrTranscode = errors.New("transcode failed")
)

// Dependency errors.
var (
	// ErrBinaryNotFound indicates that the required binary was not found.
	ErrBinaryNotFound = errors.New("binary not found")
	// ErrUnsupportedPlatform indicates that the current platform is not supported.
	ErrUnsupportedPlatform = errors.New("unsupported platform")
)

// Proxy errors.
var (
	// ErrNoProxiesAvailable indicates that no healthy proxies are available.
	ErrNoProxiesAvailable = errors.New("no proxies available")
)

// Classify returns a short label for err, used as a metrics label.
func Classify(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ErrIO):
		return "io"
	case errors.Is(err, ErrTranscode):
		return "transcode"
	case errors.Is(err, ErrExtraction):
		return "extraction"
	default:
		return "process"
	}
}
