// Package entity defines the core entities used in the application.
package entity

import (
	"log/slog"
	"time"
)

// JobState represents the lifecycle state of a download job.
type JobState string

const (
	// JobStateQueued indicates that the job waits for a free worker.
	JobStateQueued JobState = "queued"
	// JobStateRunning indicates that the job is being downloaded or transcoded.
	JobStateRunning JobState = "running"
	// JobStateSucceeded indicates that the job has finished successfully.
	JobStateSucceeded JobState = "succeeded"
	// JobStateFailed indicates that the job has ended with an error.
	JobStateFailed JobState = "failed"
)

// IsTerminal returns true if no further state changes can happen.
func (s JobState) IsTerminal() bool {
	return s == JobStateSucceeded || s == JobStateFailed
}

// DownloadRequest is what a caller asks the orchestrator to download.
type DownloadRequest struct {
	URL       string `json:"url"`
	Format    string `json:"format"`
	AudioOnly bool   `json:"audioOnly"`
	// Title is optional; when known it names the output file.
	Title string `json:"title,omitempty"`
}

// LogValue implements the slog.LogValuer interface for structured logging.
func (r DownloadRequest) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("url", r.URL),
		slog.String("format", r.Format),
		slog.Bool("audio_only", r.AudioOnly),
		slog.String("title", r.Title),
	)
}

// PostProcess is the transcoding directive handed to the extractor.
type PostProcess struct {
	ExtractAudio   bool
	AudioCodec     string
	AudioQuality   string
	VideoContainer string
}

// DownloadOptions is everything the extractor needs to fetch and transcode one video.
type DownloadOptions struct {
	URL               string
	Format            string
	OutputTemplate    string
	RestrictFilenames bool
	PostProcess       PostProcess
}

// LogValue implements the slog.LogValuer interface for structured logging.
func (o DownloadOptions) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("url", o.URL),
		slog.String("format", o.Format),
		slog.String("output", o.OutputTemplate),
		slog.Bool("extract_audio", o.PostProcess.ExtractAudio),
	)
}

// JobSnapshot is the stored view of a download job, built from its events.
type JobSnapshot struct {
	ID        string          `json:"id"`
	Request   DownloadRequest `json:"request"`
	State     JobState        `json:"state"`
	Progress  float64         `json:"progress"`
	Error     string          `json:"error,omitempty"`
	Filename  string          `json:"filename,omitempty"`
	Finished  bool            `json:"finished"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

// LogValue implements the slog.LogValuer interface for structured logging.
func (j JobSnapshot) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("id", j.ID),
		slog.String("url", j.Request.URL),
		slog.String("state", string(j.State)),
		slog.Float64("progress", j.Progress),
		slog.String("error", j.Error),
	)
}
