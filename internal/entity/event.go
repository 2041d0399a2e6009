package entity

import (
	"log/slog"
	"time"
)

// ProgressStatus is the status tag attached to every progress report.
type ProgressStatus string

const (
	// ProgressStatusDownloading is reported while bytes are being fetched.
	ProgressStatusDownloading ProgressStatus = "downloading"
	// ProgressStatusFinished is reported once a file has been fetched completely.
	ProgressStatusFinished ProgressStatus = "finished"
	// ProgressStatusError is reported when the extractor gives up on a file.
	ProgressStatusError ProgressStatus = "error"
)

// ProgressReport is one raw progress callback from the extractor.
// Which counters are present depends on the extractor's call site.
type ProgressReport struct {
	Status             ProgressStatus `json:"status"`
	DownloadedBytes    *float64       `json:"downloaded_bytes"`
	TotalBytes         *float64       `json:"total_bytes"`
	TotalBytesEstimate *float64       `json:"total_bytes_estimate"`
	PercentStr         *string        `json:"_percent_str"`
	Filename           string         `json:"filename"`
}

// EventKind enumerates the notifications a download job delivers.
type EventKind string

const (
	// EventProgress carries a percentage between 0 and 100.
	EventProgress EventKind = "progress"
	// EventSucceeded is sent once when the download and transcode worked.
	EventSucceeded EventKind = "succeeded"
	// EventFailed is sent once with the failure message.
	EventFailed EventKind = "failed"
	// EventFinished is always the last event of a job, sent exactly once.
	EventFinished EventKind = "finished"
)

// Event is a single notification delivered to the subscriber of a job.
type Event struct {
	JobID    string    `json:"jobId"`
	Kind     EventKind `json:"kind"`
	Percent  float64   `json:"percent,omitempty"`
	Message  string    `json:"message,omitempty"`
	Filename string    `json:"filename,omitempty"`
	At       time.Time `json:"at"`
}

// LogValue implements the slog.LogValuer interface for structured logging.
func (e Event) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("job_id", e.JobID),
		slog.String("kind", string(e.Kind)),
		slog.Float64("percent", e.Percent),
		slog.String("message", e.Message),
	)
}
