// Package consts defines application-wide constants.
package consts

import "time"

const (
	// DefaultHandlerTimeout is the default timeout for HTTP handlers.
	DefaultHandlerTimeout = 30 * time.Second
	// DefaultSimulateTime is the default time to simulate processing in mock downloader.
	DefaultSimulateTime = 1 * time.Second
	// DefaultProgressInterval is the minimum gap between two intermediate progress events.
	DefaultProgressInterval = 200 * time.Millisecond
)

// Media defaults.
const (
	// DefaultContainer is the target video container.
	DefaultContainer = "mp4"
	// DefaultAudioCodec is the codec audio-only downloads are transcoded to.
	DefaultAudioCodec = "mp3"
	// DefaultAudioQuality is the audio bitrate target in kbit/s.
	DefaultAudioQuality = "192"
	// AudioOnlyToken is the reserved yt-dlp selector of the audio-only pseudo format.
	AudioOnlyToken = "bestaudio"
	// FallbackFormat is used when a format choice cannot be resolved.
	FallbackFormat = "best"
	// UnknownSize replaces the size in a format label when no size is known.
	UnknownSize = "??"
	// NotAvailable is shown in place of unknown metadata values.
	NotAvailable = "N/A"
)

// HTTP response messages.
const (
	// RespInvalidRequestBody is returned when the request body is invalid.
	RespInvalidRequestBody = "invalid request body"
	// RespQueryParamMissing is returned when a required query parameter is missing or invalid.
	RespQueryParamMissing = "query param missing or invalid"
	// RespUnprocessableEntity is returned when the request cannot be processed.
	RespUnprocessableEntity = "unprocessable entity"
	// RespInfoRetrieved is returned when video metadata is fetched.
	RespInfoRetrieved = "info retrieved"
	// RespInfoFail is returned when video metadata cannot be fetched.
	RespInfoFail = "info fetch failed"
	// RespFormatsRetrieved is returned when the format list is built.
	RespFormatsRetrieved = "formats retrieved"
	// RespJobEnqueued is returned when a job is successfully enqueued.
	RespJobEnqueued = "job enqueued"
	// RespJobEnqueueFail is returned when a job cannot be enqueued.
	RespJobEnqueueFail = "job enqueue failed"
	// RespGetJobsFail is returned when fetching all jobs fails.
	RespGetJobsFail = "get all jobs failed"
	// RespNoJobs is returned when there are no jobs available.
	RespNoJobs = "no jobs"
	// RespJobRetrieved is returned when a job is successfully retrieved.
	RespJobRetrieved = "job retrieved"
	// RespJobsRetrieved is returned when jobs are successfully retrieved.
	RespJobsRetrieved = "jobs retrieved"
	// RespJobNotFound is returned when a job is not found.
	RespJobNotFound = "job not found"
)

// Downloader identifiers.
const (
	// DownloaderYTdlp is the yt-dlp downloader identifier.
	DownloaderYTdlp = "ytdlp"
	// DownloaderMock is the mock downloader identifier for testing.
	DownloaderMock = "mock"
)
