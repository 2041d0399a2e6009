package downloader

import (
	"fmt"
	"log/slog"
	"strings"

	"vidgrab/internal/entity"
	"vidgrab/pkg/maths"
	"vidgrab/pkg/ptr"

	"github.com/lrstanley/go-ytdlp"
)

// Result wraps ytdlp.Result for custom logging.
type Result struct {
	*ytdlp.Result
}

// LogValue implements the slog.LogValuer interface for custom logging of Result.
func (r Result) LogValue() slog.Value {
	if r.Result == nil {
		return slog.GroupValue(slog.String("error", "nil result"))
	}

	var logs strings.Builder
	for _, l := range r.OutputLogs {
		fmt.Fprintf(&logs, "%s\n", l.Line)
	}

	return slog.GroupValue(
		slog.String("executable", r.Executable),
		slog.String("args", fmt.Sprintf("%v", r.Args)),
		slog.Int("exit_code", r.ExitCode),
		slog.Int("stdout_bytes", len(r.Stdout)),
		slog.String("stderr", r.Stderr),
		slog.String("output_logs", logs.String()),
	)
}

// infoJSON is the subset of yt-dlp's --dump-single-json output we use.
type infoJSON struct {
	ID           string       `json:"id"`
	Type         string       `json:"_type"`
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	Channel      string       `json:"channel"`
	Uploader     string       `json:"uploader"`
	ChannelURL   string       `json:"channel_url"`
	UploaderURL  string       `json:"uploader_url"`
	WebpageURL   string       `json:"webpage_url"`
	ViewCount    *float64     `json:"view_count"`
	LikeCount    *float64     `json:"like_count"`
	CommentCount *float64     `json:"comment_count"`
	DislikeCount *float64     `json:"dislike_count"`
	Duration     *float64     `json:"duration"`
	IsLive       *bool        `json:"is_live"`
	LiveStatus   string       `json:"live_status"`
	AgeLimit     int          `json:"age_limit"`
	Availability string       `json:"availability"`
	Thumbnail    string       `json:"thumbnail"`
	Formats      []formatJSON `json:"formats"`
}

// formatJSON is one entry of info.formats. Numbers are floats in yt-dlp output.
type formatJSON struct {
	FormatID       string   `json:"format_id"`
	Ext            string   `json:"ext"`
	VCodec         *string  `json:"vcodec"`
	ACodec         *string  `json:"acodec"`
	Height         *float64 `json:"height"`
	Filesize       *float64 `json:"filesize"`
	FilesizeApprox *float64 `json:"filesize_approx"`
}

func toInt64(v float64) int64 { return int64(maths.RoundFloat64ToInt(v)) }

// toMetadata converts yt-dlp output into the domain record. url is used
// when yt-dlp does not report a webpage URL.
func (i infoJSON) toMetadata(url string) *entity.VideoMetadata {
	meta := &entity.VideoMetadata{
		URL:          i.WebpageURL,
		Title:        i.Title,
		Description:  i.Description,
		ChannelName:  i.Channel,
		ChannelURL:   i.ChannelURL,
		ViewCount:    ptr.Map(i.ViewCount, toInt64),
		LikeCount:    ptr.Map(i.LikeCount, toInt64),
		CommentCount: ptr.Map(i.CommentCount, toInt64),
		DislikeCount: ptr.Map(i.DislikeCount, toInt64),
		Duration:     ptr.Map(i.Duration, maths.RoundFloat64ToInt),
		LiveStatus:   entity.LiveStatusNotLive,
		AgeLimit:     i.AgeLimit,
		Availability: i.Availability,
		ThumbnailURL: i.Thumbnail,
		Formats:      make([]entity.RawFormat, 0, len(i.Formats)),
	}

	if meta.URL == "" {
		meta.URL = url
	}

	if meta.ChannelName == "" {
		meta.ChannelName = i.Uploader
	}

	if meta.ChannelURL == "" {
		meta.ChannelURL = i.UploaderURL
	}

	if ptr.Deref(i.IsLive) || i.LiveStatus == "is_live" {
		meta.LiveStatus = entity.LiveStatusLive
	}

	for _, f := range i.Formats {
		meta.Formats = append(meta.Formats, entity.RawFormat{
			FormatID:       f.FormatID,
			Ext:            f.Ext,
			VCodec:         ptr.Deref(f.VCodec),
			ACodec:         ptr.Deref(f.ACodec),
			Height:         ptr.Map(f.Height, maths.RoundFloat64ToInt),
			Filesize:       ptr.Map(f.Filesize, toInt64),
			FilesizeApprox: ptr.Map(f.FilesizeApprox, toInt64),
		})
	}

	return meta
}

// progressJSON is what the %(progress)j template prints.
type progressJSON struct {
	Status             string   `json:"status"`
	DownloadedBytes    *float64 `json:"downloaded_bytes"`
	TotalBytes         *float64 `json:"total_bytes"`
	TotalBytesEstimate *float64 `json:"total_bytes_estimate"`
	PercentStr         *string  `json:"_percent_str"`
	Filename           string   `json:"filename"`
}

func (p progressJSON) toReport() entity.ProgressReport {
	return entity.ProgressReport{
		Status:             entity.ProgressStatus(p.Status),
		DownloadedBytes:    p.DownloadedBytes,
		TotalBytes:         p.TotalBytes,
		TotalBytesEstimate: p.TotalBytesEstimate,
		PercentStr:         p.PercentStr,
		Filename:           p.Filename,
	}
}
