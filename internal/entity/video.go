package entity

import (
	"log/slog"
	"strconv"
)

// LiveStatus tells whether a video is being streamed live.
type LiveStatus string

const (
	// LiveStatusLive marks a video that is currently live.
	LiveStatusLive LiveStatus = "Live"
	// LiveStatusNotLive marks a regular video or a finished stream.
	LiveStatusNotLive LiveStatus = "Not Live"
)

// VideoMetadata describes a single video. Nil counters mean the value is unknown.
type VideoMetadata struct {
	URL          string      `json:"url"                    yaml:"url"`
	Title        string      `json:"title"                  yaml:"title"`
	Description  string      `json:"description"            yaml:"description"`
	ChannelName  string      `json:"channelName"            yaml:"channel_name"`
	ChannelURL   string      `json:"channelUrl"             yaml:"channel_url"`
	ViewCount    *int64      `json:"viewCount,omitempty"    yaml:"view_count,omitempty"`
	LikeCount    *int64      `json:"likeCount,omitempty"    yaml:"like_count,omitempty"`
	CommentCount *int64      `json:"commentCount,omitempty" yaml:"comment_count,omitempty"`
	DislikeCount *int64      `json:"dislikeCount,omitempty" yaml:"dislike_count,omitempty"`
	Duration     *int        `json:"duration,omitempty"     yaml:"duration,omitempty"` // seconds
	LiveStatus   LiveStatus  `json:"liveStatus"             yaml:"live_status"`
	AgeLimit     int         `json:"ageLimit"               yaml:"age_limit"`
	Availability string      `json:"availability"           yaml:"availability"`
	ThumbnailURL string      `json:"thumbnailUrl"           yaml:"thumbnail_url"`
	Thumbnail    []byte      `json:"thumbnail,omitempty"    yaml:"-"`
	Formats      []RawFormat `json:"-"                      yaml:"-"`
}

// LogValue implements the slog.LogValuer interface for structured logging.
func (v VideoMetadata) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("url", v.URL),
		slog.String("title", v.Title),
		slog.String("channel", v.ChannelName),
		slog.String("live_status", string(v.LiveStatus)),
		slog.Int("thumbnail_bytes", len(v.Thumbnail)),
		slog.Int("formats", len(v.Formats)),
	)
}

// RawFormat is one entry of the extractor's format listing.
type RawFormat struct {
	FormatID       string `json:"format_id"`
	Ext            string `json:"ext"`
	VCodec         string `json:"vcodec"`
	ACodec         string `json:"acodec"`
	Height         *int   `json:"height"`
	Filesize       *int64 `json:"filesize"`
	FilesizeApprox *int64 `json:"filesize_approx"`
}

// HasVideo reports whether the format carries a video stream.
// An absent codec counts as video, only an explicit "none" excludes it.
func (f RawFormat) HasVideo() bool {
	return f.VCodec != codecNone
}

// HasAudio reports whether the format carries an audio stream.
func (f RawFormat) HasAudio() bool {
	return f.ACodec != "" && f.ACodec != codecNone
}

// Size returns the exact file size, falling back to the approximate one.
func (f RawFormat) Size() *int64 {
	if f.Filesize != nil && *f.Filesize > 0 {
		return f.Filesize
	}

	if f.FilesizeApprox != nil && *f.FilesizeApprox > 0 {
		return f.FilesizeApprox
	}

	return nil
}

const codecNone = "none"

// FormatDescriptor is one selectable quality tier offered to the user.
type FormatDescriptor struct {
	Label     string `json:"label"               yaml:"label"`
	FormatID  string `json:"formatId"            yaml:"format_id"`
	Height    int    `json:"height,omitempty"    yaml:"height,omitempty"`
	Size      *int64 `json:"size,omitempty"      yaml:"size,omitempty"`
	Ext       string `json:"ext"                 yaml:"ext"`
	AudioOnly bool   `json:"audioOnly"           yaml:"audio_only"`
	HasAudio  bool   `json:"hasAudio"            yaml:"has_audio"`
}

// Selector returns the yt-dlp format expression that downloads this descriptor.
// Video-only formats are merged with the best audio stream when one exists.
func (d FormatDescriptor) Selector() string {
	if d.AudioOnly || d.HasAudio {
		return d.FormatID
	}

	return d.FormatID + "+bestaudio/" + d.FormatID
}

// Tier returns the "<height>p" shorthand, or an empty string for audio.
func (d FormatDescriptor) Tier() string {
	if d.AudioOnly {
		return ""
	}

	return strconv.Itoa(d.Height) + "p"
}
