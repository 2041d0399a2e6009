// Package request holds the HTTP request bodies of the API.
package request

import (
	"fmt"

	"vidgrab/internal/entity"
	"vidgrab/internal/errs"
	"vidgrab/pkg/urls"
)

// Video names the video of an info or formats request.
type Video struct {
	URL string `json:"url"`
}

// Validate normalizes the URL and checks it.
func (v *Video) Validate() error {
	normalized, ok := urls.Normalize(v.URL)
	if !ok {
		return fmt.Errorf("%w: %q", errs.ErrInvalidURL, v.URL)
	}

	v.URL = normalized

	return nil
}

// Download is the body of a download request.
type Download struct {
	URL       string `json:"url"`
	Format    string `json:"format"` // label, format id, "<height>p" or a yt-dlp selector
	AudioOnly bool   `json:"audioOnly"`
	Title     string `json:"title"`
}

// Validate normalizes the URL and checks that a format or audio only is requested.
func (d *Download) Validate() error {
	normalized, ok := urls.Normalize(d.URL)
	if !ok {
		return fmt.Errorf("%w: %q", errs.ErrInvalidURL, d.URL)
	}

	d.URL = normalized

	if d.Format == "" && !d.AudioOnly {
		return errs.ErrInvalidFormat
	}

	return nil
}

// ToEntity converts the body into a download request.
func (d *Download) ToEntity() entity.DownloadRequest {
	return entity.DownloadRequest{
		URL:       d.URL,
		Format:    d.Format,
		AudioOnly: d.AudioOnly,
		Title:     d.Title,
	}
}
