package urls_test

import (
	"testing"

	"vidgrab/pkg/urls"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   string
		wantOK bool
	}{
		{
			name:   "already valid",
			raw:    "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			want:   "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			wantOK: true,
		},
		{
			name:   "surrounding whitespace",
			raw:    "  https://youtu.be/dQw4w9WgXcQ \n",
			want:   "https://youtu.be/dQw4w9WgXcQ",
			wantOK: true,
		},
		{
			name:   "missing scheme",
			raw:    "youtu.be/dQw4w9WgXcQ",
			want:   "https://youtu.be/dQw4w9WgXcQ",
			wantOK: true,
		},
		{
			name:   "unsupported scheme",
			raw:    "ftp://example.com/video.mp4",
			want:   "ftp://example.com/video.mp4",
			wantOK: false,
		},
		{
			name:   "empty",
			raw:    "   ",
			want:   "",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := urls.Normalize(tt.raw)
			if ok != tt.wantOK {
				t.Errorf("Normalize(%q) ok = %v, want %v", tt.raw, ok, tt.wantOK)
			}

			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}
