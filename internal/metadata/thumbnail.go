package metadata

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// thumbnail downloads the image at url. Errors never carry partial bytes.
func (f *Fetcher) thumbnail(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get thumbnail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get thumbnail: unexpected status %s", resp.Status)
	}

	body := io.Reader(resp.Body)
	if f.limits.MaxBytes > 0 {
		body = io.LimitReader(resp.Body, f.limits.MaxBytes+1)
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read thumbnail: %w", err)
	}

	if f.limits.MaxBytes > 0 && int64(len(data)) > f.limits.MaxBytes {
		return nil, fmt.Errorf("read thumbnail: larger than %d bytes", f.limits.MaxBytes)
	}

	return data, nil
}
