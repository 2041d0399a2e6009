package depmanager

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	sha256HexLength      = 64
	sha256SumsFieldCount = 2
)

// StartUpdateChecker periodically reinstalls binaries whose release checksum changed.
func (m *Manager) StartUpdateChecker(ctx context.Context) {
	if m.cfg.UpdateInterval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(m.cfg.UpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.checkAndUpdate(ctx)
			}
		}
	}()
}

// SumsURLs returns the configured checksum list URLs. Every setting may hold
// a comma-separated list.
func (m *Manager) SumsURLs() []string {
	var out []string

	for _, raw := range []string{m.cfg.YTdlpSHA256SumsURL, m.cfg.FFmpegSHA256SumsURL, m.cfg.DenoSHA256SumsURL} {
		for part := range strings.SplitSeq(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}

	return out
}

// FetchSums downloads every checksum list and merges them.
func (m *Manager) FetchSums(ctx context.Context) (map[string]string, error) {
	urls := m.SumsURLs()
	if len(urls) == 0 {
		return nil, fmt.Errorf("no SHA256 sums URLs configured")
	}

	sums := make(map[string]string)

	for _, url := range urls {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}

		resp, err := m.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch SHA sums: %w", err)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetch SHA sums %s: unexpected status: %d", url, resp.StatusCode)
		}

		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}

		for name, hash := range ParseSums(string(body)) {
			sums[name] = hash
		}
	}

	m.log.DebugContext(ctx, "fetched SHA256 sums", slog.Int("count", len(sums)))

	return sums, nil
}

// ParseSums parses "hash  filename" lines. Malformed lines are skipped.
// A leading '*' (binary mode marker) is stripped from file names.
func ParseSums(content string) map[string]string {
	sums := make(map[string]string)

	for line := range strings.SplitSeq(content, "\n") {
		parts := strings.Fields(line)
		if len(parts) != sha256SumsFieldCount || len(parts[0]) != sha256HexLength {
			continue
		}

		sums[strings.TrimPrefix(parts[1], "*")] = parts[0]
	}

	return sums
}

// checkAndUpdate reinstalls binaries whose checksum changed since the last save.
func (m *Manager) checkAndUpdate(ctx context.Context) {
	if !m.updating.CompareAndSwap(false, true) {
		return
	}
	defer m.updating.Store(false)

	log := m.log

	sums, err := m.FetchSums(ctx)
	if err != nil {
		log.WarnContext(ctx, "update check: failed to fetch checksums", slog.Any("error", err))

		return
	}

	updates := m.findUpdates(sums)
	if len(updates) == 0 {
		log.DebugContext(ctx, "update check: no updates available")

		return
	}

	log.InfoContext(ctx, "update check: updates available", slog.Int("count", len(updates)))

	for _, t := range updates {
		if err := m.install(ctx, t); err != nil {
			log.ErrorContext(ctx, "update check: failed to update binary",
				slog.String("binary", string(t.name)),
				slog.Any("error", err))

			// keep the old hash so the next tick retries
			delete(sums, assetName(m.url(t)))

			continue
		}

		log.InfoContext(ctx, "update check: binary updated", slog.String("binary", string(t.name)))
	}

	if err := m.saveSums(sums); err != nil {
		log.WarnContext(ctx, "update check: failed to save checksums", slog.Any("error", err))
	}
}

// findUpdates returns the tools whose fetched checksum differs from the saved one.
func (m *Manager) findUpdates(sums map[string]string) []tool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var updates []tool

	for _, t := range tools {
		asset := assetName(m.url(t))

		newHash, hasNew := sums[asset]
		oldHash, hasOld := m.savedSums[asset]

		if hasNew && (!hasOld || newHash != oldHash) {
			updates = append(updates, t)
		}
	}

	return updates
}

func (m *Manager) loadSavedSums() error {
	data, err := os.ReadFile(filepath.Join(m.cfg.BinsDir, savedSumsFilename))
	if err != nil {
		return fmt.Errorf("read checksums file: %w", err)
	}

	saved := make(map[string]string)
	if err := json.Unmarshal(data, &saved); err != nil {
		return fmt.Errorf("unmarshal checksums: %w", err)
	}

	m.mu.Lock()
	m.savedSums = saved
	m.mu.Unlock()

	return nil
}

// saveSums merges sums into the saved checksums and writes them to disk.
func (m *Manager) saveSums(sums map[string]string) error {
	m.mu.Lock()
	for k, v := range sums {
		m.savedSums[k] = v
	}

	data, err := json.MarshalIndent(m.savedSums, "", "  ")
	m.mu.Unlock()

	if err != nil {
		return fmt.Errorf("marshal checksums: %w", err)
	}

	if err := os.WriteFile(filepath.Join(m.cfg.BinsDir, savedSumsFilename), data, filePermReadWrite); err != nil {
		return fmt.Errorf("write checksums file: %w", err)
	}

	return nil
}
