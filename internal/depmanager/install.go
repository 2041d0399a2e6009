package depmanager

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"
)

// install downloads the release asset of t and places its binaries in the bins directory.
func (m *Manager) install(ctx context.Context, t tool) error {
	url := m.url(t)
	if url == "" {
		return fmt.Errorf("no download URL configured for %s on %s", t.name, m.platform)
	}

	log := m.log.With(slog.String("binary", string(t.name)), slog.String("url", url))
	log.InfoContext(ctx, "downloading binary")

	paths, err := m.download(ctx, url, t.provides)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}

	for i, p := range paths {
		if err := os.Chmod(p, filePermExecutable); err != nil {
			return fmt.Errorf("chmod: %w", err)
		}

		m.setPath(t.provides[i], p)
	}

	log.InfoContext(ctx, "binary installed", slog.Any("paths", paths))

	return nil
}

// download fetches url into the bins directory. Archives are unpacked and
// only the wanted binaries are kept. Paths are returned in the order of want.
func (m *Manager) download(ctx context.Context, url string, want []BinaryName) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	tmpFile, err := os.CreateTemp(m.cfg.BinsDir, "download-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}

	tmpPath := tmpFile.Name()

	defer func() {
		tmpFile.Close()
		os.Remove(tmpPath)
	}()

	if _, err := io.Copy(tmpFile, resp.Body); err != nil {
		return nil, fmt.Errorf("write file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return nil, fmt.Errorf("close temp file: %w", err)
	}

	paths := make([]string, 0, len(want))
	for _, bin := range want {
		paths = append(paths, m.BinPath(bin))
	}

	targets := make(map[string]struct{}, len(want))
	for _, bin := range want {
		targets[string(bin)] = struct{}{}
	}

	switch {
	case strings.HasSuffix(url, ".zip"):
		err = extractZip(tmpPath, m.cfg.BinsDir, targets)
	case strings.HasSuffix(url, ".tar.xz"):
		err = extractTar(tmpPath, m.cfg.BinsDir, targets, func(r io.Reader) (io.Reader, error) {
			return xz.NewReader(r)
		})
	case strings.HasSuffix(url, ".tar.gz"):
		err = extractTar(tmpPath, m.cfg.BinsDir, targets, func(r io.Reader) (io.Reader, error) {
			return gzip.NewReader(r)
		})
	default:
		if len(want) != 1 {
			return nil, fmt.Errorf("plain asset cannot provide %d binaries", len(want))
		}

		err = os.Rename(tmpPath, paths[0])
	}

	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", assetName(url), err)
	}

	return paths, nil
}

func extractZip(zipPath, destDir string, targets map[string]struct{}) error {
	reader, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}
	defer reader.Close()

	extracted := 0

	for _, file := range reader.File {
		name := filepath.Base(file.Name)
		if file.FileInfo().IsDir() {
			continue
		}

		if _, ok := targets[name]; !ok {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return fmt.Errorf("open %s: %w", name, err)
		}

		err = writeFile(filepath.Join(destDir, name), rc)
		rc.Close()

		if err != nil {
			return err
		}

		extracted++
	}

	if extracted != len(targets) {
		return fmt.Errorf("found %d of %d files in zip archive", extracted, len(targets))
	}

	return nil
}

func extractTar(
	archivePath, destDir string,
	targets map[string]struct{},
	decompress func(io.Reader) (io.Reader, error),
) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer file.Close()

	r, err := decompress(file)
	if err != nil {
		return fmt.Errorf("decompress: %w", err)
	}

	tr := tar.NewReader(r)
	extracted := 0

	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return fmt.Errorf("read tar header: %w", err)
		}

		if header.Typeflag != tar.TypeReg {
			continue
		}

		name := filepath.Base(header.Name)
		if _, ok := targets[name]; !ok {
			continue
		}

		if err := writeFile(filepath.Join(destDir, name), tr); err != nil {
			return err
		}

		extracted++

		if extracted == len(targets) {
			return nil
		}
	}

	return fmt.Errorf("found %d of %d files in tar archive", extracted, len(targets))
}

func writeFile(dest string, r io.Reader) error {
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePermExecutable)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}

	if _, err := io.Copy(out, r); err != nil {
		out.Close()

		return fmt.Errorf("write %s: %w", dest, err)
	}

	return out.Close()
}
