// Package depmanager resolves the external binaries the extractor needs:
// yt-dlp, ffmpeg with ffprobe, and deno. They are either looked up in PATH or
// downloaded into a bins directory and refreshed when their checksums change.
// Checksums are used only to detect new versions, not to verify downloads.
package depmanager

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"vidgrab/internal/config"
	"vidgrab/internal/errs"
)

const (
	platformLinux = "linux"
	archARM64     = "arm64"
	archAMD64     = "amd64"
)

const (
	downloadTimeout    = 10 * time.Minute
	filePermExecutable = 0o755
	filePermReadWrite  = 0o644
	savedSumsFilename  = ".sha256sums.json"
)

// Platform represents the OS and architecture combination.
type Platform struct {
	OS   string
	Arch string
}

// String returns the platform string in format "os/arch".
func (p Platform) String() string {
	return p.OS + "/" + p.Arch
}

// Manager manages binary dependencies.
type Manager struct {
	log      *slog.Logger
	cfg      config.DepManager
	platform Platform
	client   *http.Client

	mu        sync.RWMutex
	savedSums map[string]string     // asset -> sha256 of the installed version
	binPaths  map[BinaryName]string // binary -> resolved path

	updating atomic.Bool
}

// New creates a new dependency manager.
func New(log *slog.Logger, cfg config.DepManager) *Manager {
	return &Manager{
		log: log.With(slog.String("package", "depmanager")),
		cfg: cfg,
		platform: Platform{
			OS:   runtime.GOOS,
			Arch: runtime.GOARCH,
		},
		client:    &http.Client{Timeout: downloadTimeout},
		savedSums: make(map[string]string),
		binPaths:  make(map[BinaryName]string),
	}
}

// Start resolves every binary. With system binaries disabled it installs
// missing ones and keeps checking for updates until ctx is done.
func (m *Manager) Start(ctx context.Context) error {
	if m.cfg.UseSystemBinaries {
		return m.LookupSystem(ctx)
	}

	if err := m.InstallAll(ctx); err != nil {
		return err
	}

	m.StartUpdateChecker(ctx)

	return nil
}

// LookupSystem resolves binaries from PATH. Only a missing required binary is an error.
func (m *Manager) LookupSystem(ctx context.Context) error {
	for _, t := range tools {
		for _, bin := range t.provides {
			path, err := exec.LookPath(string(bin))
			if err != nil {
				if t.required {
					return fmt.Errorf("%w: %s: %w", errs.ErrBinaryNotFound, bin, err)
				}

				m.log.WarnContext(ctx, "optional binary not found in PATH", slog.String("binary", string(bin)))

				continue
			}

			m.setPath(bin, path)
		}
	}

	m.log.InfoContext(ctx, "system binaries resolved", slog.Any("binaries", m.Paths()))

	return nil
}

// Path returns the resolved path of a binary. An unresolved binary is
// returned by name so that exec falls back to a PATH lookup.
func (m *Manager) Path(name BinaryName) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if p, ok := m.binPaths[name]; ok {
		return p
	}

	return string(name)
}

// Resolved reports whether the binary was found or installed.
func (m *Manager) Resolved(name BinaryName) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.binPaths[name]

	return ok
}

// Paths returns a copy of all resolved binary paths.
func (m *Manager) Paths() map[BinaryName]string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return maps.Clone(m.binPaths)
}

// BinPath returns where an installed binary lives inside the bins directory.
func (m *Manager) BinPath(name BinaryName) string {
	return filepath.Join(m.cfg.BinsDir, string(name))
}

func (m *Manager) setPath(name BinaryName, path string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.binPaths[name] = path
}

// InstallAll downloads every binary that is not present in the bins directory.
// Binaries already on disk are kept as they are; updates are the checker's job.
func (m *Manager) InstallAll(ctx context.Context) error {
	log := m.log

	if m.platform.OS != platformLinux {
		return fmt.Errorf("%w: %s", errs.ErrUnsupportedPlatform, m.platform)
	}

	if err := os.MkdirAll(m.cfg.BinsDir, filePermExecutable); err != nil {
		return fmt.Errorf("create bins directory: %w", err)
	}

	if err := m.loadSavedSums(); err != nil {
		log.DebugContext(ctx, "no saved checksums found, first run", slog.Any("error", err))
	}

	for _, t := range tools {
		if m.installed(t) {
			for _, bin := range t.provides {
				m.setPath(bin, m.BinPath(bin))
			}

			log.DebugContext(ctx, "binary already exists", slog.String("binary", string(t.name)))

			continue
		}

		if err := m.install(ctx, t); err != nil {
			if t.required {
				return fmt.Errorf("install %s: %w", t.name, err)
			}

			log.WarnContext(ctx, "optional binary not installed", slog.String("binary", string(t.name)), slog.Any("error", err))
		}
	}

	log.InfoContext(ctx, "binaries installed", slog.Any("binaries", m.Paths()))

	sums, err := m.FetchSums(ctx)
	if err != nil {
		log.WarnContext(ctx, "failed to fetch checksums", slog.Any("error", err))

		return nil
	}

	if err := m.saveSums(sums); err != nil {
		log.WarnContext(ctx, "failed to save checksums", slog.Any("error", err))
	}

	return nil
}

// installed reports whether every binary of t exists with a non-zero size.
func (m *Manager) installed(t tool) bool {
	for _, bin := range t.provides {
		info, err := os.Stat(m.BinPath(bin))
		if err != nil || info.Size() == 0 {
			return false
		}
	}

	return true
}

// url returns the release URL of t for the current platform.
func (m *Manager) url(t tool) string {
	arm64, amd64 := t.urls(m.cfg)

	if m.platform.Arch == archARM64 && arm64 != "" {
		return arm64
	}

	return amd64
}
