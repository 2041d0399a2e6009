// Package config handles application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DefaultEnvFile is read before the environment is parsed, if it exists.
const DefaultEnvFile = ".env"

// Config holds the application configuration.
type Config struct {
	HTTP       HTTP
	App        App
	Job        Job
	Dir        Dir
	Media      Media
	Thumbnail  Thumbnail
	Storage    Storage
	DepManager DepManager
	Proxy      Proxy
}

// App holds application-wide configuration.
type App struct {
	LogLevel  string `env:"VIDGRAB_APP_LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"VIDGRAB_APP_LOG_FORMAT" envDefault:"json"` // json or text
}

// Job holds download job processing configuration.
type Job struct {
	Workers          int           `env:"VIDGRAB_JOB_WORKERS"           envDefault:"1"`
	QueueSize        int           `env:"VIDGRAB_JOB_QUEUE_SIZE"        envDefault:"16"`
	EventBuffer      int           `env:"VIDGRAB_JOB_EVENT_BUFFER"      envDefault:"64"`
	ProgressInterval time.Duration `env:"VIDGRAB_JOB_PROGRESS_INTERVAL" envDefault:"200ms"`
	// Timeout bounds a single job; zero disables it.
	Timeout time.Duration `env:"VIDGRAB_JOB_TIMEOUT" envDefault:"0s"`
}

// Storage holds job snapshot storage configuration.
type Storage struct {
	TTL             time.Duration `env:"VIDGRAB_STORAGE_TTL"              envDefault:"24h"`
	CleanupInterval time.Duration `env:"VIDGRAB_STORAGE_CLEANUP_INTERVAL" envDefault:"1h"`
}

// HTTP holds HTTP server configuration.
type HTTP struct {
	Port            string        `env:"VIDGRAB_HTTP_PORT"             envDefault:":8080"`
	HandlerTimeout  time.Duration `env:"VIDGRAB_HTTP_HANDLER_TIMEOUT"  envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"VIDGRAB_HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Dir holds directory paths for downloads, cache, and cookie file.
type Dir struct {
	Downloads string `env:"VIDGRAB_DIR_DOWNLOAD" envDefault:"./downloads"` // downloads stored here
	Cache     string `env:"VIDGRAB_DIR_CACHE"    envDefault:""`            // yt-dlp cache (meta, sigs)

	// must contain cookies.txt file
	// see: https://github.com/yt-dlp/yt-dlp/wiki/FAQ#how-do-i-pass-cookies-to-yt-dlp
	CookieFile string `env:"VIDGRAB_DIR_COOKIE_FILE" envDefault:""`

	// SanitizeFilenames slugifies video titles before they become file names.
	SanitizeFilenames bool `env:"VIDGRAB_DIR_SANITIZE_FILENAMES" envDefault:"true"`
}

// SetAbsPaths converts all directory paths to absolute paths.
func (c *Dir) SetAbsPaths() error {
	var err error
	if c.Downloads, err = filepath.Abs(c.Downloads); err != nil {
		return fmt.Errorf("downloads: %w", err)
	}

	if c.Cache != "" {
		if c.Cache, err = filepath.Abs(c.Cache); err != nil {
			return fmt.Errorf("cache: %w", err)
		}
	}

	if c.CookieFile != "" {
		if c.CookieFile, err = filepath.Abs(c.CookieFile); err != nil {
			return fmt.Errorf("cookie file: %w", err)
		}
	}

	return nil
}

// Media holds the container and codec targets of downloads.
type Media struct {
	Container    string `env:"VIDGRAB_MEDIA_CONTAINER"     envDefault:"mp4"`
	AudioCodec   string `env:"VIDGRAB_MEDIA_AUDIO_CODEC"   envDefault:"mp3"`
	AudioQuality string `env:"VIDGRAB_MEDIA_AUDIO_QUALITY" envDefault:"192"`
}

// Thumbnail holds thumbnail retrieval limits.
type Thumbnail struct {
	Timeout  time.Duration `env:"VIDGRAB_THUMBNAIL_TIMEOUT"   envDefault:"15s"`
	MaxBytes int64         `env:"VIDGRAB_THUMBNAIL_MAX_BYTES" envDefault:"10485760"`
}

// New loads configuration from the .env file (when present) and environment variables.
func New() (*Config, error) {
	return Load(DefaultEnvFile)
}

// Load is New with an explicit env file. Variables already set in the
// environment take precedence over the file; a missing file is not an error.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		err := godotenv.Load(envFile)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file %q: %w", envFile, err)
		}
	}

	cfg := &Config{}

	err := env.Parse(cfg)
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	err = cfg.Dir.SetAbsPaths()
	if err != nil {
		return nil, fmt.Errorf("set absolute paths: %w", err)
	}

	err = cfg.DepManager.SetAbsPaths()
	if err != nil {
		return nil, fmt.Errorf("set dep manager absolute paths: %w", err)
	}

	cfg.Proxy.parseList()

	return cfg, nil
}

// DepManager holds binary dependency management configuration.
type DepManager struct {
	// BinsDir is the directory where binaries are stored
	BinsDir string `env:"VIDGRAB_DEPMANAGER_BINS_DIR" envDefault:"./bins"`
	// UseSystemBinaries looks binaries up in PATH instead of downloading them.
	UseSystemBinaries bool `env:"VIDGRAB_DEPMANAGER_USE_SYSTEM_BINARIES" envDefault:"true"`
	// UpdateInterval is how often to check for binary updates
	UpdateInterval time.Duration `env:"VIDGRAB_DEPMANAGER_UPDATE_INTERVAL" envDefault:"24h"`

	// ffmpeg binary URLs per platform.
	FFmpegSHA256SumsURL string `env:"VIDGRAB_DEPMANAGER_FFMPEG_SHA256SUMS_URL" envDefault:"https://github.com/BtbN/FFmpeg-Builds/releases/latest/download/checksums.sha256"`                        //nolint:lll
	FFmpegLinuxARM64    string `env:"VIDGRAB_DEPMANAGER_FFMPEG_LINUX_ARM64" envDefault:"https://github.com/BtbN/FFmpeg-Builds/releases/latest/download/ffmpeg-master-latest-linuxarm64-gpl.tar.xz"` //nolint:lll
	FFmpegLinuxAMD64    string `env:"VIDGRAB_DEPMANAGER_FFMPEG_LINUX_AMD64" envDefault:"https://github.com/BtbN/FFmpeg-Builds/releases/latest/download/ffmpeg-master-latest-linux64-gpl.tar.xz"`    //nolint:lll

	// yt-dlp binary URLs per platform.
	YTdlpSHA256SumsURL string `env:"VIDGRAB_DEPMANAGER_YTDLP_SHA256SUMS_URL" envDefault:"https://github.com/yt-dlp/yt-dlp/releases/latest/download/SHA2-256SUMS"`      //nolint:lll
	YTdlpLinuxARM64    string `env:"VIDGRAB_DEPMANAGER_YTDLP_LINUX_ARM64" envDefault:"https://github.com/yt-dlp/yt-dlp/releases/latest/download/yt-dlp_linux_aarch64"` //nolint:lll
	YTdlpLinuxAMD64    string `env:"VIDGRAB_DEPMANAGER_YTDLP_LINUX_AMD64" envDefault:"https://github.com/yt-dlp/yt-dlp/releases/latest/download/yt-dlp_linux"`         //nolint:lll

	// deno is the JavaScript runtime yt-dlp needs for YouTube.
	DenoSHA256SumsURL string `env:"VIDGRAB_DEPMANAGER_DENO_SHA256SUMS_URL" envDefault:"https://github.com/denoland/deno/releases/latest/download/deno-aarch64-unknown-linux-gnu.zip.sha256sum,https://github.com/denoland/deno/releases/latest/download/deno-x86_64-unknown-linux-gnu.zip.sha256sum"` //nolint:lll
	DenoLinuxARM64    string `env:"VIDGRAB_DEPMANAGER_DENO_LINUX_ARM64" envDefault:"https://github.com/denoland/deno/releases/latest/download/deno-aarch64-unknown-linux-gnu.zip"`                                                                                                                    //nolint:lll
	DenoLinuxAMD64    string `env:"VIDGRAB_DEPMANAGER_DENO_LINUX_AMD64" envDefault:"https://github.com/denoland/deno/releases/latest/download/deno-x86_64-unknown-linux-gnu.zip"`                                                                                                                     //nolint:lll
}

// SetAbsPaths converts the BinsDir path to an absolute path.
func (d *DepManager) SetAbsPaths() error {
	var err error
	if d.BinsDir, err = filepath.Abs(d.BinsDir); err != nil {
		return fmt.Errorf("bins dir: %w", err)
	}

	return nil
}

// Proxy holds proxy configuration for extractor requests.
type Proxy struct {
	// List is a comma-separated list of proxy URLs in socks5h or http format
	List string `env:"VIDGRAB_PROXY_LIST" envDefault:""`
	// HealthCheck dials a proxy before handing it out.
	HealthCheck bool `env:"VIDGRAB_PROXY_HEALTH_CHECK" envDefault:"false"`
	// HealthTimeout bounds a single health check dial.
	HealthTimeout time.Duration `env:"VIDGRAB_PROXY_HEALTH_TIMEOUT" envDefault:"5s"`

	// Proxies is the parsed list of proxy URLs
	Proxies []string `env:"-"`
}

// parseList parses the comma-separated proxy list.
func (p *Proxy) parseList() {
	if p.List == "" {
		return
	}

	for proxy := range strings.SplitSeq(p.List, ",") {
		proxy = strings.TrimSpace(proxy)
		if proxy != "" {
			p.Proxies = append(p.Proxies, proxy)
		}
	}
}
