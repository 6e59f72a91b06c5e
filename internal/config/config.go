// Package config handles application configuration loading and management.
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the application configuration.
type Config struct {
	App        App
	HTTP       HTTP
	Job        Job
	Dir        Dir
	Storage    Storage
	Catalog    Catalog
	Fetch      Fetch
	Limits     Limits
	Timeouts   Timeouts
	DepManager DepManager
	Proxy      Proxy
}

// App holds application-wide configuration.
type App struct {
	LogLevel string `env:"DESCARGO_APP_LOG_LEVEL" envDefault:"info"`
}

// HTTP holds HTTP server configuration.
type HTTP struct {
	Port            string        `env:"DESCARGO_HTTP_PORT"             envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"DESCARGO_HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Job holds pipeline concurrency configuration.
type Job struct {
	// Workers bounds how many fetch pipelines may run at once.
	Workers int `env:"DESCARGO_JOB_WORKERS" envDefault:"2"`
}

// Dir holds directory paths for downloads and the origin cache.
type Dir struct {
	Downloads string `env:"DESCARGO_DIR_DOWNLOADS" envDefault:"./downloads"`  // all transient artifacts
	Cache     string `env:"DESCARGO_DIR_CACHE"     envDefault:"./data/cache"` // yt-dlp cache (meta, sigs)

	// must contain a cookies.txt file when set
	CookieFile string `env:"DESCARGO_DIR_COOKIE_FILE" envDefault:""`
}

// SetAbsPaths converts all directory paths to absolute paths.
func (d *Dir) SetAbsPaths() error {
	var err error
	if d.Downloads, err = filepath.Abs(d.Downloads); err != nil {
		return fmt.Errorf("downloads: %w", err)
	}

	if d.Cache, err = filepath.Abs(d.Cache); err != nil {
		return fmt.Errorf("cache: %w", err)
	}

	if d.CookieFile != "" {
		if d.CookieFile, err = filepath.Abs(d.CookieFile); err != nil {
			return fmt.Errorf("cookie file: %w", err)
		}
	}

	return nil
}

// Storage holds working-directory retention configuration.
type Storage struct {
	// TTL is how long a registered artifact may linger before the sweeper
	// removes it. Covers paths the caller never handed back to Cleanup.
	TTL             time.Duration `env:"DESCARGO_STORAGE_TTL"              envDefault:"24h"`
	CleanupInterval time.Duration `env:"DESCARGO_STORAGE_CLEANUP_INTERVAL" envDefault:"1h"`
}

// Catalog holds format discovery configuration.
type Catalog struct {
	// MaxFormats truncates the catalog response so selection UIs stay usable.
	MaxFormats int `env:"DESCARGO_CATALOG_MAX_FORMATS" envDefault:"5"`
	// TwitchMaxFormats truncates twitch responses separately.
	TwitchMaxFormats int `env:"DESCARGO_CATALOG_TWITCH_MAX_FORMATS" envDefault:"3"`
}

// Fetch holds transfer retry and normalization configuration.
type Fetch struct {
	// Attempts is the whole-request transfer budget, including the first try.
	Attempts   int           `env:"DESCARGO_FETCH_ATTEMPTS"    envDefault:"3"`
	Backoff    time.Duration `env:"DESCARGO_FETCH_BACKOFF"     envDefault:"2s"`
	MaxBackoff time.Duration `env:"DESCARGO_FETCH_MAX_BACKOFF" envDefault:"30s"`
	// FragmentRetries is handed to the origin tool as its per-fragment
	// budget; it is distinct from Attempts and never resets it.
	FragmentRetries string `env:"DESCARGO_FETCH_FRAGMENT_RETRIES" envDefault:"10"`
	// AudioBitrate is the fixed bitrate for extracted audio tracks.
	AudioBitrate string `env:"DESCARGO_FETCH_AUDIO_BITRATE" envDefault:"320k"`
}

// Limits holds the transport size policy. Tunable, not business logic.
type Limits struct {
	// HardCeiling is the platform maximum no deliverable may exceed.
	HardCeiling uint64 `env:"DESCARGO_LIMITS_HARD_CEILING" envDefault:"2147483648"` // 2 GiB
	// SplitThreshold is the recommended ceiling above which proactive
	// splitting occurs. Must stay below HardCeiling.
	SplitThreshold uint64 `env:"DESCARGO_LIMITS_SPLIT_THRESHOLD" envDefault:"1610612736"` // 1.5 GiB
	// SegmentSize is the per-segment byte target.
	SegmentSize uint64 `env:"DESCARGO_LIMITS_SEGMENT_SIZE" envDefault:"52428800"` // 50 MiB
	// MaxSegmentDuration bounds each segment in time regardless of bitrate.
	MaxSegmentDuration time.Duration `env:"DESCARGO_LIMITS_MAX_SEGMENT_DURATION" envDefault:"10m"`
}

// Timeouts holds the fixed deadlines for the three suspension points.
type Timeouts struct {
	Metadata time.Duration `env:"DESCARGO_TIMEOUT_METADATA" envDefault:"45s"`
	Transfer time.Duration `env:"DESCARGO_TIMEOUT_TRANSFER" envDefault:"30m"`
	Tool     time.Duration `env:"DESCARGO_TIMEOUT_TOOL"     envDefault:"10m"`
}

// DepManager holds binary dependency management configuration.
type DepManager struct {
	// BinsDir is the directory where downloaded binaries are stored.
	BinsDir string `env:"DESCARGO_DEPMANAGER_BINS_DIR" envDefault:"./bins"`
	// UseSystemBinaries looks up yt-dlp/ffmpeg/ffprobe in PATH instead of
	// downloading pinned builds.
	UseSystemBinaries bool `env:"DESCARGO_DEPMANAGER_USE_SYSTEM_BINARIES" envDefault:"true"`

	// ffmpeg build archives per platform.
	FFmpegLinuxARM64 string `env:"DESCARGO_DEPMANAGER_FFMPEG_LINUX_ARM64" envDefault:"https://github.com/BtbN/FFmpeg-Builds/releases/latest/download/ffmpeg-master-latest-linuxarm64-gpl.tar.xz"` //nolint:lll
	FFmpegLinuxAMD64 string `env:"DESCARGO_DEPMANAGER_FFMPEG_LINUX_AMD64" envDefault:"https://github.com/BtbN/FFmpeg-Builds/releases/latest/download/ffmpeg-master-latest-linux64-gpl.tar.xz"`    //nolint:lll

	// yt-dlp binaries per platform.
	YTdlpLinuxARM64 string `env:"DESCARGO_DEPMANAGER_YTDLP_LINUX_ARM64" envDefault:"https://github.com/yt-dlp/yt-dlp/releases/latest/download/yt-dlp_linux_aarch64"` //nolint:lll
	YTdlpLinuxAMD64 string `env:"DESCARGO_DEPMANAGER_YTDLP_LINUX_AMD64" envDefault:"https://github.com/yt-dlp/yt-dlp/releases/latest/download/yt-dlp_linux"`         //nolint:lll
}

// SetAbsPaths converts the BinsDir path to an absolute path.
func (d *DepManager) SetAbsPaths() error {
	var err error
	if d.BinsDir, err = filepath.Abs(d.BinsDir); err != nil {
		return fmt.Errorf("bins dir: %w", err)
	}

	return nil
}

// Proxy holds proxy configuration for origin downloads.
type Proxy struct {
	// URLs is a comma-separated list of proxy URLs (socks5h/http).
	URLs string `env:"DESCARGO_PROXY_URLS" envDefault:""`
	// HealthCheck enables a TCP connect check before handing out a proxy.
	HealthCheck   bool          `env:"DESCARGO_PROXY_HEALTH_CHECK"   envDefault:"true"`
	HealthTimeout time.Duration `env:"DESCARGO_PROXY_HEALTH_TIMEOUT" envDefault:"5s"`
}

// New loads configuration from environment variables.
func New() (*Config, error) {
	cfg := &Config{}

	err := env.Parse(cfg)
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err = cfg.Dir.SetAbsPaths(); err != nil {
		return nil, fmt.Errorf("set absolute paths: %w", err)
	}

	if err = cfg.DepManager.SetAbsPaths(); err != nil {
		return nil, fmt.Errorf("set dep manager absolute paths: %w", err)
	}

	if err = cfg.Limits.validate(); err != nil {
		return nil, fmt.Errorf("limits: %w", err)
	}

	return cfg, nil
}

func (l *Limits) validate() error {
	if l.SplitThreshold >= l.HardCeiling {
		return fmt.Errorf("split threshold %d must stay below hard ceiling %d", l.SplitThreshold, l.HardCeiling)
	}

	if l.SegmentSize == 0 {
		return fmt.Errorf("segment size must be positive")
	}

	return nil
}
