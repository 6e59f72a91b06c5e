// Package depmanager manages the external tool binaries the pipeline shells
// out to. It either resolves system-installed yt-dlp/ffmpeg/ffprobe or
// downloads pinned builds into a local bins directory.
package depmanager

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"descargo/internal/config"
	"descargo/internal/errs"

	"github.com/ulikunitz/xz"
)

// BinaryName represents the name of a binary dependency.
type BinaryName string

// Binary dependency names.
const (
	// BinaryYTdlp is the origin tool.
	BinaryYTdlp BinaryName = "yt-dlp"
	// BinaryFFmpeg is the transcoding tool.
	BinaryFFmpeg BinaryName = "ffmpeg"
	// BinaryFFprobe inspects artifacts for the segmenter.
	BinaryFFprobe BinaryName = "ffprobe"
)

const (
	platformLinux   = "linux"
	platformWindows = "windows"
	archARM64       = "arm64"
	archAMD64       = "amd64"
)

const (
	// downloadTimeout is the HTTP client timeout for downloading binaries.
	downloadTimeout = 10 * time.Minute
	// probeTimeout bounds one version invocation.
	probeTimeout = 15 * time.Second
	// filePermExecutable is the file permission for executable binaries.
	filePermExecutable = 0o755
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
	cfg      *config.Config
	platform Platform
	client   *http.Client

	mu       sync.RWMutex
	binPaths map[BinaryName]string // binary name -> resolved path
}

// New creates a new dependency manager.
func New(log *slog.Logger, cfg *config.Config) *Manager {
	return &Manager{
		log: log.With(slog.String("package", "depmanager")),
		cfg: cfg,
		platform: Platform{
			OS:   runtime.GOOS,
			Arch: runtime.GOARCH,
		},
		client: &http.Client{
			Timeout: downloadTimeout,
		},
		binPaths: make(map[BinaryName]string),
	}
}

// Start resolves all binaries, downloading them when the configuration does
// not point at system installs.
func (m *Manager) Start(ctx context.Context) error {
	if m.cfg.DepManager.UseSystemBinaries {
		return m.SetSystemBinaries()
	}

	return m.InstallAll(ctx)
}

// SetSystemBinaries resolves every binary from the system PATH.
func (m *Manager) SetSystemBinaries() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, binary := range []BinaryName{BinaryYTdlp, BinaryFFmpeg, BinaryFFprobe} {
		path, err := exec.LookPath(string(binary))
		if err != nil {
			return fmt.Errorf("%s not found in system PATH: %w", binary, err)
		}

		m.binPaths[binary] = path
	}

	return nil
}

// InstallAll downloads missing binaries into the bins directory. Binaries
// already present are kept.
func (m *Manager) InstallAll(ctx context.Context) error {
	log := m.log

	err := os.MkdirAll(m.cfg.DepManager.BinsDir, filePermExecutable)
	if err != nil {
		return fmt.Errorf("create bins directory: %w", err)
	}

	for _, binary := range []BinaryName{BinaryFFmpeg, BinaryYTdlp} {
		if m.binaryExists(binary) {
			m.setBinaryPath(binary)
			log.DebugContext(ctx, "binary already exists", slog.String("binary", string(binary)))

			continue
		}

		if err := m.downloadAndInstall(ctx, binary); err != nil {
			return fmt.Errorf("download and install %s: %w", binary, err)
		}
	}

	// ffprobe ships inside the ffmpeg archive.
	if m.binaryExists(BinaryFFprobe) {
		m.setBinaryPath(BinaryFFprobe)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	log.InfoContext(ctx, "all binaries are installed", slog.Any("binaries", m.binPaths))

	return nil
}

// InstalledPath returns the resolved path for a binary, or empty when the
// binary is not available.
func (m *Manager) InstalledPath(name BinaryName) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.binPaths[name]
}

// Probe verifies that the transcoding tools start and exit cleanly when
// invoked with a version argument. A false result must reach the user as an
// actionable warning before any expensive work begins.
func (m *Manager) Probe(ctx context.Context) bool {
	checks := map[BinaryName]string{
		BinaryFFmpeg:  "-version",
		BinaryFFprobe: "-version",
	}

	for binary, arg := range checks {
		path := m.InstalledPath(binary)
		if path == "" {
			path = string(binary)
		}

		probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
		err := exec.CommandContext(probeCtx, path, arg).Run()

		cancel()

		if err != nil {
			m.log.WarnContext(ctx, "probe failed",
				slog.String("binary", string(binary)),
				slog.Any("error", err))

			return false
		}
	}

	return true
}

// BinaryPath returns the managed location for a binary inside the bins dir.
func (m *Manager) BinaryPath(name BinaryName) string {
	filename := string(name)
	if m.platform.OS == platformWindows {
		filename += ".exe"
	}

	return filepath.Join(m.cfg.DepManager.BinsDir, filename)
}

func (m *Manager) binaryExists(name BinaryName) bool {
	info, err := os.Stat(m.BinaryPath(name))

	return err == nil && !info.IsDir()
}

func (m *Manager) setBinaryPath(name BinaryName) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.binPaths[name] = m.BinaryPath(name)
}

// DownloadURL returns the download source for a binary on the current
// platform.
func (m *Manager) DownloadURL(name BinaryName) (string, error) {
	if m.platform.OS != platformLinux {
		return "", fmt.Errorf("%w: %s", errs.ErrDependencyUnavailable, m.platform)
	}

	urls := map[BinaryName]map[string]string{
		BinaryFFmpeg: {
			archAMD64: m.cfg.DepManager.FFmpegLinuxAMD64,
			archARM64: m.cfg.DepManager.FFmpegLinuxARM64,
		},
		BinaryYTdlp: {
			archAMD64: m.cfg.DepManager.YTdlpLinuxAMD64,
			archARM64: m.cfg.DepManager.YTdlpLinuxARM64,
		},
	}

	url := urls[name][m.platform.Arch]
	if url == "" {
		return "", fmt.Errorf("no download URL for %s on %s", name, m.platform)
	}

	return url, nil
}

func (m *Manager) downloadAndInstall(ctx context.Context, name BinaryName) error {
	url, err := m.DownloadURL(name)
	if err != nil {
		return err
	}

	m.log.InfoContext(ctx, "downloading binary",
		slog.String("binary", string(name)),
		slog.String("url", url))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: unexpected status %d", name, resp.StatusCode)
	}

	if name == BinaryFFmpeg {
		return m.installFFmpegArchive(resp.Body)
	}

	return m.installRaw(name, resp.Body)
}

// installFFmpegArchive extracts ffmpeg and ffprobe from a .tar.xz build
// archive into the bins directory.
func (m *Manager) installFFmpegArchive(r io.Reader) error {
	xzReader, err := xz.NewReader(r)
	if err != nil {
		return fmt.Errorf("open xz stream: %w", err)
	}

	tarReader := tar.NewReader(xzReader)
	wanted := map[string]BinaryName{
		string(BinaryFFmpeg):  BinaryFFmpeg,
		string(BinaryFFprobe): BinaryFFprobe,
	}

	installed := 0

	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}

		if err != nil {
			return fmt.Errorf("read tar stream: %w", err)
		}

		if header.Typeflag != tar.TypeReg {
			continue
		}

		base := filepath.Base(header.Name)

		binary, ok := wanted[base]
		if !ok || !strings.Contains(header.Name, "/bin/") {
			continue
		}

		if err := m.writeExecutable(m.BinaryPath(binary), tarReader); err != nil {
			return fmt.Errorf("install %s: %w", binary, err)
		}

		m.setBinaryPath(binary)

		installed++
		if installed == len(wanted) {
			break
		}
	}

	if installed == 0 {
		return fmt.Errorf("archive contained no ffmpeg binaries")
	}

	return nil
}

// installRaw writes a standalone binary straight to the bins directory.
func (m *Manager) installRaw(name BinaryName, r io.Reader) error {
	if err := m.writeExecutable(m.BinaryPath(name), r); err != nil {
		return fmt.Errorf("install %s: %w", name, err)
	}

	m.setBinaryPath(name)

	return nil
}

func (m *Manager) writeExecutable(path string, r io.Reader) error {
	tmp := path + ".tmp"

	file, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePermExecutable)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}

	_, err = io.Copy(file, r)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		os.Remove(tmp)

		return fmt.Errorf("write %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)

		return fmt.Errorf("rename %s: %w", tmp, err)
	}

	return nil
}
