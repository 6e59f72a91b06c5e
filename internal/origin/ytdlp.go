package origin

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"descargo/internal/config"
	"descargo/internal/depmanager"
	"descargo/internal/entity"
	"descargo/internal/proxy"
	"descargo/pkg/calc"

	"github.com/lrstanley/go-ytdlp"
)

const defaultProgressFreq = 200 * time.Millisecond

var (
	maxJSONSize = 10 * 1024 * 1024 // 10 MiB scanner buffer
	bufSize     = 4096             // 4 KiB initial buffer

	// reFilepath matches a bare file path line printed by the tool, as
	// opposed to a JSON document or log noise.
	reFilepath = regexp.MustCompile(`(?i)^[^\{\[\n].*\.[a-z0-9]{1,6}$`)

	// changing this breaks ParseReportedPath.
	printAfterMove = "after_move:filepath"
)

// YTdlp implements Origin on top of the yt-dlp tool.
type YTdlp struct {
	log     *slog.Logger
	cfg     *config.Config
	deps    *depmanager.Manager
	proxies *proxy.Manager
}

// NewYTdlp creates a yt-dlp backed origin. deps supplies the managed binary
// path; proxies may be nil.
func NewYTdlp(log *slog.Logger, cfg *config.Config, deps *depmanager.Manager, proxies *proxy.Manager) *YTdlp {
	return &YTdlp{
		log:     log.With(slog.String("package", "origin")),
		cfg:     cfg,
		deps:    deps,
		proxies: proxies,
	}
}

// ExtractMetadata queries the origin for the full info document of ref
// without downloading payload bytes.
func (o *YTdlp) ExtractMetadata(ctx context.Context, ref entity.MediaReference) (*Metadata, error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.Timeouts.Metadata)
	defer cancel()

	command := ytdlp.New().
		NoPlaylist().
		SkipDownload().
		DumpJSON().
		CacheDir(o.cfg.Dir.Cache)

	command = o.applyCommon(ctx, command)

	res, err := command.Run(ctx, ref.URL)
	if err != nil {
		o.log.ErrorContext(ctx, "metadata query failed", slog.Any("error", err), slog.Any("reference", ref))

		return nil, fmt.Errorf("extract metadata: %w", err)
	}

	meta, err := ParseMetadata(res.Stdout)
	if err != nil {
		return nil, fmt.Errorf("parse metadata: %w", err)
	}

	return meta, nil
}

// Download transfers the chosen encoding and returns the path the tool
// reports having moved the artifact to.
func (o *YTdlp) Download(ctx context.Context, ref entity.MediaReference, formatID, template string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.Timeouts.Transfer)
	defer cancel()

	log := o.log

	progressFn := func(prog ytdlp.ProgressUpdate) {
		log.DebugContext(ctx, "transfer progress",
			slog.String("filename", prog.Filename),
			slog.Int("progress", calc.Progress(prog.DownloadedBytes, prog.TotalBytes)),
			slog.Int("fragment_index", prog.FragmentIndex),
			slog.Int("fragment_count", prog.FragmentCount),
			slog.String("eta", calc.ETA(prog.DownloadedBytes, prog.TotalBytes, prog.Started).String()))
	}

	command := ytdlp.New().
		NoPlaylist().
		Format(formatID).
		Output(template).
		CacheDir(o.cfg.Dir.Cache).
		FragmentRetries(o.cfg.Fetch.FragmentRetries).
		PrintJSON().Print(printAfterMove).
		ProgressFunc(defaultProgressFreq, progressFn)

	command = o.applyCommon(ctx, command)

	res, err := command.Run(ctx, ref.URL)
	if err != nil {
		log.ErrorContext(ctx, "transfer failed", slog.Any("error", err), slog.Any("reference", ref))

		return "", fmt.Errorf("download: %w", err)
	}

	path, ok := ParseReportedPath(res.Stdout)
	if !ok {
		log.WarnContext(ctx, "tool reported no output path", slog.Any("reference", ref))
	}

	return path, nil
}

// applyCommon wires the managed binary, cookies and a proxy into the command.
func (o *YTdlp) applyCommon(ctx context.Context, command *ytdlp.Command) *ytdlp.Command {
	if path := o.deps.InstalledPath(depmanager.BinaryYTdlp); path != "" {
		command = command.SetExecutable(path)
	}

	if path := o.deps.InstalledPath(depmanager.BinaryFFmpeg); path != "" {
		command = command.FFmpegLocation(path)
	}

	if o.cfg.Dir.CookieFile != "" {
		command = command.Cookies(o.cfg.Dir.CookieFile)
	}

	if o.proxies != nil && o.proxies.Count() > 0 {
		proxyURL, err := o.proxies.Get(ctx)
		if err != nil {
			o.log.WarnContext(ctx, "no healthy proxy", slog.Any("error", err))
		} else if proxyURL != "" {
			o.log.InfoContext(ctx, "using proxy", slog.String("proxy", proxyURL))
			command = command.Proxy(proxyURL)
		}
	}

	return command
}

// ParseMetadata extracts the first JSON info document from tool stdout.
func ParseMetadata(stdout string) (*Metadata, error) {
	scanner := bufio.NewScanner(strings.NewReader(stdout))
	scanner.Buffer(make([]byte, bufSize), maxJSONSize)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.HasPrefix(line, "{") {
			continue
		}

		var meta Metadata
		if err := json.Unmarshal([]byte(line), &meta); err == nil {
			return &meta, nil
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan stdout: %w", err)
	}

	return nil, fmt.Errorf("no metadata document in tool output")
}

// ParseReportedPath extracts the last bare file path line from tool stdout,
// which the after-move print emits once the artifact reaches its final name.
func ParseReportedPath(stdout string) (string, bool) {
	scanner := bufio.NewScanner(strings.NewReader(stdout))
	scanner.Buffer(make([]byte, bufSize), maxJSONSize)

	var (
		path  string
		found bool
	)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if reFilepath.MatchString(line) {
			path = line
			found = true
		}
	}

	return path, found
}
