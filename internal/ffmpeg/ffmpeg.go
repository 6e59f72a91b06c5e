// Package ffmpeg shells out to the transcoding tool for remuxing, audio
// extraction and stream-copy segmentation.
package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"descargo/internal/errs"
	"descargo/pkg/shellquote"
)

// stderrTailLen bounds how much tool stderr makes it into errors and logs.
const stderrTailLen = 512

// Runner drives ffmpeg and ffprobe subprocesses. All operations are
// stream-copy only; nothing here re-encodes video.
type Runner struct {
	log         *slog.Logger
	ffmpegPath  string
	ffprobePath string
	timeout     time.Duration
}

// New creates a runner. Paths may name bare binaries resolved via PATH.
func New(log *slog.Logger, ffmpegPath, ffprobePath string, timeout time.Duration) *Runner {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}

	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}

	return &Runner{
		log:         log.With(slog.String("package", "ffmpeg")),
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		timeout:     timeout,
	}
}

// Remux rewraps src into the container implied by dst without re-encoding.
func (r *Runner) Remux(ctx context.Context, src, dst string) error {
	return r.runFFmpeg(ctx, []string{
		"-y",
		"-i", src,
		"-c", "copy",
		dst,
	})
}

// ExtractAudio pulls the audio track out of src into dst at the given
// bitrate, e.g. "320k".
func (r *Runner) ExtractAudio(ctx context.Context, src, dst, bitrate string) error {
	return r.runFFmpeg(ctx, []string{
		"-y",
		"-i", src,
		"-vn",
		"-b:a", bitrate,
		dst,
	})
}

// Segment splits src into stream-copied pieces of at most segmentTime each,
// writing them according to pattern (a printf-style path such as
// "clip_part%03d.mp4"). Segment boundaries snap to keyframes, so actual
// pieces may run longer than asked; callers verify sizes afterwards.
func (r *Runner) Segment(ctx context.Context, src, pattern string, segmentTime time.Duration) error {
	seconds := segmentTime.Seconds()
	if seconds < 1 {
		seconds = 1
	}

	return r.runFFmpeg(ctx, []string{
		"-y",
		"-i", src,
		"-c", "copy",
		"-map", "0",
		"-f", "segment",
		"-segment_time", strconv.FormatFloat(seconds, 'f', -1, 64),
		"-reset_timestamps", "1",
		pattern,
	})
}

// Duration reports the container duration of path in seconds.
func (r *Runner) Duration(ctx context.Context, path string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}

	stdout, err := r.run(ctx, r.ffprobePath, args)
	if err != nil {
		return 0, err
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(stdout), 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", strings.TrimSpace(stdout), err)
	}

	return duration, nil
}

func (r *Runner) runFFmpeg(ctx context.Context, args []string) error {
	// -nostdin keeps ffmpeg from eating the parent's stdin on prompts.
	_, err := r.run(ctx, r.ffmpegPath, append([]string{"-nostdin"}, args...))

	return err
}

func (r *Runner) run(ctx context.Context, bin string, args []string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	log := r.log

	log.DebugContext(ctx, "running tool", slog.String("cmd", shellquote.Join(bin, args)))

	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()

	err := cmd.Run()
	if err != nil {
		tail := stderrTail(stderr.String())

		log.ErrorContext(ctx, "tool failed",
			slog.String("bin", bin),
			slog.String("stderr", tail),
			slog.Any("error", err))

		if errors.Is(err, exec.ErrNotFound) {
			return "", fmt.Errorf("%w: %s", errs.ErrDependencyUnavailable, bin)
		}

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("%w: exit %d: %s", errs.ErrToolFailed, exitErr.ExitCode(), tail)
		}

		return "", fmt.Errorf("%w: %v", errs.ErrToolFailed, err)
	}

	log.DebugContext(ctx, "tool finished",
		slog.String("bin", bin),
		slog.Duration("took", time.Since(start)))

	return stdout.String(), nil
}

func stderrTail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= stderrTailLen {
		return s
	}

	return s[len(s)-stderrTailLen:]
}
