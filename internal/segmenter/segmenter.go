// Package segmenter splits oversized artifacts into bounded, independently
// playable parts for sequential delivery.
package segmenter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"descargo/internal/config"
	"descargo/internal/entity"
	"descargo/internal/errs"
	"descargo/pkg/fname"
)

// SplitTool is the transcoding capability the segmenter needs.
type SplitTool interface {
	Duration(ctx context.Context, path string) (float64, error)
	Segment(ctx context.Context, src, pattern string, segmentTime time.Duration) error
}

// Splitter cuts one artifact into segments under a byte target.
type Splitter struct {
	log  *slog.Logger
	cfg  *config.Config
	tool SplitTool
}

// New creates a splitter.
func New(log *slog.Logger, cfg *config.Config, tool SplitTool) *Splitter {
	return &Splitter{
		log:  log.With(slog.String("package", "segmenter")),
		cfg:  cfg,
		tool: tool,
	}
}

// Split cuts the artifact at path into stream-copied segments of at most
// maxSegmentBytes each and returns them in playback order. The artifact
// itself is left in place; the caller owns both it and the segments.
func (s *Splitter) Split(ctx context.Context, path string, maxSegmentBytes uint64) (entity.SegmentSet, error) {
	if maxSegmentBytes == 0 {
		maxSegmentBytes = s.cfg.Limits.SegmentSize
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat artifact: %w", err)
	}

	duration, err := s.tool.Duration(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("probe duration: %w", err)
	}

	segmentTime := s.segmentTime(uint64(info.Size()), maxSegmentBytes, duration)

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	pattern := filepath.Join(dir, fname.PartPattern(stem, ext))

	s.log.InfoContext(ctx, "splitting artifact",
		slog.String("path", path),
		slog.Uint64("size", uint64(info.Size())),
		slog.Duration("segment_time", segmentTime))

	if err := s.tool.Segment(ctx, path, pattern, segmentTime); err != nil {
		return nil, err
	}

	return s.enumerate(dir, stem, ext)
}

// segmentTime derives the time bound that lands each segment under the byte
// target, capped by the absolute per-segment duration limit. Cutting by time
// alone blows the size target on bitrate spikes; cutting by the byte target
// alone can yield one giant piece when bitrate is low. Deriving time from
// measured average bitrate and capping it honors both.
func (s *Splitter) segmentTime(size, maxBytes uint64, duration float64) time.Duration {
	segmentTime := s.cfg.Limits.MaxSegmentDuration

	if size > maxBytes && duration > 0 {
		parts := (size + maxBytes - 1) / maxBytes
		derived := time.Duration(duration / float64(parts) * float64(time.Second))

		if derived < segmentTime {
			segmentTime = derived
		}
	}

	if segmentTime < time.Second {
		segmentTime = time.Second
	}

	return segmentTime
}

// enumerate scans the output directory for the naming pattern the tool was
// told to use. The tool exiting cleanly with nothing on disk is a failure,
// never an empty success.
func (s *Splitter) enumerate(dir, stem, ext string) (entity.SegmentSet, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scan output directory: %w", err)
	}

	listing := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			listing = append(listing, entry.Name())
		}
	}

	names := fname.Segments(listing, stem, ext)
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: %s", errs.ErrNoSegmentsProduced, stem)
	}

	total := uint32(len(names))
	set := make(entity.SegmentSet, 0, total)

	for i, name := range names {
		set = append(set, entity.Segment{
			Index: uint32(i + 1),
			Total: total,
			Path:  filepath.Join(dir, name),
		})
	}

	return set, nil
}
