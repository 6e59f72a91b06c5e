package segmenter_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"descargo/internal/config"
	"descargo/internal/errs"
	"descargo/internal/segmenter"
)

type fakeTool struct {
	duration float64
	durErr   error
	segErr   error
	parts    int

	gotSegmentTime time.Duration
}

func (f *fakeTool) Duration(context.Context, string) (float64, error) {
	return f.duration, f.durErr
}

func (f *fakeTool) Segment(_ context.Context, _, pattern string, segmentTime time.Duration) error {
	f.gotSegmentTime = segmentTime
	if f.segErr != nil {
		return f.segErr
	}

	for i := range f.parts {
		path := fmt.Sprintf(pattern, i)
		if err := os.WriteFile(path, []byte("seg"), 0o644); err != nil {
			return err
		}
	}

	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Limits: config.Limits{
			SegmentSize:        50 * 1024 * 1024,
			MaxSegmentDuration: 10 * time.Minute,
		},
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func writeArtifact(t *testing.T, dir string, size int) string {
	t.Helper()

	path := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}

	return path
}

func TestSplitProducesContiguousSet(t *testing.T) {
	dir := t.TempDir()
	path := writeArtifact(t, dir, 100)

	// 100 bytes at a 10 byte target across 100s: ten 10s segments.
	tool := &fakeTool{duration: 100, parts: 10}
	s := segmenter.New(testLogger(), testConfig(), tool)

	set, err := s.Split(t.Context(), path, 10)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}

	if len(set) != 10 {
		t.Fatalf("got %d segments, want 10", len(set))
	}

	if tool.gotSegmentTime != 10*time.Second {
		t.Errorf("segment time = %v, want 10s", tool.gotSegmentTime)
	}

	for i, seg := range set {
		if seg.Index != uint32(i+1) {
			t.Errorf("segments[%d].Index = %d, want %d", i, seg.Index, i+1)
		}

		if seg.Total != 10 {
			t.Errorf("segments[%d].Total = %d, want 10", i, seg.Total)
		}

		if _, err := os.Stat(seg.Path); err != nil {
			t.Errorf("segments[%d] path missing: %v", i, err)
		}
	}
}

func TestSplitEmptyOutputIsError(t *testing.T) {
	dir := t.TempDir()
	path := writeArtifact(t, dir, 100)

	tool := &fakeTool{duration: 100, parts: 0}
	s := segmenter.New(testLogger(), testConfig(), tool)

	_, err := s.Split(t.Context(), path, 10)
	if !errors.Is(err, errs.ErrNoSegmentsProduced) {
		t.Fatalf("error = %v, want ErrNoSegmentsProduced", err)
	}
}

func TestSplitSegmentTimeRespectsDurationCap(t *testing.T) {
	dir := t.TempDir()
	path := writeArtifact(t, dir, 20)

	// Two parts over nearly three hours would run 83 minutes each; the
	// per-segment duration cap must win.
	tool := &fakeTool{duration: 10000, parts: 2}
	s := segmenter.New(testLogger(), testConfig(), tool)

	if _, err := s.Split(t.Context(), path, 10); err != nil {
		t.Fatalf("Split: %v", err)
	}

	if tool.gotSegmentTime != 10*time.Minute {
		t.Errorf("segment time = %v, want the 10m cap", tool.gotSegmentTime)
	}
}

func TestSplitToolFailure(t *testing.T) {
	dir := t.TempDir()
	path := writeArtifact(t, dir, 100)

	tool := &fakeTool{duration: 100, segErr: fmt.Errorf("%w: exit 1", errs.ErrToolFailed)}
	s := segmenter.New(testLogger(), testConfig(), tool)

	_, err := s.Split(t.Context(), path, 10)
	if !errors.Is(err, errs.ErrToolFailed) {
		t.Fatalf("error = %v, want ErrToolFailed", err)
	}
}

func TestSplitDurationProbeFailure(t *testing.T) {
	dir := t.TempDir()
	path := writeArtifact(t, dir, 100)

	tool := &fakeTool{durErr: fmt.Errorf("%w: ffprobe", errs.ErrDependencyUnavailable)}
	s := segmenter.New(testLogger(), testConfig(), tool)

	_, err := s.Split(t.Context(), path, 10)
	if !errors.Is(err, errs.ErrDependencyUnavailable) {
		t.Fatalf("error = %v, want ErrDependencyUnavailable", err)
	}
}

func TestSplitMissingArtifact(t *testing.T) {
	s := segmenter.New(testLogger(), testConfig(), &fakeTool{})

	if _, err := s.Split(t.Context(), filepath.Join(t.TempDir(), "missing.mp4"), 10); err == nil {
		t.Fatal("expected an error for a missing artifact")
	}
}
