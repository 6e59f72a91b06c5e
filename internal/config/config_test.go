package config_test

import (
	"path/filepath"
	"testing"
	"time"

	"descargo/internal/config"
)

func TestNewDefaults(t *testing.T) {
	cfg, err := config.New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if cfg.Job.Workers != 2 {
		t.Errorf("workers = %d, want 2", cfg.Job.Workers)
	}

	if cfg.Fetch.Attempts != 3 {
		t.Errorf("fetch attempts = %d, want 3", cfg.Fetch.Attempts)
	}

	if cfg.Limits.HardCeiling != 2*1024*1024*1024 {
		t.Errorf("hard ceiling = %d, want 2 GiB", cfg.Limits.HardCeiling)
	}

	if cfg.Limits.SplitThreshold >= cfg.Limits.HardCeiling {
		t.Error("split threshold must stay below the hard ceiling")
	}

	if cfg.Limits.MaxSegmentDuration != 10*time.Minute {
		t.Errorf("max segment duration = %v, want 10m", cfg.Limits.MaxSegmentDuration)
	}

	for name, dir := range map[string]string{
		"downloads": cfg.Dir.Downloads,
		"cache":     cfg.Dir.Cache,
		"bins":      cfg.DepManager.BinsDir,
	} {
		if !filepath.IsAbs(dir) {
			t.Errorf("%s dir %q is not absolute", name, dir)
		}
	}
}

func TestNewOverrides(t *testing.T) {
	t.Setenv("DESCARGO_JOB_WORKERS", "7")
	t.Setenv("DESCARGO_FETCH_FRAGMENT_RETRIES", "25")

	cfg, err := config.New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if cfg.Job.Workers != 7 {
		t.Errorf("workers = %d, want 7", cfg.Job.Workers)
	}

	if cfg.Fetch.FragmentRetries != "25" {
		t.Errorf("fragment retries = %q, want 25", cfg.Fetch.FragmentRetries)
	}
}

func TestNewRejectsInvertedLimits(t *testing.T) {
	t.Setenv("DESCARGO_LIMITS_SPLIT_THRESHOLD", "2147483648")

	if _, err := config.New(); err == nil {
		t.Fatal("expected an error when the split threshold reaches the hard ceiling")
	}
}

func TestNewRejectsZeroSegmentSize(t *testing.T) {
	t.Setenv("DESCARGO_LIMITS_SEGMENT_SIZE", "0")

	if _, err := config.New(); err == nil {
		t.Fatal("expected an error for a zero segment size")
	}
}
