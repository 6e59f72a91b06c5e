// Package storage owns the working directory for transient artifacts:
// creation, best-effort cleanup, and a retention sweeper for paths whose
// owner never came back for them.
package storage

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"descargo/internal/config"
)

const dirPerm = 0o755

// Storer manages transient artifact paths under the working directory.
type Storer struct {
	log *slog.Logger
	cfg *config.Config

	mu       sync.Mutex
	registry map[string]time.Time // path -> registration time
}

// New creates a storer and ensures the working directories exist.
func New(log *slog.Logger, cfg *config.Config) (*Storer, error) {
	for _, dir := range []string{cfg.Dir.Downloads, cfg.Dir.Cache} {
		if err := os.MkdirAll(dir, dirPerm); err != nil {
			return nil, err
		}
	}

	return &Storer{
		log:      log.With(slog.String("package", "storage")),
		cfg:      cfg,
		registry: make(map[string]time.Time),
	}, nil
}

// Dir returns the working directory all artifacts land in.
func (s *Storer) Dir() string {
	return s.cfg.Dir.Downloads
}

// Register records paths so the sweeper can reclaim them if their owner
// never hands them to Cleanup.
func (s *Storer) Register(paths ...string) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, path := range paths {
		if path != "" {
			s.registry[path] = now
		}
	}
}

// Cleanup removes paths best-effort. A missing file is fine; anything else
// is logged and swallowed so cleanup never masks the outcome of the work
// that produced the paths.
func (s *Storer) Cleanup(ctx context.Context, paths ...string) {
	s.mu.Lock()
	for _, path := range paths {
		delete(s.registry, path)
	}
	s.mu.Unlock()

	for _, path := range paths {
		if path == "" {
			continue
		}

		err := os.Remove(path)
		if err != nil && !os.IsNotExist(err) {
			s.log.WarnContext(ctx, "cleanup failed", slog.String("path", path), slog.Any("error", err))

			continue
		}

		s.log.DebugContext(ctx, "artifact removed", slog.String("path", path))
	}
}

// StartSweeper reclaims registered paths older than the retention TTL until
// ctx is done. It runs in its own goroutine.
func (s *Storer) StartSweeper(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.cfg.Storage.CleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweep(ctx)
			}
		}
	}()
}

func (s *Storer) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-s.cfg.Storage.TTL)

	s.mu.Lock()

	var expired []string

	for path, registered := range s.registry {
		if registered.Before(cutoff) {
			expired = append(expired, path)
		}
	}

	s.mu.Unlock()

	if len(expired) == 0 {
		return
	}

	s.log.InfoContext(ctx, "sweeping expired artifacts", slog.Int("count", len(expired)))
	s.Cleanup(ctx, expired...)
}
