// Package service orchestrates the request pipeline: discover, fetch,
// split when oversized, clean up.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"descargo/internal/config"
	"descargo/internal/entity"
	"descargo/internal/errs"
	"descargo/internal/observability"
	"descargo/pkg/gen"
)

// Discoverer lists deliverable formats for a reference.
type Discoverer interface {
	Discover(ctx context.Context, ref entity.MediaReference) ([]entity.FormatDescriptor, error)
}

// Fetcher transfers and normalizes one chosen encoding.
type Fetcher interface {
	Fetch(ctx context.Context, ref entity.MediaReference, formatID string) (*entity.FetchResult, error)
}

// Splitter cuts an oversized artifact into bounded segments.
type Splitter interface {
	Split(ctx context.Context, path string, maxSegmentBytes uint64) (entity.SegmentSet, error)
}

// Prober reports whether the transcoding tool is functional.
type Prober interface {
	Probe(ctx context.Context) bool
}

// Storer tracks and removes transient artifacts.
type Storer interface {
	Register(paths ...string)
	Cleanup(ctx context.Context, paths ...string)
}

// Service runs request pipelines with bounded concurrency. Requests share
// nothing but the working directory; artifact names are request-unique.
type Service struct {
	log      *slog.Logger
	cfg      *config.Config
	catalog  Discoverer
	fetcher  Fetcher
	splitter Splitter
	prober   Prober
	storer   Storer
	metrics  *observability.Metrics

	workers chan struct{}
}

// New creates the pipeline service.
func New(
	log *slog.Logger,
	cfg *config.Config,
	catalog Discoverer,
	fetcher Fetcher,
	splitter Splitter,
	prober Prober,
	storer Storer,
	metrics *observability.Metrics,
) *Service {
	return &Service{
		log:      log.With(slog.String("package", "service")),
		cfg:      cfg,
		catalog:  catalog,
		fetcher:  fetcher,
		splitter: splitter,
		prober:   prober,
		storer:   storer,
		metrics:  metrics,
		workers:  make(chan struct{}, cfg.Job.Workers),
	}
}

// Discover validates raw as a media reference and lists its formats. A nil
// error with an empty list means nothing playable was found.
func (s *Service) Discover(ctx context.Context, raw string) ([]entity.FormatDescriptor, error) {
	ref, err := entity.NewMediaReference(raw)
	if err != nil {
		return nil, err
	}

	return s.catalog.Discover(ctx, ref)
}

// Fetch runs the full pipeline for one chosen encoding: probe, transfer,
// normalize, split when the artifact exceeds the split threshold. The
// returned delivery's paths belong to the caller; hand them to Cleanup once
// delivered.
func (s *Service) Fetch(ctx context.Context, raw, formatID string) (*entity.Delivery, error) {
	select {
	case s.workers <- struct{}{}:
	default:
		return nil, errs.ErrBusy
	}
	defer func() { <-s.workers }()

	ref, err := entity.NewMediaReference(raw)
	if err != nil {
		return nil, err
	}

	// The job id is derived, not random, so repeated requests for the same
	// selection correlate across log lines.
	log := s.log.With(slog.String("job_id", gen.UUIDv5(raw, formatID)))
	log.InfoContext(ctx, "job accepted", slog.Any("reference", ref), slog.String("format_id", formatID))

	s.metrics.JobStarted()
	defer s.metrics.JobFinished()

	start := time.Now()

	delivery, err := s.fetch(ctx, ref, formatID)
	if err != nil {
		s.metrics.RecordFetch("error", time.Since(start))
		log.ErrorContext(ctx, "job failed", slog.Any("error", err))

		return nil, err
	}

	s.metrics.RecordFetch("ok", time.Since(start))
	log.InfoContext(ctx, "job finished", slog.Duration("took", time.Since(start)))

	return delivery, nil
}

func (s *Service) fetch(ctx context.Context, ref entity.MediaReference, formatID string) (*entity.Delivery, error) {
	// A broken tool fails here, before minutes of transfer, not after.
	if !s.prober.Probe(ctx) {
		return nil, errs.ErrDependencyUnavailable
	}

	result, err := s.fetcher.Fetch(ctx, ref, formatID)
	if err != nil {
		return nil, err
	}

	s.storer.Register(result.Path)

	delivery := &entity.Delivery{Result: *result}

	if result.Size > s.cfg.Limits.SplitThreshold {
		segments, err := s.split(ctx, result)
		if err != nil {
			s.storer.Cleanup(ctx, result.Path)

			return nil, err
		}

		delivery.Segments = segments
	}

	if err := s.checkCeiling(delivery); err != nil {
		s.storer.Cleanup(ctx, delivery.Paths()...)

		return nil, err
	}

	s.log.InfoContext(ctx, "pipeline complete", slog.Any("delivery", delivery))

	return delivery, nil
}

func (s *Service) split(ctx context.Context, result *entity.FetchResult) (entity.SegmentSet, error) {
	segments, err := s.splitter.Split(ctx, result.Path, s.cfg.Limits.SegmentSize)
	if err != nil {
		return nil, err
	}

	s.storer.Register(segments.Paths()...)
	s.metrics.RecordSegments(len(segments))

	return segments, nil
}

// checkCeiling rejects any deliverable above the platform maximum. When the
// artifact was split, the segments are the deliverables, not the original.
func (s *Service) checkCeiling(delivery *entity.Delivery) error {
	if len(delivery.Segments) == 0 {
		if delivery.Result.Size > s.cfg.Limits.HardCeiling {
			return fmt.Errorf("%w: %d bytes", errs.ErrTooLarge, delivery.Result.Size)
		}

		return nil
	}

	for _, seg := range delivery.Segments {
		info, err := os.Stat(seg.Path)
		if err != nil {
			return fmt.Errorf("stat segment %d: %w", seg.Index, err)
		}

		if uint64(info.Size()) > s.cfg.Limits.HardCeiling {
			return fmt.Errorf("%w: segment %d is %d bytes", errs.ErrTooLarge, seg.Index, info.Size())
		}
	}

	return nil
}

// Split exposes segmentation directly for callers holding an artifact.
func (s *Service) Split(ctx context.Context, path string, maxSegmentBytes uint64) (entity.SegmentSet, error) {
	segments, err := s.splitter.Split(ctx, path, maxSegmentBytes)
	if err != nil {
		return nil, err
	}

	s.storer.Register(segments.Paths()...)
	s.metrics.RecordSegments(len(segments))

	return segments, nil
}

// Cleanup removes delivered artifacts best-effort.
func (s *Service) Cleanup(ctx context.Context, paths ...string) {
	s.storer.Cleanup(ctx, paths...)
}

// Ready reports whether the external tooling is functional.
func (s *Service) Ready(ctx context.Context) bool {
	return s.prober.Probe(ctx)
}
