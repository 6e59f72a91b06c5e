// Package fetcher executes the transfer of one chosen encoding: bounded
// retries, output normalization, and recovery of the file the tools actually
// left on disk.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"descargo/internal/config"
	"descargo/internal/consts"
	"descargo/internal/entity"
	"descargo/internal/errs"
	"descargo/internal/origin"
	"descargo/pkg/fname"
	"descargo/pkg/gen"
	"descargo/pkg/retry"
)

// candidateExts is the ordered set of extensions probed when the origin's
// predicted output name and the file on disk diverge.
var candidateExts = []string{".mp4", ".webm", ".mkv", ".m4a", ".mp3"}

// Normalizer is the transcoding capability the executor needs: lossless
// container rewrapping and audio extraction.
type Normalizer interface {
	Remux(ctx context.Context, src, dst string) error
	ExtractAudio(ctx context.Context, src, dst, bitrate string) error
}

// Executor fetches one encoding of a reference into the working directory.
type Executor struct {
	log  *slog.Logger
	cfg  *config.Config
	src  origin.Origin
	norm Normalizer
}

// New creates a fetch executor.
func New(log *slog.Logger, cfg *config.Config, src origin.Origin, norm Normalizer) *Executor {
	return &Executor{
		log:  log.With(slog.String("package", "fetcher")),
		cfg:  cfg,
		src:  src,
		norm: norm,
	}
}

// Fetch transfers the encoding chosen by formatID and returns the normalized
// artifact. On failure every partial file the attempt created is removed, so
// errors never leak disk state.
func (e *Executor) Fetch(ctx context.Context, ref entity.MediaReference, formatID string) (*entity.FetchResult, error) {
	meta, err := e.resolveFormat(ctx, ref, formatID)
	if err != nil {
		return nil, err
	}

	// Title-derived names collide across concurrent requests for the same
	// content, so every request gets its own token.
	stem := fmt.Sprintf("%s-[%s]-%s", fname.Sanitize(meta.Title), meta.ID, gen.Token())
	template := filepath.Join(e.cfg.Dir.Downloads, stem+".%(ext)s")

	result, err := e.transferAndNormalize(ctx, ref, formatID, stem, template)
	if err != nil {
		e.removePartials(ctx, stem)

		return nil, err
	}

	e.log.InfoContext(ctx, "fetch complete", slog.Any("result", result))

	return result, nil
}

// resolveFormat re-queries the origin so a stale selection from an earlier
// discovery fails fast instead of mid-transfer.
func (e *Executor) resolveFormat(ctx context.Context, ref entity.MediaReference, formatID string) (*origin.Metadata, error) {
	meta, err := e.src.ExtractMetadata(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrDiscovery, err)
	}

	// Selector expressions like "bestaudio/best" resolve at download time.
	if strings.Contains(formatID, "/") || strings.HasPrefix(formatID, "best") {
		return meta, nil
	}

	for _, f := range meta.Formats {
		if f.FormatID == formatID {
			return meta, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", errs.ErrStaleFormat, formatID)
}

func (e *Executor) transferAndNormalize(
	ctx context.Context,
	ref entity.MediaReference,
	formatID, stem, template string,
) (*entity.FetchResult, error) {
	var reported string

	policy := retry.Policy{
		Attempts:   e.cfg.Fetch.Attempts,
		Backoff:    e.cfg.Fetch.Backoff,
		MaxBackoff: e.cfg.Fetch.MaxBackoff,
		Retryable:  transient,
	}

	err := policy.Do(ctx, func(ctx context.Context) error {
		var downloadErr error
		reported, downloadErr = e.src.Download(ctx, ref, formatID, template)

		return downloadErr
	})
	if err != nil {
		// A non-transient error and caller cancellation keep their own
		// identity; everything else that outlasts the attempt budget is a
		// failed transfer.
		if ctx.Err() != nil || !transient(err) {
			return nil, err
		}

		return nil, fmt.Errorf("%w: %v", errs.ErrTransferFailed, err)
	}

	path, err := e.recoverOutput(stem, reported)
	if err != nil {
		return nil, err
	}

	path, err = e.normalize(ctx, ref, path, stem)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrOutputMissing, err)
	}

	return &entity.FetchResult{
		Path: path,
		Size: uint64(info.Size()),
		Ext:  filepath.Ext(path),
	}, nil
}

// transient reports whether a transfer error is worth another attempt.
// A broken tool or a stale selection cannot be fixed by retrying.
func transient(err error) bool {
	return !errors.Is(err, errs.ErrDependencyUnavailable) &&
		!errors.Is(err, errs.ErrStaleFormat)
}

// recoverOutput locates the file the transfer actually produced. The
// origin-reported path wins when it exists; otherwise the predicted stem is
// probed against the candidate extension set.
func (e *Executor) recoverOutput(stem, reported string) (string, error) {
	if reported != "" {
		if _, err := os.Stat(reported); err == nil {
			return reported, nil
		}
	}

	listing, err := listDir(e.cfg.Dir.Downloads)
	if err != nil {
		return "", fmt.Errorf("scan working directory: %w", err)
	}

	name, ok := fname.Resolve(stem, candidateExts, listing)
	if !ok {
		return "", fmt.Errorf("%w: %s", errs.ErrOutputMissing, stem)
	}

	return filepath.Join(e.cfg.Dir.Downloads, name), nil
}

// normalize rewraps the artifact into the canonical container: mp4 for
// video, mp3 at a fixed bitrate for audio-only fetches. Container-only
// changes are stream-copied; only audio extraction transcodes.
func (e *Executor) normalize(ctx context.Context, ref entity.MediaReference, path, stem string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))

	if ref.Platform == entity.PlatformSpotify {
		if ext == consts.ExtAudio {
			return path, nil
		}

		dst := filepath.Join(e.cfg.Dir.Downloads, stem+consts.ExtAudio)
		if err := e.norm.ExtractAudio(ctx, path, dst, e.cfg.Fetch.AudioBitrate); err != nil {
			return "", err
		}

		e.remove(ctx, path)

		return dst, nil
	}

	if ext == consts.ExtVideo {
		return path, nil
	}

	dst := filepath.Join(e.cfg.Dir.Downloads, stem+consts.ExtVideo)
	if err := e.norm.Remux(ctx, path, dst); err != nil {
		return "", err
	}

	e.remove(ctx, path)

	return dst, nil
}

// removePartials deletes whatever a failed attempt left behind: the artifact
// under any extension plus transient fragment files sharing the stem.
func (e *Executor) removePartials(ctx context.Context, stem string) {
	listing, err := listDir(e.cfg.Dir.Downloads)
	if err != nil {
		return
	}

	for _, name := range listing {
		if strings.HasPrefix(name, stem) {
			e.remove(ctx, filepath.Join(e.cfg.Dir.Downloads, name))
		}
	}
}

func (e *Executor) remove(ctx context.Context, path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		e.log.WarnContext(ctx, "remove failed", slog.String("path", path), slog.Any("error", err))
	}
}

func listDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}

	return names, nil
}
