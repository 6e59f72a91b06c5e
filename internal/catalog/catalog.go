// Package catalog turns raw origin metadata into a bounded, ordered list of
// deliverable encodings the caller can choose from.
package catalog

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"

	"descargo/internal/config"
	"descargo/internal/entity"
	"descargo/internal/errs"
	"descargo/internal/origin"
	"descargo/pkg/estimate"
	"descargo/pkg/ptr"
)

// allowedContainers lists the containers a progressive format may ship in.
var allowedContainers = map[string]struct{}{
	"mp4":  {},
	"webm": {},
}

// bestAudioFormatID asks the origin for its highest-bitrate audio track.
const bestAudioFormatID = "bestaudio/best"

// Catalog discovers deliverable formats for a reference.
type Catalog struct {
	log *slog.Logger
	cfg *config.Config
	src origin.Origin
}

// New creates a catalog backed by the given origin.
func New(log *slog.Logger, cfg *config.Config, src origin.Origin) *Catalog {
	return &Catalog{
		log: log.With(slog.String("package", "catalog")),
		cfg: cfg,
		src: src,
	}
}

// Discover queries the origin for ref and returns a filtered, deduplicated,
// size-ranked list of format descriptors. An empty list is a valid outcome
// meaning nothing playable survived filtering, not a failure.
func (c *Catalog) Discover(ctx context.Context, ref entity.MediaReference) ([]entity.FormatDescriptor, error) {
	meta, err := c.src.ExtractMetadata(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrDiscovery, err)
	}

	var descriptors []entity.FormatDescriptor

	switch ref.Platform {
	case entity.PlatformSpotify:
		descriptors = audioOnly()
	default:
		descriptors = progressive(meta, ref.Platform)
	}

	descriptors = dedupeByLabel(rank(descriptors))

	limit := c.cfg.Catalog.MaxFormats
	if ref.Platform == entity.PlatformTwitch {
		limit = c.cfg.Catalog.TwitchMaxFormats
	}

	if len(descriptors) > limit {
		descriptors = descriptors[:limit]
	}

	c.log.InfoContext(ctx, "formats discovered",
		slog.Any("reference", ref),
		slog.Int("count", len(descriptors)))

	return descriptors, nil
}

// progressive keeps formats carrying both a video and an audio track in an
// allowed container, the only shape deliverable as a single file.
func progressive(meta *origin.Metadata, platform entity.Platform) []entity.FormatDescriptor {
	var out []entity.FormatDescriptor

	for _, f := range meta.Formats {
		if !f.HasVideo() || !f.HasAudio() {
			continue
		}

		if _, ok := allowedContainers[f.Ext]; !ok {
			continue
		}

		out = append(out, describe(f, meta, platform))
	}

	return out
}

// audioOnly yields a single best-audio descriptor. Spotify-derived references
// arrive already resolved to a playable URL and only ever want the track.
func audioOnly() []entity.FormatDescriptor {
	return []entity.FormatDescriptor{{
		FormatID: bestAudioFormatID,
		Label:    "audio 320kbps",
		Ext:      "mp3",
	}}
}

func describe(f origin.Format, meta *origin.Metadata, platform entity.Platform) entity.FormatDescriptor {
	desc := entity.FormatDescriptor{
		FormatID:   f.FormatID,
		Label:      label(f),
		Ext:        f.Ext,
		VideoCodec: ptr.Deref(f.VCodec),
		AudioCodec: ptr.Deref(f.ACodec),
	}

	switch {
	case f.Filesize != nil && *f.Filesize > 0:
		desc.EstimatedSize = uint64(*f.Filesize)
	case f.FilesizeApprox != nil && *f.FilesizeApprox > 0:
		desc.EstimatedSize = uint64(*f.FilesizeApprox)
	case platform == entity.PlatformTwitch && f.TBR != nil:
		// Twitch reports bandwidth reliably; duration-scaled bitrate beats
		// the resolution heuristic there.
		desc.EstimatedSize = bitrateSize(*f.TBR, meta.Duration)
		desc.SizeIsEstimate = true
	default:
		desc.EstimatedSize = estimateSize(f)
		desc.SizeIsEstimate = true
	}

	return desc
}

func label(f origin.Format) string {
	if f.Height != nil && *f.Height > 0 {
		return strconv.Itoa(*f.Height) + "p"
	}

	if f.FormatNote != "" {
		return f.FormatNote
	}

	return f.Ext
}

// rank orders descriptors by size descending. The tie-break on format id
// keeps repeated discoveries on the same metadata byte-identical.
func rank(descriptors []entity.FormatDescriptor) []entity.FormatDescriptor {
	slices.SortStableFunc(descriptors, func(a, b entity.FormatDescriptor) int {
		if n := cmp.Compare(b.EstimatedSize, a.EstimatedSize); n != 0 {
			return n
		}

		return cmp.Compare(a.FormatID, b.FormatID)
	})

	return descriptors
}

// dedupeByLabel keeps the first (best-ranked) descriptor per quality label.
func dedupeByLabel(descriptors []entity.FormatDescriptor) []entity.FormatDescriptor {
	seen := make(map[string]struct{}, len(descriptors))
	out := descriptors[:0]

	for _, d := range descriptors {
		if _, ok := seen[d.Label]; ok {
			continue
		}

		seen[d.Label] = struct{}{}
		out = append(out, d)
	}

	return out
}

// bitrateSize scales a known bandwidth over the real duration, falling back
// to the heuristic's assumed duration when the origin omits it.
func bitrateSize(kbps, durationS float64) uint64 {
	if durationS <= 0 {
		durationS = estimate.AssumedDurationS
	}

	return uint64(kbps * 1000 / 8 * durationS)
}

func estimateSize(f origin.Format) uint64 {
	return estimate.Size(
		ptr.Deref(f.Width),
		ptr.Deref(f.Height),
		ptr.Deref(f.FPS),
		ptr.Deref(f.TBR),
		ptr.Deref(f.VBR),
		ptr.Deref(f.ABR),
	)
}
