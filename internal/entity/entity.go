// Package entity defines the core entities passed between pipeline stages.
// All of them are transient and scoped to one request.
package entity

import (
	"log/slog"
	"strings"

	"descargo/internal/errs"
	"descargo/pkg/urls"
)

// Platform tags a media reference with the origin family it came from.
type Platform string

const (
	// PlatformGeneric covers origins with progressive video formats.
	PlatformGeneric Platform = "generic"
	// PlatformTwitch covers Twitch VODs and clips, whose quality is read
	// from the reported vertical resolution.
	PlatformTwitch Platform = "twitch"
	// PlatformSpotify covers spotify-derived references: the caller has
	// already resolved a track to a playable reference and wants audio.
	PlatformSpotify Platform = "spotify"
)

// MediaReference is an opaque origin URL plus its platform tag. Immutable
// once created; consumed once per discovery call and once per fetch call.
type MediaReference struct {
	URL      string   `json:"url"`
	Platform Platform `json:"platform"`
}

// NewMediaReference validates raw and tags it with the detected platform.
func NewMediaReference(raw string) (MediaReference, error) {
	raw = urls.Normalize(raw)
	if !urls.IsValid(raw) {
		return MediaReference{}, errs.ErrInvalidReference
	}

	return MediaReference{URL: raw, Platform: DetectPlatform(raw)}, nil
}

// DetectPlatform maps a URL host onto a platform tag.
func DetectPlatform(raw string) Platform {
	host := urls.Hostname(raw)

	switch {
	case host == "twitch.tv" || strings.HasSuffix(host, ".twitch.tv"):
		return PlatformTwitch
	case host == "spotify.com" || strings.HasSuffix(host, ".spotify.com"):
		return PlatformSpotify
	default:
		return PlatformGeneric
	}
}

// LogValue implements slog.LogValuer.
func (r MediaReference) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("url", r.URL),
		slog.String("platform", string(r.Platform)),
	)
}

// FormatDescriptor describes one deliverable encoding offered by the origin.
type FormatDescriptor struct {
	// FormatID is opaque and origin-defined, unique within one catalog
	// response, and round-trips into the fetch call.
	FormatID string `json:"formatId"`
	// Label is the human-readable quality, e.g. "1080p".
	Label string `json:"label"`
	// Ext is the container extension without dot, e.g. "mp4".
	Ext string `json:"ext"`
	// EstimatedSize is a byte figure for ranking and display. Zero means
	// unknown. Never authoritative.
	EstimatedSize uint64 `json:"estimatedSize"`
	// SizeIsEstimate is set when EstimatedSize came from the heuristic
	// rather than the origin.
	SizeIsEstimate bool   `json:"sizeIsEstimate"`
	VideoCodec     string `json:"videoCodec,omitempty"`
	AudioCodec     string `json:"audioCodec,omitempty"`
}

// LogValue implements slog.LogValuer.
func (f FormatDescriptor) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("format_id", f.FormatID),
		slog.String("label", f.Label),
		slog.String("ext", f.Ext),
		slog.Uint64("estimated_size", f.EstimatedSize),
		slog.Bool("size_is_estimate", f.SizeIsEstimate),
	)
}

// FetchResult is the normalized artifact a fetch produced. The path exists
// and is readable at return time; ownership passes to the caller.
type FetchResult struct {
	Path string `json:"path"`
	Size uint64 `json:"size"`
	// Ext is the container extension with dot, e.g. ".mp4".
	Ext string `json:"ext"`
}

// LogValue implements slog.LogValuer.
func (r FetchResult) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("path", r.Path),
		slog.Uint64("size", r.Size),
		slog.String("ext", r.Ext),
	)
}

// Segment is one bounded slice of a larger artifact, independently playable.
type Segment struct {
	Index uint32 `json:"index"` // 1-based
	Total uint32 `json:"total"`
	Path  string `json:"path"`
}

// SegmentSet is an ordered, exhaustive sequence of segments with contiguous
// indices 1..Total.
type SegmentSet []Segment

// Paths returns the segment paths in delivery order.
func (s SegmentSet) Paths() []string {
	paths := make([]string, 0, len(s))
	for _, seg := range s {
		paths = append(paths, seg.Path)
	}

	return paths
}

// Delivery is what the pipeline hands the caller: the fetched artifact plus
// the segments it was split into, when splitting occurred.
type Delivery struct {
	Result   FetchResult `json:"result"`
	Segments SegmentSet  `json:"segments,omitempty"`
}

// Paths returns every path the caller is responsible for cleaning up.
func (d *Delivery) Paths() []string {
	paths := []string{d.Result.Path}

	return append(paths, d.Segments.Paths()...)
}

// LogValue implements slog.LogValuer.
func (d *Delivery) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Any("result", d.Result),
		slog.Int("segments", len(d.Segments)),
	)
}
