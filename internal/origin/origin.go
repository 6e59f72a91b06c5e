// Package origin abstracts the external content source that serves metadata
// and media bytes for a reference.
package origin

import (
	"context"

	"descargo/internal/entity"
)

// Origin is the downstream capability the pipeline builds on. Metadata may
// be arbitrarily incomplete; callers degrade via estimation instead of
// failing on absent fields.
type Origin interface {
	// ExtractMetadata queries origin metadata for the reference without
	// downloading payload bytes.
	ExtractMetadata(ctx context.Context, ref entity.MediaReference) (*Metadata, error)

	// Download transfers the encoding chosen by formatID, writing the
	// artifact according to the output template, and returns the path the
	// origin reports having written. The reported path is a prediction:
	// callers must verify what actually landed on disk.
	Download(ctx context.Context, ref entity.MediaReference, formatID, template string) (string, error)
}

// Metadata is the structured view of an origin info response. Everything
// beyond ID and Title may be absent.
type Metadata struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Extractor  string   `json:"extractor"`
	WebpageURL string   `json:"webpage_url"`
	Duration   float64  `json:"duration"`
	Formats    []Format `json:"formats"`
}

// Format is one encoding the origin offers. Optional numeric fields are
// pointers so absence is distinguishable from zero.
type Format struct {
	FormatID   string   `json:"format_id"`
	Ext        string   `json:"ext"`
	FormatNote string   `json:"format_note"`
	Width      *int     `json:"width"`
	Height     *int     `json:"height"`
	FPS        *float64 `json:"fps"`
	VCodec     *string  `json:"vcodec"`
	ACodec     *string  `json:"acodec"`
	// Filesize is the exact byte size when the origin knows it.
	Filesize *int64 `json:"filesize"`
	// FilesizeApprox is the origin's own approximation.
	FilesizeApprox *int64 `json:"filesize_approx"`
	// TBR, VBR, ABR are total/video/audio bitrates in kbps.
	TBR *float64 `json:"tbr"`
	VBR *float64 `json:"vbr"`
	ABR *float64 `json:"abr"`
}

// HasVideo reports whether the format carries a playable video track.
func (f Format) HasVideo() bool {
	return f.VCodec != nil && *f.VCodec != "" && *f.VCodec != "none"
}

// HasAudio reports whether the format carries an audio track.
func (f Format) HasAudio() bool {
	return f.ACodec != nil && *f.ACodec != "" && *f.ACodec != "none"
}
