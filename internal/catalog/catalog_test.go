package catalog_test

import (
	"errors"
	"log/slog"
	"os"
	"testing"

	"descargo/internal/catalog"
	"descargo/internal/config"
	"descargo/internal/entity"
	"descargo/internal/errs"
	"descargo/internal/origin"
	"descargo/pkg/ptr"
)

const mib = 1024 * 1024

func testConfig() *config.Config {
	return &config.Config{
		Catalog: config.Catalog{MaxFormats: 5, TwitchMaxFormats: 3},
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func progressiveFormat(id string, height int, size int64, ext string) origin.Format {
	return origin.Format{
		FormatID: id,
		Ext:      ext,
		Height:   ptr.Of(height),
		VCodec:   ptr.Of("avc1"),
		ACodec:   ptr.Of("mp4a"),
		Filesize: ptr.Of(size),
	}
}

func TestDiscoverRanksBySizeDescending(t *testing.T) {
	src := &origin.Mock{Meta: &origin.Metadata{
		ID:    "vid1",
		Title: "Clip",
		Formats: []origin.Format{
			progressiveFormat("480", 480, 150*mib, "mp4"),
			progressiveFormat("1080", 1080, 800*mib, "mp4"),
			progressiveFormat("720", 720, 400*mib, "mp4"),
		},
	}}

	c := catalog.New(testLogger(), testConfig(), src)

	got, err := c.Discover(t.Context(), entity.MediaReference{URL: "https://example.com/v", Platform: entity.PlatformGeneric})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	wantLabels := []string{"1080p", "720p", "480p"}
	if len(got) != len(wantLabels) {
		t.Fatalf("got %d formats, want %d", len(got), len(wantLabels))
	}

	for i, want := range wantLabels {
		if got[i].Label != want {
			t.Errorf("formats[%d].Label = %q, want %q", i, got[i].Label, want)
		}
	}

	if got[0].EstimatedSize != 800*mib || got[0].SizeIsEstimate {
		t.Errorf("top format size = %d (estimate=%v), want origin-reported 800 MiB",
			got[0].EstimatedSize, got[0].SizeIsEstimate)
	}
}

func TestDiscoverDedupesByLabel(t *testing.T) {
	src := &origin.Mock{Meta: &origin.Metadata{
		Formats: []origin.Format{
			progressiveFormat("720-webm", 720, 300*mib, "webm"),
			progressiveFormat("720-mp4", 720, 400*mib, "mp4"),
		},
	}}

	c := catalog.New(testLogger(), testConfig(), src)

	got, err := c.Discover(t.Context(), entity.MediaReference{URL: "https://example.com/v", Platform: entity.PlatformGeneric})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	if len(got) != 1 {
		t.Fatalf("got %d formats, want 1 after dedupe", len(got))
	}

	// The better-ranked (larger) duplicate survives.
	if got[0].FormatID != "720-mp4" {
		t.Errorf("surviving format = %q, want 720-mp4", got[0].FormatID)
	}
}

func TestDiscoverFiltersNonProgressiveAndContainers(t *testing.T) {
	videoOnly := progressiveFormat("video-only", 1080, 500*mib, "mp4")
	videoOnly.ACodec = ptr.Of("none")

	mkv := progressiveFormat("mkv", 720, 400*mib, "mkv")

	src := &origin.Mock{Meta: &origin.Metadata{
		Formats: []origin.Format{
			videoOnly,
			mkv,
			progressiveFormat("ok", 480, 100*mib, "mp4"),
		},
	}}

	c := catalog.New(testLogger(), testConfig(), src)

	got, err := c.Discover(t.Context(), entity.MediaReference{URL: "https://example.com/v", Platform: entity.PlatformGeneric})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	if len(got) != 1 || got[0].FormatID != "ok" {
		t.Fatalf("got %v, want only the progressive mp4", got)
	}
}

func TestDiscoverTruncates(t *testing.T) {
	formats := make([]origin.Format, 0, 8)
	for i, h := range []int{144, 240, 360, 480, 720, 1080, 1440, 2160} {
		formats = append(formats, progressiveFormat(string(rune('a'+i)), h, int64(h)*mib, "mp4"))
	}

	src := &origin.Mock{Meta: &origin.Metadata{Formats: formats}}
	c := catalog.New(testLogger(), testConfig(), src)

	got, err := c.Discover(t.Context(), entity.MediaReference{URL: "https://example.com/v", Platform: entity.PlatformGeneric})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	if len(got) != 5 {
		t.Errorf("got %d formats, want the configured max of 5", len(got))
	}
}

func TestDiscoverDeterministic(t *testing.T) {
	// Identical estimated sizes force the tie-break to decide the order.
	f1 := progressiveFormat("b-id", 720, 0, "mp4")
	f1.Filesize = nil
	f2 := progressiveFormat("a-id", 480, 0, "mp4")
	f2.Filesize = nil

	src := &origin.Mock{Meta: &origin.Metadata{Formats: []origin.Format{f1, f2}}}
	c := catalog.New(testLogger(), testConfig(), src)

	ref := entity.MediaReference{URL: "https://example.com/v", Platform: entity.PlatformGeneric}

	first, err := c.Discover(t.Context(), ref)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	second, err := c.Discover(t.Context(), ref)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("repeated discovery changed cardinality: %d vs %d", len(first), len(second))
	}

	for i := range first {
		if first[i] != second[i] {
			t.Errorf("formats[%d] differs across calls: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestDiscoverEmptyIsSuccess(t *testing.T) {
	videoOnly := progressiveFormat("video-only", 720, 100*mib, "mp4")
	videoOnly.ACodec = ptr.Of("none")

	src := &origin.Mock{Meta: &origin.Metadata{Formats: []origin.Format{videoOnly}}}
	c := catalog.New(testLogger(), testConfig(), src)

	got, err := c.Discover(t.Context(), entity.MediaReference{URL: "https://example.com/v", Platform: entity.PlatformGeneric})
	if err != nil {
		t.Fatalf("nothing playable must not be an error, got %v", err)
	}

	if len(got) != 0 {
		t.Errorf("got %d formats, want none", len(got))
	}
}

func TestDiscoverWrapsOriginErrors(t *testing.T) {
	src := &origin.Mock{MetaErr: errors.New("origin exploded")}
	c := catalog.New(testLogger(), testConfig(), src)

	_, err := c.Discover(t.Context(), entity.MediaReference{URL: "https://example.com/v", Platform: entity.PlatformGeneric})
	if !errors.Is(err, errs.ErrDiscovery) {
		t.Fatalf("error = %v, want ErrDiscovery", err)
	}
}

func TestDiscoverTwitch(t *testing.T) {
	formats := make([]origin.Format, 0, 4)
	for i, h := range []int{360, 480, 720, 1080} {
		f := origin.Format{
			FormatID: string(rune('a' + i)),
			Ext:      "mp4",
			Height:   ptr.Of(h),
			VCodec:   ptr.Of("avc1"),
			ACodec:   ptr.Of("mp4a"),
			TBR:      ptr.Of(float64(h) * 5),
		}
		formats = append(formats, f)
	}

	src := &origin.Mock{Meta: &origin.Metadata{Duration: 600, Formats: formats}}
	c := catalog.New(testLogger(), testConfig(), src)

	got, err := c.Discover(t.Context(), entity.MediaReference{URL: "https://twitch.tv/videos/1", Platform: entity.PlatformTwitch})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	if len(got) != 3 {
		t.Fatalf("got %d formats, want the twitch max of 3", len(got))
	}

	if got[0].Label != "1080p" {
		t.Errorf("top twitch format = %q, want 1080p", got[0].Label)
	}

	// Bandwidth-derived sizes are flagged as estimates.
	if !got[0].SizeIsEstimate || got[0].EstimatedSize == 0 {
		t.Errorf("twitch size = %d (estimate=%v), want bandwidth-derived estimate",
			got[0].EstimatedSize, got[0].SizeIsEstimate)
	}
}

func TestDiscoverSpotifyDerived(t *testing.T) {
	src := &origin.Mock{Meta: &origin.Metadata{Title: "Track"}}
	c := catalog.New(testLogger(), testConfig(), src)

	got, err := c.Discover(t.Context(), entity.MediaReference{URL: "https://open.spotify.com/track/1", Platform: entity.PlatformSpotify})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	if len(got) != 1 {
		t.Fatalf("got %d formats, want exactly one audio descriptor", len(got))
	}

	if got[0].Ext != "mp3" {
		t.Errorf("audio descriptor ext = %q, want mp3", got[0].Ext)
	}
}
