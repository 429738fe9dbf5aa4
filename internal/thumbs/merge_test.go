package thumbs_test

import (
	"testing"

	"lightbox/internal/thumbs"
)

func TestMergeGridWinsOnConflict(t *testing.T) {
	grid := thumbs.Record{
		AssetID:  "a1",
		FinalURL: "https://cdn/fresh.png",
		Status:   thumbs.StatusCompleted,
		Version:  4,
	}
	// A slow poll response carrying older data must not win.
	poll := thumbs.Record{
		AssetID:    "a1",
		PreviewURL: "https://cdn/preview.png",
		FinalURL:   "https://cdn/stale.png",
		Status:     thumbs.StatusProcessing,
		Version:    2,
	}

	merged := thumbs.Merge(grid, poll)
	if merged.FinalURL != grid.FinalURL {
		t.Fatalf("grid final URL overwritten: %q", merged.FinalURL)
	}
	if merged.Status != thumbs.StatusCompleted || merged.Version != 4 {
		t.Fatalf("grid lifecycle fields overwritten: %#v", merged)
	}
	if merged.PreviewURL != poll.PreviewURL {
		t.Fatalf("poll should fill the preview gap: %#v", merged)
	}
}

func TestMergePollFillsGapsOnly(t *testing.T) {
	grid := thumbs.Record{AssetID: "a1"}
	poll := thumbs.Record{
		AssetID:    "a1",
		MediaKind:  "image",
		PreviewURL: "p",
		FinalURL:   "f",
		Status:     thumbs.StatusCompleted,
		Version:    1,
		Error:      "",
	}
	merged := thumbs.Merge(grid, poll)
	if merged != (thumbs.Record{AssetID: "a1", MediaKind: "image", PreviewURL: "p", FinalURL: "f", Status: thumbs.StatusCompleted, Version: 1}) {
		t.Fatalf("unexpected merge result: %#v", merged)
	}
}

func TestMergeIsPure(t *testing.T) {
	grid := thumbs.Record{AssetID: "a1", Status: thumbs.StatusPending}
	poll := thumbs.Record{AssetID: "a1", PreviewURL: "p"}
	_ = thumbs.Merge(grid, poll)
	if grid.PreviewURL != "" || poll.Status != "" {
		t.Fatalf("inputs mutated: %#v %#v", grid, poll)
	}
}
