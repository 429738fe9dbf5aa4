package api_test

import (
	"context"
	"testing"

	"lightbox/internal/api"
	"lightbox/internal/thumbs"
)

type staticThumbSource struct {
	records map[string]thumbs.Record
	calls   int
}

func (s *staticThumbSource) ThumbnailRecord(_ context.Context, assetID string) (*thumbs.Record, error) {
	s.calls++
	rec, ok := s.records[assetID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func TestDrawerOpenPollsAndMerges(t *testing.T) {
	source := &staticThumbSource{records: map[string]thumbs.Record{
		"a1": {AssetID: "a1", Status: thumbs.StatusCompleted, FinalURL: "https://cdn/final.png", Version: 2},
	}}
	svc := api.NewDrawerService(source, nil)
	defer svc.Close()

	svc.UpdateGrid(thumbs.Record{AssetID: "a1", Status: thumbs.StatusProcessing, PreviewURL: "p"})
	view := svc.Open(context.Background(), "a1")
	if view.Asset == nil || view.Asset.AssetID != "a1" {
		t.Fatalf("unexpected view %#v", view)
	}
	if source.calls != 1 {
		t.Fatalf("expected one immediate poll, got %d", source.calls)
	}

	rec, ok := svc.Record("a1")
	if !ok {
		t.Fatal("expected grid record")
	}
	// The grid's status/preview stand; the poll fills the final URL gap.
	if rec.Status != thumbs.StatusProcessing || rec.PreviewURL != "p" {
		t.Fatalf("grid fields overwritten: %#v", rec)
	}
	if rec.FinalURL != "https://cdn/final.png" {
		t.Fatalf("poll data not merged: %#v", rec)
	}
}

func TestDrawerGridUpdateWinsOverPolledData(t *testing.T) {
	source := &staticThumbSource{records: map[string]thumbs.Record{
		"a1": {AssetID: "a1", Status: thumbs.StatusProcessing, FinalURL: "https://cdn/old.png"},
	}}
	svc := api.NewDrawerService(source, nil)
	defer svc.Close()

	svc.UpdateGrid(thumbs.Record{AssetID: "a1", Status: thumbs.StatusProcessing, PreviewURL: "p"})
	svc.Open(context.Background(), "a1")

	// A grid-driven update lands after the poll response.
	svc.UpdateGrid(thumbs.Record{AssetID: "a1", Status: thumbs.StatusCompleted, FinalURL: "https://cdn/fresh.png", Version: 5})

	rec, _ := svc.Record("a1")
	if rec.FinalURL != "https://cdn/fresh.png" || rec.Status != thumbs.StatusCompleted {
		t.Fatalf("grid update lost: %#v", rec)
	}
}

func TestDrawerOpenTerminalAssetDoesNotPoll(t *testing.T) {
	source := &staticThumbSource{}
	svc := api.NewDrawerService(source, nil)

	svc.UpdateGrid(thumbs.Record{AssetID: "a1", Status: thumbs.StatusCompleted, FinalURL: "f"})
	view := svc.Open(context.Background(), "a1")
	if source.calls != 0 {
		t.Fatalf("terminal asset polled %d times", source.calls)
	}
	if view.Polling {
		t.Fatal("expected idle drawer")
	}
}

func TestDrawerCloseStopsSession(t *testing.T) {
	source := &staticThumbSource{records: map[string]thumbs.Record{
		"a1": {AssetID: "a1", Status: thumbs.StatusProcessing, PreviewURL: "p"},
	}}
	svc := api.NewDrawerService(source, nil)
	svc.UpdateGrid(thumbs.Record{AssetID: "a1", Status: thumbs.StatusProcessing, PreviewURL: "p"})
	svc.Open(context.Background(), "a1")
	svc.Close()
	if view := svc.View(); view.Asset != nil {
		t.Fatalf("expected empty view after close, got %#v", view)
	}
}
