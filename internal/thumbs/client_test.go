package thumbs_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"lightbox/internal/thumbs"
)

func TestClientSendsSingleElementBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method %s", r.Method)
		}
		body, _ := io.ReadAll(r.Body)
		var req struct {
			AssetIDs []string `json:"asset_ids"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.AssetIDs) != 1 || req.AssetIDs[0] != "a1" {
			t.Fatalf("expected single-element id list, got %v", req.AssetIDs)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"thumbnails":[{"asset_id":"a1","thumbnail_status":"processing","preview_thumbnail_url":"p","thumbnail_version":2}]}`))
	}))
	defer server.Close()

	client := thumbs.NewClient(thumbs.ClientConfig{Endpoint: server.URL})
	rec, err := client.ThumbnailRecord(context.Background(), "a1")
	if err != nil {
		t.Fatalf("ThumbnailRecord failed: %v", err)
	}
	if rec == nil || rec.Status != thumbs.StatusProcessing || rec.Version != 2 {
		t.Fatalf("unexpected record %#v", rec)
	}
}

func TestClientUnknownAssetReturnsNil(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"thumbnails":[]}`))
	}))
	defer server.Close()

	client := thumbs.NewClient(thumbs.ClientConfig{Endpoint: server.URL})
	rec, err := client.ThumbnailRecord(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("ThumbnailRecord failed: %v", err)
	}
	if rec != nil {
		t.Fatalf("expected nil record, got %#v", rec)
	}
}

func TestClientSurfacesHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer server.Close()

	client := thumbs.NewClient(thumbs.ClientConfig{Endpoint: server.URL})
	if _, err := client.ThumbnailRecord(context.Background(), "a1"); err == nil {
		t.Fatal("expected error for 502 response")
	}
}
