package uploads_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"lightbox/internal/uploads"
)

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "asset.bin")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestTransferPutStreamsFileAndReportsProgress(t *testing.T) {
	var received []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Fatalf("unexpected method %s", r.Method)
		}
		if got := r.Header.Get("Content-Type"); got != "image/png" {
			t.Fatalf("unexpected content type %q", got)
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		received = body
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	path := writeTempFile(t, "png-bytes")
	var lastPct int
	transferer := uploads.NewTransferer(uploads.TransferConfig{})
	uploadErr := transferer.Put(context.Background(), uploads.TransferRequest{
		URL:         server.URL,
		FilePath:    path,
		ContentType: "image/png",
		OnProgress:  func(pct int) { lastPct = pct },
	})
	if uploadErr != nil {
		t.Fatalf("Put failed: %v", uploadErr)
	}
	if string(received) != "png-bytes" {
		t.Fatalf("unexpected body %q", received)
	}
	if lastPct != 100 {
		t.Fatalf("expected final progress 100, got %d", lastPct)
	}
}

func TestTransferPutClassifiesRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Request has expired", http.StatusForbidden)
	}))
	defer server.Close()

	path := writeTempFile(t, "data")
	transferer := uploads.NewTransferer(uploads.TransferConfig{})
	uploadErr := transferer.Put(context.Background(), uploads.TransferRequest{URL: server.URL, FilePath: path})
	if uploadErr == nil {
		t.Fatal("expected an upload error")
	}
	if uploadErr.Kind != uploads.ErrKindExpired {
		t.Fatalf("expected expired kind, got %s", uploadErr.Kind)
	}
	if uploadErr.HTTPStatus != http.StatusForbidden {
		t.Fatalf("unexpected status %d", uploadErr.HTTPStatus)
	}
}

func TestTransferPutMissingFile(t *testing.T) {
	transferer := uploads.NewTransferer(uploads.TransferConfig{})
	uploadErr := transferer.Put(context.Background(), uploads.TransferRequest{
		URL:      "http://127.0.0.1:9/upload",
		FilePath: "/nonexistent/asset.bin",
	})
	if uploadErr == nil || uploadErr.Kind != uploads.ErrKindValidation {
		t.Fatalf("expected validation error for missing file, got %#v", uploadErr)
	}
}

func TestTransferPutNetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	path := writeTempFile(t, "data")
	transferer := uploads.NewTransferer(uploads.TransferConfig{})
	uploadErr := transferer.Put(context.Background(), uploads.TransferRequest{URL: server.URL, FilePath: path})
	if uploadErr == nil || uploadErr.Kind != uploads.ErrKindNetwork {
		t.Fatalf("expected network error, got %#v", uploadErr)
	}
}
