package uploads_test

import (
	"context"
	"testing"

	"lightbox/internal/metadata"
	"lightbox/internal/testsupport"
	"lightbox/internal/uploads"
)

func TestStoreSaveAndReloadBatch(t *testing.T) {
	store := testsupport.MustOpenStore(t, nil)
	ctx := context.Background()

	mgr := newTestManager(t, []metadata.Field{{Key: "rights", Required: true}})
	item, err := mgr.AddFile("Summer.png", "/tmp/summer.png", 512)
	if err != nil {
		t.Fatalf("AddFile failed: %v", err)
	}
	if err := mgr.SetGlobalField("rights", "licensed"); err != nil {
		t.Fatalf("SetGlobalField failed: %v", err)
	}
	if err := mgr.SetOverride(item.ID, "color", "red"); err != nil {
		t.Fatalf("SetOverride failed: %v", err)
	}
	if err := mgr.BeginUpload(item.ID); err != nil {
		t.Fatalf("BeginUpload failed: %v", err)
	}
	if err := mgr.SetProgress(item.ID, 60); err != nil {
		t.Fatalf("SetProgress failed: %v", err)
	}

	if err := store.SaveBatch(ctx, mgr.Snapshot()); err != nil {
		t.Fatalf("SaveBatch failed: %v", err)
	}

	snap, err := store.GetBatch(ctx, mgr.ID())
	if err != nil {
		t.Fatalf("GetBatch failed: %v", err)
	}
	if snap == nil {
		t.Fatal("expected batch to exist")
	}
	if snap.Context.TenantID != "tenant-1" || snap.Context.CategoryID != "cat-1" {
		t.Fatalf("unexpected context %#v", snap.Context)
	}
	if snap.Global["rights"] != "licensed" {
		t.Fatalf("global draft lost: %#v", snap.Global)
	}
	if len(snap.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(snap.Items))
	}
	got := snap.Items[0]
	if got.ID != item.ID {
		t.Fatalf("item id changed across reload: %q vs %q", got.ID, item.ID)
	}
	if got.FilePath != "" {
		t.Fatalf("file path must not persist, got %q", got.FilePath)
	}
	if !got.Overridden["color"] || got.Overrides["color"] != "red" {
		t.Fatalf("override lost: %#v %#v", got.Overrides, got.Overridden)
	}

	restored := uploads.Restore(snap, metadata.NewFieldSet([]metadata.Field{{Key: "rights", Required: true}}))
	if restored.ID() != mgr.ID() {
		t.Fatalf("restored id mismatch: %q vs %q", restored.ID(), mgr.ID())
	}
	items := restored.Items()
	if len(items) != 1 {
		t.Fatalf("expected 1 restored item, got %d", len(items))
	}
	// Interrupted uploads come back failed and need a reattach before retry.
	if items[0].Status != uploads.StatusFailed {
		t.Fatalf("interrupted upload should restore as failed, got %s", items[0].Status)
	}
	if err := restored.BeginUpload(items[0].ID); err == nil {
		t.Fatal("retry without reattached file should fail")
	}
	if err := restored.AttachFile(items[0].ID, "/tmp/summer.png", 512); err != nil {
		t.Fatalf("AttachFile failed: %v", err)
	}
	if err := restored.BeginUpload(items[0].ID); err != nil {
		t.Fatalf("BeginUpload after reattach failed: %v", err)
	}
}

func TestStoreSaveReplacesItems(t *testing.T) {
	store := testsupport.MustOpenStore(t, nil)
	ctx := context.Background()

	mgr := newTestManager(t, nil)
	a, _ := mgr.AddFile("a.jpg", "/tmp/a.jpg", 1)
	if _, err := mgr.AddFile("b.jpg", "/tmp/b.jpg", 1); err != nil {
		t.Fatalf("AddFile failed: %v", err)
	}
	if err := store.SaveBatch(ctx, mgr.Snapshot()); err != nil {
		t.Fatalf("SaveBatch failed: %v", err)
	}

	if err := mgr.SetTitle(a.ID, "renamed"); err != nil {
		t.Fatalf("SetTitle failed: %v", err)
	}
	if err := store.SaveBatch(ctx, mgr.Snapshot()); err != nil {
		t.Fatalf("second SaveBatch failed: %v", err)
	}

	snap, err := store.GetBatch(ctx, mgr.ID())
	if err != nil {
		t.Fatalf("GetBatch failed: %v", err)
	}
	if len(snap.Items) != 2 {
		t.Fatalf("expected 2 items after resave, got %d", len(snap.Items))
	}
	if snap.Items[0].Title != "renamed" {
		t.Fatalf("title not persisted: %q", snap.Items[0].Title)
	}
}

func TestStoreListAndDelete(t *testing.T) {
	store := testsupport.MustOpenStore(t, nil)
	ctx := context.Background()

	first := newTestManager(t, nil)
	second := newTestManager(t, nil)
	if err := store.SaveBatch(ctx, first.Snapshot()); err != nil {
		t.Fatalf("SaveBatch failed: %v", err)
	}
	if err := store.SaveBatch(ctx, second.Snapshot()); err != nil {
		t.Fatalf("SaveBatch failed: %v", err)
	}

	snaps, err := store.ListBatches(ctx)
	if err != nil {
		t.Fatalf("ListBatches failed: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(snaps))
	}

	if err := store.DeleteBatch(ctx, first.ID()); err != nil {
		t.Fatalf("DeleteBatch failed: %v", err)
	}
	snap, err := store.GetBatch(ctx, first.ID())
	if err != nil {
		t.Fatalf("GetBatch failed: %v", err)
	}
	if snap != nil {
		t.Fatal("expected batch to be gone")
	}
}

func TestStoreGetMissingBatchReturnsNil(t *testing.T) {
	store := testsupport.MustOpenStore(t, nil)
	snap, err := store.GetBatch(context.Background(), "nope")
	if err != nil {
		t.Fatalf("GetBatch failed: %v", err)
	}
	if snap != nil {
		t.Fatalf("expected nil snapshot, got %#v", snap)
	}
}
