package uploads_test

import (
	"errors"
	"testing"

	"lightbox/internal/metadata"
	"lightbox/internal/uploads"
)

func newTestManager(t *testing.T, fields []metadata.Field, opts ...uploads.ManagerOption) *uploads.Manager {
	t.Helper()
	return uploads.NewManager(uploads.Context{
		TenantID:   "tenant-1",
		BrandID:    "brand-1",
		CategoryID: "cat-1",
	}, metadata.NewFieldSet(fields), opts...)
}

func TestAddFileDefaultsTitleToStem(t *testing.T) {
	mgr := newTestManager(t, nil)
	item, err := mgr.AddFile("Summer Campaign.PNG", "/tmp/summer.png", 2048)
	if err != nil {
		t.Fatalf("AddFile failed: %v", err)
	}
	if item.Title != "Summer Campaign" {
		t.Fatalf("unexpected default title %q", item.Title)
	}
	if item.Status != uploads.StatusQueued {
		t.Fatalf("expected queued, got %s", item.Status)
	}
	if got := item.ResolvedFilename(); got != "summer-campaign.png" {
		t.Fatalf("unexpected resolved filename %q", got)
	}
}

func TestAddFileRespectsBatchLimit(t *testing.T) {
	mgr := newTestManager(t, nil, uploads.WithMaxItems(1))
	if _, err := mgr.AddFile("a.jpg", "/tmp/a.jpg", 1); err != nil {
		t.Fatalf("AddFile failed: %v", err)
	}
	if _, err := mgr.AddFile("b.jpg", "/tmp/b.jpg", 1); err == nil {
		t.Fatal("expected batch limit error")
	}
}

func TestResolvedFilenameFallsBackToStem(t *testing.T) {
	mgr := newTestManager(t, nil)
	item, err := mgr.AddFile("hero_shot.jpg", "/tmp/hero.jpg", 1)
	if err != nil {
		t.Fatalf("AddFile failed: %v", err)
	}
	if err := mgr.SetTitle(item.ID, "???"); err != nil {
		t.Fatalf("SetTitle failed: %v", err)
	}
	got, err := mgr.Item(item.ID)
	if err != nil {
		t.Fatalf("Item failed: %v", err)
	}
	if name := got.ResolvedFilename(); name != "hero-shot.jpg" {
		t.Fatalf("expected stem fallback, got %q", name)
	}
}

func TestEffectiveValueResolutionOrder(t *testing.T) {
	mgr := newTestManager(t, []metadata.Field{
		{Key: "usage", Default: "internal"},
	})
	item, err := mgr.AddFile("a.jpg", "/tmp/a.jpg", 1)
	if err != nil {
		t.Fatalf("AddFile failed: %v", err)
	}

	if got, _ := mgr.EffectiveValue(item.ID, "usage"); got != "internal" {
		t.Fatalf("expected field default, got %q", got)
	}

	if err := mgr.SetGlobalField("usage", "print"); err != nil {
		t.Fatalf("SetGlobalField failed: %v", err)
	}
	if got, _ := mgr.EffectiveValue(item.ID, "usage"); got != "print" {
		t.Fatalf("expected global draft value, got %q", got)
	}

	if err := mgr.SetOverride(item.ID, "usage", "web"); err != nil {
		t.Fatalf("SetOverride failed: %v", err)
	}
	if got, _ := mgr.EffectiveValue(item.ID, "usage"); got != "web" {
		t.Fatalf("expected override, got %q", got)
	}

	// Global edits never clobber an explicit override.
	if err := mgr.SetGlobalField("usage", "social"); err != nil {
		t.Fatalf("SetGlobalField failed: %v", err)
	}
	if got, _ := mgr.EffectiveValue(item.ID, "usage"); got != "web" {
		t.Fatalf("override should survive global edit, got %q", got)
	}

	if err := mgr.ClearOverride(item.ID, "usage"); err != nil {
		t.Fatalf("ClearOverride failed: %v", err)
	}
	if got, _ := mgr.EffectiveValue(item.ID, "usage"); got != "social" {
		t.Fatalf("expected global after clear, got %q", got)
	}
}

func TestOverrideToEmptyStringIsExplicit(t *testing.T) {
	mgr := newTestManager(t, nil)
	item, err := mgr.AddFile("a.jpg", "/tmp/a.jpg", 1)
	if err != nil {
		t.Fatalf("AddFile failed: %v", err)
	}
	if err := mgr.SetGlobalField("color", "red"); err != nil {
		t.Fatalf("SetGlobalField failed: %v", err)
	}
	if err := mgr.SetOverride(item.ID, "color", ""); err != nil {
		t.Fatalf("SetOverride failed: %v", err)
	}
	if got, _ := mgr.EffectiveValue(item.ID, "color"); got != "" {
		t.Fatalf("explicit empty override should win, got %q", got)
	}
}

func TestChangeCategoryRetainsValuesAndWarnsOncePerKey(t *testing.T) {
	mgr := newTestManager(t, []metadata.Field{
		{Key: "color"},
		{Key: "season"},
	})
	a, _ := mgr.AddFile("a.jpg", "/tmp/a.jpg", 1)
	b, _ := mgr.AddFile("b.jpg", "/tmp/b.jpg", 1)
	if err := mgr.SetOverride(a.ID, "season", "summer"); err != nil {
		t.Fatalf("SetOverride failed: %v", err)
	}
	if err := mgr.SetOverride(b.ID, "season", "winter"); err != nil {
		t.Fatalf("SetOverride failed: %v", err)
	}
	if err := mgr.SetGlobalField("color", "red"); err != nil {
		t.Fatalf("SetGlobalField failed: %v", err)
	}

	// New category keeps color but drops season.
	if err := mgr.ChangeCategory("cat-2", metadata.NewFieldSet([]metadata.Field{{Key: "color"}})); err != nil {
		t.Fatalf("ChangeCategory failed: %v", err)
	}

	var invalidations []uploads.Warning
	sawChange := false
	for _, w := range mgr.Warnings() {
		switch w.Type {
		case uploads.WarnMetadataInvalidation:
			invalidations = append(invalidations, w)
		case uploads.WarnCategoryChange:
			sawChange = true
		}
	}
	if !sawChange {
		t.Fatal("expected a category_change warning")
	}
	if len(invalidations) != 1 {
		t.Fatalf("expected exactly one invalidation warning, got %d", len(invalidations))
	}
	w := invalidations[0]
	if len(w.FieldKeys) != 1 || w.FieldKeys[0] != "season" {
		t.Fatalf("unexpected field keys %v", w.FieldKeys)
	}
	if len(w.ItemIDs) != 2 {
		t.Fatalf("expected both items affected, got %v", w.ItemIDs)
	}

	// Values are retained, not deleted.
	got, _ := mgr.Item(a.ID)
	if got.Overrides["season"] != "summer" {
		t.Fatalf("override lost on category change: %#v", got.Overrides)
	}

	// Switching back makes the warning disappear.
	if err := mgr.ChangeCategory("cat-1", metadata.NewFieldSet([]metadata.Field{{Key: "color"}, {Key: "season"}})); err != nil {
		t.Fatalf("ChangeCategory failed: %v", err)
	}
	for _, w := range mgr.Warnings() {
		if w.Type == uploads.WarnMetadataInvalidation {
			t.Fatalf("stale invalidation warning: %#v", w)
		}
	}
}

func TestChangeCategoryRejectedAfterFinalize(t *testing.T) {
	mgr := newTestManager(t, nil)
	if warning, err := mgr.Finalize(); err != nil || warning != nil {
		t.Fatalf("Finalize failed: %v %v", warning, err)
	}
	if err := mgr.ChangeCategory("cat-2", metadata.FieldSet{}); !errors.Is(err, uploads.ErrBatchFinalized) {
		t.Fatalf("expected ErrBatchFinalized, got %v", err)
	}
}

func TestFilenameConflictWarning(t *testing.T) {
	mgr := newTestManager(t, nil)
	a, _ := mgr.AddFile("banner.jpg", "/tmp/a.jpg", 1)
	b, _ := mgr.AddFile("poster.jpg", "/tmp/b.jpg", 1)
	if err := mgr.SetTitle(b.ID, "Banner"); err != nil {
		t.Fatalf("SetTitle failed: %v", err)
	}

	var conflict *uploads.Warning
	for _, w := range mgr.Warnings() {
		if w.Type == uploads.WarnFilenameConflict {
			cp := w
			conflict = &cp
		}
	}
	if conflict == nil {
		t.Fatal("expected a filename_conflict warning")
	}
	if len(conflict.ItemIDs) != 2 || conflict.ItemIDs[0] != a.ID || conflict.ItemIDs[1] != b.ID {
		t.Fatalf("unexpected conflict items %v", conflict.ItemIDs)
	}

	if err := mgr.SetTitle(b.ID, "Poster"); err != nil {
		t.Fatalf("SetTitle failed: %v", err)
	}
	for _, w := range mgr.Warnings() {
		if w.Type == uploads.WarnFilenameConflict {
			t.Fatalf("conflict warning should clear: %#v", w)
		}
	}
}

func TestUploadLifecycle(t *testing.T) {
	mgr := newTestManager(t, nil)
	item, _ := mgr.AddFile("a.jpg", "/tmp/a.jpg", 1)

	if err := mgr.BeginUpload(item.ID); err != nil {
		t.Fatalf("BeginUpload failed: %v", err)
	}
	if err := mgr.AttachSession(item.ID, "sess-9"); err != nil {
		t.Fatalf("AttachSession failed: %v", err)
	}
	if err := mgr.SetProgress(item.ID, 150); err != nil {
		t.Fatalf("SetProgress failed: %v", err)
	}
	got, _ := mgr.Item(item.ID)
	if got.Progress != 100 {
		t.Fatalf("progress should clamp to 100, got %d", got.Progress)
	}
	if err := mgr.CompleteUpload(item.ID); err != nil {
		t.Fatalf("CompleteUpload failed: %v", err)
	}
	got, _ = mgr.Item(item.ID)
	if got.Status != uploads.StatusComplete || got.Progress != 100 || got.Err != nil {
		t.Fatalf("unexpected final state: %#v", got)
	}

	// Complete is terminal.
	if err := mgr.BeginUpload(item.ID); err == nil {
		t.Fatal("expected error starting upload on complete item")
	}
}

func TestRetryResetsProgressAndKeepsPriorError(t *testing.T) {
	mgr := newTestManager(t, nil)
	item, _ := mgr.AddFile("a.jpg", "/tmp/a.jpg", 1)
	if err := mgr.BeginUpload(item.ID); err != nil {
		t.Fatalf("BeginUpload failed: %v", err)
	}
	if err := mgr.SetProgress(item.ID, 40); err != nil {
		t.Fatalf("SetProgress failed: %v", err)
	}
	if err := mgr.FailUpload(item.ID, &uploads.Error{Message: "boom", Kind: uploads.ErrKindServer}); err != nil {
		t.Fatalf("FailUpload failed: %v", err)
	}

	if err := mgr.BeginUpload(item.ID); err != nil {
		t.Fatalf("retry BeginUpload failed: %v", err)
	}
	got, _ := mgr.Item(item.ID)
	if got.Status != uploads.StatusUploading || got.Progress != 0 {
		t.Fatalf("retry should reset progress: %#v", got)
	}
	if got.Err == nil || got.Err.Kind != uploads.ErrKindServer {
		t.Fatalf("prior error should persist until the next terminal outcome: %#v", got.Err)
	}

	if err := mgr.CompleteUpload(item.ID); err != nil {
		t.Fatalf("CompleteUpload failed: %v", err)
	}
	got, _ = mgr.Item(item.ID)
	if got.Err != nil {
		t.Fatalf("completion should clear the prior error: %#v", got.Err)
	}
}

func TestRetryRequiresReattachedFile(t *testing.T) {
	mgr := newTestManager(t, nil)
	item, _ := mgr.AddFile("a.jpg", "", 0)
	if err := mgr.BeginUpload(item.ID); err == nil {
		t.Fatal("expected error without an attached file")
	}
	if err := mgr.AttachFile(item.ID, "/tmp/a.jpg", 42); err != nil {
		t.Fatalf("AttachFile failed: %v", err)
	}
	if err := mgr.BeginUpload(item.ID); err != nil {
		t.Fatalf("BeginUpload after reattach failed: %v", err)
	}
}

func TestFailureIsolation(t *testing.T) {
	mgr := newTestManager(t, nil)
	a, _ := mgr.AddFile("a.jpg", "/tmp/a.jpg", 1)
	b, _ := mgr.AddFile("b.jpg", "/tmp/b.jpg", 1)
	if err := mgr.BeginUpload(a.ID); err != nil {
		t.Fatalf("BeginUpload failed: %v", err)
	}
	if err := mgr.BeginUpload(b.ID); err != nil {
		t.Fatalf("BeginUpload failed: %v", err)
	}
	if err := mgr.FailUpload(a.ID, &uploads.Error{Message: "boom", Kind: uploads.ErrKindNetwork}); err != nil {
		t.Fatalf("FailUpload failed: %v", err)
	}
	got, _ := mgr.Item(b.ID)
	if got.Status != uploads.StatusUploading {
		t.Fatalf("sibling item affected by failure: %#v", got)
	}
}

func TestFinalizeBlockedByMissingRequiredField(t *testing.T) {
	mgr := newTestManager(t, []metadata.Field{
		{Key: "rights", Required: true},
		{Key: "color"},
	})
	a, _ := mgr.AddFile("a.jpg", "/tmp/a.jpg", 1)
	b, _ := mgr.AddFile("b.jpg", "/tmp/b.jpg", 1)
	if err := mgr.SetOverride(a.ID, "rights", "royalty-free"); err != nil {
		t.Fatalf("SetOverride failed: %v", err)
	}

	warning, err := mgr.Finalize()
	if !errors.Is(err, uploads.ErrFinalizeBlocked) {
		t.Fatalf("expected ErrFinalizeBlocked, got %v", err)
	}
	if warning == nil || warning.Type != uploads.WarnMissingRequiredField || warning.Severity != uploads.SeverityError {
		t.Fatalf("unexpected warning: %#v", warning)
	}
	if len(warning.FieldKeys) != 1 || warning.FieldKeys[0] != "rights" {
		t.Fatalf("unexpected field keys %v", warning.FieldKeys)
	}
	if len(warning.ItemIDs) != 1 || warning.ItemIDs[0] != b.ID {
		t.Fatalf("unexpected item ids %v", warning.ItemIDs)
	}
	if mgr.Finalized() {
		t.Fatal("batch must not finalize while blocked")
	}

	if err := mgr.SetGlobalField("rights", "licensed"); err != nil {
		t.Fatalf("SetGlobalField failed: %v", err)
	}
	if warning, err := mgr.Finalize(); err != nil || warning != nil {
		t.Fatalf("Finalize should succeed: %v %v", warning, err)
	}
	if !mgr.Finalized() {
		t.Fatal("batch should be finalized")
	}
}

func TestFinalizeSatisfiedByFieldDefault(t *testing.T) {
	mgr := newTestManager(t, []metadata.Field{
		{Key: "visibility", Required: true, Default: "internal"},
	})
	if _, err := mgr.AddFile("a.jpg", "/tmp/a.jpg", 1); err != nil {
		t.Fatalf("AddFile failed: %v", err)
	}
	if warning, err := mgr.Finalize(); err != nil || warning != nil {
		t.Fatalf("default should satisfy required field: %v %v", warning, err)
	}
}
