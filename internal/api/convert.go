package api

import (
	"lightbox/internal/metadata"
	"lightbox/internal/uploads"
)

// FromItem converts a batch item into its transport shape.
func FromItem(item uploads.Item) ItemView {
	view := ItemView{
		ID:               item.ID,
		OriginalFilename: item.OriginalFilename,
		Title:            item.Title,
		ResolvedFilename: item.ResolvedFilename(),
		Status:           string(item.Status),
		Progress:         item.Progress,
		SessionID:        item.SessionID,
		FileAttached:     item.FilePath != "",
		SizeBytes:        item.SizeBytes,
	}
	if len(item.Overrides) > 0 {
		view.Overrides = item.Overrides
	}
	if item.Err != nil {
		view.Error = &ErrorView{
			Message:    item.Err.Message,
			Kind:       string(item.Err.Kind),
			HTTPStatus: item.Err.HTTPStatus,
		}
	}
	if !item.CreatedAt.IsZero() {
		view.CreatedAt = item.CreatedAt.Format(dateTimeFormat)
	}
	if !item.UpdatedAt.IsZero() {
		view.UpdatedAt = item.UpdatedAt.Format(dateTimeFormat)
	}
	return view
}

// FromManager builds the full batch view from a live manager.
func FromManager(mgr *uploads.Manager) BatchView {
	batchCtx := mgr.Context()
	items := mgr.Items()
	views := make([]ItemView, 0, len(items))
	for _, item := range items {
		views = append(views, FromItem(item))
	}
	var fields []metadata.Field
	if set := mgr.Fields(); set.Len() > 0 {
		fields = set.Fields()
	}
	return BatchView{
		ID:         mgr.ID(),
		TenantID:   batchCtx.TenantID,
		BrandID:    batchCtx.BrandID,
		CategoryID: batchCtx.CategoryID,
		Finalized:  mgr.Finalized(),
		Global:     mgr.GlobalDraft(),
		Fields:     fields,
		Items:      views,
		Warnings:   mgr.Warnings(),
	}
}

// FromSnapshot builds a list summary from a stored batch snapshot.
func FromSnapshot(snap *uploads.BatchSnapshot) BatchSummary {
	summary := BatchSummary{
		ID:         snap.ID,
		TenantID:   snap.Context.TenantID,
		BrandID:    snap.Context.BrandID,
		CategoryID: snap.Context.CategoryID,
		Finalized:  snap.Finalized,
		ItemCount:  len(snap.Items),
	}
	if len(snap.Items) > 0 {
		summary.Statuses = make(map[string]int)
		for _, item := range snap.Items {
			summary.Statuses[string(item.Status)]++
			summary.SizeBytes += item.SizeBytes
		}
	}
	if !snap.UpdatedAt.IsZero() {
		summary.UpdatedAt = snap.UpdatedAt.Format(dateTimeFormat)
	}
	return summary
}
