// Package uploads tracks batches of files from selection to finalization.
//
// A batch pairs one immutable UploadContext (tenant, brand, category) with an
// ordered list of items. The Manager owns every state transition: title and
// metadata edits, category changes with override reconciliation, upload
// lifecycle (queued, uploading, complete, failed), retries, and the
// required-field gate at finalization. Batches persist in SQLite so item
// identifiers survive process restarts; raw file handles do not and must be
// reattached before a retry.
//
// Treat this package as the single source of truth for batch semantics; when
// you add new statuses or columns, update schema.sql and bump schemaVersion.
package uploads
