package logging

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldBatchID is the standardized structured logging key for upload batch identifiers.
	FieldBatchID = "batch_id"
	// FieldItemID is the standardized structured logging key for upload item identifiers.
	FieldItemID = "item_id"
	// FieldAssetID is the standardized structured logging key for drawer asset identifiers.
	FieldAssetID = "asset_id"
	// FieldEventType is the standardized structured logging key for machine-filterable event names.
	FieldEventType = "event_type"
	// FieldErrorHint is the standardized structured logging key for operator guidance on failures.
	FieldErrorHint = "error_hint"
)
