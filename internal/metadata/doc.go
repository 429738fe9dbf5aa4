// Package metadata models the per-category metadata fields supplied by the
// external category configuration service. Field sets are consumed read-only
// and are fully replaced whenever the active category changes.
package metadata
