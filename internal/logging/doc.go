// Package logging builds the slog loggers used across lightbox.
//
// Two output formats are supported: a compact console handler for interactive
// use and a JSON handler for log aggregation. Helpers standardize attribute
// construction and the field keys shared by every component so logs can be
// filtered by batch, item, or asset identifiers.
package logging
