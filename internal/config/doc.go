// Package config loads and validates lightbox configuration from TOML.
//
// Configuration resolves from an explicit --config path, then
// ~/.config/lightbox/config.toml, then ./lightbox.toml. Defaults apply for
// every field so a missing file still yields a runnable daemon bound to
// localhost. All path fields are expanded (~ and relative segments) during
// normalization, before validation runs.
package config
