// Package textutil provides text normalization helpers for filenames.
package textutil
