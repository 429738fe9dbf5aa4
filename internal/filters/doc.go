// Package filters decides which metadata filters the asset grid renders.
//
// The rules are deliberately stateless: a filter is either visible or hidden
// for a given context, never disabled. Hiding is the only suppression
// mechanism, so the grid never shows an empty or unusable control.
package filters
