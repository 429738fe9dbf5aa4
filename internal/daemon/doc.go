// Package daemon runs the lightbox coordinator: it owns the batch store,
// the drawer poll session, and the HTTP API the CLI talks to, and enforces
// single-instance execution with a lock file.
package daemon
