// Package api is the service layer between the daemon's HTTP surface and
// the domain packages. Services hold the live batch managers and the drawer
// poll session; handlers and the CLI talk to them through transport-shaped
// DTOs only.
package api
