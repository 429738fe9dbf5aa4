// Package main hosts the lightbox CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into HTTP
// calls against the daemon: batch management, drawer inspection, filter
// evaluation, and configuration scaffolding. Configuration resolution and
// API address discovery are centralized here so subcommands can focus on
// user experience instead of wiring.
package main
