// Package orchestrator wires the loader → parser → row renderer → output
// renderer pipeline for one blueprint step, providing dependency injection
// friendly helpers for consumers that prefer a single entry point.
package orchestrator
