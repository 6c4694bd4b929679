// Package detector defines the heuristic anomaly detector contract and its
// implementations.
//
// The detector is a read-only observer: it receives a bounded window of
// telemetry frames that have already passed the deterministic constraint
// engine and returns a structured anomaly report, or a protocol failure if
// it cannot produce one. Detector output never actuates anything directly;
// the decision router classifies every proposed action against a closed
// vocabulary before any approval is granted, and an action outside the
// vocabulary is rejected rather than passed through.
//
// Two implementations ship with the package: a live client backed by the
// Gemini API with a JSON-constrained response schema, and deterministic
// stubs for tests and offline sessions.
package detector
