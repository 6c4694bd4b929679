// Package guardrail implements the deterministic structural constraint
// engine that gates every actuation decision.
//
// The engine is a pure function over a single telemetry frame: it evaluates
// every hardware constraint independently (no short-circuiting, so one
// report can carry multiple violations) and produces a structured Report.
// It performs no I/O, keeps no state between frames, and runs synchronously
// on the control-loop critical path.
//
// The engine fails closed: a section that is missing from the frame or that
// did not decode into its expected numeric shape yields a synthesized
// catastrophic violation for that field. Absent data is never a pass.
package guardrail
