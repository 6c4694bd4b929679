// Package router implements the bimodal decision protocol that governs
// every actuation authorization.
//
// Per telemetry tick the router runs the deterministic constraint engine
// first; a structural violation is terminal and the heuristic detector is
// never consulted for that tick. This precedence is the central safety
// guarantee of the system: the probabilistic layer can observe and propose,
// but it can never authorize an action the deterministic layer has vetoed.
//
// Structurally nominal frames accumulate in a fixed-capacity window. When
// the window fills, the router snapshots and clears it, dispatches the
// snapshot to the anomaly detector, and classifies any proposed action
// against the closed vocabulary. Exactly one immutable DecisionEvent is
// emitted per processed frame; no outcome is retried and the router never
// returns an error for telemetry-shaped input. Every failure mode is data
// in the event.
package router
