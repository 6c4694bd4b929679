// Package session runs the live decision loop: pull a telemetry frame from
// the source on every tick, route it through the decision protocol, hand
// the event to the audit logger, publish metrics, and raise operator alerts
// for decisions that need a human. Shutdown is graceful: the loop stops,
// then the audit queue drains within its configured timeout.
package session
