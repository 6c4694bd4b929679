// Ceres is a bimodal actuation-governance core for spacecraft attitude
// control telemetry.
//
// Every telemetry frame passes a deterministic constraint check before any
// probabilistic reasoning is allowed to run; a structural violation vetoes
// the anomaly detector outright. Every decision, including the veto paths,
// lands in an append-only audit trail.
//
// Usage:
//
//	# Run a session against the synthetic telemetry source
//	ceres run
//
//	# Run the demo fault scenario with a custom config
//	ceres run --config /etc/ceres/ceres.yaml --scenario demo
//
//	# Summarize session KPIs from audit logs
//	ceres report logs/audit/audit_20260830T120000Z.jsonl
//
//	# Archive and query audit trails
//	ceres audit import logs/audit/*.jsonl
//	ceres audit query --outcome ANOMALY_TYPE1
//	ceres audit prune --days 90
//
//	# Validate a configuration file
//	ceres validate --config ceres.yaml
package main

func main() {
	Execute()
}
