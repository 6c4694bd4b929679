// Package report computes offline session KPIs from audit trail files:
// outcome distribution, constraint adherence, layer latency percentiles,
// trust boundary rate, and detector token economics. It reads the JSONL
// session logs the audit logger writes; nothing here touches the live
// pipeline.
package report
