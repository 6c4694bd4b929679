// Package archive provides long-term queryable storage for audit trails.
//
// Session JSONL files are the write-path format; this package imports them
// into a SQLite database so operators can query decisions across sessions
// (by outcome, time range, or approval requirement) and apply retention.
// Imports are idempotent: a record id already present is skipped, so
// re-importing a session file is safe.
package archive
