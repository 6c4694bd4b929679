// Package retention enforces retention policy on the decision archive.
//
// Pruning happens in two phases: age-based (delete decisions older than the
// retention period) and count-based (trim the archive to a maximum record
// count, oldest first). Either phase can be disabled by setting its limit
// to zero. A cron scheduler runs pruning unattended; it is skipped entirely
// when no schedule is configured.
package retention
