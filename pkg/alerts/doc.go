// Package alerts delivers operator notifications for decisions that need a
// human: irreversible mitigations held for approval, structural violations,
// and trust boundary breaches. Emitters are pluggable; the structured-log
// emitter always works, the Pub/Sub emitter feeds an external paging
// pipeline, and the multi emitter fans out to both.
package alerts
