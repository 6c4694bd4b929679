// Package audit implements the append-only decision audit trail.
//
// Every decision event is serialized as one self-describing JSON object per
// line into a single session log file. Submission never blocks the control
// loop: records travel through a bounded queue to one dedicated background
// worker, the sole writer to the file. When the queue is full the record is
// dropped and counted; control-loop liveness is prioritized over audit
// completeness.
//
// Shutdown is two-phase: the caller requests stop via a cooperative done
// signal, the worker drains every queued record before closing the file,
// and the caller's wait is bounded by its own timeout. The drain itself is
// unbounded; if the caller's timeout expires first the logger reports the
// incomplete drain.
package audit
