// Package scheduler holds the two externally-triggered entry points of the
// engine.
//
// There is no in-process timer. An external periodic trigger (cron, systemd
// timer, hosted scheduler) calls the HTTP trigger routes, which invoke:
//
//   - EvaluateAndStart: window gate, active-session check, sensor read,
//     decision, device online check, session start.
//   - CheckAndStop: stop every active session past its scheduled end, then
//     reconcile stale sessions. Never gated by the time window; a running
//     session must always be stoppable.
//
// Both are stateless: every invocation re-derives all state from the store
// and the devices, so overlapping or repeated triggers are safe. Neither
// returns an error past its boundary; outcomes fold into a RunResult with
// an ordered, timestamped step log for the caller to record.
package scheduler
