// Package decision turns sensor, weather and history signals into a
// watering decision.
//
// Two strategies produce the same Decision shape: the advisory strategy
// asks the external reasoning service, the deterministic strategy applies
// fixed moisture thresholds with a forecast-rain skip. The engine tries
// the advisory strategy when enabled and falls back to deterministic on
// any failure, so an unreachable or incoherent advisor can never block a
// cycle.
//
// Whatever strategy answered, the engine clamps the result: a skip always
// carries duration 0, and a watering duration always lands inside the
// configured [min, max] bounds. The clamp is unconditional; no strategy
// output bypasses it. This is the system's core safety invariant.
package decision
