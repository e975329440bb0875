// Package advisory asks an external reasoning service for a watering
// recommendation.
//
// The service speaks a chat-completion style API: the engine sends one
// prompt embedding zone metadata, the latest soil reading, a weather
// summary and recent session history, and receives free text back. The
// text is expected to contain one embedded JSON object with the
// recommendation fields; ExtractJSON pulls the first balanced object out
// of the surrounding prose, and Validate checks its fields. Extraction
// failures and semantic failures are distinct errors so logs can tell
// "no JSON at all" from "JSON with bad fields".
//
// Calls run through a circuit breaker. After a configured number of
// consecutive failures the breaker opens and Recommend fails fast for the
// configured cool-off, during which the caller uses its deterministic
// fallback without paying the request timeout each cycle.
//
// This package never decides anything: a failed recommendation is an error
// for the decision engine to recover from, not a skip or a default.
package advisory
