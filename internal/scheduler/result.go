package scheduler

import (
	"fmt"
	"time"
)

// Action summarizes what an entry point did.
type Action string

// Actions.
const (
	// ActionNone: the invocation ran to completion without touching a valve
	// (decision was skip, or nothing to stop).
	ActionNone Action = "none"

	// ActionSkipped: a guard stopped the run early (outside window, session
	// already active, device offline).
	ActionSkipped Action = "skipped"

	// ActionStarted: a watering session was started.
	ActionStarted Action = "started"

	// ActionStopped: one or more sessions were stopped or reconciled.
	ActionStopped Action = "stopped"
)

// StepLine is one timestamped entry in the run's ordered step log.
type StepLine struct {
	At      time.Time `json:"at"`
	Message string    `json:"message"`
}

// RunResult is what an entry point hands back to the trigger caller.
// Errors never propagate past the entry point; they land in Error with
// Success false.
type RunResult struct {
	Success bool       `json:"success"`
	Action  Action     `json:"action"`
	Zone    string     `json:"zone"`
	Error   string     `json:"error,omitempty"`
	Steps   []StepLine `json:"steps"`
}

// step appends a formatted line to the ordered log.
func (r *RunResult) step(at time.Time, format string, args ...any) {
	r.Steps = append(r.Steps, StepLine{At: at, Message: fmt.Sprintf(format, args...)})
}
