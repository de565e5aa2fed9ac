// Package errs holds the fatal/non-fatal error taxonomy shared by every
// package in this module. Fatal kinds are meant to propagate to a cmd/*
// main and terminate the process with a one-line diagnostic; non-fatal
// kinds are recorded into a result record and never cross the MDP loop
// boundary.
package errs

import "errors"

// Fatal error kinds. Wrap with fmt.Errorf("...: %w", kind) to attach
// the offending path/plan/version.
var (
	IOMissing      = errors.New("input file missing")
	SchemaMismatch = errors.New("row width disagrees with dimension/plan count")
	InvalidPlan    = errors.New("plan id out of range")
	VersionMismatch = errors.New("unknown environment/network variant")
)

// Non-fatal kinds, recorded as a record.Evaluated.Reason string rather
// than returned as an error.
const (
	ReasonQueryTimeout            = "query_timeout"
	ReasonInsufficientTrainingData = "insufficient_training_data"
	ReasonNotPossible             = "not_possible"
	ReasonWin                     = "win"
	ReasonPlanningTooLong         = "planning_too_long"
	ReasonTooOptimistic           = "too_optimistic"
	ReasonTooPessimistic          = "too_pessimistic"
)

// Is reports whether err (or any error it wraps) is one of the fatal kinds.
func Is(err, kind error) bool {
	return errors.Is(err, kind)
}
