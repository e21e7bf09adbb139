package aggregator

import "errors"

// ErrInsufficientSubmissions is returned when a phase's submission
// count falls below the threshold t at its deadline (spec §7.1).
var ErrInsufficientSubmissions = errors.New("aggregator: insufficient submissions")

// ErrConsistencyViolation is returned when at least one client
// dissented during the phase-4 grace window (spec §7.2).
var ErrConsistencyViolation = errors.New("aggregator: consistency violation")

// ExitCode maps a round error to the process exit code spec §6
// "Exit semantics" specifies.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrInsufficientSubmissions):
		return 1
	case errors.Is(err, ErrConsistencyViolation):
		return 2
	default:
		return 1
	}
}
