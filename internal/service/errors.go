// Package service implements the Power Lunch matching pipeline: fetch pending
// registrations, ask the matching oracle for groups, commit them atomically,
// and fan out push notifications.
package service

import "errors"

var (
	// ErrOracleTransport is returned when the matching oracle call itself fails.
	ErrOracleTransport = errors.New("matching oracle request failed")

	// ErrOracleOutputInvalid is returned when a proposal violates the request's
	// constraints or references unknown registrations.
	ErrOracleOutputInvalid = errors.New("matching oracle returned an invalid proposal")

	// ErrCommitFailure is returned when the atomic group commit fails.
	ErrCommitFailure = errors.New("failed to commit matching result")

	// ErrRunInProgress is returned when another run holds the lock for the same
	// conference and lunch date.
	ErrRunInProgress = errors.New("a matching run is already in progress for this lunch date")
)
