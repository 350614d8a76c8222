package domain

import "errors"

var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrExperimentNotFound = errors.New("experiment not found")

	// ErrEthicalGuideline marks an experiment configuration that breaks one
	// of the ethical invariants (crisis exclusion, primary thresholds, duration).
	ErrEthicalGuideline = errors.New("ethical guideline violated")

	ErrInvalidExperiment = errors.New("invalid experiment configuration")
	ErrInvalidTransition = errors.New("invalid experiment status transition")
)
