package core

import "errors"

// Router error kinds. §8 of SPEC_FULL.md: all provider errors are captured
// at the Router boundary and translated to one of these before they ever
// reach the Turn Engine; no raw provider error enters a prompt.
var (
	ErrBudgetExhausted    = errors.New("budget exhausted")
	ErrNoEligibleModel    = errors.New("no eligible model")
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrTimeout            = errors.New("inference timed out")
	ErrToolUnknown        = errors.New("unknown tool")
)
