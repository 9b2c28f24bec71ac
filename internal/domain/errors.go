package domain

import "errors"

// Sentinel errors checked with errors.Is by the Supervisor and Mode
// Controller for the fatal-vs-skip-vs-retry classification in §7.
var (
	ErrInsufficientFunds  = errors.New("insufficient local balance for order")
	ErrInsufficientShares = errors.New("insufficient token balance for order")
	ErrRateLimited        = errors.New("rate limited by exchange")
	ErrLiveInitFailed     = errors.New("live executor initialization failed")
	ErrCredentialsMissing = errors.New("live credentials missing or invalid")
)
