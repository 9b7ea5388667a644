package tipping

import "errors"

var (
	ErrEventNotFound = errors.New("event not found")
	ErrAlreadyTipped = errors.New("already tipped this event")
	ErrZeroTip       = errors.New("tip amount must be positive")
	ErrRateLimited   = errors.New("rate limited")
)
