package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure — no infrastructure dependency.

var (
	// Scheduling errors
	ErrInvalidWindow = errors.New("invalid scheduling window")
	ErrNoFreeTime    = errors.New("commitments fully cover the scheduling window")
	ErrCancelled     = errors.New("scheduling cancelled")
	ErrMalformedTask = errors.New("malformed task")

	// Config errors
	ErrUnknownConfigKey = errors.New("unknown config key")

	// Storage errors
	ErrUserNotFound     = errors.New("user not found")
	ErrProfileNotFound  = errors.New("profile not found")
	ErrScheduleNotFound = errors.New("no schedule stored")

	// Parser errors
	ErrParseFailed = errors.New("could not parse any tasks from message")
)
