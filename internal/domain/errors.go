package domain

import "errors"

var (
	// ErrAuthorizationDenied means a recording or speech permission was refused.
	ErrAuthorizationDenied = errors.New("authorization denied")
	// ErrDeviceUnavailable means no capture source could be opened.
	ErrDeviceUnavailable = errors.New("capture device unavailable")
	// ErrIO wraps file read, write and copy failures.
	ErrIO = errors.New("i/o failure")
	// ErrNoFrames means frame extraction produced nothing.
	ErrNoFrames = errors.New("no frames could be extracted")
	// ErrSessionEmpty means export was attempted before analysis data exists.
	ErrSessionEmpty = errors.New("session has no screenshots or transcriptions")
	// ErrNoMedia means analysis was requested before a recording was attached.
	ErrNoMedia = errors.New("session has no recorded media")

	ErrSessionNotFound = errors.New("session not found")
	// ErrInvalidTransition is returned when a lifecycle call does not match
	// the current state. The state is left unchanged.
	ErrInvalidTransition = errors.New("invalid recording state transition")
)
