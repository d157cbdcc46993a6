package tui

import "errors"

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C).
	ErrAborted = errors.New("tui: aborted")
	// ErrTooManyAttempts is returned when the form keeps failing validation
	// at submission time.
	ErrTooManyAttempts = errors.New("tui: form still invalid after retries")
)
