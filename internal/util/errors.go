package util

import "errors"

// Sentinel errors for common failure modes
var (
	// ErrNotFound indicates a required resource was not found
	ErrNotFound = errors.New("not found")

	// ErrCorrupt indicates a source file is corrupt or unreadable
	ErrCorrupt = errors.New("corrupt file")

	// ErrNoSheets indicates no recognized sheet was found in a source
	ErrNoSheets = errors.New("no recognized sheets")

	// ErrInvalidConfig indicates invalid configuration
	ErrInvalidConfig = errors.New("invalid configuration")
)
