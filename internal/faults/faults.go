// Package faults defines the error kinds shared by the extraction and split stages.
//
// Callers wrap these sentinels with fmt.Errorf("...: %w", ...) and match them with errors.Is,
// which lets the command line tell caller mistakes apart from environment or data problems.
package faults

import "errors"

var (
	// ErrConfiguration marks invalid parameters. It is always raised before any output is written.
	ErrConfiguration = errors.New("configuration error")

	// ErrResourceOpen marks a video or source directory that cannot be opened or has no usable content.
	ErrResourceOpen = errors.New("resource open error")

	// ErrCopy marks a source image that could not be copied during materialization.
	ErrCopy = errors.New("copy error")
)
