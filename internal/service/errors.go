package service

import "errors"

// Sentinel errors surfaced to the presentation layer.
var (
	// ErrValidation indicates a bad upload (no file, unsupported type).
	ErrValidation = errors.New("invalid upload")

	// ErrExportPrecondition indicates export was requested before the job
	// reached the completed state.
	ErrExportPrecondition = errors.New("job not completed")
)
