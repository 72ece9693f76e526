package services

import (
	"errors"
	"fmt"
)

// ErrNoFiles is returned when the source folder exists but holds nothing to
// process. Callers surface it as a not-found condition rather than a failure.
var ErrNoFiles = errors.New("no files found in source folder")

// SourceListError means enumerating the source folder itself failed; it is
// terminal for the whole batch.
type SourceListError struct {
	Err error
}

func (e *SourceListError) Error() string {
	return fmt.Sprintf("failed to list source folder: %v", e.Err)
}

func (e *SourceListError) Unwrap() error { return e.Err }

// ParseError means the model reply could not be decoded into a question
// record. The raw text is retained for diagnostics; it is never silently
// replaced with empty fields.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse model response: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Per-item failure stages recorded in BatchResult.Failed.
const (
	StageFilter   = "filter"
	StageFetch    = "fetch"
	StageComplete = "complete"
	StageParse    = "parse"
)
