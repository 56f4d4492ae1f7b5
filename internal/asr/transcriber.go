// Package asr adapts an external speech-to-text collaborator into the
// transcription stage of the meeting pipeline.
package asr

import (
	"context"
	"errors"
)

// Sentinel errors surfaced by the transcription stage.
var (
	// ErrFileUnreadable indicates the audio file is missing or unreadable.
	ErrFileUnreadable = errors.New("audio file unreadable")

	// ErrUnavailable indicates the ASR collaborator could not be invoked.
	ErrUnavailable = errors.New("transcription backend unavailable")

	// ErrEmptyTranscript indicates the collaborator produced no text.
	ErrEmptyTranscript = errors.New("transcription produced empty result")
)

// Result is the output of a transcription run.
type Result struct {
	// Text is the full plain-text transcript.
	Text string
	// Language is the detected language tag, nil if unknown.
	Language *string
}

// Transcriber converts an audio file into text.
// Implementations are pure over their inputs; persistence is the caller's job.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (*Result, error)
}
