// Package models defines data structures for FluentNotes meeting jobs.
package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// JobState is the lifecycle state of a meeting job.
type JobState string

const (
	StateReceived     JobState = "received"
	StateTranscribing JobState = "transcribing"
	StateSummarizing  JobState = "summarizing"
	StateCompleted    JobState = "completed"
	StateFailed       JobState = "failed"
)

// stateRank orders the forward progression of the pipeline.
var stateRank = map[JobState]int{
	StateReceived:     0,
	StateTranscribing: 1,
	StateSummarizing:  2,
	StateCompleted:    3,
}

// Terminal reports whether no further transitions may occur from s.
func (s JobState) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// CanTransitionTo reports whether s -> next is a legal transition:
// one step forward, or a jump to failed from any non-terminal state.
func (s JobState) CanTransitionTo(next JobState) bool {
	if s.Terminal() {
		return false
	}
	if next == StateFailed {
		return true
	}
	from, ok := stateRank[s]
	if !ok {
		return false
	}
	to, ok := stateRank[next]
	if !ok {
		return false
	}
	return to == from+1
}

// MeetingJob is the persisted record of one upload-through-summarization
// unit of work.
type MeetingJob struct {
	ID               surrealmodels.RecordID `json:"id"`
	Filename         string                 `json:"filename"`
	AudioPath        string                 `json:"audio_path"`
	State            JobState               `json:"state"`
	Transcript       *string                `json:"transcript,omitempty"`
	DetectedLanguage *string                `json:"detected_language,omitempty"`
	Summary          *string                `json:"summary,omitempty"`
	ActionItems      []string               `json:"action_items,omitempty"`
	Decisions        []string               `json:"decisions,omitempty"`
	ErrorMessage     *string                `json:"error_message,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
	CompletedAt      *time.Time             `json:"completed_at,omitempty"`
}
