// Package db provides SurrealDB query functions for meeting job operations.
package db

import (
	"context"
	"fmt"

	"github.com/raphaelgruber/fluentnotes-go/internal/models"
	"github.com/surrealdb/surrealdb.go"
)

// CreateJob inserts a new meeting job in state received.
func (c *Client) CreateJob(ctx context.Context, id, filename, audioPath string) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		CREATE type::record("meeting_job", $id) SET
			filename = $filename,
			audio_path = $audio_path,
			state = $state,
			created_at = time::now()
	`, map[string]any{
		"id":         id,
		"filename":   filename,
		"audio_path": audioPath,
		"state":      string(models.StateReceived),
	})
	if err != nil {
		return fmt.Errorf("create job: %w", wrapQueryError(err))
	}
	return nil
}

// GetJob retrieves a meeting job by ID. Returns ErrNotFound if it does not exist.
func (c *Client) GetJob(ctx context.Context, id string) (*models.MeetingJob, error) {
	results, err := surrealdb.Query[[]models.MeetingJob](ctx, c.db, `
		SELECT * FROM type::record("meeting_job", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get job: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return &(*results)[0].Result[0], nil
}

// ListJobs returns all meeting jobs, most recent first.
func (c *Client) ListJobs(ctx context.Context) ([]models.MeetingJob, error) {
	results, err := surrealdb.Query[[]models.MeetingJob](ctx, c.db, `
		SELECT * FROM meeting_job ORDER BY created_at DESC
	`, nil)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []models.MeetingJob{}, nil
	}
	return (*results)[0].Result, nil
}

// SetJobState updates only the state of a job.
func (c *Client) SetJobState(ctx context.Context, id string, state models.JobState) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("meeting_job", $id) SET state = $state
	`, map[string]any{"id": id, "state": string(state)})
	if err != nil {
		return fmt.Errorf("set job state: %w", wrapQueryError(err))
	}
	return nil
}

// SetJobTranscript stores the transcription result and advances the job to
// summarizing in a single write.
func (c *Client) SetJobTranscript(ctx context.Context, id, transcript string, language *string) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("meeting_job", $id) SET
			transcript = $transcript,
			detected_language = $language,
			state = $state
	`, map[string]any{
		"id":         id,
		"transcript": transcript,
		"language":   language,
		"state":      string(models.StateSummarizing),
	})
	if err != nil {
		return fmt.Errorf("set job transcript: %w", wrapQueryError(err))
	}
	return nil
}

// CompleteJob stores the summarization result and marks the job completed.
func (c *Client) CompleteJob(ctx context.Context, id, summary string, actionItems, decisions []string) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("meeting_job", $id) SET
			summary = $summary,
			action_items = $action_items,
			decisions = $decisions,
			state = $state,
			completed_at = time::now()
	`, map[string]any{
		"id":           id,
		"summary":      summary,
		"action_items": actionItems,
		"decisions":    decisions,
		"state":        string(models.StateCompleted),
	})
	if err != nil {
		return fmt.Errorf("complete job: %w", wrapQueryError(err))
	}
	return nil
}

// FailJob marks the job failed with an error message.
func (c *Client) FailJob(ctx context.Context, id, message string) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("meeting_job", $id) SET
			error_message = $message,
			state = $state,
			completed_at = time::now()
	`, map[string]any{
		"id":      id,
		"message": message,
		"state":   string(models.StateFailed),
	})
	if err != nil {
		return fmt.Errorf("fail job: %w", wrapQueryError(err))
	}
	return nil
}

// SearchTranscripts returns completed jobs whose transcript contains the
// query case-insensitively. Snippet extraction happens in the caller.
func (c *Client) SearchTranscripts(ctx context.Context, query string) ([]models.MeetingJob, error) {
	results, err := surrealdb.Query[[]models.MeetingJob](ctx, c.db, `
		SELECT id, filename, transcript, created_at, state FROM meeting_job
		WHERE state = $state
			AND transcript != NONE
			AND string::contains(string::lowercase(transcript), string::lowercase($q))
		ORDER BY created_at DESC
	`, map[string]any{
		"q":     query,
		"state": string(models.StateCompleted),
	})
	if err != nil {
		return nil, fmt.Errorf("search transcripts: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []models.MeetingJob{}, nil
	}
	return (*results)[0].Result, nil
}

// IncompleteJobs returns jobs that are neither completed nor failed.
// Used at startup to fail jobs orphaned by a previous crash.
func (c *Client) IncompleteJobs(ctx context.Context) ([]models.MeetingJob, error) {
	results, err := surrealdb.Query[[]models.MeetingJob](ctx, c.db, `
		SELECT * FROM meeting_job
		WHERE state NOT IN [$completed, $failed]
		ORDER BY created_at ASC
	`, map[string]any{
		"completed": string(models.StateCompleted),
		"failed":    string(models.StateFailed),
	})
	if err != nil {
		return nil, fmt.Errorf("incomplete jobs: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []models.MeetingJob{}, nil
	}
	return (*results)[0].Result, nil
}
