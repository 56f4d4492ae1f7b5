package service

import (
	"context"
	"slices"
	"strings"

	"github.com/raphaelgruber/fluentnotes-go/internal/db"
	"github.com/raphaelgruber/fluentnotes-go/internal/models"
)

// snippetWindow is the number of runes kept on each side of a match.
const snippetWindow = 60

// SearchMatch is one search hit: the job and a snippet around the first
// occurrence of the query in its transcript.
type SearchMatch struct {
	JobID    string `json:"job_id"`
	Filename string `json:"filename"`
	Snippet  string `json:"snippet"`
}

// QueryService provides the read-only accessors used by the presentation
// layer. It prefers the durable store and falls back to the in-memory job
// map when persistence is disabled.
type QueryService struct {
	db   *db.Client
	jobs *JobManager
}

// NewQueryService creates a new query service.
func NewQueryService(dbClient *db.Client, jobs *JobManager) *QueryService {
	return &QueryService{db: dbClient, jobs: jobs}
}

// Get retrieves a job by ID. Returns db.ErrNotFound if unknown.
func (q *QueryService) Get(ctx context.Context, id string) (*Job, error) {
	return q.jobs.Load(ctx, id)
}

// List returns all jobs, most recent first.
func (q *QueryService) List(ctx context.Context) ([]Job, error) {
	if q.db == nil {
		return q.jobs.List(), nil
	}

	records, err := q.db.ListJobs(ctx)
	if err != nil {
		return nil, err
	}

	jobs := make([]Job, 0, len(records))
	for _, record := range records {
		jobs = append(jobs, jobFromRecord(record))
	}
	return jobs, nil
}

// Search matches the query case-insensitively against each completed job's
// transcript. One match per job; empty queries match nothing.
func (q *QueryService) Search(ctx context.Context, query string) ([]SearchMatch, error) {
	if strings.TrimSpace(query) == "" {
		return []SearchMatch{}, nil
	}

	candidates, err := q.searchCandidates(ctx, query)
	if err != nil {
		return nil, err
	}

	matches := make([]SearchMatch, 0, len(candidates))
	for _, job := range candidates {
		if job.Transcript == nil {
			continue
		}
		snippet, ok := Snippet(*job.Transcript, query, snippetWindow)
		if !ok {
			continue
		}
		matches = append(matches, SearchMatch{
			JobID:    job.ID,
			Filename: job.Filename,
			Snippet:  snippet,
		})
	}
	return matches, nil
}

// searchCandidates returns completed jobs whose transcript may match.
func (q *QueryService) searchCandidates(ctx context.Context, query string) ([]Job, error) {
	if q.db != nil {
		records, err := q.db.SearchTranscripts(ctx, query)
		if err != nil {
			return nil, err
		}
		jobs := make([]Job, 0, len(records))
		for _, record := range records {
			jobs = append(jobs, jobFromRecord(record))
		}
		return jobs, nil
	}

	var jobs []Job
	for _, job := range q.jobs.List() {
		if job.State == models.StateCompleted {
			jobs = append(jobs, job)
		}
	}
	return jobs, nil
}

// Snippet extracts a bounded-width excerpt around the first case-insensitive
// occurrence of query in text. The window is clamped to the text bounds and
// measured in runes so multi-byte transcripts don't get split mid-character.
func Snippet(text, query string, window int) (string, bool) {
	lowerText := strings.ToLower(text)
	lowerQuery := strings.ToLower(query)

	byteOff := strings.Index(lowerText, lowerQuery)
	if byteOff < 0 {
		return "", false
	}

	runes := []rune(text)
	// byteOff indexes lowerText, whose byte widths can differ from text
	// (ToLower maps rune to rune but not byte to byte), so convert the
	// offset to runes within the lowered string.
	matchStart := len([]rune(lowerText[:byteOff]))
	matchLen := len([]rune(query))

	start := max(matchStart-window, 0)
	end := min(matchStart+matchLen+window, len(runes))

	snippet := string(runes[start:end])
	if start > 0 {
		snippet = "..." + snippet
	}
	if end < len(runes) {
		snippet = snippet + "..."
	}
	return snippet, true
}

// List returns snapshots of all in-memory jobs, most recent first.
func (m *JobManager) List() []Job {
	m.mu.RLock()
	jobs := make([]Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, job.Snapshot())
	}
	m.mu.RUnlock()

	slices.SortFunc(jobs, func(a, b Job) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return jobs
}
