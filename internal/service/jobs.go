// Package service provides business logic for FluentNotes meeting processing.
package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/raphaelgruber/fluentnotes-go/internal/asr"
	"github.com/raphaelgruber/fluentnotes-go/internal/db"
	"github.com/raphaelgruber/fluentnotes-go/internal/llm"
	"github.com/raphaelgruber/fluentnotes-go/internal/metrics"
	"github.com/raphaelgruber/fluentnotes-go/internal/models"
)

// allowedExtensions are the upload types accepted by Submit.
var allowedExtensions = map[string]bool{
	".wav": true,
	".mp3": true,
	".m4a": true,
}

// Job is the in-memory record of one meeting pipeline.
type Job struct {
	ID               string
	Filename         string
	AudioPath        string
	State            models.JobState
	Transcript       *string
	DetectedLanguage *string
	Summary          *string
	ActionItems      []string
	Decisions        []string
	ErrorMessage     *string
	CreatedAt        time.Time
	CompletedAt      *time.Time

	mu sync.RWMutex
}

// Snapshot returns a thread-safe copy of job state.
func (j *Job) Snapshot() Job {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return Job{
		ID:               j.ID,
		Filename:         j.Filename,
		AudioPath:        j.AudioPath,
		State:            j.State,
		Transcript:       j.Transcript,
		DetectedLanguage: j.DetectedLanguage,
		Summary:          j.Summary,
		ActionItems:      j.ActionItems,
		Decisions:        j.Decisions,
		ErrorMessage:     j.ErrorMessage,
		CreatedAt:        j.CreatedAt,
		CompletedAt:      j.CompletedAt,
	}
}

// Summarizer is the summarization stage contract consumed by the manager.
type Summarizer interface {
	Summarize(ctx context.Context, transcript string) (*llm.Notes, error)
}

// JobManager orchestrates the transcription and summarization pipeline for
// uploaded meetings. Each job's pipeline runs as an independent goroutine;
// a per-job mutex serializes writes to that job's record.
type JobManager struct {
	jobs map[string]*Job
	mu   sync.RWMutex

	db          *db.Client
	transcriber asr.Transcriber
	summarizer  Summarizer
	collector   *metrics.Collector

	uploadDir         string
	transcribeTimeout time.Duration
	summarizeTimeout  time.Duration

	listeners map[string][]chan Job
	lmu       sync.Mutex
}

// JobManagerConfig bundles the dependencies of a JobManager.
type JobManagerConfig struct {
	DB                *db.Client // nil disables persistence (tests)
	Transcriber       asr.Transcriber
	Summarizer        Summarizer
	Collector         *metrics.Collector
	UploadDir         string
	TranscribeTimeout time.Duration
	SummarizeTimeout  time.Duration
}

// NewJobManager creates a new job manager.
func NewJobManager(cfg JobManagerConfig) *JobManager {
	if cfg.TranscribeTimeout <= 0 {
		cfg.TranscribeTimeout = 10 * time.Minute
	}
	if cfg.SummarizeTimeout <= 0 {
		cfg.SummarizeTimeout = 5 * time.Minute
	}
	if cfg.Collector == nil {
		cfg.Collector = metrics.NewCollector()
	}
	return &JobManager{
		jobs:              make(map[string]*Job),
		db:                cfg.DB,
		transcriber:       cfg.Transcriber,
		summarizer:        cfg.Summarizer,
		collector:         cfg.Collector,
		uploadDir:         cfg.UploadDir,
		transcribeTimeout: cfg.TranscribeTimeout,
		summarizeTimeout:  cfg.SummarizeTimeout,
		listeners:         make(map[string][]chan Job),
	}
}

// Submit stores the uploaded audio, creates a job in state received and
// starts its pipeline in the background. Returns immediately with the job ID.
func (m *JobManager) Submit(ctx context.Context, filename string, src io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		return "", fmt.Errorf("%w: unsupported file type %q", ErrValidation, ext)
	}

	if err := os.MkdirAll(m.uploadDir, 0755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	id := uuid.New().String()
	audioPath := filepath.Join(m.uploadDir, id+ext)

	dst, err := os.Create(audioPath)
	if err != nil {
		return "", fmt.Errorf("save upload: %w", err)
	}
	written, err := io.Copy(dst, src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(audioPath)
		return "", fmt.Errorf("save upload: %w", err)
	}
	if written == 0 {
		_ = os.Remove(audioPath)
		return "", fmt.Errorf("%w: empty file", ErrValidation)
	}

	job := &Job{
		ID:        id,
		Filename:  filename,
		AudioPath: audioPath,
		State:     models.StateReceived,
		CreatedAt: time.Now(),
	}

	if m.db != nil {
		if err := m.db.CreateJob(ctx, id, filename, audioPath); err != nil {
			_ = os.Remove(audioPath)
			return "", err
		}
	}

	m.mu.Lock()
	m.jobs[id] = job
	m.mu.Unlock()

	slog.Info("job created", "job_id", id, "filename", filename, "bytes", written)

	go m.runPipeline(job)

	return id, nil
}

// Get retrieves an in-memory job snapshot by ID, nil if unknown.
func (m *JobManager) Get(id string) *Job {
	m.mu.RLock()
	job := m.jobs[id]
	m.mu.RUnlock()
	if job == nil {
		return nil
	}
	snap := job.Snapshot()
	return &snap
}

// Load retrieves a job snapshot, falling back to the database for jobs
// created before the current process. Returns db.ErrNotFound if unknown.
func (m *JobManager) Load(ctx context.Context, id string) (*Job, error) {
	if job := m.Get(id); job != nil {
		return job, nil
	}
	if m.db == nil {
		return nil, fmt.Errorf("%w: %s", db.ErrNotFound, id)
	}
	record, err := m.db.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	job := jobFromRecord(*record)
	return &job, nil
}

// runPipeline drives one job through transcription and summarization.
// Stage failures become the job's terminal failed state; they are never
// returned to a caller because no caller is waiting.
func (m *JobManager) runPipeline(job *Job) {
	ctx := context.Background()
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("pipeline panicked", "job_id", job.ID, "panic", r)
			m.fail(ctx, job, fmt.Sprintf("internal error: %v", r))
		}
	}()

	if !m.setState(ctx, job, models.StateTranscribing) {
		return
	}

	tctx, cancel := context.WithTimeout(ctx, m.transcribeTimeout)
	tstart := time.Now()
	result, err := m.transcriber.Transcribe(tctx, job.AudioPath)
	cancel()
	if err != nil {
		m.collector.RecordFailure(metrics.OpTranscribe, time.Since(tstart))
		m.fail(ctx, job, fmt.Sprintf("transcription failed: %v", err))
		return
	}
	m.collector.RecordTiming(metrics.OpTranscribe, time.Since(tstart))

	m.setTranscript(ctx, job, result.Text, result.Language)

	sctx, cancel := context.WithTimeout(ctx, m.summarizeTimeout)
	sstart := time.Now()
	notes, err := m.summarizer.Summarize(sctx, result.Text)
	cancel()
	if err != nil {
		m.collector.RecordFailure(metrics.OpSummarize, time.Since(sstart))
		m.fail(ctx, job, fmt.Sprintf("summarization failed: %v", err))
		return
	}
	m.collector.RecordTiming(metrics.OpSummarize, time.Since(sstart))

	m.complete(ctx, job, notes)
	m.collector.RecordTiming(metrics.OpPipeline, time.Since(start))
}

// setState advances the job one step forward. Returns false if the
// transition is not legal (job already terminal).
func (m *JobManager) setState(ctx context.Context, job *Job, next models.JobState) bool {
	job.mu.Lock()
	if !job.State.CanTransitionTo(next) {
		job.mu.Unlock()
		slog.Error("illegal state transition", "job_id", job.ID, "from", job.State, "to", next)
		return false
	}
	job.State = next
	job.mu.Unlock()

	if m.db != nil {
		if err := m.db.SetJobState(ctx, job.ID, next); err != nil {
			slog.Warn("failed to persist job state", "job_id", job.ID, "error", err)
		}
	}

	slog.Info("job state changed", "job_id", job.ID, "state", next)
	m.notify(job)
	return true
}

// setTranscript stores the transcription result and advances to summarizing.
func (m *JobManager) setTranscript(ctx context.Context, job *Job, text string, language *string) {
	job.mu.Lock()
	job.Transcript = &text
	job.DetectedLanguage = language
	job.State = models.StateSummarizing
	job.mu.Unlock()

	if m.db != nil {
		if err := m.db.SetJobTranscript(ctx, job.ID, text, language); err != nil {
			slog.Warn("failed to persist transcript", "job_id", job.ID, "error", err)
		}
	}

	slog.Info("job state changed", "job_id", job.ID, "state", models.StateSummarizing)
	m.notify(job)
}

// complete stores the summarization result and marks the job completed.
func (m *JobManager) complete(ctx context.Context, job *Job, notes *llm.Notes) {
	now := time.Now()
	job.mu.Lock()
	job.Summary = &notes.Summary
	job.ActionItems = notes.ActionItems
	job.Decisions = notes.Decisions
	job.State = models.StateCompleted
	job.CompletedAt = &now
	job.mu.Unlock()

	if m.db != nil {
		if err := m.db.CompleteJob(ctx, job.ID, notes.Summary, notes.ActionItems, notes.Decisions); err != nil {
			slog.Warn("failed to persist job completion", "job_id", job.ID, "error", err)
		}
	}

	slog.Info("job completed", "job_id", job.ID,
		"action_items", len(notes.ActionItems), "decisions", len(notes.Decisions))
	m.notify(job)
}

// fail marks the job failed with an error message.
func (m *JobManager) fail(ctx context.Context, job *Job, message string) {
	now := time.Now()
	job.mu.Lock()
	if job.State.Terminal() {
		job.mu.Unlock()
		return
	}
	job.State = models.StateFailed
	job.ErrorMessage = &message
	job.CompletedAt = &now
	job.mu.Unlock()

	if m.db != nil {
		if err := m.db.FailJob(ctx, job.ID, message); err != nil {
			slog.Warn("failed to persist job failure", "job_id", job.ID, "error", err)
		}
	}

	slog.Error("job failed", "job_id", job.ID, "error", message)
	m.notify(job)
}

// FailOrphanedJobs marks jobs left non-terminal by a previous process as
// failed. Interrupted jobs are not resumed; the user re-uploads instead.
func (m *JobManager) FailOrphanedJobs(ctx context.Context) error {
	if m.db == nil {
		return nil
	}

	orphans, err := m.db.IncompleteJobs(ctx)
	if err != nil {
		return err
	}

	for _, record := range orphans {
		id, err := models.RecordIDString(record.ID)
		if err != nil {
			slog.Warn("failed to get job ID", "error", err)
			continue
		}
		if err := m.db.FailJob(ctx, id, "processing interrupted by server restart"); err != nil {
			slog.Warn("failed to mark orphaned job failed", "job_id", id, "error", err)
			continue
		}
		slog.Info("marked orphaned job failed", "job_id", id)
	}

	return nil
}

// Subscribe returns a channel receiving job snapshots on every state change,
// plus a cancel function. The current snapshot is delivered immediately.
func (m *JobManager) Subscribe(id string) (<-chan Job, func()) {
	ch := make(chan Job, 8)

	m.lmu.Lock()
	m.listeners[id] = append(m.listeners[id], ch)
	m.lmu.Unlock()

	if job := m.Get(id); job != nil {
		ch <- *job
	}

	cancel := func() {
		m.lmu.Lock()
		subs := m.listeners[id]
		for i, sub := range subs {
			if sub == ch {
				m.listeners[id] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		if len(m.listeners[id]) == 0 {
			delete(m.listeners, id)
		}
		m.lmu.Unlock()
	}

	return ch, cancel
}

// notify delivers the current snapshot to all subscribers of the job.
// Slow subscribers are skipped rather than blocking the pipeline.
func (m *JobManager) notify(job *Job) {
	snap := job.Snapshot()

	m.lmu.Lock()
	subs := append([]chan Job(nil), m.listeners[job.ID]...)
	m.lmu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- snap:
		default:
		}
	}
}

// jobFromRecord converts a persisted record into the in-memory view.
func jobFromRecord(record models.MeetingJob) Job {
	return Job{
		ID:               models.MustRecordIDString(record.ID),
		Filename:         record.Filename,
		AudioPath:        record.AudioPath,
		State:            record.State,
		Transcript:       record.Transcript,
		DetectedLanguage: record.DetectedLanguage,
		Summary:          record.Summary,
		ActionItems:      record.ActionItems,
		Decisions:        record.Decisions,
		ErrorMessage:     record.ErrorMessage,
		CreatedAt:        record.CreatedAt,
		CompletedAt:      record.CompletedAt,
	}
}
