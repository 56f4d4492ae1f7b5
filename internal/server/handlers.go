package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/raphaelgruber/fluentnotes-go/internal/db"
	"github.com/raphaelgruber/fluentnotes-go/internal/service"
)

// maxUploadBytes caps multipart parsing memory; larger files spill to disk.
const maxUploadBytes = 512 << 20

// uploadResponse is returned by POST /v1/meetings.
type uploadResponse struct {
	JobID    string `json:"job_id"`
	Filename string `json:"filename"`
	Message  string `json:"message"`
}

// jobResponse is the status view of a job. The transcript has its own
// endpoint, matching the polling client's access pattern.
type jobResponse struct {
	JobID            string     `json:"job_id"`
	Filename         string     `json:"filename"`
	State            string     `json:"state"`
	DetectedLanguage *string    `json:"detected_language,omitempty"`
	Summary          *string    `json:"summary,omitempty"`
	ActionItems      []string   `json:"action_items,omitempty"`
	Decisions        []string   `json:"decisions,omitempty"`
	ErrorMessage     *string    `json:"error_message,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

func toJobResponse(job *service.Job) jobResponse {
	return jobResponse{
		JobID:            job.ID,
		Filename:         job.Filename,
		State:            string(job.State),
		DetectedLanguage: job.DetectedLanguage,
		Summary:          job.Summary,
		ActionItems:      job.ActionItems,
		Decisions:        job.Decisions,
		ErrorMessage:     job.ErrorMessage,
		CreatedAt:        job.CreatedAt,
		CompletedAt:      job.CompletedAt,
	}
}

// handleUpload accepts a multipart audio file and starts a new job.
// Always fast: no model inference happens on this path.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, fmt.Errorf("%w: %v", service.ErrValidation, err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, fmt.Errorf("%w: missing file field", service.ErrValidation))
		return
	}
	defer file.Close()

	jobID, err := s.jobs.Submit(r.Context(), header.Filename, file)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, uploadResponse{
		JobID:    jobID,
		Filename: header.Filename,
		Message:  "File upload accepted. Processing started in background.",
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	job, err := s.query.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toJobResponse(job))
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.query.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	responses := make([]jobResponse, 0, len(jobs))
	for i := range jobs {
		responses = append(responses, toJobResponse(&jobs[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"meetings": responses})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	job, err := s.query.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"job_id":       job.ID,
		"summary":      job.Summary,
		"action_items": job.ActionItems,
		"decisions":    job.Decisions,
	})
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	job, err := s.query.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"job_id":            job.ID,
		"transcript":        job.Transcript,
		"detected_language": job.DetectedLanguage,
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")

	matches, err := s.query.Search(r.Context(), query)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"query":   query,
		"results": matches,
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	format := service.ExportFormat(r.URL.Query().Get("format"))
	if format == "" {
		format = service.FormatPDF
	}
	includeTranscript := r.URL.Query().Get("transcript") != "false"

	data, err := s.export.Export(r.Context(), id, service.ExportOptions{
		Format:            format,
		IncludeTranscript: includeTranscript,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="meeting_%s_report.%s"`, id, format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.collector.Snapshot())
}

// errorResponse is the JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps the error taxonomy onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, db.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrExportPrecondition):
		status = http.StatusConflict
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
