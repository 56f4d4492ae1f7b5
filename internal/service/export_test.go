package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/raphaelgruber/fluentnotes-go/internal/db"
	"github.com/raphaelgruber/fluentnotes-go/internal/models"
)

func completedJob(id string) *Job {
	transcript := "We reviewed the launch checklist and signed off."
	summary := "Launch checklist reviewed and approved."
	now := time.Now()
	return &Job{
		ID:          id,
		Filename:    "launch-review.wav",
		State:       models.StateCompleted,
		Transcript:  &transcript,
		Summary:     &summary,
		ActionItems: []string{"Send the go-live announcement"},
		Decisions:   []string{"Launch approved"},
		CreatedAt:   now.Add(-time.Minute),
		CompletedAt: &now,
	}
}

func newExportFixture(t *testing.T) *ExportService {
	t.Helper()
	m := newTestManager(t, happyTranscriber(), happySummarizer())
	m.jobs["done"] = completedJob("done")
	m.jobs["pending"] = &Job{ID: "pending", Filename: "p.wav", State: models.StateTranscribing}
	return NewExportService(NewQueryService(nil, m), nil)
}

func TestExportPDF(t *testing.T) {
	svc := newExportFixture(t)

	data, err := svc.Export(context.Background(), "done", ExportOptions{Format: FormatPDF, IncludeTranscript: true})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Errorf("PDF output does not start with %%PDF magic, got %q", data[:min(len(data), 8)])
	}
	if len(data) < 500 {
		t.Errorf("PDF suspiciously small: %d bytes", len(data))
	}
}

func TestExportPDFDefaultFormat(t *testing.T) {
	svc := newExportFixture(t)

	data, err := svc.Export(context.Background(), "done", ExportOptions{})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Error("empty format should default to PDF")
	}
}

func TestExportDOCX(t *testing.T) {
	svc := newExportFixture(t)

	data, err := svc.Export(context.Background(), "done", ExportOptions{Format: FormatDOCX})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	// docx is a zip archive
	if !bytes.HasPrefix(data, []byte("PK")) {
		t.Errorf("DOCX output does not start with zip magic, got %q", data[:min(len(data), 4)])
	}
}

func TestExportJSON(t *testing.T) {
	svc := newExportFixture(t)

	data, err := svc.Export(context.Background(), "done", ExportOptions{Format: FormatJSON, IncludeTranscript: true})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	var record struct {
		JobID       string   `json:"job_id"`
		Summary     *string  `json:"summary"`
		ActionItems []string `json:"action_items"`
		Transcript  *string  `json:"transcript"`
	}
	if err := json.Unmarshal(data, &record); err != nil {
		t.Fatalf("unmarshal export: %v", err)
	}
	if record.JobID != "done" {
		t.Errorf("JobID = %q", record.JobID)
	}
	if record.Summary == nil || *record.Summary == "" {
		t.Error("Summary missing from JSON export")
	}
	if record.Transcript == nil {
		t.Error("Transcript missing despite IncludeTranscript")
	}
}

func TestExportJSONWithoutTranscript(t *testing.T) {
	svc := newExportFixture(t)

	data, err := svc.Export(context.Background(), "done", ExportOptions{Format: FormatJSON})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if bytes.Contains(data, []byte("launch checklist and signed off")) {
		t.Error("transcript leaked into export despite IncludeTranscript=false")
	}
}

func TestExportTXT(t *testing.T) {
	svc := newExportFixture(t)

	data, err := svc.Export(context.Background(), "done", ExportOptions{Format: FormatTXT, IncludeTranscript: true})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	text := string(data)
	for _, want := range []string{
		"Meeting Report",
		"launch-review.wav",
		"Launch checklist reviewed and approved.",
		"- Send the go-live announcement",
		"- Launch approved",
		"Full Transcript",
		"We reviewed the launch checklist and signed off.",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("txt export missing %q:\n%s", want, text)
		}
	}
}

func TestExportTXTWithoutTranscript(t *testing.T) {
	svc := newExportFixture(t)

	data, err := svc.Export(context.Background(), "done", ExportOptions{Format: FormatTXT})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if strings.Contains(string(data), "Full Transcript") {
		t.Errorf("transcript section present despite IncludeTranscript=false:\n%s", data)
	}
}

func TestExportRequiresCompletedJob(t *testing.T) {
	svc := newExportFixture(t)

	_, err := svc.Export(context.Background(), "pending", ExportOptions{Format: FormatPDF})
	if !errors.Is(err, ErrExportPrecondition) {
		t.Errorf("error = %v, want ErrExportPrecondition", err)
	}
}

func TestExportUnknownJob(t *testing.T) {
	svc := newExportFixture(t)

	_, err := svc.Export(context.Background(), "no-such-job", ExportOptions{Format: FormatPDF})
	if !errors.Is(err, db.ErrNotFound) {
		t.Errorf("error = %v, want db.ErrNotFound", err)
	}
}

func TestExportUnknownFormat(t *testing.T) {
	svc := newExportFixture(t)

	_, err := svc.Export(context.Background(), "done", ExportOptions{Format: "xlsx"})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}
