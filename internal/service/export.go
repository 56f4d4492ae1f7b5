package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/gomutex/godocx"
	"github.com/raphaelgruber/fluentnotes-go/internal/metrics"
	"github.com/raphaelgruber/fluentnotes-go/internal/models"
)

// ExportFormat selects the rendered artifact type.
type ExportFormat string

const (
	FormatPDF  ExportFormat = "pdf"
	FormatDOCX ExportFormat = "docx"
	FormatJSON ExportFormat = "json"
	FormatTXT  ExportFormat = "txt"
)

// ContentType returns the MIME type for the format.
func (f ExportFormat) ContentType() string {
	switch f {
	case FormatDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case FormatJSON:
		return "application/json"
	case FormatTXT:
		return "text/plain; charset=utf-8"
	default:
		return "application/pdf"
	}
}

// ExportOptions configures report rendering.
type ExportOptions struct {
	Format            ExportFormat
	IncludeTranscript bool
}

// ExportService renders completed jobs into downloadable reports.
type ExportService struct {
	query     *QueryService
	collector *metrics.Collector
}

// NewExportService creates a new export service.
func NewExportService(query *QueryService, collector *metrics.Collector) *ExportService {
	if collector == nil {
		collector = metrics.NewCollector()
	}
	return &ExportService{query: query, collector: collector}
}

// Export renders the job's report. The job must be in state completed;
// otherwise ErrExportPrecondition is returned.
func (s *ExportService) Export(ctx context.Context, id string, opts ExportOptions) ([]byte, error) {
	job, err := s.query.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.State != models.StateCompleted {
		return nil, fmt.Errorf("%w: job %s is %s", ErrExportPrecondition, id, job.State)
	}

	start := time.Now()
	var data []byte
	switch opts.Format {
	case FormatDOCX:
		data, err = renderDOCX(job, opts.IncludeTranscript)
	case FormatJSON:
		data, err = renderJSON(job, opts.IncludeTranscript)
	case FormatTXT:
		data, err = renderTXT(job, opts.IncludeTranscript)
	case FormatPDF, "":
		data, err = renderPDF(job, opts.IncludeTranscript)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", ErrValidation, opts.Format)
	}
	if err != nil {
		s.collector.RecordFailure(metrics.OpExport, time.Since(start))
		return nil, err
	}
	s.collector.RecordTiming(metrics.OpExport, time.Since(start))
	return data, nil
}

// renderPDF builds the meeting report PDF.
func renderPDF(job *Job, includeTranscript bool) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetHeaderFunc(func() {
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(0, 10, "Meeting Report", "", 1, "C", false, 0, "")
		pdf.Ln(4)
	})

	pdf.AddPage()

	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("File: %s", job.Filename)), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Created: %s", job.CreatedAt.Format(time.RFC1123)), "", 1, "L", false, 0, "")
	if job.DetectedLanguage != nil {
		pdf.CellFormat(0, 6, fmt.Sprintf("Language: %s", *job.DetectedLanguage), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	addSection := func(title, body string) {
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(0, 8, title, "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 11)
		pdf.MultiCell(0, 5, tr(body), "", "L", false)
		pdf.Ln(4)
	}

	addList := func(title string, items []string) {
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(0, 8, title, "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 11)
		if len(items) == 0 {
			pdf.MultiCell(0, 5, "None identified.", "", "L", false)
		}
		for _, item := range items {
			pdf.MultiCell(0, 5, tr("- "+item), "", "L", false)
		}
		pdf.Ln(4)
	}

	summary := ""
	if job.Summary != nil {
		summary = *job.Summary
	}
	addSection("Summary", summary)
	addList("Action Items", job.ActionItems)
	addList("Decisions", job.Decisions)

	if includeTranscript && job.Transcript != nil {
		addSection("Full Transcript", *job.Transcript)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// renderDOCX builds the meeting report as a Word document. godocx only
// saves to a path, so it goes through a temp file.
func renderDOCX(job *Job, includeTranscript bool) ([]byte, error) {
	doc, err := godocx.NewDocument()
	if err != nil {
		return nil, fmt.Errorf("create docx: %w", err)
	}

	doc.AddParagraph("").AddText("Meeting Report").Size(16).Bold(true)
	doc.AddParagraph("").AddText(fmt.Sprintf("File: %s", job.Filename)).Size(11)
	doc.AddParagraph("").AddText(fmt.Sprintf("Created: %s", job.CreatedAt.Format(time.RFC1123))).Size(11)
	doc.AddParagraph("")

	addHeading := func(title string) {
		doc.AddParagraph("").AddText(title).Size(13).Bold(true)
	}

	addHeading("Summary")
	if job.Summary != nil {
		doc.AddParagraph("").AddText(*job.Summary).Size(11)
	}

	addHeading("Action Items")
	for _, item := range job.ActionItems {
		doc.AddParagraph("").AddText("- " + item).Size(11)
	}

	addHeading("Decisions")
	for _, item := range job.Decisions {
		doc.AddParagraph("").AddText("- " + item).Size(11)
	}

	if includeTranscript && job.Transcript != nil {
		addHeading("Full Transcript")
		doc.AddParagraph("").AddText(*job.Transcript).Size(11)
	}

	tmp, err := os.CreateTemp("", "fluentnotes-*.docx")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()
	defer os.Remove(tmpPath)

	if err := doc.SaveTo(tmpPath); err != nil {
		return nil, fmt.Errorf("render docx: %w", err)
	}
	return os.ReadFile(tmpPath)
}

// renderTXT builds the meeting report as plain text.
func renderTXT(job *Job, includeTranscript bool) ([]byte, error) {
	var b strings.Builder
	b.WriteString("Meeting Report\n")
	b.WriteString("==============\n\n")
	fmt.Fprintf(&b, "File: %s\n", job.Filename)
	fmt.Fprintf(&b, "Created: %s\n", job.CreatedAt.Format(time.RFC1123))
	if job.DetectedLanguage != nil {
		fmt.Fprintf(&b, "Language: %s\n", *job.DetectedLanguage)
	}

	section := func(title string) {
		fmt.Fprintf(&b, "\n%s\n%s\n", title, strings.Repeat("-", len(title)))
	}

	section("Summary")
	if job.Summary != nil {
		b.WriteString(*job.Summary)
		b.WriteString("\n")
	}

	writeList := func(title string, items []string) {
		section(title)
		if len(items) == 0 {
			b.WriteString("None identified.\n")
			return
		}
		for _, item := range items {
			fmt.Fprintf(&b, "- %s\n", item)
		}
	}
	writeList("Action Items", job.ActionItems)
	writeList("Decisions", job.Decisions)

	if includeTranscript && job.Transcript != nil {
		section("Full Transcript")
		b.WriteString(*job.Transcript)
		b.WriteString("\n")
	}

	return []byte(b.String()), nil
}

// exportRecord is the JSON export shape.
type exportRecord struct {
	JobID       string     `json:"job_id"`
	Filename    string     `json:"filename"`
	Summary     *string    `json:"summary"`
	ActionItems []string   `json:"action_items"`
	Decisions   []string   `json:"decisions"`
	Transcript  *string    `json:"transcript,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func renderJSON(job *Job, includeTranscript bool) ([]byte, error) {
	record := exportRecord{
		JobID:       job.ID,
		Filename:    job.Filename,
		Summary:     job.Summary,
		ActionItems: job.ActionItems,
		Decisions:   job.Decisions,
		CreatedAt:   job.CreatedAt,
		CompletedAt: job.CompletedAt,
	}
	if includeTranscript {
		record.Transcript = job.Transcript
	}
	return json.MarshalIndent(record, "", "  ")
}
