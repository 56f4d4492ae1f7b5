package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/fluentnotes-go/internal/asr"
	"github.com/raphaelgruber/fluentnotes-go/internal/llm"
	"github.com/raphaelgruber/fluentnotes-go/internal/service"
)

// stubTranscriber returns a canned transcript. A non-nil gate blocks the
// pipeline so tests can hit endpoints while a job is still in flight.
type stubTranscriber struct {
	gate chan struct{}
}

func (s *stubTranscriber) Transcribe(_ context.Context, _ string) (*asr.Result, error) {
	if s.gate != nil {
		<-s.gate
	}
	lang := "en"
	return &asr.Result{Text: "We decided to migrate the billing service next sprint.", Language: &lang}, nil
}

type stubSummarizer struct{}

func (stubSummarizer) Summarize(_ context.Context, _ string) (*llm.Notes, error) {
	return &llm.Notes{
		Summary:     "Migration of the billing service was planned.",
		ActionItems: []string{"Draft the migration runbook"},
		Decisions:   []string{"Migrate billing next sprint"},
	}, nil
}

func newTestServer(t *testing.T, tr asr.Transcriber) http.Handler {
	t.Helper()

	jobs := service.NewJobManager(service.JobManagerConfig{
		Transcriber: tr,
		Summarizer:  stubSummarizer{},
		UploadDir:   t.TempDir(),
	})
	query := service.NewQueryService(nil, jobs)
	export := service.NewExportService(query, nil)

	srv := New(Config{
		Port:   "0",
		Jobs:   jobs,
		Query:  query,
		Export: export,
	})
	return srv.Handler()
}

// uploadRequest builds a multipart POST /v1/meetings request.
func uploadRequest(t *testing.T, filename, content string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", "/v1/meetings", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func doUpload(t *testing.T, handler http.Handler, filename, content string) string {
	t.Helper()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, uploadRequest(t, filename, content))
	require.Equal(t, http.StatusAccepted, rec.Code, "body: %s", rec.Body.String())

	var resp struct {
		JobID    string `json:"job_id"`
		Filename string `json:"filename"`
		Message  string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.JobID)
	assert.Equal(t, filename, resp.Filename)
	return resp.JobID
}

// getStatus fetches the job status response.
func getStatus(t *testing.T, handler http.Handler, id string) (int, map[string]any) {
	t.Helper()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/v1/meetings/"+id, nil))

	var body map[string]any
	if rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec.Code, body
}

// waitState polls the status endpoint until the job reaches the wanted state.
func waitState(t *testing.T, handler http.Handler, id, want string) map[string]any {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	var last map[string]any
	for time.Now().Before(deadline) {
		code, body := getStatus(t, handler, id)
		require.Equal(t, http.StatusOK, code)
		last = body
		if body["state"] == want {
			return body
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s never reached state %s, last: %v", id, want, last)
	return nil
}

func TestUploadAndComplete(t *testing.T) {
	handler := newTestServer(t, &stubTranscriber{})

	id := doUpload(t, handler, "standup.wav", "fake audio bytes")
	body := waitState(t, handler, id, "completed")

	assert.Equal(t, "standup.wav", body["filename"])
	assert.Equal(t, "Migration of the billing service was planned.", body["summary"])
	assert.Nil(t, body["error_message"])
	assert.NotNil(t, body["completed_at"])
	// transcript is served by its own endpoint, not in the status view
	assert.NotContains(t, body, "transcript")
}

func TestUploadEachCallCreatesNewJob(t *testing.T) {
	handler := newTestServer(t, &stubTranscriber{})

	first := doUpload(t, handler, "a.wav", "audio one")
	second := doUpload(t, handler, "a.wav", "audio one")
	assert.NotEqual(t, first, second)
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	handler := newTestServer(t, &stubTranscriber{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, uploadRequest(t, "notes.txt", "plain text"))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, "unsupported file type")
}

func TestUploadMissingFileField(t *testing.T) {
	handler := newTestServer(t, &stubTranscriber{})

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	require.NoError(t, writer.WriteField("other", "value"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", "/v1/meetings", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusUnknownJob(t *testing.T) {
	handler := newTestServer(t, &stubTranscriber{})

	code, _ := getStatus(t, handler, "does-not-exist")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestTranscriptEndpoint(t *testing.T) {
	handler := newTestServer(t, &stubTranscriber{})

	id := doUpload(t, handler, "standup.wav", "fake audio")
	waitState(t, handler, id, "completed")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/v1/meetings/"+id+"/transcript", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Transcript       *string `json:"transcript"`
		DetectedLanguage *string `json:"detected_language"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Transcript)
	assert.Contains(t, *resp.Transcript, "billing service")
	require.NotNil(t, resp.DetectedLanguage)
	assert.Equal(t, "en", *resp.DetectedLanguage)
}

func TestListEndpoint(t *testing.T) {
	handler := newTestServer(t, &stubTranscriber{})

	doUpload(t, handler, "one.wav", "audio")
	doUpload(t, handler, "two.mp3", "audio")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/v1/meetings", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Meetings []map[string]any `json:"meetings"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Meetings, 2)
}

func TestSearchEndpoint(t *testing.T) {
	handler := newTestServer(t, &stubTranscriber{})

	id := doUpload(t, handler, "planning.wav", "fake audio")
	waitState(t, handler, id, "completed")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/v1/meetings/search?query=billing", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Query   string                `json:"query"`
		Results []service.SearchMatch `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "billing", resp.Query)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, id, resp.Results[0].JobID)
	assert.Contains(t, resp.Results[0].Snippet, "billing")
}

func TestSearchEmptyQuery(t *testing.T) {
	handler := newTestServer(t, &stubTranscriber{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/v1/meetings/search?query=", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Results []service.SearchMatch `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Results)
}

func TestExportEndpoint(t *testing.T) {
	handler := newTestServer(t, &stubTranscriber{})

	id := doUpload(t, handler, "standup.wav", "fake audio")
	waitState(t, handler, id, "completed")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/v1/meetings/"+id+"/export", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), fmt.Sprintf("meeting_%s_report.pdf", id))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))
}

func TestExportBeforeCompletion(t *testing.T) {
	tr := &stubTranscriber{gate: make(chan struct{})}
	handler := newTestServer(t, tr)
	defer close(tr.gate)

	id := doUpload(t, handler, "stuck.wav", "fake audio")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/v1/meetings/"+id+"/export", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestStatsEndpoint(t *testing.T) {
	handler := newTestServer(t, &stubTranscriber{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/v1/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var snap map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Contains(t, snap, "uptime_seconds")
}

func TestHealthEndpoint(t *testing.T) {
	handler := newTestServer(t, &stubTranscriber{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
