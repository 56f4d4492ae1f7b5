package asr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/raphaelgruber/fluentnotes-go/pkg/executor"
)

// WhisperConfig configures the whisper.cpp CLI invocation.
type WhisperConfig struct {
	Binary    string
	ModelPath string
	Language  string // empty = auto-detect
	Threads   int
}

// WhisperCPP transcribes audio by shelling out to the whisper.cpp CLI.
type WhisperCPP struct {
	cfg  WhisperConfig
	exec executor.Executor
}

// NewWhisperCPP creates a whisper.cpp backed transcriber.
func NewWhisperCPP(cfg WhisperConfig, exec executor.Executor) *WhisperCPP {
	if cfg.Threads <= 0 {
		cfg.Threads = 4
	}
	return &WhisperCPP{cfg: cfg, exec: exec}
}

// whisperOutput mirrors the relevant parts of whisper.cpp's -oj JSON output.
type whisperOutput struct {
	Result struct {
		Language string `json:"language"`
	} `json:"result"`
	Params struct {
		Language string `json:"language"`
	} `json:"params"`
	Transcription []struct {
		Text string `json:"text"`
	} `json:"transcription"`
}

// Transcribe runs whisper.cpp on the audio file and parses its JSON output.
func (w *WhisperCPP) Transcribe(ctx context.Context, audioPath string) (*Result, error) {
	if _, err := os.Stat(audioPath); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileUnreadable, err)
	}

	// whisper-cli appends .json to the output prefix
	outputPrefix := strings.TrimSuffix(audioPath, filepath.Ext(audioPath))

	lang := w.cfg.Language
	if lang == "" {
		lang = "auto"
	}

	args := []string{
		"-m", w.cfg.ModelPath,
		"-f", audioPath,
		"-oj",
		"-l", lang,
		"-t", strconv.Itoa(w.cfg.Threads),
		"--output-file", outputPrefix,
	}

	slog.Info("starting transcription", "file", audioPath, "threads", w.cfg.Threads, "language", lang)

	if _, err := w.exec.Execute(ctx, w.cfg.Binary, args...); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return nil, fmt.Errorf("whisper transcribe: %w", err)
	}

	jsonPath := outputPrefix + ".json"
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("read whisper output: %w", err)
	}
	defer os.Remove(jsonPath)

	var out whisperOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse whisper output: %w", err)
	}

	var sb strings.Builder
	for _, seg := range out.Transcription {
		sb.WriteString(seg.Text)
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return nil, ErrEmptyTranscript
	}

	result := &Result{Text: text}
	if detected := detectedLanguage(out); detected != "" {
		result.Language = &detected
	}

	slog.Info("transcription complete", "file", audioPath, "chars", len(text))
	return result, nil
}

// detectedLanguage prefers the result-level language; older whisper.cpp
// builds only report it in params.
func detectedLanguage(out whisperOutput) string {
	if out.Result.Language != "" && out.Result.Language != "auto" {
		return out.Result.Language
	}
	if out.Params.Language != "" && out.Params.Language != "auto" {
		return out.Params.Language
	}
	return ""
}
