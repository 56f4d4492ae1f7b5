// Package config loads FluentNotes configuration from the environment,
// optionally overlaid on a YAML config file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LLM provider names.
const (
	ProviderOllama    = "ollama"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config holds all configuration values.
type Config struct {
	// SurrealDB connection
	SurrealDBURL       string `yaml:"surrealdb_url"`
	SurrealDBNamespace string `yaml:"surrealdb_namespace"`
	SurrealDBDatabase  string `yaml:"surrealdb_database"`
	SurrealDBUser      string `yaml:"surrealdb_user"`
	SurrealDBPass      string `yaml:"surrealdb_pass"`
	SurrealDBAuthLevel string `yaml:"surrealdb_auth_level"`

	// LLM collaborator
	LLMProvider     string `yaml:"llm_provider"`
	LLMModel        string `yaml:"llm_model"`
	OllamaHost      string `yaml:"ollama_host"`
	OpenAIAPIKey    string `yaml:"openai_api_key"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`

	// Whisper ASR collaborator
	WhisperBinary   string `yaml:"whisper_binary"`
	WhisperModel    string `yaml:"whisper_model"`
	WhisperLanguage string `yaml:"whisper_language"` // empty = auto-detect
	WhisperThreads  int    `yaml:"whisper_threads"`

	// Storage
	UploadDir string `yaml:"upload_dir"`

	// Server
	ServerPort string `yaml:"server_port"`

	// Pipeline timeouts
	TranscribeTimeout time.Duration `yaml:"transcribe_timeout"`
	SummarizeTimeout  time.Duration `yaml:"summarize_timeout"`

	// Logging
	LogFile  string     `yaml:"log_file"`
	LogLevel slog.Level `yaml:"-"`
}

// Load reads configuration from environment variables.
func Load() Config {
	return overlayEnv(defaults())
}

// LoadFile reads a YAML config file and overlays environment variables on
// top, so the environment always wins.
func LoadFile(path string) (Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	return overlayEnv(cfg), nil
}

func defaults() Config {
	return Config{
		SurrealDBURL:       "ws://localhost:8000/rpc",
		SurrealDBNamespace: "fluentnotes",
		SurrealDBDatabase:  "meetings",
		SurrealDBUser:      "root",
		SurrealDBPass:      "root",
		SurrealDBAuthLevel: "root",

		LLMProvider: ProviderOllama,
		LLMModel:    "llama3",
		OllamaHost:  "http://localhost:11434",

		WhisperBinary:  "whisper-cli",
		WhisperModel:   "models/ggml-base.bin",
		WhisperThreads: 4,

		UploadDir:  "uploads",
		ServerPort: "8475",

		TranscribeTimeout: 10 * time.Minute,
		SummarizeTimeout:  5 * time.Minute,

		LogFile:  "/tmp/fluentnotes.log",
		LogLevel: slog.LevelInfo,
	}
}

func overlayEnv(cfg Config) Config {
	cfg.SurrealDBURL = getEnv("SURREALDB_URL", cfg.SurrealDBURL)
	cfg.SurrealDBNamespace = getEnv("SURREALDB_NAMESPACE", cfg.SurrealDBNamespace)
	cfg.SurrealDBDatabase = getEnv("SURREALDB_DATABASE", cfg.SurrealDBDatabase)
	cfg.SurrealDBUser = getEnv("SURREALDB_USER", cfg.SurrealDBUser)
	cfg.SurrealDBPass = getEnv("SURREALDB_PASS", cfg.SurrealDBPass)
	cfg.SurrealDBAuthLevel = getEnv("SURREALDB_AUTH_LEVEL", cfg.SurrealDBAuthLevel)

	cfg.LLMProvider = strings.ToLower(getEnv("FLUENTNOTES_LLM_PROVIDER", cfg.LLMProvider))
	cfg.LLMModel = getEnv("FLUENTNOTES_LLM_MODEL", cfg.LLMModel)
	cfg.OllamaHost = getEnv("OLLAMA_HOST", cfg.OllamaHost)
	cfg.OpenAIAPIKey = getEnv("OPENAI_API_KEY", cfg.OpenAIAPIKey)
	cfg.AnthropicAPIKey = getEnv("ANTHROPIC_API_KEY", cfg.AnthropicAPIKey)

	cfg.WhisperBinary = getEnv("FLUENTNOTES_WHISPER_BINARY", cfg.WhisperBinary)
	cfg.WhisperModel = getEnv("FLUENTNOTES_WHISPER_MODEL", cfg.WhisperModel)
	cfg.WhisperLanguage = getEnv("FLUENTNOTES_WHISPER_LANGUAGE", cfg.WhisperLanguage)
	cfg.WhisperThreads = getEnvInt("FLUENTNOTES_WHISPER_THREADS", cfg.WhisperThreads)

	cfg.UploadDir = getEnv("FLUENTNOTES_UPLOAD_DIR", cfg.UploadDir)
	cfg.ServerPort = getEnv("FLUENTNOTES_SERVER_PORT", cfg.ServerPort)

	cfg.TranscribeTimeout = getEnvDuration("FLUENTNOTES_TRANSCRIBE_TIMEOUT", cfg.TranscribeTimeout)
	cfg.SummarizeTimeout = getEnvDuration("FLUENTNOTES_SUMMARIZE_TIMEOUT", cfg.SummarizeTimeout)

	cfg.LogFile = getEnv("FLUENTNOTES_LOG_FILE", cfg.LogFile)
	cfg.LogLevel = parseLogLevel(getEnv("FLUENTNOTES_LOG_LEVEL", "INFO"))

	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
