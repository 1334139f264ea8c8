package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is the configuration to start quillnote.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Data is the data directory
	Data string
	// DSN points to where quillnote stores its own data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of quillnote
	Version string

	// AI Configuration
	AIEnabled             bool    // QUILLNOTE_AI_ENABLED
	AIEmbeddingProvider   string  // QUILLNOTE_AI_EMBEDDING_PROVIDER (default: openai)
	AILLMProvider         string  // QUILLNOTE_AI_LLM_PROVIDER (default: openai)
	AISiliconFlowAPIKey   string  // QUILLNOTE_AI_SILICONFLOW_API_KEY
	AISiliconFlowBaseURL  string  // QUILLNOTE_AI_SILICONFLOW_BASE_URL (default: https://api.siliconflow.cn/v1)
	AIDeepSeekAPIKey      string  // QUILLNOTE_AI_DEEPSEEK_API_KEY
	AIDeepSeekBaseURL     string  // QUILLNOTE_AI_DEEPSEEK_BASE_URL (default: https://api.deepseek.com)
	AIOpenAIAPIKey        string  // QUILLNOTE_AI_OPENAI_API_KEY
	AIOpenAIBaseURL       string  // QUILLNOTE_AI_OPENAI_BASE_URL (default: https://api.openai.com/v1)
	AIOllamaBaseURL       string  // QUILLNOTE_AI_OLLAMA_BASE_URL (default: http://localhost:11434/v1)
	AIEmbeddingModel      string  // QUILLNOTE_AI_EMBEDDING_MODEL (default: text-embedding-3-small)
	AIEmbeddingDimensions int     // QUILLNOTE_AI_EMBEDDING_DIMENSIONS (default: 1536)
	AILLMModel            string  // QUILLNOTE_AI_LLM_MODEL (default: gpt-4o-mini)
	AIMaxRetries          int     // QUILLNOTE_AI_MAX_RETRIES (default: 3)
	AIRequestsPerSecond   float64 // QUILLNOTE_AI_REQUESTS_PER_SECOND (default: 5)

	// TracingEndpoint is the OTLP gRPC endpoint; tracing is a no-op when empty.
	TracingEndpoint string // QUILLNOTE_OTLP_ENDPOINT
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if AI is enabled and at least one API key or base URL is configured.
func (p *Profile) IsAIEnabled() bool {
	return p.AIEnabled && (p.AISiliconFlowAPIKey != "" || p.AIOpenAIAPIKey != "" || p.AIOllamaBaseURL != "" || p.AIDeepSeekAPIKey != "")
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnvOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		slog.Warn("ignoring malformed integer env", "key", key, "value", value)
		return defaultValue
	}
	return n
}

func getFloatEnvOrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		slog.Warn("ignoring malformed float env", "key", key, "value", value)
		return defaultValue
	}
	return f
}

// FromEnv loads the AI and tracing configuration from QUILLNOTE_* environment variables.
func (p *Profile) FromEnv() {
	p.AIEnabled = os.Getenv("QUILLNOTE_AI_ENABLED") == "true"
	p.AIEmbeddingProvider = getEnvOrDefault("QUILLNOTE_AI_EMBEDDING_PROVIDER", "openai")
	p.AILLMProvider = getEnvOrDefault("QUILLNOTE_AI_LLM_PROVIDER", "openai")
	p.AISiliconFlowAPIKey = os.Getenv("QUILLNOTE_AI_SILICONFLOW_API_KEY")
	p.AISiliconFlowBaseURL = getEnvOrDefault("QUILLNOTE_AI_SILICONFLOW_BASE_URL", "https://api.siliconflow.cn/v1")
	p.AIDeepSeekAPIKey = os.Getenv("QUILLNOTE_AI_DEEPSEEK_API_KEY")
	p.AIDeepSeekBaseURL = getEnvOrDefault("QUILLNOTE_AI_DEEPSEEK_BASE_URL", "https://api.deepseek.com")
	p.AIOpenAIAPIKey = os.Getenv("QUILLNOTE_AI_OPENAI_API_KEY")
	p.AIOpenAIBaseURL = getEnvOrDefault("QUILLNOTE_AI_OPENAI_BASE_URL", "https://api.openai.com/v1")
	p.AIOllamaBaseURL = os.Getenv("QUILLNOTE_AI_OLLAMA_BASE_URL")
	p.AIEmbeddingModel = getEnvOrDefault("QUILLNOTE_AI_EMBEDDING_MODEL", "text-embedding-3-small")
	p.AIEmbeddingDimensions = getIntEnvOrDefault("QUILLNOTE_AI_EMBEDDING_DIMENSIONS", 1536)
	p.AILLMModel = getEnvOrDefault("QUILLNOTE_AI_LLM_MODEL", "gpt-4o-mini")
	p.AIMaxRetries = getIntEnvOrDefault("QUILLNOTE_AI_MAX_RETRIES", 3)
	p.AIRequestsPerSecond = getFloatEnvOrDefault("QUILLNOTE_AI_REQUESTS_PER_SECOND", 5)

	p.TracingEndpoint = os.Getenv("QUILLNOTE_OTLP_ENDPOINT")
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		absDir, err := filepath.Abs(dataDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}
	if p.Driver == "" {
		p.Driver = "sqlite"
	}

	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "quillnote")
			if _, err := os.Stat(p.Data); os.IsNotExist(err) {
				if err := os.MkdirAll(p.Data, 0770); err != nil {
					slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
					return err
				}
			}
		} else {
			p.Data = "/var/opt/quillnote"
		}
	}
	if p.Data == "" {
		p.Data = "."
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check dsn", slog.String("data", dataDir), slog.String("error", err.Error()))
		return err
	}

	p.Data = dataDir
	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("quillnote_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}

	return nil
}
