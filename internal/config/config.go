package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Qdrant     QdrantConfig
	Gemini     GeminiConfig
	Storage    StorageConfig
	Worker     WorkerConfig
	Evaluation EvaluationConfig
	Log        LogConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

// DatabaseConfig configures the optional Postgres document registry. When
// Enabled is false uploaded documents are tracked in memory.
type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
	VectorSize uint64
}

type GeminiConfig struct {
	APIKey     string
	Model      string
	EmbedModel string
}

type StorageConfig struct {
	UploadPath    string
	ReferencePath string
	MaxFileSize   int64
}

type WorkerConfig struct {
	Concurrency       int
	QueueSize         int
	RetryMaxAttempts  int
	RetryInitialDelay time.Duration
}

type EvaluationConfig struct {
	Engine            string
	LoadTimeout       time.Duration
	RetrievalTimeout  time.Duration
	EvaluationTimeout time.Duration
}

type LogConfig struct {
	JSON  bool
	Debug bool
}

const (
	EngineSimulated = "simulated"
	EngineGemini    = "gemini"
)

// Load reads .env (if present) and the process environment. The returned
// warnings describe non-fatal problems, such as a missing .env file, so the
// caller can log them once a logger exists.
func Load() (*Config, []string) {
	var warnings []string
	if err := godotenv.Load(); err != nil {
		warnings = append(warnings, "no .env file found, using environment and defaults")
	}

	env := getEnv("ENV", "development")

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "3000"),
			Env:  env,
		},
		Database: DatabaseConfig{
			Enabled:  getEnvAsBool("DB_ENABLED", false),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "ai_cv_evaluator"),
		},
		Qdrant: QdrantConfig{
			URL:        getEnv("QDRANT_URL", "http://localhost:6334"),
			APIKey:     getEnv("QDRANT_API_KEY", ""),
			Collection: getEnv("QDRANT_COLLECTION", "references"),
			VectorSize: uint64(getEnvAsInt("QDRANT_VECTOR_SIZE", 768)),
		},
		Gemini: GeminiConfig{
			APIKey:     getEnv("GEMINI_API_KEY", ""),
			Model:      getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			EmbedModel: getEnv("GEMINI_EMBED_MODEL", "text-embedding-004"),
		},
		Storage: StorageConfig{
			UploadPath:    getEnv("UPLOAD_PATH", "./uploads"),
			ReferencePath: getEnv("REFERENCE_PATH", "./refs"),
			MaxFileSize:   getEnvAsInt64("MAX_FILE_SIZE", 10485760),
		},
		Worker: WorkerConfig{
			Concurrency:       getEnvAsInt("WORKER_CONCURRENCY", 3),
			QueueSize:         getEnvAsInt("WORKER_QUEUE_SIZE", 100),
			RetryMaxAttempts:  getEnvAsInt("RETRY_MAX_ATTEMPTS", 3),
			RetryInitialDelay: getEnvAsDuration("RETRY_INITIAL_DELAY", "2s"),
		},
		Evaluation: EvaluationConfig{
			Engine:            strings.ToLower(getEnv("EVALUATION_ENGINE", EngineSimulated)),
			LoadTimeout:       getEnvAsDuration("LOAD_TIMEOUT", "30s"),
			RetrievalTimeout:  getEnvAsDuration("RETRIEVAL_TIMEOUT", "10s"),
			EvaluationTimeout: getEnvAsDuration("EVALUATION_TIMEOUT", "2m"),
		},
		Log: LogConfig{
			JSON:  getEnvAsBool("LOG_JSON", false),
			Debug: getEnvAsBool("LOG_DEBUG", env == "development"),
		},
	}

	if cfg.Evaluation.Engine != EngineSimulated && cfg.Evaluation.Engine != EngineGemini {
		warnings = append(warnings, fmt.Sprintf("unknown EVALUATION_ENGINE %q, falling back to %q", cfg.Evaluation.Engine, EngineSimulated))
		cfg.Evaluation.Engine = EngineSimulated
	}

	return cfg, warnings
}

func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
