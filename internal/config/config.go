package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	State    StateConfig
	Database DatabaseConfig
	Session  SessionConfig
	Ai       AIConfig
	Auth     AuthConfig
	Tracing  TracingConfig
}

type AppConfig struct {
	Port                 string
	Environment          string
	LogFilePath          string
	TransportLogFilePath string
	CorsAllowedOrigins   string
	NatsURL              string
	RedisURL             string
}

type StateConfig struct {
	Backend string // "badger", "redis", "postgres" or "memory"
	Dir     string
}

type DatabaseConfig struct {
	Connection string
}

type SessionConfig struct {
	IdleTTL              time.Duration
	AnswerTimeoutDefault time.Duration
}

type AIConfig struct {
	LLMProvider       string // "ollama", "openai" or "none"
	LLMModel          string
	OllamaBaseURL     string
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	ProbeTemperature  *float64
	ProbeMaxTokens    int
	ProbeMinAnswers   int
	ProbeMaxQuestions int
}

type AuthConfig struct {
	JWTSecret string
}

type TracingConfig struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:                 getEnv("APP_PORT", "3000"),
			Environment:          getEnv("GO_ENV", "development"),
			LogFilePath:          getEnv("LOG_FILE_PATH", "logs/app.log"),
			TransportLogFilePath: getEnv("TRANSPORT_LOG_FILE_PATH", "logs/transport.log"),
			CorsAllowedOrigins:   getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:              getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:             getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		State: StateConfig{
			Backend: getEnv("STATE_BACKEND", "badger"),
			Dir:     getEnv("STATE_DIR", "data/brainstorm"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Session: SessionConfig{
			IdleTTL:              getEnvAsDuration("SESSION_IDLE_TTL", 0),
			AnswerTimeoutDefault: getEnvAsDuration("ANSWER_TIMEOUT_DEFAULT", 5*time.Minute),
		},
		Ai: AIConfig{
			LLMProvider:       getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:          getEnv("LLM_MODEL", "llama3"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
			OpenAIBaseURL:     getEnv("OPENAI_BASE_URL", ""),
			ProbeTemperature:  getEnvAsFloatPtr("PROBE_TEMPERATURE"),
			ProbeMaxTokens:    getEnvAsInt("PROBE_MAX_TOKENS", 1024),
			ProbeMinAnswers:   getEnvAsInt("PROBE_MIN_ANSWERS", 1),
			ProbeMaxQuestions: getEnvAsInt("PROBE_MAX_QUESTIONS", 15),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Tracing: TracingConfig{
			Enabled:     getEnv("OTEL_ENABLED", "false") == "true",
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "brainstorm-be"),
		},
	}
}

// IsProduction reports whether GO_ENV is "production".
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go durations ("90s") or plain seconds ("90").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if strValue == "" {
		return fallback
	}
	if d, err := time.ParseDuration(strValue); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(strValue); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

func getEnvAsFloatPtr(key string) *float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return &value
	}
	return nil
}
