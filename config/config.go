package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all service configuration, loaded once at startup from the
// environment. Token secrets and provider credentials are required; Load
// never fails but Validate rejects an incomplete configuration before the
// service starts serving.
type Config struct {
	Service   ServiceConfig
	Logging   LoggingConfig
	Auth      AuthConfig
	Database  DatabaseConfig
	OpenAI    OpenAIConfig
	Weaviate  WeaviateConfig
	Chat      ChatConfig
	Tracing   TracingConfig
	Profiling ProfilingConfig
	Shutdown  ShutdownConfig
}

type ServiceConfig struct {
	Name    string
	Version string
	Env     string
	Port    string
}

type LoggingConfig struct {
	Level string
}

// AuthConfig carries the two token signing configurations. Access and
// refresh secrets are distinct on purpose: a token signed with one must
// never verify against the other.
type AuthConfig struct {
	Algorithm          string
	AccessTokenSecret  string
	AccessTokenTTL     time.Duration
	RefreshTokenSecret string
	RefreshTokenTTL    time.Duration
	SetRefreshCookie   bool
}

type DatabaseConfig struct {
	URL string
}

type OpenAIConfig struct {
	APIKey         string
	EmbeddingModel string
}

type WeaviateConfig struct {
	URL    string
	Scheme string
	Class  string
	APIKey string
}

type ChatConfig struct {
	Model       string
	Temperature float32
	MaxTokens   int
	TopK        int
}

type TracingConfig struct {
	Enabled    bool
	Endpoint   string
	SampleRate float64
}

type ProfilingConfig struct {
	Enabled  bool
	Endpoint string
}

type ShutdownConfig struct {
	TimeoutSeconds        int
	ReadinessDrainSeconds int
}

// Load reads configuration from the environment. A .env file is honored
// when present (local development); real deployments set the variables
// directly.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Service: ServiceConfig{
			Name:    getEnv("SERVICE_NAME", "chat-service"),
			Version: getEnv("SERVICE_VERSION", "dev"),
			Env:     getEnv("SERVICE_ENV", "development"),
			Port:    getEnv("SERVICE_PORT", "8000"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			Algorithm:          getEnv("AUTH_ALGORITHM", "HS256"),
			AccessTokenSecret:  os.Getenv("ACCESS_TOKEN_SECRET"),
			AccessTokenTTL:     time.Duration(getEnvInt("ACCESS_TOKEN_EXPIRE_MINUTES", 30)) * time.Minute,
			RefreshTokenSecret: os.Getenv("REFRESH_TOKEN_SECRET"),
			RefreshTokenTTL:    time.Duration(getEnvInt("REFRESH_TOKEN_EXPIRE_DAYS", 7)) * 24 * time.Hour,
			SetRefreshCookie:   getEnvBool("AUTH_SET_REFRESH_COOKIE", true),
		},
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		OpenAI: OpenAIConfig{
			APIKey:         os.Getenv("OPENAI_API_KEY"),
			EmbeddingModel: getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		},
		Weaviate: WeaviateConfig{
			URL:    os.Getenv("WEAVIATE_URL"),
			Scheme: getEnv("WEAVIATE_SCHEME", "http"),
			Class:  getEnv("WEAVIATE_CLASS", "Knowledge"),
			APIKey: os.Getenv("WEAVIATE_API_KEY"),
		},
		Chat: ChatConfig{
			Model:       getEnv("CHAT_MODEL", "gpt-4o-mini"),
			Temperature: float32(getEnvFloat("CHAT_TEMPERATURE", 0.2)),
			MaxTokens:   getEnvInt("CHAT_MAX_TOKENS", 1024),
			TopK:        getEnvInt("RETRIEVAL_TOP_K", 3),
		},
		Tracing: TracingConfig{
			Enabled:    getEnvBool("TRACING_ENABLED", false),
			Endpoint:   getEnv("TRACING_ENDPOINT", "localhost:4318"),
			SampleRate: getEnvFloat("TRACING_SAMPLE_RATE", 1.0),
		},
		Profiling: ProfilingConfig{
			Enabled:  getEnvBool("PROFILING_ENABLED", false),
			Endpoint: getEnv("PROFILING_ENDPOINT", "http://localhost:4040"),
		},
		Shutdown: ShutdownConfig{
			TimeoutSeconds:        getEnvInt("SHUTDOWN_TIMEOUT_SECONDS", 10),
			ReadinessDrainSeconds: getEnvInt("READINESS_DRAIN_SECONDS", 0),
		},
	}
}

// Validate checks required settings. A missing token secret or provider
// credential is a startup failure, never a per-request error.
func (c *Config) Validate() error {
	var errs []error
	if c.Auth.AccessTokenSecret == "" {
		errs = append(errs, errors.New("ACCESS_TOKEN_SECRET is required"))
	}
	if c.Auth.RefreshTokenSecret == "" {
		errs = append(errs, errors.New("REFRESH_TOKEN_SECRET is required"))
	}
	if c.Auth.AccessTokenSecret != "" && c.Auth.AccessTokenSecret == c.Auth.RefreshTokenSecret {
		errs = append(errs, errors.New("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ"))
	}
	if c.Auth.Algorithm != "HS256" && c.Auth.Algorithm != "HS384" && c.Auth.Algorithm != "HS512" {
		errs = append(errs, fmt.Errorf("unsupported AUTH_ALGORITHM %q", c.Auth.Algorithm))
	}
	if c.Database.URL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.OpenAI.APIKey == "" {
		errs = append(errs, errors.New("OPENAI_API_KEY is required"))
	}
	if c.Weaviate.URL == "" {
		errs = append(errs, errors.New("WEAVIATE_URL is required"))
	}
	return errors.Join(errs...)
}

func (c *Config) GetShutdownTimeoutDuration() time.Duration {
	return time.Duration(c.Shutdown.TimeoutSeconds) * time.Second
}

func (c *Config) GetReadinessDrainDelayDuration() time.Duration {
	return time.Duration(c.Shutdown.ReadinessDrainSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
