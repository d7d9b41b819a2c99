package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/cognicore/commentpulse/pkg/pulse/internalerr"
)

// Classifier backends.
const (
	BackendLinear = "linear"
	BackendLLM    = "llm"
)

// LLM providers.
const (
	ProviderResponses = "responses"
	ProviderChat      = "chat"
)

// Archive backends.
const (
	ArchiveNone   = "none"
	ArchiveMemory = "memory"
	ArchiveSQLite = "sqlite"
)

// Config holds all configuration for the service
type Config struct {
	Environment string           `yaml:"environment"`
	LogLevel    string           `yaml:"log_level"`
	Server      ServerConfig     `yaml:"server"`
	Resources   ResourcesConfig  `yaml:"resources"`
	Classifier  ClassifierConfig `yaml:"classifier"`
	Archive     ArchiveConfig    `yaml:"archive"`
	Events      EventsConfig     `yaml:"events"`
	Limits      LimitsConfig     `yaml:"limits"`
	YouTube     YouTubeConfig    `yaml:"youtube"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// ResourcesConfig points at the optional stoplist and lexicon files.
// Empty paths select the built-in English tables.
type ResourcesConfig struct {
	StoplistPath string `yaml:"stoplist_path"`
	LexiconPath  string `yaml:"lexicon_path"`
}

// ClassifierConfig selects and configures the sentiment model.
type ClassifierConfig struct {
	Backend   string    `yaml:"backend"`
	ModelPath string    `yaml:"model_path"`
	LLM       LLMConfig `yaml:"llm"`
}

// LLMConfig configures the LLM-backed classifier.
type LLMConfig struct {
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	BatchSize int    `yaml:"batch_size"`
}

// ArchiveConfig selects where finished reports are kept.
type ArchiveConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

// EventsConfig holds NATS settings for completion events.
type EventsConfig struct {
	Enabled        bool          `yaml:"enabled"`
	URL            string        `yaml:"url"`
	SubjectPrefix  string        `yaml:"subject_prefix"`
	MaxReconnects  int           `yaml:"max_reconnects"`
	ReconnectWait  time.Duration `yaml:"reconnect_wait"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// LimitsConfig bounds per-request work.
type LimitsConfig struct {
	MaxComments      int `yaml:"max_comments"`
	NormalizeWorkers int `yaml:"normalize_workers"`
}

// YouTubeConfig configures the YouTube Data API client.
type YouTubeConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() Config {
	return Config{
		Environment: "development",
		LogLevel:    "info",
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            5000,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			CORSOrigins:     []string{"*"},
			MaxBodyBytes:    10 << 20,
		},
		Classifier: ClassifierConfig{
			Backend: BackendLinear,
			LLM: LLMConfig{
				Provider:  ProviderResponses,
				Model:     "gpt-4o-mini",
				BatchSize: 50,
			},
		},
		Archive: ArchiveConfig{Backend: ArchiveNone},
		Events: EventsConfig{
			URL:            "nats://localhost:4222",
			SubjectPrefix:  "commentpulse",
			MaxReconnects:  -1,
			ReconnectWait:  2 * time.Second,
			ConnectTimeout: 5 * time.Second,
		},
		Limits: LimitsConfig{
			MaxComments: 10000,
		},
		YouTube: YouTubeConfig{
			BaseURL: "https://www.googleapis.com/youtube/v3",
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file at
// path, a .env file in the working directory and the process environment,
// in that order of precedence (environment wins).
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(c *Config) {
	c.Environment = getEnv("PULSE_ENV", c.Environment)
	c.LogLevel = getEnv("PULSE_LOG_LEVEL", c.LogLevel)

	c.Server.Host = getEnv("PULSE_HOST", c.Server.Host)
	c.Server.Port = getEnvAsInt("PULSE_PORT", c.Server.Port)
	c.Server.ReadTimeout = getEnvAsDuration("PULSE_READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getEnvAsDuration("PULSE_WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.ShutdownTimeout = getEnvAsDuration("PULSE_SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)
	c.Server.CORSOrigins = getEnvAsSlice("PULSE_CORS_ORIGINS", c.Server.CORSOrigins)
	c.Server.MaxBodyBytes = int64(getEnvAsInt("PULSE_MAX_BODY_BYTES", int(c.Server.MaxBodyBytes)))

	c.Resources.StoplistPath = getEnv("PULSE_STOPLIST_PATH", c.Resources.StoplistPath)
	c.Resources.LexiconPath = getEnv("PULSE_LEXICON_PATH", c.Resources.LexiconPath)

	c.Classifier.Backend = getEnv("PULSE_CLASSIFIER_BACKEND", c.Classifier.Backend)
	c.Classifier.ModelPath = getEnv("PULSE_MODEL_PATH", c.Classifier.ModelPath)
	c.Classifier.LLM.Provider = getEnv("PULSE_LLM_PROVIDER", c.Classifier.LLM.Provider)
	c.Classifier.LLM.Model = getEnv("PULSE_LLM_MODEL", c.Classifier.LLM.Model)
	c.Classifier.LLM.APIKey = getEnv("OPENAI_API_KEY", c.Classifier.LLM.APIKey)
	c.Classifier.LLM.BaseURL = getEnv("PULSE_LLM_BASE_URL", c.Classifier.LLM.BaseURL)
	c.Classifier.LLM.BatchSize = getEnvAsInt("PULSE_LLM_BATCH_SIZE", c.Classifier.LLM.BatchSize)

	c.Archive.Backend = getEnv("PULSE_ARCHIVE_BACKEND", c.Archive.Backend)
	c.Archive.Path = getEnv("PULSE_ARCHIVE_PATH", c.Archive.Path)

	c.Events.Enabled = getEnvAsBool("PULSE_EVENTS_ENABLED", c.Events.Enabled)
	c.Events.URL = getEnv("NATS_URL", c.Events.URL)
	c.Events.SubjectPrefix = getEnv("PULSE_EVENTS_PREFIX", c.Events.SubjectPrefix)

	c.Limits.MaxComments = getEnvAsInt("PULSE_MAX_COMMENTS", c.Limits.MaxComments)
	c.Limits.NormalizeWorkers = getEnvAsInt("PULSE_NORMALIZE_WORKERS", c.Limits.NormalizeWorkers)

	c.YouTube.APIKey = getEnv("YOUTUBE_API_KEY", c.YouTube.APIKey)
	c.YouTube.BaseURL = getEnv("YOUTUBE_BASE_URL", c.YouTube.BaseURL)
}

// Validate rejects inconsistent settings.
func (c Config) Validate() error {
	switch c.Classifier.Backend {
	case BackendLinear:
		if c.Classifier.ModelPath == "" {
			return invalid("linear classifier requires model_path")
		}
	case BackendLLM:
		switch c.Classifier.LLM.Provider {
		case ProviderResponses:
			if c.Classifier.LLM.APIKey == "" {
				return invalid("llm classifier requires an api key")
			}
		case ProviderChat:
			// local servers often run without a key
			if c.Classifier.LLM.BaseURL == "" {
				return invalid("chat provider requires base_url")
			}
		default:
			return invalid(fmt.Sprintf("unknown llm provider %q", c.Classifier.LLM.Provider))
		}
		if c.Classifier.LLM.Model == "" {
			return invalid("llm classifier requires a model")
		}
		if c.Classifier.LLM.BatchSize <= 0 {
			return invalid("llm batch_size must be positive")
		}
	default:
		return invalid(fmt.Sprintf("unknown classifier backend %q", c.Classifier.Backend))
	}

	switch c.Archive.Backend {
	case ArchiveNone, ArchiveMemory:
	case ArchiveSQLite:
		if c.Archive.Path == "" {
			return invalid("sqlite archive requires a path")
		}
	default:
		return invalid(fmt.Sprintf("unknown archive backend %q", c.Archive.Backend))
	}

	if c.Events.Enabled && c.Events.URL == "" {
		return invalid("events enabled without a nats url")
	}
	if c.Limits.MaxComments <= 0 {
		return invalid("max_comments must be positive")
	}
	if c.Limits.NormalizeWorkers < 0 {
		return invalid("normalize_workers must not be negative")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return invalid(fmt.Sprintf("invalid port %d", c.Server.Port))
	}
	if c.Server.MaxBodyBytes <= 0 {
		return invalid("max_body_bytes must be positive")
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return invalid(fmt.Sprintf("invalid log level %q", c.LogLevel))
	}
	return nil
}

// NewLogger returns a zerolog logger at the configured level. Development
// environments get console output.
func (c Config) NewLogger(w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if c.Environment == "development" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

func invalid(reason string) error {
	return fmt.Errorf("config: %s: %w", reason, internalerr.ErrInvalidConfig)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
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

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
