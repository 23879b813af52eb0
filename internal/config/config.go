// Package config loads pipeline configuration from the environment and an
// optional per-work-dir override file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Text backend providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
	ProviderGoogle    = "googleai"
	ProviderBedrock   = "bedrock"
)

// OverrideFile is the optional per-work-dir settings file.
const OverrideFile = "castvid.yaml"

// Config holds all configuration values. Components receive it at
// construction; nothing reads the environment after Load returns.
type Config struct {
	// Text generation
	TextProvider string
	TextModel    string
	Temperature  float64

	// Provider credentials
	OpenAIAPIKey    string
	AnthropicAPIKey string
	GoogleAPIKey    string
	RunwayAPIKey    string
	OllamaHost      string
	AWSRegion       string

	// Image generation
	ImageModel   string
	ImageStyle   string
	ImageQuality string
	ImageSize    string
	AspectRatio  string

	// Video generation
	VideoModel   string
	PollInterval time.Duration
	PollBudget   time.Duration

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// Load reads configuration from the environment. A .env file in the current
// directory is merged in first if present.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		TextProvider: getEnv("CASTVID_TEXT_PROVIDER", ProviderOpenAI),
		TextModel:    getEnv("CASTVID_TEXT_MODEL", "gpt-4.1"),
		Temperature:  getEnvFloat("CASTVID_TEMPERATURE", 0.7),

		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		GoogleAPIKey:    os.Getenv("GOOGLE_API_KEY"),
		RunwayAPIKey:    os.Getenv("RUNWAY_API_KEY"),
		OllamaHost:      getEnv("OLLAMA_HOST", "http://localhost:11434"),
		AWSRegion:       getEnv("AWS_REGION", "us-east-1"),

		ImageModel:   getEnv("CASTVID_IMAGE_MODEL", "gpt-image-1"),
		ImageStyle:   getEnv("CASTVID_IMAGE_STYLE", "realistic"),
		ImageQuality: getEnv("CASTVID_IMAGE_QUALITY", "low"),
		ImageSize:    getEnv("CASTVID_IMAGE_SIZE", "1536x1024"),
		AspectRatio:  getEnv("CASTVID_ASPECT_RATIO", "16:9"),

		VideoModel:   getEnv("CASTVID_VIDEO_MODEL", "veo-3.0-fast-generate-preview"),
		PollInterval: getEnvDuration("CASTVID_POLL_INTERVAL", 20*time.Second),
		PollBudget:   getEnvDuration("CASTVID_POLL_BUDGET", 15*time.Minute),

		LogFile:  getEnv("CASTVID_LOG_FILE", "castvid.log"),
		LogLevel: parseLogLevel(getEnv("CASTVID_LOG_LEVEL", "INFO")),
	}
}

// overrides mirrors the subset of Config settable from castvid.yaml.
type overrides struct {
	TextProvider string  `yaml:"text_provider"`
	TextModel    string  `yaml:"text_model"`
	Temperature  float64 `yaml:"temperature"`

	ImageModel   string `yaml:"image_model"`
	ImageStyle   string `yaml:"image_style"`
	ImageQuality string `yaml:"image_quality"`
	ImageSize    string `yaml:"image_size"`
	AspectRatio  string `yaml:"aspect_ratio"`

	VideoModel   string `yaml:"video_model"`
	PollInterval string `yaml:"poll_interval"`
	PollBudget   string `yaml:"poll_budget"`
}

// ApplyOverrides merges <workDir>/castvid.yaml into cfg when the file exists.
// A missing file is not an error; a malformed one is.
func (c Config) ApplyOverrides(workDir string) (Config, error) {
	path := filepath.Join(workDir, OverrideFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return c, fmt.Errorf("read %s: %w", path, err)
	}

	var o overrides
	if err := yaml.Unmarshal(data, &o); err != nil {
		return c, fmt.Errorf("parse %s: %w", path, err)
	}

	setStr := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setStr(&c.TextProvider, o.TextProvider)
	setStr(&c.TextModel, o.TextModel)
	setStr(&c.ImageModel, o.ImageModel)
	setStr(&c.ImageStyle, o.ImageStyle)
	setStr(&c.ImageQuality, o.ImageQuality)
	setStr(&c.ImageSize, o.ImageSize)
	setStr(&c.AspectRatio, o.AspectRatio)
	setStr(&c.VideoModel, o.VideoModel)
	if o.Temperature != 0 {
		c.Temperature = o.Temperature
	}
	if o.PollInterval != "" {
		d, err := time.ParseDuration(o.PollInterval)
		if err != nil {
			return c, fmt.Errorf("parse poll_interval: %w", err)
		}
		c.PollInterval = d
	}
	if o.PollBudget != "" {
		d, err := time.ParseDuration(o.PollBudget)
		if err != nil {
			return c, fmt.Errorf("parse poll_budget: %w", err)
		}
		c.PollBudget = d
	}
	return c, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
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
