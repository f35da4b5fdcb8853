// Package config provides configuration for the trip assistant.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Session store backends.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// Config holds the service configuration.
type Config struct {
	// Server settings
	HTTPPort int `yaml:"http_port"`

	// Session storage
	SessionStore string        `yaml:"session_store"`
	DatabaseURL  string        `yaml:"database_url"`
	RedisURL     string        `yaml:"redis_url"`
	SessionTTL   time.Duration `yaml:"session_ttl"`

	// Model provider
	LLMBaseURL string        `yaml:"llm_base_url"`
	LLMAPIKey  string        `yaml:"llm_api_key"`
	LLMModel   string        `yaml:"llm_model"`
	LLMTimeout time.Duration `yaml:"llm_timeout"`
	PromptFile string        `yaml:"prompt_file"`

	// Orchestration
	MaxChatIterations int           `yaml:"max_chat_iterations"`
	ToolTimeout       time.Duration `yaml:"tool_timeout"`
	DisabledTools     []string      `yaml:"disabled_tools"`
	PolicyFile        string        `yaml:"policy_file"`

	// Tool back-ends
	PhotonURL    string `yaml:"photon_url"`
	OpenMeteoURL string `yaml:"open_meteo_url"`
	OTPURL       string `yaml:"otp_url"`
	STMFeedURL   string `yaml:"stm_feed_url"`
	STMAPIKey    string `yaml:"stm_api_key"`

	// WebSocket settings
	PingInterval   time.Duration `yaml:"ws_ping_interval"`
	WriteTimeout   time.Duration `yaml:"ws_write_timeout"`
	ReadTimeout    time.Duration `yaml:"ws_read_timeout"`
	MaxMessageSize int64         `yaml:"ws_max_message_size"`

	// Logging
	LogLevel string `yaml:"log_level"`
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		HTTPPort:          getEnvInt("HTTP_PORT", getEnvInt("API_PORT", 8000)),
		SessionStore:      getEnv("SESSION_STORE", StoreMemory),
		DatabaseURL:       getEnv("DATABASE_URL", "file:tripchat.db?cache=shared&mode=rwc&_busy_timeout=5000"),
		RedisURL:          getEnv("REDIS_URL", "redis://localhost:6379"),
		SessionTTL:        time.Duration(getEnvInt("SESSION_TTL_MS", 0)) * time.Millisecond,
		LLMBaseURL:        getEnv("LLM_BASE_URL", "https://api.mistral.ai"),
		LLMAPIKey:         getEnv("LLM_API_KEY", os.Getenv("MISTRAL_API_KEY")),
		LLMModel:          getEnv("LLM_MODEL", getEnv("MISTRAL_MODEL", "mistral-small-latest")),
		LLMTimeout:        time.Duration(getEnvInt("LLM_TIMEOUT_MS", 60000)) * time.Millisecond,
		PromptFile:        getEnv("PROMPT_FILE", ""),
		MaxChatIterations: getEnvInt("MAX_CHAT_ITERATIONS", 10),
		ToolTimeout:       time.Duration(getEnvInt("TOOL_TIMEOUT_MS", 30000)) * time.Millisecond,
		DisabledTools:     getEnvList("DISABLED_TOOLS"),
		PolicyFile:        getEnv("POLICY_FILE", ""),
		PhotonURL:         getEnv("PHOTON_URL", "https://photon.komoot.io"),
		OpenMeteoURL:      getEnv("OPEN_METEO_URL", "https://api.open-meteo.com"),
		OTPURL:            getEnv("OTP_URL", "http://localhost:8080/otp/gtfs/v1"),
		STMFeedURL:        getEnv("STM_FEED_URL", "https://api.stm.info/pub/od/gtfs-rt/ic/v2/tripUpdates"),
		STMAPIKey:         getEnv("STM_API_KEY", ""),
		PingInterval:      time.Duration(getEnvInt("WS_PING_INTERVAL_MS", 30000)) * time.Millisecond,
		WriteTimeout:      time.Duration(getEnvInt("WS_WRITE_TIMEOUT_MS", 10000)) * time.Millisecond,
		ReadTimeout:       time.Duration(getEnvInt("WS_READ_TIMEOUT_MS", 60000)) * time.Millisecond,
		MaxMessageSize:    int64(getEnvInt("WS_MAX_MESSAGE_SIZE", 65536)),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
	}
}

// LoadWithFile loads configuration from the environment and then overlays the
// YAML file named by CONFIG_FILE, if set. Keys present in the file win.
func LoadWithFile() (*Config, error) {
	cfg := Load()
	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		return cfg, nil
	}
	if err := cfg.MergeFile(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MergeFile overlays values from a YAML file onto cfg.
func (c *Config) MergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Validate checks settings that would otherwise fail at first use.
func (c *Config) Validate() error {
	switch c.SessionStore {
	case StoreMemory, StoreSQLite, StoreRedis:
	default:
		return fmt.Errorf("unknown session store %q", c.SessionStore)
	}
	if c.MaxChatIterations < 1 {
		return fmt.Errorf("max_chat_iterations must be >= 1, got %d", c.MaxChatIterations)
	}
	if c.ToolTimeout <= 0 {
		return fmt.Errorf("tool_timeout must be positive")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvList(key string) []string {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
