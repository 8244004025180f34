package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App        AppConfig
	LLM        LLMConfig
	ToolServer ToolServerConfig
	Memory     MemoryConfig
	Events     EventsConfig
}

type AppConfig struct {
	Env         string `envconfig:"APP_ENV" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	MetricsAddr string `envconfig:"METRICS_ADDR"`
}

type LLMConfig struct {
	APIKey      string        `envconfig:"LLM_API_KEY"`
	GroqAPIKey  string        `envconfig:"GROQ_API_KEY"`
	BaseURL     string        `envconfig:"LLM_BASE_URL" default:"https://api.groq.com/openai/v1"`
	Model       string        `envconfig:"LLM_MODEL" default:"llama3-70b-8192"`
	Temperature float32       `envconfig:"LLM_TEMPERATURE" default:"0.7"`
	MaxTokens   int           `envconfig:"LLM_MAX_TOKENS" default:"1000"`
	Timeout     time.Duration `envconfig:"LLM_TIMEOUT" default:"60s"`
}

// Key returns the bearer credential, preferring LLM_API_KEY over GROQ_API_KEY.
func (c LLMConfig) Key() string {
	if c.APIKey != "" {
		return c.APIKey
	}
	return c.GroqAPIKey
}

type ToolServerConfig struct {
	Command        string        `envconfig:"TOOL_SERVER_COMMAND" default:"uv"`
	Args           []string      `envconfig:"TOOL_SERVER_ARGS" default:"run,../docs-mcp-server-pythonsdk/main.py"`
	Env            []string      `envconfig:"TOOL_SERVER_ENV"`
	CallTimeout    time.Duration `envconfig:"TOOL_CALL_TIMEOUT" default:"30s"`
	MaxOutputChars int           `envconfig:"TOOL_OUTPUT_MAX_CHARS" default:"4000"`
	Bindings       string        `envconfig:"TOOL_BINDINGS" default:"get_docs=query,library:lower"`
	RequiredTools  []string      `envconfig:"REQUIRED_TOOLS" default:"get_docs"`
}

type MemoryConfig struct {
	URL         string        `envconfig:"MEMORY_URL"`
	RedisURL    string        `envconfig:"REDIS_URL" default:"redis://localhost:6379"`
	Port        string        `envconfig:"PORT" default:"8000"`
	ContextTTL  time.Duration `envconfig:"CONTEXT_TTL" default:"24h"`
	MaxMessages int64         `envconfig:"CONTEXT_MAX_MESSAGES" default:"200"`
}

type EventsConfig struct {
	NATSURL string `envconfig:"NATS_URL"`
}

// Load reads configuration from the environment, loading a .env file first
// when one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env config: %w", err)
	}

	return &cfg, nil
}

// ValidateAgent checks the settings the interactive agent cannot run without.
func (c *Config) ValidateAgent() error {
	if c.LLM.Key() == "" {
		return fmt.Errorf("LLM_API_KEY or GROQ_API_KEY environment variable is required")
	}
	if strings.TrimSpace(c.ToolServer.Command) == "" {
		return fmt.Errorf("TOOL_SERVER_COMMAND environment variable is required")
	}
	if c.ToolServer.MaxOutputChars <= 0 {
		return fmt.Errorf("TOOL_OUTPUT_MAX_CHARS must be positive, got %d", c.ToolServer.MaxOutputChars)
	}
	return nil
}
