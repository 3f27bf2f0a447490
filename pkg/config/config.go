package config

import (
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Config defines the application configuration loaded from config.json.
// It holds business-level settings: which LLM providers to call, which
// channels to expose, and the persona given to every conversation.
type Config struct {
	// LLM holds the provider group list in raw JSON. It is decoded by
	// llm.NewFromConfig so that providers can carry their own options.
	LLM jsoniter.RawMessage `json:"llm"`
	// Channels maps a channel identifier (e.g. "web", "telegram") to its
	// raw configuration payload.
	Channels map[string]jsoniter.RawMessage `json:"channels"`
	// SystemPrompt overrides the built-in assistant instruction sent as the
	// first message of every prompt.
	SystemPrompt string `json:"system_prompt"`
	// Tools lists the built-in tool names registered at startup.
	Tools []string `json:"tools"`
}

// Validate ensures the configuration structure contains all mandatory fields.
func (c *Config) Validate() error {
	if len(c.LLM) == 0 {
		return fmt.Errorf("mandatory 'llm' configuration is missing or empty")
	}
	return nil
}

// SystemConfig defines engine-level technical parameters stored in
// system.json. A missing or corrupt file falls back to DefaultSystemConfig.
type SystemConfig struct {
	// MaxRetries is the number of attempts made against a single provider
	// when it fails with a transient error. 1 means no retry.
	MaxRetries int `json:"max_retries"`
	// RetryDelayMs is the base wait between consecutive attempts.
	RetryDelayMs int `json:"retry_delay_ms"`
	// LLMTimeoutMs is the hard cutoff for one completion call.
	LLMTimeoutMs int `json:"llm_timeout_ms"`
	// ContextWindow is the number of most recent messages exposed by the
	// agent's context accessor.
	ContextWindow int `json:"context_window"`
	// IncludeHistory feeds the context window into the prompt instead of
	// only the latest user turn.
	IncludeHistory bool `json:"include_history"`
	// MaxContextTokens caps the windowed context when IncludeHistory is on.
	// 0 disables trimming.
	MaxContextTokens int `json:"max_context_tokens"`
	// MaxMessages bounds the per-session memory; the oldest entries are
	// dropped first. 0 keeps everything.
	MaxMessages int `json:"max_messages"`
	// SessionIdleTTLMs evicts sessions untouched for longer than this.
	// 0 disables eviction.
	SessionIdleTTLMs int `json:"session_idle_ttl_ms"`
	// TelegramMessageLimit is the maximum character count for a single
	// Telegram message. Longer replies are split.
	TelegramMessageLimit int `json:"telegram_message_limit"`
	// ShutdownTimeoutMs bounds graceful shutdown of the HTTP server.
	ShutdownTimeoutMs int `json:"shutdown_timeout_ms"`
	// DebugResponses dumps every raw provider response under debug/.
	DebugResponses bool `json:"debug_responses"`
	// LogLevel sets the minimum severity for log output.
	// Accepted values: "debug", "info", "warn", "error". Default: "info".
	LogLevel string `json:"log_level"`
}

// DefaultSystemConfig returns a SystemConfig initialized with safe defaults.
func DefaultSystemConfig() *SystemConfig {
	return &SystemConfig{
		MaxRetries:           1,
		RetryDelayMs:         500,
		LLMTimeoutMs:         120000,
		ContextWindow:        5,
		IncludeHistory:       false,
		MaxContextTokens:     4000,
		MaxMessages:          200,
		SessionIdleTTLMs:     0,
		TelegramMessageLimit: 4000,
		ShutdownTimeoutMs:    10000,
		LogLevel:             "info",
	}
}

// Load reads config.json (mandatory) and system.json (optional) from the
// given paths.
func Load(appPath, systemPath string) (*Config, *SystemConfig, error) {
	if _, err := os.Stat(appPath); os.IsNotExist(err) {
		return nil, nil, fmt.Errorf("config file '%s' not found. please create one", appPath)
	}

	appFile, err := os.ReadFile(appPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(appFile, &cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	return &cfg, LoadSystemConfig(systemPath), nil
}

// LoadSystemConfig attempts to load system settings, returns defaults if it fails
func LoadSystemConfig(path string) *SystemConfig {
	cfg := DefaultSystemConfig()

	file, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}

	if err := json.Unmarshal(file, cfg); err != nil {
		return DefaultSystemConfig()
	}

	return cfg
}
