package ai

import (
	"errors"
	"time"

	"github.com/hrygo/schedkit/internal/profile"
)

// Config represents AI configuration.
type Config struct {
	Enabled bool

	LLM LLMConfig
	// PromptLocale selects the agent prompt language: zh or en.
	PromptLocale string
}

// LLMConfig represents the conversational agent configuration.
type LLMConfig struct {
	Model             string // deepseek-chat
	APIKey            string
	BaseURL           string
	MaxTokens         int     // default: 512
	Temperature       float32 // default: 0.3
	Timeout           time.Duration
	RequestsPerSecond float64
}

// NewConfigFromProfile creates AI config from profile.
func NewConfigFromProfile(p *profile.Profile) *Config {
	cfg := &Config{
		Enabled:      p.AIEnabled,
		PromptLocale: p.AIPromptLocale,
	}
	if cfg.PromptLocale != "en" {
		cfg.PromptLocale = "zh"
	}

	if !cfg.Enabled {
		return cfg
	}

	cfg.LLM = LLMConfig{
		Model:             p.AILLMModel,
		APIKey:            p.AIOpenAIAPIKey,
		BaseURL:           p.AIOpenAIBaseURL,
		MaxTokens:         p.AIMaxReplyTokens,
		Temperature:       0.3,
		Timeout:           p.AIRequestTimeout,
		RequestsPerSecond: p.AIRequestsPerSec,
	}
	if cfg.LLM.MaxTokens <= 0 {
		cfg.LLM.MaxTokens = 512
	}
	if cfg.LLM.Timeout <= 0 {
		cfg.LLM.Timeout = 30 * time.Second
	}
	if cfg.LLM.RequestsPerSecond <= 0 {
		cfg.LLM.RequestsPerSecond = 1
	}

	return cfg
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.LLM.Model == "" {
		return errors.New("LLM model is required")
	}

	if c.LLM.APIKey == "" {
		return errors.New("LLM API key is required")
	}

	return nil
}
