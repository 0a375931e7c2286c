package ai

import (
	"testing"
	"time"

	"github.com/hrygo/schedkit/internal/profile"
)

// TestNewConfigFromProfile tests the agent configuration mapping.
func TestNewConfigFromProfile(t *testing.T) {
	prof := &profile.Profile{
		AIEnabled:        true,
		AIOpenAIAPIKey:   "test-key",
		AIOpenAIBaseURL:  "https://api.deepseek.com/v1",
		AILLMModel:       "deepseek-chat",
		AIRequestsPerSec: 2,
		AIRequestTimeout: 10 * time.Second,
		AIMaxReplyTokens: 256,
		AIPromptLocale:   "en",
	}

	cfg := NewConfigFromProfile(prof)

	if !cfg.Enabled {
		t.Errorf("Expected Enabled=true, got false")
	}
	if cfg.PromptLocale != "en" {
		t.Errorf("Expected PromptLocale=en, got %s", cfg.PromptLocale)
	}
	if cfg.LLM.Model != "deepseek-chat" {
		t.Errorf("Expected LLM.Model=deepseek-chat, got %s", cfg.LLM.Model)
	}
	if cfg.LLM.APIKey != "test-key" {
		t.Errorf("Expected LLM.APIKey=test-key, got %s", cfg.LLM.APIKey)
	}
	if cfg.LLM.BaseURL != "https://api.deepseek.com/v1" {
		t.Errorf("Expected LLM.BaseURL=https://api.deepseek.com/v1, got %s", cfg.LLM.BaseURL)
	}
	if cfg.LLM.MaxTokens != 256 {
		t.Errorf("Expected LLM.MaxTokens=256, got %d", cfg.LLM.MaxTokens)
	}
	if cfg.LLM.Timeout != 10*time.Second {
		t.Errorf("Expected LLM.Timeout=10s, got %s", cfg.LLM.Timeout)
	}
	if cfg.LLM.RequestsPerSecond != 2 {
		t.Errorf("Expected LLM.RequestsPerSecond=2, got %f", cfg.LLM.RequestsPerSecond)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected valid config, got %v", err)
	}
}

// TestNewConfigFromProfile_Defaults tests fallback values.
func TestNewConfigFromProfile_Defaults(t *testing.T) {
	cfg := NewConfigFromProfile(&profile.Profile{
		AIEnabled:      true,
		AIOpenAIAPIKey: "k",
		AILLMModel:     "m",
		AIPromptLocale: "fr",
	})

	if cfg.PromptLocale != "zh" {
		t.Errorf("Expected PromptLocale=zh, got %s", cfg.PromptLocale)
	}
	if cfg.LLM.MaxTokens != 512 {
		t.Errorf("Expected LLM.MaxTokens=512, got %d", cfg.LLM.MaxTokens)
	}
	if cfg.LLM.Timeout != 30*time.Second {
		t.Errorf("Expected LLM.Timeout=30s, got %s", cfg.LLM.Timeout)
	}
	if cfg.LLM.RequestsPerSecond != 1 {
		t.Errorf("Expected LLM.RequestsPerSecond=1, got %f", cfg.LLM.RequestsPerSecond)
	}
}

// TestNewConfigFromProfile_Disabled tests disabled AI configuration.
func TestNewConfigFromProfile_Disabled(t *testing.T) {
	cfg := NewConfigFromProfile(&profile.Profile{AIEnabled: false})

	if cfg.Enabled {
		t.Errorf("Expected Enabled=false, got true")
	}
	if cfg.LLM.Model != "" {
		t.Errorf("Expected empty LLM config, got model %s", cfg.LLM.Model)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Disabled config should validate, got %v", err)
	}
}

// TestConfig_Validate tests validation errors.
func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{Enabled: true, LLM: LLMConfig{Model: "m", APIKey: "k"}}, false},
		{"missing model", Config{Enabled: true, LLM: LLMConfig{APIKey: "k"}}, true},
		{"missing key", Config{Enabled: true, LLM: LLMConfig{Model: "m"}}, true},
		{"disabled", Config{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
