package profile

import (
	"os"
	"testing"
	"time"
)

var envVars = []string{
	"SCHEDKIT_ROLLOVER_POLICY",
	"SCHEDKIT_PARSE_CACHE_TTL",
	"SCHEDKIT_PARSE_CACHE_SIZE",
	"SCHEDKIT_SLOT_FILTER",
	"SCHEDKIT_AI_ENABLED",
	"SCHEDKIT_AI_OPENAI_API_KEY",
	"SCHEDKIT_AI_OPENAI_BASE_URL",
	"SCHEDKIT_AI_LLM_MODEL",
	"SCHEDKIT_AI_REQUESTS_PER_SEC",
	"SCHEDKIT_AI_REQUEST_TIMEOUT",
	"SCHEDKIT_AI_MAX_REPLY_TOKENS",
	"SCHEDKIT_AI_PROMPT_LOCALE",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envVars {
		t.Setenv(key, "")
	}
}

// TestProfileDefaults 测试默认配置
func TestProfileDefaults(t *testing.T) {
	clearEnv(t)

	profile := &Profile{}
	profile.FromEnv()

	if profile.AIEnabled {
		t.Error("AIEnabled should be false by default")
	}
	if profile.IsAIEnabled() {
		t.Error("IsAIEnabled should be false without a key")
	}
	if profile.RolloverPolicy != "always" {
		t.Errorf("RolloverPolicy: expected %q, got %q", "always", profile.RolloverPolicy)
	}
	if profile.ParseCacheTTL != 5*time.Minute {
		t.Errorf("ParseCacheTTL: expected 5m, got %s", profile.ParseCacheTTL)
	}
	if profile.ParseCacheSize != 256 {
		t.Errorf("ParseCacheSize: expected 256, got %d", profile.ParseCacheSize)
	}
	if profile.AIOpenAIBaseURL != "https://api.openai.com/v1" {
		t.Errorf("AIOpenAIBaseURL: got %q", profile.AIOpenAIBaseURL)
	}
	if profile.AILLMModel != "deepseek-chat" {
		t.Errorf("AILLMModel: got %q", profile.AILLMModel)
	}
	if profile.AIRequestsPerSec != 1 {
		t.Errorf("AIRequestsPerSec: got %v", profile.AIRequestsPerSec)
	}
}

// TestProfileFromEnv 测试从环境变量读取配置
func TestProfileFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("SCHEDKIT_AI_ENABLED", "true")
	t.Setenv("SCHEDKIT_AI_OPENAI_API_KEY", "sk-test")
	t.Setenv("SCHEDKIT_PARSE_CACHE_TTL", "90s")
	t.Setenv("SCHEDKIT_PARSE_CACHE_SIZE", "not-a-number")
	t.Setenv("SCHEDKIT_ROLLOVER_POLICY", "unless_explicit_day")
	t.Setenv("SCHEDKIT_SLOT_FILTER", "start_hour >= 9")

	profile := &Profile{}
	profile.FromEnv()

	if !profile.IsAIEnabled() {
		t.Error("IsAIEnabled should be true with enabled flag and key")
	}
	if profile.ParseCacheTTL != 90*time.Second {
		t.Errorf("ParseCacheTTL: expected 90s, got %s", profile.ParseCacheTTL)
	}
	if profile.ParseCacheSize != 256 {
		t.Errorf("malformed ParseCacheSize should fall back to default, got %d", profile.ParseCacheSize)
	}
	if profile.RolloverPolicy != "unless_explicit_day" {
		t.Errorf("RolloverPolicy: got %q", profile.RolloverPolicy)
	}
	if profile.SlotFilter != "start_hour >= 9" {
		t.Errorf("SlotFilter: got %q", profile.SlotFilter)
	}
}

// TestProfileValidate 测试配置校验
func TestProfileValidate(t *testing.T) {
	dir := t.TempDir()

	t.Run("sqlite defaults", func(t *testing.T) {
		p := &Profile{Mode: "bogus", Data: dir}
		if err := p.Validate(); err != nil {
			t.Fatalf("Validate failed: %v", err)
		}
		if p.Mode != "demo" {
			t.Errorf("unknown mode should become demo, got %q", p.Mode)
		}
		if p.Driver != "sqlite" {
			t.Errorf("Driver: got %q", p.Driver)
		}
		if p.DSN == "" || p.Port != 8081 || p.Timezone != "Asia/Shanghai" {
			t.Errorf("defaults not applied: %+v", p)
		}
		if p.Location().String() != "Asia/Shanghai" {
			t.Errorf("Location: got %s", p.Location())
		}
	})

	t.Run("bad timezone", func(t *testing.T) {
		p := &Profile{Mode: "dev", Data: dir, Timezone: "Mars/Olympus"}
		if err := p.Validate(); err == nil {
			t.Error("expected error for invalid timezone")
		}
	})

	t.Run("prod requires secret", func(t *testing.T) {
		p := &Profile{Mode: "prod", Data: dir}
		if err := p.Validate(); err == nil {
			t.Error("expected error without jwt secret")
		}
	})

	t.Run("postgres requires dsn", func(t *testing.T) {
		p := &Profile{Mode: "dev", Data: dir, Driver: "postgres"}
		if err := p.Validate(); err == nil {
			t.Error("expected error without dsn")
		}
	})

	t.Run("unknown driver", func(t *testing.T) {
		p := &Profile{Mode: "dev", Data: dir, Driver: "mysql"}
		if err := p.Validate(); err == nil {
			t.Error("expected error for mysql")
		}
	})

	t.Run("missing data dir", func(t *testing.T) {
		p := &Profile{Mode: "dev", Data: dir + string(os.PathSeparator) + "missing"}
		if err := p.Validate(); err == nil {
			t.Error("expected error for missing data dir")
		}
	})
}
