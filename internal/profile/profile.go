package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Profile is the configuration to start main server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory
	Data string
	// DSN points to where schedkit stores its schedule snapshot
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of server
	Version string

	// Timezone is used when a request does not name one.
	Timezone string
	// JWTSecret signs and verifies API bearer tokens.
	JWTSecret string
	// RateLimit is the per-user API request rate (requests per second).
	RateLimit float64

	// Parser configuration
	RolloverPolicy string        // SCHEDKIT_ROLLOVER_POLICY (always | unless_explicit_day)
	ParseCacheTTL  time.Duration // SCHEDKIT_PARSE_CACHE_TTL (default: 5m)
	ParseCacheSize int           // SCHEDKIT_PARSE_CACHE_SIZE (default: 256)
	SlotFilter     string        // SCHEDKIT_SLOT_FILTER, CEL expression over a suggested slot

	// AI Configuration
	AIEnabled        bool          // SCHEDKIT_AI_ENABLED
	AIOpenAIAPIKey   string        // SCHEDKIT_AI_OPENAI_API_KEY
	AIOpenAIBaseURL  string        // SCHEDKIT_AI_OPENAI_BASE_URL (default: https://api.openai.com/v1)
	AILLMModel       string        // SCHEDKIT_AI_LLM_MODEL (default: deepseek-chat)
	AIRequestsPerSec float64       // SCHEDKIT_AI_REQUESTS_PER_SEC (default: 1)
	AIRequestTimeout time.Duration // SCHEDKIT_AI_REQUEST_TIMEOUT (default: 30s)
	AIMaxReplyTokens int           // SCHEDKIT_AI_MAX_REPLY_TOKENS (default: 512)
	AIPromptLocale   string        // SCHEDKIT_AI_PROMPT_LOCALE (zh | en)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if AI is enabled and an API key is configured.
func (p *Profile) IsAIEnabled() bool {
	return p.AIEnabled && p.AIOpenAIAPIKey != ""
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FromEnv loads the parser and AI configuration from SCHEDKIT_* environment variables.
// Malformed numeric values fall back to defaults.
func (p *Profile) FromEnv() {
	getDuration := func(key string, defaultValue time.Duration) time.Duration {
		if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
			return d
		}
		return defaultValue
	}
	getInt := func(key string, defaultValue int) int {
		if n, err := strconv.Atoi(os.Getenv(key)); err == nil && n > 0 {
			return n
		}
		return defaultValue
	}
	getFloat := func(key string, defaultValue float64) float64 {
		if f, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil && f > 0 {
			return f
		}
		return defaultValue
	}

	p.RolloverPolicy = getEnvOrDefault("SCHEDKIT_ROLLOVER_POLICY", "always")
	p.ParseCacheTTL = getDuration("SCHEDKIT_PARSE_CACHE_TTL", 5*time.Minute)
	p.ParseCacheSize = getInt("SCHEDKIT_PARSE_CACHE_SIZE", 256)
	p.SlotFilter = os.Getenv("SCHEDKIT_SLOT_FILTER")

	p.AIEnabled = os.Getenv("SCHEDKIT_AI_ENABLED") == "true"
	p.AIOpenAIAPIKey = os.Getenv("SCHEDKIT_AI_OPENAI_API_KEY")
	p.AIOpenAIBaseURL = getEnvOrDefault("SCHEDKIT_AI_OPENAI_BASE_URL", "https://api.openai.com/v1")
	p.AILLMModel = getEnvOrDefault("SCHEDKIT_AI_LLM_MODEL", "deepseek-chat")
	p.AIRequestsPerSec = getFloat("SCHEDKIT_AI_REQUESTS_PER_SEC", 1)
	p.AIRequestTimeout = getDuration("SCHEDKIT_AI_REQUEST_TIMEOUT", 30*time.Second)
	p.AIMaxReplyTokens = getInt("SCHEDKIT_AI_MAX_REPLY_TOKENS", 512)
	p.AIPromptLocale = getEnvOrDefault("SCHEDKIT_AI_PROMPT_LOCALE", "zh")
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

// Validate normalizes defaults and rejects unusable settings.
func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}
	if p.Driver == "" {
		p.Driver = "sqlite"
	}
	if p.Driver != "sqlite" && p.Driver != "postgres" {
		return errors.Errorf("unsupported driver %q", p.Driver)
	}
	if p.Port == 0 {
		p.Port = 8081
	}
	if p.Timezone == "" {
		p.Timezone = "Asia/Shanghai"
	}
	if _, err := time.LoadLocation(p.Timezone); err != nil {
		return errors.Wrapf(err, "invalid timezone %s", p.Timezone)
	}
	if p.Mode == "prod" && p.JWTSecret == "" {
		return errors.New("jwt secret is required in prod mode")
	}

	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "schedkit")
			if _, err := os.Stat(p.Data); os.IsNotExist(err) {
				if err := os.MkdirAll(p.Data, 0770); err != nil {
					slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
					return err
				}
			}
		} else {
			p.Data = "/var/opt/schedkit"
		}
	}
	if p.Data == "" {
		p.Data = "."
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check dsn", slog.String("data", dataDir), slog.String("error", err.Error()))
		return err
	}

	p.Data = dataDir
	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("schedkit_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}
	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("dsn is required for the postgres driver")
	}

	return nil
}

// Location returns the default timezone. Validate must have succeeded.
func (p *Profile) Location() *time.Location {
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
