// Package config loads cam.yaml, expanding environment variables and
// merging the result over built-in defaults. Grounded on the teacher's
// pkg/config loader: os.ExpandEnv-based YAML expansion
// (pkg/config/envexpand.go), dario.cat/mergo for default-merging
// (pkg/config/loader.go), and a slog.With("config_dir", ...)-style
// Initialize entrypoint — all scaled down from the teacher's multi-file
// (tarsy.yaml/llm-providers.yaml/agents.yaml) system to the single
// cam.yaml this domain needs.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// LLMConfig configures the language-model extraction endpoint (spec.md
// §6). URLEnv/APIKeyEnv name environment variables that override URL/APIKey
// when set; per spec.md §6, "the configuration file is authoritative when
// both are present" — so these only apply when the YAML field is empty.
type LLMConfig struct {
	URL               string `yaml:"url"`
	URLEnv            string `yaml:"url_env"`
	APIKey            string `yaml:"api_key"`
	APIKeyEnv         string `yaml:"api_key_env"`
	Model             string `yaml:"model"`
	MaxTokens         int64  `yaml:"max_tokens"`
	ClassifierTimeout string `yaml:"classifier_timeout"`
	ExtractorTimeout  string `yaml:"extractor_timeout"`
}

// WebhookConfig configures the delivery endpoint (spec.md §6).
type WebhookConfig struct {
	URL           string `yaml:"url"`
	BearerToken   string `yaml:"bearer_token"`
	BearerTokenEnv string `yaml:"bearer_token_env"`

	SlackToken   string `yaml:"slack_token"`
	SlackChannel string `yaml:"slack_channel"`
}

// WatcherConfig configures the polling loop (spec.md §5).
type WatcherConfig struct {
	TickIntervalSeconds float64 `yaml:"tick_interval_seconds"`
	StabilityThreshold  int64   `yaml:"stability_threshold_seconds"`
	HookQuietPeriod     int64   `yaml:"hook_quiet_period_seconds"`
	HookInactiveThreshold int64 `yaml:"hook_inactive_threshold_seconds"`
}

// DedupConfig configures the Deduplicator (spec.md §4.5).
type DedupConfig struct {
	WindowSeconds int64   `yaml:"window_seconds"`
	Threshold     float64 `yaml:"similarity_threshold"`
}

// StatusServerConfig configures the localhost diagnostics HTTP server.
type StatusServerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Config is the complete cam.yaml shape.
type Config struct {
	StateDir    string             `yaml:"state_dir"`
	LLM         LLMConfig          `yaml:"llm"`
	Webhook     WebhookConfig      `yaml:"webhook"`
	Watcher     WatcherConfig      `yaml:"watcher"`
	Dedup       DedupConfig        `yaml:"dedup"`
	StatusServer StatusServerConfig `yaml:"status_server"`
}

// Defaults returns the built-in configuration every loaded file is merged
// over (pkg/config/defaults.go's role in the teacher).
func Defaults() Config {
	return Config{
		StateDir: defaultStateDir(),
		LLM: LLMConfig{
			URLEnv:            "CAM_LLM_URL",
			APIKeyEnv:         "CAM_LLM_API_KEY",
			Model:             "claude-haiku-4-5",
			MaxTokens:         1024,
			ClassifierTimeout: "2s",
			ExtractorTimeout:  "10s",
		},
		Webhook: WebhookConfig{
			BearerTokenEnv: "CAM_WEBHOOK_TOKEN",
		},
		Watcher: WatcherConfig{
			TickIntervalSeconds:   1,
			StabilityThreshold:    6,
			HookQuietPeriod:       30,
			HookInactiveThreshold: 300,
		},
		Dedup: DedupConfig{
			WindowSeconds: 120,
			Threshold:     0.8,
		},
		StatusServer: StatusServerConfig{
			Enabled: true,
			Addr:    "127.0.0.1:7423",
		},
	}
}

func defaultStateDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "cam")
	}
	return ".cam"
}

// Load reads path, expands environment variables, parses YAML, and merges
// the result over Defaults(). A missing file is not an error — Defaults()
// alone is returned, matching the teacher's tolerance for an absent
// optional config file.
func Load(path string) (*Config, error) {
	log := slog.With("component", "config", "path", path)

	cfg := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Info("config file not found, using defaults")
			resolveEnv(&cfg)
			return &cfg, nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	expanded := ExpandEnv(data)
	var fromFile Config
	if err := yaml.Unmarshal(expanded, &fromFile); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if err := mergo.Merge(&cfg, fromFile, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("config: merging %s over defaults: %w", path, err)
	}

	resolveEnv(&cfg)
	log.Info("configuration loaded")
	return &cfg, nil
}

// ExpandEnv expands ${VAR} and $VAR references in YAML content using the
// standard library (pkg/config/envexpand.go's approach).
func ExpandEnv(data []byte) []byte {
	return []byte(os.ExpandEnv(string(data)))
}

// resolveEnv applies the environment-variable overrides spec.md §6 allows
// for the LLM/webhook endpoints, when the YAML field itself was left empty.
func resolveEnv(cfg *Config) {
	if cfg.LLM.URL == "" && cfg.LLM.URLEnv != "" {
		cfg.LLM.URL = os.Getenv(cfg.LLM.URLEnv)
	}
	if cfg.LLM.APIKey == "" && cfg.LLM.APIKeyEnv != "" {
		cfg.LLM.APIKey = os.Getenv(cfg.LLM.APIKeyEnv)
	}
	if cfg.Webhook.BearerToken == "" && cfg.Webhook.BearerTokenEnv != "" {
		cfg.Webhook.BearerToken = os.Getenv(cfg.Webhook.BearerTokenEnv)
	}
}

// ClassifierTimeoutDuration parses LLM.ClassifierTimeout, defaulting to 2s
// on a missing or malformed value.
func (c Config) ClassifierTimeoutDuration() time.Duration {
	return parseDurationOr(c.LLM.ClassifierTimeout, 2*time.Second)
}

// ExtractorTimeoutDuration parses LLM.ExtractorTimeout, defaulting to 10s.
func (c Config) ExtractorTimeoutDuration() time.Duration {
	return parseDurationOr(c.LLM.ExtractorTimeout, 10*time.Second)
}

// TickInterval returns the watcher loop's tick interval as a Duration.
func (c Config) TickInterval() time.Duration {
	if c.Watcher.TickIntervalSeconds <= 0 {
		return time.Second
	}
	return time.Duration(c.Watcher.TickIntervalSeconds * float64(time.Second))
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
