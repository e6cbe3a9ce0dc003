// Package config loads and validates the kiosk orchestration core's
// configuration, merging YAML file defaults with environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every recognised option from the specification's
// configuration table, with the documented defaults.
type Config struct {
	SessionIdleTimeoutMS  int64  `yaml:"session_idle_timeout_ms"`
	SessionDurationS      int64  `yaml:"session_duration_s"`
	SessionSweepIntervalMS int64 `yaml:"session_sweep_interval_ms"`
	AnchorLeadMS          int64  `yaml:"anchor_lead_ms"`
	PreloadLeadMS         int64  `yaml:"preload_lead_ms"`
	ShowCrossfadeMS       int64  `yaml:"show_crossfade_ms"`
	LateShowToleranceMS   int64  `yaml:"late_show_tolerance_ms"`
	TTSCacheEnabled       bool   `yaml:"tts_cache_enabled"`
	TTSCacheDir           string `yaml:"tts_cache_dir"`
	LLMTimeoutMS          int64  `yaml:"llm_timeout_ms"`
	TTSTimeoutMS          int64  `yaml:"tts_timeout_ms"`

	// HTTPAddr is the listen address for the inbound HTTP API.
	HTTPAddr string `yaml:"http_addr"`

	// LiveKitURL is returned to clients in start_session responses.
	LiveKitURL string `yaml:"livekit_url"`
	// LiveKitAPIKey/LiveKitAPISecret mint the per-session capability token.
	LiveKitAPIKey    string `yaml:"livekit_api_key"`
	LiveKitAPISecret string `yaml:"livekit_api_secret"`

	// ImageCataloguePath points at the structured catalogue document (§6).
	ImageCataloguePath string `yaml:"image_catalogue_path"`

	// LLMEndpoint is the full URL (including the /chat path) that the
	// outbound chat call is POSTed to as-is.
	LLMEndpoint string `yaml:"llm_endpoint"`
	// TTSPrimaryEndpoint, TTSSecondaryEndpoint, and TTSLocalEndpoint are the
	// full URLs (including the /synthesize path) POSTed to as-is by the
	// fallback chain's three networked tiers (§4.4); any
	// left empty are skipped, with the constant-sine placeholder always
	// last in the chain.
	TTSPrimaryEndpoint   string `yaml:"tts_primary_endpoint"`
	TTSSecondaryEndpoint string `yaml:"tts_secondary_endpoint"`
	TTSLocalEndpoint     string `yaml:"tts_local_endpoint"`

	// PersonaPrompt is the system turn inserted once at the head of history.
	PersonaPrompt string `yaml:"persona_prompt"`

	// RedisAddr, if non-empty, enables the datachannel router's cross-process
	// pub/sub backplane.
	RedisAddr string `yaml:"redis_addr"`

	// OTLPEndpoint, if non-empty, enables span export over OTLP/HTTP.
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	// ServiceName tags every emitted span with service.name.
	ServiceName string `yaml:"service_name"`
}

// Default returns a Config populated with the specification's documented
// defaults (§6).
func Default() Config {
	return Config{
		SessionIdleTimeoutMS:   600_000,
		SessionDurationS:       300,
		SessionSweepIntervalMS: 60_000,
		AnchorLeadMS:           1_000,
		PreloadLeadMS:          1_500,
		ShowCrossfadeMS:        400,
		LateShowToleranceMS:    100,
		TTSCacheEnabled:        true,
		TTSCacheDir:            "./data/tts-cache",
		LLMTimeoutMS:           15_000,
		TTSTimeoutMS:           10_000,
		HTTPAddr:               ":8080",
		PersonaPrompt:          "You are a friendly kiosk host.",
		ServiceName:            "kiosk-orchestration-core",
	}
}

// Load reads a YAML file at path (if it exists) over the defaults, then
// applies KIOSK_*-prefixed environment variable overrides, and returns the
// merged Config.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideInt64(&cfg.SessionIdleTimeoutMS, "KIOSK_SESSION_IDLE_TIMEOUT_MS")
	overrideInt64(&cfg.SessionDurationS, "KIOSK_SESSION_DURATION_S")
	overrideInt64(&cfg.SessionSweepIntervalMS, "KIOSK_SESSION_SWEEP_INTERVAL_MS")
	overrideInt64(&cfg.AnchorLeadMS, "KIOSK_ANCHOR_LEAD_MS")
	overrideInt64(&cfg.PreloadLeadMS, "KIOSK_PRELOAD_LEAD_MS")
	overrideInt64(&cfg.ShowCrossfadeMS, "KIOSK_SHOW_CROSSFADE_MS")
	overrideInt64(&cfg.LateShowToleranceMS, "KIOSK_LATE_SHOW_TOLERANCE_MS")
	overrideInt64(&cfg.LLMTimeoutMS, "KIOSK_LLM_TIMEOUT_MS")
	overrideInt64(&cfg.TTSTimeoutMS, "KIOSK_TTS_TIMEOUT_MS")
	overrideString(&cfg.HTTPAddr, "KIOSK_HTTP_ADDR")
	overrideString(&cfg.TTSCacheDir, "KIOSK_TTS_CACHE_DIR")
	overrideString(&cfg.LiveKitURL, "KIOSK_LIVEKIT_URL")
	overrideString(&cfg.LiveKitAPIKey, "KIOSK_LIVEKIT_API_KEY")
	overrideString(&cfg.LiveKitAPISecret, "KIOSK_LIVEKIT_API_SECRET")
	overrideString(&cfg.ImageCataloguePath, "KIOSK_IMAGE_CATALOGUE_PATH")
	overrideString(&cfg.LLMEndpoint, "KIOSK_LLM_ENDPOINT")
	overrideString(&cfg.TTSPrimaryEndpoint, "KIOSK_TTS_PRIMARY_ENDPOINT")
	overrideString(&cfg.TTSSecondaryEndpoint, "KIOSK_TTS_SECONDARY_ENDPOINT")
	overrideString(&cfg.TTSLocalEndpoint, "KIOSK_TTS_LOCAL_ENDPOINT")
	overrideString(&cfg.RedisAddr, "KIOSK_REDIS_ADDR")
	overrideString(&cfg.OTLPEndpoint, "KIOSK_OTLP_ENDPOINT")
	overrideString(&cfg.ServiceName, "KIOSK_SERVICE_NAME")
}

func overrideInt64(dst *int64, envKey string) {
	v := os.Getenv(envKey)
	if v == "" {
		return
	}
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		*dst = n
	}
}

func overrideString(dst *string, envKey string) {
	if v := os.Getenv(envKey); v != "" {
		*dst = v
	}
}

// Validate checks that durations and required fields are sane.
func (c Config) Validate() error {
	if c.SessionIdleTimeoutMS <= 0 {
		return fmt.Errorf("session_idle_timeout_ms must be positive")
	}
	if c.SessionDurationS <= 0 {
		return fmt.Errorf("session_duration_s must be positive")
	}
	if c.LLMTimeoutMS <= 0 || c.TTSTimeoutMS <= 0 {
		return fmt.Errorf("llm_timeout_ms and tts_timeout_ms must be positive")
	}
	return nil
}

// Duration helpers, used throughout internal/ to avoid repeating
// time.Duration(x) * time.Millisecond at every call site.

func (c Config) SessionIdleTimeout() time.Duration {
	return time.Duration(c.SessionIdleTimeoutMS) * time.Millisecond
}

func (c Config) SessionDuration() time.Duration {
	return time.Duration(c.SessionDurationS) * time.Second
}

func (c Config) SessionSweepInterval() time.Duration {
	return time.Duration(c.SessionSweepIntervalMS) * time.Millisecond
}

func (c Config) AnchorLead() time.Duration {
	return time.Duration(c.AnchorLeadMS) * time.Millisecond
}

func (c Config) PreloadLead() time.Duration {
	return time.Duration(c.PreloadLeadMS) * time.Millisecond
}

func (c Config) ShowCrossfade() time.Duration {
	return time.Duration(c.ShowCrossfadeMS) * time.Millisecond
}

func (c Config) LateShowTolerance() time.Duration {
	return time.Duration(c.LateShowToleranceMS) * time.Millisecond
}

func (c Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLMTimeoutMS) * time.Millisecond
}

func (c Config) TTSTimeout() time.Duration {
	return time.Duration(c.TTSTimeoutMS) * time.Millisecond
}
