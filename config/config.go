// Package config loads chartsense settings from YAML, .env and the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where the setup wizard writes its output.
const DefaultPath = "config.gen.yaml"

// Config is the full application configuration.
type Config struct {
	LLM     LLMConfig     `yaml:"llm"`
	Image   ImageConfig   `yaml:"image"`
	Safety  SafetyConfig  `yaml:"safety"`
	Server  ServerConfig  `yaml:"server"`
	Journal JournalConfig `yaml:"journal"`
	Log     LogConfig     `yaml:"log"`
}

// LLMConfig holds model endpoints and call budgets.
type LLMConfig struct {
	APIURL           string        `yaml:"api_url" validate:"required,url"`
	APIKey           string        `yaml:"api_key,omitempty"`
	VisionModel      string        `yaml:"vision_model" validate:"required"`
	ReasoningModel   string        `yaml:"reasoning_model" validate:"required"`
	VisionTimeout    time.Duration `yaml:"vision_timeout" validate:"gte=1s"`
	ReasoningTimeout time.Duration `yaml:"reasoning_timeout" validate:"gte=1s"`
	TotalTimeout     time.Duration `yaml:"total_timeout" validate:"gte=1s"`
	MaxRetries       int           `yaml:"max_retries" validate:"gte=0,lte=10"`
	RetryDelay       time.Duration `yaml:"retry_delay" validate:"gte=0s"`
	Temperature      float64       `yaml:"temperature" validate:"gte=0,lte=2"`
	MaxTokens        int           `yaml:"max_tokens" validate:"gt=0"`
}

// ImageConfig bounds accepted chart uploads.
type ImageConfig struct {
	MaxBytes  int64 `yaml:"max_bytes" validate:"gt=0"`
	MinWidth  int   `yaml:"min_width" validate:"gte=0"`
	MinHeight int   `yaml:"min_height" validate:"gte=0"`
	MaxWidth  int   `yaml:"max_width" validate:"gtefield=MinWidth"`
	MaxHeight int   `yaml:"max_height" validate:"gtefield=MinHeight"`
}

// SafetyConfig tunes the output gate.
type SafetyConfig struct {
	Strict             bool    `yaml:"strict"`
	ConfidenceFloor    float64 `yaml:"confidence_floor" validate:"gte=0.3,lte=1"`
	DisclaimerPosition string  `yaml:"disclaimer_position" validate:"oneof=top bottom both"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr           string   `yaml:"addr" validate:"required"`
	RateLimitRPS   float64  `yaml:"rate_limit_rps" validate:"gte=0"`
	RateLimitBurst int      `yaml:"rate_limit_burst" validate:"gte=1"`
	AutoTLSDomains []string `yaml:"autotls_domains,omitempty" validate:"dive,hostname"`
	CertCacheDir   string   `yaml:"cert_cache_dir,omitempty"`
}

// JournalConfig configures the analysis journal.
type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir" validate:"required_if=Enabled true"`
}

// LogConfig selects the log level.
type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			APIURL:           "https://router.huggingface.co/v1/chat/completions",
			VisionModel:      "Qwen/Qwen2.5-VL-7B-Instruct",
			ReasoningModel:   "deepseek-ai/DeepSeek-R1",
			VisionTimeout:    30 * time.Second,
			ReasoningTimeout: 120 * time.Second,
			TotalTimeout:     150 * time.Second,
			MaxRetries:       2,
			RetryDelay:       2 * time.Second,
			Temperature:      0.3,
			MaxTokens:        2048,
		},
		Image: ImageConfig{
			MaxBytes:  5 * 1024 * 1024,
			MinWidth:  400,
			MinHeight: 300,
			MaxWidth:  4000,
			MaxHeight: 3000,
		},
		Safety: SafetyConfig{
			Strict:             true,
			ConfidenceFloor:    0.3,
			DisclaimerPosition: "bottom",
		},
		Server: ServerConfig{
			Addr:           "0.0.0.0:8000",
			RateLimitRPS:   1,
			RateLimitBurst: 5,
			CertCacheDir:   "cert-cache",
		},
		Journal: JournalConfig{
			Enabled: true,
			Dir:     "./wal/analyses",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// path is non-empty), then .env, then environment variables. The result is
// validated before it is returned.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", path)
		}
	}

	// .env is optional; it never overrides variables already set.
	_ = godotenv.Load()

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(err, "invalid config")
	}
	return nil
}

// Save writes cfg as YAML. The file may hold an API key, so it is not world readable.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "marshal config")
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.Wrapf(err, "write config %s", path)
	}
	return nil
}

type lookupFunc func(key string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	if v, ok := lookup("HF_API_KEY"); ok && v != "" {
		c.LLM.APIKey = v
	}
	if v, ok := lookup("LLM_API_KEY"); ok && v != "" {
		c.LLM.APIKey = v
	}
	setString(lookup, "LLM_API_URL", &c.LLM.APIURL)
	setString(lookup, "VISION_MODEL", &c.LLM.VisionModel)
	setString(lookup, "REASONING_MODEL", &c.LLM.ReasoningModel)
	setString(lookup, "SERVER_ADDR", &c.Server.Addr)
	setString(lookup, "JOURNAL_DIR", &c.Journal.Dir)
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		c.Log.Level = strings.ToLower(v)
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"VISION_TIMEOUT", &c.LLM.VisionTimeout},
		{"REASONING_TIMEOUT", &c.LLM.ReasoningTimeout},
		{"TOTAL_TIMEOUT", &c.LLM.TotalTimeout},
		{"RETRY_DELAY", &c.LLM.RetryDelay},
	}
	for _, d := range durations {
		if v, ok := lookup(d.key); ok && v != "" {
			parsed, err := parseDuration(v)
			if err != nil {
				return errors.Wrapf(err, "env %s", d.key)
			}
			*d.dst = parsed
		}
	}

	if v, ok := lookup("MAX_RETRIES"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrap(err, "env MAX_RETRIES")
		}
		c.LLM.MaxRetries = n
	}
	if v, ok := lookup("STRICT_SAFETY"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrap(err, "env STRICT_SAFETY")
		}
		c.Safety.Strict = b
	}
	if v, ok := lookup("CONFIDENCE_FLOOR"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return errors.Wrap(err, "env CONFIDENCE_FLOOR")
		}
		c.Safety.ConfidenceFloor = f
	}
	if v, ok := lookup("RATE_LIMIT_RPS"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return errors.Wrap(err, "env RATE_LIMIT_RPS")
		}
		c.Server.RateLimitRPS = f
	}

	return nil
}

func setString(lookup lookupFunc, key string, dst *string) {
	if v, ok := lookup(key); ok && v != "" {
		*dst = v
	}
}

// parseDuration accepts Go durations ("90s") or a bare number of seconds ("90").
func parseDuration(v string) (time.Duration, error) {
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, errors.Wrapf(err, "parse duration %q", v)
	}
	return d, nil
}
