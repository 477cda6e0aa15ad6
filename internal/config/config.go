// Package config loads runtime settings from the environment and an optional
// .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/viper"
)

const (
	BackendSupabase = "supabase"
	BackendDynamoDB = "dynamodb"
)

type Config struct {
	GeminiAPIKey       string        `mapstructure:"gemini_api_key"`
	GeminiModel        string        `mapstructure:"gemini_model"`
	ParamPrefix        string        `mapstructure:"param_prefix"`
	SupabaseURL        string        `mapstructure:"supabase_url"`
	SupabaseKey        string        `mapstructure:"supabase_key"`
	SupabaseRPC        string        `mapstructure:"supabase_rpc"`
	CertificateBackend string        `mapstructure:"certificate_backend"`
	CertificateTable   string        `mapstructure:"certificate_table"`
	SearchTimeout      time.Duration `mapstructure:"search_timeout"`
	JobFormURL         string        `mapstructure:"job_form_url"`
	HTTPAddr           string        `mapstructure:"http_addr"`
	HistoryLimit       int           `mapstructure:"history_limit"`
	LogLevel           string        `mapstructure:"log_level"`
}

var defaults = map[string]any{
	"gemini_api_key":      "",
	"gemini_model":        "gemini-1.5-flash",
	"param_prefix":        "",
	"supabase_url":        "",
	"supabase_key":        "",
	"supabase_rpc":        "search_certificate",
	"certificate_backend": BackendSupabase,
	"certificate_table":   "",
	"search_timeout":      10 * time.Second,
	"job_form_url":        "",
	"http_addr":           ":5000",
	"history_limit":       20,
	"log_level":           "info",
}

// Load reads settings from the environment. When envFile is non-empty and
// exists it is read first; real environment variables always win.
func Load(envFile string) (*Config, error) {
	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.AutomaticEnv()

	if envFile != "" {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: read %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	c.GeminiModel = strings.TrimSpace(c.GeminiModel)
	c.ParamPrefix = strings.TrimRight(strings.TrimSpace(c.ParamPrefix), "/")
	c.SupabaseURL = strings.TrimRight(strings.TrimSpace(c.SupabaseURL), "/")
	c.CertificateBackend = strings.ToLower(strings.TrimSpace(c.CertificateBackend))
	c.CertificateTable = strings.TrimSpace(c.CertificateTable)
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var result *multierror.Error

	switch c.CertificateBackend {
	case BackendSupabase:
		if c.SupabaseURL != "" {
			if u, err := url.Parse(c.SupabaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				result = multierror.Append(result, fmt.Errorf("SUPABASE_URL must be an http(s) URL, got %q", c.SupabaseURL))
			}
		}
	case BackendDynamoDB:
		if c.CertificateTable == "" {
			result = multierror.Append(result, errors.New("CERTIFICATE_TABLE is required when CERTIFICATE_BACKEND=dynamodb"))
		}
	default:
		result = multierror.Append(result, fmt.Errorf("CERTIFICATE_BACKEND must be %q or %q, got %q",
			BackendSupabase, BackendDynamoDB, c.CertificateBackend))
	}
	if c.GeminiModel == "" {
		result = multierror.Append(result, errors.New("GEMINI_MODEL must not be empty"))
	}
	if c.SearchTimeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("SEARCH_TIMEOUT must be positive, got %s", c.SearchTimeout))
	}
	if c.HistoryLimit <= 0 {
		result = multierror.Append(result, fmt.Errorf("HISTORY_LIMIT must be positive, got %d", c.HistoryLimit))
	}
	if _, err := c.Level(); err != nil {
		result = multierror.Append(result, err)
	}

	if err := result.ErrorOrNil(); err != nil {
		return fmt.Errorf("config: invalid: %w", err)
	}
	return nil
}

// Level parses LOG_LEVEL.
func (c *Config) Level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return lvl, nil
}

// SecretParam returns the SSM parameter name for a secret, or "" when no
// prefix is configured.
func (c *Config) SecretParam(name string) string {
	if c.ParamPrefix == "" {
		return ""
	}
	return c.ParamPrefix + "/" + strings.TrimLeft(name, "/")
}
