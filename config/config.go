// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package config loads scrapex session settings from a YAML file,
// with SCRAPEX_* environment variable overrides, and builds a
// configured Session from them.
//
// A minimal file:
//
//	session:
//	  minimum_wait: 2s
//	  random_user_agent: true
//	retry:
//	  budget: 3
//	  backoff: 1s
//	proxy:
//	  url: https://proxies.example.com/api
//	  continents: [Europe, North America]
//	  enabled: true
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/gogama/scrapex"
	"github.com/gogama/scrapex/proxy"
	"github.com/gogama/scrapex/retry"
	"github.com/gogama/scrapex/transport"
	"gopkg.in/yaml.v3"
)

// Config is the root of the configuration file.
type Config struct {
	Session   SessionConfig   `yaml:"session"`
	Retry     RetryConfig     `yaml:"retry"`
	Proxy     ProxyConfig     `yaml:"proxy"`
	Transport TransportConfig `yaml:"transport"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// SessionConfig holds identity and pacing settings.
type SessionConfig struct {
	UserAgent        string            `yaml:"user_agent"`
	RandomUserAgent  bool              `yaml:"random_user_agent"`
	MinimumWait      time.Duration     `yaml:"minimum_wait"`
	SkipSSLVerify    bool              `yaml:"skip_ssl_verify"`
	MaxContentLength int64             `yaml:"max_content_length"`
	Headers          map[string]string `yaml:"headers"`
}

// RetryConfig holds the retry budget and connection failure backoff.
// A nil Budget means retry.DefaultTimes; zero disables retries.
type RetryConfig struct {
	Budget  *int          `yaml:"budget"`
	Backoff time.Duration `yaml:"backoff"`
}

// ProxyConfig holds the proxy list service and bag settings.
type ProxyConfig struct {
	URL        string   `yaml:"url"`
	APIKey     string   `yaml:"api_key"`
	Continents []string `yaml:"continents"`
	SSLOnly    bool     `yaml:"ssl_only"`
	Enabled    bool     `yaml:"enabled"`
	// Test checks the active proxy against the service when the bag is
	// enabled, discarding proxies until one passes.
	Test bool `yaml:"test"`
	// Fixed, if set, is used as the proxy for both schemes when the bag
	// is not enabled.
	Fixed string `yaml:"fixed"`
}

// TransportConfig holds settings of the default transport.
type TransportConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// LoggingConfig holds the log level: debug, info, warn or error.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// MetricsConfig holds the address of the Prometheus endpoint. Empty
// disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Load reads the configuration from the YAML file at path, then applies
// environment overrides and defaults. A missing file, or an empty path,
// gives the default configuration with environment overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("scrapex/config: failed to read %q: %w", path, err)
		}
		if err == nil {
			if err = yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("scrapex/config: failed to parse %q: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the default configuration.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("SCRAPEX_USER_AGENT"); v != "" {
		c.Session.UserAgent = v
	}
	if v := os.Getenv("SCRAPEX_RANDOM_USER_AGENT"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return envErr("SCRAPEX_RANDOM_USER_AGENT", err)
		}
		c.Session.RandomUserAgent = b
	}
	if v := os.Getenv("SCRAPEX_MINIMUM_WAIT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return envErr("SCRAPEX_MINIMUM_WAIT", err)
		}
		c.Session.MinimumWait = d
	}
	if v := os.Getenv("SCRAPEX_SKIP_SSL_VERIFY"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return envErr("SCRAPEX_SKIP_SSL_VERIFY", err)
		}
		c.Session.SkipSSLVerify = b
	}
	if v := os.Getenv("SCRAPEX_RETRY_BUDGET"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return envErr("SCRAPEX_RETRY_BUDGET", err)
		}
		c.Retry.Budget = &n
	}
	if v := os.Getenv("SCRAPEX_RETRY_BACKOFF"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return envErr("SCRAPEX_RETRY_BACKOFF", err)
		}
		c.Retry.Backoff = d
	}
	if v := os.Getenv("SCRAPEX_PROXY_URL"); v != "" {
		c.Proxy.URL = v
	}
	if v := os.Getenv("SCRAPEX_PROXY_API_KEY"); v != "" {
		c.Proxy.APIKey = v
	}
	if v := os.Getenv("SCRAPEX_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return envErr("SCRAPEX_TIMEOUT", err)
		}
		c.Transport.Timeout = d
	}
	if v := os.Getenv("SCRAPEX_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("SCRAPEX_METRICS_ADDR"); v != "" {
		c.Metrics.Addr = v
	}
	return nil
}

func envErr(name string, err error) error {
	return fmt.Errorf("scrapex/config: invalid %s: %w", name, err)
}

func (c *Config) applyDefaults() {
	if c.Retry.Budget == nil {
		n := retry.DefaultTimes
		c.Retry.Budget = &n
	}
	if c.Session.MaxContentLength == 0 {
		c.Session.MaxContentLength = scrapex.DefaultMaxContentLength
	}
	if c.Transport.Timeout == 0 {
		c.Transport.Timeout = 30 * time.Second
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate checks the configuration for values no session can use.
func (c *Config) Validate() error {
	if c.Retry.Budget != nil && *c.Retry.Budget < 0 {
		return fmt.Errorf("scrapex/config: retry budget cannot be negative: %d", *c.Retry.Budget)
	}
	if c.Retry.Backoff < 0 {
		return fmt.Errorf("scrapex/config: retry backoff cannot be negative: %s", c.Retry.Backoff)
	}
	if c.Session.MinimumWait < 0 {
		return fmt.Errorf("scrapex/config: minimum wait cannot be negative: %s", c.Session.MinimumWait)
	}
	if c.Session.MaxContentLength < 0 {
		return fmt.Errorf("scrapex/config: max content length cannot be negative: %d", c.Session.MaxContentLength)
	}
	if err := proxy.ValidateContinents(c.Proxy.Continents); err != nil {
		return err
	}
	if c.Proxy.Enabled && c.Proxy.URL == "" {
		return errors.New("scrapex/config: proxy bag enabled without a proxy service url")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level returns the configured log level.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Logging.Level)); err != nil {
		return l, fmt.Errorf("scrapex/config: invalid log level %q", c.Logging.Level)
	}
	return l, nil
}

// An Option adjusts a Session built by NewSession before it makes any
// request.
type Option func(*scrapex.Session)

// WithTransport replaces the session transport built from
// TransportConfig.
func WithTransport(d transport.Doer) Option {
	return func(s *scrapex.Session) {
		s.Transport = d
	}
}

// NewSession builds a Session from the configuration. If the proxy bag
// is enabled, NewSession fills it from the proxy service and activates
// it, which needs network access. With Proxy.Test set, it then checks
// the active proxy with Session.TestProxy.
func (c *Config) NewSession(ctx context.Context, logger *slog.Logger, opts ...Option) (*scrapex.Session, error) {
	budget := retry.DefaultTimes
	if c.Retry.Budget != nil {
		budget = *c.Retry.Budget
	}
	s := &scrapex.Session{
		Transport:        &transport.HTTP{Timeout: c.Transport.Timeout},
		RetryPolicy:      retry.NewPolicy(budget, c.Retry.Backoff),
		Logger:           logger,
		MinimumWait:      c.Session.MinimumWait,
		SkipSSLVerify:    c.Session.SkipSSLVerify,
		MaxContentLength: c.Session.MaxContentLength,
	}
	if c.Session.RandomUserAgent {
		s.UseRandomUserAgent(true)
	} else if c.Session.UserAgent != "" {
		s.SetUserAgent(c.Session.UserAgent)
	}
	for k, v := range c.Session.Headers {
		s.SetHeader(k, v)
	}
	for _, opt := range opts {
		opt(s)
	}
	if c.Proxy.Fixed != "" {
		s.SetProxy(proxy.Map{"http": c.Proxy.Fixed, "https": c.Proxy.Fixed})
	}
	if c.Proxy.URL != "" {
		s.ProxySource = &proxy.RemoteSource{
			BaseURL: c.Proxy.URL,
			APIKey:  c.Proxy.APIKey,
		}
	}
	if c.Proxy.Enabled {
		if err := s.FillProxyBag(ctx, c.Proxy.Continents, c.Proxy.SSLOnly); err != nil {
			return nil, err
		}
		if len(s.ProxyBag()) == 0 {
			return nil, scrapex.ErrEmptyProxyBag
		}
		if err := s.UseRandomPublicProxy(ctx, true); err != nil {
			return nil, err
		}
		if c.Proxy.Test {
			if err := s.TestProxy(ctx); err != nil {
				return nil, err
			}
		}
	}
	return s, nil
}
