// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/hashicorp/capgate/gate"
	"github.com/hashicorp/capgate/session"
)

// Config is the webapp's configuration.  It's read from an optional YAML
// file, then overridden by CAPGATE_* environment variables.
type Config struct {
	ListenAddr        string        `yaml:"listen_addr" env:"CAPGATE_LISTEN_ADDR"`
	Issuer            string        `yaml:"issuer" env:"CAPGATE_ISSUER"`
	ClientID          string        `yaml:"client_id" env:"CAPGATE_CLIENT_ID"`
	ClientSecret      string        `yaml:"client_secret" env:"CAPGATE_CLIENT_SECRET"`
	RedirectURL       string        `yaml:"redirect_url" env:"CAPGATE_REDIRECT_URL"`
	Scopes            []string      `yaml:"scopes" env:"CAPGATE_SCOPES" envSeparator:","`
	ProviderCAFile    string        `yaml:"provider_ca_file" env:"CAPGATE_PROVIDER_CA_FILE"`
	ProviderTimeout   time.Duration `yaml:"provider_timeout" env:"CAPGATE_PROVIDER_TIMEOUT"`
	LoginPath         string        `yaml:"login_path" env:"CAPGATE_LOGIN_PATH"`
	LandingPath       string        `yaml:"landing_path" env:"CAPGATE_LANDING_PATH"`
	SessionSecret     string        `yaml:"session_secret" env:"CAPGATE_SESSION_SECRET"`
	SecureCookies     bool          `yaml:"secure_cookies" env:"CAPGATE_SECURE_COOKIES"`
	TrustProxyHeaders bool          `yaml:"trust_proxy_headers" env:"CAPGATE_TRUST_PROXY_HEADERS"`
	LogLevel          string        `yaml:"log_level" env:"CAPGATE_LOG_LEVEL"`
}

func defaultConfig() Config {
	return Config{
		ListenAddr:      "127.0.0.1:3000",
		ProviderTimeout: 10 * time.Second,
		LoginPath:       gate.DefaultLoginPath,
		LandingPath:     gate.DefaultLandingPath,
		LogLevel:        "info",
	}
}

// LoadConfig reads the YAML file at path (if any) over the defaults, then
// applies environment overrides.  A nil environ means the process
// environment.
func LoadConfig(path string, environ map[string]string) (Config, error) {
	const op = "LoadConfig"
	cfg := defaultConfig()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("%s: read config: %w", op, err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(b))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("%s: parse config %s: %w", op, path, err)
		}
	}

	var err error
	if environ == nil {
		err = env.Parse(&cfg)
	} else {
		err = env.ParseWithOptions(&cfg, env.Options{Environment: environ})
	}
	if err != nil {
		return Config{}, fmt.Errorf("%s: environment: %w", op, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", op, err)
	}
	return cfg, nil
}

// Validate reports every problem with the config.
func (c Config) Validate() error {
	var result *multierror.Error
	required := map[string]string{
		"issuer":        c.Issuer,
		"client_id":     c.ClientID,
		"client_secret": c.ClientSecret,
		"redirect_url":  c.RedirectURL,
		"listen_addr":   c.ListenAddr,
	}
	for _, name := range []string{"issuer", "client_id", "client_secret", "redirect_url", "listen_addr"} {
		if required[name] == "" {
			result = multierror.Append(result, fmt.Errorf("%s is required", name))
		}
	}
	if len(c.SessionSecret) < session.MinSecretLength {
		result = multierror.Append(result, fmt.Errorf("session_secret must be at least %d characters", session.MinSecretLength))
	}
	if c.ProviderTimeout <= 0 {
		result = multierror.Append(result, errors.New("provider_timeout must be positive"))
	}
	if hclog.LevelFromString(c.LogLevel) == hclog.NoLevel {
		result = multierror.Append(result, fmt.Errorf("log_level %q is unknown", c.LogLevel))
	}
	return result.ErrorOrNil()
}
