// Package config loads the YAML configuration of the apiform server.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    Server    `yaml:"server"`
	Log       Log       `yaml:"log"`
	Telemetry Telemetry `yaml:"telemetry"`
	Metrics   Metrics   `yaml:"metrics"`
	Schema    Schema    `yaml:"schema"`
	Auth      Auth      `yaml:"auth"`
}

type Server struct {
	Addr            string        `yaml:"addr"`
	Timeout         time.Duration `yaml:"timeout"`
	Pretty          bool          `yaml:"pretty"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	FieldSpecHeader string        `yaml:"field_spec_header"`
}

type Log struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Telemetry configures OTLP trace export. An empty endpoint disables it.
type Telemetry struct {
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	ServiceName  string `yaml:"service_name"`
}

type Metrics struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Schema lists SDL files loaded on top of the built-in API.
type Schema struct {
	Files []string `yaml:"files"`
}

// Auth maps bearer credentials to the identity and scopes they grant.
type Auth struct {
	Tokens map[string]Token `yaml:"tokens"`
}

type Token struct {
	Identity string   `yaml:"identity"`
	Scopes   []string `yaml:"scopes"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Server: Server{
			Addr:            ":8080",
			Timeout:         30 * time.Second,
			MaxBodyBytes:    1 << 20,
			FieldSpecHeader: "X-Field-Spec",
		},
		Log:       Log{Level: "info"},
		Telemetry: Telemetry{ServiceName: "apiform"},
		Metrics:   Metrics{Enabled: true, Path: "/metrics"},
	}
}

// Load reads path over Default and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Server.Timeout < 0 {
		errs = append(errs, errors.New("server.timeout must not be negative"))
	}
	if c.Server.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("server.max_body_bytes must be positive"))
	}
	if c.Server.FieldSpecHeader == "" {
		errs = append(errs, errors.New("server.field_spec_header is required"))
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		errs = append(errs, errors.New("metrics.path must start with /"))
	}
	if c.Telemetry.OTLPEndpoint != "" && c.Telemetry.ServiceName == "" {
		errs = append(errs, errors.New("telemetry.service_name is required with an endpoint"))
	}
	for _, f := range c.Schema.Files {
		if strings.TrimSpace(f) == "" {
			errs = append(errs, errors.New("schema.files must not contain empty paths"))
			break
		}
	}
	for cred, tok := range c.Auth.Tokens {
		if strings.TrimSpace(cred) == "" || tok.Identity == "" {
			errs = append(errs, errors.New("auth.tokens entries need a credential and an identity"))
			break
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
