package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// CheckType names one of the supported probe kinds.
type CheckType string

const (
	CheckHTTP CheckType = "HTTP"
	CheckTCP  CheckType = "TCP"
	CheckDNS  CheckType = "DNS"
	CheckTLS  CheckType = "TLS"
)

// ParseCheckType accepts any casing, and "ssl" as an alias of TLS.
func ParseCheckType(s string) (CheckType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "HTTP":
		return CheckHTTP, nil
	case "TCP":
		return CheckTCP, nil
	case "DNS":
		return CheckDNS, nil
	case "TLS", "SSL":
		return CheckTLS, nil
	default:
		return "", fmt.Errorf("invalid check type %q (must be HTTP, TCP, DNS, or TLS)", s)
	}
}

// Duration is a time.Duration that unmarshals from a string like "30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	if s == "" {
		d.Duration = 0
		return nil
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: invalid duration %q: %w", value.Line, s, err)
	}
	if dur < 0 {
		return fmt.Errorf("line %d: negative duration %q", value.Line, s)
	}
	d.Duration = dur
	return nil
}

// Check configures one probe of a service.
type Check struct {
	Type            CheckType `yaml:"check_type" json:"check_type"`
	IntervalSeconds uint      `yaml:"interval_seconds" json:"interval_seconds"`
	TimeoutMs       uint      `yaml:"timeout_ms" json:"timeout_ms"`
}

// Interval is the pause between two probes.
func (c Check) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// Timeout bounds a single probe.
func (c Check) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// Service describes a single monitored endpoint.
type Service struct {
	Name   string  `yaml:"name" json:"name"`
	URL    string  `yaml:"url" json:"url"`
	Checks []Check `yaml:"checks" json:"checks"`
}

// WebhookConfig holds alert webhook settings.
type WebhookConfig struct {
	URL      string   `yaml:"url"`
	Cooldown Duration `yaml:"cooldown"`
}

// AlertsConfig holds all alert configuration.
type AlertsConfig struct {
	Webhook WebhookConfig `yaml:"webhook"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// Config is the root application configuration.
type Config struct {
	Services []Service    `yaml:"services"`
	Alerts   AlertsConfig `yaml:"alerts"`
	Server   ServerConfig `yaml:"server"`
	Log      LogConfig    `yaml:"log"`
}

const (
	DefaultIntervalSeconds = 30
	DefaultTimeoutMs       = 5000
	DefaultAddress         = ":3000"
)

var (
	validLevels  = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validFormats = map[string]bool{"text": true, "json": true}
)

// Load reads, parses, and validates the config file at path. Both YAML and
// JSON documents are accepted.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return Parse(data)
}

// Parse validates a config document and applies defaults.
func Parse(data []byte) (*Config, error) {
	// Check types are decoded as plain strings first so a bad
	// value is reported against its service instead of as a YAML error.
	type rawCheck struct {
		Type            string `yaml:"check_type"`
		IntervalSeconds uint   `yaml:"interval_seconds"`
		TimeoutMs       uint   `yaml:"timeout_ms"`
	}
	type rawService struct {
		Name   string     `yaml:"name"`
		URL    string     `yaml:"url"`
		Checks []rawCheck `yaml:"checks"`
	}
	type rawAlerts struct {
		Webhook struct {
			URL      string   `yaml:"url"`
			Cooldown Duration `yaml:"cooldown"`
		} `yaml:"webhook"`
	}
	type rawConfig struct {
		Services []rawService `yaml:"services"`
		Alerts   rawAlerts    `yaml:"alerts"`
		Server   ServerConfig `yaml:"server"`
		Log      LogConfig    `yaml:"log"`
	}

	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	// Apply defaults.
	if raw.Server.Address == "" {
		raw.Server.Address = DefaultAddress
	}
	if raw.Log.Level == "" {
		raw.Log.Level = "info"
	}
	if raw.Log.Format == "" {
		raw.Log.Format = "text"
	}
	raw.Log.Level = strings.ToLower(raw.Log.Level)
	raw.Log.Format = strings.ToLower(raw.Log.Format)

	if !validLevels[raw.Log.Level] {
		return nil, fmt.Errorf("log: invalid level %q (must be debug, info, warn, or error)", raw.Log.Level)
	}
	if !validFormats[raw.Log.Format] {
		return nil, fmt.Errorf("log: invalid format %q (must be text or json)", raw.Log.Format)
	}

	if len(raw.Services) == 0 {
		return nil, fmt.Errorf("at least one service must be configured")
	}

	cfg := &Config{
		Server: raw.Server,
		Log:    raw.Log,
	}

	cfg.Alerts.Webhook.URL = raw.Alerts.Webhook.URL
	cfg.Alerts.Webhook.Cooldown = raw.Alerts.Webhook.Cooldown

	names := make(map[string]bool, len(raw.Services))
	for i, rs := range raw.Services {
		if rs.Name == "" {
			return nil, fmt.Errorf("service[%d]: name is required", i)
		}
		if names[rs.Name] {
			return nil, fmt.Errorf("duplicate service name %q", rs.Name)
		}
		names[rs.Name] = true

		if rs.URL == "" {
			return nil, fmt.Errorf("service %q: url is required", rs.Name)
		}
		if len(rs.Checks) == 0 {
			return nil, fmt.Errorf("service %q: at least one check is required", rs.Name)
		}

		svc := Service{Name: rs.Name, URL: rs.URL}
		seen := make(map[CheckType]bool, len(rs.Checks))
		for _, rc := range rs.Checks {
			ct, err := ParseCheckType(rc.Type)
			if err != nil {
				return nil, fmt.Errorf("service %q: %w", rs.Name, err)
			}
			if seen[ct] {
				return nil, fmt.Errorf("service %q: duplicate %s check", rs.Name, ct)
			}
			seen[ct] = true

			chk := Check{
				Type:            ct,
				IntervalSeconds: rc.IntervalSeconds,
				TimeoutMs:       rc.TimeoutMs,
			}
			if chk.IntervalSeconds == 0 {
				chk.IntervalSeconds = DefaultIntervalSeconds
			}
			if chk.TimeoutMs == 0 {
				chk.TimeoutMs = DefaultTimeoutMs
			}
			svc.Checks = append(svc.Checks, chk)
		}

		cfg.Services = append(cfg.Services, svc)
	}

	return cfg, nil
}
