package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		ID  string `yaml:"id"`
		TTL string `yaml:"ttl"`
	} `yaml:"quiz"`
	Telemetry struct {
		URL          string `yaml:"url"`
		ReconnectMin string `yaml:"reconnect_min"`
		ReconnectMax string `yaml:"reconnect_max"`
		SendBuffer   int    `yaml:"send_buffer"`
	} `yaml:"telemetry"`
	Capture struct {
		Device   string `yaml:"device"`
		Interval string `yaml:"interval"`
	} `yaml:"capture"`
	Alerts struct {
		Lifetime      string `yaml:"lifetime"`
		RelayLifetime string `yaml:"relay_lifetime"`
	} `yaml:"alerts"`
	Results struct {
		TTL string `yaml:"ttl"`
	} `yaml:"results"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Load reads YAML config from path. A missing file yields the zero config so
// the service can start on defaults.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Duration parses a duration string or returns the fallback if empty or invalid.
func Duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	return fallback
}
