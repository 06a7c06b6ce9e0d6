// Package config loads the runner configuration from a YAML file with
// environment-variable overrides for deployment secrets.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full runner configuration.
type Config struct {
	Listen      string        `yaml:"listen"`
	FormPath    string        `yaml:"formPath"`
	DownloadURL string        `yaml:"downloadUrl"`
	Session     SessionConfig `yaml:"session"`
	Uploader    ServiceConfig `yaml:"uploader"`
	Submission  ServiceConfig `yaml:"submission"`
	Notify      NotifyConfig  `yaml:"notify"`
}

type SessionConfig struct {
	// Backend is "memory" or "redis".
	Backend       string        `yaml:"backend"`
	RedisAddress  string        `yaml:"redisAddress"`
	RedisPassword string        `yaml:"redisPassword"`
	RedisDB       int           `yaml:"redisDb"`
	TTL           time.Duration `yaml:"ttl"`

	// EncryptionKey enables at-rest encryption of session answers when
	// set. Base64, must decode to 32 bytes. FallbackKeys keep old
	// ciphertext readable during key rotation.
	EncryptionKey string   `yaml:"encryptionKey"`
	FallbackKeys  []string `yaml:"fallbackKeys"`

	// MaskPatterns are regexes matched against answer keys when store
	// writes are logged at debug level.
	MaskPatterns []string `yaml:"maskPatterns"`
}

type ServiceConfig struct {
	URL string `yaml:"url"`
}

type NotifyConfig struct {
	TemplateID string `yaml:"templateId"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Listen: ":3009",
		Session: SessionConfig{
			Backend: "memory",
			TTL:     24 * time.Hour,
		},
	}
}

// Load reads a YAML configuration file and applies env overrides. A
// missing path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config: %w", err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

// applyEnv lets deployments override addresses and secrets without
// touching the file.
func (c *Config) applyEnv() {
	if v := os.Getenv("ARBOR_LISTEN"); v != "" {
		c.Listen = v
	}
	if v := os.Getenv("ARBOR_REDIS_ADDRESS"); v != "" {
		c.Session.Backend = "redis"
		c.Session.RedisAddress = v
	}
	if v := os.Getenv("ARBOR_REDIS_PASSWORD"); v != "" {
		c.Session.RedisPassword = v
	}
	if v := os.Getenv("ARBOR_SESSION_KEY"); v != "" {
		c.Session.EncryptionKey = v
	}
	if v := os.Getenv("ARBOR_UPLOADER_URL"); v != "" {
		c.Uploader.URL = v
	}
	if v := os.Getenv("ARBOR_SUBMISSION_URL"); v != "" {
		c.Submission.URL = v
	}
	if v := os.Getenv("ARBOR_NOTIFY_TEMPLATE_ID"); v != "" {
		c.Notify.TemplateID = v
	}
}
