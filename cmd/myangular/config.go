package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rkurbatov/myangular/pkg/driver"
	"github.com/rkurbatov/myangular/pkg/values"
)

// Config seeds a session from a YAML file: REPL prompt, digest TTL and
// initial root-scope attributes.
type Config struct {
	Prompt  string         `yaml:"prompt"`
	TTL     int            `yaml:"ttl"`
	Context map[string]any `yaml:"context"`
}

func defaultConfig() Config {
	return Config{Prompt: "ng> "}
}

func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("cannot read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("cannot parse config: %w", err)
	}
	if cfg.Prompt == "" {
		cfg.Prompt = "ng> "
	}
	return cfg, nil
}

// apply seeds the session's root scope with the configured context.
func (c Config) apply(session *driver.Session) {
	if c.TTL > 0 {
		session.Root().SetTTL(c.TTL)
	}
	for name, raw := range c.Context {
		session.Root().Set(name, values.Wrap(raw))
	}
}
