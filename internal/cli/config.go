package cli

import (
	"encoding/base64"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ai8future/encdoc"
)

// Config is the YAML configuration of the encdoc CLI.
//
//	default_key_id: v2
//	keys:
//	  v1: <base64url 32-byte master key>
//	  v2: <base64url 32-byte master key>
//	indexes:
//	  - attributes: [email]
//	    unique: true
//	    normalizer: email
//	  - attributes: [tag, category]
//	  - has: tag
//	format: json
type Config struct {
	DefaultKeyID string            `yaml:"default_key_id"`
	Keys         map[string]string `yaml:"keys"`
	Indexes      []IndexConfig     `yaml:"indexes"`
	Format       string            `yaml:"format"`
}

// IndexConfig declares one index. Set either Attributes or Has.
type IndexConfig struct {
	Attributes []string `yaml:"attributes,omitempty"`
	Unique     bool     `yaml:"unique,omitempty"`
	Normalizer string   `yaml:"normalizer,omitempty"`
	Has        string   `yaml:"has,omitempty"`
}

// LoadConfig reads and validates a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses and validates YAML config data.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the config for missing or inconsistent fields.
func (c *Config) Validate() error {
	if len(c.Keys) == 0 {
		return fmt.Errorf("config: no keys")
	}
	if c.DefaultKeyID == "" {
		if len(c.Keys) != 1 {
			return fmt.Errorf("config: default_key_id is required with more than one key")
		}
		for id := range c.Keys {
			c.DefaultKeyID = id
		}
	}
	if _, ok := c.Keys[c.DefaultKeyID]; !ok {
		return fmt.Errorf("config: default_key_id %q is not in keys", c.DefaultKeyID)
	}
	for i, idx := range c.Indexes {
		switch {
		case idx.Has != "" && len(idx.Attributes) > 0:
			return fmt.Errorf("config: indexes[%d]: set either attributes or has", i)
		case idx.Has == "" && len(idx.Attributes) == 0:
			return fmt.Errorf("config: indexes[%d]: attributes or has is required", i)
		}
		if _, ok := encdoc.NormalizerByName(idx.Normalizer); !ok {
			return fmt.Errorf("config: indexes[%d]: unknown normalizer %q", i, idx.Normalizer)
		}
	}
	if _, err := encdoc.ParseFormat(c.Format); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// KeyProvider decodes the configured master keys.
func (c *Config) KeyProvider() (*encdoc.StaticKeyProvider, error) {
	keys := make(map[string][]byte, len(c.Keys))
	for id, encoded := range c.Keys {
		key, err := base64.RawURLEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("config: key %q: %w", id, err)
		}
		keys[id] = key
	}
	return encdoc.NewStaticKeyProvider(c.DefaultKeyID, keys), nil
}

// Register ensures every configured index on the codec.
func (c *Config) Register(codec *encdoc.Codec) error {
	for i, idx := range c.Indexes {
		var err error
		if idx.Has != "" {
			_, err = codec.EnsureHasIndex(idx.Has)
		} else {
			norm, _ := encdoc.NormalizerByName(idx.Normalizer)
			_, err = codec.EnsureIndex(idx.Attributes, idx.Unique, encdoc.WithNormalizer(norm))
		}
		if err != nil {
			return fmt.Errorf("config: indexes[%d]: %w", i, err)
		}
	}
	return nil
}
