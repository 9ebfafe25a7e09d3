// Package config loads application configuration.
//
// Configuration is layered with koanf, highest priority last:
//
//  1. struct defaults (defaultConfig)
//  2. an optional config.yaml next to the binary or under /etc/sociable
//  3. environment variables with the SOCIABLE_ prefix
//
// Env names map to config paths by lowercasing and splitting on the first
// underscore-pair boundary, e.g. SOCIABLE_HTTP_PORT -> http.port,
// SOCIABLE_SMTP_HOST -> smtp.host.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// envPrefix namespaces this app's environment variables.
const envPrefix = "SOCIABLE_"

// defaultConfigPaths are searched in order; the first file found is used.
var defaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/sociable/config.yaml",
}

type Config struct {
	HTTP       HTTPConfig       `koanf:"http"`
	DB         DBConfig         `koanf:"db"`
	Auth       AuthConfig       `koanf:"auth"`
	SMTP       SMTPConfig       `koanf:"smtp"`
	Cloudinary CloudinaryConfig `koanf:"cloudinary"`
}

type HTTPConfig struct {
	Port int `koanf:"port"`
	// Origins allowed to make credentialed CORS requests (the frontend).
	AllowedOrigins []string `koanf:"allowed_origins"`
	// PublicOrigin is the externally visible base URL used in the
	// verification and password-reset links sent by email.
	PublicOrigin string `koanf:"public_origin"`
}

type DBConfig struct {
	Path string `koanf:"path"`
}

type AuthConfig struct {
	// JWTSecret signs session tokens. Must be at least 16 characters;
	// generate with: openssl rand -hex 32
	JWTSecret string `koanf:"jwt_secret"`
	// BcryptCost is the bcrypt work factor. Tests lower it to the minimum.
	BcryptCost int `koanf:"bcrypt_cost"`
	// DefaultAvatar is assigned as the profile picture at signup.
	DefaultAvatar string `koanf:"default_avatar"`
}

type SMTPConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	From     string `koanf:"from"`
}

type CloudinaryConfig struct {
	CloudName string `koanf:"cloud_name"`
	APIKey    string `koanf:"api_key"`
	APISecret string `koanf:"api_secret"`
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Port:           4000,
			AllowedOrigins: []string{"http://localhost:5000"},
			PublicOrigin:   "http://localhost:5000",
		},
		DB: DBConfig{
			Path: "data/sociable.db",
		},
		Auth: AuthConfig{
			BcryptCost:    12,
			DefaultAvatar: "https://res.cloudinary.com/demo/image/upload/default_avatar.png",
		},
		SMTP: SMTPConfig{
			Port: 2525,
			From: "info@sociable.local",
		},
	}
}

// Load builds the Config from defaults, an optional yaml file, and the
// environment, then validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("config: loading defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: loading %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("config: loading environment: %w", err)
	}

	// Env vars arrive as plain strings; allowed_origins is a slice field.
	// Split the comma-separated form before unmarshalling:
	// SOCIABLE_HTTP_ALLOWED_ORIGINS=http://a.com,http://b.com
	if raw, ok := k.Get("http.allowed_origins").(string); ok {
		var origins []string
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				origins = append(origins, p)
			}
		}
		if err := k.Set("http.allowed_origins", origins); err != nil {
			return nil, fmt.Errorf("config: normalising origins: %w", err)
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshalling: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the invariants startup depends on. SMTP and Cloudinary
// credentials are allowed to be empty — the server degrades to no-op
// adapters so local development works without external accounts.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("config: http.port %d out of range", c.HTTP.Port)
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("config: auth.jwt_secret must be at least 16 characters")
	}
	if c.DB.Path == "" {
		return fmt.Errorf("config: db.path must not be empty")
	}
	return nil
}

func findConfigFile() string {
	if p := os.Getenv(envPrefix + "CONFIG"); p != "" {
		return p
	}
	for _, p := range defaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// envTransform maps SOCIABLE_SMTP_HOST to smtp.host: strip the prefix,
// lowercase, and turn the first underscore into the section separator.
func envTransform(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	return strings.Replace(s, "_", ".", 1)
}
