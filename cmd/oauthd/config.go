package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oauthcore-oss/oauthcore/grant"
)

// Config is the YAML configuration format for oauthd serve.
type Config struct {
	Issuer  string  `yaml:"issuer"`
	Web     Web     `yaml:"web"`
	Storage Storage `yaml:"storage"`
	OAuth2  OAuth2  `yaml:"oauth2"`
	Expiry  Expiry  `yaml:"expiry"`
	Logger  Logger  `yaml:"logger"`
}

// Web controls the HTTP listener and CORS policy.
type Web struct {
	HTTPAddr       string   `yaml:"http"`
	AllowedOrigins []string `yaml:"allowedOrigins"`
	AllowedHeaders []string `yaml:"allowedHeaders"`
}

// Storage selects and configures the persistence backend.
type Storage struct {
	Type string `yaml:"type"` // "memory", "postgres", "sqlite3"
	DSN  string `yaml:"dsn"`
}

// OAuth2 controls which grants and PKCE methods this deployment accepts.
type OAuth2 struct {
	EnabledGrants struct {
		AuthorizationCode bool `yaml:"authorizationCode"`
		ClientCredentials bool `yaml:"clientCredentials"`
		RefreshToken      bool `yaml:"refreshToken"`
		Password          bool `yaml:"password"`
	} `yaml:"enabledGrants"`
	AllowPlainPKCE bool `yaml:"allowPlainPKCE"`
	// PKCERequiredForPublicClients defaults to true when left unset in
	// the config file; a pointer is needed to tell "absent" apart from
	// an explicit "false".
	PKCERequiredForPublicClients *bool    `yaml:"pkceRequiredForPublicClients"`
	RotateRefresh                bool     `yaml:"rotateRefresh"`
	SupportedScopes              []string `yaml:"supportedScopes"`
	JWTSecret                    string   `yaml:"jwtSecret"`
	OpaqueAccess                 bool     `yaml:"opaqueAccessTokens"`
}

// Expiry controls token and code lifetimes.
type Expiry struct {
	AccessToken  time.Duration `yaml:"accessToken"`
	RefreshToken time.Duration `yaml:"refreshToken"`
	AuthCode     time.Duration `yaml:"authorizationCode"`
}

// Logger controls the process-wide slog handler.
type Logger struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func (c OAuth2) pkceRequiredForPublicClients() bool {
	if c.PKCERequiredForPublicClients == nil {
		return true
	}
	return *c.PKCERequiredForPublicClients
}

func (c OAuth2) enabledGrants() grant.EnabledGrants {
	return grant.EnabledGrants{
		AuthorizationCode: c.EnabledGrants.AuthorizationCode,
		ClientCredentials: c.EnabledGrants.ClientCredentials,
		RefreshToken:      c.EnabledGrants.RefreshToken,
		Password:          c.EnabledGrants.Password,
	}
}

// loadConfig reads and parses a YAML config file, then substitutes any
// "$ENV_VAR"-shaped string field from the process environment.
func loadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if err := replaceEnvKeys(&cfg, os.Getenv); err != nil {
		return Config{}, fmt.Errorf("substitute environment variables: %w", err)
	}

	if cfg.Issuer == "" {
		return Config{}, fmt.Errorf("issuer is required")
	}
	if cfg.Expiry.AuthCode == 0 {
		cfg.Expiry.AuthCode = 600 * time.Second
	}
	return cfg, nil
}
