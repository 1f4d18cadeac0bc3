// Package config loads the accountsd configuration from a TOML file,
// environment overrides and defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/crypto/bcrypt"
)

const envPrefix = "ACCOUNTS_"

// Config is the complete server configuration
type Config struct {
	Server   Server   `toml:"server"`
	Database Database `toml:"database"`
	Auth     Auth     `toml:"auth"`
	Security Security `toml:"security"`
	Accounts Accounts `toml:"accounts"`
	Log      Log      `toml:"log"`
}

// Server holds the HTTP listener settings
type Server struct {
	Address         string   `toml:"address"`
	ClientURL       string   `toml:"client_url"`
	ReadTimeout     Duration `toml:"read_timeout"`
	WriteTimeout    Duration `toml:"write_timeout"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
	Debug           bool     `toml:"debug"`
}

// Database selects the store backend
type Database struct {
	Driver string `toml:"driver"`
	DSN    string `toml:"dsn"`
	Debug  bool   `toml:"debug"`
}

// Auth holds session token settings. TokenExpiration is in hours.
type Auth struct {
	SigningKey      string   `toml:"signing_key"`
	Issuer          string   `toml:"issuer"`
	Audience        []string `toml:"audience"`
	TokenExpiration int      `toml:"token_expiration"`
	AuthScheme      string   `toml:"auth_scheme"`
	TokenHeader     string   `toml:"token_header"`
}

// Security holds password hashing settings
type Security struct {
	BcryptCost int `toml:"bcrypt_cost"`
}

// Accounts holds lifecycle settings
type Accounts struct {
	StrictTransitions bool `toml:"strict_transitions"`
	// DeterministicIDs reuses the same id when a deleted email registers again
	DeterministicIDs bool `toml:"deterministic_ids"`
}

// Log holds logger settings
type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Duration decodes TOML strings such as "15s"
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns a configuration usable for local development
func Default() *Config {
	return &Config{
		Server: Server{
			Address:         ":8080",
			ClientURL:       "http://localhost:5173",
			ReadTimeout:     Duration{10 * time.Second},
			WriteTimeout:    Duration{10 * time.Second},
			ShutdownTimeout: Duration{5 * time.Second},
		},
		Database: Database{
			Driver: "sqlite",
			DSN:    "file:accounts.db?cache=shared",
		},
		Auth: Auth{
			Issuer:          "go-accounts",
			Audience:        []string{"go-accounts"},
			TokenExpiration: 24,
			AuthScheme:      "Bearer",
			TokenHeader:     "Authorization",
		},
		Security: Security{
			BcryptCost: bcrypt.DefaultCost,
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode TOML file %s: %w", path, err)
		}
	}

	if err := cfg.ApplyEnvOverrides(); err != nil {
		return nil, err
	}

	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SetDefaults fills zero values left by a partial file
func (c *Config) SetDefaults() {
	d := Default()

	if c.Server.Address == "" {
		c.Server.Address = d.Server.Address
	}
	if c.Server.ReadTimeout.Duration == 0 {
		c.Server.ReadTimeout = d.Server.ReadTimeout
	}
	if c.Server.WriteTimeout.Duration == 0 {
		c.Server.WriteTimeout = d.Server.WriteTimeout
	}
	if c.Server.ShutdownTimeout.Duration == 0 {
		c.Server.ShutdownTimeout = d.Server.ShutdownTimeout
	}
	if c.Database.Driver == "" {
		c.Database.Driver = d.Database.Driver
	}
	if c.Database.DSN == "" && c.Database.Driver == d.Database.Driver {
		c.Database.DSN = d.Database.DSN
	}
	if c.Auth.TokenExpiration == 0 {
		c.Auth.TokenExpiration = d.Auth.TokenExpiration
	}
	if c.Auth.AuthScheme == "" {
		c.Auth.AuthScheme = d.Auth.AuthScheme
	}
	if c.Auth.TokenHeader == "" {
		c.Auth.TokenHeader = d.Auth.TokenHeader
	}
	if c.Security.BcryptCost == 0 {
		c.Security.BcryptCost = d.Security.BcryptCost
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
}

// ApplyEnvOverrides overrides values from ACCOUNTS_* environment variables
func (c *Config) ApplyEnvOverrides() error {
	if v, ok := lookupEnv("SERVER_ADDRESS"); ok {
		c.Server.Address = v
	}
	if v, ok := lookupEnv("CLIENT_URL"); ok {
		c.Server.ClientURL = v
	}
	if v, ok := lookupEnv("DATABASE_DRIVER"); ok {
		c.Database.Driver = strings.ToLower(v)
	}
	if v, ok := lookupEnv("DATABASE_DSN"); ok {
		c.Database.DSN = v
	}
	if v, ok := lookupEnv("SIGNING_KEY"); ok {
		c.Auth.SigningKey = v
	}
	if v, ok := lookupEnv("ISSUER"); ok {
		c.Auth.Issuer = v
	}
	if v, ok := lookupEnv("AUDIENCE"); ok {
		c.Auth.Audience = splitList(v)
	}
	if v, ok := lookupEnv("LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	if v, ok := lookupEnv("LOG_FORMAT"); ok {
		c.Log.Format = v
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"TOKEN_EXPIRATION", &c.Auth.TokenExpiration},
		{"BCRYPT_COST", &c.Security.BcryptCost},
	}
	for _, item := range ints {
		v, ok := lookupEnv(item.key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, item.key, err)
		}
		*item.dst = n
	}

	bools := []struct {
		key string
		dst *bool
	}{
		{"DATABASE_DEBUG", &c.Database.Debug},
		{"SERVER_DEBUG", &c.Server.Debug},
		{"STRICT_TRANSITIONS", &c.Accounts.StrictTransitions},
		{"DETERMINISTIC_IDS", &c.Accounts.DeterministicIDs},
	}
	for _, item := range bools {
		v, ok := lookupEnv(item.key)
		if !ok {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, item.key, err)
		}
		*item.dst = b
	}

	return nil
}

func lookupEnv(key string) (string, bool) {
	v, ok := os.LookupEnv(envPrefix + key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, ValidationError{
			Field:   "database.driver",
			Message: fmt.Sprintf("invalid driver '%s', must be one of: sqlite, postgres", c.Database.Driver),
		})
	}

	if c.Database.DSN == "" {
		errs = append(errs, ValidationError{Field: "database.dsn", Message: "must not be empty"})
	}

	if len(c.Auth.SigningKey) < 32 {
		errs = append(errs, ValidationError{
			Field:   "auth.signing_key",
			Message: "must be at least 32 characters",
		})
	}

	if c.Auth.TokenExpiration <= 0 {
		errs = append(errs, ValidationError{Field: "auth.token_expiration", Message: "must be a positive number of hours"})
	}

	if c.Security.BcryptCost < bcrypt.MinCost || c.Security.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, ValidationError{
			Field:   "security.bcrypt_cost",
			Message: fmt.Sprintf("must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost),
		})
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: debug, info, warn, error", c.Log.Level),
		})
	}

	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, ValidationError{
			Field:   "log.format",
			Message: fmt.Sprintf("invalid format '%s', must be one of: text, json", c.Log.Format),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (a Auth) GetSigningKey() string   { return a.SigningKey }
func (a Auth) GetTokenExpiration() int { return a.TokenExpiration }
func (a Auth) GetIssuer() string       { return a.Issuer }
func (a Auth) GetAudience() []string   { return a.Audience }
func (a Auth) GetAuthScheme() string   { return a.AuthScheme }
func (a Auth) GetTokenHeader() string  { return a.TokenHeader }
