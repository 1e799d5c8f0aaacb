package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/renewer/internal/settings"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Vault   VaultConfig       `yaml:"vault"`
	SQLite  SQLiteConfig      `yaml:"sqlite"`
	Auth    AuthConfig        `yaml:"auth"`
	Relink  RelinkConfig      `yaml:"relink"`
	Summary SummaryConfig     `yaml:"summary"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Relink.Validate(); err != nil {
		return err
	}
	return c.Summary.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// VaultConfig holds the path to the Markdown vault directory.
type VaultConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// RelinkConfig tunes the link rewriter.
type RelinkConfig struct {
	Workers             int           `yaml:"workers"`
	RenameDelay         time.Duration `yaml:"rename_delay"`
	LocalizeAttachments bool          `yaml:"localize_attachments"`
	EmbedWidth          int           `yaml:"embed_width"`
	RepairBacklinks     bool          `yaml:"repair_backlinks"`
}

// Validate validates the relink configuration.
func (c *RelinkConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Workers, validation.Required, validation.Min(1), validation.Max(256)),
		validation.Field(&c.RenameDelay, validation.Min(time.Duration(0)), validation.Max(time.Minute)),
		validation.Field(&c.EmbedWidth, validation.Min(0)),
	)
}

// SummaryConfig configures the summary requester.
//
// WebhookURL seeds the stored webhook setting when none is saved yet.
// RateLimit is the maximum number of webhook requests per minute; 0 disables it.
// PublicURL is the base address result pages are served under; empty means
// the local HTTP address.
type SummaryConfig struct {
	WebhookURL string        `yaml:"webhook_url"`
	Timeout    time.Duration `yaml:"timeout"`
	RateLimit  int           `yaml:"rate_limit"`
	PublicURL  string        `yaml:"public_url"`
}

// Validate validates the summary configuration.
func (c *SummaryConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
		validation.Field(&c.RateLimit, validation.Min(0)),
	); err != nil {
		return err
	}
	if c.WebhookURL != "" {
		v, err := settings.NormalizeWebhookURL(c.WebhookURL)
		if err != nil {
			return fmt.Errorf("summary: %w", err)
		}
		c.WebhookURL = v
	}
	return nil
}

// BaseURL returns the address result pages are served under.
func (c *Config) BaseURL() string {
	if c.Summary.PublicURL != "" {
		return c.Summary.PublicURL
	}
	return fmt.Sprintf("http://localhost:%d", c.App.HTTP.Port)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Vault: VaultConfig{
			Path: "./vault",
		},
		SQLite: SQLiteConfig{
			Path: "./renewer.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Relink: RelinkConfig{
			Workers:             8,
			RenameDelay:         100 * time.Millisecond,
			LocalizeAttachments: true,
			EmbedWidth:          400,
			RepairBacklinks:     true,
		},
		Summary: SummaryConfig{
			Timeout: 2 * time.Minute,
		},
	}
}
