package internal

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/notex/internal/models"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Workspace WorkspaceConfig   `yaml:"workspace"`
	SQLite    SQLiteConfig      `yaml:"sqlite"`
	Auth      AuthConfig        `yaml:"auth"`
	Timing    TimingConfig      `yaml:"timing"`
	AutoTitle AutoTitleConfig   `yaml:"autotitle"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	sections := []struct {
		name string
		v    validation.Validatable
	}{
		{"app", &c.App},
		{"workspace", &c.Workspace},
		{"sqlite", &c.SQLite},
		{"auth", &c.Auth},
		{"timing", &c.Timing},
		{"autotitle", &c.AutoTitle},
	}
	for _, s := range sections {
		if err := s.v.Validate(); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	return nil
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

// WorkspaceConfig selects the notes directory and the initial list order.
// AppData holds device-local state (pins, preferences).
type WorkspaceConfig struct {
	Root          string `yaml:"root"`
	AppData       string `yaml:"app_data"`
	SortBy        string `yaml:"sort_by"`
	SortDirection string `yaml:"sort_direction"`
}

// Validate validates the workspace configuration.
func (c *WorkspaceConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Root, validation.Required),
		validation.Field(&c.AppData, validation.Required),
		validation.Field(&c.SortBy, validation.In(
			string(models.SortByName), string(models.SortByDate), string(models.SortByModified))),
		validation.Field(&c.SortDirection, validation.In(string(models.SortAsc), string(models.SortDesc))),
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
//   - "disabled" (default): no authentication required, suitable for local use.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
		validation.Field(&c.Token, validation.When(c.Mode == AuthModeToken,
			validation.Required.Error("token is empty while mode is token"))),
	)
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// TimingConfig holds the quiet periods of the debounced components.
type TimingConfig struct {
	WatchQuiet      time.Duration `yaml:"watch_quiet"`
	SearchQuiet     time.Duration `yaml:"search_quiet"`
	AutoTitleDelay  time.Duration `yaml:"autotitle_delay"`
	SavingIndicator time.Duration `yaml:"saving_indicator"`
	SSECoalesce     time.Duration `yaml:"sse_coalesce"`
}

// Validate validates the timing configuration.
func (c *TimingConfig) Validate() error {
	positive := validation.Min(time.Millisecond)
	return validation.ValidateStruct(c,
		validation.Field(&c.WatchQuiet, validation.Required, positive),
		validation.Field(&c.SearchQuiet, validation.Required, positive),
		validation.Field(&c.AutoTitleDelay, validation.Required, positive),
		validation.Field(&c.SavingIndicator, validation.Required, positive),
		validation.Field(&c.SSECoalesce, validation.Required, positive),
	)
}

// AutoTitleConfig controls renaming notes after their first line.
type AutoTitleConfig struct {
	Extensions     []string `yaml:"extensions"`
	MaxLength      int      `yaml:"max_length"`
	DraftMaxLength int      `yaml:"draft_max_length"`
}

// Validate validates the auto-title configuration.
func (c *AutoTitleConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Extensions, validation.Each(validation.By(func(v interface{}) error {
			if s, _ := v.(string); !strings.HasPrefix(s, ".") {
				return fmt.Errorf("extension %q must start with a dot", s)
			}
			return nil
		}))),
		validation.Field(&c.MaxLength, validation.Required, validation.Min(1)),
		validation.Field(&c.DraftMaxLength, validation.Required, validation.Min(1)),
	)
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
		Workspace: WorkspaceConfig{
			Root:          "./notes",
			AppData:       "./.notex",
			SortBy:        string(models.SortByModified),
			SortDirection: string(models.SortDesc),
		},
		SQLite: SQLiteConfig{
			Path: "./.notex/index.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Timing: TimingConfig{
			WatchQuiet:      500 * time.Millisecond,
			SearchQuiet:     200 * time.Millisecond,
			AutoTitleDelay:  time.Second,
			SavingIndicator: 500 * time.Millisecond,
			SSECoalesce:     250 * time.Millisecond,
		},
		AutoTitle: AutoTitleConfig{
			Extensions:     []string{".txt"},
			MaxLength:      50,
			DraftMaxLength: 30,
		},
	}
}
