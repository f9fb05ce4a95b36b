package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	pkgconfig "github.com/starford/notex/pkg/config"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenMode(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}

	cfg.Token = ""
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("empty token error = %v", err)
	}

	if err := (&AuthConfig{Mode: "magic", Token: "x"}).Validate(); err == nil {
		t.Error("invalid mode should fail validation")
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Fatalf("defaults: %v", err)
	}
}

func TestConfigRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"sort key", func(c *Config) { c.Workspace.SortBy = "size" }},
		{"sort direction", func(c *Config) { c.Workspace.SortDirection = "up" }},
		{"empty root", func(c *Config) { c.Workspace.Root = "" }},
		{"zero quiet", func(c *Config) { c.Timing.SearchQuiet = 0 }},
		{"extension without dot", func(c *Config) { c.AutoTitle.Extensions = []string{"txt"} }},
		{"title length", func(c *Config) { c.AutoTitle.MaxLength = 0 }},
		{"port", func(c *Config) { c.App.HTTP.Port = 70000 }},
		{"auth", func(c *Config) { c.Auth.Mode = AuthModeToken }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	t.Setenv("NOTEX_TEST_TOKEN", "s3cret")
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := `
app:
  log_level: debug
  http:
    port: 9090
workspace:
  root: /tmp/notes
  app_data: /tmp/notex
  sort_by: name
  sort_direction: asc
sqlite:
  path: /tmp/notex/index.db
auth:
  mode: token
  token: ${NOTEX_TEST_TOKEN}
timing:
  watch_quiet: 750ms
  search_quiet: 200ms
  autotitle_delay: 2s
  saving_indicator: 500ms
  sse_coalesce: 250ms
autotitle:
  extensions: [".txt", ".md"]
  max_length: 40
  draft_max_length: 20
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	found, err := pkgconfig.LoadOptional(path, cfg)
	if err != nil || !found {
		t.Fatalf("LoadOptional = %v, %v", found, err)
	}
	if cfg.App.HTTP.Port != 9090 || cfg.Auth.Token != "s3cret" {
		t.Errorf("app/auth = %+v %+v", cfg.App, cfg.Auth)
	}
	if cfg.Timing.WatchQuiet != 750*time.Millisecond || cfg.Timing.AutoTitleDelay != 2*time.Second {
		t.Errorf("timing = %+v", cfg.Timing)
	}
	if len(cfg.AutoTitle.Extensions) != 2 || cfg.AutoTitle.MaxLength != 40 {
		t.Errorf("autotitle = %+v", cfg.AutoTitle)
	}
}

func TestLoadOptionalMissingFileKeepsDefaults(t *testing.T) {
	cfg := NewDefaultConfig()
	found, err := pkgconfig.LoadOptional(filepath.Join(t.TempDir(), "absent.yaml"), cfg)
	if err != nil || found {
		t.Fatalf("LoadOptional = %v, %v", found, err)
	}
	if cfg.App.HTTP.Port != 8080 {
		t.Errorf("port = %d", cfg.App.HTTP.Port)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("vault:\n  path: ./vault\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := pkgconfig.Load(path, NewDefaultConfig()); err == nil {
		t.Error("unknown section should be rejected")
	}
}
