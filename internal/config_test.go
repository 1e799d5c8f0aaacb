package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/renewer/pkg/config"
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
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Relink.RenameDelay != 100*time.Millisecond {
		t.Errorf("rename delay = %v", cfg.Relink.RenameDelay)
	}
	if cfg.BaseURL() != "http://localhost:8080" {
		t.Errorf("base url = %q", cfg.BaseURL())
	}
}

func TestRelinkConfig_Invalid(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Relink.Workers = 0
	if err := cfg.Validate(); err == nil {
		t.Error("zero workers should fail validation")
	}

	cfg = NewDefaultConfig()
	cfg.Relink.RenameDelay = -time.Second
	if err := cfg.Validate(); err == nil {
		t.Error("negative rename delay should fail validation")
	}
}

func TestSummaryConfig_WebhookURL(t *testing.T) {
	cfg := SummaryConfig{WebhookURL: "  https://hooks.example.com/x "}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid webhook: %v", err)
	}
	if cfg.WebhookURL != "https://hooks.example.com/x" {
		t.Errorf("webhook = %q, want trimmed", cfg.WebhookURL)
	}

	cfg = SummaryConfig{WebhookURL: "relative/path"}
	if err := cfg.Validate(); err == nil {
		t.Error("relative webhook url should fail validation")
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	t.Setenv("RENEWER_TEST_VAULT", "/tmp/vault")
	yml := `
vault:
  path: ${RENEWER_TEST_VAULT}
relink:
  workers: 2
  rename_delay: 250ms
  localize_attachments: false
summary:
  rate_limit: 10
  public_url: https://renewer.example.com
`
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := config.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Vault.Path != "/tmp/vault" {
		t.Errorf("vault = %q", cfg.Vault.Path)
	}
	if cfg.Relink.Workers != 2 || cfg.Relink.RenameDelay != 250*time.Millisecond || cfg.Relink.LocalizeAttachments {
		t.Errorf("relink = %+v", cfg.Relink)
	}
	if cfg.Relink.EmbedWidth != 400 {
		t.Errorf("embed width default lost: %d", cfg.Relink.EmbedWidth)
	}
	if cfg.BaseURL() != "https://renewer.example.com" {
		t.Errorf("base url = %q", cfg.BaseURL())
	}
}
