package config

import (
	"os"
	"testing"
)

func TestLoad(t *testing.T) {
	// Create a temporary config file
	configContent := `
server:
  port: 9090
minio:
  endpoint: "localhost:9000"
  access_key: "minioadmin"
  secret_key: "minioadmin"
  bucket: "test-bucket"
  use_ssl: false
  expire_days: 14
zapsign:
  api_url: "https://api.zapsign.test"
  api_token: "test-token"
  webhook_secret: "test-seed"
gemini:
  api_key: "test-gemini-key"
  model: "gemini-2.0-flash"
  max_text_length: 10000
analysis:
  primary_timeout_seconds: 10
  secondary_timeout_seconds: 60
auth:
  jwt_secret: "test-secret"
  token_expire_hours: 48
log:
  level: "debug"
  format: "json"
users:
  - username: "testuser"
    password: "testpass"
    company: "testcompany"
`
	tmpFile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.WriteString(configContent); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	tmpFile.Close()

	// Test loading config
	cfg, err := Load(tmpFile.Name())
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	// Verify values
	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Minio.Endpoint != "localhost:9000" {
		t.Errorf("Expected endpoint localhost:9000, got %s", cfg.Minio.Endpoint)
	}
	if cfg.Minio.ExpireDays != 14 {
		t.Errorf("Expected expire_days 14, got %d", cfg.Minio.ExpireDays)
	}
	if cfg.ZapSign.APIURL != "https://api.zapsign.test" {
		t.Errorf("Expected zapsign api_url https://api.zapsign.test, got %s", cfg.ZapSign.APIURL)
	}
	if cfg.ZapSign.WebhookSecret != "test-seed" {
		t.Errorf("Expected webhook_secret test-seed, got %s", cfg.ZapSign.WebhookSecret)
	}
	if cfg.Gemini.APIKey != "test-gemini-key" {
		t.Errorf("Expected gemini api_key test-gemini-key, got %s", cfg.Gemini.APIKey)
	}
	if cfg.Analysis.PrimaryTimeoutSeconds != 10 {
		t.Errorf("Expected primary_timeout_seconds 10, got %d", cfg.Analysis.PrimaryTimeoutSeconds)
	}
	if cfg.Auth.TokenExpireHours != 48 {
		t.Errorf("Expected token_expire_hours 48, got %d", cfg.Auth.TokenExpireHours)
	}
	if len(cfg.Users) != 1 {
		t.Fatalf("Expected 1 user, got %d", len(cfg.Users))
	}
	if cfg.Users[0].Company != "testcompany" {
		t.Errorf("Expected company testcompany, got %s", cfg.Users[0].Company)
	}
}

func TestLoadDefaults(t *testing.T) {
	configContent := `
minio:
  endpoint: "localhost:9000"
`
	tmpFile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.WriteString(configContent); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	tmpFile.Close()

	cfg, err := Load(tmpFile.Name())
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Minio.ExpireDays != 7 {
		t.Errorf("Expected default expire_days 7, got %d", cfg.Minio.ExpireDays)
	}
	if cfg.Auth.TokenExpireHours != 24 {
		t.Errorf("Expected default token_expire_hours 24, got %d", cfg.Auth.TokenExpireHours)
	}
	if cfg.ZapSign.APIURL != "https://sandbox.api.zapsign.com.br" {
		t.Errorf("Expected default zapsign api_url, got %s", cfg.ZapSign.APIURL)
	}
	if cfg.Gemini.Model != "gemini-2.0-flash" {
		t.Errorf("Expected default gemini model, got %s", cfg.Gemini.Model)
	}
	if cfg.Analysis.PrimaryTimeoutSeconds != 30 {
		t.Errorf("Expected default primary timeout 30, got %d", cfg.Analysis.PrimaryTimeoutSeconds)
	}
	if cfg.Analysis.SecondaryTimeoutSeconds != 120 {
		t.Errorf("Expected default secondary timeout 120, got %d", cfg.Analysis.SecondaryTimeoutSeconds)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	configContent := `
gemini:
  api_key: "from-file"
zapsign:
  api_token: "from-file"
`
	tmpFile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.WriteString(configContent); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	tmpFile.Close()

	t.Setenv("GEMINI_API_KEY", "from-env")
	t.Setenv("ZAPSIGN_API_TOKEN", "token-from-env")

	cfg, err := Load(tmpFile.Name())
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Gemini.APIKey != "from-env" {
		t.Errorf("Expected env override from-env, got %s", cfg.Gemini.APIKey)
	}
	if cfg.ZapSign.APIToken != "token-from-env" {
		t.Errorf("Expected env override token-from-env, got %s", cfg.ZapSign.APIToken)
	}
}

func TestLoadNonExistentFile(t *testing.T) {
	_, err := Load("/non/existent/path.yaml")
	if err == nil {
		t.Error("Expected error for non-existent file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.WriteString("not: [valid: yaml"); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	tmpFile.Close()

	if _, err := Load(tmpFile.Name()); err == nil {
		t.Error("Expected error for invalid YAML")
	}
}

func TestFindUser(t *testing.T) {
	cfg := &Config{
		Users: []User{
			{Username: "alice", Password: "pw1", Company: "acme"},
			{Username: "bob", Password: "pw2", Company: "globex"},
		},
	}

	user := cfg.FindUser("alice")
	if user == nil {
		t.Fatal("Expected to find user alice")
	}
	if user.Company != "acme" {
		t.Errorf("Expected company acme, got %s", user.Company)
	}

	if cfg.FindUser("nobody") != nil {
		t.Error("Expected nil for unknown user")
	}
}
