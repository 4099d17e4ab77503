package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_FromFile(t *testing.T) {
	configPath := writeConfig(t, "url: https://test.example.com\ntoken: test-token-123\n")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.URL != "https://test.example.com" {
		t.Errorf("expected URL 'https://test.example.com', got '%s'", cfg.URL)
	}
	if cfg.Token != "test-token-123" {
		t.Errorf("expected Token 'test-token-123', got '%s'", cfg.Token)
	}
}

func TestLoad_Defaults(t *testing.T) {
	configPath := writeConfig(t, "url: https://test.example.com\n")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Token != "" {
		t.Errorf("expected empty token, got '%s'", cfg.Token)
	}
	if cfg.PageSize != 9 {
		t.Errorf("expected page size 9, got %d", cfg.PageSize)
	}
	if cfg.WindowSize != 5 {
		t.Errorf("expected window size 5, got %d", cfg.WindowSize)
	}
	if cfg.DefaultSort != "recentes" {
		t.Errorf("expected default sort 'recentes', got '%s'", cfg.DefaultSort)
	}
	if cfg.View != ViewGrid {
		t.Errorf("expected view '%s', got '%s'", ViewGrid, cfg.View)
	}
	if cfg.Cache.Enabled() {
		t.Error("expected cache to be disabled by default")
	}
	if cfg.Cache.TTL != 5*time.Minute {
		t.Errorf("expected cache TTL 5m, got %v", cfg.Cache.TTL)
	}
	if cfg.Session.CheckInterval != 30*time.Second {
		t.Errorf("expected check interval 30s, got %v", cfg.Session.CheckInterval)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("expected server addr ':8080', got '%s'", cfg.Server.Addr)
	}
}

func TestLoad_NestedKeys(t *testing.T) {
	configPath := writeConfig(t, `url: https://test.example.com
page_size: 12
view: list
log:
  level: debug
  format: json
cache:
  redis_addr: localhost:6379
  ttl: 90s
session:
  check_interval: 10s
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.PageSize != 12 {
		t.Errorf("expected page size 12, got %d", cfg.PageSize)
	}
	if cfg.View != ViewList {
		t.Errorf("expected view 'list', got '%s'", cfg.View)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("unexpected log config: %+v", cfg.Log)
	}
	if !cfg.Cache.Enabled() || cfg.Cache.RedisAddr != "localhost:6379" {
		t.Errorf("unexpected cache config: %+v", cfg.Cache)
	}
	if cfg.Cache.TTL != 90*time.Second {
		t.Errorf("expected cache TTL 90s, got %v", cfg.Cache.TTL)
	}
	if cfg.Session.CheckInterval != 10*time.Second {
		t.Errorf("expected check interval 10s, got %v", cfg.Session.CheckInterval)
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	configPath := writeConfig(t, "url: https://file.example.com\ntoken: file-token\n")

	t.Setenv("MODELOS_URL", "https://env.example.com")
	t.Setenv("MODELOS_TOKEN", "env-token")
	t.Setenv("MODELOS_CACHE_REDIS_ADDR", "redis:6379")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	// Verify env vars took precedence
	if cfg.URL != "https://env.example.com" {
		t.Errorf("expected URL from env 'https://env.example.com', got '%s'", cfg.URL)
	}
	if cfg.Token != "env-token" {
		t.Errorf("expected Token from env 'env-token', got '%s'", cfg.Token)
	}
	if cfg.Cache.RedisAddr != "redis:6379" {
		t.Errorf("expected redis addr from env, got '%s'", cfg.Cache.RedisAddr)
	}
}

func TestLoad_EnvVarsOnly(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "nonexistent.yaml")

	t.Setenv("MODELOS_URL", "https://envonly.example.com")
	t.Setenv("MODELOS_TOKEN", "envonly-token")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() failed with env vars only: %v", err)
	}

	if cfg.URL != "https://envonly.example.com" {
		t.Errorf("expected URL from env 'https://envonly.example.com', got '%s'", cfg.URL)
	}
	if cfg.Token != "envonly-token" {
		t.Errorf("expected Token from env 'envonly-token', got '%s'", cfg.Token)
	}
}

func TestLoad_MissingConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "nonexistent.yaml")

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("expected error for missing config, got nil")
	}

	expected := "no configuration found. Run 'modelosctl config init' to set up"
	if err.Error() != expected {
		t.Errorf("expected error '%s', got '%v'", expected, err)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
		field   string
	}{
		{
			name:    "invalid url",
			content: "url: not a url\n",
			field:   "URL",
		},
		{
			name:    "page size too small",
			content: "url: https://test.example.com\npage_size: 0\n",
			field:   "PageSize",
		},
		{
			name:    "unknown sort",
			content: "url: https://test.example.com\ndefault_sort: popular\n",
			field:   "DefaultSort",
		},
		{
			name:    "unknown view",
			content: "url: https://test.example.com\nview: carousel\n",
			field:   "View",
		},
		{
			name:    "unknown log level",
			content: "url: https://test.example.com\nlog:\n  level: loud\n",
			field:   "Level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), "invalid configuration") || !strings.Contains(err.Error(), tt.field) {
				t.Errorf("expected validation error mentioning %s, got '%v'", tt.field, err)
			}
		})
	}
}

func TestLoad_NonYAMLFile(t *testing.T) {
	configPath := writeConfig(t, "not: valid: yaml: content: [unclosed")

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("expected error for invalid YAML, got nil")
	}

	if !strings.Contains(err.Error(), "failed to read config file") {
		t.Errorf("expected error containing 'failed to read config file', got '%v'", err)
	}
}

func TestSave(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	cfg := &Config{
		URL:   "https://save.example.com",
		Token: "save-token-456",
		View:  ViewList,
	}

	if err := Save(cfg, configPath); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	loaded, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load saved config: %v", err)
	}

	if loaded.URL != cfg.URL {
		t.Errorf("expected URL '%s', got '%s'", cfg.URL, loaded.URL)
	}
	if loaded.Token != cfg.Token {
		t.Errorf("expected Token '%s', got '%s'", cfg.Token, loaded.Token)
	}
	if loaded.View != ViewList {
		t.Errorf("expected view '%s', got '%s'", ViewList, loaded.View)
	}
}

func TestSave_PreservesExistingKeys(t *testing.T) {
	configPath := writeConfig(t, "url: https://old.example.com\ncache:\n  redis_addr: localhost:6379\n")

	if err := Save(&Config{URL: "https://new.example.com", Token: "tok"}, configPath); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	loaded, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load saved config: %v", err)
	}
	if loaded.URL != "https://new.example.com" {
		t.Errorf("expected updated URL, got '%s'", loaded.URL)
	}
	if loaded.Cache.RedisAddr != "localhost:6379" {
		t.Errorf("expected redis addr to be preserved, got '%s'", loaded.Cache.RedisAddr)
	}
}

func TestSave_PermissionsVerification(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "subdir", "config.yaml")

	cfg := &Config{
		URL:   "https://test.example.com",
		Token: "test-token",
	}

	if err := Save(cfg, configPath); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	dirInfo, err := os.Stat(filepath.Dir(configPath))
	if err != nil {
		t.Fatalf("failed to stat directory: %v", err)
	}
	if dirInfo.Mode().Perm() != os.FileMode(0700) {
		t.Errorf("expected directory permissions 0700, got %v", dirInfo.Mode().Perm())
	}

	fileInfo, err := os.Stat(configPath)
	if err != nil {
		t.Fatalf("failed to stat config file: %v", err)
	}
	if fileInfo.Mode().Perm() != os.FileMode(0600) {
		t.Errorf("expected file permissions 0600, got %v", fileInfo.Mode().Perm())
	}
}

func TestDefaultConfigPath(t *testing.T) {
	path, err := DefaultConfigPath()
	if err != nil {
		t.Fatalf("DefaultConfigPath() failed: %v", err)
	}

	if !filepath.IsAbs(path) {
		t.Error("expected absolute path")
	}
	if filepath.Base(path) != "config.yaml" {
		t.Errorf("expected path to end with 'config.yaml', got '%s'", path)
	}
	if filepath.Base(filepath.Dir(path)) != "modelosctl" {
		t.Errorf("expected config directory 'modelosctl', got '%s'", filepath.Dir(path))
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.URL != "" || cfg.Token != "" {
		t.Errorf("expected no connection settings, got url=%q token=%q", cfg.URL, cfg.Token)
	}
	if cfg.PageSize != 9 || cfg.WindowSize != 5 {
		t.Errorf("expected page size 9 and window 5, got %d and %d", cfg.PageSize, cfg.WindowSize)
	}
	if cfg.DefaultSort != "recentes" || cfg.View != ViewGrid {
		t.Errorf("unexpected sort/view defaults: %q %q", cfg.DefaultSort, cfg.View)
	}
	if cfg.Session.CheckInterval != 30*time.Second {
		t.Errorf("expected 30s check interval, got %v", cfg.Session.CheckInterval)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("expected :8080, got %q", cfg.Server.Addr)
	}
}
