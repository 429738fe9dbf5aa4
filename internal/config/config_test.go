package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, path, exists, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing file")
	}
	if path == "" {
		t.Fatal("expected resolved path")
	}
	if cfg.Paths.APIBind != defaultAPIBind {
		t.Fatalf("expected default api bind, got %q", cfg.Paths.APIBind)
	}
	if cfg.Uploads.TransferTimeout != defaultUploadTransferTimeout {
		t.Fatalf("expected default transfer timeout, got %d", cfg.Uploads.TransferTimeout)
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := strings.Join([]string{
		"[paths]",
		`data_dir = "` + filepath.Join(dir, "data") + `"`,
		`log_dir = "` + filepath.Join(dir, "logs") + `"`,
		`api_bind = "127.0.0.1:0"`,
		"[thumbnails]",
		`endpoint = "https://dam.example.com/api/assets/thumbnail-status"`,
		"request_timeout = 5",
		"[logging]",
		`format = "JSON"`,
		`level = "Debug"`,
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists {
		t.Fatal("expected exists=true")
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("expected normalized logging values, got %q/%q", cfg.Logging.Format, cfg.Logging.Level)
	}
	if cfg.Thumbnails.RequestTimeout != 5 {
		t.Fatalf("expected request timeout 5, got %d", cfg.Thumbnails.RequestTimeout)
	}
}

func TestValidateRejectsBadEndpoint(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	cfg.Thumbnails.Endpoint = "ftp://example.com/status"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unsupported endpoint scheme")
	}
}

func TestValidateRejectsBadLogFormat(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	cfg.Logging.Format = "xml"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unsupported log format")
	}
}

func TestAPITokenFallsBackToEnvironment(t *testing.T) {
	t.Setenv("LIGHTBOX_API_TOKEN", "secret-token")
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if cfg.Paths.APIToken != "secret-token" {
		t.Fatalf("expected token from environment, got %q", cfg.Paths.APIToken)
	}
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Paths.DataDir = filepath.Join(dir, "data")
	cfg.Paths.LogDir = filepath.Join(dir, "logs")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, d := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir} {
		info, err := os.Stat(d)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q", d)
		}
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[thumbnails]") {
		t.Fatal("expected sample to contain thumbnails section")
	}
}
