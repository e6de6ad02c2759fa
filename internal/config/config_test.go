package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadWithExplicitConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "voxread.yaml")
	body := "proxy:\n  base_url: https://proxy.example.com\n  key: secret123\ndata_dir: " + filepath.Join(dir, "data") + "\ndebug: true\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ProxyBaseURL != "https://proxy.example.com" {
		t.Errorf("ProxyBaseURL = %q, want the configured proxy URL", cfg.ProxyBaseURL)
	}
	if cfg.ProxyKey != "secret123" {
		t.Errorf("ProxyKey = %q, want secret123", cfg.ProxyKey)
	}
	if !cfg.Debug {
		t.Errorf("Debug = false, want true")
	}
}

func TestLoadCreatesDataDir(t *testing.T) {
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "nested", "data")
	path := filepath.Join(dir, "voxread.yaml")
	if err := os.WriteFile(path, []byte("data_dir: "+dataDir+"\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DataDir != dataDir {
		t.Errorf("DataDir = %q, want %q", cfg.DataDir, dataDir)
	}
	if _, statErr := os.Stat(dataDir); statErr != nil {
		t.Errorf("expected data dir to be created, stat error: %v", statErr)
	}
}

func TestStorePathJoinsDataDir(t *testing.T) {
	cfg := &Config{DataDir: "/tmp/voxread-data"}
	if got, want := cfg.StorePath(), filepath.Join("/tmp/voxread-data", "voxread.db"); got != want {
		t.Errorf("StorePath() = %q, want %q", got, want)
	}
}
