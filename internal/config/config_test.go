// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.URL == "" {
		t.Error("default server URL must be set")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestLoadFromMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if cfg.Server.URL != DefaultConfig().Server.URL {
		t.Errorf("URL = %q, want default", cfg.Server.URL)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
version = "1"

[server]
url = "https://solace.example.com"
token = "tok-abc"

[voice]
enabled = false
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if cfg.Server.URL != "https://solace.example.com" {
		t.Errorf("URL = %q", cfg.Server.URL)
	}
	if cfg.Server.Token != "tok-abc" {
		t.Errorf("Token = %q", cfg.Server.Token)
	}
	if cfg.Voice.Enabled {
		t.Error("voice should be disabled")
	}
	// Unset sections keep defaults
	if cfg.Upload.MaxFileSizeMB != 25 {
		t.Errorf("MaxFileSizeMB = %d", cfg.Upload.MaxFileSizeMB)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SOLACE_SERVER_URL", "https://override.example.com")
	t.Setenv("SOLACE_TOKEN", "tok-env")

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if cfg.Server.URL != "https://override.example.com" {
		t.Errorf("URL = %q", cfg.Server.URL)
	}
	if cfg.Server.Token != "tok-env" {
		t.Errorf("Token = %q", cfg.Server.Token)
	}
}

func TestValidateRejectsBadURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.URL = "ftp://wrong"
	if err := cfg.Validate(); err == nil {
		t.Error("non-http scheme must fail validation")
	}

	cfg.Server.URL = ""
	if err := cfg.Validate(); err == nil {
		t.Error("empty URL must fail validation")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.toml")

	cfg := DefaultConfig()
	cfg.Server.Token = "tok-saved"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if loaded.Server.Token != "tok-saved" {
		t.Errorf("Token = %q", loaded.Server.Token)
	}
}

func TestWatcherReloadsToken(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg := DefaultConfig()
	cfg.Server.Token = "tok-old"
	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher(path, cfg, nil)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer w.Close()
	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if w.Token() != "tok-old" {
		t.Fatalf("initial token = %q", w.Token())
	}

	rotated := *cfg
	rotated.Server.Token = "tok-new"
	if err := rotated.Save(path); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(3 * time.Second)
	for w.Token() != "tok-new" {
		select {
		case <-deadline:
			t.Fatalf("token never rotated, still %q", w.Token())
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func TestWatcherKeepsConfigOnBadReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg := DefaultConfig()
	cfg.Server.Token = "tok-good"
	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher(path, cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(path, []byte("not = [valid toml"), 0o600); err != nil {
		t.Fatal(err)
	}

	// Give the debounce time to fire; the bad file must not clobber state
	time.Sleep(500 * time.Millisecond)
	if w.Token() != "tok-good" {
		t.Errorf("token = %q, want previous config kept", w.Token())
	}
}
