package config

import (
	"testing"
	"time"
)

func TestLoad_Success(t *testing.T) {
	setMinimalEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.App.Env != "production" {
		t.Fatalf("expected App.Env to be production, got %q", cfg.App.Env)
	}
	if !cfg.App.IsProd() {
		t.Fatal("expected IsProd to report true")
	}
	if cfg.Backend.BaseURL != "https://farm.example.com" {
		t.Fatalf("unexpected backend URL: %q", cfg.Backend.BaseURL)
	}
	if got := cfg.Backend.RequestTimeout; got != 30*time.Second {
		t.Fatalf("expected default request timeout 30s, got %v", got)
	}
}

func TestLoad_MissingBackendURL(t *testing.T) {
	t.Setenv(EnvAppEnv, "development")
	t.Setenv(EnvBackendURL, "")

	if _, err := Load(); err == nil {
		t.Fatal("expected missing backend URL to return an error")
	}
}

func TestLoad_RejectsNonHTTPBackendURL(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvBackendURL, "ftp://farm.example.com")

	if _, err := Load(); err == nil {
		t.Fatal("expected non-http scheme to be rejected")
	}
}

func TestLoad_TrimsTrailingSlash(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvBackendURL, "https://farm.example.com/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	if cfg.Backend.BaseURL != "https://farm.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Backend.BaseURL)
	}
}

func setMinimalEnv(t *testing.T) {
	t.Helper()

	t.Setenv(EnvAppEnv, "production")
	t.Setenv(EnvBackendURL, "https://farm.example.com")
	t.Setenv(EnvAuthToken, "token-123")
}
