package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("LOG_LEVEL=debug\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("LOG_LEVEL", "")
	os.Unsetenv("LOG_LEVEL")
	if got := loadEnv(path); got != "debug" {
		t.Errorf("loadEnv(%s) = %q, want debug", path, got)
	}

	t.Setenv("LOG_LEVEL", "error")
	if got := loadEnv(path); got != "error" {
		t.Errorf("loadEnv() with LOG_LEVEL set = %q, want error (env wins over file)", got)
	}

	os.Unsetenv("LOG_LEVEL")
	if got := loadEnv(filepath.Join(dir, "missing.env")); got != "warn" {
		t.Errorf("loadEnv(missing) = %q, want warn", got)
	}
}
