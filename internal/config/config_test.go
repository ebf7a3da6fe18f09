package config

import (
	"strings"
	"testing"
	"time"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	}
}

func required() map[string]string {
	return map[string]string{
		"DATABASE_URL": "postgres://localhost/test",
		"JWT_SECRET":   "0123456789abcdef0123",
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := LoadFrom(env(required()))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.Server.Port != 3000 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 3000)
	}
	if cfg.Upload.MaxFileSize != 10485760 {
		t.Errorf("Upload.MaxFileSize = %d, want %d", cfg.Upload.MaxFileSize, 10485760)
	}
	if cfg.Upstream.TaskAPIURL != "https://jira.shlx.vn/v1" {
		t.Errorf("Upstream.TaskAPIURL = %q", cfg.Upstream.TaskAPIURL)
	}
	if cfg.Upstream.LMSTemplateID != 3 {
		t.Errorf("Upstream.LMSTemplateID = %d, want 3", cfg.Upstream.LMSTemplateID)
	}
	if cfg.Upstream.Timeout != 30*time.Second {
		t.Errorf("Upstream.Timeout = %v, want 30s", cfg.Upstream.Timeout)
	}
	if cfg.Upstream.MaxPages != 50 {
		t.Errorf("Upstream.MaxPages = %d, want 50", cfg.Upstream.MaxPages)
	}
	if got := strings.Join(cfg.Upload.Extensions, ","); got != ".xlsx,.xlsm,.csv" {
		t.Errorf("Upload.Extensions = %q", got)
	}
	if len(cfg.Security.TrustedProxies) != 0 {
		t.Errorf("Security.TrustedProxies = %v, want empty", cfg.Security.TrustedProxies)
	}
	if !cfg.Bootstrap.SeedStandards {
		t.Error("Bootstrap.SeedStandards = false, want true")
	}
}

func TestLoad_Overrides(t *testing.T) {
	vars := required()
	vars["SERVER_PORT"] = "9090"
	vars["UPSTREAM_TIMEOUT"] = "5s"
	vars["TRUSTED_PROXIES"] = "10.0.0.0/8, 192.168.1.1 ,"
	vars["LOG_LEVEL"] = "debug"

	cfg, err := LoadFrom(env(vars))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Upstream.Timeout != 5*time.Second {
		t.Errorf("Upstream.Timeout = %v, want 5s", cfg.Upstream.Timeout)
	}
	if got := cfg.Security.TrustedProxies; len(got) != 2 || got[0] != "10.0.0.0/8" || got[1] != "192.168.1.1" {
		t.Errorf("Security.TrustedProxies = %v", got)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoad_AltEnvVar(t *testing.T) {
	cfg, err := LoadFrom(env(map[string]string{
		"DB_URL":         "postgres://localhost/alt",
		"SESSION_SECRET": "0123456789abcdef0123",
		"PORT":           "4000",
	}))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.Database.URL != "postgres://localhost/alt" {
		t.Errorf("Database.URL = %q", cfg.Database.URL)
	}
	if cfg.Server.Port != 4000 {
		t.Errorf("Server.Port = %d, want 4000", cfg.Server.Port)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(map[string]string)
		wantErr string
	}{
		{"missing database url", func(m map[string]string) { delete(m, "DATABASE_URL") }, "DATABASE_URL is required"},
		{"missing jwt secret", func(m map[string]string) { delete(m, "JWT_SECRET") }, "JWT_SECRET is required"},
		{"bad port", func(m map[string]string) { m["SERVER_PORT"] = "abc" }, "invalid integer"},
		{"bad duration", func(m map[string]string) { m["UPSTREAM_TIMEOUT"] = "soon" }, "invalid duration"},
		{"bad bool", func(m map[string]string) { m["RATE_LIMIT_ENABLED"] = "maybe" }, "invalid boolean"},
		{"short secret", func(m map[string]string) { m["JWT_SECRET"] = "short" }, "at least 16"},
		{"relative url", func(m map[string]string) { m["LMS_URL"] = "/v1" }, "LMS_URL"},
		{"zero pages", func(m map[string]string) { m["UPSTREAM_MAX_PAGES"] = "0" }, "UPSTREAM_MAX_PAGES"},
		{"request timeout too short", func(m map[string]string) { m["SERVER_REQUEST_TIMEOUT"] = "10s" }, "must exceed UPSTREAM_TIMEOUT"},
		{"bad log level", func(m map[string]string) { m["LOG_LEVEL"] = "verbose" }, "LOG_LEVEL"},
		{"extension without dot", func(m map[string]string) { m["UPLOAD_EXTENSIONS"] = "xlsx" }, "must start with a dot"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vars := required()
			tt.mutate(vars)
			_, err := LoadFrom(env(vars))
			if err == nil {
				t.Fatal("LoadFrom() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("LoadFrom() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_CollectsAllProblems(t *testing.T) {
	_, err := LoadFrom(env(map[string]string{"SERVER_PORT": "x"}))
	if err == nil {
		t.Fatal("LoadFrom() error = nil, want error")
	}
	for _, want := range []string{"DATABASE_URL", "JWT_SECRET", "SERVER_PORT"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestConfig_StringMasksSecrets(t *testing.T) {
	cfg, err := LoadFrom(env(required()))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	s := cfg.String()
	if strings.Contains(s, "postgres://") || strings.Contains(s, "0123456789abcdef") {
		t.Errorf("String() leaks secrets: %s", s)
	}
	if !strings.Contains(s, "0.0.0.0:3000") {
		t.Errorf("String() = %s, want listen address", s)
	}
}
