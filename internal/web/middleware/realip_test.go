package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/JonMunkholm/traintrack/internal/auth"
	"github.com/JonMunkholm/traintrack/internal/core"
)

func TestTrustedRealIP(t *testing.T) {
	tests := []struct {
		name    string
		trusted []string
		remote  string
		headers map[string]string
		want    string
	}{
		{"no trusted proxies", nil, "10.0.0.1:5000", map[string]string{"X-Real-IP": "1.2.3.4"}, "10.0.0.1:5000"},
		{"trusted cidr real ip", []string{"10.0.0.0/8"}, "10.0.0.1:5000", map[string]string{"X-Real-IP": "1.2.3.4"}, "1.2.3.4"},
		{"trusted single forwarded", []string{"192.168.1.1"}, "192.168.1.1:80", map[string]string{"X-Forwarded-For": "5.6.7.8, 10.0.0.1"}, "5.6.7.8"},
		{"untrusted remote", []string{"10.0.0.0/8"}, "172.16.0.1:5000", map[string]string{"X-Real-IP": "1.2.3.4"}, "172.16.0.1:5000"},
		{"garbage header", []string{"10.0.0.0/8"}, "10.0.0.1:5000", map[string]string{"X-Real-IP": "not-an-ip"}, "10.0.0.1:5000"},
		{"invalid entry skipped", []string{"bogus", "10.0.0.0/8"}, "10.1.2.3:1", map[string]string{"X-Real-IP": "::1"}, "::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			h := TrustedRealIP(tt.trusted)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.RemoteAddr
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)
			if got != tt.want {
				t.Errorf("RemoteAddr = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name     string
		ctx      func(context.Context) context.Context
		min      auth.Role
		wantCode int
	}{
		{"anonymous", func(c context.Context) context.Context { return c }, auth.RoleViewer, http.StatusUnauthorized},
		{"viewer below teacher", func(c context.Context) context.Context {
			return WithPrincipal(c, Principal{Username: "v", Role: auth.RoleViewer})
		}, auth.RoleTeacher, http.StatusForbidden},
		{"admin above teacher", func(c context.Context) context.Context {
			return WithPrincipal(c, Principal{Username: "a", Role: auth.RoleAdmin})
		}, auth.RoleTeacher, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := RequireRole(tt.min)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req = req.WithContext(tt.ctx(req.Context()))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
		})
	}
}

func TestAuthenticate_Cookie(t *testing.T) {
	m := auth.NewManager("0123456789abcdef0123", time.Hour)
	tok, _, err := m.GenerateToken(auth.User{Username: "lan", Role: auth.RoleTeacher})
	if err != nil {
		t.Fatal(err)
	}

	var actor string
	h := Authenticate(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor = core.ActorFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: tok})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || actor != "lan" {
		t.Errorf("status = %d actor = %q, want 200 lan", rec.Code, actor)
	}
}
