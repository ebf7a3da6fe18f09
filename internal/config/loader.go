package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"
)

var durationType = reflect.TypeOf(time.Duration(0))

// Load reads configuration from the environment, applies defaults and
// validates the result.
func Load() (*Config, error) {
	return LoadFrom(os.LookupEnv)
}

// LoadFrom is Load with a custom variable lookup.
func LoadFrom(lookup func(string) (string, bool)) (*Config, error) {
	cfg := &Config{}

	var problems []string
	fill(reflect.ValueOf(cfg).Elem(), lookup, &problems)
	if len(problems) > 0 {
		return nil, fmt.Errorf("config load: %s", strings.Join(problems, "; "))
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// fill walks the struct tree and assigns every tagged field, collecting
// all problems instead of stopping at the first.
func fill(v reflect.Value, lookup func(string) (string, bool), problems *[]string) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		fv := v.Field(i)
		if !fv.CanSet() {
			continue
		}
		if sf.Type.Kind() == reflect.Struct {
			fill(fv, lookup, problems)
			continue
		}

		name := sf.Tag.Get("env")
		if name == "" {
			continue
		}

		raw, ok := lookupNonEmpty(lookup, name)
		if !ok {
			if alt := sf.Tag.Get("envAlt"); alt != "" {
				raw, ok = lookupNonEmpty(lookup, alt)
			}
		}
		if !ok {
			if sf.Tag.Get("required") == "true" {
				*problems = append(*problems, name+" is required")
				continue
			}
			raw = sf.Tag.Get("default")
		}
		if raw == "" {
			continue
		}

		if err := assign(fv, raw); err != nil {
			*problems = append(*problems, fmt.Sprintf("%s=%q: %v", name, raw, err))
		}
	}
}

func lookupNonEmpty(lookup func(string) (string, bool), name string) (string, bool) {
	v, ok := lookup(name)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func assign(fv reflect.Value, raw string) error {
	if fv.Type() == durationType {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return errors.New("invalid duration")
		}
		fv.SetInt(int64(d))
		return nil
	}

	switch fv.Kind() {
	case reflect.String:
		fv.SetString(raw)
	case reflect.Int, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return errors.New("invalid integer")
		}
		fv.SetInt(n)
	case reflect.Float64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return errors.New("invalid number")
		}
		fv.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return errors.New("invalid boolean")
		}
		fv.SetBool(b)
	case reflect.Slice:
		if fv.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice of %s", fv.Type().Elem().Kind())
		}
		var items []string
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				items = append(items, p)
			}
		}
		fv.Set(reflect.ValueOf(items))
	default:
		return fmt.Errorf("unsupported field kind %s", fv.Kind())
	}
	return nil
}

// Validate checks cross-field constraints and returns every failure at once.
func (c *Config) Validate() error {
	var errs []string
	add := func(format string, args ...any) { errs = append(errs, fmt.Sprintf(format, args...)) }

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		add("SERVER_PORT (%d) must be 1-65535", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		add("SERVER_SHUTDOWN_TIMEOUT must be positive")
	}
	if c.Server.RequestTimeout <= c.Upstream.Timeout {
		add("SERVER_REQUEST_TIMEOUT (%s) must exceed UPSTREAM_TIMEOUT (%s)", c.Server.RequestTimeout, c.Upstream.Timeout)
	}

	if c.Database.MaxConns <= 0 {
		add("DB_MAX_CONNS must be positive")
	}
	if c.Database.MinConns < 0 || c.Database.MinConns > c.Database.MaxConns {
		add("DB_MIN_CONNS (%d) must be between 0 and DB_MAX_CONNS (%d)", c.Database.MinConns, c.Database.MaxConns)
	}

	if c.Upload.MaxFileSize <= 0 {
		add("UPLOAD_MAX_FILE_SIZE must be positive")
	}
	if c.Upload.MaxConcurrent <= 0 {
		add("UPLOAD_MAX_CONCURRENT must be positive")
	}
	for _, ext := range c.Upload.Extensions {
		if !strings.HasPrefix(ext, ".") {
			add("UPLOAD_EXTENSIONS entry %q must start with a dot", ext)
		}
	}

	if c.Rate.Enabled && c.Rate.RequestsPerMinute <= 0 {
		add("RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
	}

	if len(c.Security.JWTSecret) < 16 {
		add("JWT_SECRET must be at least 16 characters")
	}
	if c.Security.TokenTTL <= 0 {
		add("JWT_TOKEN_TTL must be positive")
	}

	for name, raw := range map[string]string{"TASK_API_URL": c.Upstream.TaskAPIURL, "LMS_URL": c.Upstream.LMSURL} {
		if u, err := url.Parse(raw); err != nil || u.Scheme == "" || u.Host == "" {
			add("%s (%q) must be an absolute URL", name, raw)
		}
	}
	if c.Upstream.Timeout <= 0 {
		add("UPSTREAM_TIMEOUT must be positive")
	}
	if c.Upstream.MaxPages <= 0 {
		add("UPSTREAM_MAX_PAGES must be positive")
	}

	if c.Retention.ImportHistoryDays < 0 {
		add("RETENTION_IMPORT_HISTORY_DAYS must be non-negative")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		add("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		add("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format)
	}

	if len(errs) > 0 {
		// map iteration above makes the URL checks unordered
		slices.Sort(errs)
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
