package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cognicore/postlens/pkg/postlens/category"
	"github.com/cognicore/postlens/pkg/postlens/internalerr"
)

// isolateEnv keeps developer .env files out of the tests.
func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "postlens.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Workers != 4 {
		t.Errorf("workers = %d, want 4", cfg.Workers)
	}
	if len(cfg.Categorizer.Rules) != len(category.All()) {
		t.Errorf("expected rules for all %d categories, got %d", len(category.All()), len(cfg.Categorizer.Rules))
	}
	for _, c := range category.All() {
		if len(cfg.Categorizer.Rules[string(c)].Seeds) == 0 {
			t.Errorf("%s has no seeds", c)
		}
	}
	if cfg.Engagement.DefaultDenominator != nil {
		t.Error("default denominator should be unset")
	}
}

func TestLoadWithoutFile(t *testing.T) {
	isolateEnv(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Workers != 4 || cfg.LogLevel != "info" {
		t.Errorf("unexpected defaults: workers=%d log_level=%s", cfg.Workers, cfg.LogLevel)
	}
	if cfg.Extractor.MinWords != 4 || cfg.Extractor.MaxSpanRunes != 280 {
		t.Errorf("unexpected extractor defaults: %+v", cfg.Extractor)
	}
}

func TestLoadFileLayersOnDefaults(t *testing.T) {
	isolateEnv(t)
	path := writeConfig(t, `workers: 2
dedupe: true
engagement:
  default_denominator: 243
  windows:
    - from: 2024-01-01
      to: 2024-07-01
      denominator: 180
categorizer:
  fallback: tool_preferences
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Workers != 2 || !cfg.Dedupe {
		t.Errorf("file values not applied: workers=%d dedupe=%v", cfg.Workers, cfg.Dedupe)
	}
	if cfg.Engagement.DefaultDenominator == nil || *cfg.Engagement.DefaultDenominator != 243 {
		t.Errorf("default_denominator not applied: %v", cfg.Engagement.DefaultDenominator)
	}
	if cfg.Categorizer.Fallback != "tool_preferences" {
		t.Errorf("fallback = %q", cfg.Categorizer.Fallback)
	}
	if len(cfg.Categorizer.Rules) != len(category.All()) {
		t.Error("rules should come from defaults when the file sets none")
	}
	if cfg.Categorizer.HashtagWeight != 2 {
		t.Errorf("hashtag_weight = %v, want default 2", cfg.Categorizer.HashtagWeight)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	isolateEnv(t)
	if _, err := Load("/nonexistent/postlens.yaml"); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	isolateEnv(t)
	path := writeConfig(t, "workers: [unclosed\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestEnvOverrides(t *testing.T) {
	isolateEnv(t)
	t.Setenv("POSTLENS_WORKERS", "7")
	t.Setenv("POSTLENS_LOG_LEVEL", "debug")
	t.Setenv("POSTLENS_DEFAULT_DENOMINATOR", "500")
	t.Setenv("POSTLENS_DB", "runs.db")

	path := writeConfig(t, "workers: 2\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Workers != 7 {
		t.Errorf("workers = %d, want 7 from env", cfg.Workers)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log_level = %q", cfg.LogLevel)
	}
	if cfg.Engagement.DefaultDenominator == nil || *cfg.Engagement.DefaultDenominator != 500 {
		t.Errorf("default denominator = %v", cfg.Engagement.DefaultDenominator)
	}
	if cfg.DB != "runs.db" {
		t.Errorf("db = %q", cfg.DB)
	}
}

func TestEnvOverrideIgnoresGarbage(t *testing.T) {
	isolateEnv(t)
	t.Setenv("POSTLENS_WORKERS", "many")
	t.Setenv("POSTLENS_DEFAULT_DENOMINATOR", "lots")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Workers != 4 {
		t.Errorf("workers = %d, want default 4", cfg.Workers)
	}
	if cfg.Engagement.DefaultDenominator != nil {
		t.Error("unparseable denominator should leave the field unset")
	}
}

func TestEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, "test.env")
	if err := os.WriteFile(envPath, []byte("POSTLENS_DB=from-env-file.db\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ENV_FILE", envPath)
	t.Cleanup(func() { os.Unsetenv("POSTLENS_DB") })

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DB != "from-env-file.db" {
		t.Errorf("db = %q, want value from env file", cfg.DB)
	}
}

func TestValidateRejects(t *testing.T) {
	neg := -1.0
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero workers", func(c *Config) { c.Workers = 0 }},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
		{"bad generated_at", func(c *Config) { c.GeneratedAt = "yesterday" }},
		{"negative default denominator", func(c *Config) { c.Engagement.DefaultDenominator = &neg }},
		{"negative per-post denominator", func(c *Config) { c.Engagement.PerPost = map[string]float64{"p1": -5} }},
		{"unknown fallback", func(c *Config) { c.Categorizer.Fallback = "rants" }},
		{"unknown rule category", func(c *Config) { c.Categorizer.Rules["rants"] = Rule{Keywords: []string{"ugh"}} }},
		{"negative weight", func(c *Config) { c.Categorizer.KeywordWeight = -1 }},
		{"similarity above one", func(c *Config) { c.Categorizer.MinSimilarity = 2 }},
		{"negative min words", func(c *Config) { c.Extractor.MinWords = -1 }},
		{"bad window date", func(c *Config) {
			c.Engagement.Windows = []Window{{From: "soon", Denominator: 1}}
		}},
		{"inverted window", func(c *Config) {
			c.Engagement.Windows = []Window{{From: "2024-06-01", To: "2024-01-01", Denominator: 1}}
		}},
		{"overlapping windows", func(c *Config) {
			c.Engagement.Windows = []Window{
				{From: "2024-01-01", To: "2024-07-01", Denominator: 100},
				{From: "2024-06-01", To: "2024-12-31", Denominator: 200},
			}
		}},
		{"open window followed by another", func(c *Config) {
			c.Engagement.Windows = []Window{
				{From: "2024-01-01", Denominator: 100},
				{From: "2025-01-01", Denominator: 200},
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, internalerr.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestValidateAdjacentWindows(t *testing.T) {
	cfg := Default()
	cfg.Engagement.Windows = []Window{
		{From: "2024-07-01", Denominator: 200},
		{From: "2024-01-01", To: "2024-07-01", Denominator: 100},
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("adjacent windows should be valid: %v", err)
	}
}

func TestGeneratedTime(t *testing.T) {
	cfg := Default()
	if ts, err := cfg.GeneratedTime(); err != nil || !ts.IsZero() {
		t.Fatalf("unset generated_at: got %v, %v", ts, err)
	}
	cfg.GeneratedAt = "2024-06-01T12:00:00Z"
	ts, err := cfg.GeneratedTime()
	if err != nil {
		t.Fatal(err)
	}
	if !ts.Equal(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("generated time = %v", ts)
	}
}
