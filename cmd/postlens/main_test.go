package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testPosts = `{"id":"p1","timestamp":"2024-03-05T10:00:00Z","text":"Unpopular opinion: most meetings should be emails.","hashtags":["unpopularopinion"],"reactions":37,"comments":22,"shares":2}
{"id":"p2","timestamp":"2024-03-06","text":"We run everything on Kubernetes and Terraform.","reactions":10,"comments":0,"shares":0}
{"id":"p3","timestamp":"2024-03-07","text":"","reactions":1,"comments":0,"shares":0}
`

const testConfig = `engagement:
  default_denominator: 243
`

func setup(t *testing.T) (input, cfgPath, out string) {
	t.Helper()
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("POSTLENS_LOG_LEVEL", "error")
	dir := t.TempDir()
	input = filepath.Join(dir, "posts.jsonl")
	cfgPath = filepath.Join(dir, "postlens.yaml")
	out = filepath.Join(dir, "archive")
	if err := os.WriteFile(input, []byte(testPosts), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(cfgPath, []byte(testConfig), 0644); err != nil {
		t.Fatal(err)
	}
	return input, cfgPath, out
}

func TestRunMainWritesArchive(t *testing.T) {
	input, cfgPath, out := setup(t)
	db := filepath.Join(t.TempDir(), "runs.db")

	var stdout, stderr bytes.Buffer
	code := runMain(context.Background(), []string{"-input", input, "-out", out, "-config", cfgPath, "-db", db}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit code %d, stderr: %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "2 posts, 1 rejected") {
		t.Errorf("unexpected summary: %s", stdout.String())
	}

	data, err := os.ReadFile(filepath.Join(out, "controversial_takes.md"))
	if err != nil {
		t.Fatalf("read archive: %v", err)
	}
	if !strings.Contains(string(data), "**Engagement**: 25.103% rate (37 reactions, 22 comments, 2 shares)") {
		t.Errorf("archive missing engagement line:\n%s", data)
	}
	if !strings.Contains(string(data), "**Generated**: 2024-03-06T00:00:00Z") {
		t.Errorf("generated should default to the latest post:\n%s", data)
	}

	entries, err := os.ReadDir(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 5 {
		t.Errorf("expected 5 documents, got %d", len(entries))
	}
}

func TestRunMainIdempotent(t *testing.T) {
	input, cfgPath, out := setup(t)
	args := []string{"-input", input, "-out", out, "-config", cfgPath, "-generated", "2024-06-01T00:00:00Z"}

	var stdout, stderr bytes.Buffer
	if code := runMain(context.Background(), args, &stdout, &stderr); code != 0 {
		t.Fatalf("first run exit %d: %s", code, stderr.String())
	}
	first, _ := os.ReadFile(filepath.Join(out, "tool_preferences.md"))

	stdout.Reset()
	if code := runMain(context.Background(), args, &stdout, &stderr); code != 0 {
		t.Fatalf("second run exit %d: %s", code, stderr.String())
	}
	second, _ := os.ReadFile(filepath.Join(out, "tool_preferences.md"))
	if !bytes.Equal(first, second) {
		t.Error("rerun changed the archive")
	}
	if strings.Contains(stdout.String(), " written") {
		t.Errorf("rerun rewrote files:\n%s", stdout.String())
	}
}

func TestRunMainFailures(t *testing.T) {
	input, cfgPath, out := setup(t)
	badConfig := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(badConfig, []byte("workers: -1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	empty := filepath.Join(t.TempDir(), "empty.jsonl")
	if err := os.WriteFile(empty, []byte("not json\n"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		args []string
	}{
		{"missing input flag", []string{"-out", out}},
		{"missing out flag", []string{"-input", input}},
		{"unreadable input", []string{"-input", "/nonexistent/posts.jsonl", "-out", out}},
		{"no valid posts", []string{"-input", empty, "-out", out, "-config", cfgPath}},
		{"invalid config", []string{"-input", input, "-out", out, "-config", badConfig}},
		{"bad generated", []string{"-input", input, "-out", out, "-generated", "soon"}},
		{"unknown flag", []string{"-frobnicate"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if code := runMain(context.Background(), tt.args, &stdout, &stderr); code != 1 {
				t.Errorf("exit code = %d, want 1", code)
			}
		})
	}
}
