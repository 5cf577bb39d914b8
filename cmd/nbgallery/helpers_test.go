package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"
)

// exportHTML is what the fake converter writes.
const exportHTML = "<!DOCTYPE html><html><head><title>nb</title></head><body><p>ok</p></body></html>"

// fixedNow is the clock used by CLI tests.
var fixedNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

// fakeRunner stands in for marimo: it writes exportHTML to the path after
// -o, or to <path>/index.html when that path has no extension.
type fakeRunner struct {
	mu     sync.Mutex
	calls  [][]string
	stdout string
	err    error
}

func (r *fakeRunner) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	r.mu.Lock()
	r.calls = append(r.calls, append([]string{name}, args...))
	r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", "", err
	}
	if r.err != nil {
		return "", "boom", r.err
	}
	if i := slices.Index(args, "-o"); i >= 0 && i+1 < len(args) {
		page := args[i+1]
		if filepath.Ext(page) == "" {
			page = filepath.Join(page, "index.html")
		}
		if err := os.MkdirAll(filepath.Dir(page), 0o750); err != nil {
			return "", "", err
		}
		if err := os.WriteFile(page, []byte(exportHTML), 0o644); err != nil {
			return "", "", err
		}
	}
	return r.stdout, "", nil
}

func (r *fakeRunner) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// testEnv returns an isolated environment: vars replaces the process
// environment and no .env file is read.
func testEnv(vars map[string]string) (*Environment, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	env := &Environment{
		Now:    func() time.Time { return fixedNow },
		Stdout: &stdout,
		Stderr: &stderr,
		LookupEnv: func(k string) (string, bool) {
			v, ok := vars[k]
			return v, ok
		},
		Runner: &fakeRunner{},
	}
	return env, &stdout, &stderr
}

// writeFiles creates files under dir, with parent directories.
func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
			t.Fatalf("mkdir %s: %v", name, err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

// sampleNotebooks is a small notebook collection.
var sampleNotebooks = map[string]string{
	"intro.py":  "# Title: Introduction\n# Description: Getting started\n# Tags: basics, tutorial\nimport marimo\n",
	"charts.py": "# Title: Charts\n# Tags: plotting, tutorial\nimport marimo\n",
}
