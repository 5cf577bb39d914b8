package main

// Notes:
// - newRouter/serve: tested over real loopback listeners.
// - watchAndRebuild: a notebook written after the watcher starts must show
//   up in the site. The test polls with a deadline; fsnotify delivery time is
//   not deterministic.

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alnah/go-nbgallery/internal/config"
	"github.com/alnah/go-nbgallery/internal/logger"
)

// ---------------------------------------------------------------------------
// TestNewRouter - Static files and health check
// ---------------------------------------------------------------------------

func TestNewRouter(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"index.html":       "<h1>gallery</h1>",
		"view_intro.html":  "<h1>intro</h1>",
		"static/style.css": "body{}",
		"notebooks/a.html": "<p>export</p>",
	})

	srv := httptest.NewServer(newRouter(dir, logger.Discard()))
	defer srv.Close()

	tests := []struct {
		path       string
		wantStatus int
		wantBody   string
	}{
		{"/", http.StatusOK, "gallery"},
		{"/view_intro.html", http.StatusOK, "intro"},
		{"/static/style.css", http.StatusOK, "body{}"},
		{"/notebooks/a.html", http.StatusOK, "export"},
		{"/healthz", http.StatusOK, "ok"},
		{"/missing.html", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(srv.URL + tt.path)
			if err != nil {
				t.Fatalf("GET %s: %v", tt.path, err)
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("GET %s status = %d, want %d", tt.path, resp.StatusCode, tt.wantStatus)
			}
			if !strings.Contains(string(body), tt.wantBody) {
				t.Errorf("GET %s body = %q, want %q", tt.path, body, tt.wantBody)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestServe_Shutdown - Cancelling the context stops the server
// ---------------------------------------------------------------------------

func TestServe_Shutdown(t *testing.T) {
	t.Parallel()

	out := t.TempDir()
	writeFiles(t, out, map[string]string{"index.html": "home"})
	cfg := config.DefaultConfig()
	cfg.Output.Dir = out

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	env, _, _ := testEnv(nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- serve(ctx, ln, cfg, env, logger.Discard(), false) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "home" {
		t.Errorf("body = %q, want home", body)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("serve() = %v, want nil after cancel", err)
		}
	case <-time.After(shutdownTimeout + time.Second):
		t.Fatal("serve did not stop after cancel")
	}
}

func TestRunServe_RequiresBuiltSite(t *testing.T) {
	t.Parallel()

	env, _, stderr := testEnv(nil)
	out := filepath.Join(t.TempDir(), "absent")
	code := runMain(context.Background(), []string{"nbgallery", "serve", "-o", out, "-a", "127.0.0.1:0"}, env)
	if code != ExitIO {
		t.Errorf("exit code = %d, want %d\nstderr: %s", code, ExitIO, stderr.String())
	}
	if !strings.Contains(stderr.String(), "nbgallery build") {
		t.Errorf("stderr = %q, want a pointer to build", stderr.String())
	}
}

// ---------------------------------------------------------------------------
// TestWatchAndRebuild - Changes trigger a rebuild
// ---------------------------------------------------------------------------

func TestWatchAndRebuild(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	notebooks := filepath.Join(dir, "nb")
	out := filepath.Join(dir, "site")
	writeFiles(t, notebooks, sampleNotebooks)

	cfg := config.DefaultConfig()
	cfg.Input.Dir = notebooks
	cfg.Output.Dir = out
	env, _, _ := testEnv(nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- watchAndRebuild(ctx, cfg, env, logger.Discard()) }()

	// Give the watcher time to register the directories.
	time.Sleep(200 * time.Millisecond)
	writeFiles(t, notebooks, map[string]string{"fresh.py": "# Title: Fresh\nimport marimo\n"})

	page := filepath.Join(out, "view_fresh.html")
	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := os.Stat(page); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("site was not rebuilt after adding a notebook")
		}
		time.Sleep(50 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("watchAndRebuild() = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop after cancel")
	}
}

func TestWatchAndRebuild_MissingDir(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Input.Dir = filepath.Join(t.TempDir(), "absent")
	env, _, _ := testEnv(nil)

	if err := watchAndRebuild(context.Background(), cfg, env, logger.Discard()); err == nil {
		t.Error("watching a missing directory should fail")
	}
}

// ---------------------------------------------------------------------------
// TestIgnoredPath / TestWatchedDirs
// ---------------------------------------------------------------------------

func TestIgnoredPath(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	out := filepath.Join(root, "site")

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"notebook", filepath.Join(root, "nb", "intro.py"), false},
		{"template", filepath.Join(root, "tpl", "index.html"), false},
		{"hidden file", filepath.Join(root, "nb", ".intro.py.swp"), true},
		{"backup file", filepath.Join(root, "nb", "intro.py~"), true},
		{"output dir itself", out, true},
		{"inside output", filepath.Join(out, "index.html"), true},
		{"sibling with output prefix", filepath.Join(root, "site-old", "a.py"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := ignoredPath(tt.path, out); got != tt.want {
				t.Errorf("ignoredPath(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestWatchedDirs(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	if got := watchedDirs(cfg); len(got) != 1 || got[0] != "notebooks" {
		t.Errorf("watchedDirs(defaults) = %v, want [notebooks]", got)
	}

	cfg.Site.TemplatesDir = "tpl"
	cfg.Site.StaticDir = "public"
	got := watchedDirs(cfg)
	want := []string{"notebooks", "tpl", "public"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("watchedDirs() = %v, want %v", got, want)
	}
}
