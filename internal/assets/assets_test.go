package assets

import (
	"errors"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// TestEmbeddedLoader - Built-in templates and static files
// ---------------------------------------------------------------------------

func TestEmbeddedLoader_LoadTemplate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		template string
		wantErr  error
		contains string
	}{
		{name: "layout", template: TemplateLayout, contains: `{{define "layout"}}`},
		{name: "index", template: TemplateIndex, contains: `id="search"`},
		{name: "notebook", template: TemplateNotebook, contains: "Related notebooks"},
		{name: "missing", template: "nope", wantErr: ErrTemplateNotFound},
		{name: "traversal", template: "../layout", wantErr: ErrInvalidAssetName},
		{name: "extension", template: "index.html", wantErr: ErrInvalidAssetName},
		{name: "empty", template: "", wantErr: ErrInvalidAssetName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := LoadTemplate(tt.template)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("LoadTemplate(%q) error = %v, want %v", tt.template, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadTemplate(%q) error = %v", tt.template, err)
			}
			if !strings.Contains(got, tt.contains) {
				t.Errorf("LoadTemplate(%q) missing %q", tt.template, tt.contains)
			}
		})
	}
}

func TestEmbeddedTemplates_Parse(t *testing.T) {
	t.Parallel()

	funcs := template.FuncMap{
		"join":       strings.Join,
		"lower":      strings.ToLower,
		"truncate":   func(s string) string { return s },
		"formatDate": func(any) string { return "" },
		"viewPage":   func(any) string { return "" },
	}

	layout, err := LoadTemplate(TemplateLayout)
	if err != nil {
		t.Fatal(err)
	}
	for _, page := range PageTemplates {
		src, err := LoadTemplate(page)
		if err != nil {
			t.Fatal(err)
		}
		tmpl := template.Must(template.New(TemplateLayout).Funcs(funcs).Parse(layout))
		if _, err := tmpl.New(page).Parse(src); err != nil {
			t.Errorf("parsing %s: %v", page, err)
		}
	}
}

func TestStatic(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"style.css", "gallery.js"} {
		data, err := fs.ReadFile(Static(), name)
		if err != nil {
			t.Errorf("ReadFile(%s) error = %v", name, err)
			continue
		}
		if len(data) == 0 {
			t.Errorf("%s is empty", name)
		}
	}
}

// ---------------------------------------------------------------------------
// TestFilesystemLoader - User directories
// ---------------------------------------------------------------------------

func TestNewFilesystemLoader(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{name: "valid directory", path: dir},
		{name: "empty path", path: "", wantErr: true},
		{name: "nonexistent", path: filepath.Join(dir, "missing"), wantErr: true},
		{name: "file", path: file, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			l, err := NewFilesystemLoader(tt.path)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidBasePath) {
					t.Errorf("NewFilesystemLoader() error = %v, want ErrInvalidBasePath", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewFilesystemLoader() error = %v", err)
			}
			if l.BasePath() == "" {
				t.Error("BasePath() is empty")
			}
		})
	}
}

func TestFilesystemLoader_LoadTemplate(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("custom"), 0o644); err != nil {
		t.Fatal(err)
	}
	l, err := NewFilesystemLoader(dir)
	if err != nil {
		t.Fatal(err)
	}

	got, err := l.LoadTemplate("index")
	if err != nil || got != "custom" {
		t.Errorf("LoadTemplate(index) = %q, %v", got, err)
	}
	if _, err := l.LoadTemplate("notebook"); !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("LoadTemplate(notebook) error = %v, want ErrTemplateNotFound", err)
	}
	if _, err := l.LoadTemplate("a/b"); !errors.Is(err, ErrInvalidAssetName) {
		t.Errorf("LoadTemplate(a/b) error = %v, want ErrInvalidAssetName", err)
	}
}

func TestFilesystemLoader_SymlinkEscape(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}

	outside := t.TempDir()
	target := filepath.Join(outside, "secret.html")
	if err := os.WriteFile(target, []byte("secret"), 0o644); err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	if err := os.Symlink(target, filepath.Join(dir, "layout.html")); err != nil {
		t.Fatal(err)
	}

	l, err := NewFilesystemLoader(dir)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := l.LoadTemplate("layout"); !errors.Is(err, ErrPathTraversal) {
		t.Errorf("LoadTemplate(symlink) error = %v, want ErrPathTraversal", err)
	}
}

// ---------------------------------------------------------------------------
// TestAssetResolver - Custom-first lookup
// ---------------------------------------------------------------------------

func TestAssetResolver(t *testing.T) {
	t.Parallel()

	tmplDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmplDir, "index.html"), []byte(`{{define "content"}}mine{{end}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	staticDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(staticDir, "logo.svg"), []byte("<svg/>"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Run("embedded only", func(t *testing.T) {
		t.Parallel()

		r, err := NewAssetResolver("", "")
		if err != nil {
			t.Fatal(err)
		}
		if r.HasCustomTemplates() {
			t.Error("HasCustomTemplates() = true")
		}
		if n := len(r.StaticLayers()); n != 1 {
			t.Errorf("StaticLayers() = %d layers, want 1", n)
		}
	})

	t.Run("custom template wins, missing falls back", func(t *testing.T) {
		t.Parallel()

		r, err := NewAssetResolver(tmplDir, staticDir)
		if err != nil {
			t.Fatal(err)
		}
		got, err := r.LoadTemplate(TemplateIndex)
		if err != nil || !strings.Contains(got, "mine") {
			t.Errorf("LoadTemplate(index) = %q, %v", got, err)
		}
		got, err = r.LoadTemplate(TemplateNotebook)
		if err != nil || !strings.Contains(got, "Related notebooks") {
			t.Errorf("LoadTemplate(notebook) fallback = %q, %v", got, err)
		}
		if _, err := r.LoadTemplate("../x"); !errors.Is(err, ErrInvalidAssetName) {
			t.Errorf("LoadTemplate(../x) error = %v, want ErrInvalidAssetName", err)
		}
	})

	t.Run("static overlay is last", func(t *testing.T) {
		t.Parallel()

		r, err := NewAssetResolver("", staticDir)
		if err != nil {
			t.Fatal(err)
		}
		layers := r.StaticLayers()
		if len(layers) != 2 {
			t.Fatalf("StaticLayers() = %d layers, want 2", len(layers))
		}
		if _, err := fs.Stat(layers[1], "logo.svg"); err != nil {
			t.Errorf("overlay missing logo.svg: %v", err)
		}
	})

	t.Run("invalid dir", func(t *testing.T) {
		t.Parallel()

		_, err := NewAssetResolver(filepath.Join(tmplDir, "missing"), "")
		if !errors.Is(err, ErrInvalidBasePath) {
			t.Errorf("NewAssetResolver() error = %v, want ErrInvalidBasePath", err)
		}
	})
}
