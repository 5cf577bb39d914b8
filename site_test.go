package nbgallery

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// siteFixture builds an output directory as Build would leave it.
func siteFixture(t *testing.T) (string, CollectionIndex) {
	t.Helper()

	out := t.TempDir()
	index := CollectionIndex{
		{
			Title:        "Intro to Data",
			Description:  "Basics of **loading** data.",
			Tags:         []string{"intro", "data"},
			Date:         "2023-05-15",
			LastModified: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		},
		{
			Title:        "Charts",
			Description:  strings.Repeat("x", 101),
			Tags:         []string{"viz", "data"},
			LastModified: time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC),
		},
		{
			Title:        "Lonely",
			Description:  strings.Repeat("y", 100),
			Tags:         []string{},
			LastModified: time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC),
		},
	}
	for i, name := range []string{"intro.py", "charts.py", "lonely.py"} {
		PathLayout{}.Apply(&index[i], name)
		writeFile(t, outPath(out, index[i].StaticHTMLPath), validExport)
		writeFile(t, outPath(out, index[i].NotebookPath), "import marimo\napp = marimo.App()\n")
	}
	return out, index
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return string(data)
}

// ---------------------------------------------------------------------------
// Truncate
// ---------------------------------------------------------------------------

func TestTruncate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		n    int
		want string
	}{
		{"shorter", "abc", 5, "abc"},
		{"exactly n", strings.Repeat("a", 100), 100, strings.Repeat("a", 100)},
		{"one over", strings.Repeat("a", 101), 100, strings.Repeat("a", 100) + "..."},
		{"counts runes", "héllo wörld", 5, "héllo..."},
		{"empty", "", 100, ""},
		{"non-positive n", "abc", 0, "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := Truncate(tt.text, tt.n); got != tt.want {
				t.Errorf("Truncate() = %q, want %q", got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// NewSite
// ---------------------------------------------------------------------------

func TestNewSite_Errors(t *testing.T) {
	t.Parallel()

	t.Run("bad date format", func(t *testing.T) {
		t.Parallel()

		if _, err := NewSite(WithDateFormat("[YYYY")); err == nil {
			t.Error("expected error for an unclosed bracket")
		}
	})

	t.Run("missing templates dir", func(t *testing.T) {
		t.Parallel()

		_, err := NewSite(WithAssetDirs(filepath.Join(t.TempDir(), "nope"), ""))
		if !errors.Is(err, ErrInvalidAssets) {
			t.Errorf("expected ErrInvalidAssets, got %v", err)
		}
	})

	t.Run("template syntax error", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "index.html"), `{{define "content"}}{{.Broken{{end}}`)
		_, err := NewSite(WithAssetDirs(dir, ""))
		if !errors.Is(err, ErrTemplateRender) {
			t.Errorf("expected ErrTemplateRender, got %v", err)
		}
	})
}

// ---------------------------------------------------------------------------
// Generate
// ---------------------------------------------------------------------------

func TestSite_Generate(t *testing.T) {
	t.Parallel()

	out, index := siteFixture(t)
	site, err := NewSite(WithSiteInfo(SiteInfo{Title: "Lab Notebooks", Description: "Team analyses"}))
	if err != nil {
		t.Fatalf("NewSite: %v", err)
	}
	if err := site.Generate(context.Background(), index, out); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	t.Run("listing page", func(t *testing.T) {
		listing := readFile(t, filepath.Join(out, ListingPage))
		for _, want := range []string{
			"<title>Lab Notebooks</title>",
			`data-tag="data"`,
			`data-tag="intro"`,
			`data-tag="viz"`,
			`href="view_intro.html"`,
			`data-tags="intro,data"`,
			strings.Repeat("x", 100) + "...",
			strings.Repeat("y", 100) + "</p>",
			"Updated 2024-01-02",
		} {
			if !strings.Contains(listing, want) {
				t.Errorf("listing should contain %q", want)
			}
		}
		if strings.Contains(listing, strings.Repeat("x", 101)) {
			t.Error("long description should be truncated")
		}
	})

	t.Run("detail page", func(t *testing.T) {
		page := readFile(t, filepath.Join(out, "view_intro.html"))
		for _, want := range []string{
			"<title>Intro to Data | Lab Notebooks</title>",
			"<strong>loading</strong>",
			`href="notebooks/intro.html"`,
			`href="notebooks/intro.py" download`,
			`href="view_charts.html"`,
			`class="chroma"`,
		} {
			if !strings.Contains(page, want) {
				t.Errorf("detail page should contain %q", want)
			}
		}
		if strings.Contains(page, "Static version") {
			t.Error("static link should only appear with an interactive export")
		}
	})

	t.Run("no related section without shared tags", func(t *testing.T) {
		page := readFile(t, filepath.Join(out, "view_lonely.html"))
		if strings.Contains(page, "Related notebooks") {
			t.Error("lonely notebook should have no related section")
		}
	})

	t.Run("static files", func(t *testing.T) {
		for _, name := range []string{"style.css", "gallery.js", highlightCSSFile} {
			if _, err := os.Stat(filepath.Join(out, StaticDir, name)); err != nil {
				t.Errorf("missing static/%s: %v", name, err)
			}
		}
	})

	t.Run("no sitemap without base URL", func(t *testing.T) {
		if _, err := os.Stat(filepath.Join(out, SitemapFile)); !os.IsNotExist(err) {
			t.Error("sitemap.xml should not be written")
		}
	})
}

func TestSite_Generate_EmptyTag(t *testing.T) {
	t.Parallel()

	out, index := siteFixture(t)
	// "# Tags: intro, data," keeps an empty piece by default.
	index[0].Tags = []string{"intro", "data", ""}

	site, err := NewSite()
	if err != nil {
		t.Fatal(err)
	}
	if err := site.Generate(context.Background(), index, out); err != nil {
		t.Fatal(err)
	}

	listing := readFile(t, filepath.Join(out, ListingPage))
	if n := strings.Count(listing, `data-tag=""`); n != 1 {
		t.Errorf("listing has %d buttons with data-tag=\"\", want only the All button", n)
	}
	if strings.Contains(listing, "<li></li>") {
		t.Error("listing renders an empty tag")
	}

	page := readFile(t, filepath.Join(out, "view_intro.html"))
	if strings.Contains(page, `href="index.html#tag="`) {
		t.Error("detail page links an empty tag")
	}
	if !strings.Contains(page, `href="index.html#tag=intro"`) {
		t.Error("detail page should still link real tags")
	}
}

func TestSite_Generate_RemovesStalePages(t *testing.T) {
	t.Parallel()

	out, index := siteFixture(t)
	writeFile(t, filepath.Join(out, "view_deleted.html"), "<html>old</html>")
	writeFile(t, filepath.Join(out, "about.html"), "<html>mine</html>")

	site, err := NewSite()
	if err != nil {
		t.Fatal(err)
	}
	if err := site.Generate(context.Background(), index, out); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(filepath.Join(out, "view_deleted.html")); !os.IsNotExist(err) {
		t.Error("detail page of a removed notebook should be deleted")
	}
	for _, name := range []string{"about.html", "view_intro.html", ListingPage} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Errorf("%s should survive: %v", name, err)
		}
	}
}

func TestSite_Generate_Options(t *testing.T) {
	t.Parallel()

	t.Run("sitemap and robots with base URL", func(t *testing.T) {
		t.Parallel()

		out, index := siteFixture(t)
		site, err := NewSite(WithSiteInfo(SiteInfo{Title: "G", BaseURL: "https://example.org/gallery/"}))
		if err != nil {
			t.Fatal(err)
		}
		if err := site.Generate(context.Background(), index, out); err != nil {
			t.Fatal(err)
		}
		sitemap := readFile(t, filepath.Join(out, SitemapFile))
		if !strings.Contains(sitemap, "<loc>https://example.org/gallery/view_charts.html</loc>") {
			t.Errorf("unexpected sitemap:\n%s", sitemap)
		}
		robots := readFile(t, filepath.Join(out, RobotsFile))
		if !strings.Contains(robots, "Sitemap: https://example.org/gallery/sitemap.xml") {
			t.Errorf("unexpected robots.txt:\n%s", robots)
		}
	})

	t.Run("source hidden", func(t *testing.T) {
		t.Parallel()

		out, index := siteFixture(t)
		site, err := NewSite(WithSource(false))
		if err != nil {
			t.Fatal(err)
		}
		if err := site.Generate(context.Background(), index, out); err != nil {
			t.Fatal(err)
		}
		if page := readFile(t, filepath.Join(out, "view_intro.html")); strings.Contains(page, `class="source"`) {
			t.Error("source section should be hidden")
		}
	})

	t.Run("summary length and date format", func(t *testing.T) {
		t.Parallel()

		out, index := siteFixture(t)
		site, err := NewSite(WithSummaryLength(10), WithDateFormat("DD/MM/YYYY"))
		if err != nil {
			t.Fatal(err)
		}
		if err := site.Generate(context.Background(), index, out); err != nil {
			t.Fatal(err)
		}
		listing := readFile(t, filepath.Join(out, ListingPage))
		if !strings.Contains(listing, strings.Repeat("x", 10)+"...") {
			t.Error("summary should be cut at 10 runes")
		}
		if !strings.Contains(listing, "Updated 02/01/2024") {
			t.Error("custom date format not applied")
		}
	})

	t.Run("pdf link when present", func(t *testing.T) {
		t.Parallel()

		out, index := siteFixture(t)
		writeFile(t, outPath(out, PDFPath(index[0])), "%PDF-1.7")
		site, err := NewSite()
		if err != nil {
			t.Fatal(err)
		}
		if err := site.Generate(context.Background(), index, out); err != nil {
			t.Fatal(err)
		}
		if page := readFile(t, filepath.Join(out, "view_intro.html")); !strings.Contains(page, `href="notebooks/intro.pdf"`) {
			t.Error("PDF link missing")
		}
		if page := readFile(t, filepath.Join(out, "view_charts.html")); strings.Contains(page, ".pdf") {
			t.Error("PDF link shown without a PDF")
		}
	})

	t.Run("empty index", func(t *testing.T) {
		t.Parallel()

		out := t.TempDir()
		site, err := NewSite()
		if err != nil {
			t.Fatal(err)
		}
		if err := site.Generate(context.Background(), CollectionIndex{}, out); err != nil {
			t.Fatal(err)
		}
		if listing := readFile(t, filepath.Join(out, ListingPage)); !strings.Contains(listing, "No notebooks yet.") {
			t.Error("empty listing should say so")
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		out, index := siteFixture(t)
		site, err := NewSite()
		if err != nil {
			t.Fatal(err)
		}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := site.Generate(ctx, index, out); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestSite_Generate_CustomAssets(t *testing.T) {
	t.Parallel()

	out, index := siteFixture(t)
	templates := t.TempDir()
	static := t.TempDir()
	writeFile(t, filepath.Join(templates, "index.html"),
		`{{define "content"}}<ol>{{range .Notebooks}}<li class="custom">{{.Title}}</li>{{end}}</ol>{{end}}`)
	writeFile(t, filepath.Join(static, "style.css"), "body { color: red; }")
	writeFile(t, filepath.Join(static, "logo.svg"), "<svg/>")

	// Leftovers from a previous run are removed.
	writeFile(t, filepath.Join(out, StaticDir, "stale.css"), "old")

	site, err := NewSite(WithAssetDirs(templates, static))
	if err != nil {
		t.Fatalf("NewSite: %v", err)
	}
	if err := site.Generate(context.Background(), index, out); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if listing := readFile(t, filepath.Join(out, ListingPage)); strings.Count(listing, `class="custom"`) != 3 {
		t.Errorf("custom listing template not used:\n%s", listing)
	}
	if page := readFile(t, filepath.Join(out, "view_intro.html")); !strings.Contains(page, "Related notebooks") {
		t.Error("detail page should fall back to the embedded template")
	}
	if css := readFile(t, filepath.Join(out, StaticDir, "style.css")); css != "body { color: red; }" {
		t.Errorf("style.css not overridden: %q", css)
	}
	for _, name := range []string{"logo.svg", "gallery.js"} {
		if _, err := os.Stat(filepath.Join(out, StaticDir, name)); err != nil {
			t.Errorf("missing static/%s: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(out, StaticDir, "stale.css")); !os.IsNotExist(err) {
		t.Error("stale static file should be removed")
	}
}
