package nbgallery

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func sampleIndex() CollectionIndex {
	layout := PathLayout{Thumbnails: true}
	a := NotebookRecord{
		Title:        "Intro to Data",
		Description:  "Basics",
		Tags:         []string{"intro", "data"},
		Date:         "2023-05-15",
		LastModified: time.Date(2024, 1, 2, 3, 4, 5, 600, time.UTC),
	}
	layout.Apply(&a, "intro.py")
	b := NotebookRecord{
		Title:        "Sales",
		Tags:         []string{},
		LastModified: time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC),
	}
	PathLayout{}.Apply(&b, "sales.py")
	return CollectionIndex{a, b}
}

// ---------------------------------------------------------------------------
// PathLayout
// ---------------------------------------------------------------------------

func TestPathLayout_Apply(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		layout PathLayout
		want   NotebookRecord
	}{
		{
			name:   "static only",
			layout: PathLayout{},
			want: NotebookRecord{
				Filename:       "my_nb.py",
				HTMLPath:       "notebooks/my_nb.html",
				StaticHTMLPath: "notebooks/my_nb.html",
				NotebookPath:   "notebooks/my_nb.py",
			},
		},
		{
			name:   "interactive with thumbnails",
			layout: PathLayout{Interactive: true, Thumbnails: true},
			want: NotebookRecord{
				Filename:       "my_nb.py",
				HTMLPath:       "notebooks/my_nb/index.html",
				StaticHTMLPath: "notebooks/my_nb.html",
				NotebookPath:   "notebooks/my_nb.py",
				ThumbnailPath:  "notebooks/my_nb.png",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := NotebookRecord{ThumbnailPath: "stale.png"}
			tt.layout.Apply(&rec, "my_nb.py")
			if diff := cmp.Diff(tt.want, rec); diff != "" {
				t.Errorf("Apply() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRecordPaths(t *testing.T) {
	t.Parallel()

	rec := NotebookRecord{Filename: "a.b.py"}
	if got := Stem(rec.Filename); got != "a.b" {
		t.Errorf("Stem = %q, want %q", got, "a.b")
	}
	if got := ViewPage(rec); got != "view_a.b.html" {
		t.Errorf("ViewPage = %q", got)
	}
	if got := PDFPath(rec); got != "notebooks/a.b.pdf" {
		t.Errorf("PDFPath = %q", got)
	}
}

// ---------------------------------------------------------------------------
// SaveIndex / LoadIndex
// ---------------------------------------------------------------------------

func TestIndex_RoundTrip(t *testing.T) {
	t.Parallel()

	path := IndexPath(t.TempDir())
	want := sampleIndex()

	if err := SaveIndex(path, want); err != nil {
		t.Fatalf("SaveIndex: %v", err)
	}
	got, err := LoadIndex(path)
	if err != nil {
		t.Fatalf("LoadIndex: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveIndex(t *testing.T) {
	t.Parallel()

	t.Run("nil tags become an empty array", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "index.json")
		index := CollectionIndex{{Filename: "a.py", Title: "A"}}
		if err := SaveIndex(path, index); err != nil {
			t.Fatal(err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(data), `"tags": []`) {
			t.Errorf("expected empty tags array, got:\n%s", data)
		}
		if index[0].Tags != nil {
			t.Error("SaveIndex modified its argument")
		}
	})

	t.Run("empty index", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "nested", "index.json")
		if err := SaveIndex(path, CollectionIndex{}); err != nil {
			t.Fatal(err)
		}
		got, err := LoadIndex(path)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 0 {
			t.Errorf("expected empty index, got %d records", len(got))
		}
	})
}

func TestLoadIndex_NotFound(t *testing.T) {
	t.Parallel()

	_, err := LoadIndex(filepath.Join(t.TempDir(), "missing.json"))
	if !errors.Is(err, ErrIndexNotFound) {
		t.Errorf("expected ErrIndexNotFound, got %v", err)
	}
}

func TestDecodeIndex_Invalid(t *testing.T) {
	t.Parallel()

	valid := `{"filename":"a.py","title":"A","description":"","tags":[],"date":"",` +
		`"last_modified":"2024-01-02T03:04:05Z","html_path":"notebooks/a.html",` +
		`"static_html_path":"notebooks/a.html","notebook_path":"notebooks/a.py"}`

	tests := []struct {
		name    string
		data    string
		wantMsg string
	}{
		{name: "not JSON", data: `{`},
		{name: "object instead of array", data: `{"filename":"a.py"}`},
		{name: "missing field", data: `[{"filename":"a.py"}]`, wantMsg: "title"},
		{name: "tags not an array", data: strings.Replace("["+valid+"]", `"tags":[]`, `"tags":"a,b"`, 1), wantMsg: "/0/tags"},
		{name: "bad timestamp", data: strings.Replace("["+valid+"]", "2024-01-02T03:04:05Z", "yesterday", 1), wantMsg: "/0/last_modified"},
		{name: "filename with slash", data: strings.Replace("["+valid+"]", `"filename":"a.py"`, `"filename":"../a.py"`, 1), wantMsg: "/0/filename"},
		{name: "unknown field", data: strings.Replace("["+valid+"]", `"date":""`, `"date":"","extra":1`, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := DecodeIndex([]byte(tt.data))
			if !errors.Is(err, ErrInvalidIndex) {
				t.Fatalf("expected ErrInvalidIndex, got %v", err)
			}
			if tt.wantMsg != "" && !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q should mention %q", err, tt.wantMsg)
			}
		})
	}

	t.Run("valid document", func(t *testing.T) {
		t.Parallel()

		index, err := DecodeIndex([]byte("[" + valid + "]"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(index) != 1 || index[0].Filename != "a.py" {
			t.Errorf("unexpected index: %+v", index)
		}
	})
}
