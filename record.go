package nbgallery

import (
	"path"
	"path/filepath"
	"strings"
	"time"
)

// Output layout, relative to the site root. Paths stored in records use
// forward slashes since they double as URLs.
const (
	NotebooksDir = "notebooks"
	IndexFile    = "index.json"
	StaticDir    = "static"
	ListingPage  = "index.html"
	SitemapFile  = "sitemap.xml"
	RobotsFile   = "robots.txt"
)

// NotebookRecord describes one notebook of the gallery.
type NotebookRecord struct {
	Filename       string    `json:"filename"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Tags           []string  `json:"tags"`
	Date           string    `json:"date"`
	LastModified   time.Time `json:"last_modified"`
	HTMLPath       string    `json:"html_path"`
	StaticHTMLPath string    `json:"static_html_path"`
	NotebookPath   string    `json:"notebook_path"`
	ThumbnailPath  string    `json:"thumbnail_path,omitempty"`
}

// CollectionIndex is the ordered list of records produced by one build.
type CollectionIndex []NotebookRecord

// Stem returns filename without its extension.
func Stem(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ViewPage returns the detail page name of a record.
func ViewPage(rec NotebookRecord) string {
	return "view_" + Stem(rec.Filename) + ".html"
}

// PathLayout derives the output locations of a record from its filename.
type PathLayout struct {
	Interactive bool // html_path points at the html-wasm export
	Thumbnails  bool // thumbnail_path is set
}

// Apply sets filename and every derived path of rec.
func (l PathLayout) Apply(rec *NotebookRecord, filename string) {
	stem := Stem(filename)

	rec.Filename = filename
	rec.StaticHTMLPath = path.Join(NotebooksDir, stem+".html")
	rec.HTMLPath = rec.StaticHTMLPath
	if l.Interactive {
		rec.HTMLPath = path.Join(NotebooksDir, stem, "index.html")
	}
	rec.NotebookPath = path.Join(NotebooksDir, filename)
	rec.ThumbnailPath = ""
	if l.Thumbnails {
		rec.ThumbnailPath = path.Join(NotebooksDir, stem+".png")
	}
}

// PDFPath returns where the snapshot PDF of rec is written.
func PDFPath(rec NotebookRecord) string {
	return path.Join(NotebooksDir, Stem(rec.Filename)+".pdf")
}
