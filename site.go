package nbgallery

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/alnah/go-nbgallery/internal/assets"
	"github.com/alnah/go-nbgallery/internal/dateutil"
	"github.com/alnah/go-nbgallery/internal/fileutil"
	"github.com/alnah/go-nbgallery/internal/logger"
	"github.com/alnah/go-nbgallery/internal/pipeline"
)

// Site defaults.
const (
	DefaultSiteTitle     = "Notebook Gallery"
	DefaultSummaryLength = 100
	summaryEllipsis      = "..."
	highlightCSSFile     = "highlight.css"
	sourceLanguage       = "python"
)

// SiteInfo describes the gallery as a whole.
type SiteInfo struct {
	Title       string
	Description string
	BaseURL     string // enables sitemap.xml and robots.txt
}

// PageData holds the fields every page template sees.
type PageData struct {
	Site SiteInfo
	Tags []string
}

// IndexPageData is the template data of the listing page.
type IndexPageData struct {
	PageData
	Notebooks CollectionIndex
}

// NotebookPageData is the template data of a detail page.
type NotebookPageData struct {
	PageData
	Notebook    NotebookRecord
	Description template.HTML
	Related     []NotebookRecord
	Source      template.HTML // empty when the source is hidden or unreadable
	PDFPath     string        // empty when no PDF was written
}

// Site renders the listing page, the detail pages and the static files.
type Site struct {
	info          SiteInfo
	dateFormat    string
	relatedLimit  int
	summaryLength int
	showSource    bool
	templatesDir  string
	staticDir     string
	style         string
	now           func() time.Time
	log           logrus.FieldLogger

	resolver  *assets.AssetResolver
	renderer  *pipeline.Renderer
	templates map[string]*template.Template
}

// SiteOption configures a Site.
type SiteOption func(*Site)

// WithSiteInfo sets the title, description and base URL.
func WithSiteInfo(info SiteInfo) SiteOption {
	return func(s *Site) { s.info = info }
}

// WithDateFormat sets how last_modified is displayed (preset or pattern).
func WithDateFormat(format string) SiteOption {
	return func(s *Site) { s.dateFormat = format }
}

// WithRelatedLimit caps related notebooks per detail page.
func WithRelatedLimit(n int) SiteOption {
	return func(s *Site) { s.relatedLimit = n }
}

// WithSummaryLength sets the rune count after which summaries are cut.
func WithSummaryLength(n int) SiteOption {
	return func(s *Site) { s.summaryLength = n }
}

// WithSource toggles the highlighted source on detail pages.
func WithSource(show bool) SiteOption {
	return func(s *Site) { s.showSource = show }
}

// WithAssetDirs sets user directories overriding templates and overlaying
// static files. Empty strings keep the embedded assets.
func WithAssetDirs(templatesDir, staticDir string) SiteOption {
	return func(s *Site) {
		s.templatesDir = templatesDir
		s.staticDir = staticDir
	}
}

// WithHighlightStyle sets the chroma style of notebook sources.
func WithHighlightStyle(style string) SiteOption {
	return func(s *Site) { s.style = style }
}

// WithSiteLogger sets the logger.
func WithSiteLogger(log logrus.FieldLogger) SiteOption {
	return func(s *Site) { s.log = log }
}

// WithClock sets the time source used for sitemap fallbacks.
func WithClock(now func() time.Time) SiteOption {
	return func(s *Site) { s.now = now }
}

// NewSite creates a Site and parses its templates.
func NewSite(opts ...SiteOption) (*Site, error) {
	s := &Site{
		info:          SiteInfo{Title: DefaultSiteTitle},
		dateFormat:    dateutil.DefaultDateFormat,
		relatedLimit:  DefaultRelatedLimit,
		summaryLength: DefaultSummaryLength,
		showSource:    true,
		style:         pipeline.DefaultStyle,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Discard()
	}
	if s.summaryLength <= 0 {
		s.summaryLength = DefaultSummaryLength
	}
	if _, err := dateutil.Layout(s.dateFormat); err != nil {
		return nil, err
	}

	resolver, err := assets.NewAssetResolver(s.templatesDir, s.staticDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAssets, err)
	}
	s.resolver = resolver
	s.renderer = pipeline.NewRenderer(s.style)

	if err := s.parseTemplates(); err != nil {
		return nil, err
	}
	return s, nil
}

// parseTemplates builds one template set per page on top of the layout.
func (s *Site) parseTemplates() error {
	funcs := template.FuncMap{
		"join":       strings.Join,
		"lower":      strings.ToLower,
		"truncate":   func(text string) string { return Truncate(text, s.summaryLength) },
		"formatDate": s.formatDate,
		"viewPage":   ViewPage,
	}

	layoutSrc, err := s.resolver.LoadTemplate(assets.TemplateLayout)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAssets, err)
	}
	layout, err := template.New(assets.TemplateLayout).Funcs(funcs).Parse(layoutSrc)
	if err != nil {
		return fmt.Errorf("%w: parsing layout: %v", ErrTemplateRender, err)
	}

	s.templates = make(map[string]*template.Template, len(assets.PageTemplates))
	for _, name := range assets.PageTemplates {
		src, err := s.resolver.LoadTemplate(name)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidAssets, err)
		}
		t, err := layout.Clone()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrTemplateRender, err)
		}
		if _, err := t.New(name).Parse(src); err != nil {
			return fmt.Errorf("%w: parsing %s: %v", ErrTemplateRender, name, err)
		}
		s.templates[name] = t
	}
	return nil
}

// Generate writes the site for index into outputDir: index.html, one
// view_<stem>.html per record, static/ (replaced) and, with a base URL,
// sitemap.xml and robots.txt. Detail pages of records no longer in index are
// removed.
func (s *Site) Generate(ctx context.Context, index CollectionIndex, outputDir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	page := PageData{Site: s.info, Tags: CollectTags(index)}

	if err := s.writeStatic(outputDir); err != nil {
		return err
	}

	if err := s.writePage(filepath.Join(outputDir, ListingPage), assets.TemplateIndex, IndexPageData{
		PageData:  page,
		Notebooks: index,
	}); err != nil {
		return err
	}

	for _, rec := range index {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := s.notebookPage(ctx, page, index, rec, outputDir)
		if err != nil {
			return err
		}
		if err := s.writePage(filepath.Join(outputDir, ViewPage(rec)), assets.TemplateNotebook, data); err != nil {
			return err
		}
	}

	if err := s.pruneViewPages(index, outputDir); err != nil {
		return err
	}

	if s.info.BaseURL != "" {
		if err := fileutil.WriteFileAtomic(filepath.Join(outputDir, SitemapFile), []byte(buildSitemap(s.info.BaseURL, index, s.now()))); err != nil {
			return fmt.Errorf("writing sitemap: %w", err)
		}
		if err := fileutil.WriteFileAtomic(filepath.Join(outputDir, RobotsFile), []byte(buildRobots(s.info.BaseURL))); err != nil {
			return fmt.Errorf("writing robots.txt: %w", err)
		}
	}

	s.log.WithFields(logrus.Fields{
		"pages": len(index) + 1,
		"tags":  len(page.Tags),
		"dir":   outputDir,
	}).Info("site generated")
	return nil
}

func (s *Site) notebookPage(ctx context.Context, page PageData, index CollectionIndex, rec NotebookRecord, outputDir string) (NotebookPageData, error) {
	data := NotebookPageData{
		PageData: page,
		Notebook: rec,
		Related:  Related(index, rec, s.relatedLimit),
	}

	desc, err := s.renderer.Description(ctx, rec.Description)
	if err != nil {
		return data, fmt.Errorf("%w: %s: %v", ErrTemplateRender, rec.Filename, err)
	}
	data.Description = desc

	if s.showSource {
		src, err := os.ReadFile(outPath(outputDir, rec.NotebookPath)) // #nosec G304 -- path derived from record
		if err != nil {
			s.log.WithField("notebook", rec.Filename).WithError(err).Debug("source not shown")
		} else if data.Source, err = s.renderer.Source(ctx, src, sourceLanguage); err != nil {
			return data, fmt.Errorf("%w: %s: %v", ErrTemplateRender, rec.Filename, err)
		}
	}

	if pdf := PDFPath(rec); fileutil.FileExists(outPath(outputDir, pdf)) {
		data.PDFPath = pdf
	}
	return data, nil
}

func (s *Site) writePage(path, name string, data any) error {
	var buf bytes.Buffer
	if err := s.templates[name].ExecuteTemplate(&buf, assets.TemplateLayout, data); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrTemplateRender, filepath.Base(path), err)
	}
	if err := fileutil.WriteFileAtomic(path, buf.Bytes()); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	return nil
}

// pruneViewPages removes detail pages of notebooks no longer in index.
func (s *Site) pruneViewPages(index CollectionIndex, outputDir string) error {
	current := make(map[string]bool, len(index))
	for _, rec := range index {
		current[ViewPage(rec)] = true
	}
	removed, err := fileutil.RemoveUnless(outputDir, func(name string) bool {
		return current[name] || !strings.HasPrefix(name, "view_") || !strings.HasSuffix(name, ".html")
	})
	if err != nil {
		return fmt.Errorf("removing stale pages: %w", err)
	}
	if len(removed) > 0 {
		s.log.WithField("pages", removed).Debug("removed stale detail pages")
	}
	return nil
}

// writeStatic replaces outputDir/static with the embedded files, the user
// overlay and the highlight stylesheet.
func (s *Site) writeStatic(outputDir string) error {
	dir := filepath.Join(outputDir, StaticDir)
	if err := fileutil.ReplaceDir(dir, s.resolver.StaticLayers()...); err != nil {
		return fmt.Errorf("copying static files: %w", err)
	}

	var css bytes.Buffer
	if err := s.renderer.WriteCSS(&css); err != nil {
		return err
	}
	if err := fileutil.WriteFileAtomic(filepath.Join(dir, highlightCSSFile), css.Bytes()); err != nil {
		return fmt.Errorf("writing %s: %w", highlightCSSFile, err)
	}
	return nil
}

func (s *Site) formatDate(t time.Time) string {
	out, err := dateutil.Format(t, s.dateFormat)
	if err != nil {
		return ""
	}
	return out
}

// Truncate cuts text to n runes followed by "..." when it is longer than n.
// Text of exactly n runes is returned unchanged.
func Truncate(text string, n int) string {
	if n <= 0 || utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)
	return string(runes[:n]) + summaryEllipsis
}
