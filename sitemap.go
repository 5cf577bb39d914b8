package nbgallery

import (
	"encoding/xml"
	"sort"
	"strings"
	"time"
)

type sitemapEntry struct {
	Location string
	LastMod  time.Time
}

// buildSitemap lists the listing page and every detail page under baseURL.
// The listing's lastmod is the newest notebook, or fallback for an empty index.
func buildSitemap(baseURL string, index CollectionIndex, fallback time.Time) string {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")

	newest := time.Time{}
	entries := make([]sitemapEntry, 0, len(index)+1)
	seen := map[string]struct{}{}
	for _, rec := range index {
		loc := base + "/" + ViewPage(rec)
		if _, ok := seen[loc]; ok {
			continue
		}
		seen[loc] = struct{}{}
		entries = append(entries, sitemapEntry{Location: loc, LastMod: rec.LastModified})
		if rec.LastModified.After(newest) {
			newest = rec.LastModified
		}
	}
	if newest.IsZero() {
		newest = fallback
	}
	entries = append(entries, sitemapEntry{Location: base + "/", LastMod: newest})

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Location < entries[j].Location
	})

	var b strings.Builder
	b.WriteString(xml.Header)
	b.WriteString(`<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">` + "\n")
	for _, e := range entries {
		b.WriteString("  <url>\n    <loc>")
		_ = xml.EscapeText(&b, []byte(e.Location))
		b.WriteString("</loc>\n")
		if !e.LastMod.IsZero() {
			b.WriteString("    <lastmod>" + e.LastMod.UTC().Format(time.RFC3339) + "</lastmod>\n")
		}
		b.WriteString("  </url>\n")
	}
	b.WriteString("</urlset>\n")
	return b.String()
}

// buildRobots allows everything and points crawlers at the sitemap.
func buildRobots(baseURL string) string {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	return "User-agent: *\nAllow: /\n\nSitemap: " + base + "/" + SitemapFile + "\n"
}
