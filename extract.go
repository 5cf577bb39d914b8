package nbgallery

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Metadata fields are comment lines such as "# Title: Intro to Data".
// Field names are matched case as written; the value runs to end of line.
var (
	titlePattern       = metadataPattern("Title")
	descriptionPattern = metadataPattern("Description")
	tagsPattern        = metadataPattern("Tags")
	datePattern        = metadataPattern("Date")
)

func metadataPattern(field string) *regexp.Regexp {
	return regexp.MustCompile(`(?m)^[ \t]*#[ \t]*` + field + `:[ \t]*(.*)$`)
}

// ExtractOptions tunes metadata extraction.
type ExtractOptions struct {
	// DropEmptyTags removes empty pieces, e.g. the trailing one in "a, b,".
	// Off by default: every piece is kept.
	DropEmptyTags bool
}

// Extract builds a record from a notebook's content. Missing fields fall
// back to defaults; extraction never fails. Path fields are left empty.
func Extract(filename string, content []byte, modTime time.Time, opts ExtractOptions) NotebookRecord {
	rec := NotebookRecord{
		Filename:     filename,
		Title:        DefaultTitle(filename),
		Tags:         []string{},
		LastModified: modTime.UTC(),
	}

	if v, ok := firstMatch(titlePattern, content); ok {
		rec.Title = v
	}
	if v, ok := firstMatch(descriptionPattern, content); ok {
		rec.Description = v
	}
	if v, ok := firstMatch(tagsPattern, content); ok {
		rec.Tags = splitTags(v, opts.DropEmptyTags)
	}
	if v, ok := firstMatch(datePattern, content); ok {
		rec.Date = v
	}
	return rec
}

// ExtractFile reads and extracts one notebook file. Unreadable files and
// content that is not UTF-8 are errors.
func ExtractFile(path string, opts ExtractOptions) (NotebookRecord, error) {
	info, err := os.Stat(path)
	if err != nil {
		return NotebookRecord{}, fmt.Errorf("%w: %v", ErrReadNotebook, err)
	}
	content, err := os.ReadFile(path) // #nosec G304 -- path comes from the notebooks directory listing
	if err != nil {
		return NotebookRecord{}, fmt.Errorf("%w: %v", ErrReadNotebook, err)
	}
	if !utf8.Valid(content) {
		return NotebookRecord{}, fmt.Errorf("%w: %s", ErrNotebookEncoding, path)
	}
	return Extract(filepath.Base(path), content, info.ModTime(), opts), nil
}

// DefaultTitle derives a title from a filename: the stem with underscores and
// hyphens turned into spaces, each word capitalized.
// "my_cool_analysis.py" gives "My Cool Analysis".
func DefaultTitle(filename string) string {
	stem := strings.NewReplacer("_", " ", "-", " ").Replace(Stem(filename))

	var b strings.Builder
	b.Grow(len(stem))
	prevLetter := false
	for _, r := range stem {
		if prevLetter {
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(unicode.ToUpper(r))
		}
		prevLetter = unicode.IsLetter(r)
	}
	return b.String()
}

func firstMatch(re *regexp.Regexp, content []byte) (string, bool) {
	m := re.FindSubmatch(content)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(string(m[1])), true
}

func splitTags(value string, dropEmpty bool) []string {
	parts := strings.Split(value, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" && dropEmpty {
			continue
		}
		tags = append(tags, p)
	}
	return tags
}
