package pipeline

import (
	"errors"
	"fmt"
	"io"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrNotHTMLDocument indicates exported content is not a complete HTML page.
var ErrNotHTMLDocument = errors.New("not an HTML document")

// CheckDocument reads an exported page and verifies it declares an <html>
// element. html.Parse would synthesize one for any input, so the raw token
// stream is inspected instead.
func CheckDocument(r io.Reader) error {
	z := html.NewTokenizer(r)
	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); err != io.EOF {
				return fmt.Errorf("%w: %v", ErrNotHTMLDocument, err)
			}
			return fmt.Errorf("%w: no <html> element", ErrNotHTMLDocument)
		case html.StartTagToken:
			name, _ := z.TagName()
			if atom.Lookup(name) == atom.Html {
				return nil
			}
		}
	}
}
