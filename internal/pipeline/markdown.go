package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// ErrRender indicates a description or source block could not be rendered.
var ErrRender = errors.New("rendering failed")

// DefaultStyle is the chroma style used for notebook sources.
const DefaultStyle = "github"

// Renderer turns notebook descriptions and sources into HTML fragments for
// the detail pages. It is safe for concurrent use.
type Renderer struct {
	md    goldmark.Markdown
	style *chroma.Style
}

// NewRenderer creates a Renderer highlighting with the named chroma style.
// Unknown names fall back to chroma's default style.
func NewRenderer(style string) *Renderer {
	if style == "" {
		style = DefaultStyle
	}
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithStyle(style),
				highlighting.WithFormatOptions(
					chromahtml.WithClasses(true),
					chromahtml.WithLineNumbers(true),
				),
			),
		),
		// Raw HTML in descriptions is dropped, never passed through.
		goldmark.WithRendererOptions(html.WithXHTML()),
	)
	return &Renderer{md: md, style: styles.Get(style)}
}

// Description renders a one-line notebook description as Markdown.
func (r *Renderer) Description(ctx context.Context, text string) (template.HTML, error) {
	if text == "" {
		return "", nil
	}
	out, err := r.convert(ctx, []byte(NormalizeText(text)))
	if err != nil {
		return "", err
	}
	return template.HTML(out), nil // #nosec G203 -- goldmark output without WithUnsafe
}

// Source renders notebook source code as a highlighted <pre> block.
func (r *Renderer) Source(ctx context.Context, source []byte, lang string) (template.HTML, error) {
	out, err := r.convert(ctx, FencedBlock(source, lang))
	if err != nil {
		return "", err
	}
	return template.HTML(out), nil // #nosec G203 -- chroma escapes code tokens
}

// WriteCSS writes the stylesheet matching the classes emitted by Source.
func (r *Renderer) WriteCSS(w io.Writer) error {
	formatter := chromahtml.New(
		chromahtml.WithClasses(true),
		chromahtml.WithLineNumbers(true),
	)
	if err := formatter.WriteCSS(w, r.style); err != nil {
		return fmt.Errorf("%w: writing highlight css: %v", ErrRender, err)
	}
	return nil
}

// convert runs goldmark with cancellation. Goldmark itself ignores contexts,
// so the conversion runs in a goroutine and the caller may stop waiting.
func (r *Renderer) convert(ctx context.Context, src []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	type result struct {
		html string
		err  error
	}
	done := make(chan result, 1)

	go func() {
		var buf bytes.Buffer
		if err := r.md.Convert(src, &buf); err != nil {
			done <- result{err: fmt.Errorf("%w: %v", ErrRender, err)}
			return
		}
		done <- result{html: buf.String()}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-done:
		return res.html, res.err
	}
}
