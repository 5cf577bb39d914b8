// Package pipeline holds the HTML stages around notebook pages:
//   - Markdown rendering of notebook descriptions via Goldmark
//   - Syntax-highlighted notebook sources via chroma
//   - Verification that an exported page is an HTML document
//
// Page layout and templates live in the root nbgallery package; this package
// only produces fragments and checks documents.
package pipeline
