package assets

import (
	"errors"
	"io/fs"
)

// AssetResolver combines user directories with the embedded assets. Custom
// templates win by name; static files are layered embedded-first.
type AssetResolver struct {
	embedded  *EmbeddedLoader
	templates *FilesystemLoader // nil when no templates dir is configured
	static    *FilesystemLoader // nil when no static dir is configured
}

// NewAssetResolver creates an AssetResolver. Empty paths disable the
// corresponding override. A non-empty path that is not a readable directory
// is an error.
func NewAssetResolver(templatesDir, staticDir string) (*AssetResolver, error) {
	r := &AssetResolver{embedded: NewEmbeddedLoader()}

	if templatesDir != "" {
		l, err := NewFilesystemLoader(templatesDir)
		if err != nil {
			return nil, err
		}
		r.templates = l
	}
	if staticDir != "" {
		l, err := NewFilesystemLoader(staticDir)
		if err != nil {
			return nil, err
		}
		r.static = l
	}
	return r, nil
}

// LoadTemplate loads a template, trying the custom directory first.
func (r *AssetResolver) LoadTemplate(name string) (string, error) {
	if r.templates == nil {
		return r.embedded.LoadTemplate(name)
	}

	content, err := r.templates.LoadTemplate(name)
	if err == nil {
		return content, nil
	}
	// Only a missing file falls back; validation and I/O errors surface.
	if !errors.Is(err, ErrTemplateNotFound) {
		return "", err
	}
	return r.embedded.LoadTemplate(name)
}

// StaticLayers returns the static file systems in copy order.
func (r *AssetResolver) StaticLayers() []fs.FS {
	layers := []fs.FS{r.embedded.Static()}
	if r.static != nil {
		layers = append(layers, r.static.FS())
	}
	return layers
}

// HasCustomTemplates reports whether a templates directory is configured.
func (r *AssetResolver) HasCustomTemplates() bool {
	return r.templates != nil
}

// Compile-time interface check.
var _ TemplateLoader = (*AssetResolver)(nil)
