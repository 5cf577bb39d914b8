package assets

// Template names shipped with the gallery.
const (
	TemplateLayout   = "layout"
	TemplateIndex    = "index"
	TemplateNotebook = "notebook"
)

// PageTemplates lists the page templates rendered on top of TemplateLayout.
var PageTemplates = []string{TemplateIndex, TemplateNotebook}

// TemplateLoader loads HTML templates by name (without the .html extension).
type TemplateLoader interface {
	// LoadTemplate returns ErrTemplateNotFound if the template doesn't exist
	// and ErrInvalidAssetName if the name contains invalid characters.
	LoadTemplate(name string) (string, error)
}
