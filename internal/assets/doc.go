// Package assets provides the HTML templates and static files of the gallery.
//
// # Loader Architecture
//
//	TemplateLoader (interface)
//	    │
//	    ├── EmbeddedLoader    - templates and static files compiled in with go:embed
//	    ├── FilesystemLoader  - a user directory on disk
//	    └── AssetResolver     - custom-first lookup with embedded fallback
//
// Templates are looked up by name ("layout", "index", "notebook"), so a user
// directory may override just one page and inherit the rest.
//
// Static files are layered rather than resolved one by one: the embedded set
// is written first and a user static directory is copied over it.
//
// # Directory Structure
//
//	{templatesDir}/
//	├── layout.html      # page skeleton, defines "layout"
//	├── index.html       # listing page, defines "title" and "content"
//	└── notebook.html    # detail page, defines "title" and "content"
//
//	{staticDir}/
//	└── ...              # copied verbatim into <output>/static
//
// # Security
//
// Template names are validated to prevent path traversal. FilesystemLoader
// resolves symlinks and verifies paths stay within its base directory.
package assets
