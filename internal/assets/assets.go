package assets

import "io/fs"

// defaultLoader is the package-level embedded loader.
var defaultLoader = NewEmbeddedLoader()

// LoadTemplate loads an embedded template by name.
func LoadTemplate(name string) (string, error) {
	return defaultLoader.LoadTemplate(name)
}

// Static returns the embedded static files.
func Static() fs.FS {
	return defaultLoader.Static()
}
