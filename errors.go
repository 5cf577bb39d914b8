package nbgallery

import "errors"

// Sentinel errors for library operations.
var (
	// Extraction errors are fatal to a run.
	ErrReadNotebook     = errors.New("failed to read notebook")
	ErrNotebookEncoding = errors.New("notebook is not valid UTF-8")

	// Converter errors. Whether they abort the run is a Builder policy.
	ErrConvert          = errors.New("notebook conversion failed")
	ErrConvertOutput    = errors.New("converter produced no usable HTML")
	ErrConverterMissing = errors.New("converter command not found")
	ErrConvertTimeout   = errors.New("notebook conversion timed out")

	// Index errors.
	ErrIndexNotFound = errors.New("index not found")
	ErrInvalidIndex  = errors.New("invalid index")

	// Site errors.
	ErrNotebooksDir   = errors.New("invalid notebooks directory")
	ErrTemplateRender = errors.New("template rendering failed")
	ErrInvalidAssets  = errors.New("invalid assets")

	// Snapshot errors. Snapshots are best-effort and never fail a build.
	ErrBrowserConnect = errors.New("failed to connect to browser")
	ErrPageLoad       = errors.New("failed to load page")
	ErrSnapshot       = errors.New("snapshot failed")
)
