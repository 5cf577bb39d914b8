package main

import (
	"errors"
	"os"

	"github.com/alnah/go-nbgallery"
	"github.com/alnah/go-nbgallery/internal/config"
	"github.com/alnah/go-nbgallery/internal/dateutil"
	"github.com/alnah/go-nbgallery/internal/hints"
)

// Exit codes for the nbgallery CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess = 0 // Site built
	ExitGeneral = 1 // General/unexpected error
	ExitUsage   = 2 // Invalid flags, config, or templates
	ExitIO      = 3 // Missing notebooks, unreadable files, missing index
	ExitTool    = 4 // Converter or browser errors
)

// ErrUsage marks command line mistakes.
var ErrUsage = errors.New("usage error")

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// External tools (exit 4)
	if errors.Is(err, nbgallery.ErrConvert) ||
		errors.Is(err, nbgallery.ErrConvertOutput) ||
		errors.Is(err, nbgallery.ErrConverterMissing) ||
		errors.Is(err, nbgallery.ErrConvertTimeout) ||
		errors.Is(err, nbgallery.ErrBrowserConnect) ||
		errors.Is(err, nbgallery.ErrPageLoad) ||
		errors.Is(err, nbgallery.ErrSnapshot) {
		return ExitTool
	}

	// I/O errors (exit 3)
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, nbgallery.ErrReadNotebook) ||
		errors.Is(err, nbgallery.ErrNotebookEncoding) ||
		errors.Is(err, nbgallery.ErrNotebooksDir) ||
		errors.Is(err, nbgallery.ErrIndexNotFound) ||
		errors.Is(err, nbgallery.ErrInvalidIndex) {
		return ExitIO
	}

	// Usage/config/template errors (exit 2)
	if errors.Is(err, ErrUsage) ||
		errors.Is(err, ErrUnsupportedShell) ||
		errors.Is(err, ErrConfigExists) ||
		errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrEmptyConfigName) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrConfigInvalid) ||
		errors.Is(err, dateutil.ErrInvalidDateFormat) ||
		errors.Is(err, nbgallery.ErrInvalidAssets) ||
		errors.Is(err, nbgallery.ErrTemplateRender) {
		return ExitUsage
	}

	return ExitGeneral
}

// hintedError appends an actionable hint to an error message.
type hintedError struct {
	err  error
	hint string
}

func (e *hintedError) Error() string { return e.err.Error() + e.hint }
func (e *hintedError) Unwrap() error { return e.err }

// withHint attaches the hint matching err, if any. command is the
// configured converter.
func withHint(err error, command string) error {
	var hint string
	switch {
	case err == nil:
		return nil
	case errors.Is(err, nbgallery.ErrConverterMissing):
		hint = hints.ForConverterNotFound(command)
	case errors.Is(err, nbgallery.ErrConvertTimeout):
		hint = hints.ForConverterTimeout()
	case errors.Is(err, nbgallery.ErrBrowserConnect):
		hint = hints.ForBrowserConnect()
	case errors.Is(err, nbgallery.ErrIndexNotFound):
		hint = hints.ForIndexNotFound()
	case errors.Is(err, config.ErrConfigNotFound):
		hint = hints.ForConfigNotFound(config.CandidatePaths(config.DefaultConfigName))
	case errors.Is(err, os.ErrPermission):
		hint = hints.ForOutputDirectory()
	}
	if hint == "" {
		return err
	}
	return &hintedError{err: err, hint: hint}
}
