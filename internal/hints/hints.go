// Package hints provides actionable error hints for common failure scenarios.
// Hints are formatted consistently as "\n  hint: <text>" for appending to error messages.
package hints

import (
	"os"
	"strings"

	"github.com/alnah/go-nbgallery/internal/fileutil"
)

// IsInContainer reports whether we run inside Docker (or similar).
var IsInContainer = func() bool {
	return fileutil.FileExists("/.dockerenv")
}

// inCI reports whether a common CI environment variable is set.
func inCI() bool {
	for _, v := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL"} {
		if os.Getenv(v) != "" {
			return true
		}
	}
	return false
}

// ForConverterNotFound returns hints when the notebook converter binary is missing.
func ForConverterNotFound(command string) string {
	hints := []string{"install it with `pip install marimo`"}
	if command != "" && command != "marimo" {
		hints = []string{"check converter.command (" + command + ") is on PATH"}
	}
	if inCI() {
		hints = append(hints, "add a setup step installing marimo before the build")
	}
	return formatHints(hints)
}

// ForConverterTimeout returns a hint about raising the converter timeout.
func ForConverterTimeout() string {
	return format("slow notebooks need a larger converter.timeout (or 0 to disable)")
}

// ForBrowserConnect returns hints for headless Chrome connection errors
// raised while taking snapshots.
func ForBrowserConnect() string {
	var hints []string

	if (inCI() || IsInContainer()) && os.Getenv("ROD_NO_SANDBOX") != "1" {
		hints = append(hints, "set ROD_NO_SANDBOX=1 for Docker/CI")
	}
	if os.Getenv("ROD_BROWSER_BIN") == "" {
		hints = append(hints, "set ROD_BROWSER_BIN to use custom Chrome")
	}
	hints = append(hints, "or disable snapshot.enabled")

	return formatHints(hints)
}

// ForConfigNotFound suggests --config or creating a file in one of the searched paths.
func ForConfigNotFound(searchedPaths []string) string {
	hint := "use --config /path/to/nbgallery.yaml or run `nbgallery init`"
	for _, p := range searchedPaths {
		if strings.Contains(p, "nbgallery"+string(os.PathSeparator)) {
			hint += " or create " + p
			break
		}
	}
	return format(hint)
}

// ForOutputDirectory returns hints for output directory creation errors.
func ForOutputDirectory() string {
	return format("check parent directory exists and is writable")
}

// ForIndexNotFound returns a hint when generate runs before process.
func ForIndexNotFound() string {
	return format("run `nbgallery process` (or `nbgallery build`) first")
}

func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}

func formatHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	return format(strings.Join(hints, "; "))
}
