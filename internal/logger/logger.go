// Package logger builds the logrus loggers used by the CLI and the build stages.
package logger

import (
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// New returns a text logger writing to w at the given level
// ("debug", "info", "warn", "error").
func New(w io.Writer, level string) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return nil, err
	}

	log := logrus.New()
	log.SetOutput(w)
	log.SetLevel(lvl)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:          true,
		DisableLevelTruncation: true,
	})
	return log, nil
}

// Discard returns a logger that drops every entry.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	log.SetLevel(logrus.PanicLevel)
	return log
}

// Level maps the CLI verbosity switches to a level name.
// quiet wins over verbose.
func Level(base string, quiet, verbose bool) string {
	switch {
	case quiet:
		return "error"
	case verbose:
		return "debug"
	case base == "":
		return "info"
	}
	return base
}
