package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/alnah/go-nbgallery"
	"github.com/alnah/go-nbgallery/internal/config"
)

// DefaultDotEnv is read for NBGALLERY_* variables unless disabled.
const DefaultDotEnv = ".env"

// Environment holds injectable dependencies for testability.
// Includes I/O, time, environment lookup and the external tools.
type Environment struct {
	Now       func() time.Time
	Stdout    io.Writer
	Stderr    io.Writer
	LookupEnv func(string) (string, bool)
	DotEnv    string // "" skips the .env file

	// Runner executes the notebook converter. nil runs real processes.
	Runner nbgallery.CommandRunner
	// NewSnapshotter builds the thumbnail renderer when snapshots are enabled.
	NewSnapshotter func(config.SnapshotConfig) nbgallery.Snapshotter
}

// DefaultEnv returns the production environment.
func DefaultEnv() *Environment {
	return &Environment{
		Now:            time.Now,
		Stdout:         os.Stdout,
		Stderr:         os.Stderr,
		LookupEnv:      os.LookupEnv,
		DotEnv:         DefaultDotEnv,
		NewSnapshotter: newBrowserSnapshotter,
	}
}

func newBrowserSnapshotter(cfg config.SnapshotConfig) nbgallery.Snapshotter {
	return nbgallery.NewBrowserSnapshotter(cfg.Width, cfg.Height, cfg.TimeoutDuration())
}

// lookup returns an env lookup where process variables win over the .env
// file. A missing .env file is not an error.
func (e *Environment) lookup() (func(string) (string, bool), error) {
	base := e.LookupEnv
	if base == nil {
		base = os.LookupEnv
	}
	if e.DotEnv == "" {
		return base, nil
	}

	vars, err := godotenv.Read(e.DotEnv)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return base, nil
		}
		return nil, fmt.Errorf("%w: %s: %v", config.ErrConfigParse, e.DotEnv, err)
	}
	return func(key string) (string, bool) {
		if v, ok := base(key); ok {
			return v, true
		}
		v, ok := vars[key]
		return v, ok
	}, nil
}

// converterRunner returns the injected runner or a real one.
func (e *Environment) converterRunner() nbgallery.CommandRunner {
	if e.Runner != nil {
		return e.Runner
	}
	return &nbgallery.ExecRunner{}
}
