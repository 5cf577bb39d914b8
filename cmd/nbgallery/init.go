package main

import (
	"errors"
	"fmt"
	"io"

	flag "github.com/spf13/pflag"

	"github.com/alnah/go-nbgallery/internal/config"
	"github.com/alnah/go-nbgallery/internal/fileutil"
)

// ErrConfigExists is returned by init when the target file exists.
var ErrConfigExists = errors.New("config file already exists")

const initHeader = "# nbgallery configuration. Environment variables (NBGALLERY_*) and\n" +
	"# command line flags override these values.\n"

func newInitFlagSet(force *bool) *flag.FlagSet {
	fs := flag.NewFlagSet(cmdInit, flag.ContinueOnError)
	fs.BoolVarP(force, "force", "f", false, "overwrite an existing file")
	return fs
}

// runInit writes the default configuration as YAML.
func runInit(args []string, env *Environment) error {
	var force bool
	fs := newInitFlagSet(&force)
	fs.SetOutput(env.Stderr)
	fs.Usage = func() { printInitUsage(env.Stderr) }
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return err
		}
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}

	path := config.DefaultConfigName + ".yaml"
	switch fs.NArg() {
	case 0:
	case 1:
		path = fs.Arg(0)
	default:
		return fmt.Errorf("%w: unexpected arguments %q", ErrUsage, fs.Args()[1:])
	}

	if !force && fileutil.FileExists(path) {
		return fmt.Errorf("%w: %s (use --force to overwrite)", ErrConfigExists, path)
	}

	data, err := config.Encode(config.DefaultConfig())
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := fileutil.WriteFileAtomic(path, append([]byte(initHeader), data...)); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	fmt.Fprintf(env.Stdout, "Wrote %s\n", path)
	return nil
}

// printInitUsage prints help for the init command.
func printInitUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: nbgallery init [path] [--force]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Write the default configuration (nbgallery.yaml unless path is given).")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  -f, --force    Overwrite an existing file")
}
