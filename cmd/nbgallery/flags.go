package main

import (
	"fmt"
	"io"

	flag "github.com/spf13/pflag"
)

// DefaultAddr is where serve listens unless --addr is given.
const DefaultAddr = "127.0.0.1:8000"

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config  string
	quiet   bool
	verbose bool
}

// inputFlags holds flags of the collection stage.
type inputFlags struct {
	notebooks     string
	extension     string
	order         string
	dropEmptyTags bool
}

// converterFlags holds flags driving the external exporter.
type converterFlags struct {
	command     string
	workers     int
	timeout     string
	onError     string
	interactive bool
	snapshot    bool
	pdf         bool
}

// siteFlags holds flags of the site stage.
type siteFlags struct {
	title      string
	baseURL    string
	dateFormat string
	templates  string
	static     string
	noSource   bool
}

// serveFlags holds flags of the serve command.
type serveFlags struct {
	addr  string
	watch bool
}

// runFlags holds all flags of build, process, generate and serve. Commands
// register only the groups they use.
type runFlags struct {
	common    commonFlags
	output    string
	input     inputFlags
	converter converterFlags
	site      siteFlags
	serve     serveFlags

	// changed reports whether a flag was set on the command line.
	changed func(name string) bool
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show debug logs")
}

// addInputFlags adds collection flags to a FlagSet.
func addInputFlags(fs *flag.FlagSet, f *inputFlags) {
	fs.StringVarP(&f.notebooks, "notebooks", "n", "", "notebooks directory")
	fs.StringVar(&f.extension, "ext", "", "notebook file extension (default .py)")
	fs.StringVar(&f.order, "order", "", "enumeration order: name, directory")
	fs.BoolVar(&f.dropEmptyTags, "drop-empty-tags", false, "drop empty tags from \"a, b,\" lists")
}

// addConverterFlags adds exporter flags to a FlagSet.
func addConverterFlags(fs *flag.FlagSet, f *converterFlags) {
	fs.StringVar(&f.command, "converter", "", "converter command (default marimo)")
	fs.IntVarP(&f.workers, "workers", "w", 0, "parallel conversions (0 = auto)")
	fs.StringVarP(&f.timeout, "timeout", "t", "", "per-notebook timeout (e.g. 2m, 0 = none)")
	fs.StringVar(&f.onError, "on-error", "", "failed conversion policy: skip, abort")
	fs.BoolVar(&f.interactive, "interactive", false, "also export html-wasm pages")
	fs.BoolVar(&f.snapshot, "snapshot", false, "capture thumbnails with headless Chrome")
	fs.BoolVar(&f.pdf, "pdf", false, "print a PDF per notebook (with --snapshot)")
}

// addSiteFlags adds site flags to a FlagSet.
func addSiteFlags(fs *flag.FlagSet, f *siteFlags) {
	fs.StringVar(&f.title, "title", "", "site title")
	fs.StringVar(&f.baseURL, "base-url", "", "public URL, enables sitemap.xml")
	fs.StringVar(&f.dateFormat, "date-format", "", "date format preset or pattern")
	fs.StringVar(&f.templates, "templates", "", "custom templates directory")
	fs.StringVar(&f.static, "static", "", "static files overlay directory")
	fs.BoolVar(&f.noSource, "no-source", false, "hide notebook source on detail pages")
}

// addServeFlags adds serve flags to a FlagSet.
func addServeFlags(fs *flag.FlagSet, f *serveFlags) {
	fs.StringVarP(&f.addr, "addr", "a", DefaultAddr, "listen address")
	fs.BoolVar(&f.watch, "watch", false, "rebuild when notebooks or assets change")
}

// newRunFlagSet builds the FlagSet of cmd, registering only its groups.
func newRunFlagSet(cmd string, f *runFlags) *flag.FlagSet {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.StringVarP(&f.output, "output", "o", "", "output directory")
	addCommonFlags(fs, &f.common)

	switch cmd {
	case cmdBuild, cmdServe:
		addInputFlags(fs, &f.input)
		addConverterFlags(fs, &f.converter)
		addSiteFlags(fs, &f.site)
	case cmdProcess:
		addInputFlags(fs, &f.input)
		addConverterFlags(fs, &f.converter)
	case cmdGenerate:
		addSiteFlags(fs, &f.site)
	}
	if cmd == cmdServe {
		addServeFlags(fs, &f.serve)
	}
	return fs
}

// parseRunFlags parses flags of a pipeline command and returns positional args.
func parseRunFlags(cmd string, args []string, usage io.Writer) (*runFlags, []string, error) {
	f := &runFlags{}
	fs := newRunFlagSet(cmd, f)
	fs.SetOutput(usage)
	fs.Usage = func() { printCommandUsage(usage, cmd) }

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	f.changed = fs.Changed
	return f, fs.Args(), nil
}
