package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: nbgallery <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  build       Export notebooks and generate the site")
	fmt.Fprintln(w, "  process     Export notebooks and write the collection index")
	fmt.Fprintln(w, "  generate    Render the site from an existing index")
	fmt.Fprintln(w, "  serve       Serve the site locally, optionally rebuilding on change")
	fmt.Fprintln(w, "  doctor      Check marimo and Chrome availability")
	fmt.Fprintln(w, "  init        Write a default nbgallery.yaml")
	fmt.Fprintln(w, "  completion  Generate shell completion script")
	fmt.Fprintln(w, "  version     Show version information")
	fmt.Fprintln(w, "  help        Show help for a command")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'nbgallery help <command>' for details on a specific command.")
}

// printCommandUsage prints usage for build, process, generate and serve.
func printCommandUsage(w io.Writer, cmd string) {
	switch cmd {
	case cmdBuild:
		fmt.Fprintln(w, "Usage: nbgallery build [notebooks-dir] [flags]")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Export every notebook, write the collection index and render the site.")
	case cmdProcess:
		fmt.Fprintln(w, "Usage: nbgallery process [notebooks-dir] [flags]")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Export every notebook and write notebooks.json, without rendering pages.")
	case cmdGenerate:
		fmt.Fprintln(w, "Usage: nbgallery generate [flags]")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Render the site from notebooks.json in the output directory.")
	case cmdServe:
		fmt.Fprintln(w, "Usage: nbgallery serve [flags]")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Serve the output directory over HTTP. With --watch, build first and")
		fmt.Fprintln(w, "rebuild whenever notebooks, templates or static files change.")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "General:")
	fmt.Fprintln(w, "  -o, --output <dir>        Output directory (default _site)")
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path")
	fmt.Fprintln(w, "  -q, --quiet               Only show errors")
	fmt.Fprintln(w, "  -v, --verbose             Show debug logs")
	fmt.Fprintln(w)

	if cmd != cmdGenerate {
		fmt.Fprintln(w, "Notebooks:")
		fmt.Fprintln(w, "  -n, --notebooks <dir>     Notebooks directory (default notebooks)")
		fmt.Fprintln(w, "      --ext <s>             Notebook file extension (default .py)")
		fmt.Fprintln(w, "      --order <s>           Enumeration order: name, directory")
		fmt.Fprintln(w, "      --drop-empty-tags     Drop empty entries from tag lists")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Converter:")
		fmt.Fprintln(w, "      --converter <cmd>     Converter command (default marimo)")
		fmt.Fprintln(w, "  -w, --workers <n>         Parallel conversions (0 = auto)")
		fmt.Fprintln(w, "  -t, --timeout <d>         Per-notebook timeout, e.g. 2m (0 = none)")
		fmt.Fprintln(w, "      --on-error <s>        Failed conversion policy: skip, abort")
		fmt.Fprintln(w, "      --interactive         Also export html-wasm pages")
		fmt.Fprintln(w, "      --snapshot            Capture thumbnails with headless Chrome")
		fmt.Fprintln(w, "      --pdf                 Print a PDF per notebook (with --snapshot)")
		fmt.Fprintln(w)
	}

	if cmd != cmdProcess {
		fmt.Fprintln(w, "Site:")
		fmt.Fprintln(w, "      --title <s>           Site title")
		fmt.Fprintln(w, "      --base-url <url>      Public URL, enables sitemap.xml and robots.txt")
		fmt.Fprintln(w, "      --date-format <s>     Date format for listings")
		fmt.Fprintln(w, "                            Tokens: YYYY, YY, MMMM, MMM, MM, M, DD, D")
		fmt.Fprintln(w, "                            Presets (case-insensitive): iso, european, us, long")
		fmt.Fprintln(w, "      --templates <dir>     Custom templates directory")
		fmt.Fprintln(w, "      --static <dir>        Static files overlay directory")
		fmt.Fprintln(w, "      --no-source           Hide notebook source on detail pages")
		fmt.Fprintln(w)
	}

	if cmd == cmdServe {
		fmt.Fprintln(w, "Serve:")
		fmt.Fprintf(w, "  -a, --addr <host:port>    Listen address (default %s)\n", DefaultAddr)
		fmt.Fprintln(w, "      --watch               Rebuild on changes")
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  NBGALLERY_* variables override the config file; a .env file in the")
	fmt.Fprintln(w, "  working directory is read too. Flags win over both.")
}

// runHelp prints help for a specific command.
func runHelp(args []string, env *Environment) int {
	if len(args) == 0 {
		printUsage(env.Stdout)
		return ExitSuccess
	}

	switch args[0] {
	case cmdBuild, cmdProcess, cmdGenerate, cmdServe:
		printCommandUsage(env.Stdout, args[0])
	case cmdDoctor:
		printDoctorUsage(env.Stdout)
	case cmdInit:
		printInitUsage(env.Stdout)
	case cmdCompletion:
		printCompletionUsage(env.Stdout)
	case cmdVersion:
		fmt.Fprintln(env.Stdout, "Usage: nbgallery version")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show version information.")
	case cmdHelp:
		fmt.Fprintln(env.Stdout, "Usage: nbgallery help [command]")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show help for a command.")
	default:
		fmt.Fprintf(env.Stderr, "unknown command: %s\n\n", args[0])
		printUsage(env.Stderr)
		return ExitUsage
	}
	return ExitSuccess
}
