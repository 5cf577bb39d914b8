package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/alnah/go-nbgallery"
)

// Shell represents a supported shell for completion generation.
type Shell string

// Supported shells for completion.
const (
	ShellBash Shell = "bash"
	ShellZsh  Shell = "zsh"
	ShellFish Shell = "fish"
)

// ErrUnsupportedShell is returned when an unknown shell is requested.
var ErrUnsupportedShell = errors.New("unsupported shell")

// flagType represents the completion type for a flag.
type flagType int

const (
	flagString flagType = iota
	flagBool
	flagInt
	flagEnum // has predefined values
	flagFile // file with glob pattern
	flagDir  // directory
)

// flagDef describes a flag for completion purposes.
type flagDef struct {
	Long     string
	Short    string
	Type     flagType
	Desc     string
	Values   []string // for enum flags
	FileGlob string   // for file flags, comma separated
}

// commandDef describes a command for completion.
type commandDef struct {
	Name      string
	Desc      string
	Flags     []flagDef
	TakesDir  bool     // accepts a directory argument
	Arguments []string // fixed argument values
}

// completionMeta holds completion-specific metadata for flags. Flag names,
// types and descriptions come from the FlagSets.
type completionMeta struct {
	Values   []string
	FileGlob string
	IsDir    bool
}

var flagCompletionMeta = map[string]completionMeta{
	"order":       {Values: []string{nbgallery.OrderName, nbgallery.OrderDirectory}},
	"on-error":    {Values: []string{nbgallery.OnErrorSkip, nbgallery.OnErrorAbort}},
	"date-format": {Values: []string{"iso", "european", "us", "long"}},

	"config": {FileGlob: "*.yaml,*.yml"},

	"output":    {IsDir: true},
	"notebooks": {IsDir: true},
	"templates": {IsDir: true},
	"static":    {IsDir: true},
}

// extractFlagsFromFlagSet extracts flag definitions from a pflag.FlagSet,
// enriched with flagCompletionMeta.
func extractFlagsFromFlagSet(fs *flag.FlagSet) []flagDef {
	var flags []flagDef

	fs.VisitAll(func(f *flag.Flag) {
		fd := flagDef{
			Long:  f.Name,
			Short: f.Shorthand,
			Desc:  f.Usage,
		}

		switch f.Value.Type() {
		case "bool":
			fd.Type = flagBool
		case "int", "int64", "uint":
			fd.Type = flagInt
		default:
			fd.Type = flagString
		}

		if meta, ok := flagCompletionMeta[f.Name]; ok {
			switch {
			case len(meta.Values) > 0:
				fd.Type = flagEnum
				fd.Values = meta.Values
			case meta.FileGlob != "":
				fd.Type = flagFile
				fd.FileGlob = meta.FileGlob
			case meta.IsDir:
				fd.Type = flagDir
			}
		}

		flags = append(flags, fd)
	})

	return flags
}

// getCommands returns the command registry for completion.
func getCommands() []commandDef {
	runFlagsOf := func(cmd string) []flagDef {
		return extractFlagsFromFlagSet(newRunFlagSet(cmd, &runFlags{}))
	}
	var force bool

	cmds := []commandDef{
		{Name: cmdBuild, Desc: "Export notebooks and generate the site", Flags: runFlagsOf(cmdBuild), TakesDir: true},
		{Name: cmdProcess, Desc: "Export notebooks and write the collection index", Flags: runFlagsOf(cmdProcess), TakesDir: true},
		{Name: cmdGenerate, Desc: "Render the site from an existing index", Flags: runFlagsOf(cmdGenerate)},
		{Name: cmdServe, Desc: "Serve the site locally", Flags: runFlagsOf(cmdServe)},
		{Name: cmdDoctor, Desc: "Check marimo and Chrome availability", Flags: extractFlagsFromFlagSet(newDoctorFlagSet(&doctorFlags{}))},
		{Name: cmdInit, Desc: "Write a default nbgallery.yaml", Flags: extractFlagsFromFlagSet(newInitFlagSet(&force))},
		{Name: cmdCompletion, Desc: "Generate shell completion script", Arguments: []string{string(ShellBash), string(ShellZsh), string(ShellFish)}},
		{Name: cmdVersion, Desc: "Show version information"},
	}
	names := make([]string, 0, len(cmds))
	for _, c := range cmds {
		names = append(names, c.Name)
	}
	return append(cmds, commandDef{Name: cmdHelp, Desc: "Show help for a command", Arguments: names})
}

// GenerateCompletion writes the completion script of shell to w.
func GenerateCompletion(w io.Writer, shell Shell) error {
	switch shell {
	case ShellBash:
		return generateBash(w)
	case ShellZsh:
		return generateZsh(w)
	case ShellFish:
		return generateFish(w)
	default:
		return fmt.Errorf("%w: %q (supported: bash, zsh, fish)", ErrUnsupportedShell, shell)
	}
}

func generateBash(w io.Writer) error {
	cmds := getCommands()
	var b strings.Builder

	b.WriteString("# bash completion for nbgallery\n\n")
	b.WriteString("_nbgallery_completions() {\n")
	b.WriteString("    local cur prev cmd opts\n")
	b.WriteString("    cur=\"${COMP_WORDS[COMP_CWORD]}\"\n")
	b.WriteString("    prev=\"${COMP_WORDS[COMP_CWORD-1]}\"\n\n")
	b.WriteString("    if [[ ${COMP_CWORD} -eq 1 ]]; then\n")
	fmt.Fprintf(&b, "        COMPREPLY=($(compgen -W %q -- \"$cur\"))\n", strings.Join(commandNames(cmds), " "))
	b.WriteString("        return\n")
	b.WriteString("    fi\n")
	b.WriteString("    cmd=\"${COMP_WORDS[1]}\"\n\n")

	// Flag values are keyed by flag name, identical across commands.
	b.WriteString("    case \"$prev\" in\n")
	seen := map[string]bool{}
	for _, c := range cmds {
		for _, f := range c.Flags {
			if seen[f.Long] {
				continue
			}
			seen[f.Long] = true
			var action string
			switch f.Type {
			case flagEnum:
				action = fmt.Sprintf("COMPREPLY=($(compgen -W %q -- \"$cur\"))", strings.Join(f.Values, " "))
			case flagDir:
				action = "COMPREPLY=($(compgen -d -- \"$cur\"))"
			case flagFile:
				action = "COMPREPLY=($(compgen -f -- \"$cur\"))"
			case flagString, flagInt:
				action = "COMPREPLY=()"
			default:
				continue
			}
			fmt.Fprintf(&b, "        %s)\n            %s\n            return\n            ;;\n", bashPattern(f), action)
		}
	}
	b.WriteString("    esac\n\n")

	b.WriteString("    case \"$cmd\" in\n")
	for _, c := range cmds {
		fmt.Fprintf(&b, "        %s)\n", c.Name)
		if len(c.Arguments) > 0 {
			fmt.Fprintf(&b, "            COMPREPLY=($(compgen -W %q -- \"$cur\"))\n            return\n            ;;\n", strings.Join(c.Arguments, " "))
			continue
		}
		fmt.Fprintf(&b, "            opts=%q\n            ;;\n", strings.Join(flagWords(c.Flags), " "))
	}
	b.WriteString("    esac\n\n")

	b.WriteString("    if [[ \"$cur\" == -* ]]; then\n")
	b.WriteString("        COMPREPLY=($(compgen -W \"$opts\" -- \"$cur\"))\n")
	b.WriteString("    else\n")
	b.WriteString("        COMPREPLY=($(compgen -d -- \"$cur\"))\n")
	b.WriteString("    fi\n")
	b.WriteString("}\n\n")
	b.WriteString("complete -F _nbgallery_completions nbgallery\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func bashPattern(f flagDef) string {
	if f.Short != "" {
		return "--" + f.Long + "|-" + f.Short
	}
	return "--" + f.Long
}

func flagWords(flags []flagDef) []string {
	words := make([]string, 0, len(flags)*2)
	for _, f := range flags {
		words = append(words, "--"+f.Long)
		if f.Short != "" {
			words = append(words, "-"+f.Short)
		}
	}
	return words
}

func commandNames(cmds []commandDef) []string {
	names := make([]string, len(cmds))
	for i, c := range cmds {
		names[i] = c.Name
	}
	return names
}

func generateZsh(w io.Writer) error {
	cmds := getCommands()
	var b strings.Builder

	b.WriteString("#compdef nbgallery\n\n")
	b.WriteString("_nbgallery() {\n")
	b.WriteString("    local -a commands\n")
	b.WriteString("    commands=(\n")
	for _, c := range cmds {
		fmt.Fprintf(&b, "        '%s:%s'\n", c.Name, zshEscape(c.Desc))
	}
	b.WriteString("    )\n\n")
	b.WriteString("    if (( CURRENT == 2 )); then\n")
	b.WriteString("        _describe 'command' commands\n")
	b.WriteString("        return\n")
	b.WriteString("    fi\n\n")
	b.WriteString("    case \"$words[2]\" in\n")
	for _, c := range cmds {
		fmt.Fprintf(&b, "        %s)\n", c.Name)
		switch {
		case len(c.Arguments) > 0:
			fmt.Fprintf(&b, "            _values 'argument' %s\n", strings.Join(c.Arguments, " "))
		case len(c.Flags) > 0 || c.TakesDir:
			b.WriteString("            _arguments")
			for _, f := range c.Flags {
				fmt.Fprintf(&b, " \\\n                %s", zshSpec(f))
			}
			if c.TakesDir {
				b.WriteString(" \\\n                '1:notebooks directory:_files -/'")
			}
			b.WriteString("\n")
		}
		b.WriteString("            ;;\n")
	}
	b.WriteString("    esac\n")
	b.WriteString("}\n\n")
	b.WriteString("if [[ \"$funcstack[1]\" = \"_nbgallery\" ]]; then\n")
	b.WriteString("    _nbgallery \"$@\"\n")
	b.WriteString("else\n")
	b.WriteString("    compdef _nbgallery nbgallery\n")
	b.WriteString("fi\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// zshSpec renders one _arguments spec.
func zshSpec(f flagDef) string {
	desc := zshEscape(f.Desc)
	var action string
	switch f.Type {
	case flagBool:
	case flagEnum:
		action = ":" + f.Long + ":(" + strings.Join(f.Values, " ") + ")"
	case flagDir:
		action = ":" + f.Long + ":_files -/"
	case flagFile:
		globs := strings.ReplaceAll(f.FileGlob, ",", "|")
		action = ":" + f.Long + ":_files -g \"" + globs + "\""
	default:
		action = ":" + f.Long + ": "
	}
	if f.Short != "" {
		return fmt.Sprintf("'(-%s --%s)'{-%s,--%s}'[%s]%s'", f.Short, f.Long, f.Short, f.Long, desc, action)
	}
	return fmt.Sprintf("'--%s[%s]%s'", f.Long, desc, action)
}

func zshEscape(s string) string {
	return strings.NewReplacer("'", "'\\''", "[", "\\[", "]", "\\]", ":", "\\:").Replace(s)
}

func generateFish(w io.Writer) error {
	cmds := getCommands()
	var b strings.Builder

	b.WriteString("# fish completion for nbgallery\n\n")
	b.WriteString("function __fish_nbgallery_needs_command\n")
	b.WriteString("    set -l cmd (commandline -opc)\n")
	b.WriteString("    test (count $cmd) -eq 1\n")
	b.WriteString("end\n\n")
	b.WriteString("function __fish_nbgallery_using_command\n")
	b.WriteString("    set -l cmd (commandline -opc)\n")
	b.WriteString("    test (count $cmd) -gt 1; and test $cmd[2] = $argv[1]\n")
	b.WriteString("end\n\n")
	b.WriteString("complete -c nbgallery -f\n\n")

	for _, c := range cmds {
		fmt.Fprintf(&b, "complete -c nbgallery -n __fish_nbgallery_needs_command -a %s -d '%s'\n", c.Name, fishEscape(c.Desc))
	}
	b.WriteString("\n")

	for _, c := range cmds {
		cond := fmt.Sprintf("'__fish_nbgallery_using_command %s'", c.Name)
		if len(c.Arguments) > 0 {
			fmt.Fprintf(&b, "complete -c nbgallery -n %s -a '%s'\n", cond, strings.Join(c.Arguments, " "))
		}
		if c.TakesDir {
			fmt.Fprintf(&b, "complete -c nbgallery -n %s -a '(__fish_complete_directories)'\n", cond)
		}
		for _, f := range c.Flags {
			line := "complete -c nbgallery -n " + cond
			if f.Short != "" {
				line += " -s " + f.Short
			}
			line += " -l " + f.Long + " -d '" + fishEscape(f.Desc) + "'"
			switch f.Type {
			case flagBool:
			case flagEnum:
				line += " -x -a '" + strings.Join(f.Values, " ") + "'"
			case flagDir:
				line += " -x -a '(__fish_complete_directories)'"
			case flagFile:
				line += " -r -F"
			default:
				line += " -x"
			}
			b.WriteString(line + "\n")
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func fishEscape(s string) string {
	return strings.NewReplacer("\\", "\\\\", "'", "\\'").Replace(s)
}

// runCompletion handles the completion command.
func runCompletion(args []string, env *Environment) error {
	if len(args) == 0 {
		printCompletionUsage(env.Stdout)
		return nil
	}
	return GenerateCompletion(env.Stdout, Shell(args[0]))
}

// printCompletionUsage prints help for the completion command.
func printCompletionUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: nbgallery completion <shell>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Generate shell completion script for the specified shell.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Supported shells:")
	fmt.Fprintln(w, "  bash        Bash completion script")
	fmt.Fprintln(w, "  zsh         Zsh completion script")
	fmt.Fprintln(w, "  fish        Fish completion script")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Installation:")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  Bash:")
	fmt.Fprintln(w, "    # Add to ~/.bashrc:")
	fmt.Fprintln(w, "    eval \"$(nbgallery completion bash)\"")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  Zsh:")
	fmt.Fprintln(w, "    # Add to ~/.zshrc (after compinit):")
	fmt.Fprintln(w, "    eval \"$(nbgallery completion zsh)\"")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  Fish:")
	fmt.Fprintln(w, "    nbgallery completion fish > ~/.config/fish/completions/nbgallery.fish")
}
