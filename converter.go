package nbgallery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/alnah/go-nbgallery/internal/fileutil"
	"github.com/alnah/go-nbgallery/internal/pipeline"
	"github.com/alnah/go-nbgallery/internal/process"
)

// Converter argument placeholders.
const (
	PlaceholderInput  = "{input}"
	PlaceholderOutput = "{output}"
)

// Default marimo invocations.
var (
	DefaultStaticArgs      = []string{"export", "html", PlaceholderInput, "-o", PlaceholderOutput}
	DefaultInteractiveArgs = []string{"export", "html-wasm", PlaceholderInput, "-o", PlaceholderOutput, "--mode", "run"}
)

// waitDelay bounds how long Wait blocks on pipes after the process is killed.
const waitDelay = 2 * time.Second

// CommandRunner abstracts command execution to enable testing without real subprocesses.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr string, err error)
}

// ExecRunner implements CommandRunner using os/exec. The command runs in its
// own process group, killed as a whole when ctx ends.
type ExecRunner struct{}

// Run executes name with args and waits for it to exit.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...) // #nosec G204 -- command comes from user config
	process.Isolate(cmd)
	cmd.Cancel = func() error {
		process.KillProcessGroup(cmd.Process.Pid)
		return nil
	}
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// ConvertResult reports the outcome of converting one notebook.
type ConvertResult struct {
	Source   string
	Output   string
	Err      error
	Stderr   string
	Duration time.Duration
}

// OK reports whether the conversion succeeded.
func (r ConvertResult) OK() bool {
	return r.Err == nil
}

// NotebookConverter turns a notebook source file into an HTML artifact.
type NotebookConverter interface {
	Convert(ctx context.Context, src, dst string) ConvertResult
}

// MarimoConverter runs an export command and verifies its output.
type MarimoConverter struct {
	Command string
	Args    []string      // must contain {input} and {output}
	Timeout time.Duration // 0 waits forever
	Runner  CommandRunner
}

// NewMarimoConverter creates a static-export converter running marimo.
func NewMarimoConverter() *MarimoConverter {
	return &MarimoConverter{
		Command: "marimo",
		Args:    DefaultStaticArgs,
		Runner:  &ExecRunner{},
	}
}

// Convert runs the export for src, writing dst. Any previous export at dst is
// removed first. The result carries an error wrapping ErrConvert (process
// failure) or ErrConvertOutput (missing or malformed output).
func (c *MarimoConverter) Convert(ctx context.Context, src, dst string) (res ConvertResult) {
	start := time.Now()
	res = ConvertResult{Source: src, Output: dst}
	defer func() { res.Duration = time.Since(start) }()

	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}
	if err := os.MkdirAll(filepath.Dir(dst), fileutil.DirPerm); err != nil {
		res.Err = fmt.Errorf("%w: creating output directory: %v", ErrConvert, err)
		return res
	}
	// Only output written by this run may pass verification.
	if err := os.RemoveAll(dst); err != nil {
		res.Err = fmt.Errorf("%w: removing previous export: %v", ErrConvert, err)
		return res
	}

	runCtx := ctx
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	_, stderr, err := c.runner().Run(runCtx, c.Command, c.expandArgs(src, dst)...)
	res.Stderr = strings.TrimSpace(stderr)
	if err != nil {
		res.Err = c.classify(ctx, runCtx, src, err, res.Stderr)
		return res
	}

	if err := verifyExport(dst); err != nil {
		res.Err = fmt.Errorf("%w: %s: %v", ErrConvertOutput, filepath.Base(src), err)
	}
	return res
}

func (c *MarimoConverter) runner() CommandRunner {
	if c.Runner == nil {
		return &ExecRunner{}
	}
	return c.Runner
}

func (c *MarimoConverter) expandArgs(src, dst string) []string {
	args := make([]string, len(c.Args))
	r := strings.NewReplacer(PlaceholderInput, src, PlaceholderOutput, dst)
	for i, a := range c.Args {
		args[i] = r.Replace(a)
	}
	return args
}

func (c *MarimoConverter) classify(parent, run context.Context, src string, err error, stderr string) error {
	name := filepath.Base(src)
	switch {
	case errors.Is(err, exec.ErrNotFound):
		return fmt.Errorf("%w: %w: %s", ErrConvert, ErrConverterMissing, c.Command)
	case parent.Err() != nil:
		return parent.Err()
	case errors.Is(run.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: %w: %s after %s", ErrConvert, ErrConvertTimeout, name, c.Timeout)
	case stderr != "":
		return fmt.Errorf("%w: %s: %v: %s", ErrConvert, name, err, lastLine(stderr))
	default:
		return fmt.Errorf("%w: %s: %v", ErrConvert, name, err)
	}
}

// verifyExport checks that dst (or dst/index.html for a bundle) is a
// non-empty HTML document.
func verifyExport(dst string) error {
	page := dst
	if fileutil.DirExists(dst) {
		page = filepath.Join(dst, "index.html")
	}

	info, err := os.Stat(page)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("output not written: %s", page)
		}
		return err
	}
	if info.Size() == 0 {
		return fmt.Errorf("output is empty: %s", page)
	}

	f, err := os.Open(page) // #nosec G304 -- path built from output dir
	if err != nil {
		return err
	}
	defer f.Close()
	return pipeline.CheckDocument(f)
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
