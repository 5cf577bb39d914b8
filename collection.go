package nbgallery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/alnah/go-nbgallery/internal/fileutil"
	"github.com/alnah/go-nbgallery/internal/logger"
)

// Enumeration orders for notebook discovery.
const (
	OrderName      = "name"      // sorted by filename
	OrderDirectory = "directory" // as the filesystem lists them
)

// Policies for a notebook whose conversion fails.
const (
	OnErrorSkip  = "skip"  // warn and leave the notebook out of the index
	OnErrorAbort = "abort" // stop the build
)

// DefaultExtension is the notebook file extension.
const DefaultExtension = ".py"

// Worker sizing.
const (
	MinWorkers = 1
	MaxWorkers = 16
)

// ResolveWorkers returns the number of conversion workers for a request of
// n. Zero or less picks GOMAXPROCS, bounded by MaxWorkers.
func ResolveWorkers(n int) int {
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	return max(MinWorkers, min(n, MaxWorkers))
}

// NotebookResult reports what happened to one notebook during a build.
type NotebookResult struct {
	Filename    string
	Static      ConvertResult
	Interactive *ConvertResult // nil when interactive export is off
	SnapshotErr error
	Skipped     bool
}

// BuildReport summarizes a build.
type BuildReport struct {
	Index    CollectionIndex
	Results  []NotebookResult // enumeration order, skipped notebooks included
	Skipped  []string
	Duration time.Duration
}

// Builder turns a directory of notebooks into exported pages and an index.
type Builder struct {
	extension   string
	order       string
	onError     string
	workers     int
	extract     ExtractOptions
	static      NotebookConverter
	interactive NotebookConverter
	snapshotter Snapshotter
	snapshotPDF bool
	log         logrus.FieldLogger
}

// Option configures a Builder.
type Option func(*Builder)

// WithExtension sets the notebook file extension, dot included.
func WithExtension(ext string) Option {
	return func(b *Builder) { b.extension = ext }
}

// WithOrder sets the enumeration order (OrderName or OrderDirectory).
func WithOrder(order string) Option {
	return func(b *Builder) { b.order = order }
}

// WithErrorPolicy sets what a failed conversion does (OnErrorSkip or OnErrorAbort).
func WithErrorPolicy(policy string) Option {
	return func(b *Builder) { b.onError = policy }
}

// WithWorkers sets how many notebooks convert concurrently. 0 means auto.
func WithWorkers(n int) Option {
	return func(b *Builder) { b.workers = n }
}

// WithExtractOptions sets the metadata extraction options.
func WithExtractOptions(opts ExtractOptions) Option {
	return func(b *Builder) { b.extract = opts }
}

// WithConverter replaces the static export converter.
func WithConverter(c NotebookConverter) Option {
	return func(b *Builder) { b.static = c }
}

// WithInteractiveConverter enables the interactive export. html_path then
// points at the interactive page.
func WithInteractiveConverter(c NotebookConverter) Option {
	return func(b *Builder) { b.interactive = c }
}

// WithSnapshotter enables thumbnails, and a PDF per notebook when pdf is set.
func WithSnapshotter(s Snapshotter, pdf bool) Option {
	return func(b *Builder) {
		b.snapshotter = s
		b.snapshotPDF = pdf
	}
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(b *Builder) { b.log = log }
}

// NewBuilder creates a Builder: .py files by name, static marimo export,
// failed notebooks skipped, one worker.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		extension: DefaultExtension,
		order:     OrderName,
		onError:   OnErrorSkip,
		workers:   1,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.static == nil {
		b.static = NewMarimoConverter()
	}
	if b.log == nil {
		b.log = logger.Discard()
	}
	return b
}

// Layout returns the path layout records get from this builder.
func (b *Builder) Layout() PathLayout {
	return PathLayout{
		Interactive: b.interactive != nil,
		Thumbnails:  b.snapshotter != nil,
	}
}

// Discover lists the notebook files of dir in the configured order.
func (b *Builder) Discover(dir string) ([]string, error) {
	entries, err := fileutil.ReadDirOrdered(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotebooksDir, err)
	}

	var names []string
	for _, e := range entries {
		if filepath.Ext(e.Name()) != b.extension || !isRegularFile(dir, e) {
			continue
		}
		names = append(names, e.Name())
	}
	if b.order != OrderDirectory {
		sort.Strings(names)
	}
	return names, nil
}

// Build converts every notebook of notebooksDir into outputDir and writes the
// index to outputDir/notebooks/index.json. Extraction failures always abort;
// conversion failures abort or skip according to the error policy. Exports of
// notebooks missing from the new index are removed.
func (b *Builder) Build(ctx context.Context, notebooksDir, outputDir string) (*BuildReport, error) {
	start := time.Now()

	names, err := b.Discover(notebooksDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(outputDir, NotebooksDir), fileutil.DirPerm); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	workers := ResolveWorkers(b.workers)
	b.log.WithFields(logrus.Fields{
		"notebooks": len(names),
		"workers":   workers,
		"dir":       notebooksDir,
	}).Info("building collection")

	type outcome struct {
		rec    NotebookRecord
		result NotebookResult
	}
	outcomes := make([]outcome, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, name := range names {
		g.Go(func() error {
			rec, res, err := b.processNotebook(gctx, notebooksDir, outputDir, name)
			outcomes[i] = outcome{rec: rec, result: res}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := &BuildReport{Index: CollectionIndex{}}
	for _, o := range outcomes {
		report.Results = append(report.Results, o.result)
		if o.result.Skipped {
			report.Skipped = append(report.Skipped, o.result.Filename)
			continue
		}
		report.Index = append(report.Index, o.rec)
	}

	if err := SaveIndex(IndexPath(outputDir), report.Index); err != nil {
		return nil, err
	}
	if err := b.pruneOutputs(notebooksDir, outputDir, report.Index); err != nil {
		return nil, err
	}

	report.Duration = time.Since(start)
	b.log.WithFields(logrus.Fields{
		"indexed":  len(report.Index),
		"skipped":  len(report.Skipped),
		"duration": report.Duration.Round(time.Millisecond),
	}).Info("collection built")
	return report, nil
}

// processNotebook handles one file. A returned error stops the build.
func (b *Builder) processNotebook(ctx context.Context, notebooksDir, outputDir, name string) (NotebookRecord, NotebookResult, error) {
	res := NotebookResult{Filename: name}
	log := b.log.WithField("notebook", name)
	src := filepath.Join(notebooksDir, name)

	rec, err := ExtractFile(src, b.extract)
	if err != nil {
		return rec, res, err
	}
	b.Layout().Apply(&rec, name)

	res.Static = b.static.Convert(ctx, src, outPath(outputDir, rec.StaticHTMLPath))
	if err := b.checkConversion(log, res.Static); err != nil {
		return rec, res, err
	}
	if !res.Static.OK() {
		res.Skipped = true
		return rec, res, nil
	}
	log.WithField("duration", res.Static.Duration.Round(time.Millisecond)).Debug("exported static page")

	if b.interactive != nil {
		dst := filepath.Join(outputDir, NotebooksDir, Stem(name))
		ir := b.interactive.Convert(ctx, src, dst)
		res.Interactive = &ir
		if err := b.checkConversion(log, ir); err != nil {
			return rec, res, err
		}
		if !ir.OK() {
			res.Skipped = true
			return rec, res, nil
		}
		log.WithField("duration", ir.Duration.Round(time.Millisecond)).Debug("exported interactive page")
	}

	if err := fileutil.CopyFile(src, outPath(outputDir, rec.NotebookPath)); err != nil {
		return rec, res, fmt.Errorf("copying notebook source: %w", err)
	}

	if b.snapshotter != nil {
		targets := SnapshotTargets{PNG: outPath(outputDir, rec.ThumbnailPath)}
		if b.snapshotPDF {
			targets.PDF = outPath(outputDir, PDFPath(rec))
		}
		if err := b.snapshotter.Snapshot(ctx, outPath(outputDir, rec.StaticHTMLPath), targets); err != nil {
			if ctx.Err() != nil {
				return rec, res, ctx.Err()
			}
			res.SnapshotErr = err
			rec.ThumbnailPath = ""
			log.WithError(err).Warn("snapshot failed")
		}
	}
	return rec, res, nil
}

// pruneOutputs removes everything under outputDir/notebooks that no record of
// index points to, such as exports of deleted or skipped notebooks. Nothing is
// removed when that directory is the notebooks directory itself.
func (b *Builder) pruneOutputs(notebooksDir, outputDir string, index CollectionIndex) error {
	dir := filepath.Join(outputDir, NotebooksDir)
	if sameDir(dir, notebooksDir) {
		b.log.WithField("dir", dir).Warn("output overlaps the notebooks directory, stale exports kept")
		return nil
	}

	keep := map[string]bool{IndexFile: true}
	for _, rec := range index {
		for _, p := range []string{rec.StaticHTMLPath, rec.HTMLPath, rec.NotebookPath, rec.ThumbnailPath} {
			if p != "" {
				keep[topLevel(p)] = true
			}
		}
		if b.snapshotPDF {
			keep[topLevel(PDFPath(rec))] = true
		}
	}
	removed, err := fileutil.RemoveUnless(dir, func(name string) bool {
		return keep[name]
	})
	if err != nil {
		return fmt.Errorf("removing stale exports: %w", err)
	}
	if len(removed) > 0 {
		b.log.WithField("entries", removed).Debug("removed stale exports")
	}
	return nil
}

func sameDir(a, b string) bool {
	ia, errA := os.Stat(a)
	ib, errB := os.Stat(b)
	return errA == nil && errB == nil && os.SameFile(ia, ib)
}

// topLevel returns the first element below NotebooksDir of a record path.
func topLevel(rel string) string {
	rel = strings.TrimPrefix(rel, NotebooksDir+"/")
	if i := strings.IndexByte(rel, '/'); i >= 0 {
		return rel[:i]
	}
	return rel
}

// checkConversion applies the error policy. It returns an error only when
// the build must stop.
func (b *Builder) checkConversion(log logrus.FieldLogger, r ConvertResult) error {
	if r.OK() {
		return nil
	}
	if errors.Is(r.Err, context.Canceled) || errors.Is(r.Err, context.DeadlineExceeded) {
		return r.Err
	}
	if b.onError == OnErrorAbort {
		return r.Err
	}
	entry := log.WithError(r.Err)
	if r.Stderr != "" {
		entry = entry.WithField("stderr", lastLine(r.Stderr))
	}
	entry.Warn("conversion failed, skipping notebook")
	return nil
}

// isRegularFile reports whether e is a file, following symlinks.
func isRegularFile(dir string, e fs.DirEntry) bool {
	if e.Type()&fs.ModeSymlink == 0 {
		return e.Type().IsRegular()
	}
	info, err := os.Stat(filepath.Join(dir, e.Name()))
	return err == nil && info.Mode().IsRegular()
}

// outPath joins a record path (slash separated) onto the output directory.
func outPath(outputDir, rel string) string {
	return filepath.Join(outputDir, filepath.FromSlash(rel))
}
