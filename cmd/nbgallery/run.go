package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/alnah/go-nbgallery"
	"github.com/alnah/go-nbgallery/internal/config"
	"github.com/alnah/go-nbgallery/internal/logger"
)

// resolveConfig layers, lowest first: defaults, config file, environment,
// command line. Without --config or NBGALLERY_CONFIG, a missing default
// nbgallery.yaml is not an error.
func resolveConfig(f *runFlags, env *Environment) (*config.Config, error) {
	lookup, err := env.lookup()
	if err != nil {
		return nil, err
	}

	name := f.common.config
	explicit := name != ""
	if !explicit {
		if v, ok := lookup(config.EnvConfig); ok && v != "" {
			name, explicit = v, true
		}
	}
	if name == "" {
		name = config.DefaultConfigName
	}

	cfg, err := config.LoadConfig(name)
	switch {
	case err == nil:
	case !explicit && errors.Is(err, config.ErrConfigNotFound):
		cfg = config.DefaultConfig()
	default:
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.ApplyEnv(lookup); err != nil {
		return nil, err
	}
	mergeFlags(f, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mergeFlags copies explicitly set flags into cfg (CLI wins).
func mergeFlags(f *runFlags, cfg *config.Config) {
	set := f.changed
	if set == nil {
		set = func(string) bool { return false }
	}

	if f.output != "" {
		cfg.Output.Dir = f.output
	}

	// Input
	if f.input.notebooks != "" {
		cfg.Input.Dir = f.input.notebooks
	}
	if f.input.extension != "" {
		cfg.Input.Extension = f.input.extension
	}
	if f.input.order != "" {
		cfg.Input.Order = f.input.order
	}
	if set("drop-empty-tags") {
		cfg.Extract.DropEmptyTags = f.input.dropEmptyTags
	}

	// Converter
	if f.converter.command != "" {
		cfg.Converter.Command = f.converter.command
	}
	if set("workers") {
		cfg.Converter.Workers = f.converter.workers
	}
	if f.converter.timeout != "" {
		cfg.Converter.Timeout = f.converter.timeout
	}
	if f.converter.onError != "" {
		cfg.Converter.OnError = f.converter.onError
	}
	if set("interactive") {
		cfg.Converter.Interactive = f.converter.interactive
	}
	if set("snapshot") {
		cfg.Snapshot.Enabled = f.converter.snapshot
	}
	if set("pdf") {
		cfg.Snapshot.PDF = f.converter.pdf
	}

	// Site
	if f.site.title != "" {
		cfg.Site.Title = f.site.title
	}
	if f.site.baseURL != "" {
		cfg.Site.BaseURL = f.site.baseURL
	}
	if f.site.dateFormat != "" {
		cfg.Site.DateFormat = f.site.dateFormat
	}
	if f.site.templates != "" {
		cfg.Site.TemplatesDir = f.site.templates
	}
	if f.site.static != "" {
		cfg.Site.StaticDir = f.site.static
	}
	if set("no-source") {
		cfg.Site.ShowSource = !f.site.noSource
	}

	// Logging
	cfg.Log.Level = logger.Level(cfg.Log.Level, f.common.quiet, f.common.verbose)
}

// newLogger builds the run logger on env.Stderr.
func newLogger(cfg *config.Config, env *Environment) (*logrus.Logger, error) {
	log, err := logger.New(env.Stderr, cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("%w: log level: %v", config.ErrConfigInvalid, err)
	}
	return log, nil
}

// newConverter builds a marimo converter from cfg with the given arguments.
func newConverter(cfg config.ConverterConfig, args []string, env *Environment) *nbgallery.MarimoConverter {
	return &nbgallery.MarimoConverter{
		Command: cfg.Command,
		Args:    args,
		Timeout: cfg.TimeoutDuration(),
		Runner:  env.converterRunner(),
	}
}

// processCollection runs the Collection Builder and writes the index.
func processCollection(ctx context.Context, cfg *config.Config, env *Environment, log logrus.FieldLogger) (*nbgallery.BuildReport, error) {
	opts := []nbgallery.Option{
		nbgallery.WithExtension(cfg.Input.Extension),
		nbgallery.WithOrder(cfg.Input.Order),
		nbgallery.WithErrorPolicy(cfg.Converter.OnError),
		nbgallery.WithWorkers(cfg.Converter.Workers),
		nbgallery.WithExtractOptions(nbgallery.ExtractOptions{DropEmptyTags: cfg.Extract.DropEmptyTags}),
		nbgallery.WithConverter(newConverter(cfg.Converter, cfg.Converter.Args, env)),
		nbgallery.WithLogger(log),
	}
	if cfg.Converter.Interactive {
		opts = append(opts, nbgallery.WithInteractiveConverter(newConverter(cfg.Converter, cfg.Converter.InteractiveArgs, env)))
	}
	if cfg.Snapshot.Enabled && env.NewSnapshotter != nil {
		snap := env.NewSnapshotter(cfg.Snapshot)
		defer func() {
			if err := snap.Close(); err != nil {
				log.WithError(err).Debug("closing browser")
			}
		}()
		opts = append(opts, nbgallery.WithSnapshotter(snap, cfg.Snapshot.PDF))
	}

	report, err := nbgallery.NewBuilder(opts...).Build(ctx, cfg.Input.Dir, cfg.Output.Dir)
	if err != nil {
		return nil, err
	}
	for _, name := range report.Skipped {
		log.WithField("notebook", name).Warn("not included in the gallery")
	}
	return report, nil
}

// generateSite renders the site. A nil index is loaded from the output
// directory.
func generateSite(ctx context.Context, cfg *config.Config, index nbgallery.CollectionIndex, env *Environment, log logrus.FieldLogger) error {
	if index == nil {
		var err error
		index, err = nbgallery.LoadIndex(nbgallery.IndexPath(cfg.Output.Dir))
		if err != nil {
			return err
		}
	}

	site, err := nbgallery.NewSite(
		nbgallery.WithSiteInfo(nbgallery.SiteInfo{
			Title:       cfg.Site.Title,
			Description: cfg.Site.Description,
			BaseURL:     cfg.Site.BaseURL,
		}),
		nbgallery.WithDateFormat(cfg.Site.DateFormat),
		nbgallery.WithRelatedLimit(cfg.Site.RelatedLimit),
		nbgallery.WithSummaryLength(cfg.Site.SummaryLength),
		nbgallery.WithSource(cfg.Site.ShowSource),
		nbgallery.WithAssetDirs(cfg.Site.TemplatesDir, cfg.Site.StaticDir),
		nbgallery.WithSiteLogger(log),
		nbgallery.WithClock(env.Now),
	)
	if err != nil {
		return err
	}
	return site.Generate(ctx, index, cfg.Output.Dir)
}

// buildAll runs process then generate.
func buildAll(ctx context.Context, cfg *config.Config, env *Environment, log logrus.FieldLogger) (*nbgallery.BuildReport, error) {
	report, err := processCollection(ctx, cfg, env, log)
	if err != nil {
		return nil, err
	}
	if err := generateSite(ctx, cfg, report.Index, env, log); err != nil {
		return nil, err
	}
	return report, nil
}

// runPipeline executes build, process or generate.
func runPipeline(ctx context.Context, cmd string, args []string, env *Environment) error {
	f, pos, err := parseRunFlags(cmd, args, env.Stderr)
	if err != nil {
		return err
	}
	if err := applyPositional(cmd, f, pos); err != nil {
		return err
	}

	cfg, err := resolveConfig(f, env)
	if err != nil {
		return withHint(err, "")
	}
	log, err := newLogger(cfg, env)
	if err != nil {
		return err
	}

	switch cmd {
	case cmdProcess:
		var report *nbgallery.BuildReport
		report, err = processCollection(ctx, cfg, env, log)
		if err == nil && !f.common.quiet {
			printSummary(env, report)
		}
	case cmdGenerate:
		err = generateSite(ctx, cfg, nil, env, log)
	default:
		var report *nbgallery.BuildReport
		report, err = buildAll(ctx, cfg, env, log)
		if err == nil && !f.common.quiet {
			printSummary(env, report)
		}
	}
	return withHint(err, cfg.Converter.Command)
}

// applyPositional accepts the notebooks directory as the only argument of
// build and process.
func applyPositional(cmd string, f *runFlags, pos []string) error {
	switch {
	case len(pos) == 0:
		return nil
	case len(pos) > 1 || cmd == cmdGenerate || cmd == cmdServe:
		return fmt.Errorf("%w: unexpected arguments %q", ErrUsage, pos)
	}
	if f.input.notebooks != "" {
		return fmt.Errorf("%w: notebooks directory given twice", ErrUsage)
	}
	f.input.notebooks = pos[0]
	return nil
}

// printSummary writes the one-line result of a build to stdout.
func printSummary(env *Environment, report *nbgallery.BuildReport) {
	line := strconv.Itoa(len(report.Index)) + " notebook(s) indexed"
	if n := len(report.Skipped); n > 0 {
		line += ", " + strconv.Itoa(n) + " skipped"
	}
	fmt.Fprintf(env.Stdout, "%s in %s\n", line, report.Duration.Round(time.Millisecond))
}
