// Package config loads and validates the gallery build configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/alnah/go-nbgallery"
	"github.com/alnah/go-nbgallery/internal/dateutil"
	"github.com/alnah/go-nbgallery/internal/fileutil"
	"github.com/alnah/go-nbgallery/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrConfigInvalid   = errors.New("invalid config")
)

// DefaultConfigName is looked up when no --config is given.
const DefaultConfigName = "nbgallery"

var extensionRe = regexp.MustCompile(`^\.[A-Za-z0-9]+$`)

// Config holds everything a build needs besides the command line.
type Config struct {
	Input     InputConfig     `yaml:"input"`
	Output    OutputConfig    `yaml:"output"`
	Extract   ExtractConfig   `yaml:"extract"`
	Converter ConverterConfig `yaml:"converter"`
	Site      SiteConfig      `yaml:"site"`
	Snapshot  SnapshotConfig  `yaml:"snapshot"`
	Log       LogConfig       `yaml:"log"`
}

// InputConfig describes where notebooks are read from.
type InputConfig struct {
	Dir       string `yaml:"dir"`
	Extension string `yaml:"extension"` // ".py" for marimo notebooks
	Order     string `yaml:"order"`     // "name" or "directory"
}

// OutputConfig describes where the site is written.
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// ExtractConfig tunes metadata extraction.
type ExtractConfig struct {
	// DropEmptyTags removes empty pieces left by "a, b," style tag lists.
	DropEmptyTags bool `yaml:"dropEmptyTags"`
}

// ConverterConfig drives the external notebook exporter.
type ConverterConfig struct {
	Command         string   `yaml:"command"`
	Args            []string `yaml:"args"`
	Interactive     bool     `yaml:"interactive"`
	InteractiveArgs []string `yaml:"interactiveArgs"`
	Timeout         string   `yaml:"timeout"` // Go duration, "" or "0" = wait forever
	OnError         string   `yaml:"onError"` // "abort" or "skip"
	Workers         int      `yaml:"workers"` // 0 = auto
}

// SiteConfig drives page generation.
type SiteConfig struct {
	Title         string `yaml:"title"`
	Description   string `yaml:"description"`
	BaseURL       string `yaml:"baseURL"` // enables sitemap.xml
	DateFormat    string `yaml:"dateFormat"`
	RelatedLimit  int    `yaml:"relatedLimit"`
	SummaryLength int    `yaml:"summaryLength"`
	TemplatesDir  string `yaml:"templatesDir"` // overrides embedded templates
	StaticDir     string `yaml:"staticDir"`    // overlaid on embedded static files
	ShowSource    bool   `yaml:"showSource"`
}

// SnapshotConfig drives headless-browser thumbnails.
type SnapshotConfig struct {
	Enabled bool   `yaml:"enabled"`
	PDF     bool   `yaml:"pdf"`
	Width   int    `yaml:"width"`
	Height  int    `yaml:"height"`
	Timeout string `yaml:"timeout"`
}

// LogConfig sets the log level.
type LogConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Input: InputConfig{
			Dir:       "notebooks",
			Extension: nbgallery.DefaultExtension,
			Order:     nbgallery.OrderName,
		},
		Output: OutputConfig{Dir: "_site"},
		Converter: ConverterConfig{
			Command:         "marimo",
			Args:            slices.Clone(nbgallery.DefaultStaticArgs),
			InteractiveArgs: slices.Clone(nbgallery.DefaultInteractiveArgs),
			OnError:         nbgallery.OnErrorSkip,
			Workers:         1,
		},
		Site: SiteConfig{
			Title:         "Notebook Gallery",
			DateFormat:    dateutil.DefaultDateFormat,
			RelatedLimit:  3,
			SummaryLength: 100,
			ShowSource:    true,
		},
		Snapshot: SnapshotConfig{
			Width:   1280,
			Height:  800,
			Timeout: "30s",
		},
		Log: LogConfig{Level: "info"},
	}
}

// Validate checks every section and returns the first failure wrapped in
// ErrConfigInvalid.
func (c *Config) Validate() error {
	sections := []struct {
		name string
		v    validation.Validatable
	}{
		{"input", &c.Input},
		{"output", &c.Output},
		{"converter", &c.Converter},
		{"site", &c.Site},
		{"snapshot", &c.Snapshot},
		{"log", &c.Log},
	}
	for _, s := range sections {
		if err := s.v.Validate(); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrConfigInvalid, s.name, err)
		}
	}
	return nil
}

// Validate validates the input section.
func (c *InputConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
		validation.Field(&c.Extension, validation.Required, validation.Match(extensionRe)),
		validation.Field(&c.Order, validation.In(nbgallery.OrderName, nbgallery.OrderDirectory)),
	)
}

// Validate validates the output section.
func (c *OutputConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
	)
}

// Validate validates the converter section.
func (c *ConverterConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Command, validation.Required),
		validation.Field(&c.Args, validation.Required, validation.By(hasPlaceholders)),
		validation.Field(&c.InteractiveArgs, validation.When(c.Interactive, validation.Required, validation.By(hasPlaceholders))),
		validation.Field(&c.Timeout, validation.By(isDuration)),
		validation.Field(&c.OnError, validation.In(nbgallery.OnErrorAbort, nbgallery.OnErrorSkip)),
		validation.Field(&c.Workers, validation.Min(0), validation.Max(nbgallery.MaxWorkers)),
	)
}

// TimeoutDuration returns the parsed per-notebook timeout; 0 means none.
func (c *ConverterConfig) TimeoutDuration() time.Duration {
	d, _ := parseDuration(c.Timeout)
	return d
}

// Validate validates the site section.
func (c *SiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&c.BaseURL, is.URL),
		validation.Field(&c.DateFormat, validation.By(isDateFormat)),
		validation.Field(&c.RelatedLimit, validation.Min(0), validation.Max(50)),
		validation.Field(&c.SummaryLength, validation.Required, validation.Min(1)),
	)
}

// Validate validates the snapshot section.
func (c *SnapshotConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Width, validation.When(c.Enabled, validation.Required, validation.Min(320), validation.Max(3840))),
		validation.Field(&c.Height, validation.When(c.Enabled, validation.Required, validation.Min(240), validation.Max(2160))),
		validation.Field(&c.Timeout, validation.By(isDuration)),
	)
}

// TimeoutDuration returns the parsed snapshot timeout; 0 means the renderer default.
func (c *SnapshotConfig) TimeoutDuration() time.Duration {
	d, _ := parseDuration(c.Timeout)
	return d
}

// Validate validates the log section.
func (c *LogConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Level, validation.In("debug", "info", "warn", "warning", "error")),
	)
}

func hasPlaceholders(value interface{}) error {
	args, _ := value.([]string)
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, nbgallery.PlaceholderInput) || !strings.Contains(joined, nbgallery.PlaceholderOutput) {
		return fmt.Errorf("must reference %s and %s", nbgallery.PlaceholderInput, nbgallery.PlaceholderOutput)
	}
	return nil
}

func isDuration(value interface{}) error {
	s, _ := value.(string)
	if _, err := parseDuration(s); err != nil {
		return err
	}
	return nil
}

func isDateFormat(value interface{}) error {
	s, _ := value.(string)
	if _, err := dateutil.Layout(s); err != nil {
		return err
	}
	return nil
}

func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %q", s)
	}
	return d, nil
}

// Env variables read by ApplyEnv. EnvConfig is resolved by the CLI before
// the file is loaded.
const (
	EnvConfig       = "NBGALLERY_CONFIG"
	EnvNotebooksDir = "NBGALLERY_NOTEBOOKS_DIR"
	EnvOutputDir    = "NBGALLERY_OUTPUT_DIR"
	EnvBaseURL      = "NBGALLERY_BASE_URL"
	EnvConverter    = "NBGALLERY_CONVERTER"
	EnvWorkers      = "NBGALLERY_WORKERS"
	EnvLogLevel     = "NBGALLERY_LOG_LEVEL"
)

// ApplyEnv overrides fields from environment variables. lookup is usually
// os.LookupEnv. Values that do not parse are reported, not ignored.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str(EnvNotebooksDir, &c.Input.Dir)
	str(EnvOutputDir, &c.Output.Dir)
	str(EnvBaseURL, &c.Site.BaseURL)
	str(EnvConverter, &c.Converter.Command)
	str(EnvLogLevel, &c.Log.Level)

	if v, ok := lookup(EnvWorkers); ok && strings.TrimSpace(v) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not an integer", ErrConfigInvalid, EnvWorkers, v)
		}
		c.Converter.Workers = n
	}
	return nil
}

// LoadConfig loads configuration from a file path or config name on top of
// DefaultConfig. A name (no path separator) is searched in the current
// directory and then in the user config directory, with .yaml and .yml.
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	configPath := nameOrPath
	if !fileutil.IsFilePath(nameOrPath) {
		var err error
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yamlutil.DecodeStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConfigParse, configPath, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Encode renders cfg as YAML, for `nbgallery init`.
func Encode(cfg *Config) ([]byte, error) {
	return yamlutil.Encode(cfg)
}

// CandidatePaths lists, in lookup order, where a config name is searched.
func CandidatePaths(name string) []string {
	extensions := []string{".yaml", ".yml"}
	paths := make([]string, 0, len(extensions)*2)
	for _, ext := range extensions {
		paths = append(paths, name+ext)
	}
	if dir, err := os.UserConfigDir(); err == nil {
		for _, ext := range extensions {
			paths = append(paths, filepath.Join(dir, "nbgallery", name+ext))
		}
	}
	return paths
}

func resolveConfigPath(name string) (string, error) {
	tried := CandidatePaths(name)
	for _, p := range tried {
		if fileutil.FileExists(p) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(tried, ", "))
}
