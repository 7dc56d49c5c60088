package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/folio/internal/gallery"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/photo"
	"github.com/starford/folio/internal/watch"
)

// Log formats.
const (
	LogFormatAuto = "auto"
	LogFormatJSON = "json"
	LogFormatText = "text"
)

var tierName = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// Config represents the application configuration.
type Config struct {
	App        ApplicationConfig `yaml:"app"`
	Source     SourceConfig      `yaml:"source"`
	Output     OutputConfig      `yaml:"output"`
	Processing ProcessingConfig  `yaml:"processing"`
	Site       SiteConfig        `yaml:"site"`
	Journal    JournalConfig     `yaml:"journal"`
	Preview    PreviewConfig     `yaml:"preview"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Source.Validate(); err != nil {
		return fmt.Errorf("source: %w", err)
	}
	if err := c.Output.Validate(); err != nil {
		return fmt.Errorf("output: %w", err)
	}
	if err := c.Processing.Validate(); err != nil {
		return fmt.Errorf("processing: %w", err)
	}
	if err := c.Preview.Validate(); err != nil {
		return fmt.Errorf("preview: %w", err)
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	// LogFormat is auto (text on a terminal, JSON otherwise), json or text.
	LogFormat string `yaml:"log_format"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if c.LogFormat == "" {
		c.LogFormat = LogFormatAuto
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.LogFormat, validation.In(LogFormatAuto, LogFormatJSON, LogFormatText)),
	)
}

// SourceConfig describes where source galleries live.
type SourceConfig struct {
	Path       string   `yaml:"path"`
	Extensions []string `yaml:"extensions"`
	// Exclude holds doublestar patterns matched against file names.
	Exclude []string `yaml:"exclude"`
}

// Validate validates the source configuration.
func (c *SourceConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.Extensions, validation.Required, validation.Each(validation.By(extension))),
	)
}

func extension(v any) error {
	s, _ := v.(string)
	if !strings.HasPrefix(s, ".") || len(s) < 2 {
		return errors.New("must start with a dot")
	}
	return nil
}

// OutputConfig describes the rendered output tree.
type OutputConfig struct {
	Path    string            `yaml:"path"`
	Quality int               `yaml:"quality"`
	Sizes   []models.SizeSpec `yaml:"sizes"`
}

// Validate validates the output configuration.
func (c *OutputConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.Quality, validation.Required, validation.Min(1), validation.Max(100)),
		validation.Field(&c.Sizes, validation.Required),
	); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(c.Sizes))
	for i, s := range c.Sizes {
		if !tierName.MatchString(s.Name) {
			return fmt.Errorf("sizes[%d]: invalid tier name %q", i, s.Name)
		}
		if s.Size < 1 {
			return fmt.Errorf("sizes[%d]: size must be positive", i)
		}
		if _, dup := seen[s.Name]; dup {
			return fmt.Errorf("sizes[%d]: duplicate tier name %q", i, s.Name)
		}
		seen[s.Name] = struct{}{}
	}
	return nil
}

// ProcessingConfig controls the worker pool.
type ProcessingConfig struct {
	// Workers bounds concurrent items. Zero means one per CPU.
	Workers int  `yaml:"workers"`
	Force   bool `yaml:"force"`
}

// Validate validates the processing configuration.
func (c *ProcessingConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Workers, validation.Min(0)),
	)
}

// SiteConfig points to the site.json whose galleries section is kept in
// sync. A missing file is left alone.
type SiteConfig struct {
	ConfigPath string `yaml:"config_path"`
}

// JournalConfig holds the build history database. An empty path disables it.
type JournalConfig struct {
	Path string `yaml:"path"`
}

// Enabled reports whether runs are recorded.
func (c *JournalConfig) Enabled() bool {
	return c.Path != ""
}

// PreviewConfig holds watch and preview server settings.
type PreviewConfig struct {
	Port     int           `yaml:"port"`
	Debounce time.Duration `yaml:"debounce"`
}

// Address returns HTTP server address.
func (c *PreviewConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the preview configuration.
func (c *PreviewConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.Debounce, validation.Min(time.Duration(0))),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel:  slog.LevelInfo,
			LogFormat: LogFormatAuto,
		},
		Source: SourceConfig{
			Path:       "gallery",
			Extensions: append([]string(nil), gallery.DefaultExtensions...),
		},
		Output: OutputConfig{
			Path:    "web/public/assets/gallery",
			Quality: photo.DefaultQuality,
			Sizes: []models.SizeSpec{
				{Name: "thumb", Size: 400},
				{Name: "medium", Size: 800},
				{Name: "full", Size: 1600},
			},
		},
		Processing: ProcessingConfig{
			Workers: 1,
		},
		Site: SiteConfig{
			ConfigPath: "web/public/site.json",
		},
		Journal: JournalConfig{
			Path: "",
		},
		Preview: PreviewConfig{
			Port:     8080,
			Debounce: watch.DefaultDebounce,
		},
	}
}
