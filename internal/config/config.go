package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"matview/internal/core"
)

// Config is the complete matview configuration. Zero-valued fields of a
// loaded file keep their defaults.
type Config struct {
	LogLevel string       `yaml:"log_level"` // debug, info, warn, error
	Debug    bool         `yaml:"debug"`     // coloured text logs and debug level
	Viewer   ViewerConfig `yaml:"viewer"`
	Export   ExportConfig `yaml:"export"`
	Share    ShareConfig  `yaml:"share"`
}

// ViewerConfig contains channel inspector settings
type ViewerConfig struct {
	DefaultColormap string `yaml:"default_colormap"` // none, jet, parula, ...
	WindowWidth     int    `yaml:"window_width"`
	WindowHeight    int    `yaml:"window_height"`
}

// ExportConfig contains video export settings
type ExportConfig struct {
	FourCC             string `yaml:"fourcc"`
	ProgressIntervalMS int    `yaml:"progress_interval_ms"` // minimum delay between progress updates
}

// ShareConfig contains share staging settings
type ShareConfig struct {
	TempDir string `yaml:"temp_dir"` // empty uses the OS temp dir
	Format  string `yaml:"format"`   // .png, .jpg, .bmp, .tiff
}

// Default returns a Config populated with working defaults.
func Default() Config {
	return Config{
		LogLevel: "info",
		Viewer: ViewerConfig{
			DefaultColormap: "none",
			WindowWidth:     1200,
			WindowHeight:    800,
		},
		Export: ExportConfig{
			FourCC:             "MJPG",
			ProgressIntervalMS: 50,
		},
		Share: ShareConfig{
			Format: ".png",
		},
	}
}

// Load reads a YAML configuration file over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate returns an error if the configuration is inconsistent.
func Validate(c Config) error {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: log_level: %w", err)
	}
	if _, err := core.ParseColormap(c.Viewer.DefaultColormap); err != nil {
		return fmt.Errorf("config: viewer.default_colormap: %w", err)
	}
	if c.Viewer.WindowWidth <= 0 || c.Viewer.WindowHeight <= 0 {
		return errors.New("config: viewer window size must be positive")
	}
	if len(c.Export.FourCC) != 4 {
		return fmt.Errorf("config: export.fourcc must have 4 characters, got %q", c.Export.FourCC)
	}
	if c.Export.ProgressIntervalMS < 0 {
		return errors.New("config: export.progress_interval_ms must not be negative")
	}
	switch c.Share.Format {
	case ".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff":
	default:
		return fmt.Errorf("config: share.format %q is not supported", c.Share.Format)
	}
	return nil
}

// ProgressInterval returns the export progress throttle as a duration.
func (c Config) ProgressInterval() time.Duration {
	return time.Duration(c.Export.ProgressIntervalMS) * time.Millisecond
}

// Colormap returns the parsed default colormap. Validate guarantees it parses.
func (c Config) Colormap() core.Colormap {
	cm, _ := core.ParseColormap(c.Viewer.DefaultColormap)
	return cm
}

// Level returns the logrus level, forced to debug when Debug is set.
func (c Config) Level() logrus.Level {
	if c.Debug {
		return logrus.DebugLevel
	}
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}
