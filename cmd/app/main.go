// matview: multi-channel image inspector and frame-sequential video exporter
package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"matview/internal/config"
)

const (
	AppName    = "matview"
	AppID      = "io.matview.viewer"
	AppVersion = "1.0.0"
)

type rootOptions struct {
	configPath string
	debug      bool
	logLevel   string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           AppName,
		Short:         "Inspect multi-channel images and export transformed videos",
		Version:       AppVersion,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML configuration file")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug mode with verbose logging")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level override (debug, info, warn, error)")

	root.AddCommand(
		newViewCommand(opts),
		newExportCommand(opts),
		newTransformsCommand(),
	)
	return root
}

// load resolves the configuration: defaults, then the config file, then flags.
func (o *rootOptions) load() (config.Config, *logrus.Logger, error) {
	cfg := config.Default()
	if o.configPath != "" {
		loaded, err := config.Load(o.configPath)
		if err != nil {
			return cfg, nil, err
		}
		cfg = loaded
	}
	if o.debug {
		cfg.Debug = true
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if err := config.Validate(cfg); err != nil {
		return cfg, nil, err
	}
	return cfg, initLogger(cfg), nil
}

// initLogger initializes the logger with appropriate level
func initLogger(cfg config.Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetLevel(cfg.Level())

	if cfg.Debug {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   true,
		})
		logger.Debug("Debug logging enabled")
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	return logger
}
