package main

import (
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/theme"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"matview/internal/gui"
)

func newViewCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "view [image]",
		Short: "Open the viewer, optionally with an image",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			logger.WithFields(logrus.Fields{
				"version":    AppVersion,
				"debug_mode": cfg.Debug,
			}).Info("Starting matview")

			fyneApp := app.NewWithID(AppID)
			fyneApp.SetIcon(theme.DocumentIcon())

			mainApp := gui.NewApplication(fyneApp, cfg, logger)
			if len(args) == 1 {
				if err := mainApp.LoadImageFromPath(args[0]); err != nil {
					logger.WithField("error", err).Error("Failed to open initial image")
				}
			}
			mainApp.ShowAndRun()

			logger.Info("Application shutting down gracefully")
			return nil
		},
	}
}
