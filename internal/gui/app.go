// Main application window wiring the viewer, channel controls and export
package gui

import (
	"fmt"
	"image"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"

	"matview/internal/config"
	"matview/internal/core"
	"matview/internal/export"
	"matview/internal/io"
)

// Application represents the main application window
type Application struct {
	app    fyne.App
	window fyne.Window
	logger logrus.FieldLogger
	cfg    config.Config

	// Core components
	surface  *core.DisplaySurface
	selector *core.ChannelColormapSelector
	loader   *io.ImageLoader
	sharer   *io.Sharer

	// GUI components
	view        *ImageView
	channels    *ChannelPanel
	exports     *ExportPanel
	menuHandler *MenuHandler
	statusLabel *widget.Label
}

func NewApplication(app fyne.App, cfg config.Config, logger logrus.FieldLogger) *Application {
	window := app.NewWindow("matview")
	window.Resize(fyne.NewSize(float32(cfg.Viewer.WindowWidth), float32(cfg.Viewer.WindowHeight)))
	window.CenterOnScreen()

	a := &Application{
		app:    app,
		window: window,
		logger: logger,
		cfg:    cfg,
	}

	a.initializeCore()
	a.initializeGUI()
	a.setupLayout()
	a.setupCallbacks()

	return a
}

func (a *Application) initializeCore() {
	a.surface = core.NewDisplaySurface(a.logger)
	a.selector = core.NewChannelColormapSelector(a.surface, a.logger)
	a.loader = io.NewImageLoader(a.logger)
	a.sharer = io.NewSharer(a.cfg.Share.TempDir, a.logger)

	if err := a.selector.SetColormap(a.cfg.Colormap()); err != nil {
		a.logger.WithField("error", err).Warn("APP: Ignoring configured colormap")
	}
}

func (a *Application) initializeGUI() {
	a.view = NewImageView(a.logger)
	a.channels = NewChannelPanel(a.selector, a.logger)
	a.exports = NewExportPanel(a.cfg, a.selector, a.logger)
	a.menuHandler = NewMenuHandler(a.window, a.surface, a.loader, a.sharer, a.cfg.Share.Format, a.logger)
	a.statusLabel = widget.NewLabel("Open an image to start")
}

func (a *Application) setupLayout() {
	side := container.NewVBox(
		widget.NewCard("Channels", "", a.channels.GetContainer()),
		widget.NewCard("Export", "", a.exports.GetContainer()),
	)

	split := container.NewHSplit(container.NewPadded(a.view), container.NewVScroll(side))
	split.SetOffset(0.75)

	a.window.SetMainMenu(a.menuHandler.GetMainMenu())
	a.window.SetContent(container.NewBorder(nil, a.statusLabel, nil, nil, split))
}

func (a *Application) setupCallbacks() {
	// Surface changes happen on the fyne thread: the selector is only driven from there
	a.surface.Subscribe(func(change core.Change) {
		a.view.Display(change)
		if change.Image == nil {
			a.channels.ShowProbe(core.ProbeValue{}, false)
		}
	})

	a.view.SetHoverCallback(func(p image.Point, inside bool) {
		if !inside {
			a.channels.ShowProbe(core.ProbeValue{}, false)
			return
		}
		a.channels.ShowProbe(a.selector.Probe(p.X, p.Y))
	})

	a.channels.SetErrorCallback(func(err error) {
		a.showError("Display Error", err)
	})

	a.menuHandler.SetCallbacks(
		func(path string) {
			if err := a.LoadImageFromPath(path); err != nil {
				a.showError("Failed to Load Image", err)
			}
		},
		func(req ExportRequest) {
			if err := a.exports.Start(req); err != nil {
				a.showError("Export Failed", err)
				return
			}
			a.updateStatusMessage(fmt.Sprintf("Exporting %s", req.Output))
		},
	)

	a.exports.SetFinishedCallback(func(result export.Result, err error) {
		if err != nil {
			a.showError("Export Failed", err)
			return
		}
		a.updateStatusMessage(fmt.Sprintf("Export %s: %d frames", result.State, result.FramesWritten))
	})
}

func (a *Application) updateStatusMessage(message string) {
	a.statusLabel.SetText(message)
}

func (a *Application) ShowAndRun() {
	a.logger.Info("APP: Showing main window")

	a.window.SetCloseIntercept(func() {
		a.cleanup()
		a.app.Quit()
	})

	a.window.ShowAndRun()
}

func (a *Application) cleanup() {
	a.logger.Info("APP: Cleaning up resources")
	a.exports.Abort()
	a.selector.Close()
	a.surface.Close()
}

func (a *Application) showError(title string, err error) {
	a.logger.WithField("error", err).Error("APP: " + title)
	dialog.ShowError(err, a.window)
	a.updateStatusMessage(fmt.Sprintf("Error: %s", err.Error()))
}

// LoadImageFromPath loads an image and hands it to the channel selector.
func (a *Application) LoadImageFromPath(path string) error {
	mat, err := a.loader.LoadImage(path)
	if err != nil {
		return fmt.Errorf("failed to load image: %w", err)
	}
	defer mat.Close()

	if err := core.ValidateImage(mat); err != nil {
		return fmt.Errorf("invalid image: %w", err)
	}

	if err := a.selector.SetSource(&mat); err != nil {
		return fmt.Errorf("failed to display image: %w", err)
	}

	meta := core.MetadataOf(mat)
	a.updateStatusMessage(fmt.Sprintf("%s: %dx%d, %d channels", path, meta.Width, meta.Height, meta.Channels))
	return nil
}
