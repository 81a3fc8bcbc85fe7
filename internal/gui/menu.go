// Menu handler for application actions
package gui

import (
	"fmt"
	"path/filepath"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"

	"matview/internal/algorithms"
	"matview/internal/core"
	"matview/internal/io"
)

var videoExtensions = []string{".avi", ".mp4", ".mov", ".mkv", ".m4v"}

// MenuHandler handles menu actions
type MenuHandler struct {
	window  fyne.Window
	surface *core.DisplaySurface
	loader  *io.ImageLoader
	sharer  *io.Sharer
	format  string
	logger  logrus.FieldLogger

	onOpen   func(path string)
	onExport func(ExportRequest)
}

func NewMenuHandler(window fyne.Window, surface *core.DisplaySurface, loader *io.ImageLoader, sharer *io.Sharer, shareFormat string, logger logrus.FieldLogger) *MenuHandler {
	return &MenuHandler{
		window:  window,
		surface: surface,
		loader:  loader,
		sharer:  sharer,
		format:  shareFormat,
		logger:  logger,
	}
}

// SetCallbacks registers the handlers for opened images and export requests
func (mh *MenuHandler) SetCallbacks(onOpen func(string), onExport func(ExportRequest)) {
	mh.onOpen = onOpen
	mh.onExport = onExport
}

func (mh *MenuHandler) GetMainMenu() *fyne.MainMenu {
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Open Image...", mh.openImage),
		fyne.NewMenuItem("Save View...", mh.saveView),
		fyne.NewMenuItem("Share View", mh.shareView),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Export Video...", mh.exportVideo),
	)

	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", mh.showAbout),
	)

	return fyne.NewMainMenu(fileMenu, helpMenu)
}

func (mh *MenuHandler) openImage() {
	fileDialog := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			mh.showError("File Dialog Error", err)
			return
		}
		if reader == nil {
			return
		}
		path := reader.URI().Path()
		reader.Close()

		if mh.onOpen != nil {
			mh.onOpen(path)
		}
	}, mh.window)

	fileDialog.SetFilter(storage.NewExtensionFileFilter(mh.loader.ReadExtensions()))
	fileDialog.Show()
}

func (mh *MenuHandler) saveView() {
	if !mh.surface.HasImage() {
		mh.showError("No Image", fmt.Errorf("nothing is displayed"))
		return
	}

	fileDialog := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil {
			mh.showError("File Dialog Error", err)
			return
		}
		if writer == nil {
			return
		}
		path := writer.URI().Path()
		writer.Close()

		shown := mh.surface.Get()
		defer shown.Close()

		if err := mh.loader.SaveImage(shown, path); err != nil {
			mh.showError("Failed to Save Image", err)
			return
		}
		mh.logger.WithField("filepath", path).Info("MENU: View saved")
	}, mh.window)

	fileDialog.SetFileName("view.png")
	fileDialog.SetFilter(storage.NewExtensionFileFilter(mh.loader.WriteExtensions()))
	fileDialog.Show()
}

func (mh *MenuHandler) shareView() {
	shared, err := mh.sharer.Share(mh.surface, mh.format)
	if err != nil {
		mh.showError("Share Failed", err)
		return
	}

	mh.window.Clipboard().SetContent(shared.URI.String())
	dialog.ShowInformation("Shared",
		fmt.Sprintf("%s (%d bytes)\n%s\nLocation copied to clipboard", shared.MimeType, len(shared.Data), shared.URI.Path()),
		mh.window)
}

// exportVideo asks for the input video, then the output file, then the transforms.
func (mh *MenuHandler) exportVideo() {
	openDialog := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			mh.showError("File Dialog Error", err)
			return
		}
		if reader == nil {
			return
		}
		input := reader.URI().Path()
		reader.Close()
		mh.chooseExportTarget(input)
	}, mh.window)

	openDialog.SetFilter(storage.NewExtensionFileFilter(videoExtensions))
	openDialog.Show()
}

func (mh *MenuHandler) chooseExportTarget(input string) {
	saveDialog := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil {
			mh.showError("File Dialog Error", err)
			return
		}
		if writer == nil {
			return
		}
		output := writer.URI().Path()
		writer.Close()
		mh.configureExport(input, output)
	}, mh.window)

	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	saveDialog.SetFileName(base + "_export.avi")
	saveDialog.Show()
}

func (mh *MenuHandler) configureExport(input, output string) {
	chainEntry := widget.NewEntry()
	chainEntry.SetPlaceHolder("gaussian:kernel_size=5 median")
	throughView := widget.NewCheck("Render through current channel and colormap", nil)

	form := dialog.NewForm("Export Video", "Export", "Cancel", []*widget.FormItem{
		widget.NewFormItem("Transforms", chainEntry),
		widget.NewFormItem("", throughView),
		widget.NewFormItem("Available", widget.NewLabel(strings.Join(algorithms.Names(), ", "))),
	}, func(confirmed bool) {
		if !confirmed {
			return
		}
		chain, err := algorithms.ParseChain(strings.Fields(chainEntry.Text))
		if err != nil {
			mh.showError("Invalid Transforms", err)
			return
		}
		if mh.onExport != nil {
			mh.onExport(ExportRequest{Input: input, Output: output, Chain: chain, Through: throughView.Checked})
		}
	}, mh.window)
	form.Resize(fyne.NewSize(520, 240))
	form.Show()
}

func (mh *MenuHandler) showAbout() {
	content := container.NewVBox(
		widget.NewLabel("matview"),
		widget.NewSeparator(),
		widget.NewLabel("Multi-channel image inspector with colormap heatmaps"),
		widget.NewLabel("and frame-by-frame video export."),
		widget.NewSeparator(),
		widget.NewLabel("Built with Go, Fyne and OpenCV"),
	)

	aboutDialog := dialog.NewCustom("About", "Close", content, mh.window)
	aboutDialog.Resize(fyne.NewSize(400, 220))
	aboutDialog.Show()
}

func (mh *MenuHandler) showError(title string, err error) {
	mh.logger.WithField("error", err).Error("MENU: " + title)
	dialog.ShowError(err, mh.window)
}
