// Video export progress and abort controls
package gui

import (
	"context"
	"fmt"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"matview/internal/algorithms"
	"matview/internal/config"
	"matview/internal/core"
	"matview/internal/export"
	"matview/internal/io"
)

// ExportRequest is what the export dialog collects.
type ExportRequest struct {
	Input   string
	Output  string
	Chain   *algorithms.Chain
	Through bool // render every frame through the channel view
}

// channelView is the viewer's channel and colormap selection frozen when an
// export starts. Frames are rendered with it directly; the viewer's selector
// and its source image are never touched by an export.
type channelView struct {
	index    int
	colormap core.Colormap
}

func viewOf(state core.SelectorState) channelView {
	view := channelView{colormap: state.Colormap}
	if state.Channel.Valid {
		view.index = state.Channel.Index
	}
	return view
}

// render draws one channel of frame, clamping the index to the frame's channel count.
func (v channelView) render(frame gocv.Mat) (gocv.Mat, error) {
	index := min(v.index, frame.Channels()-1)
	return core.RenderChannel(frame, index, v.colormap)
}

// ExportPanel runs video exports and shows their progress.
type ExportPanel struct {
	logger   logrus.FieldLogger
	cfg      config.Config
	pipeline *export.Pipeline
	selector *core.ChannelColormapSelector

	progressBar *widget.ProgressBar
	statusLabel *widget.Label
	abortButton *widget.Button
	container   *fyne.Container

	run        *export.Run
	onFinished func(export.Result, error)
}

// NewExportPanel creates export controls. Transforms run on the fyne thread.
func NewExportPanel(cfg config.Config, selector *core.ChannelColormapSelector, logger logrus.FieldLogger) *ExportPanel {
	ep := &ExportPanel{
		logger:   logger,
		cfg:      cfg,
		selector: selector,
		pipeline: export.NewPipeline(logger,
			export.WithDispatcher(export.DispatcherFunc(fyne.Do)),
			export.WithProgressInterval(cfg.ProgressInterval()),
		),
	}
	ep.initializeUI()
	return ep
}

func (ep *ExportPanel) initializeUI() {
	ep.progressBar = widget.NewProgressBar()
	ep.statusLabel = widget.NewLabel("No export running")
	ep.abortButton = widget.NewButton("Abort", ep.Abort)
	ep.abortButton.Disable()

	ep.container = container.NewVBox(
		ep.progressBar,
		container.NewBorder(nil, nil, nil, ep.abortButton, ep.statusLabel),
	)
	ep.container.Hide()
}

func (ep *ExportPanel) GetContainer() fyne.CanvasObject {
	return ep.container
}

// SetFinishedCallback registers a handler called on the fyne thread when a run ends
func (ep *ExportPanel) SetFinishedCallback(fn func(export.Result, error)) {
	ep.onFinished = fn
}

// Running reports whether an export is in progress
func (ep *ExportPanel) Running() bool {
	return ep.pipeline.State() == export.StateRunning
}

// Start opens the videos and launches the export. It must be called on the
// fyne thread; the channel view is captured from the selector here.
func (ep *ExportPanel) Start(req ExportRequest) error {
	// the output file is truncated on open, so refuse before touching it
	if ep.Running() {
		return export.ErrAlreadyRunning
	}

	var view *channelView
	if req.Through {
		v := viewOf(ep.selector.State())
		view = &v
	}

	source, err := io.OpenVideo(req.Input, ep.logger)
	if err != nil {
		return err
	}

	sink, err := io.CreateVideo(req.Output, ep.cfg.Export.FourCC, source.FPS(), source.Size(), ep.logger)
	if err != nil {
		source.Close()
		return err
	}

	run, err := ep.pipeline.Start(context.Background(), export.Job{
		Source:     source,
		Sink:       sink,
		Transform:  exportTransform(req.Chain, view),
		OnProgress: ep.showProgress,
	})
	if err != nil {
		sink.Close()
		source.Close()
		return err
	}

	ep.run = run
	ep.progressBar.SetValue(0)
	ep.statusLabel.SetText(fmt.Sprintf("Exporting %s", req.Output))
	ep.abortButton.Enable()
	ep.container.Show()

	go func() {
		result, err := run.Wait()
		if closeErr := source.Close(); closeErr != nil {
			ep.logger.WithField("error", closeErr).Warn("EXPORT: Failed to close source")
		}
		fyne.Do(func() { ep.finish(result, err) })
	}()
	return nil
}

// Abort cancels the running export at the next frame boundary.
func (ep *ExportPanel) Abort() {
	if ep.run != nil {
		ep.logger.WithField("run_id", ep.run.ID).Info("EXPORT: Abort requested")
		ep.run.Cancel()
	}
}

// exportTransform applies the chain and, when view is set, renders the
// result through that channel view.
func exportTransform(chain *algorithms.Chain, view *channelView) export.TransformFunc {
	return func(frame gocv.Mat, index int) (gocv.Mat, error) {
		out, err := chain.Apply(frame, index)
		if err != nil || view == nil {
			return out, err
		}
		defer out.Close()

		rendered, err := view.render(out)
		if err != nil {
			return gocv.NewMat(), fmt.Errorf("channel view on frame %d: %w", index, err)
		}
		return rendered, nil
	}
}

func (ep *ExportPanel) showProgress(p export.Progress) {
	ep.progressBar.SetValue(p.Fraction())
	ep.statusLabel.SetText(p.String())
}

func (ep *ExportPanel) finish(result export.Result, err error) {
	ep.run = nil
	ep.abortButton.Disable()

	switch {
	case err != nil:
		ep.statusLabel.SetText(fmt.Sprintf("Export failed: %v", err))
	case result.State == export.StateAborted:
		ep.statusLabel.SetText(fmt.Sprintf("Export aborted after %d frames", result.FramesWritten))
	default:
		ep.progressBar.SetValue(1)
		ep.statusLabel.SetText(fmt.Sprintf("Exported %d frames in %s", result.FramesWritten, result.Elapsed.Round(time.Millisecond)))
	}

	if ep.onFinished != nil {
		ep.onFinished(result, err)
	}
}
