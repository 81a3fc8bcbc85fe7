package gui

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"

	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"matview/internal/algorithms"
	"matview/internal/config"
	"matview/internal/core"
	"matview/internal/export"
)

// bgrFrame is a 4x4 BGR frame whose red channel peaks at 200 in the top-left pixel.
func bgrFrame() gocv.Mat {
	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(10, 20, 30, 0), 4, 4, gocv.MatTypeCV8UC3)
	frame.SetUCharAt(0, 2, 200)
	return frame
}

func TestExportTransformLeavesViewerAlone(t *testing.T) {
	surface := core.NewDisplaySurface(testLogger())
	defer surface.Close()
	selector := core.NewChannelColormapSelector(surface, testLogger())
	defer selector.Close()

	src := fiveChannels(t)
	defer src.Close()
	require.NoError(t, selector.SetSource(&src))
	require.NoError(t, selector.SetChannel(3))
	require.NoError(t, selector.SetColormap(core.ColormapJet))

	before, ok := selector.Probe(0, 0)
	require.True(t, ok)

	view := viewOf(selector.State())
	assert.Equal(t, channelView{index: 3, colormap: core.ColormapJet}, view)

	chain, err := algorithms.ParseChain(nil)
	require.NoError(t, err)
	transform := exportTransform(chain, &view)

	frame := bgrFrame()
	defer frame.Close()
	for i := 0; i < 3; i++ {
		out, err := transform(frame, i)
		require.NoError(t, err)
		assert.Equal(t, 3, out.Channels())
		assert.Equal(t, image.Pt(4, 4), image.Pt(out.Cols(), out.Rows()))
		out.Close()
	}

	state := selector.State()
	assert.True(t, state.PerChannel)
	assert.Equal(t, 5, state.ChannelCount)
	assert.Equal(t, core.Channel(3), state.Channel)
	assert.Equal(t, core.ColormapJet, state.Colormap)
	assert.True(t, surface.HasImage())

	after, ok := selector.Probe(0, 0)
	require.True(t, ok)
	assert.Equal(t, before, after)
}

func TestExportTransformRendersDirectFrames(t *testing.T) {
	// a BGR frame has 3 channels; index 3 clamps to the red channel
	view := channelView{index: 3, colormap: core.ColormapNone}
	chain, err := algorithms.ParseChain(nil)
	require.NoError(t, err)

	frame := bgrFrame()
	defer frame.Close()

	out, err := exportTransform(chain, &view)(frame, 0)
	require.NoError(t, err)
	defer out.Close()

	require.Equal(t, 1, out.Channels())
	assert.Equal(t, uint8(255), out.GetUCharAt(0, 0))
	assert.Equal(t, uint8(0), out.GetUCharAt(3, 3))
}

func TestExportTransformWithoutView(t *testing.T) {
	chain, err := algorithms.ParseChain(nil)
	require.NoError(t, err)

	frame := bgrFrame()
	defer frame.Close()

	out, err := exportTransform(chain, nil)(frame, 0)
	require.NoError(t, err)
	defer out.Close()

	assert.Equal(t, 3, out.Channels())
	assert.Equal(t, frame.GetVecbAt(0, 0), out.GetVecbAt(0, 0))
}

func TestViewOfWithoutChannelUsesFirst(t *testing.T) {
	view := viewOf(core.SelectorState{Channel: core.NoChannel, Colormap: core.ColormapHot})
	assert.Equal(t, channelView{index: 0, colormap: core.ColormapHot}, view)
}

// stalledSource blocks in Read until release is closed, keeping its run active.
type stalledSource struct {
	release chan struct{}
}

func (s *stalledSource) FrameCount() int       { return 1 }
func (s *stalledSource) Position() int         { return 0 }
func (s *stalledSource) SetPosition(int) error { return nil }
func (s *stalledSource) FPS() float64          { return 30 }
func (s *stalledSource) Size() image.Point     { return image.Pt(4, 4) }

func (s *stalledSource) Read(*gocv.Mat) error {
	<-s.release
	return errors.New("stream ended")
}

type discardSink struct{}

func (discardSink) Write(gocv.Mat) error { return nil }
func (discardSink) Close() error         { return nil }

func TestExportPanelStartRefusesWhileRunning(t *testing.T) {
	a := test.NewApp()
	defer a.Quit()

	surface := core.NewDisplaySurface(testLogger())
	defer surface.Close()
	selector := core.NewChannelColormapSelector(surface, testLogger())
	defer selector.Close()
	panel := NewExportPanel(config.Default(), selector, testLogger())

	chain, err := algorithms.ParseChain(nil)
	require.NoError(t, err)

	source := &stalledSource{release: make(chan struct{})}
	run, err := panel.pipeline.Start(context.Background(), export.Job{
		Source:    source,
		Sink:      discardSink{},
		Transform: exportTransform(chain, nil),
	})
	require.NoError(t, err)
	require.True(t, panel.Running())

	dir := t.TempDir()
	output := filepath.Join(dir, "busy.avi")
	require.NoError(t, os.WriteFile(output, []byte("in progress"), 0o644))

	err = panel.Start(ExportRequest{
		Input:  filepath.Join(dir, "clip.avi"),
		Output: output,
		Chain:  chain,
	})
	assert.ErrorIs(t, err, export.ErrAlreadyRunning)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "in progress", string(data))

	close(source.release)
	result, _ := run.Wait()
	assert.Equal(t, export.StateFailed, result.State)
	assert.False(t, panel.Running())
}
