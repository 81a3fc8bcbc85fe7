// Channel and colormap controls bound to the selector state
package gui

import (
	"fmt"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"matview/internal/core"
)

const noChannelOption = "none"

// ChannelPanel drives a ChannelColormapSelector and mirrors its state.
// The channel and colormap rows are hidden while the source is shown directly.
type ChannelPanel struct {
	selector *core.ChannelColormapSelector
	logger   logrus.FieldLogger

	channelSelect  *widget.Select
	colormapSelect *widget.Select
	statsLabel     *widget.Label
	probeLabel     *widget.Label
	perChannel     *fyne.Container
	container      *fyne.Container

	// set while widgets are updated from state, so their callbacks do not echo back
	updating bool
	onError  func(error)
}

// NewChannelPanel creates controls for selector
func NewChannelPanel(selector *core.ChannelColormapSelector, logger logrus.FieldLogger) *ChannelPanel {
	cp := &ChannelPanel{
		selector: selector,
		logger:   logger,
	}
	cp.initializeUI()
	selector.OnStateChanged(cp.Apply)
	cp.Apply(selector.State())
	return cp
}

func (cp *ChannelPanel) initializeUI() {
	cp.channelSelect = widget.NewSelect(nil, cp.channelChanged)
	cp.channelSelect.PlaceHolder = noChannelOption

	options := append([]string{core.ColormapNone.String()}, lo.Map(core.Colormaps(), func(c core.Colormap, _ int) string {
		return c.String()
	})...)
	cp.colormapSelect = widget.NewSelect(options, cp.colormapChanged)

	cp.statsLabel = widget.NewLabel("")
	cp.probeLabel = widget.NewLabel("")

	cp.perChannel = container.NewVBox(
		widget.NewForm(
			widget.NewFormItem("Channel", cp.channelSelect),
			widget.NewFormItem("Heatmap", cp.colormapSelect),
		),
		cp.statsLabel,
	)

	cp.container = container.NewVBox(
		cp.perChannel,
		widget.NewSeparator(),
		cp.probeLabel,
	)
}

func (cp *ChannelPanel) GetContainer() fyne.CanvasObject {
	return cp.container
}

// SetErrorCallback registers the handler for selector failures
func (cp *ChannelPanel) SetErrorCallback(fn func(error)) {
	cp.onError = fn
}

// Apply mirrors state into the widgets.
func (cp *ChannelPanel) Apply(state core.SelectorState) {
	cp.updating = true
	defer func() { cp.updating = false }()

	if !state.PerChannel {
		cp.perChannel.Hide()
		cp.statsLabel.SetText("")
		return
	}
	cp.perChannel.Show()

	cp.channelSelect.Options = append([]string{noChannelOption}, lo.Map(state.Channels, func(i int, _ int) string {
		return strconv.Itoa(i)
	})...)
	cp.channelSelect.SetSelected(state.Channel.String())
	cp.colormapSelect.SetSelected(state.Colormap.String())
	cp.statsLabel.SetText(formatStats(state.Stats))
}

// ShowProbe displays a probed sample, or clears the line when ok is false.
func (cp *ChannelPanel) ShowProbe(v core.ProbeValue, ok bool) {
	if !ok {
		cp.probeLabel.SetText("")
		return
	}
	cp.probeLabel.SetText(formatProbe(v))
}

func (cp *ChannelPanel) channelChanged(option string) {
	if cp.updating {
		return
	}

	var err error
	if option == noChannelOption || option == "" {
		err = cp.selector.ClearChannel()
	} else {
		index, convErr := strconv.Atoi(option)
		if convErr != nil {
			return
		}
		err = cp.selector.SetChannel(index)
	}
	cp.report(err)
}

func (cp *ChannelPanel) colormapChanged(option string) {
	if cp.updating {
		return
	}
	c, err := core.ParseColormap(option)
	if err == nil {
		err = cp.selector.SetColormap(c)
	}
	cp.report(err)
}

func (cp *ChannelPanel) report(err error) {
	if err == nil {
		return
	}
	cp.logger.WithField("error", err).Error("PANEL: Selector update failed")
	if cp.onError != nil {
		cp.onError(err)
	}
}

func formatStats(stats map[string]float64) string {
	if len(stats) == 0 {
		return ""
	}
	return fmt.Sprintf("min %.4g  max %.4g  mean %.4g  std %.4g",
		stats["min"], stats["max"], stats["mean"], stats["stddev"])
}

func formatProbe(v core.ProbeValue) string {
	return fmt.Sprintf("(%d, %d) ch %d: %.6g [%d]", v.X, v.Y, v.Channel, v.Raw, v.Normalized)
}
