package algorithms

import (
	"fmt"

	"github.com/samber/lo"
	"gocv.io/x/gocv"

	"matview/internal/core"
)

// ChannelView extracts one channel and rescales it to the 8-bit display range.
type ChannelView struct{}

// NewChannelView creates a new channel extraction transform
func NewChannelView() *ChannelView {
	return &ChannelView{}
}

func (c *ChannelView) Apply(input gocv.Mat, params Params) (gocv.Mat, error) {
	return renderChannel(input, params.Int("index"), core.ColormapNone)
}

func (c *ChannelView) Name() string { return "Channel" }
func (c *ChannelView) Description() string {
	return "Single channel rescaled so its minimum is black and its maximum is white"
}

func (c *ChannelView) Parameters() []ParameterInfo {
	return []ParameterInfo{
		{Name: "index", Type: "int", Min: 0, Max: 511, Default: 0, Description: "Channel index"},
	}
}

// Heatmap renders one channel through a colormap lookup table.
type Heatmap struct{}

// NewHeatmap creates a new heatmap transform
func NewHeatmap() *Heatmap {
	return &Heatmap{}
}

func (h *Heatmap) Apply(input gocv.Mat, params Params) (gocv.Mat, error) {
	return renderChannel(input, params.Int("index"), core.Colormap(params.Int("map")))
}

func (h *Heatmap) Name() string        { return "Heatmap" }
func (h *Heatmap) Description() string { return "Single channel rendered with a colormap" }

func (h *Heatmap) Parameters() []ParameterInfo {
	options := append([]string{core.ColormapNone.String()}, lo.Map(core.Colormaps(), func(c core.Colormap, _ int) string {
		return c.String()
	})...)

	return []ParameterInfo{
		{Name: "index", Type: "int", Min: 0, Max: 511, Default: 0, Description: "Channel index"},
		{Name: "map", Type: "enum", Min: 0, Max: float64(len(options) - 1), Default: float64(core.ColormapJet), Options: options, Description: "Colormap"},
	}
}

func renderChannel(input gocv.Mat, index int, c core.Colormap) (gocv.Mat, error) {
	if index >= input.Channels() {
		return gocv.NewMat(), fmt.Errorf("channel %d out of range, image has %d", index, input.Channels())
	}
	return core.RenderChannel(input, index, c)
}
