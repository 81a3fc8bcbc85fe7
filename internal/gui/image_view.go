// Image display widget reporting the image pixel under the pointer
package gui

import (
	"image"
	"image/color"
	"math"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"

	"matview/internal/core"
)

// ImageView shows the display surface image scaled to fit and reports hovers
// in image coordinates.
type ImageView struct {
	widget.BaseWidget

	logger    logrus.FieldLogger
	image     *canvas.Image
	imageSize image.Point

	onHover func(p image.Point, inside bool)
}

// NewImageView creates an empty image view
func NewImageView(logger logrus.FieldLogger) *ImageView {
	v := &ImageView{logger: logger}
	v.image = canvas.NewImageFromImage(blankImage())
	v.image.FillMode = canvas.ImageFillContain
	v.image.SetMinSize(fyne.NewSize(400, 300))
	v.ExtendBaseWidget(v)
	return v
}

func (v *ImageView) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(v.image)
}

// Display replaces the displayed image with the one carried by change.
func (v *ImageView) Display(change core.Change) {
	if change.Image == nil {
		v.image.Image = blankImage()
		v.imageSize = image.Point{}
	} else {
		v.image.Image = change.Image
		v.imageSize = image.Pt(change.Metadata.Width, change.Metadata.Height)
	}
	v.image.Refresh()
}

// SetHoverCallback registers the pointer callback
func (v *ImageView) SetHoverCallback(fn func(p image.Point, inside bool)) {
	v.onHover = fn
}

func (v *ImageView) MouseIn(event *desktop.MouseEvent) {
	v.hover(event.Position)
}

func (v *ImageView) MouseMoved(event *desktop.MouseEvent) {
	v.hover(event.Position)
}

func (v *ImageView) MouseOut() {
	if v.onHover != nil {
		v.onHover(image.Point{}, false)
	}
}

func (v *ImageView) hover(pos fyne.Position) {
	if v.onHover == nil {
		return
	}
	p, ok := screenToImage(v.Size(), v.imageSize, pos)
	v.onHover(p, ok)
}

// screenToImage maps a widget position to image coordinates under
// ImageFillContain scaling. It reports false over the letterbox margins.
func screenToImage(widgetSize fyne.Size, imageSize image.Point, pos fyne.Position) (image.Point, bool) {
	if imageSize.X <= 0 || imageSize.Y <= 0 || widgetSize.Width <= 0 || widgetSize.Height <= 0 {
		return image.Point{}, false
	}

	scale := math.Min(
		float64(widgetSize.Width)/float64(imageSize.X),
		float64(widgetSize.Height)/float64(imageSize.Y),
	)
	offsetX := (float64(widgetSize.Width) - float64(imageSize.X)*scale) / 2
	offsetY := (float64(widgetSize.Height) - float64(imageSize.Y)*scale) / 2

	x := math.Floor((float64(pos.X) - offsetX) / scale)
	y := math.Floor((float64(pos.Y) - offsetY) / scale)
	if x < 0 || y < 0 || x >= float64(imageSize.X) || y >= float64(imageSize.Y) {
		return image.Point{}, false
	}
	return image.Pt(int(x), int(y)), true
}

func blankImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, color.Transparent)
	return img
}
