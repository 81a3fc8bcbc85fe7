// Display surface holding the currently shown image with ownership isolation
package core

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// ErrIncompatibleFormat is returned when a Mat cannot be interpreted as a displayable image.
var ErrIncompatibleFormat = errors.New("incompatible source format")

// depthMask isolates the depth bits of an OpenCV type (CV_MAT_DEPTH_MASK).
const depthMask gocv.MatType = 7

// ImageMetadata contains image information
type ImageMetadata struct {
	Width    int
	Height   int
	Channels int
	Type     gocv.MatType
}

// MetadataOf describes a Mat without copying it
func MetadataOf(mat gocv.Mat) ImageMetadata {
	if mat.Empty() {
		return ImageMetadata{}
	}
	return ImageMetadata{
		Width:    mat.Cols(),
		Height:   mat.Rows(),
		Channels: mat.Channels(),
		Type:     mat.Type(),
	}
}

// Depth returns the per-element depth of a Mat type, e.g. MatTypeCV8U for MatTypeCV8UC3.
func Depth(t gocv.MatType) gocv.MatType {
	return t & depthMask
}

// IsViewable reports whether a Mat can be shown as-is: 3 or 4 channels of 8-bit data.
func IsViewable(mat gocv.Mat) bool {
	if mat.Empty() {
		return false
	}
	channels := mat.Channels()
	return (channels == 3 || channels == 4) && Depth(mat.Type()) == gocv.MatTypeCV8U
}

// ValidateImage validates an OpenCV Mat for basic requirements
func ValidateImage(mat gocv.Mat) error {
	if mat.Empty() {
		return fmt.Errorf("image is empty: %w", ErrIncompatibleFormat)
	}

	if mat.Cols() <= 0 || mat.Rows() <= 0 {
		return fmt.Errorf("invalid dimensions %dx%d: %w", mat.Cols(), mat.Rows(), ErrIncompatibleFormat)
	}

	// Check for reasonable size limits (prevent memory issues)
	const maxDimension = 16384
	if mat.Cols() > maxDimension || mat.Rows() > maxDimension {
		return fmt.Errorf("image too large: %dx%d (max: %d)", mat.Cols(), mat.Rows(), maxDimension)
	}

	return nil
}

// toDisplayFormat converts a Mat into the canonical 4-channel BGRA 8-bit layout.
// The returned Mat is always a fresh allocation owned by the caller.
func toDisplayFormat(mat gocv.Mat) (gocv.Mat, error) {
	if Depth(mat.Type()) != gocv.MatTypeCV8U {
		return gocv.NewMat(), fmt.Errorf("display requires 8-bit data, got type %v: %w", mat.Type(), ErrIncompatibleFormat)
	}

	out := gocv.NewMat()
	var err error
	switch mat.Channels() {
	case 1:
		err = gocv.CvtColor(mat, &out, gocv.ColorGrayToBGRA)
	case 3:
		err = gocv.CvtColor(mat, &out, gocv.ColorBGRToBGRA)
	case 4:
		err = mat.CopyTo(&out)
	default:
		out.Close()
		return gocv.NewMat(), fmt.Errorf("cannot display %d channels: %w", mat.Channels(), ErrIncompatibleFormat)
	}
	if err != nil {
		out.Close()
		return gocv.NewMat(), fmt.Errorf("colour conversion: %w", err)
	}

	if out.Empty() {
		out.Close()
		return gocv.NewMat(), fmt.Errorf("colour conversion produced an empty image")
	}
	return out, nil
}

// Change is raised by DisplaySurface after every Set.
// Image is nil when the surface was cleared.
type Change struct {
	Image    image.Image
	Metadata ImageMetadata
}

// DisplaySurface owns the currently shown image. Callers only ever see copies.
type DisplaySurface struct {
	mu       sync.RWMutex
	current  gocv.Mat
	metadata ImageMetadata
	logger   logrus.FieldLogger

	listeners []func(Change)
}

// NewDisplaySurface creates an empty display surface
func NewDisplaySurface(logger logrus.FieldLogger) *DisplaySurface {
	return &DisplaySurface{
		current: gocv.NewMat(),
		logger:  logger,
	}
}

// Subscribe registers a change listener. Listeners run synchronously on the caller of Set.
func (ds *DisplaySurface) Subscribe(fn func(Change)) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	ds.listeners = append(ds.listeners, fn)
}

// Set replaces the held image with a converted deep copy of mat. A nil mat clears the surface.
func (ds *DisplaySurface) Set(mat *gocv.Mat) error {
	var next gocv.Mat
	if mat != nil && !mat.Empty() {
		converted, err := toDisplayFormat(*mat)
		if err != nil {
			return fmt.Errorf("set display image: %w", err)
		}
		next = converted
	} else {
		next = gocv.NewMat()
	}

	ds.mu.Lock()
	// Old generation is released before the new one is adopted
	ds.current.Close()
	ds.current = next
	ds.metadata = MetadataOf(next)
	listeners := make([]func(Change), len(ds.listeners))
	copy(listeners, ds.listeners)
	ds.mu.Unlock()

	ds.logger.WithFields(logrus.Fields{
		"width":    ds.metadata.Width,
		"height":   ds.metadata.Height,
		"channels": ds.metadata.Channels,
		"cleared":  next.Empty(),
	}).Debug("SURFACE: Display image replaced")

	if len(listeners) == 0 {
		return nil
	}

	change := Change{Metadata: ds.metadata}
	if !next.Empty() {
		img, err := ds.Snapshot()
		if err != nil {
			return fmt.Errorf("build change snapshot: %w", err)
		}
		change.Image = img
	}
	for _, fn := range listeners {
		fn(change)
	}
	return nil
}

// Get returns a deep copy of the held image, or an empty Mat when nothing is shown.
// The caller owns the returned Mat and must Close it.
func (ds *DisplaySurface) Get() gocv.Mat {
	ds.mu.RLock()
	defer ds.mu.RUnlock()

	if ds.current.Empty() {
		return gocv.NewMat()
	}
	return ds.current.Clone()
}

// Snapshot returns a renderable Go image of the held image.
func (ds *DisplaySurface) Snapshot() (image.Image, error) {
	ds.mu.RLock()
	defer ds.mu.RUnlock()

	if ds.current.Empty() {
		return nil, fmt.Errorf("no image displayed")
	}
	return ds.current.ToImage()
}

// HasImage returns true if an image is shown
func (ds *DisplaySurface) HasImage() bool {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	return !ds.current.Empty()
}

// Metadata returns metadata of the held image
func (ds *DisplaySurface) Metadata() ImageMetadata {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	return ds.metadata
}

// Close releases all resources
func (ds *DisplaySurface) Close() {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	ds.current.Close()
	ds.current = gocv.NewMat()
	ds.metadata = ImageMetadata{}
}
