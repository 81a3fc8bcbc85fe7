// Smoothing filters
package algorithms

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"matview/internal/core"
)

// GaussianFilter implements Gaussian blur filter
type GaussianFilter struct{}

// NewGaussianFilter creates a new Gaussian filter
func NewGaussianFilter() *GaussianFilter {
	return &GaussianFilter{}
}

func (g *GaussianFilter) Apply(input gocv.Mat, params Params) (gocv.Mat, error) {
	k := params.Int("kernel_size")

	output := gocv.NewMat()
	if err := gocv.GaussianBlur(input, &output, image.Pt(k, k), params.Float("sigma_x"), params.Float("sigma_y"), gocv.BorderDefault); err != nil {
		output.Close()
		return gocv.NewMat(), fmt.Errorf("gaussian: %w", err)
	}
	return output, nil
}

func (g *GaussianFilter) Name() string        { return "Gaussian Filter" }
func (g *GaussianFilter) Description() string { return "Gaussian blur for general noise reduction" }

func (g *GaussianFilter) Parameters() []ParameterInfo {
	return []ParameterInfo{
		{Name: "kernel_size", Type: "int", Min: 3, Max: 21, Default: 5, Odd: true, Description: "Size of the Gaussian kernel"},
		{Name: "sigma_x", Type: "float", Min: 0.1, Max: 10, Default: 1, Description: "Standard deviation in X direction"},
		{Name: "sigma_y", Type: "float", Min: 0.1, Max: 10, Default: 1, Description: "Standard deviation in Y direction"},
	}
}

// MedianFilter implements median filter
type MedianFilter struct{}

// NewMedianFilter creates a new median filter
func NewMedianFilter() *MedianFilter {
	return &MedianFilter{}
}

func (m *MedianFilter) Apply(input gocv.Mat, params Params) (gocv.Mat, error) {
	k := params.Int("kernel_size")
	// OpenCV only supports large median apertures on 8-bit data
	if k > 5 && core.Depth(input.Type()) != gocv.MatTypeCV8U {
		return gocv.NewMat(), fmt.Errorf("median: kernel_size %d requires 8-bit input", k)
	}

	output := gocv.NewMat()
	if err := gocv.MedianBlur(input, &output, k); err != nil {
		output.Close()
		return gocv.NewMat(), fmt.Errorf("median: %w", err)
	}
	return output, nil
}

func (m *MedianFilter) Name() string        { return "Median Filter" }
func (m *MedianFilter) Description() string { return "Median filter to remove salt-and-pepper noise" }

func (m *MedianFilter) Parameters() []ParameterInfo {
	return []ParameterInfo{
		{Name: "kernel_size", Type: "int", Min: 3, Max: 15, Default: 5, Odd: true, Description: "Size of the median filter kernel"},
	}
}

// BilateralFilter implements bilateral filter
type BilateralFilter struct{}

// NewBilateralFilter creates a new bilateral filter
func NewBilateralFilter() *BilateralFilter {
	return &BilateralFilter{}
}

func (b *BilateralFilter) Apply(input gocv.Mat, params Params) (gocv.Mat, error) {
	if c := input.Channels(); c != 1 && c != 3 {
		return gocv.NewMat(), fmt.Errorf("bilateral: expects 1 or 3 channels, got %d", c)
	}

	output := gocv.NewMat()
	if err := gocv.BilateralFilter(input, &output, params.Int("d"), params.Float("sigma_color"), params.Float("sigma_space")); err != nil {
		output.Close()
		return gocv.NewMat(), fmt.Errorf("bilateral: %w", err)
	}
	return output, nil
}

func (b *BilateralFilter) Name() string        { return "Bilateral Filter" }
func (b *BilateralFilter) Description() string { return "Bilateral filter for edge-preserving smoothing" }

func (b *BilateralFilter) Parameters() []ParameterInfo {
	return []ParameterInfo{
		{Name: "d", Type: "int", Min: 3, Max: 15, Default: 9, Description: "Diameter of each pixel neighborhood"},
		{Name: "sigma_color", Type: "float", Min: 10, Max: 200, Default: 75, Description: "Filter sigma in the color space"},
		{Name: "sigma_space", Type: "float", Min: 10, Max: 200, Default: 75, Description: "Filter sigma in the coordinate space"},
	}
}
