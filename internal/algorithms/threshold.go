// Binarization transforms
package algorithms

import (
	"fmt"

	"gocv.io/x/gocv"

	"matview/internal/core"
)

var adaptiveMethods = []string{"mean", "gaussian"}

// AdaptiveThreshold binarizes against a local mean or Gaussian-weighted mean.
type AdaptiveThreshold struct{}

func NewAdaptiveThreshold() *AdaptiveThreshold {
	return &AdaptiveThreshold{}
}

func (a *AdaptiveThreshold) Apply(input gocv.Mat, params Params) (gocv.Mat, error) {
	gray, err := toGray8(input)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer gray.Close()

	method := gocv.AdaptiveThresholdMean
	if params.Int("method") == 1 {
		method = gocv.AdaptiveThresholdGaussian
	}

	output := gocv.NewMat()
	if err := gocv.AdaptiveThreshold(gray, &output, float32(params.Float("max_value")), method, gocv.ThresholdBinary, params.Int("block_size"), float32(params.Float("C"))); err != nil {
		output.Close()
		return gocv.NewMat(), fmt.Errorf("adaptive threshold: %w", err)
	}
	return output, nil
}

func (a *AdaptiveThreshold) Name() string        { return "Adaptive Threshold" }
func (a *AdaptiveThreshold) Description() string { return "Local mean thresholding for uneven illumination" }

func (a *AdaptiveThreshold) Parameters() []ParameterInfo {
	return []ParameterInfo{
		{Name: "max_value", Type: "float", Min: 1, Max: 255, Default: 255, Description: "Value assigned to foreground pixels"},
		{Name: "block_size", Type: "int", Min: 3, Max: 99, Default: 11, Odd: true, Description: "Neighborhood size"},
		{Name: "C", Type: "float", Min: -50, Max: 50, Default: 2, Description: "Constant subtracted from the local mean"},
		{Name: "method", Type: "enum", Min: 0, Max: 1, Default: 0, Options: adaptiveMethods, Description: "Local mean weighting"},
	}
}

// Otsu binarizes with a global threshold chosen by Otsu's method.
type Otsu struct{}

func NewOtsu() *Otsu {
	return &Otsu{}
}

func (o *Otsu) Apply(input gocv.Mat, params Params) (gocv.Mat, error) {
	gray, err := toGray8(input)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer gray.Close()

	output := gocv.NewMat()
	gocv.Threshold(gray, &output, 0, float32(params.Float("max_value")), gocv.ThresholdBinary|gocv.ThresholdOtsu)
	return output, nil
}

func (o *Otsu) Name() string        { return "Otsu Threshold" }
func (o *Otsu) Description() string { return "Global threshold minimizing intra-class variance" }

func (o *Otsu) Parameters() []ParameterInfo {
	return []ParameterInfo{
		{Name: "max_value", Type: "float", Min: 1, Max: 255, Default: 255, Description: "Value assigned to foreground pixels"},
	}
}

// toGray8 returns a single-channel 8-bit copy of input. Non 8-bit data is
// rescaled to the full display range.
func toGray8(input gocv.Mat) (gocv.Mat, error) {
	gray := gocv.NewMat()
	var err error
	switch input.Channels() {
	case 1:
		err = input.CopyTo(&gray)
	case 3:
		err = gocv.CvtColor(input, &gray, gocv.ColorBGRToGray)
	case 4:
		err = gocv.CvtColor(input, &gray, gocv.ColorBGRAToGray)
	default:
		gray.Close()
		return gocv.NewMat(), fmt.Errorf("cannot convert %d channels to grayscale", input.Channels())
	}
	if err != nil {
		gray.Close()
		return gocv.NewMat(), fmt.Errorf("grayscale conversion: %w", err)
	}

	if core.Depth(gray.Type()) == gocv.MatTypeCV8U {
		return gray, nil
	}
	defer gray.Close()
	return core.Normalize(gray)
}
