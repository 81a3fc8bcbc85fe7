package core

import (
	"fmt"

	"github.com/samber/lo"
	"gocv.io/x/gocv"
)

const (
	// DisplayMax is the largest displayable sample value.
	DisplayMax = 255.0

	// ConstantLevel is the output level for channels whose samples are all equal.
	ConstantLevel = 128.0
)

// ExtractChannel copies channel index of src into a new single-channel Mat of the same depth.
func ExtractChannel(src gocv.Mat, index int) (gocv.Mat, error) {
	if src.Empty() {
		return gocv.NewMat(), fmt.Errorf("cannot extract channel from empty image")
	}
	if index < 0 || index >= src.Channels() {
		return gocv.NewMat(), fmt.Errorf("channel %d out of range [0,%d)", index, src.Channels())
	}

	out := gocv.NewMat()
	var err error
	if src.Channels() == 1 {
		err = src.CopyTo(&out)
	} else {
		err = gocv.ExtractChannel(src, &out, index)
	}
	if err != nil {
		out.Close()
		return gocv.NewMat(), fmt.Errorf("extract channel %d: %w", index, err)
	}
	if out.Empty() {
		out.Close()
		return gocv.NewMat(), fmt.Errorf("channel %d extraction produced an empty image", index)
	}
	return out, nil
}

// Normalize linearly rescales a single-channel Mat so that its minimum maps to 0 and
// its maximum maps to DisplayMax, returning an 8-bit Mat owned by the caller.
// A constant channel maps to ConstantLevel everywhere.
//
// The range is measured and applied in float64; float32 cannot separate
// 1e9 from 1e9+10 or 2^24 from 2^24+1.
func Normalize(channel gocv.Mat) (gocv.Mat, error) {
	if channel.Empty() {
		return gocv.NewMat(), fmt.Errorf("cannot normalize empty image")
	}
	if channel.Channels() != 1 {
		return gocv.NewMat(), fmt.Errorf("normalize expects a single channel, got %d", channel.Channels())
	}

	plane, err := toFloatPlane(channel)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer plane.Close()

	minVal, maxVal, err := sampleRange(plane)
	if err != nil {
		return gocv.NewMat(), err
	}
	if minVal == maxVal {
		return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(ConstantLevel, 0, 0, 0),
			channel.Rows(), channel.Cols(), gocv.MatTypeCV8UC1), nil
	}

	scaled := gocv.NewMat()
	defer scaled.Close()
	if err := gocv.Normalize(plane, &scaled, 0, DisplayMax, gocv.NormMinMax); err != nil {
		return gocv.NewMat(), fmt.Errorf("normalize: %w", err)
	}

	out := gocv.NewMat()
	if err := scaled.ConvertTo(&out, gocv.MatTypeCV8U); err != nil {
		out.Close()
		return gocv.NewMat(), fmt.Errorf("convert normalized channel: %w", err)
	}
	if out.Empty() {
		out.Close()
		return gocv.NewMat(), fmt.Errorf("normalization produced an empty image")
	}
	return out, nil
}

// sampleRange returns the exact minimum and maximum of a CV_64F plane.
func sampleRange(plane gocv.Mat) (float64, float64, error) {
	samples, err := plane.DataPtrFloat64()
	if err != nil {
		return 0, 0, fmt.Errorf("read samples: %w", err)
	}
	if len(samples) == 0 {
		return 0, 0, fmt.Errorf("cannot normalize empty image")
	}
	return lo.Min(samples), lo.Max(samples), nil
}

// toFloatPlane converts a single-channel Mat to CV_64F so samples can be probed uniformly.
func toFloatPlane(channel gocv.Mat) (gocv.Mat, error) {
	out := gocv.NewMat()
	if err := channel.ConvertTo(&out, gocv.MatTypeCV64F); err != nil {
		out.Close()
		return gocv.NewMat(), fmt.Errorf("float conversion: %w", err)
	}
	if out.Empty() {
		out.Close()
		return gocv.NewMat(), fmt.Errorf("float conversion produced an empty image")
	}
	return out, nil
}
