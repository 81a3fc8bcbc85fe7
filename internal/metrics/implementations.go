// Concrete implementations of channel statistics
package metrics

import (
	"fmt"

	"github.com/samber/lo"
	"gocv.io/x/gocv"
)

// Minimum reports the smallest sample of a channel
type Minimum struct{}

// NewMinimum creates a new minimum metric
func NewMinimum() *Minimum {
	return &Minimum{}
}

func (m *Minimum) Calculate(channel gocv.Mat) (float64, error) {
	if err := checkChannel(channel); err != nil {
		return 0, err
	}
	values, err := samples(channel)
	if err != nil {
		return 0, err
	}
	return lo.Min(values), nil
}

func (m *Minimum) GetName() string        { return "Min" }
func (m *Minimum) GetDescription() string { return "Smallest sample value" }

// Maximum reports the largest sample of a channel
type Maximum struct{}

// NewMaximum creates a new maximum metric
func NewMaximum() *Maximum {
	return &Maximum{}
}

func (m *Maximum) Calculate(channel gocv.Mat) (float64, error) {
	if err := checkChannel(channel); err != nil {
		return 0, err
	}
	values, err := samples(channel)
	if err != nil {
		return 0, err
	}
	return lo.Max(values), nil
}

func (m *Maximum) GetName() string        { return "Max" }
func (m *Maximum) GetDescription() string { return "Largest sample value" }

// Mean reports the average sample of a channel
type Mean struct{}

// NewMean creates a new mean metric
func NewMean() *Mean {
	return &Mean{}
}

func (m *Mean) Calculate(channel gocv.Mat) (float64, error) {
	if err := checkChannel(channel); err != nil {
		return 0, err
	}
	return channel.Mean().Val1, nil
}

func (m *Mean) GetName() string        { return "Mean" }
func (m *Mean) GetDescription() string { return "Average sample value" }

// StdDev reports the standard deviation of a channel
type StdDev struct{}

// NewStdDev creates a new standard deviation metric
func NewStdDev() *StdDev {
	return &StdDev{}
}

func (s *StdDev) Calculate(channel gocv.Mat) (float64, error) {
	if err := checkChannel(channel); err != nil {
		return 0, err
	}

	mean := gocv.NewMat()
	defer mean.Close()
	stddev := gocv.NewMat()
	defer stddev.Close()

	if err := gocv.MeanStdDev(channel, &mean, &stddev); err != nil {
		return 0, fmt.Errorf("stddev: %w", err)
	}
	return stddev.GetDoubleAt(0, 0), nil
}

func (s *StdDev) GetName() string        { return "StdDev" }
func (s *StdDev) GetDescription() string { return "Standard deviation of samples" }

// samples copies a channel out as float64 so extremes keep full precision.
func samples(channel gocv.Mat) ([]float64, error) {
	plane := gocv.NewMat()
	defer plane.Close()
	if err := channel.ConvertTo(&plane, gocv.MatTypeCV64F); err != nil {
		return nil, fmt.Errorf("float conversion: %w", err)
	}
	values, err := plane.DataPtrFloat64()
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("empty image")
	}
	return append([]float64(nil), values...), nil
}
