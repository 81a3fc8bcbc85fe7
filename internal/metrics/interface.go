// Per-channel statistics shown alongside the channel inspector
package metrics

import (
	"fmt"
	"sort"

	"gocv.io/x/gocv"
)

// Metric defines the interface for single-channel statistics
type Metric interface {
	// Calculate computes the statistic over a single-channel image
	Calculate(channel gocv.Mat) (float64, error)

	// GetName returns the metric name
	GetName() string

	// GetDescription returns the metric description
	GetDescription() string
}

// Evaluator manages and calculates multiple metrics
type Evaluator struct {
	metrics map[string]Metric
}

// NewEvaluator creates a new metrics evaluator
func NewEvaluator() *Evaluator {
	e := &Evaluator{
		metrics: make(map[string]Metric),
	}

	e.RegisterDefaultMetrics()

	return e
}

// RegisterDefaultMetrics registers all default metrics
func (e *Evaluator) RegisterDefaultMetrics() {
	e.Register("min", NewMinimum())
	e.Register("max", NewMaximum())
	e.Register("mean", NewMean())
	e.Register("stddev", NewStdDev())
}

// Register registers a metric
func (e *Evaluator) Register(name string, metric Metric) {
	e.metrics[name] = metric
}

// Names returns registered metric names in sorted order
func (e *Evaluator) Names() []string {
	names := make([]string, 0, len(e.metrics))
	for name := range e.metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Calculate calculates a specific metric
func (e *Evaluator) Calculate(name string, channel gocv.Mat) (float64, error) {
	metric, exists := e.metrics[name]
	if !exists {
		return 0, fmt.Errorf("metric not found: %s", name)
	}

	return metric.Calculate(channel)
}

// CalculateAll calculates all registered metrics, skipping the ones that fail
func (e *Evaluator) CalculateAll(channel gocv.Mat) map[string]float64 {
	results := make(map[string]float64)

	for name, metric := range e.metrics {
		if value, err := metric.Calculate(channel); err == nil {
			results[name] = value
		}
	}

	return results
}

func checkChannel(channel gocv.Mat) error {
	if channel.Empty() {
		return fmt.Errorf("empty image")
	}
	if channel.Channels() != 1 {
		return fmt.Errorf("expected a single channel, got %d", channel.Channels())
	}
	return nil
}
