// Morphological operations
package algorithms

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

var kernelShapes = []string{"rect", "cross", "ellipse"}

// Morphology applies one morphological operation with a configurable structuring element.
type Morphology struct {
	op          gocv.MorphType
	name        string
	description string
}

// NewMorphology creates a morphology transform for op
func NewMorphology(op gocv.MorphType, name, description string) *Morphology {
	return &Morphology{op: op, name: name, description: description}
}

func (m *Morphology) Apply(input gocv.Mat, params Params) (gocv.Mat, error) {
	size := params.Int("kernel_size")
	kernel := gocv.GetStructuringElement(gocv.MorphShape(params.Int("shape")), image.Pt(size, size))
	defer kernel.Close()

	output := gocv.NewMat()
	if err := gocv.MorphologyExWithParams(input, &output, m.op, kernel, params.Int("iterations"), gocv.BorderConstant); err != nil {
		output.Close()
		return gocv.NewMat(), fmt.Errorf("%s: %w", m.name, err)
	}
	return output, nil
}

func (m *Morphology) Name() string        { return m.name }
func (m *Morphology) Description() string { return m.description }

func (m *Morphology) Parameters() []ParameterInfo {
	return []ParameterInfo{
		{Name: "kernel_size", Type: "int", Min: 1, Max: 15, Default: 3, Description: "Size of the structuring element"},
		{Name: "iterations", Type: "int", Min: 1, Max: 10, Default: 1, Description: "Number of iterations"},
		{Name: "shape", Type: "enum", Min: 0, Max: float64(len(kernelShapes) - 1), Default: 0, Options: kernelShapes, Description: "Structuring element shape"},
	}
}
