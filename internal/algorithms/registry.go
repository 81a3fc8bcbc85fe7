// Named frame transforms used by the export pipeline
package algorithms

import (
	"fmt"
	"math"
	"sort"

	"github.com/samber/lo"
	"gocv.io/x/gocv"
)

// Transform is a per-frame image operation. Apply must not modify or retain
// its input and returns a new Mat owned by the caller.
type Transform interface {
	Apply(input gocv.Mat, params Params) (gocv.Mat, error)
	Name() string
	Description() string
	Parameters() []ParameterInfo
}

// ParameterInfo describes a parameter for validation, CLI parsing and UI generation
type ParameterInfo struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"` // "int", "float", "enum"
	Min         float64  `json:"min"`
	Max         float64  `json:"max"`
	Default     float64  `json:"default"`
	Odd         bool     `json:"odd,omitempty"`
	Description string   `json:"description"`
	Options     []string `json:"options,omitempty"` // enum values, index is the parameter value
}

// Params holds numeric parameter values by name. Enum parameters store the option index.
type Params map[string]float64

// Int returns the named parameter truncated to an int
func (p Params) Int(name string) int {
	return int(p[name])
}

// Float returns the named parameter
func (p Params) Float(name string) float64 {
	return p[name]
}

// Defaults returns the default parameters of t.
func Defaults(t Transform) Params {
	params := make(Params)
	for _, info := range t.Parameters() {
		params[info.Name] = info.Default
	}
	return params
}

// Validate checks params against the parameter table of t.
func Validate(t Transform, params Params) error {
	infos := lo.KeyBy(t.Parameters(), func(info ParameterInfo) string { return info.Name })

	for name, value := range params {
		info, ok := infos[name]
		if !ok {
			return fmt.Errorf("%s: unknown parameter %q", t.Name(), name)
		}
		if math.IsNaN(value) || value < info.Min || value > info.Max {
			return fmt.Errorf("%s: %s must be between %v and %v", t.Name(), name, info.Min, info.Max)
		}
		if (info.Type == "int" || info.Type == "enum") && value != math.Trunc(value) {
			return fmt.Errorf("%s: %s must be an integer", t.Name(), name)
		}
		if info.Odd && int(value)%2 == 0 {
			return fmt.Errorf("%s: %s must be odd", t.Name(), name)
		}
	}
	return nil
}

var transforms = make(map[string]Transform)

func Register(name string, t Transform) {
	transforms[name] = t
}

func Get(name string) (Transform, bool) {
	t, exists := transforms[name]
	return t, exists
}

// Names returns registered transform names in sorted order
func Names() []string {
	names := lo.Keys(transforms)
	sort.Strings(names)
	return names
}

// Apply runs a registered transform, filling missing parameters with defaults.
func Apply(name string, input gocv.Mat, params Params) (gocv.Mat, error) {
	t, exists := transforms[name]
	if !exists {
		return gocv.NewMat(), fmt.Errorf("transform not found: %s", name)
	}
	if input.Empty() {
		return gocv.NewMat(), fmt.Errorf("%s: input image is empty", name)
	}

	merged := lo.Assign(Defaults(t), params)
	if err := Validate(t, merged); err != nil {
		return gocv.NewMat(), err
	}
	return t.Apply(input, merged)
}

// Categories lists the transform categories in display order.
func Categories() []string {
	return []string{"Filters", "Morphology", "Binarization", "Channels"}
}

// GetTransformsByCategory groups registry names under the Categories entries.
func GetTransformsByCategory() map[string][]string {
	return map[string][]string{
		"Morphology": {
			"erosion",
			"dilation",
			"opening",
			"closing",
		},
		"Filters": {
			"gaussian",
			"median",
			"bilateral",
		},
		"Binarization": {
			"adaptive_threshold",
			"otsu",
		},
		"Channels": {
			"channel",
			"colormap",
		},
	}
}

func init() {
	Register("erosion", NewMorphology(gocv.MorphErode, "Erosion", "Morphological erosion to remove small noise"))
	Register("dilation", NewMorphology(gocv.MorphDilate, "Dilation", "Morphological dilation to fill small gaps"))
	Register("opening", NewMorphology(gocv.MorphOpen, "Opening", "Erosion followed by dilation"))
	Register("closing", NewMorphology(gocv.MorphClose, "Closing", "Dilation followed by erosion"))

	Register("gaussian", NewGaussianFilter())
	Register("median", NewMedianFilter())
	Register("bilateral", NewBilateralFilter())

	Register("adaptive_threshold", NewAdaptiveThreshold())
	Register("otsu", NewOtsu())

	Register("channel", NewChannelView())
	Register("colormap", NewHeatmap())
}
