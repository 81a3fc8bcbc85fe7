package algorithms

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"gocv.io/x/gocv"
)

// Step is one configured transform in a Chain
type Step struct {
	Key       string
	Transform Transform
	Params    Params
}

// Chain applies transforms in order. An empty chain copies frames through.
type Chain struct {
	steps []Step
}

// ParseChain builds a chain from specs of the form
// "name" or "name:param=value,param=value". Enum parameters accept option names.
func ParseChain(specs []string) (*Chain, error) {
	chain := &Chain{}
	for _, spec := range specs {
		step, err := parseStep(spec)
		if err != nil {
			return nil, err
		}
		chain.steps = append(chain.steps, step)
	}
	return chain, nil
}

func parseStep(spec string) (Step, error) {
	key, rawParams, _ := strings.Cut(strings.TrimSpace(spec), ":")
	t, ok := Get(key)
	if !ok {
		return Step{}, fmt.Errorf("unknown transform %q (available: %s)", key, strings.Join(Names(), ", "))
	}

	infos := lo.KeyBy(t.Parameters(), func(info ParameterInfo) string { return info.Name })
	params := Defaults(t)

	if rawParams != "" {
		for _, pair := range strings.Split(rawParams, ",") {
			name, value, found := strings.Cut(pair, "=")
			name = strings.TrimSpace(name)
			if !found {
				return Step{}, fmt.Errorf("%s: malformed parameter %q", key, pair)
			}
			info, ok := infos[name]
			if !ok {
				return Step{}, fmt.Errorf("%s: unknown parameter %q", key, name)
			}
			v, err := parseValue(info, strings.TrimSpace(value))
			if err != nil {
				return Step{}, fmt.Errorf("%s: %w", key, err)
			}
			params[name] = v
		}
	}

	if err := Validate(t, params); err != nil {
		return Step{}, err
	}
	return Step{Key: key, Transform: t, Params: params}, nil
}

func parseValue(info ParameterInfo, value string) (float64, error) {
	if info.Type == "enum" {
		if idx := lo.IndexOf(info.Options, strings.ToLower(value)); idx >= 0 {
			return float64(idx), nil
		}
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q for %s", value, info.Name)
	}
	return v, nil
}

// Len returns the number of steps
func (c *Chain) Len() int { return len(c.steps) }

// Keys returns the registry names of the steps in order
func (c *Chain) Keys() []string {
	return lo.Map(c.steps, func(s Step, _ int) string { return s.Key })
}

// Apply runs every step on frame. The result is owned by the caller; frame is untouched.
func (c *Chain) Apply(frame gocv.Mat, index int) (gocv.Mat, error) {
	if frame.Empty() {
		return gocv.NewMat(), fmt.Errorf("frame %d is empty", index)
	}
	if len(c.steps) == 0 {
		return frame.Clone(), nil
	}

	current := frame
	for i, step := range c.steps {
		out, err := step.Transform.Apply(current, step.Params)
		if i > 0 {
			current.Close()
		}
		if err != nil {
			out.Close()
			return gocv.NewMat(), fmt.Errorf("%s on frame %d: %w", step.Key, index, err)
		}
		if out.Empty() {
			out.Close()
			return gocv.NewMat(), fmt.Errorf("%s on frame %d produced an empty image", step.Key, index)
		}
		current = out
	}
	return current, nil
}
