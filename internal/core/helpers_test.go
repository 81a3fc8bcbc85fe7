package core

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func testLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// floatPlane builds a rows x cols CV_32F Mat whose sample at (r, c) is fn(r, c).
func floatPlane(t *testing.T, rows, cols int, fn func(r, c int) float32) gocv.Mat {
	t.Helper()
	m := gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV32F)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			m.SetFloatAt(r, c, fn(r, c))
		}
	}
	return m
}

// multiChannel merges n float planes; plane k holds value base*(k+1) + r*cols + c.
func multiChannel(t *testing.T, n, rows, cols int) gocv.Mat {
	t.Helper()
	planes := make([]gocv.Mat, n)
	for k := range planes {
		k := k
		planes[k] = floatPlane(t, rows, cols, func(r, c int) float32 {
			return float32(100*(k+1) + r*cols + c)
		})
	}
	defer func() {
		for i := range planes {
			planes[i].Close()
		}
	}()

	out := gocv.NewMat()
	require.NoError(t, gocv.Merge(planes, &out))
	require.Equal(t, n, out.Channels())
	return out
}

func bgrImage(t *testing.T, rows, cols int, b, g, r float64) gocv.Mat {
	t.Helper()
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(b, g, r, 0), rows, cols, gocv.MatTypeCV8UC3)
}

type surfaceRecorder struct {
	changes []Change
}

func (r *surfaceRecorder) record(c Change) {
	r.changes = append(r.changes, c)
}

func newSelector(t *testing.T) (*ChannelColormapSelector, *DisplaySurface, *surfaceRecorder) {
	t.Helper()
	surface := NewDisplaySurface(testLogger())
	rec := &surfaceRecorder{}
	surface.Subscribe(rec.record)
	sel := NewChannelColormapSelector(surface, testLogger())
	t.Cleanup(func() {
		sel.Close()
		surface.Close()
	})
	return sel, surface, rec
}
