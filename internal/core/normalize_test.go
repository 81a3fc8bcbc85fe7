package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestNormalizeScalesToFullRange(t *testing.T) {
	plane := floatPlane(t, 1, 3, func(_, c int) float32 { return float32(10 + 10*c) })
	defer plane.Close()

	out, err := Normalize(plane)
	require.NoError(t, err)
	defer out.Close()

	assert.Equal(t, gocv.MatTypeCV8U, Depth(out.Type()))
	assert.Equal(t, uint8(0), out.GetUCharAt(0, 0))
	assert.InDelta(t, 127.5, float64(out.GetUCharAt(0, 1)), 0.5)
	assert.Equal(t, uint8(255), out.GetUCharAt(0, 2))
}

func TestNormalizeIsIdempotent(t *testing.T) {
	plane := floatPlane(t, 4, 4, func(r, c int) float32 { return float32(r*r) - float32(c)*3.5 })
	defer plane.Close()

	once, err := Normalize(plane)
	require.NoError(t, err)
	defer once.Close()

	twice, err := Normalize(once)
	require.NoError(t, err)
	defer twice.Close()

	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			assert.Equal(t, once.GetUCharAt(r, c), twice.GetUCharAt(r, c), "pixel (%d,%d)", r, c)
		}
	}
}

func TestNormalizeConstantChannel(t *testing.T) {
	plane := floatPlane(t, 3, 3, func(_, _ int) float32 { return 42 })
	defer plane.Close()

	out, err := Normalize(plane)
	require.NoError(t, err)
	defer out.Close()

	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			assert.Equal(t, uint8(ConstantLevel), out.GetUCharAt(r, c))
		}
	}
}

func TestNormalizeRejectsMultiChannel(t *testing.T) {
	src := multiChannel(t, 2, 2, 2)
	defer src.Close()

	_, err := Normalize(src)
	assert.Error(t, err)
}

func TestExtractChannel(t *testing.T) {
	src := multiChannel(t, 3, 2, 2)
	defer src.Close()

	ch, err := ExtractChannel(src, 2)
	require.NoError(t, err)
	defer ch.Close()
	assert.Equal(t, 1, ch.Channels())
	assert.InDelta(t, 300, float64(ch.GetFloatAt(0, 0)), 1e-6)

	_, err = ExtractChannel(src, 3)
	assert.Error(t, err)
}

func TestNormalizeWideOffsetDoubles(t *testing.T) {
	plane := gocv.NewMatWithSize(1, 3, gocv.MatTypeCV64F)
	defer plane.Close()
	plane.SetDoubleAt(0, 0, 1e9)
	plane.SetDoubleAt(0, 1, 1e9+5)
	plane.SetDoubleAt(0, 2, 1e9+10)

	out, err := Normalize(plane)
	require.NoError(t, err)
	defer out.Close()

	assert.Equal(t, uint8(0), out.GetUCharAt(0, 0))
	assert.InDelta(t, 127.5, float64(out.GetUCharAt(0, 1)), 0.5)
	assert.Equal(t, uint8(255), out.GetUCharAt(0, 2))
}

func TestNormalizeWideOffsetIntegers(t *testing.T) {
	plane := gocv.NewMatWithSize(1, 2, gocv.MatTypeCV32S)
	defer plane.Close()
	plane.SetIntAt(0, 0, 16777216)
	plane.SetIntAt(0, 1, 16777217)

	out, err := Normalize(plane)
	require.NoError(t, err)
	defer out.Close()

	assert.Equal(t, uint8(0), out.GetUCharAt(0, 0))
	assert.Equal(t, uint8(255), out.GetUCharAt(0, 1))
}
