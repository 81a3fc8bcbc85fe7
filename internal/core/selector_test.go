package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestSetSourceViewableBypassesChannels(t *testing.T) {
	sel, surface, rec := newSelector(t)

	src := bgrImage(t, 3, 3, 10, 20, 30)
	defer src.Close()
	require.NoError(t, sel.SetSource(&src))

	state := sel.State()
	assert.False(t, state.PerChannel)
	assert.True(t, surface.HasImage())
	require.Len(t, rec.changes, 1)

	_, ok := sel.Probe(0, 0)
	assert.False(t, ok, "no derived image exists for a viewable source")
}

func TestSetSourceEntersPerChannelMode(t *testing.T) {
	sel, surface, _ := newSelector(t)

	src := multiChannel(t, 2, 2, 3)
	defer src.Close()
	require.NoError(t, sel.SetSource(&src))

	state := sel.State()
	assert.True(t, state.PerChannel)
	assert.Equal(t, 2, state.ChannelCount)
	assert.Equal(t, []int{0, 1}, state.Channels)
	assert.Equal(t, Channel(0), state.Channel)
	assert.InDelta(t, 100, state.Stats["min"], 1e-6)
	assert.InDelta(t, 105, state.Stats["max"], 1e-6)

	shown := surface.Get()
	defer shown.Close()
	assert.Equal(t, 4, shown.Channels())

	low, ok := sel.Probe(0, 0)
	require.True(t, ok)
	assert.InDelta(t, 100, low.Raw, 1e-6)
	assert.Equal(t, uint8(0), low.Normalized)

	high, ok := sel.Probe(2, 1)
	require.True(t, ok)
	assert.InDelta(t, 105, high.Raw, 1e-6)
	assert.Equal(t, uint8(255), high.Normalized)

	_, ok = sel.Probe(3, 0)
	assert.False(t, ok)
}

func TestSetSourceDoesNotAliasCallerMat(t *testing.T) {
	sel, _, _ := newSelector(t)

	src := multiChannel(t, 2, 2, 2)
	require.NoError(t, sel.SetSource(&src))
	src.Close()

	require.NoError(t, sel.SetChannel(1))
	v, ok := sel.Probe(0, 0)
	require.True(t, ok)
	assert.InDelta(t, 200, v.Raw, 1e-6)
}

func TestSetChannelBounds(t *testing.T) {
	sel, _, _ := newSelector(t)

	src := multiChannel(t, 5, 2, 2)
	defer src.Close()
	require.NoError(t, sel.SetSource(&src))

	for i := 0; i < 5; i++ {
		require.NoError(t, sel.SetChannel(i))
		assert.Equal(t, Channel(i), sel.State().Channel)
	}

	require.NoError(t, sel.SetChannel(2))
	require.NoError(t, sel.SetChannel(5))
	assert.Equal(t, Channel(2), sel.State().Channel)
	require.NoError(t, sel.SetChannel(-1))
	assert.Equal(t, Channel(2), sel.State().Channel)
}

func TestChannelCountReductionClampsSelection(t *testing.T) {
	sel, _, rec := newSelector(t)

	five := multiChannel(t, 5, 2, 2)
	defer five.Close()
	require.NoError(t, sel.SetSource(&five))
	require.NoError(t, sel.SetChannel(4))

	before := len(rec.changes)

	two := multiChannel(t, 2, 2, 2)
	defer two.Close()
	require.NoError(t, sel.SetSource(&two))

	assert.Equal(t, Channel(1), sel.State().Channel)
	assert.Equal(t, 1, len(rec.changes)-before, "recomputation must fire exactly once")

	v, ok := sel.Probe(0, 0)
	require.True(t, ok)
	assert.Equal(t, 1, v.Channel)
}

func TestChannelCountGrowthKeepsSelection(t *testing.T) {
	sel, _, _ := newSelector(t)

	two := multiChannel(t, 2, 2, 2)
	defer two.Close()
	require.NoError(t, sel.SetSource(&two))
	require.NoError(t, sel.SetChannel(1))

	five := multiChannel(t, 5, 2, 2)
	defer five.Close()
	require.NoError(t, sel.SetSource(&five))

	state := sel.State()
	assert.Equal(t, Channel(1), state.Channel)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, state.Channels)
}

func TestColormapNoneRevertsToGrayscale(t *testing.T) {
	sel, surface, _ := newSelector(t)

	src := multiChannel(t, 2, 2, 3)
	defer src.Close()
	require.NoError(t, sel.SetSource(&src))

	require.NoError(t, sel.SetColormap(ColormapJet))
	colored := surface.Get()
	defer colored.Close()
	px := colored.GetVecbAt(0, 0)
	assert.NotEqual(t, px[0], px[2], "jet maps the minimum to a blue-ish colour")

	previous := sel.cache
	require.NotNil(t, previous)

	require.NoError(t, sel.SetColormap(ColormapNone))
	gray := surface.Get()
	defer gray.Close()
	px = gray.GetVecbAt(1, 2)
	assert.Equal(t, px[0], px[1])
	assert.Equal(t, px[1], px[2])
	assert.Equal(t, uint8(255), px[0])

	assert.NotSame(t, previous, sel.cache)
	assert.Nil(t, previous.raw.Ptr(), "previous cache must be disposed")
	assert.Equal(t, ColormapNone, sel.State().Colormap)
	assert.Equal(t, Channel(0), sel.State().Channel)
}

func TestSetColormapRejectsUnknown(t *testing.T) {
	sel, _, _ := newSelector(t)
	assert.Error(t, sel.SetColormap(Colormap(99)))
}

func TestClearChannelPublishesNothing(t *testing.T) {
	sel, surface, rec := newSelector(t)

	src := multiChannel(t, 3, 2, 2)
	defer src.Close()
	require.NoError(t, sel.SetSource(&src))
	require.NoError(t, sel.ClearChannel())

	assert.False(t, surface.HasImage())
	assert.Nil(t, rec.changes[len(rec.changes)-1].Image)
	_, ok := sel.Probe(0, 0)
	assert.False(t, ok)
}

func TestSetSourceNilClearsState(t *testing.T) {
	sel, surface, _ := newSelector(t)

	src := multiChannel(t, 3, 2, 2)
	defer src.Close()
	require.NoError(t, sel.SetSource(&src))
	require.NoError(t, sel.SetSource(nil))

	state := sel.State()
	assert.False(t, state.PerChannel)
	assert.Equal(t, 0, state.ChannelCount)
	assert.False(t, state.Channel.Valid)
	assert.False(t, surface.HasImage())
}

func TestStateListenerFires(t *testing.T) {
	sel, _, _ := newSelector(t)

	var states []SelectorState
	sel.OnStateChanged(func(s SelectorState) { states = append(states, s) })

	src := multiChannel(t, 3, 2, 2)
	defer src.Close()
	require.NoError(t, sel.SetSource(&src))
	require.NoError(t, sel.SetChannel(2))
	require.NoError(t, sel.SetChannel(7))

	require.Len(t, states, 2)
	assert.Equal(t, Channel(2), states[1].Channel)
}

func TestSingleChannelSourceUsesChannelView(t *testing.T) {
	sel, _, _ := newSelector(t)

	gray := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(9, 0, 0, 0), 2, 2, gocv.MatTypeCV8UC1)
	defer gray.Close()
	require.NoError(t, sel.SetSource(&gray))

	assert.True(t, sel.State().PerChannel)
	v, ok := sel.Probe(1, 1)
	require.True(t, ok)
	assert.Equal(t, uint8(ConstantLevel), v.Normalized)
}

func TestRecomputeFailureClearsCacheAndDisplay(t *testing.T) {
	sel, surface, _ := newSelector(t)

	src := multiChannel(t, 3, 2, 2)
	defer src.Close()
	require.NoError(t, sel.SetSource(&src))
	require.True(t, surface.HasImage())

	// a colormap with no lookup table makes the colorize step fail after
	// extraction and normalization already allocated their planes
	sel.colormap = Colormap(len(colormapTable) + 1)

	err := sel.SetChannel(1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "apply colormap")

	assert.Nil(t, sel.cache)
	assert.Empty(t, sel.State().Stats)
	assert.False(t, surface.HasImage())
	_, ok := sel.Probe(0, 0)
	assert.False(t, ok)

	sel.colormap = ColormapNone
	require.NoError(t, sel.SetChannel(1))
	assert.True(t, surface.HasImage())
}
