// Channel and colormap selection over multi-channel images
package core

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"matview/internal/metrics"
)

// ChannelSelection is either no channel (composite display) or a single channel index.
type ChannelSelection struct {
	Index int
	Valid bool
}

// NoChannel selects the composite/direct display.
var NoChannel = ChannelSelection{}

// Channel selects channel index.
func Channel(index int) ChannelSelection {
	return ChannelSelection{Index: index, Valid: true}
}

func (c ChannelSelection) String() string {
	if !c.Valid {
		return "none"
	}
	return fmt.Sprintf("%d", c.Index)
}

// ProbeValue is the sample under a pixel coordinate of the derived image.
type ProbeValue struct {
	X, Y       int
	Channel    int
	Raw        float64
	Normalized uint8
}

// SelectorState is published to the host after every change so it can
// collapse or expand the channel and heatmap widgets.
type SelectorState struct {
	PerChannel   bool
	ChannelCount int
	Channels     []int
	Channel      ChannelSelection
	Colormap     Colormap
	Stats        map[string]float64
}

// derivedImage is the cache of the last recomputation. raw is the selected
// channel as CV_64F, normalized is its 8-bit rescale, display is the
// colorized version and stays empty when no colormap is selected.
type derivedImage struct {
	channel    int
	raw        gocv.Mat
	normalized gocv.Mat
	display    gocv.Mat
}

func (d *derivedImage) shown() *gocv.Mat {
	if !d.display.Empty() {
		return &d.display
	}
	return &d.normalized
}

func (d *derivedImage) Close() {
	d.raw.Close()
	d.normalized.Close()
	d.display.Close()
}

// ChannelColormapSelector derives the displayed image from a source Mat.
// It is not safe for concurrent use; call it from the interaction thread only.
type ChannelColormapSelector struct {
	surface   *DisplaySurface
	evaluator *metrics.Evaluator
	logger    logrus.FieldLogger

	source       gocv.Mat
	hasSource    bool
	perChannel   bool
	channelCount int
	channel      ChannelSelection
	colormap     Colormap

	cache *derivedImage
	stats map[string]float64

	listeners []func(SelectorState)
}

// NewChannelColormapSelector creates a selector publishing to surface
func NewChannelColormapSelector(surface *DisplaySurface, logger logrus.FieldLogger) *ChannelColormapSelector {
	return &ChannelColormapSelector{
		surface:   surface,
		evaluator: metrics.NewEvaluator(),
		logger:    logger,
		source:    gocv.NewMat(),
		channel:   NoChannel,
		colormap:  ColormapNone,
	}
}

// OnStateChanged registers a listener called after every state change.
func (s *ChannelColormapSelector) OnStateChanged(fn func(SelectorState)) {
	s.listeners = append(s.listeners, fn)
}

// SetSource stores a deep copy of mat and refreshes the display. A nil or empty mat clears everything.
func (s *ChannelColormapSelector) SetSource(mat *gocv.Mat) error {
	defer s.notify()

	if mat == nil || mat.Empty() {
		s.logger.Debug("SELECTOR: Clearing source")
		s.releaseSource()
		s.invalidate()
		s.perChannel = false
		s.channelCount = 0
		s.channel = NoChannel
		return s.surface.Set(nil)
	}

	clone := mat.Clone()
	s.releaseSource()
	s.source = clone
	s.hasSource = true
	s.reconcileChannels(s.source.Channels())

	if IsViewable(s.source) {
		s.logger.WithFields(logrus.Fields{
			"channels": s.source.Channels(),
			"type":     s.source.Type(),
		}).Debug("SELECTOR: Source is directly viewable, bypassing channel view")

		s.perChannel = false
		s.invalidate()
		return s.surface.Set(&s.source)
	}

	s.perChannel = true
	if !s.channel.Valid {
		s.channel = Channel(0)
	}

	s.logger.WithFields(logrus.Fields{
		"channels": s.channelCount,
		"channel":  s.channel.String(),
		"colormap": s.colormap.String(),
	}).Info("SELECTOR: Entering per-channel mode")

	return s.recompute()
}

// SetChannel selects a channel. Indices outside [0, channel count) are ignored.
func (s *ChannelColormapSelector) SetChannel(index int) error {
	if index < 0 || index >= s.channelCount {
		s.logger.WithFields(logrus.Fields{
			"index":    index,
			"channels": s.channelCount,
		}).Debug("SELECTOR: Ignoring out of range channel")
		return nil
	}
	defer s.notify()

	s.channel = Channel(index)
	return s.recompute()
}

// ClearChannel deselects the channel; nothing is displayed in per-channel mode.
func (s *ChannelColormapSelector) ClearChannel() error {
	defer s.notify()

	s.channel = NoChannel
	return s.recompute()
}

// SetColormap selects the colormap; ColormapNone renders grayscale.
func (s *ChannelColormapSelector) SetColormap(c Colormap) error {
	if !c.Valid() {
		return fmt.Errorf("unknown colormap: %d", int(c))
	}
	defer s.notify()

	s.colormap = c
	return s.recompute()
}

// State returns a snapshot of the current selection.
func (s *ChannelColormapSelector) State() SelectorState {
	stats := make(map[string]float64, len(s.stats))
	for k, v := range s.stats {
		stats[k] = v
	}
	return SelectorState{
		PerChannel:   s.perChannel,
		ChannelCount: s.channelCount,
		Channels:     lo.Range(s.channelCount),
		Channel:      s.channel,
		Colormap:     s.colormap,
		Stats:        stats,
	}
}

// Probe returns the derived sample at pixel (x, y). It reports false when
// nothing is derived or the coordinate falls outside the image.
func (s *ChannelColormapSelector) Probe(x, y int) (ProbeValue, bool) {
	if s.cache == nil {
		return ProbeValue{}, false
	}
	raw := s.cache.raw
	if x < 0 || y < 0 || x >= raw.Cols() || y >= raw.Rows() {
		return ProbeValue{}, false
	}
	return ProbeValue{
		X:          x,
		Y:          y,
		Channel:    s.cache.channel,
		Raw:        raw.GetDoubleAt(y, x),
		Normalized: s.cache.normalized.GetUCharAt(y, x),
	}, true
}

// Close releases the source and the derived cache
func (s *ChannelColormapSelector) Close() {
	s.releaseSource()
	s.invalidate()
}

// reconcileChannels keeps the active selection inside [0, count).
func (s *ChannelColormapSelector) reconcileChannels(count int) {
	if count == s.channelCount {
		return
	}
	previous := s.channelCount
	s.channelCount = count

	if s.channel.Valid && s.channel.Index >= count {
		s.logger.WithFields(logrus.Fields{
			"old_channel": s.channel.Index,
			"new_channel": count - 1,
		}).Debug("SELECTOR: Clamping channel to new channel count")
		s.channel = Channel(count - 1)
	}

	s.logger.WithFields(logrus.Fields{
		"old_count": previous,
		"new_count": count,
	}).Debug("SELECTOR: Channel count changed")
}

// recompute rebuilds the derived image from the current source and selection.
func (s *ChannelColormapSelector) recompute() error {
	if !s.perChannel {
		return nil
	}

	s.invalidate()

	if !s.hasSource || !s.channel.Valid {
		s.logger.Debug("SELECTOR: No channel selected, clearing display")
		return s.surface.Set(nil)
	}

	derived, err := s.derive(s.channel.Index, s.colormap)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"channel":  s.channel.Index,
			"colormap": s.colormap.String(),
			"error":    err,
		}).Error("SELECTOR: Recomputation failed")
		if clearErr := s.surface.Set(nil); clearErr != nil {
			s.logger.WithField("error", clearErr).Warn("SELECTOR: Failed to clear display after error")
		}
		return err
	}

	s.cache = derived
	s.stats = s.evaluator.CalculateAll(derived.raw)

	s.logger.WithFields(logrus.Fields{
		"channel":  derived.channel,
		"colormap": s.colormap.String(),
		"min":      s.stats["min"],
		"max":      s.stats["max"],
	}).Debug("SELECTOR: Derived image recomputed")

	return s.surface.Set(derived.shown())
}

// derive builds a new derivedImage, closing every intermediate on failure.
func (s *ChannelColormapSelector) derive(index int, c Colormap) (*derivedImage, error) {
	channel, err := ExtractChannel(s.source, index)
	if err != nil {
		return nil, fmt.Errorf("extract channel: %w", err)
	}
	defer channel.Close()

	raw, err := toFloatPlane(channel)
	if err != nil {
		return nil, fmt.Errorf("channel %d: %w", index, err)
	}

	normalized, err := Normalize(raw)
	if err != nil {
		raw.Close()
		return nil, fmt.Errorf("normalize channel %d: %w", index, err)
	}

	derived := &derivedImage{
		channel:    index,
		raw:        raw,
		normalized: normalized,
		display:    gocv.NewMat(),
	}

	if c != ColormapNone {
		colored, err := ApplyColormap(normalized, c)
		if err != nil {
			derived.Close()
			return nil, fmt.Errorf("apply colormap: %w", err)
		}
		derived.display.Close()
		derived.display = colored
	}

	return derived, nil
}

// invalidate disposes the derived cache.
func (s *ChannelColormapSelector) invalidate() {
	if s.cache != nil {
		s.cache.Close()
		s.cache = nil
	}
	s.stats = nil
}

func (s *ChannelColormapSelector) releaseSource() {
	s.source.Close()
	s.source = gocv.NewMat()
	s.hasSource = false
}

func (s *ChannelColormapSelector) notify() {
	if len(s.listeners) == 0 {
		return
	}
	state := s.State()
	for _, fn := range s.listeners {
		fn(state)
	}
}
