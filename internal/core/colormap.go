package core

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
	"gocv.io/x/gocv"
)

// Colormap selects the pseudo-colour lookup table applied to a normalized channel.
type Colormap int

const (
	// ColormapNone renders the normalized channel as grayscale.
	ColormapNone Colormap = iota
	ColormapAutumn
	ColormapBone
	ColormapJet
	ColormapWinter
	ColormapRainbow
	ColormapOcean
	ColormapSummer
	ColormapSpring
	ColormapCool
	ColormapHSV
	ColormapPink
	ColormapHot
	ColormapParula
)

type colormapEntry struct {
	name string
	cv   gocv.ColormapTypes
}

var colormapTable = map[Colormap]colormapEntry{
	ColormapAutumn:  {"autumn", gocv.ColormapAutumn},
	ColormapBone:    {"bone", gocv.ColormapBone},
	ColormapJet:     {"jet", gocv.ColormapJet},
	ColormapWinter:  {"winter", gocv.ColormapWinter},
	ColormapRainbow: {"rainbow", gocv.ColormapRainbow},
	ColormapOcean:   {"ocean", gocv.ColormapOcean},
	ColormapSummer:  {"summer", gocv.ColormapSummer},
	ColormapSpring:  {"spring", gocv.ColormapSpring},
	ColormapCool:    {"cool", gocv.ColormapCool},
	ColormapHSV:     {"hsv", gocv.ColormapHsv},
	ColormapPink:    {"pink", gocv.ColormapPink},
	ColormapHot:     {"hot", gocv.ColormapHot},
	ColormapParula:  {"parula", gocv.ColormapParula},
}

// Colormaps lists every named colormap in display order, excluding ColormapNone.
func Colormaps() []Colormap {
	return lo.Map(lo.Range(int(ColormapParula)), func(i int, _ int) Colormap {
		return Colormap(i + 1)
	})
}

// String returns the colormap name, "none" for grayscale.
func (c Colormap) String() string {
	if entry, ok := colormapTable[c]; ok {
		return entry.name
	}
	if c == ColormapNone {
		return "none"
	}
	return fmt.Sprintf("colormap(%d)", int(c))
}

// Valid reports whether c is ColormapNone or a known colormap.
func (c Colormap) Valid() bool {
	_, ok := colormapTable[c]
	return ok || c == ColormapNone
}

// ParseColormap resolves a colormap by name. Empty string and "none" mean grayscale.
func ParseColormap(name string) (Colormap, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == "none" || name == "gray" || name == "grayscale" {
		return ColormapNone, nil
	}

	c, ok := lo.FindKeyBy(colormapTable, func(_ Colormap, entry colormapEntry) bool {
		return entry.name == name
	})
	if !ok {
		return ColormapNone, fmt.Errorf("unknown colormap: %s", name)
	}
	return c, nil
}

// ApplyColormap maps a normalized single-channel 8-bit Mat through the colormap LUT,
// producing a 3-channel BGR Mat owned by the caller.
func ApplyColormap(normalized gocv.Mat, c Colormap) (gocv.Mat, error) {
	entry, ok := colormapTable[c]
	if !ok {
		return gocv.NewMat(), fmt.Errorf("cannot apply colormap %s", c)
	}
	if normalized.Channels() != 1 || Depth(normalized.Type()) != gocv.MatTypeCV8U {
		return gocv.NewMat(), fmt.Errorf("colormap input must be single-channel 8-bit, got %d channels type %v",
			normalized.Channels(), normalized.Type())
	}

	out := gocv.NewMat()
	if err := gocv.ApplyColorMap(normalized, &out, entry.cv); err != nil {
		out.Close()
		return gocv.NewMat(), fmt.Errorf("colormap %s: %w", c, err)
	}
	if out.Empty() {
		out.Close()
		return gocv.NewMat(), fmt.Errorf("colormap %s produced an empty image", c)
	}
	return out, nil
}

// RenderChannel draws channel index of src the way the per-channel view does:
// rescaled to 8 bits, then colorized unless c is ColormapNone. It touches no
// selector state, so it is safe on frames the viewer does not own.
func RenderChannel(src gocv.Mat, index int, c Colormap) (gocv.Mat, error) {
	channel, err := ExtractChannel(src, index)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer channel.Close()

	normalized, err := Normalize(channel)
	if err != nil {
		return gocv.NewMat(), err
	}
	if c == ColormapNone {
		return normalized, nil
	}
	defer normalized.Close()
	return ApplyColormap(normalized, c)
}
