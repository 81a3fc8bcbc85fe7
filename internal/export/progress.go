package export

import (
	"fmt"
	"math"
	"time"
)

const (
	// etaEpsilon keeps the ETA finite before any throughput has been measured.
	etaEpsilon = 1e-9

	// day is the presentation cutoff for ETA values.
	day = 24 * time.Hour

	// MoreThanDay is shown instead of ETAs beyond one day.
	MoreThanDay = "more than a day"
)

// Progress is a snapshot published after every exported frame.
type Progress struct {
	RunID           string
	FrameIndex      int
	TotalFrames     int
	Elapsed         time.Duration
	FramesPerSecond float64

	// ETASeconds is the unclamped estimate. ETA saturates at the largest
	// representable duration.
	ETASeconds  float64
	ETA         time.Duration
	MoreThanDay bool
}

// computeProgress derives throughput and ETA for frameIndex out of total.
func computeProgress(frameIndex, total int, elapsed time.Duration) Progress {
	fps := 0.0
	if secs := elapsed.Seconds(); secs > 0 {
		fps = float64(frameIndex) / secs
	}

	etaSeconds := float64(total-frameIndex) / (fps + etaEpsilon)

	return Progress{
		FrameIndex:      frameIndex,
		TotalFrames:     total,
		Elapsed:         elapsed,
		FramesPerSecond: fps,
		ETASeconds:      etaSeconds,
		ETA:             secondsToDuration(etaSeconds),
		MoreThanDay:     etaSeconds > day.Seconds(),
	}
}

func secondsToDuration(secs float64) time.Duration {
	if secs >= float64(math.MaxInt64)/float64(time.Second) {
		return time.Duration(math.MaxInt64)
	}
	if secs <= 0 {
		return 0
	}
	return time.Duration(secs * float64(time.Second))
}

// Fraction returns the completed share in [0, 1] for progress bars.
func (p Progress) Fraction() float64 {
	if p.TotalFrames <= 0 {
		return 0
	}
	return math.Min(1, float64(p.FrameIndex+1)/float64(p.TotalFrames))
}

// ETAString formats the ETA for display.
func (p Progress) ETAString() string {
	if p.MoreThanDay {
		return MoreThanDay
	}
	return p.ETA.Round(time.Second).String()
}

func (p Progress) String() string {
	return fmt.Sprintf("frame %d/%d, %.1f fps, eta %s", p.FrameIndex+1, p.TotalFrames, p.FramesPerSecond, p.ETAString())
}
