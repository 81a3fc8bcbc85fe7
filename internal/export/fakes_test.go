package export

import (
	"errors"
	"image"
	"io"
	"sync"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

func testLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// fakeSource yields frames whose pixels all equal the frame index modulo 256.
type fakeSource struct {
	mu        sync.Mutex
	frames    int
	position  int
	positions []int
}

func newFakeSource(frames, position int) *fakeSource {
	return &fakeSource{frames: frames, position: position}
}

func (s *fakeSource) FrameCount() int   { return s.frames }
func (s *fakeSource) FPS() float64      { return 30 }
func (s *fakeSource) Size() image.Point { return image.Pt(4, 2) }

func (s *fakeSource) Position() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position
}

func (s *fakeSource) SetPosition(frame int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.position = frame
	s.positions = append(s.positions, frame)
	return nil
}

func (s *fakeSource) Read(dst *gocv.Mat) error {
	s.mu.Lock()
	v := float64(s.position % 256)
	s.mu.Unlock()

	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(v, v, v, 0), 2, 4, gocv.MatTypeCV8UC3)
	defer frame.Close()
	return frame.CopyTo(dst)
}

// fakeSink records the first pixel value of each written frame.
type fakeSink struct {
	mu       sync.Mutex
	written  []int
	closes   int
	failAt   int
	closeErr error
}

func newFakeSink() *fakeSink {
	return &fakeSink{failAt: -1}
}

func (s *fakeSink) Write(frame gocv.Mat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAt >= 0 && len(s.written) == s.failAt {
		return errors.New("disk full")
	}
	s.written = append(s.written, int(frame.GetVecbAt(0, 0)[0]))
	return nil
}

func (s *fakeSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return s.closeErr
}

func (s *fakeSink) frames() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, len(s.written))
	copy(out, s.written)
	return out
}

func identity(frame gocv.Mat, _ int) (gocv.Mat, error) {
	return frame.Clone(), nil
}

type progressLog struct {
	mu        sync.Mutex
	snapshots []Progress
}

func (l *progressLog) record(p Progress) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.snapshots = append(l.snapshots, p)
}

func (l *progressLog) last() (Progress, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.snapshots) == 0 {
		return Progress{}, false
	}
	return l.snapshots[len(l.snapshots)-1], true
}

// uiLoop emulates an interaction thread executing dispatched functions in order.
type uiLoop struct {
	queue      chan func()
	done       chan struct{}
	dispatched int
	mu         sync.Mutex
}

func newUILoop() *uiLoop {
	l := &uiLoop{queue: make(chan func(), 16), done: make(chan struct{})}
	go func() {
		defer close(l.done)
		for fn := range l.queue {
			fn()
		}
	}()
	return l
}

func (l *uiLoop) Dispatch(fn func()) {
	l.mu.Lock()
	l.dispatched++
	l.mu.Unlock()
	l.queue <- fn
}

func (l *uiLoop) stop() {
	close(l.queue)
	<-l.done
}

func (l *uiLoop) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dispatched
}
