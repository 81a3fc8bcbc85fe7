package io

import (
	"fmt"
	"image"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"matview/internal/core"
)

// DefaultFourCC is used when no codec is configured. OpenCV ships a
// built-in MJPEG writer so it works without external backends.
const DefaultFourCC = "MJPG"

// VideoFile is a seekable video backed by an OpenCV capture.
type VideoFile struct {
	path    string
	capture *gocv.VideoCapture
	logger  logrus.FieldLogger
}

// OpenVideo opens path for frame-indexed reading.
func OpenVideo(path string, logger logrus.FieldLogger) (*VideoFile, error) {
	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("open video %s: %w", path, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("open video %s: no backend could read it", path)
	}

	v := &VideoFile{path: path, capture: capture, logger: logger}
	logger.WithFields(logrus.Fields{
		"filepath": path,
		"frames":   v.FrameCount(),
		"fps":      v.FPS(),
		"size":     v.Size(),
	}).Info("VIDEO: Opened source")
	return v, nil
}

func (v *VideoFile) FrameCount() int {
	return int(v.capture.Get(gocv.VideoCaptureFrameCount))
}

func (v *VideoFile) Position() int {
	return int(v.capture.Get(gocv.VideoCapturePosFrames))
}

func (v *VideoFile) SetPosition(frame int) error {
	if frame < 0 {
		return fmt.Errorf("negative frame position %d", frame)
	}
	v.capture.Set(gocv.VideoCapturePosFrames, float64(frame))
	return nil
}

func (v *VideoFile) FPS() float64 {
	return v.capture.Get(gocv.VideoCaptureFPS)
}

func (v *VideoFile) Size() image.Point {
	return image.Pt(
		int(v.capture.Get(gocv.VideoCaptureFrameWidth)),
		int(v.capture.Get(gocv.VideoCaptureFrameHeight)),
	)
}

// Read decodes the frame at the current position into dst.
func (v *VideoFile) Read(dst *gocv.Mat) error {
	if ok := v.capture.Read(dst); !ok || dst.Empty() {
		return fmt.Errorf("read frame %d of %s", v.Position(), v.path)
	}
	return nil
}

func (v *VideoFile) Close() error {
	return v.capture.Close()
}

// VideoWriterSink encodes frames into a video file. Frames are converted to
// 8-bit BGR of the configured size before encoding.
type VideoWriterSink struct {
	path   string
	size   image.Point
	writer *gocv.VideoWriter
	logger logrus.FieldLogger
	frames int
	closed bool
}

// CreateVideo opens path for writing with the given codec, frame rate and frame size.
func CreateVideo(path, fourcc string, fps float64, size image.Point, logger logrus.FieldLogger) (*VideoWriterSink, error) {
	if fourcc == "" {
		fourcc = DefaultFourCC
	}
	if len(fourcc) != 4 {
		return nil, fmt.Errorf("fourcc must have 4 characters, got %q", fourcc)
	}
	if fps <= 0 {
		return nil, fmt.Errorf("invalid frame rate %v", fps)
	}
	if size.X <= 0 || size.Y <= 0 {
		return nil, fmt.Errorf("invalid frame size %v", size)
	}

	writer, err := gocv.VideoWriterFile(path, fourcc, fps, size.X, size.Y, true)
	if err != nil {
		return nil, fmt.Errorf("create video %s: %w", path, err)
	}
	if !writer.IsOpened() {
		writer.Close()
		return nil, fmt.Errorf("create video %s: codec %s unavailable", path, fourcc)
	}

	logger.WithFields(logrus.Fields{
		"filepath": path,
		"fourcc":   fourcc,
		"fps":      fps,
		"size":     size,
	}).Info("VIDEO: Created sink")

	return &VideoWriterSink{path: path, size: size, writer: writer, logger: logger}, nil
}

func (s *VideoWriterSink) Write(frame gocv.Mat) error {
	if s.closed {
		return fmt.Errorf("write to closed video %s", s.path)
	}

	bgr, err := toVideoFrame(frame, s.size)
	if err != nil {
		return err
	}
	defer bgr.Close()

	if err := s.writer.Write(bgr); err != nil {
		return fmt.Errorf("encode frame %d: %w", s.frames, err)
	}
	s.frames++
	return nil
}

// Close finalizes the container. Only the first call has an effect.
func (s *VideoWriterSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	s.logger.WithFields(logrus.Fields{
		"filepath": s.path,
		"frames":   s.frames,
	}).Info("VIDEO: Finalizing sink")
	return s.writer.Close()
}

// toVideoFrame returns a fresh 3-channel 8-bit BGR copy of frame resized to size.
func toVideoFrame(frame gocv.Mat, size image.Point) (gocv.Mat, error) {
	if frame.Empty() {
		return gocv.NewMat(), fmt.Errorf("empty frame")
	}
	if core.Depth(frame.Type()) != gocv.MatTypeCV8U {
		return gocv.NewMat(), fmt.Errorf("video frames must be 8-bit, got type %v: %w", frame.Type(), core.ErrIncompatibleFormat)
	}

	bgr := gocv.NewMat()
	var err error
	switch frame.Channels() {
	case 1:
		err = gocv.CvtColor(frame, &bgr, gocv.ColorGrayToBGR)
	case 3:
		err = frame.CopyTo(&bgr)
	case 4:
		err = gocv.CvtColor(frame, &bgr, gocv.ColorBGRAToBGR)
	default:
		bgr.Close()
		return gocv.NewMat(), fmt.Errorf("cannot encode %d channels: %w", frame.Channels(), core.ErrIncompatibleFormat)
	}
	if err != nil {
		bgr.Close()
		return gocv.NewMat(), fmt.Errorf("convert frame to BGR: %w", err)
	}

	if bgr.Cols() != size.X || bgr.Rows() != size.Y {
		resized := gocv.NewMat()
		err := gocv.Resize(bgr, &resized, size, 0, 0, gocv.InterpolationLinear)
		bgr.Close()
		if err != nil {
			resized.Close()
			return gocv.NewMat(), fmt.Errorf("resize frame: %w", err)
		}
		bgr = resized
	}
	return bgr, nil
}
