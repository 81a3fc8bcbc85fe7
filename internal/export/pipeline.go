// Frame-sequential video transform and export
package export

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// VideoSource is a seekable, frame-indexed video.
type VideoSource interface {
	FrameCount() int
	Position() int
	SetPosition(frame int) error
	FPS() float64
	Size() image.Point
	// Read decodes the frame at the current position into dst.
	Read(dst *gocv.Mat) error
}

// VideoSink accepts frames in order and must be closed exactly once.
type VideoSink interface {
	Write(frame gocv.Mat) error
	Close() error
}

// TransformFunc maps a source frame to an output frame owned by the pipeline.
// It must not retain frame. Returning ErrAbort stops the export.
type TransformFunc func(frame gocv.Mat, index int) (gocv.Mat, error)

// Job is one export request.
type Job struct {
	Source     VideoSource
	Sink       VideoSink
	Transform  TransformFunc
	OnProgress func(Progress)
}

// State of the pipeline
type State int

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateAborted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateAborted:
		return "aborted"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Result summarizes a finished run.
type Result struct {
	RunID         string
	State         State
	FramesWritten int
	Elapsed       time.Duration
	Last          Progress
}

// Run is a handle on an export started by Pipeline.Start.
type Run struct {
	ID     string
	cancel context.CancelFunc
	done   chan struct{}
	result Result
	err    error
}

// Cancel requests an abort at the next frame boundary.
func (r *Run) Cancel() { r.cancel() }

// Done is closed when the run has finished and all resources are released.
func (r *Run) Done() <-chan struct{} { return r.done }

// Wait blocks until the run finishes. The error is nil for completed and aborted runs.
func (r *Run) Wait() (Result, error) {
	<-r.done
	return r.result, r.err
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithDispatcher sets where transforms and progress callbacks run.
func WithDispatcher(d Dispatcher) Option {
	return func(p *Pipeline) { p.dispatcher = d }
}

// WithProgressInterval sets the minimum delay between progress deliveries.
// Snapshots produced in between are coalesced; the latest one survives.
func WithProgressInterval(d time.Duration) Option {
	return func(p *Pipeline) { p.progressInterval = d }
}

// WithClock replaces time.Now, used by tests.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// Pipeline exports videos one run at a time. Start may be called again after
// a run reaches a terminal state.
type Pipeline struct {
	mu     sync.Mutex
	state  State
	logger logrus.FieldLogger

	dispatcher       Dispatcher
	progressInterval time.Duration
	now              func() time.Time
}

// NewPipeline creates an idle export pipeline
func NewPipeline(logger logrus.FieldLogger, opts ...Option) *Pipeline {
	p := &Pipeline{
		state:      StateIdle,
		logger:     logger,
		dispatcher: Inline,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State returns the current pipeline state
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Start launches the export loop on a dedicated goroutine.
func (p *Pipeline) Start(ctx context.Context, job Job) (*Run, error) {
	if job.Source == nil || job.Sink == nil || job.Transform == nil {
		return nil, fmt.Errorf("export job requires a source, a sink and a transform")
	}

	p.mu.Lock()
	if p.state == StateRunning {
		p.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	p.state = StateRunning
	p.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	run := &Run{
		ID:     uuid.New().String(),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer cancel()
		result, err := p.execute(runCtx, run.ID, job)

		p.mu.Lock()
		p.state = result.State
		p.mu.Unlock()

		run.result = result
		run.err = err
		close(run.done)
	}()

	return run, nil
}

// Run starts an export and waits for it.
func (p *Pipeline) Run(ctx context.Context, job Job) (Result, error) {
	run, err := p.Start(ctx, job)
	if err != nil {
		return Result{State: p.State()}, err
	}
	return run.Wait()
}

// execute is the export loop. The sink is closed and the source position
// restored exactly once, whatever the exit path.
func (p *Pipeline) execute(ctx context.Context, runID string, job Job) (result Result, err error) {
	log := p.logger.WithField("run_id", runID)
	total := job.Source.FrameCount()
	origin := job.Source.Position()
	start := p.now()

	result = Result{RunID: runID, State: StateRunning}

	log.WithFields(logrus.Fields{
		"total_frames": total,
		"fps":          job.Source.FPS(),
		"size":         job.Source.Size(),
		"origin":       origin,
	}).Info("EXPORT: Starting export")

	slot := newProgressSlot()
	var delivery sync.WaitGroup
	delivery.Add(1)
	go p.deliverProgress(slot, job.OnProgress, &delivery)

	defer func() {
		slot.close()
		delivery.Wait()

		result.Elapsed = p.now().Sub(start)
		log.WithFields(logrus.Fields{
			"state":            result.State.String(),
			"frames_written":   result.FramesWritten,
			"elapsed":          result.Elapsed,
			"progress_dropped": slot.dropped(),
		}).Info("EXPORT: Export finished")
	}()

	defer func() {
		if restoreErr := job.Source.SetPosition(origin); restoreErr != nil {
			log.WithField("error", restoreErr).Warn("EXPORT: Failed to restore source position")
		}
	}()

	defer func() {
		closeErr := job.Sink.Close()
		if closeErr == nil {
			return
		}
		log.WithField("error", closeErr).Error("EXPORT: Failed to finalize sink")
		finalizeErr := &Error{Op: "finalize", Frame: result.FramesWritten, Err: fmt.Errorf("%w: %w", ErrSinkWrite, closeErr)}
		err = errors.Join(err, finalizeErr)
		result.State = StateFailed
	}()

	for index := 0; index < total; index++ {
		if ctx.Err() != nil {
			log.WithField("frame", index).Info("EXPORT: Cancelled by host")
			result.State = StateAborted
			return result, nil
		}

		out, stepErr := p.processFrame(job, index)
		if errors.Is(stepErr, ErrAbort) {
			log.WithField("frame", index).Info("EXPORT: Transform requested abort")
			result.State = StateAborted
			return result, nil
		}
		if stepErr != nil {
			result.State = StateFailed
			return result, stepErr
		}

		writeErr := job.Sink.Write(out)
		out.Close()
		if writeErr != nil {
			log.WithFields(logrus.Fields{
				"frame": index,
				"error": writeErr,
			}).Error("EXPORT: Sink rejected frame")
			result.State = StateFailed
			return result, &Error{Op: "write", Frame: index, Err: fmt.Errorf("%w: %w", ErrSinkWrite, writeErr)}
		}
		result.FramesWritten++

		progress := computeProgress(index, total, p.now().Sub(start))
		progress.RunID = runID
		result.Last = progress
		slot.publish(progress)
	}

	result.State = StateCompleted
	return result, nil
}

// processFrame seeks, reads and transforms one frame. The returned Mat is owned by the caller.
func (p *Pipeline) processFrame(job Job, index int) (gocv.Mat, error) {
	if err := job.Source.SetPosition(index); err != nil {
		return gocv.NewMat(), &Error{Op: "seek", Frame: index, Err: err}
	}

	frame := gocv.NewMat()
	defer frame.Close()

	if err := job.Source.Read(&frame); err != nil {
		return gocv.NewMat(), &Error{Op: "read", Frame: index, Err: err}
	}

	out, err := p.transform(job.Transform, frame, index)
	if err != nil {
		if out.Ptr() != frame.Ptr() {
			out.Close()
		}
		if errors.Is(err, ErrAbort) {
			return gocv.NewMat(), ErrAbort
		}
		return gocv.NewMat(), &Error{Op: "transform", Frame: index, Err: err}
	}

	// A transform handing back its input must not have it closed under it
	if out.Ptr() == frame.Ptr() {
		return frame.Clone(), nil
	}
	if out.Empty() {
		out.Close()
		return gocv.NewMat(), &Error{Op: "transform", Frame: index, Err: fmt.Errorf("transform returned an empty frame")}
	}
	return out, nil
}

type transformReply struct {
	frame gocv.Mat
	err   error
}

// transform runs fn on the interaction thread and blocks until it replies.
// Only one request is ever outstanding.
func (p *Pipeline) transform(fn TransformFunc, frame gocv.Mat, index int) (gocv.Mat, error) {
	reply := make(chan transformReply, 1)

	p.dispatcher.Dispatch(func() {
		defer func() {
			if r := recover(); r != nil {
				reply <- transformReply{frame: gocv.NewMat(), err: fmt.Errorf("transform panicked: %v", r)}
			}
		}()
		out, err := fn(frame, index)
		reply <- transformReply{frame: out, err: err}
	})

	r := <-reply
	return r.frame, r.err
}

// deliverProgress drains the progress slot until it is closed.
func (p *Pipeline) deliverProgress(slot *progressSlot, onProgress func(Progress), wg *sync.WaitGroup) {
	defer wg.Done()

	for {
		progress, ok := slot.next()
		if !ok {
			return
		}
		if onProgress != nil {
			p.dispatcher.Dispatch(func() { onProgress(progress) })
		}
		if p.progressInterval > 0 {
			time.Sleep(p.progressInterval)
		}
	}
}
