package export

import (
	"errors"
	"fmt"
)

var (
	// ErrAbort is returned by a TransformFunc to stop the export cleanly.
	// The in-flight frame is not written.
	ErrAbort = errors.New("export aborted")

	// ErrSinkWrite marks failures of the destination video sink.
	ErrSinkWrite = errors.New("sink write failure")

	// ErrAlreadyRunning is returned when Start is called while a run is in progress.
	ErrAlreadyRunning = errors.New("export already running")
)

// Error describes a failed export step.
type Error struct {
	Op    string // seek, read, transform, write, finalize
	Frame int
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("export %s at frame %d: %v", e.Op, e.Frame, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsSinkFailure reports whether err was caused by the video sink.
func IsSinkFailure(err error) bool {
	return errors.Is(err, ErrSinkWrite)
}
