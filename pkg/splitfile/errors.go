package splitfile

import (
	"errors"
	"fmt"
	"io/fs"
)

var (
	ErrInvalidConfig  = errors.New("splitfile: invalid configuration")
	ErrClosed         = errors.New("splitfile: file already closed")
	ErrLogic          = errors.New("splitfile: volume chain is not dense")
	ErrNegativeOffset = errors.New("splitfile: negative position")
	ErrInvalidWhence  = errors.New("splitfile: invalid whence")

	errNotReadable = fmt.Errorf("splitfile: not opened for reading: %w", fs.ErrPermission)
	errNotWritable = fmt.Errorf("splitfile: not opened for writing: %w", fs.ErrPermission)
)

// VolumeError records a store failure and the volume it happened on. The
// store's error is preserved for errors.Is and errors.As.
type VolumeError struct {
	Op    string
	Index int
	Name  string
	Err   error
}

func (e *VolumeError) Error() string {
	return fmt.Sprintf("splitfile: %s volume %d (%s): %v", e.Op, e.Index, e.Name, e.Err)
}

func (e *VolumeError) Unwrap() error { return e.Err }
