package store

import (
	"io"
	"io/fs"
	"strings"
)

// Error kinds every Store implementation reports through errors.Is.
var (
	ErrNotExist   = fs.ErrNotExist
	ErrExist      = fs.ErrExist
	ErrPermission = fs.ErrPermission
)

type OpenFlag int

const (
	FlagRead OpenFlag = 1 << iota
	FlagWrite
	FlagCreate
	FlagTruncate
	FlagExclusive
)

func (f OpenFlag) Has(other OpenFlag) bool { return f&other == other }

func (f OpenFlag) String() string {
	var parts []string
	for _, p := range []struct {
		flag OpenFlag
		name string
	}{
		{FlagRead, "read"},
		{FlagWrite, "write"},
		{FlagCreate, "create"},
		{FlagTruncate, "truncate"},
		{FlagExclusive, "exclusive"},
	} {
		if f.Has(p.flag) {
			parts = append(parts, p.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Store is a namespace of seekable, byte addressable storage units. A volume
// lives in exactly one unit, addressed by name.
type Store interface {
	Open(name string, flag OpenFlag) (Handle, error)
	// Stat reports the size of the named unit, or ErrNotExist.
	Stat(name string) (int64, error)
	Remove(name string) error
}

// Handle is an open storage unit. Reads past the end are short and return
// io.EOF; writes past the end zero-fill the gap.
type Handle interface {
	io.ReaderAt
	io.WriterAt
	Size() (int64, error)
	Truncate(size int64) error
	Sync() error
	Close() error
}
