package splitfile

import (
	"fmt"
	"strings"

	"github.com/jgoldverg/splitfile/pkg/naming"
	"github.com/jgoldverg/splitfile/pkg/store"
)

type Mode int

const (
	ModeRead Mode = iota + 1
	ModeWriteTruncate
	ModeWriteAppend
	ModeReadWrite
)

var modeNames = map[Mode]string{
	ModeRead:          "read",
	ModeWriteTruncate: "write-truncate",
	ModeWriteAppend:   "write-append",
	ModeReadWrite:     "read-write",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

func ParseMode(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for m, name := range modeNames {
		if name == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, s)
}

func (m Mode) valid() bool {
	_, ok := modeNames[m]
	return ok
}

func (m Mode) readable() bool { return m == ModeRead || m == ModeReadWrite }

func (m Mode) writable() bool { return m != ModeRead }

// openFlag is the flag used for volumes that already exist.
func (m Mode) openFlag() store.OpenFlag {
	switch m {
	case ModeRead:
		return store.FlagRead
	case ModeReadWrite:
		return store.FlagRead | store.FlagWrite
	default:
		return store.FlagWrite
	}
}

// Options configure a split file. They are copied by Open and cannot change
// afterwards.
type Options struct {
	// VolumeSize is the maximum size of every volume in bytes.
	VolumeSize int64
	Mode       Mode
	// Base is the identifier volume names are derived from, e.g. the path of
	// the first volume for the local filesystem.
	Base string
	// HandleCacheLimit bounds how many volumes are open at once. Zero means
	// unbounded.
	HandleCacheLimit int
	// Namer defaults to naming.Suffix.
	Namer naming.Namer
	// Exclusive fails Open when volume 0 already exists. Only valid with
	// write modes.
	Exclusive bool
	Observer  Observer
}

func (o Options) validate() error {
	if !o.Mode.valid() {
		return fmt.Errorf("%w: unknown mode %d", ErrInvalidConfig, int(o.Mode))
	}
	if strings.TrimSpace(o.Base) == "" {
		return fmt.Errorf("%w: base identifier is required", ErrInvalidConfig)
	}
	if o.HandleCacheLimit < 0 {
		return fmt.Errorf("%w: handle cache limit must be >= 0, got %d", ErrInvalidConfig, o.HandleCacheLimit)
	}
	if o.Exclusive && o.Mode != ModeWriteTruncate && o.Mode != ModeWriteAppend {
		return fmt.Errorf("%w: exclusive requires a write-truncate or write-append mode", ErrInvalidConfig)
	}
	return nil
}
