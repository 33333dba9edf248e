// Package naming derives the external name of a volume from a base
// identifier and the volume index.
package naming

import (
	"fmt"
	"strings"
)

// Namer must be deterministic and injective over index for a fixed base.
type Namer interface {
	Name(base string, index int) string
}

// Suffix leaves volume 0 under the base name and appends ".2", ".3", ... to
// the following volumes, so a single-volume stream looks like a plain file.
type Suffix struct{}

func (Suffix) Name(base string, index int) string {
	if index == 0 {
		return base
	}
	return fmt.Sprintf("%s.%d", base, index+1)
}

// Padded appends a zero padded, zero based index to every volume
// (base.000, base.001, ...). Width only controls padding; indexes wider than
// Width still produce unique names.
type Padded struct {
	Width int
}

func (p Padded) Name(base string, index int) string {
	width := p.Width
	if width <= 0 {
		width = 3
	}
	return fmt.Sprintf("%s.%0*d", base, width, index)
}

const (
	KindSuffix = "suffix"
	KindPadded = "padded"
)

func Parse(kind string) (Namer, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", KindSuffix:
		return Suffix{}, nil
	case KindPadded:
		return Padded{Width: 3}, nil
	default:
		return nil, fmt.Errorf("unknown naming scheme %q, must be one of [%s, %s]", kind, KindSuffix, KindPadded)
	}
}
