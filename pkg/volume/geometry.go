package volume

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidVolumeSize = errors.New("volume: maximum volume size must be > 0")
	ErrIncomplete        = errors.New("volume: descriptor chain is incomplete")
	ErrNotDense          = errors.New("volume: descriptor chain is not dense")
)

// Geometry maps logical stream positions onto volumes of a fixed maximum
// size. The zero value is not usable; construct one with NewGeometry.
type Geometry struct {
	maxSize int64
}

func NewGeometry(maxSize int64) (Geometry, error) {
	if maxSize <= 0 {
		return Geometry{}, fmt.Errorf("%w: got %d", ErrInvalidVolumeSize, maxSize)
	}
	return Geometry{maxSize: maxSize}, nil
}

// MaxSize returns the capacity of a single volume in bytes.
func (g Geometry) MaxSize() int64 { return g.maxSize }

// Locate returns the volume index and in-volume offset of a logical position.
// pos must be >= 0.
func (g Geometry) Locate(pos int64) (int, int64) {
	return int(pos / g.maxSize), pos % g.maxSize
}

// Position is the inverse of Locate.
func (g Geometry) Position(index int, offset int64) int64 {
	return int64(index)*g.maxSize + offset
}

// Count returns how many volumes a stream of length bytes occupies. Volume 0
// always exists, so an empty stream still occupies one volume.
func (g Geometry) Count(length int64) int {
	if length <= 0 {
		return 1
	}
	return int((length + g.maxSize - 1) / g.maxSize) // ceil div
}
