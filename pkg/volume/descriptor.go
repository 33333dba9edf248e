package volume

import "fmt"

// Descriptor records what is known about one physical volume.
type Descriptor struct {
	Index int    `json:"index" yaml:"index"`
	Name  string `json:"name" yaml:"name"`
	Size  int64  `json:"size" yaml:"size"`
	Known bool   `json:"-" yaml:"-"`
}

// LogicalLength sums the sizes of a dense, fully probed descriptor chain.
// A gap, an unprobed volume or an empty chain makes the length indeterminate.
func LogicalLength(descs []Descriptor) (int64, error) {
	if len(descs) == 0 {
		return 0, fmt.Errorf("%w: no volumes", ErrIncomplete)
	}
	var total int64
	for i, d := range descs {
		if d.Index != i {
			return 0, fmt.Errorf("%w: expected volume %d, found %d", ErrIncomplete, i, d.Index)
		}
		if !d.Known {
			return 0, fmt.Errorf("%w: volume %d has not been probed", ErrIncomplete, i)
		}
		total += d.Size
	}
	return total, nil
}

// CheckDensity verifies that every volume but the last is exactly full and
// that no volume exceeds the maximum size.
func (g Geometry) CheckDensity(descs []Descriptor) error {
	for i, d := range descs {
		if d.Size > g.maxSize {
			return fmt.Errorf("%w: volume %d holds %d bytes, max %d", ErrNotDense, d.Index, d.Size, g.maxSize)
		}
		if i < len(descs)-1 && d.Size != g.maxSize {
			return fmt.Errorf("%w: volume %d holds %d of %d bytes but is not the last", ErrNotDense, d.Index, d.Size, g.maxSize)
		}
	}
	return nil
}
