package volume

// Span is the part of a logical byte range that falls inside one volume.
type Span struct {
	Index  int
	Offset int64
	Length int64
}

// End returns the in-volume offset one past the span.
func (s Span) End() int64 { return s.Offset + s.Length }

// Plan decomposes [pos, pos+length) into the ordered, minimal sequence of
// per-volume spans it crosses. The result is empty iff length == 0.
func (g Geometry) Plan(pos, length int64) []Span {
	if length <= 0 {
		return nil
	}

	first, _ := g.Locate(pos)
	last, _ := g.Locate(pos + length - 1)
	spans := make([]Span, 0, last-first+1)

	for remaining := length; remaining > 0; {
		index, offset := g.Locate(pos)
		n := g.maxSize - offset
		if remaining < n {
			n = remaining
		}
		spans = append(spans, Span{Index: index, Offset: offset, Length: n})
		pos += n
		remaining -= n
	}
	return spans
}
