package tensor

import "fmt"

// SelectorKind discriminates subscript components.
type SelectorKind int

// Subscript component kinds.
const (
	// SelectAll keeps a dimension untouched, like a[:].
	SelectAll SelectorKind = iota
	// SelectEllipsis keeps every remaining dimension untouched, like a[...].
	SelectEllipsis
	// SelectAt picks a single index and drops the dimension, like a[i].
	SelectAt
	// SelectSpan keeps a half-open range of a dimension, like a[start:stop].
	SelectSpan
)

// Selector is one component of a subscript expression. Index applies a
// sequence of selectors leading-dimension first, mirroring a[i, j, ...].
type Selector struct {
	Kind  SelectorKind
	Pos   int // index for SelectAt
	Start int // range start for SelectSpan
	Stop  int // range stop (exclusive) for SelectSpan
}

// All selects a full dimension.
func All() Selector {
	return Selector{Kind: SelectAll}
}

// Ell selects every remaining dimension.
func Ell() Selector {
	return Selector{Kind: SelectEllipsis}
}

// At selects a single index along a dimension, dropping it from the result.
// Negative indices count from the end.
func At(i int) Selector {
	return Selector{Kind: SelectAt, Pos: i}
}

// Span selects the half-open range [start, stop) of a dimension.
func Span(start, stop int) Selector {
	return Selector{Kind: SelectSpan, Start: start, Stop: stop}
}

// String renders the selector in subscript notation.
func (s Selector) String() string {
	switch s.Kind {
	case SelectAll:
		return ":"
	case SelectEllipsis:
		return "..."
	case SelectAt:
		return fmt.Sprintf("%d", s.Pos)
	case SelectSpan:
		return fmt.Sprintf("%d:%d", s.Start, s.Stop)
	default:
		return "?"
	}
}

// Normalize resolves a selector against a dimension size: negative SelectAt
// positions wrap, span bounds are clamped. Returns an error when the
// selector falls outside the dimension.
func (s Selector) Normalize(dim int) (Selector, error) {
	switch s.Kind {
	case SelectAt:
		pos := s.Pos
		if pos < 0 {
			pos += dim
		}
		if pos < 0 || pos >= dim {
			return s, fmt.Errorf("index %d out of bounds for dimension of size %d", s.Pos, dim)
		}
		return Selector{Kind: SelectAt, Pos: pos}, nil
	case SelectSpan:
		start, stop := s.Start, s.Stop
		if start < 0 {
			start += dim
		}
		if stop < 0 {
			stop += dim
		}
		if start < 0 {
			start = 0
		}
		if stop > dim {
			stop = dim
		}
		if start >= stop {
			return s, fmt.Errorf("empty span %d:%d for dimension of size %d", s.Start, s.Stop, dim)
		}
		return Selector{Kind: SelectSpan, Start: start, Stop: stop}, nil
	default:
		return s, nil
	}
}
