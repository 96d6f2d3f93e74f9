package meta

import (
	"fmt"
	"reflect"

	"github.com/metatensor-ml/metatensor/backend/cpu"
	"github.com/metatensor-ml/metatensor/tensor"
)

// FieldAffine is the reserved record key holding the spatial transform.
const FieldAffine = "affine"

// Record is an insertion-ordered mapping of metadata fields plus the
// derived affine transform. The affine always resolves to a value: if no
// field was ever set, the first access installs the 4x4 identity.
type Record struct {
	keys    []string
	fields  map[string]any
	isBatch bool
}

// NewRecord creates an empty Record.
func NewRecord() *Record {
	return &Record{fields: make(map[string]any)}
}

// Get returns the value stored under key.
func (r *Record) Get(key string) (any, bool) {
	v, ok := r.fields[key]
	return v, ok
}

// Set stores a value under key, preserving insertion order for new keys.
func (r *Record) Set(key string, value any) {
	if _, ok := r.fields[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.fields[key] = value
}

// Has reports whether key is present.
func (r *Record) Has(key string) bool {
	_, ok := r.fields[key]
	return ok
}

// Delete removes key if present.
func (r *Record) Delete(key string) {
	if _, ok := r.fields[key]; !ok {
		return
	}
	delete(r.fields, key)
	for i, k := range r.keys {
		if k == key {
			r.keys = append(r.keys[:i], r.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the field names in insertion order.
func (r *Record) Keys() []string {
	return append([]string(nil), r.keys...)
}

// Len returns the number of fields, the affine included once set.
func (r *Record) Len() int {
	return len(r.fields)
}

// IsEmpty reports whether the record has no fields at all.
func (r *Record) IsEmpty() bool {
	return len(r.fields) == 0
}

// IsBatch reports whether this record collates multiple items.
func (r *Record) IsBatch() bool {
	return r.isBatch
}

// SetIsBatch marks the record as (not) representing a collated batch.
func (r *Record) SetIsBatch(b bool) {
	r.isBatch = b
}

// Affine returns the spatial transform. When no affine was ever set, the
// 4x4 float64 identity is installed on first access.
func (r *Record) Affine() *tensor.Tensor {
	if v, ok := r.fields[FieldAffine]; ok {
		return v.(*tensor.Tensor)
	}
	a := DefaultAffine()
	r.Set(FieldAffine, a)
	return a
}

// SetAffine stores the spatial transform. Accepts a 4x4 matrix, or a
// stack of them (n, 4, 4) on a collated batch record.
func (r *Record) SetAffine(a *tensor.Tensor) error {
	if a == nil {
		return fmt.Errorf("affine must not be nil")
	}
	s := a.Shape()
	ok := (len(s) == 2 && s[0] == 4 && s[1] == 4) ||
		(len(s) == 3 && s[1] == 4 && s[2] == 4)
	if !ok {
		return fmt.Errorf("affine must be 4x4 or stacked (n, 4, 4), got %v", s)
	}
	r.Set(FieldAffine, a)
	return nil
}

// DefaultAffine returns the 4x4 float64 identity on the CPU engine.
func DefaultAffine() *tensor.Tensor {
	return tensor.Eye(4, tensor.Float64, cpu.New())
}

// CopyFrom populates the record from the first non-empty source, scanned
// in order. Existing destination fields stay unless the source overwrites
// them. With deep set, tensor-valued fields are cloned instead of
// aliased; the batch flag of the winning source is adopted either way.
func (r *Record) CopyFrom(sources []*Record, deep bool) {
	for _, src := range sources {
		if src == nil || src.IsEmpty() {
			continue
		}
		for _, k := range src.keys {
			r.Set(k, cloneValue(src.fields[k], deep))
		}
		r.isBatch = src.isBatch
		return
	}
}

// Clone returns a copy of the record. With deep set, tensor-valued fields
// are cloned; otherwise values are aliased.
func (r *Record) Clone(deep bool) *Record {
	out := NewRecord()
	for _, k := range r.keys {
		out.Set(k, cloneValue(r.fields[k], deep))
	}
	out.isBatch = r.isBatch
	return out
}

// Equal reports structural equality: same fields in the same insertion
// order, tensor values compared by contents.
func (r *Record) Equal(other *Record) bool {
	if other == nil || len(r.keys) != len(other.keys) {
		return false
	}
	for i, k := range r.keys {
		if other.keys[i] != k {
			return false
		}
		if !valueEqual(r.fields[k], other.fields[k]) {
			return false
		}
	}
	return true
}

func cloneValue(v any, deep bool) any {
	if !deep {
		return v
	}
	switch tv := v.(type) {
	case *tensor.Tensor:
		return tv.Clone()
	case []any:
		out := make([]any, len(tv))
		for i, e := range tv {
			out[i] = cloneValue(e, deep)
		}
		return out
	default:
		return v
	}
}

func valueEqual(a, b any) bool {
	ta, aok := a.(*tensor.Tensor)
	tb, bok := b.(*tensor.Tensor)
	if aok || bok {
		return aok && bok && ta.Equal(tb)
	}
	sa, aok := a.([]any)
	sb, bok := b.([]any)
	if aok || bok {
		if !aok || !bok || len(sa) != len(sb) {
			return false
		}
		for i := range sa {
			if !valueEqual(sa[i], sb[i]) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}
