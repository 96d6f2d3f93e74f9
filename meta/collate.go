package meta

import (
	"fmt"

	"github.com/metatensor-ml/metatensor/tensor"
)

// CollationError reports structurally incompatible per-item metadata
// records during collate or re-collate. It is fatal: the operation that
// triggered it aborts and no metadata is mutated.
type CollationError struct {
	Key    string
	Reason string
}

func (e *CollationError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("metadata collation failed: %s", e.Reason)
	}
	return fmt.Sprintf("metadata collation failed for key %q: %s", e.Key, e.Reason)
}

// Collate combines per-item metadata records into one batch record.
// Tensor-valued fields are stacked along a new leading axis and must
// agree in shape and dtype; every other value is gathered into a []any.
// All items must share the same key set. The result is marked as a
// batch. Collate is pure: the input records are not modified.
func Collate(items []*Record) (*Record, error) {
	if len(items) == 0 {
		return nil, &CollationError{Reason: "no items to collate"}
	}
	first := items[0]
	for i, it := range items {
		if it == nil {
			return nil, &CollationError{Reason: fmt.Sprintf("item %d is nil", i)}
		}
		if it.Len() != first.Len() {
			return nil, &CollationError{Reason: fmt.Sprintf("item %d has %d fields, item 0 has %d", i, it.Len(), first.Len())}
		}
	}

	out := NewRecord()
	for _, key := range first.keys {
		v0 := first.fields[key]
		if t0, ok := v0.(*tensor.Tensor); ok {
			ts := make([]*tensor.Tensor, len(items))
			for i, it := range items {
				v, ok := it.fields[key]
				if !ok {
					return nil, &CollationError{Key: key, Reason: fmt.Sprintf("missing in item %d", i)}
				}
				ti, ok := v.(*tensor.Tensor)
				if !ok {
					return nil, &CollationError{Key: key, Reason: fmt.Sprintf("item %d holds %T, item 0 holds a tensor", i, v)}
				}
				if !ti.Shape().Equal(t0.Shape()) || ti.DType() != t0.DType() {
					return nil, &CollationError{Key: key, Reason: fmt.Sprintf(
						"item %d shape %v/%s is incompatible with item 0 shape %v/%s",
						i, ti.Shape(), ti.DType(), t0.Shape(), t0.DType())}
				}
				ts[i] = ti
			}
			out.Set(key, tensor.Stack(ts, 0))
			continue
		}

		vals := make([]any, len(items))
		for i, it := range items {
			v, ok := it.fields[key]
			if !ok {
				return nil, &CollationError{Key: key, Reason: fmt.Sprintf("missing in item %d", i)}
			}
			if _, isTensor := v.(*tensor.Tensor); isTensor {
				return nil, &CollationError{Key: key, Reason: fmt.Sprintf("item %d holds a tensor, item 0 does not", i)}
			}
			vals[i] = v
		}
		out.Set(key, vals)
	}
	out.SetIsBatch(true)
	return out, nil
}

// Decollate splits a batch record back into per-item records: stacked
// tensor fields are unstacked along their leading axis, []any fields are
// distributed element-wise. It is the pure inverse of Collate.
func Decollate(batch *Record) ([]*Record, error) {
	if batch == nil {
		return nil, &CollationError{Reason: "nil batch record"}
	}

	n, err := batchSize(batch)
	if err != nil {
		return nil, err
	}

	items := make([]*Record, n)
	for i := range items {
		items[i] = NewRecord()
	}

	for _, key := range batch.keys {
		switch v := batch.fields[key].(type) {
		case *tensor.Tensor:
			if len(v.Shape()) == 0 || v.Shape()[0] != n {
				return nil, &CollationError{Key: key, Reason: fmt.Sprintf(
					"stacked field has shape %v, expected leading dimension %d", v.Shape(), n)}
			}
			for i := range items {
				items[i].Set(key, v.Index(tensor.At(i)))
			}
		case []any:
			if len(v) != n {
				return nil, &CollationError{Key: key, Reason: fmt.Sprintf(
					"gathered field has %d entries, expected %d", len(v), n)}
			}
			for i := range items {
				items[i].Set(key, v[i])
			}
		default:
			return nil, &CollationError{Key: key, Reason: fmt.Sprintf(
				"field of type %T is not a collated value", v)}
		}
	}
	return items, nil
}

// CollateTensors stacks per-item MetaTensors into one batch MetaTensor:
// data along a new leading axis, records via Collate. The loader-facing
// counterpart of slicing and Unbind on the batch.
func CollateTensors(items []*MetaTensor) (*MetaTensor, error) {
	if len(items) == 0 {
		return nil, &CollationError{Reason: "no items to collate"}
	}
	records := make([]*Record, len(items))
	data := make([]*tensor.Tensor, len(items))
	for i, it := range items {
		records[i] = it.meta
		data[i] = it.data
	}
	batchMeta, err := Collate(records)
	if err != nil {
		return nil, err
	}
	return &MetaTensor{data: tensor.Stack(data, 0), meta: batchMeta}, nil
}

// batchSize derives the number of collated items: the stacked affine's
// leading dimension when present, else the first gathered field's
// length, else the first stacked tensor's leading dimension.
func batchSize(batch *Record) (int, error) {
	if v, ok := batch.fields[FieldAffine]; ok {
		if t, ok := v.(*tensor.Tensor); ok {
			s := t.Shape()
			if len(s) == 3 {
				return s[0], nil
			}
			return 0, &CollationError{Key: FieldAffine, Reason: fmt.Sprintf(
				"batch affine must be stacked (n, 4, 4), got %v", s)}
		}
	}
	for _, key := range batch.keys {
		switch v := batch.fields[key].(type) {
		case []any:
			return len(v), nil
		case *tensor.Tensor:
			if len(v.Shape()) > 0 {
				return v.Shape()[0], nil
			}
		}
	}
	return 0, &CollationError{Reason: "cannot determine batch size from record"}
}
