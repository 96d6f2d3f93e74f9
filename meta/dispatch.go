package meta

import (
	"fmt"
	"sort"

	"github.com/metatensor-ml/metatensor/internal/metrics"
	"github.com/metatensor-ml/metatensor/tensor"
)

// OpKind tells the dispatcher whether an operation needs batch-aware
// post-processing beyond the plain metadata merge.
type OpKind int

// Operation kinds.
const (
	// OpGeneric is any operation with no batch-dimension special case.
	OpGeneric OpKind = iota
	// OpGetItem is subscripting; the first selector may narrow a batch.
	OpGetItem
	// OpUnbind is a split along a dimension; dim 0 splits a batch.
	OpUnbind
)

// OpFunc executes the underlying numeric operation on the array engine,
// exactly as if the operands were plain tensors.
type OpFunc func(args []any, kwargs map[string]any) (any, error)

// Op is one interceptable operation: a name for diagnostics, a kind for
// batch handling, and the engine function.
type Op struct {
	Name string
	Kind OpKind
	Fn   OpFunc
}

// KwargOut is the keyword argument naming a caller-provided write
// destination. When present, the operation wrote in place and metadata
// is left entirely untouched.
const KwargOut = "out"

// Dispatch is the single hook every numeric operation on a MetaTensor is
// routed through. It runs the operation on the array engine, then merges
// metadata into each result per the tracking flags: results inherit the
// record of the first metadata-carrying operand found scanning the
// flattened argument list left to right. Batch results additionally get
// their collated metadata narrowed when the operation sliced or split
// the batch dimension; the decollation backing that narrowing runs at
// most once per Dispatch call.
//
// Only the first selector of a subscript is inspected for batch
// narrowing; later components never touch batch metadata. Engine errors
// (and engine panics on shape violations) propagate unchanged, and
// metadata is only mutated after the numeric operation has succeeded.
func Dispatch(op Op, args []any, kwargs map[string]any) (any, error) {
	metrics.RecordDispatch(op.Name)

	raw, err := op.Fn(args, kwargs)
	if err != nil {
		return nil, err
	}

	// In-place writes keep whatever metadata the destination already had.
	if _, ok := kwargs[KwargOut]; ok {
		return raw, nil
	}

	seq, wasSeq := normalizeResult(raw)
	seq, err = updateMeta(seq, op, args, kwargs)
	if err != nil {
		return nil, err
	}
	if !wasSeq {
		return seq[0], nil
	}
	return seq, nil
}

// normalizeResult turns a raw engine result into an ordered sequence,
// remembering whether to unwrap at the end.
func normalizeResult(raw any) ([]any, bool) {
	if s, ok := raw.([]any); ok {
		return s, true
	}
	return []any{raw}, false
}

// updateMeta processes each result element independently: non-MetaTensor
// values pass through, tracking-off results are demoted to plain
// tensors, and everything else inherits merged operand metadata plus
// batch narrowing.
func updateMeta(seq []any, op Op, args []any, kwargs map[string]any) ([]any, error) {
	// Decollated per-item records, computed at most once per call.
	var metas []*Record

	for idx, ret := range seq {
		mt, ok := ret.(*MetaTensor)
		if !ok {
			continue
		}

		if !TrackMeta() && !TrackTransforms() {
			seq[idx] = mt.AsTensor()
			metrics.RecordDemotion()
			continue
		}

		merged := NewRecord()
		merged.CopyFrom(flattenMetaArgs(args, kwargs), false)
		mt.meta = merged

		if mt.IsBatch() {
			if metas == nil {
				var err error
				metas, err = Decollate(mt.meta)
				if err != nil {
					metrics.RecordCollationError()
					return nil, err
				}
				metrics.RecordDecollate()
			}
			if err := narrowBatchMeta(mt, op, args, kwargs, metas, idx); err != nil {
				return nil, err
			}
		}

		mt.resolveAffineDevice()
	}
	return seq, nil
}

// narrowBatchMeta applies the batch-dimension rules for subscripting and
// unbinding. metas is the memoized decollation of the result's collated
// record; idx is the result's position in the output sequence.
func narrowBatchMeta(mt *MetaTensor, op Op, args []any, kwargs map[string]any, metas []*Record, idx int) error {
	switch op.Kind {
	case OpGetItem:
		sels, _ := args[1].([]tensor.Selector)
		if len(sels) == 0 {
			return nil
		}
		first := sels[0]
		switch first.Kind {
		case tensor.SelectAll, tensor.SelectEllipsis:
			// The batch dimension is untouched; keep the merged record.
			return nil
		case tensor.SelectAt:
			norm, err := first.Normalize(len(metas))
			if err != nil {
				return fmt.Errorf("batch metadata selection: %w", err)
			}
			mt.meta = metas[norm.Pos]
			mt.SetIsBatch(false)
			metrics.RecordBatchNarrow("single")
		case tensor.SelectSpan:
			norm, err := first.Normalize(len(metas))
			if err != nil {
				return fmt.Errorf("batch metadata selection: %w", err)
			}
			sub := metas[norm.Start:norm.Stop]
			if len(sub) > 1 {
				collated, err := Collate(sub)
				if err != nil {
					metrics.RecordCollationError()
					return err
				}
				mt.meta = collated
				mt.SetIsBatch(true)
				metrics.RecordBatchNarrow("subset")
			} else {
				mt.meta = sub[0]
				mt.SetIsBatch(false)
				metrics.RecordBatchNarrow("single")
			}
		}
	case OpUnbind:
		if unbindDim(args, kwargs) != 0 {
			return nil
		}
		if idx >= len(metas) {
			return fmt.Errorf("batch metadata selection: unbind produced %d outputs for %d items", idx+1, len(metas))
		}
		mt.meta = metas[idx]
		mt.SetIsBatch(false)
		metrics.RecordBatchNarrow("unbind")
	}
	return nil
}

// unbindDim resolves the split dimension: second positional argument,
// then the "dim" keyword, then 0.
func unbindDim(args []any, kwargs map[string]any) int {
	if len(args) > 1 {
		if d, ok := args[1].(int); ok {
			return d
		}
	}
	if v, ok := kwargs["dim"]; ok {
		if d, ok := v.(int); ok {
			return d
		}
	}
	return 0
}

// flattenMetaArgs expands positional then keyword operands depth-first,
// left to right, into the ordered list of metadata records carried by
// MetaTensor operands. Sequence and mapping operands are recursed into;
// mapping values are visited in sorted key order so the scan is
// deterministic.
func flattenMetaArgs(args []any, kwargs map[string]any) []*Record {
	var out []*Record
	var walk func(v any)
	walk = func(v any) {
		switch tv := v.(type) {
		case *MetaTensor:
			out = append(out, tv.meta)
		case []any:
			for _, e := range tv {
				walk(e)
			}
		case []*MetaTensor:
			for _, e := range tv {
				walk(e)
			}
		case map[string]any:
			keys := make([]string, 0, len(tv))
			for k := range tv {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				walk(tv[k])
			}
		}
	}
	for _, a := range args {
		walk(a)
	}
	keys := make([]string, 0, len(kwargs))
	for k := range kwargs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		walk(kwargs[k])
	}
	return out
}
