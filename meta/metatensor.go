package meta

import (
	"fmt"

	"github.com/metatensor-ml/metatensor/internal/logger"
	"github.com/metatensor-ml/metatensor/tensor"
)

// MetaDictSuffix is appended to the base key by AsDict to name the
// metadata entry.
const MetaDictSuffix = "_meta_dict"

// MetaTensor composes a dense tensor with exactly one metadata Record.
// All numeric behavior is delegated to the tensor engine through
// Dispatch; the record rides along.
type MetaTensor struct {
	data *tensor.Tensor
	meta *Record
}

type newOptions struct {
	affine *tensor.Tensor
	meta   *Record
}

// Option configures New.
type Option func(*newOptions)

// WithAffine supplies an explicit affine for the new tensor. It wins over
// any affine already present in the adopted metadata; that case is
// reported as a warning, not an error.
func WithAffine(a *tensor.Tensor) Option {
	return func(o *newOptions) { o.affine = a }
}

// WithMeta supplies the metadata record verbatim.
func WithMeta(r *Record) Option {
	return func(o *newOptions) { o.meta = r }
}

// New wraps a tensor into a MetaTensor. The source x may be a plain
// *tensor.Tensor or an existing *MetaTensor.
//
// Metadata selection: an explicit WithMeta record is used verbatim; else
// a MetaTensor source's record is adopted by reference; else the record
// starts empty. Affine resolution, highest priority first: WithAffine,
// the adopted record's affine, the source MetaTensor's affine, the
// identity default. When the source is a plain tensor the resulting
// record is deep-copied so the new instance aliases nothing. The
// resolved affine is moved onto the data's device last.
func New(x any, opts ...Option) *MetaTensor {
	var o newOptions
	for _, opt := range opts {
		opt(&o)
	}

	src, srcIsMeta := x.(*MetaTensor)

	m := &MetaTensor{}
	switch v := x.(type) {
	case *MetaTensor:
		m.data = v.data
	case *tensor.Tensor:
		m.data = v
	default:
		panic(fmt.Sprintf("meta.New: unsupported source type %T", x))
	}

	switch {
	case o.meta != nil:
		m.meta = o.meta
	case srcIsMeta:
		m.meta = src.meta
	default:
		m.meta = NewRecord()
	}

	switch {
	case o.affine != nil:
		if m.meta.Has(FieldAffine) {
			logger.Log.Warn("setting affine, but the applied metadata contains an affine; it will be overwritten")
		}
		if err := m.meta.SetAffine(o.affine); err != nil {
			panic(err)
		}
	case m.meta.Has(FieldAffine):
		// nothing to do
	case srcIsMeta:
		if err := m.meta.SetAffine(src.Affine()); err != nil {
			panic(err)
		}
	default:
		m.meta.Affine() // installs the identity default
	}

	// A plain source means this record must not alias anything else.
	if !srcIsMeta {
		m.meta = m.meta.Clone(true)
	}

	m.resolveAffineDevice()
	return m
}

// AsTensor returns the underlying plain tensor. The handle shares
// storage with the MetaTensor.
func (t *MetaTensor) AsTensor() *tensor.Tensor {
	return t.data
}

// Meta returns the metadata record.
func (t *MetaTensor) Meta() *Record {
	return t.meta
}

// SetMeta replaces the metadata record wholesale.
func (t *MetaTensor) SetMeta(r *Record) {
	if r == nil {
		r = NewRecord()
	}
	t.meta = r
}

// IsBatch reports whether this tensor represents a collated batch.
func (t *MetaTensor) IsBatch() bool {
	return t.meta.IsBatch()
}

// SetIsBatch marks the tensor as (not) representing a collated batch.
func (t *MetaTensor) SetIsBatch(b bool) {
	t.meta.SetIsBatch(b)
}

// Affine returns the spatial transform, installing the identity default
// if none was ever set.
func (t *MetaTensor) Affine() *tensor.Tensor {
	return t.meta.Affine()
}

// SetAffine stores the spatial transform, moved onto the data's device.
func (t *MetaTensor) SetAffine(a *tensor.Tensor) error {
	if err := t.meta.SetAffine(a); err != nil {
		return err
	}
	t.resolveAffineDevice()
	return nil
}

// Shape returns the data shape.
func (t *MetaTensor) Shape() tensor.Shape {
	return t.data.Shape()
}

// DType returns the data element type.
func (t *MetaTensor) DType() tensor.DataType {
	return t.data.DType()
}

// Device returns the data's device tag.
func (t *MetaTensor) Device() tensor.Device {
	return t.data.Device()
}

// AsDict splits the tensor into a plain-data entry under key and the
// metadata record under key + MetaDictSuffix, for dictionary-style
// consumers.
func (t *MetaTensor) AsDict(key string) map[string]any {
	return map[string]any{
		key:                  t.AsTensor(),
		key + MetaDictSuffix: t.meta,
	}
}

// resolveAffineDevice moves the affine onto the same device as the data.
// The affine must never reference a different device than its owner.
func (t *MetaTensor) resolveAffineDevice() {
	a := t.meta.Affine()
	if a.Device() != t.data.Device() {
		t.meta.Set(FieldAffine, a.To(t.data.Device()))
	}
}

// String returns a human-readable description.
func (t *MetaTensor) String() string {
	return fmt.Sprintf("MetaTensor[%s]%v on %s (fields: %d, batch: %v)",
		t.DType(), t.Shape(), t.Device(), t.meta.Len(), t.IsBatch())
}

// Add dispatches element-wise addition. Returns a *MetaTensor when
// tracking is enabled, a plain *tensor.Tensor otherwise.
func (t *MetaTensor) Add(other any) (any, error) {
	return Dispatch(opAdd, []any{t, other}, nil)
}

// Sub dispatches element-wise subtraction.
func (t *MetaTensor) Sub(other any) (any, error) {
	return Dispatch(opSub, []any{t, other}, nil)
}

// Mul dispatches element-wise multiplication.
func (t *MetaTensor) Mul(other any) (any, error) {
	return Dispatch(opMul, []any{t, other}, nil)
}

// Div dispatches element-wise division.
func (t *MetaTensor) Div(other any) (any, error) {
	return Dispatch(opDiv, []any{t, other}, nil)
}

// MatMul dispatches matrix multiplication.
func (t *MetaTensor) MatMul(other any) (any, error) {
	return Dispatch(opMatMul, []any{t, other}, nil)
}

// MulScalar dispatches scalar multiplication.
func (t *MetaTensor) MulScalar(s float64) (any, error) {
	return Dispatch(opMulScalar, []any{t, s}, nil)
}

// Reshape dispatches a shape change.
func (t *MetaTensor) Reshape(shape ...int) (any, error) {
	return Dispatch(opReshape, []any{t, shape}, nil)
}

// Transpose dispatches a dimension permutation.
func (t *MetaTensor) Transpose(axes ...int) (any, error) {
	return Dispatch(opTranspose, []any{t, axes}, nil)
}

// Index dispatches subscripting. On a batch tensor the first selector
// narrows the collated metadata unless it is tensor.All or tensor.Ell.
func (t *MetaTensor) Index(sels ...tensor.Selector) (any, error) {
	return Dispatch(opGetItem, []any{t, sels}, nil)
}

// Unbind dispatches a split along dim. Splitting the batch dimension
// (dim 0) hands each result its own per-item metadata.
func (t *MetaTensor) Unbind(dim int) ([]any, error) {
	out, err := Dispatch(opUnbind, []any{t, dim}, nil)
	if err != nil {
		return nil, err
	}
	return out.([]any), nil
}

// To dispatches a device move.
func (t *MetaTensor) To(d tensor.Device) (any, error) {
	return Dispatch(opTo, []any{t, d}, nil)
}

// MustMeta asserts a dispatch result back to *MetaTensor. It panics when
// the result was demoted to a plain tensor.
func MustMeta(v any) *MetaTensor {
	mt, ok := v.(*MetaTensor)
	if !ok {
		panic(fmt.Sprintf("expected *MetaTensor result, got %T (is tracking disabled?)", v))
	}
	return mt
}

// MustTensor asserts a dispatch result to the plain tensor it carries,
// unwrapping a MetaTensor if needed.
func MustTensor(v any) *tensor.Tensor {
	switch tv := v.(type) {
	case *tensor.Tensor:
		return tv
	case *MetaTensor:
		return tv.data
	default:
		panic(fmt.Sprintf("expected tensor result, got %T", v))
	}
}
