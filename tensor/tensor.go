package tensor

import (
	"fmt"
	"math"
)

// Tensor is the user-facing handle: a RawTensor plus the Backend that
// executes operations on it. Every numeric method delegates to the backend
// and wraps the result in a new Tensor on the same backend.
type Tensor struct {
	raw     *RawTensor
	backend Backend
}

// New creates a Tensor from a RawTensor and backend.
func New(raw *RawTensor, b Backend) *Tensor {
	return &Tensor{raw: raw, backend: b}
}

// FromSlice creates a tensor from a Go slice. The slice is copied.
func FromSlice[T DType](data []T, shape Shape, b Backend) (*Tensor, error) {
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("shape %v requires %d elements, but got %d", shape, shape.NumElements(), len(data))
	}

	var dummy T
	raw, err := NewRaw(shape, inferDataType(dummy), b.Device())
	if err != nil {
		return nil, err
	}

	t := New(raw, b)
	switch src := any(data).(type) {
	case []float32:
		copy(raw.AsFloat32(), src)
	case []float64:
		copy(raw.AsFloat64(), src)
	case []int32:
		copy(raw.AsInt32(), src)
	case []int64:
		copy(raw.AsInt64(), src)
	case []uint8:
		copy(raw.AsUint8(), src)
	case []bool:
		copy(raw.AsBool(), src)
	}
	return t, nil
}

// Zeros creates a tensor filled with zeros.
func Zeros(shape Shape, dtype DataType, b Backend) *Tensor {
	raw, err := NewRaw(shape, dtype, b.Device())
	if err != nil {
		panic(err)
	}
	return New(raw, b)
}

// Ones creates a tensor filled with ones.
func Ones(shape Shape, dtype DataType, b Backend) *Tensor {
	return Full(shape, 1, dtype, b)
}

// Full creates a tensor filled with a value (converted to dtype).
func Full(shape Shape, value float64, dtype DataType, b Backend) *Tensor {
	t := Zeros(shape, dtype, b)
	for i := 0; i < t.NumElements(); i++ {
		t.setFloat(i, value)
	}
	return t
}

// Eye creates an n-by-n identity matrix.
func Eye(n int, dtype DataType, b Backend) *Tensor {
	t := Zeros(Shape{n, n}, dtype, b)
	for i := 0; i < n; i++ {
		t.setFloat(i*n+i, 1)
	}
	return t
}

// Shape returns the tensor's shape.
func (t *Tensor) Shape() Shape {
	return t.raw.Shape()
}

// DType returns the tensor's data type.
func (t *Tensor) DType() DataType {
	return t.raw.DType()
}

// Device returns the tensor's device tag.
func (t *Tensor) Device() Device {
	return t.raw.Device()
}

// NumElements returns the total number of elements.
func (t *Tensor) NumElements() int {
	return t.raw.NumElements()
}

// Raw returns the underlying RawTensor.
func (t *Tensor) Raw() *RawTensor {
	return t.raw
}

// Backend returns the computation backend.
func (t *Tensor) Backend() Backend {
	return t.backend
}

// Clone creates an independent deep copy of the tensor.
func (t *Tensor) Clone() *Tensor {
	return New(t.raw.Clone(), t.backend)
}

// At returns the element at the given indices as float64.
// Panics if indices are out of bounds.
func (t *Tensor) At(indices ...int) float64 {
	if len(indices) != len(t.Shape()) {
		panic(fmt.Sprintf("expected %d indices, got %d", len(t.Shape()), len(indices)))
	}
	offset := 0
	strides := t.raw.Strides()
	for i, idx := range indices {
		if idx < 0 || idx >= t.Shape()[i] {
			panic(fmt.Sprintf("index %d out of bounds for dimension %d (size %d)", idx, i, t.Shape()[i]))
		}
		offset += idx * strides[i]
	}
	return t.getFloat(offset)
}

// Set writes the element at the given indices (converted to dtype).
// Panics if indices are out of bounds.
func (t *Tensor) Set(value float64, indices ...int) {
	if len(indices) != len(t.Shape()) {
		panic(fmt.Sprintf("expected %d indices, got %d", len(t.Shape()), len(indices)))
	}
	offset := 0
	strides := t.raw.Strides()
	for i, idx := range indices {
		if idx < 0 || idx >= t.Shape()[i] {
			panic(fmt.Sprintf("index %d out of bounds for dimension %d (size %d)", idx, i, t.Shape()[i]))
		}
		offset += idx * strides[i]
	}
	t.setFloat(offset, value)
}

// Item returns the value of a single-element tensor as float64.
func (t *Tensor) Item() float64 {
	if t.NumElements() != 1 {
		panic(fmt.Sprintf("Item() only works for single-element tensors, got shape %v", t.Shape()))
	}
	return t.getFloat(0)
}

func (t *Tensor) getFloat(offset int) float64 {
	switch t.DType() {
	case Float32:
		return float64(t.raw.AsFloat32()[offset])
	case Float64:
		return t.raw.AsFloat64()[offset]
	case Int32:
		return float64(t.raw.AsInt32()[offset])
	case Int64:
		return float64(t.raw.AsInt64()[offset])
	case Uint8:
		return float64(t.raw.AsUint8()[offset])
	default:
		panic(fmt.Sprintf("unsupported dtype for float access: %s", t.DType()))
	}
}

func (t *Tensor) setFloat(offset int, v float64) {
	switch t.DType() {
	case Float32:
		t.raw.AsFloat32()[offset] = float32(v)
	case Float64:
		t.raw.AsFloat64()[offset] = v
	case Int32:
		t.raw.AsInt32()[offset] = int32(v)
	case Int64:
		t.raw.AsInt64()[offset] = int64(v)
	case Uint8:
		t.raw.AsUint8()[offset] = uint8(v)
	default:
		panic(fmt.Sprintf("unsupported dtype for float access: %s", t.DType()))
	}
}

// Add performs element-wise addition with broadcasting.
func (t *Tensor) Add(other *Tensor) *Tensor {
	return New(t.backend.Add(t.raw, other.raw), t.backend)
}

// Sub performs element-wise subtraction with broadcasting.
func (t *Tensor) Sub(other *Tensor) *Tensor {
	return New(t.backend.Sub(t.raw, other.raw), t.backend)
}

// Mul performs element-wise multiplication with broadcasting.
func (t *Tensor) Mul(other *Tensor) *Tensor {
	return New(t.backend.Mul(t.raw, other.raw), t.backend)
}

// Div performs element-wise division with broadcasting.
func (t *Tensor) Div(other *Tensor) *Tensor {
	return New(t.backend.Div(t.raw, other.raw), t.backend)
}

// MatMul performs matrix multiplication: (M, K) @ (K, N) -> (M, N).
func (t *Tensor) MatMul(other *Tensor) *Tensor {
	return New(t.backend.MatMul(t.raw, other.raw), t.backend)
}

// MulScalar multiplies every element by a scalar.
func (t *Tensor) MulScalar(s float64) *Tensor {
	return New(t.backend.MulScalar(t.raw, s), t.backend)
}

// AddScalar adds a scalar to every element.
func (t *Tensor) AddScalar(s float64) *Tensor {
	return New(t.backend.AddScalar(t.raw, s), t.backend)
}

// Reshape returns a tensor with the same data but a new shape.
func (t *Tensor) Reshape(newShape ...int) *Tensor {
	return New(t.backend.Reshape(t.raw, Shape(newShape)), t.backend)
}

// Transpose permutes the tensor's dimensions. With no axes, all
// dimensions are reversed.
func (t *Tensor) Transpose(axes ...int) *Tensor {
	return New(t.backend.Transpose(t.raw, axes...), t.backend)
}

// Index applies subscript selectors leading-dimension first.
func (t *Tensor) Index(sels ...Selector) *Tensor {
	return New(t.backend.Index(t.raw, sels), t.backend)
}

// Unbind splits the tensor into one tensor per entry along dim.
func (t *Tensor) Unbind(dim int) []*Tensor {
	raws := t.backend.Unbind(t.raw, dim)
	out := make([]*Tensor, len(raws))
	for i, r := range raws {
		out[i] = New(r, t.backend)
	}
	return out
}

// Narrow keeps length entries of dim starting at start.
func (t *Tensor) Narrow(dim, start, length int) *Tensor {
	return New(t.backend.Narrow(t.raw, dim, start, length), t.backend)
}

// To returns a copy of the tensor tagged for the given device.
func (t *Tensor) To(d Device) *Tensor {
	return New(t.backend.ToDevice(t.raw, d), t.backend)
}

// Cat concatenates tensors along dim.
func Cat(tensors []*Tensor, dim int) *Tensor {
	if len(tensors) == 0 {
		panic("cat: at least one tensor required")
	}
	raws := make([]*RawTensor, len(tensors))
	for i, t := range tensors {
		raws[i] = t.raw
	}
	b := tensors[0].backend
	return New(b.Cat(raws, dim), b)
}

// Stack stacks tensors of identical shape along a new dimension at dim.
func Stack(tensors []*Tensor, dim int) *Tensor {
	if len(tensors) == 0 {
		panic("stack: at least one tensor required")
	}
	raws := make([]*RawTensor, len(tensors))
	for i, t := range tensors {
		raws[i] = t.raw
	}
	b := tensors[0].backend
	return New(b.Stack(raws, dim), b)
}

// Equal reports structural equality: same dtype, same shape and
// byte-identical contents. The device tag is deliberately excluded so
// values can be compared across device moves.
func (t *Tensor) Equal(other *Tensor) bool {
	if other == nil {
		return false
	}
	if t.DType() != other.DType() || !t.Shape().Equal(other.Shape()) {
		return false
	}
	a, b := t.raw.Data(), other.raw.Data()
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// AllClose reports whether two tensors have the same shape and all
// elements within tol of each other.
func (t *Tensor) AllClose(other *Tensor, tol float64) bool {
	if other == nil || !t.Shape().Equal(other.Shape()) {
		return false
	}
	for i := 0; i < t.NumElements(); i++ {
		if math.Abs(t.getFloat(i)-other.getFloat(i)) > tol {
			return false
		}
	}
	return true
}

// String returns a human-readable description of the tensor.
func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor[%s]%v on %s", t.DType(), t.Shape(), t.Device())
}
