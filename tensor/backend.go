package tensor

// Backend defines the interface compute implementations must satisfy.
// Backends execute the actual numeric work on RawTensors; shape or dtype
// violations panic, matching the engine's fail-fast contract.
//
// Implementations:
//   - backend/cpu: pure Go reference kernels
type Backend interface {
	// Element-wise binary operations with broadcasting
	Add(a, b *RawTensor) *RawTensor
	Sub(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor
	Div(a, b *RawTensor) *RawTensor

	// Matrix operations
	MatMul(a, b *RawTensor) *RawTensor

	// Scalar operations
	MulScalar(x *RawTensor, scalar float64) *RawTensor
	AddScalar(x *RawTensor, scalar float64) *RawTensor

	// Shape operations
	Reshape(x *RawTensor, newShape Shape) *RawTensor
	Transpose(x *RawTensor, axes ...int) *RawTensor

	// Manipulation operations
	Cat(xs []*RawTensor, dim int) *RawTensor
	Stack(xs []*RawTensor, dim int) *RawTensor
	Narrow(x *RawTensor, dim, start, length int) *RawTensor

	// Subscripting: selectors apply to leading dimensions, like x[i, j].
	Index(x *RawTensor, sels []Selector) *RawTensor

	// Unbind splits x into one tensor per entry along dim, dropping dim.
	Unbind(x *RawTensor, dim int) []*RawTensor

	// Device movement
	ToDevice(x *RawTensor, d Device) *RawTensor

	// Metadata
	Name() string
	Device() Device
}
