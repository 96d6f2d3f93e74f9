// Package cpu provides the pure Go reference backend for the tensor engine.
package cpu

import (
	"fmt"

	"github.com/metatensor-ml/metatensor/tensor"
)

// Verify that CPUBackend implements tensor.Backend.
var _ tensor.Backend = (*CPUBackend)(nil)

// CPUBackend executes tensor operations with naive, correctness-first
// kernels. Numeric kernels stage values through float64; structural
// kernels (cat, stack, index, unbind, narrow) move raw bytes and never
// change dtype.
type CPUBackend struct{}

// New creates a CPUBackend.
func New() *CPUBackend {
	return &CPUBackend{}
}

// Name returns the backend name.
func (c *CPUBackend) Name() string {
	return "cpu"
}

// Device returns the device this backend allocates on.
func (c *CPUBackend) Device() tensor.Device {
	return tensor.CPU
}

// Add performs element-wise addition with broadcasting.
func (c *CPUBackend) Add(a, b *tensor.RawTensor) *tensor.RawTensor {
	return c.elementWise(a, b, func(x, y float64) float64 { return x + y })
}

// Sub performs element-wise subtraction with broadcasting.
func (c *CPUBackend) Sub(a, b *tensor.RawTensor) *tensor.RawTensor {
	return c.elementWise(a, b, func(x, y float64) float64 { return x - y })
}

// Mul performs element-wise multiplication with broadcasting.
func (c *CPUBackend) Mul(a, b *tensor.RawTensor) *tensor.RawTensor {
	return c.elementWise(a, b, func(x, y float64) float64 { return x * y })
}

// Div performs element-wise division with broadcasting.
func (c *CPUBackend) Div(a, b *tensor.RawTensor) *tensor.RawTensor {
	return c.elementWise(a, b, func(x, y float64) float64 { return x / y })
}

func (c *CPUBackend) elementWise(a, b *tensor.RawTensor, op func(float64, float64) float64) *tensor.RawTensor {
	outShape, _, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(err)
	}

	result, err := tensor.NewRaw(outShape, a.DType(), a.Device())
	if err != nil {
		panic(err)
	}

	aData := toFloat64Slice(a)
	bData := toFloat64Slice(b)
	resultData := make([]float64, outShape.NumElements())

	for i := range resultData {
		aIdx := broadcastIndex(i, outShape, a.Shape())
		bIdx := broadcastIndex(i, outShape, b.Shape())
		resultData[i] = op(aData[aIdx], bData[bIdx])
	}

	fromFloat64Slice(resultData, result)
	return result
}

// MatMul performs 2D matrix multiplication.
func (c *CPUBackend) MatMul(a, b *tensor.RawTensor) *tensor.RawTensor {
	aShape, bShape := a.Shape(), b.Shape()
	if len(aShape) != 2 || len(bShape) != 2 {
		panic("MatMul only supports 2D tensors")
	}
	if aShape[1] != bShape[0] {
		panic(fmt.Sprintf("incompatible shapes for MatMul: %v @ %v", aShape, bShape))
	}

	M, K, N := aShape[0], aShape[1], bShape[1]
	result, err := tensor.NewRaw(tensor.Shape{M, N}, a.DType(), a.Device())
	if err != nil {
		panic(err)
	}

	aData := toFloat64Slice(a)
	bData := toFloat64Slice(b)
	resultData := make([]float64, M*N)

	for i := 0; i < M; i++ {
		for j := 0; j < N; j++ {
			sum := 0.0
			for k := 0; k < K; k++ {
				sum += aData[i*K+k] * bData[k*N+j]
			}
			resultData[i*N+j] = sum
		}
	}

	fromFloat64Slice(resultData, result)
	return result
}

// MulScalar multiplies every element by a scalar.
func (c *CPUBackend) MulScalar(x *tensor.RawTensor, scalar float64) *tensor.RawTensor {
	return c.scalarWise(x, func(v float64) float64 { return v * scalar })
}

// AddScalar adds a scalar to every element.
func (c *CPUBackend) AddScalar(x *tensor.RawTensor, scalar float64) *tensor.RawTensor {
	return c.scalarWise(x, func(v float64) float64 { return v + scalar })
}

func (c *CPUBackend) scalarWise(x *tensor.RawTensor, op func(float64) float64) *tensor.RawTensor {
	result, err := tensor.NewRaw(x.Shape(), x.DType(), x.Device())
	if err != nil {
		panic(err)
	}
	data := toFloat64Slice(x)
	for i, v := range data {
		data[i] = op(v)
	}
	fromFloat64Slice(data, result)
	return result
}

// Reshape changes the tensor's shape without changing its contents.
func (c *CPUBackend) Reshape(x *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	if err := newShape.Validate(); err != nil {
		panic(err)
	}
	if x.NumElements() != newShape.NumElements() {
		panic(fmt.Sprintf("cannot reshape tensor with %d elements to shape %v (%d elements)",
			x.NumElements(), newShape, newShape.NumElements()))
	}
	result, err := tensor.NewRaw(newShape, x.DType(), x.Device())
	if err != nil {
		panic(err)
	}
	copy(result.Data(), x.Data())
	return result
}

// Transpose permutes the tensor's dimensions. With no axes, all
// dimensions are reversed.
func (c *CPUBackend) Transpose(x *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	shape := x.Shape()
	if len(axes) == 0 {
		axes = make([]int, len(shape))
		for i := range axes {
			axes[i] = len(shape) - 1 - i
		}
	}
	if len(axes) != len(shape) {
		panic(fmt.Sprintf("axes length %d doesn't match tensor dimensions %d", len(axes), len(shape)))
	}

	newShape := make(tensor.Shape, len(shape))
	for i, axis := range axes {
		if axis < 0 || axis >= len(shape) {
			panic(fmt.Sprintf("axis %d out of bounds for tensor with %d dimensions", axis, len(shape)))
		}
		newShape[i] = shape[axis]
	}

	result, err := tensor.NewRaw(newShape, x.DType(), x.Device())
	if err != nil {
		panic(err)
	}

	oldStrides := shape.ComputeStrides()
	newStrides := newShape.ComputeStrides()
	size := x.DType().Size()
	src, dst := x.Data(), result.Data()

	for i := 0; i < x.NumElements(); i++ {
		indices := make([]int, len(shape))
		temp := i
		for j := range shape {
			indices[j] = temp / oldStrides[j]
			temp %= oldStrides[j]
		}
		newIdx := 0
		for j, axis := range axes {
			newIdx += indices[axis] * newStrides[j]
		}
		copy(dst[newIdx*size:(newIdx+1)*size], src[i*size:(i+1)*size])
	}
	return result
}

// Cat concatenates tensors along dim. All inputs must share dtype and
// every dimension except dim.
func (c *CPUBackend) Cat(xs []*tensor.RawTensor, dim int) *tensor.RawTensor {
	if len(xs) == 0 {
		panic("cat: at least one tensor required")
	}
	first := xs[0]
	shape := first.Shape()
	if dim < 0 {
		dim += len(shape)
	}
	if dim < 0 || dim >= len(shape) {
		panic(fmt.Sprintf("cat: dim %d out of range for shape %v", dim, shape))
	}

	total := 0
	for _, x := range xs {
		xs0 := x.Shape()
		if x.DType() != first.DType() || len(xs0) != len(shape) {
			panic("cat: tensors must share dtype and rank")
		}
		for d := range shape {
			if d != dim && xs0[d] != shape[d] {
				panic(fmt.Sprintf("cat: shape mismatch at dim %d: %v vs %v", d, xs0, shape))
			}
		}
		total += xs0[dim]
	}

	outShape := shape.Clone()
	outShape[dim] = total
	result, err := tensor.NewRaw(outShape, first.DType(), first.Device())
	if err != nil {
		panic(err)
	}

	size := first.DType().Size()
	inner := 1
	for d := dim + 1; d < len(shape); d++ {
		inner *= shape[d]
	}
	outer := 1
	for d := 0; d < dim; d++ {
		outer *= shape[d]
	}

	dst := result.Data()
	pos := 0
	for o := 0; o < outer; o++ {
		for _, x := range xs {
			slab := x.Shape()[dim] * inner * size
			copy(dst[pos:pos+slab], x.Data()[o*slab:(o+1)*slab])
			pos += slab
		}
	}
	return result
}

// Stack stacks tensors of identical shape along a new dimension at dim.
func (c *CPUBackend) Stack(xs []*tensor.RawTensor, dim int) *tensor.RawTensor {
	if len(xs) == 0 {
		panic("stack: at least one tensor required")
	}
	first := xs[0]
	shape := first.Shape()
	if dim < 0 {
		dim += len(shape) + 1
	}
	if dim < 0 || dim > len(shape) {
		panic(fmt.Sprintf("stack: dim %d out of range for shape %v", dim, shape))
	}
	for _, x := range xs {
		if x.DType() != first.DType() || !x.Shape().Equal(shape) {
			panic("stack: tensors must share dtype and shape")
		}
	}

	outShape := make(tensor.Shape, 0, len(shape)+1)
	outShape = append(outShape, shape[:dim]...)
	outShape = append(outShape, len(xs))
	outShape = append(outShape, shape[dim:]...)

	result, err := tensor.NewRaw(outShape, first.DType(), first.Device())
	if err != nil {
		panic(err)
	}

	size := first.DType().Size()
	inner := 1
	for d := dim; d < len(shape); d++ {
		inner *= shape[d]
	}
	innerBytes := inner * size
	outer := 1
	for d := 0; d < dim; d++ {
		outer *= shape[d]
	}

	dst := result.Data()
	pos := 0
	for o := 0; o < outer; o++ {
		for _, x := range xs {
			copy(dst[pos:pos+innerBytes], x.Data()[o*innerBytes:(o+1)*innerBytes])
			pos += innerBytes
		}
	}
	return result
}

// Narrow keeps length entries of dim starting at start.
func (c *CPUBackend) Narrow(x *tensor.RawTensor, dim, start, length int) *tensor.RawTensor {
	shape := x.Shape()
	if dim < 0 {
		dim += len(shape)
	}
	if dim < 0 || dim >= len(shape) {
		panic(fmt.Sprintf("narrow: dim %d out of range for shape %v", dim, shape))
	}
	if start < 0 || length <= 0 || start+length > shape[dim] {
		panic(fmt.Sprintf("narrow: range [%d, %d) out of bounds for dimension of size %d", start, start+length, shape[dim]))
	}

	outShape := shape.Clone()
	outShape[dim] = length
	result, err := tensor.NewRaw(outShape, x.DType(), x.Device())
	if err != nil {
		panic(err)
	}

	size := x.DType().Size()
	inner := 1
	for d := dim + 1; d < len(shape); d++ {
		inner *= shape[d]
	}
	rowBytes := inner * size
	outer := 1
	for d := 0; d < dim; d++ {
		outer *= shape[d]
	}

	src, dst := x.Data(), result.Data()
	srcSlab := shape[dim] * rowBytes
	dstSlab := length * rowBytes
	for o := 0; o < outer; o++ {
		copy(dst[o*dstSlab:(o+1)*dstSlab], src[o*srcSlab+start*rowBytes:o*srcSlab+(start+length)*rowBytes])
	}
	return result
}

// dimSelect is the resolved subscript plan for one input dimension.
type dimSelect struct {
	fixed bool
	pos   int // fixed index when fixed
	start int // range start otherwise
	size  int // range length otherwise
	keep  bool // whether the dimension survives in the output
}

// Index applies subscript selectors leading-dimension first. SelectAt
// drops its dimension, SelectSpan narrows it, SelectAll keeps it and
// SelectEllipsis keeps every remaining dimension.
func (c *CPUBackend) Index(x *tensor.RawTensor, sels []tensor.Selector) *tensor.RawTensor {
	shape := x.Shape()

	plan := make([]dimSelect, len(shape))
	d := 0
	for _, sel := range sels {
		if sel.Kind == tensor.SelectEllipsis {
			break
		}
		if d >= len(shape) {
			panic(fmt.Sprintf("index: too many selectors for shape %v", shape))
		}
		norm, err := sel.Normalize(shape[d])
		if err != nil {
			panic(err)
		}
		switch norm.Kind {
		case tensor.SelectAt:
			plan[d] = dimSelect{fixed: true, pos: norm.Pos}
		case tensor.SelectSpan:
			plan[d] = dimSelect{start: norm.Start, size: norm.Stop - norm.Start, keep: true}
		case tensor.SelectAll:
			plan[d] = dimSelect{size: shape[d], keep: true}
		}
		d++
	}
	for ; d < len(shape); d++ {
		plan[d] = dimSelect{size: shape[d], keep: true}
	}

	outShape := make(tensor.Shape, 0, len(shape))
	for _, p := range plan {
		if p.keep {
			outShape = append(outShape, p.size)
		}
	}

	// Fully-indexed tensors collapse to a single-element 1-vector; the
	// engine has no scalar rank-0 storage.
	if len(outShape) == 0 {
		outShape = tensor.Shape{1}
	}

	result, err := tensor.NewRaw(outShape, x.DType(), x.Device())
	if err != nil {
		panic(err)
	}

	size := x.DType().Size()
	inStrides := x.Strides()
	outStrides := outShape.ComputeStrides()
	src, dst := x.Data(), result.Data()

	for i := 0; i < result.NumElements(); i++ {
		// out flat index -> out multi-index -> in multi-index
		temp := i
		outIndices := make([]int, len(outShape))
		for j := range outShape {
			outIndices[j] = temp / outStrides[j]
			temp %= outStrides[j]
		}

		inOffset := 0
		oi := 0
		for dim, p := range plan {
			if p.fixed {
				inOffset += p.pos * inStrides[dim]
				continue
			}
			idx := 0
			if oi < len(outIndices) {
				idx = outIndices[oi]
			}
			inOffset += (p.start + idx) * inStrides[dim]
			oi++
		}
		copy(dst[i*size:(i+1)*size], src[inOffset*size:(inOffset+1)*size])
	}
	return result
}

// Unbind splits x into one tensor per entry along dim, dropping dim.
func (c *CPUBackend) Unbind(x *tensor.RawTensor, dim int) []*tensor.RawTensor {
	shape := x.Shape()
	if dim < 0 {
		dim += len(shape)
	}
	if dim < 0 || dim >= len(shape) {
		panic(fmt.Sprintf("unbind: dim %d out of range for shape %v", dim, shape))
	}

	outShape := make(tensor.Shape, 0, len(shape)-1)
	outShape = append(outShape, shape[:dim]...)
	outShape = append(outShape, shape[dim+1:]...)
	if len(outShape) == 0 {
		outShape = tensor.Shape{1}
	}

	size := x.DType().Size()
	inner := 1
	for d := dim + 1; d < len(shape); d++ {
		inner *= shape[d]
	}
	rowBytes := inner * size
	outer := 1
	for d := 0; d < dim; d++ {
		outer *= shape[d]
	}
	srcSlab := shape[dim] * rowBytes

	out := make([]*tensor.RawTensor, shape[dim])
	src := x.Data()
	for i := range out {
		r, err := tensor.NewRaw(outShape, x.DType(), x.Device())
		if err != nil {
			panic(err)
		}
		dst := r.Data()
		for o := 0; o < outer; o++ {
			copy(dst[o*rowBytes:(o+1)*rowBytes], src[o*srcSlab+i*rowBytes:o*srcSlab+(i+1)*rowBytes])
		}
		out[i] = r
	}
	return out
}

// ToDevice retags storage for the target device.
func (c *CPUBackend) ToDevice(x *tensor.RawTensor, d tensor.Device) *tensor.RawTensor {
	return x.WithDevice(d)
}

// Helper functions

func toFloat64Slice(t *tensor.RawTensor) []float64 {
	n := t.NumElements()
	dst := make([]float64, n)
	switch t.DType() {
	case tensor.Float32:
		for i, v := range t.AsFloat32() {
			dst[i] = float64(v)
		}
	case tensor.Float64:
		copy(dst, t.AsFloat64())
	case tensor.Int32:
		for i, v := range t.AsInt32() {
			dst[i] = float64(v)
		}
	case tensor.Int64:
		for i, v := range t.AsInt64() {
			dst[i] = float64(v)
		}
	case tensor.Uint8:
		for i, v := range t.AsUint8() {
			dst[i] = float64(v)
		}
	default:
		panic(fmt.Sprintf("unsupported dtype: %s", t.DType()))
	}
	return dst
}

func fromFloat64Slice(src []float64, t *tensor.RawTensor) {
	switch t.DType() {
	case tensor.Float32:
		dst := t.AsFloat32()
		for i, v := range src {
			dst[i] = float32(v)
		}
	case tensor.Float64:
		copy(t.AsFloat64(), src)
	case tensor.Int32:
		dst := t.AsInt32()
		for i, v := range src {
			dst[i] = int32(v)
		}
	case tensor.Int64:
		dst := t.AsInt64()
		for i, v := range src {
			dst[i] = int64(v)
		}
	case tensor.Uint8:
		dst := t.AsUint8()
		for i, v := range src {
			dst[i] = uint8(v)
		}
	}
}

func broadcastIndex(flatIdx int, outShape, inShape tensor.Shape) int {
	outStrides := outShape.ComputeStrides()
	indices := make([]int, len(outShape))
	temp := flatIdx
	for i := range outShape {
		indices[i] = temp / outStrides[i]
		temp %= outStrides[i]
	}

	inStrides := inShape.ComputeStrides()
	inIdx := 0
	offset := len(outShape) - len(inShape)
	for i := range inShape {
		outDimIdx := indices[offset+i]
		if inShape[i] == 1 {
			outDimIdx = 0
		}
		inIdx += outDimIdx * inStrides[i]
	}
	return inIdx
}
