package tensor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metatensor-ml/metatensor/backend/cpu"
	"github.com/metatensor-ml/metatensor/tensor"
)

func f32(t *testing.T, data []float32, shape tensor.Shape) *tensor.Tensor {
	t.Helper()
	out, err := tensor.FromSlice(data, shape, cpu.New())
	require.NoError(t, err)
	return out
}

func TestFromSlice(t *testing.T) {
	x := f32(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	assert.Equal(t, tensor.Shape{2, 3}, x.Shape())
	assert.Equal(t, tensor.Float32, x.DType())
	assert.Equal(t, tensor.CPU, x.Device())
	assert.InDelta(t, 6, x.At(1, 2), 1e-6)

	_, err := tensor.FromSlice([]float32{1, 2}, tensor.Shape{3}, cpu.New())
	assert.Error(t, err)
}

func TestFromSliceDTypeInference(t *testing.T) {
	b := cpu.New()

	i64, err := tensor.FromSlice([]int64{1, 2}, tensor.Shape{2}, b)
	require.NoError(t, err)
	assert.Equal(t, tensor.Int64, i64.DType())

	bl, err := tensor.FromSlice([]bool{true, false}, tensor.Shape{2}, b)
	require.NoError(t, err)
	assert.Equal(t, tensor.Bool, bl.DType())
}

func TestCreationHelpers(t *testing.T) {
	b := cpu.New()

	z := tensor.Zeros(tensor.Shape{2, 2}, tensor.Float64, b)
	assert.InDelta(t, 0, z.At(1, 1), 1e-12)

	o := tensor.Ones(tensor.Shape{3}, tensor.Float32, b)
	assert.InDelta(t, 1, o.At(2), 1e-6)

	f := tensor.Full(tensor.Shape{2}, 7.5, tensor.Float64, b)
	assert.InDelta(t, 7.5, f.At(0), 1e-12)

	e := tensor.Eye(3, tensor.Float64, b)
	assert.InDelta(t, 1, e.At(1, 1), 1e-12)
	assert.InDelta(t, 0, e.At(0, 2), 1e-12)
}

func TestElementWiseWithBroadcast(t *testing.T) {
	a := f32(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	row := f32(t, []float32{10, 20, 30}, tensor.Shape{3})

	sum := a.Add(row)
	want := f32(t, []float32{11, 22, 33, 14, 25, 36}, tensor.Shape{2, 3})
	assert.True(t, sum.AllClose(want, 1e-6))

	diff := a.Sub(a)
	assert.True(t, diff.AllClose(tensor.Zeros(tensor.Shape{2, 3}, tensor.Float32, cpu.New()), 1e-6))

	prod := a.Mul(row)
	assert.InDelta(t, 180, prod.At(1, 2), 1e-4)

	quot := a.Div(row)
	assert.InDelta(t, 0.1, quot.At(0, 0), 1e-6)
}

func TestMatMul(t *testing.T) {
	a := f32(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	b := f32(t, []float32{7, 8, 9, 10, 11, 12}, tensor.Shape{3, 2})

	got := a.MatMul(b)
	want := f32(t, []float32{58, 64, 139, 154}, tensor.Shape{2, 2})
	assert.True(t, got.AllClose(want, 1e-4))
}

func TestScalarOps(t *testing.T) {
	a := f32(t, []float32{1, 2, 3}, tensor.Shape{3})
	assert.True(t, a.MulScalar(2).AllClose(f32(t, []float32{2, 4, 6}, tensor.Shape{3}), 1e-6))
	assert.True(t, a.AddScalar(1).AllClose(f32(t, []float32{2, 3, 4}, tensor.Shape{3}), 1e-6))
}

func TestReshapeAndTranspose(t *testing.T) {
	a := f32(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})

	r := a.Reshape(3, 2)
	assert.Equal(t, tensor.Shape{3, 2}, r.Shape())
	assert.InDelta(t, 3, r.At(1, 0), 1e-6)

	tr := a.Transpose()
	assert.Equal(t, tensor.Shape{3, 2}, tr.Shape())
	assert.InDelta(t, a.At(0, 2), tr.At(2, 0), 1e-6)
	assert.InDelta(t, a.At(1, 1), tr.At(1, 1), 1e-6)
}

func TestIndex(t *testing.T) {
	a := f32(t, []float32{0, 1, 2, 3, 4, 5}, tensor.Shape{2, 3})

	row := a.Index(tensor.At(1))
	assert.Equal(t, tensor.Shape{3}, row.Shape())
	assert.True(t, row.AllClose(f32(t, []float32{3, 4, 5}, tensor.Shape{3}), 1e-6))

	col := a.Index(tensor.All(), tensor.At(1))
	assert.Equal(t, tensor.Shape{2}, col.Shape())
	assert.True(t, col.AllClose(f32(t, []float32{1, 4}, tensor.Shape{2}), 1e-6))

	span := a.Index(tensor.Span(0, 1))
	assert.Equal(t, tensor.Shape{1, 3}, span.Shape())

	last := a.Index(tensor.At(-1), tensor.At(-1))
	assert.Equal(t, tensor.Shape{1}, last.Shape())
	assert.InDelta(t, 5, last.Item(), 1e-6)

	ell := a.Index(tensor.Ell())
	assert.True(t, ell.Equal(a))

	assert.Panics(t, func() { a.Index(tensor.At(5)) })
	assert.Panics(t, func() { a.Index(tensor.At(0), tensor.At(0), tensor.At(0)) })
}

func TestUnbind(t *testing.T) {
	a := f32(t, []float32{0, 1, 2, 3, 4, 5}, tensor.Shape{2, 3})

	rows := a.Unbind(0)
	require.Len(t, rows, 2)
	assert.True(t, rows[1].AllClose(f32(t, []float32{3, 4, 5}, tensor.Shape{3}), 1e-6))

	cols := a.Unbind(1)
	require.Len(t, cols, 3)
	assert.True(t, cols[0].AllClose(f32(t, []float32{0, 3}, tensor.Shape{2}), 1e-6))
}

func TestCatAndStack(t *testing.T) {
	a := f32(t, []float32{1, 2}, tensor.Shape{1, 2})
	b := f32(t, []float32{3, 4}, tensor.Shape{1, 2})

	cat0 := tensor.Cat([]*tensor.Tensor{a, b}, 0)
	assert.Equal(t, tensor.Shape{2, 2}, cat0.Shape())
	assert.InDelta(t, 3, cat0.At(1, 0), 1e-6)

	cat1 := tensor.Cat([]*tensor.Tensor{a, b}, 1)
	assert.Equal(t, tensor.Shape{1, 4}, cat1.Shape())
	assert.InDelta(t, 4, cat1.At(0, 3), 1e-6)

	s := f32(t, []float32{1, 2}, tensor.Shape{2})
	u := f32(t, []float32{3, 4}, tensor.Shape{2})

	st0 := tensor.Stack([]*tensor.Tensor{s, u}, 0)
	assert.Equal(t, tensor.Shape{2, 2}, st0.Shape())
	assert.InDelta(t, 3, st0.At(1, 0), 1e-6)

	st1 := tensor.Stack([]*tensor.Tensor{s, u}, 1)
	assert.Equal(t, tensor.Shape{2, 2}, st1.Shape())
	assert.InDelta(t, 3, st1.At(0, 1), 1e-6)
}

func TestNarrow(t *testing.T) {
	a := f32(t, []float32{0, 1, 2, 3, 4, 5}, tensor.Shape{2, 3})

	n := a.Narrow(1, 1, 2)
	assert.Equal(t, tensor.Shape{2, 2}, n.Shape())
	assert.True(t, n.AllClose(f32(t, []float32{1, 2, 4, 5}, tensor.Shape{2, 2}), 1e-6))

	assert.Panics(t, func() { a.Narrow(1, 2, 5) })
}

func TestToDevice(t *testing.T) {
	a := f32(t, []float32{1, 2}, tensor.Shape{2})
	moved := a.To(tensor.CUDA)

	assert.Equal(t, tensor.CUDA, moved.Device())
	assert.Equal(t, tensor.CPU, a.Device())

	// Equality ignores the device tag.
	assert.True(t, a.Equal(moved))
}

func TestCloneIsIndependent(t *testing.T) {
	a := f32(t, []float32{1, 2}, tensor.Shape{2})
	c := a.Clone()
	a.Set(9, 0)
	assert.InDelta(t, 1, c.At(0), 1e-6)
}

func TestEqualAndAllClose(t *testing.T) {
	a := f32(t, []float32{1, 2}, tensor.Shape{2})
	b := f32(t, []float32{1, 2}, tensor.Shape{2})
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(nil))

	b.Set(2.00001, 1)
	assert.False(t, a.Equal(b))
	assert.True(t, a.AllClose(b, 1e-4))

	d := f32(t, []float32{1, 2, 3}, tensor.Shape{3})
	assert.False(t, a.Equal(d))
	assert.False(t, a.AllClose(d, 1))
}

func TestItem(t *testing.T) {
	a := f32(t, []float32{42}, tensor.Shape{1})
	assert.InDelta(t, 42, a.Item(), 1e-6)

	b := f32(t, []float32{1, 2}, tensor.Shape{2})
	assert.Panics(t, func() { b.Item() })
}
