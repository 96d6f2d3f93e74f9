package cpu_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metatensor-ml/metatensor/backend/cpu"
	"github.com/metatensor-ml/metatensor/tensor"
)

func TestBackendIdentity(t *testing.T) {
	b := cpu.New()
	assert.Equal(t, "cpu", b.Name())
	assert.Equal(t, tensor.CPU, b.Device())
}

func TestElementWiseKeepsDType(t *testing.T) {
	b := cpu.New()
	a, err := tensor.FromSlice([]int64{1, 2, 3}, tensor.Shape{3}, b)
	require.NoError(t, err)
	c, err := tensor.FromSlice([]int64{10, 20, 30}, tensor.Shape{3}, b)
	require.NoError(t, err)

	sum := a.Add(c)
	assert.Equal(t, tensor.Int64, sum.DType())
	assert.Equal(t, []int64{11, 22, 33}, sum.Raw().AsInt64())
}

func TestStructuralOpsKeepDType(t *testing.T) {
	b := cpu.New()
	a, err := tensor.FromSlice([]uint8{1, 2, 3, 4}, tensor.Shape{2, 2}, b)
	require.NoError(t, err)

	row := a.Index(tensor.At(0))
	assert.Equal(t, tensor.Uint8, row.DType())
	assert.Equal(t, []uint8{1, 2}, row.Raw().AsUint8())

	parts := a.Unbind(0)
	require.Len(t, parts, 2)
	assert.Equal(t, []uint8{3, 4}, parts[1].Raw().AsUint8())
}

func TestIndexFullSubscriptCollapses(t *testing.T) {
	b := cpu.New()
	a, err := tensor.FromSlice([]float32{0, 1, 2, 3, 4, 5}, tensor.Shape{2, 3}, b)
	require.NoError(t, err)

	one := a.Index(tensor.At(1), tensor.At(2))
	assert.Equal(t, tensor.Shape{1}, one.Shape())
	assert.InDelta(t, 5, one.Item(), 1e-6)
}

func TestIndexEllipsisKeepsRemainingDims(t *testing.T) {
	b := cpu.New()
	data := make([]float32, 24)
	for i := range data {
		data[i] = float32(i)
	}
	a, err := tensor.FromSlice(data, tensor.Shape{2, 3, 4}, b)
	require.NoError(t, err)

	got := a.Index(tensor.At(1), tensor.Ell())
	assert.Equal(t, tensor.Shape{3, 4}, got.Shape())
	assert.InDelta(t, 12, got.At(0, 0), 1e-6)
	assert.InDelta(t, 23, got.At(2, 3), 1e-6)
}

func TestUnbindVector(t *testing.T) {
	b := cpu.New()
	a, err := tensor.FromSlice([]float32{7, 8, 9}, tensor.Shape{3}, b)
	require.NoError(t, err)

	parts := a.Unbind(0)
	require.Len(t, parts, 3)
	for i, want := range []float64{7, 8, 9} {
		assert.Equal(t, tensor.Shape{1}, parts[i].Shape())
		assert.InDelta(t, want, parts[i].Item(), 1e-6)
	}
}

func TestStackNegativeDim(t *testing.T) {
	b := cpu.New()
	x, err := tensor.FromSlice([]float32{1, 2}, tensor.Shape{2}, b)
	require.NoError(t, err)
	y, err := tensor.FromSlice([]float32{3, 4}, tensor.Shape{2}, b)
	require.NoError(t, err)

	s := tensor.Stack([]*tensor.Tensor{x, y}, -1)
	assert.Equal(t, tensor.Shape{2, 2}, s.Shape())
	assert.InDelta(t, 3, s.At(0, 1), 1e-6)
}

func TestCatMismatchPanics(t *testing.T) {
	b := cpu.New()
	x, err := tensor.FromSlice([]float32{1, 2}, tensor.Shape{2}, b)
	require.NoError(t, err)
	y, err := tensor.FromSlice([]int32{3, 4}, tensor.Shape{2}, b)
	require.NoError(t, err)

	assert.Panics(t, func() { tensor.Cat([]*tensor.Tensor{x, y}, 0) })
}

func TestBroadcastMismatchPanics(t *testing.T) {
	b := cpu.New()
	x, err := tensor.FromSlice([]float32{1, 2}, tensor.Shape{2}, b)
	require.NoError(t, err)
	y, err := tensor.FromSlice([]float32{1, 2, 3}, tensor.Shape{3}, b)
	require.NoError(t, err)

	assert.Panics(t, func() { x.Add(y) })
}
