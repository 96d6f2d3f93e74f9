package wsi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metatensor-ml/metatensor/backend/cpu"
	"github.com/metatensor-ml/metatensor/meta"
	"github.com/metatensor-ml/metatensor/tensor"
)

// pyramid builds a one-channel two-level image: level 0 is 4x4 with
// values row*4+col, level 1 is its 2x2 downsample.
func pyramid(t *testing.T) *MemoryReader {
	t.Helper()
	b := cpu.New()

	l0 := make([]float32, 16)
	for i := range l0 {
		l0[i] = float32(i)
	}
	level0, err := tensor.FromSlice(l0, tensor.Shape{1, 4, 4}, b)
	require.NoError(t, err)

	level1, err := tensor.FromSlice([]float32{0, 1, 2, 3}, tensor.Shape{1, 2, 2}, b)
	require.NoError(t, err)

	r, err := NewMemoryReader("slide.tiff", []*tensor.Tensor{level0, level1}, []float64{1, 2})
	require.NoError(t, err)
	return r
}

func TestNewMemoryReaderValidation(t *testing.T) {
	b := cpu.New()
	_, err := NewMemoryReader("p", nil, nil)
	assert.Error(t, err)

	lv := tensor.Zeros(tensor.Shape{1, 2, 2}, tensor.Float32, b)
	_, err = NewMemoryReader("p", []*tensor.Tensor{lv}, []float64{1, 2})
	assert.Error(t, err)

	flat := tensor.Zeros(tensor.Shape{4}, tensor.Float32, b)
	_, err = NewMemoryReader("p", []*tensor.Tensor{flat}, []float64{1})
	assert.Error(t, err)
}

func TestDownsample(t *testing.T) {
	r := pyramid(t)
	defer r.Close()

	assert.Equal(t, 2, r.LevelCount())

	ds, err := r.Downsample(1)
	require.NoError(t, err)
	assert.InDelta(t, 2, ds, 1e-12)

	_, err = r.Downsample(2)
	assert.Error(t, err)
	_, err = r.Downsample(-1)
	assert.Error(t, err)
}

func TestGetDataFullResolution(t *testing.T) {
	r := pyramid(t)
	defer r.Close()

	patch, err := r.GetData(0, [2]int{1, 2}, [2]int{2, 2})
	require.NoError(t, err)

	assert.Equal(t, tensor.Shape{1, 2, 2}, patch.Shape())
	want, _ := tensor.FromSlice([]float32{6, 7, 10, 11}, tensor.Shape{1, 2, 2}, cpu.New())
	assert.True(t, patch.AsTensor().AllClose(want, 1e-6))

	rec := patch.Meta()
	v, _ := rec.Get(KeyPath)
	assert.Equal(t, "slide.tiff", v)
	v, _ = rec.Get(KeyLevel)
	assert.Equal(t, 0, v)
	v, _ = rec.Get(KeyDownsample)
	assert.InDelta(t, 1, v.(float64), 1e-12)
	v, _ = rec.Get(KeyLocation)
	assert.Equal(t, []any{1, 2}, v)
	v, _ = rec.Get(KeySpatialShape)
	assert.Equal(t, []any{2, 2}, v)

	assert.True(t, patch.Affine().Equal(meta.DefaultAffine()))
}

func TestGetDataDownsampledLevel(t *testing.T) {
	r := pyramid(t)
	defer r.Close()

	// Level-0 location (2, 2) lands at (1, 1) on the half-resolution level.
	patch, err := r.GetData(1, [2]int{2, 2}, [2]int{1, 1})
	require.NoError(t, err)

	assert.Equal(t, tensor.Shape{1, 1, 1}, patch.Shape())
	assert.InDelta(t, 3, patch.AsTensor().At(0, 0, 0), 1e-6)

	// The affine scales the identity by the downsample factor.
	assert.True(t, patch.Affine().Equal(meta.DefaultAffine().MulScalar(2)))
}

func TestGetDataOutOfBounds(t *testing.T) {
	r := pyramid(t)
	defer r.Close()

	_, err := r.GetData(0, [2]int{3, 3}, [2]int{2, 2})
	assert.Error(t, err)

	_, err = r.GetData(5, [2]int{0, 0}, [2]int{1, 1})
	assert.Error(t, err)
}
