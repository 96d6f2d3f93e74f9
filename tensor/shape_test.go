package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShapeNumElements(t *testing.T) {
	assert.Equal(t, 24, Shape{2, 3, 4}.NumElements())
	assert.Equal(t, 5, Shape{5}.NumElements())
	assert.Equal(t, 1, Shape{}.NumElements())
}

func TestShapeValidate(t *testing.T) {
	assert.NoError(t, Shape{2, 3}.Validate())
	assert.Error(t, Shape{2, 0}.Validate())
	assert.Error(t, Shape{-1}.Validate())
}

func TestShapeComputeStrides(t *testing.T) {
	assert.Equal(t, []int{12, 4, 1}, Shape{2, 3, 4}.ComputeStrides())
	assert.Equal(t, []int{1}, Shape{7}.ComputeStrides())
	assert.Empty(t, Shape{}.ComputeStrides())
}

func TestShapeCloneIsIndependent(t *testing.T) {
	s := Shape{2, 3}
	c := s.Clone()
	c[0] = 9
	assert.Equal(t, 2, s[0])
}

func TestBroadcastShapes(t *testing.T) {
	cases := []struct {
		a, b, want Shape
		expands    bool
	}{
		{Shape{2, 3}, Shape{2, 3}, Shape{2, 3}, false},
		{Shape{2, 3}, Shape{3}, Shape{2, 3}, true},
		{Shape{2, 1}, Shape{1, 3}, Shape{2, 3}, true},
		{Shape{4}, Shape{3, 1}, Shape{3, 4}, true},
		{Shape{1}, Shape{5}, Shape{5}, true},
	}
	for _, tc := range cases {
		got, expands, err := BroadcastShapes(tc.a, tc.b)
		require.NoError(t, err, "%v vs %v", tc.a, tc.b)
		assert.True(t, got.Equal(tc.want), "%v vs %v -> %v, want %v", tc.a, tc.b, got, tc.want)
		assert.Equal(t, tc.expands, expands, "%v vs %v", tc.a, tc.b)
	}

	_, _, err := BroadcastShapes(Shape{2, 3}, Shape{4})
	assert.Error(t, err)
}
