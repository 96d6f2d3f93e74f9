// Package wsi defines the whole-slide-image reader boundary. Readers
// extract patches from a multi-resolution image pyramid and hand them
// back as metadata-carrying tensors whose affine encodes the level
// downsample. File-format decoding is left to third-party adapters
// implementing Reader; MemoryReader serves tests and in-process
// pyramids.
package wsi

import (
	"fmt"

	"github.com/metatensor-ml/metatensor/meta"
	"github.com/metatensor-ml/metatensor/tensor"
)

// Standard metadata keys set on extracted patches.
const (
	KeyPath         = "path"
	KeyLevel        = "level"
	KeyDownsample   = "downsample"
	KeyLocation     = "location"
	KeySpatialShape = "spatial_shape"
)

// Reader extracts patches from a whole-slide image.
type Reader interface {
	// LevelCount returns the number of resolution levels.
	LevelCount() int

	// Downsample returns the downsample factor of a level relative to
	// level 0.
	Downsample(level int) (float64, error)

	// GetData extracts a (height, width) patch with its top-left corner
	// at location (top, left, in the level-0 reference frame) from the
	// given level. The result carries path, level, downsample, location
	// and spatial-shape metadata, and an affine scaling the identity by
	// the downsample factor.
	GetData(level int, location [2]int, size [2]int) (*meta.MetaTensor, error)

	// Close releases any resources held by the reader.
	Close() error
}

// MemoryReader serves an in-memory pyramid: one (C, H, W) tensor per
// level, ordered from full resolution down.
type MemoryReader struct {
	path        string
	levels      []*tensor.Tensor
	downsamples []float64
}

// NewMemoryReader builds a MemoryReader. Levels must be (C, H, W)
// tensors; downsamples must match the level count.
func NewMemoryReader(path string, levels []*tensor.Tensor, downsamples []float64) (*MemoryReader, error) {
	if len(levels) == 0 {
		return nil, fmt.Errorf("wsi: at least one level required")
	}
	if len(levels) != len(downsamples) {
		return nil, fmt.Errorf("wsi: %d levels but %d downsample factors", len(levels), len(downsamples))
	}
	for i, lv := range levels {
		if len(lv.Shape()) != 3 {
			return nil, fmt.Errorf("wsi: level %d must be (C, H, W), got %v", i, lv.Shape())
		}
	}
	return &MemoryReader{path: path, levels: levels, downsamples: downsamples}, nil
}

// LevelCount returns the number of resolution levels.
func (r *MemoryReader) LevelCount() int {
	return len(r.levels)
}

// Downsample returns the downsample factor of a level.
func (r *MemoryReader) Downsample(level int) (float64, error) {
	if level < 0 || level >= len(r.levels) {
		return 0, fmt.Errorf("wsi: the maximum level of this image is %d while level=%d is requested", len(r.levels)-1, level)
	}
	return r.downsamples[level], nil
}

// GetData extracts a patch from the pyramid as a MetaTensor.
func (r *MemoryReader) GetData(level int, location [2]int, size [2]int) (*meta.MetaTensor, error) {
	ds, err := r.Downsample(level)
	if err != nil {
		return nil, err
	}

	img := r.levels[level]
	shape := img.Shape() // (C, H, W)
	top := int(float64(location[0]) / ds)
	left := int(float64(location[1]) / ds)
	if top < 0 || left < 0 || top+size[0] > shape[1] || left+size[1] > shape[2] {
		return nil, fmt.Errorf("wsi: patch (%d, %d)+(%d, %d) out of bounds for level %d size (%d, %d)",
			top, left, size[0], size[1], level, shape[1], shape[2])
	}

	patch := img.Index(tensor.All(), tensor.Span(top, top+size[0]), tensor.Span(left, left+size[1]))

	rec := meta.NewRecord()
	rec.Set(KeyPath, r.path)
	rec.Set(KeyLevel, level)
	rec.Set(KeyDownsample, ds)
	rec.Set(KeyLocation, []any{location[0], location[1]})
	rec.Set(KeySpatialShape, []any{size[0], size[1]})

	affine := meta.DefaultAffine().MulScalar(ds)
	return meta.New(patch, meta.WithMeta(rec), meta.WithAffine(affine)), nil
}

// Close releases the pyramid.
func (r *MemoryReader) Close() error {
	r.levels = nil
	return nil
}
