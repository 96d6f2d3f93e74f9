// Package tensor provides the dense array engine that metadata-carrying
// tensors delegate their numeric work to.
//
// # Overview
//
// The package defines:
//   - Shape with NumPy-style broadcasting rules
//   - RawTensor, the low-level storage (shape, strides, dtype, device)
//   - Backend, the interface compute implementations satisfy
//   - Tensor, the user-facing handle combining a RawTensor and a Backend
//   - Selector, an explicit subscript value for Index
//
// # Basic Usage
//
//	import (
//	    "github.com/metatensor-ml/metatensor/backend/cpu"
//	    "github.com/metatensor-ml/metatensor/tensor"
//	)
//
//	backend := cpu.New()
//	x := tensor.Zeros(tensor.Shape{2, 3}, tensor.Float32, backend)
//	y := tensor.Ones(tensor.Shape{2, 3}, tensor.Float32, backend)
//	z := x.Add(y)
//
// # Indexing
//
// Go has no subscript syntax, so indexing is spelled with Selector values,
// applied leading-dimension first:
//
//	batch.Index(tensor.At(0))               // batch[0]
//	batch.Index(tensor.Span(0, 2))          // batch[0:2]
//	batch.Index(tensor.All(), tensor.At(1)) // batch[:, 1]
//
// # Devices
//
// Storage carries a Device tag. ToDevice produces a new tensor tagged for
// the target device; on a CPU-only build the bytes stay host-side but the
// tag is authoritative and propagates through every operation.
package tensor
