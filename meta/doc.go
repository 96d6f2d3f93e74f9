// Package meta implements metadata-carrying tensors: a Record of named
// fields with a spatial affine, a MetaTensor composing a dense tensor
// with exactly one Record, and the Dispatch interception layer that keeps
// metadata alive across every numeric operation.
//
// # Propagation
//
// All numeric operations on MetaTensors are routed through Dispatch. For
// a binary operation c = a.Add(b), c inherits its metadata from the first
// metadata-carrying operand scanned left to right; fields are never
// merged key by key. Process-wide tracking flags (SetTrackMeta,
// SetTrackTransforms) switch propagation off entirely, in which case
// results come back as plain *tensor.Tensor values.
//
// # Batches
//
// A MetaTensor whose record was produced by Collate represents a stacked
// batch. Subscripting or unbinding the batch dimension narrows the
// collated metadata: batch.Index(tensor.At(1)) carries exactly the second
// item's record and is no longer a batch, while
// batch.Index(tensor.Span(0, 2)) re-collates the first two records and
// stays one. A leading tensor.All() or tensor.Ell() selector leaves batch
// metadata untouched.
package meta
