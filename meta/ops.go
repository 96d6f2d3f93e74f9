package meta

import (
	"fmt"

	"github.com/metatensor-ml/metatensor/tensor"
)

// The operation catalog. Each Op's Fn runs the numeric work on the array
// engine; metadata handling happens afterwards inside Dispatch. Results
// come back wrapped as MetaTensors with an empty record for Dispatch to
// populate.
var (
	opAdd = binaryOp("add", func(a, b *tensor.Tensor) *tensor.Tensor { return a.Add(b) })
	opSub = binaryOp("sub", func(a, b *tensor.Tensor) *tensor.Tensor { return a.Sub(b) })
	opMul = binaryOp("mul", func(a, b *tensor.Tensor) *tensor.Tensor { return a.Mul(b) })
	opDiv = binaryOp("div", func(a, b *tensor.Tensor) *tensor.Tensor { return a.Div(b) })

	opMatMul = binaryOp("matmul", func(a, b *tensor.Tensor) *tensor.Tensor { return a.MatMul(b) })

	opMulScalar = Op{
		Name: "mul_scalar",
		Kind: OpGeneric,
		Fn: func(args []any, kwargs map[string]any) (any, error) {
			s, ok := args[1].(float64)
			if !ok {
				return nil, fmt.Errorf("mul_scalar: scalar argument must be float64, got %T", args[1])
			}
			return finishOp(dataOf(args[0]).MulScalar(s), kwargs)
		},
	}

	opReshape = Op{
		Name: "reshape",
		Kind: OpGeneric,
		Fn: func(args []any, kwargs map[string]any) (any, error) {
			shape, ok := args[1].([]int)
			if !ok {
				return nil, fmt.Errorf("reshape: shape argument must be []int, got %T", args[1])
			}
			return finishOp(dataOf(args[0]).Reshape(shape...), kwargs)
		},
	}

	opTranspose = Op{
		Name: "transpose",
		Kind: OpGeneric,
		Fn: func(args []any, kwargs map[string]any) (any, error) {
			axes, ok := args[1].([]int)
			if !ok {
				return nil, fmt.Errorf("transpose: axes argument must be []int, got %T", args[1])
			}
			return finishOp(dataOf(args[0]).Transpose(axes...), kwargs)
		},
	}

	opGetItem = Op{
		Name: "getitem",
		Kind: OpGetItem,
		Fn: func(args []any, kwargs map[string]any) (any, error) {
			sels, ok := args[1].([]tensor.Selector)
			if !ok {
				return nil, fmt.Errorf("getitem: subscript argument must be []tensor.Selector, got %T", args[1])
			}
			return finishOp(dataOf(args[0]).Index(sels...), kwargs)
		},
	}

	opUnbind = Op{
		Name: "unbind",
		Kind: OpUnbind,
		Fn: func(args []any, kwargs map[string]any) (any, error) {
			parts := dataOf(args[0]).Unbind(unbindDim(args, kwargs))
			out := make([]any, len(parts))
			for i, p := range parts {
				out[i] = wrapResult(p)
			}
			return out, nil
		},
	}

	opTo = Op{
		Name: "to",
		Kind: OpGeneric,
		Fn: func(args []any, kwargs map[string]any) (any, error) {
			d, ok := args[1].(tensor.Device)
			if !ok {
				return nil, fmt.Errorf("to: device argument must be tensor.Device, got %T", args[1])
			}
			return finishOp(dataOf(args[0]).To(d), kwargs)
		},
	}
)

func binaryOp(name string, f func(a, b *tensor.Tensor) *tensor.Tensor) Op {
	return Op{
		Name: name,
		Kind: OpGeneric,
		Fn: func(args []any, kwargs map[string]any) (any, error) {
			if len(args) < 2 {
				return nil, fmt.Errorf("%s: two operands required, got %d", name, len(args))
			}
			return finishOp(f(dataOf(args[0]), dataOf(args[1])), kwargs)
		},
	}
}

// finishOp handles the write-destination kwarg: with KwargOut present the
// result bytes land in the destination's storage and the destination is
// returned untouched; otherwise the result is wrapped for Dispatch.
func finishOp(res *tensor.Tensor, kwargs map[string]any) (any, error) {
	out, ok := kwargs[KwargOut]
	if !ok {
		return wrapResult(res), nil
	}
	dst := dataOf(out)
	if !dst.Shape().Equal(res.Shape()) || dst.DType() != res.DType() {
		return nil, fmt.Errorf("out: destination %v/%s does not match result %v/%s",
			dst.Shape(), dst.DType(), res.Shape(), res.DType())
	}
	copy(dst.Raw().Data(), res.Raw().Data())
	return out, nil
}

// dataOf unwraps an operand to the plain tensor the engine computes on.
func dataOf(v any) *tensor.Tensor {
	switch tv := v.(type) {
	case *MetaTensor:
		return tv.data
	case *tensor.Tensor:
		return tv
	default:
		panic(fmt.Sprintf("operand is not a tensor: %T", v))
	}
}

// wrapResult attaches an empty record for Dispatch to populate.
func wrapResult(res *tensor.Tensor) *MetaTensor {
	return &MetaTensor{data: res, meta: NewRecord()}
}
