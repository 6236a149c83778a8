package interp

import (
	"math"

	"github.com/gogpu/xir/ir"
)

// scalarType returns the scalar of a scalar, vector or matrix type.
func scalarType(t *ir.Type) (ir.ScalarType, bool) {
	switch inner := t.Inner.(type) {
	case ir.ScalarType:
		return inner, true
	case ir.VectorType:
		return inner.Scalar, true
	case ir.MatrixType:
		return inner.Scalar, true
	}
	return ir.ScalarType{}, false
}

// normalize wraps v to the width of s.
func normalize(s ir.ScalarType, v Value) Value {
	switch v := v.(type) {
	case int64:
		switch s.Width {
		case 1:
			return int64(int8(v))
		case 2:
			return int64(int16(v))
		case 4:
			return int64(int32(v))
		}
	case uint64:
		switch s.Width {
		case 1:
			return uint64(uint8(v))
		case 2:
			return uint64(uint16(v))
		case 4:
			return uint64(uint32(v))
		}
	case float64:
		if s.Width == 4 {
			return float64(float32(v))
		}
	case []Value:
		out := make([]Value, len(v))
		for i, e := range v {
			out[i] = normalize(s, e)
		}
		return out
	}
	return v
}

// toInt converts an index or selector value to an int.
func toInt(v Value) int64 {
	switch v := v.(type) {
	case int64:
		return v
	case uint64:
		return int64(v)
	case bool:
		if v {
			return 1
		}
		return 0
	case float64:
		return int64(v)
	}
	fail("value %v is not an integer", v)
	return 0
}

// lift1 applies f to v, element-wise for aggregates.
func lift1(v Value, f func(Value) Value) Value {
	if elems, ok := v.([]Value); ok {
		out := make([]Value, len(elems))
		for i, e := range elems {
			out[i] = lift1(e, f)
		}
		return out
	}
	return f(v)
}

// lift2 applies f to a and b, element-wise for aggregates. A scalar operand
// is broadcast against an aggregate one.
func lift2(a, b Value, f func(Value, Value) Value) Value {
	ea, aggA := a.([]Value)
	eb, aggB := b.([]Value)
	switch {
	case aggA && aggB:
		out := make([]Value, len(ea))
		for i := range ea {
			out[i] = lift2(ea[i], eb[i], f)
		}
		return out
	case aggA:
		out := make([]Value, len(ea))
		for i := range ea {
			out[i] = lift2(ea[i], b, f)
		}
		return out
	case aggB:
		out := make([]Value, len(eb))
		for i := range eb {
			out[i] = lift2(a, eb[i], f)
		}
		return out
	}
	return f(a, b)
}

func unaryScalar(op ir.ArithmeticOp, v Value) Value {
	switch v := v.(type) {
	case bool:
		switch op {
		case ir.OpUnaryPlus:
			return v
		case ir.OpUnaryLogicNot, ir.OpUnaryBitNot:
			return !v
		}
	case int64:
		switch op {
		case ir.OpUnaryPlus:
			return v
		case ir.OpUnaryMinus:
			return -v
		case ir.OpUnaryBitNot:
			return ^v
		case ir.OpAbs:
			if v < 0 {
				return -v
			}
			return v
		}
	case uint64:
		switch op {
		case ir.OpUnaryPlus, ir.OpAbs:
			return v
		case ir.OpUnaryMinus:
			return -v
		case ir.OpUnaryBitNot:
			return ^v
		}
	case float64:
		switch op {
		case ir.OpUnaryPlus:
			return v
		case ir.OpUnaryMinus:
			return -v
		case ir.OpAbs:
			return math.Abs(v)
		case ir.OpSqrt:
			return math.Sqrt(v)
		case ir.OpFloor:
			return math.Floor(v)
		}
	}
	fail("unsupported unary %s on %T", op, v)
	return nil
}

func compare(op ir.ArithmeticOp, c int) (bool, bool) {
	switch op {
	case ir.OpLess:
		return c < 0, true
	case ir.OpGreater:
		return c > 0, true
	case ir.OpLessEqual:
		return c <= 0, true
	case ir.OpGreaterEqual:
		return c >= 0, true
	case ir.OpEqual:
		return c == 0, true
	case ir.OpNotEqual:
		return c != 0, true
	}
	return false, false
}

func cmp3[T int64 | uint64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func binaryScalar(op ir.ArithmeticOp, a, b Value) Value {
	switch a := a.(type) {
	case bool:
		y := b.(bool)
		switch op {
		case ir.OpLogicAnd, ir.OpBitAnd:
			return a && y
		case ir.OpLogicOr, ir.OpBitOr:
			return a || y
		case ir.OpBitXor, ir.OpNotEqual:
			return a != y
		case ir.OpEqual:
			return a == y
		}
	case int64:
		y := b.(int64)
		if r, ok := compare(op, cmp3(a, y)); ok {
			return r
		}
		switch op {
		case ir.OpAdd:
			return a + y
		case ir.OpSub:
			return a - y
		case ir.OpMul:
			return a * y
		case ir.OpDiv:
			if y == 0 {
				return int64(0)
			}
			return a / y
		case ir.OpMod:
			if y == 0 {
				return int64(0)
			}
			return a % y
		case ir.OpBitAnd:
			return a & y
		case ir.OpBitOr:
			return a | y
		case ir.OpBitXor:
			return a ^ y
		case ir.OpShiftLeft:
			return a << (uint64(y) & 63)
		case ir.OpShiftRight:
			return a >> (uint64(y) & 63)
		case ir.OpMin:
			return min(a, y)
		case ir.OpMax:
			return max(a, y)
		}
	case uint64:
		y := b.(uint64)
		if r, ok := compare(op, cmp3(a, y)); ok {
			return r
		}
		switch op {
		case ir.OpAdd:
			return a + y
		case ir.OpSub:
			return a - y
		case ir.OpMul:
			return a * y
		case ir.OpDiv:
			if y == 0 {
				return uint64(0)
			}
			return a / y
		case ir.OpMod:
			if y == 0 {
				return uint64(0)
			}
			return a % y
		case ir.OpBitAnd:
			return a & y
		case ir.OpBitOr:
			return a | y
		case ir.OpBitXor:
			return a ^ y
		case ir.OpShiftLeft:
			return a << (y & 63)
		case ir.OpShiftRight:
			return a >> (y & 63)
		case ir.OpMin:
			return min(a, y)
		case ir.OpMax:
			return max(a, y)
		}
	case float64:
		y := b.(float64)
		if r, ok := compare(op, cmp3(a, y)); ok {
			return r
		}
		switch op {
		case ir.OpAdd:
			return a + y
		case ir.OpSub:
			return a - y
		case ir.OpMul:
			return a * y
		case ir.OpDiv:
			return a / y
		case ir.OpMod:
			return math.Mod(a, y)
		case ir.OpMin:
			return math.Min(a, y)
		case ir.OpMax:
			return math.Max(a, y)
		}
	}
	fail("unsupported binary %s on %T", op, a)
	return nil
}

// arithmetic evaluates an arithmetic instruction of result type t.
func arithmetic(t *ir.Type, op ir.ArithmeticOp, ops []Value) Value {
	var r Value
	switch op {
	case ir.OpUnaryPlus, ir.OpUnaryMinus, ir.OpUnaryLogicNot, ir.OpUnaryBitNot,
		ir.OpAbs, ir.OpSqrt, ir.OpFloor:
		r = lift1(ops[0], func(v Value) Value { return unaryScalar(op, v) })
	case ir.OpSelect:
		r = selectValue(ops[0], ops[1], ops[2])
	case ir.OpExtract:
		v := ops[0]
		for _, idx := range ops[1:] {
			v = v.([]Value)[toInt(idx)]
		}
		return v
	case ir.OpInsert:
		path := make([]int, len(ops)-2)
		for i, idx := range ops[2:] {
			path[i] = int(toInt(idx))
		}
		return replaceAt(ops[0], path, ops[1])
	case ir.OpAggregate:
		return append([]Value(nil), ops...)
	default:
		r = lift2(ops[0], ops[1], func(a, b Value) Value { return binaryScalar(op, a, b) })
	}
	if s, ok := scalarType(t); ok {
		return normalize(s, r)
	}
	return r
}

func selectValue(c, a, b Value) Value {
	if cond, ok := c.(bool); ok {
		if cond {
			return a
		}
		return b
	}
	cs, as, bs := c.([]Value), a.([]Value), b.([]Value)
	out := make([]Value, len(cs))
	for i := range cs {
		out[i] = selectValue(cs[i], as[i], bs[i])
	}
	return out
}

// cast converts v of type from to type t.
func cast(t *ir.Type, op ir.CastOp, from *ir.Type, v Value) Value {
	s, ok := scalarType(t)
	if !ok {
		fail("cast to non-numeric type %s", t)
	}
	if op == ir.CastBitwise {
		src, _ := scalarType(from)
		return lift1(v, func(e Value) Value { return fromBits(s, toBits(src, e)) })
	}
	return lift1(v, func(e Value) Value { return convert(s, e) })
}

func convert(s ir.ScalarType, v Value) Value {
	switch s.Kind {
	case ir.ScalarBool:
		switch v := v.(type) {
		case bool:
			return v
		case float64:
			return v != 0
		}
		return toInt(v) != 0
	case ir.ScalarFloat:
		switch v := v.(type) {
		case float64:
			return normalize(s, v)
		case uint64:
			return normalize(s, float64(v))
		}
		return normalize(s, float64(toInt(v)))
	case ir.ScalarSint:
		return normalize(s, toInt(v))
	default:
		if f, ok := v.(float64); ok {
			return normalize(s, uint64(f))
		}
		return normalize(s, uint64(toInt(v)))
	}
}

func toBits(s ir.ScalarType, v Value) uint64 {
	switch v := v.(type) {
	case float64:
		if s.Width == 4 {
			return uint64(math.Float32bits(float32(v)))
		}
		return math.Float64bits(v)
	case bool:
		if v {
			return 1
		}
		return 0
	}
	return uint64(toInt(v))
}

// fromBits reinterprets the low bits of bits as a scalar of s.
func fromBits(s ir.ScalarType, bits uint64) Value {
	switch s.Kind {
	case ir.ScalarBool:
		return bits != 0
	case ir.ScalarSint:
		return normalize(s, int64(bits))
	case ir.ScalarUint:
		return normalize(s, bits)
	}
	if s.Width == 4 {
		return float64(math.Float32frombits(uint32(bits)))
	}
	return math.Float64frombits(bits)
}
