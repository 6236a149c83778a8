package ir

import (
	"encoding/binary"
	"math"
)

// Constant is an immutable typed byte payload interned by its module.
//
// Scalars are stored little-endian in their declared width. Aggregates store
// their elements back to back without padding.
type Constant struct {
	valueBase
	data []byte
	hash uint64
}

// Kind implements Value.
func (*Constant) Kind() ValueKind { return ValueConstant }

// Data returns the constant payload. The slice must not be modified.
func (c *Constant) Data() []byte {
	return c.data
}

// Hash returns the content hash combining the type and the payload.
func (c *Constant) Hash() uint64 {
	return c.hash
}

// Bool returns the value of a boolean constant.
func (c *Constant) Bool() bool {
	Assertf(c.typ.IsBool(), "constant of type %s is not a bool", c.typ)
	return c.data[0] != 0
}

// Int returns the value of an integer or boolean scalar constant, sign or
// zero extended to 64 bits according to its kind.
func (c *Constant) Int() int64 {
	s, ok := c.typ.Scalar()
	Assertf(ok && s.Kind != ScalarFloat, "constant of type %s is not an integer", c.typ)
	return DecodeInt(s, c.data)
}

// Float returns the value of a float scalar constant.
func (c *Constant) Float() float64 {
	s, ok := c.typ.Scalar()
	Assertf(ok && s.Kind == ScalarFloat, "constant of type %s is not a float", c.typ)
	if s.Width == 8 {
		return math.Float64frombits(binary.LittleEndian.Uint64(c.data))
	}
	return float64(math.Float32frombits(binary.LittleEndian.Uint32(c.data)))
}

// DecodeInt reads a little-endian integer scalar of the given description.
func DecodeInt(s ScalarType, data []byte) int64 {
	switch s.Width {
	case 1:
		if s.Kind == ScalarSint {
			return int64(int8(data[0]))
		}
		return int64(data[0])
	case 2:
		v := binary.LittleEndian.Uint16(data)
		if s.Kind == ScalarSint {
			return int64(int16(v))
		}
		return int64(v)
	case 4:
		v := binary.LittleEndian.Uint32(data)
		if s.Kind == ScalarSint {
			return int64(int32(v))
		}
		return int64(v)
	default:
		return int64(binary.LittleEndian.Uint64(data))
	}
}

// EncodeScalar writes the bits of v in the layout of s.
func EncodeScalar(s ScalarType, bits uint64) []byte {
	data := make([]byte, s.Width)
	switch s.Width {
	case 1:
		data[0] = byte(bits)
	case 2:
		binary.LittleEndian.PutUint16(data, uint16(bits))
	case 4:
		binary.LittleEndian.PutUint32(data, uint32(bits))
	default:
		binary.LittleEndian.PutUint64(data, bits)
	}
	return data
}

// ConstantBool returns the interned boolean constant.
func (m *Module) ConstantBool(v bool) *Constant {
	b := byte(0)
	if v {
		b = 1
	}
	return m.Constant(m.types.Bool(), []byte{b})
}

// ConstantInt32 returns the interned i32 constant.
func (m *Module) ConstantInt32(v int32) *Constant {
	return m.Constant(m.types.Int32(), EncodeScalar(ScalarType{Kind: ScalarSint, Width: 4}, uint64(uint32(v))))
}

// ConstantUint32 returns the interned u32 constant.
func (m *Module) ConstantUint32(v uint32) *Constant {
	return m.Constant(m.types.Uint32(), EncodeScalar(ScalarType{Kind: ScalarUint, Width: 4}, uint64(v)))
}

// ConstantFloat32 returns the interned f32 constant.
func (m *Module) ConstantFloat32(v float32) *Constant {
	return m.Constant(m.types.Float32(), EncodeScalar(ScalarType{Kind: ScalarFloat, Width: 4}, uint64(math.Float32bits(v))))
}

// ConstantZero returns the all-zero constant of type t.
func (m *Module) ConstantZero(t *Type) *Constant {
	return m.Constant(t, make([]byte, t.Size()))
}

// ConstantOne returns the constant one of a scalar type.
func (m *Module) ConstantOne(t *Type) *Constant {
	s, ok := t.Scalar()
	Assertf(ok, "constant one requires a scalar type, got %s", t)
	if s.Kind == ScalarFloat {
		if s.Width == 8 {
			return m.Constant(t, EncodeScalar(s, math.Float64bits(1)))
		}
		return m.Constant(t, EncodeScalar(s, uint64(math.Float32bits(1))))
	}
	return m.Constant(t, EncodeScalar(s, 1))
}

// Undefined is a value of some type whose content is unspecified.
// Undefined values are interned per type.
type Undefined struct {
	valueBase
}

// Kind implements Value.
func (*Undefined) Kind() ValueKind { return ValueUndefined }

// SpecialRegisterKind enumerates builtin thread and dispatch registers.
type SpecialRegisterKind uint8

const (
	RegisterThreadID SpecialRegisterKind = iota
	RegisterBlockID
	RegisterWarpLaneID
	RegisterDispatchID
	RegisterKernelID
	RegisterObjectID
	RegisterBlockSize
	RegisterWarpSize
	RegisterDispatchSize
)

var specialRegisterNames = [...]string{
	RegisterThreadID:     "thread_id",
	RegisterBlockID:      "block_id",
	RegisterWarpLaneID:   "warp_lane_id",
	RegisterDispatchID:   "dispatch_id",
	RegisterKernelID:     "kernel_id",
	RegisterObjectID:     "object_id",
	RegisterBlockSize:    "block_size",
	RegisterWarpSize:     "warp_size",
	RegisterDispatchSize: "dispatch_size",
}

// String returns the register name.
func (k SpecialRegisterKind) String() string {
	if int(k) < len(specialRegisterNames) {
		return specialRegisterNames[k]
	}
	return "unknown"
}

// SpecialRegister is a read-only builtin value such as the thread id.
type SpecialRegister struct {
	valueBase
	kind SpecialRegisterKind
}

// Kind implements Value.
func (*SpecialRegister) Kind() ValueKind { return ValueSpecialRegister }

// Register returns the register kind.
func (r *SpecialRegister) Register() SpecialRegisterKind {
	return r.kind
}
