package ir

import (
	"strconv"
	"strings"
)

// TypeHandle is the index of a type inside its TypeRegistry.
type TypeHandle uint32

// Type represents an interned XIR type.
//
// Types are created by a TypeRegistry and compared by pointer: two structurally
// identical types obtained from the same registry are the same *Type.
type Type struct {
	Name  string
	Inner TypeInner

	handle TypeHandle
	elem   *Type // element type for vectors, matrices and arrays
}

// TypeInner represents the inner type kind.
type TypeInner interface {
	typeInner()
}

// ScalarType represents scalar types.
type ScalarType struct {
	Kind  ScalarKind
	Width uint8 // in bytes
}

func (ScalarType) typeInner() {}

// ScalarKind represents scalar type kinds.
type ScalarKind uint8

const (
	ScalarSint  ScalarKind = iota // Signed integer
	ScalarUint                    // Unsigned integer
	ScalarFloat                   // Floating point
	ScalarBool                    // Boolean
)

// VectorType represents vector types.
type VectorType struct {
	Size   VectorSize
	Scalar ScalarType
}

func (VectorType) typeInner() {}

// VectorSize represents vector sizes.
type VectorSize uint8

const (
	Vec2 VectorSize = 2
	Vec3 VectorSize = 3
	Vec4 VectorSize = 4
)

// MatrixType represents square float matrices stored as column vectors.
type MatrixType struct {
	Columns VectorSize
	Scalar  ScalarType
}

func (MatrixType) typeInner() {}

// ArrayType represents fixed-size array types.
type ArrayType struct {
	Element *Type
	Count   uint32
}

func (ArrayType) typeInner() {}

// StructType represents struct types. Members are addressed by index.
type StructType struct {
	Members []*Type
}

func (StructType) typeInner() {}

// ResourceClass represents the class of a bindless resource.
type ResourceClass uint8

const (
	ResourceBuffer ResourceClass = iota
	ResourceTexture2D
	ResourceTexture3D
	ResourceAccel
	ResourceBindlessArray
)

// ResourceType represents buffers, textures, acceleration structures and
// bindless arrays. Resources are only ever passed as resource arguments.
type ResourceType struct {
	Class   ResourceClass
	Element *Type // nil for untyped resources
}

func (ResourceType) typeInner() {}

// RayQueryType is the opaque type of ray query objects.
type RayQueryType struct {
	AnyHit bool
}

func (RayQueryType) typeInner() {}

// Handle returns the registry handle of the type.
func (t *Type) Handle() TypeHandle {
	return t.handle
}

// Scalar returns the scalar description of a scalar type.
func (t *Type) Scalar() (ScalarType, bool) {
	if t == nil {
		return ScalarType{}, false
	}
	s, ok := t.Inner.(ScalarType)
	return s, ok
}

// IsScalar reports whether t is a scalar type.
func (t *Type) IsScalar() bool {
	_, ok := t.Scalar()
	return ok
}

// IsBool reports whether t is the boolean scalar type.
func (t *Type) IsBool() bool {
	s, ok := t.Scalar()
	return ok && s.Kind == ScalarBool
}

// IsInteger reports whether t is a signed or unsigned integer scalar.
func (t *Type) IsInteger() bool {
	s, ok := t.Scalar()
	return ok && (s.Kind == ScalarSint || s.Kind == ScalarUint)
}

// IsFloat reports whether t is a floating point scalar.
func (t *Type) IsFloat() bool {
	s, ok := t.Scalar()
	return ok && s.Kind == ScalarFloat
}

// IsAggregate reports whether values of t are composed of elements.
func (t *Type) IsAggregate() bool {
	if t == nil {
		return false
	}
	switch t.Inner.(type) {
	case VectorType, MatrixType, ArrayType, StructType:
		return true
	}
	return false
}

// IsResource reports whether t is a resource type.
func (t *Type) IsResource() bool {
	if t == nil {
		return false
	}
	_, ok := t.Inner.(ResourceType)
	return ok
}

// IsRayQuery reports whether t is a ray query object type.
func (t *Type) IsRayQuery() bool {
	if t == nil {
		return false
	}
	_, ok := t.Inner.(RayQueryType)
	return ok
}

// ElementCount returns the number of direct elements of an aggregate type,
// or zero for non-aggregates.
func (t *Type) ElementCount() int {
	if t == nil {
		return 0
	}
	switch inner := t.Inner.(type) {
	case VectorType:
		return int(inner.Size)
	case MatrixType:
		return int(inner.Columns)
	case ArrayType:
		return int(inner.Count)
	case StructType:
		return len(inner.Members)
	}
	return 0
}

// Element returns the type of the i-th direct element of an aggregate type.
// It returns nil when t is not an aggregate or i is out of range.
func (t *Type) Element(i int) *Type {
	if i < 0 || i >= t.ElementCount() {
		return nil
	}
	if st, ok := t.Inner.(StructType); ok {
		return st.Members[i]
	}
	return t.elem
}

// Size returns the packed size of the type in bytes. Constants of the type
// carry exactly this many bytes.
func (t *Type) Size() int {
	if t == nil {
		return 0
	}
	switch inner := t.Inner.(type) {
	case ScalarType:
		return int(inner.Width)
	case VectorType, MatrixType, ArrayType:
		return t.ElementCount() * t.elem.Size()
	case StructType:
		size := 0
		for _, m := range inner.Members {
			size += m.Size()
		}
		return size
	}
	return 0
}

// String returns the textual form of the type.
func (t *Type) String() string {
	if t == nil {
		return "void"
	}
	switch inner := t.Inner.(type) {
	case ScalarType:
		return scalarName(inner)
	case VectorType:
		return "vec" + strconv.Itoa(int(inner.Size)) + "<" + scalarName(inner.Scalar) + ">"
	case MatrixType:
		n := strconv.Itoa(int(inner.Columns))
		return "mat" + n + "x" + n + "<" + scalarName(inner.Scalar) + ">"
	case ArrayType:
		return "array<" + inner.Element.String() + ", " + strconv.FormatUint(uint64(inner.Count), 10) + ">"
	case StructType:
		if t.Name != "" {
			return t.Name
		}
		var sb strings.Builder
		sb.WriteString("struct{")
		for i, m := range inner.Members {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(m.String())
		}
		sb.WriteString("}")
		return sb.String()
	case ResourceType:
		name := [...]string{"buffer", "texture2d", "texture3d", "accel", "bindless_array"}[inner.Class]
		if inner.Element != nil {
			return name + "<" + inner.Element.String() + ">"
		}
		return name
	case RayQueryType:
		if inner.AnyHit {
			return "ray_query_any"
		}
		return "ray_query_all"
	}
	return "unknown"
}

func scalarName(s ScalarType) string {
	bits := strconv.Itoa(int(s.Width) * 8)
	switch s.Kind {
	case ScalarSint:
		return "i" + bits
	case ScalarUint:
		return "u" + bits
	case ScalarFloat:
		return "f" + bits
	default:
		return "bool"
	}
}
