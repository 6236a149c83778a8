package ir

import (
	"fmt"
	"strconv"
)

// TypeRegistry ensures type deduplication within a module.
// Every structurally unique type is created exactly once, so types can be
// compared by pointer.
type TypeRegistry struct {
	types   []*Type
	typeMap map[string]*Type
	keyBuf  []byte // reusable buffer for building type keys
}

// NewTypeRegistry creates a new type registry for deduplication.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{
		types:   make([]*Type, 0, 16),
		typeMap: make(map[string]*Type, 16),
		keyBuf:  make([]byte, 0, 64),
	}
}

// GetOrCreate returns the existing type if it exists,
// or creates a new one if it's unique.
func (r *TypeRegistry) GetOrCreate(name string, inner TypeInner) *Type {
	key := r.normalizeType(inner)

	// Check if type already exists
	if t, exists := r.typeMap[key]; exists {
		return t
	}

	// Element types are registered first so handles stay dense.
	var elem *Type
	switch inner := inner.(type) {
	case VectorType:
		elem = r.GetOrCreate("", inner.Scalar)
	case MatrixType:
		elem = r.GetOrCreate("", VectorType{Size: inner.Columns, Scalar: inner.Scalar})
	case ArrayType:
		elem = inner.Element
	}

	// Create new type
	t := &Type{
		Name:   name,
		Inner:  inner,
		handle: TypeHandle(len(r.types)),
		elem:   elem,
	}
	r.types = append(r.types, t)
	r.typeMap[key] = t

	return t
}

// GetTypes returns all registered types.
func (r *TypeRegistry) GetTypes() []*Type {
	return r.types
}

// normalizeType creates a unique key for a type based on its structure.
// Two structurally identical types will produce the same key.
// Uses a reusable byte buffer to avoid fmt.Sprintf allocations for common types.
func (r *TypeRegistry) normalizeType(inner TypeInner) string {
	b := r.keyBuf[:0]

	switch t := inner.(type) {
	case ScalarType:
		b = append(b, "scalar:"...)
		b = strconv.AppendInt(b, int64(t.Kind), 10)
		b = append(b, ':')
		b = strconv.AppendUint(b, uint64(t.Width), 10)
		r.keyBuf = b
		return string(b)

	case VectorType:
		// Recursive call clobbers keyBuf, so build with string concat.
		scalarKey := r.normalizeType(t.Scalar)
		return "vec:" + strconv.FormatUint(uint64(t.Size), 10) + ":" + scalarKey

	case MatrixType:
		scalarKey := r.normalizeType(t.Scalar)
		return "mat:" + strconv.FormatUint(uint64(t.Columns), 10) + ":" + scalarKey

	case ArrayType:
		return "array:" + strconv.FormatUint(uint64(t.Element.handle), 10) + ":" + strconv.FormatUint(uint64(t.Count), 10)

	case StructType:
		b = append(b, "struct:"...)
		b = strconv.AppendInt(b, int64(len(t.Members)), 10)
		for _, m := range t.Members {
			b = append(b, ':')
			b = strconv.AppendUint(b, uint64(m.handle), 10)
		}
		r.keyBuf = b
		return string(b)

	case ResourceType:
		elem := "none"
		if t.Element != nil {
			elem = strconv.FormatUint(uint64(t.Element.handle), 10)
		}
		return "resource:" + strconv.FormatUint(uint64(t.Class), 10) + ":" + elem

	case RayQueryType:
		if t.AnyHit {
			return "rayquery:any"
		}
		return "rayquery:all"

	default:
		return fmt.Sprintf("unknown:%T", inner)
	}
}

// Lookup finds a type by its handle.
func (r *TypeRegistry) Lookup(handle TypeHandle) (*Type, bool) {
	if int(handle) >= len(r.types) {
		return nil, false
	}
	return r.types[handle], true
}

// Count returns the number of unique types registered.
func (r *TypeRegistry) Count() int {
	return len(r.types)
}

// Bool returns the boolean type.
func (r *TypeRegistry) Bool() *Type {
	return r.GetOrCreate("bool", ScalarType{Kind: ScalarBool, Width: 1})
}

// Int32 returns the 32-bit signed integer type.
func (r *TypeRegistry) Int32() *Type {
	return r.GetOrCreate("i32", ScalarType{Kind: ScalarSint, Width: 4})
}

// Uint32 returns the 32-bit unsigned integer type.
func (r *TypeRegistry) Uint32() *Type {
	return r.GetOrCreate("u32", ScalarType{Kind: ScalarUint, Width: 4})
}

// Int64 returns the 64-bit signed integer type.
func (r *TypeRegistry) Int64() *Type {
	return r.GetOrCreate("i64", ScalarType{Kind: ScalarSint, Width: 8})
}

// Uint64 returns the 64-bit unsigned integer type.
func (r *TypeRegistry) Uint64() *Type {
	return r.GetOrCreate("u64", ScalarType{Kind: ScalarUint, Width: 8})
}

// Float32 returns the 32-bit float type.
func (r *TypeRegistry) Float32() *Type {
	return r.GetOrCreate("f32", ScalarType{Kind: ScalarFloat, Width: 4})
}

// Vector returns the vector type with the given scalar and size.
func (r *TypeRegistry) Vector(scalar *Type, size VectorSize) *Type {
	s, ok := scalar.Scalar()
	Assertf(ok, "vector element must be a scalar, got %s", scalar)
	return r.GetOrCreate("", VectorType{Size: size, Scalar: s})
}

// Matrix returns the square float matrix type of the given dimension.
func (r *TypeRegistry) Matrix(dim VectorSize) *Type {
	return r.GetOrCreate("", MatrixType{Columns: dim, Scalar: ScalarType{Kind: ScalarFloat, Width: 4}})
}

// Array returns the array type with the given element type and count.
func (r *TypeRegistry) Array(elem *Type, count uint32) *Type {
	Assertf(elem != nil, "array element type must not be void")
	return r.GetOrCreate("", ArrayType{Element: elem, Count: count})
}

// Struct returns the struct type with the given members.
func (r *TypeRegistry) Struct(members ...*Type) *Type {
	for i, m := range members {
		Assertf(m != nil, "struct member %d must not be void", i)
	}
	return r.GetOrCreate("", StructType{Members: members})
}

// Resource returns the resource type of the given class.
func (r *TypeRegistry) Resource(class ResourceClass, elem *Type) *Type {
	return r.GetOrCreate("", ResourceType{Class: class, Element: elem})
}

// RayQuery returns the ray query object type.
func (r *TypeRegistry) RayQuery(anyHit bool) *Type {
	return r.GetOrCreate("", RayQueryType{AnyHit: anyHit})
}
