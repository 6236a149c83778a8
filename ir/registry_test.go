package ir

import (
	"testing"
)

func TestTypeRegistry_ScalarDeduplication(t *testing.T) {
	registry := NewTypeRegistry()

	// Register f32 twice
	f32_1 := registry.GetOrCreate("f32", ScalarType{Kind: ScalarFloat, Width: 4})
	f32_2 := registry.GetOrCreate("f32", ScalarType{Kind: ScalarFloat, Width: 4})

	if f32_1 != f32_2 {
		t.Errorf("Expected same type for identical scalar types, got %s and %s", f32_1, f32_2)
	}

	if registry.Count() != 1 {
		t.Errorf("Expected 1 type, got %d", registry.Count())
	}
}

func TestTypeRegistry_DifferentScalars(t *testing.T) {
	registry := NewTypeRegistry()

	types := []*Type{registry.Float32(), registry.Int32(), registry.Uint32(), registry.Bool(), registry.Uint64()}
	for i := 0; i < len(types); i++ {
		for j := i + 1; j < len(types); j++ {
			if types[i] == types[j] {
				t.Errorf("Expected different types, got %s == %s", types[i], types[j])
			}
		}
	}

	if registry.Count() != 5 {
		t.Errorf("Expected 5 types, got %d", registry.Count())
	}
}

func TestTypeRegistry_VectorRegistersElementFirst(t *testing.T) {
	registry := NewTypeRegistry()

	vec4 := registry.Vector(registry.Float32(), Vec4)
	again := registry.GetOrCreate("", VectorType{Size: Vec4, Scalar: ScalarType{Kind: ScalarFloat, Width: 4}})

	if vec4 != again {
		t.Errorf("Expected same type for identical vector types, got %s and %s", vec4, again)
	}
	if vec4.Element(0) != registry.Float32() {
		t.Errorf("Expected element f32, got %s", vec4.Element(0))
	}
	if vec4.Element(0).Handle() >= vec4.Handle() {
		t.Errorf("Expected element handle below vector handle, got %d >= %d", vec4.Element(0).Handle(), vec4.Handle())
	}
	if registry.Count() != 2 {
		t.Errorf("Expected 2 types, got %d", registry.Count())
	}
}

func TestTypeRegistry_MatrixElementIsColumn(t *testing.T) {
	registry := NewTypeRegistry()

	mat := registry.Matrix(Vec3)
	col := registry.Vector(registry.Float32(), Vec3)

	if mat.Element(2) != col {
		t.Errorf("Expected column type %s, got %s", col, mat.Element(2))
	}
	if mat.Size() != 36 {
		t.Errorf("Expected size 36, got %d", mat.Size())
	}
	if mat.String() != "mat3x3<f32>" {
		t.Errorf("Expected mat3x3<f32>, got %s", mat.String())
	}
}

func TestTypeRegistry_ArrayAndStruct(t *testing.T) {
	registry := NewTypeRegistry()

	f32 := registry.Float32()
	arr := registry.Array(f32, 8)
	if registry.Array(f32, 8) != arr {
		t.Error("Expected array types to be deduplicated")
	}
	if registry.Array(f32, 4) == arr {
		t.Error("Expected arrays of different length to differ")
	}

	s := registry.Struct(f32, arr, registry.Int32())
	if registry.Struct(f32, arr, registry.Int32()) != s {
		t.Error("Expected struct types to be deduplicated")
	}
	if registry.Struct(arr, f32, registry.Int32()) == s {
		t.Error("Expected member order to matter")
	}
	if s.ElementCount() != 3 || s.Element(1) != arr {
		t.Errorf("Expected 3 members with array at 1, got %d", s.ElementCount())
	}
	if s.Size() != 4+32+4 {
		t.Errorf("Expected packed size 40, got %d", s.Size())
	}
	if s.String() != "struct{f32, array<f32, 8>, i32}" {
		t.Errorf("Unexpected struct string %q", s.String())
	}
}

func TestTypeRegistry_Lookup(t *testing.T) {
	registry := NewTypeRegistry()

	u32 := registry.Uint32()
	got, ok := registry.Lookup(u32.Handle())
	if !ok || got != u32 {
		t.Errorf("Expected lookup of handle %d to return u32", u32.Handle())
	}
	if _, ok := registry.Lookup(TypeHandle(42)); ok {
		t.Error("Expected lookup of unknown handle to fail")
	}
}

func TestTypeRegistry_OpaqueTypes(t *testing.T) {
	registry := NewTypeRegistry()

	q := registry.RayQuery(false)
	if !q.IsRayQuery() || q.IsResource() {
		t.Errorf("Expected ray query type, got %s", q)
	}
	if registry.RayQuery(true) == q {
		t.Error("Expected any-hit and all-hit queries to differ")
	}
	buf := registry.Resource(ResourceBuffer, registry.Float32())
	if !buf.IsResource() || buf.String() != "buffer<f32>" {
		t.Errorf("Expected buffer<f32>, got %s", buf)
	}
}

func TestElementType(t *testing.T) {
	m := NewModule("elements")
	types := m.Types()
	f32 := types.Float32()
	inner := types.Struct(f32, types.Vector(f32, Vec2))
	arr := types.Array(inner, 4)

	tests := []struct {
		name    string
		indices []Value
		want    *Type
	}{
		{"empty", nil, arr},
		{"array", []Value{m.ConstantInt32(3)}, inner},
		{"struct member", []Value{m.ConstantInt32(0), m.ConstantInt32(1)}, types.Vector(f32, Vec2)},
		{"vector lane", []Value{m.ConstantInt32(0), m.ConstantInt32(1), m.ConstantUint32(1)}, f32},
		{"out of range", []Value{m.ConstantInt32(4)}, nil},
		{"float index", []Value{m.ConstantFloat32(1)}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ElementType(arr, tt.indices); got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}
