package interp

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/gogpu/xir/ir"
)

// Value is a runtime value.
//
// Booleans are bool, signed integers int64, unsigned integers uint64 and
// floats float64, each normalized to the width of their XIR type.
// Aggregates are []Value and are never mutated in place. References are
// *Pointer, buffers *Buffer and ray query objects *RayQuery.
type Value = any

// Pointer references a variable or an element of it.
type Pointer struct {
	cell *cell
	path []int
}

type cell struct {
	v Value
}

// NewVariable returns a reference to a fresh variable holding v.
func NewVariable(v Value) *Pointer {
	return &Pointer{cell: &cell{v: v}}
}

// Load returns the referenced value.
func (p *Pointer) Load() Value {
	v := p.cell.v
	for _, i := range p.path {
		v = v.([]Value)[i]
	}
	return v
}

// Store replaces the referenced value.
func (p *Pointer) Store(v Value) {
	p.cell.v = replaceAt(p.cell.v, p.path, v)
}

// element returns a reference to the element at path below p.
func (p *Pointer) element(path ...int) *Pointer {
	full := make([]int, 0, len(p.path)+len(path))
	full = append(full, p.path...)
	full = append(full, path...)
	return &Pointer{cell: p.cell, path: full}
}

// replaceAt returns agg with the element at path replaced by v, copying
// every aggregate along the path.
func replaceAt(agg Value, path []int, v Value) Value {
	if len(path) == 0 {
		return v
	}
	elems := append([]Value(nil), agg.([]Value)...)
	elems[path[0]] = replaceAt(elems[path[0]], path[1:], v)
	return elems
}

// Buffer is the content of a buffer resource argument.
type Buffer struct {
	Elements []Value
}

// CandidateKind is the kind of a ray query candidate.
type CandidateKind uint8

const (
	CandidateTriangle CandidateKind = iota
	CandidateProcedural
)

// RayQuery is a scripted ray query object. Dispatching walks Candidates in
// order until the query is terminated or the candidates run out.
type RayQuery struct {
	Candidates []CandidateKind
	// Committed lists the indices of the committed candidates.
	Committed []int

	current    int
	next       int
	terminated bool
}

// advance moves to the next candidate and reports whether there is one.
func (q *RayQuery) advance() bool {
	if q.terminated || q.next >= len(q.Candidates) {
		return false
	}
	q.current = q.next
	q.next++
	return true
}

// Terminated reports whether a handler terminated the query.
func (q *RayQuery) Terminated() bool {
	return q.terminated
}

// Zero returns the zero value of t.
func Zero(t *ir.Type) Value {
	switch inner := t.Inner.(type) {
	case ir.ScalarType:
		return zeroScalar(inner)
	case ir.RayQueryType:
		return &RayQuery{}
	}
	if t.IsAggregate() {
		elems := make([]Value, t.ElementCount())
		for i := range elems {
			elems[i] = Zero(t.Element(i))
		}
		return elems
	}
	return nil
}

func zeroScalar(s ir.ScalarType) Value {
	switch s.Kind {
	case ir.ScalarBool:
		return false
	case ir.ScalarSint:
		return int64(0)
	case ir.ScalarUint:
		return uint64(0)
	default:
		return float64(0)
	}
}

// decodeConstant converts a constant payload of type t into a Value.
func decodeConstant(t *ir.Type, data []byte) Value {
	if s, ok := t.Scalar(); ok {
		switch s.Kind {
		case ir.ScalarBool:
			return data[0] != 0
		case ir.ScalarSint:
			return ir.DecodeInt(s, data)
		case ir.ScalarUint:
			return uint64(ir.DecodeInt(s, data))
		default:
			if s.Width == 8 {
				return math.Float64frombits(binary.LittleEndian.Uint64(data))
			}
			return float64(math.Float32frombits(binary.LittleEndian.Uint32(data)))
		}
	}
	elems := make([]Value, t.ElementCount())
	offset := 0
	for i := range elems {
		et := t.Element(i)
		elems[i] = decodeConstant(et, data[offset:offset+et.Size()])
		offset += et.Size()
	}
	return elems
}

// Format renders a value the way print instructions do.
func Format(v Value) string {
	switch v := v.(type) {
	case []Value:
		parts := make([]string, len(v))
		for i, e := range v {
			parts[i] = Format(e)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case float64:
		return fmt.Sprintf("%g", v)
	case *Pointer:
		return Format(v.Load())
	default:
		return fmt.Sprint(v)
	}
}

// formatPrint substitutes each {} of format with the next value.
func formatPrint(format string, values []Value) string {
	var sb strings.Builder
	next := 0
	for {
		i := strings.Index(format, "{}")
		if i < 0 || next >= len(values) {
			sb.WriteString(format)
			break
		}
		sb.WriteString(format[:i])
		sb.WriteString(Format(values[next]))
		next++
		format = format[i+2:]
	}
	return sb.String()
}
