// Package ir defines the XIR intermediate representation.
//
// XIR is designed to be:
//   - Mutable: passes rewrite the graph in place, no second copy is made
//   - SSA-oriented: values are defined once; memory is reached through
//     alloca, load and store until mem2reg promotes it
//   - Structured: terminators such as if, switch and loops record the
//     block where their region reconverges
//
// # Structure
//
// A Module owns:
//   - Pool: the registry of every value created in the module
//   - Types: the interned type registry
//   - Functions: kernels, callables and external declarations
//   - Constants, Undefined values and special registers, interned by content
//
// Every Value may be used by instructions. A Use is the edge from an
// instruction operand to a value. It is present in the value's use-list
// exactly while the owning instruction is linked into a basic block, so
// Uses() always reflects the live program.
//
// # Building
//
// Instructions are created by a Builder at an insertion point:
//
//	m := ir.NewModule("example")
//	f := m.CreateKernel()
//	b := ir.NewBuilder()
//	b.SetInsertionPointToEnd(f.CreateBodyBlock())
//	v := b.AllocaLocal(m.Types().Int32())
//	b.Store(v, m.ConstantInt32(1))
//	b.ReturnVoid()
//
// # Invariants
//
// Violating a structural invariant while building or rewriting IR is a
// programming error and panics with an *InvariantError. Validate checks a
// whole module without panicking and reports every violation it finds.
package ir
