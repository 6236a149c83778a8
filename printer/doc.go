// Package printer renders XIR modules as deterministic text.
//
// The output lists the functions in module order and, for each definition,
// its reachable blocks in reverse post-order:
//
//	callable @add_one(%1: i32) -> i32 {
//	bb2:
//	  %4 = arith.add %1, 1:i32 : i32
//	  return %4
//	}
//
// Values are referenced by pool id (%<id>), blocks as bb<id> and functions
// by name, falling back to @<id>. The text form is meant for debugging and
// golden tests; there is no parser for it.
package printer
