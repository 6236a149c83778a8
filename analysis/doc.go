// Package analysis computes read-only facts about XIR functions and modules.
//
// # Structure
//
//   - domtree.go: dominator tree and dominance frontiers of a definition
//   - callgraph.go: call edges between the functions of a module
//
// Analyses are snapshots. Any pass that changes the control flow graph or
// the call structure must recompute them.
package analysis
