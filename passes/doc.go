// Package passes implements the XIR transformation passes.
//
// Every pass rewrites a module, or a single function, in place and returns
// an info struct describing what it changed. Passes never fail: a structural
// problem in the input is a programming error and panics with an
// *ir.InvariantError, which the xir package turns into an error.
//
// # Structure
//
// Memory and SSA:
//   - Mem2Reg promotes local variables accessed only as a whole to SSA values
//   - Reg2Mem lowers every phi back to a local variable
//   - TraceGEP flattens GEP chains; TransposeGEP turns element accesses of
//     local variables into whole-variable accesses so Mem2Reg applies
//
// Cleanup:
//   - DCE removes dead instructions, write-only variables and blocks that can
//     only end in unreachable
//   - RemoveUnusedCallables drops callables no kernel can reach
//
// Lowering:
//   - LowerRayQueryLoops outlines ray query handlers into callables invoked
//     by a RayQueryPipelineInst
//
// Helpers shared by the passes, such as RemoveRedundantPhi, LowerPhiToLocal
// and HoistAllocas, are exported for pipelines that need them on their own.
//
// # Logging
//
// Passes log their results at debug level through logrus, tagged with the
// pass and function names.
package passes
