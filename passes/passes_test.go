package passes_test

import (
	"testing"

	"gotest.tools/v3/assert"

	"github.com/gogpu/xir/interp"
	"github.com/gogpu/xir/ir"
)

// countTag counts the linked instructions of f reachable from its body.
func countTag(f *ir.Function, tag ir.Tag) int {
	n := 0
	f.TraverseInstructions(func(inst ir.Instruction) {
		if inst.Tag() == tag {
			n++
		}
	})
	return n
}

// instructionsWithTag returns the reachable instructions of f with tag.
func instructionsWithTag(f *ir.Function, tag ir.Tag) []ir.Instruction {
	var out []ir.Instruction
	f.TraverseInstructions(func(inst ir.Instruction) {
		if inst.Tag() == tag {
			out = append(out, inst)
		}
	})
	return out
}

func assertValid(t testing.TB, m *ir.Module) {
	t.Helper()
	errs, err := ir.Validate(m)
	assert.NilError(t, err)
	assert.Check(t, len(errs) == 0, "validation errors: %v", errs)
}

func mustRun(t testing.TB, f *ir.Function, args ...interp.Value) *interp.Result {
	t.Helper()
	res, err := interp.Run(f, args...)
	assert.NilError(t, err)
	return res
}

// ids maps values to their pool ids for readable comparisons.
func ids[T ir.Value](values []T) []uint32 {
	out := make([]uint32, len(values))
	for i, v := range values {
		out[i] = v.ID()
	}
	return out
}

func newQuery(candidates ...interp.CandidateKind) *interp.Pointer {
	return interp.NewVariable(&interp.RayQuery{Candidates: candidates})
}

// assertSameBehavior checks that got returned and printed the same as want.
func assertSameBehavior(t testing.TB, want, got *interp.Result) {
	t.Helper()
	assert.Equal(t, got.Value, want.Value)
	assert.DeepEqual(t, got.Output, want.Output)
}
