package xir

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/gogpu/xir/internal/samples"
	"github.com/gogpu/xir/interp"
	"github.com/gogpu/xir/ir"
)

func countTag(m *ir.Module, tag ir.Tag) int {
	n := 0
	for _, f := range m.Definitions() {
		f.TraverseInstructions(func(inst ir.Instruction) {
			if inst.Tag() == tag {
				n++
			}
		})
	}
	return n
}

// escapingAllocas counts the allocas handed to a ray query pipeline, which
// mem2reg cannot promote.
func escapingAllocas(m *ir.Module) int {
	n := 0
	for _, f := range m.Definitions() {
		f.TraverseInstructions(func(inst ir.Instruction) {
			if inst.Tag() != ir.TagAlloca {
				return
			}
			for _, u := range inst.Uses() {
				if _, ok := u.User().(*ir.RayQueryPipelineInst); ok {
					n++
					return
				}
			}
		})
	}
	return n
}

// The default pipeline never changes what a sample prints or returns, and
// keeps every function of a module whether or not it has a kernel.
func TestOptimize_DefaultPipeline(t *testing.T) {
	ctx := context.Background()
	for _, s := range samples.All() {
		t.Run(s.Name, func(t *testing.T) {
			m := s.Build()
			before, err := interp.Run(samples.Entry(m), s.Args()...)
			assert.NilError(t, err)

			functions := append([]*ir.Function(nil), m.Functions()...)
			assert.NilError(t, Optimize(ctx, m, DefaultOptions()))
			for _, f := range functions {
				assert.Check(t, !f.IsRemoved(), "function %s", f.Label())
			}

			after, err := interp.Run(samples.Entry(m), s.Args()...)
			assert.NilError(t, err)
			assert.Equal(t, after.Value, before.Value)
			assert.DeepEqual(t, after.Output, before.Output)

			assert.Equal(t, countTag(m, ir.TagAlloca), escapingAllocas(m))
			assert.Equal(t, countTag(m, ir.TagRayQueryLoop), 0)
			assert.Equal(t, countTag(m, ir.TagGEP), 0)
		})
	}
}

func TestOptimize_RemovesOrphans(t *testing.T) {
	m := samples.CallGraph()
	opts := DefaultOptions()
	opts.Passes = append(opts.Passes, PassRemoveUnusedCallables)
	assert.NilError(t, Optimize(context.Background(), m, opts))
	for _, f := range m.Functions() {
		assert.Check(t, f.Name() != "orphan")
	}
	assert.Equal(t, len(m.Functions()), 3)
}

func TestOptimize_EmptyPipeline(t *testing.T) {
	m := samples.LoopSum()
	opts := DefaultOptions()
	opts.Passes = nil
	assert.NilError(t, Optimize(context.Background(), m, opts))
	assert.Equal(t, countTag(m, ir.TagAlloca), 2)
}

func TestOptimize_UnknownPass(t *testing.T) {
	opts := DefaultOptions()
	opts.Passes = []string{"mem2reg", "inline"}
	err := Optimize(context.Background(), samples.IfElse(), opts)
	assert.Check(t, is.ErrorContains(err, `unknown pass "inline"`))
}

// brokenRayQuery builds a ray query loop whose dispatch block computes a
// value before dispatching, which the lowering refuses.
func brokenRayQuery() *ir.Module {
	m := ir.NewModule("broken")
	i32 := m.Types().Int32()
	f := m.CreateKernel()
	f.SetName("main")
	q := f.CreateReferenceArgument(m.Types().RayQuery(false))
	x := f.CreateValueArgument(i32)
	b := ir.NewBuilder()
	b.SetInsertionPointToEnd(f.CreateBodyBlock())
	loop := b.RayQueryLoop()
	dispatchBlock, merge := loop.CreateDispatchBlock(), loop.CreateMergeBlock()
	b.SetInsertionPointToEnd(dispatchBlock)
	doubled := b.Arithmetic(i32, ir.OpAdd, x, x)
	surface := b.RayQueryDispatch(q, merge).CreateOnSurfaceCandidateBlock()
	b.SetInsertionPointToEnd(surface)
	b.Print("{}", doubled)
	b.Br(dispatchBlock)
	b.SetInsertionPointToEnd(merge)
	b.ReturnVoid()
	return m
}

func TestOptimize_RecoversInvariantErrors(t *testing.T) {
	opts := DefaultOptions()
	opts.Passes = []string{PassLowerRayQueryLoops}
	err := Optimize(context.Background(), brokenRayQuery(), opts)

	assert.Check(t, is.ErrorContains(err, "pass lower_ray_query_loops on function @main"))
	assert.Check(t, is.ErrorContains(err, "may only hold phis and the dispatch"))
	var invariant *ir.InvariantError
	assert.Check(t, errors.As(err, &invariant))
}

func TestOptimize_RejectsInvalidInput(t *testing.T) {
	m := ir.NewModule("unterminated")
	f := m.CreateKernel()
	b := ir.NewBuilder()
	b.SetInsertionPointToEnd(f.CreateBodyBlock())
	b.Clock()

	err := Optimize(context.Background(), m, DefaultOptions())
	assert.Check(t, is.ErrorContains(err, "invalid input module"))
	assert.Check(t, is.ErrorContains(err, "does not end in a terminator"))
}

func TestOptimize_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Optimize(ctx, samples.IfElse(), DefaultOptions())
	assert.Check(t, errors.Is(err, context.Canceled))
}

func TestOptimizeModules(t *testing.T) {
	var modules []*ir.Module
	for i := 0; i < 3; i++ {
		for _, s := range samples.All() {
			modules = append(modules, s.Build())
		}
	}
	opts := DefaultOptions()
	opts.Workers = 2
	assert.NilError(t, OptimizeModules(context.Background(), modules, opts))
	for _, m := range modules {
		assert.Equal(t, countTag(m, ir.TagAlloca), escapingAllocas(m), "module %s", m.Name)
	}
}

func TestOptimizeModules_FirstError(t *testing.T) {
	modules := []*ir.Module{samples.LoopSum(), brokenRayQuery(), samples.IfElse()}
	opts := DefaultOptions()
	opts.Workers = 1
	err := OptimizeModules(context.Background(), modules, opts)
	assert.Check(t, is.ErrorContains(err, "module broken"))
}

func TestPasses(t *testing.T) {
	names := Passes()
	assert.Check(t, is.Len(names, 8))
	for _, name := range DefaultOptions().Passes {
		assert.Check(t, is.Contains(names, name))
	}
}

func TestParseOptions(t *testing.T) {
	tests := []struct {
		name string
		data string
		want Options
	}{
		{
			name: "empty",
			data: "",
			want: DefaultOptions(),
		},
		{
			name: "partial",
			data: "passes = [\"mem2reg\", \"reg2mem\"]\nvalidate = false\n",
			want: Options{Passes: []string{PassMem2Reg, PassReg2Mem}, Validate: false, Workers: 4},
		},
		{
			name: "full",
			data: "passes = [\"dce\"]\nvalidate = true\nworkers = 8\nlog_level = \"debug\"\n",
			want: Options{Passes: []string{PassDCE}, Validate: true, Workers: 8, LogLevel: "debug"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseOptions([]byte(tt.data))
			assert.NilError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("options mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseOptions_Errors(t *testing.T) {
	_, err := ParseOptions([]byte(`passes = ["mem2reg", "unroll"]`))
	assert.Check(t, is.ErrorContains(err, `unknown pass "unroll"`))

	_, err = ParseOptions([]byte(`workers = -1`))
	assert.Check(t, is.ErrorContains(err, "workers must not be negative"))

	_, err = ParseOptions([]byte(`passes = [`))
	assert.Check(t, is.ErrorContains(err, "decoding toml"))
}

func TestLoadOptions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.toml")
	assert.NilError(t, os.WriteFile(path, []byte("workers = 2\n"), 0o600))

	opts, err := LoadOptions(path)
	assert.NilError(t, err)
	assert.Equal(t, opts.Workers, 2)
	assert.DeepEqual(t, opts.Passes, DefaultOptions().Passes)

	_, err = LoadOptions(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Check(t, is.ErrorContains(err, "reading pipeline config"))
}
