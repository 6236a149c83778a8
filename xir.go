// Package xir optimizes GPU kernels in the XIR intermediate representation.
//
// Front-ends build an *ir.Module with ir.Builder; xir runs a configurable
// pipeline of passes over it and hands the result to a backend:
//
//	opts := xir.DefaultOptions()
//	if err := xir.Optimize(ctx, module, opts); err != nil {
//	    log.Fatal(err)
//	}
//
// Several independent modules can be optimized concurrently with
// OptimizeModules. The passes themselves live in the passes package and can
// be called directly when a pipeline is not needed.
package xir

import (
	"context"
	"sort"
	"time"

	"github.com/containerd/log"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/gogpu/xir/ir"
	"github.com/gogpu/xir/passes"
)

// Pass names accepted in Options.Passes.
const (
	PassTraceGEP              = "trace_gep"
	PassTransposeGEP          = "transpose_gep"
	PassMem2Reg               = "mem2reg"
	PassDCE                   = "dce"
	PassLowerRayQueryLoops    = "lower_ray_query_loops"
	PassReg2Mem               = "reg2mem"
	PassHoistAllocas          = "hoist_allocas"
	PassRemoveUnusedCallables = "remove_unused_callables"
)

// pass runs on every definition of a module, or on the module as a whole
// when module is set.
type pass struct {
	function func(f *ir.Function)
	module   func(m *ir.Module)
}

var registry = map[string]pass{
	PassTraceGEP:              {function: func(f *ir.Function) { passes.TraceGEPFunction(f) }},
	PassTransposeGEP:          {function: func(f *ir.Function) { passes.TransposeGEPFunction(f) }},
	PassMem2Reg:               {function: func(f *ir.Function) { passes.Mem2RegFunction(f) }},
	PassDCE:                   {function: func(f *ir.Function) { passes.DCEFunction(f) }},
	PassLowerRayQueryLoops:    {function: func(f *ir.Function) { passes.LowerRayQueryLoopsFunction(f) }},
	PassReg2Mem:               {function: func(f *ir.Function) { passes.Reg2MemFunction(f) }},
	PassHoistAllocas:          {function: func(f *ir.Function) { passes.HoistAllocas(f) }},
	PassRemoveUnusedCallables: {module: func(m *ir.Module) { passes.RemoveUnusedCallables(m) }},
}

// Passes returns the names of all known passes, sorted.
func Passes() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Options configures the optimization pipeline.
type Options struct {
	// Passes lists the passes to run, in order.
	Passes []string

	// Validate checks the module before the first pass and after the last.
	Validate bool

	// Workers bounds how many modules OptimizeModules processes at once.
	Workers int

	// LogLevel is the logrus level name used by the xiropt command.
	// Empty keeps the current level.
	LogLevel string
}

// DefaultOptions returns the standard pipeline: element accesses are
// rewritten so that variables can be promoted, ray query loops are outlined
// and dead code is removed. Removing unused callables needs the module's
// kernels to be known, so PassRemoveUnusedCallables is opt-in.
func DefaultOptions() Options {
	return Options{
		Passes: []string{
			PassTransposeGEP,
			PassMem2Reg,
			PassLowerRayQueryLoops,
			PassDCE,
		},
		Validate: true,
		Workers:  4,
	}
}

// Check reports the first unknown pass or invalid setting.
func (o Options) Check() error {
	for _, name := range o.Passes {
		if _, ok := registry[name]; !ok {
			return errors.Errorf("unknown pass %q", name)
		}
	}
	if o.Workers < 0 {
		return errors.Errorf("workers must not be negative, got %d", o.Workers)
	}
	return nil
}

// Optimize runs the configured passes over m in place.
//
// A violated IR invariant inside a pass is returned as an error naming the
// pass and function instead of crashing the caller. The module is left in
// an unspecified state in that case.
func Optimize(ctx context.Context, m *ir.Module, opts Options) error {
	if err := opts.Check(); err != nil {
		return err
	}
	logger := log.G(ctx).WithField("module", m.Name)
	if opts.Validate {
		if err := validate(m); err != nil {
			return errors.Wrap(err, "invalid input module")
		}
	}
	for _, name := range opts.Passes {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := time.Now()
		if err := runPass(name, m); err != nil {
			return err
		}
		logger.WithField("pass", name).Debugf("finished in %s", time.Since(start))
	}
	if opts.Validate {
		if err := validate(m); err != nil {
			return errors.Wrap(err, "pipeline produced an invalid module")
		}
	}
	return nil
}

// OptimizeModules runs Optimize over independent modules with at most
// opts.Workers modules in flight. It stops starting new modules after the
// first failure or once ctx is done, and returns the first error.
func OptimizeModules(ctx context.Context, modules []*ir.Module, opts Options) error {
	if err := opts.Check(); err != nil {
		return err
	}
	g, ctx := errgroup.WithContext(ctx)
	if opts.Workers > 0 {
		g.SetLimit(opts.Workers)
	}
	for _, m := range modules {
		m := m
		g.Go(func() error {
			if err := Optimize(ctx, m, opts); err != nil {
				return errors.Wrapf(err, "module %s", m.Name)
			}
			return nil
		})
	}
	return g.Wait()
}

func runPass(name string, m *ir.Module) error {
	p := registry[name]
	if p.module != nil {
		return guard(func() { p.module(m) }, "pass %s", name)
	}
	for _, f := range m.Definitions() {
		if err := guard(func() { p.function(f) }, "pass %s on function %s", name, f.Label()); err != nil {
			return err
		}
	}
	return nil
}

// guard runs fn and turns an *ir.InvariantError panic into an error.
func guard(fn func(), format string, args ...any) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		invariant, ok := r.(*ir.InvariantError)
		if !ok {
			panic(r)
		}
		err = errors.Wrapf(invariant, format, args...)
	}()
	fn()
	return nil
}

func validate(m *ir.Module) error {
	errs, err := ir.Validate(m)
	if err != nil {
		return err
	}
	if len(errs) > 0 {
		return errors.Wrapf(errs[0], "%d validation errors, first", len(errs))
	}
	return nil
}
