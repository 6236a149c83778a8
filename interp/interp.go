// Package interp is a reference interpreter for XIR functions.
//
// It executes a single thread of a kernel or callable with local memory per
// alloca, scripted ray queries and captured print output. Optimization passes
// are checked against it by running a function before and after a pass.
package interp

import (
	"github.com/pkg/errors"

	"github.com/gogpu/xir/ir"
)

var (
	// ErrAssertion is returned when an assert instruction fails.
	ErrAssertion = errors.New("assertion failed")
	// ErrUnreachable is returned when control reaches an unreachable block.
	ErrUnreachable = errors.New("unreachable executed")
	// ErrDiscarded is returned when a raster discard ends the invocation.
	ErrDiscarded = errors.New("fragment discarded")
	// ErrStepLimit is returned when execution exceeds Options.MaxSteps.
	ErrStepLimit = errors.New("step limit exceeded")
	// ErrUnsupported is returned for operations the interpreter cannot model.
	ErrUnsupported = errors.New("unsupported operation")
)

// DefaultMaxSteps bounds the instructions executed by one Run.
const DefaultMaxSteps = 1 << 20

// Options configures an Interpreter.
type Options struct {
	// MaxSteps bounds executed instructions. Zero means DefaultMaxSteps.
	MaxSteps int
	// Registers overrides special register values. Missing registers read
	// as zero.
	Registers map[ir.SpecialRegisterKind]Value
}

// Result is the outcome of a successful run.
type Result struct {
	// Value is the returned value, nil for void functions.
	Value Value
	// Output holds the lines printed during the run.
	Output []string
	// Steps is the number of executed instructions.
	Steps int
}

// Interpreter executes functions. It is not safe for concurrent use.
type Interpreter struct {
	opts   Options
	output []string
	steps  int
	consts map[*ir.Constant]Value
}

// New creates an interpreter with the given options.
func New(opts Options) *Interpreter {
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = DefaultMaxSteps
	}
	return &Interpreter{opts: opts, consts: make(map[*ir.Constant]Value)}
}

// Run executes f with default options.
func Run(f *ir.Function, args ...Value) (*Result, error) {
	return New(Options{}).Run(f, args...)
}

// runtimeError carries an execution failure through the interpreter's
// recursion up to Run.
type runtimeError struct {
	err error
}

func fail(format string, args ...any) {
	panic(runtimeError{err: errors.Wrapf(ErrUnsupported, format, args...)})
}

func failWith(err error) {
	panic(runtimeError{err: err})
}

// Run executes f with args. Reference parameters take *Pointer arguments,
// resource parameters *Buffer or *RayQuery references.
func (in *Interpreter) Run(f *ir.Function, args ...Value) (res *Result, err error) {
	if f == nil {
		return nil, errors.New("no function to run")
	}
	if !f.IsDefinition() {
		return nil, errors.Errorf("function %%%d is not a definition", f.ID())
	}
	if len(args) != len(f.Arguments()) {
		return nil, errors.Errorf("function %%%d takes %d arguments, got %d", f.ID(), len(f.Arguments()), len(args))
	}
	in.output = nil
	in.steps = 0
	defer func() {
		if r := recover(); r != nil {
			rerr, ok := r.(runtimeError)
			if !ok {
				panic(r)
			}
			res, err = nil, errors.Wrapf(rerr.err, "running function %%%d", f.ID())
		}
	}()
	v := in.call(f, args)
	return &Result{Value: v, Output: in.output, Steps: in.steps}, nil
}

// frame holds the SSA values of one activation.
type frame struct {
	values map[ir.Value]Value
}

func (in *Interpreter) call(f *ir.Function, args []Value) Value {
	if !f.IsDefinition() {
		fail("call to external function %%%d", f.ID())
	}
	fr := &frame{values: make(map[ir.Value]Value)}
	for i, a := range f.Arguments() {
		if a.IsLValue() {
			if _, ok := args[i].(*Pointer); !ok {
				fail("argument %d of function %%%d must be a *Pointer, got %T", i, f.ID(), args[i])
			}
		}
		fr.values[a] = args[i]
	}

	var prev *ir.BasicBlock
	blk := f.BodyBlock()
	for {
		in.enterBlock(fr, blk, prev)
		next, ret, done := in.execBlock(fr, blk)
		if done {
			return ret
		}
		prev, blk = blk, next
	}
}

// enterBlock assigns the phis of blk from the edge taken out of prev. All
// incomings are read before any phi is written.
func (in *Interpreter) enterBlock(fr *frame, blk, prev *ir.BasicBlock) {
	phis := blk.Phis()
	if len(phis) == 0 {
		return
	}
	if prev == nil {
		fail("phi in entry block bb%d", blk.ID())
	}
	vals := make([]Value, len(phis))
	for i, phi := range phis {
		v, ok := phi.IncomingFor(prev)
		if !ok {
			fail("phi %%%d has no incoming for bb%d", phi.ID(), prev.ID())
		}
		vals[i] = in.eval(fr, v)
	}
	for i, phi := range phis {
		fr.values[phi] = vals[i]
	}
}

func (in *Interpreter) step() {
	in.steps++
	if in.steps > in.opts.MaxSteps {
		failWith(errors.Wrapf(ErrStepLimit, "after %d steps", in.opts.MaxSteps))
	}
}

func (in *Interpreter) eval(fr *frame, v ir.Value) Value {
	switch v := v.(type) {
	case *ir.Constant:
		if c, ok := in.consts[v]; ok {
			return c
		}
		c := decodeConstant(v.Type(), v.Data())
		in.consts[v] = c
		return c
	case *ir.Undefined:
		return Zero(v.Type())
	case *ir.SpecialRegister:
		if r, ok := in.opts.Registers[v.Register()]; ok {
			return r
		}
		return Zero(v.Type())
	case *ir.Function, *ir.BasicBlock:
		return v
	}
	r, ok := fr.values[v]
	if !ok {
		fail("value %%%d used before its definition", v.ID())
	}
	return r
}

func (in *Interpreter) operands(fr *frame, inst ir.Instruction) []Value {
	ops := inst.Operands()
	vals := make([]Value, len(ops))
	for i, op := range ops {
		if op != nil {
			vals[i] = in.eval(fr, op)
		}
	}
	return vals
}

func (in *Interpreter) pointer(fr *frame, v ir.Value) *Pointer {
	p, ok := in.eval(fr, v).(*Pointer)
	if !ok {
		fail("value %%%d is not a reference", v.ID())
	}
	return p
}

func (in *Interpreter) rayQuery(fr *frame, v ir.Value) *RayQuery {
	q, ok := in.pointer(fr, v).Load().(*RayQuery)
	if !ok {
		fail("value %%%d does not hold a ray query", v.ID())
	}
	return q
}

// execBlock runs the instructions of blk. It returns the successor, or the
// returned value with done set when the function returns.
func (in *Interpreter) execBlock(fr *frame, blk *ir.BasicBlock) (next *ir.BasicBlock, ret Value, done bool) {
	for inst := blk.FirstNonPhi(); inst != nil; inst = inst.Next() {
		in.step()
		if term, ok := inst.(ir.Terminator); ok {
			return in.execTerminator(fr, term)
		}
		in.exec(fr, inst)
	}
	fail("block bb%d has no terminator", blk.ID())
	return nil, nil, false
}

func (in *Interpreter) execTerminator(fr *frame, term ir.Terminator) (*ir.BasicBlock, Value, bool) {
	switch t := term.(type) {
	case ir.ConditionalBranch:
		if in.eval(fr, t.Condition()).(bool) {
			return t.TrueBlock(), nil, false
		}
		return t.FalseBlock(), nil, false
	case *ir.SwitchInst:
		sel := toInt(in.eval(fr, t.Selector()))
		for i := 0; i < t.CaseCount(); i++ {
			if t.CaseValue(i) == sel {
				return t.CaseBlock(i), nil, false
			}
		}
		return t.DefaultBlock(), nil, false
	case *ir.LoopInst:
		return t.PrepareBlock(), nil, false
	case *ir.SimpleLoopInst:
		return t.BodyBlock(), nil, false
	case ir.Branch:
		return t.TargetBlock(), nil, false
	case *ir.AutodiffScopeInst:
		return t.EntryBlock(), nil, false
	case *ir.RayQueryLoopInst:
		return t.DispatchBlock(), nil, false
	case *ir.RayQueryDispatchInst:
		q := in.rayQuery(fr, t.QueryObject())
		for q.advance() {
			var target *ir.BasicBlock
			if q.Candidates[q.current] == CandidateTriangle {
				target = t.OnSurfaceCandidateBlock()
			} else {
				target = t.OnProceduralCandidateBlock()
			}
			if target != nil {
				return target, nil, false
			}
		}
		return t.ExitBlock(), nil, false
	case *ir.ReturnInst:
		if rv := t.ReturnValue(); rv != nil {
			return nil, in.eval(fr, rv), true
		}
		return nil, nil, true
	case *ir.UnreachableInst:
		failWith(errors.Wrapf(ErrUnreachable, "in bb%d: %s", t.Block().ID(), t.Message))
	case *ir.RasterDiscardInst:
		failWith(ErrDiscarded)
	}
	fail("terminator %s", term.Tag())
	return nil, nil, false
}

func (in *Interpreter) exec(fr *frame, inst ir.Instruction) {
	switch i := inst.(type) {
	case *ir.AllocaInst:
		fr.values[i] = NewVariable(Zero(i.Type()))
	case *ir.LoadInst:
		fr.values[i] = in.pointer(fr, i.Variable()).Load()
	case *ir.StoreInst:
		in.pointer(fr, i.Variable()).Store(in.eval(fr, i.Value()))
	case *ir.GEPInst:
		path := make([]int, i.IndexCount())
		for k, idx := range i.Indices() {
			path[k] = int(toInt(in.eval(fr, idx)))
		}
		fr.values[i] = in.pointer(fr, i.Base()).element(path...)
	case *ir.AtomicInst:
		fr.values[i] = in.atomic(fr, i)
	case *ir.ArithmeticInst:
		fr.values[i] = arithmetic(i.Type(), i.Op(), in.operands(fr, i))
	case *ir.CastInst:
		fr.values[i] = cast(i.Type(), i.Op(), i.Operand(0).Type(), in.eval(fr, i.Operand(0)))
	case *ir.CallInst:
		args := in.operands(fr, i)[1:]
		v := in.call(i.Callee(), args)
		if i.Type() != nil {
			fr.values[i] = v
		}
	case *ir.ThreadGroupInst:
		in.threadGroup(fr, i)
	case *ir.ResourceQueryInst:
		if i.Op() != ir.ResourceQueryBufferSize {
			fail("resource query %d", i.Op())
		}
		fr.values[i] = uint64(len(in.buffer(fr, i.Operand(0)).Elements))
	case *ir.ResourceReadInst:
		if i.Op() != ir.ResourceReadBuffer {
			fail("resource read %d", i.Op())
		}
		buf := in.buffer(fr, i.Operand(0))
		fr.values[i] = buf.Elements[toInt(in.eval(fr, i.Operand(1)))]
	case *ir.ResourceWriteInst:
		if i.Op() != ir.ResourceWriteBuffer {
			fail("resource write %d", i.Op())
		}
		buf := in.buffer(fr, i.Operand(0))
		buf.Elements[toInt(in.eval(fr, i.Operand(1)))] = in.eval(fr, i.Operand(2))
	case *ir.RayQueryObjectReadInst:
		fr.values[i] = in.rayQueryRead(fr, i)
	case *ir.RayQueryObjectWriteInst:
		q := in.rayQuery(fr, i.Operand(0))
		switch i.Op() {
		case ir.RayQueryCommitTriangle, ir.RayQueryCommitProcedural:
			q.Committed = append(q.Committed, q.current)
		case ir.RayQueryTerminate:
			q.terminated = true
		}
	case *ir.RayQueryPipelineInst:
		in.rayQueryPipeline(fr, i)
	case *ir.PrintInst:
		in.output = append(in.output, formatPrint(i.Format, in.operands(fr, i)))
	case *ir.ClockInst:
		fr.values[i] = uint64(in.steps)
	case *ir.AssertInst:
		if !in.eval(fr, i.Condition()).(bool) {
			failWith(errors.Wrap(ErrAssertion, i.Message))
		}
	case *ir.AssumeInst:
	case *ir.AutodiffIntrinsicInst:
		switch i.Op() {
		case ir.AutodiffDetach:
			fr.values[i] = in.eval(fr, i.Operand(0))
		case ir.AutodiffGradient:
			fr.values[i] = Zero(i.Type())
		}
	default:
		fail("instruction %s", inst.Tag())
	}
}

func (in *Interpreter) buffer(fr *frame, v ir.Value) *Buffer {
	buf, ok := in.eval(fr, v).(*Buffer)
	if !ok {
		fail("value %%%d is not a buffer", v.ID())
	}
	return buf
}

// threadGroup models a block of a single thread in a warp of one lane.
func (in *Interpreter) threadGroup(fr *frame, i *ir.ThreadGroupInst) {
	switch i.Op() {
	case ir.ThreadGroupSynchronizeBlock:
	case ir.ThreadGroupWarpActiveSum, ir.ThreadGroupWarpReadLaneAt:
		fr.values[i] = in.eval(fr, i.Operand(0))
	case ir.ThreadGroupWarpActiveAllEqual:
		fr.values[i] = lift1(in.eval(fr, i.Operand(0)), func(Value) Value { return true })
	case ir.ThreadGroupWarpFirstActiveLane:
		fr.values[i] = Zero(i.Type())
	}
}

func (in *Interpreter) atomic(fr *frame, i *ir.AtomicInst) Value {
	path := make([]int, len(i.Indices()))
	for k, idx := range i.Indices() {
		path[k] = int(toInt(in.eval(fr, idx)))
	}
	var load func() Value
	var store func(Value)
	switch base := in.eval(fr, i.Base()).(type) {
	case *Pointer:
		p := base.element(path...)
		load, store = p.Load, p.Store
	case *Buffer:
		if len(path) != 1 {
			fail("atomic on buffer takes one index, got %d", len(path))
		}
		load = func() Value { return base.Elements[path[0]] }
		store = func(v Value) { base.Elements[path[0]] = v }
	default:
		fail("atomic base %%%d is neither a variable nor a buffer", i.Base().ID())
	}
	vals := make([]Value, 0, 2)
	for _, v := range i.Values() {
		vals = append(vals, in.eval(fr, v))
	}
	old := load()
	switch i.Op() {
	case ir.AtomicExchange:
		store(vals[0])
	case ir.AtomicCompareExchange:
		if old == vals[0] {
			store(vals[1])
		}
	default:
		op := [...]ir.ArithmeticOp{
			ir.AtomicFetchAdd: ir.OpAdd,
			ir.AtomicFetchSub: ir.OpSub,
			ir.AtomicFetchAnd: ir.OpBitAnd,
			ir.AtomicFetchOr:  ir.OpBitOr,
			ir.AtomicFetchXor: ir.OpBitXor,
			ir.AtomicFetchMin: ir.OpMin,
			ir.AtomicFetchMax: ir.OpMax,
		}[i.Op()]
		store(arithmetic(i.Type(), op, []Value{old, vals[0]}))
	}
	return old
}

func (in *Interpreter) rayQueryRead(fr *frame, i *ir.RayQueryObjectReadInst) Value {
	q := in.rayQuery(fr, i.Operand(0))
	switch i.Op() {
	case ir.RayQueryIsTriangleCandidate:
		return q.next > 0 && q.Candidates[q.current] == CandidateTriangle
	case ir.RayQueryIsProceduralCandidate:
		return q.next > 0 && q.Candidates[q.current] == CandidateProcedural
	case ir.RayQueryIsTerminated:
		return q.terminated
	}
	return Zero(i.Type())
}

// rayQueryPipeline runs the outlined handlers for each candidate, the way a
// ray query loop dispatches to its handler blocks.
func (in *Interpreter) rayQueryPipeline(fr *frame, i *ir.RayQueryPipelineInst) {
	query := in.pointer(fr, i.QueryObject())
	q, ok := query.Load().(*RayQuery)
	if !ok {
		fail("ray query pipeline on %T", query.Load())
	}
	captured := in.operands(fr, i)[3:]
	args := append([]Value{query}, captured...)
	for q.advance() {
		handler := i.OnSurfaceFunction()
		if q.Candidates[q.current] == CandidateProcedural {
			handler = i.OnProceduralFunction()
		}
		if handler != nil {
			in.call(handler, args)
		}
	}
}
