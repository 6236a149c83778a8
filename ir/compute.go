package ir

// ArithmeticOp enumerates arithmetic, comparison and aggregate operations.
type ArithmeticOp uint8

const (
	// Unary
	OpUnaryPlus ArithmeticOp = iota
	OpUnaryMinus
	OpUnaryLogicNot
	OpUnaryBitNot

	// Binary
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpBitAnd
	OpBitOr
	OpBitXor
	OpShiftLeft
	OpShiftRight
	OpLogicAnd
	OpLogicOr
	OpLess
	OpGreater
	OpLessEqual
	OpGreaterEqual
	OpEqual
	OpNotEqual

	// Math
	OpMin
	OpMax
	OpAbs
	OpSqrt
	OpFloor

	// (cond, true value, false value)
	OpSelect

	// (aggregate, indices...) -> element
	OpExtract
	// (aggregate, element, indices...) -> aggregate
	OpInsert
	// (elements...) -> aggregate
	OpAggregate
)

var arithmeticOpNames = [...]string{
	OpUnaryPlus:     "plus",
	OpUnaryMinus:    "neg",
	OpUnaryLogicNot: "not",
	OpUnaryBitNot:   "bit_not",
	OpAdd:           "add",
	OpSub:           "sub",
	OpMul:           "mul",
	OpDiv:           "div",
	OpMod:           "mod",
	OpBitAnd:        "bit_and",
	OpBitOr:         "bit_or",
	OpBitXor:        "bit_xor",
	OpShiftLeft:     "shl",
	OpShiftRight:    "shr",
	OpLogicAnd:      "and",
	OpLogicOr:       "or",
	OpLess:          "lt",
	OpGreater:       "gt",
	OpLessEqual:     "le",
	OpGreaterEqual:  "ge",
	OpEqual:         "eq",
	OpNotEqual:      "ne",
	OpMin:           "min",
	OpMax:           "max",
	OpAbs:           "abs",
	OpSqrt:          "sqrt",
	OpFloor:         "floor",
	OpSelect:        "select",
	OpExtract:       "extract",
	OpInsert:        "insert",
	OpAggregate:     "aggregate",
}

// String returns the mnemonic of the operation.
func (op ArithmeticOp) String() string {
	if int(op) < len(arithmeticOpNames) {
		return arithmeticOpNames[op]
	}
	return "unknown"
}

// ArithmeticInst applies an ArithmeticOp to its operands.
type ArithmeticInst struct {
	instBase
	op ArithmeticOp
}

func (*ArithmeticInst) Tag() Tag { return TagArithmetic }

// Op returns the operation.
func (a *ArithmeticInst) Op() ArithmeticOp { return a.op }

// CastOp enumerates conversions.
type CastOp uint8

const (
	CastStatic CastOp = iota
	CastBitwise
)

// String returns the name of the conversion.
func (op CastOp) String() string {
	if op == CastBitwise {
		return "bitcast"
	}
	return "static_cast"
}

// CastInst converts its single operand to the instruction type.
type CastInst struct {
	instBase
	op CastOp
}

func (*CastInst) Tag() Tag { return TagCast }

// Op returns the conversion.
func (c *CastInst) Op() CastOp { return c.op }

// CallInst calls a function. Operands are the callee and the arguments.
type CallInst struct {
	instBase
}

func (*CallInst) Tag() Tag { return TagCall }

// Callee returns the called function.
func (c *CallInst) Callee() *Function { return functionOperand(c.Operand(0)) }

// Arguments returns the call arguments.
func (c *CallInst) Arguments() []Value { return c.operandValues(1) }

// ThreadGroupOp enumerates block and warp level operations.
type ThreadGroupOp uint8

const (
	ThreadGroupSynchronizeBlock ThreadGroupOp = iota
	ThreadGroupWarpActiveSum
	ThreadGroupWarpActiveAllEqual
	ThreadGroupWarpReadLaneAt
	ThreadGroupWarpFirstActiveLane
)

// ThreadGroupInst performs a block or warp level operation.
type ThreadGroupInst struct {
	instBase
	op ThreadGroupOp
}

func (*ThreadGroupInst) Tag() Tag { return TagThreadGroup }

// Op returns the operation.
func (t *ThreadGroupInst) Op() ThreadGroupOp { return t.op }

// ResourceQueryOp enumerates side-effect free resource queries.
type ResourceQueryOp uint8

const (
	ResourceQueryBufferSize ResourceQueryOp = iota
	ResourceQueryTextureSize
	ResourceQueryAccelInstanceTransform
)

// ResourceQueryInst queries a property of a resource.
type ResourceQueryInst struct {
	instBase
	op ResourceQueryOp
}

func (*ResourceQueryInst) Tag() Tag { return TagResourceQuery }

// Op returns the query.
func (r *ResourceQueryInst) Op() ResourceQueryOp { return r.op }

// ResourceReadOp enumerates resource reads.
type ResourceReadOp uint8

const (
	ResourceReadBuffer ResourceReadOp = iota
	ResourceReadTexture
	ResourceReadBindlessBuffer
	ResourceReadTraceClosest
	ResourceReadTraceAny
	ResourceReadQueryAll
	ResourceReadQueryAny
)

// ResourceReadInst reads from a resource.
type ResourceReadInst struct {
	instBase
	op ResourceReadOp
}

func (*ResourceReadInst) Tag() Tag { return TagResourceRead }

// Op returns the read operation.
func (r *ResourceReadInst) Op() ResourceReadOp { return r.op }

// ResourceWriteOp enumerates resource writes.
type ResourceWriteOp uint8

const (
	ResourceWriteBuffer ResourceWriteOp = iota
	ResourceWriteTexture
	ResourceWriteAccelInstanceTransform
)

// ResourceWriteInst writes to a resource.
type ResourceWriteInst struct {
	instBase
	op ResourceWriteOp
}

func (*ResourceWriteInst) Tag() Tag { return TagResourceWrite }

// Op returns the write operation.
func (r *ResourceWriteInst) Op() ResourceWriteOp { return r.op }

// RayQueryObjectReadOp enumerates reads of a ray query object.
type RayQueryObjectReadOp uint8

const (
	RayQueryWorldSpaceRay RayQueryObjectReadOp = iota
	RayQueryProceduralCandidateHit
	RayQueryTriangleCandidateHit
	RayQueryCommittedHit
	RayQueryIsTriangleCandidate
	RayQueryIsProceduralCandidate
	RayQueryIsTerminated
)

// RayQueryObjectReadInst reads state from a ray query object.
type RayQueryObjectReadInst struct {
	instBase
	op RayQueryObjectReadOp
}

func (*RayQueryObjectReadInst) Tag() Tag { return TagRayQueryObjectRead }

// Op returns the read operation.
func (r *RayQueryObjectReadInst) Op() RayQueryObjectReadOp { return r.op }

// RayQueryObjectWriteOp enumerates updates of a ray query object.
type RayQueryObjectWriteOp uint8

const (
	RayQueryCommitTriangle RayQueryObjectWriteOp = iota
	RayQueryCommitProcedural
	RayQueryTerminate
	RayQueryProceed
)

// RayQueryObjectWriteInst updates a ray query object.
type RayQueryObjectWriteInst struct {
	instBase
	op RayQueryObjectWriteOp
}

func (*RayQueryObjectWriteInst) Tag() Tag { return TagRayQueryObjectWrite }

// Op returns the write operation.
func (r *RayQueryObjectWriteInst) Op() RayQueryObjectWriteOp { return r.op }

// RayQueryPipelineInst runs a ray query with outlined candidate handlers.
// Operands are the query object, the on-surface function, the on-procedural
// function (either may be nil) and the captured arguments passed to both.
type RayQueryPipelineInst struct {
	instBase
}

func (*RayQueryPipelineInst) Tag() Tag { return TagRayQueryPipeline }

// QueryObject returns the ray query object.
func (p *RayQueryPipelineInst) QueryObject() Value { return p.Operand(0) }

// OnSurfaceFunction returns the triangle candidate handler, or nil.
func (p *RayQueryPipelineInst) OnSurfaceFunction() *Function { return functionOperand(p.Operand(1)) }

// OnProceduralFunction returns the procedural candidate handler, or nil.
func (p *RayQueryPipelineInst) OnProceduralFunction() *Function {
	return functionOperand(p.Operand(2))
}

// CapturedArguments returns the values passed to the handlers after the
// query object.
func (p *RayQueryPipelineInst) CapturedArguments() []Value { return p.operandValues(3) }

// PrintInst prints its operands with a format string.
type PrintInst struct {
	instBase
	Format string
}

func (*PrintInst) Tag() Tag { return TagPrint }

// ClockInst reads the device clock.
type ClockInst struct {
	instBase
}

func (*ClockInst) Tag() Tag { return TagClock }

// AssertInst aborts execution when its condition is false.
type AssertInst struct {
	instBase
	Message string
}

func (*AssertInst) Tag() Tag { return TagAssert }

// Condition returns the asserted condition.
func (a *AssertInst) Condition() Value { return a.Operand(0) }

// AssumeInst tells backends that its condition holds.
type AssumeInst struct {
	instBase
	Message string
}

func (*AssumeInst) Tag() Tag { return TagAssume }

// Condition returns the assumed condition.
func (a *AssumeInst) Condition() Value { return a.Operand(0) }

// AutodiffIntrinsicOp enumerates automatic differentiation intrinsics.
type AutodiffIntrinsicOp uint8

const (
	AutodiffRequiresGradient AutodiffIntrinsicOp = iota
	AutodiffGradient
	AutodiffGradientMarker
	AutodiffAccumulateGradient
	AutodiffBackward
	AutodiffDetach
)

var autodiffOpNames = [...]string{
	"requires_grad", "grad", "grad_marker", "accumulate_grad", "backward", "detach",
}

// String returns the name of the intrinsic.
func (op AutodiffIntrinsicOp) String() string {
	if int(op) < len(autodiffOpNames) {
		return autodiffOpNames[op]
	}
	return "unknown"
}

// AutodiffIntrinsicInst is an automatic differentiation intrinsic.
type AutodiffIntrinsicInst struct {
	instBase
	op AutodiffIntrinsicOp
}

func (*AutodiffIntrinsicInst) Tag() Tag { return TagAutodiffIntrinsic }

// Op returns the intrinsic.
func (a *AutodiffIntrinsicInst) Op() AutodiffIntrinsicOp { return a.op }
