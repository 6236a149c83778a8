package printer

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/gogpu/xir/ir"
)

// Options configures the text form.
type Options struct {
	// Comments writes value names, value comments and block predecessors as
	// ';' line comments.
	Comments bool

	// Types annotates every instruction result with its type and every
	// constant with its type.
	Types bool
}

// DefaultOptions returns the options used by Print.
func DefaultOptions() Options {
	return Options{
		Comments: true,
		Types:    true,
	}
}

// Print renders m with the default options.
func Print(m *ir.Module) string {
	return PrintWithOptions(m, DefaultOptions())
}

// PrintWithOptions renders every function of m in module order.
func PrintWithOptions(m *ir.Module, opts Options) string {
	w := newWriter(opts)
	w.writeLine("module %s", strconv.Quote(m.Name))
	for _, f := range m.Functions() {
		w.out.WriteByte('\n')
		w.writeFunction(f)
	}
	return w.String()
}

// PrintFunction renders a single function.
func PrintFunction(f *ir.Function, opts Options) string {
	w := newWriter(opts)
	w.writeFunction(f)
	return w.String()
}

// Writer accumulates the text form of a module.
type Writer struct {
	opts   Options
	out    strings.Builder
	indent int
}

func newWriter(opts Options) *Writer {
	return &Writer{opts: opts}
}

// String returns the text written so far.
func (w *Writer) String() string {
	return w.out.String()
}

// writeLine writes one indented line.
//
//nolint:goprintffuncname
func (w *Writer) writeLine(format string, args ...any) {
	for i := 0; i < w.indent; i++ {
		w.out.WriteString("  ")
	}
	if len(args) == 0 {
		w.out.WriteString(format)
	} else {
		fmt.Fprintf(&w.out, format, args...)
	}
	w.out.WriteByte('\n')
}

func (w *Writer) writeComments(v ir.Value) {
	if !w.opts.Comments {
		return
	}
	for _, c := range v.Comments() {
		w.writeLine("; %s", c)
	}
}

func (w *Writer) writeFunction(f *ir.Function) {
	w.writeComments(f)
	var sb strings.Builder
	sb.WriteString(f.FunctionKind().String())
	sb.WriteByte(' ')
	sb.WriteString(f.Label())
	sb.WriteByte('(')
	for i, a := range f.Arguments() {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(valueRef(a))
		sb.WriteString(": ")
		switch a.ArgumentKind() {
		case ir.ArgumentReference:
			sb.WriteByte('&')
		case ir.ArgumentResource:
			sb.WriteString("resource ")
		}
		sb.WriteString(a.Type().String())
	}
	sb.WriteByte(')')
	if f.Type() != nil {
		sb.WriteString(" -> ")
		sb.WriteString(f.Type().String())
	}
	if !f.IsDefinition() || f.BodyBlock() == nil {
		w.writeLine("%s", sb.String())
		return
	}
	sb.WriteString(" {")
	w.writeLine("%s", sb.String())
	for _, blk := range f.ReversePostOrderBlocks() {
		w.writeBlock(blk)
	}
	w.writeLine("}")
}

func (w *Writer) writeBlock(blk *ir.BasicBlock) {
	label := blockRef(blk) + ":"
	if w.opts.Comments {
		if preds := blk.Predecessors(); len(preds) > 0 {
			refs := make([]string, len(preds))
			for i, p := range preds {
				refs[i] = blockRef(p)
			}
			label += " ; preds " + strings.Join(refs, ", ")
		}
	}
	w.writeLine("%s", label)
	w.indent++
	for inst := blk.First(); inst != nil; inst = inst.Next() {
		w.writeComments(inst)
		w.writeLine("%s", w.instruction(inst))
	}
	w.indent--
}

// instruction renders inst as "%<id> = <kind> <operands>", or without the
// result for instructions producing no value.
func (w *Writer) instruction(inst ir.Instruction) string {
	var sb strings.Builder
	if inst.Type() != nil {
		sb.WriteString(valueRef(inst))
		sb.WriteString(" = ")
	}
	sb.WriteString(kindName(inst))
	if operands := w.operands(inst); operands != "" {
		sb.WriteByte(' ')
		sb.WriteString(operands)
	}
	if w.opts.Types && inst.Type() != nil {
		sb.WriteString(" : ")
		sb.WriteString(inst.Type().String())
	}
	if w.opts.Comments && inst.Name() != "" {
		sb.WriteString(" ; ")
		sb.WriteString(inst.Name())
	}
	return sb.String()
}

// kindName returns the tag of inst, qualified by its operation if it has one.
func kindName(inst ir.Instruction) string {
	tag := inst.Tag().String()
	switch inst := inst.(type) {
	case *ir.AllocaInst:
		return tag + "." + inst.Space().String()
	case *ir.AtomicInst:
		return tag + "." + inst.Op().String()
	case *ir.ArithmeticInst:
		return tag + "." + inst.Op().String()
	case *ir.CastInst:
		return tag + "." + inst.Op().String()
	case *ir.ThreadGroupInst:
		return tag + "." + opName(threadGroupOpNames[:], int(inst.Op()))
	case *ir.ResourceQueryInst:
		return tag + "." + opName(resourceQueryOpNames[:], int(inst.Op()))
	case *ir.ResourceReadInst:
		return tag + "." + opName(resourceReadOpNames[:], int(inst.Op()))
	case *ir.ResourceWriteInst:
		return tag + "." + opName(resourceWriteOpNames[:], int(inst.Op()))
	case *ir.RayQueryObjectReadInst:
		return tag + "." + opName(rayQueryReadOpNames[:], int(inst.Op()))
	case *ir.RayQueryObjectWriteInst:
		return tag + "." + opName(rayQueryWriteOpNames[:], int(inst.Op()))
	case *ir.AutodiffIntrinsicInst:
		return tag + "." + inst.Op().String()
	}
	return tag
}

func (w *Writer) operands(inst ir.Instruction) string {
	var parts []string
	switch inst := inst.(type) {
	case *ir.PhiInst:
		for _, in := range inst.Incomings() {
			parts = append(parts, "["+w.operand(in.Value)+", "+blockRef(in.Block)+"]")
		}
		return strings.Join(parts, ", ")
	case *ir.SwitchInst:
		parts = append(parts, w.operand(inst.Selector()))
		for i := 0; i < inst.CaseCount(); i++ {
			parts = append(parts, fmt.Sprintf("case %d %s", inst.CaseValue(i), w.operand(inst.CaseBlock(i))))
		}
		parts = append(parts, "default "+w.operand(inst.DefaultBlock()))
	case *ir.LoopInst:
		parts = append(parts,
			"prepare "+w.operand(inst.PrepareBlock()),
			"body "+w.operand(inst.BodyBlock()),
			"update "+w.operand(inst.UpdateBlock()))
	case *ir.PrintInst:
		parts = append(parts, strconv.Quote(inst.Format))
		parts = append(parts, w.operandList(inst.Operands())...)
	case *ir.AssertInst:
		parts = append(parts, w.operandList(inst.Operands())...)
		parts = append(parts, strconv.Quote(inst.Message))
	case *ir.AssumeInst:
		parts = append(parts, w.operandList(inst.Operands())...)
		parts = append(parts, strconv.Quote(inst.Message))
	case *ir.UnreachableInst:
		if inst.Message != "" {
			parts = append(parts, strconv.Quote(inst.Message))
		}
	default:
		parts = w.operandList(inst.Operands())
	}
	if cfm, ok := inst.(ir.ControlFlowMerge); ok && cfm.MergeBlock() != nil {
		parts = append(parts, "merge "+blockRef(cfm.MergeBlock()))
	}
	return strings.Join(parts, ", ")
}

func (w *Writer) operandList(ops []ir.Value) []string {
	parts := make([]string, len(ops))
	for i, op := range ops {
		parts[i] = w.operand(op)
	}
	return parts
}

// operand renders a reference to v as it appears inside an instruction.
func (w *Writer) operand(v ir.Value) string {
	if v == nil {
		return "_"
	}
	switch v := v.(type) {
	case *ir.BasicBlock:
		if v == nil {
			return "_"
		}
		return blockRef(v)
	case *ir.Function:
		if v == nil {
			return "_"
		}
		return v.Label()
	case *ir.Constant:
		s := constantString(v.Type(), v.Data())
		if w.opts.Types {
			s += ":" + v.Type().String()
		}
		return s
	case *ir.Undefined:
		return "undef:" + v.Type().String()
	case *ir.SpecialRegister:
		return "$" + v.Register().String()
	}
	return valueRef(v)
}

func valueRef(v ir.Value) string {
	return "%" + strconv.FormatUint(uint64(v.ID()), 10)
}

func blockRef(b *ir.BasicBlock) string {
	return "bb" + strconv.FormatUint(uint64(b.ID()), 10)
}

// constantString decodes a constant payload of type t.
func constantString(t *ir.Type, data []byte) string {
	if s, ok := t.Scalar(); ok {
		switch s.Kind {
		case ir.ScalarBool:
			return strconv.FormatBool(data[0] != 0)
		case ir.ScalarSint:
			return strconv.FormatInt(ir.DecodeInt(s, data), 10)
		case ir.ScalarUint:
			return strconv.FormatUint(uint64(ir.DecodeInt(s, data)), 10)
		default:
			if s.Width == 8 {
				return strconv.FormatFloat(math.Float64frombits(binary.LittleEndian.Uint64(data)), 'g', -1, 64)
			}
			return strconv.FormatFloat(float64(math.Float32frombits(binary.LittleEndian.Uint32(data))), 'g', -1, 32)
		}
	}
	parts := make([]string, t.ElementCount())
	offset := 0
	for i := range parts {
		et := t.Element(i)
		parts[i] = constantString(et, data[offset:offset+et.Size()])
		offset += et.Size()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
