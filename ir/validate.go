package ir

import (
	"fmt"
)

// ValidationError represents a validation error.
type ValidationError struct {
	Message string
	// Optional context
	Function    string
	Block       string
	Instruction string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Function != "" {
		if e.Instruction != "" {
			return fmt.Sprintf("in function %s, instruction %s: %s", e.Function, e.Instruction, e.Message)
		}
		if e.Block != "" {
			return fmt.Sprintf("in function %s, block %s: %s", e.Function, e.Block, e.Message)
		}
		return fmt.Sprintf("in function %s: %s", e.Function, e.Message)
	}
	return e.Message
}

// Validator checks the structural invariants of a module.
//
// Unlike the assertions raised while building or rewriting IR, the
// validator never panics: it collects every violation it finds so that
// tests and the pipeline can report them together.
type Validator struct {
	module  *Module
	errors  []ValidationError
	context validationContext
}

// validationContext holds current validation context.
type validationContext struct {
	function *Function
	block    *BasicBlock
	inst     Instruction
}

// Validate checks the module for structural correctness.
// Returns validation errors if any, or nil if the module is valid.
func Validate(module *Module) ([]ValidationError, error) {
	if module == nil {
		return nil, fmt.Errorf("module is nil")
	}

	v := &Validator{
		module: module,
		errors: make([]ValidationError, 0),
	}

	v.ValidateModule()

	if len(v.errors) > 0 {
		return v.errors, nil
	}
	return nil, nil
}

// ValidateModule validates the complete module.
func (v *Validator) ValidateModule() {
	for _, f := range v.module.functions {
		v.validateFunction(f)
	}
	v.validateUseLists()
}

func (v *Validator) validateFunction(f *Function) {
	v.context = validationContext{function: f}
	if f.module != v.module {
		v.addErrorInFunction("function and module should be in the same pool")
		return
	}
	for i, a := range f.args {
		if a.parent != f || a.index != i {
			v.addErrorInFunction(fmt.Sprintf("argument %d has inconsistent parent or index", i))
		}
	}
	if !f.IsDefinition() {
		if f.body != nil {
			v.addErrorInFunction("external function has a body")
		}
		return
	}
	if f.body == nil {
		v.addErrorInFunction("function definition has no body block")
		return
	}
	for _, b := range f.ReversePostOrderBlocks() {
		v.validateBlock(b)
	}
}

func (v *Validator) validateBlock(b *BasicBlock) {
	v.context.block = b
	v.context.inst = nil
	if b.parent != v.context.function {
		v.addErrorInBlock("block is reachable from a different function")
	}
	if b.Empty() {
		v.addErrorInBlock("reachable block is empty")
		return
	}
	if !b.IsTerminated() {
		v.addErrorInBlock("reachable block does not end in a terminator")
	}

	preds := b.Predecessors()
	seenNonPhi := false
	count := 0
	var prev Instruction
	for inst := b.head; inst != nil; inst = inst.Next() {
		v.context.inst = inst
		count++
		if inst.Block() != b || inst.Prev() != prev {
			v.addErrorInInstruction("instruction list links are inconsistent")
		}
		prev = inst
		if inst.IsTerminator() && inst != b.tail {
			v.addErrorInInstruction("terminator in the middle of a block")
		}
		if phi, ok := inst.(*PhiInst); ok {
			if seenNonPhi {
				v.addErrorInInstruction("phi is not at the head of its block")
			}
			v.validatePhi(phi, preds)
		} else {
			seenNonPhi = true
		}
		v.validateOperands(inst)
		v.validateInstruction(inst)
	}
	if count != b.count {
		v.context.inst = nil
		v.addErrorInBlock(fmt.Sprintf("block records %d instructions, found %d", b.count, count))
	}
}

func (v *Validator) validatePhi(phi *PhiInst, preds []*BasicBlock) {
	if phi.IncomingCount() != len(preds) {
		v.addErrorInInstruction(fmt.Sprintf("phi has %d incomings for %d predecessors", phi.IncomingCount(), len(preds)))
	}
	for i := 0; i < phi.IncomingCount(); i++ {
		in := phi.Incoming(i)
		if in.Value == nil || in.Block == nil {
			v.addErrorInInstruction(fmt.Sprintf("phi incoming %d is incomplete", i))
			continue
		}
		if !containsBlock(preds, in.Block) {
			v.addErrorInInstruction(fmt.Sprintf("phi incoming block %s is not a predecessor", blockLabel(in.Block)))
		}
	}
}

func (v *Validator) validateOperands(inst Instruction) {
	for i, u := range inst.OperandUses() {
		if u.user != inst {
			v.addErrorInInstruction(fmt.Sprintf("operand %d is owned by another instruction", i))
		}
		op := u.value
		if op == nil {
			continue
		}
		if op.Module() != v.module {
			v.addErrorInInstruction(fmt.Sprintf("operand %d and user should be in the same pool", i))
			continue
		}
		if !u.linked {
			v.addErrorInInstruction(fmt.Sprintf("operand %d is missing from its value's use-list", i))
		}
		switch def := op.(type) {
		case Instruction:
			if def.Block() == nil {
				v.addErrorInInstruction(fmt.Sprintf("operand %d is a detached instruction", i))
			} else if def.Function() != v.context.function {
				v.addErrorInInstruction(fmt.Sprintf("operand %d is defined in another function", i))
			}
		case *Argument:
			if def.parent != v.context.function {
				v.addErrorInInstruction(fmt.Sprintf("operand %d is an argument of another function", i))
			}
		case *BasicBlock:
			if def.parent != v.context.function {
				v.addErrorInInstruction(fmt.Sprintf("operand %d is a block of another function", i))
			}
		}
	}
}

//nolint:gocyclo,cyclop // Instruction validation requires checking many instruction kinds
func (v *Validator) validateInstruction(inst Instruction) {
	switch i := inst.(type) {
	case *LoadInst:
		if variable := i.Variable(); variable == nil || !variable.IsLValue() {
			v.addErrorInInstruction("load from a non-lvalue")
		} else if variable.Type() != i.Type() {
			v.addErrorInInstruction(fmt.Sprintf("load type %s does not match variable type %s", i.Type(), variable.Type()))
		}
	case *StoreInst:
		variable, value := i.Variable(), i.Value()
		if variable == nil || !variable.IsLValue() {
			v.addErrorInInstruction("store to a non-lvalue")
		} else if value == nil || value.Type() != variable.Type() {
			v.addErrorInInstruction(fmt.Sprintf("store value type %s does not match variable type %s", typeOf(value), variable.Type()))
		}
	case *GEPInst:
		if base := i.Base(); base == nil || !base.IsLValue() {
			v.addErrorInInstruction("gep base is not an lvalue")
		} else if ElementType(base.Type(), i.Indices()) != i.Type() {
			v.addErrorInInstruction(fmt.Sprintf("gep result type %s does not match the addressed element", i.Type()))
		}
	case ConditionalBranch:
		if c := i.Condition(); c == nil || !c.Type().IsBool() {
			v.addErrorInInstruction("branch condition is not a bool")
		}
		if i.TrueBlock() == nil || i.FalseBlock() == nil {
			v.addErrorInInstruction("conditional branch is missing a target")
		}
	case Branch:
		if i.TargetBlock() == nil {
			v.addErrorInInstruction("branch has no target")
		}
	case *SwitchInst:
		if i.DefaultBlock() == nil {
			v.addErrorInInstruction("switch has no default block")
		}
	case *RayQueryDispatchInst:
		if i.ExitBlock() == nil {
			v.addErrorInInstruction("ray query dispatch has no exit block")
		}
	case *ReturnInst:
		f := v.context.function
		if rv := i.ReturnValue(); rv == nil && f.Type() != nil {
			v.addErrorInInstruction("missing return value")
		} else if rv != nil && rv.Type() != f.Type() {
			v.addErrorInInstruction(fmt.Sprintf("return value type %s does not match function type %s", rv.Type(), f.Type()))
		}
	case *CallInst:
		callee := i.Callee()
		if callee == nil {
			v.addErrorInInstruction("call has no callee")
		} else if len(callee.args) != len(i.Arguments()) {
			v.addErrorInInstruction(fmt.Sprintf("callee takes %d arguments, got %d", len(callee.args), len(i.Arguments())))
		}
	}
}

// validateUseLists checks that every use recorded on a value belongs to a
// linked instruction that references the value through that use.
func (v *Validator) validateUseLists() {
	v.context = validationContext{}
	for id, value := range v.module.pool.values {
		n := 0
		for u := value.base().useHead; u != nil; u = u.next {
			n++
			if u.value != value {
				v.addError(fmt.Sprintf("value %%%d: use-list holds a use of another value", id))
				continue
			}
			if u.user.Block() == nil {
				v.addError(fmt.Sprintf("value %%%d: use-list holds a use of a detached instruction", id))
				continue
			}
			if !containsUse(u.user.OperandUses(), u) {
				v.addError(fmt.Sprintf("value %%%d: use-list holds a use its user does not own", id))
			}
		}
		if n != value.UseCount() {
			v.addError(fmt.Sprintf("value %%%d: use count %d does not match use-list length %d", id, value.UseCount(), n))
		}
	}
}

func containsUse(uses []*Use, u *Use) bool {
	for _, x := range uses {
		if x == u {
			return true
		}
	}
	return false
}

func blockLabel(b *BasicBlock) string {
	return fmt.Sprintf("bb%d", b.id)
}

// addError adds a validation error.
func (v *Validator) addError(msg string) {
	v.errors = append(v.errors, ValidationError{Message: msg})
}

// addErrorInFunction adds a validation error with function context.
func (v *Validator) addErrorInFunction(msg string) {
	v.errors = append(v.errors, ValidationError{
		Message:  msg,
		Function: v.context.function.Label(),
	})
}

// addErrorInBlock adds a validation error with block context.
func (v *Validator) addErrorInBlock(msg string) {
	v.errors = append(v.errors, ValidationError{
		Message:  msg,
		Function: v.context.function.Label(),
		Block:    blockLabel(v.context.block),
	})
}

// addErrorInInstruction adds a validation error with instruction context.
func (v *Validator) addErrorInInstruction(msg string) {
	v.errors = append(v.errors, ValidationError{
		Message:     msg,
		Function:    v.context.function.Label(),
		Block:       blockLabel(v.context.block),
		Instruction: fmt.Sprintf("%%%d (%s)", v.context.inst.ID(), v.context.inst.Tag()),
	})
}
