// Package bytecode implements the stack machine behind module containers:
// verification, interpretation, assembly and disassembly.
package bytecode

import (
	"fmt"

	m "gooze.dev/pkg/bytemut/internal/model"
)

// Verify checks every reference and the stack shape of every method body.
// A module that passes can be serialized and executed.
func Verify(mod *m.Module) error {
	if mod == nil {
		return fmt.Errorf("nil module")
	}

	if mod.Name == "" {
		return fmt.Errorf("module has no name")
	}

	for ti, t := range mod.Types {
		for _, mh := range t.Methods {
			method, ok := mod.Method(mh)
			if !ok {
				return fmt.Errorf("type %s: dangling method handle %d", t.FullName(), mh)
			}

			if method.Owner != m.TypeHandle(ti) {
				return fmt.Errorf("type %s: method %s is owned by type %d", t.FullName(), method.Name, method.Owner)
			}
		}
	}

	for mi := range mod.Methods {
		if err := verifyMethod(mod, m.MethodHandle(mi)); err != nil {
			return fmt.Errorf("%s: %w", mod.MethodFullName(m.MethodHandle(mi)), err)
		}
	}

	return nil
}

// StackEffect returns how many values ins pops and pushes.
func StackEffect(mod *m.Module, ins m.Instruction) (pops, pushes int, err error) {
	switch ins.Op {
	case m.OpNop, m.OpBr:
		return 0, 0, nil
	case m.OpLdArg, m.OpLdLoc, m.OpLdc:
		return 0, 1, nil
	case m.OpStLoc, m.OpBrTrue, m.OpBrFalse, m.OpRet, m.OpPop:
		return 1, 0, nil
	case m.OpNeg, m.OpNot:
		return 1, 1, nil
	case m.OpDup:
		return 1, 2, nil
	case m.OpAdd, m.OpSub, m.OpMul, m.OpDiv, m.OpRem, m.OpAnd, m.OpOr,
		m.OpCeq, m.OpCne, m.OpClt, m.OpCle, m.OpCgt, m.OpCge:
		return 2, 1, nil
	case m.OpCall:
		_, callee, ok := CallTarget(mod, ins)
		if !ok {
			return 0, 0, fmt.Errorf("call to dangling method handle %d", ins.Operand)
		}

		return callee.Params, 1, nil
	default:
		return 0, 0, fmt.Errorf("unknown opcode %d", ins.Op)
	}
}

// CallTarget resolves the callee of a call instruction. Operands outside the
// method arena do not resolve.
func CallTarget(mod *m.Module, ins m.Instruction) (m.MethodHandle, *m.MethodDef, bool) {
	if ins.Operand < 0 || ins.Operand >= int64(len(mod.Methods)) {
		return 0, nil, false
	}

	h := m.MethodHandle(ins.Operand)
	def, ok := mod.Method(h)

	return h, def, ok
}

func verifyMethod(mod *m.Module, h m.MethodHandle) error {
	method, _ := mod.Method(h)

	if _, ok := mod.Type(method.Owner); !ok {
		return fmt.Errorf("dangling owner handle %d", method.Owner)
	}

	if method.Params < 0 || method.Locals < 0 {
		return fmt.Errorf("negative parameter or local count")
	}

	if len(method.Body) == 0 {
		return fmt.Errorf("empty body")
	}

	for pc, ins := range method.Body {
		if err := checkOperand(mod, method, ins); err != nil {
			return fmt.Errorf("offset %d: %w", pc, err)
		}
	}

	return checkStack(mod, method)
}

// checkOperand runs on every instruction, reachable or not.
func checkOperand(mod *m.Module, method *m.MethodDef, ins m.Instruction) error {
	switch {
	case !ins.Op.Valid():
		return fmt.Errorf("unknown opcode %d", ins.Op)
	case ins.Op == m.OpLdArg && (ins.Operand < 0 || ins.Operand >= int64(method.Params)):
		return fmt.Errorf("argument %d out of range", ins.Operand)
	case (ins.Op == m.OpLdLoc || ins.Op == m.OpStLoc) && (ins.Operand < 0 || ins.Operand >= int64(method.Locals)):
		return fmt.Errorf("local %d out of range", ins.Operand)
	case ins.Op.IsBranch() && (ins.Operand < 0 || ins.Operand >= int64(len(method.Body))):
		return fmt.Errorf("branch target %d out of range", ins.Operand)
	case ins.Op == m.OpCall:
		if _, _, ok := CallTarget(mod, ins); !ok {
			return fmt.Errorf("call to dangling method handle %d", ins.Operand)
		}
	}

	return nil
}

// checkStack walks every reachable path and requires a consistent stack depth
// at each offset, no underflow, and exactly one value on ret.
func checkStack(mod *m.Module, method *m.MethodDef) error {
	depth := make([]int, len(method.Body))
	for i := range depth {
		depth[i] = -1
	}

	work := []int{0}
	depth[0] = 0

	enqueue := func(pc, d int) error {
		if pc >= len(method.Body) {
			return fmt.Errorf("control falls off the end of the body")
		}

		switch depth[pc] {
		case -1:
			depth[pc] = d
			work = append(work, pc)
		case d:
		default:
			return fmt.Errorf("offset %d: stack depth %d conflicts with %d", pc, d, depth[pc])
		}

		return nil
	}

	for len(work) > 0 {
		pc := work[len(work)-1]
		work = work[:len(work)-1]
		ins := method.Body[pc]

		pops, pushes, err := StackEffect(mod, ins)
		if err != nil {
			return fmt.Errorf("offset %d: %w", pc, err)
		}

		if depth[pc] < pops {
			return fmt.Errorf("offset %d: stack underflow on %s", pc, ins.Op)
		}

		next := depth[pc] - pops + pushes

		switch ins.Op {
		case m.OpRet:
			if depth[pc] != 1 {
				return fmt.Errorf("offset %d: ret with stack depth %d", pc, depth[pc])
			}
		case m.OpBr:
			if err := enqueue(int(ins.Operand), next); err != nil {
				return err
			}
		case m.OpBrTrue, m.OpBrFalse:
			if err := enqueue(int(ins.Operand), next); err != nil {
				return err
			}

			if err := enqueue(pc+1, next); err != nil {
				return err
			}
		default:
			if err := enqueue(pc+1, next); err != nil {
				return err
			}
		}
	}

	return nil
}
