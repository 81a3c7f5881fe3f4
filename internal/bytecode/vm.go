package bytecode

import (
	"context"
	"errors"
	"fmt"

	m "gooze.dev/pkg/bytemut/internal/model"
)

const (
	// DefaultMaxSteps bounds the instructions executed by one invocation.
	DefaultMaxSteps = 1_000_000
	// DefaultMaxDepth bounds the call depth of one invocation.
	DefaultMaxDepth = 256

	ctxCheckInterval = 4096
)

var (
	// ErrDivideByZero is raised by div and rem with a zero divisor.
	ErrDivideByZero = errors.New("divide by zero")
	// ErrStepLimit is raised when an invocation exceeds its step budget.
	ErrStepLimit = errors.New("step limit exceeded")
	// ErrStackOverflow is raised when the call depth limit is reached.
	ErrStackOverflow = errors.New("call stack overflow")
)

// Machine interprets verified modules.
type Machine struct {
	mod      *m.Module
	maxSteps int
	maxDepth int
}

// MachineOption configures a Machine.
type MachineOption func(*Machine)

// WithMaxSteps overrides DefaultMaxSteps.
func WithMaxSteps(steps int) MachineOption {
	return func(vm *Machine) {
		if steps > 0 {
			vm.maxSteps = steps
		}
	}
}

// WithMaxDepth overrides DefaultMaxDepth.
func WithMaxDepth(depth int) MachineOption {
	return func(vm *Machine) {
		if depth > 0 {
			vm.maxDepth = depth
		}
	}
}

// NewMachine creates a Machine for mod. The module must have passed Verify.
func NewMachine(mod *m.Module, opts ...MachineOption) *Machine {
	vm := &Machine{mod: mod, maxSteps: DefaultMaxSteps, maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(vm)
	}

	return vm
}

// Invoke runs method h with args and returns its result.
func (vm *Machine) Invoke(ctx context.Context, h m.MethodHandle, args []int64) (int64, error) {
	method, ok := vm.mod.Method(h)
	if !ok {
		return 0, fmt.Errorf("unknown method handle %d", h)
	}

	if len(args) != method.Params {
		return 0, fmt.Errorf("%s expects %d arguments, got %d", vm.mod.MethodFullName(h), method.Params, len(args))
	}

	steps := 0

	return vm.run(ctx, h, args, 0, &steps)
}

func (vm *Machine) run(ctx context.Context, h m.MethodHandle, args []int64, depth int, steps *int) (int64, error) {
	if depth >= vm.maxDepth {
		return 0, ErrStackOverflow
	}

	method, _ := vm.mod.Method(h)
	locals := make([]int64, method.Locals)
	stack := make([]int64, 0, 8)

	pop := func() int64 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		return v
	}

	pc := 0
	for {
		*steps++
		if *steps > vm.maxSteps {
			return 0, ErrStepLimit
		}

		if *steps%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}

		ins := method.Body[pc]
		pc++

		switch ins.Op {
		case m.OpNop:
		case m.OpLdArg:
			stack = append(stack, args[ins.Operand])
		case m.OpLdLoc:
			stack = append(stack, locals[ins.Operand])
		case m.OpStLoc:
			locals[ins.Operand] = pop()
		case m.OpLdc:
			stack = append(stack, ins.Operand)
		case m.OpNeg:
			stack = append(stack, -pop())
		case m.OpNot:
			stack = append(stack, boolValue(pop() == 0))
		case m.OpDup:
			v := pop()
			stack = append(stack, v, v)
		case m.OpPop:
			pop()
		case m.OpBr:
			pc = int(ins.Operand)
		case m.OpBrTrue:
			if pop() != 0 {
				pc = int(ins.Operand)
			}
		case m.OpBrFalse:
			if pop() == 0 {
				pc = int(ins.Operand)
			}
		case m.OpCall:
			target, callee, ok := CallTarget(vm.mod, ins)
			if !ok {
				return 0, fmt.Errorf("%s@%d: call to dangling method handle %d", vm.mod.MethodFullName(h), pc-1, ins.Operand)
			}

			callArgs := make([]int64, callee.Params)

			for i := callee.Params - 1; i >= 0; i-- {
				callArgs[i] = pop()
			}

			result, err := vm.run(ctx, target, callArgs, depth+1, steps)
			if err != nil {
				return 0, err
			}

			stack = append(stack, result)
		case m.OpRet:
			return pop(), nil
		default:
			b, a := pop(), pop()

			v, err := binary(ins.Op, a, b)
			if err != nil {
				return 0, fmt.Errorf("%s offset %d: %w", vm.mod.MethodFullName(h), pc-1, err)
			}

			stack = append(stack, v)
		}
	}
}

func binary(op m.OpCode, a, b int64) (int64, error) {
	switch op {
	case m.OpAdd:
		return a + b, nil
	case m.OpSub:
		return a - b, nil
	case m.OpMul:
		return a * b, nil
	case m.OpDiv:
		if b == 0 {
			return 0, ErrDivideByZero
		}

		return a / b, nil
	case m.OpRem:
		if b == 0 {
			return 0, ErrDivideByZero
		}

		return a % b, nil
	case m.OpAnd:
		return boolValue(a != 0 && b != 0), nil
	case m.OpOr:
		return boolValue(a != 0 || b != 0), nil
	case m.OpCeq:
		return boolValue(a == b), nil
	case m.OpCne:
		return boolValue(a != b), nil
	case m.OpClt:
		return boolValue(a < b), nil
	case m.OpCle:
		return boolValue(a <= b), nil
	case m.OpCgt:
		return boolValue(a > b), nil
	case m.OpCge:
		return boolValue(a >= b), nil
	default:
		return 0, fmt.Errorf("unexpected opcode %s", op)
	}
}

func boolValue(b bool) int64 {
	if b {
		return 1
	}

	return 0
}
