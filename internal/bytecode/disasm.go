package bytecode

import (
	"fmt"
	"strings"

	m "gooze.dev/pkg/bytemut/internal/model"
)

// Render returns the text of method h in the requested language.
func Render(lang m.CodeLanguage, mod *m.Module, h m.MethodHandle) (string, error) {
	switch lang {
	case m.LanguageIL, "":
		return Disassemble(mod, h)
	case m.LanguageExpr:
		return Decompile(mod, h)
	default:
		return "", fmt.Errorf("unsupported code language %q", lang)
	}
}

// Disassemble lists method h one instruction per line, in assembler syntax.
func Disassemble(mod *m.Module, h m.MethodHandle) (string, error) {
	method, ok := mod.Method(h)
	if !ok {
		return "", fmt.Errorf("unknown method handle %d", h)
	}

	var b strings.Builder

	fmt.Fprintf(&b, "method %s %d %d\n", mod.MethodFullName(h), method.Params, method.Locals)

	for pc, ins := range method.Body {
		fmt.Fprintf(&b, "  IL_%04d: %s", pc, ins.Op)

		switch {
		case ins.Op == m.OpCall:
			fmt.Fprintf(&b, " %s", mod.MethodFullName(m.MethodHandle(ins.Operand)))
		case ins.Op.IsBranch():
			fmt.Fprintf(&b, " IL_%04d", ins.Operand)
		case ins.Op.HasOperand():
			fmt.Fprintf(&b, " %d", ins.Operand)
		}

		b.WriteByte('\n')
	}

	b.WriteString("end\n")

	return b.String(), nil
}

var infix = map[m.OpCode]string{
	m.OpAdd: "+", m.OpSub: "-", m.OpMul: "*", m.OpDiv: "/", m.OpRem: "%",
	m.OpAnd: "&&", m.OpOr: "||",
	m.OpCeq: "==", m.OpCne: "!=", m.OpClt: "<", m.OpCle: "<=", m.OpCgt: ">", m.OpCge: ">=",
}

// Decompile rebuilds expression statements from method h by symbolic stack
// evaluation. Control flow stays as labels and gotos.
func Decompile(mod *m.Module, h m.MethodHandle) (string, error) {
	method, ok := mod.Method(h)
	if !ok {
		return "", fmt.Errorf("unknown method handle %d", h)
	}

	targets := map[int]bool{}

	for _, ins := range method.Body {
		if ins.Op.IsBranch() {
			targets[int(ins.Operand)] = true
		}
	}

	params := make([]string, method.Params)
	for i := range params {
		params[i] = fmt.Sprintf("a%d", i)
	}

	var (
		b     strings.Builder
		stack []string
	)

	pop := func() string {
		if len(stack) == 0 {
			return "?"
		}

		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		return v
	}
	emit := func(format string, args ...any) {
		fmt.Fprintf(&b, "  "+format+"\n", args...)
	}

	fmt.Fprintf(&b, "%s(%s) {\n", mod.MethodFullName(h), strings.Join(params, ", "))

	for pc, ins := range method.Body {
		if targets[pc] {
			fmt.Fprintf(&b, "L%d:\n", pc)
		}

		switch ins.Op {
		case m.OpNop:
		case m.OpLdArg:
			stack = append(stack, params[ins.Operand])
		case m.OpLdLoc:
			stack = append(stack, fmt.Sprintf("v%d", ins.Operand))
		case m.OpLdc:
			stack = append(stack, fmt.Sprint(ins.Operand))
		case m.OpStLoc:
			emit("v%d = %s;", ins.Operand, pop())
		case m.OpNeg:
			stack = append(stack, "-"+pop())
		case m.OpNot:
			stack = append(stack, "!"+pop())
		case m.OpDup:
			v := pop()
			stack = append(stack, v, v)
		case m.OpPop:
			emit("%s;", pop())
		case m.OpBr:
			emit("goto L%d;", ins.Operand)
		case m.OpBrTrue:
			emit("if (%s) goto L%d;", pop(), ins.Operand)
		case m.OpBrFalse:
			emit("if (!(%s)) goto L%d;", pop(), ins.Operand)
		case m.OpCall:
			callee, def, ok := CallTarget(mod, ins)
			if !ok {
				return "", fmt.Errorf("offset %d: call to dangling method handle %d", pc, ins.Operand)
			}

			args := make([]string, def.Params)

			for i := def.Params - 1; i >= 0; i-- {
				args[i] = pop()
			}

			stack = append(stack, fmt.Sprintf("%s(%s)", mod.MethodFullName(callee), strings.Join(args, ", ")))
		case m.OpRet:
			emit("return %s;", pop())
		default:
			r, l := pop(), pop()
			stack = append(stack, fmt.Sprintf("(%s %s %s)", l, infix[ins.Op], r))
		}
	}

	b.WriteString("}\n")

	return b.String(), nil
}
