package bytecode

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	m "gooze.dev/pkg/bytemut/internal/model"
)

type pendingInstruction struct {
	op   m.OpCode
	arg  string
	line int
}

type pendingMethod struct {
	handle m.MethodHandle
	labels map[string]int
	body   []pendingInstruction
}

// Assemble translates assembly text into a verified module and the symbols that
// map every instruction back to its line in document.
//
//	module calc
//	type Calc.Math
//	method Add 2 0
//	  ldarg 0
//	  ldarg 1
//	  add
//	  ret
//	end
//
// Branch operands may be labels ("loop:" on its own line); call operands are
// Namespace.Type::Method names, or a bare method name of the enclosing type.
func Assemble(document string, src []byte) (*m.Module, *m.Symbols, error) {
	mod := &m.Module{}

	var (
		methods []*pendingMethod
		current *pendingMethod
		typeIdx = m.TypeHandle(-1)
	)

	scanner := bufio.NewScanner(bytes.NewReader(src))
	lineNo := 0

	for scanner.Scan() {
		lineNo++

		line := scanner.Text()
		if i := strings.IndexByte(line, ';'); i >= 0 {
			line = line[:i]
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		if current != nil {
			done, err := assembleBodyLine(current, fields, lineNo)
			if err != nil {
				return nil, nil, err
			}

			if done {
				current = nil
			}

			continue
		}

		switch fields[0] {
		case "module":
			if len(fields) != 2 {
				return nil, nil, fmt.Errorf("line %d: usage: module <name>", lineNo)
			}

			mod.Name = fields[1]
		case "type":
			if len(fields) != 2 {
				return nil, nil, fmt.Errorf("line %d: usage: type <Namespace.Name>", lineNo)
			}

			ns, name := splitTypeName(fields[1])
			mod.Types = append(mod.Types, m.TypeDef{Namespace: ns, Name: name})
			typeIdx = m.TypeHandle(len(mod.Types) - 1)
		case "method":
			if typeIdx < 0 {
				return nil, nil, fmt.Errorf("line %d: method outside of a type", lineNo)
			}

			def, err := parseMethodHeader(fields, lineNo)
			if err != nil {
				return nil, nil, err
			}

			def.Owner = typeIdx
			mod.Methods = append(mod.Methods, def)
			handle := m.MethodHandle(len(mod.Methods) - 1)
			mod.Types[typeIdx].Methods = append(mod.Types[typeIdx].Methods, handle)
			current = &pendingMethod{handle: handle, labels: map[string]int{}}
			methods = append(methods, current)
		default:
			return nil, nil, fmt.Errorf("line %d: unexpected %q", lineNo, fields[0])
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("read assembly: %w", err)
	}

	if current != nil {
		return nil, nil, fmt.Errorf("method %s is missing its end", mod.MethodFullName(current.handle))
	}

	symbols := &m.Symbols{Module: mod.Name}

	for _, pm := range methods {
		ms, err := resolveBody(mod, pm, document)
		if err != nil {
			return nil, nil, err
		}

		symbols.Methods = append(symbols.Methods, ms)
	}

	if err := Verify(mod); err != nil {
		return nil, nil, fmt.Errorf("verify %s: %w", document, err)
	}

	return mod, symbols, nil
}

func splitTypeName(full string) (string, string) {
	if i := strings.LastIndexByte(full, '.'); i >= 0 {
		return full[:i], full[i+1:]
	}

	return "", full
}

func parseMethodHeader(fields []string, lineNo int) (m.MethodDef, error) {
	if len(fields) < 3 || len(fields) > 4 {
		return m.MethodDef{}, fmt.Errorf("line %d: usage: method <name> <params> [locals]", lineNo)
	}

	params, err := strconv.Atoi(fields[2])
	if err != nil {
		return m.MethodDef{}, fmt.Errorf("line %d: bad parameter count: %w", lineNo, err)
	}

	locals := 0
	if len(fields) == 4 {
		if locals, err = strconv.Atoi(fields[3]); err != nil {
			return m.MethodDef{}, fmt.Errorf("line %d: bad local count: %w", lineNo, err)
		}
	}

	return m.MethodDef{Name: fields[1], Params: params, Locals: locals}, nil
}

func assembleBodyLine(pm *pendingMethod, fields []string, lineNo int) (bool, error) {
	if fields[0] == "end" {
		return true, nil
	}

	if label, ok := strings.CutSuffix(fields[0], ":"); ok && len(fields) == 1 {
		if _, dup := pm.labels[label]; dup {
			return false, fmt.Errorf("line %d: duplicate label %q", lineNo, label)
		}

		pm.labels[label] = len(pm.body)

		return false, nil
	}

	op, ok := m.ParseOpCode(strings.ToLower(fields[0]))
	if !ok {
		return false, fmt.Errorf("line %d: unknown instruction %q", lineNo, fields[0])
	}

	ins := pendingInstruction{op: op, line: lineNo}

	switch {
	case op.HasOperand() && len(fields) != 2:
		return false, fmt.Errorf("line %d: %s needs one operand", lineNo, op)
	case !op.HasOperand() && len(fields) != 1:
		return false, fmt.Errorf("line %d: %s takes no operand", lineNo, op)
	case op.HasOperand():
		ins.arg = fields[1]
	}

	pm.body = append(pm.body, ins)

	return false, nil
}

func resolveBody(mod *m.Module, pm *pendingMethod, document string) (m.MethodSymbols, error) {
	method, _ := mod.Method(pm.handle)
	owner, _ := mod.Type(method.Owner)
	name := mod.MethodFullName(pm.handle)
	ms := m.MethodSymbols{Method: name, Document: document}

	for offset, pi := range pm.body {
		ins := m.Instruction{Op: pi.op}

		switch {
		case pi.op.IsBranch():
			target, ok := pm.labels[pi.arg]
			if !ok {
				n, err := strconv.Atoi(pi.arg)
				if err != nil {
					return ms, fmt.Errorf("line %d: unknown label %q", pi.line, pi.arg)
				}

				target = n
			}

			ins.Operand = int64(target)
		case pi.op == m.OpCall:
			callee := pi.arg
			if !strings.Contains(callee, "::") {
				callee = owner.FullName() + "::" + callee
			}

			h, ok := mod.FindMethod(callee)
			if !ok {
				return ms, fmt.Errorf("line %d: unknown method %q", pi.line, pi.arg)
			}

			ins.Operand = int64(h)
		case pi.op.HasOperand():
			n, err := strconv.ParseInt(pi.arg, 10, 64)
			if err != nil {
				return ms, fmt.Errorf("line %d: bad operand %q", pi.line, pi.arg)
			}

			ins.Operand = n
		}

		method.Body = append(method.Body, ins)
		ms.Points = append(ms.Points, m.SequencePoint{Offset: offset, Line: pi.line})
	}

	return ms, nil
}
