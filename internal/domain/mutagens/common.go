// Package mutagens implements the bytecode mutation operators.
package mutagens

import (
	"fmt"
	"iter"

	m "gooze.dev/pkg/bytemut/internal/model"
)

// rewrite decides whether an instruction is a target and what replaces it.
type rewrite func(ins m.Instruction) (replacement m.Instruction, ok bool)

// Operator rewrites single instructions selected by its rewrite function.
type Operator struct {
	id          string
	name        string
	description string
	rewrite     rewrite
	configure   func(params map[string]string) (*Operator, error)
}

func (o *Operator) ID() string          { return o.id }
func (o *Operator) Name() string        { return o.name }
func (o *Operator) Description() string { return o.description }

// WithParams returns the operator set up from run parameters. Operators
// without parameters return themselves.
func (o *Operator) WithParams(params map[string]string) (*Operator, error) {
	if o.configure == nil {
		return o, nil
	}

	return o.configure(params)
}

// FindTargets yields every instruction the operator can rewrite, walking types
// in the given order, methods in declaration order and ascending offsets.
func (o *Operator) FindTargets(mod *m.Module, types []m.TypeHandle) iter.Seq[m.MutationTarget] {
	return func(yield func(m.MutationTarget) bool) {
		for _, th := range types {
			td, ok := mod.Type(th)
			if !ok {
				continue
			}

			for _, mh := range td.Methods {
				md, ok := mod.Method(mh)
				if !ok {
					continue
				}

				for offset, ins := range md.Body {
					replacement, ok := o.rewrite(ins)
					if !ok {
						continue
					}

					target := m.MutationTarget{
						Operator:    o.id,
						Module:      mod.Name,
						Type:        th,
						Method:      mh,
						MethodName:  mod.MethodFullName(mh),
						Offset:      offset,
						Original:    ins,
						Replacement: replacement,
						Variant:     fmt.Sprintf("%s -> %s", ins, replacement),
					}
					if !yield(target) {
						return
					}
				}
			}
		}
	}
}

// Mutate replaces the target instruction in the context module.
func (o *Operator) Mutate(ctx m.MutationContext) error {
	t := ctx.Target
	if ctx.Module == nil {
		return fmt.Errorf("%w: no module", m.ErrInvalidTarget)
	}

	if t.Operator != o.id {
		return fmt.Errorf("%w: target of %s handed to %s", m.ErrInvalidTarget, t.Operator, o.id)
	}

	if t.Module != ctx.Module.Name {
		return fmt.Errorf("%w: target module %s, got %s", m.ErrInvalidTarget, t.Module, ctx.Module.Name)
	}

	md, ok := ctx.Module.Method(t.Method)
	if !ok || ctx.Module.MethodFullName(t.Method) != t.MethodName {
		return fmt.Errorf("%w: method %s not found", m.ErrInvalidTarget, t.MethodName)
	}

	if t.Offset < 0 || t.Offset >= len(md.Body) {
		return fmt.Errorf("%w: offset %d outside %s", m.ErrInvalidTarget, t.Offset, t.MethodName)
	}

	if md.Body[t.Offset] != t.Original {
		return fmt.Errorf("%w: expected %s at %s@%d, found %s", m.ErrInvalidTarget, t.Original, t.MethodName, t.Offset, md.Body[t.Offset])
	}

	// Targets are discovered with the same parameters.
	op, err := o.WithParams(ctx.Params)
	if err != nil {
		return fmt.Errorf("%w: %w", m.ErrInvalidTarget, err)
	}

	replacement, ok := op.rewrite(t.Original)
	if !ok || replacement != t.Replacement {
		return fmt.Errorf("%w: %s cannot produce %s", m.ErrInvalidTarget, o.id, t.Replacement)
	}

	md.Body[t.Offset] = replacement

	return nil
}

// swap builds a rewrite that exchanges opcodes and keeps operands.
func swap(table map[m.OpCode]m.OpCode) rewrite {
	return func(ins m.Instruction) (m.Instruction, bool) {
		op, ok := table[ins.Op]
		if !ok {
			return m.Instruction{}, false
		}

		return m.Instruction{Op: op, Operand: ins.Operand}, true
	}
}

func symmetric(pairs ...[2]m.OpCode) map[m.OpCode]m.OpCode {
	table := make(map[m.OpCode]m.OpCode, 2*len(pairs))
	for _, p := range pairs {
		table[p[0]] = p[1]
		table[p[1]] = p[0]
	}

	return table
}

// All returns every operator in listing order.
func All() []*Operator {
	return []*Operator{
		Arithmetic(),
		Relational(),
		Boundary(),
		Logical(),
		Branch(),
		Constant(),
		UnaryDeletion(),
	}
}
