// Package domain contains the mutation testing workflow and its core logic.
package domain

import (
	"fmt"
	"iter"
	"strings"

	"gooze.dev/pkg/bytemut/internal/domain/mutagens"
	m "gooze.dev/pkg/bytemut/internal/model"
)

// MutationOperator discovers mutable locations and mutates them.
//
// FindTargets must not modify mod and must yield the same sequence for the
// same input. Mutate changes only the instruction at the target of a private
// module copy and fails with model.ErrInvalidTarget when the target does not
// match the module.
type MutationOperator interface {
	ID() string
	Name() string
	Description() string
	FindTargets(mod *m.Module, types []m.TypeHandle) iter.Seq[m.MutationTarget]
	Mutate(ctx m.MutationContext) error
}

// Operators returns the built-in operators in listing order.
func Operators() []MutationOperator {
	all := mutagens.All()

	ops := make([]MutationOperator, len(all))
	for i, op := range all {
		ops[i] = op
	}

	return ops
}

// ResolveOperators selects operators by id, case-insensitively and in the
// order given. No ids selects every operator.
func ResolveOperators(ids []string) ([]MutationOperator, error) {
	all := Operators()
	if len(ids) == 0 {
		return all, nil
	}

	byID := make(map[string]MutationOperator, len(all))
	for _, op := range all {
		byID[op.ID()] = op
	}

	selected := make([]MutationOperator, 0, len(ids))
	seen := map[string]bool{}

	for _, id := range ids {
		key := strings.ToUpper(strings.TrimSpace(id))
		if key == "" || seen[key] {
			continue
		}

		op, ok := byID[key]
		if !ok {
			return nil, fmt.Errorf("unknown mutation operator %q", id)
		}

		seen[key] = true
		selected = append(selected, op)
	}

	return selected, nil
}

type parameterized interface {
	WithParams(params map[string]string) (*mutagens.Operator, error)
}

// ConfigureOperators applies run parameters to the operators that take them.
func ConfigureOperators(ops []MutationOperator, params map[string]string) ([]MutationOperator, error) {
	configured := make([]MutationOperator, len(ops))

	for i, op := range ops {
		configured[i] = op

		p, ok := op.(parameterized)
		if !ok {
			continue
		}

		withParams, err := p.WithParams(params)
		if err != nil {
			return nil, fmt.Errorf("operator %s: %w", op.ID(), err)
		}

		configured[i] = withParams
	}

	return configured, nil
}

// OperatorInfos describes ops for listings.
func OperatorInfos(ops []MutationOperator) []m.OperatorInfo {
	infos := make([]m.OperatorInfo, len(ops))
	for i, op := range ops {
		infos[i] = m.OperatorInfo{ID: op.ID(), Name: op.Name(), Description: op.Description()}
	}

	return infos
}
