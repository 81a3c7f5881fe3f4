package mutagens

import m "gooze.dev/pkg/bytemut/internal/model"

// Branch inverts conditional branches. The branch target is kept.
func Branch() *Operator {
	return &Operator{
		id:          "BRI",
		name:        "Branch inversion",
		description: "Swaps brtrue/brfalse",
		rewrite:     swap(symmetric([2]m.OpCode{m.OpBrTrue, m.OpBrFalse})),
	}
}
