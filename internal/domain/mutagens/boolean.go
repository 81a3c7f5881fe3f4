package mutagens

import m "gooze.dev/pkg/bytemut/internal/model"

// Logical swaps logical connectors.
func Logical() *Operator {
	return &Operator{
		id:          "LCR",
		name:        "Logical connector replacement",
		description: "Swaps and/or",
		rewrite:     swap(symmetric([2]m.OpCode{m.OpAnd, m.OpOr})),
	}
}

// UnaryDeletion drops unary operators.
func UnaryDeletion() *Operator {
	return &Operator{
		id:          "UOD",
		name:        "Unary operator deletion",
		description: "Replaces neg and not with nop",
		rewrite: swap(map[m.OpCode]m.OpCode{
			m.OpNeg: m.OpNop,
			m.OpNot: m.OpNop,
		}),
	}
}
