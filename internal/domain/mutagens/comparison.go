package mutagens

import m "gooze.dev/pkg/bytemut/internal/model"

// Relational negates comparisons.
func Relational() *Operator {
	return &Operator{
		id:          "ROR",
		name:        "Relational operator replacement",
		description: "Negates comparisons: ceq/cne, clt/cge, cgt/cle",
		rewrite: swap(symmetric(
			[2]m.OpCode{m.OpCeq, m.OpCne},
			[2]m.OpCode{m.OpClt, m.OpCge},
			[2]m.OpCode{m.OpCgt, m.OpCle},
		)),
	}
}

// Boundary moves the boundary of ordering comparisons by one.
func Boundary() *Operator {
	return &Operator{
		id:          "BCF",
		name:        "Boundary condition flip",
		description: "Includes or excludes the boundary: clt/cle, cgt/cge",
		rewrite: swap(symmetric(
			[2]m.OpCode{m.OpClt, m.OpCle},
			[2]m.OpCode{m.OpCgt, m.OpCge},
		)),
	}
}
