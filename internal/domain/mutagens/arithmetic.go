package mutagens

import m "gooze.dev/pkg/bytemut/internal/model"

// Arithmetic replaces arithmetic operators: add and sub, mul and div swap,
// rem becomes mul.
func Arithmetic() *Operator {
	table := symmetric([2]m.OpCode{m.OpAdd, m.OpSub}, [2]m.OpCode{m.OpMul, m.OpDiv})
	table[m.OpRem] = m.OpMul

	return &Operator{
		id:          "AOR",
		name:        "Arithmetic operator replacement",
		description: "Swaps add/sub and mul/div, replaces rem with mul",
		rewrite:     swap(table),
	}
}
