package mutagens

import (
	"fmt"
	"strconv"
	"strings"

	m "gooze.dev/pkg/bytemut/internal/model"
)

// ConstantDeltaParam sets the amount CRP adds to constants.
const ConstantDeltaParam = "crp_delta"

// Constant shifts integer constants by one.
func Constant() *Operator {
	return constantBy(1)
}

func constantBy(delta int64) *Operator {
	return &Operator{
		id:          "CRP",
		name:        "Constant replacement",
		description: "Replaces ldc n with ldc n+1 (n+" + ConstantDeltaParam + " when set)",
		rewrite: func(ins m.Instruction) (m.Instruction, bool) {
			if ins.Op != m.OpLdc {
				return m.Instruction{}, false
			}

			return m.Instruction{Op: m.OpLdc, Operand: ins.Operand + delta}, true
		},
		configure: func(params map[string]string) (*Operator, error) {
			raw, ok := params[ConstantDeltaParam]
			if !ok {
				return constantBy(1), nil
			}

			d, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
			if err != nil || d == 0 {
				return nil, fmt.Errorf("%s must be a non-zero integer, got %q", ConstantDeltaParam, raw)
			}

			return constantBy(d), nil
		},
	}
}
