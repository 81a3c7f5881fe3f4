package bytecode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	m "gooze.dev/pkg/bytemut/internal/model"
)

func TestVerify(t *testing.T) {
	mod, _ := assembleCalc(t)
	require.NoError(t, Verify(mod))

	tests := []struct {
		name   string
		mutate func(mod *m.Module)
		want   string
	}{
		{
			name:   "dangling call",
			mutate: func(mod *m.Module) { mod.Methods[2].Body[2].Operand = 42 },
			want:   "dangling method handle 42",
		},
		{
			name:   "branch out of range",
			mutate: func(mod *m.Module) { mod.Methods[1].Body[3].Operand = 99 },
			want:   "branch target 99 out of range",
		},
		{
			name:   "argument out of range",
			mutate: func(mod *m.Module) { mod.Methods[0].Body[0].Operand = 5 },
			want:   "argument 5 out of range",
		},
		{
			name:   "stack underflow",
			mutate: func(mod *m.Module) { mod.Methods[0].Body[0] = m.Instruction{Op: m.OpNop} },
			want:   "stack underflow",
		},
		{
			name:   "falls off the end",
			mutate: func(mod *m.Module) { mod.Methods[0].Body[3] = m.Instruction{Op: m.OpPop} },
			want:   "falls off the end",
		},
		{
			name:   "dangling type method",
			mutate: func(mod *m.Module) { mod.Types[0].Methods = append(mod.Types[0].Methods, 7) },
			want:   "dangling method handle 7",
		},
		{
			name:   "dangling call in unreachable code",
			mutate: func(mod *m.Module) { mod.Methods[0].Body = append(mod.Methods[0].Body, m.Instruction{Op: m.OpCall, Operand: 99}) },
			want:   "call to dangling method handle 99",
		},
		{
			name:   "call operand wider than a handle",
			mutate: func(mod *m.Module) { mod.Methods[2].Body[2].Operand = 1 << 32 },
			want:   "dangling method handle 4294967296",
		},
		{
			name:   "empty body",
			mutate: func(mod *m.Module) { mod.Methods[0].Body = nil },
			want:   "empty body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			broken := mod.Clone()
			tt.mutate(broken)

			err := Verify(broken)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			require.NoError(t, Verify(mod), "clone must not affect the original")
		})
	}
}

func TestVerify_ConflictingDepth(t *testing.T) {
	src := `module x
type T
method F 1
  ldarg 0
  brtrue join
  ldc 1
join:
  ldc 2
  ret
end
`
	_, _, err := Assemble("x.basm", []byte(src))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conflicts")
}
