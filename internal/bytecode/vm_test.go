package bytecode

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	m "gooze.dev/pkg/bytemut/internal/model"
)

func invoke(t *testing.T, mod *m.Module, name string, args ...int64) (int64, error) {
	t.Helper()

	h, ok := mod.FindMethod(name)
	require.True(t, ok, name)

	return NewMachine(mod).Invoke(context.Background(), h, args)
}

func TestMachine_Invoke(t *testing.T) {
	mod, _ := assembleCalc(t)

	tests := []struct {
		method string
		args   []int64
		want   int64
	}{
		{"Calc.Math::Add", []int64{2, 3}, 5},
		{"Calc.Math::Max", []int64{2, 3}, 3},
		{"Calc.Math::Max", []int64{7, -1}, 7},
		{"Calc.Math::Sum3", []int64{1, 2, 3}, 6},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			got, err := invoke(t, mod, tt.method, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMachine_Loop(t *testing.T) {
	src := `module loops
type L
; Factorial computes n! iteratively.
method Factorial 1 2
  ldc 1
  stloc 0
  ldarg 0
  stloc 1
head:
  ldloc 1
  ldc 1
  cgt
  brfalse done
  ldloc 0
  ldloc 1
  mul
  stloc 0
  ldloc 1
  ldc 1
  sub
  stloc 1
  br head
done:
  ldloc 0
  ret
end

method Spin 0
top:
  br top
end
`
	mod, _, err := Assemble("loops.basm", []byte(src))
	require.NoError(t, err)

	got, err := invoke(t, mod, "L::Factorial", 5)
	require.NoError(t, err)
	assert.Equal(t, int64(120), got)

	h, _ := mod.FindMethod("L::Spin")
	_, err = NewMachine(mod, WithMaxSteps(1000)).Invoke(context.Background(), h, nil)
	require.ErrorIs(t, err, ErrStepLimit)
}

func TestMachine_Errors(t *testing.T) {
	src := `module e
type E
method Div 2
  ldarg 0
  ldarg 1
  div
  ret
end

method Forever 1
  ldarg 0
  call Forever
  ret
end
`
	mod, _, err := Assemble("e.basm", []byte(src))
	require.NoError(t, err)

	_, err = invoke(t, mod, "E::Div", 1, 0)
	require.ErrorIs(t, err, ErrDivideByZero)

	_, err = invoke(t, mod, "E::Forever", 1)
	require.ErrorIs(t, err, ErrStackOverflow)

	_, err = invoke(t, mod, "E::Div", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expects 2 arguments")

	forever, _ := mod.FindMethod("E::Forever")
	mod.Methods[forever].Body[1].Operand = 1 << 32

	_, err = invoke(t, mod, "E::Forever", 1)
	require.ErrorContains(t, err, "dangling method handle 4294967296")
}
