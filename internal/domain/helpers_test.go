package domain

import (
	"bytes"
	"context"
	"iter"
	"testing"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gooze.dev/pkg/bytemut/internal/adapter"
	"gooze.dev/pkg/bytemut/internal/bytecode"
	"gooze.dev/pkg/bytemut/internal/controller"
	m "gooze.dev/pkg/bytemut/internal/model"
)

const calcSource = `module calc
type Calc.Math
method Add 2
  ldarg 0
  ldarg 1
  add
  ret
end
method Twice 1
  ldarg 0
  ldarg 0
  call Add
  ret
end
`

const calcSuite = `tests:
  - namespace: Calc
    class: MathTests
    method: Add
    target: Calc.Math::Add
    args: [2, 3]
    expect: 5
  - namespace: Calc
    class: MathTests
    method: Twice
    target: Calc.Math::Twice
    args: [0]
    expect: 0
`

func addCase() m.TestCase {
	return m.TestCase{ID: "add", Namespace: "Calc", Class: "MathTests", Method: "Add", Target: "Calc.Math::Add", Args: []int64{2, 3}, Expect: 5}
}

// newCalcStore writes the calc module with symbols and loads it.
func newCalcStore(t *testing.T, fs afero.Fs) (*adapter.LocalModuleStore, *m.Module) {
	t.Helper()

	mod, syms, err := bytecode.Assemble("calc.basm", []byte(calcSource))
	require.NoError(t, err)
	require.NoError(t, adapter.WriteModuleFile(fs, mod, syms, "/in/calc.bmod"))
	require.NoError(t, afero.WriteFile(fs, "/in/suite.yaml", []byte(calcSuite), 0o644))

	store := adapter.NewLocalModuleStore(fs)
	loaded, err := store.Load(context.Background(), "/in/calc.bmod")
	require.NoError(t, err)

	return store, loaded
}

func jobsFor(t *testing.T, mod *m.Module, ids ...string) []MutationJob {
	t.Helper()

	ops, err := ResolveOperators(ids)
	require.NoError(t, err)

	return DiscoverJobs([]*m.Module{mod}, ops)
}

func newTestUI() (controller.UI, *bytes.Buffer) {
	var out bytes.Buffer

	cmd := &cobra.Command{}
	cmd.SetOut(&out)

	return controller.NewSimpleUI(cmd, false), &out
}

// fakeOperator rewrites the instruction at a fixed method and offset, and
// optionally damages another instruction.
type fakeOperator struct {
	method      string
	offset      int
	replacement m.Instruction
	collateral  bool
}

func (f *fakeOperator) ID() string          { return "FAKE" }
func (f *fakeOperator) Name() string        { return "Fake" }
func (f *fakeOperator) Description() string { return "Test operator" }

func (f *fakeOperator) FindTargets(mod *m.Module, _ []m.TypeHandle) iter.Seq[m.MutationTarget] {
	return func(yield func(m.MutationTarget) bool) {
		h, ok := mod.FindMethod(f.method)
		if !ok {
			return
		}

		md, _ := mod.Method(h)
		yield(m.MutationTarget{
			Operator:    f.ID(),
			Module:      mod.Name,
			Type:        md.Owner,
			Method:      h,
			MethodName:  f.method,
			Offset:      f.offset,
			Original:    md.Body[f.offset],
			Replacement: f.replacement,
			Variant:     md.Body[f.offset].String() + " -> " + f.replacement.String(),
		})
	}
}

func (f *fakeOperator) Mutate(ctx m.MutationContext) error {
	md, ok := ctx.Module.Method(ctx.Target.Method)
	if !ok {
		return m.ErrInvalidTarget
	}

	md.Body[ctx.Target.Offset] = ctx.Target.Replacement
	if f.collateral {
		md.Body[0] = m.Instruction{Op: m.OpNop}
	}

	return nil
}

func fakeJob(t *testing.T, mod *m.Module, op *fakeOperator) MutationJob {
	t.Helper()

	for target := range op.FindTargets(mod, mod.TypeHandles()) {
		return MutationJob{ID: "FAKE_1", Operator: op, Target: target}
	}

	t.Fatalf("no target for %s", op.method)

	return MutationJob{}
}

type mockTestRunner struct {
	mock.Mock
}

func (r *mockTestRunner) RunTests(ctx context.Context, binary m.Path, tests []m.TestCase) ([]m.TestOutcome, error) {
	args := r.Called(ctx, binary, tests)

	outcomes, _ := args.Get(0).([]m.TestOutcome)

	return outcomes, args.Error(1)
}
