package adapter

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	m "gooze.dev/pkg/bytemut/internal/model"
)

func TestVMTestRunnerAdapter_RunTests(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeCalc(t, fs, "/bin/calc.bmod", false)

	runner := NewVMTestRunnerAdapter(NewLocalModuleStore(fs), 0)
	tests := []m.TestCase{
		{ID: "adds", Target: "Calc.Math::Add", Args: []int64{2, 3}, Expect: 5},
		{ID: "wrong", Target: "Calc.Math::Add", Args: []int64{2, 2}, Expect: 5},
		{ID: "twice", Target: "Calc.Math::Twice", Args: []int64{4}, Expect: 8},
		{ID: "missing", Target: "Calc.Math::Mul", Args: []int64{1, 1}, Expect: 1},
		{ID: "arity", Target: "Calc.Math::Add", Args: []int64{1}, Expect: 1},
	}

	outcomes, err := runner.RunTests(context.Background(), "/bin/calc.bmod", tests)
	require.NoError(t, err)
	require.Len(t, outcomes, len(tests))

	assert.Equal(t, m.TestOutcome{TestID: "adds", State: m.TestSuccess}, outcomes[0])
	assert.Equal(t, m.TestOutcome{TestID: "wrong", State: m.TestFailure, Message: "expected 5, got 4"}, outcomes[1])
	assert.Equal(t, m.TestSuccess, outcomes[2].State)
	assert.Equal(t, m.TestInconclusive, outcomes[3].State)
	assert.Equal(t, m.TestFailure, outcomes[4].State)
}

func TestVMTestRunnerAdapter_BrokenBinary(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/bin/bad.bmod", []byte("nope"), 0o644))

	_, err := NewVMTestRunnerAdapter(NewLocalModuleStore(fs), 0).
		RunTests(context.Background(), "/bin/bad.bmod", []m.TestCase{{ID: "x", Target: "A::B"}})
	require.ErrorIs(t, err, m.ErrTestExecution)
}

func TestVMTestRunnerAdapter_Cancelled(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeCalc(t, fs, "/bin/calc.bmod", false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewVMTestRunnerAdapter(NewLocalModuleStore(fs), 0).
		RunTests(ctx, "/bin/calc.bmod", []m.TestCase{{ID: "adds", Target: "Calc.Math::Add", Args: []int64{1, 1}, Expect: 2}})
	require.ErrorIs(t, err, m.ErrTestExecution)
	require.ErrorIs(t, err, context.Canceled)
}

func TestParseRunnerOutput(t *testing.T) {
	output := `building...
PASS Calc.AddTests.Adds
FAIL Calc.AddTests.Negative expected -1, got 1
SKIP Calc.AddTests.Slow not supported
INFO ignored line
PASS
`
	outcomes := parseRunnerOutput(output)

	assert.Equal(t, []m.TestOutcome{
		{TestID: "Calc.AddTests.Adds", State: m.TestSuccess},
		{TestID: "Calc.AddTests.Negative", State: m.TestFailure, Message: "expected -1, got 1"},
		{TestID: "Calc.AddTests.Slow", State: m.TestInconclusive, Message: "not supported"},
	}, outcomes)
}

func TestCommandTestRunnerAdapter_RunTests(t *testing.T) {
	t.Run("substitutes binary and appends test ids", func(t *testing.T) {
		runner := NewCommandTestRunnerAdapter([]string{"sh", "-c", `echo "PASS $1 {binary}"; echo "FAIL $2 boom"; exit 1`, "runner"})

		outcomes, err := runner.RunTests(context.Background(), "/tmp/m.bmod", []m.TestCase{{ID: "a"}, {ID: "b"}})
		require.NoError(t, err)
		assert.Equal(t, []m.TestOutcome{
			{TestID: "a", State: m.TestSuccess, Message: "/tmp/m.bmod"},
			{TestID: "b", State: m.TestFailure, Message: "boom"},
		}, outcomes)
	})

	t.Run("failing command without output", func(t *testing.T) {
		runner := NewCommandTestRunnerAdapter([]string{"sh", "-c", "echo broken >&2; exit 3"})

		_, err := runner.RunTests(context.Background(), "/tmp/m.bmod", nil)
		require.ErrorIs(t, err, m.ErrTestExecution)
		assert.Contains(t, err.Error(), "broken")
	})

	t.Run("no command configured", func(t *testing.T) {
		_, err := NewCommandTestRunnerAdapter(nil).RunTests(context.Background(), "/tmp/m.bmod", nil)
		require.ErrorIs(t, err, m.ErrTestExecution)
	})
}
