package cmd

import (
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gooze.dev/pkg/bytemut/internal/domain"
	m "gooze.dev/pkg/bytemut/internal/model"
)

func TestRunCmd_PassesArguments(t *testing.T) {
	wf := &mockWorkflow{}
	useWorkflow(t, wf)

	cmd, _ := newTestRootCmd(newRunCmd())

	wf.On("Run", mock.Anything, mock.MatchedBy(func(args domain.RunArgs) bool {
		return args.Threads == 2 &&
			args.ShardIndex == 0 &&
			args.TotalShardCount == 1 &&
			args.Suite == m.Path("suite.yaml") &&
			args.Reports == m.Path(defaultReportsDir) &&
			args.Language == m.LanguageIL &&
			assert.ObjectsAreEqual([]m.Path{"calc.bmod"}, args.Modules)
	})).Return(m.SessionReport{}, nil)

	require.NoError(t, execute(t, cmd, "run", "--parallel", "2", "--tests", "suite.yaml", "calc.bmod"))

	wf.AssertExpectations(t)
}

func TestRunCmd_ShardingAndOperators(t *testing.T) {
	wf := &mockWorkflow{}
	useWorkflow(t, wf)

	cmd, _ := newTestRootCmd(newRunCmd())

	wf.On("Run", mock.Anything, mock.MatchedBy(func(args domain.RunArgs) bool {
		return args.ShardIndex == 1 &&
			args.TotalShardCount == 3 &&
			assert.ObjectsAreEqual([]string{"AOR", "ROR"}, args.Operators) &&
			len(args.Modules) == 2
	})).Return(m.SessionReport{}, nil)

	require.NoError(t, execute(t, cmd, "run", "-t", "suite.yaml", "--shard", "1/3", "-O", "AOR,ROR", "a.bmod", "b.bmod"))

	wf.AssertExpectations(t)
}

func TestRunCmd_Errors(t *testing.T) {
	wf := &mockWorkflow{}
	useWorkflow(t, wf)

	t.Run("no modules", func(t *testing.T) {
		cmd, _ := newTestRootCmd(newRunCmd())
		require.Error(t, execute(t, cmd, "run", "--tests", "suite.yaml"))
	})

	t.Run("no suite", func(t *testing.T) {
		cmd, _ := newTestRootCmd(newRunCmd())
		require.ErrorContains(t, execute(t, cmd, "run", "calc.bmod"), "--tests")
	})

	t.Run("shard out of range", func(t *testing.T) {
		cmd, _ := newTestRootCmd(newRunCmd())
		require.ErrorContains(t, execute(t, cmd, "run", "--tests", "suite.yaml", "--shard", "3/3", "calc.bmod"), "3/3")
		wf.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
	})

	t.Run("workflow error", func(t *testing.T) {
		wf.On("Run", mock.Anything, mock.Anything).Return(m.SessionReport{}, errors.New("boom")).Once()

		cmd, _ := newTestRootCmd(newRunCmd())
		require.ErrorContains(t, execute(t, cmd, "run", "--tests", "suite.yaml", "calc.bmod"), "boom")
	})
}

func TestRunCmd_EndToEnd(t *testing.T) {
	cmd, out := newTestRootCmd(newAssembleCmd(), newRunCmd())
	memFs := useMemFs(t, cmd)

	require.NoError(t, afero.WriteFile(memFs, "calc.basm", []byte(calcSource), 0o644))
	require.NoError(t, afero.WriteFile(memFs, "suite.yaml", []byte(calcSuite), 0o644))

	require.NoError(t, execute(t, cmd, "assemble", "calc.basm"))
	assert.Contains(t, out.String(), "wrote calc.bmod")

	cmd, out = newTestRootCmd(newRunCmd())
	ui = uiFor(cmd)

	require.NoError(t, execute(t, cmd, "run", "--tests", "suite.yaml", "calc.bmod"))
	assert.Contains(t, out.String(), "AOR_1")

	report, err := reportStore.LoadReport(defaultReportsDir)
	require.NoError(t, err)
	assert.Equal(t, m.Summary{Total: 1, Killed: 1, Score: 1}, report.Summary)

	exists, err := afero.Exists(memFs, defaultWorkDir+"/AOR_1/calc.bmod")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestNewRunCmd(t *testing.T) {
	cmd := newRunCmd()

	assert.Equal(t, "run [modules...]", cmd.Use)
	assert.Equal(t, runLongDescription, cmd.Long)

	for _, name := range []string{runParallelFlagName, testsFlagName, mutantTimeoutFlagName, workDirFlagName, runnerFlagName, commandFlagName, "shard"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}
}
