package cmd

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gooze.dev/pkg/bytemut/internal/adapter"
	"gooze.dev/pkg/bytemut/internal/domain"
	m "gooze.dev/pkg/bytemut/internal/model"
)

func TestListCmd(t *testing.T) {
	wf := &mockWorkflow{}
	useWorkflow(t, wf)

	wf.On("List", mock.Anything, mock.MatchedBy(func(args domain.ModuleArgs) bool {
		return assert.ObjectsAreEqual([]m.Path{"calc.bmod"}, args.Modules) &&
			assert.ObjectsAreEqual([]string{"CRP"}, args.Operators) &&
			args.Params["crp_delta"] == "3"
	})).Return(nil)

	cmd, _ := newTestRootCmd(newListCmd())
	require.NoError(t, execute(t, cmd, "list", "-O", "CRP", "--param", "crp_delta=3", "calc.bmod"))

	wf.AssertExpectations(t)
}

func TestOperatorsCmd(t *testing.T) {
	cmd, out := newTestRootCmd(newOperatorsCmd())
	useMemFs(t, cmd)

	require.NoError(t, execute(t, cmd, "operators"))
	assert.Contains(t, out.String(), "AOR")
	assert.Contains(t, out.String(), "UOD")

	cmd, _ = newTestRootCmd(newOperatorsCmd())
	require.Error(t, execute(t, cmd, "operators", "extra"))
}

func TestDiffCmd(t *testing.T) {
	wf := &mockWorkflow{}
	useWorkflow(t, wf)

	wf.On("Diff", mock.Anything, mock.MatchedBy(func(args domain.DiffArgs) bool {
		return args.MutantID == "AOR_1" &&
			args.Language == m.LanguageExpr &&
			args.Reports == m.Path(defaultReportsDir)
	})).Return(nil)

	cmd, _ := newTestRootCmd(newDiffCmd())
	require.NoError(t, execute(t, cmd, "diff", "--mutant", "AOR_1", "--language", "expr", "calc.bmod"))

	wf.AssertExpectations(t)

	t.Run("mutant is required", func(t *testing.T) {
		cmd, _ := newTestRootCmd(newDiffCmd())
		require.ErrorContains(t, execute(t, cmd, "diff", "calc.bmod"), mutantFlagName)
	})

	t.Run("unknown language", func(t *testing.T) {
		cmd, _ := newTestRootCmd(newDiffCmd())
		require.ErrorContains(t, execute(t, cmd, "diff", "-m", "AOR_1", "-l", "cil", "calc.bmod"), "cil")
	})
}

func TestAssembleFile(t *testing.T) {
	memFs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(memFs, "/src/calc.basm", []byte(calcSource), 0o644))

	dest, err := assembleFile(memFs, "/src/calc.basm", "")
	require.NoError(t, err)
	assert.Equal(t, m.Path("/src/calc.bmod"), dest)

	store := adapter.NewLocalModuleStore(memFs)
	mod, err := store.Load(t.Context(), dest)
	require.NoError(t, err)
	assert.Equal(t, "calc", mod.Name)

	record, ok := store.Record("calc")
	require.True(t, ok)
	require.NotNil(t, record.Symbols)

	dest, err = assembleFile(memFs, "/src/calc.basm", "/out/other.bmod")
	require.NoError(t, err)
	assert.Equal(t, m.Path("/out/other.bmod"), dest)

	t.Run("missing source", func(t *testing.T) {
		_, err := assembleFile(memFs, "/src/none.basm", "")
		require.Error(t, err)
	})

	t.Run("syntax error", func(t *testing.T) {
		require.NoError(t, afero.WriteFile(memFs, "/src/bad.basm", []byte("bogus\n"), 0o644))

		_, err := assembleFile(memFs, "/src/bad.basm", "")
		require.ErrorContains(t, err, "assemble /src/bad.basm")
	})
}
