package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(ops []MutationOperator) []string {
	out := make([]string, len(ops))
	for i, op := range ops {
		out[i] = op.ID()
	}

	return out
}

func TestResolveOperators(t *testing.T) {
	t.Run("defaults to all", func(t *testing.T) {
		ops, err := ResolveOperators(nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"AOR", "ROR", "BCF", "LCR", "BRI", "CRP", "UOD"}, ids(ops))
	})

	t.Run("keeps requested order and drops duplicates", func(t *testing.T) {
		ops, err := ResolveOperators([]string{"ror", " AOR ", "ROR", ""})
		require.NoError(t, err)
		assert.Equal(t, []string{"ROR", "AOR"}, ids(ops))
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := ResolveOperators([]string{"AOR", "XYZ"})
		require.ErrorContains(t, err, "XYZ")
	})
}

func TestOperatorInfos(t *testing.T) {
	infos := OperatorInfos(Operators())
	require.Len(t, infos, 7)
	assert.Equal(t, "AOR", infos[0].ID)
	assert.Equal(t, "Arithmetic operator replacement", infos[0].Name)
}

func TestConfigureOperators(t *testing.T) {
	ops, err := ResolveOperators([]string{"AOR", "CRP"})
	require.NoError(t, err)

	configured, err := ConfigureOperators(ops, map[string]string{"crp_delta": "2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"AOR", "CRP"}, ids(configured))
	assert.Same(t, ops[0], configured[0])
	assert.NotSame(t, ops[1], configured[1])

	_, err = ConfigureOperators(ops, map[string]string{"crp_delta": "0"})
	require.ErrorContains(t, err, "operator CRP")
}
