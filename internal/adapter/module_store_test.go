package adapter

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gooze.dev/pkg/bytemut/internal/bytecode"
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

func writeCalc(t *testing.T, fs afero.Fs, path m.Path, withSymbols bool) *m.Module {
	t.Helper()

	mod, syms, err := bytecode.Assemble("calc.basm", []byte(calcSource))
	require.NoError(t, err)

	if !withSymbols {
		syms = nil
	}

	require.NoError(t, WriteModuleFile(fs, mod, syms, path))

	return mod
}

func TestLocalModuleStore_Load(t *testing.T) {
	t.Run("loads module and symbols", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		writeCalc(t, fs, "/in/calc.bmod", true)

		store := NewLocalModuleStore(fs)
		mod, err := store.Load(context.Background(), "/in/calc.bmod")
		require.NoError(t, err)
		assert.Equal(t, "calc", mod.Name)

		record, ok := store.Record("calc")
		require.True(t, ok)
		require.NotNil(t, record.Symbols)
		assert.Equal(t, m.Path("/in/calc.bsym"), record.SymbolsPath)

		loc, ok := record.Locate("Calc.Math::Add", 2)
		require.True(t, ok)
		assert.Equal(t, 6, loc.Line)
	})

	t.Run("loads module without symbols", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		writeCalc(t, fs, "/in/calc.bmod", false)

		store := NewLocalModuleStore(fs)
		_, err := store.Load(context.Background(), "/in/calc.bmod")
		require.NoError(t, err)

		record, _ := store.Record("calc")
		assert.Nil(t, record.Symbols)
	})

	t.Run("rejects files that are not containers", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, "/in/readme.bmod", []byte("hello world"), 0o644))

		store := NewLocalModuleStore(fs)
		_, err := store.Load(context.Background(), "/in/readme.bmod")
		require.ErrorIs(t, err, m.ErrInvalidModuleFormat)
		assert.Empty(t, store.Modules())
	})

	t.Run("rejects truncated payload", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, "/in/bad.bmod", []byte("BMOD\x01garbage"), 0o644))

		_, err := NewLocalModuleStore(fs).Load(context.Background(), "/in/bad.bmod")
		require.ErrorIs(t, err, m.ErrInvalidModuleFormat)
	})

	t.Run("rejects duplicate module names", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		writeCalc(t, fs, "/a/calc.bmod", false)
		writeCalc(t, fs, "/b/calc.bmod", false)

		store := NewLocalModuleStore(fs)
		_, err := store.Load(context.Background(), "/a/calc.bmod")
		require.NoError(t, err)

		_, err = store.Load(context.Background(), "/b/calc.bmod")
		require.Error(t, err)
		assert.Len(t, store.Modules(), 1)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := NewLocalModuleStore(afero.NewMemMapFs()).Load(context.Background(), "/nope.bmod")
		require.Error(t, err)
	})
}

func TestLocalModuleStore_CopyIsolation(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeCalc(t, fs, "/in/calc.bmod", false)

	store := NewLocalModuleStore(fs)
	pristine, err := store.Load(context.Background(), "/in/calc.bmod")
	require.NoError(t, err)

	before, err := Digest(pristine)
	require.NoError(t, err)

	clone, err := store.Copy(pristine)
	require.NoError(t, err)

	clone.Methods[0].Body[2].Op = m.OpSub
	clone.Types[0].Methods[0] = 1
	clone.Methods = append(clone.Methods, m.MethodDef{Name: "Extra"})

	after, err := Digest(pristine)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, m.OpAdd, pristine.Methods[0].Body[2].Op)

	_, err = store.Copy(&m.Module{Name: "other"})
	require.Error(t, err)
}

func TestLocalModuleStore_WriteRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeCalc(t, fs, "/in/calc.bmod", true)

	store := NewLocalModuleStore(fs)
	pristine, err := store.Load(context.Background(), "/in/calc.bmod")
	require.NoError(t, err)

	clone, err := store.Copy(pristine)
	require.NoError(t, err)

	require.NoError(t, store.Write(context.Background(), clone, "/out/m1/calc.bmod"))

	exists, err := afero.Exists(fs, "/out/m1/calc.bsym")
	require.NoError(t, err)
	assert.True(t, exists, "symbols follow the module")

	reloaded, err := store.Open(context.Background(), "/out/m1/calc.bmod")
	require.NoError(t, err)

	want, _ := Digest(pristine)
	got, _ := Digest(reloaded)
	assert.Equal(t, want, got)

	for i := range pristine.Methods {
		assert.Equal(t, pristine.MethodFullName(m.MethodHandle(i)), reloaded.MethodFullName(m.MethodHandle(i)))
	}
}

func TestLocalModuleStore_WriteInconsistent(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeCalc(t, fs, "/in/calc.bmod", false)

	store := NewLocalModuleStore(fs)
	pristine, err := store.Load(context.Background(), "/in/calc.bmod")
	require.NoError(t, err)

	clone, _ := store.Copy(pristine)
	clone.Methods[1].Body[2].Operand = 99

	err = store.Write(context.Background(), clone, "/out/broken/calc.bmod")
	require.ErrorIs(t, err, m.ErrSerialization)

	exists, _ := afero.Exists(fs, "/out/broken/calc.bmod")
	assert.False(t, exists, "no partial file is left behind")

	var buf bytes.Buffer
	require.ErrorIs(t, store.WriteTo(clone, &buf), m.ErrSerialization)
}

func TestLocalModuleStore_WriteUnreachableDanglingCall(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeCalc(t, fs, "/in/calc.bmod", false)

	store := NewLocalModuleStore(fs)
	pristine, err := store.Load(context.Background(), "/in/calc.bmod")
	require.NoError(t, err)

	clone, _ := store.Copy(pristine)
	clone.Methods[0].Body = append(clone.Methods[0].Body, m.Instruction{Op: m.OpCall, Operand: 99})

	err = store.Write(context.Background(), clone, "/out/calc.bmod")
	require.ErrorIs(t, err, m.ErrSerialization)
	assert.Contains(t, err.Error(), "dangling method handle 99")
}

func TestLocalModuleStore_Cleanup(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeCalc(t, fs, "/in/calc.bmod", true)

	store := NewLocalModuleStore(fs)
	_, err := store.Load(context.Background(), "/in/calc.bmod")
	require.NoError(t, err)

	store.Cleanup()
	store.Cleanup()

	assert.Empty(t, store.Modules())

	_, ok := store.Record("calc")
	assert.False(t, ok)
}

func TestLocalModuleStore_CancelledContext(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeCalc(t, fs, "/in/calc.bmod", false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLocalModuleStore(fs).Load(ctx, "/in/calc.bmod")
	require.ErrorIs(t, err, context.Canceled)
}
