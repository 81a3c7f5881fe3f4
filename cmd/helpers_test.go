package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/mock"
	"gooze.dev/pkg/bytemut/internal/adapter"
	"gooze.dev/pkg/bytemut/internal/controller"
	"gooze.dev/pkg/bytemut/internal/domain"
	m "gooze.dev/pkg/bytemut/internal/model"
)

type mockWorkflow struct {
	mock.Mock
}

func (w *mockWorkflow) Run(ctx context.Context, args domain.RunArgs) (m.SessionReport, error) {
	ret := w.Called(ctx, args)

	report, _ := ret.Get(0).(m.SessionReport)

	return report, ret.Error(1)
}

func (w *mockWorkflow) List(ctx context.Context, args domain.ModuleArgs) error {
	return w.Called(ctx, args).Error(0)
}

func (w *mockWorkflow) Operators(ctx context.Context) error {
	return w.Called(ctx).Error(0)
}

func (w *mockWorkflow) Diff(ctx context.Context, args domain.DiffArgs) error {
	return w.Called(ctx, args).Error(0)
}

// useWorkflow makes every command in the test use wf.
func useWorkflow(t *testing.T, wf domain.Workflow) {
	t.Helper()

	original := newWorkflow
	newWorkflow = func() (domain.Workflow, error) { return wf, nil }

	t.Cleanup(func() { newWorkflow = original })
}

// useMemFs swaps the shared filesystem and stores for an in-memory one.
func useMemFs(t *testing.T, cmd *cobra.Command) afero.Fs {
	t.Helper()

	originalFs, originalStore, originalReports, originalUI := fs, moduleStore, reportStore, ui

	fs = afero.NewMemMapFs()
	moduleStore = adapter.NewLocalModuleStore(fs)
	reportStore = adapter.NewReportStore(fs)
	ui = controller.NewSimpleUI(cmd, false)

	t.Cleanup(func() {
		fs, moduleStore, reportStore, ui = originalFs, originalStore, originalReports, originalUI
	})

	return fs
}

func newTestRootCmd(subcommands ...*cobra.Command) (*cobra.Command, *bytes.Buffer) {
	cmd := newRootCmd()
	configureRootFlags(cmd)
	cmd.AddCommand(subcommands...)

	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})

	return cmd, out
}

func execute(t *testing.T, cmd *cobra.Command, args ...string) error {
	t.Helper()

	cmd.SetArgs(append([]string{"--log", filepath.Join(t.TempDir(), "bytemut.log")}, args...))

	return cmd.ExecuteContext(context.Background())
}

const calcSource = `module calc
type Calc.Math
method Add 2
  ldarg 0
  ldarg 1
  add
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
`

func uiFor(cmd *cobra.Command) controller.UI {
	return controller.NewSimpleUI(cmd, false)
}
