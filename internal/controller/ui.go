// Package controller renders mutation testing progress and results.
package controller

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	m "gooze.dev/pkg/bytemut/internal/model"
)

// UI defines the output of the mutation testing commands. Display methods
// may be called from several workers at once.
type UI interface {
	Start(ctx context.Context) error
	Close(ctx context.Context)
	DisplayModuleError(ctx context.Context, path m.Path, err error)
	DisplayOperators(ctx context.Context, operators []m.OperatorInfo)
	DisplayTargets(ctx context.Context, planned []m.MutantResult)
	DisplayConcurrencyInfo(ctx context.Context, threads int, shardIndex int, shardCount int)
	DisplayUpcomingTestsInfo(ctx context.Context, count int)
	DisplayStartingTestInfo(ctx context.Context, planned m.MutantResult)
	DisplayCompletedTestInfo(ctx context.Context, result m.MutantResult)
	DisplaySummary(ctx context.Context, report m.SessionReport, reportPath m.Path)
	DisplayDiff(ctx context.Context, result m.MutantResult, diff m.CodeWithDifference)
}

// NewUI returns the UI for cmd. Verdicts are colored on terminals.
func NewUI(cmd *cobra.Command, tty bool) UI {
	return NewSimpleUI(cmd, tty)
}

// IsTTY reports whether f is a terminal.
func IsTTY(f *os.File) bool {
	if f == nil {
		return false
	}

	return term.IsTerminal(int(f.Fd()))
}
