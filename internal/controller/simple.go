package controller

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	m "gooze.dev/pkg/bytemut/internal/model"
)

var verdictStyles = map[m.Verdict]lipgloss.Style{
	m.VerdictKilled:       lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
	m.VerdictSurvived:     lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
	m.VerdictInconclusive: lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
	m.VerdictUnbuildable:  lipgloss.NewStyle().Foreground(lipgloss.Color("5")),
	m.VerdictCancelled:    lipgloss.NewStyle().Faint(true),
}

// SimpleUI implements UI using cobra Command's output.
type SimpleUI struct {
	cmd   *cobra.Command
	color bool
	mu    sync.Mutex
}

// NewSimpleUI creates a new SimpleUI.
func NewSimpleUI(cmd *cobra.Command, color bool) *SimpleUI {
	return &SimpleUI{cmd: cmd, color: color}
}

// Start initializes the UI.
func (s *SimpleUI) Start(ctx context.Context) error {
	return ctx.Err()
}

// Close finalizes the UI.
func (s *SimpleUI) Close(_ context.Context) {}

// DisplayModuleError reports a module that could not be loaded.
func (s *SimpleUI) DisplayModuleError(_ context.Context, path m.Path, err error) {
	s.printf("Skipping module %s: %v\n", path, err)
}

// DisplayOperators prints the operator table.
func (s *SimpleUI) DisplayOperators(_ context.Context, operators []m.OperatorInfo) {
	rows := make([][]string, 0, len(operators))
	for _, op := range operators {
		rows = append(rows, []string{op.ID, op.Name, op.Description})
	}

	s.printf("%s", renderTable([]string{"ID", "Name", "Description"}, rows, nil))
}

// DisplayTargets prints the mutants a run would create.
func (s *SimpleUI) DisplayTargets(_ context.Context, planned []m.MutantResult) {
	rows := make([][]string, 0, len(planned))
	counts := map[string]int{}

	for _, p := range planned {
		rows = append(rows, []string{p.ID, p.Method, fmt.Sprintf("%d", p.Offset), p.Variant, p.Location})
		counts[p.Module]++
	}

	footer := []string{fmt.Sprintf("Total %d", len(planned)), fmt.Sprintf("Modules %d", len(counts)), "", "", ""}

	s.printf("\n%s", renderTable([]string{"Mutant", "Method", "Offset", "Change", "Location"}, rows, footer))
}

// DisplayConcurrencyInfo shows concurrency settings.
func (s *SimpleUI) DisplayConcurrencyInfo(_ context.Context, threads int, shardIndex int, shardCount int) {
	s.printf("Running with %d worker(s) (Shard %d/%d)\n", threads, shardIndex, shardCount)
}

// DisplayUpcomingTestsInfo shows the number of mutants to be tested.
func (s *SimpleUI) DisplayUpcomingTestsInfo(_ context.Context, count int) {
	s.printf("Upcoming mutants: %d\n", count)
}

// DisplayStartingTestInfo shows info about a mutant about to be tested.
func (s *SimpleUI) DisplayStartingTestInfo(_ context.Context, planned m.MutantResult) {
	s.printf("Starting mutant %s (%s) %s\n", planned.ID, planned.Variant, planned.Method)
}

// DisplayCompletedTestInfo shows the verdict of a mutant, and its diff when
// it survived.
func (s *SimpleUI) DisplayCompletedTestInfo(_ context.Context, result m.MutantResult) {
	var b strings.Builder

	fmt.Fprintf(&b, "Completed mutant %s (%s) -> %s\n", result.ID, result.Variant, s.verdict(result.Verdict))

	if result.Diagnostic != "" && result.Verdict != m.VerdictKilled {
		fmt.Fprintf(&b, "  %s\n", result.Diagnostic)
	}

	if result.Verdict == m.VerdictSurvived && result.Diff != "" {
		if result.Location != "" {
			fmt.Fprintf(&b, "Location: %s\n", result.Location)
		}

		fmt.Fprintf(&b, "%s\n", result.Diff)
	}

	s.printf("%s", b.String())
}

// DisplaySummary prints verdict counts and the mutation score.
func (s *SimpleUI) DisplaySummary(_ context.Context, report m.SessionReport, reportPath m.Path) {
	sum := report.Summary
	rows := [][]string{
		{s.verdict(m.VerdictKilled), fmt.Sprintf("%d", sum.Killed)},
		{s.verdict(m.VerdictSurvived), fmt.Sprintf("%d", sum.Survived)},
		{s.verdict(m.VerdictInconclusive), fmt.Sprintf("%d", sum.Inconclusive)},
		{s.verdict(m.VerdictUnbuildable), fmt.Sprintf("%d", sum.Unbuildable)},
		{s.verdict(m.VerdictCancelled), fmt.Sprintf("%d", sum.Cancelled)},
	}

	s.printf("\n%s", renderTable([]string{"Verdict", "Mutants"}, rows, []string{"Total", fmt.Sprintf("%d", sum.Total)}))

	if untested := sum.Inconclusive + sum.Unbuildable; untested > 0 {
		s.printf("No tests could decide %d mutant(s)\n", untested)
	}

	if sum.Skipped > 0 {
		s.printf("Skipped targets: %d\n", sum.Skipped)
	}

	for _, d := range report.Diagnostics {
		s.printf("  %s\n", d)
	}

	s.printf("Mutation score: %.2f%%\n", sum.Score*100)

	if reportPath != "" {
		s.printf("Report: %s\n", reportPath)
	}
}

// DisplayDiff prints the before and after code of a mutant.
func (s *SimpleUI) DisplayDiff(_ context.Context, result m.MutantResult, diff m.CodeWithDifference) {
	s.printf("Mutant %s (%s) -> %s\n", result.ID, result.Variant, s.verdict(result.Verdict))

	if result.Location != "" {
		s.printf("Location: %s\n", result.Location)
	}

	s.printf("%s", diff.Diff)
}

func (s *SimpleUI) verdict(v m.Verdict) string {
	label := v.String()
	if !s.color {
		return label
	}

	style, ok := verdictStyles[v]
	if !ok {
		return label
	}

	return style.Render(label)
}

func (s *SimpleUI) printf(format string, args ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = fmt.Fprintf(s.cmd.OutOrStdout(), format, args...)
}

func renderTable(header []string, rows [][]string, footer []string) string {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader(header)
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)
	table.AppendBulk(rows)

	if footer != nil {
		table.SetFooter(footer)
	}

	table.Render()

	return tableBuffer.String()
}
