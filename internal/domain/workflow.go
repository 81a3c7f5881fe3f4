package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
	"gooze.dev/pkg/bytemut/internal/adapter"
	"gooze.dev/pkg/bytemut/internal/controller"
	m "gooze.dev/pkg/bytemut/internal/model"
	pkg "gooze.dev/pkg/bytemut/pkg"
)

// ModuleArgs selects modules and operators.
type ModuleArgs struct {
	Modules   []m.Path
	Operators []string
	// Params configure operators, e.g. crp_delta.
	Params map[string]string
}

// RunArgs contains the arguments for running mutation tests.
type RunArgs struct {
	ModuleArgs
	Suite           m.Path
	Reports         m.Path
	Threads         int
	ShardIndex      int
	TotalShardCount int
	Language        m.CodeLanguage
}

// DiffArgs selects a mutant of a previous run.
type DiffArgs struct {
	ModuleArgs
	Reports  m.Path
	MutantID string
	Language m.CodeLanguage
}

// Workflow defines the mutation testing commands.
type Workflow interface {
	Run(ctx context.Context, args RunArgs) (m.SessionReport, error)
	List(ctx context.Context, args ModuleArgs) error
	Operators(ctx context.Context) error
	Diff(ctx context.Context, args DiffArgs) error
}

type workflow struct {
	fs afero.Fs
	adapter.ModuleStore
	adapter.ReportStore
	controller.UI
	Orchestrator
	CodeDifferenceCreator
}

// NewWorkflow creates a new Workflow instance with the provided dependencies.
func NewWorkflow(
	fs afero.Fs,
	store adapter.ModuleStore,
	reportStore adapter.ReportStore,
	ui controller.UI,
	orchestrator Orchestrator,
	differ CodeDifferenceCreator,
) Workflow {
	return &workflow{
		fs:                    fs,
		ModuleStore:           store,
		ReportStore:           reportStore,
		UI:                    ui,
		Orchestrator:          orchestrator,
		CodeDifferenceCreator: differ,
	}
}

func (w *workflow) Run(ctx context.Context, args RunArgs) (m.SessionReport, error) {
	report := m.SessionReport{SessionID: uuid.NewString(), Started: time.Now()}

	if err := w.Start(ctx); err != nil {
		return report, err
	}
	defer w.Close(ctx)
	defer w.Cleanup()

	modules, diagnostics, err := w.loadModules(ctx, args.Modules)
	if err != nil {
		return report, err
	}

	tests, err := adapter.LoadSuite(w.fs, args.Suite)
	if err != nil {
		slog.Error("Failed to load test suite", "path", args.Suite, "error", err)
		return report, fmt.Errorf("load test suite: %w", err)
	}

	ops, err := selectOperators(args.ModuleArgs)
	if err != nil {
		return report, err
	}

	jobs := ShardJobs(DiscoverJobs(modules, ops), args.ShardIndex, args.TotalShardCount)

	threads := max(args.Threads, 1)
	w.DisplayConcurrencyInfo(ctx, threads, args.ShardIndex, max(args.TotalShardCount, 1))
	w.DisplayUpcomingTestsInfo(ctx, len(jobs))

	spill, err := pkg.NewFileSpill[m.MutantResult](w.fs, filepath.Join(string(args.Reports), ".spill"))
	if err != nil {
		return report, fmt.Errorf("create result spill: %w", err)
	}
	defer spill.Close()

	skipped, err := w.testJobs(ctx, jobs, tests, threads, args.Language, spill)
	if err != nil {
		return report, fmt.Errorf("run mutation tests: %w", err)
	}

	mutants, summary, err := summarize(spill)
	if err != nil {
		return report, fmt.Errorf("summarize: %w", err)
	}

	summary.Skipped = len(skipped)

	for _, mod := range modules {
		report.Modules = append(report.Modules, mod.Name)
	}

	for _, op := range ops {
		report.Operators = append(report.Operators, op.ID())
	}

	report.Finished = time.Now()
	report.Summary = summary
	report.Diagnostics = append(diagnostics, skipped...)
	report.Mutants = mutants

	reportPath, err := w.SaveReport(args.Reports, report)
	if err != nil {
		return report, fmt.Errorf("save report: %w", err)
	}

	w.DisplaySummary(ctx, report, reportPath)

	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("session cancelled: %w", err)
	}

	return report, nil
}

// testJobs runs every job on a bounded worker pool and spills the results.
// It returns the diagnostics of skipped targets.
func (w *workflow) testJobs(
	ctx context.Context,
	jobs []MutationJob,
	tests []m.TestCase,
	threads int,
	lang m.CodeLanguage,
	spill pkg.FileSpill[m.MutantResult],
) ([]string, error) {
	var (
		skipped   []string
		skippedMu sync.Mutex
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(threads)

	for _, job := range jobs {
		group.Go(func() error {
			w.DisplayStartingTestInfo(groupCtx, plannedResult(job, ""))

			mutant, err := w.TestMutation(groupCtx, job, tests)
			if errors.Is(err, ErrTargetSkipped) {
				skippedMu.Lock()
				skipped = append(skipped, err.Error())
				skippedMu.Unlock()

				return nil
			}

			if err != nil {
				slog.Error("Aborting session", "mutant", job.ID, "error", err)
				return err
			}

			result := mutant.Result()
			if result.Verdict == m.VerdictSurvived {
				w.attachDiff(groupCtx, lang, &result)
			}

			if err := spill.Append(result); err != nil {
				return fmt.Errorf("spill result of %s: %w", job.ID, err)
			}

			w.DisplayCompletedTestInfo(groupCtx, result)

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	return skipped, nil
}

func (w *workflow) attachDiff(ctx context.Context, lang m.CodeLanguage, result *m.MutantResult) {
	if w.CodeDifferenceCreator == nil {
		return
	}

	diff, err := w.CreateDifference(ctx, lang, *result)
	if err != nil {
		slog.Warn("Failed to create code difference", "mutant", result.ID, "error", err)
		return
	}

	result.Diff = diff.Diff
}

// loadModules loads every module it can. Modules that fail to load are
// reported and left out.
func (w *workflow) loadModules(ctx context.Context, paths []m.Path) ([]*m.Module, []string, error) {
	var (
		modules     []*m.Module
		diagnostics []string
	)

	for _, path := range paths {
		mod, err := w.Load(ctx, path)
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}

			slog.Warn("Skipping module", "path", path, "error", err)
			w.DisplayModuleError(ctx, path, err)
			diagnostics = append(diagnostics, fmt.Sprintf("%s: %v", path, err))

			continue
		}

		modules = append(modules, mod)
	}

	if len(modules) == 0 {
		return nil, diagnostics, errors.New("no module could be loaded")
	}

	return modules, diagnostics, nil
}

func selectOperators(args ModuleArgs) ([]MutationOperator, error) {
	ops, err := ResolveOperators(args.Operators)
	if err != nil {
		return nil, err
	}

	return ConfigureOperators(ops, args.Params)
}

// DiscoverJobs enumerates targets operator by operator over the pristine
// modules. Ids are <operator>_<n>, numbered from 1 in discovery order, and
// indexes count all jobs from 0.
func DiscoverJobs(modules []*m.Module, ops []MutationOperator) []MutationJob {
	var jobs []MutationJob

	for _, op := range ops {
		n := 0

		for _, mod := range modules {
			for target := range op.FindTargets(mod, mod.TypeHandles()) {
				n++

				jobs = append(jobs, MutationJob{
					ID:       fmt.Sprintf("%s_%d", op.ID(), n),
					Index:    len(jobs),
					Operator: op,
					Target:   target,
				})
			}
		}
	}

	return jobs
}

// ShardJobs keeps the jobs whose index falls into shard index of total.
func ShardJobs(jobs []MutationJob, index, total int) []MutationJob {
	if total <= 1 {
		return jobs
	}

	var shard []MutationJob

	for _, job := range jobs {
		if job.Index%total == index {
			shard = append(shard, job)
		}
	}

	return shard
}

func plannedResult(job MutationJob, location string) m.MutantResult {
	return m.MutantResult{
		ID:       job.ID,
		Index:    job.Index,
		Operator: job.Operator.ID(),
		Module:   job.Target.Module,
		Method:   job.Target.MethodName,
		Offset:   job.Target.Offset,
		Variant:  job.Target.Variant,
		Location: location,
	}
}

func (w *workflow) List(ctx context.Context, args ModuleArgs) error {
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Close(ctx)
	defer w.Cleanup()

	modules, _, err := w.loadModules(ctx, args.Modules)
	if err != nil {
		return err
	}

	ops, err := selectOperators(args)
	if err != nil {
		return err
	}

	jobs := DiscoverJobs(modules, ops)
	planned := make([]m.MutantResult, 0, len(jobs))

	for _, job := range jobs {
		location := ""
		if record, ok := w.Record(job.Target.Module); ok {
			if loc, ok := record.Locate(job.Target.MethodName, job.Target.Offset); ok {
				location = loc.String()
			}
		}

		planned = append(planned, plannedResult(job, location))
	}

	w.DisplayTargets(ctx, planned)

	return nil
}

func (w *workflow) Operators(ctx context.Context) error {
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Close(ctx)

	w.DisplayOperators(ctx, OperatorInfos(Operators()))

	return nil
}

func (w *workflow) Diff(ctx context.Context, args DiffArgs) error {
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Close(ctx)
	defer w.Cleanup()

	report, err := w.LoadReport(args.Reports)
	if err != nil {
		slog.Error("Failed to load report", "dir", args.Reports, "error", err)
		return fmt.Errorf("load report: %w", err)
	}

	var (
		result m.MutantResult
		found  bool
	)

	for _, r := range report.Mutants {
		if r.ID == args.MutantID {
			result, found = r, true
			break
		}
	}

	if !found {
		return fmt.Errorf("mutant %s not found in %s", args.MutantID, args.Reports)
	}

	if _, _, err := w.loadModules(ctx, args.Modules); err != nil {
		return err
	}

	diff, err := w.CreateDifference(ctx, args.Language, result)
	if err != nil {
		return err
	}

	w.DisplayDiff(ctx, result, diff)

	return nil
}
