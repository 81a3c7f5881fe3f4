package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"time"

	"gooze.dev/pkg/bytemut/internal/adapter"
	"gooze.dev/pkg/bytemut/internal/domain/testtree"
	m "gooze.dev/pkg/bytemut/internal/model"
)

// ErrTargetSkipped marks a target that no longer matched its module. The
// target produces no mutant; the session goes on.
var ErrTargetSkipped = errors.New("mutation target skipped")

// MutationJob is one (operator, target) pair scheduled for testing.
type MutationJob struct {
	ID       string
	Index    int
	Operator MutationOperator
	Target   m.MutationTarget
}

// TestSession is the test run of one mutant.
type TestSession struct {
	Tree     *testtree.Tree
	Started  time.Time
	Finished time.Time
}

// Duration is the wall time of the session so far.
func (s *TestSession) Duration() time.Duration {
	if s.Finished.IsZero() {
		return time.Since(s.Started)
	}

	return s.Finished.Sub(s.Started)
}

// Mutant is the outcome of one mutation job.
type Mutant struct {
	ID         string
	Index      int
	Target     m.MutationTarget
	Location   string
	Binary     m.Path
	Session    *TestSession
	Verdict    m.Verdict
	Diagnostic string
}

// Result converts the mutant into its report record.
func (mt *Mutant) Result() m.MutantResult {
	result := m.MutantResult{
		ID:         mt.ID,
		Index:      mt.Index,
		Operator:   mt.Target.Operator,
		Module:     mt.Target.Module,
		Method:     mt.Target.MethodName,
		Offset:     mt.Target.Offset,
		Variant:    mt.Target.Variant,
		Location:   mt.Location,
		Binary:     mt.Binary,
		Verdict:    mt.Verdict,
		Diagnostic: mt.Diagnostic,
	}

	if mt.Session != nil {
		result.Duration = mt.Session.Duration()

		if mt.Session.Tree != nil {
			snap := mt.Session.Tree.Snapshot()
			result.Tests = &snap
		}
	}

	return result
}

// Orchestrator runs the copy, mutate, write and test pipeline of one job.
type Orchestrator interface {
	// TestMutation returns the finished mutant. Errors wrapping
	// ErrTargetSkipped are local to the job; any other error must abort the
	// session.
	TestMutation(ctx context.Context, job MutationJob, tests []m.TestCase) (*Mutant, error)
}

// OrchestratorConfig tunes an orchestrator.
type OrchestratorConfig struct {
	// WorkDir receives one directory per mutant.
	WorkDir m.Path
	// MutantTimeout bounds a mutant test run; zero means no limit.
	MutantTimeout time.Duration
	// Params are handed to every operator.
	Params map[string]string
	// DrainTimeout bounds the wait for a runner's partial results after its
	// context ended; zero means DefaultDrainTimeout.
	DrainTimeout time.Duration
}

// DefaultDrainTimeout is how long a stopped runner may take to hand back the
// outcomes it already has.
const DefaultDrainTimeout = 2 * time.Second

type orchestrator struct {
	store  adapter.ModuleStore
	runner adapter.TestRunnerAdapter
	config OrchestratorConfig
}

// NewOrchestrator constructs an Orchestrator backed by the provided module
// store and test runner.
func NewOrchestrator(store adapter.ModuleStore, runner adapter.TestRunnerAdapter, config OrchestratorConfig) Orchestrator {
	return &orchestrator{
		store:  store,
		runner: runner,
		config: config,
	}
}

func (o *orchestrator) TestMutation(ctx context.Context, job MutationJob, tests []m.TestCase) (*Mutant, error) {
	mutant := &Mutant{ID: job.ID, Index: job.Index, Target: job.Target}

	record, ok := o.store.Record(job.Target.Module)
	if !ok {
		return nil, fmt.Errorf("mutant %s: module %s is not loaded", job.ID, job.Target.Module)
	}

	if loc, ok := record.Locate(job.Target.MethodName, job.Target.Offset); ok {
		mutant.Location = loc.String()
	}

	if err := ctx.Err(); err != nil {
		return cancelled(mutant, err), nil
	}

	err := o.build(ctx, job, record.Module)

	switch {
	case err == nil:
	case errors.Is(err, errUnbuildable):
		if ctxErr := ctx.Err(); ctxErr != nil {
			return cancelled(mutant, ctxErr), nil
		}

		mutant.Verdict = m.VerdictUnbuildable
		mutant.Diagnostic = err.Error()

		return mutant, nil
	default:
		return nil, err
	}

	mutant.Binary = o.binaryPath(job)

	if err := o.test(ctx, mutant, tests); err != nil {
		return nil, err
	}

	return mutant, nil
}

var errUnbuildable = errors.New("mutant unbuildable")

// build copies, mutates, checks and writes the mutant module. Write failures
// wrap errUnbuildable.
func (o *orchestrator) build(ctx context.Context, job MutationJob, pristine *m.Module) error {
	copied, err := o.store.Copy(pristine)
	if err != nil {
		slog.Error("Failed to copy module", "mutant", job.ID, "module", pristine.Name, "error", err)
		return fmt.Errorf("copy module %s: %w", pristine.Name, err)
	}

	mctx := m.MutationContext{Module: copied, Target: job.Target, Params: o.config.Params}
	if err := job.Operator.Mutate(mctx); err != nil {
		if errors.Is(err, m.ErrInvalidTarget) {
			slog.Warn("Skipping stale target", "mutant", job.ID, "target", job.Target.String(), "error", err)
			return fmt.Errorf("%w: %s: %w", ErrTargetSkipped, job.ID, err)
		}

		slog.Error("Mutation failed", "mutant", job.ID, "error", err)

		return fmt.Errorf("mutate %s: %w", job.ID, err)
	}

	if err := checkContract(pristine, copied, job.Target); err != nil {
		slog.Error("Operator changed code outside its target", "mutant", job.ID, "operator", job.Operator.ID(), "error", err)
		return fmt.Errorf("mutant %s: %w", job.ID, err)
	}

	if err := o.store.Write(ctx, copied, o.binaryPath(job)); err != nil {
		slog.Warn("Failed to write mutant", "mutant", job.ID, "error", err)
		return fmt.Errorf("%w: %w", errUnbuildable, err)
	}

	return nil
}

func (o *orchestrator) binaryPath(job MutationJob) m.Path {
	return m.Path(filepath.Join(string(o.config.WorkDir), job.ID, job.Target.Module+adapter.ModuleExt))
}

// test runs the suite against the mutant binary and settles its verdict.
// Only illegal tree transitions are returned.
func (o *orchestrator) test(ctx context.Context, mutant *Mutant, tests []m.TestCase) error {
	tree := testtree.Build(mutant.ID, tests)
	tree.OnChange(func(e testtree.Event) {
		if e.Kind == testtree.KindTest && e.State.Terminal() {
			slog.Debug("Test finished", "mutant", mutant.ID, "test", e.Name, "state", e.State, "message", e.Message)
		}
	})

	mutant.Session = &TestSession{Tree: tree, Started: time.Now()}
	defer func() { mutant.Session.Finished = time.Now() }()

	if err := tree.Cascade(testtree.Root, m.TestRunning); err != nil {
		return err
	}

	var (
		runCtx context.Context
		cancel context.CancelFunc
	)

	if o.config.MutantTimeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, o.config.MutantTimeout)
	} else {
		runCtx, cancel = context.WithCancel(ctx)
	}
	// Cancelling releases whatever the runner still holds.
	defer cancel()

	type runResult struct {
		outcomes []m.TestOutcome
		err      error
	}

	done := make(chan runResult, 1)

	go func() {
		outcomes, err := o.runner.RunTests(runCtx, mutant.Binary, tests)
		done <- runResult{outcomes: outcomes, err: err}
	}()

	var result runResult

	select {
	case result = <-done:
	case <-runCtx.Done():
		drain := o.config.DrainTimeout
		if drain <= 0 {
			drain = DefaultDrainTimeout
		}

		// The runner sees the same ended context; keep what it reported so far.
		select {
		case result = <-done:
		case <-time.After(drain):
			slog.Warn("Test runner did not stop", "mutant", mutant.ID, "waited", drain)
		}
	}

	if err := attach(tree, mutant.ID, result.outcomes); err != nil {
		return err
	}

	switch {
	case ctx.Err() != nil:
		if !tree.HasResults(testtree.Root) {
			cancelled(mutant, ctx.Err())
			return nil
		}

		if err := tree.ResolvePending(m.TestInconclusive, "session cancelled"); err != nil {
			return err
		}

		mutant.Diagnostic = "session cancelled"
	case runCtx.Err() != nil:
		slog.Warn("Mutant timed out", "mutant", mutant.ID, "timeout", o.config.MutantTimeout)

		if err := tree.ResolvePending(m.TestInconclusive, fmt.Sprintf("timed out after %s", o.config.MutantTimeout)); err != nil {
			return err
		}

		mutant.Diagnostic = "test run timed out"
	case result.err != nil:
		slog.Warn("Test run failed", "mutant", mutant.ID, "error", result.err)

		if err := tree.ResolvePending(m.TestInconclusive, result.err.Error()); err != nil {
			return err
		}

		mutant.Diagnostic = result.err.Error()
	default:
		message := "no result reported"
		if len(tests) == 0 {
			message = "no tests selected"
		}

		if err := tree.ResolvePending(m.TestInconclusive, message); err != nil {
			return err
		}
	}

	mutant.Verdict = tree.Verdict()

	return nil
}

func attach(tree *testtree.Tree, mutantID string, outcomes []m.TestOutcome) error {
	for _, outcome := range outcomes {
		leaf, ok := tree.Leaf(outcome.TestID)
		if !ok {
			slog.Warn("Ignoring result of unknown test", "mutant", mutantID, "test", outcome.TestID)
			continue
		}

		if err := tree.Report(leaf, outcome.State, outcome.Message); err != nil {
			return fmt.Errorf("mutant %s test %s: %w", mutantID, outcome.TestID, err)
		}
	}

	return nil
}

func cancelled(mutant *Mutant, cause error) *Mutant {
	mutant.Verdict = m.VerdictCancelled
	mutant.Diagnostic = cause.Error()

	return mutant
}

// checkContract verifies that mutated differs from pristine in the target
// instruction only.
func checkContract(pristine, mutated *m.Module, target m.MutationTarget) error {
	if pristine.Name != mutated.Name ||
		len(pristine.Types) != len(mutated.Types) ||
		len(pristine.Methods) != len(mutated.Methods) {
		return fmt.Errorf("%w: module shape changed", m.ErrContractViolation)
	}

	for i := range pristine.Types {
		a, b := pristine.Types[i], mutated.Types[i]
		if a.Namespace != b.Namespace || a.Name != b.Name || !slices.Equal(a.Methods, b.Methods) {
			return fmt.Errorf("%w: type %s changed", m.ErrContractViolation, a.FullName())
		}
	}

	for i := range pristine.Methods {
		a, b := pristine.Methods[i], mutated.Methods[i]
		if a.Name != b.Name || a.Owner != b.Owner || a.Params != b.Params || a.Locals != b.Locals || len(a.Body) != len(b.Body) {
			return fmt.Errorf("%w: method %s changed", m.ErrContractViolation, pristine.MethodFullName(m.MethodHandle(i)))
		}

		for offset := range a.Body {
			if a.Body[offset] == b.Body[offset] {
				continue
			}

			if m.MethodHandle(i) != target.Method || offset != target.Offset {
				return fmt.Errorf("%w: %s@%d changed", m.ErrContractViolation, pristine.MethodFullName(m.MethodHandle(i)), offset)
			}
		}
	}

	return nil
}
