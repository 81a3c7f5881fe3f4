package adapter

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"gooze.dev/pkg/bytemut/internal/bytecode"
	m "gooze.dev/pkg/bytemut/internal/model"
)

// TestRunnerAdapter executes tests against a module binary. Outcomes carry
// terminal states only; tests missing from the outcomes never produced a result.
// An error wrapping model.ErrTestExecution means the run itself broke down.
type TestRunnerAdapter interface {
	RunTests(ctx context.Context, binary m.Path, tests []m.TestCase) ([]m.TestOutcome, error)
}

// ModuleOpener reads a module container without registering it.
type ModuleOpener interface {
	Open(ctx context.Context, path m.Path) (*m.Module, error)
}

// VMTestRunnerAdapter runs tests in-process on the bytecode interpreter.
type VMTestRunnerAdapter struct {
	opener   ModuleOpener
	maxSteps int
}

// NewVMTestRunnerAdapter constructs a VMTestRunnerAdapter. maxSteps bounds each
// test; zero keeps the interpreter default.
func NewVMTestRunnerAdapter(opener ModuleOpener, maxSteps int) *VMTestRunnerAdapter {
	return &VMTestRunnerAdapter{opener: opener, maxSteps: maxSteps}
}

// RunTests implements TestRunnerAdapter.
func (a *VMTestRunnerAdapter) RunTests(ctx context.Context, binary m.Path, tests []m.TestCase) ([]m.TestOutcome, error) {
	mod, err := a.opener.Open(ctx, binary)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", m.ErrTestExecution, err)
	}

	vm := bytecode.NewMachine(mod, bytecode.WithMaxSteps(a.maxSteps))
	outcomes := make([]m.TestOutcome, 0, len(tests))

	for _, tc := range tests {
		if err := ctx.Err(); err != nil {
			return outcomes, fmt.Errorf("%w: %w", m.ErrTestExecution, err)
		}

		outcome := runTestCase(ctx, vm, mod, tc)
		if ctx.Err() != nil && outcome.State != m.TestSuccess && outcome.State != m.TestFailure {
			return outcomes, fmt.Errorf("%w: %w", m.ErrTestExecution, ctx.Err())
		}

		outcomes = append(outcomes, outcome)
	}

	return outcomes, nil
}

func runTestCase(ctx context.Context, vm *bytecode.Machine, mod *m.Module, tc m.TestCase) m.TestOutcome {
	outcome := m.TestOutcome{TestID: tc.ID}

	h, ok := mod.FindMethod(tc.Target)
	if !ok {
		outcome.State = m.TestInconclusive
		outcome.Message = fmt.Sprintf("target %s not found", tc.Target)

		return outcome
	}

	got, err := vm.Invoke(ctx, h, tc.Args)

	switch {
	case errors.Is(err, bytecode.ErrStepLimit), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		outcome.State = m.TestInconclusive
		outcome.Message = err.Error()
	case err != nil:
		outcome.State = m.TestFailure
		outcome.Message = err.Error()
	case got != tc.Expect:
		outcome.State = m.TestFailure
		outcome.Message = fmt.Sprintf("expected %d, got %d", tc.Expect, got)
	default:
		outcome.State = m.TestSuccess
	}

	return outcome
}

// BinaryPlaceholder is replaced by the mutant binary path in command arguments.
const BinaryPlaceholder = "{binary}"

// CommandTestRunnerAdapter runs tests in an external process. The command gets
// the test ids as trailing arguments and reports one line per test:
//
//	PASS <id>
//	FAIL <id> <message>
//	SKIP <id> <message>
type CommandTestRunnerAdapter struct {
	command []string
}

// NewCommandTestRunnerAdapter constructs a CommandTestRunnerAdapter.
func NewCommandTestRunnerAdapter(command []string) *CommandTestRunnerAdapter {
	return &CommandTestRunnerAdapter{command: command}
}

// RunTests implements TestRunnerAdapter.
func (a *CommandTestRunnerAdapter) RunTests(ctx context.Context, binary m.Path, tests []m.TestCase) ([]m.TestOutcome, error) {
	if len(a.command) == 0 {
		return nil, fmt.Errorf("%w: no test command configured", m.ErrTestExecution)
	}

	args := make([]string, 0, len(a.command)-1+len(tests))
	for _, arg := range a.command[1:] {
		args = append(args, strings.ReplaceAll(arg, BinaryPlaceholder, string(binary)))
	}

	for _, tc := range tests {
		args = append(args, tc.ID)
	}

	cmd := exec.CommandContext(ctx, a.command[0], args...)
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if ctx.Err() != nil {
		return nil, fmt.Errorf("%w: %w", m.ErrTestExecution, ctx.Err())
	}

	outcomes := parseRunnerOutput(stdout.String())
	if runErr != nil && len(outcomes) == 0 {
		slog.Error("Test command failed", "command", a.command[0], "stderr", stderr.String(), "error", runErr)
		return nil, fmt.Errorf("%w: %w: %s", m.ErrTestExecution, runErr, strings.TrimSpace(stderr.String()))
	}

	return outcomes, nil
}

func parseRunnerOutput(output string) []m.TestOutcome {
	var outcomes []m.TestOutcome

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		fields := strings.SplitN(strings.TrimSpace(scanner.Text()), " ", 3)
		if len(fields) < 2 {
			continue
		}

		outcome := m.TestOutcome{TestID: fields[1]}
		if len(fields) == 3 {
			outcome.Message = fields[2]
		}

		switch fields[0] {
		case "PASS":
			outcome.State = m.TestSuccess
		case "FAIL":
			outcome.State = m.TestFailure
		case "SKIP":
			outcome.State = m.TestInconclusive
		default:
			continue
		}

		outcomes = append(outcomes, outcome)
	}

	return outcomes
}
