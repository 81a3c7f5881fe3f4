package model

import (
	"fmt"
	"strings"
)

// TestState is the state of a node in a test result tree.
type TestState int

const (
	// TestInactive means the test has not been scheduled.
	TestInactive TestState = iota
	// TestRunning means results are pending.
	TestRunning
	// TestSuccess means the test passed.
	TestSuccess
	// TestFailure means the test failed.
	TestFailure
	// TestInconclusive means no pass/fail decision could be made.
	TestInconclusive
)

func (s TestState) String() string {
	switch s {
	case TestInactive:
		return "inactive"
	case TestRunning:
		return "running"
	case TestSuccess:
		return "success"
	case TestFailure:
		return "failure"
	case TestInconclusive:
		return "inconclusive"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether s carries a result.
func (s TestState) Terminal() bool {
	return s == TestSuccess || s == TestFailure || s == TestInconclusive
}

// MarshalText implements encoding.TextMarshaler.
func (s TestState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *TestState) UnmarshalText(text []byte) error {
	for _, candidate := range []TestState{TestInactive, TestRunning, TestSuccess, TestFailure, TestInconclusive} {
		if candidate.String() == strings.ToLower(string(text)) {
			*s = candidate
			return nil
		}
	}

	return fmt.Errorf("unknown test state %q", text)
}

// TestCase calls Target with Args and expects Expect back.
type TestCase struct {
	ID        string  `yaml:"id"`
	Namespace string  `yaml:"namespace"`
	Class     string  `yaml:"class"`
	Method    string  `yaml:"method"`
	Name      string  `yaml:"name,omitempty"`
	Target    string  `yaml:"target"`
	Args      []int64 `yaml:"args,omitempty"`
	Expect    int64   `yaml:"expect"`
}

// LeafName is the display name of the test inside its method node.
func (tc TestCase) LeafName() string {
	if tc.Name != "" {
		return tc.Name
	}

	args := make([]string, len(tc.Args))
	for i, a := range tc.Args {
		args[i] = fmt.Sprint(a)
	}

	return tc.Method + "(" + strings.Join(args, ", ") + ")"
}

// TestOutcome is one result reported by a test runner.
type TestOutcome struct {
	TestID  string
	State   TestState
	Message string
}
