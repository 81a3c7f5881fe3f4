package model

import (
	"fmt"
	"strings"
	"time"
)

// Verdict is the final classification of a mutant.
type Verdict int

const (
	// VerdictPending is the verdict of a mutant whose pipeline has not finished.
	VerdictPending Verdict = iota
	// VerdictSurvived means every test passed against the mutant.
	VerdictSurvived
	// VerdictKilled means at least one test failed against the mutant.
	VerdictKilled
	// VerdictInconclusive means the tests could not decide.
	VerdictInconclusive
	// VerdictUnbuildable means the mutant could not be serialized.
	VerdictUnbuildable
	// VerdictCancelled means the pipeline was cancelled.
	VerdictCancelled
)

var verdictNames = map[Verdict]string{
	VerdictPending:      "pending",
	VerdictSurvived:     "survived",
	VerdictKilled:       "killed",
	VerdictInconclusive: "inconclusive",
	VerdictUnbuildable:  "unbuildable",
	VerdictCancelled:    "cancelled",
}

func (v Verdict) String() string {
	if name, ok := verdictNames[v]; ok {
		return name
	}

	return fmt.Sprintf("verdict(%d)", int(v))
}

// Final reports whether no further transition can happen.
func (v Verdict) Final() bool {
	return v != VerdictPending
}

// MarshalText implements encoding.TextMarshaler.
func (v Verdict) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Verdict) UnmarshalText(text []byte) error {
	for verdict, name := range verdictNames {
		if name == strings.ToLower(string(text)) {
			*v = verdict
			return nil
		}
	}

	return fmt.Errorf("unknown verdict %q", text)
}

// TestNode is a serializable snapshot of a test tree node.
type TestNode struct {
	Name     string     `yaml:"name"`
	Kind     string     `yaml:"kind"`
	State    TestState  `yaml:"state"`
	Message  string     `yaml:"message,omitempty"`
	Children []TestNode `yaml:"children,omitempty"`
}

// MutantResult is the reported outcome of one mutant.
type MutantResult struct {
	ID         string        `yaml:"id"`
	Index      int           `yaml:"index"`
	Operator   string        `yaml:"operator"`
	Module     string        `yaml:"module"`
	Method     string        `yaml:"method"`
	Offset     int           `yaml:"offset"`
	Variant    string        `yaml:"variant"`
	Location   string        `yaml:"location,omitempty"`
	Binary     Path          `yaml:"binary,omitempty"`
	Verdict    Verdict       `yaml:"verdict"`
	Diagnostic string        `yaml:"diagnostic,omitempty"`
	Duration   time.Duration `yaml:"duration"`
	Tests      *TestNode     `yaml:"tests,omitempty"`
	Diff       string        `yaml:"diff,omitempty"`
}

// Summary counts mutants by verdict.
type Summary struct {
	Total        int     `yaml:"total"`
	Killed       int     `yaml:"killed"`
	Survived     int     `yaml:"survived"`
	Inconclusive int     `yaml:"inconclusive"`
	Unbuildable  int     `yaml:"unbuildable"`
	Cancelled    int     `yaml:"cancelled"`
	Skipped      int     `yaml:"skipped_targets"`
	Score        float64 `yaml:"score"`
}

// Add counts one verdict.
func (s *Summary) Add(v Verdict) {
	s.Total++

	switch v {
	case VerdictKilled:
		s.Killed++
	case VerdictSurvived:
		s.Survived++
	case VerdictInconclusive:
		s.Inconclusive++
	case VerdictUnbuildable:
		s.Unbuildable++
	case VerdictCancelled:
		s.Cancelled++
	case VerdictPending:
	}
}

// SessionReport is the persisted outcome of one mutation testing session.
type SessionReport struct {
	SessionID   string         `yaml:"session"`
	Started     time.Time      `yaml:"started"`
	Finished    time.Time      `yaml:"finished"`
	Modules     []string       `yaml:"modules"`
	Operators   []string       `yaml:"operators"`
	Summary     Summary        `yaml:"summary"`
	Diagnostics []string       `yaml:"diagnostics,omitempty"`
	Mutants     []MutantResult `yaml:"mutants"`
}

// CodeLanguage selects how code is rendered for diffs.
type CodeLanguage string

const (
	// LanguageIL renders the raw instruction listing.
	LanguageIL CodeLanguage = "il"
	// LanguageExpr renders decompiled expressions.
	LanguageExpr CodeLanguage = "expr"
)

// CodeWithDifference is a before/after rendering of a mutated method.
type CodeWithDifference struct {
	Language CodeLanguage
	Method   string
	Original string
	Mutated  string
	Diff     string
}
