package domain

import (
	"slices"

	m "gooze.dev/pkg/bytemut/internal/model"
	pkg "gooze.dev/pkg/bytemut/pkg"
)

// summarize reads every spilled result in discovery order and counts verdicts.
// The score is killed / (killed + survived); mutants whose tests could not
// decide are left out. Without decided mutants the score is 1.
func summarize(results pkg.FileSpill[m.MutantResult]) ([]m.MutantResult, m.Summary, error) {
	var (
		mutants []m.MutantResult
		summary m.Summary
	)

	err := results.Range(func(_ uint64, result m.MutantResult) error {
		mutants = append(mutants, result)
		summary.Add(result.Verdict)

		return nil
	})
	if err != nil {
		return nil, m.Summary{}, err
	}

	slices.SortFunc(mutants, func(a, b m.MutantResult) int { return a.Index - b.Index })

	summary.Score = MutationScore(summary)

	return mutants, summary, nil
}

// MutationScore is the share of decided mutants that were killed.
func MutationScore(s m.Summary) float64 {
	decided := s.Killed + s.Survived
	if decided == 0 {
		return 1
	}

	return float64(s.Killed) / float64(decided)
}
