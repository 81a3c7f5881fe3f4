package domain

import (
	"context"
	"fmt"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pmezard/go-difflib/difflib"
	"gooze.dev/pkg/bytemut/internal/adapter"
	"gooze.dev/pkg/bytemut/internal/bytecode"
	m "gooze.dev/pkg/bytemut/internal/model"
)

// DefaultDiffCacheSize bounds the number of cached differences.
const DefaultDiffCacheSize = 256

// CodeDifferenceCreator renders the mutated method of a mutant next to the
// original one.
type CodeDifferenceCreator interface {
	CreateDifference(ctx context.Context, lang m.CodeLanguage, mutant m.MutantResult) (m.CodeWithDifference, error)
}

type diffKey struct {
	mutant string
	binary m.Path
	lang   m.CodeLanguage
}

type codeDifferenceCreator struct {
	store adapter.ModuleStore
	cache *lru.Cache[diffKey, m.CodeWithDifference]
}

// NewCodeDifferenceCreator constructs a CodeDifferenceCreator that reads
// mutant binaries through store and keeps up to size results.
func NewCodeDifferenceCreator(store adapter.ModuleStore, size int) (CodeDifferenceCreator, error) {
	if size <= 0 {
		size = DefaultDiffCacheSize
	}

	cache, err := lru.New[diffKey, m.CodeWithDifference](size)
	if err != nil {
		return nil, fmt.Errorf("create diff cache: %w", err)
	}

	return &codeDifferenceCreator{store: store, cache: cache}, nil
}

func (c *codeDifferenceCreator) CreateDifference(ctx context.Context, lang m.CodeLanguage, mutant m.MutantResult) (m.CodeWithDifference, error) {
	key := diffKey{mutant: mutant.ID, binary: mutant.Binary, lang: lang}
	if diff, ok := c.cache.Get(key); ok {
		return diff, nil
	}

	if mutant.Binary == "" {
		return m.CodeWithDifference{}, fmt.Errorf("mutant %s has no binary", mutant.ID)
	}

	record, ok := c.store.Record(mutant.Module)
	if !ok {
		return m.CodeWithDifference{}, fmt.Errorf("module %s is not loaded", mutant.Module)
	}

	mutated, err := c.store.Open(ctx, mutant.Binary)
	if err != nil {
		slog.Error("Failed to open mutant binary", "mutant", mutant.ID, "binary", mutant.Binary, "error", err)
		return m.CodeWithDifference{}, fmt.Errorf("open mutant %s: %w", mutant.ID, err)
	}

	original, err := renderMethod(lang, record.Module, mutant.Method)
	if err != nil {
		return m.CodeWithDifference{}, err
	}

	changed, err := renderMethod(lang, mutated, mutant.Method)
	if err != nil {
		return m.CodeWithDifference{}, err
	}

	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(original),
		B:        difflib.SplitLines(changed),
		FromFile: "original/" + mutant.Method,
		ToFile:   mutant.ID + "/" + mutant.Method,
		Context:  3,
	})
	if err != nil {
		return m.CodeWithDifference{}, fmt.Errorf("diff mutant %s: %w", mutant.ID, err)
	}

	diff := m.CodeWithDifference{
		Language: lang,
		Method:   mutant.Method,
		Original: original,
		Mutated:  changed,
		Diff:     text,
	}
	c.cache.Add(key, diff)

	return diff, nil
}

func renderMethod(lang m.CodeLanguage, mod *m.Module, method string) (string, error) {
	h, ok := mod.FindMethod(method)
	if !ok {
		return "", fmt.Errorf("method %s not found in module %s", method, mod.Name)
	}

	return bytecode.Render(lang, mod, h)
}
