package adapter

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
	m "gooze.dev/pkg/bytemut/internal/model"
)

// SymbolsPath returns the symbol file that belongs next to a module path.
func SymbolsPath(modulePath m.Path) m.Path {
	p := string(modulePath)
	return m.Path(strings.TrimSuffix(p, filepath.Ext(p)) + SymbolsExt)
}

// ReadSymbols parses a symbol file.
func ReadSymbols(fs afero.Fs, path m.Path) (*m.Symbols, error) {
	data, err := afero.ReadFile(fs, string(path))
	if err != nil {
		return nil, fmt.Errorf("read symbols %s: %w", path, err)
	}

	var syms m.Symbols
	if err := yaml.Unmarshal(data, &syms); err != nil {
		return nil, fmt.Errorf("parse symbols %s: %w", path, err)
	}

	return &syms, nil
}

// WriteSymbols stores syms as YAML.
func WriteSymbols(fs afero.Fs, path m.Path, syms *m.Symbols) error {
	data, err := yaml.Marshal(syms)
	if err != nil {
		return fmt.Errorf("encode symbols: %w", err)
	}

	if err := afero.WriteFile(fs, string(path), data, 0o644); err != nil {
		return fmt.Errorf("write symbols %s: %w", path, err)
	}

	return nil
}
