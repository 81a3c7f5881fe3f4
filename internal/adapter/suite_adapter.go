package adapter

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
	m "gooze.dev/pkg/bytemut/internal/model"
)

type suiteFile struct {
	Tests []m.TestCase `yaml:"tests"`
}

// LoadSuite reads a YAML test suite. Missing ids are derived from the
// namespace, class, method and leaf name with whitespace removed; ids must be
// unique and free of whitespace.
func LoadSuite(fs afero.Fs, path m.Path) ([]m.TestCase, error) {
	data, err := afero.ReadFile(fs, string(path))
	if err != nil {
		return nil, fmt.Errorf("read test suite %s: %w", path, err)
	}

	var suite suiteFile
	if err := yaml.Unmarshal(data, &suite); err != nil {
		return nil, fmt.Errorf("parse test suite %s: %w", path, err)
	}

	seen := make(map[string]struct{}, len(suite.Tests))

	for i := range suite.Tests {
		tc := &suite.Tests[i]

		if tc.Target == "" || tc.Method == "" {
			return nil, fmt.Errorf("test suite %s: test %d needs a method and a target", path, i)
		}

		if tc.Class == "" {
			tc.Class = "Tests"
		}

		if tc.ID == "" {
			tc.ID = strings.Join(nonEmpty(tc.Namespace, tc.Class, tc.Method), ".") + "/" + strings.Join(strings.Fields(tc.LeafName()), "")
		}

		// Runners report "<STATUS> <id> <message>" lines.
		if strings.ContainsFunc(tc.ID, unicode.IsSpace) {
			return nil, fmt.Errorf("test suite %s: test id %q contains whitespace", path, tc.ID)
		}

		if _, dup := seen[tc.ID]; dup {
			return nil, fmt.Errorf("test suite %s: duplicate test id %q", path, tc.ID)
		}

		seen[tc.ID] = struct{}{}
	}

	return suite.Tests, nil
}

func nonEmpty(parts ...string) []string {
	out := parts[:0:0]

	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}

	return out
}
