package model

import "fmt"

// SequencePoint maps an instruction offset to a source position.
type SequencePoint struct {
	Offset int `yaml:"offset"`
	Line   int `yaml:"line"`
	Column int `yaml:"column,omitempty"`
}

// MethodSymbols holds the sequence points of one method.
type MethodSymbols struct {
	Method   string          `yaml:"method"`
	Document string          `yaml:"document,omitempty"`
	Points   []SequencePoint `yaml:"points"`
}

// Symbols is the debug information stored next to a module container.
type Symbols struct {
	Module  string          `yaml:"module"`
	Methods []MethodSymbols `yaml:"methods"`
}

// SourceLocation is a resolved document position.
type SourceLocation struct {
	Document string
	Line     int
	Column   int
}

func (l SourceLocation) String() string {
	if l.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", l.Document, l.Line, l.Column)
	}

	return fmt.Sprintf("%s:%d", l.Document, l.Line)
}

// ModuleRecord pairs a loaded module with its optional debug information.
type ModuleRecord struct {
	Module      *Module
	Path        Path
	Symbols     *Symbols
	SymbolsPath Path
}

// Locate returns the source position of the closest sequence point at or
// before offset inside the named method.
func (r ModuleRecord) Locate(method string, offset int) (SourceLocation, bool) {
	if r.Symbols == nil {
		return SourceLocation{}, false
	}

	for _, ms := range r.Symbols.Methods {
		if ms.Method != method {
			continue
		}

		var (
			best  SequencePoint
			found bool
		)

		for _, p := range ms.Points {
			if p.Offset <= offset && (!found || p.Offset >= best.Offset) {
				best = p
				found = true
			}
		}

		if !found {
			return SourceLocation{}, false
		}

		return SourceLocation{Document: ms.Document, Line: best.Line, Column: best.Column}, true
	}

	return SourceLocation{}, false
}
