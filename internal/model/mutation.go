package model

import "fmt"

// MutationTarget locates one mutable instruction. It is only meaningful for the
// module version it was discovered on.
type MutationTarget struct {
	Operator    string
	Module      string
	Type        TypeHandle
	Method      MethodHandle
	MethodName  string
	Offset      int
	Original    Instruction
	Replacement Instruction
	Variant     string
}

func (t MutationTarget) String() string {
	return fmt.Sprintf("%s %s@%d (%s)", t.Operator, t.MethodName, t.Offset, t.Variant)
}

// MutationContext is the unit of work handed to an operator's Mutate step.
type MutationContext struct {
	Module *Module
	Target MutationTarget
	Params map[string]string
}

// OperatorInfo describes a mutation operator for listings.
type OperatorInfo struct {
	ID          string
	Name        string
	Description string
}
