// Package model defines the data structures for mutation testing.
package model

import (
	"fmt"
	"slices"
	"strings"
)

// Path represents a file system path.
type Path string

// TypeHandle indexes Module.Types.
type TypeHandle int32

// MethodHandle indexes Module.Methods.
type MethodHandle int32

// Instruction is a single stack-machine instruction. For OpCall the operand is a
// MethodHandle of the same module; for branches it is the target offset.
type Instruction struct {
	Op      OpCode
	Operand int64
}

func (i Instruction) String() string {
	if i.Op.HasOperand() {
		return fmt.Sprintf("%s %d", i.Op, i.Operand)
	}

	return i.Op.String()
}

// TypeDef is a named container of methods.
type TypeDef struct {
	Namespace string
	Name      string
	Methods   []MethodHandle
}

// FullName returns Namespace.Name, or just Name for the global namespace.
func (t TypeDef) FullName() string {
	if t.Namespace == "" {
		return t.Name
	}

	return t.Namespace + "." + t.Name
}

// MethodDef is a method with its integer parameters, locals and body.
type MethodDef struct {
	Name   string
	Owner  TypeHandle
	Params int
	Locals int
	Body   []Instruction
}

// Module is the in-memory representation of one compiled code unit. Types and
// methods live in flat arenas and reference each other by handle, so a copy of
// the arenas is a complete, self-contained module.
type Module struct {
	Name    string
	Types   []TypeDef
	Methods []MethodDef
}

// Type returns the type behind h.
func (mod *Module) Type(h TypeHandle) (*TypeDef, bool) {
	if h < 0 || int(h) >= len(mod.Types) {
		return nil, false
	}

	return &mod.Types[h], true
}

// Method returns the method behind h.
func (mod *Module) Method(h MethodHandle) (*MethodDef, bool) {
	if h < 0 || int(h) >= len(mod.Methods) {
		return nil, false
	}

	return &mod.Methods[h], true
}

// TypeHandles returns every type handle in declaration order.
func (mod *Module) TypeHandles() []TypeHandle {
	handles := make([]TypeHandle, len(mod.Types))
	for i := range mod.Types {
		handles[i] = TypeHandle(i)
	}

	return handles
}

// MethodFullName renders a method as Namespace.Type::Method.
func (mod *Module) MethodFullName(h MethodHandle) string {
	method, ok := mod.Method(h)
	if !ok {
		return fmt.Sprintf("<method %d>", h)
	}

	owner, ok := mod.Type(method.Owner)
	if !ok {
		return "<unknown>::" + method.Name
	}

	return owner.FullName() + "::" + method.Name
}

// FindMethod resolves a Namespace.Type::Method name.
func (mod *Module) FindMethod(fullName string) (MethodHandle, bool) {
	typeName, methodName, ok := strings.Cut(fullName, "::")
	if !ok {
		return -1, false
	}

	for ti := range mod.Types {
		if mod.Types[ti].FullName() != typeName {
			continue
		}

		for _, mh := range mod.Types[ti].Methods {
			if method, ok := mod.Method(mh); ok && method.Name == methodName {
				return mh, true
			}
		}
	}

	return -1, false
}

// Clone returns a deep copy that shares no mutable state with mod. Handles are
// arena indices, so every reference in the copy resolves inside the copy.
func (mod *Module) Clone() *Module {
	clone := &Module{
		Name:    mod.Name,
		Types:   make([]TypeDef, len(mod.Types)),
		Methods: make([]MethodDef, len(mod.Methods)),
	}

	for i, t := range mod.Types {
		t.Methods = slices.Clone(t.Methods)
		clone.Types[i] = t
	}

	for i, method := range mod.Methods {
		method.Body = slices.Clone(method.Body)
		clone.Methods[i] = method
	}

	return clone
}
