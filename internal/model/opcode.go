package model

// OpCode identifies a stack-machine instruction. All values are int64; booleans
// are 0 and 1.
type OpCode uint8

// Instruction set.
const (
	OpNop OpCode = iota
	OpLdArg
	OpLdLoc
	OpStLoc
	OpLdc
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpRem
	OpNeg
	OpNot
	OpAnd
	OpOr
	OpCeq
	OpCne
	OpClt
	OpCle
	OpCgt
	OpCge
	OpBr
	OpBrTrue
	OpBrFalse
	OpCall
	OpRet
	OpPop
	OpDup
	opCount
)

var opNames = [opCount]string{
	OpNop:     "nop",
	OpLdArg:   "ldarg",
	OpLdLoc:   "ldloc",
	OpStLoc:   "stloc",
	OpLdc:     "ldc",
	OpAdd:     "add",
	OpSub:     "sub",
	OpMul:     "mul",
	OpDiv:     "div",
	OpRem:     "rem",
	OpNeg:     "neg",
	OpNot:     "not",
	OpAnd:     "and",
	OpOr:      "or",
	OpCeq:     "ceq",
	OpCne:     "cne",
	OpClt:     "clt",
	OpCle:     "cle",
	OpCgt:     "cgt",
	OpCge:     "cge",
	OpBr:      "br",
	OpBrTrue:  "brtrue",
	OpBrFalse: "brfalse",
	OpCall:    "call",
	OpRet:     "ret",
	OpPop:     "pop",
	OpDup:     "dup",
}

func (op OpCode) String() string {
	if op >= opCount {
		return "invalid"
	}

	return opNames[op]
}

// Valid reports whether op is part of the instruction set.
func (op OpCode) Valid() bool {
	return op < opCount
}

// HasOperand reports whether the instruction carries an operand.
func (op OpCode) HasOperand() bool {
	switch op {
	case OpLdArg, OpLdLoc, OpStLoc, OpLdc, OpBr, OpBrTrue, OpBrFalse, OpCall:
		return true
	default:
		return false
	}
}

// IsBranch reports whether the operand is an instruction offset.
func (op OpCode) IsBranch() bool {
	return op == OpBr || op == OpBrTrue || op == OpBrFalse
}

// ParseOpCode maps a mnemonic to its OpCode.
func ParseOpCode(name string) (OpCode, bool) {
	for i, n := range opNames {
		if n == name {
			return OpCode(i), true
		}
	}

	return OpNop, false
}
