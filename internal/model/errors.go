package model

import "errors"

var (
	// ErrInvalidModuleFormat reports a file that is not a module container.
	ErrInvalidModuleFormat = errors.New("invalid module format")
	// ErrInvalidTarget reports a target that does not match the module.
	ErrInvalidTarget = errors.New("invalid mutation target")
	// ErrSerialization reports an inconsistent module at write time.
	ErrSerialization = errors.New("serialization error")
	// ErrTestExecution reports a test run that could not complete.
	ErrTestExecution = errors.New("test execution failure")
	// ErrIllegalTransition reports a misuse of the test tree state machine.
	ErrIllegalTransition = errors.New("illegal test state transition")
	// ErrContractViolation reports an operator that changed code outside its target.
	ErrContractViolation = errors.New("mutation operator contract violation")
)
