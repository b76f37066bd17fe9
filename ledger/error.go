// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ledger

import "fmt"

// AssertError identifies an error that indicates an internal ledger
// consistency issue and should be treated as a critical and unrecoverable
// error.  Once an AssertError has been returned, no further mutation of the
// ledger should be attempted since the pool partition or spend graph can no
// longer be trusted.
type AssertError string

// Error returns the assertion error as a human-readable string and satisfies
// the error interface.
func (e AssertError) Error() string {
	return "assertion failed: " + string(e)
}

// assertError creates an AssertError with a formatted description.
func assertError(format string, args ...interface{}) AssertError {
	return AssertError(fmt.Sprintf(format, args...))
}

// ErrorCode identifies a kind of error.
type ErrorCode int

// These constants are used to identify a specific LedgerError.
const (
	// ErrInconsistentState indicates an operation left the ledger in a
	// state that fails the internal invariant checks.  The error is fatal
	// for the ledger instance.
	ErrInconsistentState ErrorCode = iota

	// ErrUnknownBlock indicates a reorganization tried to unwind from a
	// block that is not the ledger's current best block.
	ErrUnknownBlock
)

// Map of ErrorCode values back to their constant names for pretty printing.
var errorCodeStrings = map[ErrorCode]string{
	ErrInconsistentState: "ErrInconsistentState",
	ErrUnknownBlock:      "ErrUnknownBlock",
}

// String returns the ErrorCode as a human-readable name.
func (e ErrorCode) String() string {
	if s := errorCodeStrings[e]; s != "" {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// LedgerError identifies a ledger operation failure.  It is used to indicate
// that processing of a transaction or reorganization failed due to one of the
// many validation or bookkeeping rules.  The caller can use type assertions to
// determine if a failure was specifically due to a given rule by examining the
// ErrorCode field.
type LedgerError struct {
	ErrorCode   ErrorCode // Describes the kind of error
	Description string    // Human readable description of the issue
}

// Error satisfies the error interface and prints human-readable errors.
func (e LedgerError) Error() string {
	return e.Description
}

// ledgerError creates a LedgerError given a set of arguments.
func ledgerError(c ErrorCode, desc string) LedgerError {
	return LedgerError{ErrorCode: c, Description: desc}
}
