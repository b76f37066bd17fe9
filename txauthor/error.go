// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txauthor

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
)

// ErrAlreadyCompleted is returned when Complete is invoked on a send request
// that has already been completed.  A request carries caller state that is
// mutated in place, so it must not be reused.
var ErrAlreadyCompleted = errors.New("send request already completed")

// InsufficientFundsError is returned when coin selection cannot gather enough
// value to satisfy the requested outputs plus the required fee under any of
// the change-handling strategies.
type InsufficientFundsError struct {
	// Missing is the smallest shortfall observed across the fee search.
	Missing btcutil.Amount
}

// Error returns a human-readable string describing the error.
func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: short %v after fee", e.Missing)
}
