// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txauthor

import (
	"errors"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcwallet/wallet/txrules"
	"github.com/btcsuite/btcwallet/wallet/txsizes"
)

// SendRequest is an incomplete transaction together with the policy knobs
// controlling how it is completed.  A request is created by the caller,
// mutated in place by Complete, and marked completed exactly once; reuse is
// an error.
type SendRequest struct {
	// Tx is the transaction being built.  The caller populates the
	// desired outputs; Complete adds the inputs and any change output.
	Tx *wire.MsgTx

	// FixedFee is a flat fee added on top of the size-based fee.
	FixedFee btcutil.Amount

	// FeePerKB is the fee rate charged per started kilobyte of
	// serialized transaction.
	FeePerKB btcutil.Amount

	// EnsureMinRelayFee enforces the network minimum relay fee and
	// forbids creating dust change outputs.
	EnsureMinRelayFee bool

	// ChangeScript receives any change value.
	ChangeScript []byte

	// Fee is the total network fee of the completed transaction.  Set by
	// Complete.
	Fee btcutil.Amount

	// ChangeIndex is the output index of the change output, or -1 when
	// the completed transaction has no change.  Set by Complete.
	ChangeIndex int

	completed bool
}

// NewSendRequest returns a send request paying the given outputs with the
// default fee policy.
func NewSendRequest(outputs []*wire.TxOut, changeScript []byte) *SendRequest {
	tx := wire.NewMsgTx(wire.TxVersion)
	for _, txOut := range outputs {
		tx.AddTxOut(txOut)
	}
	return &SendRequest{
		Tx:                tx,
		FeePerKB:          txrules.DefaultRelayFeePerKb,
		EnsureMinRelayFee: true,
		ChangeScript:      changeScript,
		ChangeIndex:       -1,
	}
}

// Completed returns whether the request has already been completed.
func (req *SendRequest) Completed() bool {
	return req.completed
}

// feeCandidate is one viable way to complete a request found during the fee
// search.
type feeCandidate struct {
	selection CoinSelection
	fee       btcutil.Amount
	change    btcutil.Amount // zero means no change output
}

// Complete iteratively sizes the requested transaction, selects inputs, adds
// change, and converges on the minimal adequate network fee.  Because the
// size of the final transaction (and hence its fee) depends on whether a
// change output is affordable, three mutually exclusive outcomes are tracked
// in parallel: change kept as a real output, extra value pulled in so the
// change clears the dust threshold, and change discarded entirely into the
// fee.  The cheapest viable outcome wins.
//
// On success the request's transaction is mutated in place (inputs appended,
// optional change output appended) and the request is marked completed.  A
// second call on the same request fails with ErrAlreadyCompleted.  When no
// outcome can cover the requested value an *InsufficientFundsError carrying
// the smallest observed shortfall is returned and the request is left
// untouched.
func Complete(req *SendRequest, selector CoinSelector, candidates []Coin) error {
	if req.completed {
		return ErrAlreadyCompleted
	}
	if req.Tx == nil || len(req.Tx.TxOut) == 0 {
		return errors.New("send request has no outputs")
	}
	if len(req.ChangeScript) == 0 {
		return errors.New("send request has no change script")
	}
	if selector == nil {
		selector = &DefaultSelector{}
	}

	var value btcutil.Amount
	for _, txOut := range req.Tx.TxOut {
		value += btcutil.Amount(txOut.Value)
	}

	log.Debugf("Completing send of %v (fee rate %v/kB, fixed fee %v)",
		value, req.FeePerKB, req.FixedFee)

	// Category 1 keeps the change, category 2 is the re-run with extra
	// value pulled in after a dusty round, category 3 folds the change
	// into the fee.
	var withChange, pulledExtra, noChange *feeCandidate
	var extraToPull btcutil.Amount
	shortfall := btcutil.Amount(-1)

	for round := 0; round < 2; round++ {
		additional := btcutil.Amount(0)
		if round == 1 {
			if extraToPull == 0 {
				break
			}
			additional = extraToPull
		}

		lastSize := 0
		for {
			fee := req.fixedPlusRateFee(lastSize)
			valueNeeded := value + fee + additional

			selection := selector.Select(valueNeeded, candidates)
			if selection.TotalValue < valueNeeded {
				missing := valueNeeded - selection.TotalValue
				if shortfall < 0 || missing < shortfall {
					shortfall = missing
				}
				break
			}

			change := selection.TotalValue - value - fee

			// Change at or below the minimum relay fee cannot pay
			// its own way and may be given to miners outright.
			// Dusty change above that bound must instead be grown
			// past the dust threshold by selecting extra value.
			discardable := change < txrules.DefaultRelayFeePerKb+1
			smallChange := discardable || txrules.IsDustOutput(
				wire.NewTxOut(int64(change), req.ChangeScript),
				txrules.DefaultRelayFeePerKb)
			wantChange := change > 0 &&
				!(req.EnsureMinRelayFee && smallChange)

			// The fee depends on the serialized size, which in
			// turn depends on the selection; iterate until the
			// size estimate stabilizes.
			size := txsizes.EstimateSerializeSize(
				len(selection.Coins), req.Tx.TxOut, wantChange,
			)
			if size > lastSize && req.FeePerKB > 0 {
				lastSize = size
				continue
			}

			if wantChange {
				cand := &feeCandidate{
					selection: selection,
					fee:       fee,
					change:    change,
				}
				if round == 0 {
					withChange = cand
				} else {
					pulledExtra = cand
				}
			} else {
				if discardable {
					// Change (if any) is below what the
					// network cares to relay; it becomes
					// fee.
					cand := &feeCandidate{
						selection: selection,
						fee:       fee + change,
					}
					if noChange == nil || cand.fee < noChange.fee {
						noChange = cand
					}
				}
				if round == 0 && change > 0 {
					// Try again pulling in enough extra
					// value to escape the dust zone.
					extraToPull = txrules.DefaultRelayFeePerKb + 1
				}
			}
			break
		}
	}

	best := cheapestCandidate(withChange, pulledExtra, noChange)
	if best == nil {
		if shortfall < 0 {
			shortfall = value
		}
		return &InsufficientFundsError{Missing: shortfall}
	}

	for i := range best.selection.Coins {
		outPoint := best.selection.Coins[i].OutPoint
		req.Tx.AddTxIn(wire.NewTxIn(&outPoint, nil, nil))
	}
	if best.change > 0 {
		req.Tx.AddTxOut(wire.NewTxOut(int64(best.change),
			req.ChangeScript))
		req.ChangeIndex = len(req.Tx.TxOut) - 1
	}
	req.Fee = best.fee
	req.completed = true

	log.Debugf("Completed send: %d inputs, %d outputs, fee %v, change %v",
		len(req.Tx.TxIn), len(req.Tx.TxOut), req.Fee, best.change)
	return nil
}

// fixedPlusRateFee returns the fee for a transaction of the given estimated
// size, charging the fee rate per started kilobyte and enforcing the network
// minimum when requested.  A zero size charges a single fee-rate unit as the
// starting estimate.
func (req *SendRequest) fixedPlusRateFee(size int) btcutil.Amount {
	fee := req.FixedFee
	if size > 0 {
		fee += req.FeePerKB * btcutil.Amount(1+size/1000)
	} else {
		fee += req.FeePerKB
	}
	if req.EnsureMinRelayFee && fee < txrules.DefaultRelayFeePerKb {
		fee = txrules.DefaultRelayFeePerKb
	}
	return fee
}

// cheapestCandidate returns the candidate with the lowest fee, preferring
// earlier arguments on ties.
func cheapestCandidate(candidates ...*feeCandidate) *feeCandidate {
	var best *feeCandidate
	for _, cand := range candidates {
		if cand == nil {
			continue
		}
		if best == nil || cand.fee < best.fee {
			best = cand
		}
	}
	return best
}
