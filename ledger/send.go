// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ledger

import (
	"errors"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/btcsuite/txledger/txauthor"
)

// SendPolicy carries the fee and change knobs for building a payment.
type SendPolicy struct {
	// FeePerKB overrides the default fee rate when non-zero.
	FeePerKB btcutil.Amount

	// FixedFee is a flat fee added on top of the size-based fee.
	FixedFee btcutil.Amount

	// DisableMinRelayFee turns off enforcement of the network minimum
	// relay fee and the dust rules.  The zero value enforces both.
	DisableMinRelayFee bool

	// ChangeAddress receives any change value.  Ignored when
	// ChangeScript is set directly.
	ChangeAddress btcutil.Address

	// ChangeScript receives any change value, bypassing address
	// conversion.
	ChangeScript []byte
}

// CreateSend builds a transaction paying the given outputs from the wallet's
// spendable coins, selecting inputs, computing the fee, and adding change
// per the policy.  The completed request is returned; committing the
// resulting transaction back into the ledger is the broadcasting caller's
// responsibility, via ReceivePending.
//
// This function is safe for concurrent access.
func (l *Ledger) CreateSend(outputs []*wire.TxOut, policy *SendPolicy) (*txauthor.SendRequest, error) {
	changeScript := policy.ChangeScript
	if changeScript == nil && policy.ChangeAddress != nil {
		var err error
		changeScript, err = txscript.PayToAddrScript(policy.ChangeAddress)
		if err != nil {
			return nil, err
		}
	}
	if changeScript == nil {
		return nil, errors.New("send policy requires a change address " +
			"or script")
	}

	req := txauthor.NewSendRequest(outputs, changeScript)
	if policy.FeePerKB > 0 {
		req.FeePerKB = policy.FeePerKB
	}
	req.FixedFee = policy.FixedFee
	req.EnsureMinRelayFee = !policy.DisableMinRelayFee

	l.mtx.RLock()
	candidates := l.spendCandidates(true)
	selector := l.cfg.Selector
	l.mtx.RUnlock()

	if err := txauthor.Complete(req, selector, candidates); err != nil {
		return nil, err
	}
	return req, nil
}
