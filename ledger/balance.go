// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ledger

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"

	"github.com/btcsuite/txledger/txauthor"
)

// BalanceKind selects which notion of wallet balance to compute.
type BalanceKind int

const (
	// BalanceAvailable is the value that could be spent right now under
	// the configured selection policy.
	BalanceAvailable BalanceKind = iota

	// BalanceEstimated is the value the wallet would hold if every
	// pending transaction confirmed, including not yet mature coinbases.
	BalanceEstimated
)

// String returns the BalanceKind in human-readable form.
func (k BalanceKind) String() string {
	switch k {
	case BalanceAvailable:
		return "available"
	case BalanceEstimated:
		return "estimated"
	}
	return fmt.Sprintf("unknown BalanceKind (%d)", int(k))
}

// Balance computes the requested wallet balance.
//
// This function is safe for concurrent access.
func (l *Ledger) Balance(kind BalanceKind) btcutil.Amount {
	l.mtx.RLock()
	defer l.mtx.RUnlock()

	switch kind {
	case BalanceAvailable:
		candidates := l.spendCandidates(true)
		selection := l.cfg.Selector.Select(txauthor.MaxAmount, candidates)
		return selection.TotalValue

	case BalanceEstimated:
		var total btcutil.Amount
		for _, pool := range []Pool{PoolUnspent, PoolPending} {
			for _, r := range l.pools[pool] {
				total += l.unspentOwnedValue(r)
			}
		}
		return total
	}
	return 0
}

// SpendCandidates returns the outputs the wallet could select from when
// building a payment.  An output qualifies when the wallet controls it, no
// tracked input consumes it, and its transaction is either confirmed or is a
// self-created pending transaction announced back by more than one peer.
// When excludeImmature is set, outputs of coinbases younger than the chain's
// maturity period are withheld.
//
// This function is safe for concurrent access.
func (l *Ledger) SpendCandidates(excludeImmature bool) []txauthor.Coin {
	l.mtx.RLock()
	candidates := l.spendCandidates(excludeImmature)
	l.mtx.RUnlock()
	return candidates
}

// spendCandidates implements SpendCandidates.
//
// This function MUST be called with the ledger lock held (for reads).
func (l *Ledger) spendCandidates(excludeImmature bool) []txauthor.Coin {
	var candidates []txauthor.Coin
	maturity := int32(l.cfg.ChainParams.CoinbaseMaturity)

	appendCandidates := func(r *TxRecord) {
		coinbase := r.isCoinBase()
		depth := r.confidence.DepthInBlocks
		if excludeImmature && coinbase && depth < maturity {
			return
		}
		prevOut := wire.OutPoint{Hash: *r.Hash()}
		for i, txOut := range r.tx.MsgTx().TxOut {
			if !l.ownsOutput(txOut) {
				continue
			}
			prevOut.Index = uint32(i)
			if _, spent := l.spends.spender(prevOut); spent {
				continue
			}
			candidates = append(candidates, txauthor.Coin{
				OutPoint:      prevOut,
				Value:         btcutil.Amount(txOut.Value),
				PkScript:      txOut.PkScript,
				Confirmations: depth,
				FromCoinbase:  coinbase,
			})
		}
	}

	for _, r := range l.pools[PoolUnspent] {
		appendCandidates(r)
	}
	for _, r := range l.pools[PoolPending] {
		// An unconfirmed transaction is only trusted when this wallet
		// created it and the network has echoed it back from more
		// than one peer.
		if r.confidence.Source != SourceSelf || r.confidence.SeenPeers <= 1 {
			continue
		}
		appendCandidates(r)
	}
	return candidates
}

// unspentOwnedValue sums the record's owned outputs that no tracked input
// consumes.
//
// This function MUST be called with the ledger lock held (for reads).
func (l *Ledger) unspentOwnedValue(r *TxRecord) btcutil.Amount {
	var total btcutil.Amount
	prevOut := wire.OutPoint{Hash: *r.Hash()}
	for i, txOut := range r.tx.MsgTx().TxOut {
		if !l.ownsOutput(txOut) {
			continue
		}
		prevOut.Index = uint32(i)
		if _, spent := l.spends.spender(prevOut); spent {
			continue
		}
		total += btcutil.Amount(txOut.Value)
	}
	return total
}
