// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ledger

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// inputRef identifies a specific input of a specific tracked transaction.
type inputRef struct {
	txHash chainhash.Hash
	index  uint32
}

// connectResult is the outcome of attempting to connect an input to the
// output it references.
type connectResult int

const (
	// connectMissing indicates the referenced outpoint's parent
	// transaction is not present in the searched pool.  The caller tries
	// the next pool.
	connectMissing connectResult = iota

	// connectAlreadySpent indicates the referenced output exists but is
	// already claimed by a different input.  This is a conflict signal,
	// not an error; the ledger keeps operating.
	connectAlreadySpent

	// connectOK indicates the output is now marked spent by the input.
	connectOK
)

// spendGraph tracks, for every output the ledger knows about, whether and by
// which input it has been consumed.  An output has zero or one spender; that
// invariant is enforced here and nowhere else.
//
// All spendGraph methods MUST be called with the owning ledger's lock held
// (for writes).
type spendGraph struct {
	// spentBy maps a spent outpoint to the input consuming it.
	spentBy map[wire.OutPoint]inputRef
}

// newSpendGraph returns an empty spend graph.
func newSpendGraph() *spendGraph {
	return &spendGraph{
		spentBy: make(map[wire.OutPoint]inputRef),
	}
}

// spender returns the input currently consuming the given outpoint, if any.
func (g *spendGraph) spender(prevOut wire.OutPoint) (inputRef, bool) {
	ref, ok := g.spentBy[prevOut]
	return ref, ok
}

// connectInput attempts to connect the numbered input of the given record
// against the output it references, searching only the provided pool for the
// parent transaction.  On success the output is marked spent and, if the
// parent transaction no longer has any unspent owned outputs, the parent is
// migrated from the unspent pool to the spent pool.
//
// This function MUST be called with the ledger lock held (for writes).
func (l *Ledger) connectInput(r *TxRecord, inIdx int, pool Pool) connectResult {
	txIn := r.tx.MsgTx().TxIn[inIdx]
	prevOut := txIn.PreviousOutPoint

	parent, ok := l.pools[pool][prevOut.Hash]
	if !ok {
		return connectMissing
	}
	if prevOut.Index >= uint32(len(parent.tx.MsgTx().TxOut)) {
		// Upstream validation guarantees referenced outputs exist, so
		// a bad index means the parent in this pool is a different
		// transaction than expected.  Treat as not found.
		return connectMissing
	}

	ref := inputRef{txHash: *r.Hash(), index: uint32(inIdx)}
	if existing, ok := l.spends.spender(prevOut); ok {
		if existing == ref {
			return connectOK
		}
		log.Tracef("Outpoint %v already spent by input %d of %v",
			prevOut, existing.index, existing.txHash)
		return connectAlreadySpent
	}

	l.spends.spentBy[prevOut] = ref
	log.Tracef("Connected input %d of %v to outpoint %v in %v pool",
		inIdx, r.Hash(), prevOut, pool)

	// The parent may have just had its last unspent owned output
	// consumed.
	if parent.pool == PoolUnspent && !l.hasUnspentOwnedOutput(parent) {
		l.setPool(parent, PoolSpent)
	}
	return connectOK
}

// disconnectInput frees the output referenced by the numbered input of the
// given record, provided that input is the one consuming it.  If the parent
// transaction had been migrated to the spent pool, it is migrated back to the
// unspent pool.  Returns whether a connection was actually removed.
//
// This function MUST be called with the ledger lock held (for writes), and
// before any re-connection attempt for the same input to avoid stale
// double-booking.
func (l *Ledger) disconnectInput(r *TxRecord, inIdx int) bool {
	txIn := r.tx.MsgTx().TxIn[inIdx]
	prevOut := txIn.PreviousOutPoint

	ref := inputRef{txHash: *r.Hash(), index: uint32(inIdx)}
	existing, ok := l.spends.spender(prevOut)
	if !ok || existing != ref {
		return false
	}

	delete(l.spends.spentBy, prevOut)
	log.Tracef("Disconnected input %d of %v from outpoint %v", inIdx,
		r.Hash(), prevOut)

	parent, ok := l.txs[prevOut.Hash]
	if ok && parent.pool == PoolSpent && l.hasUnspentOwnedOutput(parent) {
		l.setPool(parent, PoolUnspent)
	}
	return true
}

// disconnectInputs frees every output currently connected to an input of the
// given record.
//
// This function MUST be called with the ledger lock held (for writes).
func (l *Ledger) disconnectInputs(r *TxRecord) {
	for i := range r.tx.MsgTx().TxIn {
		l.disconnectInput(r, i)
	}
}

// connectInputs attempts to connect every input of the given record,
// searching the unspent, spent, and pending pools in that order.  The first
// pool containing the parent wins.  Inputs whose parents are unknown to the
// ledger remain unconnected, as do inputs whose referenced output is already
// claimed by a different transaction.
//
// This function MUST be called with the ledger lock held (for writes).
func (l *Ledger) connectInputs(r *TxRecord) {
	for i := range r.tx.MsgTx().TxIn {
	pools:
		for _, pool := range []Pool{PoolUnspent, PoolSpent, PoolPending} {
			switch l.connectInput(r, i, pool) {
			case connectOK, connectAlreadySpent:
				break pools
			}
		}
	}
}

// ownsOutput returns whether the wallet's keys control the given output.
func (l *Ledger) ownsOutput(txOut *wire.TxOut) bool {
	return l.cfg.IsOurScript(txOut.PkScript)
}

// hasUnspentOwnedOutput returns whether the record has at least one output
// the wallet controls that is not consumed by any connected input.
//
// This function MUST be called with the ledger lock held (for reads).
func (l *Ledger) hasUnspentOwnedOutput(r *TxRecord) bool {
	prevOut := wire.OutPoint{Hash: *r.Hash()}
	for i, txOut := range r.tx.MsgTx().TxOut {
		if !l.ownsOutput(txOut) {
			continue
		}
		prevOut.Index = uint32(i)
		if _, spent := l.spends.spender(prevOut); !spent {
			return true
		}
	}
	return false
}
