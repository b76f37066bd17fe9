// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ledger

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// checkDoubleSpendAgainstPending scans the pending pool for a transaction
// claiming any of the outpoints spent by the given record.  When takeAction
// is true the first colliding pending transaction found is killed in favor
// of the given record.  The colliding record, if any, is returned so the
// caller can use the check both as a relevance filter and as the kill
// trigger.
//
// An input references exactly one outpoint, so the first collision per
// outpoint needs no further tie-break.
//
// This function MUST be called with the ledger lock held (for writes).
func (l *Ledger) checkDoubleSpendAgainstPending(r *TxRecord, takeAction bool) *TxRecord {
	hash := *r.Hash()

	var found *TxRecord
	for _, txIn := range r.tx.MsgTx().TxIn {
		for _, pending := range l.pools[PoolPending] {
			if *pending.Hash() == hash {
				continue
			}
			if !spendsOutpoint(pending, txIn.PreviousOutPoint) {
				continue
			}
			if found == nil {
				found = pending
			}
			if takeAction {
				l.killTx(r, pending)
			}
		}
	}
	return found
}

// spendsOutpoint returns whether any input of the record references the given
// outpoint.
func spendsOutpoint(r *TxRecord, prevOut wire.OutPoint) bool {
	for _, txIn := range r.tx.MsgTx().TxIn {
		if txIn.PreviousOutPoint == prevOut {
			return true
		}
	}
	return false
}

// killTx moves the losing transaction into the dead pool, disconnects every
// input it had connected (migrating ancestors back to the unspent pool as
// needed), and marks any pending transaction spending one of the loser's
// outputs dead as well.  The cascade deliberately stops at direct
// dependents: dependents of dependents are left untouched, matching
// long-standing wallet behavior, since transitively killing them changes
// money-handling semantics.
//
// When an overriding transaction is known, its still unconnected inputs are
// reconnected against whichever pool now holds the contested outputs; the
// override may spend coins the wallet also controls.  When override is nil
// (for example the loser depended on a reorganized coinbase), the loser is
// killed unconditionally with no further resolution.
//
// This function MUST be called with the ledger lock held (for writes).
func (l *Ledger) killTx(override, loser *TxRecord) {
	var overrideHash *chainhash.Hash
	if override != nil {
		overrideHash = override.Hash()
	}
	log.Warnf("Killing transaction %v (overridden by %v)", loser.Hash(),
		overrideHash)

	l.markDead(loser, overrideHash)

	// Direct dependents lose their money too.  Note the cascade is not
	// transitive; see above.
	for _, dep := range l.pendingSpenders(loser) {
		log.Warnf("Killing dependent pending transaction %v", dep.Hash())
		l.markDead(dep, overrideHash)
	}

	if override != nil {
		l.connectInputs(override)
	}

	l.queueBalanceChanged()
}

// markDead places a single record into the dead pool, freeing every output
// its inputs had claimed.
//
// This function MUST be called with the ledger lock held (for writes).
func (l *Ledger) markDead(r *TxRecord, overriding *chainhash.Hash) {
	l.disconnectInputs(r)
	l.setPool(r, PoolDead)
	r.confidence.setDead(overriding)
	l.queueConfidenceChanged(r, ReasonType)
}

// pendingSpenders returns the pending transactions with an input connected to
// one of the record's outputs.
//
// This function MUST be called with the ledger lock held (for reads).
func (l *Ledger) pendingSpenders(r *TxRecord) []*TxRecord {
	var spenders []*TxRecord
	prevOut := wire.OutPoint{Hash: *r.Hash()}
	for i := range r.tx.MsgTx().TxOut {
		prevOut.Index = uint32(i)
		ref, ok := l.spends.spender(prevOut)
		if !ok {
			continue
		}
		spender, ok := l.txs[ref.txHash]
		if ok && spender.pool == PoolPending {
			spenders = append(spenders, spender)
		}
	}
	return spenders
}
