// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ledger

// CheckConsistency verifies the ledger's global invariants: the pool
// partition (every tracked hash in exactly one pool), the spend graph
// (every connection joins a real input to a real output, dead transactions
// hold no connections), and pool membership agreeing with the spend graph.
//
// The check is a diagnostic for tests and debugging.  Production control
// flow never consults it to recover, since recovering would hide the
// invariant bug that put the ledger into the bad state.  A non-nil result is
// an AssertError and the ledger must not be mutated further.
//
// This function is safe for concurrent access.
func (l *Ledger) CheckConsistency() error {
	l.mtx.RLock()
	defer l.mtx.RUnlock()
	return l.checkConsistency()
}

// checkConsistency implements CheckConsistency.
//
// This function MUST be called with the ledger lock held (for reads).
func (l *Ledger) checkConsistency() error {
	// Pool partition: the pool indexes together contain every tracked
	// transaction exactly once, and each record agrees with the index
	// holding it.
	total := 0
	for pool := PoolPending; pool < numPools; pool++ {
		total += len(l.pools[pool])
		for hash, r := range l.pools[pool] {
			if r.pool != pool {
				return assertError("transaction %v indexed in "+
					"%v pool but records %v", hash, pool,
					r.pool)
			}
			if l.txs[hash] != r {
				return assertError("transaction %v in %v pool "+
					"is not the tracked record", hash, pool)
			}
		}
	}
	if total != len(l.txs) {
		return assertError("pool partition broken: %d pooled vs %d "+
			"tracked", total, len(l.txs))
	}

	// Spend graph: each connection references a tracked spender whose
	// input really claims the outpoint, and a tracked parent that really
	// has the output.  Dead transactions hold no connections.
	for prevOut, ref := range l.spends.spentBy {
		spender, ok := l.txs[ref.txHash]
		if !ok {
			return assertError("outpoint %v spent by untracked "+
				"transaction %v", prevOut, ref.txHash)
		}
		txIns := spender.tx.MsgTx().TxIn
		if ref.index >= uint32(len(txIns)) {
			return assertError("outpoint %v spent by missing input "+
				"%d of %v", prevOut, ref.index, ref.txHash)
		}
		if txIns[ref.index].PreviousOutPoint != prevOut {
			return assertError("input %d of %v does not reference "+
				"outpoint %v", ref.index, ref.txHash, prevOut)
		}
		if spender.pool == PoolDead {
			return assertError("dead transaction %v holds a "+
				"connection to outpoint %v", ref.txHash, prevOut)
		}
		parent, ok := l.txs[prevOut.Hash]
		if !ok {
			return assertError("outpoint %v of untracked parent "+
				"is connected", prevOut)
		}
		if prevOut.Index >= uint32(len(parent.tx.MsgTx().TxOut)) {
			return assertError("connected outpoint %v does not "+
				"exist on its parent", prevOut)
		}
	}

	// Pool membership matches the spend graph for confirmed
	// transactions.
	for hash, r := range l.pools[PoolUnspent] {
		if !l.hasUnspentOwnedOutput(r) {
			return assertError("transaction %v in unspent pool "+
				"has no unspent owned output", hash)
		}
	}
	for hash, r := range l.pools[PoolSpent] {
		if l.hasUnspentOwnedOutput(r) {
			return assertError("transaction %v in spent pool has "+
				"an unspent owned output", hash)
		}
	}
	return nil
}
