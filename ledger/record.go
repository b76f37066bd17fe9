// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ledger

import (
	"fmt"
	"math/big"
	"time"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// Pool identifies which of the four mutually exclusive ledger pools a
// transaction currently belongs to.  Every tracked transaction is in exactly
// one pool; the pool is stored once per record and only changed through
// Ledger.setPool so the partition invariant is structural rather than
// emergent.
type Pool uint8

// Constants for the ledger pools.
const (
	// PoolPending contains transactions that have been announced but are
	// not yet included in the best chain.
	PoolPending Pool = iota

	// PoolUnspent contains confirmed transactions with at least one owned
	// output that has not been spent.
	PoolUnspent

	// PoolSpent contains confirmed transactions whose owned outputs have
	// all been spent, including transactions that only send value away
	// from the wallet.
	PoolSpent

	// PoolDead contains transactions that lost a double-spend race or
	// depended on one that did.
	PoolDead

	// numPools is the number of ledger pools.  It must come last in this
	// block.
	numPools
)

// poolStrings is a map of pools back to their constant names for pretty
// printing.
var poolStrings = map[Pool]string{
	PoolPending: "pending",
	PoolUnspent: "unspent",
	PoolSpent:   "spent",
	PoolDead:    "dead",
}

// String returns the Pool in human-readable form.
func (p Pool) String() string {
	if s, ok := poolStrings[p]; ok {
		return s
	}
	return fmt.Sprintf("unknown Pool (%d)", uint8(p))
}

// TxRecord is a transaction tracked by the ledger along with the metadata the
// ledger maintains about it.  A record is owned by exactly one ledger and all
// of its mutable fields are protected by that ledger's lock.
type TxRecord struct {
	// tx is the transaction this record tracks.
	tx *btcutil.Tx

	// pool is the pool the record currently belongs to.  It is only
	// meaningful once the record has been inserted via Ledger.setPool.
	pool Pool

	// confidence tracks the chain position state machine for the
	// transaction.
	confidence Confidence

	// updated is the time the record was last mutated.
	updated time.Time
}

// Tx returns the transaction the record tracks.
func (r *TxRecord) Tx() *btcutil.Tx {
	return r.tx
}

// Hash returns the hash of the tracked transaction.
func (r *TxRecord) Hash() *chainhash.Hash {
	return r.tx.Hash()
}

// Pool returns the pool the record currently belongs to.
//
// The returned value is a snapshot; it may be stale by the time the caller
// inspects it if the ledger is mutated concurrently.
func (r *TxRecord) Pool() Pool {
	return r.pool
}

// Confidence returns a copy of the record's confidence data.  The copy is
// deep so the caller may inspect it without holding the ledger lock.
func (r *TxRecord) Confidence() Confidence {
	c := r.confidence
	c.AppearedIn = make(map[chainhash.Hash]struct{}, len(r.confidence.AppearedIn))
	for hash := range r.confidence.AppearedIn {
		c.AppearedIn[hash] = struct{}{}
	}
	c.WorkDone = new(big.Int).Set(r.confidence.WorkDone)
	if r.confidence.OverridingTx != nil {
		overriding := *r.confidence.OverridingTx
		c.OverridingTx = &overriding
	}
	return c
}

// UpdateTime returns the time the record was last mutated.
func (r *TxRecord) UpdateTime() time.Time {
	return r.updated
}

// String returns the record in human-readable form.
func (r *TxRecord) String() string {
	return fmt.Sprintf("%v (%v, %v)", r.tx.Hash(), r.pool,
		r.confidence.Type)
}

// isCoinBase returns whether the record tracks a coinbase transaction.
func (r *TxRecord) isCoinBase() bool {
	return blockchain.IsCoinBaseTx(r.tx.MsgTx())
}
