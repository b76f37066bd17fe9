// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ledger

import (
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// ConfidenceType describes how sure the ledger is that a transaction will
// remain part of history.
type ConfidenceType int

// Constants for the type of transaction confidence.
const (
	// ConfidenceUnknown indicates nothing is known about the position of
	// the transaction in the chain.  Newly constructed records start here.
	ConfidenceUnknown ConfidenceType = iota

	// ConfidencePending indicates the transaction has been announced but
	// is not yet included in the best chain.
	ConfidencePending

	// ConfidenceBuilding indicates the transaction is included in the best
	// chain and confirmations are accumulating on top of it.
	ConfidenceBuilding

	// ConfidenceDead indicates the transaction lost a double-spend race,
	// or depended on one that did, and will never confirm.
	ConfidenceDead
)

// confidenceTypeStrings is a map of confidence types back to their constant
// names for pretty printing.
var confidenceTypeStrings = map[ConfidenceType]string{
	ConfidenceUnknown:  "unknown",
	ConfidencePending:  "pending",
	ConfidenceBuilding: "building",
	ConfidenceDead:     "dead",
}

// String returns the ConfidenceType in human-readable form.
func (t ConfidenceType) String() string {
	if s, ok := confidenceTypeStrings[t]; ok {
		return s
	}
	return fmt.Sprintf("unknown ConfidenceType (%d)", int(t))
}

// ConfidenceSource describes where the ledger first learned about a
// transaction.  It is used as a heuristic when weighing double-spend races
// and when deciding whether unconfirmed self-sends are spendable.
type ConfidenceSource int

// Constants for the source of a transaction.
const (
	// SourceUnknown indicates the origin of the transaction was not
	// recorded.
	SourceUnknown ConfidenceSource = iota

	// SourceNetwork indicates the transaction arrived from a remote peer.
	SourceNetwork

	// SourceSelf indicates the transaction was created and broadcast by
	// this wallet.
	SourceSelf
)

// Confidence is a small per-transaction state machine tracking the position
// of a transaction relative to the best chain along with supporting metadata.
// Valid transitions are Unknown -> Pending -> Building | Dead, with Building
// and Dead able to flip back to Pending across a reorganization (and Dead to
// Building on independent reconfirmation).
//
// Confidence values are owned by their TxRecord and must only be accessed
// with the ledger lock held.
type Confidence struct {
	// Type is the current state of the confidence state machine.
	Type ConfidenceType

	// Source records where this transaction came from.
	Source ConfidenceSource

	// SeenPeers is the number of distinct peers that have announced this
	// transaction.  It is used as a double-spend race heuristic and as a
	// spendability test for unconfirmed self-sends.
	SeenPeers int

	// AppearedIn is the set of block hashes the transaction has been
	// observed in.  More than one entry is possible while a transaction is
	// transiently duplicated on a side chain.
	AppearedIn map[chainhash.Hash]struct{}

	// ConfirmedHeight is the height of the best-chain block the
	// transaction confirmed in.  Only valid while Type is
	// ConfidenceBuilding.
	ConfirmedHeight int32

	// DepthInBlocks is the number of best-chain blocks stacked on top of
	// (and including) the confirming block.  Only valid while Type is
	// ConfidenceBuilding.
	DepthInBlocks int32

	// WorkDone is the cumulative proof of work accumulated by the
	// confirming block and its descendants.  Only valid while Type is
	// ConfidenceBuilding.
	WorkDone *big.Int

	// OverridingTx is the hash of the transaction that won the
	// double-spend race this transaction lost, if known.  Only valid while
	// Type is ConfidenceDead, and nil when the transaction was killed
	// without a known rival (for example, a reorganized coinbase).
	OverridingTx *chainhash.Hash
}

// newConfidence returns a Confidence in the unknown state with the provided
// source tag.
func newConfidence(source ConfidenceSource) Confidence {
	return Confidence{
		Type:       ConfidenceUnknown,
		Source:     source,
		AppearedIn: make(map[chainhash.Hash]struct{}),
		WorkDone:   new(big.Int),
	}
}

// appearedInBlock records that the transaction was observed in the block with
// the given hash.
func (c *Confidence) appearedInBlock(blockHash *chainhash.Hash) {
	c.AppearedIn[*blockHash] = struct{}{}
}

// setPending flips the confidence back to the pending state and wipes all
// chain position data.  Block appearances are intentionally retained so a
// future reorganization can still locate the transaction.
func (c *Confidence) setPending() {
	c.Type = ConfidencePending
	c.ConfirmedHeight = 0
	c.DepthInBlocks = 0
	c.WorkDone = new(big.Int)
	c.OverridingTx = nil
}

// setBuilding marks the transaction as included in the best chain at the
// given height.  Depth and work accounting start at zero and accumulate as
// blocks are connected on top.
func (c *Confidence) setBuilding(height int32) {
	c.Type = ConfidenceBuilding
	c.ConfirmedHeight = height
	c.DepthInBlocks = 0
	c.WorkDone = new(big.Int)
	c.OverridingTx = nil
}

// setDead marks the transaction as permanently failed, recording the winning
// rival when one is known.
func (c *Confidence) setDead(overriding *chainhash.Hash) {
	c.Type = ConfidenceDead
	c.ConfirmedHeight = 0
	c.DepthInBlocks = 0
	c.WorkDone = new(big.Int)
	c.OverridingTx = overriding
}
