// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ledger

import (
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// Reorganize replays a chain reorganization.  The best chain is being
// replaced from the given split point: oldBlocks are the blocks leaving the
// best chain and newBlocks the blocks replacing them, both ordered
// top-to-bottom as received from the network collaborator.
//
// Transactions confirmed in the old blocks are unwound and staged back into
// the pending pool, except coinbases, which cannot survive leaving the best
// chain and are killed along with their direct dependents.  The new blocks
// are then replayed bottom-to-top using the transactions previously recorded
// against their hashes.  Transactions already dead before the
// reorganization stay dead even if their double-spend rival vanished with
// the old chain; they only leave the dead pool by being independently
// reconfirmed.
//
// Balance listeners receive a single notification for the entire
// reorganization rather than one per replayed confirmation.
//
// This function is safe for concurrent access.
func (l *Ledger) Reorganize(split *BlockRef, oldBlocks, newBlocks []*BlockRef) error {
	l.mtx.Lock()
	err := l.reorganize(split, oldBlocks, newBlocks)
	ntfns := l.takeQueued()
	l.mtx.Unlock()

	l.dispatch(ntfns)
	return err
}

// reorganize implements Reorganize.
//
// This function MUST be called with the ledger lock held (for writes).
func (l *Ledger) reorganize(split *BlockRef, oldBlocks, newBlocks []*BlockRef) error {
	// The disconnected segment must start from the ledger's current view of
	// the chain tip, or the unwind would be against blocks the ledger never
	// accounted for.
	if len(oldBlocks) > 0 && oldBlocks[0].Hash != l.bestHash {
		str := fmt.Sprintf("reorganization unwinds from block %v but "+
			"the ledger's best block is %v", oldBlocks[0].Hash,
			l.bestHash)
		return ledgerError(ErrUnknownBlock, str)
	}

	log.Infof("Reorganizing: split %v (height %d), %d blocks out, %d "+
		"blocks in", split.Hash, split.Height, len(oldBlocks),
		len(newBlocks))

	l.batchDepth++
	defer func() {
		l.batchDepth--
	}()

	// Index the known transactions by the blocks they appeared in.  Both
	// the unwind of the old chain and the replay of the new one work from
	// this map.
	appearances := make(map[chainhash.Hash][]*TxRecord)
	for _, r := range l.txs {
		for blockHash := range r.confidence.AppearedIn {
			appearances[blockHash] = append(appearances[blockHash], r)
		}
	}

	// Unwind the old chain, top to bottom, staging ordinary transactions
	// for replay and killing coinbases outright.
	oldWork := new(big.Int)
	staged := make([]*TxRecord, 0)
	stagedSet := make(map[chainhash.Hash]struct{})
	var deadCoinbases []*TxRecord
	for _, block := range oldBlocks {
		if block.Work != nil {
			oldWork.Add(oldWork, block.Work)
		}
		for _, r := range appearances[block.Hash] {
			hash := *r.Hash()
			delete(r.confidence.AppearedIn, block.Hash)
			if _, done := stagedSet[hash]; done {
				continue
			}
			if r.pool == PoolDead {
				continue
			}
			stagedSet[hash] = struct{}{}

			if r.isCoinBase() {
				log.Infof("Coinbase %v reorganized off the "+
					"best chain, killing it", hash)
				l.killTx(nil, r)
				deadCoinbases = append(deadCoinbases, r)
				continue
			}

			// Free the transaction's own spends and the spends of
			// its outputs; both sides are recomputed once the
			// stage is re-inserted and the new chain replayed.
			l.disconnectInputs(r)
			l.disconnectSpenders(r)
			staged = append(staged, r)
		}
	}

	// Re-insert the staged transactions as pending, then reconnect the
	// inputs of the entire pending pool without chain context so balances
	// remain correct while the new chain is replayed.  The reconnection
	// must cover more than the staged records themselves: the unwind
	// severed the connections of live pending spenders of the unwound
	// transactions, and the replay below only touches transactions
	// recorded against the new blocks.
	for _, r := range staged {
		l.setPool(r, PoolPending)
		r.confidence.setPending()
		l.queueConfidenceChanged(r, ReasonType)
	}
	for _, r := range l.pools[PoolPending] {
		l.connectInputs(r)
	}

	// Spends of a killed coinbase are orphaned: the staged spender can
	// never reconnect and is killed too.  The cascade stops there;
	// dependents of the spender are not transitively killed.
	for _, cb := range deadCoinbases {
		cbHash := *cb.Hash()
		for _, r := range l.pools[PoolPending] {
			for _, txIn := range r.tx.MsgTx().TxIn {
				if txIn.PreviousOutPoint.Hash == cbHash {
					log.Warnf("Killing orphaned spend %v "+
						"of dead coinbase %v",
						r.Hash(), cbHash)
					l.markDead(r, nil)
					break
				}
			}
		}
	}

	// Transactions confirmed below the split keep their validity; only
	// their depth and work accounting shifts by the disconnected blocks.
	for _, r := range l.txs {
		if r.confidence.Type != ConfidenceBuilding {
			continue
		}
		r.confidence.DepthInBlocks -= int32(len(oldBlocks))
		r.confidence.WorkDone.Sub(r.confidence.WorkDone, oldWork)
		l.queueConfidenceChanged(r, ReasonDepth)
	}

	l.bestHash = split.Hash
	l.bestHeight = split.Height

	// Replay the new chain bottom-to-top.
	for i := len(newBlocks) - 1; i >= 0; i-- {
		block := newBlocks[i]
		for _, r := range appearances[block.Hash] {
			if err := l.receiveConfirmed(r.tx, block, true); err != nil {
				return err
			}
		}
		l.blockConnected(block)
	}

	if err := l.checkConsistency(); err != nil {
		log.Criticalf("Ledger inconsistent after reorganization: %v",
			err)
		return ledgerError(ErrInconsistentState, err.Error())
	}

	l.queueNotification(NTReorganizeDone, &ReorganizeDoneData{
		SplitHash: split.Hash,
		OldBlocks: len(oldBlocks),
		NewBlocks: len(newBlocks),
	})
	l.queueNotification(NTBalanceChanged, nil)

	log.Infof("Reorganization complete, best block now %v (height %d)",
		l.bestHash, l.bestHeight)
	return nil
}

// disconnectSpenders frees every connected spend of the record's outputs.
//
// This function MUST be called with the ledger lock held (for writes).
func (l *Ledger) disconnectSpenders(r *TxRecord) {
	prevOut := wire.OutPoint{Hash: *r.Hash()}
	for i := range r.tx.MsgTx().TxOut {
		prevOut.Index = uint32(i)
		ref, ok := l.spends.spender(prevOut)
		if !ok {
			continue
		}
		spender, ok := l.txs[ref.txHash]
		if !ok {
			continue
		}
		l.disconnectInput(spender, int(ref.index))
	}
}
