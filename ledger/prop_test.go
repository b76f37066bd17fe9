// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ledger

import (
	"bytes"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestLedgerProperties drives the ledger with random interleavings of
// funding confirmations, pending spends (double spends included), and
// confirmations of pending transactions, checking after every operation
// that the pool partition holds, every output has at most one spender, and
// re-receiving a pending transaction is a no-op.
func TestLedgerProperties(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(rt *rapid.T) {
		l, err := New(&Config{
			ChainParams: &chaincfg.MainNetParams,
			IsOurScript: func(pkScript []byte) bool {
				return bytes.Equal(pkScript, ourScript)
			},
			Clock: clock.NewTestClock(time.Unix(1700000000, 0)),
		})
		if err != nil {
			rt.Fatalf("New: %v", err)
		}

		var (
			txs      []*btcutil.Tx
			pending  []*btcutil.Tx
			unique   byte = 1
			height   int32 = 100
			blockSeq byte  = 1
		)

		nextBlock := func() *BlockRef {
			height++
			blockSeq++
			return blockRef(height, blockSeq)
		}

		numOps := rapid.IntRange(1, 40).Draw(rt, "numOps")
		for op := 0; op < numOps; op++ {
			action := rapid.IntRange(0, 2).Draw(rt, "action")
			switch {
			case action == 0 || len(txs) == 0:
				// Confirm a fresh funding transaction.
				fund := fundingTx(unique, 10e8)
				unique++
				block := nextBlock()
				err := l.ReceiveConfirmed(fund, block, true)
				if err != nil {
					rt.Fatalf("ReceiveConfirmed: %v", err)
				}
				l.BlockConnected(block)
				txs = append(txs, fund)

			case action == 1:
				// Spend a random output of a random known
				// transaction, double spends allowed.
				parent := txs[rapid.IntRange(0,
					len(txs)-1).Draw(rt, "parent")]
				outIdx := rapid.IntRange(0,
					len(parent.MsgTx().TxOut)-1).Draw(
					rt, "outIdx")
				value := parent.MsgTx().TxOut[outIdx].Value
				spend := spendTx(parent, uint32(outIdx),
					wire.NewTxOut(value/2, ourScript),
					wire.NewTxOut(value-value/2,
						foreignScript))
				fresh, err := l.ReceivePending(spend,
					SourceNetwork)
				if err != nil {
					rt.Fatalf("ReceivePending: %v", err)
				}
				if fresh {
					txs = append(txs, spend)
					pending = append(pending, spend)

					// Idempotence: the second receipt
					// must report known and leave the
					// pools untouched.
					sizes := l.PoolSizes()
					again, err := l.ReceivePending(spend,
						SourceNetwork)
					if err != nil {
						rt.Fatalf("ReceivePending: %v",
							err)
					}
					if again {
						rt.Fatalf("re-received %v as "+
							"fresh", spend.Hash())
					}
					if !equalSizes(sizes, l.PoolSizes()) {
						rt.Fatalf("re-receive of %v "+
							"mutated pools",
							spend.Hash())
					}
				}

			case action == 2 && len(pending) > 0:
				// Confirm a random pending transaction.
				idx := rapid.IntRange(0,
					len(pending)-1).Draw(rt, "pendingIdx")
				tx := pending[idx]
				pending = append(pending[:idx],
					pending[idx+1:]...)
				if l.Transaction(tx.Hash()).Pool() == PoolDead {
					continue
				}
				block := nextBlock()
				err := l.ReceiveConfirmed(tx, block, true)
				if err != nil {
					rt.Fatalf("ReceiveConfirmed: %v", err)
				}
				l.BlockConnected(block)
			}

			if err := l.CheckConsistency(); err != nil {
				rt.Fatalf("consistency after op %d: %v", op,
					err)
			}
		}
	})
}

// TestReorgRoundTripProperty extends the round-trip guarantee to randomized
// histories: undoing the top of the chain and replaying the identical
// blocks must reproduce pool membership and depths exactly.
func TestReorgRoundTripProperty(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(rt *rapid.T) {
		l, err := New(&Config{
			ChainParams: &chaincfg.MainNetParams,
			IsOurScript: func(pkScript []byte) bool {
				return bytes.Equal(pkScript, ourScript)
			},
			Clock: clock.NewTestClock(time.Unix(1700000000, 0)),
		})
		if err != nil {
			rt.Fatalf("New: %v", err)
		}

		split := blockRef(100, 0)
		numBlocks := rapid.IntRange(1, 5).Draw(rt, "numBlocks")

		// Build a linear history.  Each block confirms a fresh
		// funding transaction and, sometimes, a spend of an earlier
		// output.
		var (
			blocks []*BlockRef
			txs    []*btcutil.Tx
			unique byte = 1
		)
		consumed := make(map[chainhash.Hash]bool)
		for i := 0; i < numBlocks; i++ {
			block := blockRef(101+int32(i), byte(1+i))
			fund := fundingTx(unique, 10e8)
			unique++
			if err := l.ReceiveConfirmed(fund, block, true); err != nil {
				rt.Fatalf("ReceiveConfirmed: %v", err)
			}
			txs = append(txs, fund)

			if len(txs) > 1 && rapid.Bool().Draw(rt, "spend") {
				parent := txs[rapid.IntRange(0,
					len(txs)-2).Draw(rt, "parent")]
				consumed[*parent.Hash()] = true
				spend := spendTx(parent, 0,
					wire.NewTxOut(10e8, foreignScript))
				err := l.ReceiveConfirmed(spend, block, true)
				if err != nil {
					rt.Fatalf("ReceiveConfirmed: %v", err)
				}
				txs = append(txs, spend)
			}
			l.BlockConnected(block)
			blocks = append(blocks, block)
		}

		// Leave unconfirmed spends of some still-unspent outputs
		// pending across the reorganization; their spend-graph
		// connections must survive the round trip.  Each output is
		// spent at most once so the replay cannot kill anything.
		for _, parent := range txs {
			if consumed[*parent.Hash()] {
				continue
			}
			if !rapid.Bool().Draw(rt, "pendingSpend") {
				continue
			}
			consumed[*parent.Hash()] = true
			pend := spendTx(parent, 0,
				wire.NewTxOut(6e8, foreignScript),
				wire.NewTxOut(4e8, ourScript))
			if _, err := l.ReceivePending(pend, SourceNetwork); err != nil {
				rt.Fatalf("ReceivePending: %v", err)
			}
		}

		before := snapshot(l)
		balanceBefore := l.Balance(BalanceEstimated)

		// Undo the whole segment and replay it unchanged.  Block
		// lists are ordered top to bottom.
		topDown := make([]*BlockRef, len(blocks))
		for i, block := range blocks {
			topDown[len(blocks)-1-i] = block
		}
		if err := l.Reorganize(split, topDown, topDown); err != nil {
			rt.Fatalf("Reorganize: %v", err)
		}

		require.Equal(rt, before, snapshot(l))
		require.Equal(rt, balanceBefore, l.Balance(BalanceEstimated))
		if err := l.CheckConsistency(); err != nil {
			rt.Fatalf("consistency after round trip: %v", err)
		}
	})
}

func equalSizes(a, b map[Pool]int) bool {
	if len(a) != len(b) {
		return false
	}
	for pool, n := range a {
		if b[pool] != n {
			return false
		}
	}
	return true
}
