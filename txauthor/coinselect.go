// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txauthor

import (
	"bytes"
	"math/big"
	"sort"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
)

// MaxAmount is a selection target larger than any attainable total, used to
// gather every eligible candidate (for example when computing the available
// balance).
const MaxAmount = btcutil.Amount(btcutil.MaxSatoshi)

// Coin is a spendable candidate output offered to a coin selector.  Coins
// are plain values; selecting them never mutates ledger state.
type Coin struct {
	// OutPoint identifies the output.
	OutPoint wire.OutPoint

	// Value is the amount the output carries.
	Value btcutil.Amount

	// PkScript is the output's spending condition.
	PkScript []byte

	// Confirmations is the depth of the output's parent transaction in
	// the best chain, or zero while it is pending.
	Confirmations int32

	// FromCoinbase is whether the output was created by a coinbase
	// transaction and is therefore subject to the maturity rule.
	FromCoinbase bool
}

// CoinSelection is the result of a coin selection round.  TotalValue may be
// below the requested target; the caller must check.
type CoinSelection struct {
	// TotalValue is the summed value of the selected coins.
	TotalValue btcutil.Amount

	// Coins are the selected candidates, in selection order.
	Coins []Coin
}

// CoinSelector chooses which candidate outputs to spend to gather a target
// value.  Implementations must be deterministic for a given candidate set so
// transaction construction is reproducible, and must return whatever was
// gathered even when the target is not attainable.
type CoinSelector interface {
	Select(target btcutil.Amount, candidates []Coin) CoinSelection
}

// DefaultSelector is the default coin selection policy.  Candidates are
// consumed in order of decreasing coin age weighted by value
// (depth-in-blocks times value), preferring older and larger coins so that
// small recent outputs are left for later and selection stays deterministic.
type DefaultSelector struct{}

// Ensure DefaultSelector implements the CoinSelector interface.
var _ CoinSelector = (*DefaultSelector)(nil)

// Select greedily accumulates candidates in priority order until the running
// total reaches the target or the candidates are exhausted.
func (s *DefaultSelector) Select(target btcutil.Amount, candidates []Coin) CoinSelection {
	sorted := make([]Coin, len(candidates))
	copy(sorted, candidates)
	sortByPriority(sorted)

	var selection CoinSelection
	for _, coin := range sorted {
		if selection.TotalValue >= target {
			break
		}
		selection.Coins = append(selection.Coins, coin)
		selection.TotalValue += coin.Value
	}
	return selection
}

// sortByPriority orders coins by depth*value descending, breaking ties by raw
// value descending and finally by outpoint so the order is total.  The
// depth*value product can exceed 63 bits for old, large outputs, so it is
// compared with arbitrary precision.
func sortByPriority(coins []Coin) {
	sort.Slice(coins, func(i, j int) bool {
		a, b := &coins[i], &coins[j]

		aPriority := coinPriority(a)
		bPriority := coinPriority(b)
		if c := aPriority.Cmp(bPriority); c != 0 {
			return c > 0
		}
		if a.Value != b.Value {
			return a.Value > b.Value
		}
		if c := bytes.Compare(a.OutPoint.Hash[:], b.OutPoint.Hash[:]); c != 0 {
			return c < 0
		}
		return a.OutPoint.Index < b.OutPoint.Index
	})
}

// coinPriority returns depth-in-blocks times value for the coin.
func coinPriority(c *Coin) *big.Int {
	priority := big.NewInt(int64(c.Confirmations))
	return priority.Mul(priority, big.NewInt(int64(c.Value)))
}
