// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txauthor

import (
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
)

var (
	paymentScript = []byte{0x52}
	changeScript  = []byte{0x51}
)

// completeRequest builds and completes a request paying the given amount
// from the given candidates, asserting success.
func completeRequest(t *testing.T, amount btcutil.Amount, feePerKB btcutil.Amount,
	candidates []Coin) *SendRequest {

	t.Helper()

	outputs := []*wire.TxOut{wire.NewTxOut(int64(amount), paymentScript)}
	req := NewSendRequest(outputs, changeScript)
	if feePerKB > 0 {
		req.FeePerKB = feePerKB
	}
	require.NoError(t, Complete(req, nil, candidates))
	return req
}

// TestCompleteWithChange covers the common case: one candidate comfortably
// covers the payment, so the transaction carries exactly one change output
// and a single fee-rate unit of fee.
func TestCompleteWithChange(t *testing.T) {
	t.Parallel()

	feePerKB := btcutil.Amount(1000)
	candidates := []Coin{coin(1, 2000000, 10)}
	req := completeRequest(t, 1000000, feePerKB, candidates)

	require.True(t, req.Completed())
	require.Len(t, req.Tx.TxIn, 1)
	require.Len(t, req.Tx.TxOut, 2)
	require.GreaterOrEqual(t, req.Fee, feePerKB)
	require.Less(t, req.Fee, 2*feePerKB)

	// Input value fully accounted for between outputs and fee.
	require.NotEqual(t, -1, req.ChangeIndex)
	change := btcutil.Amount(req.Tx.TxOut[req.ChangeIndex].Value)
	require.Equal(t, btcutil.Amount(2000000), 1000000+change+req.Fee)
	require.Equal(t, changeScript, req.Tx.TxOut[req.ChangeIndex].PkScript)
}

// TestCompleteExactMatch ensures a candidate covering exactly the payment
// plus fee produces no change output.
func TestCompleteExactMatch(t *testing.T) {
	t.Parallel()

	candidates := []Coin{coin(1, 1001000, 10)}
	req := completeRequest(t, 1000000, 1000, candidates)

	require.Len(t, req.Tx.TxOut, 1)
	require.Equal(t, -1, req.ChangeIndex)
	require.Equal(t, btcutil.Amount(1000), req.Fee)
}

// TestCompleteDustChangeFoldedIntoFee ensures change too small to relay is
// given to miners rather than creating a dust output.
func TestCompleteDustChangeFoldedIntoFee(t *testing.T) {
	t.Parallel()

	// 400 satoshis above payment+fee: well below the dust threshold, and
	// no further candidates to pull in.
	candidates := []Coin{coin(1, 1001400, 10)}
	req := completeRequest(t, 1000000, 1000, candidates)

	require.Len(t, req.Tx.TxOut, 1)
	require.Equal(t, -1, req.ChangeIndex)
	require.Equal(t, btcutil.Amount(1400), req.Fee)
}

// TestCompleteDustEscapedByExtraValue ensures the fee search escapes the
// dust zone by pulling in another candidate when one is available, and
// keeps whichever outcome is cheaper.
func TestCompleteDustEscapedByExtraValue(t *testing.T) {
	t.Parallel()

	candidates := []Coin{
		coin(1, 1001400, 10),
		coin(2, 50000, 1),
	}
	req := completeRequest(t, 1000000, 1000, candidates)

	// The second input raises the change above the dust threshold while
	// the transaction stays under a kilobyte, so the two-input outcome is
	// cheaper than burning the 400 satoshi change as fee.
	require.Len(t, req.Tx.TxIn, 2)
	require.Equal(t, btcutil.Amount(1000), req.Fee)
	require.NotEqual(t, -1, req.ChangeIndex)
	require.Equal(t, int64(50400), req.Tx.TxOut[req.ChangeIndex].Value)
}

// TestCompleteInsufficientFunds ensures the search reports the shortfall
// when the candidates cannot cover payment plus fee.
func TestCompleteInsufficientFunds(t *testing.T) {
	t.Parallel()

	outputs := []*wire.TxOut{wire.NewTxOut(1000000, paymentScript)}
	req := NewSendRequest(outputs, changeScript)

	err := Complete(req, nil, []Coin{coin(1, 500000, 5)})
	require.Error(t, err)

	var insufficientErr *InsufficientFundsError
	require.ErrorAs(t, err, &insufficientErr)
	require.Equal(t, btcutil.Amount(501000), insufficientErr.Missing)
	require.False(t, req.Completed())
	require.Empty(t, req.Tx.TxIn)
}

// TestCompleteReuseFails ensures a request cannot be completed twice.
func TestCompleteReuseFails(t *testing.T) {
	t.Parallel()

	candidates := []Coin{coin(1, 2000000, 10)}
	req := completeRequest(t, 1000000, 1000, candidates)

	err := Complete(req, nil, candidates)
	require.ErrorIs(t, err, ErrAlreadyCompleted)
}

// TestCompleteMultipleInputs ensures selection accumulates candidates until
// the payment and fee are covered.
func TestCompleteMultipleInputs(t *testing.T) {
	t.Parallel()

	candidates := []Coin{
		coin(1, 400000, 10),
		coin(2, 400000, 10),
		coin(3, 400000, 10),
	}
	req := completeRequest(t, 1000000, 1000, candidates)

	require.Len(t, req.Tx.TxIn, 3)
	require.Len(t, req.Tx.TxOut, 2)

	var inputValue btcutil.Amount = 3 * 400000
	change := btcutil.Amount(req.Tx.TxOut[req.ChangeIndex].Value)
	require.Equal(t, inputValue, 1000000+change+req.Fee)
}

// TestCompleteFixedFee ensures a fixed fee is charged on top of the rate
// component.
func TestCompleteFixedFee(t *testing.T) {
	t.Parallel()

	outputs := []*wire.TxOut{wire.NewTxOut(1000000, paymentScript)}
	req := NewSendRequest(outputs, changeScript)
	req.FixedFee = 5000

	require.NoError(t, Complete(req, nil, []Coin{coin(1, 2000000, 10)}))
	require.Equal(t, btcutil.Amount(6000), req.Fee)
}

// TestCompleteSubRelayChangeDiscarded ensures change clearing the dust
// threshold but not the minimum relay fee bound is given to miners rather
// than kept as an output.
func TestCompleteSubRelayChangeDiscarded(t *testing.T) {
	t.Parallel()

	// 800 satoshis of change: above the dust threshold for the change
	// script, but not one satoshi over the minimum relay fee.
	candidates := []Coin{coin(1, 1001800, 10)}
	req := completeRequest(t, 1000000, 1000, candidates)

	require.Len(t, req.Tx.TxOut, 1)
	require.Equal(t, -1, req.ChangeIndex)
	require.Equal(t, btcutil.Amount(1800), req.Fee)
}

// TestCompleteKeepsRelayableChange ensures change above the relay-fee bound
// stays a real output.
func TestCompleteKeepsRelayableChange(t *testing.T) {
	t.Parallel()

	candidates := []Coin{coin(1, 1002500, 10)}
	req := completeRequest(t, 1000000, 1000, candidates)

	require.Len(t, req.Tx.TxOut, 2)
	require.Equal(t, btcutil.Amount(1000), req.Fee)
	require.Equal(t, int64(1500), req.Tx.TxOut[req.ChangeIndex].Value)
}
