// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package txauthor turns a set of desired payment outputs into a complete
unsigned transaction.

Coin selection is pluggable through the CoinSelector interface; the default
policy spends the oldest, largest coins first using a deterministic total
order so repeated runs over the same wallet state build the same
transaction.  Complete runs the fee search: it repeatedly selects coins for
the payment value plus the current fee estimate, re-estimates the serialized
size, and converges on the minimal adequate fee, tracking in parallel
whether change should be kept, grown past the dust threshold by selecting
extra value, or folded into the fee.
*/
package txauthor
