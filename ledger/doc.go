// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package ledger implements the local transaction state engine of an SPV
wallet.

The ledger owns four disjoint transaction pools (pending, unspent, spent,
dead) together with the output spend graph connecting transaction inputs to
the outputs they consume.  The network collaborator feeds it through three
narrow entry points: ReceivePending for announced but unconfirmed
transactions, ReceiveConfirmed for transactions included in a block, and
Reorganize when the best chain is replaced by a heavier fork.  The ledger
classifies every observed transaction into a lifecycle state, detects and
resolves double spends (a best-chain confirmation always beats a merely
pending rival), and recomputes its entire view across reorganizations while
preserving the pool partition and spend uniqueness invariants.

The ledger performs no validation, no network I/O, and no persistence.
Blocks and transactions handed to it are assumed to have passed full
consensus validation upstream; persistence, if wanted, is layered on by
subscribing to the ledger's notifications.

All public operations serialize on a single lock because the invariants span
all four pools at once.  Notification callbacks are invoked only after the
lock is released, so a callback may safely re-enter the ledger.
*/
package ledger
