// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ledger

import (
	"math/big"
	"sync"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/davecgh/go-spew/spew"
	"github.com/lightningnetwork/lnd/clock"

	"github.com/btcsuite/txledger/txauthor"
)

// BlockRef is the ledger's view of a block on the best chain or a side
// chain.  Full blocks are never handed to the ledger; the network
// collaborator only reports the details the ledger needs for depth and work
// accounting.
type BlockRef struct {
	// Hash is the block hash.
	Hash chainhash.Hash

	// Height is the block height.
	Height int32

	// Work is the proof of work performed by this single block.
	Work *big.Int
}

// Config is a descriptor containing the ledger configuration.
type Config struct {
	// ChainParams identifies which chain parameters the ledger is
	// associated with.  Coinbase maturity is taken from here.
	ChainParams *chaincfg.Params

	// IsOurScript reports whether the wallet's keys control outputs
	// paying to the given script.  It decides ownership for every output
	// the ledger sees and must be deterministic.
	IsOurScript func(pkScript []byte) bool

	// Clock provides the time source used for record update times.  When
	// nil, the system clock is used.
	Clock clock.Clock

	// Selector is the coin selection policy used for the available
	// balance and for completing send requests.  When nil, the default
	// largest-coin-age-first policy is used.
	Selector txauthor.CoinSelector
}

// Ledger is the local transaction state engine of an SPV wallet.  It owns
// four disjoint transaction pools together with the output spend graph,
// classifies every observed transaction into a lifecycle state, resolves
// double spends, and replays chain reorganizations.  It is safe for
// concurrent access from multiple peer connections.
type Ledger struct {
	mtx sync.RWMutex
	cfg Config

	// txs holds every transaction the ledger knows about, keyed by hash.
	// Each record also appears in exactly one of the pool indexes.
	txs map[chainhash.Hash]*TxRecord

	// pools indexes the records by their current pool.  Membership is
	// only changed through setPool.
	pools [numPools]map[chainhash.Hash]*TxRecord

	// spends is the output spend graph.
	spends *spendGraph

	// bestHash and bestHeight track the last best-chain block the ledger
	// has been told about.
	bestHash   chainhash.Hash
	bestHeight int32

	// queuedNtfns collects notifications staged during a mutating
	// operation for dispatch after the lock is released.  batchDepth
	// suppresses per-step balance notifications inside multi-step
	// operations such as a reorganization.
	queuedNtfns []Notification
	batchDepth  int

	notificationsLock sync.RWMutex
	notifications     []NotificationCallback
}

// New returns a new ledger for the provided configuration.
func New(cfg *Config) (*Ledger, error) {
	if cfg.ChainParams == nil {
		return nil, assertError("ledger requires chain parameters")
	}
	if cfg.IsOurScript == nil {
		return nil, assertError("ledger requires an ownership predicate")
	}

	l := &Ledger{
		cfg:    *cfg,
		txs:    make(map[chainhash.Hash]*TxRecord),
		spends: newSpendGraph(),
	}
	for i := range l.pools {
		l.pools[i] = make(map[chainhash.Hash]*TxRecord)
	}
	if l.cfg.Clock == nil {
		l.cfg.Clock = clock.NewDefaultClock()
	}
	if l.cfg.Selector == nil {
		l.cfg.Selector = &txauthor.DefaultSelector{}
	}
	return l, nil
}

// newRecord returns a fresh record for the given transaction.  The record is
// not yet tracked; setPool inserts it.
func (l *Ledger) newRecord(tx *btcutil.Tx, source ConfidenceSource) *TxRecord {
	return &TxRecord{
		tx:         tx,
		confidence: newConfidence(source),
		updated:    l.cfg.Clock.Now(),
	}
}

// setPool moves the record into the given pool, inserting it into the ledger
// if it is not yet tracked.  This is the only function that mutates pool
// membership, which keeps the exactly-one-pool invariant structural.
//
// This function MUST be called with the ledger lock held (for writes).
func (l *Ledger) setPool(r *TxRecord, pool Pool) {
	hash := *r.Hash()
	if _, tracked := l.txs[hash]; tracked {
		if r.pool == pool {
			return
		}
		log.Debugf("Transaction %v moving from %v pool to %v pool",
			hash, r.pool, pool)
		delete(l.pools[r.pool], hash)
	} else {
		log.Debugf("Transaction %v entering %v pool", hash, pool)
		l.txs[hash] = r
	}
	r.pool = pool
	l.pools[pool][hash] = r
	r.updated = l.cfg.Clock.Now()
}

// ReceivePending records a transaction that has been announced but not yet
// confirmed.  The caller has already established relevance (it sends from
// us, sends to us, or double spends a pending transaction of ours).  The
// operation is idempotent per hash: if the transaction is already tracked,
// nothing is mutated and false is returned.
//
// A pending transaction spending an outpoint already claimed by another
// pending transaction raises an NTDoubleSpendDetected notification, but both
// transactions stay live until a block decides the race.
//
// This function is safe for concurrent access.
func (l *Ledger) ReceivePending(tx *btcutil.Tx, source ConfidenceSource) (bool, error) {
	l.mtx.Lock()
	fresh := l.receivePending(tx, source)
	ntfns := l.takeQueued()
	l.mtx.Unlock()

	l.dispatch(ntfns)
	return fresh, nil
}

// receivePending implements ReceivePending.
//
// This function MUST be called with the ledger lock held (for writes).
func (l *Ledger) receivePending(tx *btcutil.Tx, source ConfidenceSource) bool {
	hash := tx.Hash()
	if _, exists := l.txs[*hash]; exists {
		log.Debugf("Ignoring already known pending transaction %v", hash)
		return false
	}

	log.Infof("Receiving pending transaction %v", hash)

	r := l.newRecord(tx, source)
	r.confidence.setPending()

	// Detect, but do not resolve, races with other pending transactions.
	// Neither side is authoritative until a block confirms one of them.
	conflict := l.checkDoubleSpendAgainstPending(r, false)

	l.setPool(r, PoolPending)
	l.connectInputs(r)

	if conflict != nil {
		log.Warnf("Pending transaction %v double spends outpoint "+
			"claimed by pending transaction %v", hash,
			conflict.Hash())
		l.queueNotification(NTDoubleSpendDetected,
			&DoubleSpendDetectedData{
				TxHash:       *hash,
				ConflictHash: *conflict.Hash(),
			})
	}

	l.queueConfidenceChanged(r, ReasonType)
	l.queueBalanceChanged()

	log.Tracef("Pool state: %v", newLogClosure(func() string {
		sizes := make(map[Pool]int, numPools)
		for pool := PoolPending; pool < numPools; pool++ {
			sizes[pool] = len(l.pools[pool])
		}
		return spew.Sdump(sizes)
	}))
	return true
}

// ReceiveConfirmed records that a transaction is included in the given
// block.  When bestChain is true the confirmation is authoritative: a
// formerly pending record has its spends recomputed, any pending double
// spend of the same outpoints is killed, and the record is placed into the
// unspent or spent pool.  When bestChain is false the block hash is only
// recorded for later reorganization replay; a previously unknown transaction
// is treated as still pending.
//
// This function is safe for concurrent access.
func (l *Ledger) ReceiveConfirmed(tx *btcutil.Tx, block *BlockRef, bestChain bool) error {
	l.mtx.Lock()
	err := l.receiveConfirmed(tx, block, bestChain)
	ntfns := l.takeQueued()
	l.mtx.Unlock()

	l.dispatch(ntfns)
	return err
}

// receiveConfirmed implements ReceiveConfirmed.  It is also the replay
// primitive used by Reorganize.
//
// This function MUST be called with the ledger lock held (for writes).
func (l *Ledger) receiveConfirmed(tx *btcutil.Tx, block *BlockRef, bestChain bool) error {
	hash := tx.Hash()
	r, exists := l.txs[*hash]
	if !exists {
		r = l.newRecord(tx, SourceUnknown)
		r.confidence.setPending()
	}
	r.confidence.appearedInBlock(&block.Hash)

	if !bestChain {
		log.Debugf("Transaction %v appeared in side chain block %v",
			hash, block.Hash)
		if !exists {
			l.setPool(r, PoolPending)
			l.connectInputs(r)
			l.queueConfidenceChanged(r, ReasonType)
			l.queueBalanceChanged()
		}
		return nil
	}

	log.Infof("Transaction %v confirmed in block %v (height %d)", hash,
		block.Hash, block.Height)

	// A formerly pending (or dead) transaction may have stale or missing
	// connections; they are recomputed from scratch against the full pool
	// set below.
	if exists && (r.pool == PoolPending || r.pool == PoolDead) {
		l.disconnectInputs(r)
	}
	if !exists {
		l.setPool(r, PoolPending)
	}

	// A best-chain confirmation always wins over a merely pending
	// competitor.
	if loser := l.checkDoubleSpendAgainstPending(r, true); loser != nil {
		log.Infof("Confirmed transaction %v killed pending double "+
			"spend %v", hash, loser.Hash())
	}

	l.connectInputs(r)

	wasBuilding := r.confidence.Type == ConfidenceBuilding
	if !wasBuilding {
		r.confidence.setBuilding(block.Height)
		l.queueConfidenceChanged(r, ReasonType)
	}

	// Pool placement per ownership of the remaining outputs.
	if l.hasUnspentOwnedOutput(r) {
		l.setPool(r, PoolUnspent)
	} else {
		l.setPool(r, PoolSpent)
	}

	if block.Height > l.bestHeight {
		l.bestHeight = block.Height
		l.bestHash = block.Hash
	}

	l.queueBalanceChanged()
	return nil
}

// BlockConnected records that a new block extended the best chain.  Every
// building transaction gains a confirmation and the block's work.  The
// network collaborator calls this once per connected block, after reporting
// the block's matched transactions via ReceiveConfirmed.
//
// This function is safe for concurrent access.
func (l *Ledger) BlockConnected(block *BlockRef) {
	l.mtx.Lock()
	l.blockConnected(block)
	ntfns := l.takeQueued()
	l.mtx.Unlock()

	l.dispatch(ntfns)
}

// blockConnected implements BlockConnected.
//
// This function MUST be called with the ledger lock held (for writes).
func (l *Ledger) blockConnected(block *BlockRef) {
	l.bestHash = block.Hash
	l.bestHeight = block.Height

	for _, r := range l.txs {
		if r.confidence.Type != ConfidenceBuilding {
			continue
		}
		r.confidence.DepthInBlocks++
		if block.Work != nil {
			r.confidence.WorkDone.Add(r.confidence.WorkDone,
				block.Work)
		}
		l.queueConfidenceChanged(r, ReasonDepth)
	}
}

// MarkSeenByPeer increments the count of distinct peers that announced the
// given transaction.  The count feeds the default selection policy's
// spendability rule for unconfirmed self-sends.  Returns whether the
// transaction is tracked.
//
// This function is safe for concurrent access.
func (l *Ledger) MarkSeenByPeer(hash *chainhash.Hash) bool {
	l.mtx.Lock()
	r, ok := l.txs[*hash]
	if ok {
		r.confidence.SeenPeers++
		r.updated = l.cfg.Clock.Now()
		l.queueConfidenceChanged(r, ReasonSeenPeers)
	}
	ntfns := l.takeQueued()
	l.mtx.Unlock()

	l.dispatch(ntfns)
	return ok
}

// Transaction returns the record tracking the given transaction hash, or nil
// if the hash is unknown to the ledger.
//
// This function is safe for concurrent access.
func (l *Ledger) Transaction(hash *chainhash.Hash) *TxRecord {
	l.mtx.RLock()
	r := l.txs[*hash]
	l.mtx.RUnlock()
	return r
}

// TransactionsByPool returns the records currently in the given pool.  The
// returned slice is a snapshot in no particular order.
//
// This function is safe for concurrent access.
func (l *Ledger) TransactionsByPool(pool Pool) []*TxRecord {
	l.mtx.RLock()
	records := make([]*TxRecord, 0, len(l.pools[pool]))
	for _, r := range l.pools[pool] {
		records = append(records, r)
	}
	l.mtx.RUnlock()
	return records
}

// PoolSizes returns the number of transactions in each pool.
//
// This function is safe for concurrent access.
func (l *Ledger) PoolSizes() map[Pool]int {
	l.mtx.RLock()
	sizes := make(map[Pool]int, numPools)
	for pool := PoolPending; pool < numPools; pool++ {
		sizes[pool] = len(l.pools[pool])
	}
	l.mtx.RUnlock()
	return sizes
}

// BestBlock returns the hash and height of the last best-chain block the
// ledger has been told about.
//
// This function is safe for concurrent access.
func (l *Ledger) BestBlock() (chainhash.Hash, int32) {
	l.mtx.RLock()
	hash, height := l.bestHash, l.bestHeight
	l.mtx.RUnlock()
	return hash, height
}
