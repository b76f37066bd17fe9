// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ledger

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// NotificationType represents the type of a notification message.
type NotificationType int

// NotificationCallback is used for a caller to provide a callback for
// notifications about various ledger events.
type NotificationCallback func(*Notification)

// Constants for the type of a notification message.
const (
	// NTBalanceChanged indicates the set of spendable value tracked by
	// the ledger may have changed.  Multi-step operations such as a
	// reorganization coalesce into a single balance notification.
	NTBalanceChanged NotificationType = iota

	// NTConfidenceChanged indicates the confidence of a transaction
	// changed, including transitions into the dead state.
	NTConfidenceChanged

	// NTDoubleSpendDetected indicates an incoming pending transaction
	// spends an outpoint already claimed by another pending transaction.
	// Both transactions remain live until a block decides the race; this
	// notification is informational.
	NTDoubleSpendDetected

	// NTReorganizeDone indicates a chain reorganization has been fully
	// replayed and the ledger is consistent again.
	NTReorganizeDone
)

// notificationTypeStrings is a map of notification types back to their
// constant names for pretty printing.
var notificationTypeStrings = map[NotificationType]string{
	NTBalanceChanged:      "NTBalanceChanged",
	NTConfidenceChanged:   "NTConfidenceChanged",
	NTDoubleSpendDetected: "NTDoubleSpendDetected",
	NTReorganizeDone:      "NTReorganizeDone",
}

// String returns the NotificationType in human-readable form.
func (n NotificationType) String() string {
	if s, ok := notificationTypeStrings[n]; ok {
		return s
	}
	return fmt.Sprintf("Unknown Notification Type (%d)", int(n))
}

// ConfidenceReason describes what aspect of a transaction's confidence
// changed.
type ConfidenceReason int

// Constants for the reason of a confidence change.
const (
	// ReasonType indicates the confidence state machine changed state,
	// for example pending to building or pending to dead.
	ReasonType ConfidenceReason = iota

	// ReasonDepth indicates the depth of a building transaction changed
	// because a block was connected or a reorganization shifted the chain
	// height.
	ReasonDepth

	// ReasonSeenPeers indicates the count of peers that announced the
	// transaction changed.
	ReasonSeenPeers
)

// ConfidenceChangedData is the structure for data indicating information
// about a confidence change.
type ConfidenceChangedData struct {
	// TxHash is the transaction whose confidence changed.
	TxHash chainhash.Hash

	// Reason describes which aspect changed.
	Reason ConfidenceReason

	// Confidence is a copy of the confidence after the change.
	Confidence Confidence
}

// DoubleSpendDetectedData is the structure for data describing a pending
// double-spend race.
type DoubleSpendDetectedData struct {
	// TxHash is the newly arrived transaction.
	TxHash chainhash.Hash

	// ConflictHash is the previously tracked pending transaction claiming
	// the same outpoint.
	ConflictHash chainhash.Hash
}

// ReorganizeDoneData is the structure for data describing a completed
// reorganization.
type ReorganizeDoneData struct {
	// SplitHash is the hash of the block both chains share.
	SplitHash chainhash.Hash

	// OldBlocks and NewBlocks are the number of blocks disconnected from
	// and connected to the best chain.
	OldBlocks int
	NewBlocks int
}

// Notification defines a notification that is sent to the caller via the
// callback function provided during the call to Subscribe and consists of a
// notification type as well as associated data that depends on the type as
// follows:
//   - NTBalanceChanged:      nil
//   - NTConfidenceChanged:   *ConfidenceChangedData
//   - NTDoubleSpendDetected: *DoubleSpendDetectedData
//   - NTReorganizeDone:      *ReorganizeDoneData
type Notification struct {
	Type NotificationType
	Data interface{}
}

// Subscribe registers a callback to be invoked for ledger events.  Callbacks
// are invoked without the ledger lock held, so a callback may safely re-enter
// the ledger.
//
// This function is safe for concurrent access.
func (l *Ledger) Subscribe(callback NotificationCallback) {
	l.notificationsLock.Lock()
	l.notifications = append(l.notifications, callback)
	l.notificationsLock.Unlock()
}

// queueNotification stages a notification for dispatch once the current
// public operation releases the ledger lock.
//
// This function MUST be called with the ledger lock held (for writes).
func (l *Ledger) queueNotification(typ NotificationType, data interface{}) {
	l.queuedNtfns = append(l.queuedNtfns, Notification{Type: typ, Data: data})
}

// queueBalanceChanged stages a balance notification unless a batch operation
// is suppressing them, in which case the batch is responsible for staging a
// single notification when it completes.
//
// This function MUST be called with the ledger lock held (for writes).
func (l *Ledger) queueBalanceChanged() {
	if l.batchDepth > 0 {
		return
	}
	l.queueNotification(NTBalanceChanged, nil)
}

// queueConfidenceChanged stages a confidence notification for the given
// record.
//
// This function MUST be called with the ledger lock held (for writes).
func (l *Ledger) queueConfidenceChanged(r *TxRecord, reason ConfidenceReason) {
	l.queueNotification(NTConfidenceChanged, &ConfidenceChangedData{
		TxHash:     *r.Hash(),
		Reason:     reason,
		Confidence: r.Confidence(),
	})
}

// takeQueued removes and returns all staged notifications.
//
// This function MUST be called with the ledger lock held (for writes).
func (l *Ledger) takeQueued() []Notification {
	ntfns := l.queuedNtfns
	l.queuedNtfns = nil
	return ntfns
}

// dispatch sends the given notifications to every subscribed callback.
//
// This function MUST be called without the ledger lock held, since a callback
// may re-enter the ledger.
func (l *Ledger) dispatch(ntfns []Notification) {
	if len(ntfns) == 0 {
		return
	}
	l.notificationsLock.RLock()
	callbacks := l.notifications
	l.notificationsLock.RUnlock()
	for i := range ntfns {
		for _, callback := range callbacks {
			callback(&ntfns[i])
		}
	}
}
