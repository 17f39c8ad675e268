// ABOUTME: Message and change notification types for the conversation service
// ABOUTME: Defines per-message sync states and the events sent to subscribers

package conversation

import "time"

// SyncState tracks how a message relates to the remote store.
type SyncState string

const (
	// SyncPending means the remote write has not been acknowledged yet.
	SyncPending SyncState = "pending"

	// SyncConfirmed means the remote store acknowledged the write.
	SyncConfirmed SyncState = "confirmed"

	// SyncFailed means a remote operation for this message failed.
	// The local copy is kept.
	SyncFailed SyncState = "failed"

	// SyncLocal marks an in-conversation notice that is never persisted.
	SyncLocal SyncState = "local"
)

// Message is a single conversation entry. ID is assigned by the store
// and stays empty until the remote write is acknowledged. Text is the
// only field that changes after creation (besides ID and Sync).
type Message struct {
	ID        string
	Text      string
	IsUser    bool
	Timestamp time.Time
	Sync      SyncState
}

// ChangeKind describes what a change notification refers to.
type ChangeKind string

const (
	// ChangeAppended: a message was added to the end of the list.
	ChangeAppended ChangeKind = "appended"

	// ChangeUpdated: an existing message's text was edited.
	ChangeUpdated ChangeKind = "updated"

	// ChangeRemoved: a message was removed from the list.
	ChangeRemoved ChangeKind = "removed"

	// ChangeReplaced: the whole list was replaced by a load.
	ChangeReplaced ChangeKind = "replaced"

	// ChangeCleared: the whole list was deleted.
	ChangeCleared ChangeKind = "cleared"

	// ChangeLoading: the busy state flipped.
	ChangeLoading ChangeKind = "loading"
)

// Change is one notification delivered to conversation subscribers.
type Change struct {
	Kind ChangeKind

	// Message is a copy of the affected message for message-level
	// changes, nil for list-level and loading changes.
	Message *Message

	// Loading is the busy state at the time the change was published.
	Loading bool
}
