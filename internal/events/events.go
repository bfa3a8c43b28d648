// Package events models the asynchronous change notifications emitted by the
// document store and fans them out to registered handlers.
//
// Delivery is at-least-once: events may be duplicated, arrive out of order, or
// (during outages) be dropped entirely. Every handler must therefore be
// idempotent and tolerate re-application of a stale snapshot; the dispatcher
// itself adds no ordering or dedup.
package events

import "github.com/bardofig/roozterfaceapp/internal/store"

// Event is one change notification for a single document. A nil Before means
// the document was created; a nil After means it was deleted.
type Event struct {
	Collection string
	ID         string
	Before     store.Document
	After      store.Document
}

// IsCreate reports whether the event has no before-snapshot.
func (e Event) IsCreate() bool { return e.Before == nil }

// IsDelete reports whether the event has no after-snapshot.
func (e Event) IsDelete() bool { return e.After == nil }
