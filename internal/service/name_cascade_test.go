package service

import (
	"context"
	"testing"

	"github.com/bardofig/roozterfaceapp/internal/events"
	"github.com/bardofig/roozterfaceapp/internal/store"
)

func TestNameCascade_UserRename(t *testing.T) {
	s := newTestStore(t)
	cascade := NewNameCascade(s)
	ctx := context.Background()

	seedDoc(t, s, store.CollectionListings, "l1", store.Document{"ownerUid": "u1", "ownerName": "Ana"})
	seedDoc(t, s, store.CollectionListings, "l2", store.Document{"ownerUid": "u1", "ownerName": "Ana"})
	seedDoc(t, s, store.CollectionListings, "l3", store.Document{"ownerUid": "u2", "ownerName": "Beto"})

	cascade.HandleUserEvent(ctx, events.Event{
		Collection: store.CollectionUsers,
		ID:         "u1",
		Before:     store.Document{"fullName": "Ana"},
		After:      store.Document{"fullName": "Ana Maria"},
	})

	for _, id := range []string{"l1", "l2"} {
		if got := getDoc(t, s, store.CollectionListings, id)["ownerName"]; got != "Ana Maria" {
			t.Errorf("%s ownerName: expected 'Ana Maria', got %v", id, got)
		}
	}
	if got := getDoc(t, s, store.CollectionListings, "l3")["ownerName"]; got != "Beto" {
		t.Errorf("unrelated listing touched: got %v", got)
	}
}

func TestNameCascade_GroupRename(t *testing.T) {
	s := newTestStore(t)
	cascade := NewNameCascade(s)

	seedDoc(t, s, store.CollectionListings, "l1", store.Document{"groupId": "g1", "groupName": "Vieja"})

	cascade.HandleGroupEvent(context.Background(), events.Event{
		Collection: store.CollectionGroups,
		ID:         "g1",
		Before:     store.Document{"name": "Vieja"},
		After:      store.Document{"name": "Nueva"},
	})

	if got := getDoc(t, s, store.CollectionListings, "l1")["groupName"]; got != "Nueva" {
		t.Errorf("groupName: expected 'Nueva', got %v", got)
	}
}

func TestNameCascade_UnrelatedChangeIsNoop(t *testing.T) {
	s := newTestStore(t)
	cascade := NewNameCascade(s)

	// Sentinel: if the cascade ran, it would overwrite this.
	seedDoc(t, s, store.CollectionListings, "l1", store.Document{"ownerUid": "u1", "ownerName": "sentinel"})

	cascade.HandleUserEvent(context.Background(), events.Event{
		Collection: store.CollectionUsers,
		ID:         "u1",
		Before:     store.Document{"fullName": "Ana", "plan": "iniciacion"},
		After:      store.Document{"fullName": "Ana", "plan": "maestro"},
	})

	if got := getDoc(t, s, store.CollectionListings, "l1")["ownerName"]; got != "sentinel" {
		t.Errorf("cascade ran on an unrelated change: got %v", got)
	}
}

func TestNameCascade_CreateAndDeleteEventsIgnored(t *testing.T) {
	s := newTestStore(t)
	cascade := NewNameCascade(s)
	ctx := context.Background()

	seedDoc(t, s, store.CollectionListings, "l1", store.Document{"ownerUid": "u1", "ownerName": "sentinel"})

	cascade.HandleUserEvent(ctx, events.Event{
		Collection: store.CollectionUsers,
		ID:         "u1",
		After:      store.Document{"fullName": "Ana"},
	})
	cascade.HandleUserEvent(ctx, events.Event{
		Collection: store.CollectionUsers,
		ID:         "u1",
		Before:     store.Document{"fullName": "Ana"},
	})

	if got := getDoc(t, s, store.CollectionListings, "l1")["ownerName"]; got != "sentinel" {
		t.Errorf("cascade ran on a create/delete event: got %v", got)
	}
}
