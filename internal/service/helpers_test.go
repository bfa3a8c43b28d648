package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"connectrpc.com/connect"

	"github.com/bardofig/roozterfaceapp/internal/store"
	"github.com/bardofig/roozterfaceapp/internal/store/sqlite"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()

	s, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedDoc(t *testing.T, s store.Store, collection, id string, doc store.Document) {
	t.Helper()
	if err := s.Set(context.Background(), collection, id, doc); err != nil {
		t.Fatalf("failed to seed %s/%s: %v", collection, id, err)
	}
}

func seedModel(t *testing.T, s store.Store, collection, id string, v any) {
	t.Helper()
	doc, err := store.Encode(v)
	if err != nil {
		t.Fatalf("failed to encode %s/%s: %v", collection, id, err)
	}
	seedDoc(t, s, collection, id, doc)
}

func getDoc(t *testing.T, s store.Store, collection, id string) store.Document {
	t.Helper()
	doc, err := s.Get(context.Background(), collection, id)
	if err != nil {
		t.Fatalf("failed to get %s/%s: %v", collection, id, err)
	}
	return doc
}

func assertMissing(t *testing.T, s store.Store, collection, id string) {
	t.Helper()
	_, err := s.Get(context.Background(), collection, id)
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected %s/%s to be absent, got err=%v", collection, id, err)
	}
}

func assertCode(t *testing.T, err error, want connect.Code) {
	t.Helper()
	var ce *connect.Error
	if !errors.As(err, &ce) {
		t.Fatalf("expected *connect.Error, got %v", err)
	}
	if ce.Code() != want {
		t.Errorf("expected code %v, got %v (%s)", want, ce.Code(), ce.Message())
	}
}

// seedOwnerAndGroup creates the resolvable owner/gallera chain most tests
// need: user "u-owner" owning gallera "g1".
func seedOwnerAndGroup(t *testing.T, s store.Store) (ownerUID, groupID string) {
	t.Helper()
	ownerUID, groupID = "u-owner", "g1"
	seedDoc(t, s, store.CollectionUsers, ownerUID, store.Document{
		"fullName": "Juan Perez",
		"email":    "juan@example.com",
		"groupIds": []any{groupID},
		"plan":     "iniciacion",
	})
	seedDoc(t, s, store.CollectionGroups, groupID, store.Document{
		"ownerId": ownerUID,
		"name":    "La Victoria",
		"members": map[string]any{ownerUID: "owner"},
	})
	return ownerUID, groupID
}

// roosterDoc builds a showcase-eligible rooster snapshot; overrides replace or
// (with a nil value) null out individual fields.
func roosterDoc(groupID string, version int64, overrides store.Document) store.Document {
	doc := store.Document{
		"groupId":        groupID,
		"name":           "Thor",
		"plate":          "TH-01",
		"status":         "for-sale",
		"showInShowcase": true,
		"salePrice":      nil,
		"saleDate":       nil,
		"updatedAt":      float64(version),
	}
	for k, v := range overrides {
		doc[k] = v
	}
	return doc
}
