// Package store provides abstractions for the document store.
//
// Documents are schemaless JSON objects keyed by (collection, id). The store
// guarantees single-document atomicity and bounded multi-document transactions
// with internal conflict retry; everything stronger (cross-collection
// invariants, derived views) is application logic built on top.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get and Update when the document does not exist.
// Delete of a missing document is success, not an error.
var ErrNotFound = errors.New("store: document not found")

// Well-known collection names.
const (
	CollectionUsers        = "users"
	CollectionGroups       = "galleras"
	CollectionRoosters     = "roosters"
	CollectionListings     = "showcase"
	CollectionInvitations  = "invitations"
	CollectionTransactions = "transactions"
)

// Document is a schemaless JSON object. A key mapped to nil serializes as an
// explicit JSON null, which the store treats as "clear this field". An absent
// key is different: Merge leaves it unchanged.
type Document map[string]any

// Snapshot pairs a document with its id, as returned by queries.
type Snapshot struct {
	ID   string
	Data Document
}

// Store is the document store client.
type Store interface {
	// Get retrieves one document. Returns ErrNotFound if absent.
	Get(ctx context.Context, collection, id string) (Document, error)

	// Set writes the full document, replacing any existing content.
	Set(ctx context.Context, collection, id string, doc Document) error

	// Merge upserts the given fields into the document, leaving absent keys
	// untouched. A nil value writes an explicit null.
	Merge(ctx context.Context, collection, id string, fields Document) error

	// Update merges fields into an existing document. Returns ErrNotFound if
	// the document does not exist.
	Update(ctx context.Context, collection, id string, fields Document) error

	// Delete removes a document. Deleting a missing document is a no-op.
	Delete(ctx context.Context, collection, id string) error

	// Query returns all documents in the collection whose top-level field
	// equals value.
	Query(ctx context.Context, collection, field, value string) ([]Snapshot, error)

	// All returns every document in the collection.
	All(ctx context.Context, collection string) ([]Snapshot, error)

	// RunTransaction executes fn against a transactional view of the store.
	// The transaction is all-or-nothing across the documents it touches and is
	// retried internally on write conflict. Errors returned by fn abort the
	// transaction and propagate unchanged.
	RunTransaction(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any resources held by the store.
	Close() error
}

// Tx is the transactional view passed to RunTransaction.
type Tx interface {
	Get(collection, id string) (Document, error)
	Set(collection, id string, doc Document) error
	Merge(collection, id string, fields Document) error
	Delete(collection, id string) error
}

// Encode converts a model into a Document via its JSON representation.
func Encode(v any) (Document, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return doc, nil
}

// Decode populates a model from a Document via its JSON representation.
func Decode(doc Document, v any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}
