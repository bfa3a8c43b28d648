// Package identity resolves user identities. The real identity provider is an
// external collaborator; this package defines the narrow lookup interface the
// membership coordinator needs, plus a store-backed implementation that
// resolves against the users collection.
package identity

import (
	"context"
	"fmt"

	"github.com/bardofig/roozterfaceapp/internal/store"
)

// Provider resolves an email address to a user id.
type Provider interface {
	// LookupByEmail returns the user id registered under email, or a
	// store.ErrNotFound-wrapped error if no such user exists.
	LookupByEmail(ctx context.Context, email string) (string, error)
}

// StoreProvider resolves emails against the users collection.
type StoreProvider struct {
	store store.Store
}

// NewStoreProvider creates a Provider backed by the document store.
func NewStoreProvider(s store.Store) *StoreProvider {
	return &StoreProvider{store: s}
}

// LookupByEmail implements Provider.
func (p *StoreProvider) LookupByEmail(ctx context.Context, email string) (string, error) {
	snaps, err := p.store.Query(ctx, store.CollectionUsers, "email", email)
	if err != nil {
		return "", fmt.Errorf("lookup user by email: %w", err)
	}
	if len(snaps) == 0 {
		return "", fmt.Errorf("no user registered as %s: %w", email, store.ErrNotFound)
	}
	return snaps[0].ID, nil
}
