package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bardofig/roozterfaceapp/internal/derive"
	"github.com/bardofig/roozterfaceapp/internal/events"
	"github.com/bardofig/roozterfaceapp/internal/store"
)

// listingFields are the rooster display fields copied onto a listing. A field
// the snapshot omits is written as an explicit null so the store clears it,
// rather than an unset marker the store would read as "leave unchanged".
var listingFields = []string{
	"name", "plate", "status", "breedLine", "fatherId", "motherId",
	"salePrice", "saleDate", "imageUrl",
}

// ListingProjector keeps the showcase collection in sync with rooster
// documents. A listing exists iff its rooster is for sale, shown in the
// showcase, and its gallera/owner chain resolves. On any doubt the projector
// fails safe by deleting the listing; it never publishes a partial record.
type ListingProjector struct {
	store  store.Store
	ledger *LedgerSync
}

// NewListingProjector creates a projector writing through the given store.
// The ledger synchronizer is needed so rooster deletion also drops the
// sale mirror.
func NewListingProjector(s store.Store, ledger *LedgerSync) *ListingProjector {
	return &ListingProjector{store: s, ledger: ledger}
}

// HandleRoosterEvent processes one rooster change event. It is idempotent
// under duplicate delivery and discards events staler than the listing already
// written; it never raises to its invoker.
func (p *ListingProjector) HandleRoosterEvent(ctx context.Context, ev events.Event) {
	if ev.IsDelete() {
		p.remove(ctx, ev.ID)
		p.ledger.RemoveSaleMirror(ctx, ev.ID)
		return
	}
	p.Apply(ctx, ev.ID, ev.After)
}

// Apply projects a rooster after-snapshot into the showcase. It is the
// reactive path and the reconciliation path in one: re-applying the current
// snapshot is always safe.
func (p *ListingProjector) Apply(ctx context.Context, roosterID string, after store.Document) {
	if !derive.ShowcaseVisible(after) {
		p.remove(ctx, roosterID)
		return
	}

	doc, err := p.buildListing(ctx, roosterID, after)
	if err != nil {
		slog.Warn("listing not publishable, removing",
			"rooster_id", roosterID,
			"error", err,
		)
		p.remove(ctx, roosterID)
		return
	}

	version, _ := derive.Int64(after, "updatedAt")
	err = p.store.RunTransaction(ctx, func(tx store.Tx) error {
		existing, err := tx.Get(store.CollectionListings, roosterID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if existing != nil {
			if reflected, ok := derive.Int64(existing, "sourceVersion"); ok && reflected > version {
				slog.Debug("discarding stale rooster event",
					"rooster_id", roosterID,
					"event_version", version,
					"reflected_version", reflected,
				)
				return nil
			}
		}
		return tx.Merge(store.CollectionListings, roosterID, doc)
	})
	if err != nil {
		// Never leave a half-written listing behind.
		slog.Error("listing upsert failed, removing", "rooster_id", roosterID, "error", err)
		p.remove(ctx, roosterID)
		return
	}

	listingsProjected.Inc()
	slog.Info("listing projected", "rooster_id", roosterID, "version", version)
}

// buildListing resolves the gallera and owner and assembles the full listing
// document. Any resolution failure is an error; the caller removes the listing.
func (p *ListingProjector) buildListing(ctx context.Context, roosterID string, after store.Document) (store.Document, error) {
	groupID := derive.String(after, "groupId")
	if groupID == "" {
		return nil, fmt.Errorf("rooster %s has no groupId", roosterID)
	}

	groupDoc, err := p.store.Get(ctx, store.CollectionGroups, groupID)
	if err != nil {
		return nil, fmt.Errorf("resolve gallera %s: %w", groupID, err)
	}

	ownerUID := derive.String(groupDoc, "ownerId")
	if ownerUID == "" {
		return nil, fmt.Errorf("gallera %s has no ownerId", groupID)
	}

	ownerDoc, err := p.store.Get(ctx, store.CollectionUsers, ownerUID)
	if err != nil {
		return nil, fmt.Errorf("resolve owner %s: %w", ownerUID, err)
	}

	doc := store.Document{}
	for _, field := range listingFields {
		if v, ok := after[field]; ok {
			doc[field] = v
		} else {
			doc[field] = nil
		}
	}
	doc["groupId"] = groupID
	doc["ownerUid"] = ownerUID
	doc["ownerName"] = derive.String(ownerDoc, "fullName")
	doc["groupName"] = derive.String(groupDoc, "name")
	if v, ok := derive.Int64(after, "updatedAt"); ok {
		doc["sourceVersion"] = v
	} else {
		doc["sourceVersion"] = int64(0)
	}
	doc["updatedAt"] = time.Now().UTC().Format(time.RFC3339Nano)
	return doc, nil
}

// remove deletes the listing. Absence is success, not an error.
func (p *ListingProjector) remove(ctx context.Context, roosterID string) {
	if err := p.store.Delete(ctx, store.CollectionListings, roosterID); err != nil {
		slog.Error("listing delete failed", "rooster_id", roosterID, "error", err)
		return
	}
	listingsRemoved.Inc()
}
