package service

import (
	"context"
	"log/slog"

	"github.com/bardofig/roozterfaceapp/internal/derive"
	"github.com/bardofig/roozterfaceapp/internal/events"
	"github.com/bardofig/roozterfaceapp/internal/store"
)

// NameCascade rewrites the denormalized ownerName/groupName on every listing
// that references a renamed user or gallera. The contract is eventual: all
// matching listings converge to the new name, not synchronously with the
// rename. A mid-batch failure is recovered when the rename event recurs.
type NameCascade struct {
	store store.Store
}

// NewNameCascade creates a cascade propagator writing through the given store.
func NewNameCascade(s store.Store) *NameCascade {
	return &NameCascade{store: s}
}

// HandleUserEvent reacts to user updates. Only fullName changes trigger the
// cascade; anything else is a no-op, which also keeps redelivery idempotent.
func (c *NameCascade) HandleUserEvent(ctx context.Context, ev events.Event) {
	if ev.Before == nil || ev.After == nil {
		return
	}
	oldName := derive.String(ev.Before, "fullName")
	newName := derive.String(ev.After, "fullName")
	if oldName == newName {
		return
	}
	c.rewrite(ctx, "ownerUid", ev.ID, "ownerName", newName)
}

// HandleGroupEvent reacts to gallera updates, cascading name changes.
func (c *NameCascade) HandleGroupEvent(ctx context.Context, ev events.Event) {
	if ev.Before == nil || ev.After == nil {
		return
	}
	oldName := derive.String(ev.Before, "name")
	newName := derive.String(ev.After, "name")
	if oldName == newName {
		return
	}
	c.rewrite(ctx, "groupId", ev.ID, "groupName", newName)
}

// rewrite updates one denormalized field on every listing matching the query.
// Updates are per-document merges, not one transaction across the batch.
// Unbounded batch size is a known scaling limit.
func (c *NameCascade) rewrite(ctx context.Context, queryField, queryValue, targetField, newValue string) {
	snaps, err := c.store.Query(ctx, store.CollectionListings, queryField, queryValue)
	if err != nil {
		slog.Error("name cascade query failed",
			queryField, queryValue,
			"error", err,
		)
		return
	}

	updated := 0
	for _, snap := range snaps {
		err := c.store.Update(ctx, store.CollectionListings, snap.ID,
			store.Document{targetField: newValue})
		if err != nil {
			// Keep going; the remaining listings should still converge.
			slog.Error("name cascade update failed",
				"listing_id", snap.ID,
				"error", err,
			)
			continue
		}
		updated++
		cascadeUpdates.Inc()
	}

	slog.Info("name cascade applied",
		queryField, queryValue,
		"field", targetField,
		"matched", len(snaps),
		"updated", updated,
	)
}
